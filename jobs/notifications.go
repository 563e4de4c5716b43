package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/odyssey-erp/odyssey-campus/internal/jobs"
)

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

// NotificationJob renders account notifications and hands them to a Mailer.
type NotificationJob struct {
	Mailer  Mailer
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
	// LoginURL is linked from credential and reset mails.
	LoginURL string
}

// NewNotificationJob wires dependencies for the notification handlers.
func NewNotificationJob(mailer Mailer, logger *slog.Logger, metrics *jobmetrics.Metrics, loginURL string) *NotificationJob {
	return &NotificationJob{Mailer: mailer, Logger: logger, Metrics: metrics, LoginURL: loginURL}
}

// HandleSendEmail processes TaskTypeSendEmail tasks.
func (j *NotificationJob) HandleSendEmail(ctx context.Context, t *asynq.Task) (resultErr error) {
	var payload SendEmailPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("jobs: decode %s: %v: %w", TaskTypeSendEmail, err, asynq.SkipRetry)
	}
	tracker := j.metrics().Track(TaskTypeSendEmail)
	defer func() { resultErr = tracker.End(resultErr) }()
	return j.send(ctx, Message{To: payload.To, Subject: payload.Subject, Body: payload.Body})
}

// HandleStudentCredentials processes TaskStudentCredentials tasks.
func (j *NotificationJob) HandleStudentCredentials(ctx context.Context, t *asynq.Task) (resultErr error) {
	var payload StudentCredentialsPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("jobs: decode %s: %v: %w", TaskStudentCredentials, err, asynq.SkipRetry)
	}
	if payload.Email == "" || payload.TemporaryPassword == "" {
		return fmt.Errorf("jobs: %s: incomplete payload: %w", TaskStudentCredentials, asynq.SkipRetry)
	}
	tracker := j.metrics().Track(TaskStudentCredentials)
	defer func() { resultErr = tracker.End(resultErr) }()

	var body strings.Builder
	fmt.Fprintf(&body, "Dear %s,\n\n", payload.Name)
	body.WriteString("Your application has been approved and your student account is ready.\n\n")
	fmt.Fprintf(&body, "Roll number: %s\n", payload.RollNo)
	fmt.Fprintf(&body, "Department: %s\n", payload.Department)
	fmt.Fprintf(&body, "Temporary password: %s\n\n", payload.TemporaryPassword)
	body.WriteString("Sign in with your email or roll number and change the password right away.\n")
	if j.LoginURL != "" {
		fmt.Fprintf(&body, "%s\n", j.LoginURL)
	}

	err := j.send(ctx, Message{To: payload.Email, Subject: "Your student account", Body: body.String()})
	if err == nil {
		j.logger().Info("student credentials delivered", slog.String("student_id", payload.StudentID), slog.String("roll_no", payload.RollNo))
	}
	return err
}

// HandlePasswordReset processes TaskPasswordReset tasks.
func (j *NotificationJob) HandlePasswordReset(ctx context.Context, t *asynq.Task) (resultErr error) {
	var payload PasswordResetPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("jobs: decode %s: %v: %w", TaskPasswordReset, err, asynq.SkipRetry)
	}
	tracker := j.metrics().Track(TaskPasswordReset)
	defer func() { resultErr = tracker.End(resultErr) }()

	var body strings.Builder
	fmt.Fprintf(&body, "Hello %s,\n\n", payload.Name)
	body.WriteString("We received a request to reset the password of your account.\n")
	body.WriteString("Contact the administration office to have a new password issued. If you did not ask for this, ignore this message.\n")
	if j.LoginURL != "" {
		fmt.Fprintf(&body, "\n%s\n", j.LoginURL)
	}
	return j.send(ctx, Message{To: payload.Email, Subject: "Password reset request", Body: body.String()})
}

func (j *NotificationJob) send(ctx context.Context, msg Message) error {
	if j == nil || j.Mailer == nil {
		return errors.New("jobs: mailer not configured")
	}
	if err := j.Mailer.Send(ctx, msg); err != nil {
		j.logger().Error("send mail", slog.String("to", msg.To), slog.String("subject", msg.Subject), slog.Any("error", err))
		return fmt.Errorf("jobs: send mail: %w", err)
	}
	return nil
}

func (j *NotificationJob) logger() *slog.Logger {
	if j != nil && j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}

func (j *NotificationJob) metrics() *jobmetrics.Metrics {
	if j != nil && j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}
