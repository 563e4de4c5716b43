package jobs

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/odyssey-erp/odyssey-campus/internal/admissions"
	jobmetrics "github.com/odyssey-erp/odyssey-campus/internal/jobs"
)

// Enqueuer is the subset of asynq.Client used by the API.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// Notifier turns account events into queued notification tasks.
type Notifier struct {
	queue   Enqueuer
	metrics *jobmetrics.Metrics
	logger  *slog.Logger
}

// NewNotifier constructs a Notifier.
func NewNotifier(queue Enqueuer, metrics *jobmetrics.Metrics, logger *slog.Logger) *Notifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Notifier{queue: queue, metrics: metrics, logger: logger}
}

// NotifyCredentials enqueues delivery of a new student's credentials.
func (n *Notifier) NotifyCredentials(ctx context.Context, creds admissions.Credentials) error {
	task, err := NewStudentCredentialsTask(StudentCredentialsPayload{
		StudentID:         creds.StudentID.String(),
		Name:              creds.Name,
		Email:             creds.Email,
		RollNo:            creds.RollNo,
		Department:        creds.Department,
		TemporaryPassword: creds.TemporaryPassword,
	})
	if err != nil {
		return err
	}
	return n.enqueue(ctx, task)
}

// NotifyPasswordReset enqueues a reset notice.
func (n *Notifier) NotifyPasswordReset(ctx context.Context, email, name string) error {
	task, err := NewPasswordResetTask(PasswordResetPayload{Email: email, Name: name})
	if err != nil {
		return err
	}
	return n.enqueue(ctx, task)
}

func (n *Notifier) enqueue(ctx context.Context, task *asynq.Task) error {
	info, err := n.queue.EnqueueContext(ctx, task)
	if err != nil {
		return fmt.Errorf("jobs: enqueue %s: %w", task.Type(), err)
	}
	n.metrics.Enqueued(task.Type())
	if info != nil {
		n.logger.Debug("task enqueued", slog.String("type", task.Type()), slog.String("id", info.ID), slog.String("queue", info.Queue))
	}
	return nil
}

// LogNotifier stands in when the notification queue is disabled. New student
// credentials are surfaced once in the log for delivery outside the system.
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier constructs a LogNotifier.
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogNotifier{logger: logger}
}

// NotifyCredentials implements admissions.CredentialNotifier.
func (n *LogNotifier) NotifyCredentials(ctx context.Context, creds admissions.Credentials) error {
	n.logger.WarnContext(ctx, "notification queue disabled, deliver student credentials manually",
		slog.String("student_id", creds.StudentID.String()),
		slog.String("email", creds.Email),
		slog.String("roll_no", creds.RollNo),
		slog.String("temporary_password", creds.TemporaryPassword),
	)
	return nil
}

// NotifyPasswordReset implements auth.ResetNotifier.
func (n *LogNotifier) NotifyPasswordReset(ctx context.Context, email, name string) error {
	n.logger.InfoContext(ctx, "queue disabled, password reset notice not delivered", slog.String("email", email))
	return nil
}
