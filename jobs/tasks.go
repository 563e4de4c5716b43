package jobs

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// QueueCritical carries account notifications that a user is waiting on.
	QueueCritical = "critical"

	// TaskTypeSendEmail is the task type for sending transactional emails.
	TaskTypeSendEmail = "mail:send"
	// TaskStudentCredentials delivers the temporary credentials of an approved applicant.
	TaskStudentCredentials = "admissions:credentials"
	// TaskPasswordReset tells an account holder how to reset their password.
	TaskPasswordReset = "auth:password-reset"
	// TaskIdempotencyCleanup purges expired idempotency keys.
	TaskIdempotencyCleanup = "maintenance:idempotency-cleanup"
)

// SendEmailPayload describes the information required to send an email.
type SendEmailPayload struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// StudentCredentialsPayload is enqueued once per provisioned student.
type StudentCredentialsPayload struct {
	StudentID         string `json:"student_id"`
	Name              string `json:"name"`
	Email             string `json:"email"`
	RollNo            string `json:"roll_no"`
	Department        string `json:"department"`
	TemporaryPassword string `json:"temporary_password"`
}

// PasswordResetPayload addresses a reset notice.
type PasswordResetPayload struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

// IdempotencyCleanupPayload bounds the age of retained idempotency keys.
type IdempotencyCleanupPayload struct {
	MaxAge time.Duration `json:"max_age"`
}

func newTask(kind string, payload any, opts ...asynq.Option) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("jobs: encode %s payload: %w", kind, err)
	}
	return asynq.NewTask(kind, data, opts...), nil
}

// NewSendEmailTask constructs an Asynq task.
func NewSendEmailTask(payload SendEmailPayload) (*asynq.Task, error) {
	return newTask(TaskTypeSendEmail, payload)
}

// NewStudentCredentialsTask builds a credentials delivery task. Completed tasks
// are not retained because the payload holds a temporary password.
func NewStudentCredentialsTask(payload StudentCredentialsPayload) (*asynq.Task, error) {
	return newTask(TaskStudentCredentials, payload, asynq.Queue(QueueCritical), asynq.MaxRetry(5), asynq.Retention(0))
}

// NewPasswordResetTask builds a reset notice task.
func NewPasswordResetTask(payload PasswordResetPayload) (*asynq.Task, error) {
	return newTask(TaskPasswordReset, payload, asynq.Queue(QueueCritical), asynq.MaxRetry(3))
}

// NewIdempotencyCleanupTask builds the periodic cleanup task.
func NewIdempotencyCleanupTask(maxAge time.Duration) (*asynq.Task, error) {
	return newTask(TaskIdempotencyCleanup, IdempotencyCleanupPayload{MaxAge: maxAge})
}
