package jobs

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/smtp"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-campus/internal/admissions"
	jobmetrics "github.com/odyssey-erp/odyssey-campus/internal/jobs"
)

type recordingQueue struct {
	tasks []*asynq.Task
	err   error
}

func (q *recordingQueue) EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	if q.err != nil {
		return nil, q.err
	}
	q.tasks = append(q.tasks, task)
	return &asynq.TaskInfo{ID: uuid.NewString(), Queue: QueueCritical, Type: task.Type()}, nil
}

type recordingMailer struct {
	sent []Message
	err  error
}

func (m *recordingMailer) Send(ctx context.Context, msg Message) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, msg)
	return nil
}

func newMetrics() *jobmetrics.Metrics {
	return jobmetrics.NewMetrics(prometheus.NewRegistry())
}

func TestNotifierEnqueuesCredentialsForWorker(t *testing.T) {
	queue := &recordingQueue{}
	notifier := NewNotifier(queue, newMetrics(), nil)
	creds := admissions.Credentials{
		StudentID:         uuid.New(),
		Name:              "A",
		Email:             "a@x.edu",
		RollNo:            "20260042",
		Department:        "Computer Science",
		TemporaryPassword: "Xy7pQ2aB",
	}

	require.NoError(t, notifier.NotifyCredentials(context.Background(), creds))
	require.Len(t, queue.tasks, 1)
	assert.Equal(t, TaskStudentCredentials, queue.tasks[0].Type())

	mailer := &recordingMailer{}
	job := NewNotificationJob(mailer, nil, newMetrics(), "https://campus.example.edu/login")
	require.NoError(t, job.HandleStudentCredentials(context.Background(), queue.tasks[0]))
	require.Len(t, mailer.sent, 1)
	assert.Equal(t, "a@x.edu", mailer.sent[0].To)
	assert.Contains(t, mailer.sent[0].Body, "20260042")
	assert.Contains(t, mailer.sent[0].Body, "Xy7pQ2aB")
	assert.Contains(t, mailer.sent[0].Body, "https://campus.example.edu/login")
}

func TestNotifierPropagatesQueueErrors(t *testing.T) {
	boom := errors.New("redis unavailable")
	notifier := NewNotifier(&recordingQueue{err: boom}, nil, nil)
	err := notifier.NotifyPasswordReset(context.Background(), "a@x.edu", "A")
	assert.ErrorIs(t, err, boom)
}

func TestPasswordResetHandler(t *testing.T) {
	task, err := NewPasswordResetTask(PasswordResetPayload{Email: "b@x.edu", Name: "B"})
	require.NoError(t, err)

	mailer := &recordingMailer{}
	job := NewNotificationJob(mailer, nil, newMetrics(), "")
	require.NoError(t, job.HandlePasswordReset(context.Background(), task))
	require.Len(t, mailer.sent, 1)
	assert.Equal(t, "Password reset request", mailer.sent[0].Subject)

	mailer.err = errors.New("smtp refused")
	assert.Error(t, job.HandlePasswordReset(context.Background(), task))
}

func TestMalformedPayloadSkipsRetry(t *testing.T) {
	job := NewNotificationJob(&recordingMailer{}, nil, newMetrics(), "")
	ctx := context.Background()

	err := job.HandleStudentCredentials(ctx, asynq.NewTask(TaskStudentCredentials, []byte("{")))
	assert.ErrorIs(t, err, asynq.SkipRetry)

	empty, _ := json.Marshal(StudentCredentialsPayload{Email: "a@x.edu"})
	err = job.HandleStudentCredentials(ctx, asynq.NewTask(TaskStudentCredentials, empty))
	assert.ErrorIs(t, err, asynq.SkipRetry)

	err = job.HandleSendEmail(ctx, asynq.NewTask(TaskTypeSendEmail, []byte("nope")))
	assert.ErrorIs(t, err, asynq.SkipRetry)
}

func TestLogMailerSurfacesMessage(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	mailer := NewLogMailer(logger, "admissions@campus.edu")
	require.NoError(t, mailer.Send(context.Background(), Message{To: "a@x.edu", Subject: "Your student account", Body: "Temporary password: Xy7pQ2aB"}))

	out := buf.String()
	assert.Contains(t, out, "level=WARN")
	assert.Contains(t, out, "admissions@campus.edu")
	assert.Contains(t, out, "Xy7pQ2aB")
}

func TestCredentialsReachLogThroughWorker(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	task, err := NewStudentCredentialsTask(StudentCredentialsPayload{
		StudentID: uuid.NewString(), Name: "A", Email: "a@x.edu", RollNo: "20261234", TemporaryPassword: "Tmp9xQ2z",
	})
	require.NoError(t, err)
	job := NewNotificationJob(NewLogMailer(logger, "admissions@campus.edu"), logger, newMetrics(), "")
	require.NoError(t, job.HandleStudentCredentials(context.Background(), task))

	assert.Equal(t, 1, strings.Count(buf.String(), "Tmp9xQ2z"))
}

func TestLogNotifierSurfacesCredentialsOnce(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	fallback := NewLogNotifier(logger)
	require.NoError(t, fallback.NotifyCredentials(context.Background(), admissions.Credentials{
		StudentID: uuid.New(), Email: "a@x.edu", RollNo: "20260042", TemporaryPassword: "Xy7pQ2aB",
	}))
	require.NoError(t, fallback.NotifyPasswordReset(context.Background(), "a@x.edu", "A"))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "WARN", entry["level"])
	assert.Equal(t, "20260042", entry["roll_no"])
	assert.Equal(t, "Xy7pQ2aB", entry["temporary_password"])
	assert.NotContains(t, lines[1], "Xy7pQ2aB")
}

type capturedSMTP struct {
	addr string
	auth smtp.Auth
	from string
	to   []string
	msg  string
}

func TestSMTPMailerRendersMessage(t *testing.T) {
	m, err := NewSMTPMailer(SMTPConfig{Host: "mail.campus.edu", Port: 2525, Username: "relay", Password: "pw", From: "admissions@campus.edu"})
	require.NoError(t, err)
	var got capturedSMTP
	m.send = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		got = capturedSMTP{addr: addr, auth: a, from: from, to: to, msg: string(msg)}
		return nil
	}
	m.now = func() time.Time { return time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC) }

	require.NoError(t, m.Send(context.Background(), Message{To: "a@x.edu", Subject: "Hi\r\nBcc: evil@x.edu", Body: "line one\nline two"}))
	assert.Equal(t, "mail.campus.edu:2525", got.addr)
	assert.NotNil(t, got.auth)
	assert.Equal(t, "admissions@campus.edu", got.from)
	assert.Equal(t, []string{"a@x.edu"}, got.to)
	assert.Contains(t, got.msg, "Subject: HiBcc: evil@x.edu\r\n")
	assert.NotContains(t, got.msg, "\r\nBcc:")
	assert.Contains(t, got.msg, "Date: Thu, 15 Oct 2026 09:00:00 +0000\r\n")
	assert.True(t, strings.HasSuffix(got.msg, "\r\n\r\nline one\r\nline two"))

	m.send = func(string, smtp.Auth, string, []string, []byte) error { return errors.New("421 try later") }
	assert.ErrorContains(t, m.Send(context.Background(), Message{To: "a@x.edu"}), "421 try later")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, m.Send(ctx, Message{To: "a@x.edu"}), context.Canceled)
}

func TestNewMailerPicksTransport(t *testing.T) {
	logMailer, err := NewMailer(SMTPConfig{From: "admissions@campus.edu"}, nil)
	require.NoError(t, err)
	assert.IsType(t, &LogMailer{}, logMailer)

	smtpMailer, err := NewMailer(SMTPConfig{Host: "mail.campus.edu"}, nil)
	require.NoError(t, err)
	require.IsType(t, &SMTPMailer{}, smtpMailer)
	assert.Equal(t, "mail.campus.edu:587", smtpMailer.(*SMTPMailer).addr)
	assert.Nil(t, smtpMailer.(*SMTPMailer).auth)
}

type fakeCleaner struct {
	maxAge  time.Duration
	removed int64
}

func (c *fakeCleaner) Cleanup(ctx context.Context, olderThan time.Duration) (int64, error) {
	c.maxAge = olderThan
	return c.removed, nil
}

func TestIdempotencyCleanupDefaultsRetention(t *testing.T) {
	cleaner := &fakeCleaner{removed: 4}
	job := NewIdempotencyCleanupJob(cleaner, nil, newMetrics())

	task, err := NewIdempotencyCleanupTask(0)
	require.NoError(t, err)
	require.NoError(t, job.Handle(context.Background(), task))
	assert.Equal(t, DefaultIdempotencyRetention, cleaner.maxAge)

	task, err = NewIdempotencyCleanupTask(time.Hour)
	require.NoError(t, err)
	require.NoError(t, job.Handle(context.Background(), task))
	assert.Equal(t, time.Hour, cleaner.maxAge)
}

type fakeInspector struct {
	infos map[string]*asynq.QueueInfo
	err   error
}

func (f fakeInspector) GetQueueInfo(queue string) (*asynq.QueueInfo, error) {
	if f.err != nil {
		return nil, f.err
	}
	info, ok := f.infos[queue]
	if !ok {
		return nil, asynq.ErrQueueNotFound
	}
	return info, nil
}

func TestHealthHandler(t *testing.T) {
	inspector := fakeInspector{infos: map[string]*asynq.QueueInfo{
		QueueCritical: {Queue: QueueCritical, Pending: 2, Failed: 1},
	}}
	rec := httptest.NewRecorder()
	NewHandler(inspector, nil).health(rec, httptest.NewRequest(http.MethodGet, "/jobs/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var env struct {
		Data []QueueHealth `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	assert.Equal(t, []QueueHealth{
		{Queue: QueueCritical, Pending: 2, Failed: 1},
		{Queue: QueueDefault},
	}, env.Data)

	rec = httptest.NewRecorder()
	NewHandler(fakeInspector{err: errors.New("down")}, nil).health(rec, httptest.NewRequest(http.MethodGet, "/jobs/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestServeMuxSkipsIncompleteHandlers(t *testing.T) {
	called := false
	mux := NewServeMux([]TaskHandler{
		{Type: TaskPasswordReset, Handler: func(ctx context.Context, t *asynq.Task) error { called = true; return nil }},
		{Type: "", Handler: func(ctx context.Context, t *asynq.Task) error { return nil }},
		{Type: TaskTypeSendEmail},
	})
	require.NoError(t, mux.ProcessTask(context.Background(), asynq.NewTask(TaskPasswordReset, nil)))
	assert.True(t, called)
	assert.Error(t, mux.ProcessTask(context.Background(), asynq.NewTask(TaskTypeSendEmail, nil)))
}
