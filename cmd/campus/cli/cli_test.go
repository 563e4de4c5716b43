package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-campus/internal/auth"
	"github.com/odyssey-erp/odyssey-campus/internal/shared"
	"github.com/odyssey-erp/odyssey-campus/jobs"
)

type stubQueue struct {
	tasks []*asynq.Task
}

func (s *stubQueue) EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	s.tasks = append(s.tasks, task)
	return &asynq.TaskInfo{ID: "t1", Type: task.Type(), Queue: jobs.QueueDefault}, nil
}

func (s *stubQueue) Close() error { return nil }

type stubInspector map[string]*asynq.QueueInfo

func (s stubInspector) GetQueueInfo(queue string) (*asynq.QueueInfo, error) {
	info, ok := s[queue]
	if !ok {
		return nil, asynq.ErrQueueNotFound
	}
	return info, nil
}

func (s stubInspector) Close() error { return nil }

func TestTriggerCleanup(t *testing.T) {
	queue := &stubQueue{}
	c := &JobsCLI{client: queue}

	info, err := c.Trigger(context.Background(), "idempotency-cleanup")
	require.NoError(t, err)
	assert.Equal(t, jobs.TaskIdempotencyCleanup, info.Type)
	require.Len(t, queue.tasks, 1)

	_, err = c.Trigger(context.Background(), "consolidate")
	assert.Error(t, err)
}

func TestInspectCommandJSON(t *testing.T) {
	c := &JobsCLI{inspector: stubInspector{
		jobs.QueueCritical: {Queue: jobs.QueueCritical, Pending: 3, Retry: 1},
	}}
	var out, errOut bytes.Buffer
	code := c.InspectCommand(context.Background(), InspectOptions{JSONOutput: true, Stdout: &out, Stderr: &errOut})
	require.Equal(t, 0, code, errOut.String())

	var stats []QueueStats
	require.NoError(t, json.Unmarshal(out.Bytes(), &stats))
	assert.Equal(t, []QueueStats{
		{Queue: jobs.QueueCritical, Pending: 3, Retry: 1},
		{Queue: jobs.QueueDefault},
	}, stats)
}

func TestInspectCommandTable(t *testing.T) {
	c := &JobsCLI{inspector: stubInspector{}}
	var out bytes.Buffer
	require.Equal(t, 0, c.InspectCommand(context.Background(), InspectOptions{Stdout: &out}))
	assert.True(t, strings.HasPrefix(out.String(), "QUEUE"))
	assert.Contains(t, out.String(), jobs.QueueCritical)
}

type stubRegistrar struct {
	actor shared.Actor
	req   auth.AdminRegisterRequest
	err   error
}

func (s *stubRegistrar) RegisterAdmin(ctx context.Context, actor shared.Actor, req auth.AdminRegisterRequest) (*auth.Session, error) {
	s.actor, s.req = actor, req
	if s.err != nil {
		return nil, s.err
	}
	return &auth.Session{Token: "tok"}, nil
}

func TestCreateAdminCommand(t *testing.T) {
	registrar := &stubRegistrar{}
	var out, errOut bytes.Buffer
	code := CreateAdminCommand(context.Background(), registrar, CreateAdminOptions{
		Name:          "Dean",
		Username:      "Dean",
		Email:         "dean@campus.edu",
		PasswordInput: strings.NewReader("s3cret-pass\n"),
		Stdout:        &out,
		Stderr:        &errOut,
	})
	require.Equal(t, 0, code, errOut.String())
	assert.Equal(t, "s3cret-pass", registrar.req.Password)
	assert.Equal(t, shared.RoleSuperAdmin, registrar.req.Role)
	assert.True(t, registrar.actor.IsSuperAdmin())
	assert.Contains(t, out.String(), "admin dean created")
	assert.NotContains(t, out.String(), "s3cret-pass")
}

func TestCreateAdminCommandReportsFailures(t *testing.T) {
	var errOut bytes.Buffer
	registrar := &stubRegistrar{err: shared.FieldErrors{"email": "must be a valid email", "password": "is required"}}
	code := CreateAdminCommand(context.Background(), registrar, CreateAdminOptions{Stderr: &errOut})
	assert.Equal(t, 2, code)
	assert.Equal(t, "create-admin: email must be a valid email\ncreate-admin: password is required\n", errOut.String())

	errOut.Reset()
	registrar.err = errors.New("admins: username already registered")
	assert.Equal(t, 1, CreateAdminCommand(context.Background(), registrar, CreateAdminOptions{Stderr: &errOut}))
}
