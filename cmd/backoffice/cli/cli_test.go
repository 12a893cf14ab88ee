package cli

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-backoffice/internal/auth"
	"github.com/odyssey-erp/odyssey-backoffice/internal/rbac"
	"github.com/odyssey-erp/odyssey-backoffice/internal/shared"
	"github.com/odyssey-erp/odyssey-backoffice/jobs"
)

type stubUsers struct{ err error }

func (s stubUsers) EnsureUser(_ context.Context, email, _ string) (*auth.User, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &auth.User{ID: 4, Email: email, IsActive: true}, nil
}

type stubRoles struct {
	perms    []string
	assigned [2]int64
}

func (s *stubRoles) EnsureRole(_ context.Context, name, _ string, perms []string) (rbac.Role, error) {
	s.perms = perms
	return rbac.Role{ID: 9, Name: name}, nil
}

func (s *stubRoles) AssignRole(_ context.Context, userID, roleID int64) error {
	s.assigned = [2]int64{userID, roleID}
	return nil
}

func TestCreateAdmin(t *testing.T) {
	roles := &stubRoles{}
	user, err := CreateAdmin(context.Background(), stubUsers{}, roles, "root@example.com", "supersecret")
	require.NoError(t, err)
	assert.Equal(t, int64(4), user.ID)
	assert.Equal(t, [2]int64{4, 9}, roles.assigned)
	assert.ElementsMatch(t, shared.BackOfficeScopes(), roles.perms)

	_, err = CreateAdmin(context.Background(), stubUsers{err: shared.NewValidationError("password", "too short")}, roles, "x", "y")
	require.ErrorIs(t, err, shared.ErrValidation)
}

type stubQueue struct {
	tasks []*asynq.Task
	info  *asynq.QueueInfo
	err   error
}

func (s *stubQueue) EnqueueContext(_ context.Context, task *asynq.Task, _ ...asynq.Option) (*asynq.TaskInfo, error) {
	s.tasks = append(s.tasks, task)
	return &asynq.TaskInfo{ID: "t1", Type: task.Type()}, nil
}

func (s *stubQueue) GetQueueInfo(string) (*asynq.QueueInfo, error) { return s.info, s.err }

func (s *stubQueue) ListScheduledTasks(string, ...asynq.ListOption) ([]*asynq.TaskInfo, error) {
	return nil, nil
}

func (s *stubQueue) Close() error { return nil }

func TestJobsCLITrigger(t *testing.T) {
	q := &stubQueue{}
	c := &JobsCLI{client: q, inspector: q, now: func() time.Time { return time.Date(2025, 3, 9, 0, 0, 0, 0, time.UTC) }}

	info, err := c.Trigger(context.Background(), jobs.TaskEnsureStock)
	require.NoError(t, err)
	assert.Equal(t, jobs.TaskEnsureStock, info.Type)
	require.Len(t, q.tasks, 1)
	assert.JSONEq(t, `{"scheduled_for":"2025-03-09T00:00:00Z"}`, string(q.tasks[0].Payload()))

	_, err = c.Trigger(context.Background(), "gl:integrity")
	require.Error(t, err)
	assert.Contains(t, TriggerableNames(), jobs.TaskLowStockScan)
}

func TestJobsCLIInspect(t *testing.T) {
	q := &stubQueue{info: &asynq.QueueInfo{Queue: jobs.QueueDefault, Pending: 2, Retry: 1}}
	c := &JobsCLI{client: q, inspector: q, now: time.Now}
	stats, err := c.InspectQueue(context.Background())
	require.NoError(t, err)
	assert.Equal(t, QueueStats{Queue: jobs.QueueDefault, Pending: 2, Retry: 1}, stats)

	q.err = asynq.ErrQueueNotFound
	stats, err = c.InspectQueue(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Pending)

	q.err = errors.New("dial")
	_, err = c.InspectQueue(context.Background())
	require.Error(t, err)
}
