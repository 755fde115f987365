package submissions

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun/migrate"

	"github.com/terraconstructs/taskgate/internal/auth"
	"github.com/terraconstructs/taskgate/internal/db/bunx"
	"github.com/terraconstructs/taskgate/internal/db/models"
	"github.com/terraconstructs/taskgate/internal/migrations"
	"github.com/terraconstructs/taskgate/internal/repository"
)

// fakeTaskClient serves a fixed set of task ids and records completions.
type fakeTaskClient struct {
	tasks       map[int64]string
	completed   []int64
	completeErr error
	lastCaller  auth.Identity
}

func (f *fakeTaskClient) GetTask(_ context.Context, id int64, c auth.Identity) (*TaskRef, error) {
	f.lastCaller = c
	title, ok := f.tasks[id]
	if !ok {
		return nil, ErrTaskNotFound
	}
	return &TaskRef{ID: id, Title: title, Status: "PENDING"}, nil
}

func (f *fakeTaskClient) CompleteTask(_ context.Context, id int64, c auth.Identity) (*TaskRef, error) {
	f.lastCaller = c
	if f.completeErr != nil {
		return nil, f.completeErr
	}
	f.completed = append(f.completed, id)
	return &TaskRef{ID: id, Status: "DONE"}, nil
}

func newTestService(t *testing.T, tasks *fakeTaskClient) *Service {
	t.Helper()
	ctx := context.Background()

	db, err := bunx.NewDB(ctx, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { bunx.Close(db) })

	migrator := migrate.NewMigrator(db, migrations.Migrations)
	require.NoError(t, migrator.Init(ctx))
	_, err = migrator.Migrate(ctx)
	require.NoError(t, err)

	svc := NewService(repository.NewBunSubmissionRepository(db), tasks, nil)
	svc.now = func() time.Time { return time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC) }
	return svc
}

var user = auth.Identity{PrincipalID: "8", Roles: auth.NewRoleSet(auth.RoleUser)}

func TestSubmit(t *testing.T) {
	tasks := &fakeTaskClient{tasks: map[int64]string{1: "Build API"}}
	svc := newTestService(t, tasks)
	ctx := context.Background()

	sub, err := svc.Submit(ctx, user, 1, "https://github.com/acme/api")
	require.NoError(t, err)
	assert.NotZero(t, sub.ID)
	assert.Equal(t, int64(8), sub.UserID)
	assert.Equal(t, models.SubmissionPending, sub.Status)
	assert.Equal(t, "8", tasks.lastCaller.PrincipalID)

	_, err = svc.Submit(ctx, user, 99, "https://github.com/acme/api")
	assert.ErrorIs(t, err, ErrTaskNotFound)

	_, err = svc.Submit(ctx, user, 1, "ftp://example.com")
	assert.ErrorIs(t, err, ErrInvalidSubmission)

	_, err = svc.Submit(ctx, auth.Identity{PrincipalID: "abc"}, 1, "https://github.com/acme/api")
	assert.ErrorIs(t, err, ErrInvalidSubmission)
}

func TestReview_AcceptCompletesTask(t *testing.T) {
	tasks := &fakeTaskClient{tasks: map[int64]string{3: "Docs"}}
	svc := newTestService(t, tasks)
	ctx := context.Background()

	sub, err := svc.Submit(ctx, user, 3, "https://github.com/acme/docs")
	require.NoError(t, err)

	admin := auth.Identity{PrincipalID: "1", Roles: auth.NewRoleSet(auth.RoleAdmin)}
	reviewed, err := svc.Review(ctx, admin, sub.ID, "accepted")
	require.NoError(t, err)
	assert.Equal(t, models.SubmissionAccepted, reviewed.Status)
	assert.Equal(t, []int64{3}, tasks.completed)
	assert.Equal(t, "ROLE_ADMIN", tasks.lastCaller.Roles.String())
}

func TestReview_DeclineLeavesTask(t *testing.T) {
	tasks := &fakeTaskClient{tasks: map[int64]string{3: "Docs"}}
	svc := newTestService(t, tasks)
	ctx := context.Background()

	sub, err := svc.Submit(ctx, user, 3, "https://github.com/acme/docs")
	require.NoError(t, err)

	reviewed, err := svc.Review(ctx, user, sub.ID, "DECLINED")
	require.NoError(t, err)
	assert.Equal(t, models.SubmissionDeclined, reviewed.Status)
	assert.Empty(t, tasks.completed)

	_, err = svc.Review(ctx, user, sub.ID, "MAYBE")
	assert.ErrorIs(t, err, ErrInvalidSubmission)

	_, err = svc.Review(ctx, user, 404, "DECLINED")
	assert.ErrorIs(t, err, ErrSubmissionNotFound)
}

func TestReview_CompleteFailureKeepsSubmissionPending(t *testing.T) {
	tasks := &fakeTaskClient{tasks: map[int64]string{3: "Docs"}, completeErr: ErrDependencyUnavailable}
	svc := newTestService(t, tasks)
	ctx := context.Background()

	sub, err := svc.Submit(ctx, user, 3, "https://github.com/acme/docs")
	require.NoError(t, err)

	_, err = svc.Review(ctx, user, sub.ID, "ACCEPTED")
	assert.True(t, errors.Is(err, ErrDependencyUnavailable))

	stored, err := svc.Get(ctx, sub.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SubmissionPending, stored.Status)
}

func TestListByTask(t *testing.T) {
	tasks := &fakeTaskClient{tasks: map[int64]string{1: "a", 2: "b"}}
	svc := newTestService(t, tasks)
	ctx := context.Background()

	for _, id := range []int64{1, 1, 2} {
		_, err := svc.Submit(ctx, user, id, "https://github.com/acme/x")
		require.NoError(t, err)
	}

	all, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	forOne, err := svc.ListByTask(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, forOne, 2)
}
