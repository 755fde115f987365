package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/terraconstructs/taskgate/internal/db/models"
)

func TestBunTaskRepository_CRUD(t *testing.T) {
	repo := NewBunTaskRepository(setupTestDB(t))
	ctx := context.Background()

	deadline := time.Date(2030, 1, 2, 3, 4, 5, 0, time.UTC)
	task := &models.Task{
		Title:    "Build API",
		Tags:     models.StringList{"go", "backend"},
		Deadline: &deadline,
		Status:   models.TaskPending,
	}
	require.NoError(t, repo.Create(ctx, task))
	assert.NotZero(t, task.ID)

	got, err := repo.GetByID(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, "Build API", got.Title)
	assert.Equal(t, models.StringList{"go", "backend"}, got.Tags)
	assert.Empty(t, got.AssignedUserIDs)
	require.NotNil(t, got.Deadline)
	assert.True(t, deadline.Equal(*got.Deadline))

	got.AssignedUserIDs = append(got.AssignedUserIDs, 7)
	got.Status = models.TaskAssigned
	require.NoError(t, repo.Update(ctx, got))

	again, err := repo.GetByID(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, models.Int64List{7}, again.AssignedUserIDs)
	assert.Equal(t, models.TaskAssigned, again.Status)

	require.NoError(t, repo.Delete(ctx, task.ID))
	_, err = repo.GetByID(ctx, task.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, repo.Delete(ctx, task.ID), ErrNotFound)
}

func TestBunTaskRepository_ListFilters(t *testing.T) {
	repo := NewBunTaskRepository(setupTestDB(t))
	ctx := context.Background()

	seed := []*models.Task{
		{Title: "a", Status: models.TaskPending},
		{Title: "b", Status: models.TaskAssigned, AssignedUserIDs: models.Int64List{1, 2}},
		{Title: "c", Status: models.TaskDone, AssignedUserIDs: models.Int64List{2}},
	}
	for _, task := range seed {
		require.NoError(t, repo.Create(ctx, task))
	}

	all, err := repo.List(ctx, TaskFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	done := models.TaskDone
	byStatus, err := repo.List(ctx, TaskFilter{Status: &done})
	require.NoError(t, err)
	require.Len(t, byStatus, 1)
	assert.Equal(t, "c", byStatus[0].Title)

	user2 := int64(2)
	assigned, err := repo.List(ctx, TaskFilter{AssignedTo: &user2})
	require.NoError(t, err)
	assert.Len(t, assigned, 2)

	user1 := int64(1)
	assigned, err = repo.List(ctx, TaskFilter{AssignedTo: &user1, Status: &done})
	require.NoError(t, err)
	assert.Empty(t, assigned)
}
