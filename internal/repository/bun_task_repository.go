package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/uptrace/bun"

	"github.com/terraconstructs/taskgate/internal/db/models"
)

// BunTaskRepository implements TaskRepository using Bun ORM
type BunTaskRepository struct {
	db *bun.DB
}

// NewBunTaskRepository creates a new Bun-based task repository
func NewBunTaskRepository(db *bun.DB) *BunTaskRepository {
	return &BunTaskRepository{db: db}
}

// Create inserts a new task
func (r *BunTaskRepository) Create(ctx context.Context, task *models.Task) error {
	if task.CreatedAt.IsZero() {
		task.CreatedAt = time.Now()
	}
	if task.AssignedUserIDs == nil {
		task.AssignedUserIDs = models.Int64List{}
	}
	if task.Tags == nil {
		task.Tags = models.StringList{}
	}
	_, err := r.db.NewInsert().
		Model(task).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("create task: %w", err)
	}
	return nil
}

// GetByID retrieves a task by ID
func (r *BunTaskRepository) GetByID(ctx context.Context, id int64) (*models.Task, error) {
	task := new(models.Task)
	err := r.db.NewSelect().
		Model(task).
		Where("id = ?", id).
		Scan(ctx)
	if err != nil {
		return nil, notFoundOr(err, "get task by ID", fmt.Sprintf("task %d", id))
	}
	return task, nil
}

// List returns tasks ordered by id. The assignee filter is applied in memory
// because the assignee list is a JSON column whose query syntax differs
// between PostgreSQL and SQLite.
func (r *BunTaskRepository) List(ctx context.Context, filter TaskFilter) ([]models.Task, error) {
	var tasks []models.Task
	q := r.db.NewSelect().
		Model(&tasks).
		Order("id ASC")
	if filter.Status != nil {
		q = q.Where("status = ?", *filter.Status)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}

	if filter.AssignedTo == nil {
		return tasks, nil
	}
	assigned := tasks[:0]
	for _, t := range tasks {
		if t.IsAssignedTo(*filter.AssignedTo) {
			assigned = append(assigned, t)
		}
	}
	return assigned, nil
}

// Update overwrites an existing task
func (r *BunTaskRepository) Update(ctx context.Context, task *models.Task) error {
	result, err := r.db.NewUpdate().
		Model(task).
		WherePK().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("update task: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("task %d: %w", task.ID, ErrNotFound)
	}
	return nil
}

// Delete removes a task by ID
func (r *BunTaskRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.NewDelete().
		Model((*models.Task)(nil)).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("task %d: %w", id, ErrNotFound)
	}
	return nil
}
