package repository

import (
	"context"
	"errors"

	"github.com/terraconstructs/taskgate/internal/db/models"
)

var (
	// ErrNotFound is returned when the requested row does not exist.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists is returned when an insert violates a unique constraint.
	ErrAlreadyExists = errors.New("already exists")
)

// UserRepository is the credential store.
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id int64) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	Update(ctx context.Context, user *models.User) error
	List(ctx context.Context) ([]models.User, error)
}

// TaskFilter narrows task listings. Nil fields match everything.
type TaskFilter struct {
	Status     *models.TaskStatus
	AssignedTo *int64
}

// TaskRepository exposes persistence operations for tasks.
type TaskRepository interface {
	Create(ctx context.Context, task *models.Task) error
	GetByID(ctx context.Context, id int64) (*models.Task, error)
	List(ctx context.Context, filter TaskFilter) ([]models.Task, error)
	Update(ctx context.Context, task *models.Task) error
	Delete(ctx context.Context, id int64) error
}

// SubmissionRepository exposes persistence operations for submissions.
type SubmissionRepository interface {
	Create(ctx context.Context, submission *models.Submission) error
	GetByID(ctx context.Context, id int64) (*models.Submission, error)
	List(ctx context.Context) ([]models.Submission, error)
	ListByTask(ctx context.Context, taskID int64) ([]models.Submission, error)
	Update(ctx context.Context, submission *models.Submission) error
}
