package repository

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"

	"github.com/terraconstructs/taskgate/internal/db/models"
)

// BunSubmissionRepository implements SubmissionRepository using Bun ORM
type BunSubmissionRepository struct {
	db *bun.DB
}

// NewBunSubmissionRepository creates a new Bun-based submission repository
func NewBunSubmissionRepository(db *bun.DB) *BunSubmissionRepository {
	return &BunSubmissionRepository{db: db}
}

// Create inserts a new submission
func (r *BunSubmissionRepository) Create(ctx context.Context, submission *models.Submission) error {
	_, err := r.db.NewInsert().
		Model(submission).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("create submission: %w", err)
	}
	return nil
}

// GetByID retrieves a submission by ID
func (r *BunSubmissionRepository) GetByID(ctx context.Context, id int64) (*models.Submission, error) {
	submission := new(models.Submission)
	err := r.db.NewSelect().
		Model(submission).
		Where("id = ?", id).
		Scan(ctx)
	if err != nil {
		return nil, notFoundOr(err, "get submission by ID", fmt.Sprintf("submission %d", id))
	}
	return submission, nil
}

// List retrieves all submissions, oldest first
func (r *BunSubmissionRepository) List(ctx context.Context) ([]models.Submission, error) {
	var submissions []models.Submission
	err := r.db.NewSelect().
		Model(&submissions).
		Order("id ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}
	return submissions, nil
}

// ListByTask retrieves the submissions for one task
func (r *BunSubmissionRepository) ListByTask(ctx context.Context, taskID int64) ([]models.Submission, error) {
	var submissions []models.Submission
	err := r.db.NewSelect().
		Model(&submissions).
		Where("task_id = ?", taskID).
		Order("id ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list submissions by task: %w", err)
	}
	return submissions, nil
}

// Update overwrites an existing submission
func (r *BunSubmissionRepository) Update(ctx context.Context, submission *models.Submission) error {
	result, err := r.db.NewUpdate().
		Model(submission).
		WherePK().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("update submission: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("submission %d: %w", submission.ID, ErrNotFound)
	}
	return nil
}
