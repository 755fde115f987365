// Package tasks implements the task lifecycle behind the gateway.
package tasks

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/terraconstructs/taskgate/internal/db/models"
	"github.com/terraconstructs/taskgate/internal/repository"
	"github.com/terraconstructs/taskgate/internal/telemetry"
)

const tracerName = "taskgate/services/tasks"

var (
	ErrTaskNotFound = errors.New("task not found")
	ErrInvalidTask  = errors.New("invalid task")
)

// CreateRequest describes a new task.
type CreateRequest struct {
	Title       string
	Description string
	Image       string
	Tags        []string
	Deadline    *time.Time
}

// UpdateRequest is a partial update; nil fields are left unchanged.
type UpdateRequest struct {
	Title       *string
	Description *string
	Image       *string
	Status      *models.TaskStatus
	Deadline    *time.Time
}

// Service manages tasks.
type Service struct {
	repo   repository.TaskRepository
	logger *zap.Logger
	now    func() time.Time
}

// NewService returns a task service over repo.
func NewService(repo repository.TaskRepository, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{repo: repo, logger: logger, now: time.Now}
}

// Create stores a new PENDING task stamped with the current time.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*models.Task, error) {
	ctx, span := telemetry.StartSpan(ctx, tracerName, "tasks.Create")
	defer span.End()

	if strings.TrimSpace(req.Title) == "" {
		return nil, fmt.Errorf("%w: title is required", ErrInvalidTask)
	}
	task := &models.Task{
		Title:           req.Title,
		Description:     req.Description,
		Image:           req.Image,
		Tags:            models.StringList(req.Tags),
		Deadline:        req.Deadline,
		AssignedUserIDs: models.Int64List{},
		Status:          models.TaskPending,
		CreatedAt:       s.now().UTC(),
	}
	if err := s.repo.Create(ctx, task); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	s.logger.Info("task created", zap.Int64("task_id", task.ID), zap.String("title", task.Title))
	return task, nil
}

// Get returns a task by id.
func (s *Service) Get(ctx context.Context, id int64) (*models.Task, error) {
	task, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: %d", ErrTaskNotFound, id)
		}
		return nil, err
	}
	return task, nil
}

// List returns all tasks, optionally narrowed to one status.
func (s *Service) List(ctx context.Context, status *models.TaskStatus) ([]models.Task, error) {
	return s.repo.List(ctx, repository.TaskFilter{Status: status})
}

// ListAssigned returns tasks assigned to userID, optionally narrowed to one status.
func (s *Service) ListAssigned(ctx context.Context, userID int64, status *models.TaskStatus) ([]models.Task, error) {
	return s.repo.List(ctx, repository.TaskFilter{Status: status, AssignedTo: &userID})
}

// Update applies the non-nil fields of req.
func (s *Service) Update(ctx context.Context, id int64, req UpdateRequest) (*models.Task, error) {
	task, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Title != nil {
		task.Title = *req.Title
	}
	if req.Description != nil {
		task.Description = *req.Description
	}
	if req.Image != nil {
		task.Image = *req.Image
	}
	if req.Status != nil {
		task.Status = *req.Status
	}
	if req.Deadline != nil {
		task.Deadline = req.Deadline
	}
	if err := s.repo.Update(ctx, task); err != nil {
		return nil, err
	}
	return task, nil
}

// Assign adds userID to the task's assignees. A user is only added once, and
// a PENDING task becomes ASSIGNED on its first assignment.
func (s *Service) Assign(ctx context.Context, taskID, userID int64) (*models.Task, error) {
	ctx, span := telemetry.StartSpan(ctx, tracerName, "tasks.Assign",
		attribute.Int64("task.id", taskID),
		attribute.Int64("user.id", userID),
	)
	defer span.End()

	task, err := s.Get(ctx, taskID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if !task.IsAssignedTo(userID) {
		task.AssignedUserIDs = append(task.AssignedUserIDs, userID)
		if task.Status == models.TaskPending {
			task.Status = models.TaskAssigned
		}
	}
	if err := s.repo.Update(ctx, task); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	s.logger.Info("task assigned", zap.Int64("task_id", taskID), zap.Int64("user_id", userID))
	return task, nil
}

// Complete marks the task DONE.
func (s *Service) Complete(ctx context.Context, id int64) (*models.Task, error) {
	task, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	task.Status = models.TaskDone
	if err := s.repo.Update(ctx, task); err != nil {
		return nil, err
	}
	s.logger.Info("task completed", zap.Int64("task_id", id))
	return task, nil
}

// Delete removes a task.
func (s *Service) Delete(ctx context.Context, id int64) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("%w: %d", ErrTaskNotFound, id)
		}
		return err
	}
	s.logger.Info("task deleted", zap.Int64("task_id", id))
	return nil
}
