// Package submissions records task submissions and their review.
package submissions

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/terraconstructs/taskgate/internal/auth"
	"github.com/terraconstructs/taskgate/internal/db/models"
	"github.com/terraconstructs/taskgate/internal/repository"
	"github.com/terraconstructs/taskgate/internal/telemetry"
)

const tracerName = "taskgate/services/submissions"

var (
	ErrSubmissionNotFound    = errors.New("submission not found")
	ErrTaskNotFound          = errors.New("task not found")
	ErrTaskRejected          = errors.New("task service rejected the caller")
	ErrInvalidSubmission     = errors.New("invalid submission")
	ErrDependencyUnavailable = errors.New("task service unavailable")
)

// Service manages submissions.
type Service struct {
	repo   repository.SubmissionRepository
	tasks  TaskClient
	logger *zap.Logger
	now    func() time.Time
}

// NewService returns a submission service.
func NewService(repo repository.SubmissionRepository, tasks TaskClient, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{repo: repo, tasks: tasks, logger: logger, now: time.Now}
}

// Submit records a PENDING submission by the caller after confirming the task exists.
func (s *Service) Submit(ctx context.Context, caller auth.Identity, taskID int64, githubLink string) (sub *models.Submission, err error) {
	ctx, span := telemetry.StartSpan(ctx, tracerName, "submissions.Submit", attribute.Int64("task.id", taskID))
	defer func() {
		telemetry.RecordError(span, err)
		span.End()
	}()

	userID, err := caller.ID()
	if err != nil {
		return nil, fmt.Errorf("%w: principal id %q", ErrInvalidSubmission, caller.PrincipalID)
	}
	if err := validateLink(githubLink); err != nil {
		return nil, err
	}

	task, err := s.tasks.GetTask(ctx, taskID, caller)
	if err != nil {
		s.logger.Warn("task validation failed", zap.Int64("task_id", taskID), zap.Error(err))
		return nil, err
	}

	sub = &models.Submission{
		TaskID:         task.ID,
		GithubLink:     githubLink,
		UserID:         userID,
		Status:         models.SubmissionPending,
		SubmissionTime: s.now().UTC(),
	}
	if err := s.repo.Create(ctx, sub); err != nil {
		return nil, err
	}
	s.logger.Info("submission created",
		zap.Int64("submission_id", sub.ID),
		zap.Int64("task_id", taskID),
		zap.Int64("user_id", userID),
	)
	return sub, nil
}

// Get returns a submission by id.
func (s *Service) Get(ctx context.Context, id int64) (*models.Submission, error) {
	sub, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: %d", ErrSubmissionNotFound, id)
		}
		return nil, err
	}
	return sub, nil
}

// List returns every submission.
func (s *Service) List(ctx context.Context) ([]models.Submission, error) {
	return s.repo.List(ctx)
}

// ListByTask returns the submissions for one task.
func (s *Service) ListByTask(ctx context.Context, taskID int64) ([]models.Submission, error) {
	return s.repo.ListByTask(ctx, taskID)
}

// Review sets the review outcome. Accepting a submission completes its task
// through the task service first; if that fails the submission is unchanged.
func (s *Service) Review(ctx context.Context, caller auth.Identity, id int64, status string) (sub *models.Submission, err error) {
	ctx, span := telemetry.StartSpan(ctx, tracerName, "submissions.Review", attribute.Int64("submission.id", id))
	defer func() {
		telemetry.RecordError(span, err)
		span.End()
	}()

	outcome, err := models.ParseReviewStatus(status)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSubmission, err)
	}
	sub, err = s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if outcome == models.SubmissionAccepted {
		if _, err := s.tasks.CompleteTask(ctx, sub.TaskID, caller); err != nil {
			s.logger.Error("complete task failed", zap.Int64("task_id", sub.TaskID), zap.Error(err))
			return nil, err
		}
	}

	sub.Status = outcome
	if err := s.repo.Update(ctx, sub); err != nil {
		return nil, err
	}
	s.logger.Info("submission reviewed", zap.Int64("submission_id", id), zap.String("status", string(outcome)))
	return sub, nil
}

func validateLink(link string) error {
	if strings.TrimSpace(link) == "" {
		return fmt.Errorf("%w: githubLink is required", ErrInvalidSubmission)
	}
	u, err := url.Parse(link)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return fmt.Errorf("%w: githubLink must be an http(s) url", ErrInvalidSubmission)
	}
	return nil
}
