package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/uptrace/bun"
)

// SubmissionStatus is the review state of a submission.
type SubmissionStatus string

const (
	SubmissionPending  SubmissionStatus = "PENDING"
	SubmissionAccepted SubmissionStatus = "ACCEPTED"
	SubmissionDeclined SubmissionStatus = "DECLINED"
)

// ParseReviewStatus accepts the two review outcomes, case-insensitively.
func ParseReviewStatus(s string) (SubmissionStatus, error) {
	switch st := SubmissionStatus(strings.ToUpper(strings.TrimSpace(s))); st {
	case SubmissionAccepted, SubmissionDeclined:
		return st, nil
	default:
		return "", fmt.Errorf("review status must be ACCEPTED or DECLINED, got %q", s)
	}
}

// Submission is a user's solution link for a task.
type Submission struct {
	bun.BaseModel `bun:"table:submissions,alias:s"`

	ID             int64            `bun:"id,pk,autoincrement" json:"id"`
	TaskID         int64            `bun:"task_id,notnull" json:"taskId"`
	GithubLink     string           `bun:"github_link,notnull" json:"githubLink"`
	UserID         int64            `bun:"user_id,notnull" json:"userId"`
	Status         SubmissionStatus `bun:"status,notnull" json:"status"`
	SubmissionTime time.Time        `bun:"submission_time,notnull" json:"submissionTime"`
}
