package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/uptrace/bun"
)

// TaskStatus is the lifecycle state of a task.
type TaskStatus string

const (
	TaskPending  TaskStatus = "PENDING"
	TaskAssigned TaskStatus = "ASSIGNED"
	TaskDone     TaskStatus = "DONE"
)

// ParseTaskStatus accepts a status name case-insensitively.
func ParseTaskStatus(s string) (TaskStatus, error) {
	switch st := TaskStatus(strings.ToUpper(strings.TrimSpace(s))); st {
	case TaskPending, TaskAssigned, TaskDone:
		return st, nil
	default:
		return "", fmt.Errorf("unknown task status %q", s)
	}
}

// Task is a unit of work assigned to one or more users.
type Task struct {
	bun.BaseModel `bun:"table:tasks,alias:t"`

	ID              int64      `bun:"id,pk,autoincrement" json:"id"`
	Title           string     `bun:"title,notnull" json:"title"`
	Description     string     `bun:"description" json:"description"`
	Image           string     `bun:"image" json:"image"`
	AssignedUserIDs Int64List  `bun:"assigned_user_ids,type:jsonb,notnull" json:"assignedUserIds"`
	Tags            StringList `bun:"tags,type:jsonb,notnull" json:"tags"`
	Deadline        *time.Time `bun:"deadline" json:"deadline,omitempty"`
	CreatedAt       time.Time  `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"createdAt"`
	Status          TaskStatus `bun:"status,notnull" json:"status"`
}

// IsAssignedTo reports whether userID is among the assignees.
func (t *Task) IsAssignedTo(userID int64) bool {
	for _, id := range t.AssignedUserIDs {
		if id == userID {
			return true
		}
	}
	return false
}

// Int64List is a list of ids stored as a JSON array.
type Int64List []int64

// Scan implements sql.Scanner for reading from database
func (l *Int64List) Scan(value any) error {
	*l = Int64List{}
	return scanJSON(value, l, "Int64List")
}

// Value implements driver.Valuer for writing to database
func (l Int64List) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]int64(l))
	return string(b), err
}

// StringList is a list of strings stored as a JSON array.
type StringList []string

// Scan implements sql.Scanner for reading from database
func (l *StringList) Scan(value any) error {
	*l = StringList{}
	return scanJSON(value, l, "StringList")
}

// Value implements driver.Valuer for writing to database
func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]string(l))
	return string(b), err
}

func scanJSON(value any, dst any, name string) error {
	switch v := value.(type) {
	case nil:
		return nil
	case []byte:
		return json.Unmarshal(v, dst)
	case string:
		return json.Unmarshal([]byte(v), dst)
	default:
		return fmt.Errorf("failed to scan %s: expected []byte or string, got %T", name, value)
	}
}
