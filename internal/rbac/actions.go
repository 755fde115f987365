package rbac

import "github.com/terraconstructs/taskgate/internal/auth"

// Task actions
const (
	TaskCreate       = "task:create"
	TaskRead         = "task:read"
	TaskList         = "task:list"
	TaskListAssigned = "task:list-assigned"
	TaskUpdate       = "task:update"
	TaskAssign       = "task:assign"
	TaskComplete     = "task:complete"
	TaskDelete       = "task:delete"
)

// Submission actions
const (
	SubmissionCreate     = "submission:create"
	SubmissionRead       = "submission:read"
	SubmissionList       = "submission:list"
	SubmissionListByTask = "submission:list-by-task"
	SubmissionReview     = "submission:review"
)

// User and gateway actions
const (
	UserProfile = "user:profile"
	UserList    = "user:list"
	PolicyRead  = "policy:read"
)

// Grant binds an action to the lowest role allowed to perform it.
type Grant struct {
	Role   auth.Role
	Action string
}

// DefaultGrants is the operation-level role matrix. ROLE_ADMIN inherits every
// ROLE_USER grant.
func DefaultGrants() []Grant {
	return []Grant{
		{auth.RoleAdmin, TaskCreate},
		{auth.RoleAdmin, TaskAssign},
		{auth.RoleAdmin, TaskDelete},
		{auth.RoleAdmin, SubmissionList},
		{auth.RoleAdmin, SubmissionReview},
		{auth.RoleAdmin, UserList},
		{auth.RoleAdmin, PolicyRead},

		{auth.RoleUser, TaskRead},
		{auth.RoleUser, TaskList},
		{auth.RoleUser, TaskListAssigned},
		{auth.RoleUser, TaskUpdate},
		{auth.RoleUser, TaskComplete},
		{auth.RoleUser, SubmissionCreate},
		{auth.RoleUser, SubmissionRead},
		{auth.RoleUser, SubmissionListByTask},
		{auth.RoleUser, UserProfile},
	}
}
