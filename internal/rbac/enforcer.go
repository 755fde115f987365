// Package rbac evaluates operation-level role checks inside internal services,
// against the role set propagated by the edge.
package rbac

import (
	_ "embed"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"

	"github.com/terraconstructs/taskgate/internal/auth"
	"github.com/terraconstructs/taskgate/internal/middleware"
)

//go:embed model.conf
var casbinModelContent string

// ErrInsufficientRole means the identity holds no role granted the action.
var ErrInsufficientRole = errors.New("insufficient role")

// Authorizer answers "may these roles perform this action". The policy is
// loaded once in NewAuthorizer and never changed, so Enforce only takes read locks.
type Authorizer struct {
	enforcer *casbin.SyncedEnforcer
}

// NewAuthorizer builds an enforcer from grants. ROLE_ADMIN is made a member
// of ROLE_USER.
func NewAuthorizer(grants []Grant) (*Authorizer, error) {
	m, err := model.NewModelFromString(casbinModelContent)
	if err != nil {
		return nil, fmt.Errorf("parse casbin model: %w", err)
	}

	enforcer, err := casbin.NewSyncedEnforcer(m)
	if err != nil {
		return nil, fmt.Errorf("create casbin enforcer: %w", err)
	}
	enforcer.EnableAutoSave(false)

	rules := make([][]string, 0, len(grants))
	for _, g := range grants {
		rules = append(rules, []string{string(g.Role), g.Action})
	}
	if _, err := enforcer.AddPolicies(rules); err != nil {
		return nil, fmt.Errorf("load casbin policies: %w", err)
	}
	if _, err := enforcer.AddGroupingPolicy(string(auth.RoleAdmin), string(auth.RoleUser)); err != nil {
		return nil, fmt.Errorf("load casbin role hierarchy: %w", err)
	}

	return &Authorizer{enforcer: enforcer}, nil
}

// MustDefault builds an Authorizer from DefaultGrants.
func MustDefault() *Authorizer {
	a, err := NewAuthorizer(DefaultGrants())
	if err != nil {
		panic(err)
	}
	return a
}

// Allowed reports whether any role in roles is granted action.
func (a *Authorizer) Allowed(roles auth.RoleSet, action string) (bool, error) {
	for _, role := range roles.Slice() {
		ok, err := a.enforcer.Enforce(string(role), action)
		if err != nil {
			return false, fmt.Errorf("enforce %s for %s: %w", action, role, err)
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}

// Check returns ErrInsufficientRole unless roles may perform action.
func (a *Authorizer) Check(roles auth.RoleSet, action string) error {
	ok, err := a.Allowed(roles, action)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrInsufficientRole, action)
	}
	return nil
}

// Require is a chi middleware that answers 403 with the structured failure
// body unless the context identity may perform action. It expects
// middleware.TrustedIdentity to have run.
func (a *Authorizer) Require(action string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, ok := auth.IdentityFromContext(r.Context())
			if !ok {
				middleware.WriteError(w, r, http.StatusUnauthorized, middleware.MsgUnauthenticated, time.Now())
				return
			}
			allowed, err := a.Allowed(identity.Roles, action)
			if err != nil {
				http.Error(w, "authorization error", http.StatusInternalServerError)
				return
			}
			if !allowed {
				middleware.WriteError(w, r, http.StatusForbidden, middleware.MsgForbidden, time.Now())
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
