package middleware

import (
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/terraconstructs/taskgate/internal/auth"
	"github.com/terraconstructs/taskgate/internal/policy"
	"github.com/terraconstructs/taskgate/internal/telemetry"
)

// AuthzDependencies provides the collaborators needed for authorization decisions.
type AuthzDependencies struct {
	Policy  *policy.Table
	Logger  *zap.Logger
	Metrics *telemetry.AuthMetrics
	Now     func() time.Time
}

// NewAuthzMiddleware enforces the path-policy table. Public paths pass, paths
// needing identity without one get 401, role paths whose identity lacks every
// required role get 403.
func NewAuthzMiddleware(deps AuthzDependencies) (func(http.Handler) http.Handler, error) {
	if deps.Policy == nil {
		return nil, errors.New("authz middleware requires policy table")
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			if r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}

			entry, _ := deps.Policy.Lookup(r.URL.Path)
			level := entry.Level.String()
			if entry.Level == policy.LevelPublic {
				deps.Metrics.RecordDecision(ctx, "allow", level)
				next.ServeHTTP(w, r)
				return
			}

			identity, ok := auth.IdentityFromContext(ctx)
			if !ok || identity.PrincipalID == "" {
				deps.Metrics.RecordDecision(ctx, "unauthenticated", level)
				WriteError(w, r, http.StatusUnauthorized, MsgUnauthenticated, now())
				return
			}

			if !entry.Allows(identity.Roles) {
				logger.Info("access denied",
					zap.String("principal_id", identity.PrincipalID),
					zap.String("roles", identity.Roles.String()),
					zap.String("pattern", entry.Pattern),
					zap.String("path", r.URL.Path),
				)
				deps.Metrics.RecordDecision(ctx, "forbidden", level)
				WriteError(w, r, http.StatusForbidden, MsgForbidden, now())
				return
			}

			deps.Metrics.RecordDecision(ctx, "allow", level)
			next.ServeHTTP(w, r)
		})
	}, nil
}
