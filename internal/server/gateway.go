package server

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httputil"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/terraconstructs/taskgate/internal/auth"
	"github.com/terraconstructs/taskgate/internal/middleware"
	"github.com/terraconstructs/taskgate/internal/policy"
	"github.com/terraconstructs/taskgate/internal/rbac"
	"github.com/terraconstructs/taskgate/internal/telemetry"
)

// Upstreams is the static routing table of the gateway.
type Upstreams struct {
	Users       string
	Tasks       string
	Submissions string
}

// GatewayOptions configures the edge router.
type GatewayOptions struct {
	Codec      *auth.Codec
	Policy     *policy.Table
	Authorizer *rbac.Authorizer
	CORS       middleware.CORSOptions
	Upstreams  Upstreams

	Logger         *zap.Logger
	Metrics        *telemetry.ServerMetrics
	AuthMetrics    *telemetry.AuthMetrics
	MetricsHandler http.Handler
	Now            func() time.Time
}

// NewGatewayRouter assembles the edge: CORS preflight, trust-header
// stripping, token verification and the path-policy decision run in that
// order before any local route or upstream proxy.
func NewGatewayRouter(opts GatewayOptions) (chi.Router, error) {
	if opts.Authorizer == nil {
		return nil, errors.New("gateway requires an authorizer")
	}
	ew := newErrorWriter(opts.Logger, opts.Now)

	edge, err := middleware.NewEdgeVerifier(middleware.EdgeDependencies{
		Codec:   opts.Codec,
		Policy:  opts.Policy,
		Logger:  ew.logger,
		Metrics: opts.AuthMetrics,
	})
	if err != nil {
		return nil, err
	}
	authz, err := middleware.NewAuthzMiddleware(middleware.AuthzDependencies{
		Policy:  opts.Policy,
		Logger:  ew.logger,
		Metrics: opts.AuthMetrics,
		Now:     ew.now,
	})
	if err != nil {
		return nil, err
	}

	users, err := newUpstreamProxy("users", opts.Upstreams.Users, ew)
	if err != nil {
		return nil, err
	}
	taskSvc, err := newUpstreamProxy("tasks", opts.Upstreams.Tasks, ew)
	if err != nil {
		return nil, err
	}
	submissionSvc, err := newUpstreamProxy("submissions", opts.Upstreams.Submissions, ew)
	if err != nil {
		return nil, err
	}

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestLogger(ew.logger, opts.Metrics))
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.Preflight(opts.CORS))
	r.Use(middleware.Simple(opts.CORS))
	r.Use(middleware.StripTrustHeaders)
	r.Use(edge)
	r.Use(authz)

	r.Get("/", handleWelcome)
	mountOps(r, opts.MetricsHandler)
	r.With(opts.Authorizer.Require(rbac.PolicyRead)).Get("/api/admin/policies", handlePolicies(opts.Policy))

	r.Handle("/auth/*", users)
	r.Handle("/api/users", users)
	r.Handle("/api/users/*", users)
	r.Handle("/api/tasks", taskSvc)
	r.Handle("/api/tasks/*", taskSvc)
	r.Handle("/api/submissions", submissionSvc)
	r.Handle("/api/submissions/*", submissionSvc)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		ew.write(w, r, http.StatusNotFound, msgNotFound)
	})
	return r, nil
}

// newUpstreamProxy forwards requests, trust headers included, to target.
func newUpstreamProxy(name, target string, ew errorWriter) (http.Handler, error) {
	u, err := url.Parse(target)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid %s upstream url %q", name, target)
	}
	return &httputil.ReverseProxy{
		Rewrite: func(pr *httputil.ProxyRequest) {
			pr.SetURL(u)
			pr.SetXForwarded()
		},
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			ew.logger.Warn("upstream request failed",
				zap.String("upstream", name),
				zap.String("path", r.URL.Path),
				zap.Error(err),
			)
			ew.write(w, r, http.StatusBadGateway, msgBadGateway)
		},
	}, nil
}

func handleWelcome(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": "Welcome to the taskgate API gateway"})
}

func handlePolicies(table *policy.Table) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"policies": table.Entries()})
	}
}
