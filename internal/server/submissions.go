package server

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/terraconstructs/taskgate/internal/auth"
	"github.com/terraconstructs/taskgate/internal/middleware"
	"github.com/terraconstructs/taskgate/internal/rbac"
	"github.com/terraconstructs/taskgate/internal/services/submissions"
	"github.com/terraconstructs/taskgate/internal/telemetry"
)

// SubmissionsOptions configures the submission service router.
type SubmissionsOptions struct {
	Service    *submissions.Service
	Authorizer *rbac.Authorizer
	Logger     *zap.Logger
	Metrics    *telemetry.ServerMetrics
	// MetricsHandler, when set, is served at /metrics.
	MetricsHandler http.Handler
	Now            func() time.Time
}

// NewSubmissionsRouter serves /api/submissions behind the trust headers.
func NewSubmissionsRouter(opts SubmissionsOptions) (chi.Router, error) {
	if opts.Service == nil {
		return nil, errors.New("submissions router requires a submission service")
	}
	if opts.Authorizer == nil {
		return nil, errors.New("submissions router requires an authorizer")
	}
	h := &submissionHandlers{svc: opts.Service, ew: newErrorWriter(opts.Logger, opts.Now)}
	require := opts.Authorizer.Require

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(middleware.RequestLogger(h.ew.logger, opts.Metrics))
	r.Use(chimiddleware.Recoverer)

	mountOps(r, opts.MetricsHandler)
	r.Route("/api/submissions", func(r chi.Router) {
		r.Use(middleware.TrustedIdentity(h.ew.now))

		r.With(require(rbac.SubmissionCreate)).Post("/", h.submit)
		r.With(require(rbac.SubmissionList)).Get("/", h.list)
		r.With(require(rbac.SubmissionListByTask)).Get("/task/{taskId}", h.listByTask)
		r.With(require(rbac.SubmissionRead)).Get("/{id}", h.get)
		r.With(require(rbac.SubmissionReview)).Put("/{id}", h.review)
	})
	return r, nil
}

type submissionHandlers struct {
	svc *submissions.Service
	ew  errorWriter
}

func (h *submissionHandlers) submit(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	taskID, err := strconv.ParseInt(q.Get("taskId"), 10, 64)
	if err != nil {
		h.ew.write(w, r, http.StatusBadRequest, msgBadRequest+" - invalid taskId")
		return
	}
	identity, _ := auth.IdentityFromContext(r.Context())
	sub, err := h.svc.Submit(r.Context(), identity, taskID, q.Get("githubLink"))
	if err != nil {
		h.ew.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, sub)
}

func (h *submissionHandlers) list(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.List(r.Context())
	if err != nil {
		h.ew.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *submissionHandlers) listByTask(w http.ResponseWriter, r *http.Request) {
	taskID, err := int64Param(r, "taskId")
	if err != nil {
		h.ew.write(w, r, http.StatusBadRequest, msgBadRequest+" - invalid task id")
		return
	}
	list, err := h.svc.ListByTask(r.Context(), taskID)
	if err != nil {
		h.ew.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *submissionHandlers) get(w http.ResponseWriter, r *http.Request) {
	id, err := int64Param(r, "id")
	if err != nil {
		h.ew.write(w, r, http.StatusBadRequest, msgBadRequest+" - invalid submission id")
		return
	}
	sub, err := h.svc.Get(r.Context(), id)
	if err != nil {
		h.ew.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sub)
}

func (h *submissionHandlers) review(w http.ResponseWriter, r *http.Request) {
	id, err := int64Param(r, "id")
	if err != nil {
		h.ew.write(w, r, http.StatusBadRequest, msgBadRequest+" - invalid submission id")
		return
	}
	identity, _ := auth.IdentityFromContext(r.Context())
	sub, err := h.svc.Review(r.Context(), identity, id, r.URL.Query().Get("status"))
	if err != nil {
		h.ew.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sub)
}
