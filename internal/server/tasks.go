package server

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/terraconstructs/taskgate/internal/auth"
	"github.com/terraconstructs/taskgate/internal/db/models"
	"github.com/terraconstructs/taskgate/internal/middleware"
	"github.com/terraconstructs/taskgate/internal/rbac"
	"github.com/terraconstructs/taskgate/internal/services/tasks"
	"github.com/terraconstructs/taskgate/internal/telemetry"
)

// TasksOptions configures the task service router.
type TasksOptions struct {
	Service    *tasks.Service
	Authorizer *rbac.Authorizer
	Logger     *zap.Logger
	Metrics    *telemetry.ServerMetrics
	// MetricsHandler, when set, is served at /metrics.
	MetricsHandler http.Handler
	Now            func() time.Time
}

type createTaskRequest struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Image       string     `json:"image"`
	Tags        []string   `json:"tags"`
	Deadline    *time.Time `json:"deadline"`
}

type updateTaskRequest struct {
	Title       *string    `json:"title"`
	Description *string    `json:"description"`
	Image       *string    `json:"image"`
	Status      *string    `json:"status"`
	Deadline    *time.Time `json:"deadline"`
}

// NewTasksRouter serves /api/tasks behind the trust headers.
func NewTasksRouter(opts TasksOptions) (chi.Router, error) {
	if opts.Service == nil {
		return nil, errors.New("tasks router requires a task service")
	}
	if opts.Authorizer == nil {
		return nil, errors.New("tasks router requires an authorizer")
	}
	h := &taskHandlers{svc: opts.Service, ew: newErrorWriter(opts.Logger, opts.Now)}
	require := opts.Authorizer.Require

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(middleware.RequestLogger(h.ew.logger, opts.Metrics))
	r.Use(chimiddleware.Recoverer)

	mountOps(r, opts.MetricsHandler)
	r.Route("/api/tasks", func(r chi.Router) {
		r.Use(middleware.TrustedIdentity(h.ew.now))

		r.With(require(rbac.TaskCreate)).Post("/", h.create)
		r.With(require(rbac.TaskList)).Get("/", h.list)
		r.With(require(rbac.TaskListAssigned)).Get("/user", h.listAssigned)
		r.With(require(rbac.TaskRead)).Get("/{id}", h.get)
		r.With(require(rbac.TaskUpdate)).Put("/{id}", h.update)
		r.With(require(rbac.TaskAssign)).Put("/{id}/assign/{userId}", h.assign)
		r.With(require(rbac.TaskComplete)).Put("/{id}/complete", h.complete)
		r.With(require(rbac.TaskDelete)).Delete("/{id}", h.delete)
	})
	return r, nil
}

type taskHandlers struct {
	svc *tasks.Service
	ew  errorWriter
}

func (h *taskHandlers) create(w http.ResponseWriter, r *http.Request) {
	var req createTaskRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.ew.write(w, r, http.StatusBadRequest, msgBadRequest+" - invalid JSON body")
		return
	}
	task, err := h.svc.Create(r.Context(), tasks.CreateRequest{
		Title:       req.Title,
		Description: req.Description,
		Image:       req.Image,
		Tags:        req.Tags,
		Deadline:    req.Deadline,
	})
	if err != nil {
		h.ew.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, task)
}

func (h *taskHandlers) list(w http.ResponseWriter, r *http.Request) {
	status, ok := h.statusFilter(w, r)
	if !ok {
		return
	}
	list, err := h.svc.List(r.Context(), status)
	if err != nil {
		h.ew.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *taskHandlers) listAssigned(w http.ResponseWriter, r *http.Request) {
	status, ok := h.statusFilter(w, r)
	if !ok {
		return
	}
	identity, _ := auth.IdentityFromContext(r.Context())
	userID, err := identity.ID()
	if err != nil {
		h.ew.write(w, r, http.StatusBadRequest, middleware.MsgInvalidPrincipal)
		return
	}
	list, err := h.svc.ListAssigned(r.Context(), userID, status)
	if err != nil {
		h.ew.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *taskHandlers) get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.taskID(w, r)
	if !ok {
		return
	}
	task, err := h.svc.Get(r.Context(), id)
	if err != nil {
		h.ew.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func (h *taskHandlers) update(w http.ResponseWriter, r *http.Request) {
	id, ok := h.taskID(w, r)
	if !ok {
		return
	}
	var req updateTaskRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.ew.write(w, r, http.StatusBadRequest, msgBadRequest+" - invalid JSON body")
		return
	}
	upd := tasks.UpdateRequest{
		Title:       req.Title,
		Description: req.Description,
		Image:       req.Image,
		Deadline:    req.Deadline,
	}
	if req.Status != nil {
		st, err := models.ParseTaskStatus(*req.Status)
		if err != nil {
			h.ew.write(w, r, http.StatusBadRequest, msgBadRequest+" - "+err.Error())
			return
		}
		upd.Status = &st
	}
	task, err := h.svc.Update(r.Context(), id, upd)
	if err != nil {
		h.ew.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func (h *taskHandlers) assign(w http.ResponseWriter, r *http.Request) {
	id, ok := h.taskID(w, r)
	if !ok {
		return
	}
	userID, err := int64Param(r, "userId")
	if err != nil {
		h.ew.write(w, r, http.StatusBadRequest, msgBadRequest+" - invalid user id")
		return
	}
	task, err := h.svc.Assign(r.Context(), id, userID)
	if err != nil {
		h.ew.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func (h *taskHandlers) complete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.taskID(w, r)
	if !ok {
		return
	}
	task, err := h.svc.Complete(r.Context(), id)
	if err != nil {
		h.ew.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func (h *taskHandlers) delete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.taskID(w, r)
	if !ok {
		return
	}
	if err := h.svc.Delete(r.Context(), id); err != nil {
		h.ew.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *taskHandlers) taskID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := int64Param(r, "id")
	if err != nil {
		h.ew.write(w, r, http.StatusBadRequest, msgBadRequest+" - invalid task id")
		return 0, false
	}
	return id, true
}

// statusFilter reads the optional ?status= query parameter.
func (h *taskHandlers) statusFilter(w http.ResponseWriter, r *http.Request) (*models.TaskStatus, bool) {
	raw := r.URL.Query().Get("status")
	if raw == "" {
		return nil, true
	}
	st, err := models.ParseTaskStatus(raw)
	if err != nil {
		h.ew.write(w, r, http.StatusBadRequest, fmt.Sprintf("%s - %v", msgBadRequest, err))
		return nil, false
	}
	return &st, true
}
