package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/terraconstructs/taskgate/internal/middleware"
	"github.com/terraconstructs/taskgate/internal/services/iam"
	"github.com/terraconstructs/taskgate/internal/services/submissions"
	"github.com/terraconstructs/taskgate/internal/services/tasks"
)

// Messages for failures outside the authentication contract.
const (
	msgBadRequest  = "Bad Request"
	msgNotFound    = "Not Found"
	msgConflict    = "Conflict"
	msgUnavailable = "Service Unavailable"
	msgBadGateway  = "Bad Gateway - Upstream unavailable"
	msgInternal    = "Internal Server Error"
)

// NewH2CHandler serves h over HTTP/2 cleartext as well as HTTP/1.1.
func NewH2CHandler(h http.Handler) http.Handler {
	return h2c.NewHandler(h, &http2.Server{})
}

func healthHandler(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// mountOps serves the liveness probe and, when a handler is given, /metrics.
func mountOps(r chi.Router, metrics http.Handler) {
	r.Get("/health", healthHandler)
	if metrics != nil {
		r.Handle("/metrics", metrics)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	return dec.Decode(dst)
}

// errorWriter renders service errors as the structured failure body.
type errorWriter struct {
	logger *zap.Logger
	now    func() time.Time
}

func newErrorWriter(logger *zap.Logger, now func() time.Time) errorWriter {
	if logger == nil {
		logger = zap.NewNop()
	}
	if now == nil {
		now = time.Now
	}
	return errorWriter{logger: logger, now: now}
}

func (e errorWriter) write(w http.ResponseWriter, r *http.Request, status int, msg string) {
	middleware.WriteError(w, r, status, msg, e.now())
}

// fail maps a service error onto a status code.
func (e errorWriter) fail(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, tasks.ErrTaskNotFound),
		errors.Is(err, submissions.ErrTaskNotFound),
		errors.Is(err, submissions.ErrSubmissionNotFound),
		errors.Is(err, iam.ErrPrincipalNotFound):
		e.write(w, r, http.StatusNotFound, msgNotFound+" - "+err.Error())
	case errors.Is(err, tasks.ErrInvalidTask),
		errors.Is(err, submissions.ErrInvalidSubmission),
		errors.Is(err, iam.ErrInvalidInput),
		errors.Is(err, iam.ErrInvalidRole):
		e.write(w, r, http.StatusBadRequest, msgBadRequest+" - "+err.Error())
	case errors.Is(err, iam.ErrIdentityTaken):
		e.write(w, r, http.StatusConflict, msgConflict+" - "+err.Error())
	case errors.Is(err, submissions.ErrTaskRejected):
		e.write(w, r, http.StatusForbidden, middleware.MsgForbidden)
	case errors.Is(err, iam.ErrDependencyUnavailable),
		errors.Is(err, submissions.ErrDependencyUnavailable):
		e.logger.Warn("dependency unavailable", zap.String("path", r.URL.Path), zap.Error(err))
		e.write(w, r, http.StatusServiceUnavailable, msgUnavailable)
	default:
		e.logger.Error("request failed", zap.String("path", r.URL.Path), zap.Error(err))
		e.write(w, r, http.StatusInternalServerError, msgInternal)
	}
}

// int64Param parses a chi URL parameter.
func int64Param(r *http.Request, name string) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, name), 10, 64)
}
