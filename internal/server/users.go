package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/terraconstructs/taskgate/internal/auth"
	"github.com/terraconstructs/taskgate/internal/db/models"
	"github.com/terraconstructs/taskgate/internal/middleware"
	"github.com/terraconstructs/taskgate/internal/rbac"
	"github.com/terraconstructs/taskgate/internal/services/iam"
	"github.com/terraconstructs/taskgate/internal/telemetry"
)

const (
	msgRegistered         = "Register Success"
	msgLoggedIn           = "Login Success"
	msgInvalidCredentials = "Invalid username or password"
)

// credentialIssuer is the contract the users router needs from the issuer.
type credentialIssuer interface {
	Signup(ctx context.Context, req iam.SignupRequest) (string, error)
	Signin(ctx context.Context, email, password string) (string, error)
	Profile(ctx context.Context, principalID int64) (*models.User, error)
	ListPrincipals(ctx context.Context) ([]models.User, error)
}

var _ credentialIssuer = (*iam.Issuer)(nil)

// AuthResponse is the body returned by signup and signin.
type AuthResponse struct {
	JWT     string `json:"jwt"`
	Message string `json:"message"`
	Status  bool   `json:"status"`
}

type signupRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"fullName"`
	Role     string `json:"role"`
}

type signinRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// UsersOptions configures the user service router.
type UsersOptions struct {
	Issuer     credentialIssuer
	Authorizer *rbac.Authorizer
	Logger     *zap.Logger
	Metrics    *telemetry.ServerMetrics
	// MetricsHandler, when set, is served at /metrics.
	MetricsHandler http.Handler
	Now            func() time.Time
}

// NewUsersRouter serves token issuance and the principal endpoints.
func NewUsersRouter(opts UsersOptions) (chi.Router, error) {
	if opts.Issuer == nil {
		return nil, errors.New("users router requires an issuer")
	}
	if opts.Authorizer == nil {
		return nil, errors.New("users router requires an authorizer")
	}
	ew := newErrorWriter(opts.Logger, opts.Now)

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(middleware.RequestLogger(ew.logger, opts.Metrics))
	r.Use(chimiddleware.Recoverer)

	mountOps(r, opts.MetricsHandler)
	r.Post("/auth/signup", handleSignup(opts.Issuer, ew))
	r.Post("/auth/signin", handleSignin(opts.Issuer, ew))

	r.Group(func(r chi.Router) {
		r.Use(middleware.TrustedIdentity(ew.now))
		r.With(opts.Authorizer.Require(rbac.UserProfile)).Get("/api/users/profile", handleProfile(opts.Issuer, ew))
		listUsers := opts.Authorizer.Require(rbac.UserList)(handleListUsers(opts.Issuer, ew))
		r.Method(http.MethodGet, "/api/users", listUsers)
		// legacy path of the user list
		r.Method(http.MethodGet, "/api/users/users", listUsers)
	})
	return r, nil
}

func handleSignup(issuer credentialIssuer, ew errorWriter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req signupRequest
		if err := decodeJSON(w, r, &req); err != nil {
			ew.write(w, r, http.StatusBadRequest, msgBadRequest+" - invalid JSON body")
			return
		}
		token, err := issuer.Signup(r.Context(), iam.SignupRequest{
			Email:    req.Email,
			Password: req.Password,
			FullName: req.FullName,
			Role:     req.Role,
		})
		if err != nil {
			ew.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, AuthResponse{JWT: token, Message: msgRegistered, Status: true})
	}
}

func handleSignin(issuer credentialIssuer, ew errorWriter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req signinRequest
		if err := decodeJSON(w, r, &req); err != nil {
			ew.write(w, r, http.StatusBadRequest, msgBadRequest+" - invalid JSON body")
			return
		}
		token, err := issuer.Signin(r.Context(), req.Email, req.Password)
		if err != nil {
			if errors.Is(err, iam.ErrInvalidCredentials) {
				writeJSON(w, http.StatusUnauthorized, AuthResponse{Message: msgInvalidCredentials})
				return
			}
			ew.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, AuthResponse{JWT: token, Message: msgLoggedIn, Status: true})
	}
}

func handleProfile(issuer credentialIssuer, ew errorWriter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity, _ := auth.IdentityFromContext(r.Context())
		id, err := identity.ID()
		if err != nil {
			ew.write(w, r, http.StatusBadRequest, middleware.MsgInvalidPrincipal)
			return
		}
		user, err := issuer.Profile(r.Context(), id)
		if err != nil {
			ew.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, user)
	}
}

func handleListUsers(issuer credentialIssuer, ew errorWriter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		users, err := issuer.ListPrincipals(r.Context())
		if err != nil {
			ew.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, users)
	}
}
