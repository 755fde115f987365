package iam

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/terraconstructs/taskgate/internal/auth"
	"github.com/terraconstructs/taskgate/internal/db/models"
	"github.com/terraconstructs/taskgate/internal/repository"
	"github.com/terraconstructs/taskgate/internal/telemetry"
)

const tracerName = "taskgate/services/iam"

var (
	ErrIdentityTaken         = errors.New("identity already registered")
	ErrInvalidCredentials    = errors.New("invalid username or password")
	ErrDependencyUnavailable = errors.New("credential store unavailable")
	ErrInvalidInput          = errors.New("invalid input")
	ErrInvalidRole           = errors.New("unknown role")
	ErrPrincipalNotFound     = errors.New("principal not found")
)

// DefaultDependencyTimeout bounds each credential-store call.
const DefaultDependencyTimeout = 5 * time.Second

// SignupRequest carries the fields of a registration.
type SignupRequest struct {
	Email    string
	Password string
	FullName string
	// Role is one of the known roles; empty means ROLE_USER.
	Role string
}

// Dependencies bundles the Issuer collaborators.
type Dependencies struct {
	Users   repository.UserRepository
	Codec   *auth.Codec
	Hasher  *auth.PasswordHasher
	Logger  *zap.Logger
	Metrics *telemetry.AuthMetrics
}

// Config holds Issuer settings.
type Config struct {
	DependencyTimeout time.Duration
}

// Issuer orchestrates signup and signin.
type Issuer struct {
	users   repository.UserRepository
	codec   *auth.Codec
	hasher  *auth.PasswordHasher
	logger  *zap.Logger
	metrics *telemetry.AuthMetrics
	timeout time.Duration
}

// NewIssuer validates deps and returns an Issuer.
func NewIssuer(deps Dependencies, cfg Config) (*Issuer, error) {
	if deps.Users == nil {
		return nil, errors.New("issuer requires user repository")
	}
	if deps.Codec == nil {
		return nil, errors.New("issuer requires token codec")
	}
	if deps.Hasher == nil {
		return nil, errors.New("issuer requires password hasher")
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := cfg.DependencyTimeout
	if timeout <= 0 {
		timeout = DefaultDependencyTimeout
	}
	return &Issuer{
		users:   deps.Users,
		codec:   deps.Codec,
		hasher:  deps.Hasher,
		logger:  logger,
		metrics: deps.Metrics,
		timeout: timeout,
	}, nil
}

// Signup registers a principal and returns a token carrying its assigned role.
func (i *Issuer) Signup(ctx context.Context, req SignupRequest) (token string, err error) {
	ctx, span := telemetry.StartSpan(ctx, tracerName, "iam.Signup", attribute.String("user.email", req.Email))
	defer func() {
		telemetry.RecordError(span, err)
		span.End()
		i.metrics.RecordIssuance(ctx, "signup", resultOf(err))
	}()

	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		return "", fmt.Errorf("%w: email and password are required", ErrInvalidInput)
	}
	if len(req.Password) > auth.MaxPasswordBytes {
		return "", fmt.Errorf("%w: password must be at most %d bytes", ErrInvalidInput, auth.MaxPasswordBytes)
	}
	role := auth.RoleUser
	if strings.TrimSpace(req.Role) != "" {
		role, err = auth.ParseRole(req.Role)
		if err != nil {
			return "", fmt.Errorf("%w: %q", ErrInvalidRole, req.Role)
		}
	}

	_, err = i.lookup(ctx, req.Email)
	switch {
	case err == nil:
		return "", ErrIdentityTaken
	case !errors.Is(err, repository.ErrNotFound):
		return "", err
	}

	hash, err := i.hasher.Hash(req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrPasswordTooLong) {
			return "", fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		return "", err
	}

	user := &models.User{
		Email:        req.Email,
		FullName:     req.FullName,
		Role:         string(role),
		PasswordHash: hash,
	}
	createCtx, cancel := context.WithTimeout(ctx, i.timeout)
	err = i.users.Create(createCtx, user)
	cancel()
	if err != nil {
		if errors.Is(err, repository.ErrAlreadyExists) {
			return "", ErrIdentityTaken
		}
		return "", i.unavailable("create user", err)
	}

	i.logger.Info("principal registered", zap.Int64("principal_id", user.ID), zap.String("role", user.Role))
	return i.codec.Mint(user.ID, user.Email, auth.NewRoleSet(role))
}

// Signin verifies the password and returns a token with the principal's
// current stored role and id.
func (i *Issuer) Signin(ctx context.Context, email, password string) (token string, err error) {
	ctx, span := telemetry.StartSpan(ctx, tracerName, "iam.Signin", attribute.String("user.email", email))
	defer func() {
		telemetry.RecordError(span, err)
		span.End()
		i.metrics.RecordIssuance(ctx, "signin", resultOf(err))
	}()

	user, err := i.lookup(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			i.hasher.VerifyMissing(password)
			return "", ErrInvalidCredentials
		}
		return "", err
	}
	if !i.hasher.Verify(user.PasswordHash, password) {
		return "", ErrInvalidCredentials
	}

	return i.codec.Mint(user.ID, user.Email, auth.ParseRoleSet(user.Role))
}

// Profile returns the stored principal record.
func (i *Issuer) Profile(ctx context.Context, principalID int64) (*models.User, error) {
	ctx, cancel := context.WithTimeout(ctx, i.timeout)
	defer cancel()

	user, err := i.users.GetByID(ctx, principalID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrPrincipalNotFound
		}
		return nil, i.unavailable("get user", err)
	}
	return user, nil
}

// ListPrincipals returns every registered principal.
func (i *Issuer) ListPrincipals(ctx context.Context) ([]models.User, error) {
	ctx, cancel := context.WithTimeout(ctx, i.timeout)
	defer cancel()

	users, err := i.users.List(ctx)
	if err != nil {
		return nil, i.unavailable("list users", err)
	}
	return users, nil
}

// lookup fetches by email under the dependency timeout. It returns the
// repository's ErrNotFound unchanged and maps every other failure to
// ErrDependencyUnavailable.
func (i *Issuer) lookup(ctx context.Context, email string) (*models.User, error) {
	ctx, cancel := context.WithTimeout(ctx, i.timeout)
	defer cancel()

	user, err := i.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, err
		}
		return nil, i.unavailable("get user by email", err)
	}
	return user, nil
}

func (i *Issuer) unavailable(op string, err error) error {
	i.logger.Error("credential store call failed", zap.String("op", op), zap.Error(err))
	return ErrDependencyUnavailable
}

func resultOf(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrIdentityTaken):
		return "identity_taken"
	case errors.Is(err, ErrInvalidCredentials):
		return "invalid_credentials"
	case errors.Is(err, ErrInvalidInput), errors.Is(err, ErrInvalidRole):
		return "invalid_input"
	case errors.Is(err, ErrDependencyUnavailable):
		return "dependency_unavailable"
	default:
		return "error"
	}
}
