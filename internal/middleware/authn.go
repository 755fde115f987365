package middleware

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/terraconstructs/taskgate/internal/auth"
	"github.com/terraconstructs/taskgate/internal/policy"
	"github.com/terraconstructs/taskgate/internal/telemetry"
)

// Verification outcomes, used as log fields and metric attributes.
const (
	OutcomeAuthenticated      = "authenticated"
	OutcomePreflight          = "preflight"
	OutcomePublic             = "public"
	OutcomeMissingCredential  = "missing_credential"
	OutcomeMalformed          = "malformed"
	OutcomeSignatureInvalid   = "signature_invalid"
	OutcomeExpired            = "expired"
	OutcomeMissingPrincipalID = "missing_principal_id"
)

// EdgeDependencies bundles the collaborators of the edge verification filter.
type EdgeDependencies struct {
	Codec   *auth.Codec
	Policy  *policy.Table
	Logger  *zap.Logger
	Metrics *telemetry.AuthMetrics
}

// NewEdgeVerifier returns the edge verification filter.
//
// The filter never writes a response. A request carrying a valid token
// leaves with the trust headers set and the identity on its context; any
// other request leaves with neither, and the authorization stage decides.
func NewEdgeVerifier(deps EdgeDependencies) (func(http.Handler) http.Handler, error) {
	if deps.Codec == nil {
		return nil, errors.New("edge verifier requires token codec")
	}
	if deps.Policy == nil {
		return nil, errors.New("edge verifier requires policy table")
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			outcome, identity := verify(deps, r)
			deps.Metrics.RecordVerification(r.Context(), outcome)

			if outcome != OutcomeAuthenticated {
				if outcome != OutcomePreflight && outcome != OutcomePublic {
					logger.Debug("no identity established",
						zap.String("outcome", outcome),
						zap.String("method", r.Method),
						zap.String("path", r.URL.Path),
					)
				}
				next.ServeHTTP(w, r)
				return
			}

			r = r.WithContext(auth.WithIdentity(r.Context(), identity))
			identity.Apply(r.Header)
			next.ServeHTTP(w, r)
		})
	}, nil
}

func verify(deps EdgeDependencies, r *http.Request) (string, auth.Identity) {
	if r.Method == http.MethodOptions {
		return OutcomePreflight, auth.Identity{}
	}
	if deps.Policy.IsPublic(r.URL.Path) {
		return OutcomePublic, auth.Identity{}
	}

	token, err := auth.BearerToken(r.Header.Get("Authorization"))
	if err != nil {
		return OutcomeMissingCredential, auth.Identity{}
	}

	claims, err := deps.Codec.Parse(token)
	switch {
	case errors.Is(err, auth.ErrExpired):
		return OutcomeExpired, auth.Identity{}
	case errors.Is(err, auth.ErrSignatureInvalid):
		return OutcomeSignatureInvalid, auth.Identity{}
	case err != nil:
		return OutcomeMalformed, auth.Identity{}
	}

	// Tokens minted without a principal id never grant identity.
	if claims.PrincipalID == "" {
		return OutcomeMissingPrincipalID, auth.Identity{}
	}
	return OutcomeAuthenticated, auth.IdentityFromClaims(claims)
}

// StripTrustHeaders removes client-supplied trust headers so that only the
// edge verifier can set them.
func StripTrustHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth.StripTrustHeaders(r.Header)
		next.ServeHTTP(w, r)
	})
}
