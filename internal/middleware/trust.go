package middleware

import (
	"net/http"
	"time"

	"github.com/terraconstructs/taskgate/internal/auth"
)

// MsgInvalidPrincipal is returned when the principal id header is not numeric.
const MsgInvalidPrincipal = "Bad Request - Invalid principal id"

// TrustedIdentity is the internal-service counterpart of the edge verifier.
// It reads the trust headers verbatim, without any signature check, and puts
// the identity on the request context. Requests without a principal id get
// the structured 401 body.
//
// Internal services are only reachable through the edge, which strips and
// re-emits these headers; that network isolation is what makes them trustworthy.
func TrustedIdentity(now func() time.Time) func(http.Handler) http.Handler {
	if now == nil {
		now = time.Now
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, ok := auth.IdentityFromHeaders(r.Header)
			if !ok {
				WriteError(w, r, http.StatusUnauthorized, MsgUnauthenticated, now())
				return
			}
			if _, err := identity.ID(); err != nil {
				WriteError(w, r, http.StatusBadRequest, MsgInvalidPrincipal, now())
				return
			}
			next.ServeHTTP(w, r.WithContext(auth.WithIdentity(r.Context(), identity)))
		})
	}
}
