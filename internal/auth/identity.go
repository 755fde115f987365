package auth

import (
	"context"
	"net/http"
	"strconv"
	"strings"
)

// Internal trust headers emitted by the edge and read verbatim by internal services.
const (
	HeaderUserID      = "X-User-Id"
	HeaderAuthorities = "X-User-Authorities"
)

// Identity is the authenticated subject as seen past the edge: a principal id
// and the roles it holds. It is the only shape of authenticated subject.
type Identity struct {
	PrincipalID string
	Roles       RoleSet
}

// IdentityFromClaims projects verified token claims onto an Identity.
func IdentityFromClaims(c *Claims) Identity {
	return Identity{PrincipalID: c.PrincipalID, Roles: c.Roles}
}

// ID parses PrincipalID as the numeric principal key.
func (i Identity) ID() (int64, error) {
	return strconv.ParseInt(i.PrincipalID, 10, 64)
}

// Apply writes the identity onto h as trust headers, replacing any existing values.
func (i Identity) Apply(h http.Header) {
	h.Set(HeaderUserID, i.PrincipalID)
	h.Set(HeaderAuthorities, i.Roles.String())
}

// IdentityFromHeaders reads trust headers. ok is false when the principal id
// header is missing or blank. An empty authorities header is the empty role set.
func IdentityFromHeaders(h http.Header) (Identity, bool) {
	id := strings.TrimSpace(h.Get(HeaderUserID))
	if id == "" {
		return Identity{}, false
	}
	return Identity{PrincipalID: id, Roles: ParseRoleSet(h.Get(HeaderAuthorities))}, true
}

// StripTrustHeaders deletes trust headers from h.
func StripTrustHeaders(h http.Header) {
	h.Del(HeaderUserID)
	h.Del(HeaderAuthorities)
}

type identityContextKey struct{}

// WithIdentity stores the identity on the context for in-process policy code.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityContextKey{}, id)
}

// IdentityFromContext retrieves the identity stored by WithIdentity.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityContextKey{}).(Identity)
	return id, ok
}

// BearerToken extracts the token from an "Authorization: Bearer <token>" value.
func BearerToken(header string) (string, error) {
	const prefix = "bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", ErrMissingCredential
	}
	token := strings.TrimSpace(header[len(prefix):])
	if token == "" {
		return "", ErrMissingCredential
	}
	return token, nil
}
