package auth

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIdentity_HeadersRoundTrip(t *testing.T) {
	h := http.Header{}
	Identity{PrincipalID: "12", Roles: NewRoleSet(RoleUser, RoleAdmin)}.Apply(h)

	assert.Equal(t, "12", h.Get(HeaderUserID))
	assert.Equal(t, "ROLE_ADMIN,ROLE_USER", h.Get(HeaderAuthorities))

	id, ok := IdentityFromHeaders(h)
	require.True(t, ok)
	assert.Equal(t, "12", id.PrincipalID)
	assert.True(t, id.Roles.Has(RoleAdmin))

	n, err := id.ID()
	require.NoError(t, err)
	assert.Equal(t, int64(12), n)
}

func TestIdentityFromHeaders_Missing(t *testing.T) {
	_, ok := IdentityFromHeaders(http.Header{})
	assert.False(t, ok)

	h := http.Header{}
	h.Set(HeaderUserID, "5")
	id, ok := IdentityFromHeaders(h)
	require.True(t, ok)
	assert.Equal(t, 0, id.Roles.Len(), "empty authorities header is the empty role set")
}

func TestStripTrustHeaders(t *testing.T) {
	h := http.Header{}
	h.Set(HeaderUserID, "1")
	h.Set(HeaderAuthorities, "ROLE_ADMIN")
	h.Set("Accept", "application/json")

	StripTrustHeaders(h)
	assert.Empty(t, h.Get(HeaderUserID))
	assert.Empty(t, h.Get(HeaderAuthorities))
	assert.Equal(t, "application/json", h.Get("Accept"))
}

func TestIdentityContext(t *testing.T) {
	_, ok := IdentityFromContext(context.Background())
	assert.False(t, ok)

	ctx := WithIdentity(context.Background(), Identity{PrincipalID: "3"})
	id, ok := IdentityFromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, "3", id.PrincipalID)
}

func TestBearerToken(t *testing.T) {
	tests := []struct {
		header  string
		want    string
		wantErr bool
	}{
		{"Bearer abc.def.ghi", "abc.def.ghi", false},
		{"bearer abc", "abc", false},
		{"Bearer   abc  ", "abc", false},
		{"", "", true},
		{"Bearer ", "", true},
		{"Basic dXNlcjpwYXNz", "", true},
		{"abc.def.ghi", "", true},
	}
	for _, tt := range tests {
		got, err := BearerToken(tt.header)
		if tt.wantErr {
			assert.ErrorIs(t, err, ErrMissingCredential, "header %q", tt.header)
			continue
		}
		require.NoError(t, err, "header %q", tt.header)
		assert.Equal(t, tt.want, got)
	}
}
