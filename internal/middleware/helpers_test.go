package middleware

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

// craftLegacyToken signs a token with the fixture key that has no userId claim.
func craftLegacyToken(t *testing.T, f *fixture) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"email":       "legacy@example.com",
		"authorities": "ROLE_ADMIN",
		"exp":         f.clock.Add(time.Hour).Unix(),
	}).SignedString(testKey)
	require.NoError(t, err)
	return tok
}
