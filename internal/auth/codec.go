package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultTokenTTL is the fixed validity window of an issued token.
const DefaultTokenTTL = 24 * time.Hour

// MinSigningKeyLen is the minimum HMAC key length accepted by NewCodec.
const MinSigningKeyLen = 32

// Claims is the verified content of a credential token.
type Claims struct {
	// Identity is the subject identity (the principal's email).
	Identity string
	// PrincipalID is the decimal principal id. Empty for tokens minted without one.
	PrincipalID string
	Roles       RoleSet
	IssuedAt    time.Time
	ExpiresAt   time.Time
}

// tokenClaims is the JWT payload layout.
type tokenClaims struct {
	Email       string `json:"email"`
	UserID      string `json:"userId,omitempty"`
	Authorities string `json:"authorities"`
	jwt.RegisteredClaims
}

// CodecOption customizes a Codec.
type CodecOption func(*Codec)

// WithTTL overrides DefaultTokenTTL.
func WithTTL(ttl time.Duration) CodecOption {
	return func(c *Codec) { c.ttl = ttl }
}

// WithClock replaces time.Now for minting and expiry checks.
func WithClock(now func() time.Time) CodecOption {
	return func(c *Codec) { c.now = now }
}

// Codec mints and verifies HS256 credential tokens with one shared key.
// It holds no mutable state and is safe for concurrent use.
type Codec struct {
	key    []byte
	ttl    time.Duration
	now    func() time.Time
	parser *jwt.Parser
}

// NewCodec returns a Codec for key. The key is copied.
func NewCodec(key []byte, opts ...CodecOption) (*Codec, error) {
	if len(key) < MinSigningKeyLen {
		return nil, ErrWeakSigningKey
	}
	c := &Codec{
		key: append([]byte(nil), key...),
		ttl: DefaultTokenTTL,
		now: time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.ttl <= 0 {
		return nil, fmt.Errorf("token ttl must be positive, got %s", c.ttl)
	}
	c.parser = jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.now),
	)
	return c, nil
}

// TTL returns the validity window applied by Mint.
func (c *Codec) TTL() time.Duration { return c.ttl }

// Mint signs a token for the principal. The output only varies with the clock.
func (c *Codec) Mint(principalID int64, identity string, roles RoleSet) (string, error) {
	issued := c.now()
	claims := tokenClaims{
		Email:       identity,
		UserID:      strconv.FormatInt(principalID, 10),
		Authorities: roles.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   identity,
			IssuedAt:  jwt.NewNumericDate(issued),
			ExpiresAt: jwt.NewNumericDate(issued.Add(c.ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.key)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Parse verifies token and returns its claims. Errors are ErrMalformed,
// ErrSignatureInvalid or ErrExpired, each wrapping the underlying jwt error.
func (c *Codec) Parse(token string) (*Claims, error) {
	parsed := &tokenClaims{}
	_, err := c.parser.ParseWithClaims(token, parsed, c.keyFunc)
	if err != nil {
		return nil, classifyParseError(err)
	}

	identity := parsed.Email
	if identity == "" {
		identity = parsed.Subject
	}
	claims := &Claims{
		Identity:    identity,
		PrincipalID: parsed.UserID,
		Roles:       ParseRoleSet(parsed.Authorities),
	}
	if parsed.IssuedAt != nil {
		claims.IssuedAt = parsed.IssuedAt.Time
	}
	if parsed.ExpiresAt != nil {
		claims.ExpiresAt = parsed.ExpiresAt.Time
	}
	return claims, nil
}

func (c *Codec) keyFunc(t *jwt.Token) (interface{}, error) {
	if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
		return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
	}
	return c.key, nil
}

// classifyParseError maps jwt errors onto the token error taxonomy. Signature
// problems are checked before expiry because the parser verifies the
// signature first.
func classifyParseError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenMalformed):
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	case errors.Is(err, jwt.ErrTokenSignatureInvalid),
		errors.Is(err, jwt.ErrTokenUnverifiable):
		return fmt.Errorf("%w: %v", ErrSignatureInvalid, err)
	case errors.Is(err, jwt.ErrTokenExpired):
		return fmt.Errorf("%w: %v", ErrExpired, err)
	default:
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
}
