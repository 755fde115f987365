package auth

import "errors"

// Token errors. The edge collapses all of them into "no identity"; they stay
// distinct so logs and metrics can tell an expired token from a forged one.
var (
	ErrMalformed         = errors.New("token malformed")
	ErrSignatureInvalid  = errors.New("token signature invalid")
	ErrExpired           = errors.New("token expired")
	ErrMissingCredential = errors.New("bearer credential missing")
)

// ErrWeakSigningKey is returned by NewCodec when the HMAC key is too short.
var ErrWeakSigningKey = errors.New("signing key must be at least 32 bytes")
