// Package iam issues credential tokens.
//
// The Issuer owns signup and signin. It is the only component that talks to
// the credential store and the only one that mints tokens; everything past
// the edge sees just the principal id and role set carried in trust headers.
//
// Failure contract:
//
//   - ErrIdentityTaken: signup for an email that is already registered
//   - ErrInvalidCredentials: signin with an unknown email or a wrong password;
//     the two cases are indistinguishable in error and in timing
//   - ErrDependencyUnavailable: the credential store failed or exceeded its
//     timeout; the cause is logged, never returned to callers
//
// Request Flow:
//
//	POST /auth/signin → Issuer.Signin → UserRepository.GetByEmail (bounded)
//	       ↓
//	   bcrypt compare → Codec.Mint(id, email, current role) → token
package iam
