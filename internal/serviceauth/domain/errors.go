package domain

import (
	"github.com/allisson/trustcore/internal/errors"
)

// Service-to-service authentication error definitions.
//
// Every verification failure maps to a rejected request at the transport
// boundary; there is no anonymous downgrade path. All sentinels wrap
// errors.ErrUnauthorized so the HTTP layer renders them as 401.
var (
	// ErrMissingToken indicates no bearer token was presented.
	ErrMissingToken = errors.Wrap(errors.ErrUnauthorized, "missing service token")

	// ErrUnknownIssuer indicates the token issuer is not in the configured
	// allow-list, or no public key could be resolved for it.
	ErrUnknownIssuer = errors.Wrap(errors.ErrUnauthorized, "unknown token issuer")

	// ErrSignatureInvalid indicates the RS256 signature did not verify against
	// the issuer's public key, or the token is structurally invalid.
	ErrSignatureInvalid = errors.Wrap(errors.ErrUnauthorized, "invalid token signature")

	// ErrAudienceMismatch indicates the token was minted for a different
	// service: its aud claim does not equal the verifier's own service ID.
	ErrAudienceMismatch = errors.Wrap(errors.ErrUnauthorized, "token audience mismatch")

	// ErrIssuerMismatch indicates the token's issuer differs from the issuer
	// the caller explicitly expected.
	ErrIssuerMismatch = errors.Wrap(errors.ErrUnauthorized, "token issuer mismatch")

	// ErrEnvironmentMismatch indicates the token was issued in a different
	// deployment environment. Blocks staging-issued tokens from being replayed
	// against production even with a valid signature.
	ErrEnvironmentMismatch = errors.Wrap(errors.ErrUnauthorized, "token environment mismatch")

	// ErrTokenExpired indicates the token's exp claim is in the past.
	ErrTokenExpired = errors.Wrap(errors.ErrUnauthorized, "service token expired")

	// ErrMissingKeyPair indicates no RSA key pair was supplied at construction.
	// Key generation only happens behind the explicit development flag; in any
	// other mode missing keys are fatal.
	ErrMissingKeyPair = errors.New("service auth key pair is not configured")

	// ErrInvalidKeyPEM indicates the configured key material could not be parsed.
	ErrInvalidKeyPEM = errors.New("invalid RSA key PEM")
)
