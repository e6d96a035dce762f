// Package service implements signing and verification of short-lived RS256
// service tokens plus the public key resolution used during verification.
package service

import (
	"context"
	"crypto/rsa"

	serviceAuthDomain "github.com/allisson/trustcore/internal/serviceauth/domain"
)

// TokenSigner mints outbound service tokens. Implemented by Manager and
// consumed by the authenticated HTTP client so transports do not depend on
// the full manager surface.
type TokenSigner interface {
	// SignServiceToken mints a token addressed to targetServiceID.
	SignServiceToken(targetServiceID string) (string, error)

	// Identity returns the signer's own service identity.
	Identity() serviceAuthDomain.ServiceIdentity
}

// TokenVerifier validates inbound service tokens. Implemented by Manager and
// consumed by the request-gate middleware.
type TokenVerifier interface {
	// VerifyServiceToken validates the token and returns its claims. Pass a
	// non-empty expectedIssuer to additionally pin the issuer. Never returns
	// partially valid claims: any check failure yields a nil result.
	VerifyServiceToken(ctx context.Context, token, expectedIssuer string) (*serviceAuthDomain.TokenClaims, error)
}

// PublicKeyProvider resolves peer service public keys by service ID.
//
// The manager consults its cache first and falls back to the provider on a
// miss; fetched keys are immutable once published, so last-write-wins cache
// fills are safe.
type PublicKeyProvider interface {
	PublicKey(ctx context.Context, serviceID string) (*rsa.PublicKey, error)
}
