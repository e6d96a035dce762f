// Package http provides the HTTP surface of service-to-service authentication:
// the request-gate middleware, the context helpers for the calling service's
// verified identity, and the authenticated outbound client.
package http

import (
	"context"

	serviceAuthDomain "github.com/allisson/trustcore/internal/serviceauth/domain"
)

// callerKey is a context key type for storing the verified caller claims.
type callerKey struct{}

// WithCaller stores the verified caller claims in the context.
// This is called by the request-gate middleware after successful verification.
func WithCaller(ctx context.Context, claims *serviceAuthDomain.TokenClaims) context.Context {
	return context.WithValue(ctx, callerKey{}, claims)
}

// GetCaller retrieves the verified caller claims from the context.
// Returns (claims, true) if a verified caller is present, or (nil, false)
// if the request did not pass through the request-gate middleware.
func GetCaller(ctx context.Context) (*serviceAuthDomain.TokenClaims, bool) {
	claims, ok := ctx.Value(callerKey{}).(*serviceAuthDomain.TokenClaims)
	return claims, ok
}
