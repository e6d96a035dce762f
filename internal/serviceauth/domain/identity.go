// Package domain defines the core domain models for mutual service-to-service
// authentication with short-lived RS256 tokens.
package domain

import (
	"github.com/golang-jwt/jwt/v5"
)

// ServiceIdentity identifies the running service. It is static per process and
// stamped into every token the service mints.
//
// Fields:
//   - ServiceID: Unique service name (e.g., "billing-api"); doubles as the
//     key ID (kid) under which peers look up this service's public key
//   - ServiceType: Coarse classification (e.g., "api", "worker")
//   - Environment: Deployment environment (e.g., "staging", "production");
//     verified on every inbound token to block cross-environment replay
type ServiceIdentity struct {
	ServiceID   string
	ServiceType string
	Environment string
}

// TokenClaims is the service token payload.
//
// The wire shape is exactly {serviceId, serviceType, environment, iss, aud,
// iat, exp, jti}: iss is the calling service's ID, aud the target service's
// ID, and jti a per-token UUID nonce. jti is minted for replay tracing but is
// not checked against a nonce store; the short TTL bounds the replay window.
type TokenClaims struct {
	ServiceID   string `json:"serviceId"`
	ServiceType string `json:"serviceType"`
	Environment string `json:"environment"`
	jwt.RegisteredClaims
}
