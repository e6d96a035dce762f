// Package service provides tamper-evidence for the privacy audit trail.
package service

import (
	auditDomain "github.com/allisson/trustcore/internal/audit/domain"
)

// EventSigner computes and verifies tamper-evidence signatures over privacy
// events using a caller-supplied signing secret.
type EventSigner interface {
	// Sign generates an HMAC-SHA256 signature for the event content.
	// Returns a 32-byte signature or an error if signing fails.
	Sign(secret []byte, event *auditDomain.PrivacyEvent) ([]byte, error)

	// Verify checks the event's stored signature against its content.
	// Returns nil if valid, ErrSignatureInvalid if tampered.
	Verify(secret []byte, event *auditDomain.PrivacyEvent) error
}
