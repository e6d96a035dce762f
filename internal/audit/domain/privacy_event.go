// Package domain defines the privacy audit trail entities.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// PrivacyAction identifies the privileged operation an audit event records.
type PrivacyAction string

// Privacy actions emitted by the DSR orchestrator.
const (
	ActionExportData      PrivacyAction = "EXPORT_DATA"
	ActionRequestDeletion PrivacyAction = "REQUEST_DELETION"
	ActionConfirmDeletion PrivacyAction = "CONFIRM_DELETION"
	ActionCancelDeletion  PrivacyAction = "CANCEL_DELETION"
)

// PrivacyEvent records who did what to whose data, for GDPR accountability.
// Every privileged data-subject operation produces exactly one event, and the
// event is persisted before the operation's caller gets a response.
//
// Signature is an HMAC-SHA256 over the canonical event content, computed at
// write time so later tampering with stored events is detectable.
type PrivacyEvent struct {
	ID           uuid.UUID
	ActorID      string
	ActorEmail   string
	ActorRole    string
	Action       PrivacyAction
	ResourceType string
	ResourceID   string
	Metadata     map[string]any
	Signature    []byte
	CreatedAt    time.Time
}
