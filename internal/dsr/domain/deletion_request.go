// Package domain defines the data subject request entities: deletion
// requests, export bundles, and the user data shapes erasure operates on.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// DeletionStatus is the lifecycle state of a deletion request.
type DeletionStatus string

// Deletion request lifecycle states. A request is created as Pending,
// claimed into InProgress by the executor, and ends in Completed or Failed.
// Pending requests may also move to Cancelled during the grace period.
const (
	DeletionStatusPending    DeletionStatus = "PENDING"
	DeletionStatusInProgress DeletionStatus = "IN_PROGRESS"
	DeletionStatusCompleted  DeletionStatus = "COMPLETED"
	DeletionStatusFailed     DeletionStatus = "FAILED"
	DeletionStatusCancelled  DeletionStatus = "CANCELLED"
)

// GracePeriod is the mandatory waiting window between requesting erasure and
// executing it, during which the request can be withdrawn. It is a fixed
// design constant, not caller-configurable.
const GracePeriod = 30 * 24 * time.Hour

// Data sources a deletion touches. SystemsDeleted and verification hashes
// are built from these names.
const (
	SourceEncryptedPII       = "encrypted_user_pii"
	SourceExternalIDMappings = "external_id_mappings"
	SourceUsersAnonymized    = "users_anonymized"
)

// DeletionRequest is a queued GDPR erasure request. The orchestrator owns
// its full lifecycle; nothing else writes these rows.
type DeletionRequest struct {
	ID               uuid.UUID
	UserID           string
	RequestedBy      string
	Reason           string
	Status           DeletionStatus
	ScheduledFor     time.Time
	CompletedAt      *time.Time
	SystemsDeleted   []string
	VerificationHash string
	RetryCount       int
	ErrorMessage     string
	CreatedAt        time.Time
}

// Due reports whether the grace period has elapsed at the given time.
func (d *DeletionRequest) Due(at time.Time) bool {
	return !at.Before(d.ScheduledFor)
}

// DeletionResult summarizes one execution attempt of a deletion request.
// Errors holds one entry per failed step; the result is Completed iff it is
// empty.
type DeletionResult struct {
	DeletionID       uuid.UUID
	UserID           string
	Status           DeletionStatus
	SystemsDeleted   []string
	Errors           []string
	VerificationHash string
	CompletedAt      time.Time
}
