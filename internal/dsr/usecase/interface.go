// Package usecase implements the data subject request orchestrator: export
// and erasure of a user's data across the stores that hold it.
package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	dsrDomain "github.com/allisson/trustcore/internal/dsr/domain"
)

// DeletionRequestRepository defines persistence operations for the deletion queue.
type DeletionRequestRepository interface {
	// Create inserts a new deletion request row.
	Create(ctx context.Context, request *dsrDomain.DeletionRequest) error

	// GetByID retrieves a deletion request, ErrRequestNotFound if absent.
	GetByID(ctx context.Context, id uuid.UUID) (*dsrDomain.DeletionRequest, error)

	// ListPending retrieves all PENDING requests, oldest schedule first.
	ListPending(ctx context.Context) ([]*dsrDomain.DeletionRequest, error)

	// ListDue retrieves PENDING requests whose grace period elapsed at the
	// given time.
	ListDue(ctx context.Context, at time.Time) ([]*dsrDomain.DeletionRequest, error)

	// ClaimForExecution atomically moves a PENDING or FAILED request to
	// IN_PROGRESS, returning false when the row was not claimable. The
	// conditional update is the orchestrator's mutex against double execution.
	ClaimForExecution(ctx context.Context, id uuid.UUID) (bool, error)

	// Finalize records the outcome of an execution attempt.
	Finalize(ctx context.Context, request *dsrDomain.DeletionRequest) error

	// Cancel atomically moves a PENDING request to CANCELLED, returning
	// false when the row was not PENDING.
	Cancel(ctx context.Context, id uuid.UUID) (bool, error)
}

// UserDataRepository defines the data stores export and erasure operate on.
type UserDataRepository interface {
	// GetUser retrieves the profile row, ErrUserNotFound if absent.
	GetUser(ctx context.Context, userID string) (*dsrDomain.User, error)

	// GetEncryptedPII retrieves the encrypted PII row, (nil, nil) if absent.
	GetEncryptedPII(ctx context.Context, userID string) (*dsrDomain.EncryptedUserPII, error)

	// GetExternalIDMappings retrieves the user's external ID mappings.
	GetExternalIDMappings(ctx context.Context, userID string) ([]*dsrDomain.ExternalIDMapping, error)

	// DeleteEncryptedPII removes the encrypted PII row, delete-if-exists.
	DeleteEncryptedPII(ctx context.Context, userID string) error

	// DeleteExternalIDMappings removes all external ID mappings, delete-if-exists.
	DeleteExternalIDMappings(ctx context.Context, userID string) error

	// AnonymizeUser overwrites the profile's identifying columns with
	// deterministic placeholders, ErrUserNotFound if the row is absent.
	AnonymizeUser(ctx context.Context, userID string) error
}

// Actor identifies who triggered a privileged data subject operation, for
// the audit trail.
type Actor struct {
	ID    string
	Email string
	Role  string
}

// RequestDeletionInput carries the parameters for queueing an erasure request.
type RequestDeletionInput struct {
	UserID      string
	RequestedBy string
	Reason      string
}

// DSROrchestrator coordinates export and erasure of a user's data.
//
// Every operation emits a privacy audit event before returning; audit
// persistence failures fail the operation.
type DSROrchestrator interface {
	// ExportUserData aggregates the user's profile, still-encrypted PII, and
	// external ID mappings into an ephemeral bundle. Nothing is mutated.
	ExportUserData(ctx context.Context, userID string, requestedBy Actor) (*dsrDomain.ExportBundle, error)

	// RequestDeletion queues an erasure request with the mandatory grace
	// period and returns its ID.
	RequestDeletion(ctx context.Context, input *RequestDeletionInput, actor Actor) (uuid.UUID, error)

	// ExecuteDeletion claims the request and runs the erasure steps,
	// tolerating per-step failures. Returns the attempt's result; the
	// request ends COMPLETED or FAILED.
	ExecuteDeletion(ctx context.Context, deletionID uuid.UUID, actor Actor) (*dsrDomain.DeletionResult, error)

	// CancelDeletion withdraws a PENDING request.
	// Returns ErrInvalidStateForCancel in any other state.
	CancelDeletion(ctx context.Context, deletionID uuid.UUID, actor Actor) error

	// GetPendingDeletions lists all PENDING requests.
	GetPendingDeletions(ctx context.Context) ([]*dsrDomain.DeletionRequest, error)

	// GetDeletionStatus retrieves one request by ID.
	GetDeletionStatus(ctx context.Context, deletionID uuid.UUID) (*dsrDomain.DeletionRequest, error)
}
