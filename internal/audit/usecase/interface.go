// Package usecase implements the durable privacy audit trail.
package usecase

import (
	"context"

	auditDomain "github.com/allisson/trustcore/internal/audit/domain"
)

// PrivacyEventRepository defines persistence operations for privacy events.
type PrivacyEventRepository interface {
	// Create inserts a new privacy event.
	Create(ctx context.Context, event *auditDomain.PrivacyEvent) error

	// ListByResource retrieves events for a resource, newest first.
	ListByResource(ctx context.Context, resourceType, resourceID string, offset, limit int) ([]*auditDomain.PrivacyEvent, error)
}

// AuditLogger records privacy events durably. Log returns only after the
// event is persisted; callers may treat a nil error as proof the trail holds
// the event. There is no fire-and-forget path.
type AuditLogger interface {
	// Log signs and persists one privacy event. The metadata parameter is
	// optional and can be nil.
	Log(
		ctx context.Context,
		actorID, actorEmail, actorRole string,
		action auditDomain.PrivacyAction,
		resourceType, resourceID string,
		metadata map[string]any,
	) error

	// ListByResource retrieves the audit trail for a resource, newest first,
	// verifying each event's signature.
	ListByResource(ctx context.Context, resourceType, resourceID string, offset, limit int) ([]*auditDomain.PrivacyEvent, error)
}
