package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	auditDomain "github.com/allisson/trustcore/internal/audit/domain"
	auditService "github.com/allisson/trustcore/internal/audit/service"
	apperrors "github.com/allisson/trustcore/internal/errors"
)

// privacyEventUseCase implements AuditLogger backed by a signer and a repository.
type privacyEventUseCase struct {
	repo          PrivacyEventRepository
	signer        auditService.EventSigner
	signingSecret []byte
	now           func() time.Time
}

// NewPrivacyEventUseCase creates an AuditLogger with the provided dependencies.
// The signing secret provides tamper-evidence for stored events and must be
// stable across restarts or previously written signatures stop verifying.
func NewPrivacyEventUseCase(
	repo PrivacyEventRepository,
	signer auditService.EventSigner,
	signingSecret []byte,
) AuditLogger {
	return &privacyEventUseCase{
		repo:          repo,
		signer:        signer,
		signingSecret: signingSecret,
		now:           time.Now,
	}
}

// Log signs and persists one privacy event. Generates a UUIDv7 identifier and
// timestamp, signs the canonical content, and inserts the row. Returns only
// after the repository write succeeds.
func (p *privacyEventUseCase) Log(
	ctx context.Context,
	actorID, actorEmail, actorRole string,
	action auditDomain.PrivacyAction,
	resourceType, resourceID string,
	metadata map[string]any,
) error {
	event := &auditDomain.PrivacyEvent{
		ID:           uuid.Must(uuid.NewV7()),
		ActorID:      actorID,
		ActorEmail:   actorEmail,
		ActorRole:    actorRole,
		Action:       action,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		Metadata:     metadata,
		CreatedAt:    p.now().UTC(),
	}

	signature, err := p.signer.Sign(p.signingSecret, event)
	if err != nil {
		return apperrors.Wrap(err, "failed to sign privacy event")
	}
	event.Signature = signature

	if err := p.repo.Create(ctx, event); err != nil {
		return apperrors.Wrap(err, "failed to persist privacy event")
	}

	return nil
}

// ListByResource retrieves the audit trail for a resource and verifies every
// event's signature, so a tampered row is surfaced instead of silently served.
func (p *privacyEventUseCase) ListByResource(
	ctx context.Context,
	resourceType, resourceID string,
	offset, limit int,
) ([]*auditDomain.PrivacyEvent, error) {
	events, err := p.repo.ListByResource(ctx, resourceType, resourceID, offset, limit)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list privacy events")
	}

	for _, event := range events {
		if err := p.signer.Verify(p.signingSecret, event); err != nil {
			return nil, apperrors.Wrap(err, "privacy event failed signature verification")
		}
	}

	return events, nil
}
