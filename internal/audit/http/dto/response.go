package dto

import (
	"time"

	auditDomain "github.com/allisson/trustcore/internal/audit/domain"
)

// PrivacyEventResponse is the API representation of one audit trail event.
// The stored signature is not exposed; every listed event has already had
// its signature verified server-side.
type PrivacyEventResponse struct {
	ID           string         `json:"id"`
	ActorID      string         `json:"actor_id"`
	ActorEmail   string         `json:"actor_email,omitempty"`
	ActorRole    string         `json:"actor_role,omitempty"`
	Action       string         `json:"action"`
	ResourceType string         `json:"resource_type"`
	ResourceID   string         `json:"resource_id"`
	Metadata     map[string]any `json:"metadata,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
}

// NewPrivacyEventResponse converts a domain privacy event to its API shape.
func NewPrivacyEventResponse(event *auditDomain.PrivacyEvent) PrivacyEventResponse {
	return PrivacyEventResponse{
		ID:           event.ID.String(),
		ActorID:      event.ActorID,
		ActorEmail:   event.ActorEmail,
		ActorRole:    event.ActorRole,
		Action:       string(event.Action),
		ResourceType: event.ResourceType,
		ResourceID:   event.ResourceID,
		Metadata:     event.Metadata,
		CreatedAt:    event.CreatedAt,
	}
}
