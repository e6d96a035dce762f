package dto

import (
	"time"

	dsrDomain "github.com/allisson/trustcore/internal/dsr/domain"
)

// DeletionRequestResponse is the API representation of a deletion request.
type DeletionRequestResponse struct {
	ID               string     `json:"id"`
	UserID           string     `json:"user_id"`
	RequestedBy      string     `json:"requested_by"`
	Reason           string     `json:"reason"`
	Status           string     `json:"status"`
	ScheduledFor     time.Time  `json:"scheduled_for"`
	CompletedAt      *time.Time `json:"completed_at,omitempty"`
	SystemsDeleted   []string   `json:"systems_deleted,omitempty"`
	VerificationHash string     `json:"verification_hash,omitempty"`
	RetryCount       int        `json:"retry_count"`
	ErrorMessage     string     `json:"error_message,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
}

// NewDeletionRequestResponse converts a domain deletion request to its API shape.
func NewDeletionRequestResponse(request *dsrDomain.DeletionRequest) DeletionRequestResponse {
	return DeletionRequestResponse{
		ID:               request.ID.String(),
		UserID:           request.UserID,
		RequestedBy:      request.RequestedBy,
		Reason:           request.Reason,
		Status:           string(request.Status),
		ScheduledFor:     request.ScheduledFor,
		CompletedAt:      request.CompletedAt,
		SystemsDeleted:   request.SystemsDeleted,
		VerificationHash: request.VerificationHash,
		RetryCount:       request.RetryCount,
		ErrorMessage:     request.ErrorMessage,
		CreatedAt:        request.CreatedAt,
	}
}

// DeletionResultResponse is the API representation of one execution attempt.
type DeletionResultResponse struct {
	DeletionID       string    `json:"deletion_id"`
	UserID           string    `json:"user_id"`
	Status           string    `json:"status"`
	SystemsDeleted   []string  `json:"systems_deleted"`
	Errors           []string  `json:"errors"`
	VerificationHash string    `json:"verification_hash"`
	CompletedAt      time.Time `json:"completed_at"`
}

// NewDeletionResultResponse converts a domain deletion result to its API shape.
func NewDeletionResultResponse(result *dsrDomain.DeletionResult) DeletionResultResponse {
	return DeletionResultResponse{
		DeletionID:       result.DeletionID.String(),
		UserID:           result.UserID,
		Status:           string(result.Status),
		SystemsDeleted:   result.SystemsDeleted,
		Errors:           result.Errors,
		VerificationHash: result.VerificationHash,
		CompletedAt:      result.CompletedAt,
	}
}

// ExportBundleResponse is the API representation of an export bundle.
type ExportBundleResponse struct {
	UserID       string                     `json:"user_id"`
	GeneratedAt  time.Time                  `json:"generated_at"`
	Profile      *ProfileResponse           `json:"profile,omitempty"`
	EncryptedPII map[string]string          `json:"encrypted_pii,omitempty"`
	PIINote      string                     `json:"pii_note,omitempty"`
	ExternalIDs  []ExternalIDMappingPayload `json:"external_ids"`
	Sources      []string                   `json:"sources"`
	RecordCounts map[string]int             `json:"record_counts"`
}

// ProfileResponse is the exported profile row.
type ProfileResponse struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	CreatedAt time.Time `json:"created_at"`
}

// ExternalIDMappingPayload is one exported external ID mapping.
type ExternalIDMappingPayload struct {
	Provider   string `json:"provider"`
	ExternalID string `json:"external_id"`
}

// NewExportBundleResponse converts a domain export bundle to its API shape.
func NewExportBundleResponse(bundle *dsrDomain.ExportBundle) ExportBundleResponse {
	response := ExportBundleResponse{
		UserID:       bundle.UserID,
		GeneratedAt:  bundle.GeneratedAt,
		PIINote:      bundle.PIINote,
		ExternalIDs:  make([]ExternalIDMappingPayload, 0, len(bundle.ExternalIDs)),
		Sources:      bundle.Sources,
		RecordCounts: bundle.RecordCounts,
	}

	if bundle.Profile != nil {
		response.Profile = &ProfileResponse{
			ID:        bundle.Profile.ID,
			Email:     bundle.Profile.Email,
			FirstName: bundle.Profile.FirstName,
			LastName:  bundle.Profile.LastName,
			CreatedAt: bundle.Profile.CreatedAt,
		}
	}
	if bundle.EncryptedPII != nil {
		response.EncryptedPII = bundle.EncryptedPII.Fields
	}
	for _, mapping := range bundle.ExternalIDs {
		response.ExternalIDs = append(response.ExternalIDs, ExternalIDMappingPayload{
			Provider:   mapping.Provider,
			ExternalID: mapping.ExternalID,
		})
	}

	return response
}
