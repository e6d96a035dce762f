// Package dto provides data transfer objects for HTTP request and response handling.
package dto

import (
	validation "github.com/jellydator/validation"

	customValidation "github.com/allisson/trustcore/internal/validation"
)

// RequestDeletionRequest contains the parameters for queueing an erasure request.
type RequestDeletionRequest struct {
	UserID      string `json:"user_id"`
	RequestedBy string `json:"requested_by"`
	Reason      string `json:"reason"`
	ActorEmail  string `json:"actor_email"`
	ActorRole   string `json:"actor_role"`
}

// Validate checks if the request deletion request is valid.
func (r *RequestDeletionRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.UserID,
			validation.Required,
			customValidation.NotBlank,
			validation.Length(1, 255),
		),
		validation.Field(&r.RequestedBy,
			validation.Required,
			customValidation.NotBlank,
			validation.Length(1, 255),
		),
		validation.Field(&r.Reason,
			validation.Required,
			customValidation.NotBlank,
			validation.Length(1, 500),
		),
	)
}

// ExportRequest carries the optional actor attribution for an export call.
type ExportRequest struct {
	ActorEmail string `json:"actor_email"`
	ActorRole  string `json:"actor_role"`
}

// CancelDeletionRequest contains the parameters for withdrawing a queued deletion.
type CancelDeletionRequest struct {
	CancelledBy string `json:"cancelled_by"`
	ActorEmail  string `json:"actor_email"`
	ActorRole   string `json:"actor_role"`
}

// Validate checks if the cancel deletion request is valid.
func (r *CancelDeletionRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.CancelledBy,
			validation.Required,
			customValidation.NotBlank,
			validation.Length(1, 255),
		),
	)
}
