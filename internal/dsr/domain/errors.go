package domain

import (
	apperrors "github.com/allisson/trustcore/internal/errors"
)

// Deletion request lifecycle errors.
var (
	// ErrRequestNotFound indicates no deletion request exists with the given ID.
	ErrRequestNotFound = apperrors.Wrap(apperrors.ErrNotFound, "deletion request not found")

	// ErrUserNotFound indicates the subject user row does not exist.
	ErrUserNotFound = apperrors.Wrap(apperrors.ErrNotFound, "user not found")

	// ErrAlreadyCompleted indicates the deletion request already ran to completion.
	ErrAlreadyCompleted = apperrors.Wrap(apperrors.ErrConflict, "deletion request already completed")

	// ErrInvalidStateForExecute indicates the request is not claimable for
	// execution: it is in progress elsewhere or was cancelled.
	ErrInvalidStateForExecute = apperrors.Wrap(apperrors.ErrConflict, "deletion request is not executable in its current state")

	// ErrInvalidStateForCancel indicates cancellation was attempted outside
	// the PENDING grace period.
	ErrInvalidStateForCancel = apperrors.Wrap(apperrors.ErrConflict, "deletion request can only be cancelled while pending")
)
