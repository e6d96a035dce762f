package domain

import (
	apperrors "github.com/allisson/trustcore/internal/errors"
)

// ErrSignatureInvalid indicates a privacy event's stored signature does not
// match its content, meaning the event was tampered with after writing.
var ErrSignatureInvalid = apperrors.Wrap(apperrors.ErrInvalidInput, "privacy event signature is invalid")
