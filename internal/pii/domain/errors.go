package domain

import (
	"github.com/allisson/trustcore/internal/errors"
)

// Field encryption error definitions.
//
// These domain-specific errors wrap standard errors from internal/errors
// to provide context for field-level encryption failures. All errors are
// mapped to appropriate HTTP status codes by the error handling layer.
var (
	// ErrInvalidMasterKeySize indicates the master key is not exactly 32 bytes.
	//
	// Per-field keys are derived with PBKDF2-HMAC-SHA256 from a 256-bit master
	// key; a malformed or truncated master key is a configuration fault and is
	// fatal at engine construction, never deferred to the first operation.
	//
	// HTTP Status: 422 Unprocessable Entity
	ErrInvalidMasterKeySize = errors.Wrap(errors.ErrInvalidInput, "master key must be 32 bytes")

	// ErrMissingKeyVersion indicates no key version tag was supplied with the
	// master key material. The version participates in key derivation, so an
	// absent version would silently derive different keys after a restart.
	//
	// HTTP Status: 422 Unprocessable Entity
	ErrMissingKeyVersion = errors.Wrap(errors.ErrInvalidInput, "missing key version")

	// ErrDecryptionFailed indicates a field decryption operation failed.
	//
	// This error can occur due to:
	//   - Malformed encoded value (not iv:tag:ciphertext)
	//   - Authentication tag mismatch (tampered ciphertext)
	//   - Wrong (userID, fieldName, keyVersion) combination
	//
	// The three causes are indistinguishable on purpose: AES-GCM authenticated
	// decryption does not disclose whether the key or the data was wrong, which
	// prevents information leakage that could aid attackers.
	//
	// HTTP Status: 422 Unprocessable Entity
	ErrDecryptionFailed = errors.Wrap(errors.ErrInvalidInput, "field decryption failed")

	// ErrMasterKeyNotSet indicates the master key environment variable is not configured.
	ErrMasterKeyNotSet = errors.New("PII_MASTER_KEY environment variable is not set")

	// ErrKeyVersionNotSet indicates the key version environment variable is not configured.
	ErrKeyVersionNotSet = errors.New("PII_KEY_VERSION environment variable is not set")

	// ErrInvalidMasterKeyBase64 indicates the master key is not valid base64.
	ErrInvalidMasterKeyBase64 = errors.New("master key is not valid base64")
)
