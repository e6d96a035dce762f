// Package domain defines the core domain models for field-level PII encryption.
// Individual values are encrypted with per-(user, field) derived keys and stored
// in a compact three-part string format.
package domain

import (
	"encoding/base64"
	"fmt"
	"strings"
)

// EncryptedField represents an encrypted PII value in its decoded form.
//
// The on-wire shape is "iv:tag:ciphertext" where each part is standard
// base64. Exactly two colons are valid; anything else is rejected at parse
// time. The authentication tag is carried separately from the ciphertext so
// the stored format is self-describing regardless of the AEAD library's
// seal layout.
//
// Fields:
//   - IV: The 16-byte random initialization vector, fresh per encryption
//   - AuthTag: The 16-byte GCM authentication tag
//   - Ciphertext: The encrypted value bytes
type EncryptedField struct {
	IV         []byte
	AuthTag    []byte
	Ciphertext []byte
}

// NewEncryptedField parses an encoded field value.
//
// The input string must be in the format "iv-base64:tag-base64:ciphertext-base64".
// Any deviation (wrong part count, invalid base64) returns ErrDecryptionFailed,
// so a malformed value is indistinguishable from a tampered one.
//
// Example:
//
//	field, err := NewEncryptedField(stored)
//	if err != nil {
//	    return err
//	}
func NewEncryptedField(content string) (EncryptedField, error) {
	parts := strings.Split(content, ":")
	if len(parts) != 3 {
		return EncryptedField{}, fmt.Errorf(
			"%w: expected format 'iv:tag:ciphertext', got %d parts",
			ErrDecryptionFailed,
			len(parts),
		)
	}

	iv, err := base64.StdEncoding.DecodeString(parts[0])
	if err != nil {
		return EncryptedField{}, fmt.Errorf("%w: invalid iv encoding", ErrDecryptionFailed)
	}

	tag, err := base64.StdEncoding.DecodeString(parts[1])
	if err != nil {
		return EncryptedField{}, fmt.Errorf("%w: invalid tag encoding", ErrDecryptionFailed)
	}

	ciphertext, err := base64.StdEncoding.DecodeString(parts[2])
	if err != nil {
		return EncryptedField{}, fmt.Errorf("%w: invalid ciphertext encoding", ErrDecryptionFailed)
	}

	return EncryptedField{
		IV:         iv,
		AuthTag:    tag,
		Ciphertext: ciphertext,
	}, nil
}

// String serializes the EncryptedField to its storage representation.
//
// The output format is "iv-base64:tag-base64:ciphertext-base64" and round-trips
// with NewEncryptedField.
func (ef EncryptedField) String() string {
	return fmt.Sprintf(
		"%s:%s:%s",
		base64.StdEncoding.EncodeToString(ef.IV),
		base64.StdEncoding.EncodeToString(ef.AuthTag),
		base64.StdEncoding.EncodeToString(ef.Ciphertext),
	)
}
