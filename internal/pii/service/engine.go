package service

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"strings"

	"golang.org/x/crypto/pbkdf2"

	piiDomain "github.com/allisson/trustcore/internal/pii/domain"
)

const (
	// pbkdf2Iterations is the PBKDF2-HMAC-SHA256 iteration count for per-field keys.
	pbkdf2Iterations = 100_000

	// derivedKeySize is the AES-256 key length in bytes.
	derivedKeySize = 32

	// ivSize is the GCM nonce length in bytes. 16 bytes matches the stored
	// field format; the cipher is created with an explicit nonce size.
	ivSize = 16

	// tagSize is the GCM authentication tag length in bytes.
	tagSize = 16
)

// Engine implements the FieldCipher interface using AES-256-GCM with
// per-(user, field) derived keys.
//
// Key derivation is deterministic: salt = SHA-256("userID:fieldName:keyVersion"),
// key = PBKDF2-HMAC-SHA256(masterKey, salt, 100k iterations, 32 bytes). No
// derived key is ever persisted; every operation recomputes it from the call
// arguments. Changing the user, field, or key version yields an unrelated key,
// so ciphertext cannot be moved across users or fields.
//
// Thread safety:
//
//	The engine holds only immutable key material after construction and is safe
//	for concurrent use from multiple goroutines. Each encryption generates a
//	fresh random 16-byte IV independently.
type Engine struct {
	material *piiDomain.KeyMaterial
}

// NewEngine creates a field encryption engine from master key material.
//
// The material is validated eagerly: a master key that is not exactly 32 bytes
// or a missing version tag is fatal at construction. This keeps misconfiguration
// loud instead of surfacing later as undecryptable data.
//
// Parameters:
//   - material: 32-byte master key plus key version tag
//
// Returns:
//   - A new Engine ready for encrypt/decrypt operations
//   - ErrInvalidMasterKeySize / ErrMissingKeyVersion on invalid material
func NewEngine(material *piiDomain.KeyMaterial) (*Engine, error) {
	if material == nil {
		return nil, piiDomain.ErrInvalidMasterKeySize
	}
	if err := material.Validate(); err != nil {
		return nil, err
	}
	return &Engine{material: material}, nil
}

// DeriveKey derives the 32-byte AES key for a (userID, fieldName) pair.
//
// The derivation is a pure function of the engine's key material and the
// arguments, so the same inputs always reproduce the same key. The caller owns
// the returned slice and should zero it after use.
func (e *Engine) DeriveKey(userID, fieldName string) []byte {
	salt := sha256.Sum256(fmt.Appendf(nil, "%s:%s:%s", userID, fieldName, e.material.Version))
	return pbkdf2.Key(e.material.Key, salt[:], pbkdf2Iterations, derivedKeySize, sha256.New)
}

// Encrypt encrypts a single PII value for the given user and field.
//
// An empty input returns "" unchanged. This bypass keeps absent optional fields
// out of the ciphertext store, at the cost of revealing emptiness; callers that
// must hide presence should store a sentinel value instead.
//
// The output format is "iv:tag:ciphertext" with each part base64-encoded. A
// fresh random 16-byte IV is generated per call and never reused for a key.
func (e *Engine) Encrypt(value, userID, fieldName string) (string, error) {
	if value == "" {
		return "", nil
	}

	aead, err := e.aeadFor(e.DeriveKey(userID, fieldName))
	if err != nil {
		return "", err
	}

	iv := make([]byte, ivSize)
	if _, err := rand.Read(iv); err != nil {
		return "", fmt.Errorf("failed to generate iv: %w", err)
	}

	// Seal returns ciphertext with the tag appended; split it so the stored
	// format carries the tag as its own segment.
	sealed := aead.Seal(nil, iv, []byte(value), nil)
	field := piiDomain.EncryptedField{
		IV:         iv,
		AuthTag:    sealed[len(sealed)-tagSize:],
		Ciphertext: sealed[:len(sealed)-tagSize],
	}

	return field.String(), nil
}

// Decrypt decrypts an encoded field value for the given user and field.
//
// An empty input returns "" (mirror of the Encrypt bypass). Any failure,
// whether a malformed format, an authentication tag mismatch, or a wrong
// (userID, fieldName, keyVersion) combination, returns ErrDecryptionFailed
// without distinguishing the cause.
func (e *Engine) Decrypt(encoded, userID, fieldName string) (string, error) {
	if encoded == "" {
		return "", nil
	}

	field, err := piiDomain.NewEncryptedField(encoded)
	if err != nil {
		return "", err
	}
	if len(field.IV) != ivSize || len(field.AuthTag) != tagSize {
		return "", fmt.Errorf("%w: invalid segment length", piiDomain.ErrDecryptionFailed)
	}

	aead, err := e.aeadFor(e.DeriveKey(userID, fieldName))
	if err != nil {
		return "", err
	}

	sealed := append(field.Ciphertext, field.AuthTag...)
	plaintext, err := aead.Open(nil, field.IV, sealed, nil)
	if err != nil {
		return "", piiDomain.ErrDecryptionFailed
	}

	return string(plaintext), nil
}

// Rotate re-encrypts an encoded value under new key material.
//
// The value is decrypted with the engine's current material and re-encrypted
// with the new material (typically a new key version). This is the only
// supported rotation path for stored fields; there is no bulk re-key utility.
func (e *Engine) Rotate(
	encoded, userID, fieldName string,
	newMaterial *piiDomain.KeyMaterial,
) (string, error) {
	plaintext, err := e.Decrypt(encoded, userID, fieldName)
	if err != nil {
		return "", err
	}

	next, err := NewEngine(newMaterial)
	if err != nil {
		return "", err
	}

	return next.Encrypt(plaintext, userID, fieldName)
}

// aeadFor builds an AES-256-GCM cipher with the stored-format IV size.
func (e *Engine) aeadFor(key []byte) (cipher.AEAD, error) {
	defer piiDomain.Zero(key)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create AES cipher: %w", err)
	}

	aead, err := cipher.NewGCMWithNonceSize(block, ivSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	return aead, nil
}

// EncryptedFieldName maps a plain field name to its encrypted counterpart
// following the "encrypted<Field>" convention (e.g., "email" → "encryptedEmail").
func EncryptedFieldName(fieldName string) string {
	if fieldName == "" {
		return ""
	}
	return "encrypted" + strings.ToUpper(fieldName[:1]) + fieldName[1:]
}

// PlainFieldName reverses EncryptedFieldName (e.g., "encryptedEmail" → "email").
// Returns the input unchanged if it does not follow the convention.
func PlainFieldName(encryptedName string) string {
	rest := strings.TrimPrefix(encryptedName, "encrypted")
	if rest == encryptedName || rest == "" {
		return encryptedName
	}
	return strings.ToLower(rest[:1]) + rest[1:]
}
