// Package service implements field-level PII encryption with per-(user, field)
// key derivation and AES-256-GCM authenticated encryption.
package service

import (
	piiDomain "github.com/allisson/trustcore/internal/pii/domain"
)

// FieldCipher defines the interface for encrypting and decrypting individual
// PII values bound to a (userID, fieldName) pair.
//
// Implementations are stateless and safe for unbounded concurrent use: keys are
// derived from call arguments on every operation and no shared state is mutated.
type FieldCipher interface {
	// Encrypt encrypts a single value for the given user and field.
	// An empty value is returned unchanged (explicit plaintext bypass).
	Encrypt(value, userID, fieldName string) (string, error)

	// Decrypt reverses Encrypt. Fails with ErrDecryptionFailed on malformed
	// input, tampered ciphertext, or a wrong (userID, fieldName) combination.
	Decrypt(encoded, userID, fieldName string) (string, error)

	// EncryptMap encrypts the named fields of a flat value map, replacing each
	// "<field>" key with its "encrypted<Field>" counterpart.
	EncryptMap(values map[string]string, userID string, fieldNames []string) (map[string]string, error)

	// DecryptMap reverses EncryptMap for the named fields.
	DecryptMap(values map[string]string, userID string, fieldNames []string) (map[string]string, error)

	// Rotate re-encrypts an encoded value under new key material. This is the
	// only supported key-rotation path for stored fields.
	Rotate(encoded, userID, fieldName string, newMaterial *piiDomain.KeyMaterial) (string, error)
}
