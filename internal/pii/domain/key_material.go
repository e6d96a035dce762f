package domain

import (
	"encoding/base64"
	"fmt"
	"os"
)

// KeyMaterial holds the master key and its version tag for per-field key derivation.
//
// Derived keys are a pure function of (masterKey, userID, fieldName, keyVersion):
// they are never persisted and are recomputed on every operation. Changing the
// version tag yields unrelated derived keys, which is the supported rotation path.
//
// Fields:
//   - Key: The raw 32-byte master key material
//   - Version: Version tag mixed into the derivation salt (e.g., "v1")
type KeyMaterial struct {
	Key     []byte
	Version string
}

// Validate checks the key material for use as an AES-256 derivation root.
// Returns ErrInvalidMasterKeySize for a key that is not exactly 32 bytes and
// ErrMissingKeyVersion for an empty version tag.
func (km *KeyMaterial) Validate() error {
	if len(km.Key) != 32 {
		return fmt.Errorf("%w: got %d bytes", ErrInvalidMasterKeySize, len(km.Key))
	}
	if km.Version == "" {
		return ErrMissingKeyVersion
	}
	return nil
}

// Close zeroes the master key bytes. Call when the material is replaced or the
// process shuts down so the key does not linger in memory.
func (km *KeyMaterial) Close() {
	Zero(km.Key)
	km.Key = nil
}

// LoadKeyMaterialFromEnv loads master key material from environment variables.
//
// This function reads:
//   - PII_MASTER_KEY: Standard base64 encoding of exactly 32 key bytes
//   - PII_KEY_VERSION: Version tag for the active key (e.g., "v1")
//
// Security notes:
//   - In production, prefer a KMS-backed provider over raw environment keys
//   - The decoded key is validated before being returned
//
// Returns:
//   - KeyMaterial ready for engine construction
//   - ErrMasterKeyNotSet / ErrKeyVersionNotSet if configuration is missing
//   - ErrInvalidMasterKeyBase64 if decoding fails
//   - ErrInvalidMasterKeySize if the key is not 32 bytes
func LoadKeyMaterialFromEnv() (*KeyMaterial, error) {
	raw := os.Getenv("PII_MASTER_KEY")
	if raw == "" {
		return nil, ErrMasterKeyNotSet
	}

	version := os.Getenv("PII_KEY_VERSION")
	if version == "" {
		return nil, ErrKeyVersionNotSet
	}

	key, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMasterKeyBase64, err)
	}

	km := &KeyMaterial{Key: key, Version: version}
	if err := km.Validate(); err != nil {
		km.Close()
		return nil, err
	}

	return km, nil
}
