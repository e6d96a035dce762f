package service

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"

	"gocloud.dev/secrets"

	piiDomain "github.com/allisson/trustcore/internal/pii/domain"

	// Register KMS provider drivers for master key unwrapping
	_ "gocloud.dev/secrets/awskms"
	_ "gocloud.dev/secrets/azurekeyvault"
	_ "gocloud.dev/secrets/gcpkms"
	_ "gocloud.dev/secrets/hashivault"
	_ "gocloud.dev/secrets/localsecrets"
)

// KeyProvider supplies master key material at process start.
//
// Rotation is performed by constructing a new provider (and a new engine) with
// the next key version; providers themselves never mutate material in place.
type KeyProvider interface {
	// MasterKey returns validated key material. The caller owns the material
	// and should Close it when replaced.
	MasterKey(ctx context.Context) (*piiDomain.KeyMaterial, error)
}

// EnvKeyProvider loads the master key directly from environment variables.
// Intended for development and test environments; production deployments
// should prefer KMSKeyProvider so the raw key never appears in the process
// environment.
type EnvKeyProvider struct{}

// NewEnvKeyProvider creates a provider reading PII_MASTER_KEY / PII_KEY_VERSION.
func NewEnvKeyProvider() *EnvKeyProvider {
	return &EnvKeyProvider{}
}

// MasterKey loads and validates key material from the environment.
func (p *EnvKeyProvider) MasterKey(_ context.Context) (*piiDomain.KeyMaterial, error) {
	return piiDomain.LoadKeyMaterialFromEnv()
}

// KMSKeeper abstracts gocloud.dev's secrets.Keeper for testability.
// *secrets.Keeper implements this interface.
type KMSKeeper interface {
	Decrypt(ctx context.Context, ciphertext []byte) ([]byte, error)
	Close() error
}

// KMSKeyProvider unwraps a KMS-encrypted master key at startup.
//
// The wrapped key is read from PII_MASTER_KEY_WRAPPED (base64 KMS ciphertext)
// and decrypted through a gocloud.dev secrets keeper, so the plaintext master
// key only ever exists in process memory. Supported key URIs: gcpkms://,
// awskms://, azurekeyvault://, hashivault://, base64key:// (local development).
type KMSKeyProvider struct {
	keyURI string
}

// NewKMSKeyProvider creates a provider that unwraps the master key with the
// KMS identified by keyURI.
func NewKMSKeyProvider(keyURI string) *KMSKeyProvider {
	return &KMSKeyProvider{keyURI: keyURI}
}

// MasterKey opens the KMS keeper, unwraps the master key, and validates it.
func (p *KMSKeyProvider) MasterKey(ctx context.Context) (*piiDomain.KeyMaterial, error) {
	wrapped := os.Getenv("PII_MASTER_KEY_WRAPPED")
	if wrapped == "" {
		return nil, piiDomain.ErrMasterKeyNotSet
	}

	version := os.Getenv("PII_KEY_VERSION")
	if version == "" {
		return nil, piiDomain.ErrKeyVersionNotSet
	}

	ciphertext, err := base64.StdEncoding.DecodeString(wrapped)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", piiDomain.ErrInvalidMasterKeyBase64, err)
	}

	keeper, err := secrets.OpenKeeper(ctx, p.keyURI)
	if err != nil {
		return nil, fmt.Errorf("failed to open KMS keeper: %w", err)
	}
	defer func() {
		_ = keeper.Close()
	}()

	return p.unwrap(ctx, keeper, ciphertext, version)
}

// unwrap decrypts the wrapped key with the given keeper and validates the result.
func (p *KMSKeyProvider) unwrap(
	ctx context.Context,
	keeper KMSKeeper,
	ciphertext []byte,
	version string,
) (*piiDomain.KeyMaterial, error) {
	key, err := keeper.Decrypt(ctx, ciphertext)
	if err != nil {
		return nil, fmt.Errorf("failed to unwrap master key: %w", err)
	}

	km := &piiDomain.KeyMaterial{Key: key, Version: version}
	if err := km.Validate(); err != nil {
		km.Close()
		return nil, err
	}

	return km, nil
}
