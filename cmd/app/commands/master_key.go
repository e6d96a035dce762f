package commands

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"

	"gocloud.dev/secrets"

	// Register KMS provider drivers for master key wrapping
	_ "gocloud.dev/secrets/awskms"
	_ "gocloud.dev/secrets/azurekeyvault"
	_ "gocloud.dev/secrets/gcpkms"
	_ "gocloud.dev/secrets/hashivault"
	_ "gocloud.dev/secrets/localsecrets"
)

// RunCreateMasterKey generates a cryptographically secure 32-byte master key
// for PII field encryption. Key material is zeroed from memory after encoding.
//
// Without KMS parameters the raw key is printed as PII_MASTER_KEY for direct
// environment configuration. With --kms-provider and --kms-key-uri the key is
// wrapped by the KMS first and printed as PII_MASTER_KEY_WRAPPED, so the
// plaintext key never needs to live in deployment configuration.
//
// Security: never use the localsecrets provider in production. Use cloud KMS
// providers (gcpkms, awskms, azurekeyvault, hashivault).
func RunCreateMasterKey(ctx context.Context, writer io.Writer, keyVersion, kmsProvider, kmsKeyURI string) error {
	if keyVersion == "" {
		keyVersion = "v1"
	}

	// Generate a cryptographically secure 32-byte master key
	masterKey := make([]byte, 32)
	if _, err := rand.Read(masterKey); err != nil {
		return fmt.Errorf("failed to generate master key: %w", err)
	}
	defer func() {
		for i := range masterKey {
			masterKey[i] = 0
		}
	}()

	// Plain mode: print the raw key for direct environment configuration
	if kmsProvider == "" && kmsKeyURI == "" {
		encodedKey := base64.StdEncoding.EncodeToString(masterKey)

		_, _ = fmt.Fprintln(writer, "# PII Master Key Configuration")
		_, _ = fmt.Fprintln(writer, "# Copy these environment variables to your .env file or secrets manager")
		_, _ = fmt.Fprintln(writer)
		_, _ = fmt.Fprintf(writer, "PII_MASTER_KEY=\"%s\"\n", encodedKey)
		_, _ = fmt.Fprintf(writer, "PII_KEY_VERSION=\"%s\"\n", keyVersion)
		return nil
	}

	if kmsProvider == "" || kmsKeyURI == "" {
		return fmt.Errorf(
			"--kms-provider and --kms-key-uri must be set together\n\nFor local development, use:\n  --kms-provider=localsecrets --kms-key-uri=\"base64key://<32-byte-base64-key>\"\n\nFor production, use cloud KMS providers:\n  --kms-provider=gcpkms --kms-key-uri=\"gcpkms://projects/.../cryptoKeys/...\"\n  --kms-provider=awskms --kms-key-uri=\"awskms:///alias/...\"\n  --kms-provider=azurekeyvault --kms-key-uri=\"azurekeyvault://...\"",
		)
	}

	// KMS mode: wrap the key so only the ciphertext is configured
	keeper, err := secrets.OpenKeeper(ctx, kmsKeyURI)
	if err != nil {
		return fmt.Errorf("failed to open KMS keeper: %w", err)
	}
	defer func() {
		if closeErr := keeper.Close(); closeErr != nil {
			_, _ = fmt.Fprintf(writer, "# Warning: failed to close KMS keeper: %v\n", closeErr)
		}
	}()

	ciphertext, err := keeper.Encrypt(ctx, masterKey)
	if err != nil {
		return fmt.Errorf("failed to encrypt master key with KMS: %w", err)
	}

	encodedKey := base64.StdEncoding.EncodeToString(ciphertext)

	_, _ = fmt.Fprintln(writer, "# PII Master Key Configuration (KMS Mode)")
	_, _ = fmt.Fprintln(writer, "# Copy these environment variables to your .env file or secrets manager")
	_, _ = fmt.Fprintln(writer)
	_, _ = fmt.Fprintf(writer, "KMS_PROVIDER=\"%s\"\n", kmsProvider)
	_, _ = fmt.Fprintf(writer, "KMS_KEY_URI=\"%s\"\n", kmsKeyURI)
	_, _ = fmt.Fprintf(writer, "PII_MASTER_KEY_WRAPPED=\"%s\"\n", encodedKey)
	_, _ = fmt.Fprintf(writer, "PII_KEY_VERSION=\"%s\"\n", keyVersion)

	return nil
}
