package commands

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

const serviceKeyBits = 2048

// RunCreateServiceKeypair generates an RSA-2048 key pair for a service
// identity. This is an explicit provisioning tool: the server itself never
// generates keys outside the development flag.
//
// With an output directory the public key is written to <serviceID>.pem
// (mode 0644), matching the layout the directory key provider reads, and the
// private key to <serviceID>.private.pem (mode 0600). Without one, both PEMs
// are printed to the writer.
func RunCreateServiceKeypair(writer io.Writer, serviceID, outputDir string) error {
	if serviceID == "" {
		return fmt.Errorf("--service-id is required")
	}

	privateKey, err := rsa.GenerateKey(rand.Reader, serviceKeyBits)
	if err != nil {
		return fmt.Errorf("failed to generate RSA key pair: %w", err)
	}

	privatePEM := pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(privateKey),
	})

	publicDER, err := x509.MarshalPKIXPublicKey(&privateKey.PublicKey)
	if err != nil {
		return fmt.Errorf("failed to marshal public key: %w", err)
	}
	publicPEM := pem.EncodeToMemory(&pem.Block{
		Type:  "PUBLIC KEY",
		Bytes: publicDER,
	})

	if outputDir == "" {
		_, _ = fmt.Fprintf(writer, "# Service key pair for %q\n", serviceID)
		_, _ = fmt.Fprintf(writer, "# Private key (keep secret, deploy only to %s):\n\n", serviceID)
		_, _ = writer.Write(privatePEM)
		_, _ = fmt.Fprintf(writer, "\n# Public key (distribute to verifying services):\n\n")
		_, _ = writer.Write(publicPEM)
		return nil
	}

	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	privatePath := filepath.Join(outputDir, serviceID+".private.pem")
	if err := os.WriteFile(privatePath, privatePEM, 0o600); err != nil {
		return fmt.Errorf("failed to write private key: %w", err)
	}

	publicPath := filepath.Join(outputDir, serviceID+".pem")
	if err := os.WriteFile(publicPath, publicPEM, 0o644); err != nil {
		return fmt.Errorf("failed to write public key: %w", err)
	}

	_, _ = fmt.Fprintf(writer, "# Service key pair for %q\n", serviceID)
	_, _ = fmt.Fprintf(writer, "Private key: %s\n", privatePath)
	_, _ = fmt.Fprintf(writer, "Public key:  %s\n", publicPath)

	return nil
}
