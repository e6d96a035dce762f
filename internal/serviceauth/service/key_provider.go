package service

import (
	"context"
	"crypto/rsa"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	serviceAuthDomain "github.com/allisson/trustcore/internal/serviceauth/domain"
)

// StaticKeyProvider serves public keys parsed from an in-memory PEM map.
// Suited to deployments where the peer roster is fixed configuration.
type StaticKeyProvider struct {
	keys map[string]*rsa.PublicKey
}

// NewStaticKeyProvider parses a map of serviceID to PKIX public key PEM.
// Returns ErrInvalidKeyPEM if any entry fails to parse.
func NewStaticKeyProvider(pemByServiceID map[string]string) (*StaticKeyProvider, error) {
	keys := make(map[string]*rsa.PublicKey, len(pemByServiceID))
	for serviceID, pemData := range pemByServiceID {
		key, err := jwt.ParseRSAPublicKeyFromPEM([]byte(pemData))
		if err != nil {
			return nil, fmt.Errorf("%w: service %s: %v", serviceAuthDomain.ErrInvalidKeyPEM, serviceID, err)
		}
		keys[serviceID] = key
	}
	return &StaticKeyProvider{keys: keys}, nil
}

// PublicKey returns the configured key for serviceID or ErrUnknownIssuer.
func (p *StaticKeyProvider) PublicKey(_ context.Context, serviceID string) (*rsa.PublicKey, error) {
	key, ok := p.keys[serviceID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", serviceAuthDomain.ErrUnknownIssuer, serviceID)
	}
	return key, nil
}

// DirectoryKeyProvider loads public keys from "<dir>/<serviceID>.pem" files.
// Matches the operational layout where each service's public key is shipped
// as a mounted secret file.
type DirectoryKeyProvider struct {
	dir string
}

// NewDirectoryKeyProvider creates a provider rooted at dir.
func NewDirectoryKeyProvider(dir string) *DirectoryKeyProvider {
	return &DirectoryKeyProvider{dir: dir}
}

// PublicKey reads and parses the PEM file for serviceID.
//
// Service IDs containing path separators or traversal sequences are rejected
// so a crafted issuer claim cannot escape the key directory.
func (p *DirectoryKeyProvider) PublicKey(_ context.Context, serviceID string) (*rsa.PublicKey, error) {
	if serviceID == "" || strings.ContainsAny(serviceID, `/\`) || strings.Contains(serviceID, "..") {
		return nil, fmt.Errorf("%w: %s", serviceAuthDomain.ErrUnknownIssuer, serviceID)
	}

	pemData, err := os.ReadFile(filepath.Join(p.dir, serviceID+".pem"))
	if err != nil {
		return nil, fmt.Errorf("%w: %s", serviceAuthDomain.ErrUnknownIssuer, serviceID)
	}

	key, err := jwt.ParseRSAPublicKeyFromPEM(pemData)
	if err != nil {
		return nil, fmt.Errorf("%w: service %s: %v", serviceAuthDomain.ErrInvalidKeyPEM, serviceID, err)
	}

	return key, nil
}
