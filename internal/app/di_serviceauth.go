package app

import (
	"fmt"
	"os"
	"strings"
	"sync"

	serviceAuthDomain "github.com/allisson/trustcore/internal/serviceauth/domain"
	serviceAuthService "github.com/allisson/trustcore/internal/serviceauth/service"
)

// serviceAuthDependencies holds the service-to-service authentication components.
type serviceAuthDependencies struct {
	keyProvider serviceAuthService.PublicKeyProvider
	manager     *serviceAuthService.Manager

	keyProviderInit sync.Once
	managerInit     sync.Once
}

// ServiceAuthKeyProvider returns the peer public key provider, reading PEM
// files from the configured public key directory.
func (c *Container) ServiceAuthKeyProvider() serviceAuthService.PublicKeyProvider {
	c.serviceAuthDeps.keyProviderInit.Do(func() {
		c.serviceAuthDeps.keyProvider = serviceAuthService.NewDirectoryKeyProvider(
			c.config.ServiceAuthPublicKeyDir,
		)
	})
	return c.serviceAuthDeps.keyProvider
}

// ServiceAuthManager returns the token manager used both for signing outbound
// service tokens and verifying inbound ones.
func (c *Container) ServiceAuthManager() (*serviceAuthService.Manager, error) {
	c.serviceAuthDeps.managerInit.Do(func() {
		manager, err := c.initServiceAuthManager()
		if err != nil {
			c.initErrors["serviceAuthManager"] = err
			return
		}
		c.serviceAuthDeps.manager = manager
	})
	if storedErr, exists := c.initErrors["serviceAuthManager"]; exists {
		return nil, storedErr
	}
	return c.serviceAuthDeps.manager, nil
}

// initServiceAuthManager builds the manager from configuration.
func (c *Container) initServiceAuthManager() (*serviceAuthService.Manager, error) {
	var privateKeyPEM []byte
	if c.config.ServiceAuthPrivateKeyPath != "" {
		pemBytes, err := os.ReadFile(c.config.ServiceAuthPrivateKeyPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read service auth private key: %w", err)
		}
		privateKeyPEM = pemBytes
	}

	managerConfig := serviceAuthService.Config{
		Identity: serviceAuthDomain.ServiceIdentity{
			ServiceID:   c.config.ServiceID,
			ServiceType: c.config.ServiceType,
			Environment: c.config.Environment,
		},
		PrivateKeyPEM:   privateKeyPEM,
		TokenTTL:        c.config.ServiceAuthTokenTTL,
		AllowedIssuers:  parseAllowedIssuers(c.config.ServiceAuthAllowedIssuers),
		DevGenerateKeys: c.config.ServiceAuthDevGenerateKeys,
	}

	manager, err := serviceAuthService.NewManager(
		managerConfig,
		serviceAuthService.NewPublicKeyCache(),
		c.ServiceAuthKeyProvider(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create service auth manager: %w", err)
	}

	return manager, nil
}

// parseAllowedIssuers splits a comma-separated service ID list, trimming
// whitespace and dropping empty entries.
func parseAllowedIssuers(issuersStr string) []string {
	if issuersStr == "" {
		return nil
	}

	parts := strings.Split(issuersStr, ",")
	issuers := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			issuers = append(issuers, trimmed)
		}
	}

	return issuers
}
