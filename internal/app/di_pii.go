package app

import (
	"context"
	"fmt"
	"sync"

	piiDomain "github.com/allisson/trustcore/internal/pii/domain"
	piiService "github.com/allisson/trustcore/internal/pii/service"
)

// piiDependencies holds the PII encryption components.
type piiDependencies struct {
	keyProvider piiService.KeyProvider
	keyMaterial *piiDomain.KeyMaterial
	engine      *piiService.Engine

	keyProviderInit sync.Once
	engineInit      sync.Once
}

// PIIKeyProvider returns the master key provider. A configured KMS key URI
// selects the KMS-unwrapping provider; otherwise the key is read directly
// from the environment.
func (c *Container) PIIKeyProvider() piiService.KeyProvider {
	c.piiDeps.keyProviderInit.Do(func() {
		if c.config.KMSKeyURI != "" {
			c.piiDeps.keyProvider = piiService.NewKMSKeyProvider(c.config.KMSKeyURI)
			return
		}
		c.piiDeps.keyProvider = piiService.NewEnvKeyProvider()
	})
	return c.piiDeps.keyProvider
}

// PIIEngine returns the field encryption engine, loading and validating the
// master key on first access. The key material stays in process memory until
// Shutdown.
func (c *Container) PIIEngine(ctx context.Context) (*piiService.Engine, error) {
	c.piiDeps.engineInit.Do(func() {
		material, err := c.PIIKeyProvider().MasterKey(ctx)
		if err != nil {
			c.initErrors["piiEngine"] = fmt.Errorf("failed to load pii master key: %w", err)
			return
		}

		engine, err := piiService.NewEngine(material)
		if err != nil {
			material.Close()
			c.initErrors["piiEngine"] = fmt.Errorf("failed to create pii engine: %w", err)
			return
		}

		c.piiDeps.keyMaterial = material
		c.piiDeps.engine = engine
	})
	if storedErr, exists := c.initErrors["piiEngine"]; exists {
		return nil, storedErr
	}
	return c.piiDeps.engine, nil
}
