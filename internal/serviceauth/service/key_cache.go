package service

import (
	"crypto/rsa"
	"sync"
)

// PublicKeyCache is a read-through cache of peer service public keys, keyed by
// service ID.
//
// The cache is an explicitly owned value injected into each Manager instance,
// never a package-level singleton, so tests can run multiple isolated managers
// concurrently. It is read-mostly and safe for concurrent use; cache fills are
// last-write-wins, which is acceptable since a service's published key is
// immutable once fetched.
type PublicKeyCache struct {
	keys sync.Map
}

// NewPublicKeyCache creates an empty public key cache.
func NewPublicKeyCache() *PublicKeyCache {
	return &PublicKeyCache{}
}

// Get retrieves a cached public key by service ID.
func (c *PublicKeyCache) Get(serviceID string) (*rsa.PublicKey, bool) {
	if key, ok := c.keys.Load(serviceID); ok {
		return key.(*rsa.PublicKey), true
	}
	return nil, false
}

// Set stores a public key for a service ID.
func (c *PublicKeyCache) Set(serviceID string, key *rsa.PublicKey) {
	c.keys.Store(serviceID, key)
}

// Clear removes all cached keys.
func (c *PublicKeyCache) Clear() {
	c.keys.Clear()
}
