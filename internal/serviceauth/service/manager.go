package service

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	serviceAuthDomain "github.com/allisson/trustcore/internal/serviceauth/domain"
)

const (
	// DefaultTokenTTL bounds exp - iat for minted tokens. Five minutes keeps
	// the value of a stolen token low while leaving room for clock drift
	// between well-behaved services.
	DefaultTokenTTL = 5 * time.Minute

	// rsaKeyBits is the key size used when development key generation is enabled.
	rsaKeyBits = 2048
)

// Config holds the construction parameters for a Manager.
type Config struct {
	// Identity is this service's static identity.
	Identity serviceAuthDomain.ServiceIdentity
	// PrivateKeyPEM is the PKCS#1/PKCS#8 PEM of this service's RSA-2048
	// private key. Required unless DevGenerateKeys is set.
	PrivateKeyPEM []byte
	// TokenTTL overrides DefaultTokenTTL when positive.
	TokenTTL time.Duration
	// AllowedIssuers restricts accepted token issuers. Empty means any issuer
	// whose public key resolves is accepted.
	AllowedIssuers []string
	// DevGenerateKeys enables in-process key generation when no PEM is
	// configured. Development only; never the default.
	DevGenerateKeys bool
}

// Manager signs and verifies short-lived RS256 service tokens.
//
// Each service holds its own RSA key pair, so a leaked verifier-side artifact
// (a public key) compromises nobody, unlike a shared HMAC secret. Outbound
// tokens carry aud = target service and the issuer's environment; inbound
// verification enforces both against the manager's own identity.
//
// The public key cache is owned by the manager instance and filled through the
// injected PublicKeyProvider on cache misses.
type Manager struct {
	identity       serviceAuthDomain.ServiceIdentity
	privateKey     *rsa.PrivateKey
	ttl            time.Duration
	allowedIssuers map[string]struct{}
	cache          *PublicKeyCache
	keyProvider    PublicKeyProvider
	now            func() time.Time
}

// NewManager creates a service auth manager.
//
// A private key PEM is required. If it is absent the constructor fails with
// ErrMissingKeyPair unless cfg.DevGenerateKeys is explicitly set, in which
// case a throwaway RSA-2048 key is generated; there is no silent generation
// outside that flag.
//
// Parameters:
//   - cfg: identity, key material, TTL, and issuer allow-list
//   - cache: the public key cache owned by this manager instance
//   - keyProvider: resolves peer public keys on cache misses
func NewManager(cfg Config, cache *PublicKeyCache, keyProvider PublicKeyProvider) (*Manager, error) {
	var privateKey *rsa.PrivateKey

	switch {
	case len(cfg.PrivateKeyPEM) > 0:
		key, err := jwt.ParseRSAPrivateKeyFromPEM(cfg.PrivateKeyPEM)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", serviceAuthDomain.ErrInvalidKeyPEM, err)
		}
		privateKey = key
	case cfg.DevGenerateKeys:
		key, err := rsa.GenerateKey(rand.Reader, rsaKeyBits)
		if err != nil {
			return nil, fmt.Errorf("failed to generate development key pair: %w", err)
		}
		privateKey = key
	default:
		return nil, serviceAuthDomain.ErrMissingKeyPair
	}

	ttl := cfg.TokenTTL
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}

	var allowed map[string]struct{}
	if len(cfg.AllowedIssuers) > 0 {
		allowed = make(map[string]struct{}, len(cfg.AllowedIssuers))
		for _, issuer := range cfg.AllowedIssuers {
			allowed[issuer] = struct{}{}
		}
	}

	if cache == nil {
		cache = NewPublicKeyCache()
	}

	return &Manager{
		identity:       cfg.Identity,
		privateKey:     privateKey,
		ttl:            ttl,
		allowedIssuers: allowed,
		cache:          cache,
		keyProvider:    keyProvider,
		now:            time.Now,
	}, nil
}

// Identity returns the manager's own service identity.
func (m *Manager) Identity() serviceAuthDomain.ServiceIdentity {
	return m.identity
}

// PublicKey returns this service's RSA public key for publication to peers.
func (m *Manager) PublicKey() *rsa.PublicKey {
	return &m.privateKey.PublicKey
}

// SignServiceToken mints a fresh RS256 token addressed to targetServiceID.
//
// Claims: iss = own service ID, aud = target service ID, iat = now,
// exp = iat + ttl, jti = random UUID, plus the identity triple. The JWT
// header carries kid = own service ID so verifiers can resolve the issuer
// key without decoding the payload.
func (m *Manager) SignServiceToken(targetServiceID string) (string, error) {
	now := m.now().UTC()

	claims := serviceAuthDomain.TokenClaims{
		ServiceID:   m.identity.ServiceID,
		ServiceType: m.identity.ServiceType,
		Environment: m.identity.Environment,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.identity.ServiceID,
			Audience:  jwt.ClaimStrings{targetServiceID},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
			ID:        uuid.NewString(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	token.Header["kid"] = m.identity.ServiceID

	signed, err := token.SignedString(m.privateKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign service token: %w", err)
	}

	return signed, nil
}

// VerifyServiceToken validates an inbound service token.
//
// Verification order:
//  1. Decode (unverified) to read the issuer claim
//  2. Reject issuers outside the allow-list, when one is configured
//  3. Resolve the issuer's public key (cache, then provider)
//  4. Verify the RS256 signature and expiry
//  5. Enforce aud == own service ID
//  6. Enforce iss == expectedIssuer when a pin is supplied
//  7. Enforce environment == own environment
//
// Any failure returns one of the serviceauth domain sentinels and a nil
// result; there is no partially valid outcome.
func (m *Manager) VerifyServiceToken(
	ctx context.Context,
	tokenString, expectedIssuer string,
) (*serviceAuthDomain.TokenClaims, error) {
	if tokenString == "" {
		return nil, serviceAuthDomain.ErrMissingToken
	}

	issuer, err := m.unverifiedIssuer(tokenString)
	if err != nil {
		return nil, err
	}

	if m.allowedIssuers != nil {
		if _, ok := m.allowedIssuers[issuer]; !ok {
			return nil, fmt.Errorf("%w: %s", serviceAuthDomain.ErrUnknownIssuer, issuer)
		}
	}

	publicKey, err := m.resolvePublicKey(ctx, issuer)
	if err != nil {
		return nil, err
	}

	claims := &serviceAuthDomain.TokenClaims{}
	parsed, err := jwt.ParseWithClaims(
		tokenString,
		claims,
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodRSA); !ok {
				return nil, serviceAuthDomain.ErrSignatureInvalid
			}
			return publicKey, nil
		},
		jwt.WithTimeFunc(func() time.Time { return m.now().UTC() }),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, serviceAuthDomain.ErrTokenExpired
		}
		return nil, serviceAuthDomain.ErrSignatureInvalid
	}
	if !parsed.Valid {
		return nil, serviceAuthDomain.ErrSignatureInvalid
	}

	if !audienceContains(claims.Audience, m.identity.ServiceID) {
		return nil, fmt.Errorf(
			"%w: token for %v, this service is %s",
			serviceAuthDomain.ErrAudienceMismatch,
			[]string(claims.Audience),
			m.identity.ServiceID,
		)
	}

	if expectedIssuer != "" && claims.Issuer != expectedIssuer {
		return nil, fmt.Errorf(
			"%w: got %s, expected %s",
			serviceAuthDomain.ErrIssuerMismatch,
			claims.Issuer,
			expectedIssuer,
		)
	}

	if claims.Environment != m.identity.Environment {
		return nil, fmt.Errorf(
			"%w: token from %s, this service runs in %s",
			serviceAuthDomain.ErrEnvironmentMismatch,
			claims.Environment,
			m.identity.Environment,
		)
	}

	return claims, nil
}

// unverifiedIssuer decodes the token without signature verification to read
// the issuer claim, which selects the verification key.
func (m *Manager) unverifiedIssuer(tokenString string) (string, error) {
	claims := &serviceAuthDomain.TokenClaims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(tokenString, claims); err != nil {
		return "", serviceAuthDomain.ErrSignatureInvalid
	}
	if claims.Issuer == "" {
		return "", fmt.Errorf("%w: token has no issuer", serviceAuthDomain.ErrUnknownIssuer)
	}
	return claims.Issuer, nil
}

// resolvePublicKey returns the issuer's public key from the cache, falling
// back to the key provider and caching the result.
func (m *Manager) resolvePublicKey(ctx context.Context, issuer string) (*rsa.PublicKey, error) {
	if key, ok := m.cache.Get(issuer); ok {
		return key, nil
	}

	if m.keyProvider == nil {
		return nil, fmt.Errorf("%w: no key provider configured", serviceAuthDomain.ErrUnknownIssuer)
	}

	key, err := m.keyProvider.PublicKey(ctx, issuer)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", serviceAuthDomain.ErrUnknownIssuer, err)
	}

	m.cache.Set(issuer, key)
	return key, nil
}

func audienceContains(audience jwt.ClaimStrings, serviceID string) bool {
	for _, aud := range audience {
		if aud == serviceID {
			return true
		}
	}
	return false
}
