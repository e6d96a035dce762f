package service

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"

	auditDomain "github.com/allisson/trustcore/internal/audit/domain"
)

type eventSigner struct{}

// NewEventSigner creates an HMAC-based privacy event signer using HKDF-SHA256
// for key derivation and HMAC-SHA256 for signature generation.
func NewEventSigner() EventSigner {
	return &eventSigner{}
}

// deriveSigningKey uses HKDF-SHA256 to derive a 32-byte signing key from the
// signing secret. Keeps signing key usage separate from any other use of the
// same secret. Info parameter: "privacy-event-signing-v1" (versioned for
// future algorithm changes).
func (e *eventSigner) deriveSigningKey(secret []byte) ([]byte, error) {
	info := []byte("privacy-event-signing-v1")
	reader := hkdf.New(sha256.New, secret, nil, info)

	signingKey := make([]byte, 32)
	if _, err := io.ReadFull(reader, signingKey); err != nil {
		return nil, err
	}

	return signingKey, nil
}

// canonicalizeEvent converts a privacy event to a canonical byte
// representation for signing. Format: id || actor fields || action ||
// resource fields || metadata || created_at. Uses length-prefixed encoding
// for variable-length fields to prevent ambiguity.
func (e *eventSigner) canonicalizeEvent(event *auditDomain.PrivacyEvent) ([]byte, error) {
	buf := make([]byte, 0, 1024)

	buf = append(buf, event.ID[:]...)

	buf = appendLengthPrefixed(buf, []byte(event.ActorID))
	buf = appendLengthPrefixed(buf, []byte(event.ActorEmail))
	buf = appendLengthPrefixed(buf, []byte(event.ActorRole))
	buf = appendLengthPrefixed(buf, []byte(string(event.Action)))
	buf = appendLengthPrefixed(buf, []byte(event.ResourceType))
	buf = appendLengthPrefixed(buf, []byte(event.ResourceID))

	if event.Metadata != nil {
		metadataBytes, err := json.Marshal(event.Metadata)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal metadata: %w", err)
		}
		buf = appendLengthPrefixed(buf, metadataBytes)
	} else {
		buf = appendLengthPrefixed(buf, nil)
	}

	timeBytes := make([]byte, 8)
	binary.BigEndian.PutUint64(timeBytes, uint64(event.CreatedAt.UnixNano()))
	buf = append(buf, timeBytes...)

	return buf, nil
}

// appendLengthPrefixed adds a 4-byte big-endian length prefix followed by data.
func appendLengthPrefixed(buf []byte, data []byte) []byte {
	dataLen := len(data)
	if dataLen > 0xFFFFFFFF {
		panic("data length exceeds uint32 max")
	}
	length := make([]byte, 4)
	binary.BigEndian.PutUint32(length, uint32(dataLen))
	buf = append(buf, length...)
	buf = append(buf, data...)
	return buf
}

// Sign generates an HMAC-SHA256 signature for the privacy event.
func (e *eventSigner) Sign(secret []byte, event *auditDomain.PrivacyEvent) ([]byte, error) {
	signingKey, err := e.deriveSigningKey(secret)
	if err != nil {
		return nil, fmt.Errorf("failed to derive signing key: %w", err)
	}
	defer zero(signingKey)

	canonical, err := e.canonicalizeEvent(event)
	if err != nil {
		return nil, fmt.Errorf("failed to canonicalize event: %w", err)
	}

	mac := hmac.New(sha256.New, signingKey)
	mac.Write(canonical)

	return mac.Sum(nil), nil
}

// Verify checks if the privacy event signature is valid.
func (e *eventSigner) Verify(secret []byte, event *auditDomain.PrivacyEvent) error {
	expectedSig, err := e.Sign(secret, event)
	if err != nil {
		return fmt.Errorf("failed to compute expected signature: %w", err)
	}

	if !hmac.Equal(event.Signature, expectedSig) {
		return auditDomain.ErrSignatureInvalid
	}

	return nil
}

// zero overwrites sensitive data in memory with zeros.
func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
