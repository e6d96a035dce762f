package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Anonymization sentinels written over a user's profile during erasure. The
// row itself survives so foreign keys stay intact; only the identifying
// content is destroyed.
const (
	AnonymizedEmailDomain = "anonymized.local"
	AnonymizedName        = "REDACTED"
)

// AnonymizedEmail returns the deterministic placeholder email written during
// anonymization. Determinism keeps re-runs of an interrupted deletion
// convergent instead of producing a different row each attempt.
func AnonymizedEmail(userID string) string {
	return fmt.Sprintf("deleted_%s@%s", userID, AnonymizedEmailDomain)
}

// User is the core profile row. It is anonymized, never deleted.
type User struct {
	ID        string
	Email     string
	FirstName string
	LastName  string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// EncryptedUserPII holds a user's sensitive fields in their on-wire encrypted
// form, keyed by encrypted field name (encryptedEmail, encryptedPhone, ...).
// Values are opaque here; decryption lives with the field encryption engine.
type EncryptedUserPII struct {
	UserID    string
	Fields    map[string]string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ExternalIDMapping links a user to an identifier in a third-party system.
type ExternalIDMapping struct {
	ID         uuid.UUID
	UserID     string
	Provider   string
	ExternalID string
	CreatedAt  time.Time
}

// ExportBundle aggregates everything returned by a data access request. It is
// ephemeral and never persisted.
//
// PII stays encrypted in the bundle: the export proves what exists without
// this service holding plaintext, and PIINote tells the consumer how to
// proceed.
type ExportBundle struct {
	UserID       string
	GeneratedAt  time.Time
	Profile      *User
	EncryptedPII *EncryptedUserPII
	PIINote      string
	ExternalIDs  []*ExternalIDMapping
	Sources      []string
	RecordCounts map[string]int
}
