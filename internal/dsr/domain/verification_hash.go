package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"slices"
	"strings"
	"time"
)

// ComputeVerificationHash produces the tamper-evident proof recorded when a
// deletion finishes: SHA-256 over the user ID, the sorted comma-joined list
// of sources actually deleted, and the completion timestamp in RFC 3339 UTC.
//
// It is a pure function so a later audit can recompute the digest from the
// stored row and detect any edit to the deletion record.
func ComputeVerificationHash(userID string, deletedSources []string, completedAt time.Time) string {
	sorted := slices.Clone(deletedSources)
	slices.Sort(sorted)

	payload := userID + strings.Join(sorted, ",") + completedAt.UTC().Format(time.RFC3339)
	digest := sha256.Sum256([]byte(payload))

	return hex.EncodeToString(digest[:])
}
