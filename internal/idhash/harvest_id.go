// Package idhash computes deterministic record identifiers.
package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// ComputeHarvestEventID computes a deterministic harvest event id using SHA256.
// Formula: SHA256(mint|stream|reference|harvested_at)
// Returns hex-encoded hash (64 characters).
//
// The reference is the confirming transaction signature, so re-harvesting
// the same collection produces the same id and deduplicates in the store.
func ComputeHarvestEventID(mint, stream, reference string, harvestedAt int64) string {
	data := fmt.Sprintf("%s|%s|%s|%d", mint, stream, reference, harvestedAt)
	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}
