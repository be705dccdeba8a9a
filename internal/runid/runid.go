// Package runid derives deterministic identifiers for recorded tuning runs.
package runid

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// ForTuningRun computes a deterministic run_id using SHA256.
// Formula: SHA256(owner_id|strategy_kind|created_at_ms)
// Returns hex-encoded hash (64 characters).
func ForTuningRun(ownerID, strategyKind string, createdAtMs int64) string {
	data := fmt.Sprintf("%s|%s|%d", ownerID, strategyKind, createdAtMs)
	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}
