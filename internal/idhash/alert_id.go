// Package idhash derives deterministic identifiers for emitted events.
package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"pairscan/internal/domain"
)

// AlertEventID computes a deterministic alert identifier using SHA256.
// Formula: SHA256(profile|chain|address|timestamp_ms)
// Returns hex-encoded hash (64 characters). Receivers can use it to
// deduplicate redelivered alerts.
func AlertEventID(profile string, pair domain.PairID, timestampMs int64) string {
	data := fmt.Sprintf("%s|%s|%s|%d",
		profile,
		pair.Chain,
		pair.Address,
		timestampMs,
	)

	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}
