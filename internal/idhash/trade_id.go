package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"sleep-futures/internal/domain"
)

// ComputeTradeID computes a deterministic trade_id using SHA256.
// Formula: SHA256(run_id|date)
// Returns hex-encoded hash (64 characters).
func ComputeTradeID(runID string, date time.Time) string {
	data := fmt.Sprintf("%s|%s", runID, date.Format(domain.DateLayout))

	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}
