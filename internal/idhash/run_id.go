// Package idhash derives deterministic identifiers for runs and trades.
package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"time"

	"github.com/mr-tron/base58"

	"sleep-futures/internal/config"
	"sleep-futures/internal/domain"
)

// runIDBytes is the number of hash bytes kept in a run_id.
const runIDBytes = 16

// ComputeRunID computes a deterministic run_id.
// Formula: base58(SHA256(config_fingerprint|data_digest|first_date|last_date|rows)[:16])
// The same config over the same daily table always yields the same run_id.
func ComputeRunID(configFingerprint, dataDigest string, firstDate, lastDate time.Time, rows int) string {
	data := fmt.Sprintf("%s|%s|%s|%s|%d",
		configFingerprint,
		dataDigest,
		firstDate.Format(domain.DateLayout),
		lastDate.Format(domain.DateLayout),
		rows,
	)

	hash := sha256.Sum256([]byte(data))
	return base58.Encode(hash[:runIDBytes])
}

// DataDigest returns the SHA-256 hex of every observation's date and values.
// Undefined values hash as "-".
func DataDigest(obs []*domain.DailyObservation) string {
	h := sha256.New()
	for _, o := range obs {
		if o == nil {
			continue
		}
		fmt.Fprintf(h, "%s|%s|%s|%s|%s|%s|%s|%s\n",
			o.Date.Format(domain.DateLayout),
			timeField(o.Start), timeField(o.End),
			floatField(o.DurationMinutes), floatField(o.HoursSlept),
			floatField(o.SleepEfficiency), floatField(o.BedtimeMinutes),
			floatField(o.SleepIndex),
		)
	}
	return hex.EncodeToString(h.Sum(nil))
}

func floatField(v *float64) string {
	if v == nil {
		return "-"
	}
	return strconv.FormatFloat(*v, 'g', -1, 64)
}

func timeField(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Format(time.RFC3339)
}

// ConfigFingerprint renders the parameters that change pipeline output.
// Paths and DSNs are excluded.
func ConfigFingerprint(cfg config.Config) string {
	m := cfg.Model
	return fmt.Sprintf("target=%g|mult=%g|windows=%v|test=%g|val=%g|small=%d|ann=%d|seed=%d|depth=%d|lr=%g|iter=%d|es=%d|l2=%g|sub=%g|leaf=%d",
		cfg.TargetSleepHours,
		cfg.ContractMultiplier,
		cfg.RollingWindows,
		cfg.TestSizeFraction,
		cfg.ValidationFraction,
		cfg.SmallSampleTrainRows,
		cfg.AnnualizationDays,
		m.RandomSeed,
		m.Depth,
		m.LearningRate,
		m.Iterations,
		m.EarlyStoppingRounds,
		m.L2LeafReg,
		m.Subsample,
		m.MinSamplesLeaf,
	)
}

// DecodeRunID validates a run_id and returns its hash bytes.
func DecodeRunID(runID string) ([]byte, error) {
	b, err := base58.Decode(runID)
	if err != nil {
		return nil, fmt.Errorf("decode run id: %w", err)
	}
	if len(b) != runIDBytes {
		return nil, fmt.Errorf("decode run id: got %d bytes, want %d", len(b), runIDBytes)
	}
	return b, nil
}
