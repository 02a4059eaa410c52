// Package recommend picks a playback resolution from observed satisfaction.
package recommend

import (
	"strings"

	"github.com/perceptio/backend/internal/domain/resolution"
	"github.com/perceptio/backend/internal/domain/survey"
	"github.com/perceptio/backend/internal/stats"
)

const (
	DefaultThreshold   = 0.70
	DefaultSafeCeiling = "1080p"
)

// Policy selects the lowest resolution viewers on a device are satisfied
// with.
type Policy struct {
	Ladder      *resolution.Ladder
	Threshold   float64 // share of positive ratings a resolution needs
	SafeCeiling string  // fallback upper bound when nothing qualifies
}

// DefaultPolicy returns a policy with the default threshold and ceiling.
func DefaultPolicy(ladder *resolution.Ladder) Policy {
	return Policy{Ladder: ladder, Threshold: DefaultThreshold, SafeCeiling: DefaultSafeCeiling}
}

// Recommend walks the candidates lowest first and returns the first one whose
// positive ratings on device reach the threshold. Without a qualifying
// resolution it returns the highest candidate at or below the safe ceiling,
// or else the lowest candidate. ok is false when no candidate is on the
// ladder.
func (p Policy) Recommend(counts stats.DeviceCounts, device string, candidates []string) (string, bool) {
	known := p.Ladder.Known(candidates)
	if len(known) == 0 {
		return "", false
	}
	device = survey.NormalizeDevice(device)

	for _, r := range known {
		if p.qualifies(lookup(counts, r, device)) {
			return r, true
		}
	}

	ceiling, hasCeiling := p.Ladder.Index(p.SafeCeiling)
	if hasCeiling {
		for i := len(known) - 1; i >= 0; i-- {
			if idx, _ := p.Ladder.Index(known[i]); idx <= ceiling {
				return known[i], true
			}
		}
	}
	return known[0], true
}

// PositiveShare returns the share of positive ratings in c and the total
// number of ratings.
func PositiveShare(c stats.Counts) (float64, int) {
	total := c.Total()
	if total == 0 {
		return 0, 0
	}
	positive := 0
	for _, level := range survey.PositiveLevels {
		positive += c[level]
	}
	return float64(positive) / float64(total), total
}

func (p Policy) qualifies(c stats.Counts) bool {
	share, total := PositiveShare(c)
	return total > 0 && share >= p.Threshold
}

// lookup sums the counts for r on device. Stored resolution keys may differ
// from the ladder spelling in case or padding.
func lookup(counts stats.DeviceCounts, r, device string) stats.Counts {
	merged := stats.Counts{}
	for key, byDevice := range counts {
		if !strings.EqualFold(strings.TrimSpace(key), r) {
			continue
		}
		for level, n := range byDevice[device] {
			merged[level] += n
		}
	}
	return merged
}
