// Package stats folds session records into grouped count tables.
//
// Every aggregation is a pure, single-pass function of the record slice it is
// given: rows missing the fields an aggregation needs are skipped, never
// reported as errors, and the same input always yields the same output.
// Resolution ranking comes from the injected ladder; satisfaction ratings and
// device classes are lowercased before counting.
package stats

import (
	"fmt"
	"sort"
	"strings"

	"github.com/perceptio/backend/internal/domain/resolution"
	"github.com/perceptio/backend/internal/domain/survey"
)

// ConfusionSeparator joins the real and perceived resolution of a confusion.
const ConfusionSeparator = " → "

// Engine runs aggregations against a resolution ladder.
type Engine struct {
	ladder *resolution.Ladder
}

// NewEngine returns an engine ranking resolutions with ladder.
func NewEngine(ladder *resolution.Ladder) *Engine {
	return &Engine{ladder: ladder}
}

// Ladder returns the ladder the engine ranks with.
func (e *Engine) Ladder() *resolution.Ladder {
	return e.ladder
}

// Compute runs the aggregation selected by kind. filter is the user name or
// video name for kinds that take one.
func (e *Engine) Compute(kind Kind, filter string, recs []survey.SessionRecord) (any, error) {
	if kind.FilterRequired() && strings.TrimSpace(filter) == "" {
		return nil, fmt.Errorf("%w: %s", ErrFilterMissing, kind)
	}

	switch kind {
	case SatisfactionByUser:
		return e.SatisfactionByUser(recs, filter), nil
	case SatisfactionByDevice:
		return e.SatisfactionByDevice(recs, filter), nil
	case Confusions:
		return e.Confusions(recs, filter), nil
	case GlobalSatisfaction:
		return e.GlobalSatisfaction(recs), nil
	case PairedSatisfaction:
		return e.PairedSatisfaction(recs), nil
	case SatisfactionByCategory:
		return e.SatisfactionByCategory(recs), nil
	case PerceptionByCategory:
		return e.PerceptionByCategory(recs), nil
	case VideoPerception:
		return e.VideoPerception(recs, filter), nil
	case SatisfactionDetailed:
		return e.SatisfactionDetailed(recs), nil
	case SatisfactionByVideoDevice:
		return e.SatisfactionByVideoDevice(recs, filter), nil
	case Precision:
		return e.Precision(recs, filter), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownKind, kind)
	}
}

// SatisfactionByUser counts one user's ratings per slot and resolution.
func (e *Engine) SatisfactionByUser(recs []survey.SessionRecord, user string) SlotCounts {
	out := SlotCounts{}
	for i := range recs {
		rec := &recs[i]
		if !rec.IsUser(user) {
			continue
		}
		for n, s := range rec.Slots() {
			if s.Resolution == "" || s.Rating == "" {
				continue
			}
			key := SlotVideo1
			if n == 1 {
				key = SlotVideo2
			}
			slot, ok := out[key]
			if !ok {
				slot = ResolutionCounts{}
				out[key] = slot
			}
			countIn(slot, s.Resolution, s.Rating)
		}
	}
	return out
}

// SatisfactionByDevice counts ratings per resolution and device. An empty
// user aggregates every record.
func (e *Engine) SatisfactionByDevice(recs []survey.SessionRecord, user string) DeviceCounts {
	out := DeviceCounts{}
	for i := range recs {
		rec := &recs[i]
		if user != "" && !rec.IsUser(user) {
			continue
		}
		device := rec.Device()
		for _, s := range rec.Slots() {
			if s.Resolution == "" || s.Rating == "" {
				continue
			}
			byDevice, ok := out[s.Resolution]
			if !ok {
				byDevice = map[string]Counts{}
				out[s.Resolution] = byDevice
			}
			countIn(byDevice, device, s.Rating)
		}
	}
	return out
}

// Confusions lists real/perceived resolution pairs that differ, most
// frequent first. An empty user aggregates every record.
func (e *Engine) Confusions(recs []survey.SessionRecord, user string) []Confusion {
	counts := map[string]int{}
	for i := range recs {
		rec := &recs[i]
		if user != "" && !rec.IsUser(user) {
			continue
		}
		for _, s := range rec.Slots() {
			if s.Resolution == "" || s.Guess == "" || strings.EqualFold(s.Resolution, s.Guess) {
				continue
			}
			counts[s.Resolution+ConfusionSeparator+s.Guess]++
		}
	}
	return FormatConfusions(counts)
}

// FormatConfusions turns a pair → count map into a list sorted by count,
// descending. Ties are ordered by pair.
func FormatConfusions(counts map[string]int) []Confusion {
	out := make([]Confusion, 0, len(counts))
	for pair, n := range counts {
		out = append(out, Confusion{Pair: pair, Count: n})
	}
	sort.Slice(out, func(a, b int) bool {
		if out[a].Count != out[b].Count {
			return out[a].Count > out[b].Count
		}
		return out[a].Pair < out[b].Pair
	})
	return out
}

// GlobalSatisfaction counts ratings per resolution across all records.
func (e *Engine) GlobalSatisfaction(recs []survey.SessionRecord) ResolutionCounts {
	out := ResolutionCounts{}
	for i := range recs {
		for _, s := range recs[i].Slots() {
			if s.Resolution == "" || s.Rating == "" {
				continue
			}
			countIn(out, s.Resolution, s.Rating)
		}
	}
	return out
}

// PairedSatisfaction counts ratings for each pair of resolutions shown
// together, split by the lower and the higher side of the pair.
func (e *Engine) PairedSatisfaction(recs []survey.SessionRecord) PairedCounts {
	out := PairedCounts{}
	for i := range recs {
		slots := recs[i].Slots()
		a, b := slots[0], slots[1]
		if a.Resolution == "" || b.Resolution == "" || a.Rating == "" || b.Rating == "" {
			continue
		}
		ai, ok := e.ladder.Index(a.Resolution)
		if !ok {
			continue
		}
		bi, ok := e.ladder.Index(b.Resolution)
		if !ok {
			continue
		}
		lower, higher := a, b
		if ai > bi {
			lower, higher = b, a
		}

		key := lower.Resolution + "-" + higher.Resolution
		dist, ok := out[key]
		if !ok {
			dist = &PairedDistribution{
				Lower:  PairSide{Name: lower.Resolution, Counts: Counts{}},
				Higher: PairSide{Name: higher.Resolution, Counts: Counts{}},
			}
			out[key] = dist
		}
		dist.Lower.Counts[survey.NormalizeRating(lower.Rating)]++
		dist.Higher.Counts[survey.NormalizeRating(higher.Rating)]++
	}
	return out
}

// SatisfactionByCategory counts ratings per content category.
func (e *Engine) SatisfactionByCategory(recs []survey.SessionRecord) CategoryCounts {
	out := CategoryCounts{}
	for i := range recs {
		for _, s := range recs[i].Slots() {
			if s.Category == "" || s.Rating == "" {
				continue
			}
			countIn(out, s.Category, s.Rating)
		}
	}
	return out
}

// PerceptionByCategory classifies resolution guesses per content category.
func (e *Engine) PerceptionByCategory(recs []survey.SessionRecord) PerceptionBreakdown {
	out := PerceptionBreakdown{}
	for i := range recs {
		for _, s := range recs[i].Slots() {
			if s.Category == "" || s.Resolution == "" || s.Guess == "" {
				continue
			}
			e.tally(out, s.Category, s.Resolution, s.Guess)
		}
	}
	return out
}

// VideoPerception classifies resolution guesses for one video, keyed by the
// real resolution. The video is matched on the decoded name derived from
// each slot's storage path.
func (e *Engine) VideoPerception(recs []survey.SessionRecord, video string) PerceptionBreakdown {
	target := survey.Unescape(strings.TrimSpace(video))
	out := PerceptionBreakdown{}
	for i := range recs {
		for _, s := range recs[i].Slots() {
			if s.VideoPath == "" || s.Resolution == "" || s.Guess == "" {
				continue
			}
			if survey.VideoName(s.VideoPath) != target {
				continue
			}
			e.tally(out, s.Resolution, s.Resolution, s.Guess)
		}
	}
	return out
}

// SatisfactionDetailed counts ratings per device, category and resolution.
func (e *Engine) SatisfactionDetailed(recs []survey.SessionRecord) DetailedCounts {
	out := DetailedCounts{}
	for i := range recs {
		rec := &recs[i]
		device := rec.Device()
		for _, s := range rec.Slots() {
			if s.Category == "" || s.Resolution == "" || s.Rating == "" {
				continue
			}
			byCategory, ok := out[device]
			if !ok {
				byCategory = map[string]map[string]Counts{}
				out[device] = byCategory
			}
			byResolution, ok := byCategory[s.Category]
			if !ok {
				byResolution = map[string]Counts{}
				byCategory[s.Category] = byResolution
			}
			countIn(byResolution, s.Resolution, s.Rating)
		}
	}
	return out
}

// SatisfactionByVideoDevice counts ratings per resolution and device for one
// video, matched like VideoPerception.
func (e *Engine) SatisfactionByVideoDevice(recs []survey.SessionRecord, video string) DeviceCounts {
	target := survey.Unescape(strings.TrimSpace(video))
	out := DeviceCounts{}
	for i := range recs {
		rec := &recs[i]
		device := rec.Device()
		for _, s := range rec.Slots() {
			if s.VideoPath == "" || s.Resolution == "" || s.Rating == "" {
				continue
			}
			if survey.VideoName(s.VideoPath) != target {
				continue
			}
			byDevice, ok := out[s.Resolution]
			if !ok {
				byDevice = map[string]Counts{}
				out[s.Resolution] = byDevice
			}
			countIn(byDevice, device, s.Rating)
		}
	}
	return out
}

// Precision is the percentage of a user's resolution guesses that match the
// resolution shown. Slots where either value is off the ladder are ignored;
// no usable slot yields 0.
func (e *Engine) Precision(recs []survey.SessionRecord, user string) float64 {
	correct, total := 0, 0
	for i := range recs {
		rec := &recs[i]
		if !rec.IsUser(user) {
			continue
		}
		c, t := e.SlotAccuracy(rec)
		correct += c
		total += t
	}
	return percent(correct, total)
}

// SlotAccuracy returns how many of the record's classifiable slots were
// guessed exactly, and how many slots were classifiable.
func (e *Engine) SlotAccuracy(rec *survey.SessionRecord) (correct, total int) {
	for _, s := range rec.Slots() {
		p, ok := e.ladder.Classify(s.Resolution, s.Guess)
		if !ok {
			continue
		}
		total++
		if p == resolution.Correct {
			correct++
		}
	}
	return correct, total
}

func (e *Engine) tally(out PerceptionBreakdown, key, real, perceived string) {
	p, ok := e.ladder.Classify(real, perceived)
	if !ok {
		return
	}
	t, found := out[key]
	if !found {
		t = &PerceptionTally{}
		out[key] = t
	}
	t.Total++
	switch p {
	case resolution.Correct:
		t.Correct++
	case resolution.Overestimation:
		t.Overestimation++
	case resolution.Underestimation:
		t.Underestimation++
	}
}

func countIn[M ~map[string]Counts](m M, key, rating string) {
	c, ok := m[key]
	if !ok {
		c = Counts{}
		m[key] = c
	}
	c[survey.NormalizeRating(rating)]++
}

func percent(part, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(part) / float64(total) * 100
}
