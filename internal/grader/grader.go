// Package grader scores a completed quiz session.
package grader

import (
	"github.com/perceptio/backend/internal/domain/resolution"
	"github.com/perceptio/backend/internal/domain/survey"
)

// Points awarded per slot.
const (
	ExactPoints     = 2
	NearPoints      = 1
	PreferencePoint = 1
)

// Grader grades one session record.
// Implementations must be safe for concurrent use.
type Grader interface {
	Grade(rec survey.SessionRecord) Result
}

// Result is the outcome of grading a session.
type Result struct {
	Slot1             int     `json:"slot1"`
	Slot2             int     `json:"slot2"`
	PreferencePoints  int     `json:"preferencePoints"`
	Total             int     `json:"total"`
	CorrectPreference string  `json:"correctPreference"`
	Precision         float64 `json:"precision"`
	HasPrecision      bool    `json:"hasPrecision"` // false when no slot could be classified
}

// QuizGrader grades against a resolution ladder.
type QuizGrader struct {
	ladder *resolution.Ladder
}

// Compile-time check: *QuizGrader satisfies the Grader interface.
var _ Grader = (*QuizGrader)(nil)

// New returns a grader ranking resolutions with ladder.
func New(ladder *resolution.Ladder) *QuizGrader {
	return &QuizGrader{ladder: ladder}
}

// Grade scores both resolution guesses and the stated preference. Total is
// the delta added to the participant's running score.
func (g *QuizGrader) Grade(rec survey.SessionRecord) Result {
	slots := rec.Slots()

	var res Result
	res.Slot1 = g.SlotPoints(slots[0].Resolution, slots[0].Guess)
	res.Slot2 = g.SlotPoints(slots[1].Resolution, slots[1].Guess)

	res.CorrectPreference = g.CorrectPreference(slots[0].Resolution, slots[1].Resolution)
	if res.CorrectPreference != survey.PreferUnknown &&
		survey.NormalizePreference(rec.Preference) == res.CorrectPreference {
		res.PreferencePoints = PreferencePoint
	}
	res.Total = res.Slot1 + res.Slot2 + res.PreferencePoints

	correct, total := 0, 0
	for _, s := range slots {
		p, ok := g.ladder.Classify(s.Resolution, s.Guess)
		if !ok {
			continue
		}
		total++
		if p == resolution.Correct {
			correct++
		}
	}
	if total > 0 {
		res.Precision = float64(correct) / float64(total) * 100
		res.HasPrecision = true
	}
	return res
}

// SlotPoints scores one guess: 2 for the exact resolution, 1 for a
// neighbouring rung, 0 otherwise or when either value is unknown.
func (g *QuizGrader) SlotPoints(real, guess string) int {
	d, ok := g.ladder.Distance(real, guess)
	switch {
	case !ok:
		return 0
	case d == 0:
		return ExactPoints
	case d == 1:
		return NearPoints
	default:
		return 0
	}
}

// CorrectPreference is the clip a viewer should prefer: the one shown at the
// higher resolution.
func (g *QuizGrader) CorrectPreference(res1, res2 string) string {
	i1, ok1 := g.ladder.Index(res1)
	i2, ok2 := g.ladder.Index(res2)
	switch {
	case !ok1 || !ok2:
		return survey.PreferUnknown
	case i1 > i2:
		return survey.PreferFirst
	case i2 > i1:
		return survey.PreferSecond
	default:
		return survey.PreferNone
	}
}
