package participant

import (
	"errors"
	"strings"
)

var ErrNegativeTime = errors.New("time delta must not be negative")

// Aggregate tracks running totals for one pseudo across all of its sessions.
type Aggregate struct {
	Pseudo       string  `json:"pseudo"`
	TotalScore   int     `json:"totalScore"`
	TotalTime    int     `json:"totalTime"` // seconds
	SessionCount int     `json:"sessionCount"`
	Precision    float64 `json:"precision"` // running mean, percent
}

// New returns an empty aggregate for pseudo.
func New(pseudo string) *Aggregate {
	return &Aggregate{Pseudo: strings.TrimSpace(pseudo)}
}

// RecordSession folds one graded session into the aggregate. The precision
// mean is updated incrementally, so SessionCount must only ever change here.
func (a *Aggregate) RecordSession(score int, precision float64) {
	n := float64(a.SessionCount)
	a.Precision = (a.Precision*n + precision) / (n + 1)
	a.SessionCount++
	a.TotalScore += score
}

// AddTime adds seconds spent in the study.
func (a *Aggregate) AddTime(seconds int) error {
	if seconds < 0 {
		return ErrNegativeTime
	}
	a.TotalTime += seconds
	return nil
}

// Level returns the tier reached with the current total score.
func (a *Aggregate) Level() Level {
	return LevelFor(a.TotalScore)
}
