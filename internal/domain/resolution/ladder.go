package resolution

import (
	"errors"
	"sort"
	"strings"
)

// DefaultOrder is the ascending resolution ladder used by the study.
var DefaultOrder = []string{"144p", "240p", "360p", "480p", "720p", "1080p", "4k"}

// Perception classifies a guessed resolution against the one actually shown.
type Perception string

const (
	Correct         Perception = "correct"
	Overestimation  Perception = "overestimation"
	Underestimation Perception = "underestimation"
)

// Ladder is an ordered set of resolutions. It is the single source of
// ordering for classification, scoring, sorting and recommendation.
type Ladder struct {
	order []string
	index map[string]int
}

// NewLadder builds a ladder from resolutions given lowest first.
func NewLadder(order []string) (*Ladder, error) {
	if len(order) == 0 {
		return nil, errors.New("resolution ladder is empty")
	}
	l := &Ladder{
		order: make([]string, 0, len(order)),
		index: make(map[string]int, len(order)),
	}
	for _, r := range order {
		key := normalize(r)
		if key == "" {
			return nil, errors.New("resolution ladder contains an empty entry")
		}
		if _, dup := l.index[key]; dup {
			return nil, errors.New("resolution ladder contains duplicate " + key)
		}
		l.index[key] = len(l.order)
		l.order = append(l.order, key)
	}
	return l, nil
}

// Default returns a ladder over DefaultOrder.
func Default() *Ladder {
	l, _ := NewLadder(DefaultOrder)
	return l
}

// Order returns a copy of the ladder, lowest first.
func (l *Ladder) Order() []string {
	out := make([]string, len(l.order))
	copy(out, l.order)
	return out
}

// Index returns the rank of r. Lookups ignore case and surrounding spaces.
func (l *Ladder) Index(r string) (int, bool) {
	i, ok := l.index[normalize(r)]
	return i, ok
}

// Contains reports whether r is on the ladder.
func (l *Ladder) Contains(r string) bool {
	_, ok := l.Index(r)
	return ok
}

// Classify compares a perceived resolution with the real one. ok is false
// when either value is not on the ladder.
func (l *Ladder) Classify(real, perceived string) (Perception, bool) {
	ri, ok := l.Index(real)
	if !ok {
		return "", false
	}
	pi, ok := l.Index(perceived)
	if !ok {
		return "", false
	}
	switch {
	case pi > ri:
		return Overestimation, true
	case pi < ri:
		return Underestimation, true
	default:
		return Correct, true
	}
}

// Distance is the absolute rank difference between a and b.
func (l *Ladder) Distance(a, b string) (int, bool) {
	ai, ok := l.Index(a)
	if !ok {
		return 0, false
	}
	bi, ok := l.Index(b)
	if !ok {
		return 0, false
	}
	if ai > bi {
		return ai - bi, true
	}
	return bi - ai, true
}

// Known keeps the resolutions that are on the ladder, deduplicated and
// sorted lowest first. Values keep their canonical ladder spelling.
func (l *Ladder) Known(rs []string) []string {
	seen := make(map[int]bool, len(rs))
	idx := make([]int, 0, len(rs))
	for _, r := range rs {
		i, ok := l.Index(r)
		if !ok || seen[i] {
			continue
		}
		seen[i] = true
		idx = append(idx, i)
	}
	sort.Ints(idx)
	out := make([]string, len(idx))
	for n, i := range idx {
		out[n] = l.order[i]
	}
	return out
}

// Sort orders rs by rank in place. Unknown values sort after known ones and
// keep their relative order.
func (l *Ladder) Sort(rs []string) {
	sort.SliceStable(rs, func(a, b int) bool {
		ai, aok := l.Index(rs[a])
		bi, bok := l.Index(rs[b])
		switch {
		case aok && bok:
			return ai < bi
		case aok:
			return true
		default:
			return false
		}
	})
}

func normalize(r string) string {
	return strings.ToLower(strings.TrimSpace(r))
}
