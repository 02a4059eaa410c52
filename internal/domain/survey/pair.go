package survey

import "strings"

// AnswerPair holds one quiz answer per slot: slot 1 is the first clip shown,
// slot 2 the second. It is stored as "(first, second)".
type AnswerPair struct {
	First  string
	Second string
}

var pairCutset = strings.NewReplacer("(", "", ")", "", "\r", "", "\n", "")

// ParsePair decodes "(a, b)". Missing parentheses, a single element or an
// empty string leave the corresponding slots empty; elements past the second
// are ignored.
func ParsePair(s string) AnswerPair {
	parts := strings.Split(pairCutset.Replace(s), ",")
	var p AnswerPair
	p.First = strings.TrimSpace(parts[0])
	if len(parts) > 1 {
		p.Second = strings.TrimSpace(parts[1])
	}
	return p
}

// String renders the pair in its stored form.
func (p AnswerPair) String() string {
	return "(" + strings.TrimSpace(p.First) + ", " + strings.TrimSpace(p.Second) + ")"
}

// Slot returns the answer for slot 0 or 1.
func (p AnswerPair) Slot(i int) string {
	if i == 0 {
		return p.First
	}
	return p.Second
}

// IsEmpty reports whether neither slot has an answer.
func (p AnswerPair) IsEmpty() bool {
	return p.First == "" && p.Second == ""
}

func (p AnswerPair) MarshalText() ([]byte, error) {
	if p.IsEmpty() {
		return []byte{}, nil
	}
	return []byte(p.String()), nil
}

func (p *AnswerPair) UnmarshalText(b []byte) error {
	*p = ParsePair(string(b))
	return nil
}
