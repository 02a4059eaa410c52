package participant

// Level is a score tier shown to participants.
type Level struct {
	Name      string `json:"name"`
	Next      string `json:"next,omitempty"`
	Remaining int    `json:"remaining,omitempty"` // points until Next
}

type tier struct {
	name   string
	below  int // exclusive upper bound unless closed
	next   string
	closed bool
}

var tiers = []tier{
	{name: "beginner", below: 30, next: "amateur"},
	{name: "amateur", below: 60, next: "pro"},
	{name: "pro", below: 120, next: "legend"},
	{name: "legend", below: 200, next: "elite", closed: true},
}

// LevelFor maps a total score onto its tier. The legend tier includes 200.
func LevelFor(score int) Level {
	for _, t := range tiers {
		if score < t.below || (t.closed && score == t.below) {
			return Level{Name: t.name, Next: t.next, Remaining: t.below - score}
		}
	}
	return Level{Name: "elite"}
}
