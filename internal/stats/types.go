package stats

// Counts maps a satisfaction level to the number of slots rated with it.
type Counts map[string]int

// Total sums all levels.
func (c Counts) Total() int {
	n := 0
	for _, v := range c {
		n += v
	}
	return n
}

// ResolutionCounts groups satisfaction counts by resolution.
type ResolutionCounts map[string]Counts

// DeviceCounts groups satisfaction counts by resolution, then device.
type DeviceCounts map[string]map[string]Counts

// CategoryCounts groups satisfaction counts by content category.
type CategoryCounts map[string]Counts

// DetailedCounts groups satisfaction counts by device, category, then resolution.
type DetailedCounts map[string]map[string]map[string]Counts

// SlotCounts groups a user's satisfaction counts by slot ("video1",
// "video2"), then resolution.
type SlotCounts map[string]ResolutionCounts

// Slot keys used by SlotCounts.
const (
	SlotVideo1 = "video1"
	SlotVideo2 = "video2"
)

// Confusion is a real resolution mistaken for another one.
type Confusion struct {
	Pair  string `json:"pair"`
	Count int    `json:"count"`
}

// PerceptionTally counts how guesses compared with the real resolution.
// Total is the number of classified slots.
type PerceptionTally struct {
	Correct         int `json:"correct"`
	Overestimation  int `json:"overestimation"`
	Underestimation int `json:"underestimation"`
	Total           int `json:"total"`
}

// PerceptionBreakdown groups perception tallies by a key (category or real
// resolution).
type PerceptionBreakdown map[string]*PerceptionTally

// PairSide is one resolution of a pair with the ratings it received.
type PairSide struct {
	Name   string `json:"name"`
	Counts Counts `json:"counts"`
}

// PairedDistribution holds ratings for both sides of a resolution pair,
// lower resolution first.
type PairedDistribution struct {
	Lower  PairSide `json:"res1"`
	Higher PairSide `json:"res2"`
}

// PairedCounts is keyed by "lower-higher".
type PairedCounts map[string]*PairedDistribution

// Dashboard bundles every unfiltered aggregation over one snapshot.
type Dashboard struct {
	Records                int                 `json:"records"`
	GlobalSatisfaction     ResolutionCounts    `json:"globalSatisfaction"`
	SatisfactionByDevice   DeviceCounts        `json:"satisfactionByDevice"`
	Confusions             []Confusion         `json:"confusions"`
	PairedSatisfaction     PairedCounts        `json:"pairedSatisfaction"`
	SatisfactionByCategory CategoryCounts      `json:"satisfactionByCategory"`
	PerceptionByCategory   PerceptionBreakdown `json:"perceptionByCategory"`
	SatisfactionDetailed   DetailedCounts      `json:"satisfactionDetailed"`
}
