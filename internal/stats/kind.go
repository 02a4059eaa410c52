package stats

import (
	"errors"
	"fmt"
)

var (
	ErrUnknownKind   = errors.New("unknown aggregation kind")
	ErrFilterMissing = errors.New("aggregation requires a filter")
)

// Kind selects an aggregation.
type Kind int

const (
	SatisfactionByUser Kind = iota + 1
	SatisfactionByDevice
	Confusions
	GlobalSatisfaction
	PairedSatisfaction
	SatisfactionByCategory
	PerceptionByCategory
	VideoPerception
	SatisfactionDetailed
	SatisfactionByVideoDevice
	Precision
)

var kindNames = map[Kind]string{
	SatisfactionByUser:        "satisfaction-by-user",
	SatisfactionByDevice:      "satisfaction-by-device",
	Confusions:                "confusions",
	GlobalSatisfaction:        "global-satisfaction",
	PairedSatisfaction:        "paired-satisfaction",
	SatisfactionByCategory:    "satisfaction-by-category",
	PerceptionByCategory:      "perception-by-category",
	VideoPerception:           "video-perception",
	SatisfactionDetailed:      "satisfaction-detailed",
	SatisfactionByVideoDevice: "satisfaction-by-video-device",
	Precision:                 "precision",
}

// Kinds lists every aggregation kind in declaration order.
func Kinds() []Kind {
	return []Kind{
		SatisfactionByUser, SatisfactionByDevice, Confusions, GlobalSatisfaction,
		PairedSatisfaction, SatisfactionByCategory, PerceptionByCategory,
		VideoPerception, SatisfactionDetailed, SatisfactionByVideoDevice, Precision,
	}
}

func (k Kind) String() string {
	if n, ok := kindNames[k]; ok {
		return n
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// ParseKind maps a kind name back to its Kind.
func ParseKind(name string) (Kind, error) {
	for k, n := range kindNames {
		if n == name {
			return k, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownKind, name)
}

// FilterRequired reports whether the kind needs a user or video filter.
// Kinds with an optional user filter return false.
func (k Kind) FilterRequired() bool {
	switch k {
	case SatisfactionByUser, VideoPerception, SatisfactionByVideoDevice, Precision:
		return true
	}
	return false
}
