package survey

import "strings"

// Satisfaction levels, best to worst. Ratings are compared in lowercase.
const (
	VerySatisfactory = "verysatisfactory"
	Correct          = "correct"
	NotSatisfactory  = "notsatisfactory"
	Bad              = "bad"
	Unwatchable      = "unwatchable"
)

// SatisfactionLevels lists every satisfaction level, best first.
var SatisfactionLevels = []string{VerySatisfactory, Correct, NotSatisfactory, Bad, Unwatchable}

// PositiveLevels are the ratings that count as a satisfied viewer.
var PositiveLevels = []string{VerySatisfactory, Correct}

// Device classes.
const (
	DevicePC      = "pc"
	DeviceMobile  = "mobile"
	DeviceTablet  = "tablet"
	DeviceUnknown = "unknown"
)

// Devices lists the known device classes followed by the unknown sentinel.
var Devices = []string{DevicePC, DeviceTablet, DeviceMobile, DeviceUnknown}

// Preferences a participant can state between the two clips.
const (
	PreferFirst   = "first"
	PreferSecond  = "second"
	PreferNone    = "none"
	PreferUnknown = "unknown"
)

// NormalizeRating canonicalizes a satisfaction answer for counting.
func NormalizeRating(r string) string {
	return strings.ToLower(strings.TrimSpace(r))
}

// IsSatisfactionLevel reports whether r normalizes to a known level.
func IsSatisfactionLevel(r string) bool {
	n := NormalizeRating(r)
	for _, l := range SatisfactionLevels {
		if l == n {
			return true
		}
	}
	return false
}

// NormalizeDevice maps a submitted screen type onto a device class key.
// Empty values and the legacy "inconnu" marker become DeviceUnknown; other
// values are lowercased and kept so that new device classes still group.
func NormalizeDevice(d string) string {
	n := strings.ToLower(strings.TrimSpace(d))
	switch n {
	case "", "inconnu":
		return DeviceUnknown
	}
	return n
}

// NormalizePreference lowercases and trims a stated preference.
func NormalizePreference(p string) string {
	return strings.ToLower(strings.TrimSpace(p))
}
