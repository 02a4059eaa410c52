package survey

import (
	"strings"
	"time"
)

// TimestampLayout is the stored timestamp format (UTC, millisecond precision).
const TimestampLayout = "2006-01-02T15:04:05.000Z07:00"

// SessionRecord is one completed viewing of a pair of clips. Records are
// append-only.
type SessionRecord struct {
	User        string     `json:"user"`
	Category1   string     `json:"category1"`
	VideoName1  string     `json:"videoName1"`
	VideoPath1  string     `json:"videoPath1"`
	Resolution1 string     `json:"resolution1"`
	Category2   string     `json:"category2"`
	VideoName2  string     `json:"videoName2"`
	VideoPath2  string     `json:"videoPath2"`
	Resolution2 string     `json:"resolution2"`
	Guesses     AnswerPair `json:"QO1"`
	Ratings     AnswerPair `json:"QO2"`
	Preference  string     `json:"QO3"`
	Criteria    string     `json:"QO4"`
	Remarks     string     `json:"QO5"`
	Comments    string     `json:"comments"`
	ScreenType  string     `json:"screenType"`
	Timestamp   time.Time  `json:"timestamp"`
}

// Slot is one of the two clips of a record seen through its answers.
type Slot struct {
	Category   string
	VideoPath  string
	Resolution string
	Guess      string
	Rating     string
}

// Slots returns both clips of the record, first clip first.
func (r *SessionRecord) Slots() [2]Slot {
	return [2]Slot{
		{
			Category:   strings.TrimSpace(r.Category1),
			VideoPath:  r.VideoPath1,
			Resolution: strings.TrimSpace(r.Resolution1),
			Guess:      strings.TrimSpace(r.Guesses.First),
			Rating:     strings.TrimSpace(r.Ratings.First),
		},
		{
			Category:   strings.TrimSpace(r.Category2),
			VideoPath:  r.VideoPath2,
			Resolution: strings.TrimSpace(r.Resolution2),
			Guess:      strings.TrimSpace(r.Guesses.Second),
			Rating:     strings.TrimSpace(r.Ratings.Second),
		},
	}
}

// Device returns the normalized device class of the record.
func (r *SessionRecord) Device() string {
	return NormalizeDevice(r.ScreenType)
}

// IsUser reports whether the record belongs to user, ignoring case.
func (r *SessionRecord) IsUser(user string) bool {
	return strings.EqualFold(strings.TrimSpace(r.User), strings.TrimSpace(user))
}

// FormatTimestamp renders t in TimestampLayout.
func FormatTimestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(TimestampLayout)
}

// ParseTimestamp reads a stored timestamp. Unparseable values yield the zero
// time.
func ParseTimestamp(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}
	}
	return t.UTC()
}

// Submission is a quiz answer set as sent by the browser.
type Submission struct {
	User        string
	VideoPath1  string
	Resolution1 string
	VideoPath2  string
	Resolution2 string
	QO1         string
	QO2         string
	QO3         string
	QO4         string
	QO5         string
	Comments    string
	ScreenType  string
}

// FillFromPaths derives missing categories and video names from the video
// paths. Fields already set are left alone.
func (r *SessionRecord) FillFromPaths() {
	fill := func(path string, category, name *string) {
		if path == "" || (*category != "" && *name != "") {
			return
		}
		c, n := ParseVideoPath(path)
		if *category == "" {
			*category = c
		}
		if *name == "" {
			*name = n
		}
	}
	fill(r.VideoPath1, &r.Category1, &r.VideoName1)
	fill(r.VideoPath2, &r.Category2, &r.VideoName2)
}

// Record turns a submission into the record that gets stored. Paths are
// percent-decoded and category and video name are derived from them.
func (s Submission) Record(now time.Time) SessionRecord {
	path1 := Unescape(strings.TrimSpace(s.VideoPath1))
	path2 := Unescape(strings.TrimSpace(s.VideoPath2))
	cat1, name1 := ParseVideoPath(path1)
	cat2, name2 := ParseVideoPath(path2)

	return SessionRecord{
		User:        strings.TrimSpace(s.User),
		Category1:   cat1,
		VideoName1:  name1,
		VideoPath1:  path1,
		Resolution1: strings.TrimSpace(s.Resolution1),
		Category2:   cat2,
		VideoName2:  name2,
		VideoPath2:  path2,
		Resolution2: strings.TrimSpace(s.Resolution2),
		Guesses:     ParsePair(s.QO1),
		Ratings:     ParsePair(s.QO2),
		Preference:  strings.TrimSpace(s.QO3),
		Criteria:    strings.TrimSpace(s.QO4),
		Remarks:     strings.TrimSpace(s.QO5),
		Comments:    strings.TrimSpace(s.Comments),
		ScreenType:  NormalizeDevice(s.ScreenType),
		Timestamp:   now.UTC(),
	}
}
