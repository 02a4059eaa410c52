package store

import "github.com/perceptio/backend/internal/domain/survey"

// columns is the stored field order of a session record, shared by the CSV
// header and the sessions table.
var columns = []string{
	"user",
	"category1", "videoName1", "videoPath1", "resolution1",
	"category2", "videoName2", "videoPath2", "resolution2",
	"QO1", "QO2", "QO3", "QO4", "QO5",
	"comments", "screenType", "timestamp",
}

func recordFields(rec survey.SessionRecord) []string {
	return []string{
		rec.User,
		rec.Category1, rec.VideoName1, rec.VideoPath1, rec.Resolution1,
		rec.Category2, rec.VideoName2, rec.VideoPath2, rec.Resolution2,
		pairField(rec.Guesses), pairField(rec.Ratings), rec.Preference, rec.Criteria, rec.Remarks,
		rec.Comments, rec.ScreenType, survey.FormatTimestamp(rec.Timestamp),
	}
}

// recordFrom rebuilds a record from column values looked up by name.
// Answer pairs are parsed here so nothing downstream handles the raw
// "(a, b)" strings. Missing categories and names come from the paths.
func recordFrom(get func(column string) string) survey.SessionRecord {
	rec := survey.SessionRecord{
		User:        get("user"),
		Category1:   get("category1"),
		VideoName1:  get("videoName1"),
		VideoPath1:  get("videoPath1"),
		Resolution1: get("resolution1"),
		Category2:   get("category2"),
		VideoName2:  get("videoName2"),
		VideoPath2:  get("videoPath2"),
		Resolution2: get("resolution2"),
		Guesses:     survey.ParsePair(get("QO1")),
		Ratings:     survey.ParsePair(get("QO2")),
		Preference:  get("QO3"),
		Criteria:    get("QO4"),
		Remarks:     get("QO5"),
		Comments:    get("comments"),
		ScreenType:  get("screenType"),
		Timestamp:   survey.ParseTimestamp(get("timestamp")),
	}
	rec.FillFromPaths()
	return rec
}

func pairField(p survey.AnswerPair) string {
	if p.IsEmpty() {
		return ""
	}
	return p.String()
}
