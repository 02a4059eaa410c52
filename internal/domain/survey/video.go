package survey

import (
	"net/url"
	"strings"
)

// ParseVideoPath derives the category and video name from a storage path of
// the form ".../<category>/<video>/<file>". Both segments are percent-decoded.
func ParseVideoPath(path string) (category, videoName string) {
	if path == "" {
		return "", ""
	}
	parts := strings.Split(path, "/")
	if n := len(parts); n >= 2 {
		videoName = Unescape(parts[n-2])
	}
	if n := len(parts); n >= 3 {
		category = Unescape(parts[n-3])
	}
	return category, videoName
}

// VideoName is ParseVideoPath without the category.
func VideoName(path string) string {
	_, name := ParseVideoPath(path)
	return name
}

// Unescape percent-decodes s, returning it unchanged when it is not valid
// percent-encoding.
func Unescape(s string) string {
	d, err := url.PathUnescape(s)
	if err != nil {
		return s
	}
	return d
}
