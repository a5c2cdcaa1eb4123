package collector

import "strings"

// blobScheme marks object URLs that only live as long as the page does.
const blobScheme = "blob:"

// Filter decides whether a candidate string is a media URL worth keeping.
type Filter struct {
	// Markers are substrings of which at least one must appear, e.g. ".mp4".
	Markers []string

	// RejectBlob drops blob: URLs.
	RejectBlob bool
}

// Accept reports whether s passes the filter. Matching is case-sensitive.
func (f Filter) Accept(s string) bool {
	if s == "" {
		return false
	}
	if f.RejectBlob && strings.HasPrefix(strings.TrimSpace(s), blobScheme) {
		return false
	}
	for _, m := range f.Markers {
		if m != "" && strings.Contains(s, m) {
			return true
		}
	}
	return false
}
