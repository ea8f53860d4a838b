package client

import "strings"

// SearchActive reports whether query filters the board.
func SearchActive(query string) bool {
	return strings.TrimSpace(query) != ""
}

// FilterByQuery keeps entries whose title or description contains query,
// ignoring case. A blank query keeps everything.
func FilterByQuery(entries []Entry, query string) []Entry {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return entries
	}

	out := []Entry{}
	for _, e := range entries {
		if strings.Contains(strings.ToLower(e.Task.Title), q) ||
			strings.Contains(strings.ToLower(e.Task.Description), q) {
			out = append(out, e)
		}
	}
	return out
}
