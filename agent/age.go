package agent

import (
	"regexp"
	"strconv"
	"strings"
)

var ageRe = regexp.MustCompile(`(\d+)\s*(day|week|month|year)`)

// ParseAge converts LinkedIn's relative "Sent 3 weeks ago" text into days.
// ok is false when the text carries no recognisable age.
func ParseAge(text string) (days int, ok bool) {
	lower := strings.ToLower(text)

	if m := ageRe.FindStringSubmatch(lower); m != nil {
		n, err := strconv.Atoi(m[1])
		if err != nil {
			return 0, false
		}
		switch m[2] {
		case "day":
			return n, true
		case "week":
			return n * 7, true
		case "month":
			return n * 30, true
		case "year":
			return n * 365, true
		}
	}

	switch {
	case strings.Contains(lower, "yesterday"):
		return 1, true
	case strings.Contains(lower, "today"),
		strings.Contains(lower, "hour"),
		strings.Contains(lower, "minute"),
		strings.Contains(lower, "second"):
		return 0, true
	}
	return 0, false
}
