package timeline

import (
	"strconv"
	"strings"
)

// ParseClock parses a game-clock string ("11:32", "0:04.8", "45.2") into
// remaining whole seconds.
//
// Returns (seconds, true) on success. Returns (0, false) for anything it
// cannot parse; callers treat an unparsable clock as 0 remaining seconds so
// the play sorts LAST within its period. This is a documented contract of the
// pipeline, not a silent repair: the raw string is preserved upstream and the
// ordering policy is applied consistently by the partitioner and assembler.
func ParseClock(raw string) (int, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, false
	}

	// "MM:SS" or "MM:SS.t"
	if i := strings.IndexByte(s, ':'); i >= 0 {
		mins, err := strconv.Atoi(s[:i])
		if err != nil || mins < 0 {
			return 0, false
		}
		secs, ok := parseSeconds(s[i+1:])
		if !ok || secs >= 60 {
			return 0, false
		}
		return mins*60 + secs, true
	}

	// Bare seconds, possibly fractional ("45.2").
	secs, ok := parseSeconds(s)
	if !ok {
		return 0, false
	}
	return secs, true
}

// parseSeconds parses "SS" or "SS.t", truncating fractions.
func parseSeconds(s string) (int, bool) {
	if i := strings.IndexByte(s, '.'); i >= 0 {
		s = s[:i]
	}
	if s == "" {
		return 0, false
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}
