package gateway

import (
	"regexp"
	"strconv"
	"time"
)

var (
	hoursRe   = regexp.MustCompile(`(\d+)h`)
	minutesRe = regexp.MustCompile(`(\d+)m`)
	secondsRe = regexp.MustCompile(`(\d+)s`)
)

// ParseResetHint extracts a reset duration from the engine's usage text
// (e.g. "resets in 1h 30m"). Returns zero when no hint is present.
func ParseResetHint(text string) time.Duration {
	var d time.Duration
	if m := hoursRe.FindStringSubmatch(text); m != nil {
		n, _ := strconv.Atoi(m[1])
		d += time.Duration(n) * time.Hour
	}
	if m := minutesRe.FindStringSubmatch(text); m != nil {
		n, _ := strconv.Atoi(m[1])
		d += time.Duration(n) * time.Minute
	}
	if m := secondsRe.FindStringSubmatch(text); m != nil {
		n, _ := strconv.Atoi(m[1])
		d += time.Duration(n) * time.Second
	}
	return d
}
