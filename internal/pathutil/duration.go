package pathutil

import (
	"fmt"
	"strconv"
	"strings"

	rverrors "github.com/rvcli/rv/pkg/errors"
)

// ParseDuration accepts the scheduler's time-request grammar and the
// shorthand a human would type on the command line: "2h", "90m", "D-HH:MM:SS",
// "HH:MM:SS", "MM:SS", or a bare number of seconds. It returns the duration
// in seconds.
func ParseDuration(s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, rverrors.WrapParse("duration", s)
	}

	if seconds, ok := parseShorthand(s); ok {
		return seconds, nil
	}
	if seconds, ok := parseClockForm(s); ok {
		return seconds, nil
	}
	if n, err := strconv.Atoi(s); err == nil && n >= 0 {
		return n, nil
	}

	return 0, rverrors.WrapParse("duration", s)
}

// parseShorthand handles "90m", "2h", "3d" style input.
func parseShorthand(s string) (int, bool) {
	if len(s) < 2 {
		return 0, false
	}
	unit := s[len(s)-1]
	var multiplier int
	switch unit {
	case 's':
		multiplier = 1
	case 'm':
		multiplier = 60
	case 'h':
		multiplier = 3600
	case 'd':
		multiplier = 86400
	default:
		return 0, false
	}

	n, err := strconv.Atoi(s[:len(s)-1])
	if err != nil || n < 0 {
		return 0, false
	}
	return n * multiplier, true
}

// parseClockForm handles the scheduler's own "D-HH:MM:SS", "HH:MM:SS", and
// "MM:SS" formats.
func parseClockForm(s string) (int, bool) {
	days := 0
	rest := s
	if idx := strings.IndexByte(s, '-'); idx >= 0 {
		d, err := strconv.Atoi(s[:idx])
		if err != nil || d < 0 {
			return 0, false
		}
		days = d
		rest = s[idx+1:]
	}

	parts := strings.Split(rest, ":")
	var hours, minutes, seconds int
	var err error
	switch len(parts) {
	case 2:
		minutes, err = strconv.Atoi(parts[0])
		if err != nil {
			return 0, false
		}
		seconds, err = strconv.Atoi(parts[1])
		if err != nil {
			return 0, false
		}
	case 3:
		hours, err = strconv.Atoi(parts[0])
		if err != nil {
			return 0, false
		}
		minutes, err = strconv.Atoi(parts[1])
		if err != nil {
			return 0, false
		}
		seconds, err = strconv.Atoi(parts[2])
		if err != nil {
			return 0, false
		}
	default:
		return 0, false
	}

	if minutes < 0 || seconds < 0 || hours < 0 {
		return 0, false
	}

	total := days*86400 + hours*3600 + minutes*60 + seconds
	return total, true
}

// FormatSeconds renders a duration in seconds back into the scheduler's
// canonical "D-HH:MM:SS" (when days > 0) or "HH:MM:SS" form. It is the
// inverse of ParseDuration for the clock grammar: for all n in
// [0, 7*86400], ParseDuration(FormatSeconds(n)) == n.
func FormatSeconds(totalSeconds int) string {
	days := totalSeconds / 86400
	rem := totalSeconds % 86400
	hours := rem / 3600
	rem %= 3600
	minutes := rem / 60
	seconds := rem % 60

	if days > 0 {
		return fmt.Sprintf("%d-%02d:%02d:%02d", days, hours, minutes, seconds)
	}
	return fmt.Sprintf("%02d:%02d:%02d", hours, minutes, seconds)
}
