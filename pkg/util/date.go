package util

import (
	"strings"
	"time"
)

// DayLayout is the calendar date layout of exported series.
const DayLayout = "2006-01-02"

// MidnightSuffix is the literal time part appended to dates by the exporter.
const MidnightSuffix = "T00:00:00.000Z"

// ParseDay strips MidnightSuffix if present and parses the rest as a UTC
// calendar date. Any other time part makes the value unparsable.
func ParseDay(s string) (time.Time, bool) {
	s = strings.TrimSuffix(strings.TrimSpace(s), MidnightSuffix)
	if s == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(DayLayout, s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
