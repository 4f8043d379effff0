package util

import (
	"fmt"
	"strconv"
	"time"
)

var layouts = []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05", "2006-01-02", "01/02/2006"}

// ParseTime accepts RFC3339, plain dates (2006-01-02 or 01/02/2006) and
// unix seconds. Dates without a zone are UTC.
func ParseTime(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	if ts, err := strconv.ParseInt(s, 10, 64); err == nil && ts > 0 {
		return time.Unix(ts, 0).UTC(), true
	}
	return time.Time{}, false
}

// ParseTimeDefault parses s or returns def if s is empty.
func ParseTimeDefault(s string, def time.Time) (time.Time, error) {
	if s == "" {
		return def, nil
	}
	t, ok := ParseTime(s)
	if !ok {
		return def, fmt.Errorf("invalid time %q", s)
	}
	return t, nil
}
