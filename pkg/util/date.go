package util

import (
	"strconv"
	"strings"
	"time"
)

const (
	// DayFormat is the canonical session-date layout.
	DayFormat = "2006-01-02"

	// compactTimestamp is the layout some news feeds use (20240110T153000).
	compactTimestamp = "20060102T150405"
)

// ParseTime tries RFC3339, RFC3339Nano, compact feed timestamps, plain dates,
// and unix seconds. Returns (t, true) if any worked.
func ParseTime(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, true
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, true
	}
	if t, err := time.Parse(time.RFC1123Z, s); err == nil {
		return t, true
	}
	if t, err := time.Parse(time.RFC1123, s); err == nil {
		return t, true
	}
	if t, err := time.Parse(compactTimestamp, s); err == nil {
		return t.UTC(), true
	}
	if t, err := time.Parse(DayFormat, s); err == nil {
		return t, true
	}
	if ts, err := strconv.ParseInt(s, 10, 64); err == nil && ts > 0 {
		return time.Unix(ts, 0), true
	}
	return time.Time{}, false
}

// ParseTimeDefault parses time or returns default if empty/invalid.
func ParseTimeDefault(s string, def time.Time) time.Time {
	if t, ok := ParseTime(s); ok {
		return t
	}
	return def
}

// ParseDay parses a session date in YYYY-MM-DD form.
func ParseDay(s string) (time.Time, bool) {
	t, err := time.Parse(DayFormat, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// DayKey formats t as its UTC calendar day. Sentiment results are memoized
// on this key so a ticker is classified at most once per day.
func DayKey(t time.Time) string {
	return t.UTC().Format(DayFormat)
}

// TruncateDay drops the time-of-day component in UTC.
func TruncateDay(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}
