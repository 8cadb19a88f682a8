package util

import (
	"fmt"
	"strings"
	"time"
)

const (
	// DateLayout is the query-string date format.
	DateLayout = "2006-01-02"
	// BarTimeLayout is the canonical text form of a bar timestamp in the store.
	BarTimeLayout = "2006-01-02 15:04:05"
)

// barTimeLayouts are tried in order when parsing stored timestamps.
var barTimeLayouts = []string{
	BarTimeLayout,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04",
	"2006-01-02T15:04",
	DateLayout,
}

// Naive drops the zone of t and keeps its wall clock, expressed in UTC.
func Naive(t time.Time) time.Time {
	y, mo, d := t.Date()
	return time.Date(y, mo, d, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC)
}

// ParseBarTime parses a stored bar timestamp into a naive wall-clock time.
// Offsets (RFC3339 input) are discarded, not converted.
func ParseBarTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty timestamp")
	}
	for _, layout := range barTimeLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, nil
		}
	}
	if t, err := time.Parse(time.RFC3339Nano, strings.Replace(s, " ", "T", 1)); err == nil {
		return Naive(t), nil
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

// FormatBarTime renders t in the store's canonical layout.
func FormatBarTime(t time.Time) string {
	return t.Format(BarTimeLayout)
}

// ParseDate parses a YYYY-MM-DD calendar date.
func ParseDate(s string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, strings.TrimSpace(s), time.UTC)
}

// StartOfDay returns 00:00:00 of the date of t.
func StartOfDay(t time.Time) time.Time {
	y, mo, d := t.Date()
	return time.Date(y, mo, d, 0, 0, 0, 0, t.Location())
}

// EndOfDay returns 23:59:59 of the date of t.
func EndOfDay(t time.Time) time.Time {
	y, mo, d := t.Date()
	return time.Date(y, mo, d, 23, 59, 59, 0, t.Location())
}
