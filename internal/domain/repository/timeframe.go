package repository

import (
	"fmt"
	"strings"
)

// Timeframe is the resolution requested by a client.
type Timeframe string

const (
	TFRaw    Timeframe = "raw"
	TF1Min   Timeframe = "1min"
	TF5Min   Timeframe = "5min"
	TF15Min  Timeframe = "15min"
	TF30Min  Timeframe = "30min"
	TF60Min  Timeframe = "60min"
	TF120Min Timeframe = "120min"
	TF240Min Timeframe = "240min"
	TF1Day   Timeframe = "1day"
)

// MinutesPerDay is the interval of the daily timeframe.
const MinutesPerDay = 1440

var timeframeMinutes = map[Timeframe]int{
	TF1Min:   1,
	TF5Min:   5,
	TF15Min:  15,
	TF30Min:  30,
	TF60Min:  60,
	TF120Min: 120,
	TF240Min: 240,
	TF1Day:   MinutesPerDay,
}

var orderedTimeframes = []Timeframe{TFRaw, TF1Min, TF5Min, TF15Min, TF30Min, TF60Min, TF120Min, TF240Min, TF1Day}

// IsValidTimeframe returns true if tf is a supported timeframe, raw included.
func IsValidTimeframe(tf Timeframe) bool {
	if tf == TFRaw {
		return true
	}
	_, ok := timeframeMinutes[tf]
	return ok
}

// IsRaw reports whether tf requests unaggregated bars.
func (tf Timeframe) IsRaw() bool { return tf == TFRaw }

// Minutes returns the bucket width of an aggregated timeframe.
func (tf Timeframe) Minutes() (int, bool) {
	m, ok := timeframeMinutes[tf]
	return m, ok
}

// DefaultTimeframe returns the default timeframe.
func DefaultTimeframe() Timeframe { return TF1Min }

// ParseTimeframe validates s. Empty input yields the default timeframe.
func ParseTimeframe(s string) (Timeframe, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return DefaultTimeframe(), nil
	}
	tf := Timeframe(s)
	if !IsValidTimeframe(tf) {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedTimeframe, s)
	}
	return tf, nil
}

// NormalizeTimeframe converts raw string to a valid timeframe (or default).
func NormalizeTimeframe(s string) Timeframe {
	tf, err := ParseTimeframe(s)
	if err != nil {
		return DefaultTimeframe()
	}
	return tf
}

// SupportedTimeframes lists every accepted timeframe name.
func SupportedTimeframes() []string {
	out := make([]string, len(orderedTimeframes))
	for i, tf := range orderedTimeframes {
		out[i] = string(tf)
	}
	return out
}

// IsSupportedInterval reports whether minutes is an aggregation width.
func IsSupportedInterval(minutes int) bool {
	for _, m := range timeframeMinutes {
		if m == minutes {
			return true
		}
	}
	return false
}
