// Package aggregate resamples ordered bars into coarser calendar-aligned buckets.
package aggregate

import (
	"fmt"
	"sort"
	"time"

	"BarView/internal/domain/models"
	domrepo "BarView/internal/domain/repository"
)

// BucketStart returns the start of the calendar-aligned bucket containing t.
//
// Buckets are anchored at midnight of t's date: the start is midnight plus
// floor(minutes_since_midnight / interval) * interval. For intervals that divide
// an hour this is the same as truncating to the hour and flooring the minute.
// The daily interval maps every bar to its calendar date. Seconds and below are dropped.
func BucketStart(t time.Time, intervalMinutes int) time.Time {
	y, mo, d := t.Date()
	if intervalMinutes >= domrepo.MinutesPerDay {
		return time.Date(y, mo, d, 0, 0, 0, 0, t.Location())
	}
	mins := t.Hour()*60 + t.Minute()
	mins = mins / intervalMinutes * intervalMinutes
	return time.Date(y, mo, d, mins/60, mins%60, 0, 0, t.Location())
}

// Aggregate folds bars into buckets of intervalMinutes and returns at most limit
// buckets, earliest first. Only buckets holding at least one bar are emitted and
// the last one may be partial.
//
// Bars are expected in ascending timestamp order; out-of-order input is sorted
// (stable) on a copy before folding.
func Aggregate(bars []models.Bar, intervalMinutes, limit int) ([]models.AggregatedBar, error) {
	if !domrepo.IsSupportedInterval(intervalMinutes) {
		return nil, fmt.Errorf("%w: %d minutes", domrepo.ErrUnsupportedTimeframe, intervalMinutes)
	}
	if limit <= 0 {
		return nil, domrepo.ErrInvalidLimit
	}
	if len(bars) == 0 {
		return []models.AggregatedBar{}, nil
	}

	if !sort.SliceIsSorted(bars, func(i, j int) bool { return bars[i].Timestamp.Before(bars[j].Timestamp) }) {
		sorted := make([]models.Bar, len(bars))
		copy(sorted, bars)
		sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Timestamp.Before(sorted[j].Timestamp) })
		bars = sorted
	}

	out := make([]models.AggregatedBar, 0, estimateBuckets(len(bars), intervalMinutes, limit))
	var cur *models.AggregatedBar
	for _, b := range bars {
		start := BucketStart(b.Timestamp, intervalMinutes)
		if cur == nil || !start.Equal(cur.PeriodStart) {
			if len(out) == limit {
				break
			}
			out = append(out, models.AggregatedBar{
				PeriodStart: start,
				Open:        b.Open,
				High:        b.High,
				Low:         b.Low,
				Close:       b.Close,
				Volume:      b.Volume,
				BarCount:    1,
			})
			cur = &out[len(out)-1]
			continue
		}
		if b.High > cur.High {
			cur.High = b.High
		}
		if b.Low < cur.Low {
			cur.Low = b.Low
		}
		cur.Close = b.Close
		cur.Volume += b.Volume
		cur.BarCount++
	}
	return out, nil
}

// AggregateTimeframe is Aggregate keyed by a named timeframe.
func AggregateTimeframe(bars []models.Bar, tf domrepo.Timeframe, limit int) ([]models.AggregatedBar, error) {
	m, ok := tf.Minutes()
	if !ok {
		return nil, fmt.Errorf("%w: %s", domrepo.ErrUnsupportedTimeframe, tf)
	}
	return Aggregate(bars, m, limit)
}

// estimateBuckets sizes the output slice assuming 1-minute source bars.
func estimateBuckets(n, intervalMinutes, limit int) int {
	est := n/intervalMinutes + 1
	if est > limit {
		return limit
	}
	return est
}
