package aggregate

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"BarView/internal/domain/models"
	domrepo "BarView/internal/domain/repository"
)

func ts(s string) time.Time {
	t, err := time.Parse("2006-01-02 15:04:05", s)
	if err != nil {
		panic(err)
	}
	return t
}

func bar(at string, o, h, l, c float64, v int64) models.Bar {
	return models.Bar{Timestamp: ts(at), Open: o, High: h, Low: l, Close: c, Volume: v}
}

// minuteBars builds n one-minute bars starting at from with a deterministic price walk.
func minuteBars(from string, n int) []models.Bar {
	start := ts(from)
	out := make([]models.Bar, n)
	price := 100.0
	for i := 0; i < n; i++ {
		step := float64((i*7)%5) - 2
		o := price
		c := price + step
		h := o + 1.5
		if c+1.5 > h {
			h = c + 1.5
		}
		l := o - 1.25
		if c-1.25 < l {
			l = c - 1.25
		}
		out[i] = models.Bar{Timestamp: start.Add(time.Duration(i) * time.Minute), Open: o, High: h, Low: l, Close: c, Volume: int64(i%9 + 1)}
		price = c
	}
	return out
}

func TestBucketStartBoundary(t *testing.T) {
	assert.Equal(t, ts("2024-03-05 10:00:00"), BucketStart(ts("2024-03-05 10:14:59"), 15))
	assert.Equal(t, ts("2024-03-05 10:15:00"), BucketStart(ts("2024-03-05 10:15:00"), 15))
	assert.Equal(t, ts("2024-03-05 10:00:00"), BucketStart(ts("2024-03-05 10:07:00"), 15))
}

func TestBucketStartLongIntervals(t *testing.T) {
	tests := []struct {
		at       string
		interval int
		want     string
	}{
		{"2024-03-05 10:59:00", 60, "2024-03-05 10:00:00"},
		{"2024-03-05 11:30:00", 120, "2024-03-05 10:00:00"},
		{"2024-03-05 09:59:59", 120, "2024-03-05 08:00:00"},
		{"2024-03-05 03:59:00", 240, "2024-03-05 00:00:00"},
		{"2024-03-05 15:01:00", 240, "2024-03-05 12:00:00"},
		{"2024-03-05 23:59:59", 1440, "2024-03-05 00:00:00"},
	}
	for _, tt := range tests {
		t.Run(tt.at, func(t *testing.T) {
			assert.Equal(t, ts(tt.want), BucketStart(ts(tt.at), tt.interval))
		})
	}
}

func TestAggregateSingleBarBoundary(t *testing.T) {
	got, err := Aggregate([]models.Bar{bar("2024-01-01 10:14:59", 1, 2, 0.5, 1.5, 3)}, 15, 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, ts("2024-01-01 10:00:00"), got[0].PeriodStart)

	got, err = Aggregate([]models.Bar{bar("2024-01-01 10:15:00", 1, 2, 0.5, 1.5, 3)}, 15, 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, ts("2024-01-01 10:15:00"), got[0].PeriodStart)
}

func TestAggregateOHLCV(t *testing.T) {
	bars := []models.Bar{
		bar("2024-01-01 10:01:00", 10, 11, 9, 10.5, 100),
		bar("2024-01-01 10:02:00", 10.5, 13, 10, 12, 50),
		bar("2024-01-01 10:03:00", 12, 12.5, 8, 9, 25),
		bar("2024-01-01 10:05:00", 9, 9.5, 8.5, 9.2, 10),
	}
	got, err := Aggregate(bars, 5, 100)
	require.NoError(t, err)
	require.Len(t, got, 2)

	first := got[0]
	assert.Equal(t, ts("2024-01-01 10:00:00"), first.PeriodStart)
	assert.Equal(t, 10.0, first.Open)
	assert.Equal(t, 13.0, first.High)
	assert.Equal(t, 8.0, first.Low)
	assert.Equal(t, 9.0, first.Close)
	assert.Equal(t, int64(175), first.Volume)
	assert.Equal(t, 3, first.BarCount)

	second := got[1]
	assert.Equal(t, ts("2024-01-01 10:05:00"), second.PeriodStart)
	assert.Equal(t, 1, second.BarCount)
	assert.Equal(t, 9.2, second.Close)
}

func TestAggregateDailySplitsAtMidnight(t *testing.T) {
	bars := []models.Bar{
		bar("2024-01-01 23:58:00", 10, 12, 9, 11, 5),
		bar("2024-01-02 00:02:00", 11, 13, 10, 12, 7),
	}
	got, err := Aggregate(bars, domrepo.MinutesPerDay, 10)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, ts("2024-01-01 00:00:00"), got[0].PeriodStart)
	assert.Equal(t, models.AggregatedBar{PeriodStart: ts("2024-01-01 00:00:00"), Open: 10, High: 12, Low: 9, Close: 11, Volume: 5, BarCount: 1}, got[0])
	assert.Equal(t, models.AggregatedBar{PeriodStart: ts("2024-01-02 00:00:00"), Open: 11, High: 13, Low: 10, Close: 12, Volume: 7, BarCount: 1}, got[1])
}

func TestAggregateLimitKeepsEarliest(t *testing.T) {
	bars := minuteBars("2024-01-01 09:00:00", 50) // 10 buckets of 5 minutes
	all, err := Aggregate(bars, 5, 100)
	require.NoError(t, err)
	require.Len(t, all, 10)

	got, err := Aggregate(bars, 5, 3)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, all[:3], got)
	assert.Equal(t, ts("2024-01-01 09:10:00"), got[2].PeriodStart)
}

func TestAggregatePartialFinalBucket(t *testing.T) {
	bars := minuteBars("2024-01-01 09:00:00", 17)
	got, err := Aggregate(bars, 15, 10)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, 15, got[0].BarCount)
	assert.Equal(t, 2, got[1].BarCount)
}

func TestAggregateSkipsEmptyBuckets(t *testing.T) {
	bars := []models.Bar{
		bar("2024-01-01 09:01:00", 1, 1, 1, 1, 1),
		bar("2024-01-01 11:31:00", 2, 2, 2, 2, 1),
	}
	got, err := Aggregate(bars, 30, 10)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, ts("2024-01-01 09:00:00"), got[0].PeriodStart)
	assert.Equal(t, ts("2024-01-01 11:30:00"), got[1].PeriodStart)
}

func TestAggregateUnsupportedInterval(t *testing.T) {
	_, err := Aggregate(minuteBars("2024-01-01 09:00:00", 5), 7, 10)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domrepo.ErrUnsupportedTimeframe))

	_, err = AggregateTimeframe(nil, domrepo.Timeframe("7min"), 10)
	assert.True(t, errors.Is(err, domrepo.ErrUnsupportedTimeframe))
}

func TestAggregateRejectsNonPositiveLimit(t *testing.T) {
	_, err := Aggregate(minuteBars("2024-01-01 09:00:00", 5), 5, 0)
	assert.ErrorIs(t, err, domrepo.ErrInvalidLimit)
}

func TestAggregateEmptyInput(t *testing.T) {
	got, err := Aggregate(nil, 60, 10)
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.NotNil(t, got)
}

func TestAggregateSortsOutOfOrderInput(t *testing.T) {
	bars := []models.Bar{
		bar("2024-01-01 10:03:00", 3, 3, 3, 3, 1),
		bar("2024-01-01 10:01:00", 1, 1, 1, 1, 1),
		bar("2024-01-01 10:02:00", 2, 2, 2, 2, 1),
	}
	got, err := Aggregate(bars, 5, 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 1.0, got[0].Open)
	assert.Equal(t, 3.0, got[0].Close)
	assert.Equal(t, ts("2024-01-01 10:03:00"), bars[0].Timestamp, "input must not be reordered")
}

func TestAggregatePeriodStartIsIntervalMultiple(t *testing.T) {
	bars := minuteBars("2024-01-01 07:13:00", 600)
	for _, m := range []int{1, 5, 15, 30, 60, 120, 240} {
		got, err := Aggregate(bars, m, 10_000)
		require.NoError(t, err)
		var prev time.Time
		for i, a := range got {
			mins := a.PeriodStart.Hour()*60 + a.PeriodStart.Minute()
			assert.Zero(t, a.PeriodStart.Minute()%min(m, 60), "interval %d bucket %d", m, i)
			assert.Zero(t, mins%m, "interval %d bucket %d", m, i)
			assert.Zero(t, a.PeriodStart.Second())
			if i > 0 {
				assert.True(t, a.PeriodStart.After(prev), "interval %d buckets must ascend", m)
			}
			prev = a.PeriodStart
		}
	}
}

func TestAggregateHighLowExact(t *testing.T) {
	bars := minuteBars("2024-01-01 09:00:00", 240)
	got, err := Aggregate(bars, 15, 1000)
	require.NoError(t, err)

	idx := 0
	for _, a := range got {
		hi, lo := bars[idx].High, bars[idx].Low
		var vol int64
		for k := 0; k < a.BarCount; k++ {
			b := bars[idx+k]
			assert.Equal(t, a.PeriodStart, BucketStart(b.Timestamp, 15))
			if b.High > hi {
				hi = b.High
			}
			if b.Low < lo {
				lo = b.Low
			}
			vol += b.Volume
		}
		assert.Equal(t, hi, a.High)
		assert.Equal(t, lo, a.Low)
		assert.Equal(t, vol, a.Volume)
		assert.Equal(t, bars[idx].Open, a.Open)
		assert.Equal(t, bars[idx+a.BarCount-1].Close, a.Close)
		idx += a.BarCount
	}
	assert.Equal(t, len(bars), idx)
}

func TestAggregateIdempotent(t *testing.T) {
	bars := minuteBars("2024-01-01 09:00:00", 300)
	for _, m := range []int{5, 60, 240, domrepo.MinutesPerDay} {
		first, err := Aggregate(bars, m, 10_000)
		require.NoError(t, err)

		rebuilt := make([]models.Bar, len(first))
		for i, a := range first {
			rebuilt[i] = models.Bar{Timestamp: a.PeriodStart, Open: a.Open, High: a.High, Low: a.Low, Close: a.Close, Volume: a.Volume}
		}
		second, err := Aggregate(rebuilt, m, 10_000)
		require.NoError(t, err)
		require.Len(t, second, len(first))
		for i := range first {
			second[i].BarCount = first[i].BarCount
		}
		assert.Equal(t, first, second, "interval %d", m)
	}
}
