package usecase

import (
	"BarView/internal/domain/models"
	domrepo "BarView/internal/domain/repository"
	xutil "BarView/pkg/util"
)

// periodLabel formats a bucket start: daily buckets as a date, the rest as date-time.
func (r *FetchResult) periodLabel(a models.AggregatedBar) string {
	if m, _ := r.Timeframe.Minutes(); m >= domrepo.MinutesPerDay {
		return a.PeriodStart.Format(xutil.DateLayout)
	}
	return xutil.FormatBarTime(a.PeriodStart)
}

// Rows shapes the result for the data API.
func (r *FetchResult) Rows() []models.BarRow {
	if r.Timeframe.IsRaw() {
		out := make([]models.BarRow, len(r.Bars))
		for i, b := range r.Bars {
			out[i] = models.BarRow{
				Datetime: xutil.FormatBarTime(b.Timestamp),
				Open:     b.Open,
				High:     b.High,
				Low:      b.Low,
				Close:    b.Close,
				Volume:   b.Volume,
			}
		}
		return out
	}
	out := make([]models.BarRow, len(r.Aggregated))
	for i, a := range r.Aggregated {
		out[i] = models.BarRow{
			Datetime: r.periodLabel(a),
			Open:     a.Open,
			High:     a.High,
			Low:      a.Low,
			Close:    a.Close,
			Volume:   a.Volume,
			BarCount: a.BarCount,
		}
	}
	return out
}

// RawExportRows shapes a raw result for file export.
func (r *FetchResult) RawExportRows() []models.RawExportRow {
	out := make([]models.RawExportRow, len(r.Bars))
	for i, b := range r.Bars {
		out[i] = models.RawExportRow{
			BarEndDatetime: xutil.FormatBarTime(b.Timestamp),
			OpenPrice:      b.Open,
			HighPrice:      b.High,
			LowPrice:       b.Low,
			ClosePrice:     b.Close,
			Volume:         b.Volume,
		}
	}
	return out
}

// AggregatedExportRows shapes an aggregated result for file export.
func (r *FetchResult) AggregatedExportRows() []models.AggregatedExportRow {
	out := make([]models.AggregatedExportRow, len(r.Aggregated))
	for i, a := range r.Aggregated {
		out[i] = models.AggregatedExportRow{
			BarEndDatetime: r.periodLabel(a),
			OpenPrice:      a.Open,
			HighPrice:      a.High,
			LowPrice:       a.Low,
			ClosePrice:     a.Close,
			Volume:         a.Volume,
			Timeframe:      string(r.Timeframe),
			BarCount:       int64(a.BarCount),
		}
	}
	return out
}
