package usecase

import (
	"context"
	"fmt"
	"time"

	"BarView/internal/domain/models"
	domrepo "BarView/internal/domain/repository"
	"BarView/internal/service/aggregate"
	applogger "BarView/pkg/logger"
	"BarView/pkg/retry"
	xutil "BarView/pkg/util"
)

// MaxDataPoints caps every fetch, raw or aggregated.
const MaxDataPoints = 50000

// TableGate answers whether a table may be served.
type TableGate interface {
	Has(ctx context.Context, table string) (bool, error)
}

// BarsUseCase turns a bar request into a store fetch plus optional aggregation.
type BarsUseCase struct {
	store   domrepo.BarStore
	gate    TableGate
	metrics domrepo.Metrics
	l       *applogger.Logger
	retry   []retry.Option
}

func NewBarsUseCase(store domrepo.BarStore, gate TableGate, metrics domrepo.Metrics, l *applogger.Logger) *BarsUseCase {
	uc := &BarsUseCase{store: store, gate: gate, metrics: metrics, l: l}
	uc.retry = []retry.Option{
		retry.WithAttempts(3),
		retry.WithBackoff(100 * time.Millisecond),
		retry.WithClassifier(domrepo.IsTransient),
		retry.WithLogger(l),
		retry.WithOnRetry(func(op string, _ int, _ error) { metrics.RecordRetry(op) }),
	}
	return uc
}

// SetRetryBackoff overrides the base retry delay.
func (uc *BarsUseCase) SetRetryBackoff(d time.Duration) {
	uc.retry = append(uc.retry, retry.WithBackoff(d))
}

type FetchParams struct {
	Table     string
	Timeframe string
	StartDate string
	EndDate   string
	Limit     int
}

type FetchResult struct {
	Table      string
	Timeframe  domrepo.Timeframe
	StartDate  string
	EndDate    string
	Bars       []models.Bar
	Aggregated []models.AggregatedBar
}

// Len returns the number of rows in the result.
func (r *FetchResult) Len() int {
	if r.Timeframe.IsRaw() {
		return len(r.Bars)
	}
	return len(r.Aggregated)
}

// ClampLimit maps a requested limit into [1, MaxDataPoints]. Zero means "not given".
// Fetch rejects negative limits before clamping.
func ClampLimit(limit int) int {
	switch {
	case limit == 0:
		return MaxDataPoints
	case limit < 1:
		return 1
	case limit > MaxDataPoints:
		return MaxDataPoints
	}
	return limit
}

// Fetch validates the request, reads bars and aggregates them when the timeframe asks for it.
// Validation failures are returned before the store is touched.
func (uc *BarsUseCase) Fetch(ctx context.Context, p FetchParams) (*FetchResult, error) {
	if err := domrepo.ValidateTableName(p.Table); err != nil {
		return nil, err
	}
	tf, err := domrepo.ParseTimeframe(p.Timeframe)
	if err != nil {
		return nil, err
	}
	rng, err := dateRange(p.StartDate, p.EndDate)
	if err != nil {
		return nil, err
	}
	if p.Limit < 0 {
		return nil, fmt.Errorf("%w: got %d", domrepo.ErrInvalidLimit, p.Limit)
	}
	limit := ClampLimit(p.Limit)

	ok, err := uc.gate.Has(ctx, p.Table)
	if err != nil {
		return nil, fmt.Errorf("check table: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", domrepo.ErrTableNotFound, p.Table)
	}

	res := &FetchResult{Table: p.Table, Timeframe: tf, StartDate: p.StartDate, EndDate: p.EndDate}

	// Aggregation needs the whole range; many raw bars fold into one bucket.
	fetchLimit := limit
	if !tf.IsRaw() {
		fetchLimit = MaxDataPoints
	}

	start := time.Now()
	bars, err := retry.DoValue(ctx, "fetch_bars", func(ctx context.Context) ([]models.Bar, error) {
		return uc.store.FetchBars(ctx, p.Table, rng, fetchLimit)
	}, uc.retry...)
	uc.metrics.RecordLatency("fetch_bars", time.Since(start).Seconds())
	if err != nil {
		uc.metrics.RecordError("fetch_bars")
		uc.l.Error("fetch bars failed",
			applogger.String("table", p.Table),
			applogger.String("timeframe", string(tf)),
			applogger.Error(err),
		)
		return nil, fmt.Errorf("fetch bars: %w", err)
	}

	if tf.IsRaw() {
		res.Bars = bars
		return res, nil
	}

	res.Aggregated, err = aggregate.AggregateTimeframe(bars, tf, limit)
	if err != nil {
		return nil, err
	}
	uc.metrics.RecordBuckets(string(tf), len(res.Aggregated))
	uc.l.Debug("bars aggregated",
		applogger.String("table", p.Table),
		applogger.String("timeframe", string(tf)),
		applogger.Int("source_bars", len(bars)),
		applogger.Int("buckets", len(res.Aggregated)),
	)
	return res, nil
}

// dateRange converts YYYY-MM-DD bounds to an inclusive wall-clock range:
// start at 00:00:00, end at 23:59:59.
func dateRange(startDate, endDate string) (domrepo.TimeRange, error) {
	var r domrepo.TimeRange
	if startDate != "" {
		d, err := xutil.ParseDate(startDate)
		if err != nil {
			return r, fmt.Errorf("%w: start_date %q", domrepo.ErrInvalidDate, startDate)
		}
		from := xutil.StartOfDay(d)
		r.From = &from
	}
	if endDate != "" {
		d, err := xutil.ParseDate(endDate)
		if err != nil {
			return r, fmt.Errorf("%w: end_date %q", domrepo.ErrInvalidDate, endDate)
		}
		to := xutil.EndOfDay(d)
		r.To = &to
	}
	return r, nil
}
