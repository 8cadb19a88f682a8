package repository

import (
	"context"
	"time"

	"BarView/internal/domain/models"
)

// TimeRange bounds a bar fetch. Nil ends are open.
// Both ends are inclusive and compared as wall-clock values.
type TimeRange struct {
	From *time.Time
	To   *time.Time
}

// BarStore provides read-only access to per-instrument bar tables.
type BarStore interface {
	// FetchBars returns bars in ascending timestamp order, at most limit rows.
	FetchBars(ctx context.Context, table string, r TimeRange, limit int) ([]models.Bar, error)
	ListTables(ctx context.Context) ([]string, error)
	TableColumns(ctx context.Context, table string) ([]string, error)
	TableStats(ctx context.Context, table string) (models.TableStats, error)
	TableExists(ctx context.Context, table string) (bool, error)
	// CountTables counts every table in the store, trading or not.
	CountTables(ctx context.Context) (int, error)
	ActiveConnections() int
	Ping(ctx context.Context) error
	Close() error
}

// DrawingStore persists saved drawing sets.
type DrawingStore interface {
	Init(ctx context.Context) error
	Create(ctx context.Context, d *models.Drawing) (int64, error)
	Get(ctx context.Context, id int64) (*models.Drawing, error)
	List(ctx context.Context, limit, offset int) ([]models.DrawingSummary, int64, error)
	Delete(ctx context.Context, id int64) error
}

// EventPublisher emits domain events to an external bus.
type EventPublisher interface {
	Publish(ctx context.Context, key string, event interface{}) error
	Close() error
}

// Metrics records domain-level observations.
type Metrics interface {
	RecordError(kind string)
	RecordLatency(op string, seconds float64)
	RecordRetry(op string)
	RecordBuckets(timeframe string, n int)
	RecordCache(result string)
}
