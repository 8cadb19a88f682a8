package usecase

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"BarView/internal/domain/models"
	domrepo "BarView/internal/domain/repository"
)

type fetchCall struct {
	table string
	rng   domrepo.TimeRange
	limit int
}

type fakeBarStore struct {
	mu       sync.Mutex
	bars     map[string][]models.Bar
	failures []error // returned by successive FetchBars calls before succeeding
	countErr error
	calls    []fetchCall
}

func (f *fakeBarStore) FetchBars(_ context.Context, table string, r domrepo.TimeRange, limit int) ([]models.Bar, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, fetchCall{table: table, rng: r, limit: limit})
	if len(f.failures) > 0 {
		err := f.failures[0]
		f.failures = f.failures[1:]
		return nil, err
	}
	var out []models.Bar
	for _, b := range f.bars[table] {
		if r.From != nil && b.Timestamp.Before(*r.From) {
			continue
		}
		if r.To != nil && b.Timestamp.After(*r.To) {
			continue
		}
		out = append(out, b)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (f *fakeBarStore) ListTables(context.Context) ([]string, error) {
	out := make([]string, 0, len(f.bars))
	for t := range f.bars {
		out = append(out, t)
	}
	sort.Strings(out)
	return out, nil
}

func (f *fakeBarStore) TableColumns(context.Context, string) ([]string, error) {
	return domrepo.RequiredBarColumns, nil
}

func (f *fakeBarStore) TableStats(context.Context, string) (models.TableStats, error) {
	return models.TableStats{}, nil
}

func (f *fakeBarStore) TableExists(_ context.Context, t string) (bool, error) {
	_, ok := f.bars[t]
	return ok, nil
}

func (f *fakeBarStore) CountTables(context.Context) (int, error) {
	if f.countErr != nil {
		return 0, f.countErr
	}
	return len(f.bars), nil
}

func (f *fakeBarStore) ActiveConnections() int { return 1 }
func (f *fakeBarStore) Ping(context.Context) error { return nil }
func (f *fakeBarStore) Close() error { return nil }

func (f *fakeBarStore) fetchCalls() []fetchCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]fetchCall(nil), f.calls...)
}

type fakeGate map[string]bool

func (g fakeGate) Has(_ context.Context, table string) (bool, error) { return g[table], nil }

type fakeMetrics struct {
	mu      sync.Mutex
	retries int
	errors  int
	buckets map[string]int
}

func (m *fakeMetrics) RecordLatency(string, float64) {}
func (m *fakeMetrics) RecordCache(string) {}

func (m *fakeMetrics) RecordError(string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors++
}

func (m *fakeMetrics) RecordRetry(string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.retries++
}

func (m *fakeMetrics) RecordBuckets(tf string, n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.buckets == nil {
		m.buckets = map[string]int{}
	}
	m.buckets[tf] = n
}

type fakeDrawingStore struct {
	mu                    sync.Mutex
	nextID                int64
	items                 map[int64]*models.Drawing
	err                   error
	lastLimit, lastOffset int
}

func newFakeDrawingStore() *fakeDrawingStore {
	return &fakeDrawingStore{items: map[int64]*models.Drawing{}}
}

func (f *fakeDrawingStore) Init(context.Context) error { return nil }

func (f *fakeDrawingStore) Create(_ context.Context, d *models.Drawing) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return 0, f.err
	}
	f.nextID++
	cp := *d
	cp.ID = f.nextID
	cp.CreatedAt = time.Now()
	f.items[cp.ID] = &cp
	return cp.ID, nil
}

func (f *fakeDrawingStore) Get(_ context.Context, id int64) (*models.Drawing, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.items[id]
	if !ok {
		return nil, domrepo.ErrDrawingNotFound
	}
	return d, nil
}

func (f *fakeDrawingStore) List(_ context.Context, limit, offset int) ([]models.DrawingSummary, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastLimit, f.lastOffset = limit, offset
	return []models.DrawingSummary{}, int64(len(f.items)), nil
}

func (f *fakeDrawingStore) Delete(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.items[id]; !ok {
		return domrepo.ErrDrawingNotFound
	}
	delete(f.items, id)
	return nil
}

type fakePublisher struct {
	mu     sync.Mutex
	events []DrawingEvent
	err    error
}

func (p *fakePublisher) Publish(_ context.Context, _ string, ev interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, ev.(DrawingEvent))
	return nil
}

func (p *fakePublisher) Close() error { return nil }

var errBoom = errors.New("boom")
