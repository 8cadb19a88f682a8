package catalog

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"BarView/internal/domain/models"
	domrepo "BarView/internal/domain/repository"
	applogger "BarView/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var barCols = []string{"bar_end_datetime", "open_price", "high_price", "low_price", "close_price", "volume"}

type fakeStore struct {
	mu        sync.Mutex
	tables    []string
	cols      map[string][]string
	stats     map[string]models.TableStats
	colErr    map[string]error
	listCalls int
}

func (f *fakeStore) FetchBars(context.Context, string, domrepo.TimeRange, int) ([]models.Bar, error) {
	return nil, nil
}

func (f *fakeStore) ListTables(context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	return append([]string(nil), f.tables...), nil
}

func (f *fakeStore) TableColumns(_ context.Context, t string) ([]string, error) {
	if err := f.colErr[t]; err != nil {
		return nil, err
	}
	return f.cols[t], nil
}

func (f *fakeStore) TableStats(_ context.Context, t string) (models.TableStats, error) {
	return f.stats[t], nil
}

func (f *fakeStore) TableExists(_ context.Context, t string) (bool, error) {
	_, ok := f.cols[t]
	return ok, nil
}

func (f *fakeStore) CountTables(context.Context) (int, error) { return len(f.tables), nil }
func (f *fakeStore) ActiveConnections() int { return 0 }
func (f *fakeStore) Ping(context.Context) error { return nil }
func (f *fakeStore) Close() error { return nil }

func (f *fakeStore) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.listCalls
}

func newFixture() *fakeStore {
	return &fakeStore{
		tables: []string{"nq_data", "es_bars", "no_close", "empty_bars", "broken", "bars_cl", "saved_drawings"},
		cols: map[string][]string{
			"es_bars":        barCols,
			"nq_data":        barCols[:5],
			"bars_cl":        {"BAR_END_DATETIME", "OPEN_PRICE", "HIGH_PRICE", "LOW_PRICE", "CLOSE_PRICE"},
			"no_close":       {"bar_end_datetime", "open_price", "high_price", "low_price", "volume"},
			"empty_bars":     barCols,
			"saved_drawings": {"id", "name"},
		},
		stats: map[string]models.TableStats{
			"es_bars":    {Count: 1500, MinTS: "2024-01-02 09:30:00", MaxTS: "2024-03-28 16:00:00"},
			"nq_data":    {Count: 12, MinTS: "2024-01-02T09:30:00Z", MaxTS: "2024-01-05T16:00:00+00:00"},
			"bars_cl":    {Count: 3, MinTS: "yesterday", MaxTS: "today"},
			"empty_bars": {Count: 0},
		},
		colErr: map[string]error{"broken": errors.New("malformed schema")},
	}
}

func TestListFiltersAndDescribes(t *testing.T) {
	c := New(newFixture(), applogger.NewNop())

	got, err := c.List(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 3)

	assert.Equal(t, []string{"CL", "ES", "NQ"}, []string{got[0].Instrument, got[1].Instrument, got[2].Instrument})

	es := got[1]
	assert.Equal(t, "es_bars", es.TableName)
	assert.Equal(t, int64(1500), es.RecordCount)
	assert.Equal(t, models.DateRange{Start: "2024-01-02 09:30:00", End: "2024-03-28 16:00:00"}, es.DateRange)
	assert.Equal(t, "ES (2024-01-02 to 2024-03-28)", es.DisplayName)

	assert.Equal(t, "NQ (2024-01-02 to 2024-01-05)", got[2].DisplayName)
	assert.Equal(t, "CL (yesterday to today)", got[0].DisplayName)
}

func TestListExcludesMissingCloseAndEmptyTables(t *testing.T) {
	c := New(newFixture(), applogger.NewNop())
	got, err := c.List(context.Background())
	require.NoError(t, err)
	for _, it := range got {
		assert.NotEqual(t, "no_close", it.TableName)
		assert.NotEqual(t, "empty_bars", it.TableName)
		assert.NotEqual(t, "broken", it.TableName)
	}
}

func TestListIsCachedUntilInvalidated(t *testing.T) {
	store := newFixture()
	c := New(store, applogger.NewNop())
	ctx := context.Background()

	_, err := c.List(ctx)
	require.NoError(t, err)
	_, err = c.List(ctx)
	require.NoError(t, err)
	ok, err := c.Has(ctx, "es_bars")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 1, store.calls())

	// Schema changes stay invisible until invalidation.
	store.tables = append(store.tables, "gc_bars")
	store.cols["gc_bars"] = barCols
	store.stats["gc_bars"] = models.TableStats{Count: 1, MinTS: "2024-01-02 00:00:00", MaxTS: "2024-01-02 00:00:00"}
	ok, err = c.Has(ctx, "gc_bars")
	require.NoError(t, err)
	assert.False(t, ok)

	c.Invalidate()
	ok, err = c.Has(ctx, "gc_bars")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 2, store.calls())

	got, err := c.Refresh(ctx)
	require.NoError(t, err)
	assert.Len(t, got, 4)
	assert.Equal(t, 3, store.calls())
}

func TestHasRejectsNonTradingTables(t *testing.T) {
	c := New(newFixture(), applogger.NewNop())
	for _, table := range []string{"saved_drawings", "no_close", "empty_bars", "missing"} {
		ok, err := c.Has(context.Background(), table)
		require.NoError(t, err)
		assert.False(t, ok, table)
	}
}

func TestConcurrentFirstList(t *testing.T) {
	c := New(newFixture(), applogger.NewNop())
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := c.List(context.Background())
			assert.NoError(t, err)
			assert.Len(t, got, 3)
		}()
	}
	wg.Wait()
}

func TestListReturnsCopy(t *testing.T) {
	c := New(newFixture(), applogger.NewNop())
	got, err := c.List(context.Background())
	require.NoError(t, err)
	got[0].Instrument = "MUTATED"

	again, err := c.List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "CL", again[0].Instrument)
}

func TestInstrumentName(t *testing.T) {
	cases := map[string]string{
		"es_bars":    "ES",
		"nq_data":    "NQ",
		"bars_cl":    "CL",
		"Gold-1m":    "GOLD-1M",
		"es_bars_v2": "ES_V2",
	}
	for in, want := range cases {
		assert.Equal(t, want, InstrumentName(in), in)
	}
}

func TestDisplayLabelFallbacks(t *testing.T) {
	assert.Equal(t, "ES (1,234,567 bars)", DisplayLabel("ES", models.TableStats{Count: 1234567, MinTS: "2024-01-02 00:00:00"}))
	assert.Equal(t, "ES (2024-01-02 to x)", DisplayLabel("ES", models.TableStats{Count: 2, MinTS: "2024-01-02", MaxTS: "x"}))
	assert.Equal(t, "ES (2024-01-02 to 2024-01-03)", DisplayLabel("ES", models.TableStats{Count: 2, MinTS: "2024-01-02", MaxTS: "2024-01-03 10:00:00.123"}))
}

// gatedStore parks the first ListTables call until release is closed and then
// answers with the stale table set.
type gatedStore struct {
	*fakeStore
	stale   []string
	entered chan struct{}
	release chan struct{}
	n       atomic.Int32
}

func (g *gatedStore) ListTables(ctx context.Context) ([]string, error) {
	if g.n.Add(1) == 1 {
		close(g.entered)
		<-g.release
		return append([]string(nil), g.stale...), nil
	}
	return g.fakeStore.ListTables(ctx)
}

func names(items []models.Instrument) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, it.TableName)
	}
	return out
}

func TestRefreshNotOverwrittenByInFlightScan(t *testing.T) {
	ctx := context.Background()
	span := models.TableStats{Count: 1, MinTS: "2024-01-02 00:00:00", MaxTS: "2024-01-02 00:00:00"}
	store := &gatedStore{
		fakeStore: &fakeStore{
			tables: []string{"new_bars"},
			cols:   map[string][]string{"old_bars": barCols, "new_bars": barCols},
			stats:  map[string]models.TableStats{"old_bars": span, "new_bars": span},
		},
		stale:   []string{"old_bars"},
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
	c := New(store, applogger.NewNop())

	done := make(chan []models.Instrument, 1)
	go func() {
		items, err := c.List(ctx)
		assert.NoError(t, err)
		done <- items
	}()
	<-store.entered

	fresh, err := c.Refresh(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"new_bars"}, names(fresh))

	close(store.release)
	assert.Equal(t, []string{"old_bars"}, names(<-done))

	ok, err := c.Has(ctx, "new_bars")
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = c.Has(ctx, "old_bars")
	require.NoError(t, err)
	assert.False(t, ok)

	listed, err := c.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"new_bars"}, names(listed))
}
