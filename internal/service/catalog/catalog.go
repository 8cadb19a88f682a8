// Package catalog discovers which store tables hold bar data and describes them.
package catalog

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"BarView/internal/domain/models"
	domrepo "BarView/internal/domain/repository"
	applogger "BarView/pkg/logger"
	xutil "BarView/pkg/util"
)

// nameDecorations are stripped, in order, when deriving an instrument name.
var nameDecorations = []string{"_bars", "_data", "bars_"}

// Catalog lists trading tables. The listing is computed on first use and kept
// until Invalidate is called; schema changes are not observed before that.
type Catalog struct {
	store domrepo.BarStore
	l     *applogger.Logger

	mu     sync.RWMutex
	loaded bool
	gen    uint64 // bumped by Invalidate; scans started under an older gen are not stored
	items  []models.Instrument
	known  map[string]struct{}
}

func New(store domrepo.BarStore, l *applogger.Logger) *Catalog {
	return &Catalog{store: store, l: l}
}

// List returns every trading table sorted by instrument name.
// Concurrent first calls may each scan. A scan that straddles Invalidate is returned
// to its caller but never replaces the listing of a later scan.
func (c *Catalog) List(ctx context.Context) ([]models.Instrument, error) {
	c.mu.RLock()
	if c.loaded {
		out := append([]models.Instrument(nil), c.items...)
		c.mu.RUnlock()
		return out, nil
	}
	gen := c.gen
	c.mu.RUnlock()

	items, err := c.scan(ctx)
	if err != nil {
		return nil, err
	}

	known := make(map[string]struct{}, len(items))
	for _, it := range items {
		known[it.TableName] = struct{}{}
	}
	c.mu.Lock()
	if c.gen == gen {
		c.items, c.known, c.loaded = items, known, true
	}
	c.mu.Unlock()

	return append([]models.Instrument(nil), items...), nil
}

// Has reports whether table is a known trading table.
func (c *Catalog) Has(ctx context.Context, table string) (bool, error) {
	c.mu.RLock()
	if c.loaded {
		_, ok := c.known[table]
		c.mu.RUnlock()
		return ok, nil
	}
	c.mu.RUnlock()

	items, err := c.List(ctx)
	if err != nil {
		return false, err
	}
	for _, it := range items {
		if it.TableName == table {
			return true, nil
		}
	}
	return false, nil
}

// Invalidate drops the cached listing; the next call rescans the store.
func (c *Catalog) Invalidate() {
	c.mu.Lock()
	c.gen++
	c.loaded, c.items, c.known = false, nil, nil
	c.mu.Unlock()
}

// Refresh rescans immediately.
func (c *Catalog) Refresh(ctx context.Context) ([]models.Instrument, error) {
	c.Invalidate()
	return c.List(ctx)
}

func (c *Catalog) scan(ctx context.Context) ([]models.Instrument, error) {
	tables, err := c.store.ListTables(ctx)
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}

	out := make([]models.Instrument, 0, len(tables))
	for _, table := range tables {
		it, ok, err := c.inspect(ctx, table)
		if err != nil {
			c.l.Warn("skipping table", applogger.String("table", table), applogger.Error(err))
			continue
		}
		if ok {
			out = append(out, it)
		}
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Instrument < out[j].Instrument })
	c.l.Info("trading tables detected", applogger.Int("count", len(out)))
	return out, nil
}

func (c *Catalog) inspect(ctx context.Context, table string) (models.Instrument, bool, error) {
	if err := domrepo.ValidateTableName(table); err != nil {
		return models.Instrument{}, false, err
	}
	cols, err := c.store.TableColumns(ctx, table)
	if err != nil {
		return models.Instrument{}, false, err
	}
	if !domrepo.HasBarColumns(cols) {
		return models.Instrument{}, false, nil
	}

	st, err := c.store.TableStats(ctx, table)
	if err != nil {
		return models.Instrument{}, false, err
	}
	if st.Count == 0 || (st.MinTS == "" && st.MaxTS == "") {
		return models.Instrument{}, false, nil
	}

	name := InstrumentName(table)
	return models.Instrument{
		TableName:   table,
		Instrument:  name,
		RecordCount: st.Count,
		DateRange:   models.DateRange{Start: st.MinTS, End: st.MaxTS},
		DisplayName: DisplayLabel(name, st),
	}, true, nil
}

// InstrumentName strips the known table decorations and upper-cases the rest.
func InstrumentName(table string) string {
	name := table
	for _, d := range nameDecorations {
		name = strings.ReplaceAll(name, d, "")
	}
	return strings.ToUpper(name)
}

// DisplayLabel renders "NAME (start to end)". Unparseable endpoints are shown verbatim;
// a missing endpoint falls back to the row count.
func DisplayLabel(name string, st models.TableStats) string {
	if st.MinTS == "" || st.MaxTS == "" {
		return fmt.Sprintf("%s (%s bars)", name, xutil.FormatThousands(st.Count))
	}
	lo, errLo := xutil.ParseBarTime(st.MinTS)
	hi, errHi := xutil.ParseBarTime(st.MaxTS)
	if errLo != nil || errHi != nil {
		return fmt.Sprintf("%s (%s to %s)", name, st.MinTS, st.MaxTS)
	}
	return fmt.Sprintf("%s (%s to %s)", name, lo.Format(xutil.DateLayout), hi.Format(xutil.DateLayout))
}
