package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"BarView/internal/domain/models"
	domrepo "BarView/internal/domain/repository"
	pkgch "BarView/pkg/clickhouse"
	applogger "BarView/pkg/logger"
	xutil "BarView/pkg/util"

	"github.com/ClickHouse/clickhouse-go/v2"
)

// ClickHouse server error codes that matter to the bar store.
const (
	chUnknownTable        = 60
	chTimeoutExceeded     = 159
	chTooManySimultaneous = 202
	chMemoryLimitExceeded = 241
)

// CHBarStore reads bar tables from the current ClickHouse database.
type CHBarStore struct {
	ch *pkgch.Client
	db *sql.DB
	l  *applogger.Logger
}

func NewCHBarStore(ch *pkgch.Client, l *applogger.Logger) *CHBarStore {
	return &CHBarStore{ch: ch, db: ch.DB(), l: l}
}

var _ domrepo.BarStore = (*CHBarStore)(nil)

func (s *CHBarStore) FetchBars(ctx context.Context, table string, r domrepo.TimeRange, limit int) ([]models.Bar, error) {
	if err := domrepo.ValidateTableName(table); err != nil {
		return nil, err
	}
	if limit <= 0 {
		return nil, domrepo.ErrInvalidLimit
	}

	cols, err := s.TableColumns(ctx, table)
	if err != nil {
		return nil, err
	}
	if len(cols) == 0 {
		return nil, fmt.Errorf("%w: %s", domrepo.ErrTableNotFound, table)
	}
	volume := "toInt64(0)"
	if containsFold(cols, "volume") {
		volume = "toInt64(ifNull(volume, 0))"
	}

	conds := []string{"1 = 1"}
	args := make([]interface{}, 0, 3)
	if r.From != nil {
		conds = append(conds, "bar_end_datetime >= toDateTime(?)")
		args = append(args, xutil.FormatBarTime(*r.From))
	}
	if r.To != nil {
		conds = append(conds, "bar_end_datetime <= toDateTime(?)")
		args = append(args, xutil.FormatBarTime(*r.To))
	}
	args = append(args, limit)

	q := fmt.Sprintf(`
        SELECT toString(bar_end_datetime),
            ifNull(toFloat64(open_price), 0), ifNull(toFloat64(high_price), 0),
            ifNull(toFloat64(low_price), 0), ifNull(toFloat64(close_price), 0), %s
        FROM %s
        WHERE %s
        ORDER BY bar_end_datetime ASC
        LIMIT ?`, volume, chIdent(table), strings.Join(conds, " AND "))
	release, err := s.slot("fetch_bars", table)
	if err != nil {
		return nil, err
	}
	defer release()
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, s.mapErr("fetch_bars", table, err)
	}
	defer rows.Close()

	out := make([]models.Bar, 0, min(limit, 4096))
	var skipped unparsed
	for rows.Next() {
		var (
			ts string
			b  models.Bar
		)
		if err := rows.Scan(&ts, &b.Open, &b.High, &b.Low, &b.Close, &b.Volume); err != nil {
			return nil, s.mapErr("fetch_bars", table, err)
		}
		if b.Timestamp, err = xutil.ParseBarTime(ts); err != nil {
			skipped.add(ts)
			continue
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, s.mapErr("fetch_bars", table, err)
	}
	skipped.report(s.l, table, limit)
	return out, nil
}

func (s *CHBarStore) ListTables(ctx context.Context) ([]string, error) {
	return s.queryStrings(ctx, "list_tables",
		`SELECT name FROM system.tables WHERE database = currentDatabase() AND NOT is_temporary ORDER BY name`)
}

func (s *CHBarStore) TableColumns(ctx context.Context, table string) ([]string, error) {
	if err := domrepo.ValidateTableName(table); err != nil {
		return nil, err
	}
	return s.queryStrings(ctx, "table_columns",
		`SELECT name FROM system.columns WHERE database = currentDatabase() AND table = ? ORDER BY position`, table)
}

func (s *CHBarStore) TableStats(ctx context.Context, table string) (models.TableStats, error) {
	if err := domrepo.ValidateTableName(table); err != nil {
		return models.TableStats{}, err
	}
	var (
		st     models.TableStats
		count  uint64
		lo, hi string
	)
	q := fmt.Sprintf(`SELECT count(), toString(min(bar_end_datetime)), toString(max(bar_end_datetime)) FROM %s`, chIdent(table))
	release, err := s.slot("table_stats", table)
	if err != nil {
		return st, err
	}
	defer release()
	if err := s.db.QueryRowContext(ctx, q).Scan(&count, &lo, &hi); err != nil {
		return st, s.mapErr("table_stats", table, err)
	}
	st.Count = int64(count)
	// min/max of an empty table are the type's zero value, not NULL.
	if count > 0 {
		st.MinTS, st.MaxTS = lo, hi
	}
	return st, nil
}

func (s *CHBarStore) TableExists(ctx context.Context, table string) (bool, error) {
	if err := domrepo.ValidateTableName(table); err != nil {
		return false, err
	}
	release, err := s.slot("table_exists", table)
	if err != nil {
		return false, err
	}
	defer release()
	var n uint64
	err = s.db.QueryRowContext(ctx,
		`SELECT count() FROM system.tables WHERE database = currentDatabase() AND name = ?`, table).Scan(&n)
	if err != nil {
		return false, s.mapErr("table_exists", table, err)
	}
	return n > 0, nil
}

// CountTables counts every table of the current database.
func (s *CHBarStore) CountTables(ctx context.Context) (int, error) {
	release, err := s.slot("count_tables", "")
	if err != nil {
		return 0, err
	}
	defer release()
	var n uint64
	err = s.db.QueryRowContext(ctx,
		`SELECT count() FROM system.tables WHERE database = currentDatabase()`).Scan(&n)
	if err != nil {
		return 0, s.mapErr("count_tables", "", err)
	}
	return int(n), nil
}

func (s *CHBarStore) ActiveConnections() int {
	return s.ch.Active()
}

func (s *CHBarStore) Ping(ctx context.Context) error {
	if err := s.ch.Health(ctx); err != nil {
		return s.mapErr("ping", "", err)
	}
	return nil
}

func (s *CHBarStore) Close() error {
	return s.ch.Close()
}

func (s *CHBarStore) queryStrings(ctx context.Context, op, q string, args ...interface{}) ([]string, error) {
	release, err := s.slot(op, "")
	if err != nil {
		return nil, err
	}
	defer release()
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, s.mapErr(op, "", err)
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, s.mapErr(op, "", err)
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, s.mapErr(op, "", err)
	}
	return out, nil
}

// slot takes a client query slot for one statement; exhaustion surfaces as ErrStoreBusy.
func (s *CHBarStore) slot(op, table string) (func(), error) {
	release, err := s.ch.Acquire()
	if err != nil {
		return nil, s.mapErr(op, table, err)
	}
	return release, nil
}

func (s *CHBarStore) mapErr(op, table string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	if errors.Is(err, pkgch.ErrPoolExhausted) {
		return fmt.Errorf("%w: %s: %v", domrepo.ErrStoreBusy, op, err)
	}
	var ex *clickhouse.Exception
	if errors.As(err, &ex) {
		switch ex.Code {
		case chUnknownTable:
			return fmt.Errorf("%w: %s", domrepo.ErrTableNotFound, table)
		case chTooManySimultaneous, chTimeoutExceeded, chMemoryLimitExceeded:
			return fmt.Errorf("%w: %s: %v", domrepo.ErrStoreBusy, op, err)
		}
	}
	s.l.Error("clickhouse store error",
		applogger.String("op", op),
		applogger.String("table", table),
		applogger.Error(err),
	)
	return fmt.Errorf("%w: %s: %v", domrepo.ErrStoreUnavailable, op, err)
}

// chIdent quotes a validated identifier for ClickHouse.
func chIdent(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "\\`") + "`"
}
