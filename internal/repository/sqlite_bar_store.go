package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"BarView/internal/domain/models"
	domrepo "BarView/internal/domain/repository"
	applogger "BarView/pkg/logger"
	pkgsqlite "BarView/pkg/sqlite"
	xutil "BarView/pkg/util"
)

// SQLiteBarStore reads bar tables from a SQLite database. Every table holds one instrument.
type SQLiteBarStore struct {
	client *pkgsqlite.Client
	l      *applogger.Logger
}

// NewSQLiteBarStore creates a bar store on top of a pooled client.
func NewSQLiteBarStore(client *pkgsqlite.Client, l *applogger.Logger) *SQLiteBarStore {
	return &SQLiteBarStore{client: client, l: l}
}

var _ domrepo.BarStore = (*SQLiteBarStore)(nil)

func (s *SQLiteBarStore) FetchBars(ctx context.Context, table string, r domrepo.TimeRange, limit int) ([]models.Bar, error) {
	if err := domrepo.ValidateTableName(table); err != nil {
		return nil, err
	}
	if limit <= 0 {
		return nil, domrepo.ErrInvalidLimit
	}

	var out []models.Bar
	err := s.client.WithConn(ctx, func(ctx context.Context, conn *sql.Conn) error {
		cols, err := tableColumns(ctx, conn, table)
		if err != nil {
			return err
		}
		if len(cols) == 0 {
			return fmt.Errorf("%w: %s", domrepo.ErrTableNotFound, table)
		}
		volume := "0"
		if containsFold(cols, "volume") {
			volume = "CAST(volume AS INTEGER)"
		}

		where, args := rangePredicate(r)
		q := fmt.Sprintf(`
			SELECT CAST(bar_end_datetime AS TEXT), open_price, high_price, low_price, close_price, %s
			FROM %s
			WHERE %s
			ORDER BY bar_end_datetime ASC
			LIMIT ?`, volume, quoteIdent(table), where)
		args = append(args, limit)

		rows, err := conn.QueryContext(ctx, q, args...)
		if err != nil {
			return fmt.Errorf("fetch bars: %w", err)
		}
		defer rows.Close()

		out = make([]models.Bar, 0, min(limit, 4096))
		var skipped unparsed
		for rows.Next() {
			var (
				ts          sql.NullString
				o, h, lo, c sql.NullFloat64
				v           sql.NullInt64
			)
			if err := rows.Scan(&ts, &o, &h, &lo, &c, &v); err != nil {
				return fmt.Errorf("scan bar: %w", err)
			}
			t, err := xutil.ParseBarTime(ts.String)
			if err != nil {
				skipped.add(ts.String)
				continue
			}
			out = append(out, models.Bar{
				Timestamp: t,
				Open:      o.Float64,
				High:      h.Float64,
				Low:       lo.Float64,
				Close:     c.Float64,
				Volume:    v.Int64,
			})
		}
		skipped.report(s.l, table, limit)
		return rows.Err()
	})
	if err != nil {
		return nil, s.mapErr("fetch_bars", table, err)
	}
	return out, nil
}

func (s *SQLiteBarStore) ListTables(ctx context.Context) ([]string, error) {
	var names []string
	err := s.client.WithConn(ctx, func(ctx context.Context, conn *sql.Conn) error {
		rows, err := conn.QueryContext(ctx,
			`SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name`)
		if err != nil {
			return fmt.Errorf("list tables: %w", err)
		}
		defer rows.Close()
		for rows.Next() {
			var name string
			if err := rows.Scan(&name); err != nil {
				return err
			}
			names = append(names, name)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, s.mapErr("list_tables", "", err)
	}
	return names, nil
}

func (s *SQLiteBarStore) TableColumns(ctx context.Context, table string) ([]string, error) {
	if err := domrepo.ValidateTableName(table); err != nil {
		return nil, err
	}
	var cols []string
	err := s.client.WithConn(ctx, func(ctx context.Context, conn *sql.Conn) error {
		var err error
		cols, err = tableColumns(ctx, conn, table)
		return err
	})
	if err != nil {
		return nil, s.mapErr("table_columns", table, err)
	}
	return cols, nil
}

func (s *SQLiteBarStore) TableStats(ctx context.Context, table string) (models.TableStats, error) {
	if err := domrepo.ValidateTableName(table); err != nil {
		return models.TableStats{}, err
	}
	var st models.TableStats
	err := s.client.WithConn(ctx, func(ctx context.Context, conn *sql.Conn) error {
		q := fmt.Sprintf(`
			SELECT COUNT(*), CAST(MIN(bar_end_datetime) AS TEXT), CAST(MAX(bar_end_datetime) AS TEXT)
			FROM %s`, quoteIdent(table))
		var lo, hi sql.NullString
		if err := conn.QueryRowContext(ctx, q).Scan(&st.Count, &lo, &hi); err != nil {
			return fmt.Errorf("table stats: %w", err)
		}
		st.MinTS, st.MaxTS = lo.String, hi.String
		return nil
	})
	if err != nil {
		return models.TableStats{}, s.mapErr("table_stats", table, err)
	}
	return st, nil
}

func (s *SQLiteBarStore) TableExists(ctx context.Context, table string) (bool, error) {
	if err := domrepo.ValidateTableName(table); err != nil {
		return false, err
	}
	var found bool
	err := s.client.WithConn(ctx, func(ctx context.Context, conn *sql.Conn) error {
		var name string
		err := conn.QueryRowContext(ctx,
			`SELECT name FROM sqlite_master WHERE type = 'table' AND name = ? LIMIT 1`, table).Scan(&name)
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		if err != nil {
			return err
		}
		found = true
		return nil
	})
	if err != nil {
		return false, s.mapErr("table_exists", table, err)
	}
	return found, nil
}

// CountTables counts every user table, trading or not.
func (s *SQLiteBarStore) CountTables(ctx context.Context) (int, error) {
	var n int
	err := s.client.WithConn(ctx, func(ctx context.Context, conn *sql.Conn) error {
		return conn.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%'`).Scan(&n)
	})
	if err != nil {
		return 0, s.mapErr("count_tables", "", err)
	}
	return n, nil
}

func (s *SQLiteBarStore) ActiveConnections() int {
	return s.client.Active()
}

func (s *SQLiteBarStore) Ping(ctx context.Context) error {
	if err := s.client.Health(ctx); err != nil {
		return s.mapErr("ping", "", err)
	}
	return nil
}

func (s *SQLiteBarStore) Close() error {
	return s.client.Close()
}

// unparsed tallies rows dropped for a bad timestamp. They still count against
// the SQL LIMIT, so the caller gets fewer rows than asked for.
type unparsed struct {
	n     int
	first string
}

func (u *unparsed) add(v string) {
	if u.n == 0 {
		u.first = v
	}
	u.n++
}

func (u *unparsed) report(l *applogger.Logger, table string, limit int) {
	if u.n == 0 {
		return
	}
	l.Warn("skipped bars with unparseable timestamps",
		applogger.String("table", table),
		applogger.Int("skipped", u.n),
		applogger.Int("limit", limit),
		applogger.String("first_value", u.first),
	)
}

// mapErr translates driver failures into domain errors and logs them once.
func (s *SQLiteBarStore) mapErr(op, table string, err error) error {
	switch {
	case domrepo.IsValidation(err) || domrepo.IsNotFound(err):
		return err
	case pkgsqlite.IsTransient(err):
		return fmt.Errorf("%w: %s: %v", domrepo.ErrStoreBusy, op, err)
	case strings.Contains(err.Error(), "no such table"):
		return fmt.Errorf("%w: %s", domrepo.ErrTableNotFound, table)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	}
	s.l.Error("sqlite store error",
		applogger.String("op", op),
		applogger.String("table", table),
		applogger.Error(err),
	)
	return fmt.Errorf("%w: %s: %v", domrepo.ErrStoreUnavailable, op, err)
}

func tableColumns(ctx context.Context, conn *sql.Conn, table string) ([]string, error) {
	rows, err := conn.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%s)", quoteIdent(table)))
	if err != nil {
		return nil, fmt.Errorf("table info: %w", err)
	}
	defer rows.Close()

	var cols []string
	for rows.Next() {
		var (
			cid, notNull, pk int
			name, ctype      string
			dflt             sql.NullString
		)
		if err := rows.Scan(&cid, &name, &ctype, &notNull, &dflt, &pk); err != nil {
			return nil, fmt.Errorf("scan column: %w", err)
		}
		cols = append(cols, name)
	}
	return cols, rows.Err()
}

// rangePredicate renders inclusive timestamp bounds as text comparisons against the
// canonical "YYYY-MM-DD HH:MM:SS" column format.
func rangePredicate(r domrepo.TimeRange) (string, []interface{}) {
	conds := make([]string, 0, 2)
	args := make([]interface{}, 0, 3)
	if r.From != nil {
		conds = append(conds, "bar_end_datetime >= ?")
		args = append(args, xutil.FormatBarTime(*r.From))
	}
	if r.To != nil {
		conds = append(conds, "bar_end_datetime <= ?")
		args = append(args, xutil.FormatBarTime(*r.To))
	}
	if len(conds) == 0 {
		return "1=1", args
	}
	return strings.Join(conds, " AND "), args
}

// quoteIdent quotes a validated identifier for SQLite.
func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func containsFold(list []string, s string) bool {
	for _, v := range list {
		if strings.EqualFold(v, s) {
			return true
		}
	}
	return false
}

