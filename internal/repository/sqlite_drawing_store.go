package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"BarView/internal/domain/models"
	domrepo "BarView/internal/domain/repository"
	applogger "BarView/pkg/logger"
	pkgsqlite "BarView/pkg/sqlite"
	xutil "BarView/pkg/util"
)

var drawingSchema = []string{
	`CREATE TABLE IF NOT EXISTS saved_drawings (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		layout INTEGER DEFAULT 1,
		instruments TEXT,
		timeframe TEXT DEFAULT '1min',
		start_date TEXT,
		end_date TEXT,
		drawings_data TEXT,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE INDEX IF NOT EXISTS idx_saved_drawings_created_at ON saved_drawings(created_at)`,
	`CREATE INDEX IF NOT EXISTS idx_saved_drawings_name ON saved_drawings(name)`,
}

// SQLiteDrawingStore persists saved drawing sets next to the bar tables.
type SQLiteDrawingStore struct {
	client *pkgsqlite.Client
	l      *applogger.Logger
}

func NewSQLiteDrawingStore(client *pkgsqlite.Client, l *applogger.Logger) *SQLiteDrawingStore {
	return &SQLiteDrawingStore{client: client, l: l}
}

var _ domrepo.DrawingStore = (*SQLiteDrawingStore)(nil)

// Init creates the table and indexes if missing.
func (s *SQLiteDrawingStore) Init(ctx context.Context) error {
	if err := s.client.InitSchema(ctx, drawingSchema); err != nil {
		return s.mapErr("init", err)
	}
	return nil
}

func (s *SQLiteDrawingStore) Create(ctx context.Context, d *models.Drawing) (int64, error) {
	payload := d.Drawings
	if len(payload) == 0 {
		payload = json.RawMessage("[]")
	}
	var id int64
	err := s.client.WithConn(ctx, func(ctx context.Context, conn *sql.Conn) error {
		res, err := conn.ExecContext(ctx, `
			INSERT INTO saved_drawings (name, layout, instruments, timeframe, start_date, end_date, drawings_data)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			d.Name, d.Layout, strings.Join(d.Instruments, ","), d.Timeframe,
			nullable(d.StartDate), nullable(d.EndDate), string(payload),
		)
		if err != nil {
			return fmt.Errorf("insert drawing: %w", err)
		}
		id, err = res.LastInsertId()
		return err
	})
	if err != nil {
		return 0, s.mapErr("create", err)
	}
	return id, nil
}

func (s *SQLiteDrawingStore) Get(ctx context.Context, id int64) (*models.Drawing, error) {
	var d *models.Drawing
	err := s.client.WithConn(ctx, func(ctx context.Context, conn *sql.Conn) error {
		var (
			layout                sql.NullInt64
			instruments, tf       sql.NullString
			start, end, data, cat sql.NullString
			out                   models.Drawing
		)
		err := conn.QueryRowContext(ctx, `
			SELECT id, name, layout, instruments, timeframe, start_date, end_date, drawings_data,
				CAST(created_at AS TEXT)
			FROM saved_drawings WHERE id = ?`, id).
			Scan(&out.ID, &out.Name, &layout, &instruments, &tf, &start, &end, &data, &cat)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%w: %d", domrepo.ErrDrawingNotFound, id)
		}
		if err != nil {
			return fmt.Errorf("get drawing: %w", err)
		}

		out.Layout = int(layout.Int64)
		out.Instruments = xutil.SplitNonEmpty(instruments.String, ",")
		out.Timeframe = tf.String
		out.StartDate = stringPtr(start)
		out.EndDate = stringPtr(end)
		out.Drawings = json.RawMessage("[]")
		if data.Valid && json.Valid([]byte(data.String)) {
			out.Drawings = json.RawMessage(data.String)
		}
		out.CreatedAt, _ = xutil.ParseBarTime(cat.String)
		d = &out
		return nil
	})
	if err != nil {
		return nil, s.mapErr("get", err)
	}
	return d, nil
}

func (s *SQLiteDrawingStore) List(ctx context.Context, limit, offset int) ([]models.DrawingSummary, int64, error) {
	var (
		out   []models.DrawingSummary
		total int64
	)
	err := s.client.WithConn(ctx, func(ctx context.Context, conn *sql.Conn) error {
		if err := conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM saved_drawings`).Scan(&total); err != nil {
			return fmt.Errorf("count drawings: %w", err)
		}
		rows, err := conn.QueryContext(ctx, `
			SELECT id, name, CAST(created_at AS TEXT), layout, instruments, timeframe
			FROM saved_drawings
			ORDER BY created_at DESC, id DESC
			LIMIT ? OFFSET ?`, limit, offset)
		if err != nil {
			return fmt.Errorf("list drawings: %w", err)
		}
		defer rows.Close()

		out = make([]models.DrawingSummary, 0, limit)
		for rows.Next() {
			var (
				sm                   models.DrawingSummary
				cat, instruments, tf sql.NullString
				layout               sql.NullInt64
			)
			if err := rows.Scan(&sm.ID, &sm.Name, &cat, &layout, &instruments, &tf); err != nil {
				return fmt.Errorf("scan drawing: %w", err)
			}
			sm.CreatedAt, _ = xutil.ParseBarTime(cat.String)
			sm.Layout = int(layout.Int64)
			sm.Instruments = instruments.String
			sm.Timeframe = tf.String
			out = append(out, sm)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, 0, s.mapErr("list", err)
	}
	return out, total, nil
}

func (s *SQLiteDrawingStore) Delete(ctx context.Context, id int64) error {
	err := s.client.WithConn(ctx, func(ctx context.Context, conn *sql.Conn) error {
		res, err := conn.ExecContext(ctx, `DELETE FROM saved_drawings WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("delete drawing: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return fmt.Errorf("%w: %d", domrepo.ErrDrawingNotFound, id)
		}
		return nil
	})
	if err != nil {
		return s.mapErr("delete", err)
	}
	return nil
}

func (s *SQLiteDrawingStore) mapErr(op string, err error) error {
	switch {
	case domrepo.IsNotFound(err), errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	case pkgsqlite.IsTransient(err):
		return fmt.Errorf("%w: drawings %s: %v", domrepo.ErrStoreBusy, op, err)
	}
	s.l.Error("drawing store error", applogger.String("op", op), applogger.Error(err))
	return fmt.Errorf("%w: drawings %s: %v", domrepo.ErrStoreUnavailable, op, err)
}

func nullable(s *string) interface{} {
	if s == nil {
		return nil
	}
	return *s
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	v := ns.String
	return &v
}
