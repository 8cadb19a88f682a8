package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mattn/go-sqlite3"
	"golang.org/x/sync/semaphore"
)

var (
	// ErrPoolExhausted is returned when every connection slot is taken.
	ErrPoolExhausted = errors.New("sqlite: connection pool exhausted")
	// ErrBusy marks SQLITE_BUSY and SQLITE_LOCKED failures.
	ErrBusy = errors.New("sqlite: database busy")

	driversMu sync.Mutex
	drivers   = map[int64]string{}
)

// driverFor returns a registered driver whose connect hook applies the pragmas the DSN
// cannot carry, so every pooled connection gets them. One driver per mmap size.
func driverFor(mmapBytes int64) string {
	driversMu.Lock()
	defer driversMu.Unlock()
	if name, ok := drivers[mmapBytes]; ok {
		return name
	}

	pragmas := []string{"PRAGMA temp_store=MEMORY"}
	if mmapBytes > 0 {
		pragmas = append(pragmas, fmt.Sprintf("PRAGMA mmap_size=%d", mmapBytes))
	}
	name := fmt.Sprintf("sqlite3_barview_%d", len(drivers))
	sql.Register(name, &sqlite3.SQLiteDriver{
		ConnectHook: func(conn *sqlite3.SQLiteConn) error {
			for _, p := range pragmas {
				if _, err := conn.Exec(p, nil); err != nil {
					return err
				}
			}
			return nil
		},
	})
	drivers[mmapBytes] = name
	return name
}

// Client is a bounded SQLite connection pool. Acquire fails fast at the ceiling
// instead of queueing.
type Client struct {
	db     *sql.DB
	sem    *semaphore.Weighted
	max    int
	active atomic.Int64
}

// NewClient opens the database and applies the connection pragmas.
func NewClient(opts ...ClientOption) (*Client, error) {
	cfg := &ClientConfig{
		MaxConnections: 10,
		BusyTimeout:    30 * time.Second,
		CacheSize:      10000,
		MmapSize:       268435456,
	}

	for _, opt := range opts {
		opt(cfg)
	}

	if cfg.Path == "" {
		return nil, fmt.Errorf("path is required")
	}

	db, err := sql.Open(driverFor(cfg.MmapSize), buildDSN(*cfg))
	if err != nil {
		return nil, fmt.Errorf("sqlite open: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxConnections)
	db.SetMaxIdleConns(cfg.MaxConnections)
	db.SetConnMaxLifetime(time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite ping: %w", err)
	}

	return &Client{
		db:  db,
		sem: semaphore.NewWeighted(int64(cfg.MaxConnections)),
		max: cfg.MaxConnections,
	}, nil
}

// Acquire reserves a connection slot. The returned release func is idempotent.
func (c *Client) Acquire() (release func(), err error) {
	if !c.sem.TryAcquire(1) {
		return nil, ErrPoolExhausted
	}
	c.active.Add(1)
	var once sync.Once
	return func() {
		once.Do(func() {
			c.active.Add(-1)
			c.sem.Release(1)
		})
	}, nil
}

// WithConn runs fn on a dedicated connection while holding a pool slot.
func (c *Client) WithConn(ctx context.Context, fn func(ctx context.Context, conn *sql.Conn) error) error {
	release, err := c.Acquire()
	if err != nil {
		return err
	}
	defer release()

	conn, err := c.db.Conn(ctx)
	if err != nil {
		return Classify(fmt.Errorf("sqlite conn: %w", err))
	}
	defer conn.Close()

	return Classify(fn(ctx, conn))
}

// Active returns the number of slots currently held.
func (c *Client) Active() int {
	return int(c.active.Load())
}

// MaxConnections returns the pool ceiling.
func (c *Client) MaxConnections() int {
	return c.max
}

// DB returns *sql.DB for direct use.
func (c *Client) DB() *sql.DB {
	return c.db
}

// Health performs health check.
func (c *Client) Health(ctx context.Context) error {
	return c.WithConn(ctx, func(ctx context.Context, conn *sql.Conn) error {
		return conn.PingContext(ctx)
	})
}

// Close closes connection pool.
func (c *Client) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

// InitSchema executes idempotent DDL statements.
func (c *Client) InitSchema(ctx context.Context, stmts []string) error {
	return c.WithConn(ctx, func(ctx context.Context, conn *sql.Conn) error {
		for _, stmt := range stmts {
			if _, err := conn.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("init schema: %w", err)
			}
		}
		return nil
	})
}

// Classify wraps SQLITE_BUSY/SQLITE_LOCKED errors with ErrBusy. Other errors pass through.
func Classify(err error) error {
	if err == nil || errors.Is(err, ErrBusy) {
		return err
	}
	var se sqlite3.Error
	if errors.As(err, &se) && (se.Code == sqlite3.ErrBusy || se.Code == sqlite3.ErrLocked) {
		return fmt.Errorf("%w: %v", ErrBusy, err)
	}
	return err
}

// IsTransient reports whether err is worth retrying.
func IsTransient(err error) bool {
	return errors.Is(err, ErrBusy) || errors.Is(err, ErrPoolExhausted)
}

func buildDSN(cfg ClientConfig) string {
	path := cfg.Path
	if !strings.HasPrefix(path, "file:") {
		path = "file:" + path
	}
	params := []string{
		fmt.Sprintf("_busy_timeout=%d", cfg.BusyTimeout.Milliseconds()),
		"_journal_mode=WAL",
		"_synchronous=NORMAL",
	}
	if cfg.CacheSize != 0 {
		params = append(params, fmt.Sprintf("_cache_size=%d", cfg.CacheSize))
	}
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + strings.Join(params, "&")
}
