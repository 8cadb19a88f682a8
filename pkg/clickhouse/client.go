package clickhouse

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	_ "github.com/ClickHouse/clickhouse-go/v2"
	"golang.org/x/sync/semaphore"
)

// ErrPoolExhausted is returned when every query slot is taken.
var ErrPoolExhausted = errors.New("clickhouse: connection pool exhausted")

// Client manages the ClickHouse connection pool. Query slots are capped at
// MaxOpenConns and Acquire fails fast at the ceiling, so callers never wait
// inside database/sql for a free connection.
type Client struct {
	db     *sql.DB
	sem    *semaphore.Weighted
	max    int
	active atomic.Int64
}

// NewClient creates a ClickHouse client with connection pool.
func NewClient(opts ...ClientOption) (*Client, error) {
	cfg := &ClientConfig{
		MaxOpenConns:    10,
		MaxIdleConns:    5,
		ConnMaxLifetime: 5 * time.Minute,
		DialTimeout:     5 * time.Second,
		ReadTimeout:     10 * time.Second,
		WriteTimeout:    10 * time.Second,
	}

	for _, opt := range opts {
		opt(cfg)
	}

	if cfg.Host == "" {
		return nil, fmt.Errorf("host is required")
	}

	dsn := buildDSN(*cfg)
	db, err := sql.Open("clickhouse", dsn)
	if err != nil {
		return nil, fmt.Errorf("clickhouse open: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("clickhouse ping: %w", err)
	}

	return Wrap(db, cfg.MaxOpenConns), nil
}

// Wrap puts the slot ceiling around an already opened handle.
func Wrap(db *sql.DB, maxConns int) *Client {
	if maxConns <= 0 {
		maxConns = 1
	}
	return &Client{db: db, sem: semaphore.NewWeighted(int64(maxConns)), max: maxConns}
}

// Acquire reserves a query slot. The returned release func is idempotent.
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

// DB returns *sql.DB for direct use.
func (c *Client) DB() *sql.DB {
	return c.db
}

// Health performs health check. It holds a slot like any other query.
func (c *Client) Health(ctx context.Context) error {
	release, err := c.Acquire()
	if err != nil {
		return err
	}
	defer release()
	return c.db.PingContext(ctx)
}

// Active returns the number of slots currently held.
func (c *Client) Active() int {
	return int(c.active.Load())
}

// MaxConnections returns the slot ceiling.
func (c *Client) MaxConnections() int {
	return c.max
}

// Close closes connection pool.
func (c *Client) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

func buildDSN(cfg ClientConfig) string {
	scheme := "clickhouse://"
	if cfg.UseHTTP {
		scheme = "clickhouse+http://"
	}
	dsn := fmt.Sprintf("%s%s:%s@%s:%d/%s",
		scheme, cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.Database)

	// helper to add query params
	add := func(first bool, key string, val any) string {
		sep := "&"
		if first {
			sep = "?"
		}
		return fmt.Sprintf("%s%s=%v", sep, key, val)
	}

	first := true
	if cfg.DialTimeout > 0 {
		dsn += add(first, "dial_timeout", cfg.DialTimeout)
		first = false
	}
	if cfg.ReadTimeout > 0 {
		dsn += add(first, "read_timeout", cfg.ReadTimeout)
		first = false
	}
	if cfg.MaxExecTime > 0 {
		dsn += add(first, "max_execution_time", int(cfg.MaxExecTime.Seconds()))
		first = false
	}
	// readonly=2 forbids writes but still lets the DSN set query limits.
	dsn += add(first, "readonly", 2)
	return dsn
}
