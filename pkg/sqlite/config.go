package sqlite

import "time"

// ClientOption configures Client.
type ClientOption func(*ClientConfig)

// ClientConfig holds SQLite configuration.
type ClientConfig struct {
	Path           string
	MaxConnections int
	BusyTimeout    time.Duration
	CacheSize      int
	MmapSize       int64
}

// WithPath sets the database file path.
func WithPath(path string) ClientOption {
	return func(c *ClientConfig) {
		c.Path = path
	}
}

// WithMaxConnections sets the pool ceiling.
func WithMaxConnections(n int) ClientOption {
	return func(c *ClientConfig) {
		if n > 0 {
			c.MaxConnections = n
		}
	}
}

// WithBusyTimeout sets how long SQLite waits on a locked database before reporting busy.
func WithBusyTimeout(d time.Duration) ClientOption {
	return func(c *ClientConfig) {
		c.BusyTimeout = d
	}
}

// WithCache sets the page cache size (pages) and mmap size (bytes).
func WithCache(pages int, mmapBytes int64) ClientOption {
	return func(c *ClientConfig) {
		c.CacheSize = pages
		c.MmapSize = mmapBytes
	}
}
