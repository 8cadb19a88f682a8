package logger

import (
	"context"
	"encoding/json"
	"hash/fnv"
	"sort"
	"strconv"
	"sync"
	"time"
)

// Publisher ships a batch of aggregated entries. The Kafka producer satisfies it.
type Publisher interface {
	PublishMessage(ctx context.Context, topic string, payload interface{}) error
}

type CollectionConfig struct {
	TimeInterval   time.Duration // flush interval, default 30s
	CountThreshold int           // distinct entries that trigger an early flush, default 100
	Levels         []string      // levels to collect, default warn and error
	Topic          string
	Publisher      Publisher
	// OnPublishError is told about batches that could not be shipped; they are dropped.
	OnPublishError func(err error, entries int)
}

// AggregatedLogEntry is one distinct (level, message, fields, caller) tuple and how often it fired.
type AggregatedLogEntry struct {
	Level     string                 `json:"level"`
	Message   string                 `json:"message"`
	Fields    map[string]interface{} `json:"fields,omitempty"`
	Caller    string                 `json:"caller"`
	Count     int                    `json:"count"`
	FirstSeen time.Time              `json:"first_seen"`
	LastSeen  time.Time              `json:"last_seen"`
}

const publishTimeout = 10 * time.Second

// LogCollector dedupes warn/error entries and ships them in batches from a single
// goroutine. A threshold flush that finds the shipper busy keeps aggregating instead
// of blocking the caller.
type LogCollector struct {
	cfg    CollectionConfig
	levels map[string]struct{}
	now    func() time.Time

	mu      sync.Mutex
	entries map[uint64]*AggregatedLogEntry

	batches   chan []AggregatedLogEntry
	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

func NewLogCollector(config *CollectionConfig) *LogCollector {
	cfg := *config
	if cfg.TimeInterval <= 0 {
		cfg.TimeInterval = 30 * time.Second
	}
	if cfg.CountThreshold <= 0 {
		cfg.CountThreshold = 100
	}
	if len(cfg.Levels) == 0 {
		cfg.Levels = []string{"warn", "error"}
	}
	levels := make(map[string]struct{}, len(cfg.Levels))
	for _, lvl := range cfg.Levels {
		levels[lvl] = struct{}{}
	}

	c := &LogCollector{
		cfg:     cfg,
		levels:  levels,
		now:     time.Now,
		entries: make(map[uint64]*AggregatedLogEntry),
		batches: make(chan []AggregatedLogEntry, 4),
		done:    make(chan struct{}),
	}
	c.wg.Add(1)
	go c.run()
	return c
}

// Collects reports whether entries at level are kept.
func (c *LogCollector) Collects(level string) bool {
	_, ok := c.levels[level]
	return ok
}

func (c *LogCollector) AddLog(level, message string, fields map[string]interface{}, caller string) {
	if !c.Collects(level) {
		return
	}
	now := c.now()
	key := entryKey(level, message, fields, caller)

	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		e.Count++
		e.LastSeen = now
	} else {
		c.entries[key] = &AggregatedLogEntry{
			Level:     level,
			Message:   message,
			Fields:    fields,
			Caller:    caller,
			Count:     1,
			FirstSeen: now,
			LastSeen:  now,
		}
	}

	if len(c.entries) < c.cfg.CountThreshold {
		return
	}
	select {
	case c.batches <- c.takeLocked():
	default:
		// shipper is behind; the map keeps counting until the next tick
	}
}

// takeLocked must only be called when the result is certain to be published.
func (c *LogCollector) takeLocked() []AggregatedLogEntry {
	out := make([]AggregatedLogEntry, 0, len(c.entries))
	for _, e := range c.entries {
		out = append(out, *e)
	}
	c.entries = make(map[uint64]*AggregatedLogEntry)
	sort.Slice(out, func(i, j int) bool { return out[i].FirstSeen.Before(out[j].FirstSeen) })
	return out
}

func (c *LogCollector) take() []AggregatedLogEntry {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.entries) == 0 {
		return nil
	}
	return c.takeLocked()
}

func (c *LogCollector) run() {
	defer c.wg.Done()

	ticker := time.NewTicker(c.cfg.TimeInterval)
	defer ticker.Stop()

	for {
		select {
		case batch := <-c.batches:
			c.publish(batch)
		case <-ticker.C:
			c.publish(c.take())
		case <-c.done:
			for {
				select {
				case batch := <-c.batches:
					c.publish(batch)
				default:
					c.publish(c.take())
					return
				}
			}
		}
	}
}

func (c *LogCollector) publish(batch []AggregatedLogEntry) {
	if len(batch) == 0 || c.cfg.Publisher == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()
	if err := c.cfg.Publisher.PublishMessage(ctx, c.cfg.Topic, batch); err != nil && c.cfg.OnPublishError != nil {
		c.cfg.OnPublishError(err, len(batch))
	}
}

// Close ships whatever is pending and stops the shipper. Safe to call twice.
func (c *LogCollector) Close() {
	c.closeOnce.Do(func() { close(c.done) })
	c.wg.Wait()
}

func entryKey(level, message string, fields map[string]interface{}, caller string) uint64 {
	h := fnv.New64a()
	for _, s := range []string{level, message, caller} {
		_, _ = h.Write([]byte(s))
		_, _ = h.Write([]byte{0})
	}
	// json.Marshal sorts map keys, so equal field sets hash equally.
	if b, err := json.Marshal(fields); err == nil {
		_, _ = h.Write(b)
	} else {
		_, _ = h.Write([]byte(strconv.Itoa(len(fields))))
	}
	return h.Sum64()
}
