package document

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// OpStats holds database operation statistics.
type OpStats struct {
	// Reads counts Get and GetMany calls.
	Reads atomic.Int64
	// Writes counts Put calls.
	Writes atomic.Int64
	// Deletes counts Delete calls.
	Deletes atomic.Int64
	// Duration is the total time spent in operations, in nanoseconds.
	Duration atomic.Int64
	// Slow counts operations exceeding the slow threshold.
	Slow atomic.Int64
	// Errors counts failed operations. Missing documents are not errors.
	Errors atomic.Int64
}

// Stats returns a snapshot of the current statistics.
func (s *OpStats) Stats() StatsSnapshot {
	return StatsSnapshot{
		Reads:    s.Reads.Load(),
		Writes:   s.Writes.Load(),
		Deletes:  s.Deletes.Load(),
		Duration: time.Duration(s.Duration.Load()),
		Slow:     s.Slow.Load(),
		Errors:   s.Errors.Load(),
	}
}

// Reset resets all statistics to zero.
func (s *OpStats) Reset() {
	s.Reads.Store(0)
	s.Writes.Store(0)
	s.Deletes.Store(0)
	s.Duration.Store(0)
	s.Slow.Store(0)
	s.Errors.Store(0)
}

// StatsSnapshot is a point-in-time snapshot of operation statistics.
type StatsSnapshot struct {
	Reads    int64
	Writes   int64
	Deletes  int64
	Duration time.Duration
	Slow     int64
	Errors   int64
}

// Ops returns the total number of operations.
func (s StatsSnapshot) Ops() int64 {
	return s.Reads + s.Writes + s.Deletes
}

// AvgDuration returns the average operation duration.
func (s StatsSnapshot) AvgDuration() time.Duration {
	if s.Ops() == 0 {
		return 0
	}
	return s.Duration / time.Duration(s.Ops())
}

// String returns a human-readable summary of the statistics.
func (s StatsSnapshot) String() string {
	return fmt.Sprintf(
		"reads=%d writes=%d deletes=%d duration=%s avg=%s slow=%d errors=%d",
		s.Reads, s.Writes, s.Deletes, s.Duration, s.AvgDuration(), s.Slow, s.Errors,
	)
}

// SlowOpHook is called when an operation exceeds the slow threshold.
type SlowOpHook func(ctx context.Context, collection, op string, duration time.Duration)

// StatsDatabase wraps a Database with operation statistics.
type StatsDatabase struct {
	Database
	stats         *OpStats
	slowThreshold time.Duration
	slowHook      SlowOpHook
	mu            sync.RWMutex
}

// StatsOption configures the StatsDatabase.
type StatsOption func(*StatsDatabase)

// WithSlowThreshold sets the threshold for slow operation detection.
// Default is 100ms.
func WithSlowThreshold(d time.Duration) StatsOption {
	return func(s *StatsDatabase) {
		s.slowThreshold = d
	}
}

// WithSlowOpHook sets a callback for slow operations.
func WithSlowOpHook(hook SlowOpHook) StatsOption {
	return func(s *StatsDatabase) {
		s.slowHook = hook
	}
}

// WithSlowOpLog logs slow operations as warnings.
func WithSlowOpLog(l *zap.Logger) StatsOption {
	return WithSlowOpHook(func(_ context.Context, collection, op string, d time.Duration) {
		l.Warn("slow document operation",
			zap.String("collection", collection),
			zap.String("op", op),
			zap.Duration("duration", d),
		)
	})
}

// NewStatsDatabase wraps db with statistics collection.
//
//	db := document.NewStatsDatabase(mongodb.NewDatabase(client.Database("shop")),
//	    document.WithSlowThreshold(200*time.Millisecond),
//	    document.WithSlowOpLog(logger),
//	)
//	sess, _ := session.Open(g, db)
//	...
//	fmt.Println(db.OpStats().Stats())
func NewStatsDatabase(db Database, opts ...StatsOption) *StatsDatabase {
	s := &StatsDatabase{
		Database:      db,
		stats:         &OpStats{},
		slowThreshold: 100 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// OpStats returns the underlying statistics.
func (d *StatsDatabase) OpStats() *OpStats {
	return d.stats
}

// SlowThreshold returns the current slow operation threshold.
func (d *StatsDatabase) SlowThreshold() time.Duration {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.slowThreshold
}

// SetSlowThreshold updates the slow operation threshold.
func (d *StatsDatabase) SetSlowThreshold(threshold time.Duration) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.slowThreshold = threshold
}

// Collection returns the named collection wrapped with statistics.
func (d *StatsDatabase) Collection(name string) Collection {
	return &statsCollection{Collection: d.Database.Collection(name), db: d}
}

func (d *StatsDatabase) record(ctx context.Context, coll, op string, counter *atomic.Int64, start time.Time, err error) {
	duration := time.Since(start)
	counter.Add(1)
	d.stats.Duration.Add(int64(duration))
	if err != nil && !IsNoDocument(err) {
		d.stats.Errors.Add(1)
	}
	d.mu.RLock()
	threshold := d.slowThreshold
	hook := d.slowHook
	d.mu.RUnlock()
	if duration > threshold {
		d.stats.Slow.Add(1)
		if hook != nil {
			hook(ctx, coll, op, duration)
		}
	}
}

type statsCollection struct {
	Collection
	db *StatsDatabase
}

func (c *statsCollection) Put(ctx context.Context, id string, doc *Node) error {
	start := time.Now()
	err := c.Collection.Put(ctx, id, doc)
	c.db.record(ctx, c.Name(), "put", &c.db.stats.Writes, start, err)
	return err
}

func (c *statsCollection) Get(ctx context.Context, id string) (*Node, error) {
	start := time.Now()
	doc, err := c.Collection.Get(ctx, id)
	c.db.record(ctx, c.Name(), "get", &c.db.stats.Reads, start, err)
	return doc, err
}

func (c *statsCollection) GetMany(ctx context.Context, ids []string) ([]*Node, error) {
	start := time.Now()
	docs, err := c.Collection.GetMany(ctx, ids)
	c.db.record(ctx, c.Name(), "get_many", &c.db.stats.Reads, start, err)
	return docs, err
}

func (c *statsCollection) Delete(ctx context.Context, id string) error {
	start := time.Now()
	err := c.Collection.Delete(ctx, id)
	c.db.record(ctx, c.Name(), "delete", &c.db.stats.Deletes, start, err)
	return err
}

var _ Database = (*StatsDatabase)(nil)
