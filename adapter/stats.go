package adapter

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Stats summarizes the statements run through a StatsExecQuerier.
type Stats struct {
	Queries  int
	Execs    int
	Errors   int
	Slow     int
	Duration time.Duration
	// Slowest is the statement that took the longest, and SlowestTime its duration.
	Slowest     string
	SlowestTime time.Duration
}

func (s Stats) String() string {
	str := fmt.Sprintf("queries=%d execs=%d duration=%s slow=%d errors=%d",
		s.Queries, s.Execs, s.Duration, s.Slow, s.Errors)
	if s.Slowest != "" {
		str += fmt.Sprintf(" slowest=%s", s.SlowestTime)
	}
	return str
}

// StatsExecQuerier counts the statements a registry runs and logs the ones
// slower than its threshold.
type StatsExecQuerier struct {
	ExecQuerier
	threshold time.Duration
	log       *zap.Logger

	mu    sync.Mutex
	stats Stats
}

// StatsOption configures a StatsExecQuerier.
type StatsOption func(*StatsExecQuerier)

// WithSlowThreshold sets the duration above which a statement is slow.
// Default is 100ms.
func WithSlowThreshold(d time.Duration) StatsOption {
	return func(s *StatsExecQuerier) {
		s.threshold = d
	}
}

// WithSlowQueryLog logs slow statements at the warn level.
func WithSlowQueryLog(log *zap.Logger) StatsOption {
	return func(s *StatsExecQuerier) {
		s.log = log
	}
}

// NewStatsExecQuerier wraps db. It is used by the check command:
//
//	stats := adapter.NewStatsExecQuerier(conn, adapter.WithSlowQueryLog(log))
//	err := registry.CreateAll(ctx, stats)
//	fmt.Println(stats.Stats())
func NewStatsExecQuerier(db ExecQuerier, opts ...StatsOption) *StatsExecQuerier {
	s := &StatsExecQuerier{
		ExecQuerier: db,
		threshold:   100 * time.Millisecond,
		log:         zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Stats returns the counters collected so far.
func (s *StatsExecQuerier) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

func (s *StatsExecQuerier) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	start := time.Now()
	res, err := s.ExecQuerier.ExecContext(ctx, query, args...)
	s.record(query, args, time.Since(start), err, false)
	return res, err
}

func (s *StatsExecQuerier) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	start := time.Now()
	rows, err := s.ExecQuerier.QueryContext(ctx, query, args...)
	s.record(query, args, time.Since(start), err, true)
	return rows, err
}

func (s *StatsExecQuerier) record(query string, args []any, d time.Duration, err error, isQuery bool) {
	s.mu.Lock()
	if isQuery {
		s.stats.Queries++
	} else {
		s.stats.Execs++
	}
	if err != nil {
		s.stats.Errors++
	}
	s.stats.Duration += d
	if s.stats.Slowest == "" || d > s.stats.SlowestTime {
		s.stats.Slowest, s.stats.SlowestTime = query, d
	}
	slow := d > s.threshold
	if slow {
		s.stats.Slow++
	}
	s.mu.Unlock()
	if slow {
		s.log.Warn("slow statement",
			zap.Duration("duration", d),
			zap.String("query", query),
			zap.Any("args", args),
		)
	}
}
