package snapshot

import (
	"context"
	"errors"
	"fmt"
	"time"

	hierrors "github.com/Dicklesworthstone/hostinfo/internal/errors"
	"github.com/Dicklesworthstone/hostinfo/internal/logger"
	"github.com/Dicklesworthstone/hostinfo/internal/model"
	"github.com/Dicklesworthstone/hostinfo/internal/process"
)

// ErrStop may be returned by a Sink to end Run without an error.
var ErrStop = errors.New("stop refreshing")

// Sink receives each delivered snapshot.
type Sink func(model.Snapshot) error

// Collector builds snapshots; *Assembler is the production implementation.
type Collector interface {
	Assemble(ctx context.Context, limit int, key process.SortKey) model.Snapshot
}

// Options configures a Scheduler.
type Options struct {
	Interval time.Duration
	Limit    int
	Sort     process.SortKey
	Log      logger.Logger
}

// Scheduler runs the refresh loop: assemble, deliver, sleep out the rest of
// the interval.
type Scheduler struct {
	collector Collector
	interval  time.Duration
	limit     int
	sort      process.SortKey
	log       logger.Logger
	now       func() time.Time
}

// NewScheduler creates a scheduler over c.
func NewScheduler(c Collector, opts Options) *Scheduler {
	log := opts.Log
	if log == nil {
		log = logger.Noop()
	}
	key := opts.Sort
	if key == "" {
		key = process.SortCPU
	}
	return &Scheduler{
		collector: c,
		interval:  opts.Interval,
		limit:     opts.Limit,
		sort:      key,
		log:       log,
		now:       time.Now,
	}
}

// Interval returns the configured refresh interval.
func (s *Scheduler) Interval() time.Duration { return s.interval }

// Once assembles a single snapshot.
func (s *Scheduler) Once(ctx context.Context) model.Snapshot {
	return s.collector.Assemble(ctx, s.limit, s.sort)
}

// Run delivers snapshots to sink until ctx is cancelled or sink returns
// ErrStop, both of which return nil. Any other sink error is returned
// wrapped. A snapshot assembled while ctx was being cancelled is dropped.
func (s *Scheduler) Run(ctx context.Context, sink Sink) error {
	if s.interval <= 0 {
		return hierrors.New(hierrors.Config, "refresh interval must be positive", "pass --interval with a value such as 2s")
	}

	for tick := 1; ; tick++ {
		if ctx.Err() != nil {
			return nil
		}
		start := s.now()
		snap := s.collector.Assemble(ctx, s.limit, s.sort)
		if ctx.Err() != nil {
			return nil
		}

		if err := sink(snap); err != nil {
			if errors.Is(err, ErrStop) {
				return nil
			}
			return fmt.Errorf("deliver snapshot %d: %w", tick, err)
		}

		elapsed := s.now().Sub(start)
		wait := s.interval - elapsed
		if wait <= 0 {
			s.log.Warn("tick %d took %s, longer than the %s refresh interval", tick, elapsed.Round(time.Millisecond), s.interval)
			continue
		}
		if !sleep(ctx, wait) {
			return nil
		}
	}
}

// Stream runs the loop in a goroutine and delivers snapshots on a channel
// that is closed when ctx is cancelled.
func (s *Scheduler) Stream(ctx context.Context) <-chan model.Snapshot {
	out := make(chan model.Snapshot, 1)
	go func() {
		defer close(out)
		_ = s.Run(ctx, func(snap model.Snapshot) error {
			select {
			case out <- snap:
				return nil
			case <-ctx.Done():
				return ErrStop
			}
		})
	}()
	return out
}

// sleep waits for d and reports false if ctx ended first.
func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
