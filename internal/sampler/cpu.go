package sampler

import (
	"context"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/load"

	hierrors "github.com/Dicklesworthstone/hostinfo/internal/errors"
	"github.com/Dicklesworthstone/hostinfo/internal/model"
)

// DefaultPrimeInterval is how long the CPU source waits between its two
// reads when it has no previous sample to diff against.
const DefaultPrimeInterval = 100 * time.Millisecond

// CPUSource computes CPU utilisation from cpu.Times deltas between calls.
type CPUSource struct {
	times   func(ctx context.Context, percpu bool) ([]cpu.TimesStat, error)
	counts  func(ctx context.Context, logical bool) (int, error)
	info    func(ctx context.Context) ([]cpu.InfoStat, error)
	loadAvg func(ctx context.Context) (*load.AvgStat, error)
	prime   time.Duration

	prevTotal *cpu.TimesStat
	prevCore  []cpu.TimesStat
}

// NewCPUSource returns a source backed by gopsutil.
func NewCPUSource() *CPUSource {
	return &CPUSource{
		times:   cpu.TimesWithContext,
		counts:  cpu.CountsWithContext,
		info:    cpu.InfoWithContext,
		loadAvg: load.AvgWithContext,
		prime:   DefaultPrimeInterval,
	}
}

// Name identifies the source in unavailable reasons.
func (s *CPUSource) Name() string { return "cpu" }

// Sample returns the utilisation since the previous call. The first call
// primes itself with a short second read instead of reporting zero.
func (s *CPUSource) Sample(ctx context.Context) model.Result[model.CPU] {
	total, cores, err := s.read(ctx)
	if err != nil {
		return model.Fail[model.CPU](model.FromError(s.Name(), err))
	}

	if s.prevTotal == nil {
		s.prevTotal, s.prevCore = &total, cores
		if err := sleepCtx(ctx, s.prime); err != nil {
			s.prevTotal, s.prevCore = nil, nil
			return model.Fail[model.CPU](model.FromError(s.Name(), err))
		}
		total, cores, err = s.read(ctx)
		if err != nil {
			return model.Fail[model.CPU](model.FromError(s.Name(), err))
		}
	}

	out := model.CPU{
		TotalPercent: busyPercent(*s.prevTotal, total),
		PerCore:      make([]float64, len(cores)),
	}
	for i, c := range cores {
		if i < len(s.prevCore) {
			out.PerCore[i] = busyPercent(s.prevCore[i], c)
		}
	}
	s.prevTotal, s.prevCore = &total, cores

	out.LogicalCores = len(cores)
	if n, err := s.counts(ctx, true); err == nil && n > 0 {
		out.LogicalCores = n
	}
	if infos, err := s.info(ctx); err == nil && len(infos) > 0 {
		out.FrequencyMHz = model.NonNegative(infos[0].Mhz)
	}
	if avg, err := s.loadAvg(ctx); err == nil && avg != nil {
		out.Load1 = model.NonNegative(avg.Load1)
		out.Load5 = model.NonNegative(avg.Load5)
		out.Load15 = model.NonNegative(avg.Load15)
	}
	return model.Ok(out)
}

func (s *CPUSource) read(ctx context.Context) (cpu.TimesStat, []cpu.TimesStat, error) {
	totals, err := s.times(ctx, false)
	if err != nil {
		return cpu.TimesStat{}, nil, err
	}
	if len(totals) == 0 {
		return cpu.TimesStat{}, nil, hierrors.New(hierrors.SourceUnavailable, "no aggregate cpu counters reported", "")
	}
	cores, err := s.times(ctx, true)
	if err != nil {
		return cpu.TimesStat{}, nil, err
	}
	return totals[0], cores, nil
}

// busyPercent is 100 * (1 - idle delta / total delta); idle includes iowait.
func busyPercent(prev, cur cpu.TimesStat) float64 {
	dt := cur.Total() - prev.Total()
	di := (cur.Idle + cur.Iowait) - (prev.Idle + prev.Iowait)
	if dt <= 0 {
		return 0
	}
	return model.ClampPercent(100 * (1 - di/dt))
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
