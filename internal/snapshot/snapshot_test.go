package snapshot

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	hierrors "github.com/Dicklesworthstone/hostinfo/internal/errors"
	"github.com/Dicklesworthstone/hostinfo/internal/logger"
	"github.com/Dicklesworthstone/hostinfo/internal/model"
	"github.com/Dicklesworthstone/hostinfo/internal/process"
	"github.com/Dicklesworthstone/hostinfo/internal/sampler"
)

// fixed is a Source that returns the same result every call.
type fixed[T any] struct {
	name  string
	res   model.Result[T]
	panic string
	calls atomic.Int32
}

func (f *fixed[T]) Name() string { return f.name }

func (f *fixed[T]) Sample(ctx context.Context) model.Result[T] {
	f.calls.Add(1)
	if f.panic != "" {
		panic(f.panic)
	}
	return f.res
}

type fakeThermal struct {
	reading model.ThermalReading
	calls   atomic.Int32
}

func (f *fakeThermal) Reading(ctx context.Context) model.ThermalReading {
	f.calls.Add(1)
	return f.reading
}

type fakeRanker struct {
	gotKey   process.SortKey
	gotLimit int
	panic    bool
}

func (f *fakeRanker) Rank(ctx context.Context, key process.SortKey, limit int) model.Result[[]model.Process] {
	if f.panic {
		panic("ranker exploded")
	}
	f.gotKey, f.gotLimit = key, limit
	return model.Ok([]model.Process{{PID: 1, Name: "init", Status: model.StatusSleeping, Owner: "root"}})
}

func healthySampler() *sampler.Sampler {
	return &sampler.Sampler{
		Host:    &fixed[model.HostInfo]{name: "host", res: model.Ok(model.HostInfo{Hostname: "box"})},
		CPU:     &fixed[model.CPU]{name: "cpu", res: model.Ok(model.CPU{TotalPercent: 12, LogicalCores: 8})},
		Memory:  &fixed[model.Memory]{name: "memory", res: model.Ok(model.Memory{TotalBytes: 16 << 30})},
		Disk:    &fixed[model.DiskIO]{name: "disk_io", res: model.Ok(model.DiskIO{ReadBytes: 10})},
		Network: &fixed[model.NetworkIO]{name: "network_io", res: model.Ok(model.NetworkIO{BytesSent: 20})},
	}
}

func TestAssembleComplete(t *testing.T) {
	for _, parallel := range []bool{false, true} {
		s := healthySampler()
		thermal := &fakeThermal{reading: model.ThermalReading{Available: true, CPUCelsius: model.Celsius(50), Other: map[string]float64{}}}
		ranker := &fakeRanker{}
		a := NewAssembler(s, thermal, ranker)
		a.Parallel = parallel
		fixedNow := time.Unix(1700000000, 0)
		a.Now = func() time.Time { return fixedNow }

		snap := a.Assemble(context.Background(), 5, process.SortMemory)

		assert.Equal(t, fixedNow, snap.Timestamp)
		assert.True(t, snap.Host.Available())
		assert.True(t, snap.CPU.Available())
		assert.True(t, snap.Memory.Available())
		assert.True(t, snap.DiskIO.Available())
		assert.True(t, snap.NetworkIO.Available())
		assert.True(t, snap.Temperature.Available)
		assert.True(t, snap.Processes.Available())
		assert.Equal(t, process.SortMemory, ranker.gotKey)
		assert.Equal(t, 5, ranker.gotLimit)

		assert.Equal(t, int32(1), s.CPU.(*fixed[model.CPU]).calls.Load(), "each source is called exactly once")
		assert.Equal(t, int32(1), s.Disk.(*fixed[model.DiskIO]).calls.Load())
		assert.Equal(t, int32(1), thermal.calls.Load())
	}
}

func TestAssembleDegradesWhenEverythingFails(t *testing.T) {
	denied := model.NewUnavailable(hierrors.PermissionDenied, "denied")
	s := &sampler.Sampler{
		Host:    &fixed[model.HostInfo]{res: model.Fail[model.HostInfo](denied)},
		CPU:     &fixed[model.CPU]{res: model.Fail[model.CPU](denied)},
		Memory:  &fixed[model.Memory]{res: model.Fail[model.Memory](denied)},
		Disk:    &fixed[model.DiskIO]{res: model.Fail[model.DiskIO](denied)},
		Network: &fixed[model.NetworkIO]{res: model.Fail[model.NetworkIO](denied)},
	}
	thermal := &fakeThermal{reading: model.ThermalUnavailable("no strategy")}
	a := NewAssembler(s, thermal, nil)

	var snap model.Snapshot
	require.NotPanics(t, func() { snap = a.Assemble(context.Background(), 10, process.SortCPU) })
	assert.False(t, snap.Host.Available())
	assert.False(t, snap.CPU.Available())
	assert.False(t, snap.Memory.Available())
	assert.False(t, snap.DiskIO.Available())
	assert.False(t, snap.NetworkIO.Available())
	assert.False(t, snap.Temperature.Available)
	assert.False(t, snap.Processes.Available())
	assert.False(t, snap.Timestamp.IsZero())
	assert.Equal(t, hierrors.PermissionDenied, snap.CPU.Unavailable().Kind)
}

func TestAssembleRecoversPanics(t *testing.T) {
	s := healthySampler()
	s.Memory = &fixed[model.Memory]{name: "memory", panic: "nil map write"}
	buf := logger.NewBufferLogger()
	a := NewAssembler(s, nil, &fakeRanker{panic: true})
	a.Log = buf

	snap := a.Assemble(context.Background(), 10, process.SortCPU)
	require.False(t, snap.Memory.Available())
	assert.Contains(t, snap.Memory.Unavailable().Reason, "nil map write")
	assert.False(t, snap.Processes.Available())
	assert.Contains(t, snap.Processes.Unavailable().Reason, "ranker exploded")
	assert.True(t, snap.CPU.Available(), "other fields are unaffected")
	assert.Contains(t, snap.Temperature.Reason, "disabled")
	assert.True(t, buf.HasLevel("error"))
}

func TestAssembleNilSampler(t *testing.T) {
	snap := (&Assembler{}).Assemble(context.Background(), 1, process.SortCPU)
	assert.False(t, snap.CPU.Available())
	assert.Contains(t, snap.CPU.Unavailable().Reason, "not configured")
}

// countingCollector records Assemble calls and can run a hook on each one.
type countingCollector struct {
	mu    sync.Mutex
	calls int
	delay time.Duration
	hook  func(call int)
}

func (c *countingCollector) Assemble(ctx context.Context, limit int, key process.SortKey) model.Snapshot {
	c.mu.Lock()
	c.calls++
	call := c.calls
	c.mu.Unlock()
	if c.delay > 0 {
		time.Sleep(c.delay)
	}
	if c.hook != nil {
		c.hook(call)
	}
	return model.Snapshot{Timestamp: time.Now()}
}

func (c *countingCollector) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

func TestRunCancelWakesSleep(t *testing.T) {
	c := &countingCollector{}
	s := NewScheduler(c, Options{Interval: 2 * time.Second, Limit: 10})

	ctx, cancel := context.WithCancel(context.Background())
	var delivered atomic.Int32
	done := make(chan error, 1)
	go func() {
		done <- s.Run(ctx, func(model.Snapshot) error {
			delivered.Add(1)
			return nil
		})
	}()

	require.Eventually(t, func() bool { return delivered.Load() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	cancelled := time.Now()
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancellation")
	}
	assert.Less(t, time.Since(cancelled), 200*time.Millisecond)
	assert.Equal(t, int32(1), delivered.Load(), "no snapshot is delivered after cancellation")
	assert.Equal(t, 1, c.count())
}

func TestRunDropsSnapshotAssembledDuringCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	c := &countingCollector{hook: func(int) { cancel() }}
	s := NewScheduler(c, Options{Interval: time.Millisecond})

	called := false
	err := s.Run(ctx, func(model.Snapshot) error {
		called = true
		return nil
	})
	assert.NoError(t, err)
	assert.False(t, called)
}

func TestRunStopAndSinkErrors(t *testing.T) {
	c := &countingCollector{}
	s := NewScheduler(c, Options{Interval: time.Millisecond})

	n := 0
	err := s.Run(context.Background(), func(model.Snapshot) error {
		n++
		if n == 3 {
			return ErrStop
		}
		return nil
	})
	assert.NoError(t, err)
	assert.Equal(t, 3, n)

	boom := errors.New("terminal closed")
	err = s.Run(context.Background(), func(model.Snapshot) error { return boom })
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
}

func TestRunOverrunWarns(t *testing.T) {
	buf := logger.NewBufferLogger()
	c := &countingCollector{delay: 20 * time.Millisecond}
	s := NewScheduler(c, Options{Interval: 5 * time.Millisecond, Log: buf})

	start := time.Now()
	n := 0
	err := s.Run(context.Background(), func(model.Snapshot) error {
		n++
		if n == 3 {
			return ErrStop
		}
		return nil
	})
	require.NoError(t, err)
	assert.True(t, buf.HasLevel("warn"))
	assert.Less(t, time.Since(start), 200*time.Millisecond, "overrunning ticks start immediately")
}

func TestRunRejectsBadInterval(t *testing.T) {
	s := NewScheduler(&countingCollector{}, Options{})
	err := s.Run(context.Background(), func(model.Snapshot) error { return nil })
	require.Error(t, err)
	assert.True(t, hierrors.IsKind(err, hierrors.Config))
}

func TestOnceAndStream(t *testing.T) {
	c := &countingCollector{}
	s := NewScheduler(c, Options{Interval: time.Millisecond})

	snap := s.Once(context.Background())
	assert.False(t, snap.Timestamp.IsZero())
	assert.Equal(t, process.SortCPU, s.sort, "cpu is the default sort")

	ctx, cancel := context.WithCancel(context.Background())
	ch := s.Stream(ctx)
	for i := 0; i < 3; i++ {
		select {
		case _, ok := <-ch:
			require.True(t, ok)
		case <-time.After(time.Second):
			t.Fatal("no snapshot streamed")
		}
	}
	cancel()
	require.Eventually(t, func() bool {
		select {
		case _, ok := <-ch:
			return !ok
		default:
			return false
		}
	}, time.Second, time.Millisecond)
}
