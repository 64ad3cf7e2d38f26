package thermal

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	hierrors "github.com/Dicklesworthstone/hostinfo/internal/errors"
	"github.com/Dicklesworthstone/hostinfo/internal/logger"
	"github.com/Dicklesworthstone/hostinfo/internal/model"
)

// fakeStrategy returns scripted results; once the script runs out it repeats
// the last entry.
type fakeStrategy struct {
	name    string
	present bool
	results []fakeResult
	reads   int
	hint    string
}

type fakeResult struct {
	cpu float64
	err error
}

func (f *fakeStrategy) Name() string  { return f.name }
func (f *fakeStrategy) Present() bool { return f.present }
func (f *fakeStrategy) Hint() string  { return f.hint }

func (f *fakeStrategy) Read(ctx context.Context) (model.ThermalReading, error) {
	i := f.reads
	if i >= len(f.results) {
		i = len(f.results) - 1
	}
	f.reads++
	res := f.results[i]
	if res.err != nil {
		return model.ThermalReading{}, res.err
	}
	return model.ThermalReading{CPUCelsius: model.Celsius(res.cpu)}, nil
}

func ok(v float64) fakeResult { return fakeResult{cpu: v} }

func fail(kind hierrors.Kind) fakeResult {
	return fakeResult{err: hierrors.New(kind, "scripted failure", "")}
}

func TestReaderFallbackDeterminism(t *testing.T) {
	tests := []struct {
		name            string
		utilityPresent  bool
		samplingPresent bool
		wantStrategy    string
		wantState       State
	}{
		{"both present picks utility", true, true, "utility", StateAvailable},
		{"only sampling present", false, true, "sampling", StateAvailable},
		{"only utility present", true, false, "utility", StateAvailable},
		{"neither present", false, false, "", StateUnavailable},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			utility := &fakeStrategy{name: "utility", present: tc.utilityPresent, results: []fakeResult{ok(50)}}
			sampling := &fakeStrategy{name: "sampling", present: tc.samplingPresent, results: []fakeResult{ok(60)}}
			r := NewReader(logger.Noop(), utility, sampling)

			for i := 0; i < 5; i++ {
				reading := r.Reading(context.Background())
				assert.Equal(t, tc.wantState == StateAvailable, reading.Available)
				assert.Equal(t, tc.wantStrategy, r.Strategy())
			}
			assert.Equal(t, tc.wantState, r.State())

			if tc.wantStrategy == "utility" {
				assert.Equal(t, 0, sampling.reads, "sampling must never run once utility works")
			}
		})
	}
}

func TestReaderFallsBackWhenUtilityBroken(t *testing.T) {
	utility := &fakeStrategy{name: "utility", present: true, results: []fakeResult{fail(hierrors.ParseFailure)}}
	sampling := &fakeStrategy{name: "sampling", present: true, results: []fakeResult{ok(70)}}
	r := NewReader(logger.Noop(), utility, sampling)

	reading := r.Reading(context.Background())
	require.True(t, reading.Available)
	assert.Equal(t, "sampling", reading.Strategy)
	require.NotNil(t, reading.CPUCelsius)
	assert.Equal(t, 70.0, *reading.CPUCelsius)
	assert.NotNil(t, reading.Other)

	r.Reading(context.Background())
	assert.Equal(t, 1, utility.reads, "the cached strategy is reused without re-probing")
	assert.Equal(t, 2, sampling.reads)
}

func TestReaderUnavailableStopsProbing(t *testing.T) {
	utility := &fakeStrategy{name: "utility", present: false, hint: "install the utility"}
	sampling := &fakeStrategy{name: "sampling", present: true, results: []fakeResult{fail(hierrors.PermissionDenied)}, hint: "run with sudo"}
	buf := logger.NewBufferLogger()
	r := NewReader(buf, utility, sampling)

	first := r.Reading(context.Background())
	assert.False(t, first.Available)
	assert.Nil(t, first.CPUCelsius)
	assert.Nil(t, first.GPUCelsius)
	assert.Nil(t, first.BatteryCelsius)
	assert.Empty(t, first.Other)
	assert.Contains(t, first.Reason, "utility not installed")
	assert.Contains(t, first.Reason, "privileges")
	assert.Contains(t, first.Reason, "install the utility")
	assert.Contains(t, first.Reason, "run with sudo")
	assert.True(t, buf.HasLevel("warn"))

	for i := 0; i < 10; i++ {
		again := r.Reading(context.Background())
		assert.Equal(t, first.Reason, again.Reason, "the reason is fixed once unavailable")
	}
	assert.Equal(t, 1, sampling.reads, "no probe runs after the reader gives up")
	assert.Equal(t, StateUnavailable, r.State())
}

func TestReaderTransientFailures(t *testing.T) {
	s := &fakeStrategy{name: "utility", present: true, results: []fakeResult{
		ok(40), fail(hierrors.Timeout), fail(hierrors.ParseFailure), ok(41), fail(hierrors.ParseFailure),
	}}
	r := NewReader(logger.Noop(), s)

	assert.True(t, r.Reading(context.Background()).Available)

	degraded := r.Reading(context.Background())
	assert.False(t, degraded.Available)
	assert.Contains(t, degraded.Reason, "timed out")
	assert.Equal(t, StateAvailable, r.State(), "one bad tick does not disable the strategy")

	assert.False(t, r.Reading(context.Background()).Available)
	recovered := r.Reading(context.Background())
	require.True(t, recovered.Available, "success resets the failure count")
	assert.Equal(t, 41.0, *recovered.CPUCelsius)

	// The script now repeats ParseFailure forever.
	assert.False(t, r.Reading(context.Background()).Available)
	assert.False(t, r.Reading(context.Background()).Available)
	assert.Equal(t, StateAvailable, r.State())
	final := r.Reading(context.Background())
	assert.False(t, final.Available)
	assert.Equal(t, StateUnavailable, r.State(), "three consecutive failures disable the strategy")
	assert.Contains(t, final.Reason, "3 consecutive failures")

	reads := s.reads
	r.Reading(context.Background())
	assert.Equal(t, reads, s.reads)
}

func TestReaderEmptyReadingIsFailure(t *testing.T) {
	empty := &emptyStrategy{}
	r := NewReader(logger.Noop(), empty)
	reading := r.Reading(context.Background())
	assert.False(t, reading.Available)
	assert.Contains(t, reading.Reason, "could not be parsed")
}

type emptyStrategy struct{}

func (emptyStrategy) Name() string  { return "empty" }
func (emptyStrategy) Present() bool { return true }
func (emptyStrategy) Read(ctx context.Context) (model.ThermalReading, error) {
	return model.ThermalReading{}, nil
}

func TestReaderCancelledProbeIsRetried(t *testing.T) {
	s := &fakeStrategy{name: "utility", present: true, results: []fakeResult{{err: context.Canceled}, ok(55)}}
	r := NewReader(logger.Noop(), s)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	reading := r.Reading(ctx)
	assert.False(t, reading.Available)
	assert.Equal(t, StateUnprobed, r.State(), "cancellation does not count against the strategy")

	reading = r.Reading(context.Background())
	assert.True(t, reading.Available)
}

func TestReaderNoStrategies(t *testing.T) {
	r := NewReader(nil)
	reading := r.Reading(context.Background())
	assert.False(t, reading.Available)
	assert.Contains(t, reading.Reason, "no strategy")
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "unprobed", StateUnprobed.String())
	assert.Equal(t, "probing", StateProbing.String())
	assert.Equal(t, "available", StateAvailable.String())
	assert.Equal(t, "unavailable", StateUnavailable.String())
	assert.Equal(t, "state(9)", State(9).String())
}

func TestDefaultStrategies(t *testing.T) {
	darwin := DefaultStrategies("darwin", 0)
	require.Len(t, darwin, 2)
	assert.Equal(t, "osx-cpu-temp", darwin[0].Name())
	assert.Equal(t, "powermetrics", darwin[1].Name())

	linux := DefaultStrategies("linux", 0)
	require.Len(t, linux, 2)
	assert.Equal(t, "sensors", linux[0].Name())
	assert.Equal(t, "hwmon", linux[1].Name())

	assert.Empty(t, DefaultStrategies("plan9", 0))
}
