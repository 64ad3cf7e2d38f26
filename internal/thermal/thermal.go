// Package thermal reads temperatures through an ordered list of probe
// strategies. The first strategy that works is cached for the lifetime of the
// Reader; when none works the Reader stops probing for good.
package thermal

import (
	"context"
	"fmt"
	"strings"
	"sync"

	hierrors "github.com/Dicklesworthstone/hostinfo/internal/errors"
	"github.com/Dicklesworthstone/hostinfo/internal/logger"
	"github.com/Dicklesworthstone/hostinfo/internal/model"
)

// MaxConsecutiveFailures is how many failed reads in a row turn a cached
// strategy into a permanent Unavailable state.
const MaxConsecutiveFailures = 3

// State is the probe state of a Reader.
type State int

const (
	StateUnprobed State = iota
	StateProbing
	StateAvailable
	StateUnavailable
)

func (s State) String() string {
	switch s {
	case StateUnprobed:
		return "unprobed"
	case StateProbing:
		return "probing"
	case StateAvailable:
		return "available"
	case StateUnavailable:
		return "unavailable"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Strategy is one way of obtaining temperatures.
type Strategy interface {
	Name() string
	// Present reports whether the strategy can run on this host at all
	// (binary on PATH, sensor interface exposed).
	Present() bool
	Read(ctx context.Context) (model.ThermalReading, error)
}

// Hinter is implemented by strategies that can tell the operator how to make
// them work.
type Hinter interface {
	Hint() string
}

// Reader is the thermal state machine.
type Reader struct {
	strategies []Strategy
	log        logger.Logger

	mu       sync.Mutex
	state    State
	active   Strategy
	failures int
	reason   string
}

// NewReader creates a Reader that will try strategies in order.
func NewReader(log logger.Logger, strategies ...Strategy) *Reader {
	if log == nil {
		log = logger.Noop()
	}
	return &Reader{strategies: strategies, log: log}
}

// State returns the current probe state.
func (r *Reader) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Strategy returns the name of the cached strategy, or "" if none.
func (r *Reader) Strategy() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.active == nil {
		return ""
	}
	return r.active.Name()
}

// Reading returns the current temperatures. It never fails: problems are
// reported through an unavailable reading.
func (r *Reader) Reading(ctx context.Context) model.ThermalReading {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch r.state {
	case StateUnavailable:
		return model.ThermalUnavailable(r.reason)
	case StateAvailable:
		return r.readActive(ctx)
	default:
		return r.probe(ctx)
	}
}

func (r *Reader) probe(ctx context.Context) model.ThermalReading {
	r.state = StateProbing

	var attempts, hints []string
	for _, s := range r.strategies {
		if !s.Present() {
			attempts = append(attempts, s.Name()+" not installed")
			hints = appendHint(hints, s)
			continue
		}

		reading, err := read(ctx, s)
		if ctx.Err() != nil {
			// Cancellation says nothing about the strategy; probe again next time.
			r.state = StateUnprobed
			return model.ThermalUnavailable("temperature probe cancelled")
		}
		if err != nil {
			kind := hierrors.Classify(err)
			attempts = append(attempts, hierrors.Reason(kind, s.Name(), err))
			if kind == hierrors.PermissionDenied {
				hints = appendHint(hints, s)
			}
			r.log.Debug("thermal strategy %s failed: %v", s.Name(), err)
			continue
		}

		r.state = StateAvailable
		r.active = s
		r.failures = 0
		r.log.Info("thermal strategy selected: %s", s.Name())
		return reading
	}

	r.state = StateUnavailable
	r.reason = unavailableReason(attempts, hints)
	r.log.Warn("%s", r.reason)
	return model.ThermalUnavailable(r.reason)
}

func (r *Reader) readActive(ctx context.Context) model.ThermalReading {
	reading, err := read(ctx, r.active)
	if ctx.Err() != nil {
		return model.ThermalUnavailable("temperature read cancelled")
	}
	if err == nil {
		r.failures = 0
		return reading
	}

	r.failures++
	reason := hierrors.Reason(hierrors.Classify(err), r.active.Name(), err)
	if r.failures < MaxConsecutiveFailures {
		r.log.Debug("thermal read %d/%d failed: %s", r.failures, MaxConsecutiveFailures, reason)
		return model.ThermalUnavailable(reason)
	}

	r.state = StateUnavailable
	r.reason = fmt.Sprintf("temperature monitoring disabled after %d consecutive failures of %s (last: %s)",
		r.failures, r.active.Name(), reason)
	r.log.Warn("%s", r.reason)
	return model.ThermalUnavailable(r.reason)
}

// read runs one strategy and normalises its reading.
func read(ctx context.Context, s Strategy) (model.ThermalReading, error) {
	reading, err := s.Read(ctx)
	if err != nil {
		return model.ThermalReading{}, err
	}
	if reading.CPUCelsius == nil && reading.GPUCelsius == nil &&
		reading.BatteryCelsius == nil && len(reading.Other) == 0 {
		return model.ThermalReading{}, hierrors.New(hierrors.ParseFailure, "no temperatures in output", "")
	}
	reading.Available = true
	reading.Strategy = s.Name()
	reading.Reason = ""
	if reading.Other == nil {
		reading.Other = map[string]float64{}
	}
	return reading, nil
}

func appendHint(hints []string, s Strategy) []string {
	if h, ok := s.(Hinter); ok && h.Hint() != "" {
		return append(hints, h.Hint())
	}
	return hints
}

func unavailableReason(attempts, hints []string) string {
	if len(attempts) == 0 {
		return "temperature monitoring unavailable: no strategy for this platform"
	}
	reason := "temperature monitoring unavailable: " + strings.Join(attempts, "; ")
	if len(hints) > 0 {
		reason += " (" + strings.Join(hints, "; ") + ")"
	}
	return reason
}
