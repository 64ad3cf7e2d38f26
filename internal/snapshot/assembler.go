// Package snapshot gathers one consistent multi-source Snapshot per tick and
// drives the refresh loop that hands snapshots to a renderer.
package snapshot

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	hierrors "github.com/Dicklesworthstone/hostinfo/internal/errors"
	"github.com/Dicklesworthstone/hostinfo/internal/logger"
	"github.com/Dicklesworthstone/hostinfo/internal/model"
	"github.com/Dicklesworthstone/hostinfo/internal/process"
	"github.com/Dicklesworthstone/hostinfo/internal/sampler"
)

// ThermalSource yields a temperature reading; it never fails.
type ThermalSource interface {
	Reading(ctx context.Context) model.ThermalReading
}

// ProcessSource ranks the process table.
type ProcessSource interface {
	Rank(ctx context.Context, key process.SortKey, limit int) model.Result[[]model.Process]
}

// Assembler calls every collaborator exactly once per snapshot. A nil
// collaborator, or one that panics, yields an unavailable field instead of
// failing the snapshot.
type Assembler struct {
	Sampler   *sampler.Sampler
	Thermal   ThermalSource
	Processes ProcessSource

	// Parallel runs the collaborators concurrently. The snapshot is the same
	// either way; the rate sources are still called once each.
	Parallel bool

	Log logger.Logger
	Now func() time.Time
}

// NewAssembler wires an Assembler with the wall clock and a no-op logger.
func NewAssembler(s *sampler.Sampler, thermal ThermalSource, procs ProcessSource) *Assembler {
	return &Assembler{
		Sampler:   s,
		Thermal:   thermal,
		Processes: procs,
		Log:       logger.Noop(),
		Now:       time.Now,
	}
}

// Assemble produces one snapshot. Every field is set.
func (a *Assembler) Assemble(ctx context.Context, limit int, key process.SortKey) model.Snapshot {
	log := a.Log
	if log == nil {
		log = logger.Noop()
	}
	now := a.Now
	if now == nil {
		now = time.Now
	}

	snap := model.Snapshot{Timestamp: now()}
	s := a.Sampler
	if s == nil {
		s = &sampler.Sampler{}
	}

	tasks := []func(){
		func() { snap.Host = sample(ctx, log, "host", s.Host) },
		func() { snap.CPU = sample(ctx, log, "cpu", s.CPU) },
		func() { snap.Memory = sample(ctx, log, "memory", s.Memory) },
		func() { snap.DiskIO = sample(ctx, log, "disk_io", s.Disk) },
		func() { snap.NetworkIO = sample(ctx, log, "network_io", s.Network) },
		func() { snap.Temperature = a.temperature(ctx, log) },
		func() { snap.Processes = a.processes(ctx, log, limit, key) },
	}

	if !a.Parallel {
		for _, task := range tasks {
			task()
		}
		return snap
	}

	// Each task writes a distinct field, so no locking is needed.
	var g errgroup.Group
	for _, task := range tasks {
		g.Go(func() error {
			task()
			return nil
		})
	}
	_ = g.Wait()
	return snap
}

func sample[T any](ctx context.Context, log logger.Logger, name string, src sampler.Source[T]) (res model.Result[T]) {
	if src == nil {
		return model.Fail[T](model.NewUnavailable(hierrors.SourceUnavailable, name+" collector is not configured"))
	}
	defer func() {
		if r := recover(); r != nil {
			log.Error("%s collector panicked: %v", name, r)
			res = model.Fail[T](model.NewUnavailable(hierrors.SourceUnavailable, fmt.Sprintf("%s collector failed: %v", name, r)))
		}
	}()
	return src.Sample(ctx)
}

func (a *Assembler) temperature(ctx context.Context, log logger.Logger) (reading model.ThermalReading) {
	if a.Thermal == nil {
		return model.ThermalUnavailable("temperature monitoring disabled")
	}
	defer func() {
		if r := recover(); r != nil {
			log.Error("thermal reader panicked: %v", r)
			reading = model.ThermalUnavailable(fmt.Sprintf("temperature reader failed: %v", r))
		}
	}()
	return a.Thermal.Reading(ctx)
}

func (a *Assembler) processes(ctx context.Context, log logger.Logger, limit int, key process.SortKey) (res model.Result[[]model.Process]) {
	if a.Processes == nil {
		return model.Fail[[]model.Process](model.NewUnavailable(hierrors.SourceUnavailable, "process ranker is not configured"))
	}
	defer func() {
		if r := recover(); r != nil {
			log.Error("process ranker panicked: %v", r)
			res = model.Fail[[]model.Process](model.NewUnavailable(hierrors.SourceUnavailable, fmt.Sprintf("process ranker failed: %v", r)))
		}
	}()
	return a.Processes.Rank(ctx, key, limit)
}
