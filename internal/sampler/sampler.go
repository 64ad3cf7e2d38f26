// Package sampler holds the per-family counter sources that feed a snapshot.
// Every source converts collection failures into an in-band unavailable
// marker; none of them return errors or panic on a failed read.
package sampler

import (
	"context"

	hierrors "github.com/Dicklesworthstone/hostinfo/internal/errors"
	"github.com/Dicklesworthstone/hostinfo/internal/model"
)

// Source is one metric family. Rate-based implementations keep the previous
// counters and must be called from a single goroutine.
type Source[T any] interface {
	Name() string
	Sample(ctx context.Context) model.Result[T]
}

// Sampler groups the sources sampled once per tick.
type Sampler struct {
	Host    Source[model.HostInfo]
	CPU     Source[model.CPU]
	Memory  Source[model.Memory]
	Disk    Source[model.DiskIO]
	Network Source[model.NetworkIO]
}

// New returns a Sampler wired to the gopsutil-backed sources.
func New() *Sampler {
	return &Sampler{
		Host:    NewHostSource(),
		CPU:     NewCPUSource(),
		Memory:  NewMemorySource(),
		Disk:    NewDiskSource(),
		Network: NewNetworkSource(),
	}
}

// orMissing returns err, or a SourceUnavailable error when a backend returned
// neither a value nor an error.
func orMissing(err error, what string) error {
	if err != nil {
		return err
	}
	return hierrors.New(hierrors.SourceUnavailable, what+" not reported", "")
}
