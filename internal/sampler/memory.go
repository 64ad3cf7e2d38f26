package sampler

import (
	"context"

	"github.com/shirou/gopsutil/v3/mem"

	"github.com/Dicklesworthstone/hostinfo/internal/model"
)

// MemorySource reads RAM and swap usage. It keeps no state between calls.
type MemorySource struct {
	virtual func(ctx context.Context) (*mem.VirtualMemoryStat, error)
	swap    func(ctx context.Context) (*mem.SwapMemoryStat, error)
}

// NewMemorySource returns a source backed by gopsutil.
func NewMemorySource() *MemorySource {
	return &MemorySource{
		virtual: mem.VirtualMemoryWithContext,
		swap:    mem.SwapMemoryWithContext,
	}
}

// Name identifies the source in unavailable reasons.
func (s *MemorySource) Name() string { return "memory" }

// Sample reads current usage. A failure of either RAM or swap counters makes
// the whole field unavailable.
func (s *MemorySource) Sample(ctx context.Context) model.Result[model.Memory] {
	vm, err := s.virtual(ctx)
	if err != nil || vm == nil {
		return model.Fail[model.Memory](model.FromError(s.Name(), orMissing(err, "virtual memory")))
	}
	sw, err := s.swap(ctx)
	if err != nil || sw == nil {
		return model.Fail[model.Memory](model.FromError(s.Name(), orMissing(err, "swap memory")))
	}

	return model.Ok(model.Memory{
		TotalBytes:     vm.Total,
		AvailableBytes: vm.Available,
		UsedBytes:      vm.Used,
		UsedPercent:    model.ClampPercent(vm.UsedPercent),
		SwapTotalBytes: sw.Total,
		SwapUsedBytes:  sw.Used,
	})
}
