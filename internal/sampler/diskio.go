package sampler

import (
	"context"
	"strings"
	"time"

	"github.com/shirou/gopsutil/v3/disk"

	hierrors "github.com/Dicklesworthstone/hostinfo/internal/errors"
	"github.com/Dicklesworthstone/hostinfo/internal/model"
)

// DiskSource reports cumulative disk counters and the rate since the last call.
type DiskSource struct {
	counters func(ctx context.Context, names ...string) (map[string]disk.IOCountersStat, error)
	now      func() time.Time

	prev   *model.DiskIO
	prevAt time.Time
}

// NewDiskSource returns a source backed by gopsutil.
func NewDiskSource() *DiskSource {
	return &DiskSource{
		counters: disk.IOCountersWithContext,
		now:      time.Now,
	}
}

// Name identifies the source in unavailable reasons.
func (s *DiskSource) Name() string { return "disk_io" }

// Sample sums the counters of every non-loop block device.
func (s *DiskSource) Sample(ctx context.Context) model.Result[model.DiskIO] {
	stats, err := s.counters(ctx)
	if err != nil {
		return model.Fail[model.DiskIO](model.FromError(s.Name(), err))
	}
	if len(stats) == 0 {
		return model.Fail[model.DiskIO](model.FromError(s.Name(),
			hierrors.New(hierrors.SourceUnavailable, "no block devices reported", "")))
	}

	var cur model.DiskIO
	devices := 0
	for name, st := range stats {
		if strings.HasPrefix(name, "loop") {
			continue
		}
		devices++
		cur.ReadBytes += st.ReadBytes
		cur.WriteBytes += st.WriteBytes
		cur.ReadCount += st.ReadCount
		cur.WriteCount += st.WriteCount
	}
	if devices == 0 {
		return model.Fail[model.DiskIO](model.FromError(s.Name(),
			hierrors.New(hierrors.SourceUnavailable, "no block devices besides loop devices", "")))
	}
	at := s.now()

	if s.prev != nil {
		cur.Rate = diskRate(*s.prev, cur, at.Sub(s.prevAt))
	}
	prev := cur
	prev.Rate = nil
	s.prev, s.prevAt = &prev, at
	return model.Ok(cur)
}

// diskRate returns nil when no honest rate exists: no elapsed time, or a
// counter that went backwards (device removed, counter reset).
func diskRate(prev, cur model.DiskIO, elapsed time.Duration) *model.DiskRate {
	secs := elapsed.Seconds()
	if secs <= 0 {
		return nil
	}
	if cur.ReadBytes < prev.ReadBytes || cur.WriteBytes < prev.WriteBytes ||
		cur.ReadCount < prev.ReadCount || cur.WriteCount < prev.WriteCount {
		return nil
	}
	return &model.DiskRate{
		ReadBytesPerSec:  float64(cur.ReadBytes-prev.ReadBytes) / secs,
		WriteBytesPerSec: float64(cur.WriteBytes-prev.WriteBytes) / secs,
		ReadOpsPerSec:    float64(cur.ReadCount-prev.ReadCount) / secs,
		WriteOpsPerSec:   float64(cur.WriteCount-prev.WriteCount) / secs,
	}
}
