package sampler

import (
	"context"
	"time"

	"github.com/shirou/gopsutil/v3/net"

	hierrors "github.com/Dicklesworthstone/hostinfo/internal/errors"
	"github.com/Dicklesworthstone/hostinfo/internal/model"
)

// NetworkSource reports cumulative interface counters and the rate since the
// last call.
type NetworkSource struct {
	counters func(ctx context.Context, pernic bool) ([]net.IOCountersStat, error)
	now      func() time.Time

	prev   *model.NetworkIO
	prevAt time.Time
}

// NewNetworkSource returns a source backed by gopsutil.
func NewNetworkSource() *NetworkSource {
	return &NetworkSource{
		counters: net.IOCountersWithContext,
		now:      time.Now,
	}
}

// Name identifies the source in unavailable reasons.
func (s *NetworkSource) Name() string { return "network_io" }

// Sample reads the aggregate counters over all interfaces.
func (s *NetworkSource) Sample(ctx context.Context) model.Result[model.NetworkIO] {
	stats, err := s.counters(ctx, false)
	if err != nil {
		return model.Fail[model.NetworkIO](model.FromError(s.Name(), err))
	}
	if len(stats) == 0 {
		return model.Fail[model.NetworkIO](model.FromError(s.Name(),
			hierrors.New(hierrors.SourceUnavailable, "no network interfaces reported", "")))
	}

	cur := model.NetworkIO{
		BytesSent:   stats[0].BytesSent,
		BytesRecv:   stats[0].BytesRecv,
		PacketsSent: stats[0].PacketsSent,
		PacketsRecv: stats[0].PacketsRecv,
	}
	at := s.now()

	if s.prev != nil {
		cur.Rate = networkRate(*s.prev, cur, at.Sub(s.prevAt))
	}
	prev := cur
	prev.Rate = nil
	s.prev, s.prevAt = &prev, at
	return model.Ok(cur)
}

func networkRate(prev, cur model.NetworkIO, elapsed time.Duration) *model.NetworkRate {
	secs := elapsed.Seconds()
	if secs <= 0 {
		return nil
	}
	if cur.BytesSent < prev.BytesSent || cur.BytesRecv < prev.BytesRecv ||
		cur.PacketsSent < prev.PacketsSent || cur.PacketsRecv < prev.PacketsRecv {
		return nil
	}
	return &model.NetworkRate{
		SentBytesPerSec:   float64(cur.BytesSent-prev.BytesSent) / secs,
		RecvBytesPerSec:   float64(cur.BytesRecv-prev.BytesRecv) / secs,
		SentPacketsPerSec: float64(cur.PacketsSent-prev.PacketsSent) / secs,
		RecvPacketsPerSec: float64(cur.PacketsRecv-prev.PacketsRecv) / secs,
	}
}
