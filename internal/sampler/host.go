package sampler

import (
	"context"
	"strings"

	"github.com/shirou/gopsutil/v3/host"

	"github.com/Dicklesworthstone/hostinfo/internal/model"
)

// HostSource reads the machine identity and uptime.
type HostSource struct {
	info func(ctx context.Context) (*host.InfoStat, error)
}

// NewHostSource returns a source backed by gopsutil.
func NewHostSource() *HostSource {
	return &HostSource{info: host.InfoWithContext}
}

// Name identifies the source in unavailable reasons.
func (s *HostSource) Name() string { return "host" }

// Sample reads the hostname, platform, kernel and uptime.
func (s *HostSource) Sample(ctx context.Context) model.Result[model.HostInfo] {
	hi, err := s.info(ctx)
	if err != nil || hi == nil {
		return model.Fail[model.HostInfo](model.FromError(s.Name(), orMissing(err, "host info")))
	}
	return model.Ok(model.HostInfo{
		Hostname:      hi.Hostname,
		Platform:      strings.TrimSpace(hi.Platform + " " + hi.PlatformVersion),
		KernelVersion: hi.KernelVersion,
		Arch:          hi.KernelArch,
		UptimeSeconds: hi.Uptime,
	})
}
