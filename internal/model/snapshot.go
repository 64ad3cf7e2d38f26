package model

import (
	"math"
	"time"
)

// CPU aggregates instantaneous CPU usage.
type CPU struct {
	TotalPercent float64   `json:"total_percent" yaml:"total_percent"`
	PerCore      []float64 `json:"per_core_percent" yaml:"per_core_percent"`
	LogicalCores int       `json:"logical_cores" yaml:"logical_cores"`
	FrequencyMHz float64   `json:"frequency_mhz" yaml:"frequency_mhz"`
	Load1        float64   `json:"load1" yaml:"load1"`
	Load5        float64   `json:"load5" yaml:"load5"`
	Load15       float64   `json:"load15" yaml:"load15"`
}

// Memory captures RAM and swap usage in bytes for precision.
type Memory struct {
	TotalBytes     uint64  `json:"total_bytes" yaml:"total_bytes"`
	AvailableBytes uint64  `json:"available_bytes" yaml:"available_bytes"`
	UsedBytes      uint64  `json:"used_bytes" yaml:"used_bytes"`
	UsedPercent    float64 `json:"used_percent" yaml:"used_percent"`
	SwapTotalBytes uint64  `json:"swap_total_bytes" yaml:"swap_total_bytes"`
	SwapUsedBytes  uint64  `json:"swap_used_bytes" yaml:"swap_used_bytes"`
}

// DiskIO holds disk counters accumulated since boot, summed over block devices.
type DiskIO struct {
	ReadBytes  uint64    `json:"read_bytes" yaml:"read_bytes"`
	WriteBytes uint64    `json:"write_bytes" yaml:"write_bytes"`
	ReadCount  uint64    `json:"read_count" yaml:"read_count"`
	WriteCount uint64    `json:"write_count" yaml:"write_count"`
	Rate       *DiskRate `json:"rate" yaml:"rate"` // nil on the first sample
}

// DiskRate is the per-second change since the previous sample.
type DiskRate struct {
	ReadBytesPerSec  float64 `json:"read_bytes_per_sec" yaml:"read_bytes_per_sec"`
	WriteBytesPerSec float64 `json:"write_bytes_per_sec" yaml:"write_bytes_per_sec"`
	ReadOpsPerSec    float64 `json:"read_ops_per_sec" yaml:"read_ops_per_sec"`
	WriteOpsPerSec   float64 `json:"write_ops_per_sec" yaml:"write_ops_per_sec"`
}

// NetworkIO holds interface counters accumulated since boot, summed over NICs.
type NetworkIO struct {
	BytesSent   uint64       `json:"bytes_sent" yaml:"bytes_sent"`
	BytesRecv   uint64       `json:"bytes_recv" yaml:"bytes_recv"`
	PacketsSent uint64       `json:"packets_sent" yaml:"packets_sent"`
	PacketsRecv uint64       `json:"packets_recv" yaml:"packets_recv"`
	Rate        *NetworkRate `json:"rate" yaml:"rate"` // nil on the first sample
}

// NetworkRate is the per-second change since the previous sample.
type NetworkRate struct {
	SentBytesPerSec   float64 `json:"sent_bytes_per_sec" yaml:"sent_bytes_per_sec"`
	RecvBytesPerSec   float64 `json:"recv_bytes_per_sec" yaml:"recv_bytes_per_sec"`
	SentPacketsPerSec float64 `json:"sent_packets_per_sec" yaml:"sent_packets_per_sec"`
	RecvPacketsPerSec float64 `json:"recv_packets_per_sec" yaml:"recv_packets_per_sec"`
}

// HostInfo identifies the machine being sampled.
type HostInfo struct {
	Hostname      string `json:"hostname" yaml:"hostname"`
	Platform      string `json:"platform" yaml:"platform"`
	KernelVersion string `json:"kernel_version" yaml:"kernel_version"`
	Arch          string `json:"arch" yaml:"arch"`
	UptimeSeconds uint64 `json:"uptime_seconds" yaml:"uptime_seconds"`
}

// ThermalReading is a temperature sample. When Available is false every
// temperature is nil and Reason explains why.
type ThermalReading struct {
	Available      bool               `json:"available" yaml:"available"`
	Strategy       string             `json:"strategy,omitempty" yaml:"strategy,omitempty"`
	CPUCelsius     *float64           `json:"cpu_temp_celsius" yaml:"cpu_temp_celsius"`
	GPUCelsius     *float64           `json:"gpu_temp_celsius" yaml:"gpu_temp_celsius"`
	BatteryCelsius *float64           `json:"battery_temp_celsius" yaml:"battery_temp_celsius"`
	Other          map[string]float64 `json:"other_sensors" yaml:"other_sensors"`
	Reason         string             `json:"unavailable_reason,omitempty" yaml:"unavailable_reason,omitempty"`
}

// ThermalUnavailable builds a reading that carries only a reason.
func ThermalUnavailable(reason string) ThermalReading {
	if reason == "" {
		reason = "temperature not measured"
	}
	return ThermalReading{Other: map[string]float64{}, Reason: reason}
}

// Celsius returns a pointer to v, for the optional temperature fields.
func Celsius(v float64) *float64 { return &v }

// Status is the scheduler state of a process.
type Status string

const (
	StatusRunning  Status = "running"
	StatusSleeping Status = "sleeping"
	StatusStopped  Status = "stopped"
	StatusZombie   Status = "zombie"
	StatusUnknown  Status = "unknown"
)

// UnknownOwner is reported when the owning user cannot be resolved.
const UnknownOwner = "unknown"

// Process is one row of the process table.
type Process struct {
	PID           int     `json:"pid" yaml:"pid"`
	Name          string  `json:"name" yaml:"name"`
	CPUPercent    float64 `json:"cpu_percent" yaml:"cpu_percent"` // may exceed 100 on multi-core
	MemoryPercent float64 `json:"memory_percent" yaml:"memory_percent"`
	MemoryBytes   uint64  `json:"memory_bytes" yaml:"memory_bytes"`
	Status        Status  `json:"status" yaml:"status"`
	Owner         string  `json:"owner" yaml:"owner"`
	CommandLine   string  `json:"command_line" yaml:"command_line"`
}

// Snapshot is the full bundle handed from the assembler to renderers. Every
// field is always present; missing data is carried as an Unavailable marker.
type Snapshot struct {
	Timestamp   time.Time         `json:"timestamp" yaml:"timestamp"`
	Host        Result[HostInfo]  `json:"host" yaml:"host"`
	CPU         Result[CPU]       `json:"cpu" yaml:"cpu"`
	Memory      Result[Memory]    `json:"memory" yaml:"memory"`
	DiskIO      Result[DiskIO]    `json:"disk_io" yaml:"disk_io"`
	NetworkIO   Result[NetworkIO] `json:"network_io" yaml:"network_io"`
	Temperature ThermalReading    `json:"temperature" yaml:"temperature"`
	Processes   Result[[]Process] `json:"processes" yaml:"processes"`
}

// ClampPercent confines a percentage to [0,100]; NaN becomes 0.
func ClampPercent(v float64) float64 {
	switch {
	case math.IsNaN(v) || v < 0:
		return 0
	case v > 100:
		return 100
	}
	return v
}

// NonNegative clamps values that must not be below zero; NaN becomes 0.
func NonNegative(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	return v
}
