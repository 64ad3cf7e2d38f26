package ui

import (
	"fmt"
	"math"
	"strings"
)

// NA is shown in place of any value that could not be measured.
const NA = "N/A"

var byteUnits = []string{"B", "KB", "MB", "GB", "TB", "PB"}

// FormatBytes renders a byte count in 1024 steps: "512 B", "1.50 GB".
func FormatBytes(b uint64) string {
	return formatBytes(float64(b))
}

// FormatRate renders a bytes-per-second rate; negative rates print as zero.
func FormatRate(bytesPerSec float64) string {
	if math.IsNaN(bytesPerSec) || bytesPerSec < 0 {
		bytesPerSec = 0
	}
	return formatBytes(bytesPerSec) + "/s"
}

func formatBytes(v float64) string {
	unit := 0
	for v >= 1024 && unit < len(byteUnits)-1 {
		v /= 1024
		unit++
	}
	if unit == 0 {
		return fmt.Sprintf("%d %s", int64(v), byteUnits[unit])
	}
	return fmt.Sprintf("%.2f %s", v, byteUnits[unit])
}

// FormatCelsius renders an optional temperature.
func FormatCelsius(v *float64) string {
	if v == nil {
		return NA
	}
	return fmt.Sprintf("%.1f°C", *v)
}

// FormatUptime renders seconds as "3d 4h 5m", dropping leading zero units.
func FormatUptime(seconds uint64) string {
	d := seconds / 86400
	h := (seconds % 86400) / 3600
	m := (seconds % 3600) / 60
	switch {
	case d > 0:
		return fmt.Sprintf("%dd %dh %dm", d, h, m)
	case h > 0:
		return fmt.Sprintf("%dh %dm", h, m)
	}
	return fmt.Sprintf("%dm", m)
}

// FormatCount renders an integer with thousands separators.
func FormatCount(n uint64) string {
	s := fmt.Sprintf("%d", n)
	if len(s) <= 3 {
		return s
	}
	var b strings.Builder
	lead := len(s) % 3
	if lead > 0 {
		b.WriteString(s[:lead])
	}
	for i := lead; i < len(s); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(s[i : i+3])
	}
	return b.String()
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 1 {
		return string(r[:n])
	}
	return string(r[:n-1]) + "…"
}
