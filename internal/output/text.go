package output

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/Dicklesworthstone/hostinfo/internal/model"
	"github.com/Dicklesworthstone/hostinfo/internal/ui"
)

// WriteText prints a snapshot as plain aligned text, without colors.
func WriteText(w io.Writer, s model.Snapshot) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	row := func(label, value string) { fmt.Fprintf(tw, "%s\t%s\n", label, value) }

	row("timestamp", s.Timestamp.Format("2006-01-02 15:04:05 MST"))
	if h, ok := s.Host.Get(); ok {
		row("host", fmt.Sprintf("%s (%s, %s, kernel %s)", h.Hostname, h.Platform, h.Arch, h.KernelVersion))
		row("uptime", ui.FormatUptime(h.UptimeSeconds))
	} else {
		row("host", missing(s.Host.Unavailable()))
	}

	if c, ok := s.CPU.Get(); ok {
		row("cpu", fmt.Sprintf("%.1f%% of %d cores, load %.2f %.2f %.2f", c.TotalPercent, c.LogicalCores, c.Load1, c.Load5, c.Load15))
		if c.FrequencyMHz > 0 {
			row("cpu frequency", fmt.Sprintf("%.0f MHz", c.FrequencyMHz))
		}
	} else {
		row("cpu", missing(s.CPU.Unavailable()))
	}

	if m, ok := s.Memory.Get(); ok {
		row("memory", fmt.Sprintf("%s / %s (%.1f%%), %s available",
			ui.FormatBytes(m.UsedBytes), ui.FormatBytes(m.TotalBytes), m.UsedPercent, ui.FormatBytes(m.AvailableBytes)))
		row("swap", fmt.Sprintf("%s / %s", ui.FormatBytes(m.SwapUsedBytes), ui.FormatBytes(m.SwapTotalBytes)))
	} else {
		row("memory", missing(s.Memory.Unavailable()))
	}

	if d, ok := s.DiskIO.Get(); ok {
		v := fmt.Sprintf("read %s, written %s", ui.FormatBytes(d.ReadBytes), ui.FormatBytes(d.WriteBytes))
		if d.Rate != nil {
			v += fmt.Sprintf(" (%s read, %s write)", ui.FormatRate(d.Rate.ReadBytesPerSec), ui.FormatRate(d.Rate.WriteBytesPerSec))
		}
		row("disk", v)
	} else {
		row("disk", missing(s.DiskIO.Unavailable()))
	}

	if n, ok := s.NetworkIO.Get(); ok {
		v := fmt.Sprintf("received %s, sent %s", ui.FormatBytes(n.BytesRecv), ui.FormatBytes(n.BytesSent))
		if n.Rate != nil {
			v += fmt.Sprintf(" (%s in, %s out)", ui.FormatRate(n.Rate.RecvBytesPerSec), ui.FormatRate(n.Rate.SentBytesPerSec))
		}
		row("network", v)
	} else {
		row("network", missing(s.NetworkIO.Unavailable()))
	}

	t := s.Temperature
	if t.Available {
		row("cpu temperature", ui.FormatCelsius(t.CPUCelsius))
		row("gpu temperature", ui.FormatCelsius(t.GPUCelsius))
		row("battery temperature", ui.FormatCelsius(t.BatteryCelsius))
		names := make([]string, 0, len(t.Other))
		for name := range t.Other {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			v := t.Other[name]
			row(name, ui.FormatCelsius(&v))
		}
	} else {
		row("temperature", ui.NA+" ("+t.Reason+")")
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if procs, ok := s.Processes.Get(); ok {
		fmt.Fprintln(w)
		return WriteProcesses(w, procs)
	}
	_, err := fmt.Fprintf(w, "\nprocesses: %s\n", missing(s.Processes.Unavailable()))
	return err
}

// WriteProcesses prints a process table.
func WriteProcesses(w io.Writer, procs []model.Process) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "PID\tNAME\tCPU%\tMEM%\tRSS\tSTATUS\tUSER")
	for _, p := range procs {
		fmt.Fprintf(tw, "%d\t%s\t%.1f\t%.1f\t%s\t%s\t%s\n",
			p.PID, p.Name, p.CPUPercent, p.MemoryPercent, ui.FormatBytes(p.MemoryBytes), p.Status, p.Owner)
	}
	return tw.Flush()
}

// WriteProcess prints the details of one process.
func WriteProcess(w io.Writer, p model.Process) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	cmdline := p.CommandLine
	if cmdline == "" {
		cmdline = ui.NA
	}
	fmt.Fprintf(tw, "pid\t%d\n", p.PID)
	fmt.Fprintf(tw, "name\t%s\n", p.Name)
	fmt.Fprintf(tw, "status\t%s\n", p.Status)
	fmt.Fprintf(tw, "user\t%s\n", p.Owner)
	fmt.Fprintf(tw, "cpu\t%.1f%%\n", p.CPUPercent)
	fmt.Fprintf(tw, "memory\t%.1f%% (%s)\n", p.MemoryPercent, ui.FormatBytes(p.MemoryBytes))
	fmt.Fprintf(tw, "command\t%s\n", strings.TrimSpace(cmdline))
	return tw.Flush()
}

func missing(u *model.Unavailable) string {
	if u == nil {
		return ui.NA
	}
	return ui.NA + " (" + u.Reason + ")"
}
