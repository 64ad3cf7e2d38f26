package ui

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/Dicklesworthstone/hostinfo/internal/model"
	"github.com/Dicklesworthstone/hostinfo/internal/snapshot"
)

// Options describes the refresh settings shown in the header.
type Options struct {
	Interval time.Duration
	Sort     string
	Limit    int
}

// Model renders the latest snapshot delivered by the refresh loop.
type Model struct {
	opts   Options
	latest *model.Snapshot
	frames int
	cancel context.CancelFunc
	width  int
	height int
}

// New creates a dashboard model. cancel is called when the user quits so the
// refresh loop stops with the UI.
func New(opts Options, cancel context.CancelFunc) *Model {
	if cancel == nil {
		cancel = func() {}
	}
	return &Model{
		opts:   opts,
		cancel: cancel,
		width:  120,
		height: 40,
	}
}

// Messages
type snapshotMsg struct{ snap model.Snapshot }

// SnapshotMsg wraps a snapshot for Program.Send.
func SnapshotMsg(s model.Snapshot) tea.Msg { return snapshotMsg{snap: s} }

func (m *Model) Init() tea.Cmd { return nil }

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			m.cancel()
			return m, tea.Quit
		}
	case snapshotMsg:
		snap := msg.snap
		m.latest = &snap
		m.frames++
	}
	return m, nil
}

// Latest returns the snapshot on screen, if any.
func (m *Model) Latest() (model.Snapshot, bool) {
	if m.latest == nil {
		return model.Snapshot{}, false
	}
	return *m.latest, true
}

func (m *Model) View() string {
	if m.latest == nil {
		return titleStyle.Render("hostinfo") + "  " + subtleStyle.Render("collecting first snapshot…")
	}
	s := *m.latest

	header := titleStyle.Render("hostinfo") + "  " + hostLine(s.Host) + "  " +
		subtleStyle.Render(s.Timestamp.Format("Mon Jan 2 15:04:05 MST 2006"))
	sub := subtleStyle.Render(fmt.Sprintf("every %s · sort %s · top %d · q to quit",
		m.opts.Interval, m.opts.Sort, m.opts.Limit))

	line1 := lipgloss.JoinHorizontal(lipgloss.Top,
		card("CPU", cpuBody(s.CPU)),
		card("Memory", memoryBody(s.Memory)),
		card("Temperature", temperatureBody(s.Temperature)))
	line2 := lipgloss.JoinHorizontal(lipgloss.Top,
		card("Disk I/O", diskBody(s.DiskIO)),
		card("Network", networkBody(s.NetworkIO)))
	procs := card("Processes", processTable(s.Processes, m.opts.Limit))

	return lipgloss.JoinVertical(lipgloss.Left, header, sub, line1, line2, procs)
}

func hostLine(r model.Result[model.HostInfo]) string {
	h, ok := r.Get()
	if !ok {
		return na("")
	}
	return fmt.Sprintf("%s (%s, %s) up %s", h.Hostname, h.Platform, h.Arch, FormatUptime(h.UptimeSeconds))
}

func cpuBody(r model.Result[model.CPU]) string {
	c, ok := r.Get()
	if !ok {
		return na(r.Unavailable().Reason)
	}
	lines := []string{
		levelText(c.TotalPercent, gaugeBar(c.TotalPercent, 24)),
		fmt.Sprintf("load %.2f %.2f %.2f", c.Load1, c.Load5, c.Load15),
	}
	info := fmt.Sprintf("%d cores", c.LogicalCores)
	if c.FrequencyMHz > 0 {
		info += fmt.Sprintf(" @ %.0f MHz", c.FrequencyMHz)
	}
	lines = append(lines, info)

	var row []string
	for i, p := range c.PerCore {
		row = append(row, levelText(p, fmt.Sprintf("%2d:%5.1f%%", i, p)))
		if len(row) == 4 {
			lines = append(lines, strings.Join(row, " "))
			row = nil
		}
	}
	if len(row) > 0 {
		lines = append(lines, strings.Join(row, " "))
	}
	return strings.Join(lines, "\n")
}

func memoryBody(r model.Result[model.Memory]) string {
	mem, ok := r.Get()
	if !ok {
		return na(r.Unavailable().Reason)
	}
	swap := "Swap none"
	if mem.SwapTotalBytes > 0 {
		swapPct := pct(mem.SwapUsedBytes, mem.SwapTotalBytes)
		swap = levelText(swapPct, fmt.Sprintf("Swap %s / %s (%.0f%%)",
			FormatBytes(mem.SwapUsedBytes), FormatBytes(mem.SwapTotalBytes), swapPct))
	}
	return strings.Join([]string{
		levelText(mem.UsedPercent, gaugeBar(mem.UsedPercent, 24)),
		fmt.Sprintf("%s / %s", FormatBytes(mem.UsedBytes), FormatBytes(mem.TotalBytes)),
		"available " + FormatBytes(mem.AvailableBytes),
		swap,
	}, "\n")
}

func diskBody(r model.Result[model.DiskIO]) string {
	d, ok := r.Get()
	if !ok {
		return na(r.Unavailable().Reason)
	}
	rate := "rate " + na("first sample")
	if d.Rate != nil {
		rate = fmt.Sprintf("R %s  W %s", FormatRate(d.Rate.ReadBytesPerSec), FormatRate(d.Rate.WriteBytesPerSec))
	}
	return strings.Join([]string{
		rate,
		fmt.Sprintf("read %s (%s ops)", FormatBytes(d.ReadBytes), FormatCount(d.ReadCount)),
		fmt.Sprintf("written %s (%s ops)", FormatBytes(d.WriteBytes), FormatCount(d.WriteCount)),
	}, "\n")
}

func networkBody(r model.Result[model.NetworkIO]) string {
	n, ok := r.Get()
	if !ok {
		return na(r.Unavailable().Reason)
	}
	rate := "rate " + na("first sample")
	if n.Rate != nil {
		rate = fmt.Sprintf("RX %s  TX %s", FormatRate(n.Rate.RecvBytesPerSec), FormatRate(n.Rate.SentBytesPerSec))
	}
	return strings.Join([]string{
		rate,
		fmt.Sprintf("received %s (%s pkts)", FormatBytes(n.BytesRecv), FormatCount(n.PacketsRecv)),
		fmt.Sprintf("sent %s (%s pkts)", FormatBytes(n.BytesSent), FormatCount(n.PacketsSent)),
	}, "\n")
}

// maxOtherSensors bounds the extra sensor rows in the temperature card.
const maxOtherSensors = 4

func temperatureBody(t model.ThermalReading) string {
	if !t.Available {
		return na("") + "\n" + wrap(t.Reason, 48)
	}
	lines := []string{
		"CPU     " + celsius(t.CPUCelsius),
		"GPU     " + celsius(t.GPUCelsius),
		"Battery " + celsius(t.BatteryCelsius),
	}
	names := make([]string, 0, len(t.Other))
	for name := range t.Other {
		names = append(names, name)
	}
	sort.Strings(names)
	for i, name := range names {
		if i == maxOtherSensors {
			lines = append(lines, subtleStyle.Render(fmt.Sprintf("+%d more", len(names)-maxOtherSensors)))
			break
		}
		v := t.Other[name]
		lines = append(lines, fmt.Sprintf("%-7s %s", truncate(name, 7), levelText(v, FormatCelsius(&v))))
	}
	lines = append(lines, subtleStyle.Render("via "+t.Strategy))
	return strings.Join(lines, "\n")
}

func celsius(v *float64) string {
	if v == nil {
		return na("")
	}
	return levelText(*v, FormatCelsius(v))
}

func processTable(r model.Result[[]model.Process], limit int) string {
	rows, ok := r.Get()
	if !ok {
		return na(r.Unavailable().Reason)
	}
	if limit <= 0 || limit > len(rows) {
		limit = len(rows)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%-7s %-20s %6s %6s %10s %-8s %-10s\n", "pid", "name", "cpu%", "mem%", "rss", "status", "user")
	for _, p := range rows[:limit] {
		fmt.Fprintf(&b, "%-7d %-20s %s %s %10s %-8s %-10s\n",
			p.PID, truncate(p.Name, 20),
			levelText(p.CPUPercent, fmt.Sprintf("%6.1f", p.CPUPercent)),
			levelText(p.MemoryPercent, fmt.Sprintf("%6.1f", p.MemoryPercent)),
			FormatBytes(p.MemoryBytes), p.Status, truncate(p.Owner, 10))
	}
	return strings.TrimRight(b.String(), "\n")
}

// Helpers
func gaugeBar(pct float64, width int) string {
	pct = model.ClampPercent(pct)
	filled := int((pct / 100) * float64(width))
	if filled > width {
		filled = width
	}
	return fmt.Sprintf("[%s%s] %5.1f%%",
		strings.Repeat(gaugeFill, filled),
		strings.Repeat(gaugeEmpty, width-filled),
		pct)
}

func card(title, body string) string {
	titleStr := labelStyle.Render(title)
	content := titleStr + "\n" + body
	return cardStyle.Render(content)
}

func pct(used, total uint64) float64 {
	if total == 0 {
		return 0
	}
	return float64(used) * 100 / float64(total)
}

// wrap breaks s on spaces so no line exceeds width runes where possible.
func wrap(s string, width int) string {
	words := strings.Fields(s)
	var lines []string
	var cur string
	for _, w := range words {
		switch {
		case cur == "":
			cur = w
		case len([]rune(cur))+1+len([]rune(w)) <= width:
			cur += " " + w
		default:
			lines = append(lines, cur)
			cur = w
		}
	}
	if cur != "" {
		lines = append(lines, cur)
	}
	return subtleStyle.Render(strings.Join(lines, "\n"))
}

// Loop is the refresh loop that feeds the dashboard.
type Loop interface {
	Run(ctx context.Context, sink snapshot.Sink) error
}

// Run starts the Bubble Tea program and feeds it from loop until the user
// quits, ctx is cancelled or the loop fails.
func Run(ctx context.Context, loop Loop, opts Options, teaOpts ...tea.ProgramOption) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	progOpts := append([]tea.ProgramOption{tea.WithAltScreen()}, teaOpts...)
	prog := tea.NewProgram(New(opts, cancel), progOpts...)

	loopErr := make(chan error, 1)
	go func() {
		loopErr <- loop.Run(ctx, func(s model.Snapshot) error {
			prog.Send(SnapshotMsg(s))
			return nil
		})
		prog.Quit()
	}()

	_, err := prog.Run()
	cancel()
	if lerr := <-loopErr; lerr != nil {
		return lerr
	}
	return err
}
