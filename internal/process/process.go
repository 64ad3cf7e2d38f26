// Package process ranks the host process table.
package process

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/shirou/gopsutil/v3/process"

	hierrors "github.com/Dicklesworthstone/hostinfo/internal/errors"
	"github.com/Dicklesworthstone/hostinfo/internal/logger"
	"github.com/Dicklesworthstone/hostinfo/internal/model"
)

// SortKey selects the ranking order.
type SortKey string

const (
	SortCPU    SortKey = "cpu"
	SortMemory SortKey = "memory"
	SortPID    SortKey = "pid"
	SortName   SortKey = "name"
)

// SortKeys lists the accepted keys in help-text order.
var SortKeys = []SortKey{SortCPU, SortMemory, SortPID, SortName}

// ParseSortKey accepts a key name case-insensitively; "mem" is an alias for
// memory.
func ParseSortKey(s string) (SortKey, error) {
	switch k := SortKey(strings.ToLower(strings.TrimSpace(s))); k {
	case SortCPU, SortMemory, SortPID, SortName:
		return k, nil
	case "mem":
		return SortMemory, nil
	}
	return "", hierrors.New(hierrors.Config,
		fmt.Sprintf("unknown sort key %q", s),
		"use one of: "+SortKeyList())
}

// SortKeyList joins SortKeys for help and error text.
func SortKeyList() string {
	names := make([]string, len(SortKeys))
	for i, k := range SortKeys {
		names[i] = string(k)
	}
	return strings.Join(names, ", ")
}

// handle is the part of *process.Process the ranker reads.
type handle interface {
	PID() int32
	NameWithContext(ctx context.Context) (string, error)
	CPUPercentWithContext(ctx context.Context) (float64, error)
	MemoryPercentWithContext(ctx context.Context) (float32, error)
	MemoryInfoWithContext(ctx context.Context) (*process.MemoryInfoStat, error)
	StatusWithContext(ctx context.Context) ([]string, error)
	UsernameWithContext(ctx context.Context) (string, error)
	CmdlineWithContext(ctx context.Context) (string, error)
}

type gopsHandle struct {
	*process.Process
}

func (h gopsHandle) PID() int32 { return h.Pid }

func listProcesses(ctx context.Context) ([]handle, error) {
	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]handle, 0, len(procs))
	for _, p := range procs {
		out = append(out, gopsHandle{p})
	}
	return out, nil
}

func openProcess(ctx context.Context, pid int32) (handle, error) {
	p, err := process.NewProcessWithContext(ctx, pid)
	if err != nil {
		return nil, err
	}
	return gopsHandle{p}, nil
}

// Ranker enumerates processes and orders them by a SortKey.
type Ranker struct {
	list   func(ctx context.Context) ([]handle, error)
	open   func(ctx context.Context, pid int32) (handle, error)
	filter *regexp.Regexp
	log    logger.Logger
}

// NewRanker returns a gopsutil-backed ranker. A non-empty filter is a regular
// expression matched against process names; it is applied before the limit.
func NewRanker(filter string, log logger.Logger) (*Ranker, error) {
	if log == nil {
		log = logger.Noop()
	}
	r := &Ranker{list: listProcesses, open: openProcess, log: log}
	if filter != "" {
		re, err := regexp.Compile(filter)
		if err != nil {
			return nil, hierrors.Wrap(err, hierrors.Config, fmt.Sprintf("invalid process filter %q", filter))
		}
		r.filter = re
	}
	return r, nil
}

// Name identifies the ranker in unavailable reasons.
func (r *Ranker) Name() string { return "processes" }

// Rank returns at most limit processes ordered by key; limit <= 0 means no
// limit. Processes that exit mid-scan are skipped. Only a failure to list the
// process table makes the result unavailable.
func (r *Ranker) Rank(ctx context.Context, key SortKey, limit int) model.Result[[]model.Process] {
	handles, err := r.list(ctx)
	if err != nil {
		return model.Fail[[]model.Process](model.FromError(r.Name(), err))
	}

	rows := make([]model.Process, 0, len(handles))
	for _, h := range handles {
		if err := ctx.Err(); err != nil {
			return model.Fail[[]model.Process](model.FromError(r.Name(), err))
		}
		p, ok := r.collect(ctx, h)
		if !ok {
			continue
		}
		if r.filter != nil && !r.filter.MatchString(p.Name) {
			continue
		}
		rows = append(rows, p)
	}

	Sort(rows, key)
	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}
	return model.Ok(rows)
}

// Lookup returns the process with the given pid. The boolean is false when no
// such process exists or it exited while being read.
func (r *Ranker) Lookup(ctx context.Context, pid int) (model.Process, bool) {
	if pid <= 0 {
		return model.Process{}, false
	}
	h, err := r.open(ctx, int32(pid))
	if err != nil {
		return model.Process{}, false
	}
	return r.collect(ctx, h)
}

// Sort orders rows in place. cpu and memory sort descending, pid and name
// ascending; ties go to the lower pid.
func Sort(rows []model.Process, key SortKey) {
	less := func(a, b model.Process) int {
		switch key {
		case SortMemory:
			return compareDesc(a.MemoryPercent, b.MemoryPercent)
		case SortPID:
			return 0
		case SortName:
			return strings.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name))
		default:
			return compareDesc(a.CPUPercent, b.CPUPercent)
		}
	}
	sort.SliceStable(rows, func(i, j int) bool {
		if c := less(rows[i], rows[j]); c != 0 {
			return c < 0
		}
		return rows[i].PID < rows[j].PID
	})
}

func compareDesc(a, b float64) int {
	switch {
	case a > b:
		return -1
	case a < b:
		return 1
	}
	return 0
}

// collect reads one process. It reports false when the process vanished or
// has no positive pid (pid 0 is the kernel on darwin); optional details that
// cannot be read fall back to empty values.
func (r *Ranker) collect(ctx context.Context, h handle) (model.Process, bool) {
	pid := h.PID()
	if pid <= 0 {
		return model.Process{}, false
	}
	name, err := h.NameWithContext(ctx)
	if err != nil || name == "" {
		return model.Process{}, false
	}

	cpuPct, err := h.CPUPercentWithContext(ctx)
	if errors.Is(err, process.ErrorProcessNotRunning) {
		return model.Process{}, false
	}
	if err != nil {
		r.logger().Debug("pid %d (%s): cpu percent unavailable, reporting 0: %v", pid, name, err)
		cpuPct = 0
	}
	memPct, err := h.MemoryPercentWithContext(ctx)
	if err != nil {
		r.logger().Debug("pid %d (%s): memory percent unavailable, reporting 0: %v", pid, name, err)
		memPct = 0
	}

	var rss uint64
	if mi, err := h.MemoryInfoWithContext(ctx); err == nil && mi != nil {
		rss = mi.RSS
	}

	owner, err := h.UsernameWithContext(ctx)
	if err != nil || owner == "" {
		owner = model.UnknownOwner
	}
	cmdline, _ := h.CmdlineWithContext(ctx)

	status := model.StatusUnknown
	if st, err := h.StatusWithContext(ctx); err == nil && len(st) > 0 {
		status = mapStatus(st[0])
	}

	return model.Process{
		PID:           int(pid),
		Name:          name,
		CPUPercent:    model.NonNegative(cpuPct),
		MemoryPercent: model.ClampPercent(float64(memPct)),
		MemoryBytes:   rss,
		Status:        status,
		Owner:         owner,
		CommandLine:   cmdline,
	}, true
}

func (r *Ranker) logger() logger.Logger {
	if r.log == nil {
		return logger.Noop()
	}
	return r.log
}

func mapStatus(s string) model.Status {
	switch s {
	case process.Running:
		return model.StatusRunning
	case process.Sleep, process.Idle, process.Wait, process.Lock:
		return model.StatusSleeping
	case process.Stop:
		return model.StatusStopped
	case process.Zombie:
		return model.StatusZombie
	}
	return model.StatusUnknown
}
