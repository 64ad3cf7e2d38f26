package cli

import (
	"context"
	"io"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	hierrors "github.com/Dicklesworthstone/hostinfo/internal/errors"
	"github.com/Dicklesworthstone/hostinfo/internal/logger"
	"github.com/Dicklesworthstone/hostinfo/internal/model"
	"github.com/Dicklesworthstone/hostinfo/internal/output"
	"github.com/Dicklesworthstone/hostinfo/internal/snapshot"
	"github.com/Dicklesworthstone/hostinfo/internal/ui"
)

type monitorFlags struct {
	count int
}

func addMonitorFlags(cmd *cobra.Command, flags *monitorFlags) {
	cmd.Flags().Bool("json-stream", false, "stream NDJSON snapshots instead of the dashboard")
	cmd.Flags().IntVar(&flags.count, "count", 0, "stop after this many snapshots (0 runs until interrupted)")
}

func newMonitorCommand(root *rootFlags) *cobra.Command {
	flags := &monitorFlags{}
	cmd := &cobra.Command{
		Use:   "monitor",
		Short: "Show the live dashboard (default command)",
		Long: `Sample the host on a fixed cadence and render a refreshing dashboard.

Press q or Ctrl+C to quit. Unavailable metrics are shown as N/A with a reason.

Examples:
  hostinfo monitor
  hostinfo monitor --interval 500ms --sort memory
  hostinfo monitor --json-stream --count 10 > samples.ndjson`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMonitor(cmd, root, flags)
		},
	}
	addMonitorFlags(cmd, flags)
	return cmd
}

func runMonitor(cmd *cobra.Command, root *rootFlags, flags *monitorFlags) error {
	if flags.count < 0 {
		return hierrors.New(hierrors.Config, "--count must not be negative", "")
	}
	cfg, err := loadConfig(cmd, root)
	if err != nil {
		return err
	}

	ctx, stop := signalContext(cmd.Context())
	defer stop()

	out := cmd.OutOrStdout()
	if cfg.JSONStream || !isTerminal(out) {
		a, err := newApp(cfg, nil)
		if err != nil {
			return err
		}
		return a.scheduler.Run(ctx, limitSink(output.NDJSON(out), flags.count))
	}

	// The alt screen owns the terminal, so log lines go to a file or nowhere.
	if cfg.LogFile != "" {
		f, err := tea.LogToFile(cfg.LogFile, "hostinfo")
		if err != nil {
			return hierrors.Wrap(err, hierrors.Config, "cannot open log file "+cfg.LogFile)
		}
		defer f.Close()
	} else {
		orig := logger.Default()
		logger.SetDefault(logger.Noop())
		defer logger.SetDefault(orig)
	}

	a, err := newApp(cfg, nil)
	if err != nil {
		return err
	}
	return ui.Run(ctx, countedLoop{scheduler: a.scheduler, count: flags.count},
		ui.Options{Interval: a.scheduler.Interval(), Sort: string(cfg.SortKey()), Limit: cfg.Limit})
}

// countedLoop runs the scheduler with an optional delivery limit.
type countedLoop struct {
	scheduler *snapshot.Scheduler
	count     int
}

func (l countedLoop) Run(ctx context.Context, sink snapshot.Sink) error {
	return l.scheduler.Run(ctx, limitSink(sink, l.count))
}

// limitSink stops the loop after n deliveries; n == 0 means no limit.
func limitSink(sink snapshot.Sink, n int) snapshot.Sink {
	if n <= 0 {
		return sink
	}
	delivered := 0
	return func(s model.Snapshot) error {
		if err := sink(s); err != nil {
			return err
		}
		delivered++
		if delivered >= n {
			return snapshot.ErrStop
		}
		return nil
	}
}

// isTerminal reports whether w is an interactive terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
