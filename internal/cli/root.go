// Package cli wires configuration, collectors and renderers into the
// hostinfo command tree.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Dicklesworthstone/hostinfo/internal/config"
	hierrors "github.com/Dicklesworthstone/hostinfo/internal/errors"
	"github.com/Dicklesworthstone/hostinfo/internal/process"
)

// rootFlags holds the flags shared by every command.
type rootFlags struct {
	configPath string
}

// NewRootCommand builds the command tree. Running the root command without a
// subcommand starts the monitor.
func NewRootCommand() *cobra.Command {
	flags := &rootFlags{}
	mon := &monitorFlags{}

	root := &cobra.Command{
		Use:   "hostinfo",
		Short: "Live terminal dashboard for host performance counters",
		Long: `hostinfo samples CPU, memory, disk I/O, network I/O, thermal sensors and
the process table on a fixed cadence and renders them as a refreshing dashboard.

When stdout is not a terminal, or with --json-stream, snapshots are written as
newline-delimited JSON instead.

Examples:
  hostinfo
  hostinfo --interval 1s --sort memory --limit 20
  hostinfo snapshot --format yaml
  hostinfo ps --sort name --filter '^post'`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "version" {
				return nil
			}
			return checkPlatform(runtime.GOOS)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMonitor(cmd, flags, mon)
		},
	}

	root.PersistentFlags().StringVar(&flags.configPath, "config", "", "config file (default ~/.config/hostinfo/config.yaml)")
	addConfigFlags(root)
	addMonitorFlags(root, mon)

	root.AddCommand(
		newMonitorCommand(flags),
		newSnapshotCommand(flags),
		newPsCommand(flags),
		newProcCommand(flags),
		newVersionCommand(),
	)
	return root
}

// addConfigFlags registers the flags that map onto config keys. Defaults
// mirror config.Default so unset flags never shadow the config file.
func addConfigFlags(cmd *cobra.Command) {
	def := config.Default()
	fs := cmd.PersistentFlags()
	fs.Duration("interval", def.Interval, "refresh interval (e.g. 2s, 500ms)")
	fs.String("sort", def.Sort, "process sort key: "+process.SortKeyList())
	fs.Int("limit", def.Limit, "number of processes to show")
	fs.String("filter", def.Filter, "regex filter for process names")
	fs.Duration("probe-timeout", def.ProbeTimeout, "timeout for each temperature probe")
	fs.Bool("thermal", def.Thermal, "read temperature sensors")
	fs.Bool("parallel", def.Parallel, "sample collectors concurrently")
	fs.String("log-file", def.LogFile, "write logs to this file while the dashboard runs")
}

// loadConfig resolves configuration for cmd from every source.
func loadConfig(cmd *cobra.Command, flags *rootFlags) (config.Config, error) {
	return config.Load(config.Options{
		ConfigFile: flags.configPath,
		Flags:      cmd.Flags(),
	})
}

// supportedPlatforms lists the operating systems gopsutil and the thermal
// strategies are exercised on.
var supportedPlatforms = map[string]bool{
	"darwin":  true,
	"linux":   true,
	"freebsd": true,
}

func checkPlatform(goos string) error {
	if supportedPlatforms[goos] {
		return nil
	}
	return hierrors.New(hierrors.PlatformUnsupported,
		fmt.Sprintf("hostinfo does not support %s", goos),
		"Run hostinfo on macOS, Linux or FreeBSD")
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

// oneShotTimeout bounds a single snapshot for the one-shot commands.
const oneShotTimeout = 30 * time.Second

// Execute runs the root command and exits non-zero on error.
func Execute() {
	if err := NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
