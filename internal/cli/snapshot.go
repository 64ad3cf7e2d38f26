package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/Dicklesworthstone/hostinfo/internal/output"
)

func newSnapshotCommand(root *rootFlags) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Print a single snapshot and exit",
		Long: `Collect one snapshot of every metric family and print it.

Unavailable fields are encoded as {"available": false, "kind": ..., "reason": ...}
in JSON and YAML, and as N/A in text.

Examples:
  hostinfo snapshot
  hostinfo snapshot --format yaml
  hostinfo snapshot --format text --thermal=false`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := output.ParseFormat(format)
			if err != nil {
				return err
			}
			cfg, err := loadConfig(cmd, root)
			if err != nil {
				return err
			}
			a, err := newApp(cfg, nil)
			if err != nil {
				return err
			}

			ctx, stop := signalContext(cmd.Context())
			defer stop()
			ctx, cancel := context.WithTimeout(ctx, oneShotTimeout)
			defer cancel()

			return output.Write(cmd.OutOrStdout(), f, a.scheduler.Once(ctx))
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", string(output.FormatJSON), "output format: json|yaml|text")
	return cmd
}
