package cli

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	hierrors "github.com/Dicklesworthstone/hostinfo/internal/errors"
	"github.com/Dicklesworthstone/hostinfo/internal/output"
)

func newPsCommand(root *rootFlags) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "ps",
		Short: "Print the ranked process list and exit",
		Long: `List processes ordered by the --sort key, at most --limit of them.

Examples:
  hostinfo ps
  hostinfo ps --sort memory --limit 5
  hostinfo ps --filter '^(postgres|redis)' --format json`,
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

			ctx, cancel := context.WithTimeout(cmd.Context(), oneShotTimeout)
			defer cancel()

			res := a.ranker.Rank(ctx, cfg.SortKey(), cfg.Limit)
			procs, ok := res.Get()
			if !ok {
				u := res.Unavailable()
				return hierrors.New(u.Kind, u.Reason, "").WithSource("ps")
			}
			return output.Write(cmd.OutOrStdout(), f, procs)
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", string(output.FormatText), "output format: text|json|yaml")
	return cmd
}

func newProcCommand(root *rootFlags) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "proc <pid>",
		Short: "Print details of one process",
		Long: `Look up a single process by pid. Exits non-zero when it does not exist.

Examples:
  hostinfo proc 1
  hostinfo proc 4242 --format json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pid, err := strconv.Atoi(args[0])
			if err != nil || pid <= 0 {
				return hierrors.New(hierrors.Config,
					fmt.Sprintf("%q is not a valid pid", args[0]),
					"Pass a positive process id, e.g. hostinfo proc 1")
			}
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

			ctx, cancel := context.WithTimeout(cmd.Context(), oneShotTimeout)
			defer cancel()

			p, found := a.ranker.Lookup(ctx, pid)
			if !found {
				return hierrors.New(hierrors.SourceUnavailable,
					fmt.Sprintf("process %d not found", pid),
					"List running processes with: hostinfo ps").WithSource("proc")
			}
			return output.Write(cmd.OutOrStdout(), f, p)
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", string(output.FormatText), "output format: text|json|yaml")
	return cmd
}
