package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/arumata/snappy/internal/usecase"
)

func newPruneCmd(opts *rootOptions, exitCode *int) *cobra.Command {
	var (
		keep   int
		dryRun bool
	)

	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete the oldest snapshots beyond the retention count",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			s, err := opts.loadRuntime(cmd, opts.verbose || dryRun)
			if err != nil {
				handleCmdError(cmd.ErrOrStderr(), exitCode, err)
				return
			}
			defer s.close()

			count := s.cfg.KeepCount
			if cmd.Flags().Changed("keep") {
				if keep < 0 {
					handleCmdError(cmd.ErrOrStderr(), exitCode,
						fmt.Errorf("--keep must be >= 0, got %d: %w", keep, usecase.ErrUsage))
					return
				}
				count = keep
			}

			result, err := opts.actions.prune(cmd.Context(), usecase.PruneOptions{
				Destination: s.cfg.Destination,
				Keep:        count,
				DryRun:      dryRun,
				Verbose:     s.cfg.Verbose,
				HomeDir:     s.homeDir,
				StateDir:    s.cfg.StateDir,
			}, s.deps, s.logger)
			if err != nil && !errors.Is(err, usecase.ErrPrune) {
				handleCmdError(cmd.ErrOrStderr(), exitCode, err)
				return
			}

			verb := "Removed"
			if result.DryRun {
				verb = "Would remove"
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s %d snapshot(s), kept %d\n", verb, len(result.Removed), len(result.Kept))
			handleCmdError(cmd.ErrOrStderr(), exitCode, err)
		},
	}

	cmd.Flags().IntVar(&keep, "keep", 0, "snapshots to keep (default from retention.keep, 0 keeps all)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "report what would be deleted")

	return cmd
}
