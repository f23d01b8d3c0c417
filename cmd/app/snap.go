package main

import (
	"github.com/spf13/cobra"
)

func newSnapCmd(opts *rootOptions, exitCode *int) *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "snap",
		Short: "Take a snapshot of the configured sources",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			// A dry run exists to show what would happen, so it always talks.
			verbose := opts.verbose || dryRun
			s, err := opts.loadRuntime(cmd, verbose)
			if err != nil {
				handleCmdError(cmd.ErrOrStderr(), exitCode, err)
				return
			}
			defer s.close()

			s.cfg.DryRun = dryRun
			_, err = opts.actions.backup(cmd.Context(), s.cfg, s.deps, s.logger)
			handleCmdError(cmd.ErrOrStderr(), exitCode, err)
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "run rsync with --dry-run and leave the destination untouched")

	return cmd
}
