package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/arumata/snappy/internal/usecase"
)

func newListCmd(opts *rootOptions, exitCode *int) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List snapshots under the configured destination",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			s, err := opts.loadRuntime(cmd, opts.verbose)
			if err != nil {
				handleCmdError(cmd.ErrOrStderr(), exitCode, err)
				return
			}
			defer s.close()

			listing, err := usecase.ListBackups(cmd.Context(), s.cfg, s.deps, s.logger)
			if err != nil {
				handleCmdError(cmd.ErrOrStderr(), exitCode, err)
				return
			}
			out := cmd.OutOrStdout()
			text := usecase.FormatSnapshotList(listing, time.Now(), s.homeDir, os.PathSeparator, writerUsesColor(out))
			_, err = fmt.Fprint(out, text)
			handleCmdError(cmd.ErrOrStderr(), exitCode, err)
		},
	}
}
