package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/arumata/snappy/internal/usecase"
)

func newConfigCmd(opts *rootOptions, exitCode *int) *cobra.Command {
	var (
		show        bool
		printPath   bool
		create      bool
		force       bool
		dryRun      bool
		destination string
		sources     []string
		keep        int
	)

	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show, locate or create the configuration file",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			if !show && !printPath && !create {
				_ = cmd.Help()
				*exitCode = exitUsageError
				return
			}
			s, err := opts.openSession(cmd, opts.verbose)
			if err != nil {
				handleCmdError(cmd.ErrOrStderr(), exitCode, err)
				return
			}
			out := cmd.OutOrStdout()

			switch {
			case printPath:
				_, err = fmt.Fprintln(out, s.configPath)
			case show:
				var data []byte
				data, err = usecase.ShowConfig(cmd.Context(), s.configPath, s.deps)
				if err == nil {
					_, err = out.Write(data)
				}
			case create:
				var path string
				path, err = usecase.CreateConfig(cmd.Context(), usecase.ConfigCreateOptions{
					Path:        s.configPath,
					Destination: destination,
					Sources:     sources,
					Keep:        keep,
					Force:       force,
					DryRun:      dryRun,
					HomeDir:     s.homeDir,
				}, s.deps, s.logger)
				if err == nil && !dryRun {
					_, err = fmt.Fprintf(out, "Config written to %s\n", path)
				}
			}
			handleCmdError(cmd.ErrOrStderr(), exitCode, err)
		},
	}

	cmd.Flags().BoolVarP(&show, "show", "s", false, "print the configuration file")
	cmd.Flags().BoolVarP(&printPath, "path", "p", false, "print the configuration file path")
	cmd.Flags().BoolVarP(&create, "create", "c", false, "write a new configuration file")
	cmd.Flags().BoolVar(&force, "force", false, "replace an existing file (the old one is kept as .bak)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "report what --create would write")
	cmd.Flags().StringVar(&destination, "destination", "", "backup root for --create")
	cmd.Flags().StringArrayVar(&sources, "source", nil, "source path for --create (repeatable)")
	cmd.Flags().IntVar(&keep, "keep", 0, "snapshots to keep for --create (0 uses the default)")
	cmd.MarkFlagsMutuallyExclusive("show", "path", "create")

	return cmd
}
