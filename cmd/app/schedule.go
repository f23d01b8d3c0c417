package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/arumata/snappy/internal/usecase"
)

func newScheduleCmd(opts *rootOptions, exitCode *int) *cobra.Command {
	var (
		spec         string
		installUnits bool
		unitsDir     string
		binaryPath   string
		dryRun       bool
	)

	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Run snapshots on a cron schedule, or install systemd user units",
		Long: "Without flags, schedule runs in the foreground and takes a snapshot on every tick of\n" +
			"schedule.cron. It notifies systemd when run as a Type=notify service.\n" +
			"With --install-units it writes the systemd unit files instead and exits.",
		Args: cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			if installUnits {
				runInstallUnits(cmd, opts, exitCode, spec, usecase.InstallUnitsOptions{
					Dir:        unitsDir,
					BinaryPath: binaryPath,
					DryRun:     dryRun,
				})
				return
			}

			s, err := opts.loadRuntime(cmd, opts.verbose)
			if err != nil {
				handleCmdError(cmd.ErrOrStderr(), exitCode, err)
				return
			}
			defer s.close()

			cronSpec := strings.TrimSpace(spec)
			if cronSpec == "" {
				cronSpec = s.fileCfg.Schedule.Cron
			}
			err = opts.actions.schedule(cmd.Context(), cronSpec, s.cfg, s.deps, s.logger)
			handleCmdError(cmd.ErrOrStderr(), exitCode, err)
		},
	}

	cmd.Flags().StringVar(&spec, "cron", "", "cron expression (default from schedule.cron)")
	cmd.Flags().BoolVar(&installUnits, "install-units", false, "write systemd user units and exit")
	cmd.Flags().StringVar(&unitsDir, "units-dir", usecase.DefaultUnitsDir, "target directory for --install-units")
	cmd.Flags().StringVar(&binaryPath, "binary", "", "snappy binary referenced by the units (default: this executable)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "report the unit files --install-units would write")

	return cmd
}

// runInstallUnits does not require a valid config. The timer follows --cron,
// or schedule.cron when the config loads; a config schedule systemd cannot
// express falls back to a daily timer with a warning.
func runInstallUnits(cmd *cobra.Command, opts *rootOptions, exitCode *int, cronFlag string, unitOpts usecase.InstallUnitsOptions) {
	s, err := opts.openSession(cmd, opts.verbose)
	if err != nil {
		handleCmdError(cmd.ErrOrStderr(), exitCode, err)
		return
	}
	unitOpts.ConfigPath = s.configPath
	unitOpts.HomeDir = s.homeDir

	switch {
	case strings.TrimSpace(cronFlag) != "":
		unitOpts.OnCalendar, err = usecase.OnCalendarFromCron(cronFlag)
		if err != nil {
			handleCmdError(cmd.ErrOrStderr(), exitCode, err)
			return
		}
	case s.deps.Config != nil:
		fileCfg, loadErr := s.deps.Config.Load(cmd.Context(), s.configPath)
		if loadErr != nil {
			break
		}
		unitOpts.OnCalendar, err = usecase.OnCalendarFromCron(fileCfg.Schedule.Cron)
		if err != nil {
			s.logger.Warn("Timer falls back to daily", "error", err)
			unitOpts.OnCalendar = usecase.DefaultOnCalendar
		}
	}

	written, err := usecase.InstallUnits(cmd.Context(), unitOpts, s.deps, s.logger)
	if err != nil {
		handleCmdError(cmd.ErrOrStderr(), exitCode, err)
		return
	}
	out := cmd.OutOrStdout()
	for _, path := range written {
		_, _ = fmt.Fprintln(out, path)
	}
	if !unitOpts.DryRun && len(written) > 0 {
		_, _ = fmt.Fprintln(out, "Enable with: systemctl --user daemon-reload && systemctl --user enable --now snappy-snap.timer")
	}
	*exitCode = exitSuccess
}
