package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/zx06/tokey/internal/daemon"
	"github.com/zx06/tokey/internal/errors"
	"github.com/zx06/tokey/internal/output"
)

// NewDaemonCommand creates the daemon command group
func NewDaemonCommand(w *output.Writer) *cobra.Command {
	daemonCmd := &cobra.Command{
		Use:   "daemon",
		Short: "Manage the background refresh agent (macOS launchd)",
	}

	daemonCmd.AddCommand(newDaemonInstallCommand(w))
	daemonCmd.AddCommand(newDaemonUninstallCommand(w))
	daemonCmd.AddCommand(newDaemonStatusCommand(w))

	return daemonCmd
}

func newDaemonManager() (*daemon.Manager, *errors.TError) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, errors.Wrap(errors.CodeInternal, "resolve home dir", nil, err)
	}
	return daemon.New(home, GlobalConfig.Resolved.DataDir)
}

func newDaemonInstallCommand(w *output.Writer) *cobra.Command {
	interval := daemon.DefaultIntervalHours

	cmd := &cobra.Command{
		Use:   "install",
		Short: "Install a launchd agent that runs `tokey refresh --all` periodically",
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := parseOutputFormat(GlobalConfig.FormatStr)
			if err != nil {
				return err
			}
			m, te := newDaemonManager()
			if te != nil {
				return te
			}
			res, te := m.Install(interval)
			if te != nil {
				return te
			}
			return w.WriteOK(format, res)
		},
	}

	cmd.Flags().IntVar(&interval, "interval", daemon.DefaultIntervalHours, "Refresh interval in hours")

	return cmd
}

func newDaemonUninstallCommand(w *output.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "uninstall",
		Short: "Remove the launchd refresh agent",
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := parseOutputFormat(GlobalConfig.FormatStr)
			if err != nil {
				return err
			}
			m, te := newDaemonManager()
			if te != nil {
				return te
			}
			res, te := m.Uninstall()
			if te != nil {
				return te
			}
			return w.WriteOK(format, res)
		},
	}
}

func newDaemonStatusCommand(w *output.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show whether the refresh agent is installed and loaded",
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := parseOutputFormat(GlobalConfig.FormatStr)
			if err != nil {
				return err
			}
			m, te := newDaemonManager()
			if te != nil {
				return te
			}
			res, te := m.Status()
			if te != nil {
				return te
			}
			return w.WriteOK(format, res)
		},
	}
}
