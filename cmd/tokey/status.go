package main

import (
	"github.com/spf13/cobra"

	"github.com/zx06/tokey/internal/output"
)

// NewStatusCommand creates the status command
func NewStatusCommand(w *output.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "status [provider [account]]",
		Short: "Show freshness and refresh history for stored accounts",
		Args:  cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := parseOutputFormat(GlobalConfig.FormatStr)
			if err != nil {
				return err
			}

			providerFilter, label := "", ""
			if len(args) >= 1 {
				providerFilter = args[0]
			}
			if len(args) == 2 {
				label = args[1]
			}

			a, te := buildApp()
			if te != nil {
				return te
			}
			rows, te := a.Status(providerFilter, label)
			if te != nil {
				return te
			}
			return w.WriteOK(format, rows)
		},
	}
}
