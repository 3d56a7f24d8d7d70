package main

import (
	"github.com/spf13/cobra"

	"github.com/zx06/tokey/internal/output"
)

// NewListCommand creates the list command
func NewListCommand(w *output.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "list [provider]",
		Short: "List stored accounts",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := parseOutputFormat(GlobalConfig.FormatStr)
			if err != nil {
				return err
			}

			providerFilter := ""
			if len(args) == 1 {
				providerFilter = args[0]
			}

			a, te := buildApp()
			if te != nil {
				return te
			}
			rows, te := a.List(providerFilter)
			if te != nil {
				return te
			}
			return w.WriteOK(format, rows)
		},
	}
}
