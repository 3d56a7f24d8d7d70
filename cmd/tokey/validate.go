package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/zx06/tokey/internal/output"
)

// NewValidateCommand creates the validate command
func NewValidateCommand(w *output.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <provider> [account]",
		Short: "Check a stored credential against the remote service",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := parseOutputFormat(GlobalConfig.FormatStr)
			if err != nil {
				return err
			}

			label := ""
			if len(args) == 2 {
				label = args[1]
			}

			a, te := buildApp()
			if te != nil {
				return te
			}
			res, te := a.Validate(context.Background(), args[0], label)
			if te != nil {
				return te
			}
			return w.WriteOK(format, res)
		},
	}
}
