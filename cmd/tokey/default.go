package main

import (
	"github.com/spf13/cobra"

	"github.com/zx06/tokey/internal/output"
)

// NewDefaultCommand creates the default command
func NewDefaultCommand(w *output.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "default <provider> <account>",
		Short: "Set the default account for a provider",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := parseOutputFormat(GlobalConfig.FormatStr)
			if err != nil {
				return err
			}

			a, te := buildApp()
			if te != nil {
				return te
			}
			res, te := a.SetDefault(args[0], args[1])
			if te != nil {
				return te
			}
			return w.WriteOK(format, res)
		},
	}
}
