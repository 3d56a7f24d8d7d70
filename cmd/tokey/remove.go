package main

import (
	"github.com/spf13/cobra"

	"github.com/zx06/tokey/internal/output"
)

// NewRemoveCommand creates the remove command
func NewRemoveCommand(w *output.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <provider> <account>",
		Short: "Remove an account and its stored credentials",
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
			res, te := a.Remove(args[0], args[1])
			if te != nil {
				return te
			}
			return w.WriteOK(format, res)
		},
	}
}
