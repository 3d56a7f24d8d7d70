package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/zx06/tokey/internal/output"
)

// AddFlags holds the flags for the add command
type AddFlags struct {
	Label string
	New   bool
}

// NewAddCommand creates the add command
func NewAddCommand(w *output.Writer) *cobra.Command {
	flags := &AddFlags{}

	cmd := &cobra.Command{
		Use:   "add <provider>",
		Short: "Authenticate and store a new account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := parseOutputFormat(GlobalConfig.FormatStr)
			if err != nil {
				return err
			}

			a, te := buildApp()
			if te != nil {
				return te
			}
			res, te := a.Add(context.Background(), args[0], flags.Label, flags.New)
			if te != nil {
				return te
			}
			return w.WriteOK(format, res)
		},
	}

	cmd.Flags().StringVar(&flags.Label, "label", "", "Account label (default: \"default\")")
	cmd.Flags().BoolVar(&flags.New, "new", false, "Fail instead of overwriting an existing label")

	return cmd
}
