package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/zx06/tokey/internal/errors"
	"github.com/zx06/tokey/internal/output"
)

// GetFlags holds the flags for the get command
type GetFlags struct {
	Field string
}

// NewGetCommand creates the get command
func NewGetCommand(w *output.Writer) *cobra.Command {
	flags := &GetFlags{}

	cmd := &cobra.Command{
		Use:   "get <provider> [account]",
		Short: "Print credentials for an account (auto-refreshes stale credentials)",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGet(cmd, args, flags, w)
		},
	}

	cmd.Flags().StringVar(&flags.Field, "field", "", "Print a single credential field instead of the full set")

	return cmd
}

func runGet(cmd *cobra.Command, args []string, flags *GetFlags, w *output.Writer) error {
	providerName := args[0]
	label := ""
	if len(args) == 2 {
		label = args[1]
	}

	a, te := buildApp()
	if te != nil {
		return te
	}

	res, te := a.Get(context.Background(), providerName, label)
	if te != nil {
		return te
	}

	// 凭据走 stdout；过期降级的告警随后走 stderr
	if flags.Field != "" {
		value, ok := res.Fields[flags.Field]
		if !ok {
			return errors.New(errors.CodeCfgInvalid, "credential field does not exist",
				map[string]any{"field": flags.Field})
		}
		if err := w.WriteField(value); err != nil {
			return err
		}
	} else {
		if err := w.WriteCredential(res.Fields); err != nil {
			return err
		}
	}

	if res.Warning != nil {
		return res.Warning
	}
	return nil
}
