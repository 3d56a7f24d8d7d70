package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/zx06/tokey/internal/output"
)

// RefreshFlags holds the flags for the refresh command
type RefreshFlags struct {
	All bool
}

// NewRefreshCommand creates the refresh command
func NewRefreshCommand(w *output.Writer) *cobra.Command {
	flags := &RefreshFlags{}

	cmd := &cobra.Command{
		Use:   "refresh [provider [account]]",
		Short: "Refresh credentials for one account or all stale accounts",
		Args:  cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRefresh(cmd, args, flags, w)
		},
	}

	cmd.Flags().BoolVar(&flags.All, "all", false, "Refresh every stale account")

	return cmd
}

func runRefresh(cmd *cobra.Command, args []string, flags *RefreshFlags, w *output.Writer) error {
	format, err := parseOutputFormat(GlobalConfig.FormatStr)
	if err != nil {
		return err
	}

	a, te := buildApp()
	if te != nil {
		return te
	}
	ctx := context.Background()

	// 指定了 provider 时单刷（label 省略则取默认账号）；否则批量
	if len(args) >= 1 && !flags.All {
		label := ""
		if len(args) == 2 {
			label = args[1]
		}
		out, te := a.Refresh(ctx, args[0], label)
		if te != nil {
			return te
		}
		return w.WriteOK(format, out)
	}

	// --all 可叠加 provider 过滤（refresh slack --all）
	providerFilter := ""
	if len(args) >= 1 {
		providerFilter = args[0]
	}
	report, te := a.RefreshAll(ctx, providerFilter)
	if report != nil {
		if err := w.WriteOK(format, report); err != nil {
			return err
		}
	}
	// 部分失败：逐账号结果已经输出，这里只决定退出码
	if te != nil {
		return te
	}
	return nil
}
