package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/zx06/tokey/internal/config"
	"github.com/zx06/tokey/internal/errors"
)

// Build-time variables (set by goreleaser)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// Config holds the resolved configuration
type Config struct {
	FormatStr  string
	ConfigStr  string
	DataDirStr string
	Resolved   config.Resolved
}

// GlobalConfig holds the global configuration state
var GlobalConfig = &Config{}

// NewRootCommand creates the root command
func NewRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "tokey",
		Short:         "Issue, store and refresh short-lived web session credentials",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// CLI > ENV > Config
			formatSet := cmd.Flags().Changed("format")
			dataDirSet := cmd.Flags().Changed("data-dir")
			configSet := cmd.Flags().Changed("config")
			if configSet && GlobalConfig.ConfigStr == "" {
				return errors.New(errors.CodeCfgInvalid, "config path is empty", nil)
			}

			r, te := config.Resolve(config.Options{
				ConfigPath:    GlobalConfig.ConfigStr,
				CLIFormat:     GlobalConfig.FormatStr,
				CLIFormatSet:  formatSet,
				CLIDataDir:    GlobalConfig.DataDirStr,
				CLIDataDirSet: dataDirSet,
				EnvFormat:     os.Getenv("TOKEY_FORMAT"),
				EnvDataDir:    os.Getenv("TOKEY_DATA_DIR"),
				WorkDir:       "",
				HomeDir:       "",
			})
			if te != nil {
				return te
			}
			GlobalConfig.Resolved = r
			GlobalConfig.FormatStr = r.Format
			GlobalConfig.DataDirStr = r.DataDir
			return nil
		},
	}

	root.PersistentFlags().StringVar(&GlobalConfig.ConfigStr, "config", "", "Config file path (YAML); default: ./tokey.yaml or $HOME/.config/tokey/tokey.yaml")
	root.PersistentFlags().StringVar(&GlobalConfig.DataDirStr, "data-dir", "", "Data directory for accounts, credentials and browser profiles")
	root.PersistentFlags().StringVarP(&GlobalConfig.FormatStr, "format", "f", "auto", "Output format: json|yaml|table|auto")

	return root
}
