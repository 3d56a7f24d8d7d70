package config

import (
	"os"
	"path/filepath"

	"github.com/zx06/tokey/internal/errors"
)

// DefaultRefreshMargin 是 expires_at 判断的默认安全边际（秒）。
const DefaultRefreshMargin = 300

// Resolve 实现 format/data_dir 合并：CLI > ENV > Config > 默认值。
func Resolve(opts Options) (Resolved, *errors.TError) {
	if opts.HomeDir == "" {
		if hd, err := os.UserHomeDir(); err == nil {
			opts.HomeDir = hd
		}
	}

	cfg, cfgPath, te := LoadConfig(opts)
	if te != nil {
		return Resolved{}, te
	}

	// format：--format > TOKEY_FORMAT > config.format > auto
	format := "auto"
	if cfg.Format != "" {
		format = cfg.Format
	}
	if opts.EnvFormat != "" {
		format = opts.EnvFormat
	}
	if opts.CLIFormatSet {
		format = opts.CLIFormat
	}

	// data_dir：--data-dir > TOKEY_DATA_DIR > config.data_dir > $HOME/.config/tokey
	dataDir := ""
	if opts.HomeDir != "" {
		dataDir = filepath.Join(opts.HomeDir, ".config", "tokey")
	}
	if cfg.DataDir != "" {
		dataDir = cfg.DataDir
	}
	if opts.EnvDataDir != "" {
		dataDir = opts.EnvDataDir
	}
	if opts.CLIDataDirSet {
		dataDir = opts.CLIDataDir
	}
	if dataDir == "" {
		return Resolved{}, errors.New(errors.CodeCfgInvalid, "data dir could not be determined", nil)
	}

	if cfg.SecretBackend == "" {
		cfg.SecretBackend = "file"
	}
	if cfg.SecretBackend != "file" && cfg.SecretBackend != "keyring" {
		return Resolved{}, errors.New(errors.CodeCfgInvalid, "invalid secret_backend", map[string]any{"secret_backend": cfg.SecretBackend})
	}
	if cfg.RefreshMarginSeconds <= 0 {
		cfg.RefreshMarginSeconds = DefaultRefreshMargin
	}

	return Resolved{ConfigPath: cfgPath, Format: format, DataDir: dataDir, File: cfg}, nil
}
