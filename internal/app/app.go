// Package app 把 store / provider / config 组装成各命令的业务操作。
// cmd 层只做参数解析和输出，不碰业务规则。
package app

import (
	"log/slog"
	"time"

	"github.com/zx06/tokey/internal/config"
	"github.com/zx06/tokey/internal/errors"
	"github.com/zx06/tokey/internal/output"
	"github.com/zx06/tokey/internal/provider"
	"github.com/zx06/tokey/internal/spec"
	"github.com/zx06/tokey/internal/store"
)

type App struct {
	Version string
	Commit  string
	Date    string

	Store    *store.Store
	Resolved config.Resolved
	Log      *slog.Logger

	// BaseDeps 持有 provider 的可注入协作方（extractor、OpenURL、
	// HTTP client 等）；per-provider 覆盖在 lookup 时合并。
	BaseDeps provider.Deps

	// Lookup 为 nil 时用 provider.Lookup；测试可注入假 provider。
	Lookup func(name string, deps provider.Deps) (provider.Provider, *errors.TError)
}

func New(version, commit, date string) App {
	return App{Version: version, Commit: commit, Date: date}
}

// provider 合并配置覆盖后返回 provider 实例。
func (a *App) provider(name string) (provider.Provider, *errors.TError) {
	deps := a.BaseDeps
	deps.Overrides = a.Resolved.File.Providers[name]
	if deps.ProfileDir == nil && a.Store != nil {
		deps.ProfileDir = a.Store.ProfileDir
	}
	if deps.Now == nil && a.Store != nil {
		deps.Now = a.Store.Now
	}
	if a.Lookup != nil {
		return a.Lookup(name, deps)
	}
	return provider.Lookup(name, deps)
}

// refreshMargin 是过期判断的安全边际。
func (a *App) refreshMargin() time.Duration {
	secs := a.Resolved.File.RefreshMarginSeconds
	if secs <= 0 {
		secs = config.DefaultRefreshMargin
	}
	return time.Duration(secs) * time.Second
}

func (a *App) isStale(p provider.Provider, cred *store.StoredCredential) bool {
	return store.IsStale(cred, p.MaxCredentialAge(), a.refreshMargin(), a.Store.Now())
}

func (a *App) logger() *slog.Logger {
	if a.Log != nil {
		return a.Log
	}
	return slog.New(slog.DiscardHandler)
}

func (a App) BuildSpec() spec.Spec {
	globalFlags := []spec.FlagSpec{
		{Name: "config", Default: "", Description: "Config file path (YAML); default: ./tokey.yaml or $HOME/.config/tokey/tokey.yaml"},
		{Name: "data-dir", Env: "TOKEY_DATA_DIR", Default: "", Description: "Data directory for accounts, credentials and browser profiles"},
		{Name: "format", Shorthand: "f", Env: "TOKEY_FORMAT", Default: "auto", Description: "Output format: json|yaml|table|auto"},
	}
	providerArg := "Provider name: google|slack"
	providers := []spec.ProviderSpec{}
	for _, name := range provider.Names() {
		p, te := provider.Lookup(name, provider.Deps{})
		if te != nil {
			continue
		}
		providers = append(providers, spec.ProviderSpec{
			Name:             p.Name(),
			DisplayName:      p.DisplayName(),
			CredentialFields: p.CredentialFields(),
		})
	}
	return spec.Spec{
		SchemaVersion: output.SchemaVersion,
		Providers:     providers,
		Commands: []spec.CommandSpec{
			{
				Name:        "spec",
				Description: "Export tool spec for AI/agents",
				Flags:       globalFlags,
			},
			{
				Name:        "version",
				Description: "Print version information",
				Flags:       globalFlags,
			},
			{
				Name:        "list",
				Description: "List stored accounts",
				Flags:       globalFlags,
			},
			{
				Name:        "get",
				Description: "Print credentials for an account (auto-refreshes stale credentials)",
				Flags: append(globalFlags,
					spec.FlagSpec{Name: "field", Default: "", Description: "Print a single credential field instead of the full set"},
				),
			},
			{
				Name:        "add",
				Description: "Authenticate and store a new account; " + providerArg,
				Flags: append(globalFlags,
					spec.FlagSpec{Name: "label", Default: "default", Description: "Account label"},
					spec.FlagSpec{Name: "new", Default: "false", Description: "Fail instead of overwriting an existing label"},
				),
			},
			{
				Name:        "refresh",
				Description: "Refresh credentials for one account or all stale accounts",
				Flags: append(globalFlags,
					spec.FlagSpec{Name: "all", Default: "false", Description: "Refresh every stale account"},
				),
			},
			{
				Name:        "remove",
				Description: "Remove an account and its stored credentials",
				Flags:       globalFlags,
			},
			{
				Name:        "status",
				Description: "Show freshness and refresh history for stored accounts",
				Flags:       globalFlags,
			},
			{
				Name:        "default",
				Description: "Set the default account for a provider",
				Flags:       globalFlags,
			},
			{
				Name:        "validate",
				Description: "Check a stored credential against the remote service",
				Flags:       globalFlags,
			},
			{
				Name:        "daemon",
				Description: "Install or inspect the background refresh agent (macOS launchd)",
				Flags: append(globalFlags,
					spec.FlagSpec{Name: "interval", Default: "1", Description: "Refresh interval in hours"},
				),
			},
		},
		ErrorCodes: errors.AllCodes(),
	}
}

type VersionInfo struct {
	Version string `json:"version" yaml:"version"`
	Commit  string `json:"commit" yaml:"commit"`
	Date    string `json:"date" yaml:"date"`
}

func (a App) VersionInfo() VersionInfo {
	return VersionInfo{Version: a.Version, Commit: a.Commit, Date: a.Date}
}
