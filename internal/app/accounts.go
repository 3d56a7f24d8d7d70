package app

import (
	"context"
	"os"
	"sort"

	"github.com/zx06/tokey/internal/errors"
	"github.com/zx06/tokey/internal/store"
)

// AccountRow 是 list 命令的一行。
type AccountRow struct {
	Provider    string `json:"provider" yaml:"provider"`
	Label       string `json:"label" yaml:"label"`
	Default     bool   `json:"default" yaml:"default"`
	DisplayName string `json:"display_name" yaml:"display_name"`
	Status      string `json:"status" yaml:"status"`
	CreatedAt   int64  `json:"created_at" yaml:"created_at"`
}

// List 返回已存账号（按 provider、label 排序）。
// providerFilter 非空时只返回该 provider 的账号。
func (a *App) List(providerFilter string) ([]AccountRow, *errors.TError) {
	cfg, creds, te := a.Store.Load()
	if te != nil {
		return nil, te
	}

	rows := []AccountRow{}
	for providerName, pc := range cfg.Providers {
		if providerFilter != "" && providerName != providerFilter {
			continue
		}
		p, te := a.provider(providerName)
		if te != nil {
			return nil, te
		}
		for label, acct := range pc.Accounts {
			cred := creds.Credentials[store.Key(providerName, label)]
			status := "fresh"
			if a.isStale(p, cred) {
				status = "stale"
			}
			rows = append(rows, AccountRow{
				Provider:    providerName,
				Label:       label,
				Default:     pc.DefaultAccount == label,
				DisplayName: acct.DisplayName,
				Status:      status,
				CreatedAt:   acct.CreatedAt,
			})
		}
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Provider != rows[j].Provider {
			return rows[i].Provider < rows[j].Provider
		}
		return rows[i].Label < rows[j].Label
	})
	return rows, nil
}

// GetResult 是 get 的结果。Warning 非 nil 表示返回的是过期凭据
// （隐式刷新失败），调用方应照常输出字段、告警走 stderr、进程以
// 部分成功退出。
type GetResult struct {
	Provider string
	Label    string
	Fields   map[string]string
	Stale    bool
	Warning  *errors.TError
}

// Get 取指定账号的凭据；过期时先尝试一次静默刷新，
// 刷新失败降级返回旧凭据而不是报死。
func (a *App) Get(ctx context.Context, providerName, label string) (*GetResult, *errors.TError) {
	p, te := a.provider(providerName)
	if te != nil {
		return nil, te
	}
	label, te = a.Store.ResolveLabel(providerName, label)
	if te != nil {
		return nil, te
	}
	cred, te := a.Store.GetCredential(providerName, label)
	if te != nil {
		return nil, te
	}

	if !a.isStale(p, cred) {
		return &GetResult{Provider: providerName, Label: label, Fields: cred.Fields}, nil
	}

	a.logger().Info("credential is stale, refreshing", "provider", providerName, "label", label)
	fresh, refreshErr := a.refreshOne(ctx, p, providerName, label, cred)
	if refreshErr == nil {
		return &GetResult{Provider: providerName, Label: label, Fields: fresh.Fields}, nil
	}

	a.logger().Warn("refresh failed, returning stale credential",
		"provider", providerName, "label", label, "code", refreshErr.Code)
	warning := errors.Wrap(errors.CodeRefreshFailed, "credential is stale and refresh failed",
		map[string]any{"provider": providerName, "label": label}, refreshErr)
	return &GetResult{
		Provider: providerName,
		Label:    label,
		Fields:   cred.Fields,
		Stale:    true,
		Warning:  warning,
	}, nil
}

// AddResult 是 add 的结果。
type AddResult struct {
	Provider    string `json:"provider" yaml:"provider"`
	Label       string `json:"label" yaml:"label"`
	DisplayName string `json:"display_name" yaml:"display_name"`
	ProviderID  string `json:"provider_id,omitempty" yaml:"provider_id,omitempty"`
	UserID      string `json:"user_id,omitempty" yaml:"user_id,omitempty"`
	Default     bool   `json:"default" yaml:"default"`
}

// Add 执行交互式认证并落盘。createOnly 时已有同名 label 直接报错，
// 否则覆盖（重新登录同一账号的正常路径）。
func (a *App) Add(ctx context.Context, providerName, label string, createOnly bool) (*AddResult, *errors.TError) {
	p, te := a.provider(providerName)
	if te != nil {
		return nil, te
	}
	if label == "" {
		label = "default"
	}
	// createOnly 先预检，避免用户走完整个浏览器登录后才报重名
	if createOnly {
		exists, te := a.Store.HasAccount(providerName, label)
		if te != nil {
			return nil, te
		}
		if exists {
			return nil, errors.New(errors.CodeDuplicateLabel, "account label already exists", map[string]any{
				"provider": providerName, "label": label,
			})
		}
	}

	a.logger().Info("starting authentication", "provider", providerName, "label", label)
	res, te := p.Authenticate(ctx, label)
	if te != nil {
		return nil, te
	}
	if te := a.Store.SaveAccount(providerName, *res, createOnly); te != nil {
		return nil, te
	}

	cfg, _, te := a.Store.Load()
	if te != nil {
		return nil, te
	}
	isDefault := cfg.Providers[providerName] != nil && cfg.Providers[providerName].DefaultAccount == label

	a.logger().Info("account stored", "provider", providerName, "label", label, "display_name", res.DisplayName)
	return &AddResult{
		Provider:    providerName,
		Label:       label,
		DisplayName: res.DisplayName,
		ProviderID:  res.ProviderID,
		UserID:      res.UserID,
		Default:     isDefault,
	}, nil
}

// RemoveResult 是 remove 的结果。
type RemoveResult struct {
	Provider   string `json:"provider" yaml:"provider"`
	Label      string `json:"label" yaml:"label"`
	NewDefault string `json:"new_default,omitempty" yaml:"new_default,omitempty"`
}

// Remove 删除账号的元数据、密文和浏览器 profile。
func (a *App) Remove(providerName, label string) (*RemoveResult, *errors.TError) {
	if _, te := a.provider(providerName); te != nil {
		return nil, te
	}
	profileDir, te := a.Store.Remove(providerName, label)
	if te != nil {
		return nil, te
	}
	if profileDir != "" {
		if err := os.RemoveAll(profileDir); err != nil {
			a.logger().Warn("failed to remove browser profile", "dir", profileDir, "error", err)
		}
	}

	cfg, _, te := a.Store.Load()
	if te != nil {
		return nil, te
	}
	newDefault := ""
	if pc := cfg.Providers[providerName]; pc != nil {
		newDefault = pc.DefaultAccount
	}
	return &RemoveResult{Provider: providerName, Label: label, NewDefault: newDefault}, nil
}

// DefaultResult 是 default 的结果。
type DefaultResult struct {
	Provider string `json:"provider" yaml:"provider"`
	Label    string `json:"label" yaml:"label"`
}

func (a *App) SetDefault(providerName, label string) (*DefaultResult, *errors.TError) {
	if _, te := a.provider(providerName); te != nil {
		return nil, te
	}
	if te := a.Store.SetDefault(providerName, label); te != nil {
		return nil, te
	}
	return &DefaultResult{Provider: providerName, Label: label}, nil
}

// StatusRow 是 status 的一行：新鲜度加刷新历史。
type StatusRow struct {
	Provider        string `json:"provider" yaml:"provider"`
	Label           string `json:"label" yaml:"label"`
	Default         bool   `json:"default" yaml:"default"`
	DisplayName     string `json:"display_name" yaml:"display_name"`
	Status          string `json:"status" yaml:"status"`
	CreatedAt       int64  `json:"created_at" yaml:"created_at"`
	ExpiresAt       *int64 `json:"expires_at,omitempty" yaml:"expires_at,omitempty"`
	LastValidated   *int64 `json:"last_validated,omitempty" yaml:"last_validated,omitempty"`
	RefreshFailures int    `json:"refresh_failures" yaml:"refresh_failures"`
}

// Status 返回账号的新鲜度明细；label 非空时限定单个账号。
func (a *App) Status(providerFilter, label string) ([]StatusRow, *errors.TError) {
	cfg, creds, te := a.Store.Load()
	if te != nil {
		return nil, te
	}

	rows := []StatusRow{}
	for providerName, pc := range cfg.Providers {
		if providerFilter != "" && providerName != providerFilter {
			continue
		}
		p, te := a.provider(providerName)
		if te != nil {
			return nil, te
		}
		for acctLabel, acct := range pc.Accounts {
			if label != "" && acctLabel != label {
				continue
			}
			cred := creds.Credentials[store.Key(providerName, acctLabel)]
			row := StatusRow{
				Provider:    providerName,
				Label:       acctLabel,
				Default:     pc.DefaultAccount == acctLabel,
				DisplayName: acct.DisplayName,
				Status:      "fresh",
				CreatedAt:   acct.CreatedAt,
			}
			if a.isStale(p, cred) {
				row.Status = "stale"
			}
			if cred != nil {
				row.ExpiresAt = cred.ExpiresAt
				row.LastValidated = cred.LastValidated
				row.RefreshFailures = cred.RefreshFailures
			}
			rows = append(rows, row)
		}
	}
	if label != "" && len(rows) == 0 {
		return nil, errors.New(errors.CodeAccountNotFound, "account does not exist",
			map[string]any{"provider": providerFilter, "label": label})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Provider != rows[j].Provider {
			return rows[i].Provider < rows[j].Provider
		}
		return rows[i].Label < rows[j].Label
	})
	return rows, nil
}

// ValidateResult 是 validate 的结果。
type ValidateResult struct {
	Provider    string `json:"provider" yaml:"provider"`
	Label       string `json:"label" yaml:"label"`
	Valid       bool   `json:"valid" yaml:"valid"`
	DisplayName string `json:"display_name,omitempty" yaml:"display_name,omitempty"`
	ProviderID  string `json:"provider_id,omitempty" yaml:"provider_id,omitempty"`
}

// Validate 打远端确认凭据仍有效，成功后记录 last_validated。
func (a *App) Validate(ctx context.Context, providerName, label string) (*ValidateResult, *errors.TError) {
	p, te := a.provider(providerName)
	if te != nil {
		return nil, te
	}
	label, te = a.Store.ResolveLabel(providerName, label)
	if te != nil {
		return nil, te
	}
	cred, te := a.Store.GetCredential(providerName, label)
	if te != nil {
		return nil, te
	}

	id, te := p.Validate(ctx, cred)
	if te != nil {
		return nil, te
	}
	if te := a.Store.MarkValidated(providerName, label); te != nil {
		return nil, te
	}
	return &ValidateResult{
		Provider:    providerName,
		Label:       label,
		Valid:       true,
		DisplayName: id.DisplayName,
		ProviderID:  id.ProviderID,
	}, nil
}
