package app

import (
	"context"
	"sort"

	"github.com/zx06/tokey/internal/errors"
	"github.com/zx06/tokey/internal/provider"
	"github.com/zx06/tokey/internal/store"
)

// refreshOne 执行一次静默刷新并落盘。失败时记一笔失败计数，
// 旧凭据原样保留。
func (a *App) refreshOne(ctx context.Context, p provider.Provider, providerName, label string, cred *store.StoredCredential) (*store.StoredCredential, *errors.TError) {
	fresh, te := p.Refresh(ctx, label, cred)
	if te != nil {
		if rte := a.Store.RecordRefreshFailure(providerName, label); rte != nil {
			a.logger().Warn("failed to record refresh failure", "provider", providerName, "label", label, "error", rte)
		}
		return nil, te
	}
	fresh.RefreshFailures = 0
	if te := a.Store.UpdateCredential(providerName, label, *fresh); te != nil {
		return nil, te
	}
	a.logger().Info("credential refreshed", "provider", providerName, "label", label)
	return fresh, nil
}

// RefreshOutcome 是单个账号的刷新结果。
type RefreshOutcome struct {
	Provider string         `json:"provider" yaml:"provider"`
	Label    string         `json:"label" yaml:"label"`
	OK       bool           `json:"ok" yaml:"ok"`
	Skipped  bool           `json:"skipped,omitempty" yaml:"skipped,omitempty"`
	Error    *errors.TError `json:"error,omitempty" yaml:"error,omitempty"`
}

// Refresh 显式刷新单个账号，无条件执行（不做过期预判）。
func (a *App) Refresh(ctx context.Context, providerName, label string) (*RefreshOutcome, *errors.TError) {
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
	if _, te := a.refreshOne(ctx, p, providerName, label, cred); te != nil {
		return nil, te
	}
	return &RefreshOutcome{Provider: providerName, Label: label, OK: true}, nil
}

// RefreshReport 是批量刷新的汇总。
type RefreshReport struct {
	Outcomes []RefreshOutcome `json:"outcomes" yaml:"outcomes"`
	Failed   int              `json:"failed" yaml:"failed"`
}

// RefreshAll 刷新全部过期账号，逐个推进、互不牵连：
// 单个失败记入 outcome，剩余账号照常处理。有失败时额外返回
// TOKEY_REFRESH_FAILED，调用方以部分成功退出。
func (a *App) RefreshAll(ctx context.Context, providerFilter string) (*RefreshReport, *errors.TError) {
	cfg, creds, te := a.Store.Load()
	if te != nil {
		return nil, te
	}

	type target struct {
		provider string
		label    string
	}
	targets := []target{}
	for providerName, pc := range cfg.Providers {
		if providerFilter != "" && providerName != providerFilter {
			continue
		}
		for label := range pc.Accounts {
			targets = append(targets, target{providerName, label})
		}
	}
	sort.Slice(targets, func(i, j int) bool {
		if targets[i].provider != targets[j].provider {
			return targets[i].provider < targets[j].provider
		}
		return targets[i].label < targets[j].label
	})

	report := &RefreshReport{Outcomes: []RefreshOutcome{}}
	for _, t := range targets {
		p, te := a.provider(t.provider)
		if te != nil {
			return nil, te
		}
		cred := creds.Credentials[store.Key(t.provider, t.label)]
		if !a.isStale(p, cred) {
			report.Outcomes = append(report.Outcomes, RefreshOutcome{
				Provider: t.provider, Label: t.label, OK: true, Skipped: true,
			})
			continue
		}
		if _, te := a.refreshOne(ctx, p, t.provider, t.label, cred.Clone()); te != nil {
			a.logger().Warn("refresh failed", "provider", t.provider, "label", t.label, "code", te.Code)
			report.Failed++
			report.Outcomes = append(report.Outcomes, RefreshOutcome{
				Provider: t.provider, Label: t.label, Error: te,
			})
			continue
		}
		report.Outcomes = append(report.Outcomes, RefreshOutcome{
			Provider: t.provider, Label: t.label, OK: true,
		})
	}

	if report.Failed > 0 {
		return report, errors.New(errors.CodeRefreshFailed, "some accounts failed to refresh",
			map[string]any{"failed": report.Failed, "total": len(report.Outcomes)})
	}
	return report, nil
}
