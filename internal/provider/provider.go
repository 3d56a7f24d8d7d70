// Package provider 封装各凭据源（google / slack）的认证、刷新与校验。
// provider 集合是封闭的：新增 provider 必须改 Lookup，而不是注册表。
package provider

import (
	"context"
	"net/http"
	"time"

	"github.com/zx06/tokey/internal/config"
	"github.com/zx06/tokey/internal/errors"
	"github.com/zx06/tokey/internal/extract"
	"github.com/zx06/tokey/internal/store"
)

// Identity 是远端确认的账号身份，authenticate / validate 返回。
type Identity struct {
	ProviderID  string
	DisplayName string
	UserID      string
}

// Provider 是单个凭据源的契约。
//
// Refresh 绝不触发交互：拿不到新凭据就返回类型化错误，
// 由调用方决定是否回退旧凭据。
type Provider interface {
	Name() string
	DisplayName() string

	// CredentialFields 是该 provider 凭据的字段名（固定顺序）。
	CredentialFields() []string

	// MaxCredentialAge 为 0 表示凭据按 expires_at 判断过期。
	MaxCredentialAge() time.Duration

	Authenticate(ctx context.Context, label string) (*store.AuthResult, *errors.TError)
	Refresh(ctx context.Context, label string, cred *store.StoredCredential) (*store.StoredCredential, *errors.TError)
	Validate(ctx context.Context, cred *store.StoredCredential) (*Identity, *errors.TError)
}

// Deps 是 provider 的运行时协作方，全部可注入便于测试。
type Deps struct {
	// Overrides 来自配置文件的 per-provider 覆盖。
	Overrides config.Provider

	// Extractor 执行浏览器会话提取（slack）。
	Extractor extract.Service

	// ProfileDir 返回账号独占的浏览器 profile 目录。
	ProfileDir func(provider, label string) string

	// HTTPClient 为 nil 时用 http.DefaultClient。
	HTTPClient *http.Client

	// OpenURL 打开用户默认浏览器（google 授权页）。
	OpenURL func(url string) error

	// CallbackAddr 覆盖 OAuth 回调监听地址（测试用）。
	CallbackAddr string

	// Now 为 nil 时用 time.Now。
	Now func() int64
}

func (d Deps) httpClient() *http.Client {
	if d.HTTPClient != nil {
		return d.HTTPClient
	}
	return http.DefaultClient
}

func (d Deps) now() int64 {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now().Unix()
}

// Names 返回全部 provider 名称（字典序）。
func Names() []string {
	return []string{"google", "slack"}
}

// Lookup 按名称返回 provider。集合封闭，未知名称直接报错。
func Lookup(name string, deps Deps) (Provider, *errors.TError) {
	switch name {
	case "google":
		return newGoogle(deps), nil
	case "slack":
		return newSlack(deps), nil
	default:
		return nil, errors.New(errors.CodeProviderUnknown, "unknown provider",
			map[string]any{"provider": name, "known": Names()})
	}
}
