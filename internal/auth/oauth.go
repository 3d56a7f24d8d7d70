package auth

import (
	"context"
	stderrors "errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/cli/browser"
	"golang.org/x/oauth2"

	"github.com/zx06/tokey/internal/errors"
)

// FlowState 是授权码流程的状态机状态。
type FlowState int

const (
	StateIdle FlowState = iota
	StateAwaitingConsent
	StateAwaitingCallback
	StateExchangingCode
	StateComplete
	StateFailed
)

// DefaultCallbackAddr 是回调监听地址；redirect URI 的端口必须与之一致。
const DefaultCallbackAddr = "127.0.0.1:8484"

// DefaultTokenTTL 在 token endpoint 未返回 expires_in 时兜底。
const DefaultTokenTTL = time.Hour

// FlowConfig 配置一次授权码流程。
type FlowConfig struct {
	OAuth oauth2.Config

	// ExtraAuthParams 附加到授权 URL（如 access_type=offline）。
	ExtraAuthParams map[string]string

	// OpenURL 打开用户默认浏览器；fire-and-forget。
	// 为 nil 时用 cli/browser；测试可注入。
	OpenURL func(url string) error

	// Addr 是回调监听地址，默认 DefaultCallbackAddr。
	Addr string

	// Timeout 是等待回调的总超时，超时后监听端口必须释放。
	Timeout time.Duration
}

// TokenResult 是流程完成后的 token 集合。
type TokenResult struct {
	AccessToken  string
	RefreshToken string
	// ExpiresAt = now + 服务端返回的 TTL（缺省时 DefaultTokenTTL）。
	ExpiresAt int64
}

// Flow 驱动一次 Idle → … → Complete|Failed 的授权码交互。
type Flow struct {
	cfg   FlowConfig
	state FlowState
}

func NewFlow(cfg FlowConfig) *Flow {
	if cfg.Addr == "" {
		cfg.Addr = DefaultCallbackAddr
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Minute
	}
	if cfg.OpenURL == nil {
		cfg.OpenURL = browser.OpenURL
	}
	return &Flow{cfg: cfg, state: StateIdle}
}

func (f *Flow) State() FlowState { return f.state }

type callbackResult struct {
	code string
	te   *errors.TError
}

// Run 执行完整流程并返回 token。任何一步失败都不会留下部分凭据，
// 回调端口保证释放。
func (f *Flow) Run(ctx context.Context) (*TokenResult, *errors.TError) {
	res, te := f.run(ctx)
	if te != nil {
		f.state = StateFailed
		return nil, te
	}
	f.state = StateComplete
	return res, nil
}

func (f *Flow) run(ctx context.Context) (*TokenResult, *errors.TError) {
	pkce, te := GeneratePKCE()
	if te != nil {
		return nil, te
	}
	state, te := randomState()
	if te != nil {
		return nil, te
	}

	// 先绑定端口再打开浏览器，避免回调先于监听到达。
	ln, err := net.Listen("tcp", f.cfg.Addr)
	if err != nil {
		return nil, errors.Wrap(errors.CodeInternal, "failed to bind callback listener", map[string]any{"addr": f.cfg.Addr}, err)
	}

	authOpts := []oauth2.AuthCodeOption{
		oauth2.SetAuthURLParam("code_challenge", pkce.Challenge),
		oauth2.SetAuthURLParam("code_challenge_method", "S256"),
	}
	for k, v := range f.cfg.ExtraAuthParams {
		authOpts = append(authOpts, oauth2.SetAuthURLParam(k, v))
	}
	authURL := f.cfg.OAuth.AuthCodeURL(state, authOpts...)

	f.state = StateAwaitingConsent
	if err := f.cfg.OpenURL(authURL); err != nil {
		_ = ln.Close()
		return nil, errors.Wrap(errors.CodeInternal, "failed to open browser", nil, err)
	}

	f.state = StateAwaitingCallback
	code, te := f.awaitCallback(ctx, ln, state)
	if te != nil {
		return nil, te
	}

	f.state = StateExchangingCode
	exchangeCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	tok, err := f.cfg.OAuth.Exchange(exchangeCtx, code,
		oauth2.SetAuthURLParam("code_verifier", pkce.Verifier))
	if err != nil {
		return nil, errors.Wrap(errors.CodeTokenExchangeFailed, "token exchange failed", nil, err)
	}

	return tokenResult(tok), nil
}

// awaitCallback 在 ln 上接收一次回调；超时或取消时关闭监听并返回类型化错误。
func (f *Flow) awaitCallback(ctx context.Context, ln net.Listener, wantState string) (string, *errors.TError) {
	ctx, cancel := context.WithTimeout(ctx, f.cfg.Timeout)
	defer cancel()

	results := make(chan callbackResult, 1)
	mux := http.NewServeMux()
	mux.HandleFunc("/callback", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		switch {
		case q.Get("state") != wantState:
			// CSRF：致命，绝不降级为警告，也绝不进入 code 交换
			http.Error(w, "State mismatch. Please try again.", http.StatusBadRequest)
			results <- callbackResult{te: errors.New(errors.CodeCsrfMismatch, "oauth state mismatch", nil)}
		case q.Get("error") != "":
			http.Error(w, "Authorization denied.", http.StatusBadRequest)
			results <- callbackResult{te: errors.New(errors.CodeTokenExchangeFailed, "authorization denied", map[string]any{
				"error":             q.Get("error"),
				"error_description": q.Get("error_description"),
			})}
		case q.Get("code") == "":
			http.Error(w, "Missing authorization code.", http.StatusBadRequest)
			results <- callbackResult{te: errors.New(errors.CodeTokenExchangeFailed, "callback missing authorization code", nil)}
		default:
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			_, _ = fmt.Fprint(w, "<html><body><h1>Authentication successful!</h1><p>You can close this window and return to your terminal.</p></body></html>")
			results <- callbackResult{code: q.Get("code")}
		}
	})

	srv := &http.Server{Handler: mux}
	go func() { _ = srv.Serve(ln) }()
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer shutdownCancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	select {
	case res := <-results:
		if res.te != nil {
			return "", res.te
		}
		return res.code, nil
	case <-ctx.Done():
		return "", errors.New(errors.CodeLoginTimeout, "timed out waiting for oauth callback", map[string]any{
			"timeout": f.cfg.Timeout.String(),
		})
	}
}

func tokenResult(tok *oauth2.Token) *TokenResult {
	expiresAt := tok.Expiry
	if expiresAt.IsZero() {
		expiresAt = time.Now().Add(DefaultTokenTTL)
	}
	return &TokenResult{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		ExpiresAt:    expiresAt.Unix(),
	}
}

// Refresh 仅用 refresh token 换取新 access token，绝不打开浏览器。
// 授权被吊销（4xx）→ TOKEY_REFRESH_DENIED；调用方不得据此删除旧凭据。
func Refresh(ctx context.Context, cfg oauth2.Config, refreshToken string) (*TokenResult, *errors.TError) {
	if refreshToken == "" {
		return nil, errors.New(errors.CodeRefreshDenied, "no refresh token stored", nil)
	}
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	src := cfg.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken})
	tok, err := src.Token()
	if err != nil {
		var re *oauth2.RetrieveError
		if stderrors.As(err, &re) && re.Response != nil && re.Response.StatusCode >= 400 && re.Response.StatusCode < 500 {
			return nil, errors.Wrap(errors.CodeRefreshDenied, "token refresh denied", map[string]any{
				"status": re.Response.StatusCode,
			}, err)
		}
		return nil, errors.Wrap(errors.CodeRefreshFailed, "token refresh failed", nil, err)
	}

	res := tokenResult(tok)
	// 服务端没发新 refresh token 时沿用旧的
	if res.RefreshToken == "" {
		res.RefreshToken = refreshToken
	}
	return res, nil
}
