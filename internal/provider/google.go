package provider

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/zx06/tokey/internal/auth"
	"github.com/zx06/tokey/internal/errors"
	"github.com/zx06/tokey/internal/store"
)

const (
	googleName     = "google"
	googleAuthURL  = "https://accounts.google.com/o/oauth2/v2/auth"
	googleTokenURL = "https://oauth2.googleapis.com/token"
	googleUserinfo = "https://www.googleapis.com/oauth2/v2/userinfo"

	// Thunderbird 的公开 client：桌面应用场景下 secret 不是秘密，
	// 配置文件可换成自己的 client。
	googleDefaultClientID     = "406964657835-aq8lmia8j95dhl1a2bvharmfk3t1hgof.apps.googleusercontent.com"
	googleDefaultClientSecret = "kSmqreRr0qwBWJgbf5Y-PjSU"

	scopeGmail    = "https://mail.google.com/"
	scopeCalendar = "https://www.googleapis.com/auth/calendar"
	scopeContacts = "https://www.googleapis.com/auth/contacts"
	scopeUserinfo = "https://www.googleapis.com/auth/userinfo.email"
)

// Google 走授权码 + PKCE，长期凭据是 refresh token。
type Google struct {
	deps Deps

	authURL     string
	tokenURL    string
	userinfoURL string
}

func newGoogle(deps Deps) *Google {
	return &Google{
		deps:        deps,
		authURL:     googleAuthURL,
		tokenURL:    googleTokenURL,
		userinfoURL: googleUserinfo,
	}
}

func (g *Google) Name() string        { return googleName }
func (g *Google) DisplayName() string { return "Google" }

func (g *Google) CredentialFields() []string {
	return []string{"access_token", "refresh_token", "email", "scopes", "expires_at"}
}

// MaxCredentialAge 为 0：google 凭据按 expires_at 判断。
func (g *Google) MaxCredentialAge() time.Duration { return 0 }

func (g *Google) scopes() []string {
	if len(g.deps.Overrides.Scopes) > 0 {
		return g.deps.Overrides.Scopes
	}
	return []string{scopeGmail, scopeCalendar, scopeContacts}
}

func (g *Google) oauthConfig(addr string) oauth2.Config {
	clientID, clientSecret := googleDefaultClientID, googleDefaultClientSecret
	if g.deps.Overrides.ClientID != "" {
		clientID = g.deps.Overrides.ClientID
		clientSecret = g.deps.Overrides.ClientSecret
	}
	// userinfo.email 始终附加，身份确认依赖它。
	scopes := append(append([]string{}, g.scopes()...), scopeUserinfo)
	return oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Scopes:       scopes,
		RedirectURL:  "http://" + addr + "/callback",
		Endpoint: oauth2.Endpoint{
			AuthURL:  g.authURL,
			TokenURL: g.tokenURL,
		},
	}
}

func (g *Google) callbackAddr() string {
	if g.deps.CallbackAddr != "" {
		return g.deps.CallbackAddr
	}
	return auth.DefaultCallbackAddr
}

// Authenticate 打开系统浏览器完成授权码流程，
// access_type=offline + prompt=consent 保证拿到 refresh token。
func (g *Google) Authenticate(ctx context.Context, label string) (*store.AuthResult, *errors.TError) {
	addr := g.callbackAddr()
	flow := auth.NewFlow(auth.FlowConfig{
		OAuth: g.oauthConfig(addr),
		ExtraAuthParams: map[string]string{
			"access_type": "offline",
			"prompt":      "consent",
		},
		OpenURL: g.deps.OpenURL,
		Addr:    addr,
	})

	res, te := flow.Run(ctx)
	if te != nil {
		return nil, te
	}
	if res.RefreshToken == "" {
		return nil, errors.New(errors.CodeTokenExchangeFailed, "authorization completed but no refresh token was issued", nil)
	}

	email, te := g.fetchEmail(ctx, res.AccessToken)
	if te != nil {
		return nil, te
	}

	expiresAt := res.ExpiresAt
	return &store.AuthResult{
		Label:       label,
		DisplayName: email,
		ProviderID:  email,
		Credential: store.StoredCredential{
			Fields: map[string]string{
				"access_token":  res.AccessToken,
				"refresh_token": res.RefreshToken,
				"email":         email,
				"scopes":        strings.Join(g.scopes(), " "),
				"expires_at":    strconv.FormatInt(expiresAt, 10),
			},
			CreatedAt: g.deps.now(),
			ExpiresAt: &expiresAt,
		},
	}, nil
}

// Refresh 用 refresh token 换新 access token；refresh token 本身
// 和 created_at 保留，除非服务端下发了新的。
func (g *Google) Refresh(ctx context.Context, _ string, cred *store.StoredCredential) (*store.StoredCredential, *errors.TError) {
	refreshToken := cred.Fields["refresh_token"]
	if refreshToken == "" {
		return nil, errors.New(errors.CodeRefreshDenied, "stored credential has no refresh token", nil)
	}

	res, te := auth.Refresh(ctx, g.oauthConfig(g.callbackAddr()), refreshToken)
	if te != nil {
		return nil, te
	}

	next := cred.Clone()
	next.Fields["access_token"] = res.AccessToken
	next.Fields["refresh_token"] = res.RefreshToken
	next.Fields["expires_at"] = strconv.FormatInt(res.ExpiresAt, 10)
	expiresAt := res.ExpiresAt
	next.ExpiresAt = &expiresAt
	validated := g.deps.now()
	next.LastValidated = &validated
	return next, nil
}

// Validate 先查本地过期再打 userinfo，避免拿着明知过期的 token 出门。
func (g *Google) Validate(ctx context.Context, cred *store.StoredCredential) (*Identity, *errors.TError) {
	accessToken := cred.Fields["access_token"]
	if accessToken == "" {
		return nil, errors.New(errors.CodeInternal, "stored credential missing access token", nil)
	}
	if cred.ExpiresAt != nil && g.deps.now() >= *cred.ExpiresAt {
		return nil, errors.New(errors.CodeSessionExpired, "access token is expired", nil)
	}

	email, te := g.fetchEmail(ctx, accessToken)
	if te != nil {
		return nil, te
	}
	return &Identity{ProviderID: email, DisplayName: email}, nil
}

func (g *Google) fetchEmail(ctx context.Context, accessToken string) (string, *errors.TError) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.userinfoURL, nil)
	if err != nil {
		return "", errors.Wrap(errors.CodeInternal, "build userinfo request", nil, err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := g.deps.httpClient().Do(req)
	if err != nil {
		return "", errors.Wrap(errors.CodeSessionExpired, "userinfo request failed", nil, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", errors.New(errors.CodeSessionExpired, "google rejected the access token",
			map[string]any{"status": resp.StatusCode})
	}

	var body struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", errors.Wrap(errors.CodeInternal, "userinfo returned malformed response", nil, err)
	}
	if body.Email == "" {
		return "", errors.New(errors.CodeInternal, "userinfo response missing email", nil)
	}
	return body.Email, nil
}
