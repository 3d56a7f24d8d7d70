package provider

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/zx06/tokey/internal/errors"
	"github.com/zx06/tokey/internal/extract"
	"github.com/zx06/tokey/internal/store"
)

const (
	slackName     = "slack"
	slackLoginURL = "https://app.slack.com/client"
	slackAuthTest = "https://slack.com/api/auth.test"

	// Slack session cookie 大约 30 天后失效。
	slackMaxAge = 30 * 24 * time.Hour

	// 交互式登录允许用户走完 SSO/验证码；headless 刷新没有人兜底，
	// 会话要么还在要么判死。
	slackInteractiveWait = 10 * time.Minute
	slackHeadlessWait    = 60 * time.Second
)

// slackExtractScript 在 app.slack.com 页面上下文执行：
// 从 localStorage 的 localConfig_v2 取 xoxc- token，从 cookie 取 xoxd- 的 d，
// 两者都在才算登录完成。
const slackExtractScript = `
() => {
	const out = { logged_in: false, fields: {} };
	try {
		const raw = localStorage.getItem('localConfig_v2');
		if (!raw) return out;
		const teams = JSON.parse(raw).teams || {};
		const ids = Object.keys(teams);
		if (ids.length === 0) return out;
		const team = teams[ids[0]];
		if (!team || !team.token || !team.token.startsWith('xoxc-')) return out;
		const m = ('; ' + document.cookie).split('; d=');
		const d = m.length === 2 ? m.pop().split(';').shift() : null;
		if (!d || !d.startsWith('xoxd-')) return out;
		out.logged_in = true;
		out.fields = {
			token: team.token,
			cookie: 'd=' + d,
			team_id: team.id,
			team_name: team.name,
			user_id: team.user_id || 'unknown',
		};
	} catch (e) {}
	return out;
}
`

// Slack 通过浏览器会话提取拿 xoxc token + d cookie。
type Slack struct {
	deps Deps

	loginURL    string
	authTestURL string
}

func newSlack(deps Deps) *Slack {
	s := &Slack{
		deps:        deps,
		loginURL:    slackLoginURL,
		authTestURL: slackAuthTest,
	}
	if deps.Overrides.LoginURL != "" {
		s.loginURL = deps.Overrides.LoginURL
	}
	return s
}

func (s *Slack) Name() string        { return slackName }
func (s *Slack) DisplayName() string { return "Slack" }

func (s *Slack) CredentialFields() []string { return []string{"token", "cookie"} }

func (s *Slack) MaxCredentialAge() time.Duration { return slackMaxAge }

// Authenticate 打开可见浏览器窗口让用户正常登录（支持 SSO），
// 登录状态落在账号独占的 profile 里供后续 headless 刷新复用。
func (s *Slack) Authenticate(ctx context.Context, label string) (*store.AuthResult, *errors.TError) {
	fields, te := s.deps.Extractor.Extract(ctx, extract.Request{
		ProfileDir: s.deps.ProfileDir(slackName, label),
		URL:        s.loginURL,
		Script:     slackExtractScript,
		Headless:   false,
		Timeout:    slackInteractiveWait,
	})
	if te != nil {
		return nil, te
	}

	cred, te := s.credentialFrom(fields)
	if te != nil {
		return nil, te
	}
	return &store.AuthResult{
		Label:       label,
		DisplayName: fields["team_name"],
		ProviderID:  fields["team_id"],
		UserID:      fields["user_id"],
		Credential:  *cred,
	}, nil
}

// Refresh 复用已有 profile headless 重提取。会话已死时
// 返回 TOKEY_SESSION_EXPIRED，绝不弹窗。
func (s *Slack) Refresh(ctx context.Context, label string, _ *store.StoredCredential) (*store.StoredCredential, *errors.TError) {
	fields, te := s.deps.Extractor.Extract(ctx, extract.Request{
		ProfileDir:      s.deps.ProfileDir(slackName, label),
		URL:             s.loginURL,
		Script:          slackExtractScript,
		Headless:        true,
		ExistingSession: true,
		Timeout:         slackHeadlessWait,
	})
	if te != nil {
		return nil, te
	}
	return s.credentialFrom(fields)
}

func (s *Slack) credentialFrom(fields map[string]string) (*store.StoredCredential, *errors.TError) {
	token, cookie := fields["token"], fields["cookie"]
	if token == "" || cookie == "" {
		return nil, errors.New(errors.CodeExtractionFailed, "extraction returned incomplete credentials",
			map[string]any{"missing_token": token == "", "missing_cookie": cookie == ""})
	}
	return &store.StoredCredential{
		Fields:    map[string]string{"token": token, "cookie": cookie},
		CreatedAt: s.deps.now(),
	}, nil
}

// Validate 调 auth.test 确认 token + cookie 仍被 Slack 接受。
func (s *Slack) Validate(ctx context.Context, cred *store.StoredCredential) (*Identity, *errors.TError) {
	token, cookie := cred.Fields["token"], cred.Fields["cookie"]
	if token == "" || cookie == "" {
		return nil, errors.New(errors.CodeInternal, "stored credential missing token or cookie", nil)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.authTestURL, nil)
	if err != nil {
		return nil, errors.Wrap(errors.CodeInternal, "build auth.test request", nil, err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Cookie", cookie)

	resp, err := s.deps.httpClient().Do(req)
	if err != nil {
		return nil, errors.Wrap(errors.CodeSessionExpired, "auth.test request failed", nil, err)
	}
	defer resp.Body.Close()

	var body struct {
		OK     bool   `json:"ok"`
		User   string `json:"user"`
		UserID string `json:"user_id"`
		Team   string `json:"team"`
		TeamID string `json:"team_id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, errors.Wrap(errors.CodeSessionExpired, "auth.test returned malformed response", nil, err)
	}
	if !body.OK {
		return nil, errors.New(errors.CodeSessionExpired, "slack rejected the stored session", nil)
	}
	return &Identity{
		ProviderID:  body.TeamID,
		DisplayName: body.Team,
		UserID:      body.UserID,
	}, nil
}
