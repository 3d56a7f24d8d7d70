// Package browser 用 go-rod 驱动 Chromium 实现会话提取。
// 每个账号一个独立 profile 目录，目录内用锁文件保证同一时刻
// 只有一个会话在跑。
package browser

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	"github.com/zx06/tokey/internal/errors"
	"github.com/zx06/tokey/internal/extract"
)

const (
	lockFileName = "tokey.lock"

	// 轮询间隔：页面脚本每 2s 执行一次，直到登录完成或预算耗尽。
	pollInterval = 2 * time.Second
)

// Service 是 extract.Service 的 rod 实现。
type Service struct{}

var _ extract.Service = (*Service)(nil)

func New() *Service {
	return &Service{}
}

// scriptResult 是页面脚本约定的返回结构。
type scriptResult struct {
	LoggedIn bool
	Fields   map[string]string
}

func (s *Service) Extract(ctx context.Context, req extract.Request) (map[string]string, *errors.TError) {
	unlock, xerr := lockProfile(req.ProfileDir)
	if xerr != nil {
		return nil, xerr
	}
	defer unlock()

	if req.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	l := launcher.New().
		UserDataDir(req.ProfileDir).
		Headless(req.Headless)
	defer l.Cleanup()

	url, err := l.Launch()
	if err != nil {
		return nil, errors.Wrap(errors.CodeExtractionFailed, "launch browser", nil, err)
	}

	b := rod.New().ControlURL(url).Context(ctx)
	if err := b.Connect(); err != nil {
		return nil, errors.Wrap(errors.CodeExtractionFailed, "connect browser", nil, err)
	}
	defer b.Close()

	page, err := b.Page(proto.TargetCreateTarget{URL: req.URL})
	if err != nil {
		return nil, errors.Wrap(errors.CodeExtractionFailed, "open page", nil, err)
	}

	return s.poll(ctx, page, req)
}

// poll 周期性执行提取脚本。交互式登录允许用户在窗口里慢慢操作；
// 复用已有会话时（headless refresh）没有人能补救，超时即按会话过期处理。
func (s *Service) poll(ctx context.Context, page *rod.Page, req extract.Request) (map[string]string, *errors.TError) {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		res, evalErr := evalResult(page, req.Script)
		if evalErr == nil && res.LoggedIn {
			if len(res.Fields) == 0 {
				return nil, errors.New(errors.CodeExtractionFailed, "page reported login but returned no fields", nil)
			}
			return res.Fields, nil
		}
		// 脚本执行失败（页面跳转中等）不致命，下一轮重试。

		select {
		case <-ctx.Done():
			if req.ExistingSession {
				return nil, errors.New(errors.CodeSessionExpired, "stored browser session no longer yields credentials", nil)
			}
			return nil, errors.New(errors.CodeLoginTimeout, "login not completed within wait budget", nil)
		case <-ticker.C:
		}

		if req.ExistingSession {
			// 已有会话的页面不会自己变化，reload 触发服务端重新下发。
			_ = page.Reload()
		}
	}
}

func evalResult(page *rod.Page, script string) (*scriptResult, error) {
	obj, err := page.Eval(script)
	if err != nil {
		return nil, err
	}
	v := obj.Value
	out := &scriptResult{
		LoggedIn: v.Get("logged_in").Bool(),
		Fields:   map[string]string{},
	}
	for name, fv := range v.Get("fields").Map() {
		out.Fields[name] = fv.Str()
	}
	return out, nil
}

// lockProfile 在 profile 目录放一个 O_EXCL 锁文件。
// 拿不到锁立即失败，绝不排队等另一个会话结束。
func lockProfile(dir string) (func(), *errors.TError) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, errors.Wrap(errors.CodePermission, "create profile dir", nil, err)
	}
	path := filepath.Join(dir, lockFileName)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		if os.IsExist(err) {
			return nil, errors.New(errors.CodeProfileLocked,
				"profile is in use by another session", map[string]any{"profile_dir": dir})
		}
		return nil, errors.Wrap(errors.CodePermission, "create profile lock", nil, err)
	}
	_ = f.Close()
	return func() { _ = os.Remove(path) }, nil
}
