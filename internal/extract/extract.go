// Package extract 定义会话提取服务的边界：core 只依赖这个契约，
// 不假设提取器在进程内同步执行。
package extract

import (
	"context"
	"time"

	"github.com/zx06/tokey/internal/errors"
)

// Request 描述一次提取：打开（或复用）profile 指向的浏览器会话，
// 在目标页面上轮询执行 Script，直到登录完成并取回密文字段。
type Request struct {
	// ProfileDir 是账号独占的浏览器 profile 目录；
	// 同一目录绝不允许两个并发会话。
	ProfileDir string

	// URL 是目标服务的入口页面。
	URL string

	// Script 在页面上下文执行，返回
	// {"logged_in": bool, "fields": {name: value, ...}}。
	Script string

	// Headless 为 true 时不弹窗口；refresh 路径必须 headless，
	// 且绝不提示用户输入。
	Headless bool

	// ExistingSession 表示 profile 已有会话：等待预算收紧，
	// 会话失效直接报错而不是等用户登录。
	ExistingSession bool

	// Timeout 是整体等待预算。
	Timeout time.Duration
}

// Service 是外部浏览器自动化协作方的契约。
// 失败以 TOKEY_EXTRACTION_FAILED / TOKEY_LOGIN_TIMEOUT /
// TOKEY_SESSION_EXPIRED / TOKEY_PROFILE_LOCKED 报告。
type Service interface {
	Extract(ctx context.Context, req Request) (map[string]string, *errors.TError)
}
