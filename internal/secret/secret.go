// Package secret 存取凭据密文文档（secret material），与账号元数据严格分离。
package secret

import (
	"github.com/zx06/tokey/internal/errors"
)

// Backend 是凭据密文文档的存取抽象。
// 文档整体读写：调用方（store）负责序列化与一致性校验。
type Backend interface {
	// Load 返回文档内容；文档尚不存在时返回 (nil, nil)。
	Load() ([]byte, *errors.TError)
	Store(data []byte) *errors.TError
}

// NewBackend 按配置选择后端：file（默认）或 keyring。
func NewBackend(kind, credentialsPath string) (Backend, *errors.TError) {
	switch kind {
	case "", "file":
		return &FileBackend{Path: credentialsPath}, nil
	case "keyring":
		return &KeyringBackend{Keyring: defaultKeyring()}, nil
	default:
		return nil, errors.New(errors.CodeCfgInvalid, "unknown secret backend", map[string]any{"secret_backend": kind})
	}
}
