// Package auth 实现 OAuth 授权码流程与 PKCE。
package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"

	"github.com/zx06/tokey/internal/errors"
)

// PKCE 是一对 verifier/challenge（RFC 7636）。
type PKCE struct {
	Verifier  string
	Challenge string
}

// verifier 原始熵 64 字节，base64url 后 86 字符，落在 RFC 要求的 43..128 内。
const pkceVerifierBytes = 64

// GeneratePKCE 生成新的 verifier/challenge 对。
// 纯函数、无状态；随机源为 crypto/rand。
// challenge = base64url(sha256(verifier))，无 padding。
func GeneratePKCE() (PKCE, *errors.TError) {
	raw := make([]byte, pkceVerifierBytes)
	if _, err := rand.Read(raw); err != nil {
		return PKCE{}, errors.Wrap(errors.CodeInternal, "failed to read random bytes", nil, err)
	}
	verifier := base64.RawURLEncoding.EncodeToString(raw)
	sum := sha256.Sum256([]byte(verifier))
	return PKCE{
		Verifier:  verifier,
		Challenge: base64.RawURLEncoding.EncodeToString(sum[:]),
	}, nil
}

// randomState 生成 CSRF state token。
func randomState() (string, *errors.TError) {
	raw := make([]byte, 24)
	if _, err := rand.Read(raw); err != nil {
		return "", errors.Wrap(errors.CodeInternal, "failed to read random bytes", nil, err)
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}
