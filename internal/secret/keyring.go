package secret

import (
	stderrors "errors"

	"github.com/zalando/go-keyring"

	"github.com/zx06/tokey/internal/errors"
)

// KeyringAPI 是对 OS keyring 的最小抽象，便于测试与跨平台。
// service 对应 keyring 的 service name，account 对应 user/account。
type KeyringAPI interface {
	Get(service, account string) (string, error)
	Set(service, account, value string) error
	Delete(service, account string) error
}

const (
	keyringService = "tokey"
	// zalando/go-keyring 无法枚举条目，因此整个凭据文档存为单条目，
	// store 层的 reconcile 逻辑对两种后端保持一致。
	keyringItem = "credentials"
)

// KeyringBackend 把凭据文档存进 OS keyring。
type KeyringBackend struct {
	Keyring KeyringAPI
}

func (k *KeyringBackend) Load() ([]byte, *errors.TError) {
	val, err := k.Keyring.Get(keyringService, keyringItem)
	if err != nil {
		if stderrors.Is(err, keyring.ErrNotFound) {
			return nil, nil
		}
		return nil, errors.Wrap(errors.CodeInternal, "failed to read credentials from keyring", nil, err)
	}
	return []byte(val), nil
}

func (k *KeyringBackend) Store(data []byte) *errors.TError {
	if err := k.Keyring.Set(keyringService, keyringItem, string(data)); err != nil {
		return errors.Wrap(errors.CodeInternal, "failed to write credentials to keyring", nil, err)
	}
	return nil
}

func defaultKeyring() KeyringAPI {
	return &osKeyring{}
}

type osKeyring struct{}

func (o *osKeyring) Get(service, account string) (string, error) {
	return keyring.Get(service, account)
}

func (o *osKeyring) Set(service, account, value string) error {
	return keyring.Set(service, account, value)
}

func (o *osKeyring) Delete(service, account string) error {
	return keyring.Delete(service, account)
}
