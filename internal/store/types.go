// Package store 持久化账号元数据与凭据密文，并执行过期判断。
//
// 两份文档构成跨调用共享状态：
//   - accounts.yaml    账号元数据（无密文）
//   - credentials.json 凭据密文（owner-only；或整体存入 OS keyring）
//
// 不变量：credentials 的每个 key 必须有对应的账号条目，反之亦然；
// 加载时校验，违反即 TOKEY_STORAGE_CORRUPT，拒绝猜测。
package store

// Config 是账号元数据文件的顶层结构（无密文）。
type Config struct {
	Providers map[string]*ProviderConfig `yaml:"providers"`
}

// ProviderConfig 是单个 provider 的元数据段。
type ProviderConfig struct {
	DefaultAccount string              `yaml:"default_account,omitempty"`
	Accounts       map[string]*Account `yaml:"accounts"`
}

// Account 是单个账号的元数据（无密文）。
type Account struct {
	DisplayName string `yaml:"display_name"`
	ProviderID  string `yaml:"provider_id,omitempty"`
	UserID      string `yaml:"user_id,omitempty"`
	CreatedAt   int64  `yaml:"created_at"`
}

// CredentialsFile 是凭据密文文档的顶层结构。
type CredentialsFile struct {
	Credentials map[string]*StoredCredential `json:"credentials"`
}

// StoredCredential 是一个账号的密文负载，key 为 "provider/label"。
type StoredCredential struct {
	Fields        map[string]string `json:"fields"`
	CreatedAt     int64             `json:"created_at"`
	LastValidated *int64            `json:"last_validated"`
	// ExpiresAt 仅 token 过期型 provider（oauth）使用。
	ExpiresAt *int64 `json:"expires_at,omitempty"`
	// RefreshFailures 记录连续刷新失败次数，成功后清零；status 展示用。
	RefreshFailures int `json:"refresh_failures,omitempty"`
}

// Clone 返回深拷贝，避免调用方修改底层 map。
func (c *StoredCredential) Clone() *StoredCredential {
	if c == nil {
		return nil
	}
	cp := *c
	cp.Fields = make(map[string]string, len(c.Fields))
	for k, v := range c.Fields {
		cp.Fields[k] = v
	}
	if c.LastValidated != nil {
		v := *c.LastValidated
		cp.LastValidated = &v
	}
	if c.ExpiresAt != nil {
		v := *c.ExpiresAt
		cp.ExpiresAt = &v
	}
	return &cp
}

// AuthResult 是 provider authenticate 的返回值：账号元数据 + 初始凭据，
// 由 store 一次性落盘。
type AuthResult struct {
	Label       string
	DisplayName string
	ProviderID  string
	UserID      string
	Credential  StoredCredential
}
