package store

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/natefinch/atomic"
	"gopkg.in/yaml.v3"

	"github.com/zx06/tokey/internal/errors"
	"github.com/zx06/tokey/internal/secret"
)

const accountsFile = "accounts.yaml"

// CredentialsFileName 是 file 后端的密文文件名。
const CredentialsFileName = "credentials.json"

// Store 管理账号元数据与凭据密文两份文档。
type Store struct {
	dataDir string
	backend secret.Backend

	// now 可注入，便于过期逻辑测试。
	now func() int64
}

// Options 注入存储位置与后端；测试可指向临时目录。
type Options struct {
	DataDir string
	Backend secret.Backend
	Now     func() int64
}

// Open 创建 Store 并确保数据目录存在（owner-only）。
func Open(opts Options) (*Store, *errors.TError) {
	if opts.DataDir == "" {
		return nil, errors.New(errors.CodeCfgInvalid, "data dir is required", nil)
	}
	if err := os.MkdirAll(opts.DataDir, 0o700); err != nil {
		return nil, errors.Wrap(errors.CodeInternal, "failed to create data dir", map[string]any{"path": opts.DataDir}, err)
	}
	if opts.Backend == nil {
		opts.Backend = &secret.FileBackend{Path: filepath.Join(opts.DataDir, CredentialsFileName)}
	}
	if opts.Now == nil {
		opts.Now = func() int64 { return time.Now().Unix() }
	}
	return &Store{dataDir: opts.DataDir, backend: opts.Backend, now: opts.Now}, nil
}

func (s *Store) Now() int64 { return s.now() }

// Key 是凭据文档的全局唯一主键。
func Key(provider, label string) string {
	return provider + "/" + label
}

// ProfileDir 返回账号独占的浏览器 profile 目录；
// 各 (provider, label) 严格隔离，不跨账号共享。
func (s *Store) ProfileDir(provider, label string) string {
	return filepath.Join(s.dataDir, "chrome-profiles", provider, label)
}

func (s *Store) accountsPath() string {
	return filepath.Join(s.dataDir, accountsFile)
}

// Load 读取两份文档并做一致性校验（作为一个整体加载）。
func (s *Store) Load() (Config, CredentialsFile, *errors.TError) {
	cfg, te := s.loadAccounts()
	if te != nil {
		return Config{}, CredentialsFile{}, te
	}
	creds, te := s.loadCredentials()
	if te != nil {
		return Config{}, CredentialsFile{}, te
	}
	if te := reconcile(cfg, creds); te != nil {
		return Config{}, CredentialsFile{}, te
	}
	return cfg, creds, nil
}

func (s *Store) loadAccounts() (Config, *errors.TError) {
	b, err := os.ReadFile(s.accountsPath())
	if err != nil {
		if os.IsNotExist(err) {
			return Config{Providers: map[string]*ProviderConfig{}}, nil
		}
		return Config{}, errors.Wrap(errors.CodeInternal, "failed to read accounts file", map[string]any{"path": s.accountsPath()}, err)
	}
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return Config{}, errors.Wrap(errors.CodeStorageCorrupt, "accounts file is not valid yaml", map[string]any{"path": s.accountsPath()}, err)
	}
	if cfg.Providers == nil {
		cfg.Providers = map[string]*ProviderConfig{}
	}
	for _, pc := range cfg.Providers {
		if pc.Accounts == nil {
			pc.Accounts = map[string]*Account{}
		}
	}
	return cfg, nil
}

func (s *Store) saveAccounts(cfg Config) *errors.TError {
	b, err := yaml.Marshal(cfg)
	if err != nil {
		return errors.Wrap(errors.CodeInternal, "failed to marshal accounts", nil, err)
	}
	if err := atomic.WriteFile(s.accountsPath(), bytes.NewReader(b)); err != nil {
		return errors.Wrap(errors.CodeInternal, "failed to write accounts file", map[string]any{"path": s.accountsPath()}, err)
	}
	return nil
}

func (s *Store) loadCredentials() (CredentialsFile, *errors.TError) {
	b, te := s.backend.Load()
	if te != nil {
		return CredentialsFile{}, te
	}
	if b == nil {
		return CredentialsFile{Credentials: map[string]*StoredCredential{}}, nil
	}
	var creds CredentialsFile
	if err := json.Unmarshal(b, &creds); err != nil {
		return CredentialsFile{}, errors.Wrap(errors.CodeStorageCorrupt, "credentials document is not valid json", nil, err)
	}
	if creds.Credentials == nil {
		creds.Credentials = map[string]*StoredCredential{}
	}
	return creds, nil
}

func (s *Store) saveCredentials(creds CredentialsFile) *errors.TError {
	b, err := json.MarshalIndent(creds, "", "  ")
	if err != nil {
		return errors.Wrap(errors.CodeInternal, "failed to marshal credentials", nil, err)
	}
	return s.backend.Store(b)
}

// reconcile 校验两份文档互为镜像：孤儿密文或无凭据账号都视为损坏，
// 报告而不是静默丢弃。
func reconcile(cfg Config, creds CredentialsFile) *errors.TError {
	var orphanSecrets, missingSecrets []string
	for key := range creds.Credentials {
		provider, label, ok := splitKey(key)
		if !ok {
			orphanSecrets = append(orphanSecrets, key)
			continue
		}
		pc := cfg.Providers[provider]
		if pc == nil || pc.Accounts[label] == nil {
			orphanSecrets = append(orphanSecrets, key)
		}
	}
	for provider, pc := range cfg.Providers {
		for label := range pc.Accounts {
			if creds.Credentials[Key(provider, label)] == nil {
				missingSecrets = append(missingSecrets, Key(provider, label))
			}
		}
	}
	if len(orphanSecrets) == 0 && len(missingSecrets) == 0 {
		return nil
	}
	sort.Strings(orphanSecrets)
	sort.Strings(missingSecrets)
	details := map[string]any{}
	if len(orphanSecrets) > 0 {
		details["orphan_secrets"] = orphanSecrets
	}
	if len(missingSecrets) > 0 {
		details["accounts_without_credentials"] = missingSecrets
	}
	return errors.New(errors.CodeStorageCorrupt,
		"account metadata and credential storage disagree; fix or remove the listed entries", details)
}

func splitKey(key string) (provider, label string, ok bool) {
	for i := 0; i < len(key); i++ {
		if key[i] == '/' {
			if i == 0 || i == len(key)-1 {
				return "", "", false
			}
			return key[:i], key[i+1:], true
		}
	}
	return "", "", false
}

// HasAccount 判断账号是否已存在，供交互流程在发起登录前预检。
func (s *Store) HasAccount(provider, label string) (bool, *errors.TError) {
	cfg, te := s.loadAccounts()
	if te != nil {
		return false, te
	}
	pc := cfg.Providers[provider]
	if pc == nil {
		return false, nil
	}
	_, exists := pc.Accounts[label]
	return exists, nil
}

// SaveAccount upsert 账号 + 凭据。createOnly 时已有同名 label 报
// DuplicateLabel；authenticate 语义下覆盖是预期行为。
func (s *Store) SaveAccount(provider string, res AuthResult, createOnly bool) *errors.TError {
	cfg, creds, te := s.Load()
	if te != nil {
		return te
	}

	pc := cfg.Providers[provider]
	if pc == nil {
		pc = &ProviderConfig{Accounts: map[string]*Account{}}
		cfg.Providers[provider] = pc
	}
	if createOnly {
		if _, exists := pc.Accounts[res.Label]; exists {
			return errors.New(errors.CodeDuplicateLabel, "account label already exists", map[string]any{
				"provider": provider, "label": res.Label,
			})
		}
	}

	pc.Accounts[res.Label] = &Account{
		DisplayName: res.DisplayName,
		ProviderID:  res.ProviderID,
		UserID:      res.UserID,
		CreatedAt:   s.now(),
	}
	// 第一个账号自动成为默认账号
	if pc.DefaultAccount == "" {
		pc.DefaultAccount = res.Label
	}

	cred := res.Credential
	creds.Credentials[Key(provider, res.Label)] = &cred

	if te := s.saveCredentials(creds); te != nil {
		return te
	}
	return s.saveAccounts(cfg)
}

// ResolveLabel 把可省略的 label 解析为实际账号：
// 空 label 取 provider 默认账号。
func (s *Store) ResolveLabel(provider, label string) (string, *errors.TError) {
	cfg, _, te := s.Load()
	if te != nil {
		return "", te
	}
	pc := cfg.Providers[provider]
	if pc == nil {
		return "", errors.New(errors.CodeAccountNotFound, "no accounts for provider", map[string]any{"provider": provider})
	}
	if label != "" {
		if _, ok := pc.Accounts[label]; !ok {
			return "", errors.New(errors.CodeAccountNotFound, "account not found", map[string]any{
				"provider": provider, "label": label,
			})
		}
		return label, nil
	}
	if pc.DefaultAccount == "" {
		return "", errors.New(errors.CodeNoDefaultAccount, "no default account for provider", map[string]any{"provider": provider})
	}
	return pc.DefaultAccount, nil
}

// GetCredential 返回凭据副本。
func (s *Store) GetCredential(provider, label string) (*StoredCredential, *errors.TError) {
	_, creds, te := s.Load()
	if te != nil {
		return nil, te
	}
	cred := creds.Credentials[Key(provider, label)]
	if cred == nil {
		return nil, errors.New(errors.CodeAccountNotFound, "no credentials stored", map[string]any{
			"provider": provider, "label": label,
		})
	}
	return cred.Clone(), nil
}

// GetAccount 返回账号元数据副本。
func (s *Store) GetAccount(provider, label string) (*Account, *errors.TError) {
	cfg, _, te := s.Load()
	if te != nil {
		return nil, te
	}
	pc := cfg.Providers[provider]
	if pc == nil || pc.Accounts[label] == nil {
		return nil, errors.New(errors.CodeAccountNotFound, "account not found", map[string]any{
			"provider": provider, "label": label,
		})
	}
	a := *pc.Accounts[label]
	return &a, nil
}

// UpdateCredential 覆盖已有凭据（refresh 路径）。
func (s *Store) UpdateCredential(provider, label string, cred StoredCredential) *errors.TError {
	_, creds, te := s.Load()
	if te != nil {
		return te
	}
	if creds.Credentials[Key(provider, label)] == nil {
		return errors.New(errors.CodeAccountNotFound, "no credentials stored", map[string]any{
			"provider": provider, "label": label,
		})
	}
	creds.Credentials[Key(provider, label)] = &cred
	return s.saveCredentials(creds)
}

// MarkValidated 更新 last_validated 时间戳。
func (s *Store) MarkValidated(provider, label string) *errors.TError {
	_, creds, te := s.Load()
	if te != nil {
		return te
	}
	cred := creds.Credentials[Key(provider, label)]
	if cred == nil {
		return errors.New(errors.CodeAccountNotFound, "no credentials stored", map[string]any{
			"provider": provider, "label": label,
		})
	}
	ts := s.now()
	cred.LastValidated = &ts
	return s.saveCredentials(creds)
}

// RecordRefreshFailure 自增连续失败计数；凭据本身保持不动。
func (s *Store) RecordRefreshFailure(provider, label string) *errors.TError {
	_, creds, te := s.Load()
	if te != nil {
		return te
	}
	cred := creds.Credentials[Key(provider, label)]
	if cred == nil {
		return nil
	}
	cred.RefreshFailures++
	return s.saveCredentials(creds)
}

// Remove 删除账号与凭据（两份文档一起改，避免半删），
// 返回待清理的 profile 目录路径，由调用方删除。
func (s *Store) Remove(provider, label string) (string, *errors.TError) {
	cfg, creds, te := s.Load()
	if te != nil {
		return "", te
	}
	pc := cfg.Providers[provider]
	if pc == nil || pc.Accounts[label] == nil {
		return "", errors.New(errors.CodeAccountNotFound, "account not found", map[string]any{
			"provider": provider, "label": label,
		})
	}

	delete(pc.Accounts, label)
	delete(creds.Credentials, Key(provider, label))

	if pc.DefaultAccount == label {
		pc.DefaultAccount = ""
		remaining := make([]string, 0, len(pc.Accounts))
		for l := range pc.Accounts {
			remaining = append(remaining, l)
		}
		sort.Strings(remaining)
		if len(remaining) > 0 {
			pc.DefaultAccount = remaining[0]
		}
	}
	if len(pc.Accounts) == 0 {
		delete(cfg.Providers, provider)
	}

	if te := s.saveCredentials(creds); te != nil {
		return "", te
	}
	if te := s.saveAccounts(cfg); te != nil {
		return "", te
	}
	return s.ProfileDir(provider, label), nil
}

// SetDefault 设置默认账号；同一 provider 同时只有一个默认。
func (s *Store) SetDefault(provider, label string) *errors.TError {
	cfg, _, te := s.Load()
	if te != nil {
		return te
	}
	pc := cfg.Providers[provider]
	if pc == nil {
		return errors.New(errors.CodeAccountNotFound, "no accounts for provider", map[string]any{"provider": provider})
	}
	if _, ok := pc.Accounts[label]; !ok {
		return errors.New(errors.CodeAccountNotFound, "account not found", map[string]any{
			"provider": provider, "label": label,
		})
	}
	pc.DefaultAccount = label
	return s.saveAccounts(cfg)
}
