package config

// File 表示 tokey.yaml 的配置结构。
// 约束：配置优先级为 CLI > ENV > Config。
type File struct {
	// DataDir 是账号元数据/凭据/浏览器 profile 的根目录。
	// 默认 $HOME/.config/tokey。
	DataDir string `yaml:"data_dir"`

	Format string `yaml:"format"`

	// SecretBackend: file | keyring（默认 file）。
	SecretBackend string `yaml:"secret_backend"`

	// RefreshMarginSeconds 是过期判断的安全边际（默认 300）。
	RefreshMarginSeconds int `yaml:"refresh_margin_seconds"`

	// Providers 覆盖各 provider 的内置参数。
	Providers map[string]Provider `yaml:"providers"`

	MCP MCP `yaml:"mcp"`
}

// Provider 是 per-provider 覆盖项；缺省时使用内置值。
type Provider struct {
	// OAuth client（google）
	ClientID     string   `yaml:"client_id"`
	ClientSecret string   `yaml:"client_secret"`
	Scopes       []string `yaml:"scopes"`

	// 登录入口 URL（slack）
	LoginURL string `yaml:"login_url"`
}

type MCP struct {
	Transport string  `yaml:"transport"`
	HTTP      MCPHTTP `yaml:"http"`
}

type MCPHTTP struct {
	Addr      string `yaml:"addr"`
	AuthToken string `yaml:"auth_token"`
}

type Resolved struct {
	ConfigPath string
	Format     string
	DataDir    string
	File       File
}

type Options struct {
	// ConfigPath: 若非空，则只读取该文件（不存在报错）。
	ConfigPath string

	// CLI
	CLIFormat     string
	CLIFormatSet  bool
	CLIDataDir    string
	CLIDataDirSet bool

	// ENV（由调用方注入，便于测试）
	EnvFormat  string
	EnvDataDir string

	// HomeDir 用于默认路径计算（为空则自动探测）。
	HomeDir string

	// WorkDir 用于默认路径（为空则使用进程当前工作目录）。
	WorkDir string
}
