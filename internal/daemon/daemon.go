// Package daemon 管理 macOS launchd 的周期刷新 agent：
// 安装一个定时执行 `refresh --all` 的 LaunchAgent。
package daemon

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/zx06/tokey/internal/errors"
)

const (
	plistLabel    = "dev.tokey.refresh"
	plistFileName = plistLabel + ".plist"

	// DefaultIntervalHours 是默认刷新周期。
	DefaultIntervalHours = 1
)

const plistTemplate = `<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE plist PUBLIC "-//Apple//DTD PLIST 1.0//EN" "http://www.apple.com/DTDs/PropertyList-1.0.dtd">
<plist version="1.0">
<dict>
    <key>Label</key>
    <string>%s</string>
    <key>ProgramArguments</key>
    <array>
        <string>%s</string>
        <string>refresh</string>
        <string>--all</string>
    </array>
    <key>StartInterval</key>
    <integer>%d</integer>
    <key>RunAtLoad</key>
    <true/>
    <key>StandardOutPath</key>
    <string>%s</string>
    <key>StandardErrorPath</key>
    <string>%s</string>
    <key>ProcessType</key>
    <string>Background</string>
</dict>
</plist>
`

// Manager 的协作方全部可注入，测试不碰真 launchctl。
type Manager struct {
	HomeDir    string
	DataDir    string
	BinaryPath string
	GOOS       string

	// Launchctl 执行 launchctl 子命令并返回 stdout。
	Launchctl func(args ...string) ([]byte, error)
}

func New(homeDir, dataDir string) (*Manager, *errors.TError) {
	bin, err := os.Executable()
	if err != nil {
		return nil, errors.Wrap(errors.CodeInternal, "resolve executable path", nil, err)
	}
	return &Manager{
		HomeDir:    homeDir,
		DataDir:    dataDir,
		BinaryPath: bin,
		GOOS:       runtime.GOOS,
		Launchctl: func(args ...string) ([]byte, error) {
			return exec.Command("launchctl", args...).Output()
		},
	}, nil
}

func (m *Manager) plistPath() string {
	return filepath.Join(m.HomeDir, "Library", "LaunchAgents", plistFileName)
}

func (m *Manager) logPath() string {
	return filepath.Join(m.DataDir, "refresh.log")
}

func (m *Manager) requireDarwin() *errors.TError {
	if m.GOOS != "darwin" {
		return errors.New(errors.CodeCfgInvalid, "daemon command requires macOS (launchd)",
			map[string]any{"os": m.GOOS})
	}
	return nil
}

type InstallResult struct {
	Plist         string `json:"plist" yaml:"plist"`
	Binary        string `json:"binary" yaml:"binary"`
	IntervalHours int    `json:"interval_hours" yaml:"interval_hours"`
}

// Install 写 plist 并 launchctl load。已有 agent 先 unload 再覆盖。
func (m *Manager) Install(intervalHours int) (*InstallResult, *errors.TError) {
	if te := m.requireDarwin(); te != nil {
		return nil, te
	}
	if intervalHours <= 0 {
		intervalHours = DefaultIntervalHours
	}

	plist := m.plistPath()
	content := fmt.Sprintf(plistTemplate,
		plistLabel, m.BinaryPath, intervalHours*3600, m.logPath(), m.logPath())

	if _, err := os.Stat(plist); err == nil {
		_, _ = m.Launchctl("unload", plist)
	}
	if err := os.MkdirAll(filepath.Dir(plist), 0o755); err != nil {
		return nil, errors.Wrap(errors.CodePermission, "create LaunchAgents dir", nil, err)
	}
	if err := os.WriteFile(plist, []byte(content), 0o644); err != nil {
		return nil, errors.Wrap(errors.CodePermission, "write plist", nil, err)
	}
	if _, err := m.Launchctl("load", plist); err != nil {
		return nil, errors.Wrap(errors.CodeInternal, "launchctl load failed", nil, err)
	}

	return &InstallResult{
		Plist:         plist,
		Binary:        m.BinaryPath,
		IntervalHours: intervalHours,
	}, nil
}

type UninstallResult struct {
	Plist     string `json:"plist" yaml:"plist"`
	Installed bool   `json:"installed" yaml:"installed"`
}

func (m *Manager) Uninstall() (*UninstallResult, *errors.TError) {
	if te := m.requireDarwin(); te != nil {
		return nil, te
	}

	plist := m.plistPath()
	if _, err := os.Stat(plist); os.IsNotExist(err) {
		return &UninstallResult{Plist: plist, Installed: false}, nil
	}
	if _, err := m.Launchctl("unload", plist); err != nil {
		return nil, errors.Wrap(errors.CodeInternal, "launchctl unload failed", nil, err)
	}
	if err := os.Remove(plist); err != nil {
		return nil, errors.Wrap(errors.CodePermission, "remove plist", nil, err)
	}
	return &UninstallResult{Plist: plist, Installed: true}, nil
}

type StatusResult struct {
	Plist     string `json:"plist" yaml:"plist"`
	Installed bool   `json:"installed" yaml:"installed"`
	Loaded    bool   `json:"loaded" yaml:"loaded"`
	Detail    string `json:"detail,omitempty" yaml:"detail,omitempty"`
}

func (m *Manager) Status() (*StatusResult, *errors.TError) {
	if te := m.requireDarwin(); te != nil {
		return nil, te
	}

	plist := m.plistPath()
	res := &StatusResult{Plist: plist}
	if _, err := os.Stat(plist); os.IsNotExist(err) {
		return res, nil
	}
	res.Installed = true

	out, err := m.Launchctl("list", plistLabel)
	if err != nil {
		return res, nil
	}
	res.Loaded = true
	for _, line := range strings.Split(string(out), "\n") {
		line = strings.TrimSpace(line)
		if strings.Contains(line, "PID") || strings.Contains(line, "LastExitStatus") {
			if res.Detail != "" {
				res.Detail += "; "
			}
			res.Detail += line
		}
	}
	return res, nil
}
