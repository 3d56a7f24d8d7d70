package daemon

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/zx06/tokey/internal/errors"
)

func testManager(t *testing.T) (*Manager, *[][]string) {
	t.Helper()
	calls := &[][]string{}
	return &Manager{
		HomeDir:    t.TempDir(),
		DataDir:    t.TempDir(),
		BinaryPath: "/usr/local/bin/tokey",
		GOOS:       "darwin",
		Launchctl: func(args ...string) ([]byte, error) {
			*calls = append(*calls, args)
			return []byte(`"PID" = 123;` + "\n" + `"LastExitStatus" = 0;`), nil
		},
	}, calls
}

func TestInstallWritesPlistAndLoads(t *testing.T) {
	m, calls := testManager(t)

	res, te := m.Install(2)
	if te != nil {
		t.Fatalf("install: %v", te)
	}
	if res.IntervalHours != 2 {
		t.Errorf("interval = %d", res.IntervalHours)
	}

	data, err := os.ReadFile(res.Plist)
	if err != nil {
		t.Fatalf("read plist: %v", err)
	}
	content := string(data)
	for _, want := range []string{plistLabel, "/usr/local/bin/tokey", "<string>refresh</string>", "<string>--all</string>", "<integer>7200</integer>"} {
		if !strings.Contains(content, want) {
			t.Errorf("plist missing %q", want)
		}
	}

	if len(*calls) != 1 || (*calls)[0][0] != "load" {
		t.Errorf("launchctl calls = %v", *calls)
	}
}

func TestInstallReplacesExisting(t *testing.T) {
	m, calls := testManager(t)
	plist := filepath.Join(m.HomeDir, "Library", "LaunchAgents", plistFileName)
	if err := os.MkdirAll(filepath.Dir(plist), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(plist, []byte("old"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, te := m.Install(0); te != nil {
		t.Fatalf("install: %v", te)
	}
	// 已有 agent 先 unload 再 load
	if len(*calls) != 2 || (*calls)[0][0] != "unload" || (*calls)[1][0] != "load" {
		t.Errorf("launchctl calls = %v", *calls)
	}
}

func TestUninstall(t *testing.T) {
	m, _ := testManager(t)

	res, te := m.Uninstall()
	if te != nil {
		t.Fatalf("uninstall: %v", te)
	}
	if res.Installed {
		t.Error("nothing was installed")
	}

	if _, te := m.Install(1); te != nil {
		t.Fatalf("install: %v", te)
	}
	res, te = m.Uninstall()
	if te != nil {
		t.Fatalf("uninstall: %v", te)
	}
	if !res.Installed {
		t.Error("expected installed=true")
	}
	if _, err := os.Stat(res.Plist); !os.IsNotExist(err) {
		t.Error("plist not removed")
	}
}

func TestStatus(t *testing.T) {
	m, _ := testManager(t)

	res, te := m.Status()
	if te != nil {
		t.Fatalf("status: %v", te)
	}
	if res.Installed || res.Loaded {
		t.Errorf("status = %+v, want not installed", res)
	}

	if _, te := m.Install(1); te != nil {
		t.Fatalf("install: %v", te)
	}
	res, te = m.Status()
	if te != nil {
		t.Fatalf("status: %v", te)
	}
	if !res.Installed || !res.Loaded {
		t.Errorf("status = %+v", res)
	}
	if !strings.Contains(res.Detail, "PID") {
		t.Errorf("detail = %q", res.Detail)
	}
}

func TestRequiresDarwin(t *testing.T) {
	m, _ := testManager(t)
	m.GOOS = "linux"

	for _, op := range []func() *errors.TError{
		func() *errors.TError { _, te := m.Install(1); return te },
		func() *errors.TError { _, te := m.Uninstall(); return te },
		func() *errors.TError { _, te := m.Status(); return te },
	} {
		te := op()
		if te == nil || te.Code != errors.CodeCfgInvalid {
			t.Fatalf("err = %v, want %s", te, errors.CodeCfgInvalid)
		}
	}
}
