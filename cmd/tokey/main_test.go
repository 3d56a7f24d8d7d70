package main

import (
	"bytes"
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
)

// TestMain_SpecCommand 测试 spec 命令输出
func TestMain_SpecCommand(t *testing.T) {
	binary := buildTestBinary(t)

	cmd := exec.Command(binary, "spec", "--format", "json")
	out, err := cmd.Output()
	if err != nil {
		t.Fatalf("spec command failed: %v", err)
	}

	var resp map[string]any
	if err := json.Unmarshal(out, &resp); err != nil {
		t.Fatalf("failed to parse JSON: %v\noutput: %s", err, out)
	}

	if ok, _ := resp["ok"].(bool); !ok {
		t.Errorf("expected ok=true, got %v", resp["ok"])
	}
	if v, _ := resp["schema_version"].(float64); v != 1 {
		t.Errorf("expected schema_version=1, got %v", v)
	}
	if resp["data"] == nil {
		t.Error("expected data field")
	}
}

// TestMain_VersionCommand 测试 version 命令
func TestMain_VersionCommand(t *testing.T) {
	binary := buildTestBinary(t)

	cmd := exec.Command(binary, "version", "--format", "json")
	out, err := cmd.Output()
	if err != nil {
		t.Fatalf("version command failed: %v", err)
	}

	var resp map[string]any
	if err := json.Unmarshal(out, &resp); err != nil {
		t.Fatalf("failed to parse JSON: %v\noutput: %s", err, out)
	}

	if ok, _ := resp["ok"].(bool); !ok {
		t.Errorf("expected ok=true")
	}
	data, ok := resp["data"].(map[string]any)
	if !ok {
		t.Fatal("expected data map")
	}
	if _, ok := data["version"]; !ok {
		t.Error("expected version in data")
	}
}

// TestMain_ListCommand_EmptyStore 测试空存储下的 list 命令
func TestMain_ListCommand_EmptyStore(t *testing.T) {
	binary := buildTestBinary(t)
	tmpDir := t.TempDir()

	cmd := exec.Command(binary, "list", "--format", "json", "--data-dir", tmpDir)
	cmd.Env = append(os.Environ(), "HOME="+tmpDir)
	out, err := cmd.Output()
	if err != nil {
		t.Fatalf("list command failed: %v\noutput: %s", err, out)
	}

	var resp map[string]any
	if err := json.Unmarshal(out, &resp); err != nil {
		t.Fatalf("failed to parse JSON: %v\noutput: %s", err, out)
	}
	if ok, _ := resp["ok"].(bool); !ok {
		t.Errorf("expected ok=true, got %v", resp["ok"])
	}
}

// TestMain_GetCommand_UnknownProvider 测试未知 provider 的错误输出
func TestMain_GetCommand_UnknownProvider(t *testing.T) {
	binary := buildTestBinary(t)
	tmpDir := t.TempDir()

	cmd := exec.Command(binary, "get", "github", "--format", "json", "--data-dir", tmpDir)
	cmd.Env = append(os.Environ(), "HOME="+tmpDir)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err == nil {
		t.Fatalf("expected error for unknown provider, got none. stdout: %s", out)
	}

	// 错误 envelope 走 stderr，stdout 保持干净
	if len(out) != 0 {
		t.Errorf("stdout must stay empty on error, got: %s", out)
	}
	var resp map[string]any
	if err := json.Unmarshal(stderr.Bytes(), &resp); err != nil {
		t.Fatalf("failed to parse error JSON: %v\nstderr: %s", err, stderr.String())
	}
	if ok, _ := resp["ok"].(bool); ok {
		t.Error("expected ok=false")
	}
	errObj, _ := resp["error"].(map[string]any)
	if errObj == nil || errObj["code"] != "TOKEY_PROVIDER_UNKNOWN" {
		t.Errorf("error = %v", resp["error"])
	}

	if exitErr, ok := err.(*exec.ExitError); ok {
		if exitErr.ExitCode() != 2 {
			t.Errorf("exit code = %d, want 2", exitErr.ExitCode())
		}
	}
}

// TestMain_GetCommand_NoAccounts 测试无账号时的错误码
func TestMain_GetCommand_NoAccounts(t *testing.T) {
	binary := buildTestBinary(t)
	tmpDir := t.TempDir()

	cmd := exec.Command(binary, "get", "slack", "--format", "json", "--data-dir", tmpDir)
	cmd.Env = append(os.Environ(), "HOME="+tmpDir)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	_, err := cmd.Output()
	if err == nil {
		t.Fatal("expected error when no accounts exist")
	}
	if exitErr, ok := err.(*exec.ExitError); ok {
		if exitErr.ExitCode() != 3 {
			t.Errorf("exit code = %d, want 3. stderr: %s", exitErr.ExitCode(), stderr.String())
		}
	}
}

func buildTestBinary(t *testing.T) string {
	t.Helper()

	tmpDir := t.TempDir()
	tmpFile := filepath.Join(tmpDir, "tokey_test_binary")
	if isWindows() {
		tmpFile += ".exe"
	}

	cmd := exec.Command("go", "build", "-o", tmpFile, ".")
	cmd.Dir = "."
	if out, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("failed to build test binary: %v\n%s", err, out)
	}

	return tmpFile
}

func isWindows() bool {
	return os.PathSeparator == '\\'
}
