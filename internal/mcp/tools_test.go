package mcp

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/zx06/tokey/internal/app"
	"github.com/zx06/tokey/internal/store"
)

func testApp(t *testing.T) *app.App {
	t.Helper()
	st, te := store.Open(store.Options{
		DataDir: t.TempDir(),
		Now:     func() int64 { return time.Now().Unix() },
	})
	if te != nil {
		t.Fatalf("open store: %v", te)
	}
	a := app.New("test", "none", "unknown")
	a.Store = st
	return &a
}

func seedAccount(t *testing.T, a *app.App) {
	t.Helper()
	te := a.Store.SaveAccount("slack", store.AuthResult{
		Label:       "work",
		DisplayName: "Acme",
		ProviderID:  "T01",
		Credential: store.StoredCredential{
			Fields:    map[string]string{"token": "xoxc-1", "cookie": "d=xoxd-1"},
			CreatedAt: time.Now().Unix(),
		},
	}, false)
	if te != nil {
		t.Fatalf("seed: %v", te)
	}
}

func TestCreateServer(t *testing.T) {
	server, err := CreateServer("test", testApp(t))
	if err != nil {
		t.Fatalf("CreateServer failed: %v", err)
	}
	if server == nil {
		t.Fatal("server is nil")
	}
}

func decodeToolResult(t *testing.T, res *mcp.CallToolResult) map[string]any {
	t.Helper()
	if len(res.Content) != 1 {
		t.Fatalf("content len = %d", len(res.Content))
	}
	text, ok := res.Content[0].(*mcp.TextContent)
	if !ok {
		t.Fatalf("content type %T", res.Content[0])
	}
	var out map[string]any
	if err := json.Unmarshal([]byte(text.Text), &out); err != nil {
		t.Fatalf("unmarshal tool output: %v", err)
	}
	return out
}

func TestAccountList(t *testing.T) {
	a := testApp(t)
	seedAccount(t, a)
	h := NewToolHandler(a)

	res, _, err := h.AccountList(context.Background(), nil, struct{}{})
	if err != nil {
		t.Fatalf("account_list: %v", err)
	}
	if res.IsError {
		t.Fatalf("tool error: %+v", res)
	}
	out := decodeToolResult(t, res)
	if out["ok"] != true {
		t.Errorf("ok = %v", out["ok"])
	}
	if !strings.Contains(mustJSON(t, out["data"]), "Acme") {
		t.Errorf("data = %v", out["data"])
	}
}

func TestCredentialGet(t *testing.T) {
	a := testApp(t)
	seedAccount(t, a)
	h := NewToolHandler(a)

	res, _, err := h.CredentialGet(context.Background(), nil, CredentialGetInput{Provider: "slack"})
	if err != nil {
		t.Fatalf("credential_get: %v", err)
	}
	if res.IsError {
		t.Fatalf("tool error: %+v", res)
	}
	out := decodeToolResult(t, res)
	data := out["data"].(map[string]any)
	if data["label"] != "work" {
		t.Errorf("label = %v, want default resolution", data["label"])
	}
	fields := data["fields"].(map[string]any)
	if fields["token"] != "xoxc-1" {
		t.Errorf("token = %v", fields["token"])
	}
}

func TestCredentialGetRequiresProvider(t *testing.T) {
	h := NewToolHandler(testApp(t))

	res, _, err := h.CredentialGet(context.Background(), nil, CredentialGetInput{})
	if err != nil {
		t.Fatalf("credential_get: %v", err)
	}
	if !res.IsError {
		t.Fatal("expected tool error")
	}
	out := decodeToolResult(t, res)
	if out["ok"] != false {
		t.Errorf("ok = %v", out["ok"])
	}
}

func TestAccountStatus(t *testing.T) {
	a := testApp(t)
	seedAccount(t, a)
	h := NewToolHandler(a)

	res, _, err := h.AccountStatus(context.Background(), nil, AccountStatusInput{Provider: "slack"})
	if err != nil {
		t.Fatalf("account_status: %v", err)
	}
	out := decodeToolResult(t, res)
	if out["ok"] != true {
		t.Fatalf("out = %v", out)
	}
	if !strings.Contains(mustJSON(t, out["data"]), `"status": "fresh"`) &&
		!strings.Contains(mustJSON(t, out["data"]), `"status":"fresh"`) {
		t.Errorf("data = %v", out["data"])
	}
}

func mustJSON(t *testing.T, v any) string {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatal(err)
	}
	return string(b)
}
