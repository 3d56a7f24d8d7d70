package store

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	s, te := Open(Options{DataDir: t.TempDir()})
	if te != nil {
		t.Fatalf("open failed: %v", te)
	}
	return s
}

func slackResult(label string) AuthResult {
	return AuthResult{
		Label:       label,
		DisplayName: "Acme Corp",
		ProviderID:  "T0001",
		UserID:      "U0001",
		Credential: StoredCredential{
			Fields:    map[string]string{"token": "xoxc-1", "cookie": "d=xoxd-1"},
			CreatedAt: time.Now().Unix(),
		},
	}
}

func TestSaveAccount_RoundTrip(t *testing.T) {
	s := testStore(t)
	if te := s.SaveAccount("slack", slackResult("work"), false); te != nil {
		t.Fatalf("save failed: %v", te)
	}

	cred, te := s.GetCredential("slack", "work")
	if te != nil {
		t.Fatalf("get failed: %v", te)
	}
	if cred.Fields["token"] != "xoxc-1" || cred.Fields["cookie"] != "d=xoxd-1" {
		t.Errorf("round-trip mismatch: %v", cred.Fields)
	}

	acct, te := s.GetAccount("slack", "work")
	if te != nil {
		t.Fatalf("get account failed: %v", te)
	}
	if acct.DisplayName != "Acme Corp" {
		t.Errorf("display name mismatch: %q", acct.DisplayName)
	}
}

func TestSaveAccount_SecretsNeverInMetadata(t *testing.T) {
	dir := t.TempDir()
	s, te := Open(Options{DataDir: dir})
	if te != nil {
		t.Fatal(te)
	}
	if te := s.SaveAccount("slack", slackResult("work"), false); te != nil {
		t.Fatal(te)
	}
	b, err := os.ReadFile(filepath.Join(dir, "accounts.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	for _, secret := range []string{"xoxc-1", "xoxd-1"} {
		if strings.Contains(string(b), secret) {
			t.Errorf("secret %q leaked into metadata file", secret)
		}
	}
}

func TestSaveAccount_FirstBecomesDefault(t *testing.T) {
	s := testStore(t)
	if te := s.SaveAccount("slack", slackResult("work"), false); te != nil {
		t.Fatal(te)
	}
	label, te := s.ResolveLabel("slack", "")
	if te != nil {
		t.Fatalf("resolve failed: %v", te)
	}
	if label != "work" {
		t.Errorf("expected first account as default, got %q", label)
	}

	// Second account does not steal the default
	if te := s.SaveAccount("slack", slackResult("personal"), false); te != nil {
		t.Fatal(te)
	}
	label, te = s.ResolveLabel("slack", "")
	if te != nil {
		t.Fatal(te)
	}
	if label != "work" {
		t.Errorf("default changed unexpectedly to %q", label)
	}
}

func TestSaveAccount_CreateOnlyDuplicate(t *testing.T) {
	s := testStore(t)
	if te := s.SaveAccount("slack", slackResult("work"), false); te != nil {
		t.Fatal(te)
	}
	te := s.SaveAccount("slack", slackResult("work"), true)
	if te == nil {
		t.Fatal("expected duplicate label error")
	}
	if te.Code != "TOKEY_DUPLICATE_LABEL" {
		t.Fatalf("expected TOKEY_DUPLICATE_LABEL, got %s", te.Code)
	}

	// Overwrite without createOnly is intended behavior
	res := slackResult("work")
	res.Credential.Fields["token"] = "xoxc-2"
	if te := s.SaveAccount("slack", res, false); te != nil {
		t.Fatalf("overwrite failed: %v", te)
	}
	cred, _ := s.GetCredential("slack", "work")
	if cred.Fields["token"] != "xoxc-2" {
		t.Errorf("overwrite did not replace credential")
	}
}

func TestHasAccount(t *testing.T) {
	s := testStore(t)
	if exists, te := s.HasAccount("slack", "work"); te != nil || exists {
		t.Fatalf("empty store: exists=%v err=%v", exists, te)
	}
	if te := s.SaveAccount("slack", slackResult("work"), false); te != nil {
		t.Fatal(te)
	}
	if exists, te := s.HasAccount("slack", "work"); te != nil || !exists {
		t.Fatalf("after save: exists=%v err=%v", exists, te)
	}
	if exists, _ := s.HasAccount("slack", "other"); exists {
		t.Error("unknown label reported as existing")
	}
}

func TestResolveLabel(t *testing.T) {
	s := testStore(t)
	if _, te := s.ResolveLabel("slack", ""); te == nil || te.Code != "TOKEY_ACCOUNT_NOT_FOUND" {
		t.Errorf("expected TOKEY_ACCOUNT_NOT_FOUND for unknown provider, got %v", te)
	}

	if te := s.SaveAccount("slack", slackResult("work"), false); te != nil {
		t.Fatal(te)
	}
	if _, te := s.ResolveLabel("slack", "missing"); te == nil || te.Code != "TOKEY_ACCOUNT_NOT_FOUND" {
		t.Errorf("expected TOKEY_ACCOUNT_NOT_FOUND for unknown label, got %v", te)
	}

	// No default configured
	if te := s.SetDefault("slack", "work"); te != nil {
		t.Fatal(te)
	}
}

func TestRemove_NoResidue(t *testing.T) {
	s := testStore(t)
	if te := s.SaveAccount("slack", slackResult("work"), false); te != nil {
		t.Fatal(te)
	}

	profileDir, te := s.Remove("slack", "work")
	if te != nil {
		t.Fatalf("remove failed: %v", te)
	}
	if profileDir != s.ProfileDir("slack", "work") {
		t.Errorf("unexpected profile dir: %q", profileDir)
	}

	if _, te := s.GetCredential("slack", "work"); te == nil || te.Code != "TOKEY_ACCOUNT_NOT_FOUND" {
		t.Errorf("expected TOKEY_ACCOUNT_NOT_FOUND after remove, got %v", te)
	}
	cfg, creds, te := s.Load()
	if te != nil {
		t.Fatal(te)
	}
	if len(cfg.Providers) != 0 {
		t.Errorf("metadata residue after remove: %v", cfg.Providers)
	}
	if len(creds.Credentials) != 0 {
		t.Errorf("secret residue after remove: %v", creds.Credentials)
	}
}

func TestRemove_DemotesDefault(t *testing.T) {
	s := testStore(t)
	if te := s.SaveAccount("slack", slackResult("work"), false); te != nil {
		t.Fatal(te)
	}
	if te := s.SaveAccount("slack", slackResult("personal"), false); te != nil {
		t.Fatal(te)
	}

	if _, te := s.Remove("slack", "work"); te != nil {
		t.Fatal(te)
	}
	label, te := s.ResolveLabel("slack", "")
	if te != nil {
		t.Fatalf("resolve after remove failed: %v", te)
	}
	if label != "personal" {
		t.Errorf("expected surviving account promoted to default, got %q", label)
	}
}

func TestSetDefault(t *testing.T) {
	s := testStore(t)
	if te := s.SaveAccount("slack", slackResult("work"), false); te != nil {
		t.Fatal(te)
	}
	if te := s.SaveAccount("slack", slackResult("personal"), false); te != nil {
		t.Fatal(te)
	}

	if te := s.SetDefault("slack", "personal"); te != nil {
		t.Fatalf("set default failed: %v", te)
	}
	cfg, _, te := s.Load()
	if te != nil {
		t.Fatal(te)
	}
	// Exactly one default: the field is a single value, the old one is demoted
	if cfg.Providers["slack"].DefaultAccount != "personal" {
		t.Errorf("expected personal as default, got %q", cfg.Providers["slack"].DefaultAccount)
	}

	if te := s.SetDefault("slack", "missing"); te == nil || te.Code != "TOKEY_ACCOUNT_NOT_FOUND" {
		t.Errorf("expected TOKEY_ACCOUNT_NOT_FOUND, got %v", te)
	}
}

func TestUpdateCredential_PreservesOthers(t *testing.T) {
	s := testStore(t)
	if te := s.SaveAccount("slack", slackResult("work"), false); te != nil {
		t.Fatal(te)
	}
	if te := s.SaveAccount("slack", slackResult("personal"), false); te != nil {
		t.Fatal(te)
	}

	updated := StoredCredential{
		Fields:    map[string]string{"token": "xoxc-new", "cookie": "d=xoxd-new"},
		CreatedAt: time.Now().Unix(),
	}
	if te := s.UpdateCredential("slack", "work", updated); te != nil {
		t.Fatalf("update failed: %v", te)
	}

	workCred, _ := s.GetCredential("slack", "work")
	if workCred.Fields["token"] != "xoxc-new" {
		t.Error("update did not apply")
	}
	otherCred, _ := s.GetCredential("slack", "personal")
	if otherCred.Fields["token"] != "xoxc-1" {
		t.Error("sibling credential was touched")
	}
}

func TestRecordRefreshFailure(t *testing.T) {
	s := testStore(t)
	if te := s.SaveAccount("slack", slackResult("work"), false); te != nil {
		t.Fatal(te)
	}
	for i := 0; i < 3; i++ {
		if te := s.RecordRefreshFailure("slack", "work"); te != nil {
			t.Fatal(te)
		}
	}
	cred, _ := s.GetCredential("slack", "work")
	if cred.RefreshFailures != 3 {
		t.Errorf("expected 3 recorded failures, got %d", cred.RefreshFailures)
	}

	// 成功刷新清零
	cred.RefreshFailures = 0
	if te := s.UpdateCredential("slack", "work", *cred); te != nil {
		t.Fatal(te)
	}
	cred, _ = s.GetCredential("slack", "work")
	if cred.RefreshFailures != 0 {
		t.Errorf("expected counter reset, got %d", cred.RefreshFailures)
	}
}

func TestLoad_ReconcileOrphanSecret(t *testing.T) {
	dir := t.TempDir()
	s, te := Open(Options{DataDir: dir})
	if te != nil {
		t.Fatal(te)
	}
	doc := CredentialsFile{Credentials: map[string]*StoredCredential{
		"slack/ghost": {Fields: map[string]string{"token": "x"}, CreatedAt: 1},
	}}
	b, _ := json.Marshal(doc)
	if err := os.WriteFile(filepath.Join(dir, CredentialsFileName), b, 0o600); err != nil {
		t.Fatal(err)
	}

	_, _, te = s.Load()
	if te == nil {
		t.Fatal("expected storage corrupt error")
	}
	if te.Code != "TOKEY_STORAGE_CORRUPT" {
		t.Fatalf("expected TOKEY_STORAGE_CORRUPT, got %s", te.Code)
	}
}

func TestLoad_ReconcileAccountWithoutSecret(t *testing.T) {
	dir := t.TempDir()
	s, te := Open(Options{DataDir: dir})
	if te != nil {
		t.Fatal(te)
	}
	meta := "providers:\n  slack:\n    default_account: work\n    accounts:\n      work:\n        display_name: Acme\n        created_at: 1\n"
	if err := os.WriteFile(filepath.Join(dir, "accounts.yaml"), []byte(meta), 0o600); err != nil {
		t.Fatal(err)
	}

	_, _, te = s.Load()
	if te == nil {
		t.Fatal("expected storage corrupt error")
	}
	if te.Code != "TOKEY_STORAGE_CORRUPT" {
		t.Fatalf("expected TOKEY_STORAGE_CORRUPT, got %s", te.Code)
	}
}

func TestProfileDir_IsolatedPerAccount(t *testing.T) {
	s := testStore(t)
	a := s.ProfileDir("slack", "work")
	b := s.ProfileDir("slack", "personal")
	c := s.ProfileDir("google", "work")
	if a == b || a == c || b == c {
		t.Errorf("profile dirs must be isolated: %q %q %q", a, b, c)
	}
}
