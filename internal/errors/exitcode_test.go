package errors

import (
	stderrors "errors"
	"testing"
)

func TestExitCodeFor(t *testing.T) {
	cases := []struct {
		code Code
		want ExitCode
	}{
		{CodeCfgNotFound, ExitConfig},
		{CodeCfgInvalid, ExitConfig},
		{CodeProviderUnknown, ExitConfig},
		{CodeAccountNotFound, ExitAccount},
		{CodeNoDefaultAccount, ExitAccount},
		{CodeDuplicateLabel, ExitAccount},
		{CodeLoginTimeout, ExitAuth},
		{CodeSessionExpired, ExitAuth},
		{CodeExtractionFailed, ExitAuth},
		{CodeProfileLocked, ExitAuth},
		{CodeCsrfMismatch, ExitAuth},
		{CodeTokenExchangeFailed, ExitAuth},
		{CodeRefreshDenied, ExitAuth},
		{CodeStorageCorrupt, ExitStorage},
		{CodePermission, ExitStorage},
		{CodeRefreshFailed, ExitPartial},
		{CodeInternal, ExitInternal},
		{Code("UNKNOWN_CODE"), ExitInternal}, // unknown code
	}
	for _, tc := range cases {
		if got := ExitCodeFor(tc.code); got != tc.want {
			t.Errorf("ExitCodeFor(%s)=%d want %d", tc.code, got, tc.want)
		}
	}
}

func TestTError_Error(t *testing.T) {
	// Without cause
	te := New(CodeCfgInvalid, "test message", nil)
	expected := "TOKEY_CFG_INVALID: test message"
	if te.Error() != expected {
		t.Errorf("Error()=%q, want %q", te.Error(), expected)
	}

	// With cause
	cause := stderrors.New("underlying error")
	te = Wrap(CodeExtractionFailed, "extraction failed", nil, cause)
	expected = "TOKEY_EXTRACTION_FAILED: extraction failed: underlying error"
	if te.Error() != expected {
		t.Errorf("Error()=%q, want %q", te.Error(), expected)
	}

	// Nil error
	var nilErr *TError
	if nilErr.Error() != "" {
		t.Errorf("nil TError.Error() should return empty string")
	}
}

func TestTError_Unwrap(t *testing.T) {
	cause := stderrors.New("cause")
	te := Wrap(CodeSessionExpired, "msg", nil, cause)
	if te.Unwrap() != cause {
		t.Error("Unwrap should return cause")
	}

	te2 := New(CodeCfgInvalid, "msg", nil)
	if te2.Unwrap() != nil {
		t.Error("Unwrap should return nil when no cause")
	}
}

func TestAs(t *testing.T) {
	te := New(CodeCfgInvalid, "test", nil)
	got, ok := As(te)
	if !ok || got != te {
		t.Error("As should return TError")
	}

	// Wrapped error
	wrapped := stderrors.Join(stderrors.New("prefix"), te)
	got, ok = As(wrapped)
	if !ok || got != te {
		t.Error("As should unwrap to find TError")
	}

	// Non-TError
	_, ok = As(stderrors.New("plain error"))
	if ok {
		t.Error("As should return false for non-TError")
	}
}

func TestIs(t *testing.T) {
	te := New(CodeCsrfMismatch, "state mismatch", nil)
	if !Is(te, CodeCsrfMismatch) {
		t.Error("Is should match the carried code")
	}
	if Is(te, CodeLoginTimeout) {
		t.Error("Is should not match a different code")
	}
	if Is(stderrors.New("plain"), CodeInternal) {
		t.Error("Is should be false for non-TError")
	}
}

func TestAllCodes(t *testing.T) {
	codes := AllCodes()
	if len(codes) != 17 {
		t.Errorf("AllCodes() should return 17 codes, got %d", len(codes))
	}

	// Check for duplicates
	seen := make(map[Code]bool)
	for _, c := range codes {
		if seen[c] {
			t.Errorf("Duplicate code: %s", c)
		}
		seen[c] = true
	}
}
