package main

import (
	"net/http"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/term"

	"github.com/zx06/tokey/internal/app"
	"github.com/zx06/tokey/internal/browser"
	"github.com/zx06/tokey/internal/errors"
	"github.com/zx06/tokey/internal/log"
	"github.com/zx06/tokey/internal/output"
	"github.com/zx06/tokey/internal/provider"
	"github.com/zx06/tokey/internal/secret"
	"github.com/zx06/tokey/internal/store"
)

// parseOutputFormat parses and validates the output format string
func parseOutputFormat(s string) (output.Format, error) {
	f := output.Format(s)
	if !output.IsValid(f) {
		return "", errors.New(errors.CodeCfgInvalid, "invalid output format", map[string]any{"format": s})
	}
	return resolveAuto(f), nil
}

// resolveFormatForError resolves the format for error output
func resolveFormatForError(s string) output.Format {
	f := output.Format(s)
	if !output.IsValid(f) {
		f = output.FormatAuto
	}
	return resolveAuto(f)
}

// resolveAuto resolves "auto" format to appropriate format based on TTY
func resolveAuto(f output.Format) output.Format {
	if f != output.FormatAuto {
		return f
	}
	if term.IsTerminal(int(os.Stdout.Fd())) {
		return output.FormatTable
	}
	return output.FormatJSON
}

// normalizeErr normalizes any error to TError
func normalizeErr(err error) *errors.TError {
	if te, ok := errors.As(err); ok {
		return te
	}
	// Preserve original error message
	return errors.Wrap(errors.CodeInternal, err.Error(), nil, err)
}

// buildApp assembles the application from the resolved configuration
func buildApp() (*app.App, *errors.TError) {
	r := GlobalConfig.Resolved

	backend, te := secret.NewBackend(r.File.SecretBackend,
		filepath.Join(r.DataDir, store.CredentialsFileName))
	if te != nil {
		return nil, te
	}
	st, te := store.Open(store.Options{
		DataDir: r.DataDir,
		Backend: backend,
	})
	if te != nil {
		return nil, te
	}

	a := app.New(version, commit, date)
	a.Store = st
	a.Resolved = r
	a.Log = log.New(os.Stderr)
	a.BaseDeps = provider.Deps{
		Extractor:  browser.New(),
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
	}
	return &a, nil
}
