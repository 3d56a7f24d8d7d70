package main

import (
	"os"

	"github.com/zx06/tokey/internal/app"
	"github.com/zx06/tokey/internal/errors"
	"github.com/zx06/tokey/internal/output"
)

func main() {
	exit := run()
	os.Exit(exit)
}

// run is the main entry point
func run() int {
	// Initialize application
	a := app.New(version, commit, date)
	w := output.New(os.Stdout, os.Stderr)

	// Create root command
	root := NewRootCommand()

	// Add subcommands
	root.AddCommand(NewSpecCommand(&a, &w))
	root.AddCommand(NewVersionCommand(&a, &w))
	root.AddCommand(NewListCommand(&w))
	root.AddCommand(NewGetCommand(&w))
	root.AddCommand(NewAddCommand(&w))
	root.AddCommand(NewRefreshCommand(&w))
	root.AddCommand(NewRemoveCommand(&w))
	root.AddCommand(NewStatusCommand(&w))
	root.AddCommand(NewDefaultCommand(&w))
	root.AddCommand(NewValidateCommand(&w))
	root.AddCommand(NewDaemonCommand(&w))
	root.AddCommand(NewMCPCommand())

	// Execute and handle errors
	if err := root.Execute(); err != nil {
		te := normalizeErr(err)
		format := resolveFormatForError(GlobalConfig.FormatStr)
		_ = w.WriteError(format, te)
		return int(errors.ExitCodeFor(te.Code))
	}

	return int(errors.ExitOK)
}
