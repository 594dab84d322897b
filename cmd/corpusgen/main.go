// Package main provides the corpusgen CLI entrypoint.
//
// corpusgen writes TLV corpus files for the curl fuzzer.
//
// Usage:
//
//	corpusgen <command> [subcommand] [options]
//
// Exit codes for generate and batch:
//   - 0: success
//   - 1: failure (invalid input, I/O error, publish error)
//   - 2: exception (unexpected runtime fault)
package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/justapithecus/corpusgen/cli/cmd"
	"github.com/justapithecus/corpusgen/types"
)

// Commit is set via ldflags at build time.
var commit = "unknown"

func main() {
	app := newApp()
	if err := app.Run(os.Args); err != nil {
		// ExitErrHandler already exited for cli.ExitCoder errors.
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:    "corpusgen",
		Usage:   "Generate TLV corpus files for the curl fuzzer",
		Version: fmt.Sprintf("%s (commit: %s)", types.Version, commit),
		// Header values routinely contain commas.
		DisableSliceFlagSeparator: true,
		ExitErrHandler:            exitErrHandler,
		Commands: []*cli.Command{
			cmd.GenerateCommand(),
			cmd.BatchCommand(),
			cmd.ListCommand(),
			cmd.VersionCommand(commit),
		},
	}
}

// exitErrHandler preserves exit codes from cli.Exit().
func exitErrHandler(_ *cli.Context, err error) {
	if err == nil {
		return
	}
	os.Exit(reportExit(os.Stderr, err))
}

// reportExit prints err to w when it carries a real message and returns the
// process exit code.
func reportExit(w io.Writer, err error) int {
	var exitCoder cli.ExitCoder
	if errors.As(err, &exitCoder) {
		code := exitCoder.ExitCode()
		msg := exitCoder.Error()

		// cli.Exit("", N).Error() is "exit status N"
		if msg != "" && msg != fmt.Sprintf("exit status %d", code) {
			fmt.Fprintln(w, msg)
		}
		return code
	}

	fmt.Fprintf(w, "Error: %v\n", err)
	return types.StatusFailure.ExitCode()
}
