// Package wifi manages the kiosk's wireless connections through
// NetworkManager's nmcli.
//
// Service wraps the nmcli invocations the menus and the pairing flow need.
// Commands go through a Runner so tests can script nmcli's output.
package wifi

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/muurk/orion-kiosk/internal/logging"
)

// Runner executes an external command and returns its standard output.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// CommandError describes a failed command.
type CommandError struct {
	Command  string // command line with secrets redacted
	ExitCode int    // -1 when the command did not run to completion
	Stderr   string
	Err      error
}

// Error implements the error interface
func (e *CommandError) Error() string {
	if e.Stderr != "" {
		return fmt.Sprintf("%s: %v: %s", e.Command, e.Err, e.Stderr)
	}
	return fmt.Sprintf("%s: %v", e.Command, e.Err)
}

// Unwrap returns the underlying error for error chain inspection
func (e *CommandError) Unwrap() error {
	return e.Err
}

// IsTimeout reports whether err is a command that ran out of time.
func IsTimeout(err error) bool {
	return errors.Is(err, context.DeadlineExceeded)
}

// ExecRunner runs commands on the host.
type ExecRunner struct{}

func (ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	logging.LogCommand(name, Redact(args), time.Since(start), err)
	if err == nil {
		return stdout.Bytes(), nil
	}

	cerr := &CommandError{
		Command:  strings.Join(append([]string{name}, Redact(args)...), " "),
		ExitCode: -1,
		Stderr:   strings.TrimSpace(stderr.String()),
		Err:      err,
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		cerr.Err = ctxErr
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		cerr.ExitCode = exitErr.ExitCode()
	}
	return stdout.Bytes(), cerr
}

// Redact returns args with the value following "password" masked.
func Redact(args []string) []string {
	out := append([]string(nil), args...)
	for i := 0; i < len(out)-1; i++ {
		if out[i] == "password" {
			out[i+1] = "****"
		}
	}
	return out
}
