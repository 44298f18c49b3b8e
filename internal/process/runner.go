// Package process runs external commands and captures their output for
// diagnostics.
package process

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strings"
	"time"
)

// Runner runs an external command to completion. A nonzero exit status is
// not an error: it is reported through Result.ExitCode and the caller
// decides. The returned error is non-nil only when the process could not be
// started or ctx ended first; the Result is never nil.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (*Result, error)
}

// Exec implements Runner with os/exec.
type Exec struct {
	logger *slog.Logger

	// Stdout and Stderr, when set, receive a live copy of the output in
	// addition to the captured buffers.
	Stdout io.Writer
	Stderr io.Writer

	// Dir is the working directory; empty means the current one.
	Dir string
}

// NewExec creates an Exec that logs invocations to logger.
func NewExec(logger *slog.Logger) *Exec {
	return &Exec{logger: logger}
}

// Run executes name with args and collects its output.
func (e *Exec) Run(ctx context.Context, name string, args ...string) (*Result, error) {
	scrubbed := scrubArgs(args)
	e.logger.Debug("exec", "cmd", name, "args", scrubbed)

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = e.Dir
	cmd.Stdout = tee(&stdout, e.Stdout)
	cmd.Stderr = tee(&stderr, e.Stderr)

	start := time.Now()
	err := cmd.Run()
	res := &Result{
		Command:  name,
		Args:     scrubbed,
		ExitCode: 0,
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Duration: time.Since(start),
	}

	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && ctx.Err() == nil {
			res.ExitCode = exitErr.ExitCode()
			e.logger.Debug("exec finished", "cmd", res.CommandLine(), "exit", res.ExitCode, "duration", res.Duration)
			return res, nil
		}
		res.ExitCode = -1
		if ctxErr := ctx.Err(); ctxErr != nil {
			return res, fmt.Errorf("%s %v: %w", name, scrubbed, ctxErr)
		}
		return res, fmt.Errorf("%s %v: %w", name, scrubbed, err)
	}

	e.logger.Debug("exec finished", "cmd", res.CommandLine(), "exit", 0, "duration", res.Duration)
	return res, nil
}

func tee(buf *bytes.Buffer, w io.Writer) io.Writer {
	if w == nil {
		return buf
	}
	return io.MultiWriter(buf, w)
}

// sensitiveKeys contains substrings that identify env var names whose values
// should be redacted from logs and diagnostics.
var sensitiveKeys = []string{
	"TOKEN", "SECRET", "KEY", "PASSWORD", "PASSPHRASE",
	"CREDENTIAL", "AUTH_SOCK",
}

// scrubArgs returns a copy of args with sensitive VAR=VALUE pairs following
// -e or --remote-env redacted. Only the value is replaced; the variable
// name is preserved for debugging.
func scrubArgs(args []string) []string {
	result := make([]string, len(args))
	copy(result, args)
	for i, arg := range result {
		if i == 0 {
			continue
		}
		if prev := args[i-1]; prev != "-e" && prev != "--remote-env" {
			continue
		}
		if k, _, ok := strings.Cut(arg, "="); ok && isSensitiveKey(k) {
			result[i] = k + "=***"
		}
	}
	return result
}

// isSensitiveKey returns true if the env var name contains a sensitive substring.
func isSensitiveKey(name string) bool {
	upper := strings.ToUpper(name)
	for _, key := range sensitiveKeys {
		if strings.Contains(upper, key) {
			return true
		}
	}
	return false
}
