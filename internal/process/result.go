package process

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

const (
	stdoutHeader = "=== STDOUT ==="
	stderrHeader = "=== STDERR ==="
)

// Result captures one external process invocation.
type Result struct {
	// Command is the executable that was run.
	Command string

	// Args are the arguments, with sensitive values already redacted.
	Args []string

	// ExitCode is the process exit status, or -1 when the process could
	// not be started or was killed before reporting one.
	ExitCode int

	Stdout   string
	Stderr   string
	Duration time.Duration
}

// Success reports whether the process exited with status 0.
func (r *Result) Success() bool {
	return r.ExitCode == 0
}

// CommandLine renders the invocation for display.
func (r *Result) CommandLine() string {
	if len(r.Args) == 0 {
		return r.Command
	}
	return r.Command + " " + strings.Join(r.Args, " ")
}

var blankRuns = regexp.MustCompile(`\n{3,}`)

// CombinedOutput returns the stdout and stderr sections, each under its own
// header. Sections that are empty (or whitespace only) are left out, and the
// result never contains two consecutive blank lines.
func (r *Result) CombinedOutput() string {
	var sections []string
	if strings.TrimSpace(r.Stdout) != "" {
		sections = append(sections, stdoutHeader+"\n"+strings.TrimRight(r.Stdout, "\n"))
	}
	if strings.TrimSpace(r.Stderr) != "" {
		sections = append(sections, stderrHeader+"\n"+strings.TrimRight(r.Stderr, "\n"))
	}
	return blankRuns.ReplaceAllString(strings.Join(sections, "\n\n"), "\n\n")
}

// FormattedDiagnostics prefixes CombinedOutput with the exit code and
// duration. It is shown verbatim to users when an invocation fails.
func (r *Result) FormattedDiagnostics() string {
	header := fmt.Sprintf("Exit code: %d\nDuration: %s", r.ExitCode, r.Duration.Round(time.Millisecond))
	out := r.CombinedOutput()
	if out == "" {
		return header + "\n(no output)"
	}
	return header + "\n\n" + out
}
