package probe

import (
	"context"
	"log/slog"
	"strings"

	"github.com/fgrehm/cradle/internal/editor"
	"github.com/fgrehm/cradle/internal/process"
)

// DefaultDevcontainerCommand is the devcontainer CLI executable.
const DefaultDevcontainerCommand = "devcontainer"

// ToolProbe checks for the external executables a spawn shells out to.
type ToolProbe struct {
	runner       process.Runner
	devcontainer string
	finder       *editor.Finder
	logger       *slog.Logger
}

// NewToolProbe creates a ToolProbe. An empty devcontainer command defaults
// to "devcontainer".
func NewToolProbe(runner process.Runner, devcontainer string, finder *editor.Finder, logger *slog.Logger) *ToolProbe {
	if devcontainer == "" {
		devcontainer = DefaultDevcontainerCommand
	}
	return &ToolProbe{runner: runner, devcontainer: devcontainer, finder: finder, logger: logger}
}

// DevcontainerCommand returns the configured CLI executable.
func (p *ToolProbe) DevcontainerCommand() string {
	return p.devcontainer
}

// DevcontainerCLIInstalled runs `devcontainer --version`. The CLI counts as
// installed only when the command starts and exits 0; the trimmed first line
// of its output is returned as the version.
func (p *ToolProbe) DevcontainerCLIInstalled(ctx context.Context) (bool, string) {
	res, err := p.runner.Run(ctx, p.devcontainer, "--version")
	if err != nil {
		p.logger.Debug("devcontainer CLI not runnable", "error", err)
		return false, ""
	}
	if !res.Success() {
		p.logger.Debug("devcontainer --version failed", "exit", res.ExitCode, "stderr", strings.TrimSpace(res.Stderr))
		return false, ""
	}
	version, _, _ := strings.Cut(strings.TrimSpace(res.Stdout), "\n")
	return true, strings.TrimSpace(version)
}

// EditorInstalled reports whether the editor can be located.
func (p *ToolProbe) EditorInstalled() (bool, *editor.Installation) {
	inst, err := p.finder.Find()
	if err != nil {
		p.logger.Debug("editor not found", "error", err)
		return false, nil
	}
	return true, inst
}
