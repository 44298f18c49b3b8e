package editor

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/fgrehm/cradle/internal/process"
)

// Launcher opens the editor attached to a container.
type Launcher struct {
	runner process.Runner
	finder *Finder
	logger *slog.Logger
}

// NewLauncher creates a Launcher that resolves the editor with finder and
// starts it through runner.
func NewLauncher(runner process.Runner, finder *Finder, logger *slog.Logger) *Launcher {
	return &Launcher{runner: runner, finder: finder, logger: logger}
}

// Launch opens folder inside container (name or ID) in a new editor window.
func (l *Launcher) Launch(ctx context.Context, container, folder string) error {
	inst, err := l.finder.Find()
	if err != nil {
		return err
	}

	uri := AttachedContainerURI(container, folder)
	l.logger.Debug("launching editor", "path", inst.Path, "uri", uri)

	res, err := l.runner.Run(ctx, inst.Path, "--folder-uri", uri)
	if err != nil {
		return fmt.Errorf("starting %s: %w", inst.Path, err)
	}
	if !res.Success() {
		return fmt.Errorf("%s exited with code %d: %s", inst.Path, res.ExitCode, strings.TrimSpace(res.Stderr))
	}
	return nil
}

// AttachedContainerURI builds the remote URI the editor uses to attach to a
// running container: the authority carries the hex-encoded JSON
// {"containerName":"/<name>"} and the path is the folder to open.
func AttachedContainerURI(container, folder string) string {
	name := container
	if !strings.HasPrefix(name, "/") {
		name = "/" + name
	}
	payload, _ := json.Marshal(struct {
		ContainerName string `json:"containerName"`
	}{name})

	if folder == "" {
		folder = "/"
	} else if !strings.HasPrefix(folder, "/") {
		folder = "/" + folder
	}
	return "vscode-remote://attached-container+" + hex.EncodeToString(payload) + folder
}
