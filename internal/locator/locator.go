// Package locator finds a devcontainer previously spawned for a project.
package locator

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/fgrehm/cradle/internal/driver"
)

// Container labels shared by spawned environments and bootstrap containers.
const (
	// LabelLocalFolder is set by the devcontainer CLI to the host project path.
	LabelLocalFolder = "devcontainer.local_folder"

	// LabelVolume names the workspace volume a container was spawned with.
	LabelVolume = "cradle.volume"

	// LabelBootstrap marks short-lived containers used to fill a volume.
	LabelBootstrap = "cradle.bootstrap"
)

// Environment describes an existing devcontainer for a project.
type Environment struct {
	ContainerID string
	Name        string
	VolumeName  string
	Running     bool
	Status      string
}

// Locator queries the runtime for environments by project path.
type Locator struct {
	runtime driver.Runtime
	logger  *slog.Logger
}

// New creates a Locator.
func New(rt driver.Runtime, logger *slog.Logger) *Locator {
	return &Locator{runtime: rt, logger: logger}
}

// Find returns the environment whose local-folder label equals the
// normalized projectPath, or nil when there is none. Containers being
// removed and bootstrap containers are ignored. A running match is
// preferred over a stopped one.
func (l *Locator) Find(ctx context.Context, projectPath string) (*Environment, error) {
	abs, err := filepath.Abs(projectPath)
	if err != nil {
		return nil, fmt.Errorf("resolving project path: %w", err)
	}
	abs = filepath.Clean(abs)

	containers, err := l.runtime.ListContainers(ctx, map[string]string{LabelLocalFolder: abs})
	if err != nil {
		return nil, fmt.Errorf("listing containers for %s: %w", abs, err)
	}

	var found *Environment
	for _, c := range containers {
		// The runtime filter is a hint; compare exactly.
		if c.Labels[LabelLocalFolder] != abs {
			continue
		}
		if c.State.IsRemoving() || c.Labels[LabelBootstrap] == "true" {
			l.logger.Debug("skipping container", "id", c.ID, "status", c.State.Status)
			continue
		}
		env := &Environment{
			ContainerID: c.ID,
			Name:        c.Name,
			VolumeName:  c.Labels[LabelVolume],
			Running:     c.State.IsRunning(),
			Status:      c.State.Status,
		}
		if env.Running {
			return env, nil
		}
		if found == nil {
			found = env
		}
	}
	return found, nil
}
