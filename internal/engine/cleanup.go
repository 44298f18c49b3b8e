package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/fgrehm/cradle/internal/driver"
	"github.com/fgrehm/cradle/internal/locator"
	"github.com/fgrehm/cradle/internal/volume"
)

type cleanupAction struct {
	name string
	fn   func(context.Context) error
}

// cleanupStack holds the undo actions registered by completed steps.
type cleanupStack struct {
	actions []cleanupAction
}

func (s *cleanupStack) push(name string, fn func(context.Context) error) {
	s.actions = append(s.actions, cleanupAction{name: name, fn: fn})
}

// release drops the action registered under name without running it.
func (s *cleanupStack) release(name string) {
	for i, a := range s.actions {
		if a.name == name {
			s.actions = append(s.actions[:i], s.actions[i+1:]...)
			return
		}
	}
}

// run executes every action in reverse registration order and returns one
// warning per failed action. It runs on a context detached from ctx's
// cancellation, bounded by timeout.
func (s *cleanupStack) run(ctx context.Context, timeout time.Duration, logger *slog.Logger) []string {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
	defer cancel()

	var warnings []string
	for i := len(s.actions) - 1; i >= 0; i-- {
		a := s.actions[i]
		logger.Debug("cleanup", "action", a.name)
		if err := a.fn(ctx); err != nil {
			logger.Warn("cleanup failed", "action", a.name, "error", err)
			warnings = append(warnings, fmt.Sprintf("cleanup: %s: %v", a.name, err))
		}
	}
	s.actions = nil
	return warnings
}

// CleanupFailedSpawn removes what a failed spawn may have left behind:
// every container labelled with volumeName, the volume itself (forced) and
// the local staging path. Volumes without the management label are left
// alone and reported. Both arguments are optional. Failures are
// returned as warnings; missing resources are not failures.
func (e *Engine) CleanupFailedSpawn(ctx context.Context, volumeName, bootstrapPath string) []string {
	var warnings []string
	if volumeName != "" {
		if err := e.removeManagedVolume(ctx, volumeName); err != nil {
			e.logger.Warn("cleanup failed", "volume", volumeName, "error", err)
			warnings = append(warnings, fmt.Sprintf("cleanup: volume %s: %v", volumeName, err))
		}
	}
	if bootstrapPath != "" {
		if err := os.RemoveAll(bootstrapPath); err != nil {
			e.logger.Warn("cleanup failed", "path", bootstrapPath, "error", err)
			warnings = append(warnings, fmt.Sprintf("cleanup: %s: %v", bootstrapPath, err))
		}
	}
	return warnings
}

// removeManagedVolume removes volName and its containers after checking
// that the volume carries the management label. A missing volume is not an
// error.
func (e *Engine) removeManagedVolume(ctx context.Context, volName string) error {
	vol, err := e.deps.Runtime.InspectVolume(ctx, volName)
	if driver.IsNotFound(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("inspecting volume: %w", err)
	}
	if !volume.IsManaged(vol.Labels) {
		return fmt.Errorf("refusing to remove %s: %w", volName, volume.ErrNotManaged)
	}
	return e.removeSpawnArtifacts(ctx, volName)
}

// removeSpawnArtifacts deletes the containers that reference volName and
// then the volume.
func (e *Engine) removeSpawnArtifacts(ctx context.Context, volName string) error {
	containers, err := e.deps.Runtime.ListContainers(ctx, map[string]string{locator.LabelVolume: volName})
	if err != nil {
		return fmt.Errorf("listing containers: %w", err)
	}

	var errs []error
	for _, c := range containers {
		if err := e.deleteContainer(ctx, c.ID); err != nil {
			errs = append(errs, err)
		}
	}
	if err := e.deps.Volumes.Remove(ctx, volName, true); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// deleteContainer removes a container; one that is already gone counts as
// removed.
func (e *Engine) deleteContainer(ctx context.Context, id string) error {
	if err := e.deps.Runtime.DeleteContainer(ctx, id); err != nil && !driver.IsNotFound(err) {
		return fmt.Errorf("removing container %s: %w", id, err)
	}
	return nil
}
