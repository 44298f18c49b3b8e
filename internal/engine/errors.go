package engine

import (
	"errors"
	"fmt"

	"github.com/fgrehm/cradle/internal/volume"
)

var (
	// ErrDockerUnavailable means the daemon could not be reached.
	ErrDockerUnavailable = errors.New("docker is not available")

	// ErrCLINotInstalled means the devcontainer CLI could not be run.
	ErrCLINotInstalled = errors.New("devcontainer CLI is not installed")

	// ErrBootstrapImageUnavailable means the bootstrap image is neither
	// present locally nor pullable.
	ErrBootstrapImageUnavailable = errors.New("bootstrap image unavailable")

	// ErrVolumeCreationFailed means the runtime rejected the workspace volume.
	ErrVolumeCreationFailed = volume.ErrVolumeCreationFailed

	// ErrBootstrapContainerFailed means the bootstrap container did not start.
	ErrBootstrapContainerFailed = errors.New("bootstrap container failed")

	// ErrFileCopyFailed means project files could not be copied into the volume.
	ErrFileCopyFailed = errors.New("file copy failed")

	// ErrDevcontainerUpFailed means `devcontainer up` exited nonzero.
	ErrDevcontainerUpFailed = errors.New("devcontainer up failed")

	// ErrBootstrapCleanupFailed is reported as a warning only.
	ErrBootstrapCleanupFailed = errors.New("bootstrap cleanup failed")

	// ErrEditorLaunchFailed is reported as a warning only.
	ErrEditorLaunchFailed = errors.New("editor launch failed")

	// ErrSpawnInProgress means another spawn holds the project lock.
	ErrSpawnInProgress = errors.New("another spawn is in progress for this project")

	// ErrNotImplemented is returned by SpawnRemote.
	ErrNotImplemented = errors.New("not implemented")

	// ErrInvalidOptions means SpawnOptions failed validation.
	ErrInvalidOptions = errors.New("invalid spawn options")
)

// stepError carries a user-facing message while still matching its
// sentinel with errors.Is.
type stepError struct {
	kind error
	msg  string
}

func (e *stepError) Error() string { return e.msg }
func (e *stepError) Unwrap() error { return e.kind }

func newStepError(kind error, format string, args ...any) error {
	return &stepError{kind: kind, msg: fmt.Sprintf(format, args...)}
}
