package engine

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/go-containerregistry/pkg/name"

	"github.com/fgrehm/cradle/internal/config"
	"github.com/fgrehm/cradle/internal/driver"
	"github.com/fgrehm/cradle/internal/locator"
	"github.com/fgrehm/cradle/internal/volume"
	"github.com/fgrehm/cradle/internal/workspace"
)

const (
	// bootstrapMountPath is where the workspace volume is mounted in the
	// bootstrap container.
	bootstrapMountPath = "/workspace"

	// remoteWorkspaceRoot is the parent of the workspace folder inside the
	// devcontainer.
	remoteWorkspaceRoot = "/workspaces"

	cleanupVolume    = "remove volume"
	cleanupBootstrap = "remove bootstrap container"
	cleanupStaging   = "remove staging directory"
)

// spawnRun is the mutable state of one SpawnLocal call.
type spawnRun struct {
	opts    SpawnOptions
	result  *SpawnResult
	cleanup cleanupStack

	unlock    func() error
	validated bool
	reused    bool

	devConfig     *config.DevContainerConfig
	image         string
	bootstrapID   string
	stagingDir    string
	stagedConfig  string
	containerName string
}

// step is one row of the spawn table. Fatal steps stop the spawn and run
// the registered cleanups; non-fatal ones only add a warning.
type step struct {
	step        SpawnStep
	title       string
	fatal       bool
	skipOnReuse bool
	run         func(context.Context, *spawnRun) error
}

func (e *Engine) steps() []step {
	return []step{
		{StepDockerCheck, "Checking Docker", true, false, e.checkDocker},
		{StepDevcontainerCLICheck, "Checking devcontainer CLI", true, false, e.checkDevcontainerCLI},
		{StepBootstrapImageCheck, "Preparing bootstrap image", true, false, e.ensureBootstrapImage},
		{StepVolumeCreation, "Creating workspace volume", true, false, e.createVolume},
		{StepBootstrapContainerStart, "Starting bootstrap container", true, true, e.startBootstrap},
		{StepFileCopyToBootstrap, "Copying project files", true, true, e.copyFiles},
		{StepDevcontainerUp, "Building devcontainer", true, true, e.devcontainerUp},
		{StepBootstrapCleanup, "Removing bootstrap container", false, true, e.removeBootstrap},
		{StepVSCodeLaunch, "Opening editor", false, false, e.launchEditor},
	}
}

func (e *Engine) checkDocker(ctx context.Context, run *spawnRun) error {
	if err := run.opts.Validate(); err != nil {
		return err
	}
	run.validated = true

	cfg, err := config.Parse(run.opts.DevContainerPath)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidOptions, err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidOptions, err)
	}
	run.devConfig = cfg

	avail := e.deps.Docker.Check(ctx)
	if !avail.IsAvailable {
		return newStepError(ErrDockerUnavailable, "%s", avail.Message)
	}
	e.logger.Debug("docker available", "version", avail.Version)
	return nil
}

func (e *Engine) checkDevcontainerCLI(ctx context.Context, _ *spawnRun) error {
	ok, version := e.deps.Tools.DevcontainerCLIInstalled(ctx)
	if !ok {
		return newStepError(ErrCLINotInstalled,
			"devcontainer CLI (%s) is not installed; install it with: npm install -g @devcontainers/cli",
			e.deps.Tools.DevcontainerCommand())
	}
	e.logger.Debug("devcontainer CLI found", "version", version)
	return nil
}

// normalizeImage expands a short image reference (alpine:3.20) into its
// fully qualified form.
func normalizeImage(ref string) (string, error) {
	r, err := name.ParseReference(ref)
	if err != nil {
		return "", err
	}
	return r.Name(), nil
}

func (e *Engine) ensureBootstrapImage(ctx context.Context, run *spawnRun) error {
	image, err := normalizeImage(e.cfg.BootstrapImage)
	if err != nil {
		return newStepError(ErrBootstrapImageUnavailable, "invalid bootstrap image %q: %v", e.cfg.BootstrapImage, err)
	}
	run.image = image

	_, err = e.deps.Runtime.InspectImage(ctx, image)
	if err == nil {
		return nil
	}
	if !driver.IsNotFound(err) {
		return newStepError(ErrBootstrapImageUnavailable, "inspecting bootstrap image %s: %v", image, err)
	}

	e.reportProgress("Pulling " + image)
	if err := e.deps.Runtime.PullImage(ctx, image, e.stderr); err != nil {
		return newStepError(ErrBootstrapImageUnavailable, "pulling bootstrap image %s: %v", image, err)
	}
	return nil
}

func (e *Engine) createVolume(ctx context.Context, run *spawnRun) error {
	if e.deps.Store != nil {
		unlock, err := e.deps.Store.Lock(ctx, workspace.IDFor(run.opts.ProjectPath), e.cfg.LockTimeout)
		if errors.Is(err, workspace.ErrLocked) {
			return newStepError(ErrSpawnInProgress, "another spawn is in progress for %s", run.opts.ProjectPath)
		}
		if err != nil {
			return fmt.Errorf("locking project: %w", err)
		}
		run.unlock = unlock
	}

	env, err := e.deps.Locator.Find(ctx, run.opts.ProjectPath)
	if err != nil {
		return fmt.Errorf("looking up existing environment: %w", err)
	}
	if env != nil {
		return e.reuse(ctx, run, env)
	}

	volName := volume.GenerateName(run.opts.ProjectName)
	if _, err := e.deps.Volumes.Create(ctx, volName, run.opts.ProjectName); err != nil {
		return err
	}
	run.result.VolumeName = volName
	run.cleanup.push(cleanupVolume, func(ctx context.Context) error {
		return e.removeSpawnArtifacts(ctx, volName)
	})
	return nil
}

// reuse points the result at an environment spawned earlier, starting it
// when it is stopped.
func (e *Engine) reuse(ctx context.Context, run *spawnRun, env *locator.Environment) error {
	if !env.Running {
		e.reportProgress("Starting existing environment")
		if err := e.deps.Runtime.StartContainer(ctx, env.ContainerID); err != nil {
			return fmt.Errorf("starting existing container %s: %w", env.ContainerID, err)
		}
	} else {
		e.reportProgress("Environment already running")
	}

	run.reused = true
	run.containerName = env.Name
	run.result.Reused = true
	run.result.ContainerID = env.ContainerID
	run.result.VolumeName = env.VolumeName
	run.result.RemoteWorkspaceFolder = remoteFolder(run.opts.ProjectName)

	if e.deps.Store != nil {
		if rec, err := e.deps.Store.Load(workspace.IDFor(run.opts.ProjectPath)); err == nil &&
			rec.ContainerID == env.ContainerID && rec.RemoteWorkspaceFolder != "" {
			run.result.RemoteWorkspaceFolder = rec.RemoteWorkspaceFolder
		}
	}
	return nil
}

func (e *Engine) startBootstrap(ctx context.Context, run *spawnRun) error {
	volName := run.result.VolumeName
	id, err := e.deps.Runtime.RunContainer(ctx, &driver.RunOptions{
		Name:       "cradle-bootstrap-" + strings.TrimPrefix(volName, volume.NamePrefix),
		Image:      run.image,
		Entrypoint: []string{"tail"},
		Cmd:        []string{"-f", "/dev/null"},
		WorkingDir: bootstrapMountPath,
		Labels: map[string]string{
			volume.LabelManagedBy:   "cradle",
			locator.LabelBootstrap: "true",
			locator.LabelVolume:    volName,
		},
		Mounts: []driver.Mount{{Type: "volume", Source: volName, Target: bootstrapMountPath}},
	})
	if err != nil {
		return newStepError(ErrBootstrapContainerFailed, "starting bootstrap container: %v", err)
	}
	run.bootstrapID = id
	run.cleanup.push(cleanupBootstrap, func(ctx context.Context) error {
		return e.deleteContainer(ctx, id)
	})
	return nil
}

func (e *Engine) copyFiles(ctx context.Context, run *spawnRun) error {
	stagingDir, err := os.MkdirTemp("", "cradle-stage-")
	if err != nil {
		return newStepError(ErrFileCopyFailed, "creating staging directory: %v", err)
	}
	run.stagingDir = stagingDir
	run.cleanup.push(cleanupStaging, func(context.Context) error {
		return os.RemoveAll(stagingDir)
	})

	staged, err := stageConfig(run.opts.ProjectPath, run.opts.DevContainerPath, stagingDir, config.VolumeRewrite{
		Volume:    run.result.VolumeName,
		Folder:    remoteFolder(run.opts.ProjectName),
		ConfigDir: filepath.Dir(run.opts.DevContainerPath),
	})
	if err != nil {
		return newStepError(ErrFileCopyFailed, "staging devcontainer config: %v", err)
	}
	run.stagedConfig = staged

	if run.opts.CopySourceFiles {
		matcher, err := ignoreMatcher(run.opts.ProjectPath, e.cfg.Ignore)
		if err != nil {
			return newStepError(ErrFileCopyFailed, "reading ignore patterns: %v", err)
		}
		if err := e.copyTree(ctx, run.bootstrapID, run.opts.ProjectPath, "", matcher); err != nil {
			return newStepError(ErrFileCopyFailed, "copying project files: %v", err)
		}
		return nil
	}

	sub, ok := configSubtree(run.opts.ProjectPath, run.opts.DevContainerPath)
	if !ok {
		e.logger.Debug("devcontainer config is outside the project, not copying it into the volume")
		return nil
	}
	if err := e.copyTree(ctx, run.bootstrapID, run.opts.ProjectPath, sub, nil); err != nil {
		return newStepError(ErrFileCopyFailed, "copying devcontainer config: %v", err)
	}
	return nil
}

func (e *Engine) devcontainerUp(ctx context.Context, run *spawnRun) error {
	folder := remoteFolder(run.opts.ProjectName)
	args := upArgs(run.opts.ProjectPath, run.stagedConfig, run.result.VolumeName)

	res, err := e.deps.Runner.Run(ctx, e.deps.Tools.DevcontainerCommand(), args...)
	if res != nil {
		run.result.DevcontainerCLIOutput = res.Stdout
		run.result.DevcontainerCLIStderr = res.Stderr
	}
	if err != nil {
		diag := ""
		if res != nil {
			diag = "\n\n" + res.FormattedDiagnostics()
		}
		return newStepError(ErrDevcontainerUpFailed, "running devcontainer up: %v%s", err, diag)
	}
	if !res.Success() {
		return newStepError(ErrDevcontainerUpFailed, "devcontainer up failed\n\n%s", res.FormattedDiagnostics())
	}

	out, err := parseUpOutput(res.Stdout)
	switch {
	case err != nil:
		e.logger.Warn("could not read devcontainer up result", "error", err)
	case out.Outcome != "success":
		return newStepError(ErrDevcontainerUpFailed, "devcontainer up reported %s: %s", out.Outcome, out.errorText())
	default:
		run.result.ContainerID = out.ContainerID
		if out.RemoteWorkspaceFolder != "" {
			folder = out.RemoteWorkspaceFolder
		}
	}
	run.result.RemoteWorkspaceFolder = folder

	// The environment exists now; later failures must not take the volume
	// with them.
	run.cleanup.release(cleanupVolume)
	return nil
}

func (e *Engine) removeBootstrap(ctx context.Context, run *spawnRun) error {
	var errs []error
	if run.bootstrapID != "" {
		if err := e.deleteContainer(ctx, run.bootstrapID); err != nil {
			errs = append(errs, err)
		} else {
			run.cleanup.release(cleanupBootstrap)
		}
	}
	if run.stagingDir != "" {
		if err := os.RemoveAll(run.stagingDir); err != nil {
			errs = append(errs, err)
		} else {
			run.cleanup.release(cleanupStaging)
		}
	}
	if err := errors.Join(errs...); err != nil {
		return newStepError(ErrBootstrapCleanupFailed, "removing bootstrap artifacts: %v", err)
	}
	return nil
}

func (e *Engine) launchEditor(ctx context.Context, run *spawnRun) error {
	if !run.opts.LaunchEditor || e.deps.Editor == nil {
		return nil
	}

	target := e.containerName(ctx, run)
	if target == "" {
		return newStepError(ErrEditorLaunchFailed, "could not open editor: no name known for container %q", run.result.ContainerID)
	}

	if err := e.deps.Editor.Launch(ctx, target, run.result.RemoteWorkspaceFolder); err != nil {
		return newStepError(ErrEditorLaunchFailed, "could not open editor: %v", err)
	}
	return nil
}

// containerName returns the name of the spawned devcontainer. The editor
// attaches by name only, so an empty result means it cannot be opened.
func (e *Engine) containerName(ctx context.Context, run *spawnRun) string {
	if run.containerName != "" {
		return run.containerName
	}
	if env, err := e.deps.Locator.Find(ctx, run.opts.ProjectPath); err == nil && env != nil && env.Name != "" {
		return env.Name
	}

	id := run.result.ContainerID
	if id == "" || run.result.VolumeName == "" {
		return ""
	}
	containers, err := e.deps.Runtime.ListContainers(ctx, map[string]string{locator.LabelVolume: run.result.VolumeName})
	if err != nil {
		e.logger.Debug("listing containers for editor", "error", err)
		return ""
	}
	for _, c := range containers {
		if c.ID == id {
			return c.Name
		}
	}
	return ""
}

// remoteFolder is the workspace path inside the devcontainer.
func remoteFolder(project string) string {
	return remoteWorkspaceRoot + "/" + workspace.Slugify(project)
}

func upArgs(projectPath, configPath, volName string) []string {
	return []string{
		"up",
		"--workspace-folder", projectPath,
		"--config", configPath,
		"--id-label", locator.LabelLocalFolder + "=" + projectPath,
		"--id-label", locator.LabelVolume + "=" + volName,
		"--log-format", "text",
	}
}
