package engine

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fgrehm/cradle/internal/workspace"
)

// SpawnStep is a stage of the spawn pipeline. Steps run in declaration order.
type SpawnStep int

const (
	StepDockerCheck SpawnStep = iota
	StepDevcontainerCLICheck
	StepBootstrapImageCheck
	StepVolumeCreation
	StepBootstrapContainerStart
	StepFileCopyToBootstrap
	StepDevcontainerUp
	StepBootstrapCleanup
	StepVSCodeLaunch
	StepCompleted
)

var stepNames = [...]string{
	StepDockerCheck:             "DockerCheck",
	StepDevcontainerCLICheck:    "DevcontainerCliCheck",
	StepBootstrapImageCheck:     "BootstrapImageCheck",
	StepVolumeCreation:          "VolumeCreation",
	StepBootstrapContainerStart: "BootstrapContainerStart",
	StepFileCopyToBootstrap:     "FileCopyToBootstrap",
	StepDevcontainerUp:          "DevcontainerUp",
	StepBootstrapCleanup:        "BootstrapCleanup",
	StepVSCodeLaunch:            "VsCodeLaunch",
	StepCompleted:               "Completed",
}

func (s SpawnStep) String() string {
	if s < 0 || int(s) >= len(stepNames) {
		return fmt.Sprintf("SpawnStep(%d)", int(s))
	}
	return stepNames[s]
}

// SpawnOptions is the input of one spawn.
type SpawnOptions struct {
	// ProjectName labels the volume and seeds its name. Defaults to the
	// base name of ProjectPath.
	ProjectName string

	// ProjectPath is the absolute path of the project on the host.
	ProjectPath string

	// DevContainerPath is the absolute path of the devcontainer.json file.
	DevContainerPath string

	CopySourceFiles bool
	LaunchEditor    bool
}

// Validate checks that both paths are absolute and exist.
func (o *SpawnOptions) Validate() error {
	if !filepath.IsAbs(o.ProjectPath) {
		return fmt.Errorf("%w: project path %q is not absolute", ErrInvalidOptions, o.ProjectPath)
	}
	if info, err := os.Stat(o.ProjectPath); err != nil || !info.IsDir() {
		return fmt.Errorf("%w: project path %s is not a directory", ErrInvalidOptions, o.ProjectPath)
	}
	if !filepath.IsAbs(o.DevContainerPath) {
		return fmt.Errorf("%w: devcontainer path %q is not absolute", ErrInvalidOptions, o.DevContainerPath)
	}
	if info, err := os.Stat(o.DevContainerPath); err != nil || info.IsDir() {
		return fmt.Errorf("%w: devcontainer config %s is not a file", ErrInvalidOptions, o.DevContainerPath)
	}
	return nil
}

// SpawnResult is the outcome of one spawn. When Success is false,
// CompletedStep is the step that failed.
type SpawnResult struct {
	Success       bool
	CompletedStep SpawnStep
	Errors        []string
	Warnings      []string

	// Output of `devcontainer up`, attached whether or not it succeeded.
	DevcontainerCLIOutput string
	DevcontainerCLIStderr string

	VolumeName            string
	ContainerID           string
	RemoteWorkspaceFolder string

	// Reused is set when an existing environment was returned instead of
	// spawning a new one.
	Reused bool

	Duration time.Duration
}

func (r *SpawnResult) fail(step SpawnStep, err error) {
	r.Success = false
	r.CompletedStep = step
	r.Errors = append(r.Errors, err.Error())
}

func (r *SpawnResult) warn(msg string) {
	r.Warnings = append(r.Warnings, msg)
}

// SpawnLocal provisions a volume-backed devcontainer for opts on the local
// daemon. It never returns an error: every expected failure is reported in
// the result, after the resources created so far have been removed.
func (e *Engine) SpawnLocal(ctx context.Context, opts SpawnOptions) *SpawnResult {
	start := e.now()
	if opts.ProjectName == "" {
		opts.ProjectName = filepath.Base(opts.ProjectPath)
	}
	run := &spawnRun{
		opts:   opts,
		result: &SpawnResult{CompletedStep: StepDockerCheck},
	}
	e.logger.Debug("spawn", "project", opts.ProjectName, "path", opts.ProjectPath, "config", opts.DevContainerPath)

	defer func() {
		if run.unlock != nil {
			if err := run.unlock(); err != nil {
				e.logger.Warn("failed to release spawn lock", "error", err)
			}
		}
	}()

	e.runSteps(ctx, run)

	run.result.Duration = e.now().Sub(start)
	e.saveRecord(run, start)
	return run.result
}

// runSteps walks the step table, stopping at the first fatal failure.
func (e *Engine) runSteps(ctx context.Context, run *spawnRun) {
	for _, s := range e.steps() {
		if run.reused && s.skipOnReuse {
			continue
		}
		run.result.CompletedStep = s.step

		if !s.fatal {
			e.runOptional(ctx, s, run)
			continue
		}

		err := ctx.Err()
		if err == nil {
			e.reportProgress(s.title)
			err = s.run(ctx, run)
		}
		if err == nil {
			continue
		}

		e.logger.Debug("spawn failed", "step", s.step, "error", err)
		run.result.fail(s.step, err)
		for _, w := range run.cleanup.run(ctx, e.cfg.CleanupTimeout, e.logger) {
			run.result.warn(w)
		}
		return
	}
	run.result.Success = true
	run.result.CompletedStep = StepCompleted
}

// runOptional runs a non-fatal step. The environment is already up when
// these run, so a cancelled spawn keeps it: the step is skipped and the
// bootstrap artifacts still registered are removed on a detached context.
func (e *Engine) runOptional(ctx context.Context, s step, run *spawnRun) {
	if err := ctx.Err(); err != nil {
		e.logger.Warn(s.step.String()+" skipped", "error", err)
		run.result.warn(fmt.Sprintf("%s skipped: %v", s.step, err))
		for _, w := range run.cleanup.run(ctx, e.cfg.CleanupTimeout, e.logger) {
			run.result.warn(w)
		}
		return
	}

	e.reportProgress(s.title)
	if err := s.run(ctx, run); err != nil {
		e.logger.Warn(s.step.String()+" failed", "error", err)
		run.result.warn(err.Error())
	}
}

// SpawnRemote would spawn on a remote Docker host. It is not supported.
func (e *Engine) SpawnRemote(_ context.Context, _ SpawnOptions, host string) (*SpawnResult, error) {
	return nil, fmt.Errorf("spawning on remote host %q: %w", host, ErrNotImplemented)
}

func (e *Engine) saveRecord(run *spawnRun, start time.Time) {
	if e.deps.Store == nil || !run.validated {
		return
	}
	res := run.result
	rel, err := filepath.Rel(run.opts.ProjectPath, run.opts.DevContainerPath)
	if err != nil {
		rel = run.opts.DevContainerPath
	}
	rec := &workspace.Record{
		ID:                    workspace.IDFor(run.opts.ProjectPath),
		Source:                run.opts.ProjectPath,
		DevContainerPath:      rel,
		VolumeName:            res.VolumeName,
		ContainerID:           res.ContainerID,
		RemoteWorkspaceFolder: res.RemoteWorkspaceFolder,
		Step:                  res.CompletedStep.String(),
		Success:               res.Success,
		Reused:                res.Reused,
		Errors:                res.Errors,
		StartedAt:             start.UTC(),
		Duration:              res.Duration,
	}
	if err := e.deps.Store.Save(rec); err != nil {
		e.logger.Warn("failed to save spawn record", "error", err)
	}
}
