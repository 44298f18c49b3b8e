package engine

import (
	"context"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/fgrehm/cradle/internal/driver"
	"github.com/fgrehm/cradle/internal/locator"
	"github.com/fgrehm/cradle/internal/probe"
	"github.com/fgrehm/cradle/internal/process"
	"github.com/fgrehm/cradle/internal/settings"
	"github.com/fgrehm/cradle/internal/volume"
	"github.com/fgrehm/cradle/internal/workspace"
)

// DefaultCleanupTimeout bounds the cleanup that runs after a failed spawn.
const DefaultCleanupTimeout = 30 * time.Second

// EditorLauncher opens an editor attached to a container.
type EditorLauncher interface {
	Launch(ctx context.Context, container, folder string) error
}

// Deps are the collaborators an Engine drives.
type Deps struct {
	Runtime driver.Runtime
	Docker  *probe.DockerProbe
	Tools   *probe.ToolProbe
	Volumes *volume.Registry
	Locator *locator.Locator
	Runner  process.Runner
	Editor  EditorLauncher

	// Store is optional. When set, spawns are serialised per project and
	// their outcome is recorded.
	Store *workspace.Store
}

// Config tunes a spawn.
type Config struct {
	BootstrapImage string
	Ignore         []string
	LockTimeout    time.Duration
	CleanupTimeout time.Duration
}

// ConfigFromSettings maps user settings onto an engine Config.
func ConfigFromSettings(s *settings.Settings) Config {
	return Config{
		BootstrapImage: s.BootstrapImage,
		Ignore:         s.Ignore,
		LockTimeout:    s.LockTimeout.Duration,
	}
}

// Engine orchestrates volume-backed devcontainer spawns.
type Engine struct {
	deps     Deps
	cfg      Config
	logger   *slog.Logger
	stdout   io.Writer
	stderr   io.Writer
	progress func(string)
	now      func() time.Time
}

// New creates an Engine with the given dependencies.
func New(deps Deps, cfg Config, logger *slog.Logger) *Engine {
	if cfg.BootstrapImage == "" {
		cfg.BootstrapImage = settings.DefaultBootstrapImage
	}
	if cfg.LockTimeout <= 0 {
		cfg.LockTimeout = settings.DefaultLockTimeout
	}
	if cfg.CleanupTimeout <= 0 {
		cfg.CleanupTimeout = DefaultCleanupTimeout
	}
	return &Engine{
		deps:   deps,
		cfg:    cfg,
		logger: logger,
		stdout: os.Stdout,
		stderr: os.Stderr,
		now:    time.Now,
	}
}

// SetOutput overrides the default stdout and stderr writers. Image pull
// progress is written to stderr.
func (e *Engine) SetOutput(stdout, stderr io.Writer) {
	e.stdout = stdout
	e.stderr = stderr
}

// SetProgress sets a callback for user-facing progress messages.
func (e *Engine) SetProgress(fn func(string)) {
	e.progress = fn
}

// reportProgress sends a message to the progress callback (if set)
// and logs it at debug level.
func (e *Engine) reportProgress(msg string) {
	if e.progress != nil {
		e.progress(msg)
	}
	e.logger.Debug(msg)
}
