package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/fgrehm/cradle/internal/driver"
	"github.com/fgrehm/cradle/internal/driver/docker"
	"github.com/fgrehm/cradle/internal/editor"
	"github.com/fgrehm/cradle/internal/engine"
	"github.com/fgrehm/cradle/internal/locator"
	"github.com/fgrehm/cradle/internal/probe"
	"github.com/fgrehm/cradle/internal/process"
	"github.com/fgrehm/cradle/internal/settings"
	"github.com/fgrehm/cradle/internal/ui"
	"github.com/fgrehm/cradle/internal/volume"
	"github.com/fgrehm/cradle/internal/workspace"
)

var (
	debugFlag     bool
	verboseFlag   bool
	configDirFlag string
	dirFlag       string
	logger        *slog.Logger

	// rc holds the project's .cradlerc, if any. Loaded before every command.
	rc *cradleRC
)

// Version variables injected at build time.
var (
	Version = "dev"
	Commit  = "unknown"
	Built   = "unknown"
)

var rootCmd = &cobra.Command{
	Use:     "cradle",
	Short:   "Spawn devcontainers into Docker volumes",
	Version: Version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level := slog.LevelWarn
		if debugFlag {
			level = slog.LevelDebug
		}
		logger = newLogger(level)

		rc = nil
		loaded, err := loadCradleRC(rcDir())
		switch {
		case err != nil:
			logger.Debug("could not load .cradlerc", "error", err)
		case loaded != nil:
			rc = loaded
		}

		// Apply .cradlerc defaults for flags not explicitly set by the user.
		flags := cmd.Root().PersistentFlags()
		if rc != nil && rc.Config != "" && !flags.Changed("config") && !flags.Changed("dir") {
			configDirFlag = rc.Config
			logger.Debug("loaded config dir from .cradlerc", "dir", rc.Config)
		}
		return nil
	},
	SilenceErrors: true,
	SilenceUsage:  true,
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&debugFlag, "debug", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "V", false, "stream output from the devcontainer CLI and image pulls")
	rootCmd.PersistentFlags().StringVarP(&configDirFlag, "config", "C", "", "devcontainer config directory (e.g. .devcontainer/python)")
	rootCmd.PersistentFlags().StringVarP(&dirFlag, "dir", "d", "", "project directory to operate on (defaults to current directory)")
	rootCmd.MarkFlagsMutuallyExclusive("config", "dir")
	rootCmd.SetVersionTemplate(fmt.Sprintf("cradle version %s\n", Version))
	rootCmd.AddCommand(spawnCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(volumesCmd)
	rootCmd.AddCommand(cleanupCmd)
	rootCmd.AddCommand(doctorCmd)
	rootCmd.AddCommand(versionCmd)
}

// Execute runs the root command with signal handling.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger = newLogger(slog.LevelWarn)
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		u := newUI()
		u.Error(err.Error())
		fmt.Fprintf(os.Stderr, "\ncradle %s (%s)\n", Version, Commit)
		os.Exit(1)
	}
}

func newLogger(level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				if t, ok := a.Value.Any().(time.Time); ok {
					a.Value = slog.TimeValue(t.UTC())
				}
			}
			return a
		},
	}))
}

// newUI creates a UI that writes to stdout and stderr.
func newUI() *ui.UI {
	return ui.New(os.Stdout, os.Stderr)
}

// app bundles the collaborators built from settings for one command.
type app struct {
	settings *settings.Settings
	store    *workspace.Store
	docker   *probe.DockerProbe
	tools    *probe.ToolProbe
	engine   *engine.Engine

	// runtime is nil when the Docker client could not be configured;
	// runtimeErr says why.
	runtime    driver.Runtime
	runtimeErr error
	volumes    *volume.Registry
	locator    *locator.Locator
}

// newApp loads settings and wires the Docker driver, probes, workspace
// store and engine. A Docker client that cannot be configured is not an
// error here: the probes report it and requireRuntime refuses to go on.
func newApp() (*app, error) {
	s, err := settings.Load()
	if err != nil {
		return nil, err
	}

	store, err := workspace.NewStore(s.WorkspacesDir(), s.LocksDir())
	if err != nil {
		return nil, fmt.Errorf("initializing workspace store: %w", err)
	}

	a := &app{settings: s, store: store}
	if d, err := docker.NewDockerDriver(logger); err != nil {
		logger.Debug("docker client unavailable", "error", err)
		a.runtimeErr = err
	} else {
		a.runtime = d
	}

	live := verboseFlag || debugFlag
	runner := process.NewExec(logger)
	if live {
		runner.Stdout = os.Stderr
		runner.Stderr = os.Stderr
	}

	finder := editor.NewFinder(s.EditorCommand)
	a.docker = probe.NewDockerProbe(a.runtime, a.runtimeErr, s.DockerTimeout.Duration, logger)
	a.tools = probe.NewToolProbe(runner, s.DevcontainerCommand, finder, logger)
	a.volumes = volume.NewRegistry(a.runtime, logger)
	a.locator = locator.New(a.runtime, logger)

	a.engine = engine.New(engine.Deps{
		Runtime: a.runtime,
		Docker:  a.docker,
		Tools:   a.tools,
		Volumes: a.volumes,
		Locator: a.locator,
		Runner:  runner,
		Editor:  editor.NewLauncher(runner, finder, logger),
		Store:   store,
	}, engine.ConfigFromSettings(s), logger)

	var pullOutput io.Writer = io.Discard
	if live {
		pullOutput = os.Stderr
	}
	a.engine.SetOutput(os.Stdout, pullOutput)
	return a, nil
}

// requireRuntime fails when there is no usable Docker client. Commands
// that talk to the daemon directly call it first.
func (a *app) requireRuntime(ctx context.Context) error {
	if avail := a.docker.Check(ctx); !avail.IsAvailable {
		return fmt.Errorf("%w: %s", engine.ErrDockerUnavailable, avail.Message)
	}
	return nil
}

// resolveProject finds the project and its devcontainer config from the
// current directory, the --config directory (or .cradlerc) or --dir.
func resolveProject() (*workspace.ResolveResult, error) {
	switch {
	case configDirFlag != "":
		return workspace.ResolveConfigDir(configDirFlag)
	case dirFlag != "":
		return workspace.Resolve(dirFlag)
	}
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("getting working directory: %w", err)
	}
	return workspace.Resolve(cwd)
}

// rcDir is the directory searched for .cradlerc.
func rcDir() string {
	if dirFlag != "" {
		return dirFlag
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "."
	}
	return cwd
}

// versionString returns a formatted version string for display.
// For dev builds, includes commit and build timestamp.
func versionString() string {
	v := "cradle " + Version
	if strings.Contains(Version, "-dev") && Commit != "unknown" {
		v += " (" + Commit
		if Built != "unknown" {
			v += ", " + Built
		}
		v += ")"
	}
	return v
}

// shortID returns the first 12 characters of a container ID.
func shortID(id string) string {
	if len(id) <= 12 {
		return id
	}
	return id[:12]
}
