package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/fgrehm/cradle/internal/driver"
	"github.com/fgrehm/cradle/internal/driver/drivertest"
	"github.com/fgrehm/cradle/internal/locator"
	"github.com/fgrehm/cradle/internal/probe"
	"github.com/fgrehm/cradle/internal/process"
	"github.com/fgrehm/cradle/internal/settings"
	"github.com/fgrehm/cradle/internal/volume"
	"github.com/fgrehm/cradle/internal/workspace"
)

// fakeRunner stands in for the devcontainer CLI.
type fakeRunner struct {
	mu    sync.Mutex
	calls [][]string

	versionErr error

	// up handles `devcontainer up`. When nil, upSuccess is used.
	up func(args []string) (*process.Result, error)
}

func (f *fakeRunner) Run(ctx context.Context, name string, args ...string) (*process.Result, error) {
	f.mu.Lock()
	f.calls = append(f.calls, append([]string{name}, args...))
	f.mu.Unlock()

	res := &process.Result{Command: name, Args: args}
	if err := ctx.Err(); err != nil {
		res.ExitCode = -1
		return res, err
	}
	if len(args) == 0 {
		return res, nil
	}
	switch args[0] {
	case "--version":
		if f.versionErr != nil {
			res.ExitCode = -1
			return res, f.versionErr
		}
		res.Stdout = "0.71.0\n"
		return res, nil
	case "up":
		if f.up != nil {
			return f.up(args)
		}
	}
	return res, nil
}

func (f *fakeRunner) ranUp() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.calls {
		if len(c) > 1 && c[1] == "up" {
			return true
		}
	}
	return false
}

// flagValues returns every value passed for flag in args.
func flagValues(args []string, flag string) []string {
	var out []string
	for i := 0; i < len(args)-1; i++ {
		if args[i] == flag {
			out = append(out, args[i+1])
		}
	}
	return out
}

// devContainerFromUp registers the container `devcontainer up` would create
// for args on rt.
func devContainerFromUp(rt *drivertest.Runtime, args []string, status string) string {
	labels := make(map[string]string)
	var vol string
	for _, l := range flagValues(args, "--id-label") {
		k, v, _ := strings.Cut(l, "=")
		labels[k] = v
		if k == locator.LabelVolume {
			vol = v
		}
	}
	return rt.AddContainer(driver.ContainerDetails{
		Name:   "dev-" + strings.TrimPrefix(vol, volume.NamePrefix),
		Image:  "vsc-myapp",
		State:  driver.ContainerState{Status: status},
		Labels: labels,
		Mounts: []driver.Mount{{Type: "volume", Source: vol, Target: "/workspaces/myapp"}},
	})
}

// upSuccess simulates a successful `devcontainer up`.
func upSuccess(rt *drivertest.Runtime) func([]string) (*process.Result, error) {
	return func(args []string) (*process.Result, error) {
		id := devContainerFromUp(rt, args, "running")
		return &process.Result{
			Command: "devcontainer",
			Args:    args,
			Stdout: "[1 ms] @devcontainers/cli 0.71.0\n" +
				"[2 ms] Start: Run: docker build\n" +
				fmt.Sprintf(`{"outcome":"success","containerId":%q,"remoteUser":"vscode","remoteWorkspaceFolder":"/workspaces/myapp"}`, id) + "\n",
		}, nil
	}
}

type fakeEditor struct {
	mu    sync.Mutex
	calls [][2]string
	err   error
}

func (f *fakeEditor) Launch(_ context.Context, container, folder string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, [2]string{container, folder})
	return f.err
}

type testEnv struct {
	engine *Engine
	rt     *drivertest.Runtime
	runner *fakeRunner
	editor *fakeEditor
	store  *workspace.Store
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestEnv wires an Engine to in-memory fakes. The bootstrap image is
// present unless the test removes it.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logger := discardLogger()
	rt := drivertest.New()

	image, err := normalizeImage(settings.DefaultBootstrapImage)
	if err != nil {
		t.Fatal(err)
	}
	rt.Images[image] = true

	runner := &fakeRunner{up: upSuccess(rt)}
	ed := &fakeEditor{}
	store := workspace.NewStoreAt(t.TempDir(), t.TempDir())

	e := New(Deps{
		Runtime: rt,
		Docker:  probe.NewDockerProbe(rt, nil, time.Second, logger),
		Tools:   probe.NewToolProbe(runner, "", nil, logger),
		Volumes: volume.NewRegistry(rt, logger),
		Locator: locator.New(rt, logger),
		Runner:  runner,
		Editor:  ed,
		Store:   store,
	}, Config{LockTimeout: 50 * time.Millisecond}, logger)
	e.SetOutput(io.Discard, io.Discard)

	return &testEnv{engine: e, rt: rt, runner: runner, editor: ed, store: store}
}

// newProject creates a project directory named myapp with a devcontainer
// config, a source file and an ignored node_modules tree.
func newProject(t *testing.T) SpawnOptions {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "myapp")
	writeFile(t, filepath.Join(dir, ".devcontainer", "devcontainer.json"), `{
  // build from the local Dockerfile
  "name": "myapp",
  "build": { "dockerfile": "Dockerfile" },
}`)
	writeFile(t, filepath.Join(dir, ".devcontainer", "Dockerfile"), "FROM debian:bookworm\n")
	writeFile(t, filepath.Join(dir, "main.go"), "package main\n")
	writeFile(t, filepath.Join(dir, "node_modules", "left-pad", "index.js"), "module.exports = 1\n")
	writeFile(t, filepath.Join(dir, IgnoreFile), "node_modules\n")

	return SpawnOptions{
		ProjectPath:      dir,
		DevContainerPath: filepath.Join(dir, ".devcontainer", "devcontainer.json"),
		CopySourceFiles:  true,
		LaunchEditor:     true,
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

var errExecNotFound = &exec.Error{Name: "devcontainer", Err: exec.ErrNotFound}

var errBoom = errors.New("boom")
