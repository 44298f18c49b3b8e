package editor

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fgrehm/cradle/internal/process"
)

func testFinder(goos string, onPath map[string]string, executables ...string) *Finder {
	execSet := make(map[string]bool)
	for _, p := range executables {
		execSet[p] = true
	}
	return &Finder{
		Command: DefaultCommand,
		goos:    goos,
		getenv: func(k string) string {
			switch k {
			case "HOME":
				return "/home/dev"
			case "LOCALAPPDATA":
				return `C:\Users\dev\AppData\Local`
			}
			return ""
		},
		lookPath: func(name string) (string, error) {
			if p, ok := onPath[name]; ok {
				return p, nil
			}
			return "", errors.New("not found")
		},
		isExec: func(p string) bool { return execSet[p] },
	}
}

func TestFind_PrefersPath(t *testing.T) {
	f := testFinder("linux", map[string]string{"code": "/home/dev/bin/code"}, "/usr/bin/code")
	inst, err := f.Find()
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if inst.Path != "/home/dev/bin/code" || inst.Source != SourcePath {
		t.Errorf("got %+v", inst)
	}
}

func TestFind_WellKnown(t *testing.T) {
	tests := []struct {
		goos string
		path string
	}{
		{"linux", "/snap/bin/code"},
		{"darwin", "/Applications/Visual Studio Code.app/Contents/Resources/app/bin/code"},
		{"darwin", filepath.Join("/home/dev", "Applications", "Visual Studio Code.app", "Contents", "Resources", "app", "bin", "code")},
		{"windows", filepath.Join(`C:\Users\dev\AppData\Local`, "Programs", "Microsoft VS Code", "bin", "code.cmd")},
	}
	for _, tt := range tests {
		t.Run(tt.goos, func(t *testing.T) {
			f := testFinder(tt.goos, nil, tt.path)
			inst, err := f.Find()
			if err != nil {
				t.Fatalf("Find: %v", err)
			}
			if inst.Path != tt.path || inst.Source != SourceWellKnown {
				t.Errorf("got %+v, want %s", inst, tt.path)
			}
		})
	}
}

func TestFind_NotInstalled(t *testing.T) {
	_, err := testFinder("linux", nil).Find()
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestFind_CustomCommandSkipsWellKnown(t *testing.T) {
	f := testFinder("linux", nil, "/usr/bin/code")
	f.Command = "code-insiders"
	if _, err := f.Find(); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for custom command, got %v", err)
	}
}

func TestFind_AbsoluteCommand(t *testing.T) {
	dir := t.TempDir()
	bin := filepath.Join(dir, "codium")
	if err := os.WriteFile(bin, []byte("#!/bin/sh\n"), 0o755); err != nil {
		t.Fatal(err)
	}

	inst, err := NewFinder(bin).Find()
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if inst.Path != bin {
		t.Errorf("Path = %q, want %q", inst.Path, bin)
	}

	if _, err := NewFinder(filepath.Join(dir, "missing")).Find(); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestAttachedContainerURI(t *testing.T) {
	uri := AttachedContainerURI("my-app-dev", "/workspaces/my-app")

	const prefix = "vscode-remote://attached-container+"
	if !strings.HasPrefix(uri, prefix) {
		t.Fatalf("unexpected URI %q", uri)
	}
	rest := strings.TrimPrefix(uri, prefix)
	encoded, folder, ok := strings.Cut(rest, "/")
	if !ok {
		t.Fatalf("URI has no folder: %q", uri)
	}
	if folder != "workspaces/my-app" {
		t.Errorf("folder = %q", folder)
	}

	raw, err := hex.DecodeString(encoded)
	if err != nil {
		t.Fatalf("authority is not hex: %v", err)
	}
	var payload map[string]string
	if err := json.Unmarshal(raw, &payload); err != nil {
		t.Fatalf("authority is not JSON: %v", err)
	}
	if payload["containerName"] != "/my-app-dev" {
		t.Errorf("containerName = %q", payload["containerName"])
	}
}

func TestAttachedContainerURI_EmptyFolder(t *testing.T) {
	if uri := AttachedContainerURI("/c", ""); !strings.HasSuffix(uri, "/") {
		t.Errorf("URI should end at root: %q", uri)
	}
}

type fakeRunner struct {
	result *process.Result
	err    error
	calls  [][]string
}

func (f *fakeRunner) Run(_ context.Context, name string, args ...string) (*process.Result, error) {
	f.calls = append(f.calls, append([]string{name}, args...))
	if f.result == nil {
		return &process.Result{Command: name, Args: args}, f.err
	}
	return f.result, f.err
}

func TestLaunch(t *testing.T) {
	r := &fakeRunner{}
	l := NewLauncher(r, testFinder("linux", map[string]string{"code": "/usr/bin/code"}), slog.Default())

	if err := l.Launch(context.Background(), "abc123", "/workspaces/app"); err != nil {
		t.Fatalf("Launch: %v", err)
	}
	if len(r.calls) != 1 {
		t.Fatalf("expected 1 call, got %d", len(r.calls))
	}
	call := r.calls[0]
	if call[0] != "/usr/bin/code" || call[1] != "--folder-uri" {
		t.Errorf("unexpected invocation %v", call)
	}
	if call[2] != AttachedContainerURI("abc123", "/workspaces/app") {
		t.Errorf("unexpected URI %s", call[2])
	}
}

func TestLaunch_NonzeroExit(t *testing.T) {
	r := &fakeRunner{result: &process.Result{ExitCode: 1, Stderr: "cannot open display\n"}}
	l := NewLauncher(r, testFinder("linux", map[string]string{"code": "/usr/bin/code"}), slog.Default())

	err := l.Launch(context.Background(), "abc123", "/workspaces/app")
	if err == nil || !strings.Contains(err.Error(), "cannot open display") {
		t.Errorf("expected exit error with stderr, got %v", err)
	}
}

func TestLaunch_EditorMissing(t *testing.T) {
	r := &fakeRunner{}
	l := NewLauncher(r, testFinder("linux", nil), slog.Default())

	if err := l.Launch(context.Background(), "abc123", "/w"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if len(r.calls) != 0 {
		t.Error("runner should not be invoked when the editor is missing")
	}
}
