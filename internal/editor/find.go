// Package editor locates a VS Code installation and opens it attached to a
// running devcontainer.
package editor

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
)

// DefaultCommand is the editor executable looked up when none is configured.
const DefaultCommand = "code"

// ErrNotFound is returned when no editor installation can be located.
var ErrNotFound = errors.New("editor not found")

// Source describes where an installation was found.
type Source string

const (
	SourcePath      Source = "path"
	SourceWellKnown Source = "well-known"
)

// Installation is a located editor executable.
type Installation struct {
	Path   string
	Source Source
}

// Finder looks up the editor on PATH and then in the locations installers
// usually put it.
type Finder struct {
	// Command is the executable name or absolute path. Defaults to "code".
	Command string

	goos     string
	getenv   func(string) string
	lookPath func(string) (string, error)
	isExec   func(string) bool
}

// NewFinder returns a Finder for the current platform.
func NewFinder(command string) *Finder {
	if command == "" {
		command = DefaultCommand
	}
	return &Finder{
		Command:  command,
		goos:     runtime.GOOS,
		getenv:   os.Getenv,
		lookPath: exec.LookPath,
		isExec:   isExecutable,
	}
}

// Find returns the first installation found.
func (f *Finder) Find() (*Installation, error) {
	if filepath.IsAbs(f.Command) {
		if f.isExec(f.Command) {
			return &Installation{Path: f.Command, Source: SourcePath}, nil
		}
		return nil, fmt.Errorf("%w: %s is not executable", ErrNotFound, f.Command)
	}

	if p, err := f.lookPath(f.Command); err == nil {
		return &Installation{Path: p, Source: SourcePath}, nil
	}

	// Well-known locations only apply to the stock VS Code binary.
	if f.Command != DefaultCommand {
		return nil, fmt.Errorf("%w: %s is not on PATH", ErrNotFound, f.Command)
	}
	for _, p := range f.wellKnown() {
		if f.isExec(p) {
			return &Installation{Path: p, Source: SourceWellKnown}, nil
		}
	}
	return nil, fmt.Errorf("%w: %s is not on PATH or in any standard location", ErrNotFound, f.Command)
}

func (f *Finder) wellKnown() []string {
	switch f.goos {
	case "darwin":
		paths := []string{
			"/Applications/Visual Studio Code.app/Contents/Resources/app/bin/code",
			"/usr/local/bin/code",
			"/opt/homebrew/bin/code",
		}
		if home := f.getenv("HOME"); home != "" {
			paths = append(paths, filepath.Join(home, "Applications", "Visual Studio Code.app", "Contents", "Resources", "app", "bin", "code"))
		}
		return paths
	case "windows":
		var paths []string
		if dir := f.getenv("LOCALAPPDATA"); dir != "" {
			paths = append(paths, filepath.Join(dir, "Programs", "Microsoft VS Code", "bin", "code.cmd"))
		}
		if dir := f.getenv("ProgramFiles"); dir != "" {
			paths = append(paths, filepath.Join(dir, "Microsoft VS Code", "bin", "code.cmd"))
		}
		return paths
	default:
		return []string{
			"/usr/bin/code",
			"/usr/local/bin/code",
			"/snap/bin/code",
			"/usr/share/code/bin/code",
			"/var/lib/flatpak/exports/bin/com.visualstudio.code",
		}
	}
}

func isExecutable(path string) bool {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return false
	}
	if runtime.GOOS == "windows" {
		return true
	}
	return info.Mode()&0o111 != 0
}
