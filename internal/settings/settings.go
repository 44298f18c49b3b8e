// Package settings loads user preferences from $CRADLE_HOME/config.toml and
// the environment.
package settings

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

const (
	// DefaultBootstrapImage is the image used for bootstrap containers.
	DefaultBootstrapImage = "alpine:3.20"

	DefaultDockerTimeout = 10 * time.Second
	DefaultLockTimeout   = 2 * time.Second

	configFile = "config.toml"
)

// Settings holds user preferences. Zero values mean "use the default".
type Settings struct {
	BootstrapImage      string   `toml:"bootstrap_image"`
	DevcontainerCommand string   `toml:"devcontainer_command"`
	EditorCommand       string   `toml:"editor_command"`
	Ignore              []string `toml:"ignore"`
	DockerTimeout       Duration `toml:"docker_timeout"`
	LockTimeout         Duration `toml:"lock_timeout"`
	LaunchEditor        *bool    `toml:"launch_editor"`
	CopySourceFiles     *bool    `toml:"copy_source_files"`

	// Home is the resolved cradle home directory (not read from the file).
	Home string `toml:"-"`
}

// Duration is a time.Duration that decodes from TOML strings like "15s".
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", text, err)
	}
	d.Duration = v
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// HomeDir returns the cradle home directory: $CRADLE_HOME, or ~/.cradle.
func HomeDir() (string, error) {
	if h := os.Getenv("CRADLE_HOME"); h != "" {
		return h, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(home, ".cradle"), nil
}

// Load reads config.toml from the cradle home directory, applies
// environment overrides and fills in defaults. A missing file is not an
// error.
func Load() (*Settings, error) {
	home, err := HomeDir()
	if err != nil {
		return nil, err
	}
	return LoadFrom(home)
}

// LoadFrom is Load with an explicit home directory.
func LoadFrom(home string) (*Settings, error) {
	s := &Settings{}
	path := filepath.Join(home, configFile)

	md, err := toml.DecodeFile(path, s)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	if err == nil {
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return nil, fmt.Errorf("%s: unknown keys %v", path, undecoded)
		}
	}

	s.Home = home
	s.applyEnv()
	s.applyDefaults()
	return s, nil
}

func (s *Settings) applyEnv() {
	if v := os.Getenv("CRADLE_BOOTSTRAP_IMAGE"); v != "" {
		s.BootstrapImage = v
	}
	if v := os.Getenv("CRADLE_DEVCONTAINER"); v != "" {
		s.DevcontainerCommand = v
	}
	if v := os.Getenv("CRADLE_EDITOR"); v != "" {
		s.EditorCommand = v
	}
}

func (s *Settings) applyDefaults() {
	if s.BootstrapImage == "" {
		s.BootstrapImage = DefaultBootstrapImage
	}
	if s.DevcontainerCommand == "" {
		s.DevcontainerCommand = "devcontainer"
	}
	if s.EditorCommand == "" {
		s.EditorCommand = "code"
	}
	if s.DockerTimeout.Duration <= 0 {
		s.DockerTimeout.Duration = DefaultDockerTimeout
	}
	if s.LockTimeout.Duration <= 0 {
		s.LockTimeout.Duration = DefaultLockTimeout
	}
}

// ShouldLaunchEditor reports the launch_editor preference (default true).
func (s *Settings) ShouldLaunchEditor() bool {
	return s.LaunchEditor == nil || *s.LaunchEditor
}

// ShouldCopySourceFiles reports the copy_source_files preference (default true).
func (s *Settings) ShouldCopySourceFiles() bool {
	return s.CopySourceFiles == nil || *s.CopySourceFiles
}

// LocksDir is where per-project spawn locks live.
func (s *Settings) LocksDir() string {
	return filepath.Join(s.Home, "locks")
}

// WorkspacesDir is where per-project spawn records live.
func (s *Settings) WorkspacesDir() string {
	return filepath.Join(s.Home, "workspaces")
}
