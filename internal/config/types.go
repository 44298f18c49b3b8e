package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
)

// ErrNotFound is returned when no devcontainer.json is found.
var ErrNotFound = errors.New("devcontainer.json not found")

// ErrComposeUnsupported is returned for Docker Compose based configs, whose
// workspace mount is defined by the compose file rather than by
// workspaceMount.
var ErrComposeUnsupported = errors.New("docker compose configurations cannot be spawned into a volume")

// Kind identifies how a devcontainer gets its image.
type Kind string

const (
	KindImage      Kind = "image"
	KindDockerfile Kind = "dockerfile"
	KindCompose    Kind = "compose"
)

// DevContainerConfig holds the devcontainer.json fields cradle reads. All
// other properties are left for the devcontainer CLI and survive rewriting
// untouched.
type DevContainerConfig struct {
	Name            string        `json:"name,omitempty"`
	Image           string        `json:"image,omitempty"`
	WorkspaceFolder string        `json:"workspaceFolder,omitempty"`
	WorkspaceMount  string        `json:"workspaceMount,omitempty"`
	Build           *BuildOptions `json:"build,omitempty"`

	// Legacy top-level build fields.
	Dockerfile string `json:"dockerFile,omitempty"`
	Context    string `json:"context,omitempty"`

	DockerComposeFile StrArray `json:"dockerComposeFile,omitempty"`
	Service           string   `json:"service,omitempty"`

	// Origin is the absolute path to the devcontainer.json file (not serialized).
	Origin string `json:"-"`
}

// BuildOptions is the "build" object of a Dockerfile based config.
type BuildOptions struct {
	Dockerfile string            `json:"dockerfile,omitempty"`
	Context    string            `json:"context,omitempty"`
	Args       map[string]string `json:"args,omitempty"`
	Target     string            `json:"target,omitempty"`
}

// Kind reports which of the three config flavours c is.
func (c *DevContainerConfig) Kind() Kind {
	switch {
	case len(c.DockerComposeFile) > 0:
		return KindCompose
	case c.Build != nil && c.Build.Dockerfile != "", c.Dockerfile != "":
		return KindDockerfile
	default:
		return KindImage
	}
}

// Validate checks that c can be spawned into a volume.
func (c *DevContainerConfig) Validate() error {
	switch c.Kind() {
	case KindCompose:
		return ErrComposeUnsupported
	case KindImage:
		if c.Image == "" {
			return fmt.Errorf("%s: neither image nor build.dockerfile is set", filepath.Base(c.Origin))
		}
	}
	return nil
}

// StrArray accepts either a single string or an array of strings in JSON.
type StrArray []string

// UnmarshalJSON implements json.Unmarshaler.
func (sa *StrArray) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*sa = StrArray{s}
		return nil
	}

	var arr []string
	if err := json.Unmarshal(data, &arr); err != nil {
		return fmt.Errorf("StrArray: expected string or []string: %w", err)
	}
	*sa = arr
	return nil
}
