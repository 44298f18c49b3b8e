package driver

import (
	"strings"
)

// ContainerDetails describes a running or stopped container.
type ContainerDetails struct {
	ID     string
	Name   string
	Image  string
	State  ContainerState
	Labels map[string]string
	Mounts []Mount
}

// ContainerState holds the runtime state of a container.
type ContainerState struct {
	Status string
}

// IsRunning reports whether the container is in the running state.
func (s ContainerState) IsRunning() bool {
	return strings.EqualFold(s.Status, "running")
}

// IsRemoving reports whether the container is in the process of being removed.
func (s ContainerState) IsRemoving() bool {
	return strings.EqualFold(s.Status, "removing")
}

// VolumeDetails describes a runtime volume.
type VolumeDetails struct {
	Name       string
	Driver     string
	Mountpoint string
	CreatedAt  string
	Labels     map[string]string
}

// ImageDetails describes a local container image.
type ImageDetails struct {
	ID       string
	RepoTags []string
}

// Mount describes a volume or bind mount.
type Mount struct {
	Type   string // "volume" or "bind"
	Source string
	Target string
}

// String renders the mount in --mount / workspaceMount syntax.
func (m Mount) String() string {
	typ := m.Type
	if typ == "" {
		typ = "volume"
	}
	return "type=" + typ + ",source=" + m.Source + ",target=" + m.Target
}

// RunOptions holds parameters for creating and starting a container.
type RunOptions struct {
	Name       string
	Image      string
	Entrypoint []string
	Cmd        []string
	WorkingDir string
	User       string
	Labels     map[string]string
	Mounts     []Mount
}
