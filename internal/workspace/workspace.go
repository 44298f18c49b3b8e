package workspace

import "time"

// Record is the outcome of the most recent spawn for a project. It lets
// `cradle status` and `cradle cleanup` work without asking the daemon.
type Record struct {
	// ID is the workspace identifier (see IDFor).
	ID string `json:"id"`

	// Source is the absolute path to the project root directory.
	Source string `json:"source"`

	// DevContainerPath is the config path relative to Source.
	DevContainerPath string `json:"devContainerPath,omitempty"`

	VolumeName            string `json:"volumeName,omitempty"`
	ContainerID           string `json:"containerID,omitempty"`
	RemoteWorkspaceFolder string `json:"remoteWorkspaceFolder,omitempty"`

	// Step is the last step reached, as reported by SpawnStep.String.
	Step    string   `json:"step"`
	Success bool     `json:"success"`
	Reused  bool     `json:"reused,omitempty"`
	Errors  []string `json:"errors,omitempty"`

	StartedAt time.Time     `json:"startedAt"`
	Duration  time.Duration `json:"duration"`
}
