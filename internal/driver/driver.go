package driver

import (
	"context"
	"errors"
	"io"
)

// ErrNotFound is returned (wrapped) when a volume, container or image does
// not exist on the daemon.
var ErrNotFound = errors.New("not found")

// Runtime abstracts the container daemon operations needed to bootstrap a
// volume-backed devcontainer. Implementations must honour ctx cancellation
// on every call.
type Runtime interface {
	// Ping checks that the daemon is reachable.
	Ping(ctx context.Context) error

	// ServerVersion returns the daemon version string (e.g. "27.5.1").
	ServerVersion(ctx context.Context) (string, error)

	// CreateVolume creates a named volume carrying the given labels.
	CreateVolume(ctx context.Context, name string, labels map[string]string) (*VolumeDetails, error)

	// InspectVolume returns a single volume. Returns an error wrapping
	// ErrNotFound if it does not exist.
	InspectVolume(ctx context.Context, name string) (*VolumeDetails, error)

	// ListVolumes returns every volume known to the daemon, managed or not.
	ListVolumes(ctx context.Context) ([]VolumeDetails, error)

	// RemoveVolume deletes a volume. Returns an error wrapping ErrNotFound
	// if it does not exist.
	RemoveVolume(ctx context.Context, name string, force bool) error

	// ListContainers returns all containers, running or not, whose labels
	// include every key=value pair in labels. A nil map lists everything.
	ListContainers(ctx context.Context, labels map[string]string) ([]ContainerDetails, error)

	// RunContainer creates and starts a container, returning its ID.
	RunContainer(ctx context.Context, options *RunOptions) (string, error)

	// StartContainer starts a stopped container.
	StartContainer(ctx context.Context, containerID string) error

	// DeleteContainer removes a container forcefully. Returns an error
	// wrapping ErrNotFound if it does not exist.
	DeleteContainer(ctx context.Context, containerID string) error

	// CopyToContainer extracts a tar stream into dstPath inside the container.
	CopyToContainer(ctx context.Context, containerID, dstPath string, content io.Reader) error

	// InspectImage returns details about a local image. Returns an error
	// wrapping ErrNotFound if the image is not present locally.
	InspectImage(ctx context.Context, ref string) (*ImageDetails, error)

	// PullImage pulls an image, writing human-readable progress to progress.
	PullImage(ctx context.Context, ref string, progress io.Writer) error
}

// IsNotFound reports whether err signals a missing daemon resource.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
