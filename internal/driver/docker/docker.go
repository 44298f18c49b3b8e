// Package docker implements driver.Runtime on top of the Docker Engine API.
package docker

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/filters"
	dockerclient "github.com/docker/docker/client"

	"github.com/fgrehm/cradle/internal/driver"
)

// apiClient is the subset of the Engine API client the driver uses.
type apiClient interface {
	dockerclient.SystemAPIClient
	dockerclient.VolumeAPIClient
	dockerclient.ContainerAPIClient
	dockerclient.ImageAPIClient
	ServerVersion(ctx context.Context) (types.Version, error)
}

// DockerDriver implements driver.Runtime using the Docker Engine API.
type DockerDriver struct {
	client apiClient
	logger *slog.Logger
}

var _ driver.Runtime = (*DockerDriver)(nil)

// NewDockerDriver creates a driver from the environment (DOCKER_HOST,
// DOCKER_CERT_PATH, ...) with API version negotiation. The daemon is not
// contacted until the first call.
func NewDockerDriver(logger *slog.Logger) (*DockerDriver, error) {
	cli, err := dockerclient.NewClientWithOpts(
		dockerclient.FromEnv,
		dockerclient.WithAPIVersionNegotiation(),
	)
	if err != nil {
		return nil, fmt.Errorf("docker client: %w", err)
	}
	logger.Debug("docker client configured", "host", cli.DaemonHost())
	return &DockerDriver{client: cli, logger: logger}, nil
}

// Ping checks that the daemon is reachable.
func (d *DockerDriver) Ping(ctx context.Context) error {
	if _, err := d.client.Ping(ctx); err != nil {
		return fmt.Errorf("ping docker daemon: %w", err)
	}
	return nil
}

// ServerVersion returns the daemon version string.
func (d *DockerDriver) ServerVersion(ctx context.Context) (string, error) {
	v, err := d.client.ServerVersion(ctx)
	if err != nil {
		return "", fmt.Errorf("docker version: %w", err)
	}
	return v.Version, nil
}

// wrapNotFound maps Engine API not-found errors onto driver.ErrNotFound so
// callers never depend on the SDK's error types.
func wrapNotFound(err error, format string, args ...any) error {
	msg := fmt.Sprintf(format, args...)
	if dockerclient.IsErrNotFound(err) {
		return fmt.Errorf("%s: %w: %w", msg, driver.ErrNotFound, err)
	}
	return fmt.Errorf("%s: %w", msg, err)
}

// labelFilters turns a label map into "label=k=v" filter arguments,
// in sorted key order.
func labelFilters(labels map[string]string) filters.Args {
	args := filters.NewArgs()
	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		args.Add("label", k+"="+labels[k])
	}
	return args
}
