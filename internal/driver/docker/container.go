package docker

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/mount"

	"github.com/fgrehm/cradle/internal/driver"
)

// ListContainers returns all containers (including stopped ones) matching
// every label in labels.
func (d *DockerDriver) ListContainers(ctx context.Context, labels map[string]string) ([]driver.ContainerDetails, error) {
	containers, err := d.client.ContainerList(ctx, container.ListOptions{
		All:     true,
		Filters: labelFilters(labels),
	})
	if err != nil {
		return nil, fmt.Errorf("list containers: %w", err)
	}

	out := make([]driver.ContainerDetails, 0, len(containers))
	for _, c := range containers {
		out = append(out, toContainerDetails(c))
	}
	return out, nil
}

// RunContainer creates and starts a container. If the start fails the
// created container is removed before returning.
func (d *DockerDriver) RunContainer(ctx context.Context, opts *driver.RunOptions) (string, error) {
	if opts.Image == "" {
		return "", fmt.Errorf("run container: image is required")
	}
	cfg, hostCfg := buildContainerConfig(opts)

	mounts := make([]string, 0, len(opts.Mounts))
	for _, m := range opts.Mounts {
		mounts = append(mounts, m.String())
	}
	d.logger.Debug("run container", "name", opts.Name, "image", opts.Image, "mounts", mounts)

	resp, err := d.client.ContainerCreate(ctx, cfg, hostCfg, nil, nil, opts.Name)
	if err != nil {
		return "", fmt.Errorf("create container: %w", err)
	}
	for _, w := range resp.Warnings {
		d.logger.Warn("container create warning", "container", resp.ID, "warning", w)
	}

	if err := d.client.ContainerStart(ctx, resp.ID, container.StartOptions{}); err != nil {
		// Best-effort cleanup.
		_ = d.client.ContainerRemove(context.WithoutCancel(ctx), resp.ID, container.RemoveOptions{Force: true})
		return "", fmt.Errorf("start container: %w", err)
	}
	return resp.ID, nil
}

// StartContainer starts a stopped container.
func (d *DockerDriver) StartContainer(ctx context.Context, containerID string) error {
	if err := d.client.ContainerStart(ctx, containerID, container.StartOptions{}); err != nil {
		return wrapNotFound(err, "start container %s", containerID)
	}
	return nil
}

// DeleteContainer removes a container forcefully, keeping its volumes.
func (d *DockerDriver) DeleteContainer(ctx context.Context, containerID string) error {
	err := d.client.ContainerRemove(ctx, containerID, container.RemoveOptions{
		Force:         true,
		RemoveVolumes: false,
	})
	if err != nil {
		return wrapNotFound(err, "remove container %s", containerID)
	}
	return nil
}

// CopyToContainer extracts the tar stream content at dstPath inside the container.
func (d *DockerDriver) CopyToContainer(ctx context.Context, containerID, dstPath string, content io.Reader) error {
	err := d.client.CopyToContainer(ctx, containerID, dstPath, content, container.CopyToContainerOptions{
		AllowOverwriteDirWithFile: false,
	})
	if err != nil {
		return wrapNotFound(err, "copy to container %s:%s", containerID, dstPath)
	}
	return nil
}

// buildContainerConfig maps RunOptions onto Engine API create parameters.
func buildContainerConfig(opts *driver.RunOptions) (*container.Config, *container.HostConfig) {
	cfg := &container.Config{
		Image:      opts.Image,
		Cmd:        opts.Cmd,
		Entrypoint: opts.Entrypoint,
		WorkingDir: opts.WorkingDir,
		User:       opts.User,
		Labels:     opts.Labels,
	}

	hostCfg := &container.HostConfig{}
	for _, m := range opts.Mounts {
		typ := mount.TypeVolume
		if m.Type == "bind" {
			typ = mount.TypeBind
		}
		hostCfg.Mounts = append(hostCfg.Mounts, mount.Mount{
			Type:   typ,
			Source: m.Source,
			Target: m.Target,
		})
	}
	return cfg, hostCfg
}

// toContainerDetails converts an Engine API list entry to driver.ContainerDetails.
func toContainerDetails(c types.Container) driver.ContainerDetails {
	details := driver.ContainerDetails{
		ID:     c.ID,
		Image:  c.Image,
		State:  driver.ContainerState{Status: c.State},
		Labels: c.Labels,
	}
	if len(c.Names) > 0 {
		details.Name = strings.TrimPrefix(c.Names[0], "/")
	}
	for _, m := range c.Mounts {
		source := m.Name
		if source == "" {
			source = m.Source
		}
		details.Mounts = append(details.Mounts, driver.Mount{
			Type:   string(m.Type),
			Source: source,
			Target: m.Destination,
		})
	}
	return details
}
