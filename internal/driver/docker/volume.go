package docker

import (
	"context"
	"fmt"
	"sort"

	"github.com/docker/docker/api/types/volume"

	"github.com/fgrehm/cradle/internal/driver"
)

// CreateVolume creates a named local volume carrying the given labels.
func (d *DockerDriver) CreateVolume(ctx context.Context, name string, labels map[string]string) (*driver.VolumeDetails, error) {
	v, err := d.client.VolumeCreate(ctx, volume.CreateOptions{
		Name:   name,
		Driver: "local",
		Labels: labels,
	})
	if err != nil {
		return nil, fmt.Errorf("create volume %s: %w", name, err)
	}
	details := toVolumeDetails(&v)
	return &details, nil
}

// InspectVolume returns a single volume by name.
func (d *DockerDriver) InspectVolume(ctx context.Context, name string) (*driver.VolumeDetails, error) {
	v, err := d.client.VolumeInspect(ctx, name)
	if err != nil {
		return nil, wrapNotFound(err, "inspect volume %s", name)
	}
	details := toVolumeDetails(&v)
	return &details, nil
}

// ListVolumes returns every volume on the daemon, sorted by name.
func (d *DockerDriver) ListVolumes(ctx context.Context) ([]driver.VolumeDetails, error) {
	resp, err := d.client.VolumeList(ctx, volume.ListOptions{})
	if err != nil {
		return nil, fmt.Errorf("list volumes: %w", err)
	}
	for _, w := range resp.Warnings {
		d.logger.Warn("volume list warning", "warning", w)
	}

	out := make([]driver.VolumeDetails, 0, len(resp.Volumes))
	for _, v := range resp.Volumes {
		if v == nil {
			continue
		}
		out = append(out, toVolumeDetails(v))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// RemoveVolume deletes a volume.
func (d *DockerDriver) RemoveVolume(ctx context.Context, name string, force bool) error {
	if err := d.client.VolumeRemove(ctx, name, force); err != nil {
		return wrapNotFound(err, "remove volume %s", name)
	}
	return nil
}

func toVolumeDetails(v *volume.Volume) driver.VolumeDetails {
	return driver.VolumeDetails{
		Name:       v.Name,
		Driver:     v.Driver,
		Mountpoint: v.Mountpoint,
		CreatedAt:  v.CreatedAt,
		Labels:     v.Labels,
	}
}
