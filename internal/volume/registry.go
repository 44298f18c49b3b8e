// Package volume names, creates, lists and removes the runtime volumes that
// back spawned devcontainers.
package volume

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/fgrehm/cradle/internal/driver"
)

// Label keys attached to every managed volume.
const (
	LabelManagedBy = "cradle.managed-by"
	LabelProject   = "cradle.project"
	LabelCreated   = "cradle.created"

	managedByValue = "cradle"
)

// ErrVolumeCreationFailed is returned when the runtime rejects a volume
// creation or the name is already taken.
var ErrVolumeCreationFailed = errors.New("volume creation failed")

// ErrNotManaged is returned when an operation that deletes volumes is
// pointed at a volume without cradle's management label.
var ErrNotManaged = errors.New("not a cradle volume")

// ManagedVolume is a runtime volume carrying cradle's ownership labels.
type ManagedVolume struct {
	Name      string
	Project   string
	CreatedAt time.Time
	Labels    map[string]string
}

// Registry manages labelled volumes on a container runtime.
type Registry struct {
	runtime driver.Runtime
	logger  *slog.Logger
	now     func() time.Time
}

// NewRegistry creates a Registry backed by rt.
func NewRegistry(rt driver.Runtime, logger *slog.Logger) *Registry {
	return &Registry{runtime: rt, logger: logger, now: time.Now}
}

// ManagedLabels returns the label set for a volume owned by project.
func ManagedLabels(project string, created time.Time) map[string]string {
	return map[string]string{
		LabelManagedBy: managedByValue,
		LabelProject:   project,
		LabelCreated:   created.UTC().Format(time.RFC3339),
	}
}

// IsManaged reports whether labels carry the management marker.
func IsManaged(labels map[string]string) bool {
	return labels[LabelManagedBy] == managedByValue
}

// Create creates a managed volume named name for project. Docker treats
// creating an existing volume as a no-op, so the name is inspected first and
// an existing volume is reported as a collision.
func (r *Registry) Create(ctx context.Context, name, project string) (*ManagedVolume, error) {
	_, err := r.runtime.InspectVolume(ctx, name)
	switch {
	case err == nil:
		return nil, fmt.Errorf("%w: volume %s already exists", ErrVolumeCreationFailed, name)
	case !driver.IsNotFound(err):
		return nil, fmt.Errorf("%w: %w", ErrVolumeCreationFailed, err)
	}

	created := r.now()
	labels := ManagedLabels(project, created)
	v, err := r.runtime.CreateVolume(ctx, name, labels)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrVolumeCreationFailed, err)
	}
	r.logger.Debug("created volume", "volume", v.Name, "project", project)

	return &ManagedVolume{
		Name:      v.Name,
		Project:   project,
		CreatedAt: created.UTC().Truncate(time.Second),
		Labels:    labels,
	}, nil
}

// ListManaged returns the volumes carrying the management label, sorted by
// name. Volumes without the label are never returned, whatever their name.
func (r *Registry) ListManaged(ctx context.Context) ([]ManagedVolume, error) {
	all, err := r.runtime.ListVolumes(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing volumes: %w", err)
	}

	var out []ManagedVolume
	for _, v := range all {
		if !IsManaged(v.Labels) {
			continue
		}
		out = append(out, toManaged(v))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Remove deletes the named volume. A volume that is already gone is not an
// error.
func (r *Registry) Remove(ctx context.Context, name string, force bool) error {
	err := r.runtime.RemoveVolume(ctx, name, force)
	if err != nil && driver.IsNotFound(err) {
		r.logger.Debug("volume already removed", "volume", name)
		return nil
	}
	if err != nil {
		return fmt.Errorf("removing volume %s: %w", name, err)
	}
	r.logger.Debug("removed volume", "volume", name)
	return nil
}

func toManaged(v driver.VolumeDetails) ManagedVolume {
	mv := ManagedVolume{
		Name:    v.Name,
		Project: v.Labels[LabelProject],
		Labels:  v.Labels,
	}
	if ts, err := time.Parse(time.RFC3339, v.Labels[LabelCreated]); err == nil {
		mv.CreatedAt = ts
	} else if ts, err := time.Parse(time.RFC3339, v.CreatedAt); err == nil {
		mv.CreatedAt = ts
	}
	return mv
}
