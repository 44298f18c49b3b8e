// Package drivertest provides an in-memory driver.Runtime for tests.
package drivertest

import (
	"archive/tar"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"
	"sync"

	"github.com/fgrehm/cradle/internal/driver"
)

// Runtime is an in-memory driver.Runtime. Errors can be injected per method
// name through Fail; every call is recorded in Calls.
type Runtime struct {
	mu sync.Mutex

	Version    string
	Volumes    map[string]driver.VolumeDetails
	Containers []driver.ContainerDetails
	Images     map[string]bool

	// Files records paths extracted by CopyToContainer, keyed by container
	// ID, as absolute paths inside the container.
	Files map[string][]string

	// Fail maps a method name (e.g. "CreateVolume") to the error it returns.
	Fail map[string]error

	Calls []string

	nextID int
}

var _ driver.Runtime = (*Runtime)(nil)

// New returns a healthy fake daemon with no resources.
func New() *Runtime {
	return &Runtime{
		Version: "27.5.1",
		Volumes: make(map[string]driver.VolumeDetails),
		Images:  make(map[string]bool),
		Files:   make(map[string][]string),
		Fail:    make(map[string]error),
	}
}

func (r *Runtime) record(method string) error {
	r.Calls = append(r.Calls, method)
	return r.Fail[method]
}

// Called reports whether method was invoked at least once.
func (r *Runtime) Called(method string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.Calls {
		if c == method {
			return true
		}
	}
	return false
}

// VolumeNames returns the names of all volumes, sorted.
func (r *Runtime) VolumeNames() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, 0, len(r.Volumes))
	for n := range r.Volumes {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// ContainerIDs returns the IDs of all containers in creation order.
func (r *Runtime) ContainerIDs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]string, 0, len(r.Containers))
	for _, c := range r.Containers {
		ids = append(ids, c.ID)
	}
	return ids
}

// AddContainer registers a pre-existing container and returns its ID.
func (r *Runtime) AddContainer(c driver.ContainerDetails) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c.ID == "" {
		r.nextID++
		c.ID = fmt.Sprintf("c%04d", r.nextID)
	}
	r.Containers = append(r.Containers, c)
	return c.ID
}

func (r *Runtime) Ping(_ context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.record("Ping")
}

func (r *Runtime) ServerVersion(_ context.Context) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.record("ServerVersion"); err != nil {
		return "", err
	}
	return r.Version, nil
}

func (r *Runtime) CreateVolume(_ context.Context, name string, labels map[string]string) (*driver.VolumeDetails, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.record("CreateVolume"); err != nil {
		return nil, err
	}
	v, ok := r.Volumes[name]
	if !ok {
		v = driver.VolumeDetails{Name: name, Driver: "local", Labels: labels}
		r.Volumes[name] = v
	}
	return &v, nil
}

func (r *Runtime) InspectVolume(_ context.Context, name string) (*driver.VolumeDetails, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.record("InspectVolume"); err != nil {
		return nil, err
	}
	v, ok := r.Volumes[name]
	if !ok {
		return nil, fmt.Errorf("volume %s: %w", name, driver.ErrNotFound)
	}
	return &v, nil
}

func (r *Runtime) ListVolumes(_ context.Context) ([]driver.VolumeDetails, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.record("ListVolumes"); err != nil {
		return nil, err
	}
	out := make([]driver.VolumeDetails, 0, len(r.Volumes))
	for _, v := range r.Volumes {
		out = append(out, v)
	}
	return out, nil
}

func (r *Runtime) RemoveVolume(_ context.Context, name string, _ bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.record("RemoveVolume"); err != nil {
		return err
	}
	if _, ok := r.Volumes[name]; !ok {
		return fmt.Errorf("volume %s: %w", name, driver.ErrNotFound)
	}
	for _, c := range r.Containers {
		for _, m := range c.Mounts {
			if m.Source == name {
				return fmt.Errorf("volume %s is in use by %s", name, c.ID)
			}
		}
	}
	delete(r.Volumes, name)
	return nil
}

func (r *Runtime) ListContainers(_ context.Context, labels map[string]string) ([]driver.ContainerDetails, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.record("ListContainers"); err != nil {
		return nil, err
	}
	var out []driver.ContainerDetails
	for _, c := range r.Containers {
		if matches(c.Labels, labels) {
			out = append(out, c)
		}
	}
	return out, nil
}

func matches(have, want map[string]string) bool {
	for k, v := range want {
		if have[k] != v {
			return false
		}
	}
	return true
}

func (r *Runtime) RunContainer(_ context.Context, opts *driver.RunOptions) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.record("RunContainer"); err != nil {
		return "", err
	}
	if !r.Images[opts.Image] {
		return "", fmt.Errorf("image %s: %w", opts.Image, driver.ErrNotFound)
	}
	for _, m := range opts.Mounts {
		if _, ok := r.Volumes[m.Source]; m.Type == "volume" && !ok {
			return "", fmt.Errorf("volume %s: %w", m.Source, driver.ErrNotFound)
		}
	}
	r.nextID++
	id := fmt.Sprintf("c%04d", r.nextID)
	r.Containers = append(r.Containers, driver.ContainerDetails{
		ID:     id,
		Name:   opts.Name,
		Image:  opts.Image,
		State:  driver.ContainerState{Status: "running"},
		Labels: opts.Labels,
		Mounts: opts.Mounts,
	})
	return id, nil
}

func (r *Runtime) StartContainer(_ context.Context, containerID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.record("StartContainer"); err != nil {
		return err
	}
	for i := range r.Containers {
		if r.Containers[i].ID == containerID {
			r.Containers[i].State.Status = "running"
			return nil
		}
	}
	return fmt.Errorf("container %s: %w", containerID, driver.ErrNotFound)
}

func (r *Runtime) DeleteContainer(_ context.Context, containerID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.record("DeleteContainer"); err != nil {
		return err
	}
	for i, c := range r.Containers {
		if c.ID == containerID {
			r.Containers = append(r.Containers[:i], r.Containers[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("container %s: %w", containerID, driver.ErrNotFound)
}

// CopyToContainer reads the whole tar stream and records the entry names.
func (r *Runtime) CopyToContainer(_ context.Context, containerID, dstPath string, content io.Reader) error {
	r.mu.Lock()
	err := r.record("CopyToContainer")
	r.mu.Unlock()
	if err != nil {
		_, _ = io.Copy(io.Discard, content)
		return err
	}

	var names []string
	tr := tar.NewReader(content)
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("reading tar stream: %w", err)
		}
		if _, err := io.Copy(io.Discard, tr); err != nil {
			return err
		}
		names = append(names, path.Join(dstPath, strings.TrimSuffix(hdr.Name, "/")))
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.Files[containerID] = append(r.Files[containerID], names...)
	return nil
}

func (r *Runtime) InspectImage(_ context.Context, ref string) (*driver.ImageDetails, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.record("InspectImage"); err != nil {
		return nil, err
	}
	if !r.Images[ref] {
		return nil, fmt.Errorf("image %s: %w", ref, driver.ErrNotFound)
	}
	return &driver.ImageDetails{ID: "sha256:" + ref, RepoTags: []string{ref}}, nil
}

func (r *Runtime) PullImage(_ context.Context, ref string, _ io.Writer) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.record("PullImage"); err != nil {
		return err
	}
	r.Images[ref] = true
	return nil
}
