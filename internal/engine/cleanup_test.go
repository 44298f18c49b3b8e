package engine

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/fgrehm/cradle/internal/driver"
	"github.com/fgrehm/cradle/internal/locator"
	"github.com/fgrehm/cradle/internal/volume"
)

func TestCleanupStack_RunsInReverse(t *testing.T) {
	var order []string
	var s cleanupStack
	for _, name := range []string{"volume", "container", "staging"} {
		s.push(name, func(context.Context) error {
			order = append(order, name)
			return nil
		})
	}

	warnings := s.run(context.Background(), time.Second, discardLogger())

	if len(warnings) != 0 {
		t.Errorf("warnings = %v", warnings)
	}
	if want := []string{"staging", "container", "volume"}; !slices.Equal(order, want) {
		t.Errorf("order = %v, want %v", order, want)
	}
	if len(s.actions) != 0 {
		t.Error("stack should be empty after run")
	}
}

func TestCleanupStack_Release(t *testing.T) {
	var ran []string
	var s cleanupStack
	s.push("a", func(context.Context) error { ran = append(ran, "a"); return nil })
	s.push("b", func(context.Context) error { ran = append(ran, "b"); return nil })
	s.release("a")
	s.release("missing")

	s.run(context.Background(), time.Second, discardLogger())

	if !slices.Equal(ran, []string{"b"}) {
		t.Errorf("ran = %v, want [b]", ran)
	}
}

func TestCleanupStack_ContinuesAfterFailure(t *testing.T) {
	var ran []string
	var s cleanupStack
	s.push("first", func(context.Context) error { ran = append(ran, "first"); return nil })
	s.push("second", func(context.Context) error { return errors.New("busy") })

	warnings := s.run(context.Background(), time.Second, discardLogger())

	if len(warnings) != 1 || warnings[0] != "cleanup: second: busy" {
		t.Errorf("warnings = %v", warnings)
	}
	if !slices.Equal(ran, []string{"first"}) {
		t.Errorf("ran = %v", ran)
	}
}

func TestCleanupStack_IgnoresCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var sawErr error
	var s cleanupStack
	s.push("check", func(ctx context.Context) error {
		sawErr = ctx.Err()
		return nil
	})
	s.run(ctx, time.Second, discardLogger())

	if sawErr != nil {
		t.Errorf("cleanup context should not be cancelled, got %v", sawErr)
	}
}

func TestCleanupFailedSpawn(t *testing.T) {
	env := newTestEnv(t)
	vol := "devcontainer-myapp-0123abcd"
	env.rt.Volumes[vol] = driver.VolumeDetails{Name: vol, Labels: volume.ManagedLabels("myapp", time.Now())}
	env.rt.AddContainer(driver.ContainerDetails{
		Labels: map[string]string{locator.LabelVolume: vol, locator.LabelBootstrap: "true"},
		Mounts: []driver.Mount{{Type: "volume", Source: vol, Target: "/workspace"}},
	})
	env.rt.AddContainer(driver.ContainerDetails{
		Labels: map[string]string{locator.LabelVolume: vol},
		Mounts: []driver.Mount{{Type: "volume", Source: vol, Target: "/workspaces/myapp"}},
	})
	other := env.rt.AddContainer(driver.ContainerDetails{
		Labels: map[string]string{locator.LabelVolume: "devcontainer-other-ffffffff"},
	})

	staging := filepath.Join(t.TempDir(), "stage")
	writeFile(t, filepath.Join(staging, "devcontainer.json"), "{}")

	warnings := env.engine.CleanupFailedSpawn(context.Background(), vol, staging)

	if len(warnings) != 0 {
		t.Errorf("warnings = %v", warnings)
	}
	if got := env.rt.VolumeNames(); len(got) != 0 {
		t.Errorf("volumes = %v", got)
	}
	if got := env.rt.ContainerIDs(); !slices.Equal(got, []string{other}) {
		t.Errorf("containers = %v, want only %s", got, other)
	}
	if _, err := os.Stat(staging); !os.IsNotExist(err) {
		t.Errorf("staging path should be removed, stat err = %v", err)
	}
}

func TestCleanupFailedSpawn_MissingResources(t *testing.T) {
	env := newTestEnv(t)

	warnings := env.engine.CleanupFailedSpawn(context.Background(), "devcontainer-gone-00000000", filepath.Join(t.TempDir(), "gone"))
	if len(warnings) != 0 {
		t.Errorf("missing resources should not warn: %v", warnings)
	}

	if w := env.engine.CleanupFailedSpawn(context.Background(), "", ""); len(w) != 0 {
		t.Errorf("empty arguments should be a no-op: %v", w)
	}
}

func TestCleanupFailedSpawn_ReportsFailures(t *testing.T) {
	env := newTestEnv(t)
	vol := "devcontainer-myapp-0123abcd"
	env.rt.Volumes[vol] = driver.VolumeDetails{Name: vol, Labels: volume.ManagedLabels("myapp", time.Now())}
	env.rt.Fail["RemoveVolume"] = errors.New("volume is in use")

	warnings := env.engine.CleanupFailedSpawn(context.Background(), vol, "")

	if len(warnings) != 1 || !strings.Contains(warnings[0], "volume is in use") {
		t.Errorf("warnings = %v", warnings)
	}
}

func TestCleanupFailedSpawn_RefusesUnmanagedVolume(t *testing.T) {
	env := newTestEnv(t)
	env.rt.Volumes["postgres-data"] = driver.VolumeDetails{
		Name:   "postgres-data",
		Labels: map[string]string{"com.docker.compose.project": "shop"},
	}
	user := env.rt.AddContainer(driver.ContainerDetails{
		Labels: map[string]string{locator.LabelVolume: "postgres-data"},
	})

	warnings := env.engine.CleanupFailedSpawn(context.Background(), "postgres-data", "")

	if len(warnings) != 1 || !strings.Contains(warnings[0], volume.ErrNotManaged.Error()) {
		t.Errorf("warnings = %v", warnings)
	}
	if got := env.rt.VolumeNames(); !slices.Equal(got, []string{"postgres-data"}) {
		t.Errorf("volumes = %v, unmanaged volume must survive", got)
	}
	if got := env.rt.ContainerIDs(); !slices.Equal(got, []string{user}) {
		t.Errorf("containers = %v, want %s untouched", got, user)
	}
}
