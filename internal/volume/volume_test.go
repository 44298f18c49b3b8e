package volume

import (
	"context"
	"errors"
	"log/slog"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/fgrehm/cradle/internal/driver"
	"github.com/fgrehm/cradle/internal/driver/drivertest"
)

var namePattern = regexp.MustCompile(`^devcontainer-[a-z0-9-]+-[a-f0-9]{8}$`)

func TestGenerateName_MatchesPattern(t *testing.T) {
	inputs := []string{
		"my-project",
		"My Project",
		"snake_case_name",
		"  leading and trailing  ",
		"Ünïcödé Prøject",
		"!!!",
		"",
		"a--b__c  d",
		"日本語",
		"v1.2.3",
		"-",
	}
	for _, in := range inputs {
		got := GenerateName(in)
		if !namePattern.MatchString(got) {
			t.Errorf("GenerateName(%q) = %q, does not match %s", in, got, namePattern)
		}
	}
}

func TestGenerateName_UniqueSuffix(t *testing.T) {
	a := GenerateName("my-project")
	b := GenerateName("my-project")
	if a == b {
		t.Fatalf("two calls returned the same name %q", a)
	}
	if a[:len(a)-8] != b[:len(b)-8] {
		t.Errorf("prefixes differ: %q vs %q", a, b)
	}
}

func TestSanitize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"my-project", "my-project"},
		{"My Project", "my-project"},
		{"snake_case", "snake-case"},
		{"a  --  b", "a-b"},
		{"v1.2.3", "v123"},
		{"Ünïcödé", "ncd"},
		{"  x  ", "x"},
		{"!!!", "workspace"},
		{"", "workspace"},
	}
	for _, tt := range tests {
		if got := sanitize(tt.in); got != tt.want {
			t.Errorf("sanitize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func newTestRegistry(rt driver.Runtime) *Registry {
	r := NewRegistry(rt, slog.Default())
	r.now = func() time.Time { return time.Date(2026, 10, 19, 12, 30, 0, 0, time.UTC) }
	return r
}

func TestRegistry_CreateLabels(t *testing.T) {
	rt := drivertest.New()
	r := newTestRegistry(rt)

	mv, err := r.Create(context.Background(), "devcontainer-app-0123abcd", "app")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if mv.Project != "app" {
		t.Errorf("Project = %q, want app", mv.Project)
	}

	labels := rt.Volumes["devcontainer-app-0123abcd"].Labels
	if labels[LabelManagedBy] != "cradle" {
		t.Errorf("managed-by label = %q", labels[LabelManagedBy])
	}
	if labels[LabelProject] != "app" {
		t.Errorf("project label = %q", labels[LabelProject])
	}
	if labels[LabelCreated] != "2026-10-19T12:30:00Z" {
		t.Errorf("created label = %q", labels[LabelCreated])
	}
}

func TestRegistry_CreateCollision(t *testing.T) {
	rt := drivertest.New()
	rt.Volumes["taken"] = driver.VolumeDetails{Name: "taken"}
	r := newTestRegistry(rt)

	_, err := r.Create(context.Background(), "taken", "app")
	if !errors.Is(err, ErrVolumeCreationFailed) {
		t.Fatalf("expected ErrVolumeCreationFailed, got %v", err)
	}
	if rt.Called("CreateVolume") {
		t.Error("CreateVolume should not be called for an existing name")
	}
}

func TestRegistry_CreateRuntimeRejects(t *testing.T) {
	rt := drivertest.New()
	rt.Fail["CreateVolume"] = errors.New("no space left on device")
	r := newTestRegistry(rt)

	_, err := r.Create(context.Background(), "devcontainer-app-0123abcd", "app")
	if !errors.Is(err, ErrVolumeCreationFailed) {
		t.Fatalf("expected ErrVolumeCreationFailed, got %v", err)
	}
	if !strings.Contains(err.Error(), "no space left") {
		t.Errorf("error should carry the runtime reason: %v", err)
	}
}

func TestRegistry_CreateRuntimeUnavailable(t *testing.T) {
	rt := drivertest.New()
	rt.Fail["InspectVolume"] = errors.New("connection refused")
	r := newTestRegistry(rt)

	if _, err := r.Create(context.Background(), "x", "app"); !errors.Is(err, ErrVolumeCreationFailed) {
		t.Fatalf("expected ErrVolumeCreationFailed, got %v", err)
	}
}

func TestRegistry_ListManagedExcludesUnlabelled(t *testing.T) {
	rt := drivertest.New()
	created := time.Date(2026, 10, 1, 8, 0, 0, 0, time.UTC)
	rt.Volumes["devcontainer-app-0123abcd"] = driver.VolumeDetails{
		Name:   "devcontainer-app-0123abcd",
		Labels: ManagedLabels("app", created),
	}
	// Name matches the devcontainer-* pattern but carries no management label.
	rt.Volumes["devcontainer-other-89abcdef"] = driver.VolumeDetails{
		Name:   "devcontainer-other-89abcdef",
		Labels: map[string]string{"com.docker.compose.project": "other"},
	}
	rt.Volumes["devcontainer-spoof-00000000"] = driver.VolumeDetails{
		Name:   "devcontainer-spoof-00000000",
		Labels: map[string]string{LabelManagedBy: "someone-else"},
	}
	rt.Volumes["pgdata"] = driver.VolumeDetails{Name: "pgdata"}

	r := newTestRegistry(rt)
	vols, err := r.ListManaged(context.Background())
	if err != nil {
		t.Fatalf("ListManaged: %v", err)
	}
	if len(vols) != 1 {
		t.Fatalf("ListManaged returned %d volumes, want 1: %+v", len(vols), vols)
	}
	if vols[0].Name != "devcontainer-app-0123abcd" || vols[0].Project != "app" {
		t.Errorf("unexpected volume %+v", vols[0])
	}
	if !vols[0].CreatedAt.Equal(created) {
		t.Errorf("CreatedAt = %v, want %v", vols[0].CreatedAt, created)
	}
}

func TestRegistry_ListManagedSorted(t *testing.T) {
	rt := drivertest.New()
	for _, n := range []string{"devcontainer-c-00000003", "devcontainer-a-00000001", "devcontainer-b-00000002"} {
		rt.Volumes[n] = driver.VolumeDetails{Name: n, Labels: ManagedLabels("x", time.Now())}
	}
	vols, err := newTestRegistry(rt).ListManaged(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	for i := 1; i < len(vols); i++ {
		if vols[i-1].Name > vols[i].Name {
			t.Fatalf("volumes not sorted: %v", vols)
		}
	}
}

func TestRegistry_RemoveMissingIsNoop(t *testing.T) {
	r := newTestRegistry(drivertest.New())
	if err := r.Remove(context.Background(), "gone", true); err != nil {
		t.Errorf("Remove of a missing volume should succeed, got %v", err)
	}
}

func TestRegistry_RemoveThenList(t *testing.T) {
	rt := drivertest.New()
	r := newTestRegistry(rt)
	ctx := context.Background()

	if _, err := r.Create(ctx, "devcontainer-app-0123abcd", "app"); err != nil {
		t.Fatal(err)
	}
	if err := r.Remove(ctx, "devcontainer-app-0123abcd", true); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	vols, err := r.ListManaged(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(vols) != 0 {
		t.Errorf("volume still listed after Remove: %+v", vols)
	}
}

func TestRegistry_RemoveError(t *testing.T) {
	rt := drivertest.New()
	rt.Volumes["busy"] = driver.VolumeDetails{Name: "busy"}
	rt.Fail["RemoveVolume"] = errors.New("volume is in use")

	err := newTestRegistry(rt).Remove(context.Background(), "busy", false)
	if err == nil || !strings.Contains(err.Error(), "in use") {
		t.Errorf("expected in-use error, got %v", err)
	}
}
