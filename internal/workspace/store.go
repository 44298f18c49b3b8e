package workspace

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/gofrs/flock"
)

const recordFile = "spawn.json"

// ErrWorkspaceNotFound is returned when a project has no stored record.
var ErrWorkspaceNotFound = errors.New("workspace not found")

// ErrLocked is returned when another process holds a project's spawn lock.
var ErrLocked = errors.New("workspace is locked by another process")

// lockRetryDelay is how often TryLockContext polls a held lock.
const lockRetryDelay = 100 * time.Millisecond

// Store manages spawn records and locks on disk.
type Store struct {
	baseDir  string
	locksDir string
}

// NewStore creates a Store keeping records in baseDir and locks in
// locksDir, creating both.
func NewStore(baseDir, locksDir string) (*Store, error) {
	s := NewStoreAt(baseDir, locksDir)
	for _, dir := range []string{s.baseDir, s.locksDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating %s: %w", dir, err)
		}
	}
	return s, nil
}

// NewStoreAt creates a Store with explicit directories. Useful for testing.
func NewStoreAt(baseDir, locksDir string) *Store {
	return &Store{baseDir: baseDir, locksDir: locksDir}
}

// Save writes a record to disk, replacing any previous one.
func (s *Store) Save(rec *Record) error {
	dir := s.workspaceDir(rec.ID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating workspace directory: %w", err)
	}

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling record: %w", err)
	}

	// Replace atomically.
	tmp, err := os.CreateTemp(dir, recordFile+".*")
	if err != nil {
		return fmt.Errorf("writing record: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("writing record: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("writing record: %w", err)
	}
	if err := os.Rename(tmp.Name(), filepath.Join(dir, recordFile)); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("writing record: %w", err)
	}
	return nil
}

// Load reads the record for id.
func (s *Store) Load(id string) (*Record, error) {
	data, err := os.ReadFile(filepath.Join(s.workspaceDir(id), recordFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrWorkspaceNotFound
		}
		return nil, fmt.Errorf("reading record: %w", err)
	}

	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("unmarshaling record: %w", err)
	}
	return &rec, nil
}

// Delete removes a workspace directory from disk.
func (s *Store) Delete(id string) error {
	if err := os.RemoveAll(s.workspaceDir(id)); err != nil {
		return fmt.Errorf("deleting workspace: %w", err)
	}
	return nil
}

// List returns all stored records, most recent first.
func (s *Store) List() ([]*Record, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("listing workspaces: %w", err)
	}

	var out []*Record
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		rec, err := s.Load(entry.Name())
		if errors.Is(err, ErrWorkspaceNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.After(out[j].StartedAt) })
	return out, nil
}

// FindByVolume returns the record whose VolumeName is name.
func (s *Store) FindByVolume(name string) (*Record, error) {
	recs, err := s.List()
	if err != nil {
		return nil, err
	}
	for _, r := range recs {
		if r.VolumeName == name {
			return r, nil
		}
	}
	return nil, ErrWorkspaceNotFound
}

// Lock acquires the exclusive spawn lock for id, waiting up to timeout.
// The returned function releases it. ErrLocked means another process kept
// the lock for the whole window.
func (s *Store) Lock(ctx context.Context, id string, timeout time.Duration) (func() error, error) {
	if err := os.MkdirAll(s.locksDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating locks directory: %w", err)
	}

	fl := flock.New(filepath.Join(s.locksDir, id+".lock"))

	lockCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ok, err := fl.TryLockContext(lockCtx, lockRetryDelay)
	switch {
	case ok:
		return fl.Unlock, nil
	case ctx.Err() != nil:
		return nil, ctx.Err()
	case err == nil, errors.Is(err, context.DeadlineExceeded):
		return nil, ErrLocked
	default:
		return nil, fmt.Errorf("acquiring lock: %w", err)
	}
}

func (s *Store) workspaceDir(id string) string {
	return filepath.Join(s.baseDir, id)
}
