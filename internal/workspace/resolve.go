package workspace

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/fgrehm/cradle/internal/config"
)

// ErrNoDevContainer is returned when no devcontainer configuration is found
// walking up from the start directory.
var ErrNoDevContainer = errors.New("no devcontainer configuration found")

// ResolveResult holds the outcome of workspace resolution.
type ResolveResult struct {
	// ProjectRoot is the absolute path to the project root directory.
	ProjectRoot string

	// ConfigPath is the absolute path to the devcontainer.json file.
	ConfigPath string

	// RelativeConfigPath is the config path relative to ProjectRoot.
	RelativeConfigPath string

	// ProjectName is the base name of ProjectRoot.
	ProjectName string

	// WorkspaceID keys the on-disk record and lock for this project.
	WorkspaceID string
}

// Resolve walks up from startDir looking for a .devcontainer/ directory
// or .devcontainer.json file.
func Resolve(startDir string) (*ResolveResult, error) {
	absDir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, fmt.Errorf("resolving start directory: %w", err)
	}

	dir := absDir
	for {
		configPath, err := config.Find(dir)
		if err != nil {
			return nil, fmt.Errorf("searching for devcontainer config: %w", err)
		}
		if configPath != "" {
			return newResult(dir, configPath)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return nil, ErrNoDevContainer
		}
		dir = parent
	}
}

// ResolveConfigDir resolves a project from an explicit config location (a
// devcontainer.json file or the directory holding it). The project root is
// the directory holding the .devcontainer* directory, which may be the
// config directory itself or its parent (.devcontainer/python). For any
// other layout it is the parent of the config directory.
func ResolveConfigDir(configDir string) (*ResolveResult, error) {
	configPath, err := config.ResolveConfigPath(configDir)
	if err != nil {
		return nil, err
	}
	return newResult(projectRootFor(configPath), configPath)
}

func projectRootFor(configPath string) string {
	dir := filepath.Dir(configPath)
	if filepath.Base(configPath) == ".devcontainer.json" {
		return dir
	}
	for d := dir; filepath.Dir(d) != d; d = filepath.Dir(d) {
		if strings.HasPrefix(filepath.Base(d), ".devcontainer") {
			return filepath.Dir(d)
		}
		if d != dir {
			break
		}
	}
	return filepath.Dir(dir)
}

func newResult(root, configPath string) (*ResolveResult, error) {
	rel, err := filepath.Rel(root, configPath)
	if err != nil {
		return nil, fmt.Errorf("computing relative config path: %w", err)
	}
	return &ResolveResult{
		ProjectRoot:        root,
		ConfigPath:         configPath,
		RelativeConfigPath: rel,
		ProjectName:        filepath.Base(root),
		WorkspaceID:        IDFor(root),
	}, nil
}

// IDFor derives the workspace ID for an absolute project path: the slugged
// base name plus a short hash of the full path, so same-named projects in
// different directories do not share state.
func IDFor(projectPath string) string {
	clean := filepath.Clean(projectPath)
	sum := sha256.Sum256([]byte(clean))
	return Slugify(filepath.Base(clean)) + "-" + fmt.Sprintf("%x", sum)[:8]
}

var nonAlphanumeric = regexp.MustCompile(`[^a-z0-9-]+`)

// Slugify converts a project directory name into a filesystem-safe slug.
// Rules: lowercase, replace non-alphanumeric with hyphens, trim hyphens,
// truncate to 48 chars with hash suffix if longer.
func Slugify(name string) string {
	slug := strings.ToLower(name)
	slug = nonAlphanumeric.ReplaceAllString(slug, "-")
	slug = strings.Trim(slug, "-")

	if slug == "" {
		slug = "workspace"
	}

	const maxLen = 48
	if len(slug) > maxLen {
		hash := fmt.Sprintf("%x", sha256.Sum256([]byte(name)))
		slug = slug[:40] + "-" + hash[:7]
	}
	return slug
}
