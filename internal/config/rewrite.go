package config

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/tidwall/jsonc"
)

// VolumeRewrite describes how a config is pointed at a workspace volume.
type VolumeRewrite struct {
	// Volume is the runtime volume holding the workspace.
	Volume string

	// Folder is the workspace path inside the devcontainer,
	// e.g. /workspaces/my-app.
	Folder string

	// ConfigDir is the directory of the original devcontainer.json. Build
	// paths are resolved against it so the rewritten file can live anywhere.
	ConfigDir string
}

// WorkspaceMount renders the workspaceMount value for r.
func (r VolumeRewrite) WorkspaceMount() string {
	return fmt.Sprintf("source=%s,target=%s,type=volume", r.Volume, r.Folder)
}

// RewriteForVolume returns a copy of the devcontainer.json content with
// workspaceMount and workspaceFolder pointing at the volume. Relative build
// paths are made absolute against r.ConfigDir. Every other property is kept
// as is; comments are dropped.
func RewriteForVolume(data []byte, r VolumeRewrite) ([]byte, error) {
	var doc map[string]any
	if err := json.Unmarshal(jsonc.ToJSON(data), &doc); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	if doc == nil {
		doc = make(map[string]any)
	}

	doc["workspaceMount"] = r.WorkspaceMount()
	doc["workspaceFolder"] = r.Folder

	if build, ok := doc["build"].(map[string]any); ok {
		if df, ok := build["dockerfile"].(string); ok && df != "" {
			build["dockerfile"] = absolutize(r.ConfigDir, df)
			ctx, _ := build["context"].(string)
			build["context"] = absolutize(r.ConfigDir, ctx)
		}
	}
	if df, ok := doc["dockerFile"].(string); ok && df != "" {
		doc["dockerFile"] = absolutize(r.ConfigDir, df)
		ctx, _ := doc["context"].(string)
		doc["context"] = absolutize(r.ConfigDir, ctx)
	}

	out, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling config: %w", err)
	}
	return append(out, '\n'), nil
}

func absolutize(base, p string) string {
	if p == "" {
		return filepath.Clean(base)
	}
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(base, p)
}
