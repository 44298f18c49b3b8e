package volume

import (
	"strings"

	"github.com/google/uuid"
)

// NamePrefix starts every generated volume name.
const NamePrefix = "devcontainer-"

// fallbackSegment replaces a project name with no usable characters.
const fallbackSegment = "workspace"

// GenerateName derives a runtime-legal volume name from a project name:
// devcontainer-<sanitized>-<8 hex>. The suffix is random, so two calls with
// the same project produce different names.
func GenerateName(project string) string {
	return NamePrefix + sanitize(project) + "-" + randomSuffix()
}

// sanitize lower-cases s, turns spaces and underscores into hyphens, drops
// every other character outside [a-z0-9-], collapses hyphen runs and trims
// hyphens at both ends.
func sanitize(s string) string {
	var b strings.Builder
	lastHyphen := false
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastHyphen = false
		case r == '-' || r == '_' || r == ' ' || r == '\t':
			if !lastHyphen {
				b.WriteByte('-')
				lastHyphen = true
			}
		}
	}

	out := strings.Trim(b.String(), "-")
	if out == "" {
		return fallbackSegment
	}
	return out
}

func randomSuffix() string {
	id := uuid.New()
	return strings.ReplaceAll(id.String(), "-", "")[:8]
}
