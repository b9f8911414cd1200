// Package artifact manages the viewport-artifact file hand-off between C5
// (writer) and C6/C7 (readers/deleters), per spec.md §3 "Viewport
// artifact" and §4.6 (consumer deletes).
package artifact

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// DefaultMaxSize is the longest-side cap applied when a request omits
// max_size (spec.md §4.5).
const DefaultMaxSize = 800

// DefaultFormat is used when a request omits format (spec.md §4.5).
const DefaultFormat = "png"

// ValidFormat reports whether format is a supported image format tag.
func ValidFormat(format string) bool {
	return format == "png" || format == "jpeg"
}

// NewPath returns a unique, UUID-derived path under dir for the given
// format, used when the caller did not supply filepath (spec.md §3: "unique
// per request (UUID-derived) to prevent collision when multiple concurrent
// captures run").
func NewPath(dir, format string) string {
	ext := format
	if ext == "" {
		ext = DefaultFormat
	}
	name := fmt.Sprintf("blenderforge-viewport-%s.%s", uuid.NewString(), ext)
	return filepath.Join(dir, name)
}

// ReadAndDelete reads path fully and then removes it, implementing the
// "consumer deletes" rule (spec.md §9 Open Questions). It returns the read
// error, if any, without deleting the file, so a failed read never
// silently drops the artifact (spec.md §4.6).
func ReadAndDelete(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read viewport artifact %s: %w", path, err)
	}
	if err := os.Remove(path); err != nil {
		return data, fmt.Errorf("delete viewport artifact %s: %w", path, err)
	}
	return data, nil
}
