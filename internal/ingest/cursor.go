package ingest

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/michaelgiba/covered/internal/fileutil"
)

// CursorTracker persists the timestamp of the most recently ingested raw
// item. The cursor only ever advances; an unreadable or corrupt file is
// treated as "start from the beginning", never as a fatal error.
type CursorTracker struct {
	path string
}

type cursorFile struct {
	Timestamp string `json:"timestamp"`
}

// NewCursorTracker creates a tracker persisting to dir/cursor.json.
func NewCursorTracker(dir string) *CursorTracker {
	return &CursorTracker{path: filepath.Join(dir, "cursor.json")}
}

// Load returns the saved cursor timestamp, or ok=false when no usable
// cursor exists.
func (c *CursorTracker) Load() (string, bool) {
	data, err := os.ReadFile(c.path)
	if err != nil {
		return "", false
	}
	var parsed cursorFile
	if err := json.Unmarshal(data, &parsed); err != nil {
		return "", false
	}
	timestamp := strings.TrimSpace(parsed.Timestamp)
	if timestamp == "" {
		return "", false
	}
	return timestamp, true
}

// Save overwrites the cursor atomically via a temp file and rename.
func (c *CursorTracker) Save(timestamp string) error {
	if strings.TrimSpace(timestamp) == "" {
		return fmt.Errorf("save cursor: timestamp is required")
	}
	data, err := json.Marshal(cursorFile{Timestamp: timestamp})
	if err != nil {
		return fmt.Errorf("marshal cursor: %w", err)
	}
	if err := fileutil.WriteAtomic(c.path, data, 0o644); err != nil {
		return fmt.Errorf("save cursor: %w", err)
	}
	return nil
}
