package sound

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Catalog maps reward titles to sound file paths. Matching is
// case-insensitive on the file's base name up to its first dot.
type Catalog struct {
	entries map[string]string
}

// LoadCatalog scans dir once and builds the catalog. The returned catalog is
// usable (empty) even when an error is returned.
func LoadCatalog(dir string) (*Catalog, error) {
	c := &Catalog{entries: make(map[string]string)}

	dirEntries, err := os.ReadDir(dir)
	if err != nil {
		return c, fmt.Errorf("failed to read sounds directory %s: %w", dir, err)
	}

	for _, entry := range dirEntries {
		if entry.IsDir() {
			continue
		}
		name, _, _ := strings.Cut(entry.Name(), ".")
		if name == "" {
			continue
		}
		c.entries[strings.ToLower(name)] = filepath.Join(dir, entry.Name())
	}

	return c, nil
}

// Lookup returns the file path for a reward title, if any sound matches.
func (c *Catalog) Lookup(rewardTitle string) (string, bool) {
	path, ok := c.entries[strings.ToLower(rewardTitle)]
	return path, ok
}

// Len returns the number of catalogued sounds.
func (c *Catalog) Len() int {
	return len(c.entries)
}
