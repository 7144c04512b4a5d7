package cache

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Cache tracks vacancies that already reached a terminal state. The letters
// directory itself is the persistent record: stored file names start with
// the vacancy id, so a fresh scan at startup rebuilds the set. During a run
// the cache is append-only.
type Cache struct {
	mu  sync.RWMutex
	ids map[string]struct{}
}

// New scans the letters directory, including the defective and archive
// subdirectories, and builds the processed-vacancy set. A missing directory
// is created empty.
func New(dir string) (*Cache, error) {
	c := &Cache{ids: make(map[string]struct{})}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	err := filepath.WalkDir(dir, func(_ string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if entry.IsDir() {
			return nil
		}

		if id := idFromFileName(entry.Name()); id != "" {
			c.ids[id] = struct{}{}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return c, nil
}

func (c *Cache) Contains(id string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	_, ok := c.ids[id]
	return ok
}

func (c *Cache) Add(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.ids[id] = struct{}{}
}

func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.ids)
}

// idFromFileName extracts the vacancy id prefix from names like
// "12345-2026-08-23.txt".
func idFromFileName(name string) string {
	id, _, found := strings.Cut(name, "-")
	if !found {
		id = strings.TrimSuffix(name, filepath.Ext(name))
	}
	return strings.TrimSpace(id)
}
