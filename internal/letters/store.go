package letters

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const defectiveDir = "defective"

var today = func() string {
	return time.Now().Format("2006-01-02")
}

// Store persists letters under the letters directory. Accepted letters live
// at the top level; drafts that exhausted their round budgets go to the
// defective subdirectory for manual review. File names start with the
// vacancy id, which doubles as the processed-vacancy record.
type Store struct {
	dir string
}

func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

func (s *Store) Dir() string {
	return s.dir
}

// Write saves an accepted letter and returns its path.
func (s *Store) Write(id, text string) (string, error) {
	return s.write(s.dir, id, text)
}

// WriteDefective saves the last draft of a rejected letter and returns its path.
func (s *Store) WriteDefective(id, text string) (string, error) {
	return s.write(filepath.Join(s.dir, defectiveDir), id, text)
}

func (s *Store) write(dir, id, text string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}

	path := filepath.Join(dir, fmt.Sprintf("%s-%s.txt", id, today()))
	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		return "", err
	}

	return path, nil
}
