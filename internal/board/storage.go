package board

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Storage is the collaborator holding the durable document text and the
// single-level undo sidecar. Load and LoadUndo report absence via the bool
// rather than an error.
type Storage interface {
	Load() (string, bool, error)
	Save(text string) error
	LoadUndo() (string, bool, error)
	SaveUndo(text string) error
	ClearUndo() error
}

// FileStorage keeps the document in <dir>/tasks.md with the undo snapshot in
// <dir>/tasks.md.undo. Only one writer process is assumed: a concurrent
// external edit is overwritten by the next write-back (last writer wins).
type FileStorage struct {
	Dir string
}

func NewFileStorage(dir string) *FileStorage {
	return &FileStorage{Dir: expandHome(dir)}
}

func (f *FileStorage) tasksPath() string { return filepath.Join(f.Dir, "tasks.md") }
func (f *FileStorage) undoPath() string  { return f.tasksPath() + ".undo" }

func (f *FileStorage) Load() (string, bool, error) {
	return readOptional(f.tasksPath())
}

func (f *FileStorage) Save(text string) error {
	return atomicWriteFile(f.tasksPath(), []byte(text), 0o644)
}

func (f *FileStorage) LoadUndo() (string, bool, error) {
	return readOptional(f.undoPath())
}

func (f *FileStorage) SaveUndo(text string) error {
	return atomicWriteFile(f.undoPath(), []byte(text), 0o644)
}

func (f *FileStorage) ClearUndo() error {
	err := os.Remove(f.undoPath())
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

func readOptional(path string) (string, bool, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", false, nil
		}
		return "", false, err
	}
	return string(b), true, nil
}

func atomicWriteFile(path string, data []byte, perm fs.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp := filepath.Join(dir, fmt.Sprintf(".tmp-%d", time.Now().UTC().UnixNano()))
	if err := os.WriteFile(tmp, data, perm); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	// Rename is atomic on same filesystem.
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return nil
}

func expandHome(path string) string {
	if strings.HasPrefix(path, "~"+string(os.PathSeparator)) || path == "~" {
		home, _ := os.UserHomeDir()
		if home != "" {
			return filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	return path
}
