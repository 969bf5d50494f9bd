package util

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// SessionDirLayout names timestamped receive directories.
const SessionDirLayout = "20060102_150405"

func CheckDirectory(path string) (exists bool, isDir bool, err error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, false, nil
		}
		return false, false, err
	}
	return true, info.IsDir(), nil
}

// EnsureDirectory creates path (and parents) if missing. It fails if path
// exists but is not a directory.
func EnsureDirectory(path string) error {
	exists, isDir, err := CheckDirectory(path)
	if err != nil {
		return err
	}
	if exists && !isDir {
		return fmt.Errorf("%s exists and is not a directory", path)
	}
	if !exists {
		if err := os.MkdirAll(path, 0o755); err != nil {
			return fmt.Errorf("create directory %s: %w", path, err)
		}
	}
	return nil
}

// SessionDir creates and returns base/<YYYYmmdd_HHMMSS> for t.
func SessionDir(base string, t time.Time) (string, error) {
	dir := filepath.Join(base, t.Format(SessionDirLayout))
	if err := EnsureDirectory(dir); err != nil {
		return "", err
	}
	return dir, nil
}
