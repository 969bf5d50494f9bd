package util

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckDirectory(t *testing.T) {
	tempDir := t.TempDir()
	tempFile := filepath.Join(tempDir, "testfile.txt")
	require.NoError(t, os.WriteFile(tempFile, nil, 0o644))

	tests := []struct {
		name           string
		path           string
		expectedExists bool
		expectedIsDir  bool
	}{
		{"Existing directory", tempDir, true, true},
		{"Existing file (not directory)", tempFile, true, false},
		{"Non-existent path", filepath.Join(tempDir, "nonexistent"), false, false},
		{"Current directory", ".", true, true},
		{"Empty path", "", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exists, isDir, err := CheckDirectory(tt.path)
			require.NoError(t, err)
			assert.Equal(t, tt.expectedExists, exists)
			assert.Equal(t, tt.expectedIsDir, isDir)
		})
	}
}

func TestCheckDirectorySymlinks(t *testing.T) {
	tempDir := t.TempDir()
	subDir := filepath.Join(tempDir, "subdir")
	require.NoError(t, os.Mkdir(subDir, 0o755))

	symlinkPath := filepath.Join(tempDir, "symlink")
	if err := os.Symlink(subDir, symlinkPath); err != nil {
		t.Skipf("Symlinks not supported or permission denied: %v", err)
	}

	exists, isDir, err := CheckDirectory(symlinkPath)
	require.NoError(t, err)
	assert.True(t, exists)
	assert.True(t, isDir, "symlink to a directory counts as a directory")
}

func TestEnsureDirectory(t *testing.T) {
	base := t.TempDir()

	t.Run("creates nested directories", func(t *testing.T) {
		dir := filepath.Join(base, "a", "b")
		require.NoError(t, EnsureDirectory(dir))
		_, isDir, err := CheckDirectory(dir)
		require.NoError(t, err)
		assert.True(t, isDir)
	})

	t.Run("existing directory is fine", func(t *testing.T) {
		assert.NoError(t, EnsureDirectory(base))
	})

	t.Run("file in the way", func(t *testing.T) {
		file := filepath.Join(base, "file")
		require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))
		assert.Error(t, EnsureDirectory(file))
	})
}

func TestSessionDir(t *testing.T) {
	base := t.TempDir()
	at := time.Date(2024, 3, 9, 14, 5, 7, 0, time.Local)

	dir, err := SessionDir(base, at)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(base, "20240309_140507"), dir)

	_, isDir, err := CheckDirectory(dir)
	require.NoError(t, err)
	assert.True(t, isDir)
}
