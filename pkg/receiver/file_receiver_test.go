package receiver

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rescp17/deskTransfer/pkg/transfer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2024, 5, 6, 7, 8, 9, 0, time.Local)

func newTestReceiver(t *testing.T, policy string) (*FileReceiver, string) {
	t.Helper()
	dir := t.TempDir()
	fr := NewFileReceiver(dir, policy, nil)
	fr.now = func() time.Time { return fixedNow }
	return fr, dir
}

func receiveFile(t *testing.T, fr *FileReceiver, name string, content []byte) (*FileReception, error) {
	t.Helper()
	info := transfer.NewFileInfo(name, uint64(len(content)), 1, 1)
	if _, err := fr.Begin(info); err != nil {
		// Drain like the session does.
		_, _ = fr.Write(content)
		rec, _ := fr.End()
		return rec, err
	}
	_, err := fr.Write(content)
	require.NoError(t, err)
	return fr.End()
}

func TestFileReceiver_HappyPath(t *testing.T) {
	fr, dir := newTestReceiver(t, "")

	rec, err := fr.Begin(transfer.NewFileInfo("photo.jpg", 6, 2, 1))
	require.NoError(t, err)
	assert.Equal(t, StatusReceiving, rec.Status)
	assert.Same(t, rec, fr.Current())

	_, err = fr.Write([]byte("abc"))
	require.NoError(t, err)
	assert.Equal(t, 50, rec.Percent())
	_, err = fr.Write([]byte("def"))
	require.NoError(t, err)

	rec, err = fr.End()
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, rec.Status)
	assert.Nil(t, fr.Current())
	assert.Equal(t, filepath.Join(dir, "photo.jpg"), rec.OutputPath)

	content, err := os.ReadFile(rec.OutputPath)
	require.NoError(t, err)
	assert.Equal(t, "abcdef", string(content))
}

func TestFileReceiver_EmptyFile(t *testing.T) {
	fr, dir := newTestReceiver(t, "")
	rec, err := receiveFile(t, fr, "empty.png", nil)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, rec.Status)

	info, err := os.Stat(filepath.Join(dir, "empty.png"))
	require.NoError(t, err)
	assert.Zero(t, info.Size())
}

func TestFileReceiver_OutOfSequence(t *testing.T) {
	fr, _ := newTestReceiver(t, "")

	_, err := fr.Write([]byte("x"))
	assert.ErrorIs(t, err, transfer.ErrOutOfSequence)
	assert.True(t, transfer.IsProtocolError(err))

	_, err = fr.End()
	assert.True(t, transfer.IsProtocolError(err))

	_, err = fr.Begin(transfer.NewFileInfo("a.png", 1, 2, 1))
	require.NoError(t, err)
	_, err = fr.Begin(transfer.NewFileInfo("b.png", 1, 2, 2))
	assert.True(t, transfer.IsProtocolError(err), "second file_info while a file is open")
	fr.Abort()
}

func TestFileReceiver_SizeMismatchKeepsPartial(t *testing.T) {
	fr, dir := newTestReceiver(t, "")

	_, err := fr.Begin(transfer.NewFileInfo("big.bin", 10, 1, 1))
	require.NoError(t, err)
	_, err = fr.Write([]byte("12345"))
	require.NoError(t, err)

	rec, err := fr.End()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrIncompleteFile)
	assert.True(t, transfer.IsFileIOError(err))
	assert.Equal(t, StatusFailed, rec.Status)

	content, err := os.ReadFile(filepath.Join(dir, "big.bin"))
	require.NoError(t, err)
	assert.Equal(t, "12345", string(content))
}

func TestFileReceiver_PathTraversal(t *testing.T) {
	fr, dir := newTestReceiver(t, "")

	for _, name := range []string{"../../etc/passwd", `..\..\windows\evil.png`, "/abs/path/x.jpg"} {
		rec, err := receiveFile(t, fr, name, []byte("x"))
		require.NoError(t, err, name)
		assert.Equal(t, dir, filepath.Dir(rec.OutputPath), "written inside the output dir: %s", name)
	}

	for _, name := range []string{"..", ".", ""} {
		rec, err := fr.Begin(transfer.FileInfoMessage{Filename: name, Filesize: 0, FileCount: 1, CurrentFile: 1})
		assert.ErrorIs(t, err, ErrInvalidFilename, "name %q", name)
		assert.Equal(t, StatusDiscarding, rec.Status)
		rec, err = fr.End()
		assert.NoError(t, err, "already reported")
		assert.Equal(t, StatusFailed, rec.Status)
	}
}

func TestFileReceiver_CollisionPolicies(t *testing.T) {
	t.Run("rename", func(t *testing.T) {
		fr, dir := newTestReceiver(t, transfer.CollisionRename)
		require.NoError(t, os.WriteFile(filepath.Join(dir, "cat.jpg"), []byte("old"), 0o644))

		rec, err := receiveFile(t, fr, "cat.jpg", []byte("new"))
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(dir, "cat_20240506_070809.jpg"), rec.OutputPath)

		rec, err = receiveFile(t, fr, "cat.jpg", []byte("newer"))
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(dir, "cat_20240506_070809_1.jpg"), rec.OutputPath)

		old, _ := os.ReadFile(filepath.Join(dir, "cat.jpg"))
		assert.Equal(t, "old", string(old), "existing file untouched")
	})

	t.Run("rename without extension", func(t *testing.T) {
		fr, dir := newTestReceiver(t, transfer.CollisionRename)
		require.NoError(t, os.WriteFile(filepath.Join(dir, "README"), nil, 0o644))
		rec, err := receiveFile(t, fr, "README", []byte("x"))
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(dir, "README_20240506_070809"), rec.OutputPath)
	})

	t.Run("overwrite", func(t *testing.T) {
		fr, dir := newTestReceiver(t, transfer.CollisionOverwrite)
		path := filepath.Join(dir, "cat.jpg")
		require.NoError(t, os.WriteFile(path, []byte("a much longer old body"), 0o644))

		rec, err := receiveFile(t, fr, "cat.jpg", []byte("new"))
		require.NoError(t, err)
		assert.Equal(t, path, rec.OutputPath)
		content, _ := os.ReadFile(path)
		assert.Equal(t, "new", string(content))
	})

	t.Run("reject", func(t *testing.T) {
		fr, dir := newTestReceiver(t, transfer.CollisionReject)
		path := filepath.Join(dir, "cat.jpg")
		require.NoError(t, os.WriteFile(path, []byte("old"), 0o644))

		rec, err := receiveFile(t, fr, "cat.jpg", []byte("new"))
		assert.ErrorIs(t, err, ErrFileExists)
		assert.Equal(t, StatusFailed, rec.Status)
		assert.Equal(t, uint64(3), rec.ReceivedSize, "data was read and dropped")

		content, _ := os.ReadFile(path)
		assert.Equal(t, "old", string(content))

		rec, err = receiveFile(t, fr, "dog.jpg", []byte("woof"))
		require.NoError(t, err, "next file is unaffected")
		assert.Equal(t, StatusCompleted, rec.Status)
	})
}

func TestFileReceiver_UnwritableDirectory(t *testing.T) {
	fr := NewFileReceiver(filepath.Join(t.TempDir(), "missing"), "", nil)

	rec, err := fr.Begin(transfer.NewFileInfo("a.png", 3, 1, 1))
	require.Error(t, err)
	assert.True(t, transfer.IsFileIOError(err))
	assert.Equal(t, StatusDiscarding, rec.Status)

	_, err = fr.Write([]byte("abc"))
	assert.NoError(t, err, "discarded data is not an error")
	rec, err = fr.End()
	assert.NoError(t, err)
	assert.Equal(t, StatusFailed, rec.Status)
}

func TestFileReceiver_Abort(t *testing.T) {
	fr, dir := newTestReceiver(t, "")
	assert.Nil(t, fr.Abort())

	_, err := fr.Begin(transfer.NewFileInfo("part.bin", 100, 1, 1))
	require.NoError(t, err)
	_, err = fr.Write([]byte("half"))
	require.NoError(t, err)

	rec := fr.Abort()
	require.NotNil(t, rec)
	assert.Equal(t, StatusFailed, rec.Status)
	assert.Nil(t, fr.Current())

	content, err := os.ReadFile(filepath.Join(dir, "part.bin"))
	require.NoError(t, err)
	assert.Equal(t, "half", string(content))
}
