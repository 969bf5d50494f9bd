package fileInfo

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x02\x00\x00\x00")

func writeTree(t *testing.T, files map[string][]byte) string {
	t.Helper()
	root := t.TempDir()
	for name, content := range files {
		p := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, content, 0o644))
	}
	return root
}

func TestCreateNode_File(t *testing.T) {
	root := writeTree(t, map[string][]byte{"pic.png": pngHeader})
	node, err := CreateNode(filepath.Join(root, "pic.png"))
	require.NoError(t, err)

	assert.Equal(t, "pic.png", node.Name)
	assert.False(t, node.IsDir)
	assert.Equal(t, int64(len(pngHeader)), node.Size)
	assert.Equal(t, "image/png", node.MimeType)
	assert.Equal(t, []FileNode{node}, node.Files())
}

func TestCreateNode_Directory(t *testing.T) {
	root := writeTree(t, map[string][]byte{
		"a.txt":       []byte("aaa"),
		"nested/b.md": []byte("bb"),
		"nested/c":    []byte("c"),
	})
	node, err := CreateNode(root)
	require.NoError(t, err)

	assert.True(t, node.IsDir)
	assert.Equal(t, int64(6), node.Size, "directory size sums its files")
	require.Len(t, node.Children, 2)

	var names []string
	for _, f := range node.Files() {
		names = append(names, f.Name)
	}
	assert.Equal(t, []string{"a.txt", "b.md", "c"}, names)
}

func TestCreateNode_Missing(t *testing.T) {
	_, err := CreateNode(filepath.Join(t.TempDir(), "nope"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
