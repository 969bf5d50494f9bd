package fileInfo

import (
	"log/slog"
	"os"
	"path/filepath"

	"github.com/gabriel-vasile/mimetype"
)

// FileNode describes a path the user picked. Directories carry their children
// so a whole folder can be queued in one go.
type FileNode struct {
	Name     string     `json:"name"`
	IsDir    bool       `json:"is_dir"`
	Size     int64      `json:"size"`
	MimeType string     `json:"mime_type,omitempty"`
	Children []FileNode `json:"children,omitempty"`
	Path     string     `json:"-"`
}

func CreateNode(path string) (FileNode, error) {
	info, err := os.Stat(path)
	if err != nil {
		return FileNode{}, err
	}
	node := FileNode{
		Name:  info.Name(),
		IsDir: info.IsDir(),
		Size:  info.Size(),
		Path:  path,
	}
	if node.IsDir {
		entries, err := os.ReadDir(path)
		if err != nil {
			return FileNode{}, err
		}

		node.Children = make([]FileNode, 0, len(entries))
		node.Size = 0

		for _, entry := range entries {
			childPath := filepath.Join(path, entry.Name())
			childNode, err := CreateNode(childPath)
			if err != nil {
				slog.Warn("Skipping unreadable path", "path", childPath, "error", err)
				continue
			}
			node.Children = append(node.Children, childNode)
			node.Size += childNode.Size
		}
		return node, nil
	}

	mime, err := mimetype.DetectFile(path)
	if err != nil {
		node.MimeType = "application/octet-stream"
	} else {
		node.MimeType = mime.String()
	}
	return node, nil
}

// Files returns the regular files under n in directory order, n itself if it
// is a file.
func (n FileNode) Files() []FileNode {
	if !n.IsDir {
		return []FileNode{n}
	}
	var out []FileNode
	for _, child := range n.Children {
		out = append(out, child.Files()...)
	}
	return out
}
