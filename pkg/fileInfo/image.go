package fileInfo

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
)

// ImageExtensions are the extensions accepted when only images may be sent.
var ImageExtensions = []string{".jpg", ".jpeg", ".png", ".gif", ".bmp", ".tiff", ".webp"}

// HasImageExtension reports whether name ends in one of ImageExtensions,
// ignoring case.
func HasImageExtension(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, allowed := range ImageExtensions {
		if ext == allowed {
			return true
		}
	}
	return false
}

// IsImage requires both an image extension and sniffed image content.
func (n FileNode) IsImage() bool {
	if n.IsDir || !HasImageExtension(n.Name) {
		return false
	}
	return strings.HasPrefix(n.MimeType, "image/")
}

// Skipped is a path left out of the send list, with the reason.
type Skipped struct {
	Path string
	Err  error
}

// Collect expands paths into a flat list of files to send. Directories are
// walked recursively. With imagesOnly set, non-image files are skipped.
func Collect(paths []string, imagesOnly bool) ([]string, []Skipped) {
	var (
		files   []string
		skipped []Skipped
	)
	for _, p := range paths {
		node, err := CreateNode(p)
		if err != nil {
			// Keep the path: the sender reports it as a failed file.
			files = append(files, p)
			continue
		}
		for _, f := range node.Files() {
			if imagesOnly && !f.IsImage() {
				slog.Debug("Skipping non-image file", "path", f.Path, "mime", f.MimeType)
				skipped = append(skipped, Skipped{Path: f.Path, Err: fmt.Errorf("%s is not a supported image (%s)", f.Name, f.MimeType)})
				continue
			}
			files = append(files, f.Path)
		}
	}
	return files, skipped
}
