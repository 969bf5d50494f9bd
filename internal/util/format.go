package util

import "github.com/dustin/go-humanize"

// FormatSize renders a byte count in binary units, e.g. "1.5 MiB".
func FormatSize(size int64) string {
	if size < 0 {
		size = 0
	}
	return humanize.IBytes(uint64(size))
}
