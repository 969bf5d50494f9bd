// Package batch turns an ordered file list into numbered FileInfo messages on
// the sending side and folds per-file results into a batch summary on the
// receiving side. It owns no sockets and reads no file contents.
package batch

import (
	"os"
	"sync"

	"github.com/rescp17/deskTransfer/pkg/transfer"
)

// PlannedFile is one entry of a batch. Err is set when the file could not be
// stat'ed; such a file keeps its position so numbering stays stable.
type PlannedFile struct {
	Path string
	Info transfer.FileInfoMessage
	Err  error
}

// Plan numbers paths 1..N in the given order.
func Plan(paths []string) []PlannedFile {
	count := uint32(len(paths))
	plan := make([]PlannedFile, 0, len(paths))
	for i, path := range paths {
		pf := PlannedFile{Path: path}
		info, err := os.Stat(path)
		switch {
		case err != nil:
			pf.Err = &transfer.FileIOError{Op: "stat", Path: path, Err: err}
		case info.IsDir():
			pf.Err = &transfer.FileIOError{Op: "stat", Path: path, Err: transfer.ErrIsDir}
		default:
			pf.Info = transfer.NewFileInfo(path, uint64(info.Size()), count, uint32(i+1))
		}
		if pf.Err != nil {
			pf.Info = transfer.NewFileInfo(path, 0, count, uint32(i+1))
		}
		plan = append(plan, pf)
	}
	return plan
}

// TotalBytes sums the sizes of the files that could be stat'ed.
func TotalBytes(plan []PlannedFile) uint64 {
	var total uint64
	for _, pf := range plan {
		if pf.Err == nil {
			total += pf.Info.Filesize
		}
	}
	return total
}

// Tally aggregates per-file outcomes of one session.
type Tally struct {
	mu     sync.Mutex
	files  []transfer.FileRecord
	bytes  uint64
	failed int
}

func NewTally() *Tally {
	return &Tally{}
}

// Complete records a finished file.
func (t *Tally) Complete(ev transfer.FileCompleteEvent) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.files = append(t.files, transfer.FileRecord{Name: ev.FileName, Path: ev.Path, Size: ev.Size})
	t.bytes += ev.Size
}

// Fail records a file that did not make it.
func (t *Tally) Fail(transfer.FileFailedEvent) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.failed++
}

func (t *Tally) Files() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.files)
}

func (t *Tally) TotalBytes() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.bytes
}

// Summary builds the BatchCompleteEvent for the files seen so far.
func (t *Tally) Summary(sessionID string) transfer.BatchCompleteEvent {
	t.mu.Lock()
	defer t.mu.Unlock()
	files := make([]transfer.FileRecord, len(t.files))
	copy(files, t.files)
	return transfer.BatchCompleteEvent{
		SessionID:  sessionID,
		Files:      files,
		TotalBytes: t.bytes,
		Failed:     t.failed,
	}
}
