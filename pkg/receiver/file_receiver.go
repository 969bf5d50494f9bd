package receiver

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rescp17/deskTransfer/pkg/transfer"
)

var (
	ErrFileExists      = errors.New("file already exists")
	ErrInvalidFilename = errors.New("invalid file name")
	ErrIncompleteFile  = errors.New("received size does not match announced size")
)

// renameLayout is the timestamp inserted before the extension on collision.
const renameLayout = "20060102_150405"

// maxRenameAttempts bounds the _<n> suffix search.
const maxRenameAttempts = 1000

// ReceptionStatus represents the current status of file reception
type ReceptionStatus int

const (
	StatusReceiving ReceptionStatus = iota
	// StatusDiscarding means the file failed locally; its data is read and
	// dropped until FileEnd.
	StatusDiscarding
	StatusCompleted
	StatusFailed
)

func (s ReceptionStatus) String() string {
	switch s {
	case StatusReceiving:
		return "receiving"
	case StatusDiscarding:
		return "discarding"
	case StatusCompleted:
		return "completed"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// FileReception tracks the state of receiving a single file
type FileReception struct {
	FileName     string
	OutputPath   string
	TotalSize    uint64
	ReceivedSize uint64
	CurrentFile  uint32
	FileCount    uint32
	Status       ReceptionStatus
	Err          error

	file *os.File
}

// Percent of the announced size received so far.
func (r *FileReception) Percent() int {
	return transfer.Percent(r.ReceivedSize, r.TotalSize)
}

// FileReceiver writes the files of one session into outputDir. At most one
// file is open at a time; FileInfo, FileData and FileEnd must arrive in that
// order.
type FileReceiver struct {
	outputDir string
	policy    string
	now       func() time.Time
	current   *FileReception
	logger    *slog.Logger
}

// NewFileReceiver creates a receiver for outputDir. An empty policy means
// rename.
func NewFileReceiver(outputDir, policy string, logger *slog.Logger) *FileReceiver {
	if policy == "" {
		policy = transfer.CollisionRename
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &FileReceiver{
		outputDir: outputDir,
		policy:    policy,
		now:       time.Now,
		logger:    logger,
	}
}

// Current returns the file being received, or nil between files.
func (fr *FileReceiver) Current() *FileReception {
	return fr.current
}

// Begin opens the output file for info. A ProtocolError means a file is
// already open. Any other error is a per-file failure: the reception is
// returned in StatusDiscarding and the caller should report it and keep
// reading.
func (fr *FileReceiver) Begin(info transfer.FileInfoMessage) (*FileReception, error) {
	if fr.current != nil {
		return nil, &transfer.ProtocolError{Op: "file_info", Err: fmt.Errorf("%w: %s is still open", transfer.ErrOutOfSequence, fr.current.FileName)}
	}

	rec := &FileReception{
		FileName:    info.Filename,
		TotalSize:   info.Filesize,
		CurrentFile: info.CurrentFile,
		FileCount:   info.FileCount,
		Status:      StatusReceiving,
	}
	fr.current = rec

	name, err := sanitizeName(info.Filename)
	if err != nil {
		return fr.discard(rec, &transfer.FileIOError{Op: "create", Path: info.Filename, Err: err})
	}
	rec.FileName = name

	path, file, err := fr.create(name)
	if err != nil {
		rec.OutputPath = path
		return fr.discard(rec, err)
	}
	rec.OutputPath = path
	rec.file = file

	fr.logger.Info("Started receiving file", "fileName", name, "totalSize", info.Filesize, "path", path,
		"index", info.CurrentFile, "count", info.FileCount)
	return rec, nil
}

// Write appends data to the open file. A ProtocolError means no file is open.
// Any other error is a per-file failure and switches the file to discarding.
func (fr *FileReceiver) Write(data []byte) (*FileReception, error) {
	rec := fr.current
	if rec == nil {
		return nil, &transfer.ProtocolError{Op: "file_data", Err: fmt.Errorf("%w: no file is open", transfer.ErrOutOfSequence)}
	}
	rec.ReceivedSize += uint64(len(data))
	if rec.Status == StatusDiscarding {
		return rec, nil
	}

	if _, err := rec.file.Write(data); err != nil {
		rec.closeFile()
		return fr.discard(rec, &transfer.FileIOError{Op: "write", Path: rec.OutputPath, Err: err})
	}
	return rec, nil
}

// End closes the current file. It returns an error when the file turns out
// bad at this point (close failure or size mismatch); the partial file is
// left on disk. A file that already failed earlier comes back as
// StatusFailed with a nil error since it has been reported.
func (fr *FileReceiver) End() (*FileReception, error) {
	rec := fr.current
	if rec == nil {
		return nil, &transfer.ProtocolError{Op: "file_end", Err: fmt.Errorf("%w: no file is open", transfer.ErrOutOfSequence)}
	}
	fr.current = nil

	if rec.Status == StatusDiscarding {
		rec.Status = StatusFailed
		return rec, nil
	}

	if err := rec.closeFile(); err != nil {
		rec.Status = StatusFailed
		rec.Err = &transfer.FileIOError{Op: "close", Path: rec.OutputPath, Err: err}
		return rec, rec.Err
	}
	if rec.ReceivedSize != rec.TotalSize {
		rec.Status = StatusFailed
		rec.Err = &transfer.FileIOError{
			Op:   "receive",
			Path: rec.OutputPath,
			Err:  fmt.Errorf("%w: got %d of %d bytes", ErrIncompleteFile, rec.ReceivedSize, rec.TotalSize),
		}
		fr.logger.Warn("File size mismatch, keeping partial file", "fileName", rec.FileName,
			"received", rec.ReceivedSize, "expected", rec.TotalSize, "path", rec.OutputPath)
		return rec, rec.Err
	}

	rec.Status = StatusCompleted
	fr.logger.Info("File reception completed", "fileName", rec.FileName, "size", rec.ReceivedSize, "path", rec.OutputPath)
	return rec, nil
}

// Abort closes any open file when the session ends early. The partial file
// stays on disk.
func (fr *FileReceiver) Abort() *FileReception {
	rec := fr.current
	if rec == nil {
		return nil
	}
	fr.current = nil
	rec.closeFile()
	rec.Status = StatusFailed
	fr.logger.Warn("Session ended mid-file, keeping partial file", "fileName", rec.FileName,
		"received", rec.ReceivedSize, "expected", rec.TotalSize, "path", rec.OutputPath)
	return rec
}

func (fr *FileReceiver) discard(rec *FileReception, err error) (*FileReception, error) {
	rec.Status = StatusDiscarding
	rec.Err = err
	fr.logger.Warn("Discarding file data", "fileName", rec.FileName, "error", err)
	return rec, err
}

// create opens the destination for name according to the collision policy.
func (fr *FileReceiver) create(name string) (string, *os.File, error) {
	path := filepath.Join(fr.outputDir, name)
	if !strings.HasPrefix(path, filepath.Clean(fr.outputDir)) {
		return path, nil, &transfer.FileIOError{Op: "create", Path: path, Err: ErrInvalidFilename}
	}

	switch fr.policy {
	case transfer.CollisionOverwrite:
		file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
		if err != nil {
			return path, nil, &transfer.FileIOError{Op: "create", Path: path, Err: err}
		}
		return path, file, nil

	case transfer.CollisionReject:
		file, err := createExclusive(path)
		if errors.Is(err, os.ErrExist) {
			return path, nil, &transfer.FileIOError{Op: "create", Path: path, Err: ErrFileExists}
		}
		if err != nil {
			return path, nil, &transfer.FileIOError{Op: "create", Path: path, Err: err}
		}
		return path, file, nil

	default:
		file, err := createExclusive(path)
		if err == nil {
			return path, file, nil
		}
		if !errors.Is(err, os.ErrExist) {
			return path, nil, &transfer.FileIOError{Op: "create", Path: path, Err: err}
		}
		return fr.createRenamed(name)
	}
}

// createRenamed tries <stem>_<timestamp><ext>, then <stem>_<timestamp>_<n><ext>.
func (fr *FileReceiver) createRenamed(name string) (string, *os.File, error) {
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	stamped := stem + "_" + fr.now().Format(renameLayout)

	for n := 0; n < maxRenameAttempts; n++ {
		candidate := stamped + ext
		if n > 0 {
			candidate = fmt.Sprintf("%s_%d%s", stamped, n, ext)
		}
		path := filepath.Join(fr.outputDir, candidate)
		file, err := createExclusive(path)
		if err == nil {
			fr.logger.Info("Renamed colliding file", "fileName", name, "path", path)
			return path, file, nil
		}
		if !errors.Is(err, os.ErrExist) {
			return path, nil, &transfer.FileIOError{Op: "create", Path: path, Err: err}
		}
	}
	path := filepath.Join(fr.outputDir, name)
	return path, nil, &transfer.FileIOError{Op: "create", Path: path, Err: ErrFileExists}
}

func createExclusive(path string) (*os.File, error) {
	return os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0o644)
}

// sanitizeName keeps only the final path element of a peer-supplied name.
func sanitizeName(name string) (string, error) {
	name = strings.ReplaceAll(name, "\\", "/")
	base := filepath.Base(name)
	switch base {
	case "", ".", "..", "/":
		return "", fmt.Errorf("%w: %q", ErrInvalidFilename, name)
	}
	return base, nil
}

func (r *FileReception) closeFile() error {
	if r.file == nil {
		return nil
	}
	err := r.file.Close()
	r.file = nil
	return err
}
