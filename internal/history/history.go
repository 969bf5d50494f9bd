// Package history keeps a local record of sent and received files.
package history

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rescp17/deskTransfer/internal/util"
	"github.com/rescp17/deskTransfer/pkg/transfer"
)

const (
	KindSent     = "sent"
	KindReceived = "received"

	StatusCompleted = "completed"
	StatusFailed    = "failed"

	// TimeLayout is how record times are shown and exported.
	TimeLayout = "2006-01-02 15:04:05"
)

// Record is one file transfer, successful or not.
type Record struct {
	Time     time.Time `json:"time"`
	Filename string    `json:"filename"`
	Filesize uint64    `json:"filesize"`
	Type     string    `json:"type"`
	Path     string    `json:"path"`
	Peer     string    `json:"peer,omitempty"`
	Status   string    `json:"status"`
	Error    string    `json:"error,omitempty"`
}

// Store is a JSON file holding an array of records, oldest first.
type Store struct {
	path string
	now  func() time.Time
	mu   sync.Mutex
}

func NewStore(path string) *Store {
	return &Store{path: path, now: time.Now}
}

// DefaultPath is history.json under the user's config directory.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("locate config dir: %w", err)
	}
	return filepath.Join(dir, "desktransfer", "history.json"), nil
}

func (s *Store) Path() string { return s.path }

// Load returns every record. A missing file is an empty history.
func (s *Store) Load() ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

func (s *Store) load() ([]Record, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read history: %w", err)
	}
	if len(data) == 0 {
		return nil, nil
	}
	var records []Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("parse history %s: %w", s.path, err)
	}
	return records, nil
}

// Append adds records to the end of the history. Records without a time get
// the current one.
func (s *Store) Append(records ...Record) error {
	if len(records) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, err := s.load()
	if err != nil {
		return err
	}
	for _, r := range records {
		if r.Time.IsZero() {
			r.Time = s.now()
		}
		existing = append(existing, r)
	}
	return s.save(existing)
}

// Clear removes all records.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	err := os.Remove(s.path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("clear history: %w", err)
	}
	return nil
}

// Export writes the history to w as tab-separated text with a header line,
// one record per line in local time. It returns the number of records written.
func (s *Store) Export(w io.Writer) (int, error) {
	records, err := s.Load()
	if err != nil {
		return 0, err
	}
	if _, err := fmt.Fprintln(w, "time\tfilename\tsize\ttype\tstatus\tpeer\tpath"); err != nil {
		return 0, fmt.Errorf("export history: %w", err)
	}
	for i, r := range records {
		_, err := fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			r.Time.Local().Format(TimeLayout), r.Filename, util.FormatSize(int64(r.Filesize)),
			r.Type, r.Status, r.Peer, r.Path)
		if err != nil {
			return i, fmt.Errorf("export history: %w", err)
		}
	}
	return len(records), nil
}

// save writes to a temporary file and renames it over the history.
func (s *Store) save(records []Record) error {
	if err := util.EnsureDirectory(filepath.Dir(s.path)); err != nil {
		return fmt.Errorf("create history dir: %w", err)
	}
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("encode history: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".history-*.json")
	if err != nil {
		return fmt.Errorf("write history: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write history: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write history: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("write history: %w", err)
	}
	return nil
}

// Recorder returns an event hook that appends a record for every finished or
// failed file. kind is KindSent or KindReceived. The peer of each record is
// taken from the session's ConnectedEvent. Write failures are logged and do
// not interrupt the transfer.
func (s *Store) Recorder(kind string) func(transfer.Event) {
	peers := make(map[string]string)
	return func(ev transfer.Event) {
		var rec Record
		switch e := ev.(type) {
		case transfer.ConnectedEvent:
			peer := e.PeerName
			if peer == "" {
				peer = e.Peer
			}
			peers[e.SessionID] = peer
			return
		case transfer.FileCompleteEvent:
			rec = Record{
				Filename: e.FileName,
				Filesize: e.Size,
				Path:     e.Path,
				Peer:     peers[e.SessionID],
				Status:   StatusCompleted,
			}
		case transfer.FileFailedEvent:
			rec = Record{
				Filename: e.FileName,
				Path:     e.Path,
				Peer:     peers[e.SessionID],
				Status:   StatusFailed,
			}
			if e.Err != nil {
				rec.Error = e.Err.Error()
			}
		case transfer.BatchCompleteEvent:
			delete(peers, e.SessionID)
			return
		case transfer.SessionErrorEvent:
			delete(peers, e.SessionID)
			return
		default:
			return
		}
		rec.Type = kind
		if err := s.Append(rec); err != nil {
			slog.Warn("Failed to record transfer history", "fileName", rec.Filename, "error", err)
		}
	}
}
