package sender

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strconv"
	"sync"

	"github.com/rescp17/deskTransfer/pkg/batch"
	"github.com/rescp17/deskTransfer/pkg/transfer"
)

// State represents the current state of the sender in the transfer protocol
type State int

const (
	Disconnected State = iota
	Connecting
	Handshaked
	Sending
	BatchDone
	Failed
	Cancelled
)

// String returns the string representation of State
func (s State) String() string {
	switch s {
	case Disconnected:
		return "Disconnected"
	case Connecting:
		return "Connecting"
	case Handshaked:
		return "Handshaked"
	case Sending:
		return "Sending"
	case BatchDone:
		return "BatchDone"
	case Failed:
		return "Failed"
	case Cancelled:
		return "Cancelled"
	default:
		return "Unknown"
	}
}

var ErrNotConnected = errors.New("session is not handshaked")

// Session drives one outbound batch over one connection.
type Session struct {
	config *transfer.TransferConfig
	emit   transfer.Emitter
	logger *slog.Logger

	// ctx lives as long as the session; Connect ties it to the caller's
	// context as well.
	ctx    context.Context
	cancel context.CancelFunc
	tally  *batch.Tally

	stateMutex sync.RWMutex
	state      State
	conn       *transfer.Session
	unlink     func() bool
}

// NewSession creates an unconnected sender session. Events go to emit.
func NewSession(cfg *transfer.TransferConfig, emit transfer.Emitter) *Session {
	if cfg == nil {
		cfg = transfer.DefaultTransferConfig()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Session{
		config: cfg,
		emit:   emit,
		logger: slog.Default(),
		ctx:    ctx,
		cancel: cancel,
		tally:  batch.NewTally(),
		state:  Disconnected,
	}
}

// Connect dials host:port and exchanges handshakes. On any failure the
// session is Failed (or Cancelled), a SessionErrorEvent is emitted and the
// error is returned.
func (s *Session) Connect(ctx context.Context, host string, port int) (transfer.HandshakeMessage, error) {
	if s.getState() != Disconnected {
		return transfer.HandshakeMessage{}, fmt.Errorf("connect called in state %s", s.getState())
	}
	unlink := context.AfterFunc(ctx, s.cancel)
	s.stateMutex.Lock()
	s.unlink = unlink
	s.stateMutex.Unlock()

	if ctx.Err() != nil || s.ctx.Err() != nil {
		s.terminate(transfer.ErrCancelled)
		return transfer.HandshakeMessage{}, transfer.ErrCancelled
	}
	s.setState(Connecting)

	addr := net.JoinHostPort(host, strconv.Itoa(port))
	dialer := net.Dialer{Timeout: s.config.DialTimeout}
	raw, err := dialer.DialContext(s.ctx, "tcp", addr)
	if err != nil {
		if s.ctx.Err() != nil {
			err = transfer.ErrCancelled
		} else {
			err = &transfer.ConnectionError{Op: "dial " + addr, Err: err}
		}
		s.terminate(err)
		return transfer.HandshakeMessage{}, err
	}

	conn := transfer.NewSession(s.ctx, raw, s.config)
	s.stateMutex.Lock()
	s.conn = conn
	s.logger = conn.Logger()
	s.stateMutex.Unlock()

	reply, err := conn.Initiate(s.config.NameOr(transfer.DefaultSenderName), s.config.Framing)
	if err != nil {
		if s.ctx.Err() != nil {
			err = transfer.ErrCancelled
		}
		conn.Close()
		s.terminate(err)
		return transfer.HandshakeMessage{}, err
	}

	s.setState(Handshaked)
	s.emit.Emit(transfer.ConnectedEvent{
		SessionID: s.conn.ID,
		Peer:      addr,
		PeerName:  reply.ClientName,
	})
	return reply, nil
}

// SendBatch sends every path in order and finishes with BatchEnd. Per-file
// failures are reported and skipped; connection failures and cancellation
// end the batch early with an error.
func (s *Session) SendBatch(paths []string) (transfer.BatchCompleteEvent, error) {
	if s.getState() != Handshaked {
		return transfer.BatchCompleteEvent{}, ErrNotConnected
	}
	s.setState(Sending)
	defer s.conn.Close()

	plan := batch.Plan(paths)
	s.logger.Info("Sending batch", "files", len(plan), "bytes", batch.TotalBytes(plan))

	for _, pf := range plan {
		if s.ctx.Err() != nil {
			return s.abort(transfer.ErrCancelled)
		}
		err := s.sendFile(pf)
		if err == nil {
			continue
		}
		switch transfer.LogError(s.logger, "File transfer failed", err, "file", pf.Path) {
		case transfer.ActionSkipFile:
			failed := transfer.FileFailedEvent{
				SessionID:   s.conn.ID,
				FileName:    pf.Info.Filename,
				Path:        pf.Path,
				CurrentFile: pf.Info.CurrentFile,
				Err:         err,
			}
			s.tally.Fail(failed)
			s.emit.Emit(failed)
		default:
			return s.abort(err)
		}
	}

	if s.ctx.Err() != nil {
		return s.abort(transfer.ErrCancelled)
	}
	if err := s.conn.WriteMessage(transfer.BatchEndMessage{}); err != nil {
		return s.abort(err)
	}

	s.conn.SetState(transfer.StateComplete)
	s.setState(BatchDone)
	summary := s.tally.Summary(s.conn.ID)
	s.logger.Info("Batch sent", "files", len(summary.Files), "bytes", summary.TotalBytes, "failed", summary.Failed)
	s.emit.Emit(summary)
	return summary, nil
}

// sendFile streams one file: FileInfo, FileData per chunk, FileEnd. A local
// error before FileInfo skips the file; a local error mid-stream still closes
// the file on the peer with FileEnd.
func (s *Session) sendFile(pf batch.PlannedFile) error {
	if pf.Err != nil {
		return s.reportToPeer(pf.Err)
	}
	chunker, err := transfer.NewChunker(pf.Path, s.config.ChunkSize)
	if err != nil {
		return s.reportToPeer(err)
	}
	defer chunker.Close()

	size := uint64(chunker.Size())
	info := transfer.NewFileInfo(pf.Path, size, pf.Info.FileCount, pf.Info.CurrentFile)
	if err := s.conn.WriteMessage(info); err != nil {
		return err
	}
	s.logger.Debug("Sending file", "file", info.Filename, "size", size, "index", info.CurrentFile, "count", info.FileCount)

	for {
		if s.ctx.Err() != nil {
			return transfer.ErrCancelled
		}
		chunk, err := chunker.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			if werr := s.reportToPeer(err); !errors.Is(werr, err) {
				return werr
			}
			if werr := s.conn.WriteMessage(transfer.FileEndMessage{}); werr != nil {
				return werr
			}
			return err
		}
		if err := s.conn.WriteMessage(transfer.FileDataMessage{Data: chunk.Data}); err != nil {
			return err
		}
		sent := uint64(chunker.BytesRead())
		s.emit.Emit(transfer.ProgressEvent{
			SessionID:   s.conn.ID,
			FileName:    info.Filename,
			CurrentFile: info.CurrentFile,
			FileCount:   info.FileCount,
			Bytes:       sent,
			Size:        size,
			Percent:     transfer.Percent(sent, size),
		})
	}

	if err := s.conn.WriteMessage(transfer.FileEndMessage{}); err != nil {
		return err
	}
	done := transfer.FileCompleteEvent{
		SessionID:   s.conn.ID,
		FileName:    info.Filename,
		Path:        pf.Path,
		Size:        size,
		CurrentFile: info.CurrentFile,
		FileCount:   info.FileCount,
	}
	s.tally.Complete(done)
	s.emit.Emit(done)
	return nil
}

// reportToPeer tells the receiver about a local failure. It returns cause,
// unless writing the Error message itself failed.
func (s *Session) reportToPeer(cause error) error {
	if err := s.conn.WriteMessage(transfer.ErrorMessage{ErrorMsg: cause.Error()}); err != nil {
		return err
	}
	return cause
}

// abort ends the batch without BatchEnd and reports why.
func (s *Session) abort(err error) (transfer.BatchCompleteEvent, error) {
	s.terminate(err)
	return s.tally.Summary(s.conn.ID), err
}

func (s *Session) terminate(err error) {
	if errors.Is(err, transfer.ErrCancelled) {
		s.setState(Cancelled)
	} else {
		s.setState(Failed)
	}
	id := ""
	if s.conn != nil {
		s.conn.Fail()
		id = s.conn.ID
	}
	s.emit.Emit(transfer.SessionErrorEvent{SessionID: id, Err: err})
}

// Cancel stops the session at the next chunk boundary or blocking socket call.
// No BatchEnd is sent; the peer sees the connection close.
// Cancel before Connect makes Connect return transfer.ErrCancelled.
func (s *Session) Cancel() {
	s.cancel()
}

// Close releases the connection and the session context.
func (s *Session) Close() error {
	s.cancel()
	s.stateMutex.RLock()
	conn, unlink := s.conn, s.unlink
	s.stateMutex.RUnlock()
	if unlink != nil {
		unlink()
	}
	if conn != nil {
		return conn.Close()
	}
	return nil
}

// State returns the current state of the session.
func (s *Session) State() State {
	return s.getState()
}

func (s *Session) getState() State {
	s.stateMutex.RLock()
	defer s.stateMutex.RUnlock()
	return s.state
}

func (s *Session) setState(state State) {
	s.stateMutex.Lock()
	defer s.stateMutex.Unlock()

	if s.state != state {
		s.logger.Debug("Sender state changed", "from", s.state, "to", state)
		s.state = state
	}
}
