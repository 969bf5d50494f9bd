package receiver

import (
	"context"
	"fmt"
	"log/slog"
	"net"

	"github.com/rescp17/deskTransfer/pkg/batch"
	"github.com/rescp17/deskTransfer/pkg/transfer"
)

// Session serves one inbound connection: handshake, then files until
// BatchEnd.
type Session struct {
	conn   *transfer.Session
	config *transfer.TransferConfig
	files  *FileReceiver
	tally  *batch.Tally
	emit   transfer.Emitter
	logger *slog.Logger
}

// NewSession wraps an accepted connection. ctx cancels the session's I/O;
// emit receives its events.
func NewSession(ctx context.Context, raw net.Conn, cfg *transfer.TransferConfig, outputDir string, emit transfer.Emitter) *Session {
	if cfg == nil {
		cfg = transfer.DefaultTransferConfig()
	}
	conn := transfer.NewSession(ctx, raw, cfg)
	return &Session{
		conn:   conn,
		config: cfg,
		files:  NewFileReceiver(outputDir, cfg.CollisionPolicy, conn.Logger()),
		tally:  batch.NewTally(),
		emit:   emit,
		logger: conn.Logger(),
	}
}

func (s *Session) ID() string { return s.conn.ID }

// Run drives the session to completion and always closes the connection.
// It returns nil after BatchEnd and the error that ended the session
// otherwise.
func (s *Session) Run() error {
	defer s.conn.Close()

	hello, err := s.conn.Accept(s.config.NameOr(transfer.DefaultReceiverName))
	if err != nil {
		return s.fail(err)
	}
	s.emit.Emit(transfer.ConnectedEvent{
		SessionID: s.conn.ID,
		Peer:      s.conn.RemoteAddr().String(),
		PeerName:  hello.ClientName,
	})

	for {
		msg, err := s.conn.ReadMessage()
		if err != nil {
			return s.fail(err)
		}
		done, err := s.handle(msg)
		if err != nil {
			return s.fail(err)
		}
		if done {
			return nil
		}
	}
}

// handle applies one message. It reports done after BatchEnd; any returned
// error ends the session.
func (s *Session) handle(msg transfer.Message) (bool, error) {
	switch m := msg.(type) {
	case transfer.HandshakeMessage:
		return false, &transfer.ProtocolError{Op: "handshake", Err: fmt.Errorf("%w: repeated handshake", transfer.ErrOutOfSequence)}

	case transfer.FileInfoMessage:
		rec, err := s.files.Begin(m)
		if transfer.IsProtocolError(err) {
			return false, err
		}
		if err != nil {
			s.fileFailed(rec, err)
			return false, nil
		}
		s.progress(rec)

	case transfer.FileDataMessage:
		rec, err := s.files.Write(m.Data)
		if transfer.IsProtocolError(err) {
			return false, err
		}
		if err != nil {
			s.fileFailed(rec, err)
			return false, nil
		}
		if rec.Status == StatusReceiving {
			s.progress(rec)
		}

	case transfer.FileEndMessage:
		rec, err := s.files.End()
		if transfer.IsProtocolError(err) {
			return false, err
		}
		if err != nil {
			s.fileFailed(rec, err)
			return false, nil
		}
		if rec.Status == StatusCompleted {
			done := transfer.FileCompleteEvent{
				SessionID:   s.conn.ID,
				FileName:    rec.FileName,
				Path:        rec.OutputPath,
				Size:        rec.ReceivedSize,
				CurrentFile: rec.CurrentFile,
				FileCount:   rec.FileCount,
			}
			s.tally.Complete(done)
			s.emit.Emit(done)
		}

	case transfer.BatchEndMessage:
		if cur := s.files.Current(); cur != nil {
			return false, &transfer.ProtocolError{Op: "batch_end", Err: fmt.Errorf("%w: %s was never ended", transfer.ErrOutOfSequence, cur.FileName)}
		}
		s.conn.SetState(transfer.StateComplete)
		summary := s.tally.Summary(s.conn.ID)
		s.logger.Info("All files received", "files", len(summary.Files), "bytes", summary.TotalBytes, "failed", summary.Failed)
		s.emit.Emit(summary)
		return true, nil

	case transfer.ErrorMessage:
		s.logger.Warn("Peer reported an error", "message", m.ErrorMsg)
		s.emit.Emit(transfer.PeerErrorEvent{SessionID: s.conn.ID, Message: m.ErrorMsg})

	default:
		return false, &transfer.ProtocolError{Op: "dispatch", Err: fmt.Errorf("%w: %T", transfer.ErrUnknownMessage, msg)}
	}
	return false, nil
}

func (s *Session) progress(rec *FileReception) {
	s.emit.Emit(transfer.ProgressEvent{
		SessionID:   s.conn.ID,
		FileName:    rec.FileName,
		CurrentFile: rec.CurrentFile,
		FileCount:   rec.FileCount,
		Bytes:       rec.ReceivedSize,
		Size:        rec.TotalSize,
		Percent:     rec.Percent(),
	})
}

func (s *Session) fileFailed(rec *FileReception, err error) {
	transfer.LogError(s.logger, "File reception failed", err, "fileName", rec.FileName)
	failed := transfer.FileFailedEvent{
		SessionID:   s.conn.ID,
		FileName:    rec.FileName,
		Path:        rec.OutputPath,
		CurrentFile: rec.CurrentFile,
		Err:         err,
	}
	s.tally.Fail(failed)
	s.emit.Emit(failed)
}

// fail ends the session on err. An open file is closed and kept as a
// partial file.
func (s *Session) fail(err error) error {
	if rec := s.files.Abort(); rec != nil {
		s.fileFailed(rec, fmt.Errorf("session ended mid-file: %w", err))
	}
	s.conn.Fail()
	transfer.LogError(s.logger, "Receive session ended", err)
	s.emit.Emit(transfer.SessionErrorEvent{SessionID: s.conn.ID, Err: err})
	return err
}
