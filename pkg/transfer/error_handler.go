package transfer

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"syscall"
)

// ErrorAction is what a session does with an error. Nothing is retried.
type ErrorAction int

const (
	// ActionSkipFile reports the error and moves on to the next file.
	ActionSkipFile ErrorAction = iota
	// ActionAbortSession ends the whole session.
	ActionAbortSession
	// ActionCancel ends the session quietly because its owner asked for it.
	ActionCancel
)

// String returns a string representation of ErrorAction
func (a ErrorAction) String() string {
	switch a {
	case ActionSkipFile:
		return "skip_file"
	case ActionAbortSession:
		return "abort_session"
	case ActionCancel:
		return "cancel"
	default:
		return "unknown"
	}
}

// Classify decides how a session reacts to err. File errors only cost the
// current file; protocol and connection errors cost the session.
func Classify(err error) ErrorAction {
	switch {
	case err == nil:
		return ActionSkipFile
	case errors.Is(err, ErrCancelled), errors.Is(err, context.Canceled):
		return ActionCancel
	case IsProtocolError(err), IsConnectionError(err):
		return ActionAbortSession
	case IsFileIOError(err):
		return ActionSkipFile
	case isNetworkFailure(err):
		return ActionAbortSession
	default:
		// Unknown errors come from local code paths, not the socket.
		return ActionSkipFile
	}
}

func isNetworkFailure(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	return errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, net.ErrClosed) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.EPIPE) ||
		errors.Is(err, context.DeadlineExceeded)
}

// IsTimeout reports whether err comes from an expired socket deadline.
func IsTimeout(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// LogError logs err at the level matching the action it leads to.
func LogError(logger *slog.Logger, msg string, err error, attrs ...any) ErrorAction {
	if logger == nil {
		logger = slog.Default()
	}
	action := Classify(err)
	fields := append([]any{"error", err, "action", action.String(), "timeout", IsTimeout(err)}, attrs...)
	switch action {
	case ActionSkipFile:
		logger.Warn(msg, fields...)
	case ActionCancel:
		logger.Info(msg, fields...)
	default:
		logger.Error(msg, fields...)
	}
	return action
}
