package transfer

import (
	"errors"
	"fmt"
)

var (
	// ErrCancelled is returned by sessions whose context was cancelled by the owner.
	ErrCancelled = errors.New("transfer cancelled")

	ErrFrameTooLarge  = errors.New("frame exceeds maximum size")
	ErrUnknownMessage = errors.New("unknown msg_type")
	ErrOutOfSequence  = errors.New("message out of sequence")
)

// ProtocolError reports a frame that could not be decoded or a message that
// arrived in the wrong order. The protocol has no way to resynchronise, so the
// receiving session is aborted.
type ProtocolError struct {
	Op  string
	Err error
}

func (e *ProtocolError) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("protocol error: %v", e.Err)
	}
	return fmt.Sprintf("protocol error: %s: %v", e.Op, e.Err)
}

func (e *ProtocolError) Unwrap() error { return e.Err }

// ConnectionError reports a refused, reset, closed or timed-out connection.
type ConnectionError struct {
	Op  string
	Err error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("connection error: %s: %v", e.Op, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// FileIOError reports a local file that could not be opened, read or written.
type FileIOError struct {
	Op   string
	Path string
	Err  error
}

func (e *FileIOError) Error() string {
	return fmt.Sprintf("file error: %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *FileIOError) Unwrap() error { return e.Err }

// ValidationError reports bad user input such as an address or a config value.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func protocolErrorf(op string, format string, args ...any) error {
	return &ProtocolError{Op: op, Err: fmt.Errorf(format, args...)}
}

func IsProtocolError(err error) bool {
	var pe *ProtocolError
	return errors.As(err, &pe)
}

func IsConnectionError(err error) bool {
	var ce *ConnectionError
	return errors.As(err, &ce)
}

func IsFileIOError(err error) bool {
	var fe *FileIOError
	return errors.As(err, &fe)
}
