package transfer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
)

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected ErrorAction
	}{
		{"cancelled", ErrCancelled, ActionCancel},
		{"context canceled", fmt.Errorf("dial: %w", context.Canceled), ActionCancel},
		{"protocol", &ProtocolError{Op: "decode", Err: ErrUnknownMessage}, ActionAbortSession},
		{"connection", &ConnectionError{Op: "read", Err: io.EOF}, ActionAbortSession},
		{"file open", &FileIOError{Op: "open", Path: "a", Err: os.ErrPermission}, ActionSkipFile},
		{"file shrank", &FileIOError{Op: "read", Path: "a", Err: io.ErrUnexpectedEOF}, ActionSkipFile},
		{"raw eof", io.EOF, ActionAbortSession},
		{"raw reset", syscall.ECONNRESET, ActionAbortSession},
		{"raw closed", net.ErrClosed, ActionAbortSession},
		{"net timeout", &net.OpError{Op: "read", Err: timeoutErr{}}, ActionAbortSession},
		{"wrapped connection", fmt.Errorf("sending: %w", &ConnectionError{Op: "write", Err: syscall.EPIPE}), ActionAbortSession},
		{"unknown local", errors.New("something odd"), ActionSkipFile},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Classify(tt.err))
		})
	}
}

func TestIsTimeout(t *testing.T) {
	assert.True(t, IsTimeout(&ConnectionError{Op: "read", Err: &net.OpError{Op: "read", Err: timeoutErr{}}}))
	assert.False(t, IsTimeout(&ConnectionError{Op: "read", Err: io.EOF}))
	assert.False(t, IsTimeout(nil))
}

func TestErrorAction_String(t *testing.T) {
	assert.Equal(t, "skip_file", ActionSkipFile.String())
	assert.Equal(t, "abort_session", ActionAbortSession.String())
	assert.Equal(t, "cancel", ActionCancel.String())
	assert.Equal(t, "unknown", ErrorAction(99).String())
}

func TestLogError_ReturnsAction(t *testing.T) {
	assert.Equal(t, ActionAbortSession, LogError(nil, "test", &ProtocolError{Op: "x", Err: ErrOutOfSequence}))
	assert.Equal(t, ActionSkipFile, LogError(nil, "test", &FileIOError{Op: "open", Err: os.ErrNotExist}))
}

func TestErrorMessages(t *testing.T) {
	assert.Equal(t, "protocol error: decode: boom", (&ProtocolError{Op: "decode", Err: errors.New("boom")}).Error())
	assert.Equal(t, "invalid port: bad", (&ValidationError{Field: "port", Reason: "bad"}).Error())
	assert.Contains(t, (&FileIOError{Op: "open", Path: "/tmp/x", Err: os.ErrNotExist}).Error(), "/tmp/x")
}
