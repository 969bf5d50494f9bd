package transfer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Session is one TCP connection speaking the transfer protocol. It owns the
// socket, the active codec and the lifecycle state; the sender and receiver
// drive it from their own state machines.
type Session struct {
	// ID identifies this session in logs and events
	ID string

	conn     net.Conn
	codec    Codec
	cfg      *TransferConfig
	ctx      context.Context
	stopWake func() bool
	logger   *slog.Logger

	mu    sync.Mutex
	state SessionState
}

// NewSession wraps conn. Cancelling ctx interrupts any read or write that is
// blocked on the socket.
func NewSession(ctx context.Context, conn net.Conn, cfg *TransferConfig) *Session {
	if cfg == nil {
		cfg = DefaultTransferConfig()
	}
	id := uuid.New().String()
	s := &Session{
		ID:     id,
		conn:   conn,
		codec:  NewJSONCodec(),
		cfg:    cfg,
		ctx:    ctx,
		logger: slog.With("session", id[:8], "peer", conn.RemoteAddr().String()),
		state:  StateInit,
	}
	s.stopWake = context.AfterFunc(ctx, func() {
		_ = conn.SetDeadline(time.Unix(1, 0))
	})
	return s
}

func (s *Session) Logger() *slog.Logger { return s.logger }

func (s *Session) RemoteAddr() net.Addr { return s.conn.RemoteAddr() }

// Framing reports the framing currently in use.
func (s *Session) Framing() string { return s.codec.Name() }

func (s *Session) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// SetState moves the session to next if the transition is allowed and reports
// whether it did.
func (s *Session) SetState(next SessionState) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == next {
		return true
	}
	if !s.state.CanTransitionTo(next) {
		s.logger.Debug("Ignoring session state change", "from", s.state, "to", next)
		return false
	}
	s.logger.Debug("Session state changed", "from", s.state, "to", next)
	s.state = next
	return true
}

// Fail marks the session failed unless it already finished.
func (s *Session) Fail() {
	s.SetState(StateFailed)
}

// Initiate performs the client side of the handshake: send ours, wait for
// theirs. When framing other than json is requested it is used only if the
// peer echoes it back.
func (s *Session) Initiate(name, framing string) (HandshakeMessage, error) {
	s.SetState(StateHandshaking)
	hello := HandshakeMessage{ClientName: name}
	if framing != "" && framing != FramingJSON {
		hello.Framing = framing
	}
	if err := s.WriteMessage(hello); err != nil {
		s.Fail()
		return HandshakeMessage{}, err
	}

	msg, err := s.ReadMessage()
	if err != nil {
		s.Fail()
		return HandshakeMessage{}, err
	}
	reply, ok := msg.(HandshakeMessage)
	if !ok {
		s.Fail()
		return HandshakeMessage{}, &ProtocolError{Op: "handshake", Err: fmt.Errorf("%w: expected %s, got %s", ErrOutOfSequence, Handshake, msg.Type())}
	}

	if hello.Framing != "" && reply.Framing == hello.Framing {
		if err := s.useFraming(reply.Framing); err != nil {
			s.Fail()
			return HandshakeMessage{}, err
		}
	}
	s.SetState(StateActive)
	s.logger.Info("Handshake complete", "peerName", reply.ClientName, "framing", s.Framing())
	return reply, nil
}

// Accept performs the server side of the handshake. The first message must be
// a handshake; anything else is a protocol error and the caller must close the
// connection without reading further.
func (s *Session) Accept(name string) (HandshakeMessage, error) {
	s.SetState(StateHandshaking)
	msg, err := s.ReadMessage()
	if err != nil {
		s.Fail()
		return HandshakeMessage{}, err
	}
	hello, ok := msg.(HandshakeMessage)
	if !ok {
		s.Fail()
		return HandshakeMessage{}, &ProtocolError{Op: "handshake", Err: fmt.Errorf("%w: expected %s, got %s", ErrOutOfSequence, Handshake, msg.Type())}
	}

	reply := HandshakeMessage{ClientName: name}
	var switchTo string
	if hello.Framing != "" && hello.Framing != FramingJSON {
		if _, err := NewCodec(hello.Framing); err == nil {
			reply.Framing = hello.Framing
			switchTo = hello.Framing
		} else {
			s.logger.Warn("Peer asked for unsupported framing, staying on json", "framing", hello.Framing)
		}
	}
	if err := s.WriteMessage(reply); err != nil {
		s.Fail()
		return HandshakeMessage{}, err
	}
	if switchTo != "" {
		if err := s.useFraming(switchTo); err != nil {
			s.Fail()
			return HandshakeMessage{}, err
		}
	}
	s.SetState(StateActive)
	s.logger.Info("Handshake complete", "peerName", hello.ClientName, "framing", s.Framing())
	return hello, nil
}

func (s *Session) useFraming(framing string) error {
	codec, err := NewCodec(framing)
	if err != nil {
		return err
	}
	s.codec = codec
	return nil
}

// ReadMessage blocks for the next frame and decodes it.
func (s *Session) ReadMessage() (Message, error) {
	if s.ctx.Err() != nil {
		return nil, ErrCancelled
	}
	s.armDeadline(s.conn.SetReadDeadline)

	payload, err := ReadFrame(s.conn, s.cfg.MaxFrameSize)
	if err != nil {
		return nil, s.wrapIOError("read", err)
	}
	return s.codec.Unmarshal(payload)
}

// WriteMessage encodes msg and writes it as one frame.
func (s *Session) WriteMessage(msg Message) error {
	if s.ctx.Err() != nil {
		return ErrCancelled
	}
	payload, err := s.codec.Marshal(msg)
	if err != nil {
		return err
	}
	s.armDeadline(s.conn.SetWriteDeadline)

	if err := WriteFrame(s.conn, payload); err != nil {
		return s.wrapIOError("write "+string(msg.Type()), err)
	}
	return nil
}

// armDeadline sets the per-call deadline. If the context was cancelled while
// the deadline was being set, the cancellation deadline is restored so the
// call returns immediately.
func (s *Session) armDeadline(set func(time.Time) error) {
	if s.cfg.IOTimeout > 0 {
		_ = set(time.Now().Add(s.cfg.IOTimeout))
	} else {
		_ = set(time.Time{})
	}
	if s.ctx.Err() != nil {
		_ = s.conn.SetDeadline(time.Unix(1, 0))
	}
}

func (s *Session) wrapIOError(op string, err error) error {
	if s.ctx.Err() != nil {
		return ErrCancelled
	}
	var pe *ProtocolError
	if errors.As(err, &pe) {
		return err
	}
	return &ConnectionError{Op: op, Err: err}
}

// Close releases the socket. It is safe to call more than once.
func (s *Session) Close() error {
	s.stopWake()
	err := s.conn.Close()
	if errors.Is(err, net.ErrClosed) {
		return nil
	}
	return err
}
