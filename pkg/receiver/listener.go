package receiver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/rescp17/deskTransfer/internal/app"
	"github.com/rescp17/deskTransfer/pkg/transfer"
	"golang.org/x/net/netutil"
)

var ErrNotListening = errors.New("listener is not bound")

// Listener accepts inbound connections and runs one Session per connection.
// Stopping it stops accepting; sessions already running finish on their own
// unless Close is called.
type Listener struct {
	config    *transfer.TransferConfig
	outputDir string
	emit      transfer.Emitter
	sessions  *app.SessionRegistry

	mu sync.Mutex
	ln net.Listener

	// sessionCtx outlives Serve's context so that stopping Serve does not
	// sever accepted sessions.
	sessionCtx    context.Context
	cancelSession context.CancelFunc
	wg            sync.WaitGroup
}

// NewListener creates a listener that writes into outputDir and reports
// session events on events. Event delivery blocks until read or until Close,
// so the owner must drain events while sessions run.
func NewListener(cfg *transfer.TransferConfig, outputDir string, events chan<- transfer.Event) *Listener {
	if cfg == nil {
		cfg = transfer.DefaultTransferConfig()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Listener{
		config:        cfg,
		outputDir:     outputDir,
		emit:          transfer.NewEmitter(ctx, events),
		sessions:      app.NewSessionRegistry(),
		sessionCtx:    ctx,
		cancelSession: cancel,
	}
}

// Listen binds bindAddress:port. Port 0 picks a free port; see Addr.
func (l *Listener) Listen(bindAddress string, port int) error {
	addr := net.JoinHostPort(bindAddress, strconv.Itoa(port))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return &transfer.ConnectionError{Op: "listen " + addr, Err: err}
	}
	if l.config.MaxConnections > 0 {
		ln = netutil.LimitListener(ln, l.config.MaxConnections)
	}

	l.mu.Lock()
	l.ln = ln
	l.mu.Unlock()
	slog.Info("Receiver listening", "addr", ln.Addr().String(), "outputDir", l.outputDir, "maxConnections", l.config.MaxConnections)
	return nil
}

// Addr is the bound address, or nil before Listen.
func (l *Listener) Addr() net.Addr {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.ln == nil {
		return nil
	}
	return l.ln.Addr()
}

// Sessions lists the connections currently being served.
func (l *Listener) Sessions() []app.ActiveSession {
	return l.sessions.Active()
}

// Serve accepts connections until ctx is done or Shutdown is called, then
// returns nil. It does not wait for running sessions; see Wait.
func (l *Listener) Serve(ctx context.Context) error {
	l.mu.Lock()
	ln := l.ln
	l.mu.Unlock()
	if ln == nil {
		return ErrNotListening
	}

	stop := context.AfterFunc(ctx, func() {
		_ = l.Shutdown()
	})
	defer stop()

	var delay time.Duration
	for {
		conn, err := ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) || ctx.Err() != nil {
				slog.Info("Receiver stopped accepting", "addr", ln.Addr().String())
				return nil
			}
			if !isTemporary(err) {
				return &transfer.ConnectionError{Op: "accept", Err: err}
			}
			delay = min(max(2*delay, minAcceptDelay), maxAcceptDelay)
			slog.Warn("Accept failed, retrying", "error", err, "delay", delay)
			select {
			case <-time.After(delay):
				continue
			case <-ctx.Done():
				return nil
			}
		}
		delay = 0
		l.wg.Add(1)
		go l.serveConn(conn)
	}
}

const (
	minAcceptDelay = 5 * time.Millisecond
	maxAcceptDelay = time.Second
)

// isTemporary reports accept errors that clear up on their own, such as
// running out of file descriptors.
func isTemporary(err error) bool {
	if errors.Is(err, syscall.EMFILE) || errors.Is(err, syscall.ENFILE) ||
		errors.Is(err, syscall.ECONNABORTED) || errors.Is(err, syscall.ENOBUFS) {
		return true
	}
	var te interface{ Temporary() bool }
	return errors.As(err, &te) && te.Temporary()
}

func (l *Listener) serveConn(conn net.Conn) {
	defer l.wg.Done()

	sess := NewSession(l.sessionCtx, conn, l.config, l.outputDir, l.emit)
	if err := l.sessions.Add(sess.ID(), conn.RemoteAddr().String()); err != nil {
		conn.Close()
		return
	}
	defer l.sessions.Remove(sess.ID())

	slog.Debug("Accepted connection", "session", sess.ID(), "peer", conn.RemoteAddr().String(), "active", l.sessions.Len())
	if err := sess.Run(); err != nil {
		slog.Debug("Session finished with error", "session", sess.ID(), "error", err)
	}
}

// Shutdown stops accepting new connections. It is safe to call more than
// once.
func (l *Listener) Shutdown() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.ln == nil {
		return nil
	}
	err := l.ln.Close()
	if errors.Is(err, net.ErrClosed) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("close listener: %w", err)
	}
	return nil
}

// Close stops accepting and cancels every running session.
func (l *Listener) Close() error {
	err := l.Shutdown()
	l.cancelSession()
	return err
}

// Wait blocks until every accepted session has returned.
func (l *Listener) Wait() {
	l.wg.Wait()
}
