package receiver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"sync"
	"time"

	dnssdlog "github.com/brutella/dnssd/log"
	"github.com/google/uuid"
	"github.com/rescp17/deskTransfer/internal/app"
	"github.com/rescp17/deskTransfer/internal/util"
	"github.com/rescp17/deskTransfer/pkg/concurrency"
	"github.com/rescp17/deskTransfer/pkg/discovery"
	"github.com/rescp17/deskTransfer/pkg/transfer"
	"golang.org/x/sync/errgroup"
)

// ServeOptions controls one run of the receiver.
type ServeOptions struct {
	BindAddress string
	Port        int
	OutputDir   string
	// Timestamped receives into OutputDir/<YYYYmmdd_HHMMSS>.
	Timestamped bool
	// Announce publishes the receiver over mDNS while it serves.
	Announce bool
}

// App is the main application logic controller for the receiver.
type App struct {
	config    *transfer.TransferConfig
	guard     *concurrency.ConcurrencyGuard
	registrar discovery.Adapter

	mu        sync.Mutex
	listener  *Listener
	outputDir string
}

// NewApp creates a new receiver application instance. registrar may be nil
// when announcing is not wanted.
func NewApp(cfg *transfer.TransferConfig, registrar discovery.Adapter) *App {
	if cfg == nil {
		cfg = transfer.DefaultTransferConfig()
	}
	dnssdlog.Info.SetOutput(io.Discard)
	dnssdlog.Debug.SetOutput(io.Discard)

	return &App{
		config:    cfg,
		guard:     concurrency.NewConcurrencyGuard(),
		registrar: registrar,
	}
}

// Serve binds the listener and starts accepting in the background. Binding
// errors are returned directly. The returned channel carries every session's
// events and is closed once ctx is done and all accepted sessions have
// finished; the caller must keep reading it until then.
func (a *App) Serve(ctx context.Context, opts ServeOptions) (<-chan transfer.Event, error) {
	if opts.Port < 0 || opts.Port > 65535 {
		return nil, &transfer.ValidationError{Field: "port", Reason: "must be between 0 and 65535"}
	}
	if opts.OutputDir == "" {
		return nil, &transfer.ValidationError{Field: "output_dir", Reason: "must not be empty"}
	}
	release, err := a.guard.Acquire()
	if err != nil {
		return nil, err
	}

	outputDir := opts.OutputDir
	if err := util.EnsureDirectory(outputDir); err != nil {
		release()
		return nil, &transfer.FileIOError{Op: "mkdir", Path: outputDir, Err: err}
	}
	if opts.Timestamped {
		dir, err := util.SessionDir(outputDir, time.Now())
		if err != nil {
			release()
			return nil, &transfer.FileIOError{Op: "mkdir", Path: outputDir, Err: err}
		}
		outputDir = dir
	}

	events := make(chan transfer.Event, a.config.EventBufferSize)
	l := NewListener(a.config, outputDir, events)
	if err := l.Listen(opts.BindAddress, opts.Port); err != nil {
		release()
		return nil, err
	}

	a.mu.Lock()
	a.listener = l
	a.outputDir = outputDir
	a.mu.Unlock()

	go func() {
		defer close(events)
		defer release()
		if err := a.run(ctx, l, opts.Announce); err != nil {
			slog.Error("Receiver stopped with error", "error", err)
		}
		_ = l.Shutdown()
		l.Wait()
		slog.Info("Receiver finished", "outputDir", outputDir)
	}()
	return events, nil
}

// run serves connections and, if asked, announces the receiver until ctx is
// done. A failed announcement is logged; the receiver keeps serving.
func (a *App) run(ctx context.Context, l *Listener, announce bool) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return l.Serve(gctx)
	})

	if announce && a.registrar != nil {
		g.Go(func() error {
			port := 0
			if tcp, ok := l.Addr().(*net.TCPAddr); ok {
				port = tcp.Port
			}
			if err := a.registrar.Announce(gctx, a.serviceInfo(port)); err != nil {
				slog.Error("Failed to start mDNS announcement", "error", err)
			}
			return nil
		})
	}

	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (a *App) serviceInfo(port int) discovery.ServiceInfo {
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "desktransfer"
	}
	serviceUUID := uuid.New().String()
	return discovery.ServiceInfo{
		Name:   fmt.Sprintf("%s-%s", hostname, serviceUUID[:8]),
		Type:   discovery.DefaultServerType,
		Domain: discovery.DefaultDomain,
		Port:   port,
		Text: map[string]string{
			discovery.TxtName:    a.config.NameOr(transfer.DefaultReceiverName),
			discovery.TxtFraming: a.config.Framing,
		},
	}
}

// Addr is the address the receiver is bound to, or nil before Serve.
func (a *App) Addr() net.Addr {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.listener == nil {
		return nil
	}
	return a.listener.Addr()
}

// OutputDir is where files of the current run are written.
func (a *App) OutputDir() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.outputDir
}

// ActiveSessions lists the connections currently being served.
func (a *App) ActiveSessions() []app.ActiveSession {
	a.mu.Lock()
	l := a.listener
	a.mu.Unlock()
	if l == nil {
		return nil
	}
	return l.Sessions()
}

// Close stops accepting and cancels all running sessions.
func (a *App) Close() error {
	a.mu.Lock()
	l := a.listener
	a.mu.Unlock()
	if l == nil {
		return nil
	}
	return l.Close()
}
