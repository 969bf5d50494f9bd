package sender

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"

	"github.com/rescp17/deskTransfer/pkg/concurrency"
	"github.com/rescp17/deskTransfer/pkg/discovery"
	"github.com/rescp17/deskTransfer/pkg/fileInfo"
	"github.com/rescp17/deskTransfer/pkg/transfer"
)

// SendRequest names the files to send and where to send them.
type SendRequest struct {
	Paths []string
	Host  string
	Port  int
	// ImagesOnly drops files that are not supported images before sending.
	ImagesOnly bool
}

// App is the main application logic controller for the sender.
type App struct {
	config     *transfer.TransferConfig
	guard      *concurrency.ConcurrencyGuard
	discoverer discovery.Adapter

	mu         sync.Mutex
	cancel     context.CancelFunc
	transferWG sync.WaitGroup // Track active transfer goroutines
}

// NewApp creates a new sender application instance. adapter may be nil when
// peer discovery is not used.
func NewApp(cfg *transfer.TransferConfig, adapter discovery.Adapter) *App {
	if cfg == nil {
		cfg = transfer.DefaultTransferConfig()
	}
	return &App{
		config:     cfg,
		guard:      concurrency.NewConcurrencyGuard(),
		discoverer: adapter,
	}
}

// Send starts a batch in the background and returns its event stream. The
// channel is closed after the final BatchComplete or SessionError event.
// Only one batch runs at a time; a second Send while one is running reports
// concurrency.ErrBusy.
func (a *App) Send(ctx context.Context, req SendRequest) (<-chan transfer.Event, error) {
	if strings.TrimSpace(req.Host) == "" {
		return nil, &transfer.ValidationError{Field: "host", Reason: "must not be empty"}
	}
	if req.Port <= 0 || req.Port > 65535 {
		return nil, &transfer.ValidationError{Field: "port", Reason: "must be between 1 and 65535"}
	}
	if len(req.Paths) == 0 {
		return nil, &transfer.ValidationError{Field: "paths", Reason: "no files to send"}
	}
	release, err := a.guard.Acquire()
	if err != nil {
		return nil, err
	}

	events := make(chan transfer.Event, a.config.EventBufferSize)
	// Events outlive Cancel so the final SessionError still reaches the caller.
	emit := transfer.NewEmitter(ctx, events)
	runCtx, cancel := context.WithCancel(ctx)
	// Cancel reaches this run from the moment Send returns.
	a.setCancel(cancel)

	a.transferWG.Add(1)
	go func() {
		defer a.transferWG.Done()
		defer close(events)
		defer release()
		defer a.setCancel(nil)
		defer cancel()
		if err := a.run(runCtx, req, emit); err != nil {
			slog.Debug("Batch ended with error", "host", req.Host, "error", err)
		}
	}()
	return events, nil
}

func (a *App) run(ctx context.Context, req SendRequest, emit transfer.Emitter) error {
	paths, skipped := fileInfo.Collect(req.Paths, req.ImagesOnly)
	for _, s := range skipped {
		emit.Emit(transfer.FileFailedEvent{FileName: s.Path, Path: s.Path, Err: s.Err})
	}
	if len(paths) == 0 {
		err := &transfer.ValidationError{Field: "paths", Reason: "no supported files to send"}
		emit.Emit(transfer.SessionErrorEvent{Err: err})
		return err
	}

	sess := NewSession(a.config, emit)
	defer sess.Close()

	if _, err := sess.Connect(ctx, req.Host, req.Port); err != nil {
		slog.Error("Failed to connect to receiver", "host", req.Host, "port", req.Port, "error", err)
		return err
	}
	_, err := sess.SendBatch(paths)
	return err
}

// Cancel stops the running batch, if any.
func (a *App) Cancel() {
	a.mu.Lock()
	cancel := a.cancel
	a.mu.Unlock()
	if cancel != nil {
		slog.Info("Cancelling transfer")
		cancel()
	}
}

// Discover browses for receivers until ctx is done.
func (a *App) Discover(ctx context.Context) (<-chan discovery.DiscoveryResult, error) {
	if a.discoverer == nil {
		return nil, errors.New("peer discovery is not configured")
	}
	return a.discoverer.Discover(ctx, discovery.ServiceName(discovery.DefaultServerType, discovery.DefaultDomain)), nil
}

// Wait blocks until every batch started by Send has finished.
func (a *App) Wait() {
	a.transferWG.Wait()
}

func (a *App) setCancel(cancel context.CancelFunc) {
	a.mu.Lock()
	a.cancel = cancel
	a.mu.Unlock()
}
