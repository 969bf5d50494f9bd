package transfer

import "context"

// Event is a marker interface for everything a session reports to its owner.
// Only types from this package (by embedding event) satisfy it.
type Event interface {
	isEvent()
}

type event struct{}

func (event) isEvent() {}

// ConnectedEvent is sent once the handshake has completed.
type ConnectedEvent struct {
	event
	SessionID string
	Peer      string
	PeerName  string
}

// ProgressEvent reports the percentage of the current file transferred so far.
type ProgressEvent struct {
	event
	SessionID   string
	FileName    string
	CurrentFile uint32
	FileCount   uint32
	Bytes       uint64
	Size        uint64
	Percent     int
}

// FileCompleteEvent is sent when a file was fully sent or received.
type FileCompleteEvent struct {
	event
	SessionID   string
	FileName    string
	Path        string
	Size        uint64
	CurrentFile uint32
	FileCount   uint32
}

// FileFailedEvent is sent when one file could not be transferred. The batch
// carries on with the next file.
type FileFailedEvent struct {
	event
	SessionID   string
	FileName    string
	Path        string
	CurrentFile uint32
	Err         error
}

// PeerErrorEvent forwards an Error message received from the other end.
type PeerErrorEvent struct {
	event
	SessionID string
	Message   string
}

// FileRecord is one completed file in a batch summary.
type FileRecord struct {
	Name string
	Path string
	Size uint64
}

// BatchCompleteEvent closes a batch. Files lists the completed files in the
// order they finished.
type BatchCompleteEvent struct {
	event
	SessionID  string
	Files      []FileRecord
	TotalBytes uint64
	Failed     int
}

// SessionErrorEvent reports the error that ended a session: a ProtocolError,
// a ConnectionError or ErrCancelled.
type SessionErrorEvent struct {
	event
	SessionID string
	Err       error
}

// Emitter delivers events to a channel without outliving ctx. A nil channel
// drops everything.
type Emitter struct {
	ctx context.Context
	ch  chan<- Event
}

func NewEmitter(ctx context.Context, ch chan<- Event) Emitter {
	return Emitter{ctx: ctx, ch: ch}
}

// Emit blocks until the event is delivered or the context ends.
func (e Emitter) Emit(ev Event) {
	if e.ch == nil {
		return
	}
	select {
	case e.ch <- ev:
	case <-e.ctx.Done():
	}
}

// Percent is floor(done/total*100), or 0 for an empty total.
func Percent(done, total uint64) int {
	if total == 0 {
		return 0
	}
	if done >= total {
		return 100
	}
	return int(done * 100 / total)
}
