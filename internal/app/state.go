package app

import (
	"errors"
	"log/slog"
	"sort"
	"sync"
	"time"
)

var ErrSessionExists = errors.New("invalid state: session already registered")

// ActiveSession is one inbound connection the receiver is serving.
type ActiveSession struct {
	ID      string
	Peer    string
	Started time.Time
}

// SessionRegistry tracks the receiver's in-flight sessions in a
// concurrent-safe manner.
type SessionRegistry struct {
	mu       sync.Mutex
	sessions map[string]ActiveSession
	now      func() time.Time
}

// NewSessionRegistry creates an empty registry.
func NewSessionRegistry() *SessionRegistry {
	return &SessionRegistry{
		sessions: make(map[string]ActiveSession),
		now:      time.Now,
	}
}

// Add registers a session. Registering the same id twice is an error.
func (r *SessionRegistry) Add(id, peer string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[id]; ok {
		slog.Warn("Failed to register session", "session", id, "error", ErrSessionExists)
		return ErrSessionExists
	}
	r.sessions[id] = ActiveSession{ID: id, Peer: peer, Started: r.now()}
	return nil
}

// Remove forgets a session. Unknown ids are ignored.
func (r *SessionRegistry) Remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, id)
}

// Len returns the number of sessions in flight.
func (r *SessionRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Active returns a snapshot of the sessions in flight, oldest first.
func (r *SessionRegistry) Active() []ActiveSession {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]ActiveSession, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Started.Equal(out[j].Started) {
			return out[i].ID < out[j].ID
		}
		return out[i].Started.Before(out[j].Started)
	})
	return out
}
