package viewer

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// ErrSessionNotFound is returned for unknown or expired session ids.
var ErrSessionNotFound = eris.New("viewer: session not found")

type entry struct {
	session  *Session
	lastSeen time.Time
}

// Registry keeps the live sessions keyed by id. Sessions idle for longer
// than the TTL are dropped by Sweep.
type Registry struct {
	mu       sync.Mutex
	source   Source
	opts     Options
	ttl      time.Duration
	sessions map[string]*entry
	now      func() time.Time

	// OnChange, when set, is called with the session count after every
	// create or removal.
	OnChange func(n int)
}

// NewRegistry creates an empty registry.
func NewRegistry(source Source, opts Options, ttl time.Duration) *Registry {
	return &Registry{
		source:   source,
		opts:     opts,
		ttl:      ttl,
		sessions: make(map[string]*entry),
		now:      time.Now,
	}
}

func (r *Registry) changed() {
	if r.OnChange != nil {
		r.OnChange(len(r.sessions))
	}
}

// Create starts a new session and returns its id.
func (r *Registry) Create() (string, *Session) {
	s := NewSession(r.source, r.opts)
	id := uuid.NewString()

	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[id] = &entry{session: s, lastSeen: r.now()}
	r.changed()
	return id, s
}

// Get returns the session and marks it as used.
func (r *Registry) Get(id string) (*Session, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, eris.Wrapf(ErrSessionNotFound, "%q", id)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.sessions[id]
	if !ok {
		return nil, eris.Wrapf(ErrSessionNotFound, "%q", id)
	}
	e.lastSeen = r.now()
	return e.session, nil
}

// Delete ends a session.
func (r *Registry) Delete(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.sessions[id]
	if !ok {
		return eris.Wrapf(ErrSessionNotFound, "%q", id)
	}
	e.session.Close()
	delete(r.sessions, id)
	r.changed()
	return nil
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Sweep drops sessions idle for longer than the TTL and returns how many
// were dropped.
func (r *Registry) Sweep() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := r.now().Add(-r.ttl)
	n := 0
	for id, e := range r.sessions {
		if e.lastSeen.Before(cutoff) {
			e.session.Close()
			delete(r.sessions, id)
			n++
		}
	}
	if n > 0 {
		r.changed()
	}
	return n
}

// Run sweeps on every interval until ctx is done.
func (r *Registry) Run(ctx context.Context, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if n := r.Sweep(); n > 0 {
				zap.L().Debug("viewer: expired sessions", zap.Int("count", n))
			}
		}
	}
}
