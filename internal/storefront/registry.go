package storefront

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/fairyhunter13/sneaker-drop-storefront/internal/obs"
)

// Registry maps session ids to live sessions and expires idle ones.
type Registry struct {
	deps Deps

	mu       sync.Mutex
	sessions map[string]*Session
	closed   bool
}

func NewRegistry(deps Deps) *Registry {
	return &Registry{deps: deps, sessions: make(map[string]*Session)}
}

// Get returns the session for id, creating a new one under a fresh id when id is empty or
// unknown. created reports whether a new session was made.
func (r *Registry) Get(ctx context.Context, id string) (s *Session, created bool, err error) {
	now := r.deps.now()
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil, false, ErrSessionClosed
	}
	if existing, ok := r.sessions[id]; ok && id != "" {
		r.mu.Unlock()
		existing.Touch(now)
		return existing, false, nil
	}
	r.mu.Unlock()

	s, loadErr := NewSession(ctx, uuid.NewString(), r.deps)
	if loadErr != nil {
		obs.Logger.WithError(loadErr).WithField("session_id", s.ID).Warn("catalog_load_failed")
	}

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		s.Close()
		return nil, false, ErrSessionClosed
	}
	r.sessions[s.ID] = s
	n := len(r.sessions)
	r.mu.Unlock()
	obs.Logger.WithFields(logrus.Fields{"session_id": s.ID, "sessions": n}).Info("session_created")
	return s, true, nil
}

// Lookup returns an existing session without creating one.
func (r *Registry) Lookup(id string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	return s, ok
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Sweep closes sessions idle for longer than ttl and returns how many were removed.
func (r *Registry) Sweep(now time.Time, ttl time.Duration) int {
	var expired []*Session
	r.mu.Lock()
	for id, s := range r.sessions {
		if now.Sub(s.LastSeen()) > ttl {
			expired = append(expired, s)
			delete(r.sessions, id)
		}
	}
	r.mu.Unlock()
	for _, s := range expired {
		s.Close()
		obs.Logger.WithField("session_id", s.ID).Info("session_expired")
	}
	return len(expired)
}

// Run sweeps idle sessions on every interval until ctx is done.
func (r *Registry) Run(ctx context.Context) {
	interval := r.deps.Cfg.SessionSweepInterval
	if interval <= 0 {
		interval = time.Minute
	}
	ttl := r.deps.Cfg.SessionIdleTTL
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			r.Sweep(r.deps.now(), ttl)
		}
	}
}

// CloseAll tears every session down and refuses new ones.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	r.closed = true
	all := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		all = append(all, s)
	}
	r.sessions = make(map[string]*Session)
	r.mu.Unlock()

	var g errgroup.Group
	g.SetLimit(8)
	for _, s := range all {
		g.Go(func() error {
			s.Close()
			return nil
		})
	}
	_ = g.Wait()
	obs.Logger.WithField("sessions", len(all)).Info("sessions_closed")
}
