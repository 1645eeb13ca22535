// Package toast holds the single transient notification shown to a shopper.
package toast

import (
	"sync"
	"time"

	"github.com/fairyhunter13/sneaker-drop-storefront/internal/model"
)

// DefaultDuration is how long a toast stays visible.
const DefaultDuration = 2500 * time.Millisecond

// Policy decides what happens to the pending hide when a toast replaces another.
type Policy string

const (
	// PolicyReset cancels the pending hide and starts a fresh one on every Show.
	PolicyReset Policy = "reset"
	// PolicyFirst keeps every scheduled hide running, so the first Show's timer can
	// hide a later toast early.
	PolicyFirst Policy = "first"
)

// ParsePolicy maps a config value to a Policy, defaulting to PolicyReset.
func ParsePolicy(s string) Policy {
	if Policy(s) == PolicyFirst {
		return PolicyFirst
	}
	return PolicyReset
}

// Store owns one toast slot.
type Store struct {
	mu       sync.Mutex
	cur      model.Toast
	duration time.Duration
	policy   Policy
	timers   []*time.Timer
	closed   bool
}

// New returns a Store; a non-positive duration uses DefaultDuration.
func New(duration time.Duration, policy Policy) *Store {
	if duration <= 0 {
		duration = DefaultDuration
	}
	return &Store{duration: duration, policy: policy}
}

// Show displays message immediately, replacing any visible toast, and schedules it to hide.
func (s *Store) Show(message, subMessage string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.cur = model.Toast{Message: message, SubMessage: subMessage, Visible: true}
	if s.policy == PolicyReset {
		s.stopTimersLocked()
	}
	var t *time.Timer
	t = time.AfterFunc(s.duration, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.forgetLocked(t) {
			s.cur.Visible = false
		}
	})
	s.timers = append(s.timers, t)
}

// Hide clears visibility immediately.
func (s *Store) Hide() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cur.Visible = false
}

// Current returns the toast slot.
func (s *Store) Current() model.Toast {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cur
}

// Close cancels pending hides; later Show calls are ignored.
func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.stopTimersLocked()
}

func (s *Store) stopTimersLocked() {
	for _, t := range s.timers {
		t.Stop()
	}
	s.timers = nil
}

// forgetLocked drops t from the pending hides and reports whether it was still pending.
// A timer that fired while being stopped is no longer pending and must not hide.
func (s *Store) forgetLocked(t *time.Timer) bool {
	for i, x := range s.timers {
		if x == t {
			s.timers = append(s.timers[:i], s.timers[i+1:]...)
			return true
		}
	}
	return false
}
