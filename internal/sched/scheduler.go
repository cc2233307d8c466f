// Package sched provides keyed, cancellable delayed tasks. The browser
// build sequenced cosmetic delays with bare setTimeout calls — clearing the
// cart two seconds after a sale was paid, loading the dashboard after the
// initial fetches — and a fast navigation could race a stale timer. Here
// every delayed task carries a key (usually derived from a sale id), and
// scheduling under an existing key cancels the previous task first.
package sched

import (
	"sync"
	"time"
)

// Scheduler runs at most one pending task per key.
type Scheduler struct {
	mu     sync.Mutex
	timers map[string]*time.Timer
}

// New creates an empty Scheduler.
func New() *Scheduler {
	return &Scheduler{timers: make(map[string]*time.Timer)}
}

// Schedule runs fn after delay unless the key is cancelled or rescheduled
// first. A task already pending under the same key is cancelled.
func (s *Scheduler) Schedule(key string, delay time.Duration, fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if t, ok := s.timers[key]; ok {
		t.Stop()
	}
	s.timers[key] = time.AfterFunc(delay, func() {
		s.mu.Lock()
		delete(s.timers, key)
		s.mu.Unlock()
		fn()
	})
}

// Cancel stops the pending task for key, if any, and reports whether one was
// pending.
func (s *Scheduler) Cancel(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.timers[key]
	if !ok {
		return false
	}
	delete(s.timers, key)
	return t.Stop()
}

// CancelAll stops every pending task. Called on session shutdown.
func (s *Scheduler) CancelAll() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for key, t := range s.timers {
		t.Stop()
		delete(s.timers, key)
	}
}

// Pending reports whether a task is waiting under key.
func (s *Scheduler) Pending(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.timers[key]
	return ok
}
