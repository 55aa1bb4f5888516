// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package poll

import (
	"sync"
	"time"
)

// expiryScheduler keeps one timer per active poll.
type expiryScheduler struct {
	mu     sync.Mutex
	timers map[string]*time.Timer
	closed bool
	fire   func(pollID string)
}

func newExpiryScheduler(fire func(pollID string)) *expiryScheduler {
	return &expiryScheduler{
		timers: make(map[string]*time.Timer),
		fire:   fire,
	}
}

// schedule replaces any timer for pollID with one firing after d.
func (s *expiryScheduler) schedule(pollID string, d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	if t, ok := s.timers[pollID]; ok {
		t.Stop()
	}
	s.timers[pollID] = time.AfterFunc(d, func() {
		s.mu.Lock()
		delete(s.timers, pollID)
		closed := s.closed
		s.mu.Unlock()

		if !closed {
			s.fire(pollID)
		}
	})
}

func (s *expiryScheduler) cancel(pollID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if t, ok := s.timers[pollID]; ok {
		t.Stop()
		delete(s.timers, pollID)
	}
}

func (s *expiryScheduler) cancelAll() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, t := range s.timers {
		t.Stop()
		delete(s.timers, id)
	}
}

func (s *expiryScheduler) pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}

func (s *expiryScheduler) stop() {
	s.cancelAll()

	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
}
