// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package poll

import (
	"testing"
	"time"
)

func TestExpiryScheduler_Fires(t *testing.T) {
	fired := make(chan string, 1)
	s := newExpiryScheduler(func(id string) { fired <- id })
	defer s.stop()

	s.schedule("p1", 10*time.Millisecond)

	select {
	case id := <-fired:
		if id != "p1" {
			t.Errorf("fired for %s, want p1", id)
		}
	case <-time.After(time.Second):
		t.Fatal("timer never fired")
	}

	if n := s.pending(); n != 0 {
		t.Errorf("expected no pending timers after firing, got %d", n)
	}
}

func TestExpiryScheduler_CancelAndReplace(t *testing.T) {
	fired := make(chan string, 4)
	s := newExpiryScheduler(func(id string) { fired <- id })
	defer s.stop()

	s.schedule("cancelled", 20*time.Millisecond)
	s.cancel("cancelled")

	s.schedule("replaced", time.Hour)
	s.schedule("replaced", 20*time.Millisecond)

	select {
	case id := <-fired:
		if id != "replaced" {
			t.Errorf("fired for %s, want replaced", id)
		}
	case <-time.After(time.Second):
		t.Fatal("replacement timer never fired")
	}

	select {
	case id := <-fired:
		t.Errorf("unexpected extra fire for %s", id)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestExpiryScheduler_StopIgnoresLaterSchedules(t *testing.T) {
	fired := make(chan string, 1)
	s := newExpiryScheduler(func(id string) { fired <- id })

	s.schedule("a", time.Hour)
	s.schedule("b", time.Hour)
	if n := s.pending(); n != 2 {
		t.Fatalf("expected 2 pending timers, got %d", n)
	}

	s.stop()
	s.schedule("c", time.Millisecond)

	if n := s.pending(); n != 0 {
		t.Errorf("expected no pending timers after stop, got %d", n)
	}
	select {
	case id := <-fired:
		t.Errorf("stopped scheduler fired for %s", id)
	case <-time.After(30 * time.Millisecond):
	}
}

func TestCode(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{ErrValidation, CodeValidation},
		{ErrNotFound, CodeNotFound},
		{ErrPollEnded, CodePollEnded},
		{ErrExpired, CodeExpired},
		{ErrAlreadyVoted, CodeAlreadyVoted},
		{ErrUnauthorized, CodeUnauthorized},
		{ErrConflict, CodeConflict},
		{errTest("disk on fire"), CodeInternal},
	}

	for _, tt := range tests {
		if got := Code(tt.err); got != tt.want {
			t.Errorf("Code(%v) = %s, want %s", tt.err, got, tt.want)
		}
	}
}

type errTest string

func (e errTest) Error() string { return string(e) }
