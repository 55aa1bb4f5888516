// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package mongostore

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/danielhkuo/classpoll/models"
	"github.com/danielhkuo/classpoll/store"
)

func TestDatabaseFromURI(t *testing.T) {
	tests := []struct {
		uri  string
		want string
	}{
		{"mongodb://localhost:27017/live_polling", "live_polling"},
		{"mongodb://localhost:27017/classroom?retryWrites=true", "classroom"},
		{"mongodb://localhost:27017", DefaultDatabase},
		{"mongodb://localhost:27017/", DefaultDatabase},
	}

	for _, tt := range tests {
		if got := DatabaseFromURI(tt.uri); got != tt.want {
			t.Errorf("DatabaseFromURI(%q) = %q, want %q", tt.uri, got, tt.want)
		}
	}
}

// setupMongo connects to MONGODB_TEST_URI and skips when it is unset.
func setupMongo(t *testing.T) *Store {
	t.Helper()

	uri := os.Getenv("MONGODB_TEST_URI")
	if uri == "" {
		t.Skip("MONGODB_TEST_URI not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	s, err := Connect(ctx, uri, "classpoll_test")
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	if err := s.Drop(ctx); err != nil {
		t.Fatalf("Drop() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func newPoll(id string, now time.Time) *models.Poll {
	return &models.Poll{
		ID:        id,
		Question:  "Is water wet?",
		Options:   []models.Option{{Text: "Yes"}, {Text: "No"}},
		Duration:  5,
		StartTime: now,
		EndTime:   now.Add(5 * time.Second),
		Status:    models.StatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestMongoStore_PollLifecycle(t *testing.T) {
	s := setupMongo(t)
	ctx := context.Background()
	now := time.Now().UTC()

	if err := s.CreatePoll(ctx, newPoll("p1", now)); err != nil {
		t.Fatalf("CreatePoll(p1) error = %v", err)
	}
	if err := s.CreatePoll(ctx, newPoll("p2", now.Add(time.Second))); err != nil {
		t.Fatalf("CreatePoll(p2) error = %v", err)
	}

	first, err := s.GetPoll(ctx, "p1")
	if err != nil {
		t.Fatal(err)
	}
	if first.Status != models.StatusEnded {
		t.Errorf("expected p1 ended after p2 was created, got %s", first.Status)
	}

	active, err := s.ActivePoll(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if active.ID != "p2" {
		t.Errorf("expected p2 active, got %s", active.ID)
	}

	if err := s.IncrementVote(ctx, "p2", 1, now); err != nil {
		t.Fatal(err)
	}
	if err := s.IncrementVote(ctx, "p2", 5, now); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound for missing option, got %v", err)
	}

	changed, err := s.EndPoll(ctx, "p2", now)
	if err != nil || !changed {
		t.Fatalf("EndPoll() = %v, %v", changed, err)
	}
	changed, err = s.EndPoll(ctx, "p2", now)
	if err != nil || changed {
		t.Errorf("second EndPoll() = %v, %v; want false, nil", changed, err)
	}
	if _, err := s.EndPoll(ctx, "missing", now); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestMongoStore_VoteUniqueness(t *testing.T) {
	s := setupMongo(t)
	ctx := context.Background()
	now := time.Now().UTC()

	vote := &models.Vote{PollID: "p1", ParticipantID: "s1", OptionIndex: 0, CreatedAt: now}
	if err := s.InsertVote(ctx, vote); err != nil {
		t.Fatal(err)
	}
	if err := s.InsertVote(ctx, vote); !errors.Is(err, store.ErrDuplicate) {
		t.Errorf("expected ErrDuplicate, got %v", err)
	}

	voted, err := s.HasVoted(ctx, "p1", "s1")
	if err != nil || !voted {
		t.Errorf("HasVoted() = %v, %v; want true", voted, err)
	}
}

func TestMongoStore_Participants(t *testing.T) {
	s := setupMongo(t)
	ctx := context.Background()

	p := &models.Participant{ID: "s1", Name: "Ada", JoinedAt: time.Now().UTC(), IsActive: true}
	if err := s.RegisterParticipant(ctx, p); err != nil {
		t.Fatal(err)
	}
	if _, err := s.GetParticipant(ctx, "s1"); err != nil {
		t.Fatal(err)
	}
	if err := s.DeactivateParticipant(ctx, "s1"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.GetParticipant(ctx, "s1"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected deactivated participant to be hidden, got %v", err)
	}
}
