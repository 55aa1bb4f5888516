// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package store

import (
	"context"
	"errors"
	"time"

	"github.com/danielhkuo/classpoll/models"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("duplicate record")
)

// PollStore owns poll records and their option tallies.
type PollStore interface {
	// CreatePoll ends every active poll and inserts p as one write.
	CreatePoll(ctx context.Context, p *models.Poll) error
	GetPoll(ctx context.Context, id string) (*models.Poll, error)
	// ActivePoll returns the newest active poll or ErrNotFound.
	ActivePoll(ctx context.Context) (*models.Poll, error)
	// ListPolls returns every poll, newest first.
	ListPolls(ctx context.Context) ([]*models.Poll, error)
	// EndPoll marks an active poll ended. It reports whether the status
	// changed; ending an ended poll is not an error.
	EndPoll(ctx context.Context, id string, at time.Time) (bool, error)
	// IncrementVote adds one to the tally of the option at index.
	IncrementVote(ctx context.Context, id string, index int, at time.Time) error
}

// VoteLedger owns vote records, unique per (poll, participant).
type VoteLedger interface {
	// InsertVote stores v unless a vote for the same poll and participant
	// exists, in which case it returns ErrDuplicate.
	InsertVote(ctx context.Context, v *models.Vote) error
	HasVoted(ctx context.Context, pollID, participantID string) (bool, error)
}

// ParticipantRegistry owns participant records.
type ParticipantRegistry interface {
	RegisterParticipant(ctx context.Context, p *models.Participant) error
	// GetParticipant returns an active participant or ErrNotFound.
	GetParticipant(ctx context.Context, id string) (*models.Participant, error)
	DeactivateParticipant(ctx context.Context, id string) error
	ListActiveParticipants(ctx context.Context) ([]*models.Participant, error)
}

// Store is a durable backend implementing all three components.
type Store interface {
	PollStore
	VoteLedger
	ParticipantRegistry
	Close() error
}
