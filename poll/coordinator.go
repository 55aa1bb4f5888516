// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package poll

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/danielhkuo/classpoll/clock"
	"github.com/danielhkuo/classpoll/ids"
	"github.com/danielhkuo/classpoll/models"
	"github.com/danielhkuo/classpoll/store"
	"github.com/dustin/go-humanize"
)

// expireTimeout bounds the store work done when a timer fires.
const expireTimeout = 5 * time.Second

// Coordinator owns the poll state machine. It holds no locks around store
// calls; the store's conditional writes keep concurrent callers consistent.
type Coordinator struct {
	polls store.PollStore
	votes store.VoteLedger
	clock clock.Clock

	expiry *expiryScheduler

	mu       sync.RWMutex
	onExpire func(*models.Poll)
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithoutExpiryTimers disables the per-poll timers. Deadlines are then
// enforced only when a poll is read or voted on.
func WithoutExpiryTimers() Option {
	return func(c *Coordinator) {
		c.expiry = nil
	}
}

func NewCoordinator(polls store.PollStore, votes store.VoteLedger, clk clock.Clock, opts ...Option) *Coordinator {
	c := &Coordinator{
		polls: polls,
		votes: votes,
		clock: clk,
	}
	c.expiry = newExpiryScheduler(c.expireFromTimer)
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// OnExpire registers fn to be called with the ended poll whenever a poll
// ends because its deadline passed.
func (c *Coordinator) OnExpire(fn func(*models.Poll)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onExpire = fn
}

// Close stops all pending expiry timers.
func (c *Coordinator) Close() {
	if c.expiry != nil {
		c.expiry.stop()
	}
}

func (c *Coordinator) now() time.Time {
	return c.clock.Now().UTC()
}

// CreatePoll validates the request and starts a new active poll, ending any
// poll that is still active.
func (c *Coordinator) CreatePoll(ctx context.Context, question string, options []string, duration int) (*models.Poll, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, fmt.Errorf("%w: question is required", ErrValidation)
	}
	if len(options) < models.MinOptions {
		return nil, fmt.Errorf("%w: at least %d options are required", ErrValidation, models.MinOptions)
	}
	if duration < models.MinDuration || duration > models.MaxDuration {
		return nil, fmt.Errorf("%w: duration must be between %d and %d seconds",
			ErrValidation, models.MinDuration, models.MaxDuration)
	}

	opts := make([]models.Option, 0, len(options))
	for i, text := range options {
		text = strings.TrimSpace(text)
		if text == "" {
			return nil, fmt.Errorf("%w: option %d is empty", ErrValidation, i+1)
		}
		opts = append(opts, models.Option{Text: text})
	}

	pollID, err := ids.NewPollID()
	if err != nil {
		return nil, err
	}

	now := c.now()
	p := &models.Poll{
		ID:        pollID,
		Question:  question,
		Options:   opts,
		Duration:  duration,
		StartTime: now,
		EndTime:   now.Add(time.Duration(duration) * time.Second),
		Status:    models.StatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := c.polls.CreatePoll(ctx, p); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, ErrConflict
		}
		return nil, fmt.Errorf("create poll: %w", err)
	}

	if c.expiry != nil {
		c.expiry.cancelAll()
		c.expiry.schedule(p.ID, p.EndTime.Sub(now))
	}

	slog.Info("poll created",
		"poll_id", p.ID,
		"options", len(p.Options),
		"duration", p.Duration,
		"closes", humanize.RelTime(p.EndTime, now, "ago", "from now"))

	return p, nil
}

// CanCreateNewPoll reports whether no poll is active. An active poll whose
// deadline already passed is ended here and does not block creation.
func (c *Coordinator) CanCreateNewPoll(ctx context.Context) (bool, error) {
	active, err := c.polls.ActivePoll(ctx)
	if errors.Is(err, store.ErrNotFound) {
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("load active poll: %w", err)
	}

	if !c.now().After(active.EndTime) {
		return false, nil
	}
	if _, err := c.expire(ctx, active.ID); err != nil {
		return false, err
	}
	return true, nil
}

// SubmitVote records one vote for participantID and returns the poll with
// updated tallies.
func (c *Coordinator) SubmitVote(ctx context.Context, pollID, participantID string, optionIndex int) (*models.Poll, error) {
	p, err := c.Poll(ctx, pollID)
	if err != nil {
		return nil, err
	}

	now := c.now()
	if p.Status == models.StatusEnded {
		// Once remaining time reads 0 the poll counts as expired, even
		// inside the final partial second.
		if clock.Remaining(p.EndTime, now) == 0 {
			return nil, ErrExpired
		}
		return nil, ErrPollEnded
	}
	if optionIndex < 0 || optionIndex >= len(p.Options) {
		return nil, fmt.Errorf("%w: option index %d out of range", ErrValidation, optionIndex)
	}

	voted, err := c.votes.HasVoted(ctx, p.ID, participantID)
	if err != nil {
		return nil, fmt.Errorf("check vote: %w", err)
	}
	if voted {
		return nil, ErrAlreadyVoted
	}

	if now.After(p.EndTime) {
		if _, err := c.expire(ctx, p.ID); err != nil {
			return nil, err
		}
		return nil, ErrExpired
	}

	vote := &models.Vote{
		PollID:        p.ID,
		ParticipantID: participantID,
		OptionIndex:   optionIndex,
		CreatedAt:     now,
	}
	if err := c.votes.InsertVote(ctx, vote); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, ErrAlreadyVoted
		}
		return nil, fmt.Errorf("record vote: %w", err)
	}

	if err := c.polls.IncrementVote(ctx, p.ID, optionIndex, now); err != nil {
		return nil, fmt.Errorf("update tally: %w", err)
	}

	slog.Debug("vote recorded", "poll_id", p.ID, "student_id", participantID, "option", optionIndex)

	return c.Poll(ctx, p.ID)
}

// EndPoll ends a poll. Ending an ended poll returns it unchanged.
func (c *Coordinator) EndPoll(ctx context.Context, pollID string) (*models.Poll, error) {
	changed, err := c.polls.EndPoll(ctx, pollID, c.now())
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("poll %s: %w", pollID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("end poll: %w", err)
	}

	if c.expiry != nil {
		c.expiry.cancel(pollID)
	}
	if changed {
		slog.Info("poll ended", "poll_id", pollID)
	}

	return c.Poll(ctx, pollID)
}

// RemainingTime returns whole seconds left on a poll. Ended polls report 0,
// and an active poll that has run out is ended as a side effect.
func (c *Coordinator) RemainingTime(ctx context.Context, pollID string) (int, error) {
	_, remaining, err := c.State(ctx, pollID)
	return remaining, err
}

// State returns a poll together with its remaining time, applying lazy
// expiry first so the returned status is current.
func (c *Coordinator) State(ctx context.Context, pollID string) (*models.Poll, int, error) {
	p, err := c.Poll(ctx, pollID)
	if err != nil {
		return nil, 0, err
	}
	return c.withRemaining(ctx, p)
}

// ActiveState is State for the active poll. It returns a nil poll when none
// is active.
func (c *Coordinator) ActiveState(ctx context.Context) (*models.Poll, int, error) {
	p, err := c.ActivePoll(ctx)
	if err != nil || p == nil {
		return nil, 0, err
	}
	return c.withRemaining(ctx, p)
}

func (c *Coordinator) withRemaining(ctx context.Context, p *models.Poll) (*models.Poll, int, error) {
	if p.Status == models.StatusEnded {
		return p, 0, nil
	}

	remaining := clock.Remaining(p.EndTime, c.now())
	if remaining > 0 {
		return p, remaining, nil
	}

	ended, err := c.expire(ctx, p.ID)
	if err != nil {
		return nil, 0, err
	}
	return ended, 0, nil
}

// ActivePoll returns the active poll, or nil when there is none.
func (c *Coordinator) ActivePoll(ctx context.Context) (*models.Poll, error) {
	p, err := c.polls.ActivePoll(ctx)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load active poll: %w", err)
	}
	return p, nil
}

func (c *Coordinator) Poll(ctx context.Context, pollID string) (*models.Poll, error) {
	p, err := c.polls.GetPoll(ctx, pollID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("poll %s: %w", pollID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load poll: %w", err)
	}
	return p, nil
}

// History returns every poll, newest first.
func (c *Coordinator) History(ctx context.Context) ([]*models.Poll, error) {
	polls, err := c.polls.ListPolls(ctx)
	if err != nil {
		return nil, fmt.Errorf("list polls: %w", err)
	}
	return polls, nil
}

func (c *Coordinator) HasVoted(ctx context.Context, pollID, participantID string) (bool, error) {
	voted, err := c.votes.HasVoted(ctx, pollID, participantID)
	if err != nil {
		return false, fmt.Errorf("check vote: %w", err)
	}
	return voted, nil
}

// Resume schedules the deadline of a poll left active by a previous process,
// ending it at once if the deadline already passed.
func (c *Coordinator) Resume(ctx context.Context) error {
	active, err := c.ActivePoll(ctx)
	if err != nil || active == nil {
		return err
	}

	now := c.now()
	if now.After(active.EndTime) {
		_, err := c.expire(ctx, active.ID)
		return err
	}

	if c.expiry != nil {
		c.expiry.schedule(active.ID, active.EndTime.Sub(now))
	}
	slog.Info("resumed active poll", "poll_id", active.ID, "closes", humanize.RelTime(active.EndTime, now, "ago", "from now"))
	return nil
}

// expire ends a poll whose deadline passed and notifies the OnExpire
// callback when this call performed the transition.
func (c *Coordinator) expire(ctx context.Context, pollID string) (*models.Poll, error) {
	changed, err := c.polls.EndPoll(ctx, pollID, c.now())
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("poll %s: %w", pollID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("expire poll: %w", err)
	}
	if c.expiry != nil {
		c.expiry.cancel(pollID)
	}

	p, err := c.Poll(ctx, pollID)
	if err != nil {
		return nil, err
	}

	if changed {
		slog.Info("poll expired", "poll_id", pollID, "votes", p.TotalVotes())

		c.mu.RLock()
		fn := c.onExpire
		c.mu.RUnlock()
		if fn != nil {
			fn(p)
		}
	}
	return p, nil
}

func (c *Coordinator) expireFromTimer(pollID string) {
	ctx, cancel := context.WithTimeout(context.Background(), expireTimeout)
	defer cancel()

	if _, err := c.expire(ctx, pollID); err != nil {
		slog.Error("failed to expire poll", "poll_id", pollID, "error", err)
	}
}
