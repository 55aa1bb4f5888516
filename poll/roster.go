// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package poll

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/danielhkuo/classpoll/clock"
	"github.com/danielhkuo/classpoll/ids"
	"github.com/danielhkuo/classpoll/models"
	"github.com/danielhkuo/classpoll/store"
)

// maxNameLength caps display names shown to the class.
const maxNameLength = 64

// Roster issues and resolves participant identities.
type Roster struct {
	registry store.ParticipantRegistry
	clock    clock.Clock
}

func NewRoster(registry store.ParticipantRegistry, clk clock.Clock) *Roster {
	return &Roster{registry: registry, clock: clk}
}

// Register creates a participant with a fresh id.
func (r *Roster) Register(ctx context.Context, name string) (*models.Participant, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrValidation)
	}
	if utf8.RuneCountInString(name) > maxNameLength {
		return nil, fmt.Errorf("%w: name must be at most %d characters", ErrValidation, maxNameLength)
	}

	id, err := ids.NewParticipantID()
	if err != nil {
		return nil, err
	}

	p := &models.Participant{
		ID:       id,
		Name:     name,
		JoinedAt: r.clock.Now().UTC(),
		IsActive: true,
	}
	if err := r.registry.RegisterParticipant(ctx, p); err != nil {
		return nil, fmt.Errorf("register participant: %w", err)
	}

	slog.Info("participant registered", "student_id", p.ID, "name", p.Name)
	return p, nil
}

// Resolve returns the active participant with id. Malformed, unknown and
// removed ids are all ErrNotFound.
func (r *Roster) Resolve(ctx context.Context, id string) (*models.Participant, error) {
	if !ids.ValidParticipantID(id) {
		return nil, fmt.Errorf("student %q: %w", id, ErrNotFound)
	}

	p, err := r.registry.GetParticipant(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("student %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load participant: %w", err)
	}
	return p, nil
}

// Remove deactivates a participant. The record and its votes are kept.
func (r *Roster) Remove(ctx context.Context, id string) error {
	err := r.registry.DeactivateParticipant(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("student %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("deactivate participant: %w", err)
	}

	slog.Info("participant removed", "student_id", id)
	return nil
}

// List returns active participants in join order.
func (r *Roster) List(ctx context.Context) ([]*models.Participant, error) {
	ps, err := r.registry.ListActiveParticipants(ctx)
	if err != nil {
		return nil, fmt.Errorf("list participants: %w", err)
	}
	return ps, nil
}
