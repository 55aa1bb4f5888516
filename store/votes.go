// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package store

import (
	"context"
	"fmt"

	"github.com/danielhkuo/classpoll/models"
)

// InsertVote is a single statement, so two racing submissions for the same
// participant cannot both get past it.
func (s *SQLStore) InsertVote(ctx context.Context, v *models.Vote) error {
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO vote (poll_id, participant_id, option_index, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (poll_id, participant_id) DO NOTHING
	`, v.PollID, v.ParticipantID, v.OptionIndex, v.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert vote: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrDuplicate
	}
	return nil
}

func (s *SQLStore) HasVoted(ctx context.Context, pollID, participantID string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS(
			SELECT 1 FROM vote
			WHERE poll_id = $1 AND participant_id = $2
		)
	`, pollID, participantID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check vote: %w", err)
	}
	return exists, nil
}
