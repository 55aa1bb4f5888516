// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/danielhkuo/classpoll/models"
)

func (s *SQLStore) RegisterParticipant(ctx context.Context, p *models.Participant) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO participant (id, name, joined_at, is_active)
		VALUES ($1, $2, $3, $4)
	`, p.ID, p.Name, p.JoinedAt, p.IsActive)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("failed to insert participant: %w", err)
	}
	return nil
}

func (s *SQLStore) GetParticipant(ctx context.Context, id string) (*models.Participant, error) {
	var p models.Participant
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, joined_at, is_active
		FROM participant
		WHERE id = $1 AND is_active = $2
	`, id, true).Scan(&p.ID, &p.Name, &p.JoinedAt, &p.IsActive)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query participant: %w", err)
	}
	return &p, nil
}

// DeactivateParticipant keeps the row so vote history stays attributable.
func (s *SQLStore) DeactivateParticipant(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE participant
		SET is_active = $1
		WHERE id = $2
	`, false, id)
	if err != nil {
		return fmt.Errorf("failed to deactivate participant: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLStore) ListActiveParticipants(ctx context.Context) ([]*models.Participant, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, joined_at, is_active
		FROM participant
		WHERE is_active = $1
		ORDER BY joined_at
	`, true)
	if err != nil {
		return nil, fmt.Errorf("failed to query participants: %w", err)
	}
	defer rows.Close()

	participants := []*models.Participant{}
	for rows.Next() {
		var p models.Participant
		if err := rows.Scan(&p.ID, &p.Name, &p.JoinedAt, &p.IsActive); err != nil {
			return nil, fmt.Errorf("failed to scan participant: %w", err)
		}
		participants = append(participants, &p)
	}
	return participants, rows.Err()
}
