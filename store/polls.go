// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/danielhkuo/classpoll/models"
)

const pollColumns = `id, question, duration, start_time, end_time, status, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPoll(row rowScanner) (*models.Poll, error) {
	var p models.Poll
	err := row.Scan(
		&p.ID, &p.Question, &p.Duration, &p.StartTime, &p.EndTime,
		&p.Status, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	p.Options = []models.Option{}
	return &p, nil
}

// CreatePoll ends any active poll and inserts p with its options in one
// transaction.
func (s *SQLStore) CreatePoll(ctx context.Context, p *models.Poll) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		UPDATE poll
		SET status = $1, updated_at = $2
		WHERE status = $3
	`, models.StatusEnded, p.CreatedAt, models.StatusActive)
	if err != nil {
		return fmt.Errorf("failed to end active polls: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO poll (id, question, duration, start_time, end_time, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, p.ID, p.Question, p.Duration, p.StartTime, p.EndTime, p.Status, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("insert poll %s: %w", p.ID, ErrDuplicate)
		}
		return fmt.Errorf("failed to insert poll: %w", err)
	}

	for i, opt := range p.Options {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO poll_option (poll_id, position, text, votes)
			VALUES ($1, $2, $3, $4)
		`, p.ID, i, opt.Text, opt.Votes)
		if err != nil {
			return fmt.Errorf("failed to insert option %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit poll: %w", err)
	}
	return nil
}

func (s *SQLStore) GetPoll(ctx context.Context, id string) (*models.Poll, error) {
	p, err := scanPoll(s.db.QueryRowContext(ctx, `
		SELECT `+pollColumns+`
		FROM poll
		WHERE id = $1
	`, id))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query poll: %w", err)
	}

	if err := s.loadOptions(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *SQLStore) ActivePoll(ctx context.Context) (*models.Poll, error) {
	p, err := scanPoll(s.db.QueryRowContext(ctx, `
		SELECT `+pollColumns+`
		FROM poll
		WHERE status = $1
		ORDER BY created_at DESC
		LIMIT 1
	`, models.StatusActive))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query active poll: %w", err)
	}

	if err := s.loadOptions(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *SQLStore) ListPolls(ctx context.Context) ([]*models.Poll, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+pollColumns+`
		FROM poll
		ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query polls: %w", err)
	}
	defer rows.Close()

	polls := []*models.Poll{}
	byID := make(map[string]*models.Poll)
	for rows.Next() {
		p, err := scanPoll(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan poll: %w", err)
		}
		polls = append(polls, p)
		byID[p.ID] = p
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate polls: %w", err)
	}
	rows.Close()

	optRows, err := s.db.QueryContext(ctx, `
		SELECT poll_id, text, votes
		FROM poll_option
		ORDER BY poll_id, position
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query options: %w", err)
	}
	defer optRows.Close()

	for optRows.Next() {
		var pollID string
		var opt models.Option
		if err := optRows.Scan(&pollID, &opt.Text, &opt.Votes); err != nil {
			return nil, fmt.Errorf("failed to scan option: %w", err)
		}
		if p, ok := byID[pollID]; ok {
			p.Options = append(p.Options, opt)
		}
	}
	return polls, optRows.Err()
}

func (s *SQLStore) loadOptions(ctx context.Context, p *models.Poll) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT text, votes
		FROM poll_option
		WHERE poll_id = $1
		ORDER BY position
	`, p.ID)
	if err != nil {
		return fmt.Errorf("failed to query options: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var opt models.Option
		if err := rows.Scan(&opt.Text, &opt.Votes); err != nil {
			return fmt.Errorf("failed to scan option: %w", err)
		}
		p.Options = append(p.Options, opt)
	}
	return rows.Err()
}

func (s *SQLStore) EndPoll(ctx context.Context, id string, at time.Time) (bool, error) {
	result, err := s.db.ExecContext(ctx, `
		UPDATE poll
		SET status = $1, updated_at = $2
		WHERE id = $3 AND status = $4
	`, models.StatusEnded, at, id, models.StatusActive)
	if err != nil {
		return false, fmt.Errorf("failed to end poll: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected > 0 {
		return true, nil
	}

	var exists bool
	err = s.db.QueryRowContext(ctx, `
		SELECT EXISTS(SELECT 1 FROM poll WHERE id = $1)
	`, id).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to query poll: %w", err)
	}
	if !exists {
		return false, ErrNotFound
	}
	return false, nil
}

// IncrementVote adjusts the tally in place so concurrent votes on the
// same poll never overwrite each other.
func (s *SQLStore) IncrementVote(ctx context.Context, id string, index int, at time.Time) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, `
		UPDATE poll_option
		SET votes = votes + 1
		WHERE poll_id = $1 AND position = $2
	`, id, index)
	if err != nil {
		return fmt.Errorf("failed to increment tally: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}

	_, err = tx.ExecContext(ctx, `UPDATE poll SET updated_at = $1 WHERE id = $2`, at, id)
	if err != nil {
		return fmt.Errorf("failed to touch poll: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit tally: %w", err)
	}
	return nil
}
