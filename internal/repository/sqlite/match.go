package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/givehub/internal/apperror"
	"github.com/sakif/givehub/internal/model"
	"github.com/sakif/givehub/internal/repository"
)

var _ repository.MatchRepository = (*DB)(nil)

const matchColumns = `id, donation_id, request_id, status, created_at, updated_at`

func scanMatch(row rowScanner) (*model.Match, error) {
	var m model.Match
	if err := row.Scan(&m.ID, &m.DonationID, &m.RequestID, &m.Status, &m.CreatedAt, &m.UpdatedAt); err != nil {
		return nil, err
	}
	return &m, nil
}

// CreateMatch inserts a match. A second ACTIVE match for the same donation or
// request violates a partial unique index and comes back as InvalidState.
func (db *DB) CreateMatch(ctx context.Context, m *model.Match) error {
	m.ID = xid.New().String()
	now := time.Now().UTC()
	m.CreatedAt = now
	m.UpdatedAt = now

	_, err := db.q.ExecContext(ctx,
		`INSERT INTO matches (`+matchColumns+`) VALUES (?, ?, ?, ?, ?, ?)`,
		m.ID, m.DonationID, m.RequestID, m.Status, m.CreatedAt, m.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.InvalidState("donation or request already has an active match")
		}
		return fmt.Errorf("sqlite: creating match: %w", err)
	}
	return nil
}

func (db *DB) GetMatch(ctx context.Context, id string) (*model.Match, error) {
	m, err := scanMatch(db.q.QueryRowContext(ctx,
		`SELECT `+matchColumns+` FROM matches WHERE id = ?`, id,
	))
	if err == sql.ErrNoRows {
		return nil, apperror.NotFound("match", id)
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: getting match %s: %w", id, err)
	}
	return m, nil
}

func (db *DB) ListMatches(ctx context.Context) ([]model.Match, error) {
	return db.queryMatches(ctx, `SELECT `+matchColumns+` FROM matches ORDER BY rowid`)
}

// ListActiveMatches is served by the partial unique indexes on active matches.
func (db *DB) ListActiveMatches(ctx context.Context, donationID, requestID string) ([]model.Match, error) {
	return db.queryMatches(ctx,
		`SELECT `+matchColumns+` FROM matches
		 WHERE status = ? AND (donation_id = ? OR request_id = ?)
		 ORDER BY rowid`,
		string(model.MatchActive), donationID, requestID)
}

func (db *DB) queryMatches(ctx context.Context, query string, args ...any) ([]model.Match, error) {
	rows, err := db.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing matches: %w", err)
	}
	defer rows.Close()

	matches := []model.Match{}
	for rows.Next() {
		m, err := scanMatch(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning match row: %w", err)
		}
		matches = append(matches, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating matches: %w", err)
	}
	return matches, nil
}

func (db *DB) TransitionMatch(ctx context.Context, id string, from, to model.MatchStatus) (*model.Match, error) {
	var out *model.Match
	err := db.withTx(ctx, func(tx *DB) error {
		if err := tx.transition(ctx, "matches", "match", id, string(from), string(to)); err != nil {
			return err
		}
		m, err := tx.GetMatch(ctx, id)
		out = m
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
