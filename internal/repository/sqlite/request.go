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

var _ repository.RequestRepository = (*DB)(nil)

const requestColumns = `id, receiver_id, item_needed, category, description, quantity, urgency, status, created_at, updated_at`

func scanRequest(row rowScanner) (*model.Request, error) {
	var r model.Request
	err := row.Scan(
		&r.ID, &r.ReceiverID, &r.ItemNeeded, &r.Category, &r.Description,
		&r.Quantity, &r.Urgency, &r.Status, &r.CreatedAt, &r.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (db *DB) CreateRequest(ctx context.Context, r *model.Request) error {
	r.ID = xid.New().String()

	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}
	r.UpdatedAt = r.CreatedAt

	_, err := db.q.ExecContext(ctx,
		`INSERT INTO requests (`+requestColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.ReceiverID, r.ItemNeeded, r.Category, r.Description,
		r.Quantity, r.Urgency, r.Status, r.CreatedAt, r.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: creating request: %w", err)
	}
	return nil
}

func (db *DB) GetRequest(ctx context.Context, id string) (*model.Request, error) {
	r, err := scanRequest(db.q.QueryRowContext(ctx,
		`SELECT `+requestColumns+` FROM requests WHERE id = ?`, id,
	))
	if err == sql.ErrNoRows {
		return nil, apperror.NotFound("request", id)
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: getting request %s: %w", id, err)
	}
	return r, nil
}

func (db *DB) ListRequests(ctx context.Context, filter repository.ListFilter) ([]model.Request, error) {
	where, args := statusClause(filter)
	return db.queryRequests(ctx,
		`SELECT `+requestColumns+` FROM requests`+where+` ORDER BY rowid`, args...)
}

func (db *DB) ListRequestsByReceiver(ctx context.Context, receiverID string) ([]model.Request, error) {
	return db.queryRequests(ctx,
		`SELECT `+requestColumns+` FROM requests WHERE receiver_id = ? ORDER BY rowid`, receiverID)
}

func (db *DB) queryRequests(ctx context.Context, query string, args ...any) ([]model.Request, error) {
	rows, err := db.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing requests: %w", err)
	}
	defer rows.Close()

	requests := []model.Request{}
	for rows.Next() {
		r, err := scanRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning request row: %w", err)
		}
		requests = append(requests, *r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating requests: %w", err)
	}
	return requests, nil
}

func (db *DB) UpdateRequest(ctx context.Context, r *model.Request) error {
	r.UpdatedAt = time.Now().UTC()

	result, err := db.q.ExecContext(ctx,
		`UPDATE requests
		 SET item_needed = ?, category = ?, description = ?, quantity = ?, urgency = ?, updated_at = ?
		 WHERE id = ?`,
		r.ItemNeeded, r.Category, r.Description, r.Quantity, r.Urgency, r.UpdatedAt, r.ID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating request %s: %w", r.ID, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("request", r.ID)
	}
	return nil
}

func (db *DB) DeleteRequest(ctx context.Context, id string) error {
	result, err := db.q.ExecContext(ctx, `DELETE FROM requests WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting request %s: %w", id, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("request", id)
	}
	return nil
}

func (db *DB) TransitionRequest(ctx context.Context, id string, from, to model.Status) (*model.Request, error) {
	var out *model.Request
	err := db.withTx(ctx, func(tx *DB) error {
		if err := tx.transition(ctx, "requests", "request", id, string(from), string(to)); err != nil {
			return err
		}
		r, err := tx.GetRequest(ctx, id)
		out = r
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
