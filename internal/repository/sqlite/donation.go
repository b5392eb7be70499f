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

var _ repository.DonationRepository = (*DB)(nil)

const donationColumns = `id, donor_id, item_name, category, description, quantity, photo_url, status, created_at, updated_at`

func scanDonation(row rowScanner) (*model.Donation, error) {
	var d model.Donation
	err := row.Scan(
		&d.ID, &d.DonorID, &d.ItemName, &d.Category, &d.Description,
		&d.Quantity, &d.PhotoURL, &d.Status, &d.CreatedAt, &d.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// CreateDonation inserts a new donation, generating its ID.
//
// ID GENERATION WITH xid:
// 20 chars, URL-safe, and sortable by creation time, e.g. "cv37rs3pp9olc6atsptg".
func (db *DB) CreateDonation(ctx context.Context, d *model.Donation) error {
	d.ID = xid.New().String()

	now := time.Now().UTC()
	if d.CreatedAt.IsZero() {
		d.CreatedAt = now
	}
	d.UpdatedAt = d.CreatedAt

	_, err := db.q.ExecContext(ctx,
		`INSERT INTO donations (`+donationColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		d.ID, d.DonorID, d.ItemName, d.Category, d.Description,
		d.Quantity, d.PhotoURL, d.Status, d.CreatedAt, d.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: creating donation: %w", err)
	}
	return nil
}

// GetDonation retrieves a single donation by its ID.
// sql.ErrNoRows is translated to apperror.NotFound so the handler can return 404.
func (db *DB) GetDonation(ctx context.Context, id string) (*model.Donation, error) {
	d, err := scanDonation(db.q.QueryRowContext(ctx,
		`SELECT `+donationColumns+` FROM donations WHERE id = ?`, id,
	))
	if err == sql.ErrNoRows {
		return nil, apperror.NotFound("donation", id)
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: getting donation %s: %w", id, err)
	}
	return d, nil
}

// ListDonations returns donations in insertion order (rowid), optionally
// narrowed to a set of statuses.
func (db *DB) ListDonations(ctx context.Context, filter repository.ListFilter) ([]model.Donation, error) {
	where, args := statusClause(filter)
	return db.queryDonations(ctx,
		`SELECT `+donationColumns+` FROM donations`+where+` ORDER BY rowid`, args...)
}

// ListDonationsByDonor returns every donation the donor owns, any status.
func (db *DB) ListDonationsByDonor(ctx context.Context, donorID string) ([]model.Donation, error) {
	return db.queryDonations(ctx,
		`SELECT `+donationColumns+` FROM donations WHERE donor_id = ? ORDER BY rowid`, donorID)
}

func (db *DB) queryDonations(ctx context.Context, query string, args ...any) ([]model.Donation, error) {
	rows, err := db.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing donations: %w", err)
	}
	defer rows.Close()

	donations := []model.Donation{}
	for rows.Next() {
		d, err := scanDonation(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning donation row: %w", err)
		}
		donations = append(donations, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating donations: %w", err)
	}
	return donations, nil
}

// UpdateDonation writes the owner-editable fields. Status is deliberately
// not in the SET list; it only moves through TransitionDonation.
func (db *DB) UpdateDonation(ctx context.Context, d *model.Donation) error {
	d.UpdatedAt = time.Now().UTC()

	result, err := db.q.ExecContext(ctx,
		`UPDATE donations
		 SET item_name = ?, category = ?, description = ?, quantity = ?, photo_url = ?, updated_at = ?
		 WHERE id = ?`,
		d.ItemName, d.Category, d.Description, d.Quantity, d.PhotoURL, d.UpdatedAt, d.ID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating donation %s: %w", d.ID, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("donation", d.ID)
	}
	return nil
}

// DeleteDonation removes a donation permanently.
func (db *DB) DeleteDonation(ctx context.Context, id string) error {
	result, err := db.q.ExecContext(ctx, `DELETE FROM donations WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting donation %s: %w", id, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("donation", id)
	}
	return nil
}

// TransitionDonation moves a donation from one status to another, failing
// with InvalidState if it is not currently in `from`. The update and the
// read-back share one transaction, so the returned row shows this
// transition and no later one.
func (db *DB) TransitionDonation(ctx context.Context, id string, from, to model.Status) (*model.Donation, error) {
	var out *model.Donation
	err := db.withTx(ctx, func(tx *DB) error {
		if err := tx.transition(ctx, "donations", "donation", id, string(from), string(to)); err != nil {
			return err
		}
		d, err := tx.GetDonation(ctx, id)
		out = d
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// statusClause builds " WHERE status IN (?, ?)" for a filter, or "" for no filter.
func statusClause(filter repository.ListFilter) (string, []any) {
	if len(filter.Statuses) == 0 {
		return "", nil
	}
	clause := " WHERE status IN ("
	args := make([]any, 0, len(filter.Statuses))
	for i, s := range filter.Statuses {
		if i > 0 {
			clause += ", "
		}
		clause += "?"
		args = append(args, string(s))
	}
	return clause + ")", args
}
