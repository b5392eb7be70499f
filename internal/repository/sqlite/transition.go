package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/sakif/givehub/internal/apperror"
)

// transition is the compare-and-set behind every status change.
//
//	UPDATE <table> SET status = <to> WHERE id = <id> AND status = <from>
//
// If no row matched we look again to tell the two failure cases apart:
// the row is gone (NotFound) or someone else changed its status first
// (InvalidState). table is always a constant from this package, never user input.
func (db *DB) transition(ctx context.Context, table, resource, id, from, to string) error {
	result, err := db.q.ExecContext(ctx,
		fmt.Sprintf(`UPDATE %s SET status = ?, updated_at = ? WHERE id = ? AND status = ?`, table),
		to, time.Now().UTC(), id, from,
	)
	if err != nil {
		return fmt.Errorf("sqlite: transitioning %s %s: %w", resource, id, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 1 {
		return nil
	}

	var current string
	err = db.q.QueryRowContext(ctx,
		fmt.Sprintf(`SELECT status FROM %s WHERE id = ?`, table), id,
	).Scan(&current)
	if err == sql.ErrNoRows {
		return apperror.NotFound(resource, id)
	}
	if err != nil {
		return fmt.Errorf("sqlite: reading %s %s status: %w", resource, id, err)
	}

	return apperror.InvalidState(fmt.Sprintf("%s %s is %s, not %s", resource, id, current, from))
}
