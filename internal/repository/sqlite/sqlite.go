// Package sqlite implements the repository interfaces using SQLite as the storage backend.
//
// WHY modernc.org/sqlite INSTEAD OF github.com/mattn/go-sqlite3?
// mattn/go-sqlite3 uses CGo, which means you need a C compiler installed and
// cross-compilation becomes painful. modernc.org/sqlite is a pure Go
// translation of the SQLite C code, so no C compiler needed.
//
// ONE CONNECTION, SERIALISED WRITES:
// The pool is capped at a single connection. Every statement and every
// transaction therefore runs one after another, which is what makes the
// compare-and-set transitions and Atomic blocks safe against concurrent
// callers: two approvals of the same pending donation are both queued on the
// one connection, the first flips the status, the second's
// "WHERE status = 'pending'" matches nothing.
//
// The same cap is what keeps ":memory:" usable in tests: every new
// connection to ":memory:" would be a brand new, empty database.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/sakif/givehub/internal/repository"
)

// querier is the subset of *sql.DB and *sql.Tx the repository methods use.
// Methods run against db.q, so the same code works inside and outside Atomic.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// DB wraps a sql.DB connection pool and implements repository.Store.
type DB struct {
	conn *sql.DB
	q    querier
	tx   *sql.Tx // non-nil on the Store handed to an Atomic callback
}

var _ repository.Store = (*DB)(nil)

// New opens the SQLite database at dbPath and runs migrations.
//
// dbPath examples:
//   - "data/givehub.db"  → file-based database (persistent)
//   - ":memory:"         → in-memory database (tests; lost on Close)
func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	}
	for _, p := range pragmas {
		if _, err := conn.Exec(p); err != nil {
			conn.Close()
			return nil, fmt.Errorf("sqlite: %s: %w", p, err)
		}
	}

	db := &DB{conn: conn, q: conn}

	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return db, nil
}

// Close closes the database connection pool.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Ping checks the database is reachable. Used by /healthz.
func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

// Atomic runs fn inside a single SQL transaction.
//
// fn must only use the tx Store it is given. The pool has one connection and
// the transaction is holding it, so a call on the outer *DB from inside fn
// would wait for that connection forever.
func (db *DB) Atomic(ctx context.Context, fn func(tx repository.Store) error) error {
	return db.withTx(ctx, func(tx *DB) error { return fn(tx) })
}

// withTx is Atomic for code inside this package. Already inside a
// transaction, fn joins it.
func (db *DB) withTx(ctx context.Context, fn func(tx *DB) error) error {
	if db.tx != nil {
		return fn(db)
	}

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: beginning transaction: %w", err)
	}

	if err := fn(&DB{conn: db.conn, q: tx, tx: tx}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return errors.Join(err, fmt.Errorf("sqlite: rolling back: %w", rbErr))
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: committing transaction: %w", err)
	}
	return nil
}

// migrate creates all tables. CREATE ... IF NOT EXISTS makes it safe to run
// on every start.
//
// Invariants the workflow relies on are also enforced here, so a bug in the
// service layer fails loudly instead of corrupting data:
//   - quantity >= 1
//   - status is one of the known values
//   - at most one ACTIVE match per donation and per request
//     (partial unique indexes: the uniqueness only applies to rows WHERE status = 'active')
func (db *DB) migrate() error {
	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS users (
			id            TEXT PRIMARY KEY,
			name          TEXT NOT NULL,
			email         TEXT NOT NULL UNIQUE COLLATE NOCASE,
			password_hash TEXT NOT NULL DEFAULT '',
			role          TEXT NOT NULL CHECK (role IN ('donor', 'receiver', 'admin')),
			created_at    DATETIME NOT NULL,
			updated_at    DATETIME NOT NULL
		);
	`)
	if err != nil {
		return fmt.Errorf("creating users table: %w", err)
	}

	// GitHub sign-in was added after the users table; ALTER it in place on
	// existing databases. 0 means "not linked".
	if err := db.addColumnIfNotExists("users", "github_id",
		"INTEGER NOT NULL DEFAULT 0"); err != nil {
		return fmt.Errorf("adding github_id to users: %w", err)
	}
	_, err = db.conn.Exec(`
		CREATE UNIQUE INDEX IF NOT EXISTS idx_users_github_id ON users(github_id) WHERE github_id <> 0;
	`)
	if err != nil {
		return fmt.Errorf("creating users github_id index: %w", err)
	}

	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS donations (
			id          TEXT PRIMARY KEY,
			donor_id    TEXT NOT NULL,
			item_name   TEXT NOT NULL,
			category    TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			quantity    INTEGER NOT NULL CHECK (quantity >= 1),
			photo_url   TEXT NOT NULL DEFAULT '',
			status      TEXT NOT NULL CHECK (status IN ('pending', 'approved', 'matched', 'rejected')),
			created_at  DATETIME NOT NULL,
			updated_at  DATETIME NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_donations_donor_id ON donations(donor_id);
		CREATE INDEX IF NOT EXISTS idx_donations_status ON donations(status);
	`)
	if err != nil {
		return fmt.Errorf("creating donations table: %w", err)
	}

	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS requests (
			id          TEXT PRIMARY KEY,
			receiver_id TEXT NOT NULL,
			item_needed TEXT NOT NULL,
			category    TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			quantity    INTEGER NOT NULL CHECK (quantity >= 1),
			urgency     TEXT NOT NULL CHECK (urgency IN ('normal', 'urgent')),
			status      TEXT NOT NULL CHECK (status IN ('pending', 'approved', 'matched', 'rejected')),
			created_at  DATETIME NOT NULL,
			updated_at  DATETIME NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_requests_receiver_id ON requests(receiver_id);
		CREATE INDEX IF NOT EXISTS idx_requests_status ON requests(status);
	`)
	if err != nil {
		return fmt.Errorf("creating requests table: %w", err)
	}

	// No foreign keys to donations/requests: an owner may still delete a
	// pending listing, and matches only ever reference approved ones, but a
	// cancelled match must survive whatever happens to its listings later.
	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS matches (
			id          TEXT PRIMARY KEY,
			donation_id TEXT NOT NULL,
			request_id  TEXT NOT NULL,
			status      TEXT NOT NULL CHECK (status IN ('active', 'completed', 'cancelled')),
			created_at  DATETIME NOT NULL,
			updated_at  DATETIME NOT NULL
		);
		CREATE UNIQUE INDEX IF NOT EXISTS idx_matches_active_donation
			ON matches(donation_id) WHERE status = 'active';
		CREATE UNIQUE INDEX IF NOT EXISTS idx_matches_active_request
			ON matches(request_id) WHERE status = 'active';
	`)
	if err != nil {
		return fmt.Errorf("creating matches table: %w", err)
	}

	return nil
}

// addColumnIfNotExists adds a column to a table only if it doesn't already exist.
// Makes ALTER TABLE migrations idempotent, safe to run multiple times.
func (db *DB) addColumnIfNotExists(table, column, definition string) error {
	var count int
	err := db.conn.QueryRow(
		`SELECT COUNT(*) FROM pragma_table_info(?) WHERE name = ?`,
		table, column,
	).Scan(&count)
	if err != nil {
		return fmt.Errorf("checking column %s.%s: %w", table, column, err)
	}
	if count > 0 {
		return nil
	}
	_, err = db.conn.Exec(fmt.Sprintf(
		`ALTER TABLE %s ADD COLUMN %s %s`, table, column, definition,
	))
	return err
}

// isUniqueViolation reports whether err is SQLite refusing a duplicate key.
func isUniqueViolation(err error) bool {
	var se *sqlite.Error
	if !errors.As(err, &se) {
		return false
	}
	return se.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}
