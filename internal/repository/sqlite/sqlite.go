// Package sqlite implements the repository interfaces using SQLite as the
// storage backend.
//
// The driver is modernc.org/sqlite, a pure Go translation of SQLite — no
// CGo, no C toolchain, works everywhere Go compiles. The blank import below
// registers it with database/sql under the driver name "sqlite".
//
// Two storage-layer constraints matter to the rest of the app:
//
//   - streams.slug is UNIQUE. The slug assigner's check-then-set loop is
//     racy by construction, so this index is the real uniqueness guarantee.
//     Violations are surfaced as apperror.ErrConflict and the service
//     retries with the next suffix.
//   - users.email is UNIQUE. Violations surface as ErrConflict and map to
//     409 at the boundary; they are never retried.
package sqlite

import (
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"
)

// DB wraps a sql.DB connection pool shared by StreamRepo and UserRepo.
// It owns the pool lifecycle: New opens and migrates, Close releases the
// file lock and flushes the WAL.
type DB struct {
	conn *sql.DB
}

// New opens (or creates) the database at dbPath and runs migrations.
// Use ":memory:" for an ephemeral database in tests.
func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	// WAL allows concurrent reads while a write is in flight — SQLite's
	// default journal mode locks the whole file for every write.
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: setting WAL mode: %w", err)
	}

	// Foreign keys are off by default in SQLite; streams.user_id needs them.
	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: enabling foreign keys: %w", err)
	}

	db := &DB{conn: conn}

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

// migrate creates or updates the schema. Every statement is idempotent so
// the whole set is safe to run on every startup.
func (db *DB) migrate() error {
	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS users (
			id            TEXT PRIMARY KEY,
			name          TEXT NOT NULL DEFAULT '',
			email         TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL DEFAULT '',
			google_id     TEXT NOT NULL DEFAULT '',
			avatar_url    TEXT NOT NULL DEFAULT '',
			created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE UNIQUE INDEX IF NOT EXISTS idx_users_google_id
			ON users(google_id) WHERE google_id != '';
	`)
	if err != nil {
		return fmt.Errorf("creating users table: %w", err)
	}

	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS streams (
			id          TEXT PRIMARY KEY,
			slug        TEXT NOT NULL UNIQUE,
			title       TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			visibility  TEXT NOT NULL DEFAULT 'public'
				CHECK (visibility IN ('public', 'unlisted', 'private')),
			is_live     INTEGER NOT NULL DEFAULT 0,
			hls_url     TEXT NOT NULL DEFAULT '',
			user_id     TEXT NOT NULL REFERENCES users(id),
			created_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_streams_user_id ON streams(user_id);
		CREATE INDEX IF NOT EXISTS idx_streams_updated_at ON streams(updated_at);
	`)
	if err != nil {
		return fmt.Errorf("creating streams table: %w", err)
	}

	return nil
}

// isUniqueViolation reports whether err is the driver's UNIQUE-violation
// error for a specific column. modernc.org/sqlite reports these as plain
// errors whose message names the failing column, e.g.
// "UNIQUE constraint failed: streams.slug". Callers translate a match into
// apperror.ErrConflict so the service layer can react to it.
func isUniqueViolation(err error, column string) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed: "+column)
}
