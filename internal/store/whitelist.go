// ABOUTME: SQLite implementation of the whitelist store using modernc.org/sqlite
// ABOUTME: Durable set of authorized user IDs with optional display metadata

package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
)

const whitelistSchema = `
	CREATE TABLE IF NOT EXISTS whitelist_users (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id    INTEGER NOT NULL UNIQUE,
		username   TEXT,
		first_name TEXT,
		last_name  TEXT
	);

	CREATE UNIQUE INDEX IF NOT EXISTS idx_whitelist_user_id
		ON whitelist_users(user_id);
`

// SQLiteWhitelist implements WhitelistStore on a SQLite database.
type SQLiteWhitelist struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLiteWhitelist opens the whitelist database at the given path.
// The schema is created if it doesn't exist.
func NewSQLiteWhitelist(path string) (*SQLiteWhitelist, error) {
	logger := slog.Default().With("component", "whitelist")

	db, err := openDB(path, whitelistSchema)
	if err != nil {
		return nil, err
	}

	logger.Info("whitelist store initialized", "path", path)
	return &SQLiteWhitelist{db: db, logger: logger}, nil
}

// Close closes the database connection
func (s *SQLiteWhitelist) Close() error {
	s.logger.Info("closing whitelist store")
	return s.db.Close()
}

// AddUser inserts a new whitelist entry. Returns ErrDuplicateUser if the
// user ID is already whitelisted.
func (s *SQLiteWhitelist) AddUser(ctx context.Context, userID int64, username, firstName, lastName string) error {
	query := `
		INSERT INTO whitelist_users (user_id, username, first_name, last_name)
		VALUES (?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		userID,
		nullString(username),
		nullString(firstName),
		nullString(lastName),
	)
	if err != nil {
		if isConstraintViolation(err) {
			return ErrDuplicateUser
		}
		return fmt.Errorf("inserting whitelist user: %w", err)
	}

	s.logger.Info("added whitelist user", "user_id", userID)
	return nil
}

// RemoveUser deletes the entry with the given user ID.
// Returns ErrNotFound if the user is not whitelisted.
func (s *SQLiteWhitelist) RemoveUser(ctx context.Context, userID int64) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM whitelist_users WHERE user_id = ?`, userID)
	if err != nil {
		return fmt.Errorf("deleting whitelist user: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrNotFound
	}

	s.logger.Info("removed whitelist user", "user_id", userID)
	return nil
}

// IsWhitelisted reports whether the user ID is present.
func (s *SQLiteWhitelist) IsWhitelisted(ctx context.Context, userID int64) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM whitelist_users WHERE user_id = ?`, userID).Scan(&one)

	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("querying whitelist membership: %w", err)
	}

	return true, nil
}

// ListUsers returns all whitelist entries.
func (s *SQLiteWhitelist) ListUsers(ctx context.Context) ([]WhitelistEntry, error) {
	query := `
		SELECT id, user_id, username, first_name, last_name
		FROM whitelist_users
		ORDER BY id
	`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying whitelist users: %w", err)
	}
	defer rows.Close()

	var entries []WhitelistEntry
	for rows.Next() {
		var e WhitelistEntry
		var username, firstName, lastName sql.NullString

		if err := rows.Scan(&e.ID, &e.UserID, &username, &firstName, &lastName); err != nil {
			return nil, fmt.Errorf("scanning whitelist row: %w", err)
		}

		e.Username = username.String
		e.FirstName = firstName.String
		e.LastName = lastName.String
		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating whitelist rows: %w", err)
	}

	return entries, nil
}

// UserIDSet returns the whitelisted user IDs as a set.
func (s *SQLiteWhitelist) UserIDSet(ctx context.Context) (map[int64]struct{}, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT user_id FROM whitelist_users`)
	if err != nil {
		return nil, fmt.Errorf("querying whitelist user IDs: %w", err)
	}
	defer rows.Close()

	set := make(map[int64]struct{})
	for rows.Next() {
		var userID int64
		if err := rows.Scan(&userID); err != nil {
			return nil, fmt.Errorf("scanning user ID: %w", err)
		}
		set[userID] = struct{}{}
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating user ID rows: %w", err)
	}

	return set, nil
}

// Ensure SQLiteWhitelist implements WhitelistStore
var _ WhitelistStore = (*SQLiteWhitelist)(nil)
