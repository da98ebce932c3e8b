// Package credstore persists per-user delegated OAuth credentials in SQLite.
// This is the single canonical credential path: the token-setting endpoint
// and the OAuth callback both upsert here, and provider resolution reads
// from here.
package credstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver
)

// ErrNotFound is returned when no credentials exist for the requested user.
var ErrNotFound = errors.New("credstore: credentials not found")

const schema = `
CREATE TABLE IF NOT EXISTS user_credentials (
	user_id       TEXT PRIMARY KEY,
	access_token  TEXT NOT NULL,
	refresh_token TEXT NOT NULL,
	expiry        TEXT NOT NULL,
	scopes        TEXT NOT NULL DEFAULT '',
	updated_at    TEXT NOT NULL
);
`

// Credential is one user's stored token set.
type Credential struct {
	UserID       string
	AccessToken  string
	RefreshToken string
	Expiry       time.Time
	Scopes       []string
}

// Store wraps the credentials database.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the credential database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open credential db: %w", err)
	}

	// SQLite is single-writer; one shared connection lets database/sql
	// serialize callers instead of surfacing busy errors.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("set pragma: %w", err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Upsert stores or replaces the credentials for cred.UserID.
func (s *Store) Upsert(ctx context.Context, cred Credential) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO user_credentials (user_id, access_token, refresh_token, expiry, scopes, updated_at)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT(user_id) DO UPDATE SET
	access_token = excluded.access_token,
	refresh_token = excluded.refresh_token,
	expiry = excluded.expiry,
	scopes = excluded.scopes,
	updated_at = excluded.updated_at
`, cred.UserID, cred.AccessToken, cred.RefreshToken,
		cred.Expiry.UTC().Format(time.RFC3339),
		strings.Join(cred.Scopes, " "),
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("upsert credentials: %w", err)
	}
	return nil
}

// Get returns the credentials stored for userID, or ErrNotFound.
func (s *Store) Get(ctx context.Context, userID string) (*Credential, error) {
	var cred Credential
	var expiryStr, scopesStr string

	err := s.db.QueryRowContext(ctx, `
SELECT user_id, access_token, refresh_token, expiry, scopes
FROM user_credentials
WHERE user_id = ?
`, userID).Scan(&cred.UserID, &cred.AccessToken, &cred.RefreshToken, &expiryStr, &scopesStr)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query credentials: %w", err)
	}

	cred.Expiry, _ = time.Parse(time.RFC3339, expiryStr)
	if scopesStr != "" {
		cred.Scopes = strings.Fields(scopesStr)
	}
	return &cred, nil
}

// Delete removes the credentials for userID. Deleting an unknown user is a
// no-op.
func (s *Store) Delete(ctx context.Context, userID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM user_credentials WHERE user_id = ?`, userID); err != nil {
		return fmt.Errorf("delete credentials: %w", err)
	}
	return nil
}
