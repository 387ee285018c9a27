// Package storage persists run history in SQLite: one row per session, one
// row per identifier outcome. Price history is derived from resolved
// outcomes, so every successful lookup becomes a data point for free.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/savingsguru/dealflow/internal/model"
	"github.com/savingsguru/dealflow/internal/service"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// SQLiteStore implements service.SessionStore using SQLite.
type SQLiteStore struct {
	db     *sql.DB
	dbPath string
}

// NewSQLiteStore opens (creating if needed) the history database.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dbPath == "" {
		return nil, fmt.Errorf("dbPath cannot be empty")
	}

	if dir := filepath.Dir(dbPath); dir != "." && dbPath != ":memory:" {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite doesn't benefit from multiple connections.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &SQLiteStore{db: db, dbPath: dbPath}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Migrate applies any pending schema migrations.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	var currentVersion int
	if err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&currentVersion); err != nil {
		return fmt.Errorf("failed to get schema version: %w", err)
	}

	for _, migration := range migrations {
		if migration.Version <= currentVersion {
			continue
		}

		tx, txErr := s.db.BeginTx(ctx, nil)
		if txErr != nil {
			return fmt.Errorf("failed to begin transaction: %w", txErr)
		}

		if upErr := migration.Up(tx); upErr != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d failed: %w", migration.Version, upErr)
		}

		if _, execErr := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", migration.Version)); execErr != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to update schema version: %w", execErr)
		}

		if commitErr := tx.Commit(); commitErr != nil {
			return fmt.Errorf("failed to commit migration %d: %w", migration.Version, commitErr)
		}

		slog.Info("Applied migration",
			"version", migration.Version,
			"description", migration.Description)
	}
	return nil
}

// SaveSession upserts a session row and its errors.
func (s *SQLiteStore) SaveSession(ctx context.Context, session *model.Session) error {
	if session == nil {
		return fmt.Errorf("session cannot be nil")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var completed any
	if !session.CompletedAt.IsZero() {
		completed = session.CompletedAt
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO sessions (id, started_at, completed_at, attempted, succeeded, skipped, api_calls, scrape_calls, error_count)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			completed_at = excluded.completed_at,
			attempted = excluded.attempted,
			succeeded = excluded.succeeded,
			skipped = excluded.skipped,
			api_calls = excluded.api_calls,
			scrape_calls = excluded.scrape_calls,
			error_count = excluded.error_count`,
		session.ID, session.StartedAt, completed,
		session.Attempted, session.Succeeded, session.Skipped,
		session.APICalls, session.ScrapeCalls, len(session.Errors))
	if err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}

	if _, err = tx.ExecContext(ctx, "DELETE FROM session_errors WHERE session_id = ?", session.ID); err != nil {
		return fmt.Errorf("failed to clear session errors: %w", err)
	}
	for _, message := range session.Errors {
		if _, err = tx.ExecContext(ctx,
			"INSERT INTO session_errors (session_id, message) VALUES (?, ?)",
			session.ID, message); err != nil {
			return fmt.Errorf("failed to save session error: %w", err)
		}
	}

	return tx.Commit()
}

// SaveResolutions records the per-identifier outcomes of a session.
func (s *SQLiteStore) SaveResolutions(ctx context.Context, sessionID string, resolutions []service.Resolution) error {
	if sessionID == "" {
		return fmt.Errorf("sessionID cannot be empty")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO resolutions (session_id, asin, resolved, source, title, price, note, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	now := time.Now().UTC()
	for _, r := range resolutions {
		var price any
		if r.Resolved && r.Price > 0 {
			price = r.Price
		}
		if _, err = stmt.ExecContext(ctx,
			sessionID, r.ASIN, r.Resolved, string(r.Source), r.Title, price, r.Note, now); err != nil {
			return fmt.Errorf("failed to save resolution for %s: %w", r.ASIN, err)
		}
	}

	return tx.Commit()
}

// ListSessions returns the most recent sessions, newest first.
func (s *SQLiteStore) ListSessions(ctx context.Context, limit int) ([]model.Session, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, started_at, completed_at, attempted, succeeded, skipped, api_calls, scrape_calls
		FROM sessions
		ORDER BY started_at DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var sessions []model.Session
	for rows.Next() {
		var session model.Session
		var completed sql.NullTime
		if err := rows.Scan(&session.ID, &session.StartedAt, &completed,
			&session.Attempted, &session.Succeeded, &session.Skipped,
			&session.APICalls, &session.ScrapeCalls); err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		if completed.Valid {
			session.CompletedAt = completed.Time
		}
		sessions = append(sessions, session)
	}
	return sessions, rows.Err()
}

// PriceHistory returns observed prices for an ASIN, newest first.
func (s *SQLiteStore) PriceHistory(ctx context.Context, asin string, limit int) ([]service.PricePoint, error) {
	if !model.ValidASIN(asin) {
		return nil, fmt.Errorf("invalid ASIN %q", asin)
	}
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT asin, price, source, created_at
		FROM resolutions
		WHERE asin = ? AND resolved = 1 AND price IS NOT NULL
		ORDER BY created_at DESC
		LIMIT ?`, asin, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query price history: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var points []service.PricePoint
	for rows.Next() {
		var p service.PricePoint
		var source string
		if err := rows.Scan(&p.ASIN, &p.Price, &source, &p.ObservedAt); err != nil {
			return nil, fmt.Errorf("failed to scan price point: %w", err)
		}
		p.Source = model.DataSource(source)
		points = append(points, p)
	}
	return points, rows.Err()
}
