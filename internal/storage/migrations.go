package storage

import (
	"database/sql"
	"fmt"
)

// Migration represents a database schema migration.
type Migration struct {
	Up          func(*sql.Tx) error
	Description string
	Version     int
}

var migrations = []Migration{
	{
		Version:     1,
		Description: "Initial schema",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				`CREATE TABLE IF NOT EXISTS sessions (
					id TEXT PRIMARY KEY,
					started_at DATETIME NOT NULL,
					completed_at DATETIME,
					attempted INTEGER DEFAULT 0,
					succeeded INTEGER DEFAULT 0,
					skipped INTEGER DEFAULT 0,
					api_calls INTEGER DEFAULT 0,
					scrape_calls INTEGER DEFAULT 0,
					error_count INTEGER DEFAULT 0
				)`,
				`CREATE INDEX idx_sessions_started ON sessions(started_at)`,

				`CREATE TABLE IF NOT EXISTS resolutions (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					session_id TEXT NOT NULL,
					asin TEXT NOT NULL,
					resolved INTEGER NOT NULL,
					source TEXT,
					title TEXT,
					price REAL,
					note TEXT,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
					FOREIGN KEY (session_id) REFERENCES sessions(id)
				)`,
				`CREATE INDEX idx_resolutions_session ON resolutions(session_id)`,
				`CREATE INDEX idx_resolutions_asin ON resolutions(asin)`,
			}

			for _, query := range queries {
				if _, err := tx.Exec(query); err != nil {
					return fmt.Errorf("failed to execute query: %w", err)
				}
			}
			return nil
		},
	},
	{
		Version:     2,
		Description: "Add session errors for run diagnostics",
		Up: func(tx *sql.Tx) error {
			_, err := tx.Exec(`
				CREATE TABLE IF NOT EXISTS session_errors (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					session_id TEXT NOT NULL,
					message TEXT NOT NULL,
					FOREIGN KEY (session_id) REFERENCES sessions(id)
				)
			`)
			return err
		},
	},
}
