package store

import "database/sql"

// migrate runs all database migrations
func migrate(db *sql.DB) error {
	migrations := []string{
		// Strava OAuth tokens (singleton row)
		`CREATE TABLE IF NOT EXISTS auth (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			access_token TEXT NOT NULL,
			refresh_token TEXT NOT NULL,
			expires_at INTEGER NOT NULL,
			created_at TEXT DEFAULT CURRENT_TIMESTAMP,
			updated_at TEXT DEFAULT CURRENT_TIMESTAMP
		)`,

		// Cowboy session headers (singleton row)
		`CREATE TABLE IF NOT EXISTS cowboy_session (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			uid TEXT NOT NULL,
			access_token TEXT NOT NULL,
			client TEXT NOT NULL,
			expiry INTEGER NOT NULL,
			updated_at TEXT DEFAULT CURRENT_TIMESTAMP
		)`,

		// Trips that reached a terminal upload outcome. The uid primary
		// key is the dedup guarantee across runs.
		`CREATE TABLE IF NOT EXISTS processed_trips (
			uid TEXT PRIMARY KEY,
			trip_id INTEGER NOT NULL,
			mode TEXT NOT NULL,
			processed_at TEXT DEFAULT CURRENT_TIMESTAMP
		)`,

		// One row per sync invocation
		`CREATE TABLE IF NOT EXISTS sync_runs (
			id TEXT PRIMARY KEY,
			started_at TEXT NOT NULL,
			finished_at TEXT NOT NULL,
			uploaded INTEGER NOT NULL,
			simple INTEGER NOT NULL,
			skipped INTEGER NOT NULL,
			deferred INTEGER NOT NULL,
			errors INTEGER NOT NULL
		)`,

		`CREATE INDEX IF NOT EXISTS idx_sync_runs_started ON sync_runs(started_at)`,
	}

	for _, m := range migrations {
		if _, err := db.Exec(m); err != nil {
			return err
		}
	}

	return nil
}
