package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"cowboy-strava/internal/cowboy"
)

// Store is the application's data access layer on top of SQLite.
type Store struct {
	db *sql.DB
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// --- Auth Methods ---

// GetAuth retrieves the stored Strava tokens.
func (s *Store) GetAuth() (*Auth, error) {
	var auth Auth
	var expiresAt int64
	err := s.db.QueryRow(`
		SELECT access_token, refresh_token, expires_at FROM auth WHERE id = 1
	`).Scan(&auth.AccessToken, &auth.RefreshToken, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoAuth
	}
	if err != nil {
		return nil, err
	}
	auth.ExpiresAt = time.Unix(expiresAt, 0)
	return &auth, nil
}

// SaveAuth stores or replaces the Strava tokens.
func (s *Store) SaveAuth(auth *Auth) error {
	_, err := s.db.Exec(`
		INSERT INTO auth (id, access_token, refresh_token, expires_at)
		VALUES (1, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			access_token = excluded.access_token,
			refresh_token = excluded.refresh_token,
			expires_at = excluded.expires_at,
			updated_at = CURRENT_TIMESTAMP
	`, auth.AccessToken, auth.RefreshToken, auth.ExpiresAt.Unix())
	return err
}

// UpdateTokens updates just the access and refresh tokens.
func (s *Store) UpdateTokens(accessToken, refreshToken string, expiresAt time.Time) error {
	result, err := s.db.Exec(`
		UPDATE auth SET
			access_token = ?,
			refresh_token = ?,
			expires_at = ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = 1
	`, accessToken, refreshToken, expiresAt.Unix())
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrNoAuth
	}
	return nil
}

// --- Cowboy Session Methods ---

// GetSession retrieves the cached Cowboy session headers.
func (s *Store) GetSession() (cowboy.Session, error) {
	var sess cowboy.Session
	var expiry int64
	err := s.db.QueryRow(`
		SELECT uid, access_token, client, expiry FROM cowboy_session WHERE id = 1
	`).Scan(&sess.UID, &sess.AccessToken, &sess.Client, &expiry)
	if errors.Is(err, sql.ErrNoRows) {
		return cowboy.Session{}, ErrNoSession
	}
	if err != nil {
		return cowboy.Session{}, err
	}
	sess.Expiry = time.Unix(expiry, 0)
	return sess, nil
}

// SaveSession stores or replaces the Cowboy session headers.
func (s *Store) SaveSession(sess cowboy.Session) error {
	_, err := s.db.Exec(`
		INSERT INTO cowboy_session (id, uid, access_token, client, expiry)
		VALUES (1, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			uid = excluded.uid,
			access_token = excluded.access_token,
			client = excluded.client,
			expiry = excluded.expiry,
			updated_at = CURRENT_TIMESTAMP
	`, sess.UID, sess.AccessToken, sess.Client, sess.Expiry.Unix())
	return err
}

// --- Processed History Methods ---

// LoadProcessed returns the set of trip uids that already reached a
// terminal outcome.
func (s *Store) LoadProcessed() (map[string]struct{}, error) {
	rows, err := s.db.Query(`SELECT uid FROM processed_trips`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	processed := make(map[string]struct{})
	for rows.Next() {
		var uid string
		if err := rows.Scan(&uid); err != nil {
			return nil, err
		}
		processed[uid] = struct{}{}
	}
	return processed, rows.Err()
}

// MarkProcessed records a terminal outcome for a trip. Marking the same
// uid twice is a no-op, so history stays append-only and deduplicated.
func (s *Store) MarkProcessed(uid string, tripID int64, mode string) error {
	_, err := s.db.Exec(`
		INSERT INTO processed_trips (uid, trip_id, mode)
		VALUES (?, ?, ?)
		ON CONFLICT(uid) DO NOTHING
	`, uid, tripID, mode)
	if err != nil {
		return fmt.Errorf("recording processed trip %s: %w", uid, err)
	}
	return nil
}

// ListProcessed returns all processed trips ordered by uid.
func (s *Store) ListProcessed() ([]ProcessedTrip, error) {
	rows, err := s.db.Query(`
		SELECT uid, trip_id, mode, processed_at FROM processed_trips ORDER BY uid
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var trips []ProcessedTrip
	for rows.Next() {
		var t ProcessedTrip
		var processedAt string
		if err := rows.Scan(&t.UID, &t.TripID, &t.Mode, &processedAt); err != nil {
			return nil, err
		}
		ts, err := time.Parse("2006-01-02 15:04:05", processedAt)
		if err != nil {
			return nil, fmt.Errorf("parsing processed_at for %s: %w", t.UID, err)
		}
		t.ProcessedAt = ts
		trips = append(trips, t)
	}
	return trips, rows.Err()
}

// --- Sync Run Methods ---

// RecordRun stores the bookkeeping record for a finished sync run.
func (s *Store) RecordRun(run *SyncRun) error {
	_, err := s.db.Exec(`
		INSERT INTO sync_runs (id, started_at, finished_at, uploaded, simple, skipped, deferred, errors)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, run.ID, run.StartedAt.Format(time.RFC3339), run.FinishedAt.Format(time.RFC3339),
		run.Uploaded, run.Simple, run.Skipped, run.Deferred, run.Errors)
	return err
}
