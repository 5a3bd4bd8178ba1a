package store

import "time"

// Auth holds the persisted Strava OAuth tokens.
type Auth struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}

// ProcessedTrip records one trip that reached a terminal upload outcome.
type ProcessedTrip struct {
	UID         string
	TripID      int64
	Mode        string // "track" or "simple"
	ProcessedAt time.Time
}

// Trip processing modes.
const (
	ModeTrack  = "track"
	ModeSimple = "simple"
)

// SyncRun is the bookkeeping record for one sync invocation.
type SyncRun struct {
	ID         string
	StartedAt  time.Time
	FinishedAt time.Time
	Uploaded   int
	Simple     int
	Skipped    int
	Deferred   int
	Errors     int
}
