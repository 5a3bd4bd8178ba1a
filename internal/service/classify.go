package service

import (
	"time"

	"cowboy-strava/internal/cowboy"
)

// Decision is the action chosen for one candidate trip. It is computed
// fresh every run; the only persisted per-trip state is membership in
// the processed history.
type Decision int

const (
	// AlreadyDone means the trip uid is in the processed history.
	AlreadyDone Decision = iota
	// TooRecent means the trip ended inside the grace period and
	// provider-side aggregates may not be final yet.
	TooRecent
	// Detailed means telemetry should be fetched and a track built.
	Detailed
	// Simple means a summary-only activity should be created.
	Simple
	// Waiting means the trip has no dashboard data yet but is young
	// enough that it may still arrive; retry on a later run.
	Waiting
)

func (d Decision) String() string {
	switch d {
	case AlreadyDone:
		return "already_done"
	case TooRecent:
		return "too_recent"
	case Detailed:
		return "detailed"
	case Simple:
		return "simple"
	case Waiting:
		return "waiting"
	default:
		return "unknown"
	}
}

// simpleFallbackAge is how old a trip must be before giving up on
// detailed telemetry and settling for a summary upload.
const simpleFallbackAge = 24 * time.Hour

// ClassifyOptions parameterize the per-trip decision.
type ClassifyOptions struct {
	Now   time.Time
	Grace time.Duration
	// Force bypasses the processed-history check for an operator
	// requested re-process.
	Force bool
}

// Classify decides what to do with one trip. It has no side effects;
// calling it twice with the same inputs yields the same decision.
func Classify(trip *cowboy.Trip, processed map[string]struct{}, opts ClassifyOptions) Decision {
	if !opts.Force {
		if _, done := processed[trip.UID]; done {
			return AlreadyDone
		}
	}

	if opts.Now.Before(trip.EndedAt.Add(opts.Grace)) {
		return TooRecent
	}

	if trip.HasDashboardData {
		return Detailed
	}

	if opts.Now.After(trip.StartedAt.Add(simpleFallbackAge)) {
		return Simple
	}

	return Waiting
}

// Window computes the trip listing window for a run:
// [midnight - days, midnight + 1 day), where midnight is the start of
// the current day in now's location.
func Window(now time.Time, days int) (from, to time.Time) {
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	return midnight.AddDate(0, 0, -days), midnight.AddDate(0, 0, 1)
}
