package tcx

import "cowboy-strava/internal/cowboy"

// completenessRatio is the fraction of expected samples (one per second
// of unlocked time) below which telemetry is treated as partial.
const completenessRatio = 0.95

// Complete reports whether the telemetry is trustworthy enough to build
// a detailed track. Short series mean the dashboard recording dropped
// out mid-trip; a track built from them would misrepresent the ride, so
// the caller should fall back to a summary upload instead.
func Complete(trip *cowboy.Trip, telemetry *cowboy.Charts) bool {
	if telemetry == nil {
		return false
	}

	n := len(telemetry.Durations)
	if len(telemetry.Positions) != n || len(telemetry.Distances) != n || len(telemetry.UserPower()) != n {
		return false
	}

	return float64(n) >= completenessRatio*float64(trip.UnlockedTime)
}
