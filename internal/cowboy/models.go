package cowboy

import "time"

// Trip is one recorded ride as returned by the trips endpoints.
//
// UID is the durable identity used for dedup across runs. ID is only
// valid for chart lookups and may be rotated by the provider, so it
// must never be used as a dedup key.
type Trip struct {
	ID                int64     `json:"id"`
	UID               string    `json:"uid"`
	Title             string    `json:"title"`
	StartedAt         time.Time `json:"started_at"`
	EndedAt           time.Time `json:"ended_at"`
	UnlockedTime      int       `json:"unlocked_time"` // seconds
	MovingTime        int       `json:"moving_time"`   // seconds
	Distance          float64   `json:"distance"`      // kilometers
	AverageMotorPower float64   `json:"average_motor_power"`
	AverageUserPower  float64   `json:"average_user_power"`
	HasDashboardData  bool      `json:"has_dashboard_data"`
}

// DailySummary groups the trips recorded on one day.
type DailySummary struct {
	Trips []Trip `json:"trips"`
}

// TripsPage is one page of the paginated trips listing.
// Trips are keyed by day; ordering across days is not stable.
type TripsPage struct {
	LastPage       bool                    `json:"last_page"`
	DailySummaries map[string]DailySummary `json:"daily_summaries"`
}

// Flatten collects every trip on the page into a single slice.
func (p *TripsPage) Flatten() []Trip {
	var trips []Trip
	for _, day := range p.DailySummaries {
		trips = append(trips, day.Trips...)
	}
	return trips
}

// Charts is the per-trip telemetry time series. All four series share
// one length; any element may be missing independently of its peers.
type Charts struct {
	Durations []float64     `json:"durations"` // seconds since trip start
	Positions []*[2]float64 `json:"positions"` // lat, lon
	Distances []*float64    `json:"distances"` // cumulative meters
	ChartData ChartData     `json:"charts"`
}

// ChartData holds the nested chart series keyed by metric name.
type ChartData struct {
	UserPower ChartSeries `json:"user_power"`
}

// ChartSeries is a single nullable metric series.
type ChartSeries struct {
	Data []*float64 `json:"data"`
}

// UserPower returns the rider power series.
func (c *Charts) UserPower() []*float64 {
	return c.ChartData.UserPower.Data
}
