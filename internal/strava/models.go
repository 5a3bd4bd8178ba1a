package strava

import "time"

// activityType is the Strava activity type for e-bike trips.
const activityType = "EBikeRide"

// NewActivity holds the fields for a summary-only activity, used when
// no trustworthy track can be built for a trip.
type NewActivity struct {
	Name        string
	StartDate   time.Time
	ElapsedTime int     // seconds
	Distance    float64 // meters
}

// TrackUpload is a serialized TCX document plus its upload metadata.
type TrackUpload struct {
	Filename string // "<uid>.tcx"
	Name     string
	Data     []byte
}

// UploadStatus is the response from the upload endpoint.
type UploadStatus struct {
	ID     int64  `json:"id"`
	Status string `json:"status"`
	Error  string `json:"error"`
}
