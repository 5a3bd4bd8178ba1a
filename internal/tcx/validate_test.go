package tcx

import (
	"testing"
)

func TestComplete(t *testing.T) {
	tests := []struct {
		name         string
		unlockedTime int
		samples      int
		want         bool
	}{
		{name: "full coverage", unlockedTime: 100, samples: 100, want: true},
		{name: "exactly at threshold", unlockedTime: 100, samples: 95, want: true},
		{name: "just below threshold", unlockedTime: 100, samples: 94, want: false},
		{name: "half the samples", unlockedTime: 100, samples: 50, want: false},
		{name: "no samples", unlockedTime: 100, samples: 0, want: false},
		{name: "zero duration trip", unlockedTime: 0, samples: 0, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			trip := testTrip()
			trip.UnlockedTime = tt.unlockedTime

			if got := Complete(trip, fullTelemetry(tt.samples)); got != tt.want {
				t.Errorf("Complete() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCompleteRejectsMismatchedSeries(t *testing.T) {
	trip := testTrip()
	telemetry := fullTelemetry(100)
	telemetry.Distances = telemetry.Distances[:99]

	if Complete(trip, telemetry) {
		t.Error("Complete() = true for mismatched series lengths, want false")
	}
}

func TestCompleteNilTelemetry(t *testing.T) {
	if Complete(testTrip(), nil) {
		t.Error("Complete() = true for nil telemetry, want false")
	}
}
