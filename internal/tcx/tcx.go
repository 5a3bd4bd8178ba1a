// Package tcx builds Training Center XML documents from trip telemetry.
// Building is pure: the output depends only on the trip's own recorded
// data, so re-building the same trip yields byte-identical documents.
package tcx

import (
	"bytes"
	"encoding/xml"
	"math"
	"time"

	"github.com/golang/geo/s2"

	"cowboy-strava/internal/cowboy"
)

// DefaultWattsFilter is the power ceiling above which samples are
// treated as sensor glitches and written as zero.
const DefaultWattsFilter = 1100

const timeLayout = "2006-01-02T15:04:05Z"

const schemaLocation = "http://www.garmin.com/xmlschemas/TrainingCenterDatabase/v2 " +
	"https://www8.garmin.com/xmlschemas/TrainingCenterDatabasev2.xsd " +
	"http://www.garmin.com/xmlschemas/UserProfile/v2 " +
	"https://www8.garmin.com/xmlschemas/UserProfileExtensionv2.xsd " +
	"http://www.garmin.com/xmlschemas/ActivityExtension/v2 " +
	"https://www8.garmin.com/xmlschemas/ActivityExtensionv2.xsd"

// Document is a TrainingCenterDatabase file with a single activity.
type Document struct {
	XMLName        xml.Name   `xml:"TrainingCenterDatabase"`
	Xmlns          string     `xml:"xmlns,attr"`
	XmlnsUp2       string     `xml:"xmlns:up2,attr"`
	XmlnsNs3       string     `xml:"xmlns:ns3,attr"`
	XmlnsXsi       string     `xml:"xmlns:xsi,attr"`
	SchemaLocation string     `xml:"xsi:schemaLocation,attr"`
	Author         Author     `xml:"Author"`
	Activities     Activities `xml:"Activities"`
}

// Author identifies the generating application.
type Author struct {
	Type       string    `xml:"xsi:type,attr"`
	Name       string    `xml:"Name"`
	LangID     string    `xml:"LangID"`
	PartNumber string    `xml:"PartNumber"`
	Build      BuildInfo `xml:"Build"`
}

type BuildInfo struct {
	Version Version `xml:"Version"`
}

type Version struct {
	VersionMajor int `xml:"VersionMajor"`
	VersionMinor int `xml:"VersionMinor"`
	BuildMajor   int `xml:"BuildMajor"`
	BuildMinor   int `xml:"BuildMinor"`
}

type Activities struct {
	Activity Activity `xml:"Activity"`
}

type Activity struct {
	Sport   string  `xml:"Sport,attr"`
	ID      string  `xml:"Id"`
	Notes   string  `xml:"Notes"`
	Creator Creator `xml:"Creator"`
	Lap     Lap     `xml:"Lap"`
}

// Creator identifies the recording device.
type Creator struct {
	Type      string  `xml:"xsi:type,attr"`
	Name      string  `xml:"Name"`
	UnitID    int     `xml:"UnitId"`
	ProductID int     `xml:"ProductID"`
	Version   Version `xml:"Version"`
}

type Lap struct {
	StartTime        string  `xml:"StartTime,attr"`
	TriggerMethod    string  `xml:"TriggerMethod"`
	TotalTimeSeconds int     `xml:"TotalTimeSeconds"`
	DistanceMeters   float64 `xml:"DistanceMeters"`
	Track            Track   `xml:"Track"`
}

type Track struct {
	Trackpoints []Trackpoint `xml:"Trackpoint"`
}

type Trackpoint struct {
	Time           string     `xml:"Time"`
	Position       *Position  `xml:"Position,omitempty"`
	DistanceMeters float64    `xml:"DistanceMeters"`
	Extensions     Extensions `xml:"Extensions"`
}

type Position struct {
	LatitudeDegrees  float64 `xml:"LatitudeDegrees"`
	LongitudeDegrees float64 `xml:"LongitudeDegrees"`
}

type Extensions struct {
	TPX TPX `xml:"ns3:TPX"`
}

type TPX struct {
	Watts float64 `xml:"ns3:Watts"`
}

// Build converts one trip and its telemetry into a track document.
// The telemetry is assumed to have passed Complete; Build itself never
// fails. Power samples that are missing or at/above wattsFilter are
// written as zero.
func Build(trip *cowboy.Trip, telemetry *cowboy.Charts, wattsFilter float64) *Document {
	start := trip.StartedAt.UTC()
	power := telemetry.UserPower()

	var points []Trackpoint

	// Synthetic leading point anchoring the track at the trip start.
	points = append(points, Trackpoint{
		Time:       start.Format(timeLayout),
		Position:   position(firstPosition(telemetry.Positions)),
		Extensions: Extensions{TPX: TPX{Watts: 0}},
	})

	for i, dur := range telemetry.Durations {
		if i >= len(telemetry.Distances) || telemetry.Distances[i] == nil {
			continue
		}
		tp := Trackpoint{
			Time:           start.Add(offset(dur)).Format(timeLayout),
			DistanceMeters: *telemetry.Distances[i],
			Extensions:     Extensions{TPX: TPX{Watts: filterWatts(sampleAt(power, i), wattsFilter)}},
		}
		if i < len(telemetry.Positions) {
			tp.Position = position(telemetry.Positions[i])
		}
		points = append(points, tp)
	}

	// Synthetic trailing point closing the track at the last recorded
	// sample. Carries the final cumulative distance; the upstream app
	// wrote a meaningless len(positions)+1 here instead.
	points = append(points, Trackpoint{
		Time:           start.Add(offset(lastDuration(telemetry.Durations))).Format(timeLayout),
		Position:       position(lastPosition(telemetry.Positions)),
		DistanceMeters: lastDistance(telemetry.Distances),
		Extensions:     Extensions{TPX: TPX{Watts: 0}},
	})

	version := Version{VersionMajor: 1, VersionMinor: 0, BuildMajor: 0, BuildMinor: 0}

	return &Document{
		Xmlns:          "http://www.garmin.com/xmlschemas/TrainingCenterDatabase/v2",
		XmlnsUp2:       "http://www.garmin.com/xmlschemas/UserProfile/v2",
		XmlnsNs3:       "http://www.garmin.com/xmlschemas/ActivityExtension/v2",
		XmlnsXsi:       "http://www.w3.org/2001/XMLSchema-instance",
		SchemaLocation: schemaLocation,
		Author: Author{
			Type:       "Application_t",
			Name:       "Cowboy for Strava",
			LangID:     "en",
			PartNumber: "123-4567",
			Build:      BuildInfo{Version: version},
		},
		Activities: Activities{
			Activity: Activity{
				Sport: "Biking",
				ID:    start.Format(timeLayout),
				Notes: trip.Title,
				Creator: Creator{
					Type:    "Device_t",
					Name:    "Cowboy for Strava",
					Version: version,
				},
				Lap: Lap{
					StartTime:        start.Format(timeLayout),
					TriggerMethod:    "Manual",
					TotalTimeSeconds: trip.UnlockedTime,
					DistanceMeters:   RoundMeters(trip.Distance),
					Track:            Track{Trackpoints: points},
				},
			},
		},
	}
}

// Encode serializes the document with an XML declaration.
func (d *Document) Encode() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(xml.Header)

	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")
	if err := enc.Encode(d); err != nil {
		return nil, err
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

// RoundMeters converts kilometers to meters rounded to 3 decimals,
// the precision both upload paths report distance at.
func RoundMeters(km float64) float64 {
	return math.Round(km*1000*1000) / 1000
}

func filterWatts(w *float64, ceiling float64) float64 {
	if w == nil || *w >= ceiling {
		return 0
	}
	return *w
}

// position converts a raw latlng pair to a Position element, dropping
// pairs outside the valid coordinate range.
func position(latlng *[2]float64) *Position {
	if latlng == nil {
		return nil
	}
	if !s2.LatLngFromDegrees(latlng[0], latlng[1]).IsValid() {
		return nil
	}
	return &Position{LatitudeDegrees: latlng[0], LongitudeDegrees: latlng[1]}
}

func firstPosition(positions []*[2]float64) *[2]float64 {
	for _, p := range positions {
		if p != nil {
			return p
		}
	}
	return nil
}

func lastPosition(positions []*[2]float64) *[2]float64 {
	for i := len(positions) - 1; i >= 0; i-- {
		if positions[i] != nil {
			return positions[i]
		}
	}
	return nil
}

func lastDistance(distances []*float64) float64 {
	for i := len(distances) - 1; i >= 0; i-- {
		if distances[i] != nil {
			return *distances[i]
		}
	}
	return 0
}

// offset converts a seconds offset, possibly fractional, to a Duration.
func offset(seconds float64) time.Duration {
	return time.Duration(seconds * float64(time.Second))
}

func lastDuration(durations []float64) float64 {
	if len(durations) == 0 {
		return 0
	}
	return durations[len(durations)-1]
}

func sampleAt(series []*float64, i int) *float64 {
	if i >= len(series) {
		return nil
	}
	return series[i]
}
