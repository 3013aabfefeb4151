package domain

import (
	"encoding/json"
	"time"
)

// RawEvent is the common shape every source adapter maps its own payload
// into. No shared base type is used: each adapter package's Fetch method
// returns this struct (§4.2).
type RawEvent struct {
	Source   string
	SourceID string
	GlobalID string

	Magnitude *float64
	MagType   *string
	PlaceName *string
	Latitude  *float64
	Longitude *float64
	DepthKm   *float64

	OriginTimeUTC    *time.Time
	UpdatedTimeUTC   *time.Time
	RetrievedTimeUTC time.Time

	Tsunami     *bool
	HasShakemap *bool
	RawData     json.RawMessage
}

// Point is a geographic coordinate pair, SRID 4326, stored as (lon, lat).
type Point struct {
	Lon float64 `json:"lon"`
	Lat float64 `json:"lat"`
}

// Event is the canonical, persisted representation of one physical seismic
// event as observed by one catalog (or the canonical member of a duplicate
// cluster). See spec §3.
type Event struct {
	ID       int64  `json:"id"`
	GlobalID string `json:"global_id"`
	Source   string `json:"source"`
	SourceID string `json:"source_id"`

	OriginTime time.Time `json:"origin_time"`
	Latitude   *float64  `json:"latitude,omitempty"`
	Longitude  *float64  `json:"longitude,omitempty"`
	Location   *Point    `json:"location,omitempty"`

	Magnitude *float64 `json:"magnitude,omitempty"`
	MagType   *string  `json:"mag_type,omitempty"`
	DepthKm   *float64 `json:"depth_km,omitempty"`

	PlaceName         *string  `json:"place_name,omitempty"`
	OriginCountry     *string  `json:"origin_country,omitempty"`
	TectonicPlate     *string  `json:"tectonic_plate,omitempty"`
	AffectedCountries []string `json:"affected_countries,omitempty"`

	Tsunami   *bool `json:"tsunami,omitempty"`
	HasCurves *bool `json:"has_curves,omitempty"`

	UpdatedTime   *time.Time `json:"updated_time,omitempty"`
	RetrievedTime time.Time  `json:"retrieved_time"`

	RawData json.RawMessage `json:"raw_data,omitempty"`

	DuplicateOf *int64 `json:"duplicate_of,omitempty"`
}

// IntensityCurve is a child row of an Event carrying one MMI contour.
type IntensityCurve struct {
	ID           int64           `json:"id"`
	EarthquakeID int64           `json:"earthquake_id"`
	Intensity    float64         `json:"intensity"`
	Coordinates  json.RawMessage `json:"coordinates"` // GeoJSON polygon coordinates, verbatim
}

// DuplicateLink is a directed edge canonical -> duplicate with the measured
// deltas that justified it (§3, §4.5).
type DuplicateLink struct {
	ID           int64   `json:"id"`
	CanonicalID  int64   `json:"canonical_id"`
	DuplicateID  int64   `json:"duplicate_id"`
	DeltaSeconds float64 `json:"dt"`
	DeltaKm      float64 `json:"dd"`
	DeltaMag     float64 `json:"dm"`
}

// SyncState is a keyed singleton row. The core only ever reads/writes the
// "initial_sync_done" key (§3, §4.6).
type SyncState struct {
	Key           string
	Value         bool
	LastSyncStart *time.Time
	LastSyncEnd   *time.Time
	LastRunAt     *time.Time
}

// InitialSyncKey is the SyncState row the Orchestrator maintains.
const InitialSyncKey = "initial_sync_done"

// Country is a read-only reference geometry row consulted by the Enricher
// for origin_country and affected_countries resolution (§3, §4.3).
type Country struct {
	OGCFID     int64
	Admin      *string
	Sovereignt *string
}

// Name prefers Admin, falls back to Sovereignt, per §4.3.
func (c Country) Name() string {
	if c.Admin != nil && *c.Admin != "" {
		return *c.Admin
	}
	if c.Sovereignt != nil && *c.Sovereignt != "" {
		return *c.Sovereignt
	}
	return ""
}

// Plate is a read-only reference geometry row consulted by the Enricher for
// tectonic_plate resolution (§3, §4.3).
type Plate struct {
	OGCFID    int64
	PlateName *string
	Code      *string
}

// Name prefers PlateName, falls back to Code, per §4.3.
func (p Plate) Name() string {
	if p.PlateName != nil && *p.PlateName != "" {
		return *p.PlateName
	}
	if p.Code != nil && *p.Code != "" {
		return *p.Code
	}
	return ""
}

// UpsertStatus is the tri-state outcome of one Upsert Engine call, plus the
// error state a failed per-event task is tallied under (§4.4, §7).
type UpsertStatus string

const (
	StatusNew       UpsertStatus = "new"
	StatusUpdated   UpsertStatus = "updated"
	StatusUnchanged UpsertStatus = "unchanged"
	StatusError     UpsertStatus = "error"
)

// IntensityContour is one (intensity, coordinates) pair parsed out of a
// shakemap MMI contour FeatureCollection (§4.3).
type IntensityContour struct {
	Intensity   float64
	Coordinates json.RawMessage
}
