// Package usgs fetches seismic events from the U.S. Geological Survey FDSN
// event web service and maps them into domain.RawEvent (§4.2).
package usgs

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/seismic-sync/catalog-etl/internal/domain"
)

const (
	// SourceName identifies this catalog in global_id derivation and
	// source-priority tie-breaking.
	SourceName = "USGS"

	feedURL = "https://earthquake.usgs.gov/fdsnws/event/1/query"
)

type featureCollection struct {
	Features []json.RawMessage `json:"features"`
}

type feature struct {
	ID         string     `json:"id"`
	Geometry   *geometry  `json:"geometry"`
	Properties properties `json:"properties"`
}

type geometry struct {
	Coordinates []float64 `json:"coordinates"`
}

type properties struct {
	Mag     any    `json:"mag"`
	MagType string `json:"magType"`
	Place   string `json:"place"`
	Type    string `json:"type"`
	Time    any    `json:"time"`
	Updated any    `json:"updated"`
	Tsunami any    `json:"tsunami"`
	Types   string `json:"types"`
}

// Adapter fetches and normalizes the USGS feed.
type Adapter struct {
	httpClient *http.Client
	feedURL    string
}

// New creates a USGS adapter with the given per-request timeout.
func New(timeout time.Duration) *Adapter {
	return &Adapter{httpClient: &http.Client{Timeout: timeout}, feedURL: feedURL}
}

// Fetch retrieves earthquake-type features within the given window.
func (a *Adapter) Fetch(ctx context.Context, window domain.Window) ([]domain.RawEvent, error) {
	params := url.Values{
		"format":    {"geojson"},
		"starttime": {window.Start.UTC().Format(time.RFC3339)},
		"endtime":   {window.End.UTC().Format(time.RFC3339)},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.feedURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("usgs: build request: %w", err)
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("usgs: fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("usgs: unexpected status %d", resp.StatusCode)
	}

	var fc featureCollection
	if err := json.NewDecoder(resp.Body).Decode(&fc); err != nil {
		return nil, fmt.Errorf("usgs: decode response: %w", err)
	}

	now := time.Now().UTC()
	events := make([]domain.RawEvent, 0, len(fc.Features))
	for _, raw := range fc.Features {
		var f feature
		if err := json.Unmarshal(raw, &f); err != nil {
			continue
		}
		if !strings.EqualFold(f.Properties.Type, "earthquake") {
			continue
		}
		events = append(events, mapFeature(f, raw, now))
	}
	return events, nil
}

// mapFeature maps the decoded feature into a domain.RawEvent, preserving
// raw verbatim as raw_data (§3: "original feed fragment, verbatim") rather
// than re-serializing the narrowly-typed feature struct, which would drop
// every upstream field this adapter doesn't model.
func mapFeature(f feature, raw json.RawMessage, retrieved time.Time) domain.RawEvent {
	sourceID := "USGS_" + f.ID

	event := domain.RawEvent{
		Source:           SourceName,
		SourceID:         sourceID,
		GlobalID:         domain.GlobalID(SourceName, sourceID),
		RetrievedTimeUTC: retrieved,
	}

	if f.Geometry != nil && len(f.Geometry.Coordinates) >= 2 {
		lon := f.Geometry.Coordinates[0]
		lat := f.Geometry.Coordinates[1]
		event.Longitude = &lon
		event.Latitude = &lat
		if len(f.Geometry.Coordinates) >= 3 {
			depth := f.Geometry.Coordinates[2]
			event.DepthKm = &depth
		}
	}

	if f.Properties.MagType != "" {
		event.MagType = &f.Properties.MagType
	}
	if f.Properties.Place != "" {
		event.PlaceName = &f.Properties.Place
	}
	if v, ok := domain.SafeFloat(f.Properties.Mag); ok {
		event.Magnitude = &v
	}
	if t, ok := domain.StandardizeDate(f.Properties.Time); ok {
		event.OriginTimeUTC = &t
	}
	if t, ok := domain.StandardizeDate(f.Properties.Updated); ok {
		event.UpdatedTimeUTC = &t
	}
	if v, ok := domain.SafeBool(f.Properties.Tsunami); ok {
		event.Tsunami = &v
	}

	hasShakemap := strings.Contains(f.Properties.Types, "shakemap")
	event.HasShakemap = &hasShakemap
	event.RawData = append([]byte(nil), raw...)

	return event
}
