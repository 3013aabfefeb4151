// Package emsc fetches seismic events from the Euro-Mediterranean Seismic
// Centre FDSN event web service and maps them into domain.RawEvent (§4.2).
package emsc

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
	SourceName = "EMSC"

	feedURL = "https://www.seismicportal.eu/fdsnws/event/1/query"

	// paramTimeLayout is the timestamp format EMSC's starttime/endtime
	// query parameters expect.
	paramTimeLayout = "2006-01-02T15:04:05"
)

type featureCollection struct {
	Features []json.RawMessage `json:"features"`
}

type feature struct {
	Geometry   *geometry  `json:"geometry"`
	Properties properties `json:"properties"`
}

type geometry struct {
	Coordinates []float64 `json:"coordinates"`
}

type properties struct {
	Unid        string `json:"unid"`
	Mag         any    `json:"mag"`
	MagType     string `json:"magtype"`
	FlynnRegion string `json:"flynn_region"`
	Time        any    `json:"time"`
	LastUpdate  any    `json:"lastupdate"`
	Evtype      string `json:"evtype"`
}

// Adapter fetches and normalizes the EMSC feed.
type Adapter struct {
	httpClient *http.Client
	feedURL    string
}

// New creates an EMSC adapter with the given per-request timeout.
func New(timeout time.Duration) *Adapter {
	return &Adapter{httpClient: &http.Client{Timeout: timeout}, feedURL: feedURL}
}

// Fetch retrieves earthquake ("ke") and felt-earthquake ("fe") type
// features within the given window.
func (a *Adapter) Fetch(ctx context.Context, window domain.Window) ([]domain.RawEvent, error) {
	params := url.Values{
		"format":    {"json"},
		"starttime": {window.Start.UTC().Format(paramTimeLayout)},
		"endtime":   {window.End.UTC().Format(paramTimeLayout)},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.feedURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("emsc: build request: %w", err)
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("emsc: fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("emsc: unexpected status %d", resp.StatusCode)
	}

	var fc featureCollection
	if err := json.NewDecoder(resp.Body).Decode(&fc); err != nil {
		return nil, fmt.Errorf("emsc: decode response: %w", err)
	}

	now := time.Now().UTC()
	events := make([]domain.RawEvent, 0, len(fc.Features))
	for _, raw := range fc.Features {
		var f feature
		if err := json.Unmarshal(raw, &f); err != nil {
			continue
		}
		evtype := strings.ToLower(f.Properties.Evtype)
		if evtype != "ke" && evtype != "fe" {
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
	sourceID := "EMSC_" + f.Properties.Unid

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
	if f.Properties.FlynnRegion != "" {
		event.PlaceName = &f.Properties.FlynnRegion
	}
	if v, ok := domain.SafeFloat(f.Properties.Mag); ok {
		event.Magnitude = &v
	}
	if t, ok := domain.StandardizeDate(f.Properties.Time); ok {
		event.OriginTimeUTC = &t
	}
	if t, ok := domain.StandardizeDate(f.Properties.LastUpdate); ok {
		event.UpdatedTimeUTC = &t
	}

	event.RawData = append([]byte(nil), raw...)

	return event
}
