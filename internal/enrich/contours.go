package enrich

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"time"

	"github.com/seismic-sync/catalog-etl/internal/domain"
)

const detailURL = "https://earthquake.usgs.gov/fdsnws/event/1/query"

// contourURLPattern matches the cont_mmi.json contour document URL embedded
// in a USGS event detail document (§4.3 "scan for any URL matching
// ...cont_mmi.json").
var contourURLPattern = regexp.MustCompile(`https://[^"\\\s]+cont_mmi\.json`)

// Fetcher fetches and parses the shakemap MMI intensity contours for a USGS
// event, implementing ContourFetcher.
type Fetcher struct {
	httpClient *http.Client
	detailURL  string
}

// NewFetcher creates a contour fetcher with the given per-request timeout.
func NewFetcher(timeout time.Duration) *Fetcher {
	return &Fetcher{httpClient: &http.Client{Timeout: timeout}, detailURL: detailURL}
}

type contourFeatureCollection struct {
	Features []contourFeature `json:"features"`
}

type contourFeature struct {
	Properties struct {
		Value float64 `json:"value"`
	} `json:"properties"`
	Geometry struct {
		Coordinates json.RawMessage `json:"coordinates"`
	} `json:"geometry"`
}

// FetchContours derives the bare USGS event id from sourceID (stripping a
// leading "USGS_" prefix), fetches the detail document, locates the contour
// document URL within it, and parses the contour FeatureCollection into
// (intensity, coordinates) pairs (§4.3).
func (f *Fetcher) FetchContours(ctx context.Context, sourceID string) ([]domain.IntensityContour, error) {
	eventID := stripSourcePrefix(sourceID)

	detail, err := f.fetch(ctx, fmt.Sprintf("%s?eventid=%s&format=geojson", f.detailURL, eventID))
	if err != nil {
		return nil, fmt.Errorf("enrich: fetch detail document: %w", err)
	}

	match := contourURLPattern.Find(detail)
	if match == nil {
		return nil, nil
	}

	contourDoc, err := f.fetch(ctx, string(match))
	if err != nil {
		return nil, fmt.Errorf("enrich: fetch contour document: %w", err)
	}

	var fc contourFeatureCollection
	if err := json.Unmarshal(contourDoc, &fc); err != nil {
		return nil, fmt.Errorf("enrich: decode contour document: %w", err)
	}

	curves := make([]domain.IntensityContour, 0, len(fc.Features))
	for _, feat := range fc.Features {
		curves = append(curves, domain.IntensityContour{
			Intensity:   feat.Properties.Value,
			Coordinates: feat.Geometry.Coordinates,
		})
	}
	return curves, nil
}

func (f *Fetcher) fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

func stripSourcePrefix(sourceID string) string {
	const prefix = "USGS_"
	if len(sourceID) > len(prefix) && sourceID[:len(prefix)] == prefix {
		return sourceID[len(prefix):]
	}
	return sourceID
}

// parseCoordinateVertices flattens an arbitrarily nested GeoJSON coordinate
// array (Polygon or MultiPolygon) into its [lon, lat] leaf pairs.
func parseCoordinateVertices(raw json.RawMessage) []domain.Point {
	var generic any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return nil
	}
	var points []domain.Point
	collectVertices(generic, &points)
	return points
}

func collectVertices(node any, out *[]domain.Point) {
	arr, ok := node.([]any)
	if !ok || len(arr) == 0 {
		return
	}

	if isCoordinatePair(arr) {
		lon, lonOK := arr[0].(float64)
		lat, latOK := arr[1].(float64)
		if lonOK && latOK {
			*out = append(*out, domain.Point{Lon: lon, Lat: lat})
		}
		return
	}

	for _, child := range arr {
		collectVertices(child, out)
	}
}

func isCoordinatePair(arr []any) bool {
	if len(arr) < 2 {
		return false
	}
	_, lonOK := arr[0].(float64)
	_, latOK := arr[1].(float64)
	return lonOK && latOK
}
