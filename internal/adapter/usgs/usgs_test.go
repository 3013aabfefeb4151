package usgs

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seismic-sync/catalog-etl/internal/domain"
)

const samplePayload = `{
	"features": [
		{
			"id": "us1000abcd",
			"geometry": {"coordinates": [-122.1, 37.5, 10.2]},
			"properties": {
				"mag": 4.5, "magType": "mw", "place": "5km NE of Somewhere",
				"type": "earthquake", "time": 1700000000000, "updated": 1700000100000,
				"tsunami": false, "types": ",origin,shakemap,"
			}
		},
		{
			"id": "us1000xyz",
			"geometry": {"coordinates": [10, 20]},
			"properties": {"mag": 2.0, "type": "quarry blast", "time": 1700000000000}
		}
	]
}`

func testAdapter(srvURL string) *Adapter {
	return &Adapter{httpClient: http.DefaultClient, feedURL: srvURL}
}

func TestFetch_FiltersToEarthquakeType(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(samplePayload))
	}))
	defer srv.Close()

	events, err := testAdapter(srv.URL).Fetch(context.Background(), domain.Window{})
	require.NoError(t, err)
	require.Len(t, events, 1)

	e := events[0]
	assert.Equal(t, "USGS", e.Source)
	assert.Equal(t, "USGS_us1000abcd", e.SourceID)
	require.NotNil(t, e.Longitude)
	require.NotNil(t, e.Latitude)
	require.NotNil(t, e.DepthKm)
	assert.InDelta(t, -122.1, *e.Longitude, 1e-9)
	assert.InDelta(t, 37.5, *e.Latitude, 1e-9)
	assert.InDelta(t, 10.2, *e.DepthKm, 1e-9)
	require.NotNil(t, e.Magnitude)
	assert.InDelta(t, 4.5, *e.Magnitude, 1e-9)
	require.NotNil(t, e.MagType)
	assert.Equal(t, "mw", *e.MagType)
	require.NotNil(t, e.Tsunami)
	assert.False(t, *e.Tsunami)
	require.NotNil(t, e.HasShakemap)
	assert.True(t, *e.HasShakemap)
	require.NotNil(t, e.OriginTimeUTC)
	require.NotNil(t, e.UpdatedTimeUTC)
}

func TestFetch_EncodesWindowAsQueryParams(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "geojson", r.URL.Query().Get("format"))
		assert.Equal(t, start.Format(time.RFC3339), r.URL.Query().Get("starttime"))
		assert.Equal(t, end.Format(time.RFC3339), r.URL.Query().Get("endtime"))
		w.Write([]byte(`{"features":[]}`))
	}))
	defer srv.Close()

	_, err := testAdapter(srv.URL).Fetch(context.Background(), domain.Window{Start: start, End: end})
	require.NoError(t, err)
}

func TestFetch_NonOKStatusIsAnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := testAdapter(srv.URL).Fetch(context.Background(), domain.Window{})
	assert.Error(t, err)
}
