package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
)

func TestGlobalID(t *testing.T) {
	sum := sha256.Sum256([]byte("USGS::USGS_nc1"))
	want := hex.EncodeToString(sum[:])

	if diff := cmp.Diff(want, GlobalID("usgs", "USGS_nc1")); diff != "" {
		t.Errorf("GlobalID mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(want, GlobalID("  USGS  ", "  USGS_nc1  ")); diff != "" {
		t.Errorf("GlobalID mismatch (-want +got):\n%s", diff)
	}
}

func TestSafeFloat(t *testing.T) {
	cases := []struct {
		name  string
		input any
		want  float64
		ok    bool
	}{
		{"nil", nil, 0, false},
		{"float64", 4.2, 4.2, true},
		{"int", 7, 7, true},
		{"numeric string", "3.5", 3.5, true},
		{"empty string", "", 0, false},
		{"nan sentinel", "NaN", 0, false},
		{"none sentinel", "none", 0, false},
		{"garbage string", "not-a-number", 0, false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got, ok := SafeFloat(c.input)
			assert.Equal(t, c.ok, ok)
			if c.ok {
				assert.Equal(t, c.want, got)
			}
		})
	}
}

func TestSafeBool(t *testing.T) {
	cases := []struct {
		name  string
		input any
		want  bool
		ok    bool
	}{
		{"true bool", true, true, true},
		{"true string", "true", true, true},
		{"1 string", "1", true, true},
		{"yes string", "YES", true, true},
		{"false string", "false", false, true},
		{"no string", "no", false, true},
		{"garbage", "maybe", false, false},
		{"nil", nil, false, false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got, ok := SafeBool(c.input)
			assert.Equal(t, c.ok, ok)
			if c.ok {
				assert.Equal(t, c.want, got)
			}
		})
	}
}

func TestStandardizeDate(t *testing.T) {
	want := time.Date(2023, 11, 14, 22, 13, 20, 0, time.UTC)

	timeDiff := func(t *testing.T, got time.Time) {
		t.Helper()
		if diff := cmp.Diff(want, got, cmpopts.EquateApproxTime(0)); diff != "" {
			t.Errorf("standardized time mismatch (-want +got):\n%s", diff)
		}
	}

	t.Run("epoch millis float", func(t *testing.T) {
		got, ok := StandardizeDate(float64(1700000000000))
		assert.True(t, ok)
		timeDiff(t, got)
	})

	t.Run("epoch millis string", func(t *testing.T) {
		got, ok := StandardizeDate("1700000000000")
		assert.True(t, ok)
		timeDiff(t, got)
	})

	t.Run("iso8601 with Z", func(t *testing.T) {
		got, ok := StandardizeDate("2023-11-14T22:13:20Z")
		assert.True(t, ok)
		timeDiff(t, got)
	})

	t.Run("naive instant assumed UTC", func(t *testing.T) {
		naive := time.Date(2023, 11, 14, 22, 13, 20, 0, time.FixedZone("", 0))
		got, ok := StandardizeDate(naive)
		assert.True(t, ok)
		timeDiff(t, got)
	})

	t.Run("unparseable", func(t *testing.T) {
		_, ok := StandardizeDate("not a date")
		assert.False(t, ok)
	})

	t.Run("absent", func(t *testing.T) {
		_, ok := StandardizeDate(nil)
		assert.False(t, ok)
	})
}
