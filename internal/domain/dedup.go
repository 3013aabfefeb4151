package domain

import "math"

// Default thresholds for the deduplication sweep (§4.5), overridable via
// config; DefaultDedupParams returns them. A zero DedupParams is used as
// given, with no fallback to these values.
const (
	DefaultDtThresholdSeconds = 8.0
	DefaultDdThresholdKm      = 8.0
	DefaultDmThreshold        = 0.7
)

// sourcePriority ranks catalogs for canonical selection; lower wins. An
// unrecognized source sorts last.
var sourcePriority = map[string]int{
	"USGS": 0,
	"IGN":  1,
	"EMSC": 2,
}

func priorityOf(source string) int {
	if p, ok := sourcePriority[source]; ok {
		return p
	}
	return 99
}

// DedupParams bundles the three pairwise thresholds the sweep applies.
type DedupParams struct {
	DtThresholdSeconds float64
	DdThresholdKm      float64
	DmThreshold        float64
}

// DefaultDedupParams returns the spec's default thresholds.
func DefaultDedupParams() DedupParams {
	return DedupParams{
		DtThresholdSeconds: DefaultDtThresholdSeconds,
		DdThresholdKm:      DefaultDdThresholdKm,
		DmThreshold:        DefaultDmThreshold,
	}
}

// thresholdEpsilon absorbs floating-point error in the measured deltas, so a
// delta that equals its threshold in decimal terms (magnitudes 5.0 and 5.7
// against 0.7) still passes the inclusive comparison.
const thresholdEpsilon = 1e-9

// PairResult carries the measured deltas for a confirmed duplicate pair.
type PairResult struct {
	DeltaSeconds float64
	DeltaKm      float64
	DeltaMag     float64
}

// IsDuplicatePair evaluates two candidate Events against the pairwise
// predicate of §4.5: distinct sources, both magnitudes present, and all
// three deltas within their inclusive thresholds. The caller is expected to
// have already bounded the pair by the dt sweep window; IsDuplicatePair
// re-derives dt itself so it can be used standalone.
func IsDuplicatePair(a, b Event, params DedupParams) (PairResult, bool) {
	if a.Source == b.Source {
		return PairResult{}, false
	}
	if a.Magnitude == nil || b.Magnitude == nil {
		return PairResult{}, false
	}
	if a.Location == nil || b.Location == nil {
		return PairResult{}, false
	}

	dt := math.Abs(b.OriginTime.Sub(a.OriginTime).Seconds())
	if dt > params.DtThresholdSeconds+thresholdEpsilon {
		return PairResult{}, false
	}

	dm := math.Abs(*a.Magnitude - *b.Magnitude)
	if dm > params.DmThreshold+thresholdEpsilon {
		return PairResult{}, false
	}

	dd := haversineKm(*a.Location, *b.Location)
	if dd > params.DdThresholdKm+thresholdEpsilon {
		return PairResult{}, false
	}

	return PairResult{DeltaSeconds: dt, DeltaKm: dd, DeltaMag: dm}, true
}

// Canonical picks the endpoint whose source has the lower priority number as
// canonical, the other as duplicate. ok is false when both endpoints share
// the same priority (§4.5 boundary case, §9 open question 3): the pair
// should be skipped rather than linked with an invented order.
func Canonical(a, b Event) (canonical, duplicate Event, ok bool) {
	pa, pb := priorityOf(a.Source), priorityOf(b.Source)
	switch {
	case pa < pb:
		return a, b, true
	case pb < pa:
		return b, a, true
	default:
		return Event{}, Event{}, false
	}
}

// earthRadiusKm is the mean Earth radius used by the great-circle distance
// calculation.
const earthRadiusKm = 6371.0088

// haversineKm computes the great-circle distance in kilometers between two
// points given as (lon, lat) pairs.
func haversineKm(a, b Point) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLon := (b.Lon - a.Lon) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
	return earthRadiusKm * c
}
