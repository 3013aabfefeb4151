package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// GlobalID derives the stable, immutable identifier used to key an Event
// across every run and every catalog: the lowercase hex SHA-256 digest of
// "{SOURCE_UPPER}::{source_id_trimmed}".
func GlobalID(source, sourceID string) string {
	input := strings.ToUpper(strings.TrimSpace(source)) + "::" + strings.TrimSpace(sourceID)
	sum := sha256.Sum256([]byte(input))
	return hex.EncodeToString(sum[:])
}

// nanSentinels are string values upstream feeds use in place of a real
// numeric reading.
var nanSentinels = map[string]struct{}{
	"nan": {}, "none": {}, "null": {}, "n/a": {}, "na": {},
}

// SafeFloat coerces a dynamic value into a float64, returning ok=false when
// v is nil, an empty string, or a known NaN sentinel.
func SafeFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case nil:
		return 0, false
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case json.Number:
		f, err := t.Float64()
		return f, err == nil
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return 0, false
		}
		if _, bad := nanSentinels[strings.ToLower(s)]; bad {
			return 0, false
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// SafeBool coerces a dynamic value into a bool, returning ok=false when v
// does not match any of the recognized truthy/falsy spellings.
func SafeBool(v any) (bool, bool) {
	switch t := v.(type) {
	case nil:
		return false, false
	case bool:
		return t, true
	case string:
		switch strings.ToLower(strings.TrimSpace(t)) {
		case "true", "1", "yes":
			return true, true
		case "false", "0", "no":
			return false, true
		default:
			return false, false
		}
	default:
		return false, false
	}
}

// StandardizeDate coerces a dynamic value into a UTC instant. It accepts
// time.Time values (naive ones are assumed UTC), numeric epoch milliseconds,
// and ISO-8601 strings (a trailing "Z" is accepted). Unparseable input
// returns ok=false.
func StandardizeDate(v any) (time.Time, bool) {
	switch t := v.(type) {
	case nil:
		return time.Time{}, false
	case time.Time:
		return t.UTC(), true
	case float64:
		return epochMillis(int64(t)), true
	case int64:
		return epochMillis(t), true
	case int:
		return epochMillis(int64(t)), true
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return epochMillis(i), true
		}
		if f, err := t.Float64(); err == nil {
			return epochMillis(int64(f)), true
		}
		return time.Time{}, false
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return time.Time{}, false
		}
		if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
			return epochMillis(ms), true
		}
		for _, layout := range []string{
			time.RFC3339Nano,
			time.RFC3339,
			"2006-01-02T15:04:05.000Z",
			"2006-01-02T15:04:05Z",
			"2006-01-02T15:04:05",
			"2006-01-02 15:04:05",
		} {
			if parsed, err := time.Parse(layout, s); err == nil {
				return parsed.UTC(), true
			}
		}
		return time.Time{}, false
	default:
		return time.Time{}, false
	}
}

func epochMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}
