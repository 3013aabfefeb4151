// Package domain models the canonical seismic event schema shared by every
// catalog the pipeline ingests.
//
// # Catalogs
//
// Three independent public catalogs are normalized into one shape:
//
//	IGN   - Instituto Geografico Nacional (Spain), a rolling JS snapshot feed
//	USGS  - U.S. Geological Survey FDSN event web service, GeoJSON
//	EMSC  - Euro-Mediterranean Seismic Centre FDSN event web service, JSON
//
// Each source's adapter package maps its own response shape into [RawEvent];
// no shared base type is used: each package provides its own Adapter whose
// Fetch method returns the same struct.
//
// # Identity
//
// Every Event carries a global_id: the lowercase hex SHA-256 digest of
// "{SOURCE_UPPER}::{source_id_trimmed}". It is stable across runs and is the
// sole key the upsert and dedup stages rely on for idempotence. See [GlobalID].
//
// # Field coercion
//
// Upstream feeds encode numbers, booleans, and NaN sentinels as strings
// inconsistently. [SafeFloat], [SafeBool], and [StandardizeDate] convert a
// dynamic value into a typed optional, never panicking on a bad input.
//
// # Duplicate resolution
//
// Duplicates are linked, not merged: the deduplication sweep only decides
// which of two near-coincident events is canonical and measures the deltas
// that justified the link. See [IsDuplicatePair] and [Canonical].
package domain
