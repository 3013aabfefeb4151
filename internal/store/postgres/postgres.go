// Package postgres implements store.Store against a PostGIS-enabled
// Postgres database, pushing every spatial predicate down to the database
// via ST_Contains (§9 design note).
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/seismic-sync/catalog-etl/internal/config"
	"github.com/seismic-sync/catalog-etl/internal/domain"
)

// Store is a pgx-backed implementation of store.Store.
type Store struct {
	pool *pgxpool.Pool
}

// New opens a connection pool using cfg's Postgres settings.
func New(ctx context.Context, cfg *config.Config) (*Store, error) {
	dsn := fmt.Sprintf(
		"host=%s port=%s dbname=%s user=%s password=%s sslmode=%s",
		cfg.PostgresHost, cfg.PostgresPort, cfg.PostgresDB,
		cfg.PostgresUser, cfg.PostgresPassword, cfg.PostgresSSLMode,
	)
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: open pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}
	return &Store{pool: pool}, nil
}

// Close releases the connection pool.
func (s *Store) Close() {
	s.pool.Close()
}

const eventColumns = `
	id, global_id, source, source_id, origin_time, latitude, longitude,
	magnitude, mag_type, depth_km, place_name, origin_country,
	tectonic_plate, affected_countries, tsunami, has_curves, updated_time,
	retrieved_time, raw_data, duplicate_of`

func scanEvent(row pgx.Row) (*domain.Event, error) {
	var e domain.Event
	if err := row.Scan(
		&e.ID, &e.GlobalID, &e.Source, &e.SourceID, &e.OriginTime,
		&e.Latitude, &e.Longitude,
		&e.Magnitude, &e.MagType, &e.DepthKm,
		&e.PlaceName, &e.OriginCountry, &e.TectonicPlate, &e.AffectedCountries,
		&e.Tsunami, &e.HasCurves, &e.UpdatedTime,
		&e.RetrievedTime, &e.RawData, &e.DuplicateOf,
	); err != nil {
		return nil, err
	}
	if e.Latitude != nil && e.Longitude != nil {
		e.Location = &domain.Point{Lon: *e.Longitude, Lat: *e.Latitude}
	}
	return &e, nil
}

// GetEventByGlobalID implements store.Store.
func (s *Store) GetEventByGlobalID(ctx context.Context, globalID string) (*domain.Event, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+eventColumns+` FROM earthquake WHERE global_id = $1`, globalID)
	e, err := scanEvent(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: get event: %w", err)
	}
	return e, nil
}

// CreateEvent implements store.Store.
func (s *Store) CreateEvent(ctx context.Context, event *domain.Event) (*domain.Event, bool, error) {
	row := s.pool.QueryRow(ctx, `
		INSERT INTO earthquake (
			global_id, source, source_id, origin_time, latitude, longitude,
			location, magnitude, mag_type, depth_km, place_name,
			origin_country, tectonic_plate, affected_countries, tsunami,
			has_curves, updated_time, retrieved_time, raw_data
		) VALUES (
			$1, $2, $3, $4, $5, $6,
			CASE WHEN $5::double precision IS NOT NULL AND $6::double precision IS NOT NULL
				THEN ST_SetSRID(ST_MakePoint($6, $5), 4326) END,
			$7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18
		)
		ON CONFLICT (global_id) DO NOTHING
		RETURNING `+eventColumns,
		event.GlobalID, event.Source, event.SourceID, event.OriginTime,
		event.Latitude, event.Longitude,
		event.Magnitude, event.MagType, event.DepthKm, event.PlaceName,
		event.OriginCountry, event.TectonicPlate, event.AffectedCountries,
		event.Tsunami, event.HasCurves, event.UpdatedTime,
		event.RetrievedTime, event.RawData,
	)

	created, err := scanEvent(row)
	if errors.Is(err, pgx.ErrNoRows) {
		existing, getErr := s.GetEventByGlobalID(ctx, event.GlobalID)
		if getErr != nil {
			return nil, false, getErr
		}
		return existing, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("postgres: create event: %w", err)
	}
	return created, true, nil
}

// UpdateEvent implements store.Store.
func (s *Store) UpdateEvent(ctx context.Context, event *domain.Event) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE earthquake SET
			origin_time = $2,
			latitude = $3,
			longitude = $4,
			location = CASE WHEN $3::double precision IS NOT NULL AND $4::double precision IS NOT NULL
				THEN ST_SetSRID(ST_MakePoint($4, $3), 4326) END,
			magnitude = $5,
			mag_type = $6,
			depth_km = $7,
			place_name = $8,
			origin_country = $9,
			tectonic_plate = $10,
			affected_countries = $11,
			tsunami = $12,
			has_curves = $13,
			updated_time = $14,
			retrieved_time = $15,
			raw_data = $16
		WHERE id = $1`,
		event.ID, event.OriginTime, event.Latitude, event.Longitude,
		event.Magnitude, event.MagType, event.DepthKm, event.PlaceName,
		event.OriginCountry, event.TectonicPlate, event.AffectedCountries,
		event.Tsunami, event.HasCurves, event.UpdatedTime,
		event.RetrievedTime, event.RawData,
	)
	if err != nil {
		return fmt.Errorf("postgres: update event: %w", err)
	}
	return nil
}

// InsertIntensityCurves implements store.Store.
func (s *Store) InsertIntensityCurves(ctx context.Context, eventID int64, curves []domain.IntensityContour) error {
	if len(curves) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, c := range curves {
		if _, err := tx.Exec(ctx, `
			INSERT INTO intensitycurve (earthquake_id, intensity, coordinates)
			VALUES ($1, $2, $3)`,
			eventID, c.Intensity, c.Coordinates,
		); err != nil {
			return fmt.Errorf("postgres: insert intensity curve: %w", err)
		}
	}

	if _, err := tx.Exec(ctx, `UPDATE earthquake SET has_curves = true WHERE id = $1`, eventID); err != nil {
		return fmt.Errorf("postgres: set has_curves: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("postgres: commit intensity curves: %w", err)
	}
	return nil
}

// FindPlateContaining implements store.Store.
func (s *Store) FindPlateContaining(ctx context.Context, lon, lat float64) (*domain.Plate, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT ogc_fid, platename, code FROM plates
		WHERE ST_Contains(geom, ST_SetSRID(ST_MakePoint($1, $2), 4326))
		LIMIT 1`, lon, lat)

	var p domain.Plate
	err := row.Scan(&p.OGCFID, &p.PlateName, &p.Code)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: find plate: %w", err)
	}
	return &p, nil
}

// FindCountryContaining implements store.Store.
func (s *Store) FindCountryContaining(ctx context.Context, lon, lat float64) (*domain.Country, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT ogc_fid, admin, sovereignt FROM countries
		WHERE ST_Contains(geom, ST_SetSRID(ST_MakePoint($1, $2), 4326))
		LIMIT 1`, lon, lat)

	var c domain.Country
	err := row.Scan(&c.OGCFID, &c.Admin, &c.Sovereignt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: find country: %w", err)
	}
	return &c, nil
}

// FindCountriesContaining implements store.Store.
func (s *Store) FindCountriesContaining(ctx context.Context, points []domain.Point) ([]domain.Country, error) {
	if len(points) == 0 {
		return nil, nil
	}

	lons := make([]float64, len(points))
	lats := make([]float64, len(points))
	for i, p := range points {
		lons[i] = p.Lon
		lats[i] = p.Lat
	}

	rows, err := s.pool.Query(ctx, `
		SELECT DISTINCT c.ogc_fid, c.admin, c.sovereignt
		FROM countries c
		JOIN unnest($1::double precision[], $2::double precision[]) AS v(lon, lat)
			ON ST_Contains(c.geom, ST_SetSRID(ST_MakePoint(v.lon, v.lat), 4326))`,
		lons, lats,
	)
	if err != nil {
		return nil, fmt.Errorf("postgres: find countries: %w", err)
	}
	defer rows.Close()

	var countries []domain.Country
	for rows.Next() {
		var c domain.Country
		if err := rows.Scan(&c.OGCFID, &c.Admin, &c.Sovereignt); err != nil {
			return nil, fmt.Errorf("postgres: scan country: %w", err)
		}
		countries = append(countries, c)
	}
	return countries, rows.Err()
}

// CreateDuplicateLinkIfAbsent implements store.Store.
func (s *Store) CreateDuplicateLinkIfAbsent(ctx context.Context, link domain.DuplicateLink) (bool, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("postgres: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		INSERT INTO duplicatelink (canonical_id, duplicate_id, dt, dd, dm)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (canonical_id, duplicate_id) DO NOTHING`,
		link.CanonicalID, link.DuplicateID, link.DeltaSeconds, link.DeltaKm, link.DeltaMag,
	)
	if err != nil {
		return false, fmt.Errorf("postgres: create duplicate link: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return false, nil
	}

	if _, err := tx.Exec(ctx, `UPDATE earthquake SET duplicate_of = $1 WHERE id = $2`,
		link.CanonicalID, link.DuplicateID); err != nil {
		return false, fmt.Errorf("postgres: set duplicate_of: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("postgres: commit duplicate link: %w", err)
	}
	return true, nil
}

// GetOrCreateSyncState implements store.Store.
func (s *Store) GetOrCreateSyncState(ctx context.Context, key string) (*domain.SyncState, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT key, value, last_sync_start, last_sync_end, last_run_at
		FROM sync_state WHERE key = $1`, key)

	state, err := scanSyncState(row)
	if errors.Is(err, pgx.ErrNoRows) {
		row := s.pool.QueryRow(ctx, `
			INSERT INTO sync_state (key, value) VALUES ($1, false)
			ON CONFLICT (key) DO UPDATE SET key = sync_state.key
			RETURNING key, value, last_sync_start, last_sync_end, last_run_at`, key)
		return scanSyncState(row)
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: get sync state: %w", err)
	}
	return state, nil
}

func scanSyncState(row pgx.Row) (*domain.SyncState, error) {
	var st domain.SyncState
	if err := row.Scan(&st.Key, &st.Value, &st.LastSyncStart, &st.LastSyncEnd, &st.LastRunAt); err != nil {
		return nil, err
	}
	return &st, nil
}

// UpdateSyncState implements store.Store.
func (s *Store) UpdateSyncState(ctx context.Context, state *domain.SyncState) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE sync_state SET value = $2, last_sync_start = $3, last_sync_end = $4, last_run_at = $5
		WHERE key = $1`,
		state.Key, state.Value, state.LastSyncStart, state.LastSyncEnd, state.LastRunAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: update sync state: %w", err)
	}
	return nil
}

// ListCanonicalEventsOrderedByOriginTime implements store.Store.
func (s *Store) ListCanonicalEventsOrderedByOriginTime(ctx context.Context) ([]domain.Event, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+eventColumns+` FROM earthquake
		WHERE duplicate_of IS NULL AND location IS NOT NULL
		ORDER BY origin_time ASC`)
	if err != nil {
		return nil, fmt.Errorf("postgres: list canonical events: %w", err)
	}
	defer rows.Close()

	var events []domain.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan event: %w", err)
		}
		events = append(events, *e)
	}
	return events, rows.Err()
}

// MaxRetrievedTime implements store.Store.
func (s *Store) MaxRetrievedTime(ctx context.Context) (*time.Time, error) {
	var max *time.Time
	err := s.pool.QueryRow(ctx, `SELECT MAX(retrieved_time) FROM earthquake`).Scan(&max)
	if err != nil {
		return nil, fmt.Errorf("postgres: max retrieved time: %w", err)
	}
	return max, nil
}
