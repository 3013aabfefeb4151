package pipeline

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/seismic-sync/catalog-etl/internal/domain"
)

// memStore is an in-memory store.Store used across this package's tests. It
// keeps just enough behavior to exercise the Upsert Engine, Dedup Engine,
// and Orchestrator without a real database.
type memStore struct {
	mu         sync.Mutex
	nextID     int64
	byID       map[int64]*domain.Event
	byGlobalID map[string]int64
	syncState  map[string]*domain.SyncState

	plate     *domain.Plate
	country   *domain.Country
	countries []domain.Country
}

func newMemStore() *memStore {
	return &memStore{
		byID:       make(map[int64]*domain.Event),
		byGlobalID: make(map[string]int64),
		syncState:  make(map[string]*domain.SyncState),
	}
}

func (m *memStore) GetEventByGlobalID(_ context.Context, globalID string) (*domain.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.byGlobalID[globalID]
	if !ok {
		return nil, nil
	}
	e := *m.byID[id]
	return &e, nil
}

func (m *memStore) CreateEvent(_ context.Context, event *domain.Event) (*domain.Event, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if id, ok := m.byGlobalID[event.GlobalID]; ok {
		existing := *m.byID[id]
		return &existing, false, nil
	}
	m.nextID++
	event.ID = m.nextID
	stored := *event
	m.byID[event.ID] = &stored
	m.byGlobalID[event.GlobalID] = event.ID
	result := stored
	return &result, true, nil
}

func (m *memStore) UpdateEvent(_ context.Context, event *domain.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored := *event
	m.byID[event.ID] = &stored
	return nil
}

func (m *memStore) InsertIntensityCurves(_ context.Context, eventID int64, curves []domain.IntensityContour) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.byID[eventID]; ok {
		hasCurves := true
		e.HasCurves = &hasCurves
	}
	return nil
}

func (m *memStore) FindPlateContaining(context.Context, float64, float64) (*domain.Plate, error) {
	return m.plate, nil
}

func (m *memStore) FindCountryContaining(context.Context, float64, float64) (*domain.Country, error) {
	return m.country, nil
}

func (m *memStore) FindCountriesContaining(context.Context, []domain.Point) ([]domain.Country, error) {
	return m.countries, nil
}

func (m *memStore) CreateDuplicateLinkIfAbsent(_ context.Context, link domain.DuplicateLink) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.byID {
		if e.ID == link.DuplicateID && e.DuplicateOf != nil {
			return false, nil
		}
	}
	canonical := link.CanonicalID
	m.byID[link.DuplicateID].DuplicateOf = &canonical
	return true, nil
}

func (m *memStore) GetOrCreateSyncState(_ context.Context, key string) (*domain.SyncState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if st, ok := m.syncState[key]; ok {
		copy := *st
		return &copy, nil
	}
	st := &domain.SyncState{Key: key, Value: false}
	m.syncState[key] = st
	copy := *st
	return &copy, nil
}

func (m *memStore) UpdateSyncState(_ context.Context, state *domain.SyncState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored := *state
	m.syncState[state.Key] = &stored
	return nil
}

func (m *memStore) ListCanonicalEventsOrderedByOriginTime(context.Context) ([]domain.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var events []domain.Event
	for _, e := range m.byID {
		if e.DuplicateOf != nil || e.Location == nil {
			continue
		}
		events = append(events, *e)
	}
	sort.Slice(events, func(i, j int) bool { return events[i].OriginTime.Before(events[j].OriginTime) })
	return events, nil
}

// MaxRetrievedTime mirrors the unfiltered aggregate the real store computes
// (§4.6 step 2): every row counts, including duplicates and those missing a
// location.
func (m *memStore) MaxRetrievedTime(context.Context) (*time.Time, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var max *time.Time
	for _, e := range m.byID {
		if max == nil || e.RetrievedTime.After(*max) {
			t := e.RetrievedTime
			max = &t
		}
	}
	return max, nil
}
