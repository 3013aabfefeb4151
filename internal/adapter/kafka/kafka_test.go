package kafka

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seismic-sync/catalog-etl/internal/domain"
)

func TestSerializeChangeEvent_Upsert(t *testing.T) {
	mag := 4.2
	event := &domain.Event{
		GlobalID:   "abc123",
		Source:     "USGS",
		SourceID:   "USGS_nc1",
		OriginTime: time.Date(2024, 4, 26, 15, 10, 0, 0, time.UTC),
		Magnitude:  &mag,
	}

	msg, err := serializeChangeEvent(event.GlobalID, ChangeEvent{
		Kind:   EventUpserted,
		Status: domain.StatusNew,
		Event:  event,
	})
	require.NoError(t, err)

	assert.Equal(t, []byte("abc123"), msg.Key)
	assert.Contains(t, string(msg.Value), `"kind":"event_upserted"`)
	assert.Contains(t, string(msg.Value), `"status":"new"`)
	assert.Len(t, msg.Headers, 1)
	assert.Equal(t, "kind", msg.Headers[0].Key)
	assert.Equal(t, []byte("event_upserted"), msg.Headers[0].Value)
}

func TestSerializeChangeEvent_DuplicateLink(t *testing.T) {
	link := domain.DuplicateLink{CanonicalID: 1, DuplicateID: 2, DeltaSeconds: 3, DeltaKm: 1.3, DeltaMag: 0.1}

	msg, err := serializeChangeEvent("1-2", ChangeEvent{Kind: DuplicateLinked, Link: &link})
	require.NoError(t, err)

	assert.Equal(t, []byte("1-2"), msg.Key)
	assert.Contains(t, string(msg.Value), `"kind":"duplicate_linked"`)
	assert.Contains(t, string(msg.Value), `"canonical_id"`)
}
