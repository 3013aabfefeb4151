//go:build integration

package integration_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/seismic-sync/catalog-etl/internal/config"
	"github.com/seismic-sync/catalog-etl/internal/domain"

	kafkaadapter "github.com/seismic-sync/catalog-etl/internal/adapter/kafka"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tckafka "github.com/testcontainers/testcontainers-go/modules/kafka"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// startKafka boots a single-broker Kafka container and returns its
// bootstrap address.
func startKafka(ctx context.Context, t *testing.T) string {
	t.Helper()
	container, err := tckafka.Run(ctx, "confluentinc/confluent-local:7.6.0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	brokers, err := container.Brokers(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, brokers)
	return brokers[0]
}

// TestWriterPublishesChangeEvent verifies that the Kafka change-event
// producer (§SPEC_FULL B) round-trips an upsert notification through a real
// broker with the expected key and headers.
func TestWriterPublishesChangeEvent(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	broker := startKafka(ctx, t)
	topic := "test-events"

	cfg := &config.Config{
		KafkaBrokers:     []string{broker},
		KafkaEventsTopic: topic,
	}

	writer := kafkaadapter.NewWriter(cfg, discardLogger())
	t.Cleanup(func() { _ = writer.Close() })

	mag := 5.4
	event := &domain.Event{
		ID:        1,
		GlobalID:  "abc123",
		Source:    "USGS",
		SourceID:  "USGS_us1000abcd",
		Magnitude: &mag,
	}

	require.NoError(t, writer.PublishUpsert(ctx, event, domain.StatusNew))

	consumer := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     []string{broker},
		Topic:       topic,
		GroupID:     fmt.Sprintf("test-consumer-%d", time.Now().UnixNano()),
		StartOffset: kafkago.FirstOffset,
	})
	t.Cleanup(func() { _ = consumer.Close() })

	readCtx, readCancel := context.WithTimeout(ctx, 30*time.Second)
	defer readCancel()
	msg, err := consumer.ReadMessage(readCtx)
	require.NoError(t, err)

	assert.Equal(t, "abc123", string(msg.Key))

	var change kafkaadapter.ChangeEvent
	require.NoError(t, json.Unmarshal(msg.Value, &change))
	assert.Equal(t, kafkaadapter.EventUpserted, change.Kind)
	assert.Equal(t, domain.StatusNew, change.Status)
	require.NotNil(t, change.Event)
	assert.Equal(t, "abc123", change.Event.GlobalID)
}

// TestWriterPublishesDuplicateLink verifies the duplicate-link change event
// carries the canonical/duplicate pairing through a real broker.
func TestWriterPublishesDuplicateLink(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	broker := startKafka(ctx, t)
	topic := "test-links"

	cfg := &config.Config{
		KafkaBrokers:     []string{broker},
		KafkaEventsTopic: topic,
	}

	writer := kafkaadapter.NewWriter(cfg, discardLogger())
	t.Cleanup(func() { _ = writer.Close() })

	link := domain.DuplicateLink{
		CanonicalID:  101,
		DuplicateID:  202,
		DeltaSeconds: 3.1,
		DeltaKm:      1.2,
		DeltaMag:     0.1,
	}
	require.NoError(t, writer.PublishDuplicateLink(ctx, link))

	consumer := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     []string{broker},
		Topic:       topic,
		GroupID:     fmt.Sprintf("test-consumer-%d", time.Now().UnixNano()),
		StartOffset: kafkago.FirstOffset,
	})
	t.Cleanup(func() { _ = consumer.Close() })

	readCtx, readCancel := context.WithTimeout(ctx, 30*time.Second)
	defer readCancel()
	msg, err := consumer.ReadMessage(readCtx)
	require.NoError(t, err)

	var change kafkaadapter.ChangeEvent
	require.NoError(t, json.Unmarshal(msg.Value, &change))
	assert.Equal(t, kafkaadapter.DuplicateLinked, change.Kind)
	require.NotNil(t, change.Link)
	assert.EqualValues(t, 101, change.Link.CanonicalID)
	assert.EqualValues(t, 202, change.Link.DuplicateID)
}
