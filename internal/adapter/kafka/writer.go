// Package kafka publishes change notifications — newly new/updated events
// and newly created duplicate links — to an optional sink topic for
// downstream notification consumers (alerting, webhooks). Publication is
// disabled when KAFKA_EVENTS_TOPIC is unset (§SPEC_FULL B).
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/seismic-sync/catalog-etl/internal/config"
	"github.com/seismic-sync/catalog-etl/internal/domain"
)

// ChangeKind distinguishes the two notification shapes this producer emits.
type ChangeKind string

const (
	EventUpserted   ChangeKind = "event_upserted"
	DuplicateLinked ChangeKind = "duplicate_linked"
)

// ChangeEvent is the envelope published to KAFKA_EVENTS_TOPIC.
type ChangeEvent struct {
	Kind   ChangeKind            `json:"kind"`
	Status domain.UpsertStatus   `json:"status,omitempty"`
	Event  *domain.Event         `json:"event,omitempty"`
	Link   *domain.DuplicateLink `json:"link,omitempty"`
}

// Writer produces ChangeEvents to the configured events topic.
type Writer struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewWriter creates a producer for cfg.KafkaEventsTopic. Callers should
// check cfg.KafkaEventsTopic != "" before wiring this in; NewWriter itself
// does not validate that.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaEventsTopic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Writer{writer: w, logger: logger}
}

// PublishUpsert announces a new or updated event. Unchanged outcomes are
// not published — there is nothing for a downstream consumer to act on.
func (w *Writer) PublishUpsert(ctx context.Context, event *domain.Event, status domain.UpsertStatus) error {
	if status != domain.StatusNew && status != domain.StatusUpdated {
		return nil
	}
	return w.publish(ctx, event.GlobalID, ChangeEvent{Kind: EventUpserted, Status: status, Event: event})
}

// PublishDuplicateLink announces a newly created duplicate link.
func (w *Writer) PublishDuplicateLink(ctx context.Context, link domain.DuplicateLink) error {
	return w.publish(ctx, fmt.Sprintf("%d-%d", link.CanonicalID, link.DuplicateID),
		ChangeEvent{Kind: DuplicateLinked, Link: &link})
}

func (w *Writer) publish(ctx context.Context, key string, change ChangeEvent) error {
	msg, err := serializeChangeEvent(key, change)
	if err != nil {
		return err
	}
	return w.writer.WriteMessages(ctx, msg)
}

// serializeChangeEvent marshals a ChangeEvent into a Kafka message keyed by
// key, with the change kind carried as a header for consumer-side filtering.
func serializeChangeEvent(key string, change ChangeEvent) (kafkago.Message, error) {
	data, err := json.Marshal(change)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("kafka: serialize change event: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(key),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "kind", Value: []byte(change.Kind)},
		},
	}, nil
}

// Close flushes and closes the underlying producer.
func (w *Writer) Close() error {
	return w.writer.Close()
}
