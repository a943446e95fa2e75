// Package kafka publishes gateway link records to a Kafka topic for
// downstream consumers. Publishing is optional; the file-backed link index
// remains the source of truth.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/duct-correlation-service/internal/domain"
)

// Writer produces gateway link records to a Kafka topic.
// It implements pipeline.LinkPublisher.
type Writer struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the links topic.
func NewWriter(brokers []string, topic string, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Writer{writer: w, logger: logger}
}

// PublishLinks serializes the link index and publishes one message per
// gateway, keyed by gateway ID so consumers see the latest link per gateway
// under log compaction.
func (w *Writer) PublishLinks(ctx context.Context, links map[string]domain.GatewayLink) error {
	if len(links) == 0 {
		return nil
	}

	msgs := make([]kafkago.Message, 0, len(links))
	for id, link := range links {
		msg, err := serializeLink(id, link)
		if err != nil {
			return err
		}
		msgs = append(msgs, msg)
	}
	return w.writer.WriteMessages(ctx, msgs...)
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

func serializeLink(gatewayID string, link domain.GatewayLink) (kafkago.Message, error) {
	data, err := json.Marshal(link)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize gateway link: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(gatewayID),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "station_id", Value: []byte(link.StationID)},
			{Key: "updated_at", Value: []byte(link.UpdatedAt.Format(time.RFC3339))},
		},
	}, nil
}
