package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/almanac-etl-service/internal/config"
	"github.com/couchcryptid/almanac-etl-service/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
)

// Writer produces advisory records to a Kafka topic.
// It implements pipeline.BatchLoader.
type Writer struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured sink topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaSinkTopic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Writer{writer: w, logger: logger}
}

// LoadBatch serializes and publishes advisory records to the sink topic in a
// single WriteMessages call. Records are keyed by date so every version of a
// day lands on the same partition.
func (w *Writer) LoadBatch(ctx context.Context, records []domain.AdvisoryRecord) error {
	if len(records) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(records))
	for i := range records {
		msg, err := serializeToMessage(records[i])
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	if err := w.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("write advisories: %w", err)
	}
	w.logger.Debug("advisories written", "count", len(msgs))
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals an AdvisoryRecord into a Kafka message.
func serializeToMessage(rec domain.AdvisoryRecord) (kafkago.Message, error) {
	data, err := json.Marshal(rec)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize advisory: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(rec.Date),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "date", Value: []byte(rec.Date)},
			{Key: "generated_at", Value: []byte(rec.GeneratedAt.Format(time.RFC3339))},
			{Key: "commentary_source", Value: []byte(rec.CommentarySource)},
		},
	}, nil
}
