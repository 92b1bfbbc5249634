package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/couchcryptid/climate-trend-etl/internal/config"
	"github.com/couchcryptid/climate-trend-etl/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
)

// Writer produces smoothed samples to a Kafka topic.
// It implements pipeline.BatchLoader.
type Writer struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured sink topic. Messages
// are keyed by year so republished years land on the same partition.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaSinkTopic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Writer{writer: w, logger: logger}
}

// LoadBatch serializes and publishes smoothed samples to the sink topic in a
// single WriteMessages call.
func (w *Writer) LoadBatch(ctx context.Context, samples []domain.SmoothedSample) error {
	if len(samples) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(samples))
	for i := range samples {
		msg, err := serializeToMessage(samples[i])
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	if err := w.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("write smoothed samples: %w", err)
	}
	w.logger.Debug("published smoothed samples", "count", len(msgs))
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals a SmoothedSample into a Kafka message.
func serializeToMessage(sample domain.SmoothedSample) (kafkago.Message, error) {
	data, err := json.Marshal(sample)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize smoothed sample: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(strconv.Itoa(sample.Year)),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "window", Value: []byte(strconv.Itoa(sample.Window))},
			{Key: "processed_at", Value: []byte(sample.ProcessedAt.Format(time.RFC3339))},
		},
	}, nil
}
