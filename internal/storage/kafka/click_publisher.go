package kafka

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/aidesbz/shortlink/internal/events"
	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

// ClickPublisher writes ClickRecorded events to a Kafka topic, keyed by code
// so per-link ordering is preserved within a partition.
type ClickPublisher struct {
	writer *kafka.Writer
}

func NewClickPublisher(brokers []string, topic string) *ClickPublisher {
	return &ClickPublisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireOne,
			BatchTimeout: 50 * time.Millisecond,
			Async:        false,
		},
	}
}

func (p *ClickPublisher) PublishClick(ctx context.Context, event events.ClickRecorded) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	carrier := propagation.MapCarrier{}
	otel.GetTextMapPropagator().Inject(ctx, carrier)

	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:     []byte(event.Code),
		Value:   payload,
		Headers: carrierToKafkaHeaders(carrier),
	})
}

func carrierToKafkaHeaders(carrier propagation.MapCarrier) []kafka.Header {
	headers := make([]kafka.Header, 0, len(carrier))
	for key, value := range carrier {
		if strings.TrimSpace(value) == "" {
			continue
		}
		headers = append(headers, kafka.Header{
			Key:   key,
			Value: []byte(value),
		})
	}
	return headers
}

func (p *ClickPublisher) Close() error {
	return p.writer.Close()
}
