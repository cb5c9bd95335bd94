package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/bpaauwe/WeatherServicePrototype/internal/domain"
	"github.com/jonboulle/clockwork"
	kafkago "github.com/segmentio/kafka-go"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Writer produces driver updates to a Kafka topic.
// It implements node.Sink.
type Writer struct {
	writer messageWriter
	clock  clockwork.Clock
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the driver topic.
func NewWriter(brokers []string, topic string, clock clockwork.Clock, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
		BatchTimeout: 10 * time.Millisecond,
	}
	return &Writer{writer: w, clock: clock, logger: logger}
}

// DriverMessage is the JSON value of each produced message.
type DriverMessage struct {
	Address     string       `json:"address"`
	Driver      string       `json:"driver"`
	Value       domain.Value `json:"value"`
	UOM         int          `json:"uom"`
	Report      bool         `json:"report"`
	Force       bool         `json:"force"`
	PublishedAt time.Time    `json:"published_at"`
}

// Publish writes one driver value. Messages are keyed by address and driver
// so every update of a driver lands on the same partition.
func (w *Writer) Publish(ctx context.Context, address string, v domain.DriverValue) error {
	msg, err := serializeToMessage(address, v, w.clock.Now())
	if err != nil {
		return err
	}
	return w.writer.WriteMessages(ctx, msg)
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals a driver value into a Kafka message.
func serializeToMessage(address string, v domain.DriverValue, at time.Time) (kafkago.Message, error) {
	data, err := json.Marshal(DriverMessage{
		Address:     address,
		Driver:      v.Driver,
		Value:       v.Value,
		UOM:         v.UOM,
		Report:      v.Report,
		Force:       v.Force,
		PublishedAt: at.UTC(),
	})
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize driver value %s: %w", v.Driver, err)
	}
	return kafkago.Message{
		Key:   []byte(address + "/" + v.Driver),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "driver", Value: []byte(v.Driver)},
			{Key: "published_at", Value: []byte(at.UTC().Format(time.RFC3339))},
		},
	}, nil
}
