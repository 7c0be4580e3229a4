package notify

import (
	"context"
	"encoding/json"
	"time"

	"stocksense-backend/internal/metrics"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaSink publishes every event as a JSON message keyed by event id.
type KafkaSink struct {
	writer  messageWriter
	log     *zap.Logger
	metrics *metrics.Metrics
}

func NewKafkaSink(brokers []string, topic string, log *zap.Logger, m *metrics.Metrics) *KafkaSink {
	w := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		BatchTimeout: 50 * time.Millisecond,
	}
	return newKafkaSink(w, log, m)
}

func newKafkaSink(w messageWriter, log *zap.Logger, m *metrics.Metrics) *KafkaSink {
	return &KafkaSink{writer: w, log: log, metrics: m}
}

func (k *KafkaSink) Notify(ctx context.Context, ev Event) {
	value, err := json.Marshal(ev)
	if err != nil {
		k.log.Error("encode kafka event", zap.String("event", ev.Name), zap.Error(err))
		return
	}

	err = k.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(ev.ID),
		Value: value,
		Time:  ev.Timestamp,
		Headers: []kafka.Header{
			{Key: "event", Value: []byte(ev.Name)},
		},
	})
	k.metrics.Notification("kafka", err == nil)
	if err != nil {
		k.log.Warn("kafka publish failed", zap.String("event", ev.Name), zap.Error(err))
	}
}

func (k *KafkaSink) Close() error {
	return k.writer.Close()
}
