package repository

import (
	"context"

	"OptionLens/internal/domain/models"
	"OptionLens/internal/domain/repository"
	pkgkafka "OptionLens/pkg/kafka"
)

// KafkaPublisher implements Publisher for Kafka. Snapshots are keyed
// by ticker so one underlying's stream stays ordered within a
// partition.
type KafkaPublisher struct {
	producer *pkgkafka.Producer
	topic    string
}

// NewKafkaPublisher creates a Kafka snapshot publisher.
func NewKafkaPublisher(producer *pkgkafka.Producer, topic string) repository.Publisher {
	return &KafkaPublisher{producer: producer, topic: topic}
}

func (p *KafkaPublisher) Publish(ctx context.Context, s *models.AnalysisSnapshot) error {
	return p.producer.Publish(ctx, p.topic, []byte(s.Ticker), s)
}

func (p *KafkaPublisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}

// LogSink adapts the Kafka producer to the log collector's publisher
// interface so aggregated error logs ship to their own topic.
type LogSink struct {
	producer *pkgkafka.Producer
}

// NewLogSink creates a Kafka-backed log sink.
func NewLogSink(producer *pkgkafka.Producer) *LogSink {
	return &LogSink{producer: producer}
}

func (s *LogSink) PublishMessage(ctx context.Context, topic string, payload interface{}) error {
	return s.producer.Publish(ctx, topic, nil, payload)
}
