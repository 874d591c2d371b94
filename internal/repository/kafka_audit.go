package repository

import (
	"context"

	"github.com/bwight-dev/turtle-trader-sub001/internal/domain/models"
	domrepo "github.com/bwight-dev/turtle-trader-sub001/internal/domain/repository"
	pkgkafka "github.com/bwight-dev/turtle-trader-sub001/pkg/kafka"
)

// KafkaAuditSink implements AuditSink on a Kafka topic. Events key by run
// ID, so a run's events stay on one partition in sequence order.
type KafkaAuditSink struct {
	producer *pkgkafka.Producer
	topic    string
}

var _ domrepo.AuditSink = (*KafkaAuditSink)(nil)

// NewKafkaAuditSink creates the sink.
func NewKafkaAuditSink(producer *pkgkafka.Producer, topic string) *KafkaAuditSink {
	return &KafkaAuditSink{producer: producer, topic: topic}
}

func (s *KafkaAuditSink) Record(ctx context.Context, ev *models.AuditEvent) error {
	return s.producer.Publish(ctx, s.topic, []byte(ev.RunID), ev)
}

func (s *KafkaAuditSink) Close() error {
	if s.producer != nil {
		return s.producer.Close()
	}
	return nil
}
