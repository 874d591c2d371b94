package repository

import (
	"context"

	"github.com/bwight-dev/turtle-trader-sub001/internal/domain/models"
	domrepo "github.com/bwight-dev/turtle-trader-sub001/internal/domain/repository"
	"github.com/bwight-dev/turtle-trader-sub001/pkg/logger"
)

// LogAuditSink writes audit events to the structured log. The fallback
// backend for local runs without ClickHouse or Kafka.
type LogAuditSink struct {
	log *logger.Logger
}

var _ domrepo.AuditSink = (*LogAuditSink)(nil)

// NewLogAuditSink creates the sink.
func NewLogAuditSink(log *logger.Logger) *LogAuditSink {
	return &LogAuditSink{log: log}
}

func (s *LogAuditSink) Record(_ context.Context, ev *models.AuditEvent) error {
	s.log.Info("audit",
		logger.String("run_id", ev.RunID),
		logger.Int64("seq", int64(ev.Seq)),
		logger.String("kind", ev.Kind),
		logger.String("market", ev.Market),
		logger.String("system", ev.System),
		logger.String("direction", ev.Direction),
		logger.String("reason", ev.Reason),
		logger.Any("detail", ev.Detail))
	return nil
}

func (s *LogAuditSink) Close() error {
	return nil
}
