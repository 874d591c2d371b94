package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/bwight-dev/turtle-trader-sub001/internal/domain/models"
	domrepo "github.com/bwight-dev/turtle-trader-sub001/internal/domain/repository"
	pkgch "github.com/bwight-dev/turtle-trader-sub001/pkg/clickhouse"
)

// Audit schema. Ordered by (run_id, seq) so one run reads back in decision
// order; detail is a JSON string so numeric values keep their exact decimal
// form.
var auditSchema = []string{
	`CREATE DATABASE IF NOT EXISTS turtle`,
	`CREATE TABLE IF NOT EXISTS turtle.audit_events (
        run_id    String,
        seq       UInt64,
        ts        DateTime64(6, 'UTC'),
        kind      LowCardinality(String),
        market    LowCardinality(String),
        system    LowCardinality(String),
        direction LowCardinality(String),
        reason    String,
        detail    String
    ) ENGINE = MergeTree()
    PARTITION BY toYYYYMM(ts)
    ORDER BY (run_id, seq)`,
}

// ClickHouseAuditSink implements AuditSink on ClickHouse.
type ClickHouseAuditSink struct {
	db    *sql.DB
	close func() error
}

var _ domrepo.AuditSink = (*ClickHouseAuditSink)(nil)

// NewClickHouseAuditSink ensures the schema and returns the sink.
func NewClickHouseAuditSink(ctx context.Context, client *pkgch.Client) (*ClickHouseAuditSink, error) {
	if err := client.InitSchema(ctx, auditSchema); err != nil {
		return nil, fmt.Errorf("audit schema: %w", err)
	}
	return &ClickHouseAuditSink{db: client.DB(), close: client.Close}, nil
}

func (s *ClickHouseAuditSink) Record(ctx context.Context, ev *models.AuditEvent) error {
	detail := "{}"
	if len(ev.Detail) > 0 {
		raw, err := json.Marshal(ev.Detail)
		if err != nil {
			return fmt.Errorf("encode audit detail: %w", err)
		}
		detail = string(raw)
	}

	const q = `INSERT INTO turtle.audit_events
        (run_id, seq, ts, kind, market, system, direction, reason, detail)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	if _, err := s.db.ExecContext(ctx, q,
		ev.RunID,
		ev.Seq,
		ev.Time,
		ev.Kind,
		ev.Market,
		ev.System,
		ev.Direction,
		ev.Reason,
		detail,
	); err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}

func (s *ClickHouseAuditSink) Close() error {
	if s.close != nil {
		return s.close()
	}
	return nil
}
