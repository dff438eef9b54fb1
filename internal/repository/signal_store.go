package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"AlphaScout/internal/domain/models"
	"AlphaScout/internal/domain/repository"
	pkgpg "AlphaScout/pkg/postgres"
)

// PostgresSignalStore implements SignalStore on a TimescaleDB/PostgreSQL
// table keyed by signal id.
type PostgresSignalStore struct {
	client *pkgpg.Client
	table  string
}

// NewPostgresSignalStore creates the store.
func NewPostgresSignalStore(client *pkgpg.Client, table string) repository.SignalStore {
	return &PostgresSignalStore{client: client, table: table}
}

// Insert writes the signal with insert-or-ignore semantics. Redelivery of an
// already-stored id is a no-op reported as inserted=false.
func (s *PostgresSignalStore) Insert(ctx context.Context, sig *models.OpportunitySignal) (bool, error) {
	payload, err := json.Marshal(sig.Data)
	if err != nil {
		return false, fmt.Errorf("marshal signal data: %w", err)
	}

	q := fmt.Sprintf(`INSERT INTO %s
		(id, scout_name, signal_type, symbol, confidence, data, timestamp, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO NOTHING`, s.table)

	tag, err := s.client.Pool().Exec(ctx, q,
		sig.ID,
		sig.ScoutName,
		sig.SignalType,
		sig.Symbol,
		sig.Confidence,
		payload,
		sig.Timestamp,
		sig.ExpiresAt,
	)
	if err != nil {
		return false, fmt.Errorf("insert signal %s: %w", sig.ID, err)
	}
	return tag.RowsAffected() == 1, nil
}

// Recent returns the newest signals, newest first. This is the read surface
// downstream report consumers use; they never write.
func (s *PostgresSignalStore) Recent(ctx context.Context, limit int) ([]*models.OpportunitySignal, error) {
	if limit <= 0 {
		limit = 50
	}

	q := fmt.Sprintf(`SELECT id, scout_name, signal_type, symbol, confidence, data, timestamp, expires_at
		FROM %s ORDER BY timestamp DESC LIMIT $1`, s.table)

	rows, err := s.client.Pool().Query(ctx, q, limit)
	if err != nil {
		return nil, fmt.Errorf("query recent signals: %w", err)
	}
	defer rows.Close()

	var signals []*models.OpportunitySignal
	for rows.Next() {
		var (
			sig       models.OpportunitySignal
			payload   []byte
			expiresAt *time.Time
		)
		if err := rows.Scan(&sig.ID, &sig.ScoutName, &sig.SignalType, &sig.Symbol,
			&sig.Confidence, &payload, &sig.Timestamp, &expiresAt); err != nil {
			return nil, fmt.Errorf("scan signal row: %w", err)
		}
		if len(payload) > 0 {
			if err := json.Unmarshal(payload, &sig.Data); err != nil {
				return nil, fmt.Errorf("decode signal data %s: %w", sig.ID, err)
			}
		}
		sig.ExpiresAt = expiresAt
		signals = append(signals, &sig)
	}
	return signals, rows.Err()
}

func (s *PostgresSignalStore) Health(ctx context.Context) error {
	return s.client.Health(ctx)
}

func (s *PostgresSignalStore) Close() {
	s.client.Close()
}

// Schema returns the DDL for the signal table. A plain table, not a
// hypertable: timescaledb wants the partition column inside every unique
// constraint, which the id primary key backing the idempotent insert rules out.
func Schema(table string) []string {
	return []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			scout_name TEXT NOT NULL,
			signal_type TEXT NOT NULL DEFAULT '',
			symbol TEXT NOT NULL,
			confidence DOUBLE PRECISION NOT NULL DEFAULT 0,
			data JSONB,
			timestamp TIMESTAMPTZ NOT NULL,
			expires_at TIMESTAMPTZ,
			executed BOOLEAN NOT NULL DEFAULT FALSE,
			execution_result JSONB
		)`, table),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%s_timestamp ON %s (timestamp DESC)`, table, table),
	}
}
