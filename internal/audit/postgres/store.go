// Package postgres persists audit records in an append-only table.
//
// The audit_records table grants only INSERT and SELECT to the service
// role; update and delete are denied by row-filter policy regardless of
// tenant or role (see internal/rowfilter and migrations). This store
// mirrors that contract by exposing no mutation path.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"tenantguard/internal/audit"
	"tenantguard/pkg/domain"
	txcontext "tenantguard/pkg/platform/tx"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// execer returns the transaction from context when present so audit
// appends commit or roll back together with the mutation they audit.
func (s *Store) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

// Append inserts one audit record. Idempotent per record ID via ON
// CONFLICT DO NOTHING, so a retried unit of work cannot double-append the
// same record.
func (s *Store) Append(ctx context.Context, record audit.Record) error {
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}

	detail, err := json.Marshal(record.Detail)
	if err != nil {
		return fmt.Errorf("marshal audit detail: %w", err)
	}

	query := `
		INSERT INTO audit_records (
			id, tenant_id, actor_id, procedure, outcome, detail, timestamp
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO NOTHING
	`
	_, err = s.execer(ctx).ExecContext(ctx, query,
		record.ID,
		record.TenantID.String(),
		record.ActorID.String(),
		record.Procedure,
		string(record.Outcome),
		detail,
		record.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("insert audit record: %w", err)
	}
	return nil
}

// Query returns records matching the filter, newest first. Filters combine
// with AND; zero fields are omitted from the WHERE clause.
func (s *Store) Query(ctx context.Context, filter audit.Filter) ([]audit.Record, error) {
	var (
		conds []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if !filter.TenantID.IsEmpty() {
		conds = append(conds, "tenant_id = "+arg(filter.TenantID.String()))
	}
	if !filter.ActorID.IsEmpty() {
		conds = append(conds, "actor_id = "+arg(filter.ActorID.String()))
	}
	if !filter.From.IsZero() {
		conds = append(conds, "timestamp >= "+arg(filter.From))
	}
	if !filter.To.IsZero() {
		conds = append(conds, "timestamp < "+arg(filter.To))
	}

	query := `
		SELECT id, tenant_id, actor_id, procedure, outcome, detail, timestamp
		FROM audit_records
	`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY timestamp DESC"
	if filter.Limit > 0 {
		query += " LIMIT " + arg(filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query audit records: %w", err)
	}
	defer rows.Close()

	return scanRecords(rows)
}

func scanRecords(rows *sql.Rows) ([]audit.Record, error) {
	var records []audit.Record

	for rows.Next() {
		var (
			record   audit.Record
			tenantID string
			actorID  string
			outcome  string
			detail   []byte
		)
		err := rows.Scan(
			&record.ID,
			&tenantID,
			&actorID,
			&record.Procedure,
			&outcome,
			&detail,
			&record.Timestamp,
		)
		if err != nil {
			return nil, fmt.Errorf("scan audit record: %w", err)
		}

		record.TenantID = domain.TenantID(tenantID)
		record.ActorID = domain.ActorID(actorID)
		record.Outcome = audit.Outcome(outcome)
		if len(detail) > 0 {
			if err := json.Unmarshal(detail, &record.Detail); err != nil {
				return nil, fmt.Errorf("unmarshal audit detail: %w", err)
			}
		}
		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit records: %w", err)
	}
	return records, nil
}
