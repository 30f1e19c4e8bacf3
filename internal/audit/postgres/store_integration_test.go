//go:build integration

package postgres_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"tenantguard/internal/audit"
	"tenantguard/internal/audit/postgres"
	"tenantguard/pkg/domain"
	txcontext "tenantguard/pkg/platform/tx"
	"tenantguard/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *postgres.Store
	base     time.Time
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.postgres = containers.NewPostgresContainer(s.T())
	s.store = postgres.New(s.postgres.DB)
	s.base = time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
}

func (s *PostgresStoreSuite) SetupTest() {
	err := s.postgres.TruncateTables(context.Background(), "audit_records")
	s.Require().NoError(err)
}

func (s *PostgresStoreSuite) record(tenant, actor string, at time.Time) audit.Record {
	return audit.Record{
		ID:        uuid.New(),
		TenantID:  domain.TenantID(tenant),
		ActorID:   domain.ActorID(actor),
		Procedure: "suspend_actor",
		Outcome:   audit.OutcomeSuccess,
		Detail:    map[string]string{"target_actor_id": "actor-9"},
		Timestamp: at,
	}
}

func (s *PostgresStoreSuite) TestAppendAndQuery() {
	ctx := context.Background()
	rec := s.record("tenant-a", "actor-1", s.base)
	s.Require().NoError(s.store.Append(ctx, rec))

	records, err := s.store.Query(ctx, audit.Filter{TenantID: "tenant-a"})
	s.Require().NoError(err)
	s.Require().Len(records, 1)

	got := records[0]
	s.Equal(rec.ID, got.ID)
	s.Equal(rec.TenantID, got.TenantID)
	s.Equal(rec.ActorID, got.ActorID)
	s.Equal(rec.Procedure, got.Procedure)
	s.Equal(rec.Outcome, got.Outcome)
	s.Equal("actor-9", got.Detail["target_actor_id"])
	s.True(got.Timestamp.Equal(rec.Timestamp))
}

func (s *PostgresStoreSuite) TestIdempotentAppend() {
	ctx := context.Background()
	rec := s.record("tenant-a", "actor-1", s.base)

	s.Require().NoError(s.store.Append(ctx, rec))
	s.Require().NoError(s.store.Append(ctx, rec), "retried append of the same record id must not fail")

	records, err := s.store.Query(ctx, audit.Filter{})
	s.Require().NoError(err)
	s.Len(records, 1, "retried append must not duplicate the record")
}

func (s *PostgresStoreSuite) TestFilters() {
	ctx := context.Background()
	s.Require().NoError(s.store.Append(ctx, s.record("tenant-a", "actor-1", s.base)))
	s.Require().NoError(s.store.Append(ctx, s.record("tenant-a", "actor-2", s.base.Add(time.Minute))))
	s.Require().NoError(s.store.Append(ctx, s.record("tenant-b", "actor-3", s.base.Add(2*time.Minute))))

	s.Run("tenant filter", func() {
		records, err := s.store.Query(ctx, audit.Filter{TenantID: "tenant-a"})
		s.Require().NoError(err)
		s.Len(records, 2)
	})

	s.Run("half-open time window", func() {
		records, err := s.store.Query(ctx, audit.Filter{
			From: s.base,
			To:   s.base.Add(2 * time.Minute),
		})
		s.Require().NoError(err)
		s.Len(records, 2, "To bound is exclusive")
	})

	s.Run("newest first with limit", func() {
		records, err := s.store.Query(ctx, audit.Filter{Limit: 2})
		s.Require().NoError(err)
		s.Require().Len(records, 2)
		s.True(records[0].Timestamp.After(records[1].Timestamp))
		s.Equal(domain.TenantID("tenant-b"), records[0].TenantID)
	})
}

func (s *PostgresStoreSuite) TestTransactionEnlistment() {
	ctx := context.Background()

	s.Run("append rolls back with the enclosing transaction", func() {
		tx, err := s.postgres.DB.BeginTx(ctx, nil)
		s.Require().NoError(err)

		rec := s.record("tenant-a", "actor-1", s.base)
		s.Require().NoError(s.store.Append(txcontext.WithTx(ctx, tx), rec))
		s.Require().NoError(tx.Rollback())

		records, err := s.store.Query(ctx, audit.Filter{})
		s.Require().NoError(err)
		s.Empty(records, "a rolled-back transaction must take its audit record with it")
	})

	s.Run("append commits with the enclosing transaction", func() {
		tx, err := s.postgres.DB.BeginTx(ctx, nil)
		s.Require().NoError(err)

		rec := s.record("tenant-a", "actor-1", s.base)
		s.Require().NoError(s.store.Append(txcontext.WithTx(ctx, tx), rec))
		s.Require().NoError(tx.Commit())

		records, err := s.store.Query(ctx, audit.Filter{})
		s.Require().NoError(err)
		s.Len(records, 1)
	})
}
