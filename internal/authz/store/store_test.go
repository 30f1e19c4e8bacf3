package store

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"tenantguard/internal/authz/models"
	"tenantguard/pkg/domain"
	"tenantguard/pkg/platform/sentinel"
)

type ContextStoreSuite struct {
	suite.Suite
	store *InMemory
}

func TestContextStoreSuite(t *testing.T) {
	suite.Run(t, new(ContextStoreSuite))
}

func (s *ContextStoreSuite) SetupTest() {
	s.store = NewInMemory()
}

func (s *ContextStoreSuite) SetupSubTest() {
	s.SetupTest()
}

func (s *ContextStoreSuite) authCtx(tenant string) models.AuthContext {
	return models.AuthContext{
		TenantID: domain.TenantID(tenant),
		ActorID:  domain.ActorID("actor-1"),
		Role:     domain.RoleOperator,
		Source:   models.SourceClaim,
	}
}

func (s *ContextStoreSuite) TestPutAndGet() {
	s.Run("stores and retrieves per unit of work", func() {
		uowID := uuid.New()
		s.Require().NoError(s.store.Put(uowID, s.authCtx("tenant-a")))

		got, ok := s.store.Get(uowID)
		s.Require().True(ok)
		s.Equal(domain.TenantID("tenant-a"), got.TenantID)
	})

	s.Run("unknown unit of work yields nothing", func() {
		_, ok := s.store.Get(uuid.New())
		s.False(ok)
	})

	s.Run("identical re-put is a no-op", func() {
		uowID := uuid.New()
		s.Require().NoError(s.store.Put(uowID, s.authCtx("tenant-a")))
		s.Require().NoError(s.store.Put(uowID, s.authCtx("tenant-a")))
		s.Equal(1, s.store.Len())
	})

	s.Run("conflicting re-put is rejected", func() {
		uowID := uuid.New()
		s.Require().NoError(s.store.Put(uowID, s.authCtx("tenant-a")))

		err := s.store.Put(uowID, s.authCtx("tenant-b"))
		s.Require().ErrorIs(err, sentinel.ErrConflict)

		got, _ := s.store.Get(uowID)
		s.Equal(domain.TenantID("tenant-a"), got.TenantID)
	})
}

func (s *ContextStoreSuite) TestIsolation() {
	s.Run("entries are keyed by unit of work, never shared", func() {
		uowA, uowB := uuid.New(), uuid.New()
		s.Require().NoError(s.store.Put(uowA, s.authCtx("tenant-a")))
		s.Require().NoError(s.store.Put(uowB, s.authCtx("tenant-b")))

		gotA, _ := s.store.Get(uowA)
		gotB, _ := s.store.Get(uowB)
		s.Equal(domain.TenantID("tenant-a"), gotA.TenantID)
		s.Equal(domain.TenantID("tenant-b"), gotB.TenantID)
	})

	s.Run("discard removes exactly one entry", func() {
		uowA, uowB := uuid.New(), uuid.New()
		s.Require().NoError(s.store.Put(uowA, s.authCtx("tenant-a")))
		s.Require().NoError(s.store.Put(uowB, s.authCtx("tenant-b")))

		s.store.Discard(uowA)

		_, ok := s.store.Get(uowA)
		s.False(ok)
		_, ok = s.store.Get(uowB)
		s.True(ok)
	})

	s.Run("discard of unknown id is safe", func() {
		s.store.Discard(uuid.New())
		s.Equal(0, s.store.Len())
	})

	s.Run("a new unit of work starts clean after discard", func() {
		uowID := uuid.New()
		s.Require().NoError(s.store.Put(uowID, s.authCtx("tenant-a")))
		s.store.Discard(uowID)

		s.Require().NoError(s.store.Put(uowID, s.authCtx("tenant-b")))
		got, _ := s.store.Get(uowID)
		s.Equal(domain.TenantID("tenant-b"), got.TenantID)
	})
}
