package resolver

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"tenantguard/internal/authz"
	"tenantguard/internal/authz/claims"
	"tenantguard/internal/authz/models"
	ctxstore "tenantguard/internal/authz/store"
	"tenantguard/pkg/domain"
	"tenantguard/pkg/platform/sentinel"
	"tenantguard/pkg/requestcontext"
)

func TestResolve(t *testing.T) {
	suite.Run(t, new(ResolveSuite))
}

type ResolveSuite struct {
	suite.Suite
}

func (s *ResolveSuite) claimSet() models.ClaimSet {
	return models.ClaimSet{
		TenantID: domain.TenantID("tenant-claims"),
		ActorID:  domain.ActorID("actor-claims"),
		Role:     domain.RoleOperator,
	}
}

// TestFailClosed verifies that resolution with no usable input never
// produces a context.
func (s *ResolveSuite) TestFailClosed() {
	s.Run("nil ambient and zero claims", func() {
		_, err := Resolve(nil, models.ClaimSet{})
		s.Require().ErrorIs(err, authz.ErrMissingContext)
	})

	s.Run("claims without tenant id", func() {
		set := s.claimSet()
		set.TenantID = ""
		_, err := Resolve(nil, set)
		s.Require().ErrorIs(err, authz.ErrMissingContext)
	})

	s.Run("empty-string ambient tenant is treated as absent", func() {
		ambient := &models.AmbientContext{TenantID: "", ActorID: "actor-a"}
		_, err := Resolve(ambient, models.ClaimSet{})
		s.Require().ErrorIs(err, authz.ErrMissingContext)
	})
}

// TestPrecedence verifies ambient-first, claim-fallback ordering.
func (s *ResolveSuite) TestPrecedence() {
	s.Run("ambient wins over claims", func() {
		ambient := &models.AmbientContext{
			TenantID: "tenant-ambient",
			ActorID:  "actor-ambient",
			Role:     domain.RoleAdmin,
		}
		resolved, err := Resolve(ambient, s.claimSet())
		s.Require().NoError(err)
		s.Equal(domain.TenantID("tenant-ambient"), resolved.TenantID)
		s.Equal(domain.ActorID("actor-ambient"), resolved.ActorID)
		s.Equal(models.SourceAmbient, resolved.Source)
	})

	s.Run("claims fill in when ambient absent", func() {
		resolved, err := Resolve(nil, s.claimSet())
		s.Require().NoError(err)
		s.Equal(domain.TenantID("tenant-claims"), resolved.TenantID)
		s.Equal(domain.ActorID("actor-claims"), resolved.ActorID)
		s.Equal(models.SourceClaim, resolved.Source)
	})

	s.Run("empty-string ambient tenant falls through to claims", func() {
		ambient := &models.AmbientContext{TenantID: ""}
		resolved, err := Resolve(ambient, s.claimSet())
		s.Require().NoError(err)
		s.Equal(domain.TenantID("tenant-claims"), resolved.TenantID)
		s.Equal(models.SourceClaim, resolved.Source)
	})
}

type ResolverSuite struct {
	suite.Suite
	contexts *ctxstore.InMemory
	logger   *slog.Logger
	now      time.Time
}

func TestResolverSuite(t *testing.T) {
	suite.Run(t, new(ResolverSuite))
}

func (s *ResolverSuite) SetupTest() {
	s.contexts = ctxstore.NewInMemory()
	s.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	s.now = time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
}

func (s *ResolverSuite) SetupSubTest() {
	s.SetupTest()
}

func (s *ResolverSuite) freshClaims() models.ClaimSet {
	return models.ClaimSet{
		TenantID: domain.TenantID("tenant-a"),
		ActorID:  domain.ActorID("actor-1"),
		Role:     domain.RoleManager,
		IssuedAt: s.now.Add(-time.Minute),
	}
}

func (s *ResolverSuite) resolver(source claims.Source, opts ...Option) *Resolver {
	return New(source, s.contexts, s.logger, opts...)
}

func (s *ResolverSuite) ctx() context.Context {
	return requestcontext.WithTime(context.Background(), s.now)
}

func (s *ResolverSuite) TestResolveContext() {
	s.Run("resolves from claims when no ambient asserted", func() {
		r := s.resolver(claims.Static{Set: s.freshClaims()})

		resolved, err := r.ResolveContext(s.ctx())
		s.Require().NoError(err)
		s.Equal(domain.TenantID("tenant-a"), resolved.TenantID)
		s.Equal(models.SourceClaim, resolved.Source)
	})

	s.Run("ambient assertion skips the claim source entirely", func() {
		source := claims.SourceFunc(func(context.Context) (models.ClaimSet, error) {
			s.Fail("claim source must not be consulted when ambient is set")
			return models.ClaimSet{}, nil
		})
		r := s.resolver(source)

		ctx := authz.WithAmbient(s.ctx(), models.AmbientContext{
			TenantID: "tenant-b",
			ActorID:  "actor-2",
			Role:     domain.RoleAdmin,
		})
		resolved, err := r.ResolveContext(ctx)
		s.Require().NoError(err)
		s.Equal(domain.TenantID("tenant-b"), resolved.TenantID)
		s.Equal(models.SourceAmbient, resolved.Source)
	})

	s.Run("no claims collapses into ErrMissingContext", func() {
		source := claims.SourceFunc(func(context.Context) (models.ClaimSet, error) {
			return models.ClaimSet{}, sentinel.ErrNoClaims
		})
		r := s.resolver(source)

		_, err := r.ResolveContext(s.ctx())
		s.Require().ErrorIs(err, authz.ErrMissingContext)
	})

	s.Run("expired claims collapse into ErrMissingContext", func() {
		source := claims.SourceFunc(func(context.Context) (models.ClaimSet, error) {
			return models.ClaimSet{}, sentinel.ErrExpired
		})
		r := s.resolver(source)

		_, err := r.ResolveContext(s.ctx())
		s.Require().ErrorIs(err, authz.ErrMissingContext)
	})

	s.Run("claim source infrastructure errors propagate as themselves", func() {
		boom := errors.New("identity provider unreachable")
		source := claims.SourceFunc(func(context.Context) (models.ClaimSet, error) {
			return models.ClaimSet{}, boom
		})
		r := s.resolver(source)

		_, err := r.ResolveContext(s.ctx())
		s.Require().ErrorIs(err, boom)
		s.NotErrorIs(err, authz.ErrMissingContext)
	})

	s.Run("empty claim set fails closed", func() {
		r := s.resolver(claims.Static{})

		_, err := r.ResolveContext(s.ctx())
		s.Require().ErrorIs(err, authz.ErrMissingContext)
	})
}

func (s *ResolverSuite) TestUnitOfWorkRecording() {
	s.Run("records resolved context under the unit-of-work id", func() {
		r := s.resolver(claims.Static{Set: s.freshClaims()})
		uowID := uuid.New()
		ctx := requestcontext.WithUnitOfWork(s.ctx(), uowID)

		resolved, err := r.ResolveContext(ctx)
		s.Require().NoError(err)

		stored, ok := s.contexts.Get(uowID)
		s.Require().True(ok)
		s.Equal(resolved, stored)
	})

	s.Run("repeated resolution within one unit of work is idempotent", func() {
		r := s.resolver(claims.Static{Set: s.freshClaims()})
		ctx := requestcontext.WithUnitOfWork(s.ctx(), uuid.New())

		first, err := r.ResolveContext(ctx)
		s.Require().NoError(err)
		second, err := r.ResolveContext(ctx)
		s.Require().NoError(err)
		s.Equal(first, second)
	})

	s.Run("separate units of work never share entries", func() {
		r := s.resolver(claims.Static{Set: s.freshClaims()})
		uowA, uowB := uuid.New(), uuid.New()

		_, err := r.ResolveContext(requestcontext.WithUnitOfWork(s.ctx(), uowA))
		s.Require().NoError(err)

		_, ok := s.contexts.Get(uowB)
		s.False(ok)

		ctxB := authz.WithAmbient(requestcontext.WithUnitOfWork(s.ctx(), uowB), models.AmbientContext{
			TenantID: "tenant-other",
		})
		_, err = r.ResolveContext(ctxB)
		s.Require().NoError(err)

		storedA, _ := s.contexts.Get(uowA)
		storedB, _ := s.contexts.Get(uowB)
		s.NotEqual(storedA.TenantID, storedB.TenantID)
	})

	s.Run("no unit of work on context skips the store", func() {
		r := s.resolver(claims.Static{Set: s.freshClaims()})

		_, err := r.ResolveContext(s.ctx())
		s.Require().NoError(err)
		s.Equal(0, s.contexts.Len())
	})
}

func (s *ResolverSuite) TestFreshness() {
	s.Run("stale claims still resolve", func() {
		set := s.freshClaims()
		set.IssuedAt = s.now.Add(-time.Hour)
		r := s.resolver(claims.Static{Set: set}, WithFreshnessThreshold(5*time.Minute))

		resolved, err := r.ResolveContext(s.ctx())
		s.Require().NoError(err)
		s.Equal(domain.TenantID("tenant-a"), resolved.TenantID)
	})

	s.Run("ambient context is never checked for freshness", func() {
		r := s.resolver(claims.Static{}, WithFreshnessThreshold(time.Nanosecond))
		ctx := authz.WithAmbient(s.ctx(), models.AmbientContext{TenantID: "tenant-b"})

		_, err := r.ResolveContext(ctx)
		s.Require().NoError(err)
	})
}
