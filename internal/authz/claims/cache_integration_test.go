//go:build integration

package claims_test

import (
	"context"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"tenantguard/internal/authz/claims"
	"tenantguard/internal/authz/models"
	"tenantguard/pkg/domain"
	"tenantguard/pkg/requestcontext"
	"tenantguard/pkg/testutil/containers"
)

type ClaimCacheSuite struct {
	suite.Suite
	redis  *containers.RedisContainer
	logger *slog.Logger
}

func TestClaimCacheSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(ClaimCacheSuite))
}

func (s *ClaimCacheSuite) SetupSuite() {
	s.redis = containers.NewRedisContainer(s.T())
	s.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
}

func (s *ClaimCacheSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(context.Background()))
}

func (s *ClaimCacheSuite) claimSet() models.ClaimSet {
	return models.ClaimSet{
		TenantID: domain.TenantID("tenant-a"),
		ActorID:  domain.ActorID("actor-1"),
		Role:     domain.RoleOperator,
		IssuedAt: time.Now().Truncate(time.Second),
	}
}

func (s *ClaimCacheSuite) TestReadThrough() {
	var innerCalls atomic.Int32
	set := s.claimSet()
	inner := claims.SourceFunc(func(context.Context) (models.ClaimSet, error) {
		innerCalls.Add(1)
		return set, nil
	})
	cache := claims.NewCache(inner, s.redis.Client, time.Minute, s.logger)

	ctx := requestcontext.WithBearerToken(context.Background(), "token-abc")

	first, err := cache.Claims(ctx)
	s.Require().NoError(err)
	s.Equal(set.TenantID, first.TenantID)
	s.Equal(int32(1), innerCalls.Load())

	second, err := cache.Claims(ctx)
	s.Require().NoError(err)
	s.Equal(set.TenantID, second.TenantID)
	s.Equal(set.ActorID, second.ActorID)
	s.Equal(set.Role, second.Role)
	s.Equal(int32(1), innerCalls.Load(), "second read must be served from the cache")
}

func (s *ClaimCacheSuite) TestDistinctTokensDistinctEntries() {
	var innerCalls atomic.Int32
	inner := claims.SourceFunc(func(context.Context) (models.ClaimSet, error) {
		innerCalls.Add(1)
		return s.claimSet(), nil
	})
	cache := claims.NewCache(inner, s.redis.Client, time.Minute, s.logger)

	_, err := cache.Claims(requestcontext.WithBearerToken(context.Background(), "token-a"))
	s.Require().NoError(err)
	_, err = cache.Claims(requestcontext.WithBearerToken(context.Background(), "token-b"))
	s.Require().NoError(err)

	s.Equal(int32(2), innerCalls.Load(), "different tokens must never share a cache entry")
}

func (s *ClaimCacheSuite) TestTTLExpiry() {
	var innerCalls atomic.Int32
	inner := claims.SourceFunc(func(context.Context) (models.ClaimSet, error) {
		innerCalls.Add(1)
		return s.claimSet(), nil
	})
	cache := claims.NewCache(inner, s.redis.Client, time.Second, s.logger)

	ctx := requestcontext.WithBearerToken(context.Background(), "token-abc")
	_, err := cache.Claims(ctx)
	s.Require().NoError(err)

	time.Sleep(1500 * time.Millisecond)

	_, err = cache.Claims(ctx)
	s.Require().NoError(err)
	s.Equal(int32(2), innerCalls.Load(), "expired entry must fall through to the inner source")
}

func (s *ClaimCacheSuite) TestNoTokenBypassesCache() {
	var innerCalls atomic.Int32
	inner := claims.SourceFunc(func(context.Context) (models.ClaimSet, error) {
		innerCalls.Add(1)
		return s.claimSet(), nil
	})
	cache := claims.NewCache(inner, s.redis.Client, time.Minute, s.logger)

	_, err := cache.Claims(context.Background())
	s.Require().NoError(err)
	_, err = cache.Claims(context.Background())
	s.Require().NoError(err)

	s.Equal(int32(2), innerCalls.Load())
}
