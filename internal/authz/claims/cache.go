package claims

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"tenantguard/internal/authz/models"
	"tenantguard/pkg/domain"
	"tenantguard/pkg/requestcontext"
)

// Cache is a read-through claim cache backed by Redis.
//
// The external claim-sync process keeps claim sets eventually consistent
// with the system of record within a bounded staleness window; the cache
// TTL must not exceed that window, otherwise this module would serve
// claims staler than the contract allows. Cache failures degrade to the
// inner source: availability of Redis never gates authorization.
type Cache struct {
	inner  Source
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

func NewCache(inner Source, client *redis.Client, ttl time.Duration, logger *slog.Logger) *Cache {
	return &Cache{inner: inner, client: client, ttl: ttl, logger: logger}
}

// cachedClaimSet is the Redis payload. Times travel as RFC3339 via JSON.
type cachedClaimSet struct {
	TenantID  string    `json:"tenant_id"`
	ActorID   string    `json:"actor_id"`
	Role      string    `json:"role"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

func (c *Cache) Claims(ctx context.Context) (models.ClaimSet, error) {
	token := requestcontext.BearerToken(ctx)
	if token == "" {
		// Nothing to key the cache by; let the inner source decide what
		// "no token" means.
		return c.inner.Claims(ctx)
	}

	key := cacheKey(token)
	payload, err := c.client.Get(ctx, key).Bytes()
	if err == nil {
		var cached cachedClaimSet
		if err := json.Unmarshal(payload, &cached); err == nil {
			return models.ClaimSet{
				TenantID:  domain.TenantID(cached.TenantID),
				ActorID:   domain.ActorID(cached.ActorID),
				Role:      domain.Role(cached.Role),
				IssuedAt:  cached.IssuedAt,
				ExpiresAt: cached.ExpiresAt,
			}, nil
		}
		c.logger.WarnContext(ctx, "discarding undecodable cached claim set", "key", key)
	} else if !errors.Is(err, redis.Nil) {
		c.logger.WarnContext(ctx, "claim cache read failed, falling through", "error", err)
	}

	set, err := c.inner.Claims(ctx)
	if err != nil {
		return models.ClaimSet{}, err
	}

	raw, err := json.Marshal(cachedClaimSet{
		TenantID:  set.TenantID.String(),
		ActorID:   set.ActorID.String(),
		Role:      string(set.Role),
		IssuedAt:  set.IssuedAt,
		ExpiresAt: set.ExpiresAt,
	})
	if err != nil {
		return set, nil
	}
	if err := c.client.Set(ctx, key, raw, c.ttl).Err(); err != nil {
		c.logger.WarnContext(ctx, "claim cache write failed", "error", err)
	}
	return set, nil
}

func cacheKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return fmt.Sprintf("tenantguard:claims:%s", hex.EncodeToString(sum[:]))
}
