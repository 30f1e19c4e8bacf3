// Package resolver computes the single authoritative AuthContext for a
// unit of work.
//
// Precedence is ambient-first, claim-fallback: an ambient assertion is a
// fresh statement about this unit of work, while claims may be minutes
// old. A disagreement between the two is not silently resolved here; it
// surfaces only when a caller-supplied assertion is validated against the
// resolved value.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"tenantguard/internal/authz"
	"tenantguard/internal/authz/claims"
	"tenantguard/internal/authz/metrics"
	"tenantguard/internal/authz/models"
	ctxstore "tenantguard/internal/authz/store"
	"tenantguard/pkg/platform/sentinel"
	"tenantguard/pkg/requestcontext"
)

// Resolve computes an AuthContext from an optional ambient assertion and
// the caller's claim set. Pure function: no side effects, no clock.
//
// An ambient context whose tenant ID is empty is treated identically to an
// absent ambient context and falls through to claims. When neither input
// yields a non-empty tenant ID the resolution fails closed.
func Resolve(ambient *models.AmbientContext, set models.ClaimSet) (models.AuthContext, error) {
	if ambient.IsSet() {
		return models.AuthContext{
			TenantID: ambient.TenantID,
			ActorID:  ambient.ActorID,
			Role:     ambient.Role,
			Source:   models.SourceAmbient,
		}, nil
	}
	if set.TenantID.IsEmpty() {
		return models.AuthContext{}, authz.ErrMissingContext
	}
	return models.AuthContext{
		TenantID: set.TenantID,
		ActorID:  set.ActorID,
		Role:     set.Role,
		Source:   models.SourceClaim,
	}, nil
}

// Resolver binds Resolve to a claim source and the unit-of-work context
// store.
type Resolver struct {
	source    claims.Source
	contexts  ctxstore.ContextStore
	freshness time.Duration
	logger    *slog.Logger
	metrics   *metrics.Metrics
}

type Option func(*Resolver)

func WithFreshnessThreshold(d time.Duration) Option {
	return func(r *Resolver) { r.freshness = d }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Resolver) { r.metrics = m }
}

// DefaultFreshnessThreshold bounds how old claim-derived context may be
// before it is flagged as stale. Matches the claim-sync staleness window.
const DefaultFreshnessThreshold = 5 * time.Minute

func New(source claims.Source, contexts ctxstore.ContextStore, logger *slog.Logger, opts ...Option) *Resolver {
	r := &Resolver{
		source:    source,
		contexts:  contexts,
		freshness: DefaultFreshnessThreshold,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ResolveContext establishes the AuthContext for the current unit of work
// and records it in the context store. Repeated calls within the same unit
// of work re-derive the identical value.
//
// The error surface is deliberately narrow: any state in which no usable
// tenant signal exists (no claims, expired claims, empty tenant) collapses
// into ErrMissingContext, so the caller cannot distinguish the cases and
// leak them onward.
func (r *Resolver) ResolveContext(ctx context.Context) (models.AuthContext, error) {
	ambient := authz.AmbientFrom(ctx)

	var set models.ClaimSet
	if !ambient.IsSet() {
		var err error
		set, err = r.source.Claims(ctx)
		if err != nil {
			if errors.Is(err, sentinel.ErrNoClaims) || errors.Is(err, sentinel.ErrExpired) {
				r.countMissing()
				return models.AuthContext{}, authz.ErrMissingContext
			}
			return models.AuthContext{}, fmt.Errorf("claim source: %w", err)
		}
	}

	resolved, err := Resolve(ambient, set)
	if err != nil {
		r.countMissing()
		return models.AuthContext{}, err
	}

	if resolved.Source == models.SourceClaim {
		r.checkFreshness(ctx, set)
	}

	if uowID := requestcontext.UnitOfWorkID(ctx); uowID != uuid.Nil {
		if err := r.contexts.Put(uowID, resolved); err != nil {
			return models.AuthContext{}, fmt.Errorf("record context for unit of work %s: %w", uowID, err)
		}
	}

	if r.metrics != nil {
		r.metrics.IncResolution(string(resolved.Source))
	}
	return resolved, nil
}

// checkFreshness logs and counts stale claim-derived context. Staleness is
// bounded by the claim-sync contract and non-fatal; requiring
// re-authentication for sensitive operations is the business layer's call.
func (r *Resolver) checkFreshness(ctx context.Context, set models.ClaimSet) {
	age := set.Age(requestcontext.Now(ctx))
	if age <= r.freshness {
		return
	}
	stale := authz.StaleClaim{ActorID: set.ActorID, Age: age, Threshold: r.freshness}
	r.logger.WarnContext(ctx, "stale claim-derived context",
		"actor_id", stale.ActorID.String(),
		"age", stale.Age.String(),
		"threshold", stale.Threshold.String(),
	)
	if r.metrics != nil {
		r.metrics.StaleClaims.Inc()
	}
}

func (r *Resolver) countMissing() {
	if r.metrics != nil {
		r.metrics.MissingContext.Inc()
	}
}
