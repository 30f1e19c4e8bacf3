// Package models defines the authorization-context data model.
//
// Three shapes matter:
//
//   - ClaimSet: what the signed bearer claims say about the caller. Produced
//     once per caller session by the claim source; immutable; may be stale
//     relative to the system of record.
//   - AmbientContext: an explicitly asserted (tenant, actor, role) triple,
//     scoped to exactly one unit of work. Absent by default.
//   - AuthContext: the single resolved triple for a unit of work, tagged
//     with which input produced it.
package models

import (
	"time"

	"tenantguard/pkg/domain"
)

// Source records which input path produced a resolved AuthContext. Tests
// and audit logs always state which path fired rather than inferring it
// from which value happens to be non-empty.
type Source string

const (
	// SourceAmbient marks a context resolved from an explicitly asserted
	// ambient triple.
	SourceAmbient Source = "ambient"
	// SourceClaim marks a context derived from the caller's claim set.
	SourceClaim Source = "claim"
)

// ClaimSet carries the identity claims issued for the authenticated caller.
// Immutable once issued. Staleness relative to the system of record is a
// recognized, bounded condition, not a defect.
type ClaimSet struct {
	TenantID  domain.TenantID
	ActorID   domain.ActorID
	Role      domain.Role
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// IsZero reports whether the claim set carries no identity at all.
func (c ClaimSet) IsZero() bool {
	return c.TenantID.IsEmpty() && c.ActorID.IsEmpty() && c.Role == ""
}

// Age returns how long ago the claim set was issued, relative to now.
func (c ClaimSet) Age(now time.Time) time.Duration {
	if c.IssuedAt.IsZero() {
		return 0
	}
	return now.Sub(c.IssuedAt)
}

// AmbientContext is the transaction-local, explicitly asserted identity
// triple. Its lifetime is exactly one unit of work: it never persists past
// transaction end and is never inherited by a later unit of work on a
// reused connection.
type AmbientContext struct {
	TenantID domain.TenantID
	ActorID  domain.ActorID
	Role     domain.Role
}

// IsSet reports whether the ambient context carries a usable tenant signal.
// An empty-string tenant ID is treated identically to an absent ambient
// context: empty string is not a valid tenant signal.
func (a *AmbientContext) IsSet() bool {
	return a != nil && !a.TenantID.IsEmpty()
}

// AuthContext is the single authoritative context for one unit of work.
// Created once by the resolver, read-only afterward, discarded with the
// unit of work.
type AuthContext struct {
	TenantID domain.TenantID
	ActorID  domain.ActorID
	Role     domain.Role
	Source   Source
}
