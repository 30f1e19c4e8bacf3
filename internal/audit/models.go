// Package audit records privileged-procedure invocations and context
// mismatches in an append-only log.
package audit

import (
	"time"

	"github.com/google/uuid"

	"tenantguard/pkg/domain"
)

// Outcome classifies how a privileged-procedure invocation ended.
type Outcome string

const (
	// OutcomeSuccess: the procedure body completed and its mutation
	// committed together with this record.
	OutcomeSuccess Outcome = "success"
	// OutcomeMismatch: the caller-asserted tenant differed from the
	// resolved context; the procedure body never ran.
	OutcomeMismatch Outcome = "mismatch"
	// OutcomeError: the procedure body returned an error and its
	// transaction rolled back.
	OutcomeError Outcome = "error"
)

// Record is one immutable entry in the audit log. Records are created for
// every privileged-procedure invocation and every context mismatch, never
// mutated, never deleted. Detail carries identifiers touched by the
// operation, not full payloads.
type Record struct {
	ID        uuid.UUID
	TenantID  domain.TenantID
	ActorID   domain.ActorID
	Procedure string
	Outcome   Outcome
	Detail    map[string]string
	Timestamp time.Time
}

// Filter narrows an audit query. Zero fields match everything; From/To
// bound the timestamp half-open: [From, To).
type Filter struct {
	TenantID domain.TenantID
	ActorID  domain.ActorID
	From     time.Time
	To       time.Time
	Limit    int
}

// Matches reports whether the record satisfies the filter. Shared by the
// in-memory store and by tests asserting against the Postgres store.
func (f Filter) Matches(r Record) bool {
	if !f.TenantID.IsEmpty() && r.TenantID != f.TenantID {
		return false
	}
	if !f.ActorID.IsEmpty() && r.ActorID != f.ActorID {
		return false
	}
	if !f.From.IsZero() && r.Timestamp.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && !r.Timestamp.Before(f.To) {
		return false
	}
	return true
}
