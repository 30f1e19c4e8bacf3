// Package authz defines the authorization-context error taxonomy and the
// context plumbing for ambient assertions.
//
// Resolution and validation errors propagate immediately and abort the unit
// of work; they are never caught and ignored inside this module. The
// transport layer collapses them into a single opaque authorization denial
// so callers cannot distinguish "no context" from "wrong tenant".
package authz

import (
	"errors"
	"fmt"
	"time"

	"tenantguard/pkg/domain"
)

// ErrMissingContext is returned when neither the ambient context nor the
// claim set yields a non-empty tenant ID. Resolution fails closed: there is
// no "null tenant" scope to default into.
var ErrMissingContext = errors.New("authorization context missing")

// TenantMismatchError is returned when a caller-supplied tenant assertion
// differs from the resolved context. Always audited; never retried.
type TenantMismatchError struct {
	Asserted domain.TenantID
	Resolved domain.TenantID
}

func (e *TenantMismatchError) Error() string {
	return fmt.Sprintf("tenant mismatch: asserted %q, resolved %q", e.Asserted, e.Resolved)
}

// IsTenantMismatch reports whether err is (or wraps) a tenant mismatch.
func IsTenantMismatch(err error) bool {
	var tm *TenantMismatchError
	return errors.As(err, &tm)
}

// AuditWriteFailedError is returned when the append-only audit log rejected
// a write. Fatal for the enclosing privileged mutation: an unauditable
// privileged mutation is worse than a failed request, so the transaction
// rolls back (audit-or-abort).
type AuditWriteFailedError struct {
	Procedure string
	Cause     error
}

func (e *AuditWriteFailedError) Error() string {
	return fmt.Sprintf("audit write failed for %s: %v", e.Procedure, e.Cause)
}

func (e *AuditWriteFailedError) Unwrap() error { return e.Cause }

// IsAuditWriteFailed reports whether err is (or wraps) an audit write
// failure.
func IsAuditWriteFailed(err error) bool {
	var aw *AuditWriteFailedError
	return errors.As(err, &aw)
}

// StaleClaim describes a claim set older than the configured freshness
// threshold. Non-fatal: the resolver logs it and counts it, and the
// business layer may require re-authentication for sensitive operations.
// That policy lives outside this module.
type StaleClaim struct {
	ActorID   domain.ActorID
	Age       time.Duration
	Threshold time.Duration
}

func (s StaleClaim) String() string {
	return fmt.Sprintf("claims for %s are %s old (threshold %s)", s.ActorID, s.Age, s.Threshold)
}
