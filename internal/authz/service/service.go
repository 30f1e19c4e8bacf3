// Package service enforces the resolve → validate → audit discipline
// around privileged procedures.
//
// A privileged procedure runs with rights that bypass row filtering, so it
// is the one place where tenant isolation depends on explicit code. The
// wrapper makes that discipline mechanical: every invocation re-resolves
// context for its own unit of work, validates the caller's tenant
// assertion, and audits the outcome.
package service

import (
	"context"
	"log/slog"
	"maps"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"tenantguard/internal/audit"
	"tenantguard/internal/authz"
	"tenantguard/internal/authz/metrics"
	"tenantguard/internal/authz/models"
	"tenantguard/internal/authz/resolver"
	ctxstore "tenantguard/internal/authz/store"
	"tenantguard/pkg/domain"
	dErrors "tenantguard/pkg/domain-errors"
	"tenantguard/pkg/requestcontext"
)

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks

// Recorder is the audit collaborator. Append must be fail-closed: a
// returned error means the record did not persist.
type Recorder interface {
	Append(ctx context.Context, record audit.Record) error
	Query(ctx context.Context, filter audit.Filter) ([]audit.Record, error)
}

// Service owns context resolution and privileged-procedure enforcement
// for one process.
type Service struct {
	resolver *resolver.Resolver
	contexts ctxstore.ContextStore
	recorder Recorder
	tx       StoreTx
	logger   *slog.Logger
	metrics  *metrics.Metrics
	tracer   trace.Tracer
}

type Option func(*Service)

func WithStoreTx(tx StoreTx) Option {
	return func(s *Service) { s.tx = tx }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func New(res *resolver.Resolver, contexts ctxstore.ContextStore, recorder Recorder, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{
		resolver: res,
		contexts: contexts,
		recorder: recorder,
		logger:   logger,
		tracer:   otel.Tracer("tenantguard/authz"),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.tx == nil {
		s.tx = newInMemoryStoreTx()
	}
	return s
}

// BeginUnitOfWork opens a unit of work on the context and returns the
// derived context plus a release function. The release discards the
// context-store entry, so a cancelled or completed unit of work leaves
// nothing behind for a later caller on the same connection.
func (s *Service) BeginUnitOfWork(ctx context.Context) (context.Context, func()) {
	uowID := uuid.New()
	return requestcontext.WithUnitOfWork(ctx, uowID), func() {
		s.contexts.Discard(uowID)
	}
}

// ResolveContext resolves the authoritative context for the current unit
// of work. See resolver.Resolver.
func (s *Service) ResolveContext(ctx context.Context) (models.AuthContext, error) {
	return s.resolver.ResolveContext(ctx)
}

// QueryAudit exposes the read-only audit interface. The caller's asserted
// tenant filter must already be validated against the resolved context.
func (s *Service) QueryAudit(ctx context.Context, filter audit.Filter) ([]audit.Record, error) {
	return s.recorder.Query(ctx, filter)
}

// ValidateAssertion checks a caller-supplied tenant against the resolved
// context, counting rejections.
func (s *Service) ValidateAssertion(resolved models.AuthContext, asserted domain.TenantID) error {
	if err := authz.Validate(resolved, asserted); err != nil {
		if s.metrics != nil {
			s.metrics.TenantMismatches.Inc()
		}
		return err
	}
	return nil
}

// PrivilegedRequest names the procedure and carries the caller's
// assertions into the wrapper.
type PrivilegedRequest struct {
	// Procedure is the audited name of the privileged procedure.
	Procedure string
	// ActorID is the caller-supplied actor, recorded in the audit trail.
	ActorID domain.ActorID
	// TenantID is the caller-supplied tenant assertion, validated against
	// the resolved context before the body runs.
	TenantID domain.TenantID
	// RoleHint fills the resolved role only when ambient and claims carry
	// none. It never overrides a resolved role.
	RoleHint domain.Role
	// Detail carries identifiers touched by the operation into the audit
	// record. Not full payloads.
	Detail map[string]string
}

// WithPrivilegedContext wraps a privileged procedure body with the
// resolve → validate → body → audit sequence.
//
// The body runs inside a store transaction together with the
// success-outcome audit append: if the append fails, the transaction rolls
// back (audit-or-abort). Mismatch and error outcomes are appended after
// the transaction has been abandoned, since a record inside it would roll
// back with it.
//
// Resolution and validation are idempotent; invoking the wrapper twice for
// the same unit of work re-derives the identical context. Audit writes are
// intentionally not deduplicated: repeated invocation is repeated action.
func WithPrivilegedContext[T any](ctx context.Context, s *Service, req PrivilegedRequest, body func(ctx context.Context, authCtx models.AuthContext) (T, error)) (T, error) {
	var zero T
	if req.Procedure == "" {
		return zero, dErrors.New(dErrors.CodeInvalidInput, "privileged procedure requires a name")
	}

	ctx, release := s.BeginUnitOfWork(ctx)
	defer release()

	ctx, span := s.tracer.Start(ctx, "authz.privileged",
		trace.WithAttributes(attribute.String("procedure", req.Procedure)),
	)
	defer span.End()

	resolved, err := s.resolver.ResolveContext(ctx)
	if err != nil {
		// Nothing resolved, nothing to audit yet: the caller never
		// established who is acting.
		span.RecordError(err)
		s.countOutcome("denied")
		return zero, err
	}
	if resolved.Role == "" && req.RoleHint != "" {
		resolved.Role = req.RoleHint
	}
	span.SetAttributes(
		attribute.String("tenant_id", resolved.TenantID.String()),
		attribute.String("context_source", string(resolved.Source)),
	)

	if err := authz.Validate(resolved, req.TenantID); err != nil {
		span.RecordError(err)
		if s.metrics != nil {
			s.metrics.TenantMismatches.Inc()
		}
		s.countOutcome(string(audit.OutcomeMismatch))
		return zero, s.auditMismatch(ctx, req, resolved, err)
	}

	var result T
	txErr := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		out, err := body(txCtx, resolved)
		if err != nil {
			return err
		}
		record := s.buildRecord(ctx, req, resolved, audit.OutcomeSuccess, nil)
		if err := s.recorder.Append(txCtx, record); err != nil {
			return &authz.AuditWriteFailedError{Procedure: req.Procedure, Cause: err}
		}
		result = out
		return nil
	})

	switch {
	case txErr == nil:
		s.countOutcome(string(audit.OutcomeSuccess))
		return result, nil

	case authz.IsAuditWriteFailed(txErr):
		span.RecordError(txErr)
		if s.metrics != nil {
			s.metrics.AuditWriteFailures.Inc()
		}
		s.countOutcome("audit_failed")
		return zero, txErr

	default:
		// Business-logic failure: the transaction rolled back, so the
		// error record is appended outside it. Best effort; an unaudited
		// failed (and therefore effect-free) invocation is logged, not
		// escalated.
		span.RecordError(txErr)
		record := s.buildRecord(ctx, req, resolved, audit.OutcomeError, txErr)
		if auditErr := s.recorder.Append(ctx, record); auditErr != nil {
			s.logger.ErrorContext(ctx, "audit append for failed procedure",
				"procedure", req.Procedure,
				"error", auditErr,
			)
		}
		s.countOutcome(string(audit.OutcomeError))
		return zero, txErr
	}
}

// auditMismatch appends the mandatory mismatch record. A mismatch is a
// security-relevant event: if even its audit cannot persist, the whole
// invocation fails as unauditable rather than returning the bare
// mismatch.
func (s *Service) auditMismatch(ctx context.Context, req PrivilegedRequest, resolved models.AuthContext, mismatch error) error {
	record := s.buildRecord(ctx, req, resolved, audit.OutcomeMismatch, nil)
	record.Detail["asserted_tenant_id"] = req.TenantID.String()
	if err := s.recorder.Append(ctx, record); err != nil {
		if s.metrics != nil {
			s.metrics.AuditWriteFailures.Inc()
		}
		return &authz.AuditWriteFailedError{Procedure: req.Procedure, Cause: err}
	}
	return mismatch
}

func (s *Service) buildRecord(ctx context.Context, req PrivilegedRequest, resolved models.AuthContext, outcome audit.Outcome, bizErr error) audit.Record {
	detail := map[string]string{
		"context_source": string(resolved.Source),
	}
	maps.Copy(detail, req.Detail)
	if ip := requestcontext.ClientIP(ctx); ip != "" {
		detail["client_ip"] = ip
	}
	if ua := requestcontext.UserAgent(ctx); ua != "" {
		detail["user_agent"] = ua
	}
	if bizErr != nil {
		detail["error"] = bizErr.Error()
	}

	actorID := resolved.ActorID
	if actorID.IsEmpty() {
		actorID = req.ActorID
	}

	return audit.Record{
		TenantID:  resolved.TenantID,
		ActorID:   actorID,
		Procedure: req.Procedure,
		Outcome:   outcome,
		Detail:    detail,
		Timestamp: requestcontext.Now(ctx),
	}
}

func (s *Service) countOutcome(outcome string) {
	if s.metrics != nil {
		s.metrics.IncPrivilegedCall(outcome)
	}
}
