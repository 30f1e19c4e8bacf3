package audit

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"tenantguard/pkg/requestcontext"
)

// Recorder appends audit records with fail-closed semantics: the caller
// blocks until the append succeeds, and a failed append is an error the
// caller must treat as fatal for the operation being audited.
//
// After a successful append the record is offered to the outbox channel
// for downstream publishing. That leg is at-least-once and never blocks or
// fails the request path; durability rests on the store append.
type Recorder struct {
	store  Store
	logger *slog.Logger
	outbox chan<- Record
}

type RecorderOption func(*Recorder)

// WithOutbox attaches a channel the recorder fans appended records into.
func WithOutbox(outbox chan<- Record) RecorderOption {
	return func(r *Recorder) { r.outbox = outbox }
}

func NewRecorder(store Store, logger *slog.Logger, opts ...RecorderOption) *Recorder {
	r := &Recorder{store: store, logger: logger}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Append validates, stamps, and persists one audit record.
func (r *Recorder) Append(ctx context.Context, record Record) error {
	if record.Procedure == "" {
		return fmt.Errorf("audit record requires a procedure name")
	}
	if record.Outcome == "" {
		return fmt.Errorf("audit record requires an outcome")
	}
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	if record.Timestamp.IsZero() {
		record.Timestamp = requestcontext.Now(ctx)
	}
	if requestID := requestcontext.RequestID(ctx); requestID != "" {
		if record.Detail == nil {
			record.Detail = map[string]string{}
		}
		if _, ok := record.Detail["request_id"]; !ok {
			record.Detail["request_id"] = requestID
		}
	}

	if err := r.store.Append(ctx, record); err != nil {
		r.logger.ErrorContext(ctx, "CRITICAL: audit append failed",
			"procedure", record.Procedure,
			"outcome", string(record.Outcome),
			"error", err,
		)
		return fmt.Errorf("audit append: %w", err)
	}

	if r.outbox != nil {
		select {
		case r.outbox <- record:
		default:
			r.logger.WarnContext(ctx, "audit outbox full, dropping fan-out copy",
				"procedure", record.Procedure,
				"record_id", record.ID.String(),
			)
		}
	}
	return nil
}

// Query exposes the read-only compliance interface.
func (r *Recorder) Query(ctx context.Context, filter Filter) ([]Record, error) {
	return r.store.Query(ctx, filter)
}
