package audit

import "context"

// Store persists audit records. Append-only by contract: implementations
// expose no update or delete path, and the backing table carries
// permanently denying update/delete predicates regardless of tenant or
// role.
type Store interface {
	// Append persists one record. Implementations must honor a SQL
	// transaction carried in ctx so the append commits or rolls back with
	// the mutation it audits.
	Append(ctx context.Context, record Record) error
	// Query returns records matching the filter, newest first.
	Query(ctx context.Context, filter Filter) ([]Record, error)
}
