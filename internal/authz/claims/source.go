// Package claims supplies the signed claim set for the authenticated
// caller.
//
// A claim source is read-only to the rest of the module and safe to share:
// claim sets are immutable per caller session. "No claims available" is a
// distinct condition (sentinel.ErrNoClaims) from a claim set whose fields
// happen to be empty.
package claims

import (
	"context"

	"tenantguard/internal/authz/models"
)

// Source returns the claim set for the current caller. Implementations
// must return sentinel.ErrNoClaims (possibly wrapped) when the caller has
// no claims at all.
type Source interface {
	Claims(ctx context.Context) (models.ClaimSet, error)
}

// SourceFunc adapts a function to the Source interface.
type SourceFunc func(ctx context.Context) (models.ClaimSet, error)

func (f SourceFunc) Claims(ctx context.Context) (models.ClaimSet, error) {
	return f(ctx)
}

// Static always returns the same claim set. Intended for tests and local
// development wiring.
type Static struct {
	Set models.ClaimSet
}

func (s Static) Claims(context.Context) (models.ClaimSet, error) {
	return s.Set, nil
}
