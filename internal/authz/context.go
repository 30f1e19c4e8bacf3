package authz

import (
	"context"

	"tenantguard/internal/authz/models"
)

type ambientKey struct{}

// ContextKeyAmbient is exported for tests that need context.WithValue.
var ContextKeyAmbient = ambientKey{}

// WithAmbient asserts an ambient context for the current unit of work. The
// assertion travels with the context value chain and therefore ends with
// it: a later unit of work on the same connection starts from a fresh
// context and sees nothing. This is deliberately not a package-level
// variable.
func WithAmbient(ctx context.Context, ambient models.AmbientContext) context.Context {
	return context.WithValue(ctx, ContextKeyAmbient, ambient)
}

// AmbientFrom retrieves the ambient context asserted for this unit of work,
// or nil when the caller's runtime never asserted one.
func AmbientFrom(ctx context.Context) *models.AmbientContext {
	if a, ok := ctx.Value(ContextKeyAmbient).(models.AmbientContext); ok {
		return &a
	}
	return nil
}
