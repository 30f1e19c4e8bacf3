package authz

import (
	"tenantguard/internal/authz/models"
	"tenantguard/pkg/domain"
)

// Validate compares a caller-supplied tenant assertion against the
// resolved context. Every caller-supplied tenant identifier that crosses
// into a privileged procedure or a row-filtered query goes through here
// first; an unvalidated assertion is never trusted as a substitute for the
// resolved context.
func Validate(resolved models.AuthContext, asserted domain.TenantID) error {
	if asserted == resolved.TenantID {
		return nil
	}
	return &TenantMismatchError{Asserted: asserted, Resolved: resolved.TenantID}
}
