// Package domain defines the primitive identifier and role types shared
// across the module.
//
// Tenant and actor identifiers are opaque: the upstream identity system
// assigns them and this module never interprets their contents beyond
// emptiness. They are distinct types so a tenant ID can never be passed
// where an actor ID is expected.
package domain

import (
	"strings"

	dErrors "tenantguard/pkg/domain-errors"
)

// TenantID identifies an isolated customer/organization scope.
type TenantID string

// ActorID identifies the acting principal (user or service account).
type ActorID string

// IsEmpty reports whether the tenant ID carries no value. An
// all-whitespace identifier is treated as empty at trust boundaries.
func (t TenantID) IsEmpty() bool {
	return strings.TrimSpace(string(t)) == ""
}

func (t TenantID) String() string { return string(t) }

// IsEmpty reports whether the actor ID carries no value.
func (a ActorID) IsEmpty() bool {
	return strings.TrimSpace(string(a)) == ""
}

func (a ActorID) String() string { return string(a) }

// ParseTenantID validates an externally supplied tenant identifier.
// Identifiers are opaque but must be non-empty and free of control
// characters; parsing happens once at the boundary so internal code can
// trust the type.
func ParseTenantID(s string) (TenantID, error) {
	if err := validateOpaqueID(s, "tenant id"); err != nil {
		return "", err
	}
	return TenantID(s), nil
}

// ParseActorID validates an externally supplied actor identifier.
func ParseActorID(s string) (ActorID, error) {
	if err := validateOpaqueID(s, "actor id"); err != nil {
		return "", err
	}
	return ActorID(s), nil
}

const maxIDLength = 256

func validateOpaqueID(s, what string) error {
	if strings.TrimSpace(s) == "" {
		return dErrors.New(dErrors.CodeInvalidInput, what+" cannot be empty")
	}
	if len(s) > maxIDLength {
		return dErrors.New(dErrors.CodeInvalidInput, what+" exceeds maximum length")
	}
	for _, r := range s {
		if r < 0x20 || r == 0x7f {
			return dErrors.New(dErrors.CodeInvalidInput, what+" contains control characters")
		}
	}
	return nil
}
