package authz

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tenantguard/internal/authz/models"
	"tenantguard/pkg/domain"
)

func TestValidate(t *testing.T) {
	resolved := models.AuthContext{
		TenantID: "tenant-a",
		ActorID:  "actor-1",
		Source:   models.SourceClaim,
	}

	t.Run("matching assertion passes", func(t *testing.T) {
		require.NoError(t, Validate(resolved, domain.TenantID("tenant-a")))
	})

	t.Run("mismatched assertion is rejected", func(t *testing.T) {
		err := Validate(resolved, domain.TenantID("tenant-b"))
		require.Error(t, err)

		var tm *TenantMismatchError
		require.ErrorAs(t, err, &tm)
		assert.Equal(t, domain.TenantID("tenant-b"), tm.Asserted)
		assert.Equal(t, domain.TenantID("tenant-a"), tm.Resolved)
	})

	t.Run("empty assertion against a resolved tenant is a mismatch", func(t *testing.T) {
		err := Validate(resolved, domain.TenantID(""))
		assert.True(t, IsTenantMismatch(err))
	})
}

func TestErrorPredicates(t *testing.T) {
	t.Run("IsTenantMismatch sees through wrapping", func(t *testing.T) {
		inner := &TenantMismatchError{Asserted: "a", Resolved: "b"}
		wrapped := fmt.Errorf("reject request: %w", inner)
		assert.True(t, IsTenantMismatch(wrapped))
		assert.False(t, IsTenantMismatch(errors.New("unrelated")))
	})

	t.Run("IsAuditWriteFailed sees through wrapping", func(t *testing.T) {
		inner := &AuditWriteFailedError{Procedure: "suspend_actor", Cause: errors.New("disk full")}
		wrapped := fmt.Errorf("abort: %w", inner)
		assert.True(t, IsAuditWriteFailed(wrapped))
		assert.False(t, IsAuditWriteFailed(errors.New("unrelated")))
	})

	t.Run("AuditWriteFailedError exposes its cause", func(t *testing.T) {
		cause := errors.New("disk full")
		err := &AuditWriteFailedError{Procedure: "suspend_actor", Cause: cause}
		assert.ErrorIs(t, err, cause)
		assert.Contains(t, err.Error(), "suspend_actor")
	})
}
