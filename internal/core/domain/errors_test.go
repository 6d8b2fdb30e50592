package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError_IsMatchesByKind(t *testing.T) {
	err := NotFound("case not found")

	assert.True(t, errors.Is(err, ErrNotFound))
	assert.False(t, errors.Is(err, ErrForbidden))
	assert.Equal(t, "case not found", err.Error())
}

func TestError_IsThroughWrapping(t *testing.T) {
	err := fmt.Errorf("create case: %w", DuplicateActiveCase("borrower already has an open case #4"))

	assert.True(t, errors.Is(err, ErrDuplicateActiveCase))
	assert.Equal(t, KindDuplicateActiveCase, KindOf(err))
}

func TestTransientStorage_UnwrapsCause(t *testing.T) {
	cause := errors.New("deadlock found")
	err := TransientStorage("storage temporarily unavailable", cause)

	assert.True(t, errors.Is(err, ErrTransientStorage))
	assert.True(t, errors.Is(err, cause))
	assert.Contains(t, err.Error(), "deadlock found")
}

func TestKindOf_PlainError(t *testing.T) {
	assert.Equal(t, Kind(""), KindOf(errors.New("boom")))
	assert.Equal(t, Kind(""), KindOf(nil))
}

func TestUserErrors_ShareKinds(t *testing.T) {
	assert.True(t, errors.Is(ErrInvalidCredentials, ErrUnauthorized))
	assert.True(t, errors.Is(ErrUserAlreadyExists, ErrConflict))
}

func TestRole(t *testing.T) {
	assert.True(t, RoleSuperAdmin.IsAdmin())
	assert.True(t, RoleAdmin.IsAdmin())
	assert.False(t, RoleTeamWorker.IsAdmin())
	assert.False(t, Role("OFFICER").Valid())
	assert.Greater(t, RoleVerifiedUser.Rank(), RoleUser.Rank())
}

func TestCaseStatus_IsTerminal(t *testing.T) {
	assert.True(t, CaseStatusCompleted.IsTerminal())
	assert.True(t, CaseStatusRejected.IsTerminal())
	assert.False(t, CaseStatusDisputed.IsTerminal())
	assert.False(t, CaseStatusPendingVerification.IsTerminal())
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "ravi@example.com", NormalizeEmail("  Ravi@Example.COM "))
	assert.Equal(t, "+919876543210", NormalizePhone("+91 98765-43210"))
}
