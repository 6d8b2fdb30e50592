package visibility

import (
	"testing"

	"royal-collector/internal/core/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	admin      = domain.Principal{UserID: 1, Email: "admin@example.com", Role: domain.RoleAdmin}
	superAdmin = domain.Principal{UserID: 2, Email: "root@example.com", Role: domain.RoleSuperAdmin}
	lender     = domain.Principal{UserID: 10, Email: "lender@example.com", Role: domain.RoleVerifiedUser}
	worker     = domain.Principal{UserID: 20, Email: "worker@example.com", Role: domain.RoleTeamWorker}
	otherWork  = domain.Principal{UserID: 21, Email: "other.worker@example.com", Role: domain.RoleTeamWorker}
	borrower   = domain.Principal{UserID: 30, Email: "Borrower@Example.com", Role: domain.RoleUser}
	stranger   = domain.Principal{UserID: 40, Email: "stranger@example.com", Role: domain.RoleUser}
)

func activeCase() CaseRef {
	workerID := worker.UserID
	return CaseRef{
		LenderID:         lender.UserID,
		AssignedWorkerID: &workerID,
		BorrowerEmail:    "borrower@example.com",
		Status:           domain.CaseStatusActive,
	}
}

func TestCanView(t *testing.T) {
	c := activeCase()

	tests := []struct {
		name string
		p    domain.Principal
		want bool
	}{
		{"admin", admin, true},
		{"super admin", superAdmin, true},
		{"lender", lender, true},
		{"assigned worker", worker, true},
		{"unassigned worker", otherWork, false},
		{"borrower by email, case-insensitive", borrower, true},
		{"unrelated user", stranger, false},
		{"unknown role", domain.Principal{UserID: 10, Role: "OFFICER"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CanView(tt.p, c))
		})
	}
}

func TestCanView_WorkerWhoLent(t *testing.T) {
	c := CaseRef{LenderID: otherWork.UserID, BorrowerEmail: "x@example.com", Status: domain.CaseStatusActive}

	assert.True(t, CanView(otherWork, c))
	assert.False(t, CanView(worker, c))
}

func TestCanView_WorkerIsNotMatchedByBorrowerEmail(t *testing.T) {
	c := CaseRef{LenderID: lender.UserID, BorrowerEmail: worker.Email, Status: domain.CaseStatusActive}

	assert.False(t, CanView(worker, c))
}

func TestCanRecordTransaction(t *testing.T) {
	c := activeCase()

	assert.True(t, CanRecordTransaction(admin, c, ""))
	assert.True(t, CanRecordTransaction(lender, c, ""))
	assert.True(t, CanRecordTransaction(worker, c, ""))
	assert.False(t, CanRecordTransaction(otherWork, c, "https://proofs/1.png"))

	assert.False(t, CanRecordTransaction(borrower, c, ""))
	assert.False(t, CanRecordTransaction(borrower, c, "   "))
	assert.True(t, CanRecordTransaction(borrower, c, "https://proofs/1.png"))
	assert.False(t, CanRecordTransaction(stranger, c, "https://proofs/1.png"))
}

func TestCanDelete(t *testing.T) {
	statuses := map[domain.CaseStatus]bool{
		domain.CaseStatusPendingVerification: true,
		domain.CaseStatusActive:              false,
		domain.CaseStatusCompleted:           true,
		domain.CaseStatusRejected:            true,
		domain.CaseStatusDisputed:            false,
	}

	for status, lenderMay := range statuses {
		c := activeCase()
		c.Status = status

		assert.Equal(t, lenderMay, CanDelete(lender, c), "lender, status %s", status)
		assert.True(t, CanDelete(admin, c), "admin, status %s", status)
		assert.False(t, CanDelete(worker, c), "worker, status %s", status)
		assert.False(t, CanDelete(borrower, c), "borrower, status %s", status)
	}
}

func TestAdminOnlyPredicates(t *testing.T) {
	for _, p := range []domain.Principal{lender, worker, borrower} {
		assert.False(t, CanMutateStatus(p))
		assert.False(t, CanAssignWorker(p))
		assert.False(t, CanRevertTransaction(p))
		assert.False(t, CanVerifyTransaction(p))
		assert.False(t, CanManageUsers(p))
	}
	for _, p := range []domain.Principal{admin, superAdmin} {
		assert.True(t, CanMutateStatus(p))
		assert.True(t, CanAssignWorker(p))
		assert.True(t, CanRevertTransaction(p))
		assert.True(t, CanVerifyTransaction(p))
		assert.True(t, CanManageUsers(p))
	}
}

func TestCanManageAlerts(t *testing.T) {
	assert.True(t, CanManageAlerts(admin))
	assert.True(t, CanManageAlerts(worker))
	assert.False(t, CanManageAlerts(lender))
	assert.False(t, CanManageAlerts(borrower))
}

func TestScopeCases(t *testing.T) {
	assert.Equal(t, CaseFilter{All: true}, ScopeCases(admin))

	f := ScopeCases(worker)
	require.NotNil(t, f.LenderID)
	require.NotNil(t, f.AssignedWorkerID)
	assert.Equal(t, worker.UserID, *f.LenderID)
	assert.Equal(t, worker.UserID, *f.AssignedWorkerID)
	assert.Empty(t, f.BorrowerEmail)

	f = ScopeCases(borrower)
	require.NotNil(t, f.LenderID)
	assert.Nil(t, f.AssignedWorkerID)
	assert.Equal(t, "borrower@example.com", f.BorrowerEmail)

	assert.True(t, ScopeCases(domain.Principal{}).Empty())
	assert.True(t, ScopeCases(domain.Principal{UserID: 5, Role: "OFFICER"}).Empty())
}

func TestScopeTransactions(t *testing.T) {
	assert.Equal(t, TransactionFilter{All: true}, ScopeTransactions(superAdmin))

	f := ScopeTransactions(worker)
	require.NotNil(t, f.PerformedByID)
	require.NotNil(t, f.AssignedWorkerID)
	assert.Equal(t, worker.UserID, *f.PerformedByID)

	f = ScopeTransactions(lender)
	assert.Nil(t, f.PerformedByID)
	assert.Equal(t, "lender@example.com", f.BorrowerEmail)

	assert.True(t, ScopeTransactions(domain.Principal{}).Empty())
}

func TestScopeCollections(t *testing.T) {
	assert.Equal(t, TransactionFilter{All: true}, ScopeCollections(admin))

	f := ScopeCollections(worker)
	require.NotNil(t, f.PerformedByID)
	assert.Equal(t, worker.UserID, *f.PerformedByID)
	assert.Nil(t, f.LenderID)
	assert.Nil(t, f.AssignedWorkerID)

	f = ScopeCollections(borrower)
	require.NotNil(t, f.LenderID)
	assert.Equal(t, borrower.UserID, *f.LenderID)
	assert.Empty(t, f.BorrowerEmail)

	assert.True(t, ScopeCollections(domain.Principal{}).Empty())
}

func TestScopeAlerts(t *testing.T) {
	assert.True(t, ScopeAlerts(worker).All)
	assert.Equal(t, AlertFilter{TargetEmail: "borrower@example.com"}, ScopeAlerts(borrower))
}
