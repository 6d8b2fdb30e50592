package services

import (
	"sync"
	"testing"

	"royal-collector/internal/adapters/persistence/models"
	"royal-collector/internal/core/domain"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLifecycle_PaymentSettlesAndRevertReopens(t *testing.T) {
	f := newFixture(t)
	admin := f.user(t, "admin@rc.in", domain.RoleAdmin)
	lender := f.user(t, "lender@rc.in", domain.RoleUser)
	worker := f.user(t, "worker@rc.in", domain.RoleTeamWorker)

	// Lender opens the case
	c := f.openCase(t, lender, "borrower@rc.in", 1000)
	assert.True(t, c.AmountPending.Equal(decimal.NewFromInt(1000)))
	assert.Equal(t, domain.CaseStatusPendingVerification, c.Status)

	// Admin approves and assigns the worker
	status := domain.CaseStatusActive
	workerID := worker.UserID
	c, err := f.cases.UpdateCaseStatus(f.ctx, admin, c.ID, &UpdateCaseInput{Status: &status, AssignedWorkerID: &workerID})
	require.NoError(t, err)
	assert.Equal(t, domain.CaseStatusActive, c.Status)

	// Worker collects everything
	tx := f.pay(t, worker, c.ID, "1000")
	assert.True(t, tx.AppliedAmount.Equal(decimal.NewFromInt(1000)))

	settled := f.reload(t, c.ID)
	assert.True(t, settled.AmountPending.IsZero())
	assert.Equal(t, domain.CaseStatusCompleted, settled.Status)

	// Admin reverts the payment
	reopened, err := f.ledger.RevertTransaction(f.ctx, admin, tx.ID)
	require.NoError(t, err)
	assert.True(t, reopened.AmountPending.Equal(decimal.NewFromInt(1000)))
	assert.Equal(t, domain.CaseStatusActive, reopened.Status)

	stored := f.reload(t, c.ID)
	assert.True(t, stored.AmountPending.Equal(decimal.NewFromInt(1000)))
	assert.Equal(t, domain.CaseStatusActive, stored.Status)

	_, err = f.store.Transactions.GetByID(f.ctx, tx.ID)
	assert.Error(t, err)

	assert.Contains(t, f.notifier.titles(), "Loan approved")
	assert.Contains(t, f.notifier.titles(), "Loan settled")
}

func TestGetCase_Visibility(t *testing.T) {
	f := newFixture(t)
	admin := f.user(t, "admin@rc.in", domain.RoleSuperAdmin)
	lender := f.user(t, "lender@rc.in", domain.RoleVerifiedUser)
	assigned := f.user(t, "assigned@rc.in", domain.RoleTeamWorker)
	outsider := f.user(t, "outsider@rc.in", domain.RoleTeamWorker)
	borrower := f.user(t, "Borrower@RC.in", domain.RoleUser)
	stranger := f.user(t, "stranger@rc.in", domain.RoleUser)

	c := f.openCase(t, lender, "borrower@rc.in", 500)
	workerID := assigned.UserID
	_, err := f.cases.UpdateCaseStatus(f.ctx, admin, c.ID, &UpdateCaseInput{AssignedWorkerID: &workerID})
	require.NoError(t, err)

	for _, p := range []domain.Principal{admin, lender, assigned, borrower} {
		got, err := f.cases.GetCase(f.ctx, p, c.ID)
		require.NoError(t, err, p.Email)
		assert.Equal(t, c.ID, got.ID)
	}

	// An unrelated worker is refused
	_, err = f.cases.GetCase(f.ctx, outsider, c.ID)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	_, err = f.cases.GetCase(f.ctx, stranger, c.ID)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	_, err = f.cases.GetCase(f.ctx, admin, 9999)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCreateCase_Validation(t *testing.T) {
	f := newFixture(t)
	lender := f.user(t, "lender@rc.in", domain.RoleUser)

	tests := []struct {
		name  string
		input CreateCaseInput
	}{
		{"missing email", CreateCaseInput{BorrowerName: "B", BorrowerPhone: "9800000001", AmountLent: decimal.NewFromInt(1)}},
		{"bad email", CreateCaseInput{BorrowerName: "B", BorrowerEmail: "nope", BorrowerPhone: "9800000001"}},
		{"negative amount", CreateCaseInput{BorrowerName: "B", BorrowerEmail: "b@rc.in", BorrowerPhone: "9800000001", AmountLent: decimal.NewFromInt(-1)}},
		{"sub-paisa amount", CreateCaseInput{BorrowerName: "B", BorrowerEmail: "b@rc.in", BorrowerPhone: "9800000001", AmountLent: dec("10.005")}},
		{"phone of separators", CreateCaseInput{BorrowerName: "B", BorrowerEmail: "b@rc.in", BorrowerPhone: "-- --"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input := tt.input
			_, err := f.cases.CreateCase(f.ctx, lender, &input)
			assert.ErrorIs(t, err, domain.ErrInvalidInput)
		})
	}

	_, err := f.cases.CreateCase(f.ctx, domain.Principal{}, &CreateCaseInput{})
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestCreateCase_ZeroAmountIsAllowed(t *testing.T) {
	f := newFixture(t)
	lender := f.user(t, "lender@rc.in", domain.RoleUser)

	c := f.openCase(t, lender, "b@rc.in", 0)
	assert.True(t, c.AmountPending.IsZero())
	assert.Equal(t, domain.CaseStatusPendingVerification, c.Status)
}

func TestCreateCase_DuplicateActiveBorrower(t *testing.T) {
	f := newFixture(t)
	lender := f.user(t, "lender@rc.in", domain.RoleUser)
	other := f.user(t, "other@rc.in", domain.RoleUser)

	first, err := f.cases.CreateCase(f.ctx, lender, &CreateCaseInput{
		BorrowerName: "Asha", BorrowerEmail: "asha@rc.in", BorrowerPhone: "98765 43210", AmountLent: decimal.NewFromInt(100),
	})
	require.NoError(t, err)

	// Same email, different phone
	_, err = f.cases.CreateCase(f.ctx, other, &CreateCaseInput{
		BorrowerName: "Asha", BorrowerEmail: "ASHA@rc.in", BorrowerPhone: "9000000000", AmountLent: decimal.NewFromInt(100),
	})
	assert.ErrorIs(t, err, domain.ErrDuplicateActiveCase)

	// Same phone written differently, different email
	_, err = f.cases.CreateCase(f.ctx, other, &CreateCaseInput{
		BorrowerName: "Asha", BorrowerEmail: "asha2@rc.in", BorrowerPhone: "98765-43210", AmountLent: decimal.NewFromInt(100),
	})
	assert.ErrorIs(t, err, domain.ErrDuplicateActiveCase)

	// Once the first case is settled the borrower may borrow again
	admin := f.user(t, "admin@rc.in", domain.RoleAdmin)
	f.activate(t, admin, first.ID)
	f.pay(t, lender, first.ID, "100")

	second, err := f.cases.CreateCase(f.ctx, other, &CreateCaseInput{
		BorrowerName: "Asha", BorrowerEmail: "asha@rc.in", BorrowerPhone: "9876543210", AmountLent: decimal.NewFromInt(50),
	})
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)
}

func TestCreateCase_ConcurrentDuplicatesLeaveOneOpenCase(t *testing.T) {
	f := newFixture(t)

	const attempts = 8
	lenders := make([]domain.Principal, attempts)
	for i := range lenders {
		lenders[i] = f.user(t, "lender"+string(rune('a'+i))+"@rc.in", domain.RoleUser)
	}

	var wg sync.WaitGroup
	errs := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.cases.CreateCase(f.ctx, lenders[i], &CreateCaseInput{
				BorrowerName:  "Ravi",
				BorrowerEmail: "ravi@rc.in",
				BorrowerPhone: "9123456789",
				AmountLent:    decimal.NewFromInt(1000),
			})
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, domain.ErrDuplicateActiveCase)
	}
	assert.Equal(t, 1, succeeded)

	var open int64
	require.NoError(t, f.db.Model(&models.Case{}).
		Where("borrower_email = ? AND status NOT IN ?", "ravi@rc.in",
			[]domain.CaseStatus{domain.CaseStatusCompleted, domain.CaseStatusRejected}).
		Count(&open).Error)
	assert.Equal(t, int64(1), open)
}

func TestCreateCase_RetryWithRequestKeyReturnsSameCase(t *testing.T) {
	f := newFixture(t)
	lender := f.user(t, "lender@rc.in", domain.RoleUser)

	input := func() *CreateCaseInput {
		return &CreateCaseInput{
			BorrowerName:  "Meera",
			BorrowerEmail: "meera@rc.in",
			BorrowerPhone: "9988776655",
			AmountLent:    decimal.NewFromInt(2500),
			RequestKey:    "req-7f3a",
		}
	}

	first, err := f.cases.CreateCase(f.ctx, lender, input())
	require.NoError(t, err)

	var wg sync.WaitGroup
	ids := make([]uint, 4)
	for i := range ids {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			c, err := f.cases.CreateCase(f.ctx, lender, input())
			if assert.NoError(t, err) {
				ids[i] = c.ID
			}
		}(i)
	}
	wg.Wait()

	for _, id := range ids {
		assert.Equal(t, first.ID, id)
	}

	var total int64
	require.NoError(t, f.db.Model(&models.Case{}).Count(&total).Error)
	assert.Equal(t, int64(1), total)
}

func TestCreateCase_WorkerAssignment(t *testing.T) {
	f := newFixture(t)
	admin := f.user(t, "admin@rc.in", domain.RoleAdmin)
	lender := f.user(t, "lender@rc.in", domain.RoleUser)
	worker := f.user(t, "worker@rc.in", domain.RoleTeamWorker)

	input := func(workerID uint, email string) *CreateCaseInput {
		return &CreateCaseInput{
			BorrowerName:     "B",
			BorrowerEmail:    email,
			BorrowerPhone:    "97" + email[:1] + "0000000",
			AmountLent:       decimal.NewFromInt(10),
			AssignedWorkerID: &workerID,
		}
	}

	_, err := f.cases.CreateCase(f.ctx, lender, input(worker.UserID, "a@rc.in"))
	assert.ErrorIs(t, err, domain.ErrForbidden)

	_, err = f.cases.CreateCase(f.ctx, admin, input(lender.UserID, "b@rc.in"))
	assert.ErrorIs(t, err, domain.ErrInvalidReference)

	_, err = f.cases.CreateCase(f.ctx, admin, input(4242, "c@rc.in"))
	assert.ErrorIs(t, err, domain.ErrInvalidReference)

	c, err := f.cases.CreateCase(f.ctx, admin, input(worker.UserID, "d@rc.in"))
	require.NoError(t, err)
	require.NotNil(t, c.AssignedWorkerID)
	assert.Equal(t, worker.UserID, *c.AssignedWorkerID)
}

func TestUpdateCaseStatus_AdminOnly(t *testing.T) {
	f := newFixture(t)
	lender := f.user(t, "lender@rc.in", domain.RoleUser)
	worker := f.user(t, "worker@rc.in", domain.RoleTeamWorker)
	c := f.openCase(t, lender, "b@rc.in", 100)

	status := domain.CaseStatusActive
	for _, p := range []domain.Principal{lender, worker} {
		_, err := f.cases.UpdateCaseStatus(f.ctx, p, c.ID, &UpdateCaseInput{Status: &status})
		assert.ErrorIs(t, err, domain.ErrForbidden)
	}
	assert.Equal(t, domain.CaseStatusPendingVerification, f.reload(t, c.ID).Status)
}

func TestUpdateCaseStatus_RejectDeletesCase(t *testing.T) {
	f := newFixture(t)
	admin := f.user(t, "admin@rc.in", domain.RoleAdmin)
	lender := f.user(t, "lender@rc.in", domain.RoleUser)
	c := f.openCase(t, lender, "b@rc.in", 100)

	status := domain.CaseStatusRejected
	notes := "documents missing"
	snapshot, err := f.cases.UpdateCaseStatus(f.ctx, admin, c.ID, &UpdateCaseInput{Status: &status, AdminNotes: &notes})
	require.NoError(t, err)
	assert.Equal(t, domain.CaseStatusRejected, snapshot.Status)
	assert.Equal(t, c.ID, snapshot.ID)
	require.NotNil(t, snapshot.AdminNotes)
	assert.Equal(t, notes, *snapshot.AdminNotes)

	_, err = f.cases.GetCase(f.ctx, admin, c.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	entries, err := f.store.Audit.ListByCase(f.ctx, c.ID)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, models.AuditCaseRejected, entries[0].Action)
	assert.Equal(t, admin.UserID, entries[0].PerformedByID)

	// The borrower is free for a new case
	f.openCase(t, lender, "b@rc.in", 100)
}

func TestUpdateCaseStatus_BalanceOverride(t *testing.T) {
	f := newFixture(t)
	admin := f.user(t, "admin@rc.in", domain.RoleAdmin)
	lender := f.user(t, "lender@rc.in", domain.RoleUser)
	c := f.openCase(t, lender, "b@rc.in", 1000)

	tooMuch := dec("1000.01")
	_, err := f.cases.UpdateCaseStatus(f.ctx, admin, c.ID, &UpdateCaseInput{AmountPending: &tooMuch})
	assert.ErrorIs(t, err, domain.ErrInvariantViolation)

	negative := dec("-1")
	_, err = f.cases.UpdateCaseStatus(f.ctx, admin, c.ID, &UpdateCaseInput{AmountPending: &negative})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	unchanged := f.reload(t, c.ID)
	assert.True(t, unchanged.AmountPending.Equal(decimal.NewFromInt(1000)))
	assert.Equal(t, uint(1), unchanged.Version)

	corrected := dec("750.50")
	updated, err := f.cases.UpdateCaseStatus(f.ctx, admin, c.ID, &UpdateCaseInput{AmountPending: &corrected})
	require.NoError(t, err)
	assert.True(t, updated.AmountPending.Equal(corrected))
	assert.Equal(t, uint(2), updated.Version)

	entries, err := f.store.Audit.ListByCase(f.ctx, c.ID)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, models.AuditBalanceOverride, entries[0].Action)
	assert.Contains(t, entries[0].Details, "750.50")
}

func TestUpdateCaseStatus_ReassignWorker(t *testing.T) {
	f := newFixture(t)
	admin := f.user(t, "admin@rc.in", domain.RoleAdmin)
	lender := f.user(t, "lender@rc.in", domain.RoleUser)
	worker := f.user(t, "worker@rc.in", domain.RoleTeamWorker)
	c := f.openCase(t, lender, "b@rc.in", 100)

	notWorker := lender.UserID
	_, err := f.cases.UpdateCaseStatus(f.ctx, admin, c.ID, &UpdateCaseInput{AssignedWorkerID: &notWorker})
	assert.ErrorIs(t, err, domain.ErrInvalidReference)

	workerID := worker.UserID
	updated, err := f.cases.UpdateCaseStatus(f.ctx, admin, c.ID, &UpdateCaseInput{AssignedWorkerID: &workerID})
	require.NoError(t, err)
	require.NotNil(t, updated.AssignedWorkerID)
	assert.Equal(t, workerID, *updated.AssignedWorkerID)

	clear := uint(0)
	updated, err = f.cases.UpdateCaseStatus(f.ctx, admin, c.ID, &UpdateCaseInput{AssignedWorkerID: &clear})
	require.NoError(t, err)
	assert.Nil(t, updated.AssignedWorkerID)
}

func TestUpdateCaseStatus_UnknownCase(t *testing.T) {
	f := newFixture(t)
	admin := f.user(t, "admin@rc.in", domain.RoleAdmin)

	status := domain.CaseStatusActive
	_, err := f.cases.UpdateCaseStatus(f.ctx, admin, 404, &UpdateCaseInput{Status: &status})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	bogus := domain.CaseStatus("ARCHIVED")
	_, err = f.cases.UpdateCaseStatus(f.ctx, admin, 404, &UpdateCaseInput{Status: &bogus})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestDeleteCase_LenderCannotDeleteActiveCase(t *testing.T) {
	f := newFixture(t)
	admin := f.user(t, "admin@rc.in", domain.RoleAdmin)
	lender := f.user(t, "lender@rc.in", domain.RoleUser)

	c := f.openCase(t, lender, "b@rc.in", 1000)
	f.activate(t, admin, c.ID)
	f.pay(t, lender, c.ID, "200")

	err := f.cases.DeleteCase(f.ctx, lender, c.ID)
	assert.ErrorIs(t, err, domain.ErrForbidden)
	assert.Equal(t, domain.CaseStatusActive, f.reload(t, c.ID).Status)

	require.NoError(t, f.cases.DeleteCase(f.ctx, admin, c.ID))
	_, err = f.store.Cases.GetByID(f.ctx, c.ID)
	assert.Error(t, err)

	txs, err := f.store.Transactions.ListByCase(f.ctx, c.ID)
	require.NoError(t, err)
	assert.Empty(t, txs)
}

func TestDeleteCase_LenderDeletableStatuses(t *testing.T) {
	f := newFixture(t)
	admin := f.user(t, "admin@rc.in", domain.RoleAdmin)
	lender := f.user(t, "lender@rc.in", domain.RoleUser)
	stranger := f.user(t, "stranger@rc.in", domain.RoleUser)

	pending := f.openCase(t, lender, "p@rc.in", 100)
	require.NoError(t, f.cases.DeleteCase(f.ctx, lender, pending.ID))

	completed := f.openCase(t, lender, "c@rc.in", 100)
	f.activate(t, admin, completed.ID)
	f.pay(t, lender, completed.ID, "100")
	assert.ErrorIs(t, f.cases.DeleteCase(f.ctx, stranger, completed.ID), domain.ErrForbidden)
	require.NoError(t, f.cases.DeleteCase(f.ctx, lender, completed.ID))

	disputed := f.openCase(t, lender, "d@rc.in", 100)
	status := domain.CaseStatusDisputed
	_, err := f.cases.UpdateCaseStatus(f.ctx, admin, disputed.ID, &UpdateCaseInput{Status: &status})
	require.NoError(t, err)
	assert.ErrorIs(t, f.cases.DeleteCase(f.ctx, lender, disputed.ID), domain.ErrForbidden)

	assert.ErrorIs(t, f.cases.DeleteCase(f.ctx, admin, 777), domain.ErrNotFound)
}

func TestListCasesVisibleTo(t *testing.T) {
	f := newFixture(t)
	admin := f.user(t, "admin@rc.in", domain.RoleAdmin)
	lender := f.user(t, "lender@rc.in", domain.RoleUser)
	otherLender := f.user(t, "other@rc.in", domain.RoleUser)
	borrower := f.user(t, "borrower@rc.in", domain.RoleUser)
	worker := f.user(t, "worker@rc.in", domain.RoleTeamWorker)

	f.openCase(t, lender, "x@rc.in", 100)
	f.openCase(t, lender, "y@rc.in", 100)
	owed := f.openCase(t, otherLender, "borrower@rc.in", 100)
	f.activate(t, admin, owed.ID)

	out, err := f.cases.ListCasesVisibleTo(f.ctx, admin, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(3), out.Meta.Total)

	out, err = f.cases.ListCasesVisibleTo(f.ctx, lender, &ListCasesInput{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), out.Meta.Total)

	out, err = f.cases.ListCasesVisibleTo(f.ctx, borrower, &ListCasesInput{})
	require.NoError(t, err)
	require.Len(t, out.Cases, 1)
	assert.Equal(t, owed.ID, out.Cases[0].ID)

	out, err = f.cases.ListCasesVisibleTo(f.ctx, worker, &ListCasesInput{})
	require.NoError(t, err)
	assert.Empty(t, out.Cases)

	out, err = f.cases.ListCasesVisibleTo(f.ctx, admin, &ListCasesInput{Status: domain.CaseStatusActive})
	require.NoError(t, err)
	assert.Equal(t, int64(1), out.Meta.Total)

	out, err = f.cases.ListCasesVisibleTo(f.ctx, lender, &ListCasesInput{Page: 2, Limit: 1})
	require.NoError(t, err)
	require.Len(t, out.Cases, 1)
	assert.True(t, out.Meta.HasPrev)

	_, err = f.cases.ListCasesVisibleTo(f.ctx, admin, &ListCasesInput{Status: "OPEN"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestSendReminder(t *testing.T) {
	f := newFixture(t)
	lender := f.user(t, "lender@rc.in", domain.RoleUser)
	stranger := f.user(t, "stranger@rc.in", domain.RoleUser)
	c := f.openCase(t, lender, "b@rc.in", 300)

	require.NoError(t, f.cases.SendReminder(f.ctx, lender, c.ID, ""))
	assert.ErrorIs(t, f.cases.SendReminder(f.ctx, stranger, c.ID, ""), domain.ErrForbidden)
	assert.ErrorIs(t, f.cases.SendReminder(f.ctx, lender, 555, ""), domain.ErrNotFound)

	f.notifier.mu.Lock()
	defer f.notifier.mu.Unlock()
	require.Len(t, f.notifier.requests, 1)
	req := f.notifier.requests[0]
	assert.Equal(t, "b@rc.in", req.TargetEmail)
	assert.Contains(t, req.Message, "300.00")
	assert.Equal(t, domain.AlertSeverityWarning, req.Severity)
	require.NotNil(t, req.RelatedCaseID)
	assert.Equal(t, c.ID, *req.RelatedCaseID)
}
