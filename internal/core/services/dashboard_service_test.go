package services

import (
	"testing"
	"time"

	"royal-collector/internal/adapters/persistence/models"
	"royal-collector/internal/core/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDashboardService(t *testing.T) {
	f := newFixture(t)
	dash := NewDashboardService(f.db, time.Second)

	admin := f.user(t, "admin@rc.in", domain.RoleAdmin)
	lender := f.user(t, "lender@rc.in", domain.RoleUser)
	borrower := f.user(t, "borrower@rc.in", domain.RoleUser)
	worker := f.user(t, "worker@rc.in", domain.RoleTeamWorker)

	owed := f.openCase(t, lender, "borrower@rc.in", 1000)
	f.activate(t, admin, owed.ID)
	_, err := f.cases.UpdateCaseStatus(f.ctx, admin, owed.ID, &UpdateCaseInput{AssignedWorkerID: &worker.UserID})
	require.NoError(t, err)
	f.pay(t, worker, owed.ID, "250.50")

	f.openCase(t, lender, "other@rc.in", 400)

	t.Run("lender", func(t *testing.T) {
		data, err := dash.GetDashboard(f.ctx, lender)
		require.NoError(t, err)
		assert.Equal(t, int64(2), data.Cases.Total)
		assert.Equal(t, int64(1), data.Cases.Active)
		assert.Equal(t, int64(1), data.Cases.PendingVerification)
		assert.True(t, data.Cases.TotalLent.Equal(dec("1400")))
		assert.True(t, data.Cases.TotalPending.Equal(dec("1149.50")))
		assert.True(t, data.Cases.TotalCollected.Equal(dec("250.50")))
		assert.Nil(t, data.System)
		assert.Nil(t, data.CollectedToday)
	})

	t.Run("borrower", func(t *testing.T) {
		data, err := dash.GetDashboard(f.ctx, borrower)
		require.NoError(t, err)
		assert.Equal(t, int64(1), data.Cases.Total)
		assert.True(t, data.Cases.TotalPending.Equal(dec("749.50")))
	})

	t.Run("worker", func(t *testing.T) {
		data, err := dash.GetDashboard(f.ctx, worker)
		require.NoError(t, err)
		assert.Equal(t, int64(1), data.Cases.Total)
		require.NotNil(t, data.CollectedToday)
		assert.True(t, data.CollectedToday.Equal(dec("250.50")))
		require.NotNil(t, data.AssignedActive)
		assert.Equal(t, int64(1), *data.AssignedActive)
		assert.Nil(t, data.System)
	})

	t.Run("admin", func(t *testing.T) {
		data, err := dash.GetDashboard(f.ctx, admin)
		require.NoError(t, err)
		assert.Equal(t, int64(2), data.Cases.Total)
		require.NotNil(t, data.System)
		assert.Equal(t, int64(4), data.System.TotalUsers)
		assert.Equal(t, int64(1), data.System.TotalWorkers)
		assert.Equal(t, int64(1), data.System.TotalAdmins)
		assert.Equal(t, int64(1), data.System.UnverifiedPayment)
	})

	t.Run("stranger", func(t *testing.T) {
		data, err := dash.GetDashboard(f.ctx, domain.Principal{UserID: 999, Email: "x@rc.in", Role: domain.RoleUser})
		require.NoError(t, err)
		assert.Zero(t, data.Cases.Total)
		assert.True(t, data.Cases.TotalLent.IsZero())
	})
}

func TestDashboardService_DailyCollection(t *testing.T) {
	f := newFixture(t)
	dash := NewDashboardService(f.db, time.Second)

	admin := f.user(t, "admin@rc.in", domain.RoleAdmin)
	lender := f.user(t, "lender@rc.in", domain.RoleUser)
	otherLender := f.user(t, "other.lender@rc.in", domain.RoleUser)
	worker := f.user(t, "worker@rc.in", domain.RoleTeamWorker)

	owed := f.openCase(t, lender, "borrower@rc.in", 1000)
	f.activate(t, admin, owed.ID)
	_, err := f.cases.UpdateCaseStatus(f.ctx, admin, owed.ID, &UpdateCaseInput{AssignedWorkerID: &worker.UserID})
	require.NoError(t, err)

	other := f.openCase(t, otherLender, "someone@rc.in", 500)
	f.activate(t, admin, other.ID)

	now := time.Now().UTC()
	backdate := func(id uint, at time.Time) {
		require.NoError(t, f.db.Model(&models.Transaction{}).Where("id = ?", id).Update("created_at", at).Error)
	}

	f.pay(t, worker, owed.ID, "100")
	f.pay(t, lender, owed.ID, "50.25")
	backdate(f.pay(t, admin, other.ID, "200").ID, now.Add(-48*time.Hour))
	backdate(f.pay(t, worker, owed.ID, "30").ID, now.Add(-10*24*time.Hour))
	_, err = f.ledger.RecordTransaction(f.ctx, lender, &RecordTransactionInput{
		CaseID: owed.ID,
		Amount: dec("75"),
		Type:   domain.TransactionTypeDisbursement,
	})
	require.NoError(t, err)

	today := now.Format("2006-01-02")
	twoDaysAgo := now.Add(-48 * time.Hour).Format("2006-01-02")
	tenDaysAgo := now.Add(-10 * 24 * time.Hour).Format("2006-01-02")

	t.Run("admin sees every payment", func(t *testing.T) {
		report, err := dash.DailyCollection(f.ctx, admin, 0)
		require.NoError(t, err)
		require.Len(t, report, 2)
		assert.Equal(t, today, report[0].Date)
		assert.True(t, report[0].Collected.Equal(dec("150.25")))
		assert.Equal(t, int64(2), report[0].Count)
		assert.Equal(t, twoDaysAgo, report[1].Date)
		assert.True(t, report[1].Collected.Equal(dec("200")))
	})

	t.Run("worker sees what they recorded", func(t *testing.T) {
		report, err := dash.DailyCollection(f.ctx, worker, 7)
		require.NoError(t, err)
		require.Len(t, report, 1)
		assert.True(t, report[0].Collected.Equal(dec("100")))

		report, err = dash.DailyCollection(f.ctx, worker, 30)
		require.NoError(t, err)
		require.Len(t, report, 2)
		assert.Equal(t, tenDaysAgo, report[1].Date)
		assert.True(t, report[1].Collected.Equal(dec("30")))
	})

	t.Run("lender sees their own cases", func(t *testing.T) {
		report, err := dash.DailyCollection(f.ctx, lender, 7)
		require.NoError(t, err)
		require.Len(t, report, 1)
		assert.Equal(t, int64(2), report[0].Count)
		assert.True(t, report[0].Collected.Equal(dec("150.25")))

		report, err = dash.DailyCollection(f.ctx, otherLender, 7)
		require.NoError(t, err)
		require.Len(t, report, 1)
		assert.Equal(t, twoDaysAgo, report[0].Date)
	})

	t.Run("window is bounded", func(t *testing.T) {
		for _, days := range []int{-1, MaxCollectionDays + 1} {
			_, err := dash.DailyCollection(f.ctx, admin, days)
			assert.ErrorIs(t, err, domain.ErrInvalidInput)
		}
	})
}
