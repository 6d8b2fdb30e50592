package services

import (
	"context"
	"fmt"
	"sort"
	"time"

	"royal-collector/internal/adapters/persistence/models"
	"royal-collector/internal/adapters/persistence/repositories"
	"royal-collector/internal/core/domain"
	"royal-collector/internal/core/visibility"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// DashboardService computes per-role summary numbers
type DashboardService struct {
	db      *gorm.DB
	timeout time.Duration
}

// NewDashboardService creates a new dashboard service
func NewDashboardService(db *gorm.DB, timeout time.Duration) *DashboardService {
	return &DashboardService{db: db, timeout: timeout}
}

// DashboardData represents dashboard data. Sections that do not apply to the
// principal's role are left nil.
type DashboardData struct {
	Role  domain.Role `json:"role"`
	Cases CaseStats   `json:"cases"`

	// Team workers
	CollectedToday *decimal.Decimal `json:"collected_today,omitempty"`
	AssignedActive *int64           `json:"assigned_active,omitempty"`

	// Administrators
	System *SystemStats `json:"system,omitempty"`
}

// CaseStats summarises the cases in the principal's scope
type CaseStats struct {
	Total               int64           `json:"total"`
	Active              int64           `json:"active"`
	PendingVerification int64           `json:"pending_verification"`
	Completed           int64           `json:"completed"`
	Disputed            int64           `json:"disputed"`
	TotalLent           decimal.Decimal `json:"total_lent"`
	TotalPending        decimal.Decimal `json:"total_pending"`
	TotalCollected      decimal.Decimal `json:"total_collected"`
}

// SystemStats holds system-wide counters
type SystemStats struct {
	TotalUsers        int64 `json:"total_users"`
	TotalWorkers      int64 `json:"total_workers"`
	TotalAdmins       int64 `json:"total_admins"`
	UnverifiedUsers   int64 `json:"unverified_users"`
	PendingAlerts     int64 `json:"pending_alerts"`
	UnverifiedPayment int64 `json:"unverified_payments"`
}

// GetDashboard returns the dashboard for the principal's role
func (s *DashboardService) GetDashboard(ctx context.Context, p domain.Principal) (*DashboardData, error) {
	ctx, cancel := storageContext(ctx, s.timeout)
	defer cancel()

	data := &DashboardData{Role: p.Role}

	stats, err := s.caseStats(ctx, visibility.ScopeCases(p), visibility.ScopeTransactions(p))
	if err != nil {
		return nil, storageError(err)
	}
	data.Cases = *stats

	switch {
	case p.IsAdmin():
		system, err := s.systemStats(ctx)
		if err != nil {
			return nil, storageError(err)
		}
		data.System = system

	case p.Role == domain.RoleTeamWorker:
		collected, assigned, err := s.workerStats(ctx, p.UserID)
		if err != nil {
			return nil, storageError(err)
		}
		data.CollectedToday = &collected
		data.AssignedActive = &assigned
	}

	return data, nil
}

// Collection report window, in days
const (
	DefaultCollectionDays = 7
	MaxCollectionDays     = 366
)

// DailyCollection is one day of the collection report
type DailyCollection struct {
	Date      string          `json:"date"`
	Collected decimal.Decimal `json:"collected"`
	Count     int64           `json:"count"`
}

// DailyCollection totals the PAYMENT amounts applied to balances per UTC day over the
// last days days, newest day first. Days without payments are omitted.
func (s *DashboardService) DailyCollection(ctx context.Context, p domain.Principal, days int) ([]DailyCollection, error) {
	if days == 0 {
		days = DefaultCollectionDays
	}
	if days < 0 || days > MaxCollectionDays {
		return nil, domain.InvalidInput(fmt.Sprintf("days must be between 1 and %d", MaxCollectionDays))
	}

	ctx, cancel := storageContext(ctx, s.timeout)
	defer cancel()

	since := time.Now().UTC().Add(-time.Duration(days) * 24 * time.Hour)

	var rows []struct {
		CreatedAt     time.Time
		AppliedAmount decimal.Decimal
	}
	err := s.db.WithContext(ctx).Model(&models.Transaction{}).
		Scopes(repositories.TransactionScope(visibility.ScopeCollections(p))).
		Where("type = ? AND created_at >= ?", domain.TransactionTypePayment, since).
		Select("created_at, applied_amount").
		Scan(&rows).Error
	if err != nil {
		return nil, storageError(err)
	}

	byDay := make(map[string]*DailyCollection)
	for _, r := range rows {
		date := r.CreatedAt.UTC().Format("2006-01-02")
		day, ok := byDay[date]
		if !ok {
			day = &DailyCollection{Date: date, Collected: decimal.Zero}
			byDay[date] = day
		}
		day.Collected = day.Collected.Add(r.AppliedAmount)
		day.Count++
	}

	report := make([]DailyCollection, 0, len(byDay))
	for _, day := range byDay {
		report = append(report, *day)
	}
	sort.Slice(report, func(i, j int) bool { return report[i].Date > report[j].Date })
	return report, nil
}

func (s *DashboardService) caseStats(ctx context.Context, cases visibility.CaseFilter, txs visibility.TransactionFilter) (*CaseStats, error) {
	stats := &CaseStats{}
	scoped := func() *gorm.DB {
		return s.db.WithContext(ctx).Model(&models.Case{}).Scopes(repositories.CaseScope(cases))
	}

	// Case counts by status
	var rows []struct {
		Status domain.CaseStatus
		Count  int64
	}
	if err := scoped().Select("status, COUNT(*) AS count").Group("status").Scan(&rows).Error; err != nil {
		return nil, err
	}
	for _, r := range rows {
		stats.Total += r.Count
		switch r.Status {
		case domain.CaseStatusActive:
			stats.Active = r.Count
		case domain.CaseStatusPendingVerification:
			stats.PendingVerification = r.Count
		case domain.CaseStatusCompleted:
			stats.Completed = r.Count
		case domain.CaseStatusDisputed:
			stats.Disputed = r.Count
		}
	}

	// Money totals are summed as decimals, not in SQL, so every driver agrees
	var err error
	if stats.TotalLent, err = sumColumn(scoped(), "amount_lent"); err != nil {
		return nil, err
	}
	if stats.TotalPending, err = sumColumn(scoped(), "amount_pending"); err != nil {
		return nil, err
	}

	collected := s.db.WithContext(ctx).Model(&models.Transaction{}).
		Scopes(repositories.TransactionScope(txs)).
		Where("type = ?", domain.TransactionTypePayment)
	if stats.TotalCollected, err = sumColumn(collected, "applied_amount"); err != nil {
		return nil, err
	}

	return stats, nil
}

func (s *DashboardService) workerStats(ctx context.Context, workerID uint) (decimal.Decimal, int64, error) {
	startOfDay := time.Now().UTC().Truncate(24 * time.Hour)

	today := s.db.WithContext(ctx).Model(&models.Transaction{}).
		Where("performed_by_id = ? AND type = ? AND created_at >= ?", workerID, domain.TransactionTypePayment, startOfDay)
	collected, err := sumColumn(today, "applied_amount")
	if err != nil {
		return decimal.Zero, 0, err
	}

	var assigned int64
	err = s.db.WithContext(ctx).Model(&models.Case{}).
		Where("assigned_worker_id = ? AND status = ?", workerID, domain.CaseStatusActive).
		Count(&assigned).Error
	return collected, assigned, err
}

func (s *DashboardService) systemStats(ctx context.Context) (*SystemStats, error) {
	stats := &SystemStats{}
	users := func() *gorm.DB {
		return s.db.WithContext(ctx).Model(&models.User{})
	}

	// User counts by role
	if err := users().Count(&stats.TotalUsers).Error; err != nil {
		return nil, err
	}
	if err := users().Where("role = ?", domain.RoleTeamWorker).Count(&stats.TotalWorkers).Error; err != nil {
		return nil, err
	}
	if err := users().Where("role IN ?", []domain.Role{domain.RoleAdmin, domain.RoleSuperAdmin}).Count(&stats.TotalAdmins).Error; err != nil {
		return nil, err
	}
	if err := users().Where("is_verified = ?", false).Count(&stats.UnverifiedUsers).Error; err != nil {
		return nil, err
	}

	if err := s.db.WithContext(ctx).Model(&models.Alert{}).
		Where("status = ?", domain.AlertStatusPending).
		Count(&stats.PendingAlerts).Error; err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Model(&models.Transaction{}).
		Where("type = ? AND is_verified_by_admin = ?", domain.TransactionTypePayment, false).
		Count(&stats.UnverifiedPayment).Error; err != nil {
		return nil, err
	}

	return stats, nil
}

func sumColumn(query *gorm.DB, column string) (decimal.Decimal, error) {
	var values []decimal.Decimal
	if err := query.Pluck(column, &values).Error; err != nil {
		return decimal.Zero, err
	}
	total := decimal.Zero
	for _, v := range values {
		total = total.Add(v)
	}
	return total, nil
}
