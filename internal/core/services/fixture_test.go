package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"royal-collector/internal/adapters/persistence/models"
	"royal-collector/internal/adapters/persistence/repositories"
	"royal-collector/internal/core/domain"
	"royal-collector/internal/pkg/lock"
	"royal-collector/internal/testutil"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type recordingNotifier struct {
	mu       sync.Mutex
	requests []NotifyRequest
}

func (n *recordingNotifier) Notify(_ context.Context, req NotifyRequest) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.requests = append(n.requests, req)
}

func (n *recordingNotifier) titles() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, len(n.requests))
	for i, r := range n.requests {
		out[i] = r.Title
	}
	return out
}

type recordingSink struct {
	mu     sync.Mutex
	fail   bool
	alerts []models.Alert
}

func (s *recordingSink) Deliver(_ context.Context, alert *models.Alert) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return errors.New("channel down")
	}
	s.alerts = append(s.alerts, *alert)
	return nil
}

func (s *recordingSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.alerts)
}

type fixture struct {
	db       *gorm.DB
	store    *repositories.Store
	notifier *recordingNotifier
	cases    *CaseService
	ledger   *LedgerService
	ctx      context.Context
	seq      int
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db := testutil.NewDB(t)
	store := repositories.NewStore(db)
	notifier := &recordingNotifier{}

	return &fixture{
		db:       db,
		store:    store,
		notifier: notifier,
		cases:    NewCaseService(store, lock.NewLocalLocker(), notifier, nil, time.Second),
		ledger:   NewLedgerService(store, notifier, nil, time.Second),
		ctx:      context.Background(),
	}
}

// user stores an account and returns its principal
func (f *fixture) user(t *testing.T, email string, role domain.Role) domain.Principal {
	t.Helper()
	u := &models.User{
		Email:    email,
		FullName: "User " + email,
		Password: "not-a-real-hash",
		Role:     role,
		IsActive: true,
	}
	require.NoError(t, f.store.Users.Create(f.ctx, u))
	return u.Principal()
}

// openCase creates a case as lender with unique borrower contacts
func (f *fixture) openCase(t *testing.T, lender domain.Principal, borrowerEmail string, lent int64) *models.Case {
	t.Helper()
	f.seq++
	c, err := f.cases.CreateCase(f.ctx, lender, &CreateCaseInput{
		BorrowerName:  "Borrower",
		BorrowerEmail: borrowerEmail,
		BorrowerPhone: fmt.Sprintf("98000%05d", f.seq),
		AmountLent:    decimal.NewFromInt(lent),
	})
	require.NoError(t, err)
	return c
}

// activate approves a case as admin
func (f *fixture) activate(t *testing.T, admin domain.Principal, id uint) *models.Case {
	t.Helper()
	status := domain.CaseStatusActive
	c, err := f.cases.UpdateCaseStatus(f.ctx, admin, id, &UpdateCaseInput{Status: &status})
	require.NoError(t, err)
	return c
}

func (f *fixture) pay(t *testing.T, p domain.Principal, caseID uint, amount string) *models.Transaction {
	t.Helper()
	tx, err := f.ledger.RecordTransaction(f.ctx, p, &RecordTransactionInput{
		CaseID: caseID,
		Amount: decimal.RequireFromString(amount),
		Type:   domain.TransactionTypePayment,
	})
	require.NoError(t, err)
	return tx
}

// reload reads a case straight from storage
func (f *fixture) reload(t *testing.T, id uint) *models.Case {
	t.Helper()
	c, err := f.store.Cases.GetByID(f.ctx, id)
	require.NoError(t, err)
	return c
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}
