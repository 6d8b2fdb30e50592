package services

import (
	"context"
	"fmt"
	"time"

	"royal-collector/internal/adapters/persistence/models"
	"royal-collector/internal/adapters/persistence/repositories"
	"royal-collector/internal/core/domain"
	"royal-collector/internal/core/visibility"
	"royal-collector/internal/pkg/pagination"
	"royal-collector/internal/pkg/validate"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// LedgerService records and reverts transactions against case balances
type LedgerService struct {
	store    *repositories.Store
	notifier Notifier
	log      *zap.Logger
	timeout  time.Duration
}

// NewLedgerService creates a new ledger service
func NewLedgerService(store *repositories.Store, notifier Notifier, log *zap.Logger, timeout time.Duration) *LedgerService {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &LedgerService{
		store:    store,
		notifier: notifier,
		log:      log,
		timeout:  timeout,
	}
}

// RecordTransactionInput represents a new ledger entry
type RecordTransactionInput struct {
	CaseID      uint                   `json:"case_id" validate:"required"`
	Amount      decimal.Decimal        `json:"amount" validate:"gt=0"`
	Type        domain.TransactionType `json:"type" validate:"required,oneof=PAYMENT DISBURSEMENT"`
	PaymentMode string                 `json:"payment_mode,omitempty" validate:"max=30"`
	Notes       string                 `json:"notes,omitempty" validate:"max=1000"`
	ProofURL    string                 `json:"proof_url,omitempty" validate:"omitempty,url,max=500"`
}

// ListTransactionsInput represents list input. CaseID narrows the list to one case.
type ListTransactionsInput struct {
	CaseID *uint
	Page   int
	Limit  int
}

// ListTransactionsOutput represents list output
type ListTransactionsOutput struct {
	Transactions []*models.Transaction `json:"transactions"`
	Meta         *pagination.Meta      `json:"meta"`
}

// RecordTransaction inserts a transaction and, for a payment, takes it off the
// case balance in the same storage transaction. A payment larger than the balance
// settles the case; only the settled part counts as applied.
func (s *LedgerService) RecordTransaction(ctx context.Context, p domain.Principal, input *RecordTransactionInput) (*models.Transaction, error) {
	// 1. Validate before touching storage
	if err := validate.Struct(input); err != nil {
		return nil, err
	}
	if !isMoney(input.Amount) {
		return nil, domain.InvalidInput("amount must have at most 2 decimal places")
	}
	mode := input.PaymentMode
	if mode == "" {
		mode = domain.DefaultPaymentMode
	}

	ctx, cancel := storageContext(ctx, s.timeout)
	defer cancel()

	var c *models.Case
	var settled bool
	t := &models.Transaction{
		Reference:     uuid.NewString(),
		CaseID:        input.CaseID,
		PerformedByID: p.UserID,
		Amount:        input.Amount,
		AppliedAmount: decimal.Zero,
		Type:          input.Type,
		PaymentMode:   mode,
	}
	if input.Notes != "" {
		notes := input.Notes
		t.Notes = &notes
	}
	if input.ProofURL != "" {
		proof := input.ProofURL
		t.ProofURL = &proof
	}

	// 2. Lock the case, authorize, write both rows
	err := s.store.Atomic(ctx, func(tx *repositories.Store) error {
		var err error
		c, err = tx.Cases.GetByIDForUpdate(ctx, input.CaseID)
		if err != nil {
			return caseLookupError(err, input.CaseID)
		}
		if !visibility.CanRecordTransaction(p, c.Ref(), input.ProofURL) {
			return domain.Forbidden("you cannot record transactions on this case")
		}
		if !c.BalanceWithinBounds() {
			return domain.InvariantViolation(fmt.Sprintf(
				"case %d balance %s is outside [0, %s]", c.ID, formatMoney(c.AmountPending), formatMoney(c.AmountLent)))
		}

		t.LenderID = c.LenderID
		t.BorrowerEmail = c.BorrowerEmail

		if t.Type == domain.TransactionTypePayment {
			t.AppliedAmount = decimal.Min(t.Amount, c.AmountPending)
			c.AmountPending = c.AmountPending.Sub(t.AppliedAmount)
			if c.AmountPending.IsZero() && c.Status != domain.CaseStatusCompleted {
				c.Status = domain.CaseStatusCompleted
				settled = true
			}
		}

		if err := tx.Transactions.Create(ctx, t); err != nil {
			return err
		}
		if t.Type == domain.TransactionTypePayment {
			return tx.Cases.Update(ctx, c)
		}
		return nil
	})
	if err != nil {
		return nil, storageError(err)
	}

	s.log.Info("transaction recorded",
		zap.Uint("transaction_id", t.ID),
		zap.Uint("case_id", c.ID),
		zap.Uint("principal_id", p.UserID),
		zap.String("type", string(t.Type)),
		zap.String("amount", formatMoney(t.Amount)),
		zap.String("applied", formatMoney(t.AppliedAmount)),
	)

	// 3. Tell the borrower after commit
	switch {
	case settled:
		s.notifier.Notify(ctx, NotifyRequest{
			TargetEmail:   c.BorrowerEmail,
			TargetPhone:   &c.BorrowerPhone,
			Title:         "Loan settled",
			Message:       fmt.Sprintf("Thank you. Your loan of %s is fully paid.", formatMoney(c.AmountLent)),
			Severity:      domain.AlertSeverityInfo,
			RelatedCaseID: &c.ID,
		})
	case t.Type == domain.TransactionTypePayment:
		s.notifier.Notify(ctx, NotifyRequest{
			TargetEmail:   c.BorrowerEmail,
			TargetPhone:   &c.BorrowerPhone,
			Title:         "Payment received",
			Message:       fmt.Sprintf("We received %s. Amount pending: %s.", formatMoney(t.Amount), formatMoney(c.AmountPending)),
			Severity:      domain.AlertSeverityInfo,
			RelatedCaseID: &c.ID,
		})
	}

	return t, nil
}

// RevertTransaction deletes a transaction and gives back exactly the amount it
// took off the balance. A settled case with money owed again becomes ACTIVE.
func (s *LedgerService) RevertTransaction(ctx context.Context, p domain.Principal, id uint) (*models.Case, error) {
	if !visibility.CanRevertTransaction(p) {
		return nil, domain.Forbidden("only administrators can revert transactions")
	}

	ctx, cancel := storageContext(ctx, s.timeout)
	defer cancel()

	var c *models.Case
	var t *models.Transaction
	var reopened bool
	err := s.store.Atomic(ctx, func(tx *repositories.Store) error {
		notFound := func(err error) error {
			if repositories.IsNotFound(err) {
				return domain.NotFound(fmt.Sprintf("transaction %d not found", id))
			}
			return err
		}

		current, err := tx.Transactions.GetByID(ctx, id)
		if err != nil {
			return notFound(err)
		}

		c, err = tx.Cases.GetByIDForUpdate(ctx, current.CaseID)
		if err != nil {
			return caseLookupError(err, current.CaseID)
		}

		// Re-read under the case lock: a concurrent revert may have removed it meanwhile.
		t, err = tx.Transactions.GetByIDForUpdate(ctx, id)
		if err != nil {
			return notFound(err)
		}

		if t.Type == domain.TransactionTypePayment {
			restored := c.AmountPending.Add(t.AppliedAmount)
			if restored.GreaterThan(c.AmountLent) || restored.IsNegative() {
				return domain.InvariantViolation(fmt.Sprintf(
					"reverting %s would leave case %d with %s pending of %s lent",
					formatMoney(t.AppliedAmount), c.ID, formatMoney(restored), formatMoney(c.AmountLent)))
			}
			c.AmountPending = restored
			if c.Status == domain.CaseStatusCompleted && restored.IsPositive() {
				c.Status = domain.CaseStatusActive
				reopened = true
			}
			if err := tx.Cases.Update(ctx, c); err != nil {
				return err
			}
		}

		if err := tx.Transactions.Delete(ctx, t.ID); err != nil {
			return notFound(err)
		}
		return writeAudit(ctx, tx, models.AuditTransactionRevert, &c.ID, p.UserID, map[string]string{
			"reference": t.Reference,
			"type":      string(t.Type),
			"amount":    formatMoney(t.Amount),
			"applied":   formatMoney(t.AppliedAmount),
		})
	})
	if err != nil {
		if repositories.IsDuplicateKey(err) {
			return nil, domain.DuplicateActiveCase("cannot reopen: borrower already has another open case")
		}
		return nil, storageError(err)
	}

	s.log.Info("transaction reverted",
		zap.Uint("transaction_id", id),
		zap.Uint("case_id", c.ID),
		zap.Uint("principal_id", p.UserID),
		zap.Bool("reopened", reopened),
	)
	return c, nil
}

// ListTransactionsVisibleTo lists one case's transactions, or every transaction in the
// principal's scope when no case is given
func (s *LedgerService) ListTransactionsVisibleTo(ctx context.Context, p domain.Principal, input *ListTransactionsInput) (*ListTransactionsOutput, error) {
	if input == nil {
		input = &ListTransactionsInput{}
	}

	ctx, cancel := storageContext(ctx, s.timeout)
	defer cancel()

	params := pagination.New(input.Page, input.Limit)

	if input.CaseID != nil {
		c, err := s.store.Cases.GetByID(ctx, *input.CaseID)
		if err != nil {
			return nil, caseLookupError(err, *input.CaseID)
		}
		if !visibility.CanView(p, c.Ref()) {
			return nil, domain.Forbidden("you do not have access to this case")
		}

		all, err := s.store.Transactions.ListByCase(ctx, c.ID)
		if err != nil {
			return nil, storageError(err)
		}
		start, end := params.Window(len(all))
		return &ListTransactionsOutput{
			Transactions: all[start:end],
			Meta:         pagination.GetMeta(params, int64(len(all))),
		}, nil
	}

	txs, total, err := s.store.Transactions.List(ctx, visibility.ScopeTransactions(p), params.Offset, params.Limit)
	if err != nil {
		return nil, storageError(err)
	}
	return &ListTransactionsOutput{
		Transactions: txs,
		Meta:         pagination.GetMeta(params, total),
	}, nil
}

// VerifyTransaction marks a transaction as checked by an administrator
func (s *LedgerService) VerifyTransaction(ctx context.Context, p domain.Principal, id uint) (*models.Transaction, error) {
	if !visibility.CanVerifyTransaction(p) {
		return nil, domain.Forbidden("only administrators can verify transactions")
	}

	ctx, cancel := storageContext(ctx, s.timeout)
	defer cancel()

	t, err := s.store.Transactions.GetByID(ctx, id)
	if err != nil {
		if repositories.IsNotFound(err) {
			return nil, domain.NotFound(fmt.Sprintf("transaction %d not found", id))
		}
		return nil, storageError(err)
	}
	if err := s.store.Transactions.SetVerified(ctx, id, true); err != nil {
		return nil, storageError(err)
	}
	t.IsVerifiedByAdmin = true

	s.log.Info("transaction verified", zap.Uint("transaction_id", id), zap.Uint("principal_id", p.UserID))
	return t, nil
}
