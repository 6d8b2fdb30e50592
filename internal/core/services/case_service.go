package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"royal-collector/internal/adapters/persistence/models"
	"royal-collector/internal/adapters/persistence/repositories"
	"royal-collector/internal/core/domain"
	"royal-collector/internal/core/visibility"
	"royal-collector/internal/pkg/lock"
	"royal-collector/internal/pkg/pagination"
	"royal-collector/internal/pkg/validate"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// CaseService manages the case lifecycle
type CaseService struct {
	store    *repositories.Store
	locker   lock.Locker
	notifier Notifier
	log      *zap.Logger
	timeout  time.Duration
}

// NewCaseService creates a new case service
func NewCaseService(
	store *repositories.Store,
	locker lock.Locker,
	notifier Notifier,
	log *zap.Logger,
	timeout time.Duration,
) *CaseService {
	if locker == nil {
		locker = lock.NewLocalLocker()
	}
	if notifier == nil {
		notifier = NopNotifier{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &CaseService{
		store:    store,
		locker:   locker,
		notifier: notifier,
		log:      log,
		timeout:  timeout,
	}
}

// CreateCaseInput represents create case input
type CreateCaseInput struct {
	BorrowerName     string          `json:"borrower_name" validate:"required,max=100"`
	BorrowerEmail    string          `json:"borrower_email" validate:"required,email,max=100"`
	BorrowerPhone    string          `json:"borrower_phone" validate:"required,max=20"`
	AmountLent       decimal.Decimal `json:"amount_lent" validate:"gte=0"`
	InterestRate     decimal.Decimal `json:"interest_rate" validate:"gte=0,lte=100"`
	DueDate          *time.Time      `json:"due_date,omitempty"`
	BankName         string          `json:"bank_name,omitempty" validate:"max=100"`
	AccountNumber    string          `json:"account_number,omitempty" validate:"max=50"`
	IFSCCode         string          `json:"ifsc_code,omitempty" validate:"max=20"`
	ProofDocuments   []string        `json:"proof_documents,omitempty" validate:"max=20,dive,max=500"`
	AssignedWorkerID *uint           `json:"assigned_worker_id,omitempty"`
	// RequestKey makes retries of the same create return the first result
	RequestKey string `json:"-" validate:"max=64"`
}

// UpdateCaseInput represents an administrative case patch. Nil fields are left unchanged.
type UpdateCaseInput struct {
	Status           *domain.CaseStatus `json:"status,omitempty"`
	AdminNotes       *string            `json:"admin_notes,omitempty"`
	AmountPending    *decimal.Decimal   `json:"amount_pending,omitempty" validate:"omitempty,gte=0"`
	AssignedWorkerID *uint              `json:"assigned_worker_id,omitempty"`
	DueDate          *time.Time         `json:"due_date,omitempty"`
}

// ListCasesInput represents list input
type ListCasesInput struct {
	Page   int
	Limit  int
	Status domain.CaseStatus
}

// ListCasesOutput represents list output
type ListCasesOutput struct {
	Cases []*models.Case   `json:"cases"`
	Meta  *pagination.Meta `json:"meta"`
}

func borrowerLockKeys(email, phone string) []string {
	return []string{
		"lock:borrower:email:" + email,
		"lock:borrower:phone:" + phone,
	}
}

// CreateCase opens a new case in PENDING_VERIFICATION with the full amount pending.
// A borrower whose email or phone already belongs to an open case is rejected.
func (s *CaseService) CreateCase(ctx context.Context, p domain.Principal, input *CreateCaseInput) (*models.Case, error) {
	// 1. Validate input
	if p.UserID == 0 || !p.Role.Valid() {
		return nil, domain.ErrUnauthorized
	}
	if err := validate.Struct(input); err != nil {
		return nil, err
	}
	email := domain.NormalizeEmail(input.BorrowerEmail)
	phone := domain.NormalizePhone(input.BorrowerPhone)
	if phone == "" {
		return nil, domain.InvalidInput("borrower_phone is required")
	}
	if !isMoney(input.AmountLent) {
		return nil, domain.InvalidInput("amount_lent must have at most 2 decimal places")
	}

	ctx, cancel := storageContext(ctx, s.timeout)
	defer cancel()

	// 2. Worker assignment is an administrative decision
	if input.AssignedWorkerID != nil {
		if !visibility.CanAssignWorker(p) {
			return nil, domain.Forbidden("only administrators can assign a worker")
		}
		if err := requireWorker(ctx, s.store.Users, *input.AssignedWorkerID); err != nil {
			return nil, err
		}
	}

	// 3. Replayed request
	if input.RequestKey != "" {
		existing, err := s.store.Cases.FindByRequestKey(ctx, p.UserID, input.RequestKey)
		if err == nil {
			return existing, nil
		}
		if !repositories.IsNotFound(err) {
			return nil, storageError(err)
		}
	}

	c := &models.Case{
		LenderID:         p.UserID,
		BorrowerName:     input.BorrowerName,
		BorrowerEmail:    email,
		BorrowerPhone:    phone,
		AssignedWorkerID: input.AssignedWorkerID,
		AmountLent:       input.AmountLent,
		AmountPending:    input.AmountLent,
		InterestRate:     input.InterestRate,
		DueDate:          input.DueDate,
		BankName:         input.BankName,
		AccountNumber:    input.AccountNumber,
		IFSCCode:         input.IFSCCode,
		ProofDocuments:   models.StringList(input.ProofDocuments),
		Status:           domain.CaseStatusPendingVerification,
	}
	if input.RequestKey != "" {
		key := input.RequestKey
		c.RequestKey = &key
	}

	// 4. Check and insert under the borrower locks
	var replay *models.Case
	err := lock.WithLocks(ctx, s.locker, borrowerLockKeys(email, phone), func(ctx context.Context) error {
		return s.store.Atomic(ctx, func(tx *repositories.Store) error {
			if c.RequestKey != nil {
				existing, err := tx.Cases.FindByRequestKey(ctx, p.UserID, *c.RequestKey)
				if err == nil {
					replay = existing
					return nil
				}
				if !repositories.IsNotFound(err) {
					return err
				}
			}

			open, err := tx.Cases.FindOpenByContact(ctx, email, phone)
			if err == nil {
				return domain.DuplicateActiveCase(fmt.Sprintf("borrower already has open case #%d", open.ID))
			}
			if !repositories.IsNotFound(err) {
				return err
			}

			return tx.Cases.Create(ctx, c)
		})
	})
	if err != nil {
		if repositories.IsDuplicateKey(err) {
			// Another instance won the race past the lock
			if c.RequestKey != nil {
				if existing, ferr := s.store.Cases.FindByRequestKey(ctx, p.UserID, *c.RequestKey); ferr == nil {
					return existing, nil
				}
			}
			return nil, domain.DuplicateActiveCase("borrower already has an open case")
		}
		return nil, storageError(err)
	}
	if replay != nil {
		return replay, nil
	}

	s.log.Info("case created",
		zap.Uint("case_id", c.ID),
		zap.Uint("principal_id", p.UserID),
		zap.String("amount_lent", c.AmountLent.String()),
	)
	return c, nil
}

// GetCase returns a case the principal can see
func (s *CaseService) GetCase(ctx context.Context, p domain.Principal, id uint) (*models.Case, error) {
	ctx, cancel := storageContext(ctx, s.timeout)
	defer cancel()

	c, err := s.store.Cases.GetByID(ctx, id)
	if err != nil {
		return nil, caseLookupError(err, id)
	}
	if !visibility.CanView(p, c.Ref()) {
		return nil, domain.Forbidden("you do not have access to this case")
	}
	return c, nil
}

// ListCasesVisibleTo lists the cases in the principal's visibility scope
func (s *CaseService) ListCasesVisibleTo(ctx context.Context, p domain.Principal, input *ListCasesInput) (*ListCasesOutput, error) {
	if input == nil {
		input = &ListCasesInput{}
	}
	if input.Status != "" && !input.Status.Valid() {
		return nil, domain.InvalidInput(fmt.Sprintf("unknown case status %q", input.Status))
	}

	ctx, cancel := storageContext(ctx, s.timeout)
	defer cancel()

	params := pagination.New(input.Page, input.Limit)
	cases, total, err := s.store.Cases.List(ctx, visibility.ScopeCases(p), input.Status, params.Offset, params.Limit)
	if err != nil {
		return nil, storageError(err)
	}

	return &ListCasesOutput{
		Cases: cases,
		Meta:  pagination.GetMeta(params, total),
	}, nil
}

// UpdateCaseStatus applies an administrative patch. Setting REJECTED removes the case
// and returns its final snapshot.
func (s *CaseService) UpdateCaseStatus(ctx context.Context, p domain.Principal, id uint, input *UpdateCaseInput) (*models.Case, error) {
	if !visibility.CanMutateStatus(p) {
		return nil, domain.Forbidden("only administrators can change a case")
	}
	if err := validate.Struct(input); err != nil {
		return nil, err
	}
	if input.Status != nil && !input.Status.Valid() {
		return nil, domain.InvalidInput(fmt.Sprintf("unknown case status %q", *input.Status))
	}
	if input.AmountPending != nil && !isMoney(*input.AmountPending) {
		return nil, domain.InvalidInput("amount_pending must have at most 2 decimal places")
	}

	if input.Status != nil && *input.Status == domain.CaseStatusRejected {
		return s.rejectCase(ctx, p, id, input.AdminNotes)
	}

	ctx, cancel := storageContext(ctx, s.timeout)
	defer cancel()

	var c *models.Case
	var previous domain.CaseStatus
	var override *[2]decimal.Decimal
	err := s.store.Atomic(ctx, func(tx *repositories.Store) error {
		var err error
		c, err = tx.Cases.GetByIDForUpdate(ctx, id)
		if err != nil {
			return caseLookupError(err, id)
		}
		previous = c.Status

		if input.AssignedWorkerID != nil {
			if err := s.reassignWorker(ctx, tx, p, c, *input.AssignedWorkerID); err != nil {
				return err
			}
		}

		if input.AmountPending != nil {
			if input.AmountPending.GreaterThan(c.AmountLent) {
				return domain.InvariantViolation(fmt.Sprintf(
					"amount_pending %s exceeds amount_lent %s", formatMoney(*input.AmountPending), formatMoney(c.AmountLent)))
			}
			override = &[2]decimal.Decimal{c.AmountPending, *input.AmountPending}
			c.AmountPending = *input.AmountPending
			if err := writeAudit(ctx, tx, models.AuditBalanceOverride, &c.ID, p.UserID, map[string]string{
				"from": formatMoney(override[0]),
				"to":   formatMoney(override[1]),
			}); err != nil {
				return err
			}
		}

		if input.Status != nil {
			c.Status = *input.Status
		}
		if input.AdminNotes != nil {
			c.AdminNotes = input.AdminNotes
		}
		if input.DueDate != nil {
			c.DueDate = input.DueDate
		}

		if !c.BalanceWithinBounds() {
			return domain.InvariantViolation("case balance is outside [0, amount_lent]")
		}
		return tx.Cases.Update(ctx, c)
	})
	if err != nil {
		if repositories.IsDuplicateKey(err) {
			return nil, domain.DuplicateActiveCase("borrower already has another open case")
		}
		return nil, storageError(err)
	}

	if override != nil {
		s.log.Warn("case balance overridden",
			zap.Uint("case_id", c.ID),
			zap.Uint("principal_id", p.UserID),
			zap.String("from", formatMoney(override[0])),
			zap.String("to", formatMoney(override[1])),
		)
	}
	if previous != c.Status {
		s.log.Info("case status changed",
			zap.Uint("case_id", c.ID),
			zap.Uint("principal_id", p.UserID),
			zap.String("from", string(previous)),
			zap.String("to", string(c.Status)),
		)
	}
	if previous != domain.CaseStatusActive && c.Status == domain.CaseStatusActive {
		s.notifier.Notify(ctx, NotifyRequest{
			TargetEmail:   c.BorrowerEmail,
			TargetPhone:   &c.BorrowerPhone,
			Title:         "Loan approved",
			Message:       fmt.Sprintf("Your loan of %s has been approved. Amount pending: %s.", formatMoney(c.AmountLent), formatMoney(c.AmountPending)),
			Severity:      domain.AlertSeverityInfo,
			RelatedCaseID: &c.ID,
		})
	}

	return c, nil
}

func (s *CaseService) reassignWorker(ctx context.Context, tx *repositories.Store, p domain.Principal, c *models.Case, workerID uint) error {
	if !visibility.CanAssignWorker(p) {
		return domain.Forbidden("only administrators can assign a worker")
	}
	if workerID == 0 {
		c.AssignedWorkerID = nil
	} else {
		if err := requireWorker(ctx, tx.Users, workerID); err != nil {
			return err
		}
		c.AssignedWorkerID = &workerID
	}
	return writeAudit(ctx, tx, models.AuditWorkerAssigned, &c.ID, p.UserID, map[string]interface{}{
		"worker_id": c.AssignedWorkerID,
	})
}

// rejectCase deletes the case with its ledger and returns the final snapshot
func (s *CaseService) rejectCase(ctx context.Context, p domain.Principal, id uint, notes *string) (*models.Case, error) {
	ctx, cancel := storageContext(ctx, s.timeout)
	defer cancel()

	var c *models.Case
	err := s.store.Atomic(ctx, func(tx *repositories.Store) error {
		var err error
		c, err = tx.Cases.GetByIDForUpdate(ctx, id)
		if err != nil {
			return caseLookupError(err, id)
		}
		if err := tx.Transactions.DeleteByCase(ctx, c.ID); err != nil {
			return err
		}
		if err := tx.Cases.Delete(ctx, c.ID); err != nil {
			return err
		}
		return writeAudit(ctx, tx, models.AuditCaseRejected, &c.ID, p.UserID, caseSnapshot(c))
	})
	if err != nil {
		return nil, storageError(err)
	}

	c.Status = domain.CaseStatusRejected
	if notes != nil {
		c.AdminNotes = notes
	}
	c.SyncActiveKeys()

	s.log.Warn("case rejected and deleted",
		zap.Uint("case_id", c.ID),
		zap.Uint("principal_id", p.UserID),
	)
	s.notifier.Notify(ctx, NotifyRequest{
		TargetEmail:   c.BorrowerEmail,
		TargetPhone:   &c.BorrowerPhone,
		Title:         "Loan request rejected",
		Message:       "Your loan request was reviewed and rejected.",
		Severity:      domain.AlertSeverityWarning,
		RelatedCaseID: &c.ID,
	})
	return c, nil
}

// DeleteCase removes a case together with its transactions
func (s *CaseService) DeleteCase(ctx context.Context, p domain.Principal, id uint) error {
	ctx, cancel := storageContext(ctx, s.timeout)
	defer cancel()

	err := s.store.Atomic(ctx, func(tx *repositories.Store) error {
		c, err := tx.Cases.GetByIDForUpdate(ctx, id)
		if err != nil {
			return caseLookupError(err, id)
		}
		if !visibility.CanDelete(p, c.Ref()) {
			return domain.Forbidden(fmt.Sprintf("a case in status %s cannot be deleted by its lender", c.Status))
		}
		if err := tx.Transactions.DeleteByCase(ctx, c.ID); err != nil {
			return err
		}
		if err := tx.Cases.Delete(ctx, c.ID); err != nil {
			return err
		}
		return writeAudit(ctx, tx, models.AuditCaseDeleted, &c.ID, p.UserID, caseSnapshot(c))
	})
	if err != nil {
		return storageError(err)
	}

	s.log.Info("case deleted", zap.Uint("case_id", id), zap.Uint("principal_id", p.UserID))
	return nil
}

// SendReminder nudges the borrower of a case the principal can see
func (s *CaseService) SendReminder(ctx context.Context, p domain.Principal, id uint, message string) error {
	c, err := s.GetCase(ctx, p, id)
	if err != nil {
		return err
	}
	if c.Status.IsTerminal() {
		return domain.InvalidInput(fmt.Sprintf("case is %s, nothing to remind about", c.Status))
	}

	if message == "" {
		message = fmt.Sprintf("Payment reminder: %s is still pending on your loan.", formatMoney(c.AmountPending))
	}
	s.notifier.Notify(ctx, NotifyRequest{
		TargetEmail:   c.BorrowerEmail,
		TargetPhone:   &c.BorrowerPhone,
		Title:         "Payment reminder",
		Message:       message,
		Severity:      domain.AlertSeverityWarning,
		RelatedCaseID: &c.ID,
	})
	return nil
}

// requireWorker checks that id names an active TEAM_WORKER
func requireWorker(ctx context.Context, users repositories.UserRepository, id uint) error {
	worker, err := users.GetByID(ctx, id)
	if err != nil {
		if repositories.IsNotFound(err) {
			return domain.InvalidReference(fmt.Sprintf("user %d does not exist", id))
		}
		return storageError(err)
	}
	if worker.Role != domain.RoleTeamWorker || !worker.IsActive {
		return domain.InvalidReference(fmt.Sprintf("user %d is not an active team worker", id))
	}
	return nil
}

func caseSnapshot(c *models.Case) map[string]interface{} {
	return map[string]interface{}{
		"lender_id":      c.LenderID,
		"borrower_email": c.BorrowerEmail,
		"borrower_phone": c.BorrowerPhone,
		"amount_lent":    formatMoney(c.AmountLent),
		"amount_pending": formatMoney(c.AmountPending),
		"status":         c.Status,
	}
}

func writeAudit(ctx context.Context, tx *repositories.Store, action string, caseID *uint, performedBy uint, details interface{}) error {
	body, err := json.Marshal(details)
	if err != nil {
		return err
	}
	return tx.Audit.Create(ctx, &models.AuditLog{
		Action:        action,
		CaseID:        caseID,
		PerformedByID: performedBy,
		Details:       string(body),
	})
}
