package models

import (
	"time"

	"royal-collector/internal/core/domain"
	"royal-collector/internal/core/visibility"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ============================================================
// Users
// ============================================================

// User represents users table
type User struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	Email       string         `gorm:"uniqueIndex;size:100;not null" json:"email"`
	FullName    string         `gorm:"size:100;not null" json:"full_name"`
	PhoneNumber *string        `gorm:"size:20;index" json:"phone_number"`
	Password    string         `gorm:"size:255;not null" json:"-"`
	Role        domain.Role    `gorm:"size:20;not null;default:'USER'" json:"role"`
	IsActive    bool           `gorm:"not null;default:true" json:"is_active"`
	IsVerified  bool           `gorm:"not null;default:false" json:"is_verified"`
	CreatedAt   time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}

func (User) TableName() string {
	return "users"
}

// Principal returns the identity the core authorizes against
func (u *User) Principal() domain.Principal {
	return domain.Principal{
		UserID: u.ID,
		Email:  domain.NormalizeEmail(u.Email),
		Role:   u.Role,
	}
}

// UserResponse DTO
type UserResponse struct {
	ID          uint        `json:"id"`
	Email       string      `json:"email"`
	FullName    string      `json:"full_name"`
	PhoneNumber *string     `json:"phone_number,omitempty"`
	Role        domain.Role `json:"role"`
	IsActive    bool        `json:"is_active"`
	IsVerified  bool        `json:"is_verified"`
	CreatedAt   time.Time   `json:"created_at"`
}

func (u *User) ToResponse() *UserResponse {
	return &UserResponse{
		ID:          u.ID,
		Email:       u.Email,
		FullName:    u.FullName,
		PhoneNumber: u.PhoneNumber,
		Role:        u.Role,
		IsActive:    u.IsActive,
		IsVerified:  u.IsVerified,
		CreatedAt:   u.CreatedAt,
	}
}

// ============================================================
// Cases
// ============================================================

// Case is a lending agreement between a lender and a borrower.
// ActiveEmailKey and ActivePhoneKey carry the borrower contact while the case is open
// and are NULL once it is terminal, so their unique indexes allow one open case per contact.
type Case struct {
	ID               uint              `gorm:"primaryKey" json:"id"`
	LenderID         uint              `gorm:"not null;index;uniqueIndex:idx_cases_lender_request,priority:1" json:"lender_id"`
	BorrowerName     string            `gorm:"size:100;not null" json:"borrower_name"`
	BorrowerEmail    string            `gorm:"size:100;not null;index" json:"borrower_email"`
	BorrowerPhone    string            `gorm:"size:20;not null;index" json:"borrower_phone"`
	AssignedWorkerID *uint             `gorm:"index" json:"assigned_worker_id"`
	AmountLent       decimal.Decimal   `gorm:"type:decimal(15,2);not null" json:"amount_lent"`
	AmountPending    decimal.Decimal   `gorm:"type:decimal(15,2);not null" json:"amount_pending"`
	InterestRate     decimal.Decimal   `gorm:"type:decimal(5,2);not null" json:"interest_rate"`
	DueDate          *time.Time        `json:"due_date"`
	BankName         string            `gorm:"size:100" json:"bank_name"`
	AccountNumber    string            `gorm:"size:50" json:"account_number"`
	IFSCCode         string            `gorm:"column:ifsc_code;size:20" json:"ifsc_code"`
	ProofDocuments   StringList        `gorm:"type:text" json:"proof_documents"`
	AdminNotes       *string           `gorm:"type:text" json:"admin_notes"`
	Status           domain.CaseStatus `gorm:"size:30;not null;index" json:"status"`
	RequestKey       *string           `gorm:"size:64;uniqueIndex:idx_cases_lender_request,priority:2" json:"-"`
	ActiveEmailKey   *string           `gorm:"size:100;uniqueIndex" json:"-"`
	ActivePhoneKey   *string           `gorm:"size:20;uniqueIndex" json:"-"`
	Version          uint              `gorm:"not null;default:1" json:"version"`
	CreatedAt        time.Time         `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time         `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Case) TableName() string {
	return "cases"
}

// Ref returns the fields access decisions are made on
func (c *Case) Ref() visibility.CaseRef {
	return visibility.CaseRef{
		LenderID:         c.LenderID,
		AssignedWorkerID: c.AssignedWorkerID,
		BorrowerEmail:    c.BorrowerEmail,
		Status:           c.Status,
	}
}

// SyncActiveKeys sets or clears the open-case contact keys from the current status
func (c *Case) SyncActiveKeys() {
	if c.Status.IsTerminal() {
		c.ActiveEmailKey = nil
		c.ActivePhoneKey = nil
		return
	}
	email := c.BorrowerEmail
	phone := c.BorrowerPhone
	c.ActiveEmailKey = &email
	c.ActivePhoneKey = &phone
}

// BalanceWithinBounds reports whether 0 <= AmountPending <= AmountLent
func (c *Case) BalanceWithinBounds() bool {
	return !c.AmountPending.IsNegative() && c.AmountPending.LessThanOrEqual(c.AmountLent)
}

// CaseResponse DTO
type CaseResponse struct {
	ID               uint              `json:"id"`
	LenderID         uint              `json:"lender_id"`
	BorrowerName     string            `json:"borrower_name"`
	BorrowerEmail    string            `json:"borrower_email"`
	BorrowerPhone    string            `json:"borrower_phone"`
	AssignedWorkerID *uint             `json:"assigned_worker_id"`
	AmountLent       decimal.Decimal   `json:"amount_lent"`
	AmountPending    decimal.Decimal   `json:"amount_pending"`
	InterestRate     decimal.Decimal   `json:"interest_rate"`
	DueDate          *time.Time        `json:"due_date,omitempty"`
	BankName         string            `json:"bank_name,omitempty"`
	AccountNumber    string            `json:"account_number,omitempty"`
	IFSCCode         string            `json:"ifsc_code,omitempty"`
	ProofDocuments   []string          `json:"proof_documents"`
	AdminNotes       *string           `json:"admin_notes,omitempty"`
	Status           domain.CaseStatus `json:"status"`
	CreatedAt        time.Time         `json:"created_at"`
	UpdatedAt        time.Time         `json:"updated_at"`
}

func (c *Case) ToResponse() *CaseResponse {
	docs := []string(c.ProofDocuments)
	if docs == nil {
		docs = []string{}
	}
	return &CaseResponse{
		ID:               c.ID,
		LenderID:         c.LenderID,
		BorrowerName:     c.BorrowerName,
		BorrowerEmail:    c.BorrowerEmail,
		BorrowerPhone:    c.BorrowerPhone,
		AssignedWorkerID: c.AssignedWorkerID,
		AmountLent:       c.AmountLent,
		AmountPending:    c.AmountPending,
		InterestRate:     c.InterestRate,
		DueDate:          c.DueDate,
		BankName:         c.BankName,
		AccountNumber:    c.AccountNumber,
		IFSCCode:         c.IFSCCode,
		ProofDocuments:   docs,
		AdminNotes:       c.AdminNotes,
		Status:           c.Status,
		CreatedAt:        c.CreatedAt,
		UpdatedAt:        c.UpdatedAt,
	}
}

// ============================================================
// Ledger
// ============================================================

// Transaction is one ledger event on a case. LenderID and BorrowerEmail are copied
// from the case so visibility filters never need a join.
type Transaction struct {
	ID                uint                   `gorm:"primaryKey" json:"id"`
	Reference         string                 `gorm:"size:36;not null;uniqueIndex" json:"reference"`
	CaseID            uint                   `gorm:"not null;index" json:"case_id"`
	LenderID          uint                   `gorm:"not null;index" json:"lender_id"`
	BorrowerEmail     string                 `gorm:"size:100;not null;index" json:"borrower_email"`
	PerformedByID     uint                   `gorm:"not null;index" json:"performed_by_id"`
	Amount            decimal.Decimal        `gorm:"type:decimal(15,2);not null" json:"amount"`
	AppliedAmount     decimal.Decimal        `gorm:"type:decimal(15,2);not null" json:"applied_amount"`
	Type              domain.TransactionType `gorm:"size:20;not null" json:"type"`
	PaymentMode       string                 `gorm:"size:30;not null;default:'CASH'" json:"payment_mode"`
	Notes             *string                `gorm:"type:text" json:"notes"`
	ProofURL          *string                `gorm:"size:500" json:"proof_url"`
	IsVerifiedByAdmin bool                   `gorm:"not null;default:false" json:"is_verified_by_admin"`
	CreatedAt         time.Time              `gorm:"autoCreateTime;index" json:"created_at"`
}

func (Transaction) TableName() string {
	return "transactions"
}

// ============================================================
// Alerts & Audit
// ============================================================

// Alert is a notification queued for a borrower or user
type Alert struct {
	ID            uint                 `gorm:"primaryKey" json:"id"`
	TargetEmail   string               `gorm:"size:100;not null;index" json:"target_email"`
	TargetUserID  *uint                `gorm:"index" json:"target_user_id"`
	TargetPhone   *string              `gorm:"size:20" json:"target_phone"`
	RelatedCaseID *uint                `gorm:"index" json:"related_case_id"`
	Title         string               `gorm:"size:200;not null" json:"title"`
	Message       string               `gorm:"type:text;not null" json:"message"`
	Severity      domain.AlertSeverity `gorm:"size:20;not null;default:'INFO'" json:"severity"`
	Status        domain.AlertStatus   `gorm:"size:20;not null;default:'PENDING';index" json:"status"`
	ScheduledFor  time.Time            `gorm:"not null;index" json:"scheduled_for"`
	SentAt        *time.Time           `json:"sent_at"`
	CreatedAt     time.Time            `gorm:"autoCreateTime;index" json:"created_at"`
}

func (Alert) TableName() string {
	return "alerts"
}

// AuditLog records privileged mutations. Rows are written in the same
// storage transaction as the change they describe.
type AuditLog struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	Action        string    `gorm:"size:50;not null;index" json:"action"`
	CaseID        *uint     `gorm:"index" json:"case_id"`
	PerformedByID uint      `gorm:"not null;index" json:"performed_by_id"`
	Details       string    `gorm:"type:text" json:"details"`
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (AuditLog) TableName() string {
	return "audit_logs"
}

// Audit actions
const (
	AuditCaseRejected      = "CASE_REJECTED"
	AuditCaseDeleted       = "CASE_DELETED"
	AuditBalanceOverride   = "BALANCE_OVERRIDE"
	AuditWorkerAssigned    = "WORKER_ASSIGNED"
	AuditTransactionRevert = "TRANSACTION_REVERTED"
)

// AutoMigrate creates or updates all tables
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&User{},
		&Case{},
		&Transaction{},
		&Alert{},
		&AuditLog{},
	)
}
