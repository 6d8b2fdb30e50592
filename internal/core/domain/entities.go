package domain

import "strings"

// Role represents user role in the system
type Role string

const (
	RoleSuperAdmin   Role = "SUPER_ADMIN"
	RoleAdmin        Role = "ADMIN"
	RoleTeamWorker   Role = "TEAM_WORKER"
	RoleVerifiedUser Role = "VERIFIED_USER"
	RoleUser         Role = "USER"
)

// IsAdmin reports whether the role belongs to the admin privilege set
func (r Role) IsAdmin() bool {
	return r == RoleSuperAdmin || r == RoleAdmin
}

// Valid reports whether r is a known role
func (r Role) Valid() bool {
	switch r {
	case RoleSuperAdmin, RoleAdmin, RoleTeamWorker, RoleVerifiedUser, RoleUser:
		return true
	}
	return false
}

// Rank orders roles by privilege. Higher is more privileged.
func (r Role) Rank() int {
	switch r {
	case RoleSuperAdmin:
		return 5
	case RoleAdmin:
		return 4
	case RoleTeamWorker:
		return 3
	case RoleVerifiedUser:
		return 2
	case RoleUser:
		return 1
	}
	return 0
}

// CaseStatus represents the lifecycle state of a case
type CaseStatus string

const (
	CaseStatusPendingVerification CaseStatus = "PENDING_VERIFICATION"
	CaseStatusActive              CaseStatus = "ACTIVE"
	CaseStatusCompleted           CaseStatus = "COMPLETED"
	CaseStatusRejected            CaseStatus = "REJECTED"
	CaseStatusDisputed            CaseStatus = "DISPUTED"
)

// Valid reports whether s is a known case status
func (s CaseStatus) Valid() bool {
	switch s {
	case CaseStatusPendingVerification, CaseStatusActive, CaseStatusCompleted,
		CaseStatusRejected, CaseStatusDisputed:
		return true
	}
	return false
}

// IsTerminal reports whether the case no longer counts as open for its borrower
func (s CaseStatus) IsTerminal() bool {
	return s == CaseStatusCompleted || s == CaseStatusRejected
}

// TransactionType represents the kind of ledger event
type TransactionType string

const (
	TransactionTypePayment      TransactionType = "PAYMENT"
	TransactionTypeDisbursement TransactionType = "DISBURSEMENT"
)

// Valid reports whether t is a known transaction type
func (t TransactionType) Valid() bool {
	return t == TransactionTypePayment || t == TransactionTypeDisbursement
}

// DefaultPaymentMode is used when a transaction does not name one
const DefaultPaymentMode = "CASH"

// AlertSeverity represents how urgent an alert is
type AlertSeverity string

const (
	AlertSeverityInfo     AlertSeverity = "INFO"
	AlertSeverityWarning  AlertSeverity = "WARNING"
	AlertSeverityCritical AlertSeverity = "CRITICAL"
)

// Valid reports whether s is a known severity
func (s AlertSeverity) Valid() bool {
	return s == AlertSeverityInfo || s == AlertSeverityWarning || s == AlertSeverityCritical
}

// AlertStatus represents the delivery state of an alert
type AlertStatus string

const (
	AlertStatusPending AlertStatus = "PENDING"
	AlertStatusSent    AlertStatus = "SENT"
	AlertStatusFailed  AlertStatus = "FAILED"
	AlertStatusRead    AlertStatus = "READ"
)

// Principal is the authenticated actor behind a core operation
type Principal struct {
	UserID uint
	Email  string
	Role   Role
}

// IsAdmin reports whether the principal holds admin privilege
func (p Principal) IsAdmin() bool {
	return p.Role.IsAdmin()
}

// NormalizeEmail lower-cases and trims an e-mail address
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// NormalizePhone strips spaces, dashes and brackets from a phone number
func NormalizePhone(phone string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '-', '(', ')', '.':
			return -1
		}
		return r
	}, strings.TrimSpace(phone))
}
