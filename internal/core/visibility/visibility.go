// Package visibility decides which principals may see or change a case and
// builds the storage filters that restrict list queries to what a principal may see.
//
// Every role check for cases, transactions and alerts lives here. Callers resolve
// the case first: an absent case is NotFound, a present but hidden one is Forbidden.
package visibility

import (
	"strings"

	"royal-collector/internal/core/domain"
)

// CaseRef is the part of a case that access decisions depend on
type CaseRef struct {
	LenderID         uint
	AssignedWorkerID *uint
	BorrowerEmail    string
	Status           domain.CaseStatus
}

func (c CaseRef) isLender(p domain.Principal) bool {
	return p.UserID != 0 && c.LenderID == p.UserID
}

func (c CaseRef) isAssignedWorker(p domain.Principal) bool {
	return p.Role == domain.RoleTeamWorker && c.AssignedWorkerID != nil && *c.AssignedWorkerID == p.UserID
}

func (c CaseRef) isBorrower(p domain.Principal) bool {
	email := domain.NormalizeEmail(p.Email)
	return email != "" && strings.EqualFold(email, domain.NormalizeEmail(c.BorrowerEmail))
}

// CanView applies the first matching rule: admins see everything, workers see cases
// assigned to them or lent by them, everyone else sees cases they lent or borrow on.
func CanView(p domain.Principal, c CaseRef) bool {
	switch {
	case p.IsAdmin():
		return true
	case p.Role == domain.RoleTeamWorker:
		return c.isAssignedWorker(p) || c.isLender(p)
	case p.Role.Valid():
		return c.isLender(p) || c.isBorrower(p)
	}
	return false
}

// CanMutateStatus covers approval, rejection and manual balance overrides
func CanMutateStatus(p domain.Principal) bool {
	return p.IsAdmin()
}

// CanAssignWorker reports whether p may assign or reassign a field worker
func CanAssignWorker(p domain.Principal) bool {
	return p.IsAdmin()
}

// CanRecordTransaction allows admins, the lender, the assigned worker, and a borrower
// submitting proof of payment on their own case.
func CanRecordTransaction(p domain.Principal, c CaseRef, proofURL string) bool {
	if p.IsAdmin() {
		return true
	}
	if c.isLender(p) || c.isAssignedWorker(p) {
		return true
	}
	return strings.TrimSpace(proofURL) != "" && c.isBorrower(p)
}

// CanRevertTransaction reports whether p may reverse a ledger entry
func CanRevertTransaction(p domain.Principal) bool {
	return p.IsAdmin()
}

// CanVerifyTransaction reports whether p may mark a transaction as checked
func CanVerifyTransaction(p domain.Principal) bool {
	return p.IsAdmin()
}

// CanDelete lets admins delete any case and lenders delete cases that never went live or are closed.
func CanDelete(p domain.Principal, c CaseRef) bool {
	if p.IsAdmin() {
		return true
	}
	if !c.isLender(p) {
		return false
	}
	switch c.Status {
	case domain.CaseStatusCompleted, domain.CaseStatusRejected, domain.CaseStatusPendingVerification:
		return true
	}
	return false
}

// CanManageAlerts reports whether p may create or stop alerts and see all of them
func CanManageAlerts(p domain.Principal) bool {
	return p.IsAdmin() || p.Role == domain.RoleTeamWorker
}

// CanManageUsers reports whether p may list, edit, verify or delete other users
func CanManageUsers(p domain.Principal) bool {
	return p.IsAdmin()
}

// CaseFilter restricts a case query. All disables filtering; otherwise a case matches
// when any of the set predicates holds. A filter with nothing set matches no case.
type CaseFilter struct {
	All              bool
	LenderID         *uint
	AssignedWorkerID *uint
	BorrowerEmail    string
}

// Empty reports whether the filter can match nothing
func (f CaseFilter) Empty() bool {
	return !f.All && f.LenderID == nil && f.AssignedWorkerID == nil && f.BorrowerEmail == ""
}

// TransactionFilter restricts a transaction query the same way CaseFilter does.
// AssignedWorkerID matches transactions on cases assigned to that worker.
type TransactionFilter struct {
	All              bool
	PerformedByID    *uint
	LenderID         *uint
	AssignedWorkerID *uint
	BorrowerEmail    string
}

// Empty reports whether the filter can match nothing
func (f TransactionFilter) Empty() bool {
	return !f.All && f.PerformedByID == nil && f.LenderID == nil &&
		f.AssignedWorkerID == nil && f.BorrowerEmail == ""
}

// AlertFilter restricts an alert query
type AlertFilter struct {
	All         bool
	TargetEmail string
}

func uintPtr(v uint) *uint {
	return &v
}

// ScopeCases returns the filter matching exactly the cases CanView allows for p
func ScopeCases(p domain.Principal) CaseFilter {
	switch {
	case p.IsAdmin():
		return CaseFilter{All: true}
	case p.UserID == 0 || !p.Role.Valid():
		return CaseFilter{}
	case p.Role == domain.RoleTeamWorker:
		return CaseFilter{
			LenderID:         uintPtr(p.UserID),
			AssignedWorkerID: uintPtr(p.UserID),
		}
	}
	return CaseFilter{
		LenderID:      uintPtr(p.UserID),
		BorrowerEmail: domain.NormalizeEmail(p.Email),
	}
}

// ScopeTransactions returns the filter for transactions p may list. A team worker
// keeps seeing the payments they recorded after being reassigned away from the case.
func ScopeTransactions(p domain.Principal) TransactionFilter {
	switch {
	case p.IsAdmin():
		return TransactionFilter{All: true}
	case p.UserID == 0 || !p.Role.Valid():
		return TransactionFilter{}
	case p.Role == domain.RoleTeamWorker:
		return TransactionFilter{
			PerformedByID:    uintPtr(p.UserID),
			LenderID:         uintPtr(p.UserID),
			AssignedWorkerID: uintPtr(p.UserID),
		}
	}
	return TransactionFilter{
		LenderID:      uintPtr(p.UserID),
		BorrowerEmail: domain.NormalizeEmail(p.Email),
	}
}

// ScopeCollections returns the filter for the payments counted in p's collection
// report: administrators see all, team workers what they recorded, everyone else
// the payments on cases they lent.
func ScopeCollections(p domain.Principal) TransactionFilter {
	switch {
	case p.IsAdmin():
		return TransactionFilter{All: true}
	case p.UserID == 0 || !p.Role.Valid():
		return TransactionFilter{}
	case p.Role == domain.RoleTeamWorker:
		return TransactionFilter{PerformedByID: uintPtr(p.UserID)}
	}
	return TransactionFilter{LenderID: uintPtr(p.UserID)}
}

// ScopeAlerts returns the filter for alerts p may list
func ScopeAlerts(p domain.Principal) AlertFilter {
	if CanManageAlerts(p) {
		return AlertFilter{All: true}
	}
	return AlertFilter{TargetEmail: domain.NormalizeEmail(p.Email)}
}
