package repositories

import (
	"strings"

	"royal-collector/internal/core/domain"
	"royal-collector/internal/core/visibility"

	"gorm.io/gorm"
)

// matchNothing keeps a query valid while returning no rows
func matchNothing(db *gorm.DB) *gorm.DB {
	return db.Where("1 = 0")
}

// anyOf ORs the given conditions into one grouped WHERE clause
func anyOf(db *gorm.DB, conds []string, args []interface{}) *gorm.DB {
	if len(conds) == 0 {
		return matchNothing(db)
	}
	return db.Where("("+strings.Join(conds, " OR ")+")", args...)
}

// CaseScope translates a visibility filter into a gorm scope on the cases table
func CaseScope(f visibility.CaseFilter) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if f.All {
			return db
		}
		var conds []string
		var args []interface{}
		if f.LenderID != nil {
			conds = append(conds, "lender_id = ?")
			args = append(args, *f.LenderID)
		}
		if f.AssignedWorkerID != nil {
			conds = append(conds, "assigned_worker_id = ?")
			args = append(args, *f.AssignedWorkerID)
		}
		if f.BorrowerEmail != "" {
			conds = append(conds, "borrower_email = ?")
			args = append(args, domain.NormalizeEmail(f.BorrowerEmail))
		}
		return anyOf(db, conds, args)
	}
}

// TransactionScope translates a visibility filter into a gorm scope on the transactions table
func TransactionScope(f visibility.TransactionFilter) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if f.All {
			return db
		}
		var conds []string
		var args []interface{}
		if f.PerformedByID != nil {
			conds = append(conds, "performed_by_id = ?")
			args = append(args, *f.PerformedByID)
		}
		if f.LenderID != nil {
			conds = append(conds, "lender_id = ?")
			args = append(args, *f.LenderID)
		}
		if f.AssignedWorkerID != nil {
			conds = append(conds, "case_id IN (SELECT id FROM cases WHERE assigned_worker_id = ?)")
			args = append(args, *f.AssignedWorkerID)
		}
		if f.BorrowerEmail != "" {
			conds = append(conds, "borrower_email = ?")
			args = append(args, domain.NormalizeEmail(f.BorrowerEmail))
		}
		return anyOf(db, conds, args)
	}
}

// AlertScope translates a visibility filter into a gorm scope on the alerts table
func AlertScope(f visibility.AlertFilter) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if f.All {
			return db
		}
		if f.TargetEmail == "" {
			return matchNothing(db)
		}
		return db.Where("target_email = ?", domain.NormalizeEmail(f.TargetEmail))
	}
}
