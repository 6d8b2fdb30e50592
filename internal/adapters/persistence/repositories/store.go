package repositories

import (
	"context"

	"gorm.io/gorm"
)

// Store groups the repositories that share one database handle
type Store struct {
	db           *gorm.DB
	Users        UserRepository
	Cases        CaseRepository
	Transactions TransactionRepository
	Alerts       AlertRepository
	Audit        AuditLogRepository
}

// NewStore creates repositories bound to db
func NewStore(db *gorm.DB) *Store {
	return &Store{
		db:           db,
		Users:        NewUserRepository(db),
		Cases:        NewCaseRepository(db),
		Transactions: NewTransactionRepository(db),
		Alerts:       NewAlertRepository(db),
		Audit:        NewAuditLogRepository(db),
	}
}

// DB returns the underlying handle
func (s *Store) DB() *gorm.DB {
	return s.db
}

// Atomic runs fn inside one database transaction. The Store passed to fn is bound to
// that transaction; returning an error from fn rolls every write back.
func (s *Store) Atomic(ctx context.Context, fn func(tx *Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewStore(tx))
	})
}
