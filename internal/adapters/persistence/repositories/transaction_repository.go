package repositories

import (
	"context"

	"royal-collector/internal/adapters/persistence/models"
	"royal-collector/internal/core/domain"
	"royal-collector/internal/core/visibility"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// transactionRepository implements TransactionRepository interface
type transactionRepository struct {
	db *gorm.DB
}

// NewTransactionRepository creates a new transaction repository
func NewTransactionRepository(db *gorm.DB) TransactionRepository {
	return &transactionRepository{db: db}
}

// Create creates a new transaction
func (r *transactionRepository) Create(ctx context.Context, tx *models.Transaction) error {
	tx.BorrowerEmail = domain.NormalizeEmail(tx.BorrowerEmail)
	return r.db.WithContext(ctx).Create(tx).Error
}

// GetByID gets a transaction by ID
func (r *transactionRepository) GetByID(ctx context.Context, id uint) (*models.Transaction, error) {
	var tx models.Transaction
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&tx).Error
	if err != nil {
		return nil, err
	}
	return &tx, nil
}

// GetByIDForUpdate gets a transaction by ID holding a row lock
func (r *transactionRepository) GetByIDForUpdate(ctx context.Context, id uint) (*models.Transaction, error) {
	var tx models.Transaction
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&tx).Error
	if err != nil {
		return nil, err
	}
	return &tx, nil
}

// ListByCase gets the ledger of one case (History), newest first
func (r *transactionRepository) ListByCase(ctx context.Context, caseID uint) ([]*models.Transaction, error) {
	var transactions []*models.Transaction
	err := r.db.WithContext(ctx).
		Where("case_id = ?", caseID).
		Order("created_at DESC").
		Order("id DESC").
		Find(&transactions).Error
	return transactions, err
}

// List lists the transactions matching filter, newest first
func (r *transactionRepository) List(ctx context.Context, filter visibility.TransactionFilter, offset, limit int) ([]*models.Transaction, int64, error) {
	var transactions []*models.Transaction
	var total int64

	query := r.db.WithContext(ctx).
		Model(&models.Transaction{}).
		Scopes(TransactionScope(filter)).
		Session(&gorm.Session{})

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.
		Order("created_at DESC").
		Order("id DESC").
		Offset(offset).
		Limit(limit).
		Find(&transactions).Error

	return transactions, total, err
}

// SetVerified sets the admin verification flag
func (r *transactionRepository) SetVerified(ctx context.Context, id uint, verified bool) error {
	return r.db.WithContext(ctx).
		Model(&models.Transaction{}).
		Where("id = ?", id).
		Update("is_verified_by_admin", verified).Error
}

// Delete removes a transaction. A row that is already gone is reported as
// gorm.ErrRecordNotFound so a concurrent second delete rolls back.
func (r *transactionRepository) Delete(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Delete(&models.Transaction{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// DeleteByCase removes every transaction of a case
func (r *transactionRepository) DeleteByCase(ctx context.Context, caseID uint) error {
	return r.db.WithContext(ctx).Where("case_id = ?", caseID).Delete(&models.Transaction{}).Error
}
