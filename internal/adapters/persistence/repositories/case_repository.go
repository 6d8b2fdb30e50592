package repositories

import (
	"context"

	"royal-collector/internal/adapters/persistence/models"
	"royal-collector/internal/core/domain"
	"royal-collector/internal/core/visibility"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// caseRepository implements CaseRepository interface
type caseRepository struct {
	db *gorm.DB
}

// NewCaseRepository creates a new case repository
func NewCaseRepository(db *gorm.DB) CaseRepository {
	return &caseRepository{db: db}
}

// Create creates a new case
func (r *caseRepository) Create(ctx context.Context, c *models.Case) error {
	c.BorrowerEmail = domain.NormalizeEmail(c.BorrowerEmail)
	c.BorrowerPhone = domain.NormalizePhone(c.BorrowerPhone)
	if c.Version == 0 {
		c.Version = 1
	}
	c.SyncActiveKeys()
	return r.db.WithContext(ctx).Create(c).Error
}

// GetByID gets a case by ID
func (r *caseRepository) GetByID(ctx context.Context, id uint) (*models.Case, error) {
	var c models.Case
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&c).Error
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// GetByIDForUpdate gets a case by ID holding a row lock.
// Dialects without SELECT ... FOR UPDATE (SQLite) rely on the writer lock of the transaction.
func (r *caseRepository) GetByIDForUpdate(ctx context.Context, id uint) (*models.Case, error) {
	var c models.Case
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&c).Error
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// FindOpenByContact finds a non-terminal case whose borrower email or phone matches
func (r *caseRepository) FindOpenByContact(ctx context.Context, email, phone string) (*models.Case, error) {
	var c models.Case
	err := r.db.WithContext(ctx).
		Where("status NOT IN ?", []domain.CaseStatus{domain.CaseStatusCompleted, domain.CaseStatusRejected}).
		Where("(borrower_email = ? OR borrower_phone = ?)", domain.NormalizeEmail(email), domain.NormalizePhone(phone)).
		Order("id ASC").
		First(&c).Error
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// FindByRequestKey finds a case created by lenderID with the given idempotency key
func (r *caseRepository) FindByRequestKey(ctx context.Context, lenderID uint, key string) (*models.Case, error) {
	var c models.Case
	err := r.db.WithContext(ctx).
		Where("lender_id = ? AND request_key = ?", lenderID, key).
		First(&c).Error
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// Update writes the case if nobody changed it since it was read
func (r *caseRepository) Update(ctx context.Context, c *models.Case) error {
	expected := c.Version
	c.Version = expected + 1
	c.SyncActiveKeys()

	result := r.db.WithContext(ctx).
		Model(c).
		Where("version = ?", expected).
		Select("*").
		Omit("id", "created_at").
		Updates(c)
	if result.Error != nil {
		c.Version = expected
		return result.Error
	}
	if result.RowsAffected == 0 {
		c.Version = expected
		return ErrStaleVersion
	}
	return nil
}

// Delete hard deletes a case
func (r *caseRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Delete(&models.Case{}, id).Error
}

// List lists the cases matching filter, newest first
func (r *caseRepository) List(ctx context.Context, filter visibility.CaseFilter, status domain.CaseStatus, offset, limit int) ([]*models.Case, int64, error) {
	var cases []*models.Case
	var total int64

	query := r.db.WithContext(ctx).Model(&models.Case{}).Scopes(CaseScope(filter))
	if status != "" {
		query = query.Where("status = ?", status)
	}
	query = query.Session(&gorm.Session{})

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.
		Order("created_at DESC").
		Order("id DESC").
		Offset(offset).
		Limit(limit).
		Find(&cases).Error

	return cases, total, err
}

// ListActiveWithBalance lists ACTIVE cases that still have money outstanding
func (r *caseRepository) ListActiveWithBalance(ctx context.Context) ([]*models.Case, error) {
	var cases []*models.Case
	err := r.db.WithContext(ctx).
		Where("status = ? AND amount_pending > 0", domain.CaseStatusActive).
		Order("id ASC").
		Find(&cases).Error
	return cases, err
}
