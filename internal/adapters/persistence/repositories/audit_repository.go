package repositories

import (
	"context"

	"royal-collector/internal/adapters/persistence/models"

	"gorm.io/gorm"
)

// auditLogRepository implements AuditLogRepository interface
type auditLogRepository struct {
	db *gorm.DB
}

// NewAuditLogRepository creates a new audit log repository
func NewAuditLogRepository(db *gorm.DB) AuditLogRepository {
	return &auditLogRepository{db: db}
}

// Create appends an audit entry
func (r *auditLogRepository) Create(ctx context.Context, entry *models.AuditLog) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

// ListByCase lists the audit trail of a case, oldest first
func (r *auditLogRepository) ListByCase(ctx context.Context, caseID uint) ([]*models.AuditLog, error) {
	var entries []*models.AuditLog
	err := r.db.WithContext(ctx).
		Where("case_id = ?", caseID).
		Order("id ASC").
		Find(&entries).Error
	return entries, err
}
