package repositories

import (
	"context"
	"time"

	"royal-collector/internal/adapters/persistence/models"
	"royal-collector/internal/core/domain"
	"royal-collector/internal/core/visibility"

	"gorm.io/gorm"
)

// alertRepository implements AlertRepository interface
type alertRepository struct {
	db *gorm.DB
}

// NewAlertRepository creates a new alert repository
func NewAlertRepository(db *gorm.DB) AlertRepository {
	return &alertRepository{db: db}
}

// Create creates a new alert
func (r *alertRepository) Create(ctx context.Context, alert *models.Alert) error {
	alert.TargetEmail = domain.NormalizeEmail(alert.TargetEmail)
	return r.db.WithContext(ctx).Create(alert).Error
}

// GetByID gets an alert by ID
func (r *alertRepository) GetByID(ctx context.Context, id uint) (*models.Alert, error) {
	var alert models.Alert
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&alert).Error
	if err != nil {
		return nil, err
	}
	return &alert, nil
}

// List lists the alerts matching filter, newest first
func (r *alertRepository) List(ctx context.Context, filter visibility.AlertFilter, offset, limit int) ([]*models.Alert, int64, error) {
	var alerts []*models.Alert
	var total int64

	query := r.db.WithContext(ctx).
		Model(&models.Alert{}).
		Scopes(AlertScope(filter)).
		Session(&gorm.Session{})

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.
		Order("created_at DESC").
		Order("id DESC").
		Offset(offset).
		Limit(limit).
		Find(&alerts).Error

	return alerts, total, err
}

// ListDue lists pending alerts whose schedule has passed
func (r *alertRepository) ListDue(ctx context.Context, before time.Time, limit int) ([]*models.Alert, error) {
	var alerts []*models.Alert
	err := r.db.WithContext(ctx).
		Where("status = ? AND scheduled_for <= ?", domain.AlertStatusPending, before).
		Order("scheduled_for ASC").
		Order("id ASC").
		Limit(limit).
		Find(&alerts).Error
	return alerts, err
}

// ExistsForCaseSince checks whether an alert about caseID was created after since
func (r *alertRepository) ExistsForCaseSince(ctx context.Context, caseID uint, since time.Time) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Alert{}).
		Where("related_case_id = ? AND created_at >= ?", caseID, since).
		Count(&count).Error
	return count > 0, err
}

// UpdateStatus sets the delivery status of an alert
func (r *alertRepository) UpdateStatus(ctx context.Context, id uint, status domain.AlertStatus, sentAt *time.Time) error {
	updates := map[string]interface{}{"status": status}
	if sentAt != nil {
		updates["sent_at"] = *sentAt
	}
	return r.db.WithContext(ctx).Model(&models.Alert{}).Where("id = ?", id).Updates(updates).Error
}

// CompleteDelivery records a delivery outcome on an alert that is still PENDING.
// It reports false when the alert left PENDING meanwhile, e.g. it was stopped.
func (r *alertRepository) CompleteDelivery(ctx context.Context, id uint, status domain.AlertStatus, sentAt *time.Time) (bool, error) {
	updates := map[string]interface{}{"status": status}
	if sentAt != nil {
		updates["sent_at"] = *sentAt
	}
	result := r.db.WithContext(ctx).
		Model(&models.Alert{}).
		Where("id = ? AND status = ?", id, domain.AlertStatusPending).
		Updates(updates)
	return result.RowsAffected > 0, result.Error
}
