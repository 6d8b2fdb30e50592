package repositories

import (
	"context"
	"time"

	"royal-collector/internal/adapters/persistence/models"
	"royal-collector/internal/core/domain"
	"royal-collector/internal/core/visibility"
)

// UserRepository defines user repository interface
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id uint) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	Update(ctx context.Context, user *models.User) error
	Delete(ctx context.Context, id uint) error
	List(ctx context.Context, role domain.Role, offset, limit int) ([]*models.User, int64, error)
	ListByRole(ctx context.Context, role domain.Role) ([]*models.User, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	CountByRole(ctx context.Context, role domain.Role) (int64, error)
}

// CaseRepository defines case repository interface
type CaseRepository interface {
	Create(ctx context.Context, c *models.Case) error
	GetByID(ctx context.Context, id uint) (*models.Case, error)
	// GetByIDForUpdate locks the row until the surrounding transaction ends
	GetByIDForUpdate(ctx context.Context, id uint) (*models.Case, error)
	FindOpenByContact(ctx context.Context, email, phone string) (*models.Case, error)
	FindByRequestKey(ctx context.Context, lenderID uint, key string) (*models.Case, error)
	// Update writes every column when the stored version still matches c.Version,
	// then bumps c.Version. A mismatch returns ErrStaleVersion.
	Update(ctx context.Context, c *models.Case) error
	Delete(ctx context.Context, id uint) error
	List(ctx context.Context, filter visibility.CaseFilter, status domain.CaseStatus, offset, limit int) ([]*models.Case, int64, error)
	ListActiveWithBalance(ctx context.Context) ([]*models.Case, error)
}

// TransactionRepository defines ledger repository interface
type TransactionRepository interface {
	Create(ctx context.Context, tx *models.Transaction) error
	GetByID(ctx context.Context, id uint) (*models.Transaction, error)
	GetByIDForUpdate(ctx context.Context, id uint) (*models.Transaction, error)
	ListByCase(ctx context.Context, caseID uint) ([]*models.Transaction, error)
	List(ctx context.Context, filter visibility.TransactionFilter, offset, limit int) ([]*models.Transaction, int64, error)
	SetVerified(ctx context.Context, id uint, verified bool) error
	Delete(ctx context.Context, id uint) error
	DeleteByCase(ctx context.Context, caseID uint) error
}

// AlertRepository defines alert repository interface
type AlertRepository interface {
	Create(ctx context.Context, alert *models.Alert) error
	GetByID(ctx context.Context, id uint) (*models.Alert, error)
	List(ctx context.Context, filter visibility.AlertFilter, offset, limit int) ([]*models.Alert, int64, error)
	// ListDue returns PENDING alerts scheduled at or before the given time, oldest first
	ListDue(ctx context.Context, before time.Time, limit int) ([]*models.Alert, error)
	ExistsForCaseSince(ctx context.Context, caseID uint, since time.Time) (bool, error)
	UpdateStatus(ctx context.Context, id uint, status domain.AlertStatus, sentAt *time.Time) error
	CompleteDelivery(ctx context.Context, id uint, status domain.AlertStatus, sentAt *time.Time) (bool, error)
}

// AuditLogRepository defines audit log repository interface
type AuditLogRepository interface {
	Create(ctx context.Context, entry *models.AuditLog) error
	ListByCase(ctx context.Context, caseID uint) ([]*models.AuditLog, error)
}
