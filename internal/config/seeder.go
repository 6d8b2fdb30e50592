package config

import (
	"errors"

	"royal-collector/internal/adapters/persistence/models"
	"royal-collector/internal/core/domain"
	"royal-collector/internal/pkg/password"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Seeder handles database seeding
type Seeder struct {
	db   *gorm.DB
	seed SeedConfig
	log  *zap.Logger
}

// NewSeeder creates a new seeder instance
func NewSeeder(db *gorm.DB, seed SeedConfig, log *zap.Logger) *Seeder {
	if log == nil {
		log = zap.NewNop()
	}
	return &Seeder{db: db, seed: seed, log: log}
}

// Run executes all seeders
func (s *Seeder) Run() error {
	if err := models.AutoMigrate(s.db); err != nil {
		return err
	}
	return s.seedSuperAdmin()
}

// seedSuperAdmin creates the bootstrap SUPER_ADMIN when none exists
func (s *Seeder) seedSuperAdmin() error {
	var count int64
	if err := s.db.Model(&models.User{}).Where("role = ?", domain.RoleSuperAdmin).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	if s.seed.AdminEmail == "" || s.seed.AdminPassword == "" {
		s.log.Warn("no super admin exists and SEED_ADMIN_EMAIL/SEED_ADMIN_PASSWORD are not set")
		return nil
	}
	if !password.ValidatePassword(s.seed.AdminPassword) {
		return errors.New("SEED_ADMIN_PASSWORD must be at least 8 characters")
	}

	hashedPassword, err := password.Hash(s.seed.AdminPassword)
	if err != nil {
		return err
	}

	admin := &models.User{
		Email:      domain.NormalizeEmail(s.seed.AdminEmail),
		FullName:   s.seed.AdminName,
		Password:   hashedPassword,
		Role:       domain.RoleSuperAdmin,
		IsActive:   true,
		IsVerified: true,
	}
	if err := s.db.Create(admin).Error; err != nil {
		return err
	}

	s.log.Info("super admin created", zap.String("email", admin.Email))
	return nil
}
