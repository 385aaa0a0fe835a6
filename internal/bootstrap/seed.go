package bootstrap

import (
	"strings"

	"anoa.com/blooddonation/internal/entity"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&entity.User{},
		&entity.Profile{},
		&entity.BloodRequest{},
		&entity.Notification{},
	)
}

// SeedAdminUser creates a staff account with an admin profile unless one with
// the same email already exists.
func SeedAdminUser(db *gorm.DB, email, password string, logger *zap.Logger) error {
	email = strings.ToLower(strings.TrimSpace(email))

	var count int64
	if err := db.Model(&entity.User{}).
		Where("LOWER(email) = ?", email).
		Count(&count).Error; err != nil {
		return err
	}

	if count > 0 {
		logger.Info("admin user already exists, skipping seed", zap.String("email", email))
		return nil
	}

	hashedPasswordBytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	return db.Transaction(func(tx *gorm.DB) error {
		adminUser := entity.User{
			Email:        email,
			PasswordHash: string(hashedPasswordBytes),
			IsStaff:      true,
		}
		if err := tx.Omit("Profile").Create(&adminUser).Error; err != nil {
			return err
		}

		adminProfile := entity.Profile{
			UserID:     adminUser.ID,
			Name:       "Administrator",
			BloodGroup: entity.BloodGroupOPos,
			City:       "-",
			Role:       entity.RoleAdmin,
			Bio:        "System Administrator",
		}
		if err := tx.Omit("User").Create(&adminProfile).Error; err != nil {
			return err
		}

		logger.Info("admin user seeded", zap.String("email", email))
		return nil
	})
}
