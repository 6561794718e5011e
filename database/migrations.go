package database

import (
	"gorm.io/gorm"

	"github.com/BalwinderCa/dastiyor-sub001/models"
)

// Migrate runs AutoMigrate for every model, in dependency order.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.Task{},
		&models.TaskEvent{},
		&models.Response{},
		&models.Message{},
		&models.Notification{},
		&models.Review{},
		&models.Subscription{},
		&models.Payment{},
		&models.VerificationCode{},
		&models.PasswordReset{},
	)
}
