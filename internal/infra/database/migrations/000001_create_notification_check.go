package migrations

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"github.com/kursadbilgin/notify-relay/internal/repository"
	"gorm.io/gorm"
)

func createNotificationCheckTable() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "000001_create_notification_check",
		Migrate: func(tx *gorm.DB) error {
			return tx.AutoMigrate(&repository.NotificationCheckModel{})
		},
		Rollback: func(tx *gorm.DB) error {
			return tx.Migrator().DropTable(&repository.NotificationCheckModel{})
		},
	}
}
