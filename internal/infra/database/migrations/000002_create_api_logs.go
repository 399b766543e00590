package migrations

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"github.com/kursadbilgin/notify-relay/internal/repository"
	"gorm.io/gorm"
)

func createAPILogsTable() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "000002_create_api_logs",
		Migrate: func(tx *gorm.DB) error {
			if err := tx.AutoMigrate(&repository.APILogModel{}); err != nil {
				return err
			}
			return tx.Exec(`CREATE INDEX idx_api_logs_created_at ON api_logs (created_at)`).Error
		},
		Rollback: func(tx *gorm.DB) error {
			return tx.Migrator().DropTable(&repository.APILogModel{})
		},
	}
}
