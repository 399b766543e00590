package migrations

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"
)

// Migrate brings one backend schema up to date. Each backend is migrated on
// its own connection.
func Migrate(db *gorm.DB) error {
	m := gormigrate.New(db, gormigrate.DefaultOptions, []*gormigrate.Migration{
		createNotificationCheckTable(),
		createAPILogsTable(),
	})

	return m.Migrate()
}
