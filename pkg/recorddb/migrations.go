package recorddb

import (
	"fmt"

	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"
)

// Migrate creates the tables for the given models and applies any extra
// migrations the application registers. The base migration auto-migrates the
// models, picking up the BaseModel columns and indexes from struct tags.
func Migrate(db *gorm.DB, models []any, extra ...*gormigrate.Migration) error {
	migrations := []*gormigrate.Migration{
		{
			ID: "001_base_tables",
			Migrate: func(tx *gorm.DB) error {
				for _, model := range models {
					if err := tx.AutoMigrate(model); err != nil {
						return err
					}
				}
				return nil
			},
			Rollback: func(tx *gorm.DB) error {
				for _, model := range models {
					if err := tx.Migrator().DropTable(model); err != nil {
						return err
					}
				}
				return nil
			},
		},
	}
	migrations = append(migrations, extra...)

	m := gormigrate.New(db, gormigrate.DefaultOptions, migrations)
	if err := m.Migrate(); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}
