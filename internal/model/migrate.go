package model

import (
	"fmt"

	"gorm.io/gorm"
)

// activeRequestIndex guarantees at most one scheduled or executing request per event.
// Partial indexes are understood by both postgres and sqlite.
const activeRequestIndex = `CREATE UNIQUE INDEX IF NOT EXISTS ux_deletion_requests_active_event
ON deletion_requests (event_id) WHERE status IN ('scheduled', 'executing') AND is_deleted = false`

// Migrate creates or updates every table owned by this service
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(All()...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	if err := db.Exec(activeRequestIndex).Error; err != nil {
		return fmt.Errorf("create active request index: %w", err)
	}
	return nil
}
