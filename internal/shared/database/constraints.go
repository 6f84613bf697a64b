package database

import (
	"gorm.io/gorm"
)

// MigrateConstraints adds the constraints GORM tags cannot express
func MigrateConstraints(db *gorm.DB) error {
	statements := []string{
		// At most one active ticket may point at a seat
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_tickets_active_seat
			ON tickets (seat_id) WHERE status = 'ACTIVE'`,

		`CREATE INDEX IF NOT EXISTS idx_flight_seats_flight_status
			ON flight_seats (flight_id, status)`,

		// Sweeper scans live reservations by expiry
		`CREATE INDEX IF NOT EXISTS idx_seat_reservations_active_expiry
			ON seat_reservations (expires_at) WHERE status = 'ACTIVE'`,

		`DO $$ BEGIN
			ALTER TABLE flights ADD CONSTRAINT chk_flights_capacity_non_negative CHECK (capacity >= 0);
		EXCEPTION WHEN duplicate_object THEN NULL;
		END $$`,
	}

	for _, stmt := range statements {
		if err := db.Exec(stmt).Error; err != nil {
			return err
		}
	}
	return nil
}
