package database

import (
	"flightbook/internal/bookings"
	"flightbook/internal/flights"
	"flightbook/internal/reservations"
	"flightbook/internal/users"

	"gorm.io/gorm"
)

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&users.User{},
		&flights.Flight{},
		&flights.Seat{},
		&reservations.Reservation{},
		&bookings.TicketTransaction{},
		&bookings.Ticket{},
	)
}
