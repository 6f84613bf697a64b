package flights

import (
	"time"

	"github.com/google/uuid"
)

// Flight is a scheduled departure. Capacity counts the seats that are not BOOKED
// and is only ever changed through AdjustCapacity.
type Flight struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	FlightNumber string    `gorm:"type:varchar(10);not null;index" json:"flight_number"`
	Airline      string    `gorm:"type:varchar(100);not null" json:"airline"`
	Origin       string    `gorm:"type:char(3);not null;index:idx_flights_route,priority:1" json:"origin"`
	Destination  string    `gorm:"type:char(3);not null;index:idx_flights_route,priority:2" json:"destination"`
	DepartureAt  time.Time `gorm:"not null;index" json:"departure_at"`
	ArrivalAt    time.Time `gorm:"not null" json:"arrival_at"`
	Capacity     int       `gorm:"not null;default:0" json:"capacity"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`

	Seats []Seat `gorm:"foreignKey:FlightID;constraint:OnDelete:CASCADE;" json:"seats,omitempty"`
}

// Seat belongs to exactly one flight. RequestID names the reservation holding
// or having booked it.
type Seat struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	FlightID  uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_flight_seat_label,priority:1" json:"flight_id"`
	Label     string     `gorm:"type:varchar(5);not null;uniqueIndex:idx_flight_seat_label,priority:2" json:"label"`
	Class     SeatClass  `gorm:"type:varchar(16);not null;default:'ECONOMY'" json:"class"`
	Price     float64    `gorm:"type:numeric(10,2);not null" json:"price"`
	Status    SeatStatus `gorm:"type:varchar(16);not null;default:'FREE';check:status IN ('FREE','HELD','BOOKED')" json:"status"`
	RequestID *string    `gorm:"type:varchar(64);index" json:"request_id,omitempty"`
	HeldUntil *time.Time `json:"held_until,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// CapacitySnapshot is the capacity counter plus the ids of every seat on the flight.
type CapacitySnapshot struct {
	FlightID uuid.UUID   `json:"flight_id"`
	Capacity int         `json:"capacity"`
	SeatIDs  []uuid.UUID `json:"seat_ids"`
}

// Contains reports whether seatID belongs to the snapshot's flight.
func (s *CapacitySnapshot) Contains(seatID uuid.UUID) bool {
	for _, id := range s.SeatIDs {
		if id == seatID {
			return true
		}
	}
	return false
}

func (Flight) TableName() string {
	return "flights"
}

func (Seat) TableName() string {
	return "flight_seats"
}
