package reservations

import (
	"time"

	"github.com/google/uuid"
)

// Reservation groups the seats one booking attempt holds under a caller supplied
// request id. A request id is used for exactly one reservation.
type Reservation struct {
	RequestID   string      `gorm:"type:varchar(64);primaryKey" json:"request_id"`
	FlightID    uuid.UUID   `gorm:"type:uuid;not null;index" json:"flight_id"`
	UserID      *uuid.UUID  `gorm:"type:uuid;index" json:"user_id,omitempty"`
	SeatIDs     []uuid.UUID `gorm:"type:jsonb;serializer:json;not null" json:"seat_ids"`
	Status      Status      `gorm:"type:varchar(16);not null;default:'ACTIVE';check:status IN ('ACTIVE','CONFIRMED','RELEASED','EXPIRED')" json:"status"`
	ExpiresAt   time.Time   `gorm:"not null" json:"expires_at"`
	// ClaimToken is stamped by the booking attempt that is committing this hold.
	ClaimToken  *string     `gorm:"type:varchar(64)" json:"-"`
	ConfirmedAt *time.Time  `json:"confirmed_at,omitempty"`
	ReleasedAt  *time.Time  `json:"released_at,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

func (Reservation) TableName() string {
	return "seat_reservations"
}

// IsLive reports whether the reservation still holds its seats at now.
func (r *Reservation) IsLive(now time.Time) bool {
	return r.Status == StatusActive && now.Before(r.ExpiresAt)
}

// ClaimedBy reports whether token holds the commit claim. An empty token
// matches an unclaimed reservation.
func (r *Reservation) ClaimedBy(token string) bool {
	if r.ClaimToken == nil {
		return token == ""
	}
	return *r.ClaimToken == token
}

// SameSeats reports whether the reservation covers exactly seatIDs on flightID.
func (r *Reservation) SameSeats(flightID uuid.UUID, seatIDs []uuid.UUID) bool {
	if r.FlightID != flightID || len(r.SeatIDs) != len(seatIDs) {
		return false
	}
	held := make(map[uuid.UUID]struct{}, len(r.SeatIDs))
	for _, id := range r.SeatIDs {
		held[id] = struct{}{}
	}
	for _, id := range seatIDs {
		if _, ok := held[id]; !ok {
			return false
		}
	}
	return true
}
