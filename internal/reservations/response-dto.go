package reservations

import (
	"time"

	"github.com/google/uuid"
)

type ReservationResponse struct {
	RequestID   string      `json:"request_id"`
	FlightID    uuid.UUID   `json:"flight_id"`
	SeatIDs     []uuid.UUID `json:"seat_ids"`
	Status      Status      `json:"status"`
	ExpiresAt   time.Time   `json:"expires_at"`
	ConfirmedAt *time.Time  `json:"confirmed_at,omitempty"`
	ReleasedAt  *time.Time  `json:"released_at,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
}

type SweepResponse struct {
	Expired int `json:"expired"`
}

func toReservationResponse(r *Reservation) ReservationResponse {
	return ReservationResponse{
		RequestID:   r.RequestID,
		FlightID:    r.FlightID,
		SeatIDs:     r.SeatIDs,
		Status:      r.Status,
		ExpiresAt:   r.ExpiresAt,
		ConfirmedAt: r.ConfirmedAt,
		ReleasedAt:  r.ReleasedAt,
		CreatedAt:   r.CreatedAt,
	}
}
