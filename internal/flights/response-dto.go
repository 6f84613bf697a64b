package flights

import (
	"time"

	"github.com/google/uuid"
)

type FlightResponse struct {
	ID           uuid.UUID `json:"id"`
	FlightNumber string    `json:"flight_number"`
	Airline      string    `json:"airline"`
	Origin       string    `json:"origin"`
	Destination  string    `json:"destination"`
	DepartureAt  time.Time `json:"departure_at"`
	ArrivalAt    time.Time `json:"arrival_at"`
	Capacity     int       `json:"capacity"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type PaginatedFlights struct {
	Flights    []FlightResponse `json:"flights"`
	TotalCount int64            `json:"total_count"`
	Page       int              `json:"page"`
	Limit      int              `json:"limit"`
	TotalPages int              `json:"total_pages"`
}

type SeatResponse struct {
	ID     uuid.UUID  `json:"id"`
	Label  string     `json:"label"`
	Class  SeatClass  `json:"class"`
	Price  float64    `json:"price"`
	Status SeatStatus `json:"status"`
}

type SeatMapResponse struct {
	FlightID   uuid.UUID          `json:"flight_id"`
	Counts     map[SeatStatus]int `json:"counts"`
	Seats      []SeatResponse     `json:"seats"`
	TotalCount int64              `json:"total_count"`
	Page       int                `json:"page"`
	Limit      int                `json:"limit"`
	TotalPages int                `json:"total_pages"`
}

// CapacityAudit compares the stored counter with the seat rows it summarizes.
type CapacityAudit struct {
	FlightID      uuid.UUID `json:"flight_id"`
	Capacity      int       `json:"capacity"`
	UnbookedSeats int64     `json:"unbooked_seats"`
	TotalSeats    int       `json:"total_seats"`
	Consistent    bool      `json:"consistent"`
}

func toFlightResponse(f *Flight) FlightResponse {
	return FlightResponse{
		ID:           f.ID,
		FlightNumber: f.FlightNumber,
		Airline:      f.Airline,
		Origin:       f.Origin,
		Destination:  f.Destination,
		DepartureAt:  f.DepartureAt,
		ArrivalAt:    f.ArrivalAt,
		Capacity:     f.Capacity,
		CreatedAt:    f.CreatedAt,
		UpdatedAt:    f.UpdatedAt,
	}
}

func toSeatResponse(s *Seat) SeatResponse {
	return SeatResponse{
		ID:     s.ID,
		Label:  s.Label,
		Class:  s.Class,
		Price:  s.Price,
		Status: s.Status,
	}
}
