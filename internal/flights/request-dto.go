package flights

import "time"

type CreateFlightRequest struct {
	FlightNumber string      `json:"flight_number" binding:"required,min=3,max=10"`
	Airline      string      `json:"airline" binding:"required,max=100"`
	Origin       string      `json:"origin" binding:"required,iata"`
	Destination  string      `json:"destination" binding:"required,iata,nefield=Origin"`
	DepartureAt  time.Time   `json:"departure_at" binding:"required"`
	ArrivalAt    time.Time   `json:"arrival_at" binding:"required,gtfield=DepartureAt"`
	Seats        []SeatInput `json:"seats" binding:"required,min=1,max=900,dive"`
}

type SeatInput struct {
	Label string    `json:"label" binding:"required,seatlabel"`
	Class SeatClass `json:"class" binding:"required,oneof=ECONOMY BUSINESS FIRST"`
	Price float64   `json:"price" binding:"required,gt=0"`
}

type FlightListQuery struct {
	Page        int    `form:"page"`
	Limit       int    `form:"limit"`
	Origin      string `form:"origin"`
	Destination string `form:"destination"`
	Date        string `form:"date"` // YYYY-MM-DD, departure day in UTC
}

type SeatListQuery struct {
	Page   int    `form:"page"`
	Limit  int    `form:"limit"`
	Status string `form:"status"`
	Class  string `form:"class"`
}
