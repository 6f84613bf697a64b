package reservations

type HoldSeatsRequest struct {
	FlightID   string   `json:"flight_id" binding:"required,uuid"`
	SeatIDs    []string `json:"seat_ids" binding:"required,min=1,max=50,dive,uuid"`
	RequestID  string   `json:"request_id" binding:"omitempty,requestid"`
	TTLSeconds int      `json:"ttl_seconds" binding:"omitempty,min=1"`
}

type SweepRequest struct {
	Limit int `json:"limit" binding:"omitempty,min=1,max=1000"`
}
