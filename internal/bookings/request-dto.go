package bookings

type PassengerInput struct {
	SeatID string `json:"seat_id" binding:"required,uuid"`
	Name   string `json:"name" binding:"required,min=2,max=200"`
	Email  string `json:"email" binding:"omitempty,email"`
}

type PaymentInput struct {
	Method   PaymentMethod `json:"method" binding:"required,oneof=BANK_TRANSFER CREDIT_CARD E_WALLET"`
	Token    string        `json:"token" binding:"omitempty,max=255"`
	Currency string        `json:"currency" binding:"omitempty,len=3"`
}

// CreateTicketRequest issues tickets without payment.
type CreateTicketRequest struct {
	RequestID  string           `json:"request_id" binding:"omitempty,requestid"`
	FlightID   string           `json:"flight_id" binding:"required,uuid"`
	SeatIDs    []string         `json:"seat_ids" binding:"required,min=1,max=50,dive,uuid"`
	UserID     string           `json:"user_id" binding:"omitempty,uuid"`
	Passengers []PassengerInput `json:"passengers" binding:"omitempty,dive"`
}

type CreateTransactionRequest struct {
	RequestID  string           `json:"request_id" binding:"omitempty,requestid"`
	FlightID   string           `json:"flight_id" binding:"required,uuid"`
	SeatIDs    []string         `json:"seat_ids" binding:"required,min=1,max=50,dive,uuid"`
	Passengers []PassengerInput `json:"passengers" binding:"omitempty,dive"`
	Payment    PaymentInput     `json:"payment" binding:"required"`
}

type TicketListQuery struct {
	Page     int          `form:"page" binding:"omitempty,min=1"`
	Limit    int          `form:"limit" binding:"omitempty,min=1,max=100"`
	Status   TicketStatus `form:"status" binding:"omitempty,oneof=ACTIVE CANCELLED"`
	FlightID string       `form:"flight_id" binding:"omitempty,uuid"`
}
