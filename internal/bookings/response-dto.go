package bookings

import (
	"time"

	"github.com/google/uuid"
)

type TicketResponse struct {
	ID             uuid.UUID    `json:"id"`
	TicketRef      string       `json:"ticket_ref"`
	RequestID      string       `json:"request_id"`
	TransactionID  *uuid.UUID   `json:"transaction_id,omitempty"`
	FlightID       uuid.UUID    `json:"flight_id"`
	SeatID         uuid.UUID    `json:"seat_id"`
	SeatLabel      string       `json:"seat_label"`
	PassengerName  string       `json:"passenger_name"`
	PassengerEmail string       `json:"passenger_email,omitempty"`
	Price          float64      `json:"price"`
	Status         TicketStatus `json:"status"`
	CancelledAt    *time.Time   `json:"cancelled_at,omitempty"`
	CreatedAt      time.Time    `json:"created_at"`
}

type TransactionResponse struct {
	ID                   uuid.UUID         `json:"id"`
	RequestID            string            `json:"request_id"`
	FlightID             uuid.UUID         `json:"flight_id"`
	PaymentMethod        PaymentMethod     `json:"payment_method"`
	Provider             string            `json:"provider"`
	GatewayTransactionID string            `json:"gateway_transaction_id"`
	GatewayStatus        string            `json:"gateway_status"`
	GrossAmount          float64           `json:"gross_amount"`
	RefundedAmount       float64           `json:"refunded_amount"`
	Currency             string            `json:"currency"`
	Status               TransactionStatus `json:"status"`
	Tickets              []TicketResponse  `json:"tickets"`
	CreatedAt            time.Time         `json:"created_at"`
}

type BookingResponse struct {
	RequestID   string               `json:"request_id"`
	FlightID    uuid.UUID            `json:"flight_id"`
	SeatIDs     []uuid.UUID          `json:"seat_ids"`
	TotalPrice  float64              `json:"total_price"`
	Transaction *TransactionResponse `json:"transaction,omitempty"`
	Tickets     []TicketResponse     `json:"tickets"`
}

type PaginatedTickets struct {
	Tickets    []TicketResponse `json:"tickets"`
	TotalCount int64            `json:"total_count"`
	Page       int              `json:"page"`
	Limit      int              `json:"limit"`
	TotalPages int              `json:"total_pages"`
}

func toTicketResponse(t *Ticket) TicketResponse {
	return TicketResponse{
		ID:             t.ID,
		TicketRef:      t.TicketRef,
		RequestID:      t.RequestID,
		TransactionID:  t.TransactionID,
		FlightID:       t.FlightID,
		SeatID:         t.SeatID,
		SeatLabel:      t.SeatLabel,
		PassengerName:  t.PassengerName,
		PassengerEmail: t.PassengerEmail,
		Price:          t.Price,
		Status:         t.Status,
		CancelledAt:    t.CancelledAt,
		CreatedAt:      t.CreatedAt,
	}
}

func toTicketResponses(tickets []Ticket) []TicketResponse {
	out := make([]TicketResponse, 0, len(tickets))
	for i := range tickets {
		out = append(out, toTicketResponse(&tickets[i]))
	}
	return out
}

func toTransactionResponse(t *TicketTransaction) *TransactionResponse {
	if t == nil {
		return nil
	}
	return &TransactionResponse{
		ID:                   t.ID,
		RequestID:            t.RequestID,
		FlightID:             t.FlightID,
		PaymentMethod:        t.PaymentMethod,
		Provider:             t.Provider,
		GatewayTransactionID: t.GatewayTransactionID,
		GatewayStatus:        t.GatewayStatus,
		GrossAmount:          t.GrossAmount,
		RefundedAmount:       t.RefundedAmount,
		Currency:             t.Currency,
		Status:               t.Status,
		Tickets:              toTicketResponses(t.Tickets),
		CreatedAt:            t.CreatedAt,
	}
}

func toBookingResponse(requestID string, r *Record) BookingResponse {
	return BookingResponse{
		RequestID:   requestID,
		FlightID:    r.FlightID(),
		SeatIDs:     r.SeatIDs(),
		TotalPrice:  r.Total(),
		Transaction: toTransactionResponse(r.Transaction),
		Tickets:     toTicketResponses(r.Tickets),
	}
}
