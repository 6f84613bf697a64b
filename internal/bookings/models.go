package bookings

import (
	"time"

	"github.com/google/uuid"
)

// TicketTransaction records a paid booking and the provider's capture.
type TicketTransaction struct {
	ID                   uuid.UUID         `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	RequestID            string            `gorm:"type:varchar(64);uniqueIndex;not null" json:"request_id"`
	UserID               uuid.UUID         `gorm:"type:uuid;index;not null" json:"user_id"`
	FlightID             uuid.UUID         `gorm:"type:uuid;index;not null" json:"flight_id"`
	PaymentMethod        PaymentMethod     `gorm:"type:varchar(20);not null" json:"payment_method"`
	Provider             string            `gorm:"type:varchar(20);not null" json:"provider"`
	GatewayTransactionID string            `gorm:"type:varchar(128);index" json:"gateway_transaction_id"`
	GatewayStatus        string            `gorm:"type:varchar(32)" json:"gateway_status"`
	GrossAmount          float64           `gorm:"not null" json:"gross_amount"`
	RefundedAmount       float64           `gorm:"not null;default:0" json:"refunded_amount"`
	Currency             string            `gorm:"type:varchar(3);not null" json:"currency"`
	Status               TransactionStatus `gorm:"type:varchar(20);not null;default:'PAID';check:status IN ('PAID','PARTIALLY_REFUNDED','REFUNDED')" json:"status"`
	CreatedAt            time.Time         `json:"created_at"`
	UpdatedAt            time.Time         `json:"updated_at"`

	// Relationships
	Tickets []Ticket `json:"tickets,omitempty" gorm:"foreignKey:TransactionID;constraint:OnDelete:RESTRICT;"`
}

// Ticket is one committed seat. A cancelled ticket stays as a record; its seat
// is FREE again.
type Ticket struct {
	ID             uuid.UUID    `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	TicketRef      string       `gorm:"type:varchar(32);uniqueIndex;not null" json:"ticket_ref"`
	RequestID      string       `gorm:"type:varchar(64);not null;uniqueIndex:idx_ticket_request_seat" json:"request_id"`
	TransactionID  *uuid.UUID   `gorm:"type:uuid;index" json:"transaction_id,omitempty"`
	FlightID       uuid.UUID    `gorm:"type:uuid;index;not null" json:"flight_id"`
	SeatID         uuid.UUID    `gorm:"type:uuid;not null;uniqueIndex:idx_ticket_request_seat" json:"seat_id"`
	SeatLabel      string       `gorm:"type:varchar(8);not null" json:"seat_label"`
	UserID         uuid.UUID    `gorm:"type:uuid;index;not null" json:"user_id"`
	PassengerName  string       `gorm:"type:varchar(200);not null" json:"passenger_name"`
	PassengerEmail string       `gorm:"type:varchar(255)" json:"passenger_email"`
	Price          float64      `gorm:"not null" json:"price"`
	Status         TicketStatus `gorm:"type:varchar(20);not null;default:'ACTIVE';check:status IN ('ACTIVE','CANCELLED')" json:"status"`
	CancelledAt    *time.Time   `json:"cancelled_at,omitempty"`
	CreatedAt      time.Time    `json:"created_at"`
	UpdatedAt      time.Time    `json:"updated_at"`
}

func (TicketTransaction) TableName() string {
	return "ticket_transactions"
}

func (Ticket) TableName() string {
	return "tickets"
}

// Record is the result of a committed booking. Transaction is nil for tickets
// issued without payment.
type Record struct {
	Transaction *TicketTransaction
	Tickets     []Ticket
}

func (r *Record) FlightID() uuid.UUID {
	if len(r.Tickets) == 0 {
		return uuid.Nil
	}
	return r.Tickets[0].FlightID
}

func (r *Record) SeatIDs() []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(r.Tickets))
	for _, ticket := range r.Tickets {
		ids = append(ids, ticket.SeatID)
	}
	return ids
}

func (r *Record) TicketIDs() []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(r.Tickets))
	for _, ticket := range r.Tickets {
		ids = append(ids, ticket.ID)
	}
	return ids
}

func (r *Record) Total() float64 {
	var total float64
	for _, ticket := range r.Tickets {
		total += ticket.Price
	}
	return total
}

func (t *Ticket) IsCancelled() bool {
	return t.Status == TicketCancelled
}

// RemainingRefundable is the captured amount not refunded yet.
func (t *TicketTransaction) RemainingRefundable() float64 {
	return t.GrossAmount - t.RefundedAmount
}
