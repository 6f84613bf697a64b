package notifications

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type EventType string

const (
	EventTypeTicketBooked       EventType = "TICKET_BOOKED"
	EventTypeTicketCancelled    EventType = "TICKET_CANCELLED"
	EventTypeReservationExpired EventType = "RESERVATION_EXPIRED"
)

// BookingEvent is the message published after a booking state change committed.
type BookingEvent struct {
	ID       uuid.UUID `json:"id"`
	Type     EventType `json:"type"`
	FlightID uuid.UUID `json:"flight_id"`

	// Context
	RequestID     string      `json:"request_id,omitempty"`
	UserID        *uuid.UUID  `json:"user_id,omitempty"`
	TransactionID *uuid.UUID  `json:"transaction_id,omitempty"`
	TicketIDs     []uuid.UUID `json:"ticket_ids,omitempty"`
	SeatIDs       []uuid.UUID `json:"seat_ids,omitempty"`

	Amount   float64 `json:"amount,omitempty"`
	Currency string  `json:"currency,omitempty"`

	OccurredAt time.Time `json:"occurred_at"`
}

type EventBuilder struct {
	event *BookingEvent
}

func NewEventBuilder(eventType EventType, flightID uuid.UUID) *EventBuilder {
	return &EventBuilder{
		event: &BookingEvent{
			ID:         uuid.New(),
			Type:       eventType,
			FlightID:   flightID,
			OccurredAt: time.Now().UTC(),
		},
	}
}

func (eb *EventBuilder) WithRequest(requestID string) *EventBuilder {
	eb.event.RequestID = requestID
	return eb
}

func (eb *EventBuilder) WithUser(userID uuid.UUID) *EventBuilder {
	eb.event.UserID = &userID
	return eb
}

func (eb *EventBuilder) WithTransaction(transactionID uuid.UUID) *EventBuilder {
	eb.event.TransactionID = &transactionID
	return eb
}

func (eb *EventBuilder) WithTickets(ticketIDs ...uuid.UUID) *EventBuilder {
	eb.event.TicketIDs = append(eb.event.TicketIDs, ticketIDs...)
	return eb
}

func (eb *EventBuilder) WithSeats(seatIDs ...uuid.UUID) *EventBuilder {
	eb.event.SeatIDs = append(eb.event.SeatIDs, seatIDs...)
	return eb
}

func (eb *EventBuilder) WithAmount(amount float64, currency string) *EventBuilder {
	eb.event.Amount = amount
	eb.event.Currency = currency
	return eb
}

func (eb *EventBuilder) Build() *BookingEvent {
	return eb.event
}

// GetPartitionKey keeps every event of one flight on the same partition.
func (e *BookingEvent) GetPartitionKey() string {
	return e.FlightID.String()
}

func (e *BookingEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}
