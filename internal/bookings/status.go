package bookings

type TicketStatus string

const (
	TicketActive    TicketStatus = "ACTIVE"
	TicketCancelled TicketStatus = "CANCELLED"
)

// IsValid checks if the ticket status is valid
func (s TicketStatus) IsValid() bool {
	switch s {
	case TicketActive, TicketCancelled:
		return true
	}
	return false
}

// String returns the string representation of TicketStatus
func (s TicketStatus) String() string {
	return string(s)
}

// CanBeCancelled checks if a ticket with this status can be cancelled
func (s TicketStatus) CanBeCancelled() bool {
	return s == TicketActive
}

type TransactionStatus string

const (
	TransactionPaid              TransactionStatus = "PAID"
	TransactionPartiallyRefunded TransactionStatus = "PARTIALLY_REFUNDED"
	TransactionRefunded          TransactionStatus = "REFUNDED"
)

func (s TransactionStatus) IsValid() bool {
	switch s {
	case TransactionPaid, TransactionPartiallyRefunded, TransactionRefunded:
		return true
	}
	return false
}

func (s TransactionStatus) String() string {
	return string(s)
}
