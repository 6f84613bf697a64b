package bookings

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
	"time"

	"flightbook/internal/flights"
	"flightbook/internal/notifications"
	"flightbook/internal/payments"
	"flightbook/internal/reservations"
	"flightbook/internal/shared/apperr"
	"flightbook/internal/shared/config"
	"flightbook/internal/shared/database/transaction"
	"flightbook/internal/shared/utils/pagination"
	"flightbook/internal/users"
	"flightbook/pkg/logger"

	"github.com/google/uuid"
)

// SeatReserver is the part of the reservation engine the ledger drives.
type SeatReserver interface {
	Reserve(ctx context.Context, in reservations.ReserveInput) (*reservations.Reservation, error)
	Claim(ctx context.Context, requestID, token string) error
	ReleaseClaim(ctx context.Context, requestID, token string) error
	Confirm(ctx context.Context, requestID, claimToken string) ([]uuid.UUID, error)
	Unbook(ctx context.Context, flightID uuid.UUID, seatIDs []uuid.UUID) error
}

// SeatCatalog supplies seat prices and labels.
type SeatCatalog interface {
	GetSeats(ctx context.Context, flightID uuid.UUID, seatIDs []uuid.UUID) ([]flights.Seat, error)
	InvalidateCapacity(ctx context.Context, flightID uuid.UUID)
}

// PassengerDirectory provides passenger defaults for the booking user.
type PassengerDirectory interface {
	GetUserByID(ctx context.Context, userID uuid.UUID) (email, fullName string, err error)
}

// Actor is the authenticated caller.
type Actor struct {
	UserID uuid.UUID
	Role   users.Role
}

func (a Actor) IsAdmin() bool {
	return a.Role == users.RoleAdmin
}

func (a Actor) CanAccess(ownerID uuid.UUID) bool {
	return a.IsAdmin() || a.UserID == ownerID
}

type Passenger struct {
	SeatID uuid.UUID
	Name   string
	Email  string
}

type Payment struct {
	Method   PaymentMethod
	Token    string
	Currency string
}

// CommitInput is one booking attempt. Payment nil issues tickets without a charge.
type CommitInput struct {
	RequestID  string
	FlightID   uuid.UUID
	SeatIDs    []uuid.UUID
	UserID     uuid.UUID
	Passengers []Passenger
	Payment    *Payment
}

type Service interface {
	CommitBooking(ctx context.Context, in CommitInput) (*Record, error)
	CancelBooking(ctx context.Context, ticketID uuid.UUID, actor Actor) (*Ticket, error)

	GetTicket(ctx context.Context, ticketID uuid.UUID, actor Actor) (*Ticket, error)
	GetTransaction(ctx context.Context, transactionID uuid.UUID, actor Actor) (*TicketTransaction, error)
	ListTickets(ctx context.Context, filter TicketFilter) (*PaginatedTickets, error)
}

type Config struct {
	Currency            string
	CompensationTimeout time.Duration
}

func ConfigFromBooking(cfg config.BookingConfig) Config {
	return Config{
		Currency:            cfg.Currency,
		CompensationTimeout: cfg.CompensationTimeout,
	}
}

type service struct {
	repo       Repository
	reserver   SeatReserver
	catalog    SeatCatalog
	gateway    payments.Gateway
	publisher  notifications.Publisher
	directory  PassengerDirectory
	transactor transaction.Transactor
	cfg        Config
	logger     *logger.Logger
}

func NewService(
	repo Repository,
	reserver SeatReserver,
	catalog SeatCatalog,
	gateway payments.Gateway,
	publisher notifications.Publisher,
	directory PassengerDirectory,
	transactor transaction.Transactor,
	cfg Config,
) Service {
	if cfg.Currency == "" {
		cfg.Currency = "usd"
	}
	if cfg.CompensationTimeout <= 0 {
		cfg.CompensationTimeout = 10 * time.Second
	}
	if publisher == nil {
		publisher = notifications.NoopPublisher{}
	}

	return &service{
		repo:       repo,
		reserver:   reserver,
		catalog:    catalog,
		gateway:    gateway,
		publisher:  publisher,
		directory:  directory,
		transactor: transactor,
		cfg:        cfg,
		logger:     logger.GetDefault(),
	}
}

// CommitBooking holds the seats, charges, writes the ledger rows and confirms the
// hold. When any step after the hold fails, a captured charge is refunded and the
// seats are released before the error is returned.
func (s *service) CommitBooking(ctx context.Context, in CommitInput) (*Record, error) {
	if err := s.validateCommit(in); err != nil {
		return nil, err
	}
	in.SeatIDs = dedupe(in.SeatIDs)

	if record, err := s.replay(ctx, in); record != nil || err != nil {
		return record, err
	}

	reservation, err := s.reserver.Reserve(ctx, reservations.ReserveInput{
		FlightID:  in.FlightID,
		SeatIDs:   in.SeatIDs,
		RequestID: in.RequestID,
		UserID:    &in.UserID,
	})
	if err != nil {
		// The same request may have committed since the lookup above.
		if record, replayErr := s.replay(ctx, in); replayErr == nil && record != nil {
			return record, nil
		}
		return nil, err
	}
	if reservation.UserID != nil && *reservation.UserID != in.UserID {
		// Another user's hold; leave it alone.
		return nil, apperr.Newf(apperr.KindIdempotencyConflict, "request id %s belongs to another booking", in.RequestID)
	}

	// Only the attempt holding the claim charges, confirms or releases the hold.
	claim := uuid.NewString()
	if err := s.reserver.Claim(ctx, in.RequestID, claim); err != nil {
		if record, replayErr := s.replay(ctx, in); replayErr == nil && record != nil {
			return record, nil
		}
		return nil, err
	}

	tickets, total, err := s.buildTickets(ctx, in)
	if err != nil {
		s.compensate(ctx, in.RequestID, claim, nil)
		return nil, err
	}

	var txn *TicketTransaction
	if in.Payment != nil {
		charge, err := s.charge(ctx, in, total)
		if err != nil {
			s.compensate(ctx, in.RequestID, claim, nil)
			return nil, err
		}
		txn = s.newTransaction(in, charge, total)
		for i := range tickets {
			tickets[i].TransactionID = &txn.ID
		}
	}

	err = s.transactor.WithTx(ctx, func(ctx context.Context) error {
		if txn != nil {
			if err := s.repo.CreateTransaction(ctx, txn); err != nil {
				return err
			}
		}
		if err := s.repo.CreateTickets(ctx, tickets); err != nil {
			return err
		}
		_, err := s.reserver.Confirm(ctx, in.RequestID, claim)
		return err
	})
	if err != nil {
		// The commit may have landed even though the driver reported an error.
		if record, replayErr := s.replay(ctx, in); replayErr == nil && record != nil {
			return record, nil
		}
		s.compensate(ctx, in.RequestID, claim, txn)
		return nil, err
	}

	record := &Record{Transaction: txn, Tickets: tickets}
	if txn != nil {
		txn.Tickets = tickets
	}

	s.catalog.InvalidateCapacity(ctx, in.FlightID)
	s.logger.LogTicketsBooked(ctx, in.RequestID, in.FlightID.String(), in.UserID.String(), len(tickets), total)
	s.publishBooked(ctx, in, record)
	return record, nil
}

// CancelBooking cancels one ticket and returns its seat to the flight. The ticket
// flip, the seat release and the capacity change commit together. The refund of a
// paid ticket runs after the commit.
func (s *service) CancelBooking(ctx context.Context, ticketID uuid.UUID, actor Actor) (*Ticket, error) {
	ticket, err := s.repo.GetTicketByID(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if !actor.CanAccess(ticket.UserID) {
		return nil, apperr.New(apperr.KindForbidden, "ticket belongs to another user")
	}
	if !ticket.Status.CanBeCancelled() {
		return nil, apperr.InvalidState("ticket is already cancelled")
	}

	now := time.Now().UTC()
	err = s.transactor.WithTx(ctx, func(ctx context.Context) error {
		ok, err := s.repo.MarkTicketCancelled(ctx, ticketID, now)
		if err != nil {
			return err
		}
		if !ok {
			return apperr.InvalidState("ticket is already cancelled")
		}
		return s.reserver.Unbook(ctx, ticket.FlightID, []uuid.UUID{ticket.SeatID})
	})
	if err != nil {
		return nil, err
	}

	ticket.Status = TicketCancelled
	ticket.CancelledAt = &now
	ticket.UpdatedAt = now

	if ticket.TransactionID != nil {
		s.refundTicket(ctx, ticket)
	}

	s.catalog.InvalidateCapacity(ctx, ticket.FlightID)
	s.logger.LogTicketCancelled(ctx, ticket.ID.String(), ticket.FlightID.String(), ticket.UserID.String())

	event := notifications.NewEventBuilder(notifications.EventTypeTicketCancelled, ticket.FlightID).
		WithRequest(ticket.RequestID).
		WithUser(ticket.UserID).
		WithTickets(ticket.ID).
		WithSeats(ticket.SeatID).
		Build()
	s.publish(ctx, event)

	return ticket, nil
}

func (s *service) GetTicket(ctx context.Context, ticketID uuid.UUID, actor Actor) (*Ticket, error) {
	ticket, err := s.repo.GetTicketByID(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if !actor.CanAccess(ticket.UserID) {
		return nil, apperr.New(apperr.KindForbidden, "ticket belongs to another user")
	}
	return ticket, nil
}

func (s *service) GetTransaction(ctx context.Context, transactionID uuid.UUID, actor Actor) (*TicketTransaction, error) {
	txn, err := s.repo.GetTransactionByID(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	if !actor.CanAccess(txn.UserID) {
		return nil, apperr.New(apperr.KindForbidden, "transaction belongs to another user")
	}
	return txn, nil
}

func (s *service) ListTickets(ctx context.Context, filter TicketFilter) (*PaginatedTickets, error) {
	filter.Page, filter.Limit = pagination.Normalize(filter.Page, filter.Limit)

	tickets, totalCount, err := s.repo.ListTickets(ctx, filter)
	if err != nil {
		return nil, err
	}

	return &PaginatedTickets{
		Tickets:    toTicketResponses(tickets),
		TotalCount: totalCount,
		Page:       filter.Page,
		Limit:      filter.Limit,
		TotalPages: pagination.CalculateTotalPages(totalCount, filter.Limit),
	}, nil
}

// replay returns the committed record for in.RequestID, if there is one.
func (s *service) replay(ctx context.Context, in CommitInput) (*Record, error) {
	tickets, err := s.repo.GetTicketsByRequestID(ctx, in.RequestID)
	if err != nil || len(tickets) == 0 {
		return nil, err
	}

	record := &Record{Tickets: tickets}
	if record.FlightID() != in.FlightID || !sameSeats(record.SeatIDs(), in.SeatIDs) || tickets[0].UserID != in.UserID {
		return nil, apperr.Newf(apperr.KindIdempotencyConflict, "request id %s was used for a different booking", in.RequestID)
	}

	if tickets[0].TransactionID != nil {
		txn, err := s.repo.GetTransactionByID(ctx, *tickets[0].TransactionID)
		if err != nil {
			return nil, err
		}
		record.Transaction = txn
	}
	return record, nil
}

func (s *service) buildTickets(ctx context.Context, in CommitInput) ([]Ticket, float64, error) {
	seats, err := s.catalog.GetSeats(ctx, in.FlightID, in.SeatIDs)
	if err != nil {
		return nil, 0, err
	}
	if len(seats) != len(in.SeatIDs) {
		return nil, 0, apperr.InvalidState("held seats could not be loaded")
	}

	passengers := make(map[uuid.UUID]Passenger, len(in.Passengers))
	for _, p := range in.Passengers {
		passengers[p.SeatID] = p
	}

	var defaultName, defaultEmail string
	if len(passengers) < len(seats) && s.directory != nil {
		defaultEmail, defaultName, err = s.directory.GetUserByID(ctx, in.UserID)
		if err != nil {
			return nil, 0, apperr.Wrap(apperr.KindInternal, "failed to load passenger details", err)
		}
	}

	now := time.Now().UTC()
	tickets := make([]Ticket, 0, len(seats))
	var total float64
	for _, seat := range seats {
		passenger, ok := passengers[seat.ID]
		if !ok {
			passenger = Passenger{SeatID: seat.ID, Name: defaultName, Email: defaultEmail}
		}
		if strings.TrimSpace(passenger.Name) == "" {
			return nil, 0, apperr.Validation(fmt.Sprintf("passenger name is required for seat %s", seat.Label))
		}

		ref, err := generateTicketReference()
		if err != nil {
			return nil, 0, apperr.Wrap(apperr.KindInternal, "failed to generate ticket reference", err)
		}

		tickets = append(tickets, Ticket{
			ID:             uuid.New(),
			TicketRef:      ref,
			RequestID:      in.RequestID,
			FlightID:       in.FlightID,
			SeatID:         seat.ID,
			SeatLabel:      seat.Label,
			UserID:         in.UserID,
			PassengerName:  strings.TrimSpace(passenger.Name),
			PassengerEmail: strings.ToLower(strings.TrimSpace(passenger.Email)),
			Price:          seat.Price,
			Status:         TicketActive,
			CreatedAt:      now,
			UpdatedAt:      now,
		})
		total += seat.Price
	}
	return tickets, total, nil
}

func (s *service) charge(ctx context.Context, in CommitInput, total float64) (*payments.ChargeResponse, error) {
	if s.gateway == nil {
		return nil, apperr.UpstreamPaymentFailure("no payment provider configured", nil)
	}

	resp, err := s.gateway.Charge(ctx, &payments.ChargeRequest{
		IdempotencyKey: in.RequestID,
		Amount:         total,
		Currency:       s.currency(in.Payment),
		Method:         in.Payment.Method.String(),
		Token:          in.Payment.Token,
		Description:    fmt.Sprintf("Flight %s, %d seat(s)", in.FlightID, len(in.SeatIDs)),
		Metadata: map[string]string{
			"flight_id": in.FlightID.String(),
			"user_id":   in.UserID.String(),
		},
	})
	if err != nil {
		return nil, apperr.UpstreamPaymentFailure("provider error", err)
	}
	if !resp.Success {
		return nil, apperr.UpstreamPaymentFailure(resp.FailureReason, nil)
	}
	return resp, nil
}

func (s *service) newTransaction(in CommitInput, charge *payments.ChargeResponse, total float64) *TicketTransaction {
	now := time.Now().UTC()
	return &TicketTransaction{
		ID:                   uuid.New(),
		RequestID:            in.RequestID,
		UserID:               in.UserID,
		FlightID:             in.FlightID,
		PaymentMethod:        in.Payment.Method,
		Provider:             s.gateway.Name(),
		GatewayTransactionID: charge.TransactionID,
		GatewayStatus:        charge.Status,
		GrossAmount:          total,
		Currency:             s.currency(in.Payment),
		Status:               TransactionPaid,
		CreatedAt:            now,
		UpdatedAt:            now,
	}
}

// compensate undoes the side effects of a failed commit. It runs detached from
// the caller's context so a disconnect does not strand the hold, and releases the
// hold only while claim still holds it.
func (s *service) compensate(ctx context.Context, requestID, claim string, txn *TicketTransaction) {
	if txn != nil {
		s.refund(ctx, requestID, txn.GatewayTransactionID, txn.GrossAmount)
	}

	releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.CompensationTimeout)
	defer cancel()
	if err := s.reserver.ReleaseClaim(releaseCtx, requestID, claim); err != nil {
		s.logger.LogCompensationFailure(ctx, "release", requestID, err)
	}
}

func (s *service) refund(ctx context.Context, requestID, gatewayTransactionID string, amount float64) {
	refundCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.CompensationTimeout)
	defer cancel()
	if err := s.gateway.Refund(refundCtx, gatewayTransactionID, amount); err != nil {
		s.logger.LogCompensationFailure(ctx, "refund", requestID, err)
	}
}

// refundTicket returns the price of one cancelled ticket to the payer.
func (s *service) refundTicket(ctx context.Context, ticket *Ticket) {
	refundCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.CompensationTimeout)
	defer cancel()

	txn, err := s.repo.GetTransactionByID(refundCtx, *ticket.TransactionID)
	if err != nil {
		s.logger.LogCompensationFailure(ctx, "refund", ticket.RequestID, err)
		return
	}

	amount := ticket.Price
	if amount > txn.RemainingRefundable() {
		amount = txn.RemainingRefundable()
	}
	if amount <= 0 || s.gateway == nil {
		return
	}

	if err := s.gateway.Refund(refundCtx, txn.GatewayTransactionID, amount); err != nil {
		s.logger.LogCompensationFailure(ctx, "refund", ticket.RequestID, err)
		return
	}
	if err := s.repo.RecordRefund(refundCtx, txn.ID, amount); err != nil {
		s.logger.LogCompensationFailure(ctx, "record_refund", ticket.RequestID, err)
	}
}

func (s *service) publishBooked(ctx context.Context, in CommitInput, record *Record) {
	builder := notifications.NewEventBuilder(notifications.EventTypeTicketBooked, in.FlightID).
		WithRequest(in.RequestID).
		WithUser(in.UserID).
		WithTickets(record.TicketIDs()...).
		WithSeats(record.SeatIDs()...)
	if record.Transaction != nil {
		builder = builder.
			WithTransaction(record.Transaction.ID).
			WithAmount(record.Transaction.GrossAmount, record.Transaction.Currency)
	}
	s.publish(ctx, builder.Build())
}

func (s *service) publish(ctx context.Context, event *notifications.BookingEvent) {
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.ErrorWithContext(ctx, "Failed to publish booking event", err, map[string]interface{}{
			"type":      event.Type,
			"flight_id": event.FlightID.String(),
		})
	}
}

func (s *service) currency(p *Payment) string {
	if p != nil && p.Currency != "" {
		return strings.ToLower(p.Currency)
	}
	return s.cfg.Currency
}

func (s *service) validateCommit(in CommitInput) error {
	if in.RequestID == "" {
		return apperr.Validation("request id is required")
	}
	if in.UserID == uuid.Nil {
		return apperr.Validation("an authenticated user is required")
	}
	if len(in.SeatIDs) == 0 {
		return apperr.Validation("at least one seat is required")
	}
	if in.Payment != nil && !in.Payment.Method.IsValid() {
		return apperr.Validation("unsupported payment method")
	}

	requested := make(map[uuid.UUID]struct{}, len(in.SeatIDs))
	for _, id := range in.SeatIDs {
		requested[id] = struct{}{}
	}
	for _, p := range in.Passengers {
		if _, ok := requested[p.SeatID]; !ok {
			return apperr.Validation(fmt.Sprintf("passenger seat %s is not part of the booking", p.SeatID))
		}
	}
	return nil
}

// generateTicketReference generates a unique ticket reference
func generateTicketReference() (string, error) {
	timestamp := time.Now().Format("20060102")

	// 6 random uppercase letters
	const letters = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	randomPart := make([]byte, 6)

	for i := range randomPart {
		num, err := rand.Int(rand.Reader, big.NewInt(int64(len(letters))))
		if err != nil {
			return "", err
		}
		randomPart[i] = letters[num.Int64()]
	}

	return fmt.Sprintf("FLB-%s-%s", timestamp, string(randomPart)), nil
}

func sameSeats(a, b []uuid.UUID) bool {
	if len(a) != len(b) {
		return false
	}
	set := make(map[uuid.UUID]struct{}, len(a))
	for _, id := range a {
		set[id] = struct{}{}
	}
	for _, id := range b {
		if _, ok := set[id]; !ok {
			return false
		}
	}
	return true
}

func dedupe(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
