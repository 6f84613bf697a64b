package storetest

import (
	"context"
	"sort"
	"strings"
	"time"

	"flightbook/internal/bookings"
	"flightbook/internal/flights"
	"flightbook/internal/reservations"
	"flightbook/internal/shared/apperr"
	"flightbook/internal/shared/utils/pagination"

	"github.com/google/uuid"
)

type flightRepo struct{ s *Store }

func (r flightRepo) CreateFlight(ctx context.Context, flight *flights.Flight) error {
	if err := r.s.enter("CreateFlight"); err != nil {
		return err
	}
	defer r.s.lock(ctx)()

	now := time.Now().UTC()
	if flight.ID == uuid.Nil {
		flight.ID = uuid.New()
	}
	flight.Capacity = 0
	flight.CreatedAt, flight.UpdatedAt = now, now

	row := *flight
	row.Seats = nil
	r.s.flights[flight.ID] = row
	return nil
}

func (r flightRepo) GetFlightByID(ctx context.Context, id uuid.UUID) (*flights.Flight, error) {
	if err := r.s.enter("GetFlightByID"); err != nil {
		return nil, err
	}
	defer r.s.lock(ctx)()

	flight, ok := r.s.flights[id]
	if !ok {
		return nil, apperr.FlightNotFound(id.String())
	}
	return &flight, nil
}

func (r flightRepo) ListFlights(ctx context.Context, query flights.FlightListQuery) ([]flights.Flight, int64, error) {
	if err := r.s.enter("ListFlights"); err != nil {
		return nil, 0, err
	}
	defer r.s.lock(ctx)()

	var matched []flights.Flight
	for _, f := range r.s.flights {
		if query.Origin != "" && f.Origin != strings.ToUpper(query.Origin) {
			continue
		}
		if query.Destination != "" && f.Destination != strings.ToUpper(query.Destination) {
			continue
		}
		if query.Date != "" && f.DepartureAt.UTC().Format("2006-01-02") != query.Date {
			continue
		}
		matched = append(matched, f)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].DepartureAt.Before(matched[j].DepartureAt) })

	page, limit := pagination.Normalize(query.Page, query.Limit)
	return paginate(matched, page, limit), int64(len(matched)), nil
}

func (r flightRepo) GetCapacitySnapshot(ctx context.Context, flightID uuid.UUID) (*flights.CapacitySnapshot, error) {
	if err := r.s.enter("GetCapacitySnapshot"); err != nil {
		return nil, err
	}
	defer r.s.lock(ctx)()

	flight, ok := r.s.flights[flightID]
	if !ok {
		return nil, apperr.FlightNotFound(flightID.String())
	}

	seats := r.s.flightSeats(flightID)
	ids := make([]uuid.UUID, 0, len(seats))
	for _, seat := range seats {
		ids = append(ids, seat.ID)
	}
	return &flights.CapacitySnapshot{FlightID: flightID, Capacity: flight.Capacity, SeatIDs: ids}, nil
}

func (r flightRepo) AdjustCapacity(ctx context.Context, flightID uuid.UUID, delta int) error {
	if err := r.s.enter("AdjustCapacity"); err != nil {
		return err
	}
	defer r.s.lock(ctx)()

	flight, ok := r.s.flights[flightID]
	if !ok {
		return apperr.FlightNotFound(flightID.String())
	}
	if flight.Capacity+delta < 0 {
		return apperr.InvalidState("capacity would become negative")
	}
	flight.Capacity += delta
	flight.UpdatedAt = time.Now().UTC()
	r.s.flights[flightID] = flight
	return nil
}

func (r flightRepo) CountUnbookedSeats(ctx context.Context, flightID uuid.UUID) (int64, error) {
	if err := r.s.enter("CountUnbookedSeats"); err != nil {
		return 0, err
	}
	defer r.s.lock(ctx)()

	var n int64
	for _, seat := range r.s.seats {
		if seat.FlightID == flightID && seat.Status != flights.SeatBooked {
			n++
		}
	}
	return n, nil
}

func (r flightRepo) CreateSeats(ctx context.Context, seats []flights.Seat) error {
	if err := r.s.enter("CreateSeats"); err != nil {
		return err
	}
	defer r.s.lock(ctx)()

	for _, seat := range seats {
		for _, existing := range r.s.seats {
			if existing.FlightID == seat.FlightID && existing.Label == seat.Label {
				return apperr.InvalidState("seat label already exists on this flight")
			}
		}
		if seat.ID == uuid.Nil {
			seat.ID = uuid.New()
		}
		r.s.seats[seat.ID] = seat
	}
	return nil
}

func (r flightRepo) DeleteFreeSeat(ctx context.Context, flightID, seatID uuid.UUID) (bool, error) {
	if err := r.s.enter("DeleteFreeSeat"); err != nil {
		return false, err
	}
	defer r.s.lock(ctx)()

	seat, ok := r.s.seats[seatID]
	if !ok || seat.FlightID != flightID || seat.Status != flights.SeatFree {
		return false, nil
	}
	delete(r.s.seats, seatID)
	return true, nil
}

func (r flightRepo) GetSeatsByIDs(ctx context.Context, flightID uuid.UUID, seatIDs []uuid.UUID) ([]flights.Seat, error) {
	if err := r.s.enter("GetSeatsByIDs"); err != nil {
		return nil, err
	}
	defer r.s.lock(ctx)()
	return r.s.seatsByIDs(flightID, seatIDs), nil
}

func (r flightRepo) ListSeats(ctx context.Context, flightID uuid.UUID) ([]flights.Seat, error) {
	if err := r.s.enter("ListSeats"); err != nil {
		return nil, err
	}
	defer r.s.lock(ctx)()
	return r.s.flightSeats(flightID), nil
}

type reservationRepo struct{ s *Store }

func (r reservationRepo) GetReservation(ctx context.Context, requestID string) (*reservations.Reservation, error) {
	if err := r.s.enter("GetReservation"); err != nil {
		return nil, err
	}
	defer r.s.lock(ctx)()

	reservation, ok := r.s.reservations[requestID]
	if !ok {
		return nil, nil
	}
	reservation.SeatIDs = append([]uuid.UUID(nil), reservation.SeatIDs...)
	return &reservation, nil
}

func (r reservationRepo) CreateReservation(ctx context.Context, reservation *reservations.Reservation) error {
	if err := r.s.enter("CreateReservation"); err != nil {
		return err
	}
	defer r.s.lock(ctx)()

	if _, exists := r.s.reservations[reservation.RequestID]; exists {
		return apperr.Newf(apperr.KindIdempotencyConflict, "request id %s is already in use", reservation.RequestID)
	}
	now := time.Now().UTC()
	if reservation.CreatedAt.IsZero() {
		reservation.CreatedAt = now
	}
	reservation.UpdatedAt = now

	row := *reservation
	row.SeatIDs = append([]uuid.UUID(nil), reservation.SeatIDs...)
	r.s.reservations[row.RequestID] = row
	return nil
}

func (r reservationRepo) ClaimReservation(ctx context.Context, requestID, token string, now time.Time) (bool, error) {
	if err := r.s.enter("ClaimReservation"); err != nil {
		return false, err
	}
	defer r.s.lock(ctx)()

	return r.transition(requestID, func(res *reservations.Reservation) bool {
		if !res.ExpiresAt.After(now) || (res.ClaimToken != nil && *res.ClaimToken != token) {
			return false
		}
		claim := token
		res.ClaimToken = &claim
		return true
	}, now), nil
}

func (r reservationRepo) MarkConfirmed(ctx context.Context, requestID, claimToken string, now time.Time) (bool, error) {
	if err := r.s.enter("MarkConfirmed"); err != nil {
		return false, err
	}
	defer r.s.lock(ctx)()

	return r.transition(requestID, func(res *reservations.Reservation) bool {
		if !res.ExpiresAt.After(now) || !res.ClaimedBy(claimToken) {
			return false
		}
		res.Status = reservations.StatusConfirmed
		res.ConfirmedAt = &now
		return true
	}, now), nil
}

func (r reservationRepo) MarkReleased(ctx context.Context, requestID string, claimToken *string, now time.Time) (bool, error) {
	if err := r.s.enter("MarkReleased"); err != nil {
		return false, err
	}
	defer r.s.lock(ctx)()

	return r.transition(requestID, func(res *reservations.Reservation) bool {
		if claimToken != nil && !res.ClaimedBy(*claimToken) {
			return false
		}
		res.Status = reservations.StatusReleased
		res.ReleasedAt = &now
		return true
	}, now), nil
}

func (r reservationRepo) MarkExpired(ctx context.Context, requestID string, now time.Time) (bool, error) {
	if err := r.s.enter("MarkExpired"); err != nil {
		return false, err
	}
	defer r.s.lock(ctx)()

	return r.transition(requestID, func(res *reservations.Reservation) bool {
		if res.ExpiresAt.After(now) {
			return false
		}
		res.Status = reservations.StatusExpired
		res.ReleasedAt = &now
		return true
	}, now), nil
}

// transition applies apply to an ACTIVE reservation. Terminal reservations never change.
func (r reservationRepo) transition(requestID string, apply func(*reservations.Reservation) bool, now time.Time) bool {
	res, ok := r.s.reservations[requestID]
	if !ok || res.Status != reservations.StatusActive {
		return false
	}
	if !apply(&res) {
		return false
	}
	res.UpdatedAt = now
	r.s.reservations[requestID] = res
	return true
}

func (r reservationRepo) ListExpired(ctx context.Context, now time.Time, limit int) ([]reservations.Reservation, error) {
	if err := r.s.enter("ListExpired"); err != nil {
		return nil, err
	}
	defer r.s.lock(ctx)()

	var expired []reservations.Reservation
	for _, res := range r.s.reservations {
		if res.Status == reservations.StatusActive && !res.ExpiresAt.After(now) {
			res.SeatIDs = append([]uuid.UUID(nil), res.SeatIDs...)
			expired = append(expired, res)
		}
	}
	sort.Slice(expired, func(i, j int) bool { return expired[i].ExpiresAt.Before(expired[j].ExpiresAt) })
	if limit > 0 && len(expired) > limit {
		expired = expired[:limit]
	}
	return expired, nil
}

func (r reservationRepo) HoldSeats(ctx context.Context, flightID uuid.UUID, seatIDs []uuid.UUID, requestID string, now, until time.Time) (int64, error) {
	if err := r.s.enter("HoldSeats"); err != nil {
		return 0, err
	}
	defer r.s.lock(ctx)()

	return r.s.updateSeats(flightID, seatIDs, func(seat *flights.Seat) bool {
		lapsed := seat.Status == flights.SeatHeld && seat.HeldUntil != nil && !seat.HeldUntil.After(now)
		if seat.Status != flights.SeatFree && !lapsed {
			return false
		}
		id, heldUntil := requestID, until
		seat.Status = flights.SeatHeld
		seat.RequestID = &id
		seat.HeldUntil = &heldUntil
		return true
	}), nil
}

func (r reservationRepo) ConfirmSeats(ctx context.Context, flightID uuid.UUID, seatIDs []uuid.UUID, requestID string) (int64, error) {
	if err := r.s.enter("ConfirmSeats"); err != nil {
		return 0, err
	}
	defer r.s.lock(ctx)()

	return r.s.updateSeats(flightID, seatIDs, func(seat *flights.Seat) bool {
		if seat.Status != flights.SeatHeld || seat.RequestID == nil || *seat.RequestID != requestID {
			return false
		}
		seat.Status = flights.SeatBooked
		seat.HeldUntil = nil
		return true
	}), nil
}

func (r reservationRepo) ReleaseSeats(ctx context.Context, flightID uuid.UUID, requestID string) (int64, error) {
	if err := r.s.enter("ReleaseSeats"); err != nil {
		return 0, err
	}
	defer r.s.lock(ctx)()

	return r.s.updateSeats(flightID, nil, func(seat *flights.Seat) bool {
		if seat.Status != flights.SeatHeld || seat.RequestID == nil || *seat.RequestID != requestID {
			return false
		}
		seat.Status = flights.SeatFree
		seat.RequestID = nil
		seat.HeldUntil = nil
		return true
	}), nil
}

func (r reservationRepo) UnbookSeats(ctx context.Context, flightID uuid.UUID, seatIDs []uuid.UUID) (int64, error) {
	if err := r.s.enter("UnbookSeats"); err != nil {
		return 0, err
	}
	defer r.s.lock(ctx)()

	return r.s.updateSeats(flightID, seatIDs, func(seat *flights.Seat) bool {
		if seat.Status != flights.SeatBooked {
			return false
		}
		seat.Status = flights.SeatFree
		seat.RequestID = nil
		seat.HeldUntil = nil
		return true
	}), nil
}

func (r reservationRepo) GetSeatsByIDs(ctx context.Context, flightID uuid.UUID, seatIDs []uuid.UUID) ([]flights.Seat, error) {
	if err := r.s.enter("GetSeatsByIDs"); err != nil {
		return nil, err
	}
	defer r.s.lock(ctx)()
	return r.s.seatsByIDs(flightID, seatIDs), nil
}

type bookingRepo struct{ s *Store }

func (r bookingRepo) CreateTransaction(ctx context.Context, txn *bookings.TicketTransaction) error {
	if err := r.s.enter("CreateTransaction"); err != nil {
		return err
	}
	defer r.s.lock(ctx)()

	for _, existing := range r.s.transactions {
		if existing.RequestID == txn.RequestID {
			return apperr.Newf(apperr.KindIdempotencyConflict, "request id %s already has a transaction", txn.RequestID)
		}
	}
	if txn.ID == uuid.Nil {
		txn.ID = uuid.New()
	}
	row := *txn
	row.Tickets = nil
	r.s.transactions[txn.ID] = row
	return nil
}

func (r bookingRepo) CreateTickets(ctx context.Context, tickets []bookings.Ticket) error {
	if err := r.s.enter("CreateTickets"); err != nil {
		return err
	}
	defer r.s.lock(ctx)()

	for _, ticket := range tickets {
		for _, existing := range r.s.tickets {
			sameRequest := existing.RequestID == ticket.RequestID && existing.SeatID == ticket.SeatID
			bothActive := existing.SeatID == ticket.SeatID && existing.Status == bookings.TicketActive && ticket.Status == bookings.TicketActive
			if sameRequest || bothActive {
				return apperr.InvalidState("a seat in this booking already has an active ticket")
			}
		}
	}
	for i := range tickets {
		if tickets[i].ID == uuid.Nil {
			tickets[i].ID = uuid.New()
		}
		r.s.tickets[tickets[i].ID] = tickets[i]
	}
	return nil
}

func (r bookingRepo) MarkTicketCancelled(ctx context.Context, ticketID uuid.UUID, now time.Time) (bool, error) {
	if err := r.s.enter("MarkTicketCancelled"); err != nil {
		return false, err
	}
	defer r.s.lock(ctx)()

	ticket, ok := r.s.tickets[ticketID]
	if !ok || ticket.Status != bookings.TicketActive {
		return false, nil
	}
	ticket.Status = bookings.TicketCancelled
	ticket.CancelledAt = &now
	ticket.UpdatedAt = now
	r.s.tickets[ticketID] = ticket
	return true, nil
}

func (r bookingRepo) RecordRefund(ctx context.Context, transactionID uuid.UUID, amount float64) error {
	if err := r.s.enter("RecordRefund"); err != nil {
		return err
	}
	defer r.s.lock(ctx)()

	txn, ok := r.s.transactions[transactionID]
	if !ok || txn.RefundedAmount+amount > txn.GrossAmount+0.005 {
		return apperr.InvalidState("refund exceeds the captured amount")
	}
	txn.RefundedAmount += amount
	txn.Status = bookings.TransactionPartiallyRefunded
	if txn.RefundedAmount >= txn.GrossAmount-0.005 {
		txn.Status = bookings.TransactionRefunded
	}
	txn.UpdatedAt = time.Now().UTC()
	r.s.transactions[transactionID] = txn
	return nil
}

func (r bookingRepo) GetTicketByID(ctx context.Context, id uuid.UUID) (*bookings.Ticket, error) {
	if err := r.s.enter("GetTicketByID"); err != nil {
		return nil, err
	}
	defer r.s.lock(ctx)()

	ticket, ok := r.s.tickets[id]
	if !ok {
		return nil, apperr.Newf(apperr.KindTicketNotFound, "ticket %s not found", id)
	}
	return &ticket, nil
}

func (r bookingRepo) GetTicketsByRequestID(ctx context.Context, requestID string) ([]bookings.Ticket, error) {
	if err := r.s.enter("GetTicketsByRequestID"); err != nil {
		return nil, err
	}
	defer r.s.lock(ctx)()

	var tickets []bookings.Ticket
	for _, ticket := range r.s.tickets {
		if ticket.RequestID == requestID {
			tickets = append(tickets, ticket)
		}
	}
	sort.Slice(tickets, func(i, j int) bool { return tickets[i].SeatLabel < tickets[j].SeatLabel })
	return tickets, nil
}

func (r bookingRepo) GetTransactionByID(ctx context.Context, id uuid.UUID) (*bookings.TicketTransaction, error) {
	if err := r.s.enter("GetTransactionByID"); err != nil {
		return nil, err
	}
	defer r.s.lock(ctx)()

	txn, ok := r.s.transactions[id]
	if !ok {
		return nil, apperr.Newf(apperr.KindTicketNotFound, "transaction %s not found", id)
	}
	for _, ticket := range r.s.tickets {
		if ticket.TransactionID != nil && *ticket.TransactionID == id {
			txn.Tickets = append(txn.Tickets, ticket)
		}
	}
	sort.Slice(txn.Tickets, func(i, j int) bool { return txn.Tickets[i].SeatLabel < txn.Tickets[j].SeatLabel })
	return &txn, nil
}

func (r bookingRepo) ListTickets(ctx context.Context, filter bookings.TicketFilter) ([]bookings.Ticket, int64, error) {
	if err := r.s.enter("ListTickets"); err != nil {
		return nil, 0, err
	}
	defer r.s.lock(ctx)()

	var matched []bookings.Ticket
	for _, ticket := range r.s.tickets {
		if filter.UserID != nil && ticket.UserID != *filter.UserID {
			continue
		}
		if filter.FlightID != nil && ticket.FlightID != *filter.FlightID {
			continue
		}
		if filter.Status != "" && ticket.Status != filter.Status {
			continue
		}
		matched = append(matched, ticket)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].CreatedAt.After(matched[j].CreatedAt) })

	page, limit := pagination.Normalize(filter.Page, filter.Limit)
	return paginate(matched, page, limit), int64(len(matched)), nil
}

// flightSeats returns the seats of flightID ordered by label. Caller holds the lock.
func (s *Store) flightSeats(flightID uuid.UUID) []flights.Seat {
	var seats []flights.Seat
	for _, seat := range s.seats {
		if seat.FlightID == flightID {
			seats = append(seats, seat)
		}
	}
	sortSeats(seats)
	return seats
}

func (s *Store) seatsByIDs(flightID uuid.UUID, seatIDs []uuid.UUID) []flights.Seat {
	wanted := idSet(seatIDs)
	var seats []flights.Seat
	for _, seat := range s.seats {
		if _, ok := wanted[seat.ID]; ok && seat.FlightID == flightID {
			seats = append(seats, seat)
		}
	}
	sortSeats(seats)
	return seats
}

// updateSeats applies apply to the seats of flightID, limited to seatIDs when
// given, and returns how many it changed. Caller holds the lock.
func (s *Store) updateSeats(flightID uuid.UUID, seatIDs []uuid.UUID, apply func(*flights.Seat) bool) int64 {
	var wanted map[uuid.UUID]struct{}
	if seatIDs != nil {
		wanted = idSet(seatIDs)
	}

	now := time.Now().UTC()
	var affected int64
	for id, seat := range s.seats {
		if seat.FlightID != flightID {
			continue
		}
		if wanted != nil {
			if _, ok := wanted[id]; !ok {
				continue
			}
		}
		if apply(&seat) {
			seat.UpdatedAt = now
			s.seats[id] = seat
			affected++
		}
	}
	return affected
}

func paginate[T any](rows []T, page, limit int) []T {
	offset := pagination.Offset(page, limit)
	if offset >= len(rows) {
		return []T{}
	}
	end := offset + limit
	if end > len(rows) {
		end = len(rows)
	}
	return rows[offset:end]
}
