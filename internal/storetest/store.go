// Package storetest is an in-memory implementation of the flight, reservation
// and booking repositories for tests. Transactions are serializable: WithTx holds
// the store lock for its whole duration and restores a snapshot on error.
package storetest

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"flightbook/internal/bookings"
	"flightbook/internal/flights"
	"flightbook/internal/reservations"
	"flightbook/internal/shared/database/transaction"

	"github.com/google/uuid"
)

type Store struct {
	mu sync.Mutex

	flights      map[uuid.UUID]flights.Flight
	seats        map[uuid.UUID]flights.Seat
	reservations map[string]reservations.Reservation
	transactions map[uuid.UUID]bookings.TicketTransaction
	tickets      map[uuid.UUID]bookings.Ticket

	failMu   sync.Mutex
	failures map[string][]error
	calls    map[string]int
}

type txHandle struct {
	store *Store
}

func New() *Store {
	return &Store{
		flights:      make(map[uuid.UUID]flights.Flight),
		seats:        make(map[uuid.UUID]flights.Seat),
		reservations: make(map[string]reservations.Reservation),
		transactions: make(map[uuid.UUID]bookings.TicketTransaction),
		tickets:      make(map[uuid.UUID]bookings.Ticket),
		failures:     make(map[string][]error),
		calls:        make(map[string]int),
	}
}

func (s *Store) Flights() flights.Repository { return flightRepo{s} }
func (s *Store) Reservations() reservations.Repository { return reservationRepo{s} }
func (s *Store) Bookings() bookings.Repository { return bookingRepo{s} }

// FailOn makes the next call of the named repository method return err. Calling
// it several times queues several failures.
func (s *Store) FailOn(method string, err error) {
	s.failMu.Lock()
	defer s.failMu.Unlock()
	s.failures[method] = append(s.failures[method], err)
}

// Calls returns how often the named repository method ran.
func (s *Store) Calls(method string) int {
	s.failMu.Lock()
	defer s.failMu.Unlock()
	return s.calls[method]
}

func (s *Store) enter(method string) error {
	s.failMu.Lock()
	defer s.failMu.Unlock()
	s.calls[method]++
	queued := s.failures[method]
	if len(queued) == 0 {
		return nil
	}
	s.failures[method] = queued[1:]
	return queued[0]
}

// lock takes the store lock unless ctx already runs inside one of its transactions.
func (s *Store) lock(ctx context.Context) func() {
	if s.inTx(ctx) {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

func (s *Store) inTx(ctx context.Context) bool {
	h, ok := transaction.Handle(ctx).(*txHandle)
	return ok && h.store == s
}

// WithTx implements transaction.Transactor.
func (s *Store) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if s.inTx(ctx) {
		return fn(ctx)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snap := s.snapshot()
	if err := fn(transaction.WithHandle(ctx, &txHandle{store: s})); err != nil {
		s.restore(snap)
		return err
	}
	return nil
}

type snapshot struct {
	flights      map[uuid.UUID]flights.Flight
	seats        map[uuid.UUID]flights.Seat
	reservations map[string]reservations.Reservation
	transactions map[uuid.UUID]bookings.TicketTransaction
	tickets      map[uuid.UUID]bookings.Ticket
}

func (s *Store) snapshot() snapshot {
	return snapshot{
		flights:      cloneMap(s.flights),
		seats:        cloneMap(s.seats),
		reservations: cloneMap(s.reservations),
		transactions: cloneMap(s.transactions),
		tickets:      cloneMap(s.tickets),
	}
}

func (s *Store) restore(snap snapshot) {
	s.flights = snap.flights
	s.seats = snap.seats
	s.reservations = snap.reservations
	s.transactions = snap.transactions
	s.tickets = snap.tickets
}

func cloneMap[K comparable, V any](in map[K]V) map[K]V {
	out := make(map[K]V, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

// SeedFlight inserts a flight with one FREE seat per label at the given price.
// Capacity equals the number of seats.
func (s *Store) SeedFlight(price float64, labels ...string) (flights.Flight, []flights.Seat) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	flight := flights.Flight{
		ID:           uuid.New(),
		FlightNumber: "FB100",
		Airline:      "Flightbook Air",
		Origin:       "SFO",
		Destination:  "JFK",
		DepartureAt:  now.Add(48 * time.Hour),
		ArrivalAt:    now.Add(53 * time.Hour),
		Capacity:     len(labels),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	s.flights[flight.ID] = flight

	seats := make([]flights.Seat, 0, len(labels))
	for _, label := range labels {
		seat := flights.Seat{
			ID:        uuid.New(),
			FlightID:  flight.ID,
			Label:     label,
			Class:     flights.ClassEconomy,
			Price:     price,
			Status:    flights.SeatFree,
			CreatedAt: now,
			UpdatedAt: now,
		}
		s.seats[seat.ID] = seat
		seats = append(seats, seat)
	}
	return flight, seats
}

func (s *Store) Flight(id uuid.UUID) flights.Flight {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.flights[id]
}

func (s *Store) Seat(id uuid.UUID) flights.Seat {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seats[id]
}

// SeatStatuses returns the status of every seat of flightID keyed by label.
func (s *Store) SeatStatuses(flightID uuid.UUID) map[string]flights.SeatStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]flights.SeatStatus)
	for _, seat := range s.seats {
		if seat.FlightID == flightID {
			out[seat.Label] = seat.Status
		}
	}
	return out
}

func (s *Store) Reservation(requestID string) (reservations.Reservation, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.reservations[requestID]
	return r, ok
}

// Tickets returns all tickets of flightID.
func (s *Store) Tickets(flightID uuid.UUID) []bookings.Ticket {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []bookings.Ticket
	for _, t := range s.tickets {
		if t.FlightID == flightID {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SeatLabel < out[j].SeatLabel })
	return out
}

func (s *Store) TransactionCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.transactions)
}

// CheckCapacity verifies the seat counters and that tickets and BOOKED seats
// match one to one: no seat carries two active tickets and every BOOKED seat
// carries one.
func (s *Store) CheckCapacity() error {
	if err := s.CheckSeatCounters(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	active := make(map[uuid.UUID]int)
	for _, t := range s.tickets {
		if t.Status == bookings.TicketActive {
			active[t.SeatID]++
		}
	}
	for seatID, n := range active {
		if n > 1 {
			return fmt.Errorf("seat %s has %d active tickets", seatID, n)
		}
		if s.seats[seatID].Status != flights.SeatBooked {
			return fmt.Errorf("seat %s has an active ticket but is %s", seatID, s.seats[seatID].Status)
		}
	}
	for id, seat := range s.seats {
		if seat.Status == flights.SeatBooked && active[id] == 0 {
			return fmt.Errorf("seat %s (%s) is BOOKED without an active ticket", id, seat.Label)
		}
	}
	return nil
}

// CheckSeatCounters verifies that every flight's capacity equals its number of
// seats that are not BOOKED. Tests of the reservation engine alone, which books
// seats without issuing tickets, use it instead of CheckCapacity.
func (s *Store) CheckSeatCounters() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, flight := range s.flights {
		unbooked := 0
		for _, seat := range s.seats {
			if seat.FlightID == id && seat.Status != flights.SeatBooked {
				unbooked++
			}
		}
		if flight.Capacity != unbooked {
			return fmt.Errorf("flight %s: capacity %d, unbooked seats %d", id, flight.Capacity, unbooked)
		}
	}
	return nil
}

func sortSeats(seats []flights.Seat) {
	sort.Slice(seats, func(i, j int) bool { return seats[i].Label < seats[j].Label })
}

func idSet(ids []uuid.UUID) map[uuid.UUID]struct{} {
	set := make(map[uuid.UUID]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}
