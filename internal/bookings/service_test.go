package bookings_test

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"testing"

	"flightbook/internal/bookings"
	"flightbook/internal/flights"
	"flightbook/internal/notifications"
	"flightbook/internal/payments"
	"flightbook/internal/reservations"
	"flightbook/internal/shared/apperr"
	"flightbook/internal/storetest"
	"flightbook/internal/users"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingGateway remembers every successful capture of the mock provider.
type recordingGateway struct {
	*payments.MockGateway

	mu       sync.Mutex
	captures []*payments.ChargeResponse
}

func newRecordingGateway() *recordingGateway {
	return &recordingGateway{MockGateway: payments.NewMockGateway(nil)}
}

func (g *recordingGateway) Charge(ctx context.Context, req *payments.ChargeRequest) (*payments.ChargeResponse, error) {
	resp, err := g.MockGateway.Charge(ctx, req)
	if err == nil && resp.Success {
		g.mu.Lock()
		g.captures = append(g.captures, resp)
		g.mu.Unlock()
	}
	return resp, err
}

func (g *recordingGateway) charges() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.captures)
}

// netCaptured is everything captured minus everything refunded.
func (g *recordingGateway) netCaptured() float64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	var total float64
	for _, c := range g.captures {
		total += c.Amount - g.Refunded(c.TransactionID)
	}
	return total
}

type directory map[uuid.UUID][2]string

func (d directory) GetUserByID(_ context.Context, userID uuid.UUID) (string, string, error) {
	entry, ok := d[userID]
	if !ok {
		return "", "", errors.New("user not found")
	}
	return entry[0], entry[1], nil
}

type fixture struct {
	store     *storetest.Store
	gateway   *recordingGateway
	publisher *storetest.Publisher
	svc       bookings.Service
	flight    flights.Flight
	seats     map[string]uuid.UUID
	ada       uuid.UUID
	alan      uuid.UUID

	build func(gateway payments.Gateway) bookings.Service
}

func newFixture(t *testing.T, labels ...string) *fixture {
	t.Helper()
	if len(labels) == 0 {
		labels = []string{"1A", "1B", "1C"}
	}

	store := storetest.New()
	flight, seats := store.SeedFlight(120, labels...)
	byLabel := make(map[string]uuid.UUID, len(seats))
	for _, seat := range seats {
		byLabel[seat.Label] = seat.ID
	}

	ada, alan := uuid.New(), uuid.New()
	dir := directory{
		ada:  {"ada@flightbook.test", "Ada Lovelace"},
		alan: {"alan@flightbook.test", "Alan Turing"},
	}

	flightSvc := flights.NewService(store.Flights(), store)
	reservationSvc := reservations.NewService(store.Reservations(), flightSvc, store, reservations.Config{})
	gateway := newRecordingGateway()
	publisher := &storetest.Publisher{}

	build := func(gateway payments.Gateway) bookings.Service {
		return bookings.NewService(store.Bookings(), reservationSvc, flightSvc, gateway, publisher, dir, store, bookings.Config{})
	}
	return &fixture{
		store:     store,
		gateway:   gateway,
		publisher: publisher,
		svc:       build(gateway),
		flight:    flight,
		seats:     byLabel,
		ada:       ada,
		alan:      alan,
		build:     build,
	}
}

func (f *fixture) ids(labels ...string) []uuid.UUID {
	out := make([]uuid.UUID, 0, len(labels))
	for _, label := range labels {
		out = append(out, f.seats[label])
	}
	return out
}

func (f *fixture) paid(requestID string, userID uuid.UUID, labels ...string) bookings.CommitInput {
	in := f.unpaid(requestID, userID, labels...)
	in.Payment = &bookings.Payment{Method: bookings.PaymentCreditCard, Token: "tok_visa"}
	return in
}

func (f *fixture) unpaid(requestID string, userID uuid.UUID, labels ...string) bookings.CommitInput {
	return bookings.CommitInput{
		RequestID: requestID,
		FlightID:  f.flight.ID,
		SeatIDs:   f.ids(labels...),
		UserID:    userID,
	}
}

func (f *fixture) statuses() map[string]flights.SeatStatus {
	return f.store.SeatStatuses(f.flight.ID)
}

func TestCommitBooking_PaidBooking(t *testing.T) {
	f := newFixture(t)

	in := f.paid("req-1", f.ada, "1A", "1B")
	in.Passengers = []bookings.Passenger{{SeatID: f.seats["1B"], Name: " Grace Hopper ", Email: "Grace@Example.com"}}

	record, err := f.svc.CommitBooking(context.Background(), in)
	require.NoError(t, err)

	require.Len(t, record.Tickets, 2)
	require.NotNil(t, record.Transaction)
	assert.InDelta(t, 240, record.Transaction.GrossAmount, 0.001)
	assert.Equal(t, bookings.TransactionPaid, record.Transaction.Status)
	assert.Equal(t, "usd", record.Transaction.Currency)
	assert.Equal(t, "mock", record.Transaction.Provider)

	byLabel := make(map[string]bookings.Ticket)
	for _, ticket := range record.Tickets {
		byLabel[ticket.SeatLabel] = ticket
		assert.Equal(t, bookings.TicketActive, ticket.Status)
		assert.True(t, strings.HasPrefix(ticket.TicketRef, "FLB-"), ticket.TicketRef)
		require.NotNil(t, ticket.TransactionID)
		assert.Equal(t, record.Transaction.ID, *ticket.TransactionID)
	}
	assert.Equal(t, "Ada Lovelace", byLabel["1A"].PassengerName, "passenger defaults to the booking user")
	assert.Equal(t, "Grace Hopper", byLabel["1B"].PassengerName)
	assert.Equal(t, "grace@example.com", byLabel["1B"].PassengerEmail)

	assert.Equal(t, flights.SeatBooked, f.statuses()["1A"])
	assert.Equal(t, flights.SeatBooked, f.statuses()["1B"])
	assert.Equal(t, 1, f.store.Flight(f.flight.ID).Capacity)
	require.NoError(t, f.store.CheckCapacity())

	events := f.publisher.Events(notifications.EventTypeTicketBooked)
	require.Len(t, events, 1)
	assert.Equal(t, "req-1", events[0].RequestID)
	assert.InDelta(t, 240, events[0].Amount, 0.001)
	assert.Len(t, events[0].TicketIDs, 2)
}

func TestCommitBooking_WithoutPayment(t *testing.T) {
	f := newFixture(t)

	record, err := f.svc.CommitBooking(context.Background(), f.unpaid("req-1", f.ada, "1C"))
	require.NoError(t, err)

	assert.Nil(t, record.Transaction)
	require.Len(t, record.Tickets, 1)
	assert.Nil(t, record.Tickets[0].TransactionID)
	assert.Zero(t, f.store.TransactionCount())
	assert.Zero(t, f.gateway.charges())
	require.NoError(t, f.store.CheckCapacity())
}

func TestCommitBooking_ReplayReturnsCommittedRecord(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.svc.CommitBooking(ctx, f.paid("req-1", f.ada, "1A", "1B"))
	require.NoError(t, err)

	again, err := f.svc.CommitBooking(ctx, f.paid("req-1", f.ada, "1B", "1A"))
	require.NoError(t, err)

	assert.ElementsMatch(t, first.TicketIDs(), again.TicketIDs())
	require.NotNil(t, again.Transaction)
	assert.Equal(t, first.Transaction.ID, again.Transaction.ID)
	assert.Equal(t, 1, f.gateway.charges(), "a replay never charges again")
	assert.Equal(t, 1, f.store.Flight(f.flight.ID).Capacity)
	assert.Len(t, f.publisher.Events(notifications.EventTypeTicketBooked), 1)
}

func TestCommitBooking_ReplayWithDifferentBooking(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.CommitBooking(ctx, f.paid("req-1", f.ada, "1A"))
	require.NoError(t, err)

	_, err = f.svc.CommitBooking(ctx, f.paid("req-1", f.ada, "1B"))
	assert.True(t, apperr.Is(err, apperr.KindIdempotencyConflict))

	_, err = f.svc.CommitBooking(ctx, f.paid("req-1", f.alan, "1A"))
	assert.True(t, apperr.Is(err, apperr.KindIdempotencyConflict))

	assert.Equal(t, flights.SeatFree, f.statuses()["1B"])
	assert.Equal(t, 1, f.gateway.charges())
}

func TestCommitBooking_PaymentDeclinedReleasesSeats(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.gateway.SetForceFailure(true)

	_, err := f.svc.CommitBooking(ctx, f.paid("req-1", f.ada, "1A", "1B"))
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindUpstreamPaymentFailure))

	assert.Equal(t, flights.SeatFree, f.statuses()["1A"])
	assert.Equal(t, flights.SeatFree, f.statuses()["1B"])
	assert.Empty(t, f.store.Tickets(f.flight.ID))
	assert.Zero(t, f.store.TransactionCount())
	assert.Equal(t, 3, f.store.Flight(f.flight.ID).Capacity)

	reservation, ok := f.store.Reservation("req-1")
	require.True(t, ok)
	assert.Equal(t, reservations.StatusReleased, reservation.Status)

	// A request id is spent once its hold is gone; retries use a new one.
	f.gateway.SetForceFailure(false)
	_, err = f.svc.CommitBooking(ctx, f.paid("req-1", f.ada, "1A", "1B"))
	assert.True(t, apperr.Is(err, apperr.KindReservationExpiredOrUnknown))

	_, err = f.svc.CommitBooking(ctx, f.paid("req-2", f.ada, "1A", "1B"))
	assert.NoError(t, err)
}

func TestCommitBooking_LedgerFailureRefundsAndReleases(t *testing.T) {
	f := newFixture(t)
	f.store.FailOn("CreateTickets", apperr.New(apperr.KindStorageUnavailable, "connection reset"))

	_, err := f.svc.CommitBooking(context.Background(), f.paid("req-1", f.ada, "1A", "1B"))
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindStorageUnavailable))

	assert.Equal(t, 1, f.gateway.charges())
	assert.InDelta(t, 0, f.gateway.netCaptured(), 0.001, "the capture is refunded")
	assert.Zero(t, f.store.TransactionCount(), "the transaction row rolls back with the tickets")
	assert.Equal(t, flights.SeatFree, f.statuses()["1A"])
	assert.Equal(t, flights.SeatFree, f.statuses()["1B"])
	require.NoError(t, f.store.CheckCapacity())
}

func TestCommitBooking_ConfirmFailureRollsBackLedger(t *testing.T) {
	f := newFixture(t)
	f.store.FailOn("ConfirmSeats", apperr.New(apperr.KindStorageUnavailable, "timeout"))

	_, err := f.svc.CommitBooking(context.Background(), f.paid("req-1", f.ada, "1A"))
	require.Error(t, err)

	assert.Empty(t, f.store.Tickets(f.flight.ID))
	assert.Zero(t, f.store.TransactionCount())
	assert.Equal(t, flights.SeatFree, f.statuses()["1A"])
	assert.InDelta(t, 0, f.gateway.netCaptured(), 0.001)
	require.NoError(t, f.store.CheckCapacity())
}

func TestCommitBooking_SeatUnavailable(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.CommitBooking(ctx, f.paid("req-1", f.ada, "1B"))
	require.NoError(t, err)

	_, err = f.svc.CommitBooking(ctx, f.paid("req-2", f.alan, "1A", "1B"))
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindSeatAlreadyHeldOrBooked))

	assert.Equal(t, flights.SeatFree, f.statuses()["1A"])
	assert.Equal(t, 1, f.gateway.charges(), "no charge without a hold")
}

func TestCommitBooking_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tests := []struct {
		name string
		in   bookings.CommitInput
	}{
		{"missing request id", f.paid("", f.ada, "1A")},
		{"missing user", f.paid("req-1", uuid.Nil, "1A")},
		{"no seats", f.paid("req-1", f.ada)},
		{"unknown payment method", func() bookings.CommitInput {
			in := f.paid("req-1", f.ada, "1A")
			in.Payment.Method = "CASH"
			return in
		}()},
		{"passenger for a seat outside the booking", func() bookings.CommitInput {
			in := f.paid("req-1", f.ada, "1A")
			in.Passengers = []bookings.Passenger{{SeatID: f.seats["1C"], Name: "Someone"}}
			return in
		}()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.CommitBooking(ctx, tt.in)
			assert.True(t, apperr.Is(err, apperr.KindValidation), "got %v", err)
		})
	}
	assert.Zero(t, f.store.Calls("HoldSeats"))
}

func TestCommitBooking_MissingPassengerNameReleasesHold(t *testing.T) {
	f := newFixture(t)
	stranger := uuid.New() // not in the directory

	in := f.unpaid("req-1", stranger, "1A")
	in.Passengers = []bookings.Passenger{{SeatID: f.seats["1A"], Name: "   "}}

	_, err := f.svc.CommitBooking(context.Background(), in)
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindValidation))
	assert.Equal(t, flights.SeatFree, f.statuses()["1A"])
}

func TestCommitBooking_ConcurrentSameRequest(t *testing.T) {
	f := newFixture(t)

	const callers = 5
	records := make([]*bookings.Record, callers)
	errs := make([]error, callers)

	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			records[i], errs[i] = f.svc.CommitBooking(context.Background(), f.paid("req-1", f.ada, "1A", "1B"))
		}(i)
	}
	wg.Wait()

	var committed []uuid.UUID
	for i := 0; i < callers; i++ {
		if errs[i] != nil {
			assert.True(t, apperr.Is(errs[i], apperr.KindIdempotencyConflict), "caller %d: %v", i, errs[i])
			continue
		}
		if committed == nil {
			committed = records[i].TicketIDs()
		}
		assert.ElementsMatch(t, committed, records[i].TicketIDs(), "caller %d", i)
	}
	require.NotNil(t, committed, "one caller commits")
	assert.Equal(t, 1, f.gateway.charges(), "only the claim holder charges")
	assert.Equal(t, 1, f.store.TransactionCount())
	assert.Len(t, f.store.Tickets(f.flight.ID), 2)
	assert.InDelta(t, 240, f.gateway.netCaptured(), 0.001)
	require.NoError(t, f.store.CheckCapacity())
}

// gatedGateway holds the first charge until proceed is closed and declines
// every later one.
type gatedGateway struct {
	*recordingGateway
	entered chan struct{}
	proceed chan struct{}

	mu    sync.Mutex
	calls int
}

func newGatedGateway(inner *recordingGateway) *gatedGateway {
	return &gatedGateway{recordingGateway: inner, entered: make(chan struct{}), proceed: make(chan struct{})}
}

func (g *gatedGateway) Charge(ctx context.Context, req *payments.ChargeRequest) (*payments.ChargeResponse, error) {
	g.mu.Lock()
	g.calls++
	first := g.calls == 1
	g.mu.Unlock()

	if !first {
		return &payments.ChargeResponse{Status: "failed", FailureReason: "card_declined", Amount: req.Amount}, nil
	}
	close(g.entered)
	<-g.proceed
	return g.recordingGateway.Charge(ctx, req)
}

func (g *gatedGateway) chargeCalls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls
}

func TestCommitBooking_DuplicateDuringChargeLeavesHoldAlone(t *testing.T) {
	f := newFixture(t)
	gateway := newGatedGateway(f.gateway)
	svc := f.build(gateway)
	in := f.paid("req-1", f.ada, "1A", "1B")

	type outcome struct {
		record *bookings.Record
		err    error
	}
	first := make(chan outcome, 1)
	go func() {
		record, err := svc.CommitBooking(context.Background(), in)
		first <- outcome{record, err}
	}()
	<-gateway.entered

	_, err := svc.CommitBooking(context.Background(), in)
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindIdempotencyConflict), "got %v", err)
	assert.Equal(t, 1, gateway.chargeCalls(), "the duplicate never reaches the provider")

	assert.Equal(t, flights.SeatHeld, f.statuses()["1A"], "the duplicate does not release the shared hold")
	assert.Equal(t, flights.SeatHeld, f.statuses()["1B"])
	reservation, ok := f.store.Reservation("req-1")
	require.True(t, ok)
	assert.Equal(t, reservations.StatusActive, reservation.Status)

	close(gateway.proceed)
	result := <-first
	require.NoError(t, result.err)
	assert.Len(t, result.record.Tickets, 2)
	require.NotNil(t, result.record.Transaction)

	assert.Equal(t, flights.SeatBooked, f.statuses()["1A"])
	assert.Equal(t, flights.SeatBooked, f.statuses()["1B"])
	assert.InDelta(t, 240, f.gateway.netCaptured(), 0.001, "the first charge is kept")
	assert.Equal(t, 1, f.store.TransactionCount())
	require.NoError(t, f.store.CheckCapacity())

	replayed, err := svc.CommitBooking(context.Background(), in)
	require.NoError(t, err)
	assert.ElementsMatch(t, result.record.TicketIDs(), replayed.TicketIDs())
}

func TestCommitBooking_ConcurrentCompetingUsers(t *testing.T) {
	f := newFixture(t, "1A", "1B")

	const callers = 10
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
	)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := f.svc.CommitBooking(context.Background(), f.paid(fmt.Sprintf("req-%d", i), f.ada, "1A"))
			if err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, succeeded)
	assert.Len(t, f.store.Tickets(f.flight.ID), 1)
	assert.InDelta(t, 120, f.gateway.netCaptured(), 0.001)
	assert.Equal(t, 1, f.store.Flight(f.flight.ID).Capacity)
	require.NoError(t, f.store.CheckCapacity())
}

func TestCancelBooking_FreesSeatAndRefunds(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	actor := bookings.Actor{UserID: f.ada, Role: users.RoleUser}

	record, err := f.svc.CommitBooking(ctx, f.paid("req-1", f.ada, "1A", "1B"))
	require.NoError(t, err)
	gatewayID := record.Transaction.GatewayTransactionID

	cancelled, err := f.svc.CancelBooking(ctx, record.Tickets[0].ID, actor)
	require.NoError(t, err)
	assert.Equal(t, bookings.TicketCancelled, cancelled.Status)
	assert.NotNil(t, cancelled.CancelledAt)

	assert.Equal(t, flights.SeatFree, f.store.Seat(cancelled.SeatID).Status)
	assert.Equal(t, 2, f.store.Flight(f.flight.ID).Capacity)
	assert.InDelta(t, 120, f.gateway.Refunded(gatewayID), 0.001)
	require.NoError(t, f.store.CheckCapacity())

	txn, err := f.svc.GetTransaction(ctx, record.Transaction.ID, actor)
	require.NoError(t, err)
	assert.Equal(t, bookings.TransactionPartiallyRefunded, txn.Status)
	assert.InDelta(t, 120, txn.RemainingRefundable(), 0.001)

	_, err = f.svc.CancelBooking(ctx, record.Tickets[1].ID, actor)
	require.NoError(t, err)
	txn, err = f.svc.GetTransaction(ctx, record.Transaction.ID, actor)
	require.NoError(t, err)
	assert.Equal(t, bookings.TransactionRefunded, txn.Status)
	assert.InDelta(t, 0, f.gateway.netCaptured(), 0.001)
	assert.Equal(t, 3, f.store.Flight(f.flight.ID).Capacity)

	events := f.publisher.Events(notifications.EventTypeTicketCancelled)
	assert.Len(t, events, 2)

	// The freed seat can be booked again.
	_, err = f.svc.CommitBooking(ctx, f.paid("req-2", f.alan, "1A"))
	require.NoError(t, err)
	require.NoError(t, f.store.CheckCapacity())
}

func TestCancelBooking_Twice(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	actor := bookings.Actor{UserID: f.ada, Role: users.RoleUser}

	record, err := f.svc.CommitBooking(ctx, f.unpaid("req-1", f.ada, "1A"))
	require.NoError(t, err)

	_, err = f.svc.CancelBooking(ctx, record.Tickets[0].ID, actor)
	require.NoError(t, err)
	_, err = f.svc.CancelBooking(ctx, record.Tickets[0].ID, actor)
	assert.True(t, apperr.Is(err, apperr.KindInvalidState))
	assert.Equal(t, 3, f.store.Flight(f.flight.ID).Capacity, "capacity is returned once")
}

func TestCancelBooking_Access(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	record, err := f.svc.CommitBooking(ctx, f.unpaid("req-1", f.ada, "1A"))
	require.NoError(t, err)
	ticketID := record.Tickets[0].ID

	_, err = f.svc.CancelBooking(ctx, ticketID, bookings.Actor{UserID: f.alan, Role: users.RoleUser})
	assert.True(t, apperr.Is(err, apperr.KindForbidden))
	assert.Equal(t, flights.SeatBooked, f.statuses()["1A"])

	_, err = f.svc.GetTicket(ctx, ticketID, bookings.Actor{UserID: f.alan, Role: users.RoleUser})
	assert.True(t, apperr.Is(err, apperr.KindForbidden))

	_, err = f.svc.CancelBooking(ctx, ticketID, bookings.Actor{UserID: uuid.New(), Role: users.RoleAdmin})
	assert.NoError(t, err)

	_, err = f.svc.CancelBooking(ctx, uuid.New(), bookings.Actor{UserID: f.ada, Role: users.RoleUser})
	assert.True(t, apperr.Is(err, apperr.KindTicketNotFound))
}

func TestCancelBooking_RefundFailureKeepsCancellation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	record, err := f.svc.CommitBooking(ctx, f.paid("req-1", f.ada, "1A"))
	require.NoError(t, err)
	f.store.FailOn("RecordRefund", apperr.New(apperr.KindStorageUnavailable, "timeout"))

	cancelled, err := f.svc.CancelBooking(ctx, record.Tickets[0].ID, bookings.Actor{UserID: f.ada})
	require.NoError(t, err)
	assert.Equal(t, bookings.TicketCancelled, cancelled.Status)
	assert.Equal(t, flights.SeatFree, f.statuses()["1A"])
}

func TestListTickets(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.CommitBooking(ctx, f.unpaid("req-1", f.ada, "1A", "1B"))
	require.NoError(t, err)
	_, err = f.svc.CommitBooking(ctx, f.unpaid("req-2", f.alan, "1C"))
	require.NoError(t, err)

	page, err := f.svc.ListTickets(ctx, bookings.TicketFilter{UserID: &f.ada})
	require.NoError(t, err)
	assert.EqualValues(t, 2, page.TotalCount)
	assert.Len(t, page.Tickets, 2)
	assert.Equal(t, 1, page.TotalPages)

	page, err = f.svc.ListTickets(ctx, bookings.TicketFilter{FlightID: &f.flight.ID, Limit: 1, Page: 2})
	require.NoError(t, err)
	assert.EqualValues(t, 3, page.TotalCount)
	assert.Len(t, page.Tickets, 1)
	assert.Equal(t, 3, page.TotalPages)
}

// Random commits and cancellations must keep capacity equal to the number of
// unbooked seats and never issue two active tickets for one seat.
func TestLedgerAccounting_RandomOperations(t *testing.T) {
	labels := []string{"1A", "1B", "1C", "1D", "2A", "2B"}
	f := newFixture(t, labels...)
	ctx := context.Background()
	rng := rand.New(rand.NewSource(7))
	admin := bookings.Actor{UserID: uuid.New(), Role: users.RoleAdmin}

	for i := 0; i < 200; i++ {
		switch rng.Intn(4) {
		case 0, 1:
			picked := []string{labels[rng.Intn(len(labels))], labels[rng.Intn(len(labels))]}
			in := f.paid(fmt.Sprintf("req-%d", i), f.ada, picked...)
			if rng.Intn(2) == 0 {
				in.Payment = nil
			}
			_, _ = f.svc.CommitBooking(ctx, in)
		case 2:
			tickets := f.store.Tickets(f.flight.ID)
			if len(tickets) == 0 {
				continue
			}
			_, _ = f.svc.CancelBooking(ctx, tickets[rng.Intn(len(tickets))].ID, admin)
		case 3:
			f.gateway.SetForceFailure(rng.Intn(3) == 0)
		}

		require.NoError(t, f.store.CheckCapacity(), "after step %d", i)
	}
}
