package reservations_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"flightbook/internal/flights"
	"flightbook/internal/notifications"
	"flightbook/internal/reservations"
	"flightbook/internal/shared/config"
	"flightbook/internal/storetest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLease struct {
	ok       bool
	err      error
	acquired int
	released int
}

func (l *fakeLease) Acquire(context.Context) (func(), bool, error) {
	l.acquired++
	if l.err != nil || !l.ok {
		return nil, false, l.err
	}
	return func() { l.released++ }, true, nil
}

func TestJobProcessor_RunOnceExpiresAndPublishes(t *testing.T) {
	f := newFixture(t)
	publisher := &storetest.Publisher{}
	lease := &fakeLease{ok: true}
	jobs := reservations.NewJobProcessor(f.svc, publisher, lease, nil)

	_, err := f.reserve("req-1", "1A", "1B")
	require.NoError(t, err)
	f.clock.Advance(15 * time.Minute)

	n, err := jobs.RunOnce(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, 1, lease.released)

	events := publisher.Events(notifications.EventTypeReservationExpired)
	require.Len(t, events, 1)
	assert.Equal(t, "req-1", events[0].RequestID)
	assert.Equal(t, f.flight.ID, events[0].FlightID)
	assert.ElementsMatch(t, f.ids("1A", "1B"), events[0].SeatIDs)

	assert.Equal(t, flights.SeatFree, f.statuses()["1A"])
}

func TestJobProcessor_SkipsWithoutLease(t *testing.T) {
	f := newFixture(t)
	lease := &fakeLease{ok: false}
	jobs := reservations.NewJobProcessor(f.svc, nil, lease, nil)

	_, err := f.reserve("req-1", "1A")
	require.NoError(t, err)
	f.clock.Advance(time.Hour)

	n, err := jobs.RunOnce(context.Background(), 0)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Equal(t, flights.SeatHeld, f.statuses()["1A"], "another instance owns the sweep")
}

func TestJobProcessor_SweepsWhenLeaseStoreFails(t *testing.T) {
	f := newFixture(t)
	lease := &fakeLease{err: errors.New("redis down")}
	jobs := reservations.NewJobProcessor(f.svc, nil, lease, nil)

	_, err := f.reserve("req-1", "1A")
	require.NoError(t, err)
	f.clock.Advance(time.Hour)

	n, err := jobs.RunOnce(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Zero(t, lease.released)
}

func TestJobProcessor_PublishFailureDoesNotFailSweep(t *testing.T) {
	f := newFixture(t)
	publisher := &storetest.Publisher{}
	publisher.FailWith(errors.New("broker unavailable"))
	jobs := reservations.NewJobProcessor(f.svc, publisher, nil, nil)

	_, err := f.reserve("req-1", "1A")
	require.NoError(t, err)
	f.clock.Advance(time.Hour)

	n, err := jobs.RunOnce(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, flights.SeatFree, f.statuses()["1A"])
}

func TestJobProcessor_StartStop(t *testing.T) {
	f := newFixture(t)
	jobs := reservations.NewJobProcessor(f.svc, nil, nil, &reservations.JobConfig{
		SweepInterval: 10 * time.Millisecond,
		BatchSize:     10,
	})

	_, err := f.reserve("req-1", "1A")
	require.NoError(t, err)
	f.clock.Advance(time.Hour)

	jobs.Start(context.Background())
	assert.Eventually(t, func() bool {
		return f.statuses()["1A"] == flights.SeatFree
	}, time.Second, 5*time.Millisecond)

	jobs.Stop()
	jobs.Stop()
	assert.Equal(t, "stopped", jobs.GetJobStatus()["status"])
}

func TestJobConfigFromBooking(t *testing.T) {
	cfg := reservations.JobConfigFromBooking(config.BookingConfig{SweepInterval: 5 * time.Second})
	assert.Equal(t, 5*time.Second, cfg.SweepInterval)
	assert.Equal(t, reservations.DefaultJobConfig().BatchSize, cfg.BatchSize)
}
