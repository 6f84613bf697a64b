package apperr

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	wrapped := fmt.Errorf("reserve: %w", SeatNotFound([]string{"s1"}))

	assert.Equal(t, KindSeatNotFound, KindOf(wrapped))
	assert.True(t, Is(wrapped, KindSeatNotFound))
	assert.Equal(t, KindInternal, KindOf(errors.New("plain")))
	assert.False(t, Is(nil, KindInternal))
}

func TestFromStorage(t *testing.T) {
	tests := []struct {
		name string
		err  error
		kind Kind
	}{
		{"serialization failure", &pgconn.PgError{Code: "40001"}, KindStorageUnavailable},
		{"deadlock", &pgconn.PgError{Code: "40P01"}, KindStorageUnavailable},
		{"connection exception", &pgconn.PgError{Code: "08006"}, KindStorageUnavailable},
		{"unique violation", &pgconn.PgError{Code: "23505"}, KindInternal},
		{"bad connection", driver.ErrBadConn, KindStorageUnavailable},
		{"deadline", context.DeadlineExceeded, KindStorageUnavailable},
		{"unknown", errors.New("boom"), KindInternal},
		{"already typed", FlightNotFound("f1"), KindFlightNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := FromStorage(tt.err)
			assert.Equal(t, tt.kind, KindOf(err))
			assert.Equal(t, tt.kind == KindStorageUnavailable, IsRetryable(err))
		})
	}
	assert.NoError(t, FromStorage(nil))
}

func TestHTTPStatus(t *testing.T) {
	assert.Equal(t, http.StatusNotFound, HTTPStatus(KindFlightNotFound))
	assert.Equal(t, http.StatusConflict, HTTPStatus(KindSeatAlreadyHeldOrBooked))
	assert.Equal(t, http.StatusConflict, HTTPStatus(KindIdempotencyConflict))
	assert.Equal(t, http.StatusUnprocessableEntity, HTTPStatus(KindReservationExpiredOrUnknown))
	assert.Equal(t, http.StatusBadGateway, HTTPStatus(KindUpstreamPaymentFailure))
	assert.Equal(t, http.StatusServiceUnavailable, HTTPStatus(KindStorageUnavailable))
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(KindInternal))
}

func TestErrorKeepsCause(t *testing.T) {
	cause := errors.New("card_declined")
	err := UpstreamPaymentFailure("declined", cause)

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "UPSTREAM_PAYMENT_FAILURE")

	seatErr := SeatAlreadyHeldOrBooked([]string{"s1"}, map[string]string{"s1": "BOOKED"})
	assert.Equal(t, []string{"s1"}, seatErr.SeatIDs)
	assert.Equal(t, "BOOKED", seatErr.Statuses["s1"])
}
