// Package apperr defines the typed errors returned by the inventory core and
// the rules for turning raw storage failures into them.
package apperr

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

type Kind string

const (
	KindFlightNotFound              Kind = "FLIGHT_NOT_FOUND"
	KindSeatNotFound                Kind = "SEAT_NOT_FOUND"
	KindSeatAlreadyHeldOrBooked     Kind = "SEAT_ALREADY_HELD_OR_BOOKED"
	KindReservationExpiredOrUnknown Kind = "RESERVATION_EXPIRED_OR_UNKNOWN"
	KindInvalidState                Kind = "INVALID_STATE"
	KindUpstreamPaymentFailure      Kind = "UPSTREAM_PAYMENT_FAILURE"
	KindStorageUnavailable          Kind = "STORAGE_UNAVAILABLE"
	KindTicketNotFound              Kind = "TICKET_NOT_FOUND"
	KindIdempotencyConflict         Kind = "IDEMPOTENCY_CONFLICT"
	KindValidation                  Kind = "VALIDATION_FAILED"
	KindForbidden                   Kind = "FORBIDDEN"
	KindInternal                    Kind = "INTERNAL"
)

// Error is the error type every core operation returns.
type Error struct {
	Kind    Kind
	Message string

	// SeatIDs lists the seats the failure refers to, Statuses their observed state.
	SeatIDs  []string
	Statuses map[string]string

	Err error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Retryable reports whether running the same operation again may succeed.
func (e *Error) Retryable() bool {
	return e.Kind == KindStorageUnavailable
}

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Newf(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// WithSeats attaches the offending seat ids and their observed statuses.
func (e *Error) WithSeats(seatIDs []string, statuses map[string]string) *Error {
	e.SeatIDs = seatIDs
	e.Statuses = statuses
	return e
}

// KindOf returns the kind of the first *Error in err's chain, or KindInternal.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	if err == nil {
		return false
	}
	return KindOf(err) == kind
}

// IsRetryable reports whether err is a transient storage failure.
func IsRetryable(err error) bool {
	var appErr *Error
	return errors.As(err, &appErr) && appErr.Retryable()
}

// FromStorage classifies a raw database error. Already typed errors pass through
// untouched; connection loss, serialization failures and deadlocks become
// StorageUnavailable; anything else becomes Internal with the cause kept for logs.
func FromStorage(err error) error {
	if err == nil {
		return nil
	}
	var appErr *Error
	if errors.As(err, &appErr) {
		return err
	}
	if isTransient(err) {
		return Wrap(KindStorageUnavailable, "storage temporarily unavailable", err)
	}
	return Wrap(KindInternal, "storage operation failed", err)
}

func isTransient(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case pgErr.Code == "40001", // serialization_failure
			pgErr.Code == "40P01", // deadlock_detected
			pgErr.Code == "55P03", // lock_not_available
			pgErr.Code == "57P01", // admin_shutdown
			strings.HasPrefix(pgErr.Code, "08"):
			return true
		}
		return false
	}
	if pgconn.Timeout(err) || errors.Is(err, driver.ErrBadConn) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var connectErr *pgconn.ConnectError
	if errors.As(err, &connectErr) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

// HTTPStatus maps an error kind to the status code the API answers with.
func HTTPStatus(kind Kind) int {
	switch kind {
	case KindFlightNotFound, KindSeatNotFound, KindTicketNotFound:
		return http.StatusNotFound
	case KindSeatAlreadyHeldOrBooked, KindIdempotencyConflict:
		return http.StatusConflict
	case KindReservationExpiredOrUnknown, KindInvalidState:
		return http.StatusUnprocessableEntity
	case KindUpstreamPaymentFailure:
		return http.StatusBadGateway
	case KindStorageUnavailable:
		return http.StatusServiceUnavailable
	case KindValidation:
		return http.StatusBadRequest
	case KindForbidden:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

func FlightNotFound(flightID string) *Error {
	return Newf(KindFlightNotFound, "flight %s not found", flightID)
}

func SeatNotFound(seatIDs []string) *Error {
	return New(KindSeatNotFound, "one or more seats do not belong to the flight").WithSeats(seatIDs, nil)
}

func SeatAlreadyHeldOrBooked(seatIDs []string, statuses map[string]string) *Error {
	return New(KindSeatAlreadyHeldOrBooked, "one or more seats are already held or booked").WithSeats(seatIDs, statuses)
}

func ReservationExpiredOrUnknown(requestID string) *Error {
	return Newf(KindReservationExpiredOrUnknown, "reservation %s is expired, finished or unknown", requestID)
}

func InvalidState(message string) *Error {
	return New(KindInvalidState, message)
}

func UpstreamPaymentFailure(reason string, err error) *Error {
	return Wrap(KindUpstreamPaymentFailure, "payment was not completed: "+reason, err)
}

func Validation(message string) *Error {
	return New(KindValidation, message)
}
