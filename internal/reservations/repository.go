package reservations

import (
	"context"
	"errors"
	"time"

	"flightbook/internal/flights"
	"flightbook/internal/shared/apperr"
	"flightbook/internal/shared/database/transaction"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository holds every statement that changes a seat's status. Each seat
// write is a single conditional UPDATE; callers compare the affected row count
// with what they asked for.
type Repository interface {
	GetReservation(ctx context.Context, requestID string) (*Reservation, error)
	CreateReservation(ctx context.Context, reservation *Reservation) error
	ClaimReservation(ctx context.Context, requestID, token string, now time.Time) (bool, error)
	MarkConfirmed(ctx context.Context, requestID, claimToken string, now time.Time) (bool, error)
	MarkReleased(ctx context.Context, requestID string, claimToken *string, now time.Time) (bool, error)
	MarkExpired(ctx context.Context, requestID string, now time.Time) (bool, error)
	ListExpired(ctx context.Context, now time.Time, limit int) ([]Reservation, error)

	HoldSeats(ctx context.Context, flightID uuid.UUID, seatIDs []uuid.UUID, requestID string, now, until time.Time) (int64, error)
	ConfirmSeats(ctx context.Context, flightID uuid.UUID, seatIDs []uuid.UUID, requestID string) (int64, error)
	ReleaseSeats(ctx context.Context, flightID uuid.UUID, requestID string) (int64, error)
	UnbookSeats(ctx context.Context, flightID uuid.UUID, seatIDs []uuid.UUID) (int64, error)
	GetSeatsByIDs(ctx context.Context, flightID uuid.UUID, seatIDs []uuid.UUID) ([]flights.Seat, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) conn(ctx context.Context) *gorm.DB {
	return transaction.Conn(ctx, r.db)
}

// GetReservation returns nil without error when requestID was never used.
func (r *repository) GetReservation(ctx context.Context, requestID string) (*Reservation, error) {
	var reservation Reservation
	err := r.conn(ctx).Where("request_id = ?", requestID).First(&reservation).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, apperr.FromStorage(err)
	}
	return &reservation, nil
}

func (r *repository) CreateReservation(ctx context.Context, reservation *Reservation) error {
	if err := r.conn(ctx).Create(reservation).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return apperr.Newf(apperr.KindIdempotencyConflict, "request id %s is already in use", reservation.RequestID)
		}
		return apperr.FromStorage(err)
	}
	return nil
}

// ClaimReservation stamps token on a live reservation that is unclaimed or
// already claimed by token.
func (r *repository) ClaimReservation(ctx context.Context, requestID, token string, now time.Time) (bool, error) {
	return r.transition(
		r.conn(ctx).Model(&Reservation{}).
			Where("request_id = ? AND status = ? AND expires_at > ?", requestID, StatusActive, now).
			Where("(claim_token IS NULL OR claim_token = ?)", token),
		map[string]interface{}{"claim_token": token, "updated_at": now},
	)
}

// MarkConfirmed only matches when claimToken holds the claim; an empty token
// matches an unclaimed reservation.
func (r *repository) MarkConfirmed(ctx context.Context, requestID, claimToken string, now time.Time) (bool, error) {
	query := r.conn(ctx).Model(&Reservation{}).
		Where("request_id = ? AND status = ? AND expires_at > ?", requestID, StatusActive, now)
	return r.transition(
		claimedBy(query, claimToken),
		map[string]interface{}{"status": StatusConfirmed, "confirmed_at": now, "updated_at": now},
	)
}

// MarkReleased releases regardless of any claim when claimToken is nil.
func (r *repository) MarkReleased(ctx context.Context, requestID string, claimToken *string, now time.Time) (bool, error) {
	query := r.conn(ctx).Model(&Reservation{}).
		Where("request_id = ? AND status = ?", requestID, StatusActive)
	if claimToken != nil {
		query = claimedBy(query, *claimToken)
	}
	return r.transition(
		query,
		map[string]interface{}{"status": StatusReleased, "released_at": now, "updated_at": now},
	)
}

func claimedBy(query *gorm.DB, token string) *gorm.DB {
	if token == "" {
		return query.Where("claim_token IS NULL")
	}
	return query.Where("claim_token = ?", token)
}

func (r *repository) MarkExpired(ctx context.Context, requestID string, now time.Time) (bool, error) {
	return r.transition(
		r.conn(ctx).Model(&Reservation{}).
			Where("request_id = ? AND status = ? AND expires_at <= ?", requestID, StatusActive, now),
		map[string]interface{}{"status": StatusExpired, "released_at": now, "updated_at": now},
	)
}

func (r *repository) transition(query *gorm.DB, updates map[string]interface{}) (bool, error) {
	result := query.Updates(updates)
	if result.Error != nil {
		return false, apperr.FromStorage(result.Error)
	}
	return result.RowsAffected == 1, nil
}

func (r *repository) ListExpired(ctx context.Context, now time.Time, limit int) ([]Reservation, error) {
	var reservations []Reservation
	err := r.conn(ctx).
		Where("status = ? AND expires_at <= ?", StatusActive, now).
		Order("expires_at ASC").
		Limit(limit).
		Find(&reservations).Error
	if err != nil {
		return nil, apperr.FromStorage(err)
	}
	return reservations, nil
}

// HoldSeats moves FREE seats, and seats whose hold lapsed before now, to HELD
// under requestID. The lapsed hold's reservation can no longer confirm, and its
// release only touches seats still tagged with its own request id.
func (r *repository) HoldSeats(ctx context.Context, flightID uuid.UUID, seatIDs []uuid.UUID, requestID string, now, until time.Time) (int64, error) {
	result := r.conn(ctx).Model(&flights.Seat{}).
		Where("flight_id = ? AND id IN ?", flightID, seatIDs).
		Where("(status = ? OR (status = ? AND held_until <= ?))", flights.SeatFree, flights.SeatHeld, now).
		Updates(map[string]interface{}{
			"status":     flights.SeatHeld,
			"request_id": requestID,
			"held_until": until,
			"updated_at": now,
		})
	if result.Error != nil {
		return 0, apperr.FromStorage(result.Error)
	}
	return result.RowsAffected, nil
}

func (r *repository) ConfirmSeats(ctx context.Context, flightID uuid.UUID, seatIDs []uuid.UUID, requestID string) (int64, error) {
	result := r.conn(ctx).Model(&flights.Seat{}).
		Where("flight_id = ? AND id IN ? AND status = ? AND request_id = ?", flightID, seatIDs, flights.SeatHeld, requestID).
		Updates(map[string]interface{}{
			"status":     flights.SeatBooked,
			"held_until": nil,
			"updated_at": time.Now().UTC(),
		})
	if result.Error != nil {
		return 0, apperr.FromStorage(result.Error)
	}
	return result.RowsAffected, nil
}

func (r *repository) ReleaseSeats(ctx context.Context, flightID uuid.UUID, requestID string) (int64, error) {
	result := r.conn(ctx).Model(&flights.Seat{}).
		Where("flight_id = ? AND request_id = ? AND status = ?", flightID, requestID, flights.SeatHeld).
		Updates(map[string]interface{}{
			"status":     flights.SeatFree,
			"request_id": nil,
			"held_until": nil,
			"updated_at": time.Now().UTC(),
		})
	if result.Error != nil {
		return 0, apperr.FromStorage(result.Error)
	}
	return result.RowsAffected, nil
}

func (r *repository) UnbookSeats(ctx context.Context, flightID uuid.UUID, seatIDs []uuid.UUID) (int64, error) {
	result := r.conn(ctx).Model(&flights.Seat{}).
		Where("flight_id = ? AND id IN ? AND status = ?", flightID, seatIDs, flights.SeatBooked).
		Updates(map[string]interface{}{
			"status":     flights.SeatFree,
			"request_id": nil,
			"held_until": nil,
			"updated_at": time.Now().UTC(),
		})
	if result.Error != nil {
		return 0, apperr.FromStorage(result.Error)
	}
	return result.RowsAffected, nil
}

func (r *repository) GetSeatsByIDs(ctx context.Context, flightID uuid.UUID, seatIDs []uuid.UUID) ([]flights.Seat, error) {
	var seats []flights.Seat
	err := r.conn(ctx).
		Where("flight_id = ? AND id IN ?", flightID, seatIDs).
		Find(&seats).Error
	if err != nil {
		return nil, apperr.FromStorage(err)
	}
	return seats, nil
}
