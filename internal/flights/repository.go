package flights

import (
	"context"
	"errors"
	"strings"
	"time"

	"flightbook/internal/shared/apperr"
	"flightbook/internal/shared/database/transaction"
	"flightbook/internal/shared/utils/pagination"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Repository interface {
	CreateFlight(ctx context.Context, flight *Flight) error
	GetFlightByID(ctx context.Context, id uuid.UUID) (*Flight, error)
	ListFlights(ctx context.Context, query FlightListQuery) ([]Flight, int64, error)

	// Capacity counter
	GetCapacitySnapshot(ctx context.Context, flightID uuid.UUID) (*CapacitySnapshot, error)
	AdjustCapacity(ctx context.Context, flightID uuid.UUID, delta int) error
	CountUnbookedSeats(ctx context.Context, flightID uuid.UUID) (int64, error)

	// Seat rows
	CreateSeats(ctx context.Context, seats []Seat) error
	DeleteFreeSeat(ctx context.Context, flightID, seatID uuid.UUID) (bool, error)
	GetSeatsByIDs(ctx context.Context, flightID uuid.UUID, seatIDs []uuid.UUID) ([]Seat, error)
	ListSeats(ctx context.Context, flightID uuid.UUID) ([]Seat, error)
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

// CreateFlight inserts the flight row only. Capacity starts at zero and grows as
// seats are added.
func (r *repository) CreateFlight(ctx context.Context, flight *Flight) error {
	flight.Capacity = 0
	if err := r.conn(ctx).Omit("Seats").Create(flight).Error; err != nil {
		return apperr.FromStorage(err)
	}
	return nil
}

func (r *repository) GetFlightByID(ctx context.Context, id uuid.UUID) (*Flight, error) {
	var flight Flight
	err := r.conn(ctx).Where("id = ?", id).First(&flight).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.FlightNotFound(id.String())
		}
		return nil, apperr.FromStorage(err)
	}
	return &flight, nil
}

func (r *repository) ListFlights(ctx context.Context, query FlightListQuery) ([]Flight, int64, error) {
	var flights []Flight
	var totalCount int64

	page, limit := pagination.Normalize(query.Page, query.Limit)

	baseQuery := r.applyFilters(r.conn(ctx).Model(&Flight{}), query)

	if err := baseQuery.Count(&totalCount).Error; err != nil {
		return nil, 0, apperr.FromStorage(err)
	}

	err := baseQuery.
		Order("departure_at ASC").
		Offset(pagination.Offset(page, limit)).
		Limit(limit).
		Find(&flights).Error
	if err != nil {
		return nil, 0, apperr.FromStorage(err)
	}

	return flights, totalCount, nil
}

func (r *repository) GetCapacitySnapshot(ctx context.Context, flightID uuid.UUID) (*CapacitySnapshot, error) {
	flight, err := r.GetFlightByID(ctx, flightID)
	if err != nil {
		return nil, err
	}

	var seatIDs []uuid.UUID
	err = r.conn(ctx).Model(&Seat{}).
		Where("flight_id = ?", flightID).
		Order("label ASC").
		Pluck("id", &seatIDs).Error
	if err != nil {
		return nil, apperr.FromStorage(err)
	}

	return &CapacitySnapshot{
		FlightID: flight.ID,
		Capacity: flight.Capacity,
		SeatIDs:  seatIDs,
	}, nil
}

// AdjustCapacity applies delta in one statement relative to the stored value.
// The guard in the WHERE clause refuses any change that would go negative.
func (r *repository) AdjustCapacity(ctx context.Context, flightID uuid.UUID, delta int) error {
	result := r.conn(ctx).Model(&Flight{}).
		Where("id = ? AND capacity + ? >= 0", flightID, delta).
		Updates(map[string]interface{}{
			"capacity":   gorm.Expr("capacity + ?", delta),
			"updated_at": time.Now().UTC(),
		})
	if result.Error != nil {
		return apperr.FromStorage(result.Error)
	}
	if result.RowsAffected == 1 {
		return nil
	}

	if _, err := r.GetFlightByID(ctx, flightID); err != nil {
		return err
	}
	return apperr.InvalidState("capacity would become negative")
}

func (r *repository) CountUnbookedSeats(ctx context.Context, flightID uuid.UUID) (int64, error) {
	var count int64
	err := r.conn(ctx).Model(&Seat{}).
		Where("flight_id = ? AND status <> ?", flightID, SeatBooked).
		Count(&count).Error
	if err != nil {
		return 0, apperr.FromStorage(err)
	}
	return count, nil
}

func (r *repository) CreateSeats(ctx context.Context, seats []Seat) error {
	if len(seats) == 0 {
		return nil
	}
	if err := r.conn(ctx).CreateInBatches(seats, 200).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return apperr.InvalidState("seat label already exists on this flight")
		}
		return apperr.FromStorage(err)
	}
	return nil
}

// DeleteFreeSeat removes a seat only while nobody holds or booked it.
func (r *repository) DeleteFreeSeat(ctx context.Context, flightID, seatID uuid.UUID) (bool, error) {
	result := r.conn(ctx).
		Where("id = ? AND flight_id = ? AND status = ?", seatID, flightID, SeatFree).
		Delete(&Seat{})
	if result.Error != nil {
		return false, apperr.FromStorage(result.Error)
	}
	return result.RowsAffected == 1, nil
}

func (r *repository) GetSeatsByIDs(ctx context.Context, flightID uuid.UUID, seatIDs []uuid.UUID) ([]Seat, error) {
	var seats []Seat
	if len(seatIDs) == 0 {
		return seats, nil
	}
	err := r.conn(ctx).
		Where("flight_id = ? AND id IN ?", flightID, seatIDs).
		Order("label ASC").
		Find(&seats).Error
	if err != nil {
		return nil, apperr.FromStorage(err)
	}
	return seats, nil
}

func (r *repository) ListSeats(ctx context.Context, flightID uuid.UUID) ([]Seat, error) {
	var seats []Seat
	err := r.conn(ctx).
		Where("flight_id = ?", flightID).
		Order("label ASC").
		Find(&seats).Error
	if err != nil {
		return nil, apperr.FromStorage(err)
	}
	return seats, nil
}

func (r *repository) applyFilters(query *gorm.DB, filters FlightListQuery) *gorm.DB {
	if filters.Origin != "" {
		query = query.Where("origin = ?", strings.ToUpper(filters.Origin))
	}
	if filters.Destination != "" {
		query = query.Where("destination = ?", strings.ToUpper(filters.Destination))
	}
	if filters.Date != "" {
		if day, err := time.Parse("2006-01-02", filters.Date); err == nil {
			query = query.Where("departure_at >= ? AND departure_at < ?", day, day.Add(24*time.Hour))
		}
	}
	return query
}
