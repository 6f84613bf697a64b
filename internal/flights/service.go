package flights

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"flightbook/internal/shared/apperr"
	"flightbook/internal/shared/constants"
	"flightbook/internal/shared/database/transaction"
	"flightbook/internal/shared/utils/pagination"
	"flightbook/internal/shared/utils/validation"
	"flightbook/pkg/cache"
	"flightbook/pkg/logger"

	"github.com/google/uuid"
)

// CapacityStore is the authoritative capacity counter and seat set of each flight.
type CapacityStore interface {
	GetCapacitySnapshot(ctx context.Context, flightID uuid.UUID) (*CapacitySnapshot, error)
	AdjustCapacity(ctx context.Context, flightID uuid.UUID, delta int) error
}

type Service interface {
	CapacityStore

	// Service dependency injection
	SetCacheService(cacheService cache.Service)

	CreateFlight(ctx context.Context, req CreateFlightRequest) (*FlightResponse, error)
	GetFlight(ctx context.Context, id uuid.UUID) (*FlightResponse, error)
	ListFlights(ctx context.Context, query FlightListQuery) (*PaginatedFlights, error)

	GetSeatMap(ctx context.Context, flightID uuid.UUID, query SeatListQuery) (*SeatMapResponse, error)
	GetSeats(ctx context.Context, flightID uuid.UUID, seatIDs []uuid.UUID) ([]Seat, error)
	AddSeat(ctx context.Context, flightID uuid.UUID, req SeatInput) (*SeatResponse, error)
	RemoveSeat(ctx context.Context, flightID, seatID uuid.UUID) error
	AuditCapacity(ctx context.Context, flightID uuid.UUID) (*CapacityAudit, error)

	// InvalidateSeatMap drops the cached seat map after any seat status change.
	InvalidateSeatMap(ctx context.Context, flightID uuid.UUID)
	// InvalidateCapacity also drops cached listings, which carry capacity.
	InvalidateCapacity(ctx context.Context, flightID uuid.UUID)
}

type service struct {
	repo         Repository
	transactor   transaction.Transactor
	cacheService cache.Service
	logger       *logger.Logger
}

func NewService(repo Repository, transactor transaction.Transactor) Service {
	return &service{
		repo:       repo,
		transactor: transactor,
		logger:     logger.GetDefault(),
	}
}

func (s *service) SetCacheService(cacheService cache.Service) {
	s.cacheService = cacheService
}

func (s *service) GetCapacitySnapshot(ctx context.Context, flightID uuid.UUID) (*CapacitySnapshot, error) {
	return s.repo.GetCapacitySnapshot(ctx, flightID)
}

func (s *service) AdjustCapacity(ctx context.Context, flightID uuid.UUID, delta int) error {
	return s.repo.AdjustCapacity(ctx, flightID, delta)
}

func (s *service) CreateFlight(ctx context.Context, req CreateFlightRequest) (*FlightResponse, error) {
	if err := validateFlightRequest(req); err != nil {
		return nil, err
	}

	flight := &Flight{
		ID:           uuid.New(),
		FlightNumber: strings.ToUpper(req.FlightNumber),
		Airline:      req.Airline,
		Origin:       strings.ToUpper(req.Origin),
		Destination:  strings.ToUpper(req.Destination),
		DepartureAt:  req.DepartureAt.UTC(),
		ArrivalAt:    req.ArrivalAt.UTC(),
	}

	seats := make([]Seat, 0, len(req.Seats))
	for _, in := range req.Seats {
		seats = append(seats, newSeat(flight.ID, in))
	}

	err := s.transactor.WithTx(ctx, func(ctx context.Context) error {
		if err := s.repo.CreateFlight(ctx, flight); err != nil {
			return err
		}
		if err := s.repo.CreateSeats(ctx, seats); err != nil {
			return err
		}
		return s.repo.AdjustCapacity(ctx, flight.ID, len(seats))
	})
	if err != nil {
		return nil, err
	}
	flight.Capacity = len(seats)

	s.invalidateFlightLists(ctx)
	s.logger.InfoContext(ctx, "Flight created",
		slog.String("flight_id", flight.ID.String()),
		slog.String("flight_number", flight.FlightNumber),
		slog.Int("seats", len(seats)),
	)

	resp := toFlightResponse(flight)
	return &resp, nil
}

func (s *service) GetFlight(ctx context.Context, id uuid.UUID) (*FlightResponse, error) {
	flight, err := s.repo.GetFlightByID(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := toFlightResponse(flight)
	return &resp, nil
}

func (s *service) ListFlights(ctx context.Context, query FlightListQuery) (*PaginatedFlights, error) {
	query.Page, query.Limit = pagination.Normalize(query.Page, query.Limit)

	fetch := func() (interface{}, error) {
		flights, totalCount, err := s.repo.ListFlights(ctx, query)
		if err != nil {
			return nil, err
		}
		out := &PaginatedFlights{
			Flights:    make([]FlightResponse, 0, len(flights)),
			TotalCount: totalCount,
			Page:       query.Page,
			Limit:      query.Limit,
			TotalPages: pagination.CalculateTotalPages(totalCount, query.Limit),
		}
		for i := range flights {
			out.Flights = append(out.Flights, toFlightResponse(&flights[i]))
		}
		return out, nil
	}

	if s.cacheService == nil {
		data, err := fetch()
		if err != nil {
			return nil, err
		}
		return data.(*PaginatedFlights), nil
	}

	key := constants.BuildFlightListKey(query.Page, query.Limit,
		strings.ToUpper(query.Origin), strings.ToUpper(query.Destination)) + ":date:" + query.Date
	var result PaginatedFlights
	if err := s.cacheService.GetOrSet(ctx, key, constants.TTL_FLIGHT_LIST, fetch, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (s *service) GetSeatMap(ctx context.Context, flightID uuid.UUID, query SeatListQuery) (*SeatMapResponse, error) {
	if _, err := s.repo.GetFlightByID(ctx, flightID); err != nil {
		return nil, err
	}

	seats, err := s.loadSeatMap(ctx, flightID)
	if err != nil {
		return nil, err
	}

	counts := map[SeatStatus]int{SeatFree: 0, SeatHeld: 0, SeatBooked: 0}
	filtered := make([]SeatResponse, 0, len(seats))
	for _, seat := range seats {
		counts[seat.Status]++
		if query.Status != "" && !strings.EqualFold(string(seat.Status), query.Status) {
			continue
		}
		if query.Class != "" && !strings.EqualFold(string(seat.Class), query.Class) {
			continue
		}
		filtered = append(filtered, seat)
	}

	page, limit := pagination.Normalize(query.Page, query.Limit)
	start := pagination.Offset(page, limit)
	end := start + limit
	if start > len(filtered) {
		start = len(filtered)
	}
	if end > len(filtered) {
		end = len(filtered)
	}

	return &SeatMapResponse{
		FlightID:   flightID,
		Counts:     counts,
		Seats:      filtered[start:end],
		TotalCount: int64(len(filtered)),
		Page:       page,
		Limit:      limit,
		TotalPages: pagination.CalculateTotalPages(int64(len(filtered)), limit),
	}, nil
}

func (s *service) loadSeatMap(ctx context.Context, flightID uuid.UUID) ([]SeatResponse, error) {
	fetch := func() (interface{}, error) {
		seats, err := s.repo.ListSeats(ctx, flightID)
		if err != nil {
			return nil, err
		}
		out := make([]SeatResponse, 0, len(seats))
		for i := range seats {
			out = append(out, toSeatResponse(&seats[i]))
		}
		return out, nil
	}

	if s.cacheService == nil {
		data, err := fetch()
		if err != nil {
			return nil, err
		}
		return data.([]SeatResponse), nil
	}

	var seats []SeatResponse
	err := s.cacheService.GetOrSet(ctx, constants.BuildSeatMapKey(flightID.String()), constants.TTL_FLIGHT_SEATMAP, fetch, &seats)
	return seats, err
}

func (s *service) GetSeats(ctx context.Context, flightID uuid.UUID, seatIDs []uuid.UUID) ([]Seat, error) {
	return s.repo.GetSeatsByIDs(ctx, flightID, seatIDs)
}

func (s *service) AddSeat(ctx context.Context, flightID uuid.UUID, req SeatInput) (*SeatResponse, error) {
	if err := validateSeatInput(req); err != nil {
		return nil, err
	}
	seat := newSeat(flightID, req)

	err := s.transactor.WithTx(ctx, func(ctx context.Context) error {
		if _, err := s.repo.GetFlightByID(ctx, flightID); err != nil {
			return err
		}
		if err := s.repo.CreateSeats(ctx, []Seat{seat}); err != nil {
			return err
		}
		return s.repo.AdjustCapacity(ctx, flightID, 1)
	})
	if err != nil {
		return nil, err
	}

	s.InvalidateCapacity(ctx, flightID)
	resp := toSeatResponse(&seat)
	return &resp, nil
}

// RemoveSeat deletes a FREE seat. Held or booked seats are refused.
func (s *service) RemoveSeat(ctx context.Context, flightID, seatID uuid.UUID) error {
	err := s.transactor.WithTx(ctx, func(ctx context.Context) error {
		deleted, err := s.repo.DeleteFreeSeat(ctx, flightID, seatID)
		if err != nil {
			return err
		}
		if !deleted {
			seats, err := s.repo.GetSeatsByIDs(ctx, flightID, []uuid.UUID{seatID})
			if err != nil {
				return err
			}
			if len(seats) == 0 {
				if _, err := s.repo.GetFlightByID(ctx, flightID); err != nil {
					return err
				}
				return apperr.SeatNotFound([]string{seatID.String()})
			}
			return apperr.SeatAlreadyHeldOrBooked(
				[]string{seatID.String()},
				map[string]string{seatID.String(): string(seats[0].Status)},
			)
		}
		return s.repo.AdjustCapacity(ctx, flightID, -1)
	})
	if err != nil {
		return err
	}

	s.InvalidateCapacity(ctx, flightID)
	return nil
}

func (s *service) AuditCapacity(ctx context.Context, flightID uuid.UUID) (*CapacityAudit, error) {
	snapshot, err := s.repo.GetCapacitySnapshot(ctx, flightID)
	if err != nil {
		return nil, err
	}
	unbooked, err := s.repo.CountUnbookedSeats(ctx, flightID)
	if err != nil {
		return nil, err
	}

	audit := &CapacityAudit{
		FlightID:      flightID,
		Capacity:      snapshot.Capacity,
		UnbookedSeats: unbooked,
		TotalSeats:    len(snapshot.SeatIDs),
		Consistent:    int64(snapshot.Capacity) == unbooked,
	}
	if !audit.Consistent {
		s.logger.ErrorContext(ctx, "Capacity drift detected",
			slog.String("flight_id", flightID.String()),
			slog.Int("capacity", audit.Capacity),
			slog.Int64("unbooked_seats", unbooked),
		)
	}
	return audit, nil
}

func (s *service) InvalidateSeatMap(ctx context.Context, flightID uuid.UUID) {
	if s.cacheService == nil {
		return
	}
	if err := s.cacheService.Delete(ctx, constants.BuildSeatMapKey(flightID.String())); err != nil {
		s.logger.WarnContext(ctx, "Failed to invalidate seat map",
			slog.String("flight_id", flightID.String()),
			slog.String("error", err.Error()),
		)
	}
}

func (s *service) InvalidateCapacity(ctx context.Context, flightID uuid.UUID) {
	s.InvalidateSeatMap(ctx, flightID)
	s.invalidateFlightLists(ctx)
}

func (s *service) invalidateFlightLists(ctx context.Context) {
	if s.cacheService == nil {
		return
	}
	if err := s.cacheService.DeletePattern(ctx, constants.PATTERN_INVALIDATE_FLIGHTS_LIST); err != nil {
		s.logger.WarnContext(ctx, "Failed to invalidate flight listings", slog.String("error", err.Error()))
	}
}

func newSeat(flightID uuid.UUID, in SeatInput) Seat {
	return Seat{
		ID:       uuid.New(),
		FlightID: flightID,
		Label:    strings.ToUpper(in.Label),
		Class:    in.Class,
		Price:    in.Price,
		Status:   SeatFree,
	}
}

func validateFlightRequest(req CreateFlightRequest) error {
	if len(req.Seats) == 0 {
		return apperr.Validation("a flight needs at least one seat")
	}
	if strings.EqualFold(req.Origin, req.Destination) {
		return apperr.Validation("origin and destination must differ")
	}
	if !req.ArrivalAt.After(req.DepartureAt) {
		return apperr.Validation("arrival must be after departure")
	}

	labels := make(map[string]struct{}, len(req.Seats))
	for _, seat := range req.Seats {
		if err := validateSeatInput(seat); err != nil {
			return err
		}
		label := strings.ToUpper(seat.Label)
		if _, dup := labels[label]; dup {
			return apperr.Validation(fmt.Sprintf("seat %s listed twice", label))
		}
		labels[label] = struct{}{}
	}
	return nil
}

func validateSeatInput(in SeatInput) error {
	if !validation.IsSeatLabel(strings.ToUpper(in.Label)) {
		return apperr.Validation(fmt.Sprintf("invalid seat label %q", in.Label))
	}
	if !in.Class.IsValid() {
		return apperr.Validation(fmt.Sprintf("invalid seat class %q", in.Class))
	}
	if in.Price <= 0 {
		return apperr.Validation("seat price must be positive")
	}
	return nil
}
