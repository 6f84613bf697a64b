package reservations

import (
	"context"
	"errors"
	"fmt"
	"time"

	"flightbook/internal/flights"
	"flightbook/internal/shared/apperr"
	"flightbook/internal/shared/config"
	"flightbook/internal/shared/database/transaction"
	"flightbook/internal/shared/utils/validation"
	"flightbook/pkg/logger"

	"github.com/google/uuid"
)

// ReserveInput describes one hold attempt.
type ReserveInput struct {
	FlightID  uuid.UUID
	SeatIDs   []uuid.UUID
	RequestID string
	// TTL <= 0 selects the configured default; longer values are capped.
	TTL    time.Duration
	UserID *uuid.UUID
}

// Service is the seat reservation engine. Every seat status change in the
// system goes through it.
type Service interface {
	Reserve(ctx context.Context, in ReserveInput) (*Reservation, error)
	Release(ctx context.Context, requestID string) error
	Claim(ctx context.Context, requestID, token string) error
	ReleaseClaim(ctx context.Context, requestID, token string) error
	Confirm(ctx context.Context, requestID, claimToken string) ([]uuid.UUID, error)
	Unbook(ctx context.Context, flightID uuid.UUID, seatIDs []uuid.UUID) error
	Get(ctx context.Context, requestID string) (*Reservation, error)
	SweepExpired(ctx context.Context, limit int) ([]Reservation, error)
}

// SeatMapCache is notified after seat statuses of a flight changed.
// InvalidateCapacity is used when the change also moved capacity.
type SeatMapCache interface {
	InvalidateSeatMap(ctx context.Context, flightID uuid.UUID)
	InvalidateCapacity(ctx context.Context, flightID uuid.UUID)
}

type Config struct {
	DefaultTTL     time.Duration
	MaxTTL         time.Duration
	MaxSeats       int
	SweepBatchSize int
}

// ConfigFromBooking builds the engine configuration from the booking section.
func ConfigFromBooking(cfg config.BookingConfig) Config {
	return Config{
		DefaultTTL:     cfg.HoldTTL,
		MaxTTL:         cfg.MaxHoldTTL,
		MaxSeats:       cfg.MaxSeatsPerReservation,
		SweepBatchSize: cfg.SweepBatchSize,
	}
}

type Option func(*service)

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(s *service) {
		s.now = now
	}
}

func WithSeatMapCache(cache SeatMapCache) Option {
	return func(s *service) {
		s.seatMaps = cache
	}
}

func WithLogger(log *logger.Logger) Option {
	return func(s *service) {
		s.logger = log
	}
}

type service struct {
	repo       Repository
	capacity   flights.CapacityStore
	transactor transaction.Transactor
	cfg        Config
	seatMaps   SeatMapCache
	logger     *logger.Logger
	now        func() time.Time
}

func NewService(repo Repository, capacity flights.CapacityStore, transactor transaction.Transactor, cfg Config, opts ...Option) Service {
	if cfg.DefaultTTL <= 0 {
		cfg.DefaultTTL = 10 * time.Minute
	}
	if cfg.MaxTTL < cfg.DefaultTTL {
		cfg.MaxTTL = cfg.DefaultTTL
	}
	if cfg.MaxSeats <= 0 {
		cfg.MaxSeats = 10
	}
	if cfg.SweepBatchSize <= 0 {
		cfg.SweepBatchSize = 100
	}

	s := &service{
		repo:       repo,
		capacity:   capacity,
		transactor: transactor,
		cfg:        cfg,
		logger:     logger.GetDefault(),
		now:        func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *service) Reserve(ctx context.Context, in ReserveInput) (*Reservation, error) {
	seatIDs, err := s.validateReserve(in)
	if err != nil {
		return nil, err
	}
	ttl := s.holdTTL(in.TTL)
	ownsTx := !transaction.InTx(ctx)

	var (
		reservation *Reservation
		replayed    bool
	)
	err = s.transactor.WithTx(ctx, func(ctx context.Context) error {
		now := s.now()

		existing, err := s.repo.GetReservation(ctx, in.RequestID)
		if err != nil {
			return err
		}
		if existing != nil {
			reservation, err = replay(existing, in.FlightID, seatIDs, now)
			replayed = err == nil
			return err
		}

		snapshot, err := s.capacity.GetCapacitySnapshot(ctx, in.FlightID)
		if err != nil {
			return err
		}
		if missing := missingSeats(snapshot, seatIDs); len(missing) > 0 {
			return apperr.SeatNotFound(missing)
		}

		expiresAt := now.Add(ttl)
		held, err := s.repo.HoldSeats(ctx, in.FlightID, seatIDs, in.RequestID, now, expiresAt)
		if err != nil {
			return err
		}
		if held != int64(len(seatIDs)) {
			return s.conflict(ctx, in.FlightID, seatIDs, in.RequestID, now)
		}

		reservation = &Reservation{
			RequestID: in.RequestID,
			FlightID:  in.FlightID,
			UserID:    in.UserID,
			SeatIDs:   seatIDs,
			Status:    StatusActive,
			ExpiresAt: expiresAt,
			CreatedAt: now,
			UpdatedAt: now,
		}
		return s.repo.CreateReservation(ctx, reservation)
	})
	if err != nil {
		// A concurrent call with the same request id may have won the race.
		if ownsTx && (apperr.Is(err, apperr.KindSeatAlreadyHeldOrBooked) || apperr.Is(err, apperr.KindIdempotencyConflict)) {
			if existing, getErr := s.repo.GetReservation(ctx, in.RequestID); getErr == nil && existing != nil &&
				existing.IsLive(s.now()) && existing.SameSeats(in.FlightID, seatIDs) {
				return existing, nil
			}
		}
		return nil, err
	}

	if ownsTx && !replayed {
		s.logger.LogSeatsHeld(ctx, reservation.RequestID, reservation.FlightID.String(), len(reservation.SeatIDs), reservation.ExpiresAt)
		s.invalidate(ctx, reservation.FlightID)
	}
	return reservation, nil
}

// Release is a no-op for unknown or finished reservations. It ignores commit
// claims.
func (s *service) Release(ctx context.Context, requestID string) error {
	return s.release(ctx, requestID, nil)
}

// ReleaseClaim releases the reservation only while token holds its claim.
func (s *service) ReleaseClaim(ctx context.Context, requestID, token string) error {
	if token == "" {
		return apperr.Validation("claim token is required")
	}
	return s.release(ctx, requestID, &token)
}

func (s *service) release(ctx context.Context, requestID string, claimToken *string) error {
	if requestID == "" {
		return nil
	}
	ownsTx := !transaction.InTx(ctx)

	var (
		reservation *Reservation
		released    int64
	)
	err := s.transactor.WithTx(ctx, func(ctx context.Context) error {
		existing, err := s.repo.GetReservation(ctx, requestID)
		if err != nil {
			return err
		}
		if existing == nil || existing.Status.IsTerminal() {
			return nil
		}

		ok, err := s.repo.MarkReleased(ctx, requestID, claimToken, s.now())
		if err != nil || !ok {
			return err
		}
		released, err = s.repo.ReleaseSeats(ctx, existing.FlightID, requestID)
		if err != nil {
			return err
		}
		reservation = existing
		return nil
	})
	if err != nil {
		return err
	}

	if reservation != nil && ownsTx {
		s.logger.LogSeatsReleased(ctx, requestID, reservation.FlightID.String(), released, "released")
		s.invalidate(ctx, reservation.FlightID)
	}
	return nil
}

// Claim stamps token on a live reservation so that only one commit attempt
// works on it. Claiming again with the same token succeeds.
func (s *service) Claim(ctx context.Context, requestID, token string) error {
	if token == "" {
		return apperr.Validation("claim token is required")
	}
	ok, err := s.repo.ClaimReservation(ctx, requestID, token, s.now())
	if err != nil {
		return err
	}
	if ok {
		return nil
	}

	existing, err := s.repo.GetReservation(ctx, requestID)
	if err != nil {
		return err
	}
	if existing == nil || !existing.IsLive(s.now()) {
		return apperr.ReservationExpiredOrUnknown(requestID)
	}
	return commitInProgress(requestID)
}

// Confirm books the held seats. claimToken must hold the commit claim; an
// empty token confirms an unclaimed reservation.
func (s *service) Confirm(ctx context.Context, requestID, claimToken string) ([]uuid.UUID, error) {
	if requestID == "" {
		return nil, apperr.ReservationExpiredOrUnknown(requestID)
	}
	ownsTx := !transaction.InTx(ctx)

	var reservation *Reservation
	err := s.transactor.WithTx(ctx, func(ctx context.Context) error {
		now := s.now()

		existing, err := s.repo.GetReservation(ctx, requestID)
		if err != nil {
			return err
		}
		if existing == nil || !existing.IsLive(now) {
			return apperr.ReservationExpiredOrUnknown(requestID)
		}
		if !existing.ClaimedBy(claimToken) {
			return commitInProgress(requestID)
		}

		ok, err := s.repo.MarkConfirmed(ctx, requestID, claimToken, now)
		if err != nil {
			return err
		}
		if !ok {
			return apperr.ReservationExpiredOrUnknown(requestID)
		}

		booked, err := s.repo.ConfirmSeats(ctx, existing.FlightID, existing.SeatIDs, requestID)
		if err != nil {
			return err
		}
		if booked != int64(len(existing.SeatIDs)) {
			return apperr.InvalidState(fmt.Sprintf("reservation %s no longer holds all of its seats", requestID))
		}

		if err := s.capacity.AdjustCapacity(ctx, existing.FlightID, -len(existing.SeatIDs)); err != nil {
			return err
		}
		reservation = existing
		return nil
	})
	if err != nil {
		return nil, err
	}

	if ownsTx {
		s.invalidateCapacity(ctx, reservation.FlightID)
	}
	return append([]uuid.UUID(nil), reservation.SeatIDs...), nil
}

// Unbook returns BOOKED seats to FREE and gives their capacity back. Either all
// seats change or none.
func (s *service) Unbook(ctx context.Context, flightID uuid.UUID, seatIDs []uuid.UUID) error {
	seatIDs = dedupe(seatIDs)
	if len(seatIDs) == 0 {
		return apperr.Validation("at least one seat is required")
	}
	ownsTx := !transaction.InTx(ctx)

	err := s.transactor.WithTx(ctx, func(ctx context.Context) error {
		freed, err := s.repo.UnbookSeats(ctx, flightID, seatIDs)
		if err != nil {
			return err
		}
		if freed != int64(len(seatIDs)) {
			return apperr.InvalidState("one or more seats are not booked")
		}
		return s.capacity.AdjustCapacity(ctx, flightID, len(seatIDs))
	})
	if err != nil {
		return err
	}

	if ownsTx {
		s.invalidateCapacity(ctx, flightID)
	}
	return nil
}

func (s *service) Get(ctx context.Context, requestID string) (*Reservation, error) {
	reservation, err := s.repo.GetReservation(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if reservation == nil {
		return nil, apperr.ReservationExpiredOrUnknown(requestID)
	}
	return reservation, nil
}

// SweepExpired expires up to limit lapsed reservations and frees their seats.
// Each reservation is handled in its own transaction so one failure does not
// hold back the rest of the batch.
func (s *service) SweepExpired(ctx context.Context, limit int) ([]Reservation, error) {
	if limit <= 0 {
		limit = s.cfg.SweepBatchSize
	}

	candidates, err := s.repo.ListExpired(ctx, s.now(), limit)
	if err != nil {
		return nil, err
	}

	var (
		expired []Reservation
		errs    []error
	)
	for _, candidate := range candidates {
		if ctx.Err() != nil {
			errs = append(errs, ctx.Err())
			break
		}

		var freed int64
		var flipped bool
		err := s.transactor.WithTx(ctx, func(ctx context.Context) error {
			ok, err := s.repo.MarkExpired(ctx, candidate.RequestID, s.now())
			if err != nil || !ok {
				return err
			}
			flipped = true
			freed, err = s.repo.ReleaseSeats(ctx, candidate.FlightID, candidate.RequestID)
			return err
		})
		if err != nil {
			errs = append(errs, fmt.Errorf("expire %s: %w", candidate.RequestID, err))
			continue
		}
		if !flipped {
			continue
		}

		candidate.Status = StatusExpired
		expired = append(expired, candidate)
		s.logger.LogSeatsReleased(ctx, candidate.RequestID, candidate.FlightID.String(), freed, "expired")
		s.invalidate(ctx, candidate.FlightID)
	}

	return expired, errors.Join(errs...)
}

func (s *service) validateReserve(in ReserveInput) ([]uuid.UUID, error) {
	if in.RequestID == "" {
		return nil, apperr.Validation("request id is required")
	}
	if !validation.IsRequestID(in.RequestID) {
		return nil, apperr.Validation("request id must be 1-64 characters of letters, digits, '-', '_', ':' or '.'")
	}
	if in.FlightID == uuid.Nil {
		return nil, apperr.Validation("flight id is required")
	}

	seatIDs := dedupe(in.SeatIDs)
	if len(seatIDs) == 0 {
		return nil, apperr.Validation("at least one seat is required")
	}
	if len(seatIDs) > s.cfg.MaxSeats {
		return nil, apperr.Newf(apperr.KindValidation, "at most %d seats can be held at once", s.cfg.MaxSeats)
	}
	return seatIDs, nil
}

func (s *service) holdTTL(requested time.Duration) time.Duration {
	if requested <= 0 {
		return s.cfg.DefaultTTL
	}
	if requested > s.cfg.MaxTTL {
		return s.cfg.MaxTTL
	}
	return requested
}

// conflict describes which requested seats are unavailable. It runs inside the
// failed transaction, so seats this attempt already moved show our request id
// and are left out. A blocker can let go between the hold and this read; the
// seats this attempt did not move are reported with whatever status they show now.
func (s *service) conflict(ctx context.Context, flightID uuid.UUID, seatIDs []uuid.UUID, requestID string, now time.Time) error {
	seats, err := s.repo.GetSeatsByIDs(ctx, flightID, seatIDs)
	if err != nil {
		return err
	}

	var ids []string
	var unmoved []flights.Seat
	statuses := make(map[string]string)
	found := make(map[uuid.UUID]struct{}, len(seats))
	for _, seat := range seats {
		found[seat.ID] = struct{}{}
		if seat.RequestID != nil && *seat.RequestID == requestID {
			continue
		}
		unmoved = append(unmoved, seat)
		if seat.Status == flights.SeatFree {
			continue
		}
		if seat.Status == flights.SeatHeld && seat.HeldUntil != nil && !seat.HeldUntil.After(now) {
			continue
		}
		ids = append(ids, seat.ID.String())
		statuses[seat.ID.String()] = seat.Status.String()
	}
	if len(ids) > 0 {
		return apperr.SeatAlreadyHeldOrBooked(ids, statuses)
	}

	var missing []string
	for _, id := range seatIDs {
		if _, ok := found[id]; !ok {
			missing = append(missing, id.String())
		}
	}
	if len(missing) > 0 {
		return apperr.SeatNotFound(missing)
	}

	for _, seat := range unmoved {
		ids = append(ids, seat.ID.String())
		statuses[seat.ID.String()] = seat.Status.String()
	}
	return apperr.SeatAlreadyHeldOrBooked(ids, statuses)
}

func (s *service) invalidate(ctx context.Context, flightID uuid.UUID) {
	if s.seatMaps == nil {
		return
	}
	s.seatMaps.InvalidateSeatMap(ctx, flightID)
}

func (s *service) invalidateCapacity(ctx context.Context, flightID uuid.UUID) {
	if s.seatMaps == nil {
		return
	}
	s.seatMaps.InvalidateCapacity(ctx, flightID)
}

// replay answers a reserve call whose request id was already used.
func replay(existing *Reservation, flightID uuid.UUID, seatIDs []uuid.UUID, now time.Time) (*Reservation, error) {
	if !existing.IsLive(now) {
		return nil, apperr.ReservationExpiredOrUnknown(existing.RequestID)
	}
	if !existing.SameSeats(flightID, seatIDs) {
		return nil, apperr.Newf(apperr.KindIdempotencyConflict,
			"request id %s already holds a different set of seats", existing.RequestID)
	}
	return existing, nil
}

func commitInProgress(requestID string) error {
	return apperr.Newf(apperr.KindIdempotencyConflict, "request id %s is being committed by another attempt", requestID)
}

func missingSeats(snapshot *flights.CapacitySnapshot, seatIDs []uuid.UUID) []string {
	var missing []string
	for _, id := range seatIDs {
		if !snapshot.Contains(id) {
			missing = append(missing, id.String())
		}
	}
	return missing
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
