package reservations

import (
	"context"
	"net/http"
	"time"

	"flightbook/internal/shared/apperr"
	"flightbook/internal/shared/middleware"
	"flightbook/internal/shared/utils/response"
	"flightbook/internal/users"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// IdempotencyKeyHeader carries the request id when the body omits it.
const IdempotencyKeyHeader = "Idempotency-Key"

// Sweeper runs one expiry pass on demand.
type Sweeper interface {
	RunOnce(ctx context.Context, limit int) (int, error)
}

type Controller interface {
	HoldSeats(c *gin.Context)
	GetReservation(c *gin.Context)
	ReleaseReservation(c *gin.Context)
	SweepExpired(c *gin.Context)
}

type controller struct {
	service Service
	sweeper Sweeper
}

func NewController(service Service, sweeper Sweeper) Controller {
	return &controller{service: service, sweeper: sweeper}
}

func (ctrl *controller) HoldSeats(c *gin.Context) {
	userID, _, ok := middleware.CurrentUser(c)
	if !ok {
		response.RespondJSON(c, "error", http.StatusUnauthorized, "User not authenticated", nil, nil)
		return
	}

	var req HoldSeatsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondJSON(c, "error", http.StatusBadRequest, "Invalid request body", nil, err.Error())
		return
	}

	requestID := req.RequestID
	if requestID == "" {
		requestID = c.GetHeader(IdempotencyKeyHeader)
	}
	if requestID == "" {
		response.RespondJSON(c, "error", http.StatusBadRequest, "request_id or Idempotency-Key header is required", nil, nil)
		return
	}

	seatIDs := make([]uuid.UUID, 0, len(req.SeatIDs))
	for _, raw := range req.SeatIDs {
		seatIDs = append(seatIDs, uuid.MustParse(raw)) // validated by binding
	}

	reservation, err := ctrl.service.Reserve(c.Request.Context(), ReserveInput{
		FlightID:  uuid.MustParse(req.FlightID),
		SeatIDs:   seatIDs,
		RequestID: requestID,
		TTL:       time.Duration(req.TTLSeconds) * time.Second,
		UserID:    &userID,
	})
	if err != nil {
		response.RespondError(c, err)
		return
	}

	response.RespondJSON(c, "success", http.StatusCreated, "Seats held successfully", toReservationResponse(reservation), nil)
}

func (ctrl *controller) GetReservation(c *gin.Context) {
	reservation, ok := ctrl.ownedReservation(c)
	if !ok {
		return
	}

	response.RespondJSON(c, "success", http.StatusOK, "Reservation retrieved successfully", toReservationResponse(reservation), nil)
}

// ReleaseReservation answers 200 for unknown or finished reservations.
func (ctrl *controller) ReleaseReservation(c *gin.Context) {
	requestID := c.Param("requestId")

	reservation, err := ctrl.service.Get(c.Request.Context(), requestID)
	if err != nil && !apperr.Is(err, apperr.KindReservationExpiredOrUnknown) {
		response.RespondError(c, err)
		return
	}
	if reservation != nil && !canAccess(c, reservation) {
		response.RespondError(c, apperr.New(apperr.KindForbidden, "reservation belongs to another user"))
		return
	}

	if err := ctrl.service.Release(c.Request.Context(), requestID); err != nil {
		response.RespondError(c, err)
		return
	}

	response.RespondJSON(c, "success", http.StatusOK, "Reservation released", nil, nil)
}

// SweepExpired accepts an optional body with the batch limit.
func (ctrl *controller) SweepExpired(c *gin.Context) {
	var req SweepRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.RespondJSON(c, "error", http.StatusBadRequest, "Invalid request body", nil, err.Error())
			return
		}
	}

	expired, err := ctrl.sweeper.RunOnce(c.Request.Context(), req.Limit)
	if err != nil {
		response.RespondError(c, err)
		return
	}

	response.RespondJSON(c, "success", http.StatusOK, "Expired reservations swept", SweepResponse{Expired: expired}, nil)
}

func (ctrl *controller) ownedReservation(c *gin.Context) (*Reservation, bool) {
	reservation, err := ctrl.service.Get(c.Request.Context(), c.Param("requestId"))
	if err != nil {
		response.RespondError(c, err)
		return nil, false
	}
	if !canAccess(c, reservation) {
		response.RespondError(c, apperr.New(apperr.KindForbidden, "reservation belongs to another user"))
		return nil, false
	}
	return reservation, true
}

func canAccess(c *gin.Context, reservation *Reservation) bool {
	userID, role, ok := middleware.CurrentUser(c)
	if !ok {
		return false
	}
	if role == users.RoleAdmin {
		return true
	}
	return reservation.UserID != nil && *reservation.UserID == userID
}
