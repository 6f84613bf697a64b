package reservations_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"flightbook/internal/reservations"
	"flightbook/internal/shared/apperr"
	"flightbook/internal/shared/middleware"
	"flightbook/internal/shared/utils/response"
	"flightbook/internal/shared/utils/validation"
	"flightbook/internal/users"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockService struct {
	mock.Mock
}

func (m *mockService) Reserve(ctx context.Context, in reservations.ReserveInput) (*reservations.Reservation, error) {
	args := m.Called(ctx, in)
	r, _ := args.Get(0).(*reservations.Reservation)
	return r, args.Error(1)
}

func (m *mockService) Release(ctx context.Context, requestID string) error {
	return m.Called(ctx, requestID).Error(0)
}

func (m *mockService) Claim(ctx context.Context, requestID, token string) error {
	return m.Called(ctx, requestID, token).Error(0)
}

func (m *mockService) ReleaseClaim(ctx context.Context, requestID, token string) error {
	return m.Called(ctx, requestID, token).Error(0)
}

func (m *mockService) Confirm(ctx context.Context, requestID, claimToken string) ([]uuid.UUID, error) {
	args := m.Called(ctx, requestID, claimToken)
	ids, _ := args.Get(0).([]uuid.UUID)
	return ids, args.Error(1)
}

func (m *mockService) Unbook(ctx context.Context, flightID uuid.UUID, seatIDs []uuid.UUID) error {
	return m.Called(ctx, flightID, seatIDs).Error(0)
}

func (m *mockService) Get(ctx context.Context, requestID string) (*reservations.Reservation, error) {
	args := m.Called(ctx, requestID)
	r, _ := args.Get(0).(*reservations.Reservation)
	return r, args.Error(1)
}

func (m *mockService) SweepExpired(ctx context.Context, limit int) ([]reservations.Reservation, error) {
	args := m.Called(ctx, limit)
	r, _ := args.Get(0).([]reservations.Reservation)
	return r, args.Error(1)
}

type sweepFunc func(ctx context.Context, limit int) (int, error)

func (f sweepFunc) RunOnce(ctx context.Context, limit int) (int, error) { return f(ctx, limit) }

func newTestRouter(t *testing.T, svc reservations.Service, userID uuid.UUID, role users.Role) *gin.Engine {
	t.Helper()
	return newSweepRouter(t, svc, userID, role, func(context.Context, int) (int, error) { return 2, nil })
}

func newSweepRouter(t *testing.T, svc reservations.Service, userID uuid.UUID, role users.Role, sweep sweepFunc) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	require.NoError(t, validation.Register())

	auth := func(c *gin.Context) {
		c.Set(middleware.ContextUserID, userID.String())
		c.Set(middleware.ContextUserRole, string(role))
		c.Next()
	}
	admin := func(c *gin.Context) {
		if role != users.RoleAdmin {
			c.AbortWithStatus(http.StatusForbidden)
			return
		}
		c.Next()
	}

	engine := gin.New()
	ctrl := reservations.NewController(svc, sweep)
	reservations.SetupReservationRoutes(engine.Group("/api/v1"), ctrl, auth, admin)
	return engine
}

func doJSON(engine *gin.Engine, method, path string, body interface{}, headers map[string]string) (*httptest.ResponseRecorder, response.StandardApiResponse) {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)

	var resp response.StandardApiResponse
	_ = json.Unmarshal(rec.Body.Bytes(), &resp)
	return rec, resp
}

func TestController_HoldSeats(t *testing.T) {
	svc := new(mockService)
	userID := uuid.New()
	engine := newTestRouter(t, svc, userID, users.RoleUser)

	flightID, seatID := uuid.New(), uuid.New()
	held := &reservations.Reservation{
		RequestID: "req-1",
		FlightID:  flightID,
		UserID:    &userID,
		SeatIDs:   []uuid.UUID{seatID},
		Status:    reservations.StatusActive,
		ExpiresAt: time.Now().Add(10 * time.Minute),
	}
	svc.On("Reserve", mock.Anything, mock.MatchedBy(func(in reservations.ReserveInput) bool {
		return in.RequestID == "req-1" && in.FlightID == flightID && in.TTL == 2*time.Minute &&
			in.UserID != nil && *in.UserID == userID
	})).Return(held, nil)

	rec, resp := doJSON(engine, http.MethodPost, "/api/v1/reservations", map[string]interface{}{
		"flight_id":   flightID.String(),
		"seat_ids":    []string{seatID.String()},
		"ttl_seconds": 120,
	}, map[string]string{reservations.IdempotencyKeyHeader: "req-1"})

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "success", resp.Status)
	svc.AssertExpectations(t)
}

func TestController_HoldSeatsConflict(t *testing.T) {
	svc := new(mockService)
	engine := newTestRouter(t, svc, uuid.New(), users.RoleUser)

	seatID := uuid.New()
	svc.On("Reserve", mock.Anything, mock.Anything).
		Return(nil, apperr.SeatAlreadyHeldOrBooked([]string{seatID.String()}, map[string]string{seatID.String(): "BOOKED"}))

	rec, resp := doJSON(engine, http.MethodPost, "/api/v1/reservations", map[string]interface{}{
		"flight_id":  uuid.New().String(),
		"seat_ids":   []string{seatID.String()},
		"request_id": "req-1",
	}, nil)

	assert.Equal(t, http.StatusConflict, rec.Code)
	detail, ok := resp.Errors.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, string(apperr.KindSeatAlreadyHeldOrBooked), detail["kind"])
}

func TestController_HoldSeatsRequiresRequestID(t *testing.T) {
	svc := new(mockService)
	engine := newTestRouter(t, svc, uuid.New(), users.RoleUser)

	rec, _ := doJSON(engine, http.MethodPost, "/api/v1/reservations", map[string]interface{}{
		"flight_id": uuid.New().String(),
		"seat_ids":  []string{uuid.New().String()},
	}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = doJSON(engine, http.MethodPost, "/api/v1/reservations", map[string]interface{}{
		"flight_id":  uuid.New().String(),
		"seat_ids":   []string{"not-a-uuid"},
		"request_id": "req-1",
	}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	svc.AssertNotCalled(t, "Reserve", mock.Anything, mock.Anything)
}

func TestController_GetReservationOfAnotherUser(t *testing.T) {
	svc := new(mockService)
	engine := newTestRouter(t, svc, uuid.New(), users.RoleUser)

	owner := uuid.New()
	svc.On("Get", mock.Anything, "req-1").Return(&reservations.Reservation{RequestID: "req-1", UserID: &owner}, nil)

	rec, _ := doJSON(engine, http.MethodGet, "/api/v1/reservations/req-1", nil, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestController_ReleaseUnknownIsOK(t *testing.T) {
	svc := new(mockService)
	engine := newTestRouter(t, svc, uuid.New(), users.RoleUser)

	svc.On("Get", mock.Anything, "gone").Return(nil, apperr.ReservationExpiredOrUnknown("gone"))
	svc.On("Release", mock.Anything, "gone").Return(nil)

	rec, _ := doJSON(engine, http.MethodDelete, "/api/v1/reservations/gone", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	svc.AssertExpectations(t)
}

func TestController_ConfirmIsNotRouted(t *testing.T) {
	svc := new(mockService)
	engine := newTestRouter(t, svc, uuid.New(), users.RoleAdmin)

	rec, _ := doJSON(engine, http.MethodPost, "/api/v1/reservations/req-1/confirm", nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	svc.AssertNotCalled(t, "Confirm", mock.Anything, mock.Anything, mock.Anything)
}

func TestController_SweepIsAdminOnly(t *testing.T) {
	rec, _ := doJSON(newTestRouter(t, new(mockService), uuid.New(), users.RoleUser), http.MethodPost, "/api/v1/admin/reservations/sweep", nil, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, resp := doJSON(newTestRouter(t, new(mockService), uuid.New(), users.RoleAdmin), http.MethodPost, "/api/v1/admin/reservations/sweep", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	data, ok := resp.Data.(map[string]interface{})
	require.True(t, ok)
	assert.EqualValues(t, 2, data["expired"])
}

func TestController_SweepLimit(t *testing.T) {
	var limits []int
	sweep := func(_ context.Context, limit int) (int, error) {
		limits = append(limits, limit)
		return 0, nil
	}
	engine := newSweepRouter(t, new(mockService), uuid.New(), users.RoleAdmin, sweep)

	rec, _ := doJSON(engine, http.MethodPost, "/api/v1/admin/reservations/sweep", map[string]int{"limit": 25}, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec, _ = doJSON(engine, http.MethodPost, "/api/v1/admin/reservations/sweep", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []int{25, 0}, limits, "an empty body sweeps the default batch")

	rec, _ = doJSON(engine, http.MethodPost, "/api/v1/admin/reservations/sweep", map[string]int{"limit": 5000}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Len(t, limits, 2)
}
