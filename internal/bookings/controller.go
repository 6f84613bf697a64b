package bookings

import (
	"net/http"

	"flightbook/internal/shared/middleware"
	"flightbook/internal/shared/utils/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// IdempotencyKeyHeader carries the request id when the body omits it.
const IdempotencyKeyHeader = "Idempotency-Key"

type Controller interface {
	CreateTickets(c *gin.Context)
	CreateTransaction(c *gin.Context)
	CancelTicket(c *gin.Context)
	GetTicket(c *gin.Context)
	GetTransaction(c *gin.Context)
	ListMyTickets(c *gin.Context)
	ListAllTickets(c *gin.Context)
}

type controller struct {
	service Service
}

func NewController(service Service) Controller {
	return &controller{service: service}
}

// CreateTickets issues tickets without taking payment. Admins may book on behalf
// of another user.
func (ctrl *controller) CreateTickets(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	var req CreateTicketRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondJSON(c, "error", http.StatusBadRequest, "Invalid request body", nil, err.Error())
		return
	}

	requestID, ok := requestIDFrom(c, req.RequestID)
	if !ok {
		return
	}

	userID := actor.UserID
	if req.UserID != "" {
		userID = uuid.MustParse(req.UserID)
	}

	record, err := ctrl.service.CommitBooking(c.Request.Context(), CommitInput{
		RequestID:  requestID,
		FlightID:   uuid.MustParse(req.FlightID),
		SeatIDs:    parseIDs(req.SeatIDs),
		UserID:     userID,
		Passengers: toPassengers(req.Passengers),
	})
	if err != nil {
		response.RespondError(c, err)
		return
	}

	response.RespondJSON(c, "success", http.StatusCreated, "Tickets issued successfully", toBookingResponse(requestID, record), nil)
}

func (ctrl *controller) CreateTransaction(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	var req CreateTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondJSON(c, "error", http.StatusBadRequest, "Invalid request body", nil, err.Error())
		return
	}

	requestID, ok := requestIDFrom(c, req.RequestID)
	if !ok {
		return
	}

	record, err := ctrl.service.CommitBooking(c.Request.Context(), CommitInput{
		RequestID:  requestID,
		FlightID:   uuid.MustParse(req.FlightID),
		SeatIDs:    parseIDs(req.SeatIDs),
		UserID:     actor.UserID,
		Passengers: toPassengers(req.Passengers),
		Payment: &Payment{
			Method:   req.Payment.Method,
			Token:    req.Payment.Token,
			Currency: req.Payment.Currency,
		},
	})
	if err != nil {
		response.RespondError(c, err)
		return
	}

	response.RespondJSON(c, "success", http.StatusCreated, "Booking confirmed successfully", toBookingResponse(requestID, record), nil)
}

func (ctrl *controller) CancelTicket(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	ticketID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondJSON(c, "error", http.StatusBadRequest, "Invalid ticket ID", nil, nil)
		return
	}

	ticket, err := ctrl.service.CancelBooking(c.Request.Context(), ticketID, actor)
	if err != nil {
		response.RespondError(c, err)
		return
	}

	response.RespondJSON(c, "success", http.StatusOK, "Ticket cancelled successfully", toTicketResponse(ticket), nil)
}

func (ctrl *controller) GetTicket(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	ticketID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondJSON(c, "error", http.StatusBadRequest, "Invalid ticket ID", nil, nil)
		return
	}

	ticket, err := ctrl.service.GetTicket(c.Request.Context(), ticketID, actor)
	if err != nil {
		response.RespondError(c, err)
		return
	}

	response.RespondJSON(c, "success", http.StatusOK, "Ticket retrieved successfully", toTicketResponse(ticket), nil)
}

func (ctrl *controller) GetTransaction(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	transactionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondJSON(c, "error", http.StatusBadRequest, "Invalid transaction ID", nil, nil)
		return
	}

	txn, err := ctrl.service.GetTransaction(c.Request.Context(), transactionID, actor)
	if err != nil {
		response.RespondError(c, err)
		return
	}

	response.RespondJSON(c, "success", http.StatusOK, "Transaction retrieved successfully", toTransactionResponse(txn), nil)
}

func (ctrl *controller) ListMyTickets(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	filter, ok := bindTicketFilter(c)
	if !ok {
		return
	}
	filter.UserID = &actor.UserID

	result, err := ctrl.service.ListTickets(c.Request.Context(), filter)
	if err != nil {
		response.RespondError(c, err)
		return
	}

	response.RespondJSON(c, "success", http.StatusOK, "Tickets retrieved successfully", result, nil)
}

func (ctrl *controller) ListAllTickets(c *gin.Context) {
	filter, ok := bindTicketFilter(c)
	if !ok {
		return
	}

	result, err := ctrl.service.ListTickets(c.Request.Context(), filter)
	if err != nil {
		response.RespondError(c, err)
		return
	}

	response.RespondJSON(c, "success", http.StatusOK, "Tickets retrieved successfully", result, nil)
}

func currentActor(c *gin.Context) (Actor, bool) {
	userID, role, ok := middleware.CurrentUser(c)
	if !ok {
		response.RespondJSON(c, "error", http.StatusUnauthorized, "User not authenticated", nil, nil)
		return Actor{}, false
	}
	return Actor{UserID: userID, Role: role}, true
}

func requestIDFrom(c *gin.Context, fromBody string) (string, bool) {
	requestID := fromBody
	if requestID == "" {
		requestID = c.GetHeader(IdempotencyKeyHeader)
	}
	if requestID == "" {
		response.RespondJSON(c, "error", http.StatusBadRequest, "request_id or Idempotency-Key header is required", nil, nil)
		return "", false
	}
	return requestID, true
}

func bindTicketFilter(c *gin.Context) (TicketFilter, bool) {
	var query TicketListQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.RespondJSON(c, "error", http.StatusBadRequest, "Invalid query parameters", nil, err.Error())
		return TicketFilter{}, false
	}

	filter := TicketFilter{
		Status: query.Status,
		Page:   query.Page,
		Limit:  query.Limit,
	}
	if query.FlightID != "" {
		flightID := uuid.MustParse(query.FlightID)
		filter.FlightID = &flightID
	}
	return filter, true
}

// parseIDs expects ids already checked by the uuid binding.
func parseIDs(raw []string) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(raw))
	for _, id := range raw {
		ids = append(ids, uuid.MustParse(id))
	}
	return ids
}

func toPassengers(inputs []PassengerInput) []Passenger {
	passengers := make([]Passenger, 0, len(inputs))
	for _, p := range inputs {
		passengers = append(passengers, Passenger{
			SeatID: uuid.MustParse(p.SeatID),
			Name:   p.Name,
			Email:  p.Email,
		})
	}
	return passengers
}
