package flights

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"flightbook/internal/shared/utils/response"
)

type Controller interface {
	ListFlights(c *gin.Context)
	GetFlight(c *gin.Context)
	GetSeatMap(c *gin.Context)
	CreateFlight(c *gin.Context)
	AddSeat(c *gin.Context)
	RemoveSeat(c *gin.Context)
	GetCapacity(c *gin.Context)
}

type controller struct {
	service Service
}

func NewController(service Service) Controller {
	return &controller{service: service}
}

func (ctrl *controller) ListFlights(c *gin.Context) {
	var query FlightListQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.RespondJSON(c, "error", http.StatusBadRequest, "Invalid query parameters", nil, err.Error())
		return
	}

	flights, err := ctrl.service.ListFlights(c.Request.Context(), query)
	if err != nil {
		response.RespondError(c, err)
		return
	}

	response.RespondJSON(c, "success", http.StatusOK, "Flights retrieved successfully", flights, nil)
}

func (ctrl *controller) GetFlight(c *gin.Context) {
	flightID, ok := parseUUIDParam(c, "id", "Invalid flight ID")
	if !ok {
		return
	}

	flight, err := ctrl.service.GetFlight(c.Request.Context(), flightID)
	if err != nil {
		response.RespondError(c, err)
		return
	}

	response.RespondJSON(c, "success", http.StatusOK, "Flight retrieved successfully", flight, nil)
}

func (ctrl *controller) GetSeatMap(c *gin.Context) {
	flightID, ok := parseUUIDParam(c, "id", "Invalid flight ID")
	if !ok {
		return
	}

	var query SeatListQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.RespondJSON(c, "error", http.StatusBadRequest, "Invalid query parameters", nil, err.Error())
		return
	}

	seatMap, err := ctrl.service.GetSeatMap(c.Request.Context(), flightID, query)
	if err != nil {
		response.RespondError(c, err)
		return
	}

	response.RespondJSON(c, "success", http.StatusOK, "Seat map retrieved successfully", seatMap, nil)
}

func (ctrl *controller) CreateFlight(c *gin.Context) {
	var req CreateFlightRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondJSON(c, "error", http.StatusBadRequest, "Invalid request body", nil, err.Error())
		return
	}

	flight, err := ctrl.service.CreateFlight(c.Request.Context(), req)
	if err != nil {
		response.RespondError(c, err)
		return
	}

	response.RespondJSON(c, "success", http.StatusCreated, "Flight created successfully", flight, nil)
}

func (ctrl *controller) AddSeat(c *gin.Context) {
	flightID, ok := parseUUIDParam(c, "id", "Invalid flight ID")
	if !ok {
		return
	}

	var req SeatInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondJSON(c, "error", http.StatusBadRequest, "Invalid request body", nil, err.Error())
		return
	}

	seat, err := ctrl.service.AddSeat(c.Request.Context(), flightID, req)
	if err != nil {
		response.RespondError(c, err)
		return
	}

	response.RespondJSON(c, "success", http.StatusCreated, "Seat added successfully", seat, nil)
}

func (ctrl *controller) RemoveSeat(c *gin.Context) {
	flightID, ok := parseUUIDParam(c, "id", "Invalid flight ID")
	if !ok {
		return
	}
	seatID, ok := parseUUIDParam(c, "seatId", "Invalid seat ID")
	if !ok {
		return
	}

	if err := ctrl.service.RemoveSeat(c.Request.Context(), flightID, seatID); err != nil {
		response.RespondError(c, err)
		return
	}

	response.RespondJSON(c, "success", http.StatusOK, "Seat removed successfully", nil, nil)
}

func (ctrl *controller) GetCapacity(c *gin.Context) {
	flightID, ok := parseUUIDParam(c, "id", "Invalid flight ID")
	if !ok {
		return
	}

	audit, err := ctrl.service.AuditCapacity(c.Request.Context(), flightID)
	if err != nil {
		response.RespondError(c, err)
		return
	}

	response.RespondJSON(c, "success", http.StatusOK, "Capacity audit completed", audit, nil)
}

func parseUUIDParam(c *gin.Context, name, message string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		response.RespondJSON(c, "error", http.StatusBadRequest, message, nil, err.Error())
		return uuid.Nil, false
	}
	return id, true
}
