package response

import (
	"errors"

	"flightbook/internal/shared/apperr"
	"flightbook/pkg/logger"

	"github.com/gin-gonic/gin"
)

func RespondJSON(c *gin.Context, status string, code int, message string, data interface{}, errors interface{}) {
	c.JSON(code, StandardApiResponse{
		Status:     status,
		StatusCode: code,
		Message:    message,
		Data:       data,
		Errors:     errors,
	})
}

// RespondError writes err using the status code of its kind. Internal causes are
// logged, never returned to the client.
func RespondError(c *gin.Context, err error) {
	var appErr *apperr.Error
	if !errors.As(err, &appErr) {
		appErr = apperr.Wrap(apperr.KindInternal, "internal server error", err)
	}

	code := apperr.HTTPStatus(appErr.Kind)
	if code >= 500 {
		logger.GetDefault().LogHTTPError(c, err, code)
	}

	message := appErr.Message
	if appErr.Kind == apperr.KindInternal {
		message = "internal server error"
	}

	RespondJSON(c, "error", code, message, nil, ErrorDetail{
		Kind:     string(appErr.Kind),
		SeatIDs:  appErr.SeatIDs,
		Statuses: appErr.Statuses,
	})
}
