package auth

import (
	"errors"
	"net/http"

	"flightbook/internal/shared/middleware"
	"flightbook/internal/shared/utils/response"

	"github.com/gin-gonic/gin"
)

type Controller struct {
	service Service
}

func NewController(service Service) *Controller {
	return &Controller{service: service}
}

// authFailures maps service errors to a status and client message. Anything
// else is a 500.
var authFailures = []struct {
	err     error
	code    int
	message string
}{
	{ErrUserAlreadyExists, http.StatusConflict, "User with this email already exists"},
	{ErrInvalidCredentials, http.StatusUnauthorized, "Invalid email or password"},
	{ErrTokenExpired, http.StatusUnauthorized, "Refresh token expired"},
	{ErrInvalidToken, http.StatusUnauthorized, "Invalid refresh token"},
	{ErrUserNotFound, http.StatusNotFound, "User not found"},
}

func respondAuthError(ctx *gin.Context, err error, fallback string) {
	for _, f := range authFailures {
		if errors.Is(err, f.err) {
			response.RespondJSON(ctx, "error", f.code, f.message, nil, nil)
			return
		}
	}
	response.RespondJSON(ctx, "error", http.StatusInternalServerError, fallback, nil, nil)
}

func bindBody(ctx *gin.Context, dest interface{}) bool {
	if err := ctx.ShouldBindJSON(dest); err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Invalid request body", nil, err.Error())
		return false
	}
	return true
}

func (c *Controller) Register(ctx *gin.Context) {
	var req RegisterRequest
	if !bindBody(ctx, &req) {
		return
	}

	resp, err := c.service.Register(ctx.Request.Context(), &req)
	if err != nil {
		respondAuthError(ctx, err, "Failed to register user")
		return
	}
	response.RespondJSON(ctx, "success", http.StatusCreated, "User registered successfully", resp, nil)
}

func (c *Controller) Login(ctx *gin.Context) {
	var req LoginRequest
	if !bindBody(ctx, &req) {
		return
	}

	resp, err := c.service.Login(ctx.Request.Context(), &req)
	if err != nil {
		respondAuthError(ctx, err, "Failed to login")
		return
	}
	response.RespondJSON(ctx, "success", http.StatusOK, "Login successful", resp, nil)
}

func (c *Controller) RefreshToken(ctx *gin.Context) {
	var req RefreshTokenRequest
	if !bindBody(ctx, &req) {
		return
	}

	tokenPair, err := c.service.RefreshToken(ctx.Request.Context(), req.RefreshToken)
	if err != nil {
		// a deleted account must not look different from a bad token
		if errors.Is(err, ErrUserNotFound) {
			err = ErrInvalidToken
		}
		respondAuthError(ctx, err, "Failed to refresh token")
		return
	}
	response.RespondJSON(ctx, "success", http.StatusOK, "Token refreshed successfully", tokenPair, nil)
}

func (c *Controller) ChangePassword(ctx *gin.Context) {
	userID, _, ok := middleware.CurrentUser(ctx)
	if !ok {
		response.RespondJSON(ctx, "error", http.StatusUnauthorized, "User not authenticated", nil, nil)
		return
	}

	var req ChangePasswordRequest
	if !bindBody(ctx, &req) {
		return
	}

	if err := c.service.ChangePassword(ctx.Request.Context(), userID, &req); err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			response.RespondJSON(ctx, "error", http.StatusUnauthorized, "Current password is incorrect", nil, nil)
			return
		}
		respondAuthError(ctx, err, "Failed to change password")
		return
	}
	response.RespondJSON(ctx, "success", http.StatusOK, "Password changed successfully", nil, nil)
}

func (c *Controller) GetMe(ctx *gin.Context) {
	userID, _, ok := middleware.CurrentUser(ctx)
	if !ok {
		response.RespondJSON(ctx, "error", http.StatusUnauthorized, "User not authenticated", nil, nil)
		return
	}

	profile, err := c.service.GetProfile(ctx.Request.Context(), userID)
	if err != nil {
		respondAuthError(ctx, err, "Failed to load user")
		return
	}
	response.RespondJSON(ctx, "success", http.StatusOK, "User data retrieved successfully", profile, nil)
}
