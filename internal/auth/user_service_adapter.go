package auth

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// UserServiceAdapter exposes passenger contact details to the booking ledger
// without the bookings package importing auth.
type UserServiceAdapter struct {
	repo Repository
}

func NewUserServiceAdapter(repo Repository) *UserServiceAdapter {
	return &UserServiceAdapter{
		repo: repo,
	}
}

// GetUserByID returns the email and display name used as passenger defaults.
func (usa *UserServiceAdapter) GetUserByID(ctx context.Context, userID uuid.UUID) (email, fullName string, err error) {
	user, err := usa.repo.GetUserByID(ctx, userID)
	if err != nil {
		return "", "", fmt.Errorf("failed to fetch user %s: %w", userID, err)
	}

	return user.Email, user.FullName(), nil
}
