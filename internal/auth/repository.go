package auth

import (
	"context"
	"errors"
	"strings"

	"flightbook/internal/shared/apperr"
	"flightbook/internal/shared/database/transaction"
	"flightbook/internal/users"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository stores accounts. Emails are matched case-insensitively.
type Repository interface {
	CreateUser(ctx context.Context, user *users.User) error
	GetUserByEmail(ctx context.Context, email string) (*users.User, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (*users.User, error)
	UpdateUserPassword(ctx context.Context, id uuid.UUID, hashedPassword string) error
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

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// CreateUser relies on the unique email index; a duplicate is ErrUserAlreadyExists.
func (r *repository) CreateUser(ctx context.Context, user *users.User) error {
	user.Email = normalizeEmail(user.Email)
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	if err := r.conn(ctx).Create(user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrUserAlreadyExists
		}
		return apperr.FromStorage(err)
	}
	return nil
}

func (r *repository) GetUserByEmail(ctx context.Context, email string) (*users.User, error) {
	return r.first(ctx, "email = ?", normalizeEmail(email))
}

func (r *repository) GetUserByID(ctx context.Context, id uuid.UUID) (*users.User, error) {
	return r.first(ctx, "id = ?", id)
}

func (r *repository) first(ctx context.Context, where string, arg interface{}) (*users.User, error) {
	var user users.User
	if err := r.conn(ctx).Where(where, arg).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, apperr.FromStorage(err)
	}
	return &user, nil
}

func (r *repository) UpdateUserPassword(ctx context.Context, id uuid.UUID, hashedPassword string) error {
	result := r.conn(ctx).Model(&users.User{}).
		Where("id = ?", id).
		Update("password", hashedPassword)
	if result.Error != nil {
		return apperr.FromStorage(result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}
