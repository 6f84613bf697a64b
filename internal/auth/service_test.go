package auth

import (
	"context"
	"sync"
	"testing"
	"time"

	"flightbook/internal/shared/config"
	"flightbook/internal/users"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryRepo struct {
	mu    sync.Mutex
	users map[uuid.UUID]users.User
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{users: make(map[uuid.UUID]users.User)}
}

func (m *memoryRepo) CreateUser(_ context.Context, user *users.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	user.Email = normalizeEmail(user.Email)
	for _, existing := range m.users {
		if existing.Email == user.Email {
			return ErrUserAlreadyExists
		}
	}
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	m.users[user.ID] = *user
	return nil
}

func (m *memoryRepo) GetUserByEmail(_ context.Context, email string) (*users.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == normalizeEmail(email) {
			return &u, nil
		}
	}
	return nil, ErrUserNotFound
}

func (m *memoryRepo) GetUserByID(_ context.Context, id uuid.UUID) (*users.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	return &u, nil
}

func (m *memoryRepo) UpdateUserPassword(_ context.Context, id uuid.UUID, hashedPassword string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return ErrUserNotFound
	}
	u.Password = hashedPassword
	m.users[id] = u
	return nil
}

func newTestService(repo Repository) *service {
	cfg := &config.Config{JWT: config.JWTConfig{
		Secret:           "test-secret",
		JWTExpiresIn:     15 * time.Minute,
		RefreshExpiresIn: 24 * time.Hour,
	}}
	return NewService(repo, cfg).(*service)
}

func register(t *testing.T, svc Service, email string) *AuthResponse {
	t.Helper()
	resp, err := svc.Register(context.Background(), &RegisterRequest{
		FirstName: " Ada ",
		LastName:  "Lovelace",
		Email:     email,
		Password:  "analytical-engine",
	})
	require.NoError(t, err)
	return resp
}

func TestRegister_CreatesUserRole(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo)

	resp := register(t, svc, "Ada@Example.com ")
	assert.Equal(t, "ada@example.com", resp.User.Email)
	assert.Equal(t, "Ada", resp.User.FirstName)
	assert.Equal(t, string(users.RoleUser), resp.User.Role)
	assert.NotEmpty(t, resp.AccessToken)
	assert.EqualValues(t, 900, resp.ExpiresIn)

	stored, err := repo.GetUserByEmail(context.Background(), "ada@example.com")
	require.NoError(t, err)
	assert.NotEqual(t, "analytical-engine", stored.Password, "password is hashed")

	_, err = svc.Register(context.Background(), &RegisterRequest{
		FirstName: "Ada", LastName: "Again", Email: "ADA@example.com", Password: "another-password",
	})
	assert.ErrorIs(t, err, ErrUserAlreadyExists)
}

func TestLogin(t *testing.T) {
	svc := newTestService(newMemoryRepo())
	register(t, svc, "ada@example.com")

	resp, err := svc.Login(context.Background(), &LoginRequest{Email: "ADA@example.com", Password: "analytical-engine"})
	require.NoError(t, err)

	claims, err := svc.ValidateToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, tokenTypeAccess, claims.Type)
	assert.Equal(t, resp.User.ID, claims.UserID)

	_, err = svc.Login(context.Background(), &LoginRequest{Email: "ada@example.com", Password: "wrong"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = svc.Login(context.Background(), &LoginRequest{Email: "nobody@example.com", Password: "x"})
	assert.ErrorIs(t, err, ErrInvalidCredentials, "unknown emails look like bad passwords")
}

func TestRefreshToken(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo)
	resp := register(t, svc, "ada@example.com")

	pair, err := svc.RefreshToken(context.Background(), resp.RefreshToken)
	require.NoError(t, err)
	assert.NotEmpty(t, pair.AccessToken)

	_, err = svc.RefreshToken(context.Background(), resp.AccessToken)
	assert.ErrorIs(t, err, ErrInvalidToken, "access tokens cannot refresh")

	svc.now = func() time.Time { return time.Now().Add(-48 * time.Hour) }
	stale, err := svc.generateTokenPair(resp.User.ID, resp.User.Email, resp.User.Role)
	require.NoError(t, err)
	svc.now = time.Now
	_, err = svc.RefreshToken(context.Background(), stale.RefreshToken)
	assert.ErrorIs(t, err, ErrTokenExpired)

	orphan, err := svc.generateTokenPair(uuid.NewString(), "gone@example.com", string(users.RoleUser))
	require.NoError(t, err)
	_, err = svc.RefreshToken(context.Background(), orphan.RefreshToken)
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestChangePassword(t *testing.T) {
	svc := newTestService(newMemoryRepo())
	resp := register(t, svc, "ada@example.com")
	userID := uuid.MustParse(resp.User.ID)
	ctx := context.Background()

	err := svc.ChangePassword(ctx, userID, &ChangePasswordRequest{CurrentPassword: "wrong", NewPassword: "difference-engine"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	require.NoError(t, svc.ChangePassword(ctx, userID, &ChangePasswordRequest{
		CurrentPassword: "analytical-engine",
		NewPassword:     "difference-engine",
	}))

	_, err = svc.Login(ctx, &LoginRequest{Email: "ada@example.com", Password: "analytical-engine"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = svc.Login(ctx, &LoginRequest{Email: "ada@example.com", Password: "difference-engine"})
	assert.NoError(t, err)

	profile, err := svc.GetProfile(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, "Ada Lovelace", profile.FirstName+" "+profile.LastName)

	_, err = svc.GetProfile(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrUserNotFound)
}
