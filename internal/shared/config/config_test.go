package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, "/api/v1", cfg.GetAPIBasePath())
	assert.Equal(t, 10*time.Minute, cfg.Booking.HoldTTL)
	assert.Equal(t, 30*time.Minute, cfg.Booking.MaxHoldTTL)
	assert.Equal(t, "mock", cfg.Payment.Provider)
	assert.False(t, cfg.Kafka.Enabled)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("BOOKING_HOLD_TTL", "2m")
	t.Setenv("BOOKING_MAX_SEATS_PER_RESERVATION", "4")
	t.Setenv("BOOKING_SWEEP_ENABLED", "false")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")
	t.Setenv("JWT_EXPIRES_IN", "60")
	t.Setenv("DATABASE_URL", "postgres://flightbook@db/flightbook")
	t.Setenv("BOOKING_SWEEP_INTERVAL", "not-a-duration")

	cfg := Load()

	assert.Equal(t, 2*time.Minute, cfg.Booking.HoldTTL)
	assert.Equal(t, 4, cfg.Booking.MaxSeatsPerReservation)
	assert.False(t, cfg.Booking.SweepEnabled)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, time.Minute, cfg.JWT.JWTExpiresIn)
	assert.Equal(t, "postgres://flightbook@db/flightbook", cfg.Database.DSN)
	assert.Equal(t, 30*time.Second, cfg.Booking.SweepInterval, "invalid values fall back to the default")
}
