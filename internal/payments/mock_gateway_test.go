package payments

import (
	"context"
	"testing"
	"time"

	"flightbook/internal/shared/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockGateway_ChargeAndRefund(t *testing.T) {
	gateway := NewMockGateway(nil)
	ctx := context.Background()

	resp, err := gateway.Charge(ctx, &ChargeRequest{IdempotencyKey: "req-1", Amount: 250, Currency: "usd"})
	require.NoError(t, err)
	require.True(t, resp.Success)
	assert.NotEmpty(t, resp.TransactionID)

	require.NoError(t, gateway.Refund(ctx, resp.TransactionID, 100))
	require.NoError(t, gateway.Refund(ctx, resp.TransactionID, 150))
	assert.InDelta(t, 250, gateway.Refunded(resp.TransactionID), 0.001)

	assert.Error(t, gateway.Refund(ctx, resp.TransactionID, 1), "refund beyond the captured amount")
}

func TestMockGateway_ForcedFailure(t *testing.T) {
	gateway := NewMockGateway(nil)
	gateway.SetForceFailure(true)

	resp, err := gateway.Charge(context.Background(), &ChargeRequest{Amount: 10, Currency: "usd"})
	require.NoError(t, err)
	assert.False(t, resp.Success)
	assert.NotEmpty(t, resp.FailureReason)

	assert.Error(t, gateway.Refund(context.Background(), resp.TransactionID, 10), "declined charges cannot be refunded")
}

func TestMockGateway_ZeroSuccessRate(t *testing.T) {
	gateway := NewMockGateway(&MockGatewayConfig{SuccessRate: -1})

	resp, err := gateway.Charge(context.Background(), &ChargeRequest{Amount: 10, Currency: "usd"})
	require.NoError(t, err)
	assert.False(t, resp.Success)
	assert.Equal(t, "payment_failed", resp.FailureReason)
}

func TestMockGateway_DelayHonoursContext(t *testing.T) {
	gateway := NewMockGateway(&MockGatewayConfig{SuccessRate: 1, DelayMs: 5000})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := gateway.Charge(ctx, &ChargeRequest{Amount: 10, Currency: "usd"})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestNewGateway(t *testing.T) {
	gateway, err := NewGateway(config.PaymentConfig{Provider: "mock", MockSuccessRate: 1})
	require.NoError(t, err)
	assert.Equal(t, "mock", gateway.Name())

	_, err = NewGateway(config.PaymentConfig{Provider: "stripe"})
	assert.Error(t, err, "stripe requires a secret key")

	_, err = NewGateway(config.PaymentConfig{Provider: "paypal"})
	assert.Error(t, err)
}

func TestToMinorUnits(t *testing.T) {
	assert.Equal(t, int64(1999), toMinorUnits(19.99))
	assert.Equal(t, int64(10000), toMinorUnits(100))
}
