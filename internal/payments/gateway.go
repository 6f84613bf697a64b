// Package payments charges and refunds booking payments through an external
// provider.
package payments

import (
	"context"
	"fmt"

	"flightbook/internal/shared/config"
)

// Gateway is the payment provider boundary used by the booking ledger.
type Gateway interface {
	Charge(ctx context.Context, req *ChargeRequest) (*ChargeResponse, error)
	Refund(ctx context.Context, transactionID string, amount float64) error
	Name() string
}

// ChargeRequest is one capture for a booking attempt.
type ChargeRequest struct {
	// IdempotencyKey is the booking request id. Retrying a charge with the same
	// key never captures twice.
	IdempotencyKey string
	Amount         float64
	Currency       string
	Method         string
	// Token is the provider's payment method reference (card or wallet).
	Token       string
	Description string
	Metadata    map[string]string
}

// ChargeResponse reports the provider's answer. Success false with a nil error
// is a declined payment.
type ChargeResponse struct {
	TransactionID string
	Status        string
	Success       bool
	FailureReason string
	FailureCode   string
	Amount        float64
	Currency      string
}

// NewGateway selects the provider named by cfg.Provider.
func NewGateway(cfg config.PaymentConfig) (Gateway, error) {
	switch cfg.Provider {
	case "", "mock":
		return NewMockGateway(&MockGatewayConfig{
			SuccessRate:    cfg.MockSuccessRate,
			DelayMs:        cfg.MockDelayMs,
			FailureReasons: DefaultMockGatewayConfig().FailureReasons,
		}), nil
	case "stripe":
		return NewStripeGateway(&StripeGatewayConfig{SecretKey: cfg.StripeSecretKey})
	default:
		return nil, fmt.Errorf("unknown payment provider %q", cfg.Provider)
	}
}

// toMinorUnits converts an amount to the provider's smallest currency unit.
func toMinorUnits(amount float64) int64 {
	return int64(amount*100 + 0.5)
}
