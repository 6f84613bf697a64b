package payments

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MockGateway implements Gateway for development and tests
type MockGateway struct {
	config       *MockGatewayConfig
	transactions sync.Map
	mu           sync.RWMutex

	// forceFailure declines every charge when set.
	forceFailure bool
}

type mockTransaction struct {
	Amount   float64
	Refunded float64
	Currency string
}

// MockGatewayConfig holds configuration for the mock gateway
type MockGatewayConfig struct {
	// SuccessRate is the probability of successful payment (0.0 to 1.0)
	SuccessRate float64

	// DelayMs is the simulated processing delay in milliseconds
	DelayMs int

	// FailureReasons is a list of possible failure reasons
	FailureReasons []string
}

// DefaultMockGatewayConfig returns default configuration
func DefaultMockGatewayConfig() *MockGatewayConfig {
	return &MockGatewayConfig{
		SuccessRate: 1.0,
		DelayMs:     0,
		FailureReasons: []string{
			"insufficient_funds",
			"card_declined",
			"expired_card",
			"processing_error",
		},
	}
}

// NewMockGateway creates a new mock gateway
func NewMockGateway(config *MockGatewayConfig) *MockGateway {
	if config == nil {
		config = DefaultMockGatewayConfig()
	}
	if config.SuccessRate < 0 {
		config.SuccessRate = 0
	}
	if config.SuccessRate > 1 {
		config.SuccessRate = 1
	}

	return &MockGateway{config: config}
}

// Charge processes a mock payment charge
func (g *MockGateway) Charge(ctx context.Context, req *ChargeRequest) (*ChargeResponse, error) {
	if req == nil {
		return nil, fmt.Errorf("charge request is required")
	}
	if err := g.delay(ctx); err != nil {
		return nil, err
	}

	g.mu.RLock()
	success := !g.forceFailure && rand.Float64() < g.config.SuccessRate
	g.mu.RUnlock()

	resp := &ChargeResponse{
		TransactionID: fmt.Sprintf("mock_txn_%s", uuid.New().String()[:8]),
		Amount:        req.Amount,
		Currency:      req.Currency,
	}

	if !success {
		resp.Status = "failed"
		resp.FailureReason = "payment_failed"
		if len(g.config.FailureReasons) > 0 {
			resp.FailureReason = g.config.FailureReasons[rand.Intn(len(g.config.FailureReasons))]
		}
		resp.FailureCode = resp.FailureReason
		return resp, nil
	}

	resp.Success = true
	resp.Status = "succeeded"
	g.transactions.Store(resp.TransactionID, &mockTransaction{Amount: req.Amount, Currency: req.Currency})
	return resp, nil
}

// Refund processes a mock refund. Refunds never exceed the captured amount.
func (g *MockGateway) Refund(ctx context.Context, transactionID string, amount float64) error {
	if transactionID == "" {
		return fmt.Errorf("transaction ID is required")
	}
	if err := g.delay(ctx); err != nil {
		return err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	value, ok := g.transactions.Load(transactionID)
	if !ok {
		return fmt.Errorf("transaction not found: %s", transactionID)
	}
	txn := value.(*mockTransaction)
	if txn.Refunded+amount > txn.Amount+0.000001 {
		return fmt.Errorf("refund of %.2f exceeds remaining %.2f", amount, txn.Amount-txn.Refunded)
	}
	txn.Refunded += amount
	return nil
}

// Refunded returns the total refunded for a transaction.
func (g *MockGateway) Refunded(transactionID string) float64 {
	g.mu.RLock()
	defer g.mu.RUnlock()

	value, ok := g.transactions.Load(transactionID)
	if !ok {
		return 0
	}
	return value.(*mockTransaction).Refunded
}

// Name returns the gateway name
func (g *MockGateway) Name() string {
	return "mock"
}

// SetSuccessRate updates the success rate (for testing)
func (g *MockGateway) SetSuccessRate(rate float64) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if rate < 0 {
		rate = 0
	}
	if rate > 1 {
		rate = 1
	}
	g.config.SuccessRate = rate
}

// SetForceFailure makes every following charge fail.
func (g *MockGateway) SetForceFailure(fail bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.forceFailure = fail
}

func (g *MockGateway) delay(ctx context.Context) error {
	if g.config.DelayMs <= 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(time.Duration(g.config.DelayMs) * time.Millisecond):
		return nil
	}
}
