package payments

import (
	"context"
	"errors"
	"fmt"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/paymentintent"
	"github.com/stripe/stripe-go/v82/refund"
)

// StripeGateway implements Gateway using Stripe PaymentIntents confirmed on creation
type StripeGateway struct {
	config *StripeGatewayConfig
}

// StripeGatewayConfig holds configuration for Stripe gateway
type StripeGatewayConfig struct {
	SecretKey string
}

// NewStripeGateway creates a new Stripe gateway
func NewStripeGateway(config *StripeGatewayConfig) (*StripeGateway, error) {
	if config == nil {
		return nil, fmt.Errorf("stripe config is required")
	}
	if config.SecretKey == "" {
		return nil, fmt.Errorf("stripe secret key is required")
	}

	stripe.Key = config.SecretKey

	return &StripeGateway{config: config}, nil
}

// Charge creates and confirms a payment intent in one call
func (g *StripeGateway) Charge(ctx context.Context, req *ChargeRequest) (*ChargeResponse, error) {
	if req == nil {
		return nil, fmt.Errorf("charge request is required")
	}
	if req.Token == "" {
		return &ChargeResponse{
			Success:       false,
			FailureReason: "payment method token is required",
			FailureCode:   "missing_payment_method",
		}, nil
	}

	params := &stripe.PaymentIntentParams{
		Amount:        stripe.Int64(toMinorUnits(req.Amount)),
		Currency:      stripe.String(req.Currency),
		PaymentMethod: stripe.String(req.Token),
		Confirm:       stripe.Bool(true),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled:        stripe.Bool(true),
			AllowRedirects: stripe.String("never"),
		},
		Metadata: make(map[string]string),
	}
	params.Context = ctx
	if req.IdempotencyKey != "" {
		params.SetIdempotencyKey("charge:" + req.IdempotencyKey)
		params.Metadata["request_id"] = req.IdempotencyKey
	}
	for k, v := range req.Metadata {
		params.Metadata[k] = v
	}
	if req.Description != "" {
		params.Description = stripe.String(req.Description)
	}

	pi, err := paymentintent.New(params)
	if err != nil {
		var stripeErr *stripe.Error
		if errors.As(err, &stripeErr) && stripeErr.Type == stripe.ErrorTypeCard {
			// Declines are answers, not transport failures
			return &ChargeResponse{
				Success:       false,
				Status:        "declined",
				FailureReason: stripeErr.Msg,
				FailureCode:   string(stripeErr.Code),
			}, nil
		}
		return nil, fmt.Errorf("stripe charge failed: %w", err)
	}

	resp := &ChargeResponse{
		TransactionID: pi.ID,
		Status:        string(pi.Status),
		Amount:        float64(pi.Amount) / 100,
		Currency:      string(pi.Currency),
	}

	switch pi.Status {
	case stripe.PaymentIntentStatusSucceeded:
		resp.Success = true
	case stripe.PaymentIntentStatusRequiresPaymentMethod,
		stripe.PaymentIntentStatusRequiresConfirmation,
		stripe.PaymentIntentStatusRequiresAction:
		resp.FailureReason = "payment_requires_action"
		resp.FailureCode = string(pi.Status)
	case stripe.PaymentIntentStatusCanceled:
		resp.FailureReason = "payment_canceled"
		resp.FailureCode = "canceled"
	default:
		resp.FailureReason = fmt.Sprintf("unexpected status: %s", pi.Status)
	}

	return resp, nil
}

// Refund processes a refund through Stripe
func (g *StripeGateway) Refund(ctx context.Context, transactionID string, amount float64) error {
	if transactionID == "" {
		return fmt.Errorf("transaction ID is required")
	}

	params := &stripe.RefundParams{
		PaymentIntent: stripe.String(transactionID),
		Amount:        stripe.Int64(toMinorUnits(amount)),
	}
	params.Context = ctx

	if _, err := refund.New(params); err != nil {
		return fmt.Errorf("failed to create refund: %w", err)
	}
	return nil
}

// Name returns the gateway name
func (g *StripeGateway) Name() string {
	return "stripe"
}
