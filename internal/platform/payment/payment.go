// Package payment captures appointment fees through a card payment gateway.
package payment

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
)

// CaptureRequest is a single charge. AmountMinor is in the currency's minor
// unit (cents for usd).
type CaptureRequest struct {
	AmountMinor     int64
	Currency        string
	PaymentMethodID string
	Description     string
	Metadata        map[string]string
}

// Intent is the gateway's record of a captured payment.
type Intent struct {
	ID          string
	Status      string
	Currency    string
	AmountMinor int64
}

// Gateway captures payments. Implementations return a *DeclinedError when the
// gateway refuses the charge so callers can surface the reason to the payer.
type Gateway interface {
	Capture(ctx context.Context, req CaptureRequest) (*Intent, error)
}

// DeclinedError carries the gateway's human-readable refusal reason.
type DeclinedError struct {
	Reason string
	Cause  error
}

func (e *DeclinedError) Error() string { return e.Reason }
func (e *DeclinedError) Unwrap() error { return e.Cause }

// ToMinorUnits converts a decimal amount to minor units, rounding half away
// from zero.
func ToMinorUnits(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

// FromMinorUnits is the inverse of ToMinorUnits.
func FromMinorUnits(minor int64) float64 {
	return float64(minor) / 100
}

func (r CaptureRequest) validate() error {
	if r.AmountMinor <= 0 {
		return &DeclinedError{Reason: "amount must be positive"}
	}
	if r.PaymentMethodID == "" {
		return &DeclinedError{Reason: "payment method is required"}
	}
	if len(r.Currency) != 3 {
		return fmt.Errorf("invalid currency %q", r.Currency)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Stripe
// ---------------------------------------------------------------------------

// StripeGateway confirms a PaymentIntent in one call. No idempotency key is
// sent, so a client retry after a network error can charge twice.
type StripeGateway struct {
	sc *client.API
}

func NewStripeGateway(secretKey string) *StripeGateway {
	return &StripeGateway{sc: client.New(secretKey, nil)}
}

func (g *StripeGateway) Capture(ctx context.Context, req CaptureRequest) (*Intent, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	params := &stripe.PaymentIntentParams{
		Amount:        stripe.Int64(req.AmountMinor),
		Currency:      stripe.String(strings.ToLower(req.Currency)),
		PaymentMethod: stripe.String(req.PaymentMethodID),
		Confirm:       stripe.Bool(true),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled:        stripe.Bool(true),
			AllowRedirects: stripe.String("never"),
		},
	}
	if req.Description != "" {
		params.Description = stripe.String(req.Description)
	}
	for k, v := range req.Metadata {
		params.AddMetadata(k, v)
	}
	params.Context = ctx

	pi, err := g.sc.PaymentIntents.New(params)
	if err != nil {
		var se *stripe.Error
		if errors.As(err, &se) && se.Type != stripe.ErrorTypeAPI {
			return nil, &DeclinedError{Reason: se.Msg, Cause: err}
		}
		return nil, fmt.Errorf("stripe create payment intent: %w", err)
	}

	switch pi.Status {
	case stripe.PaymentIntentStatusSucceeded, stripe.PaymentIntentStatusProcessing:
	default:
		return nil, &DeclinedError{Reason: fmt.Sprintf("payment intent is %s", pi.Status)}
	}

	return &Intent{
		ID:          pi.ID,
		Status:      string(pi.Status),
		Currency:    string(pi.Currency),
		AmountMinor: pi.Amount,
	}, nil
}

// ---------------------------------------------------------------------------
// Fake gateway
// ---------------------------------------------------------------------------

// DeclinedPaymentMethod is always refused by FakeGateway.
const DeclinedPaymentMethod = "pm_card_chargeDeclined"

// FakeGateway approves every charge except DeclinedPaymentMethod. It is used
// in development when no Stripe key is configured, and in tests.
type FakeGateway struct {
	mu    sync.Mutex
	calls []CaptureRequest
	// Err, when set, is returned from every Capture.
	Err error
}

func NewFakeGateway() *FakeGateway {
	return &FakeGateway{}
}

func (g *FakeGateway) Capture(ctx context.Context, req CaptureRequest) (*Intent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls = append(g.calls, req)

	if g.Err != nil {
		return nil, g.Err
	}
	if err := req.validate(); err != nil {
		return nil, err
	}
	if req.PaymentMethodID == DeclinedPaymentMethod {
		return nil, &DeclinedError{Reason: "Your card was declined."}
	}
	return &Intent{
		ID:          fmt.Sprintf("pi_fake_%d", len(g.calls)),
		Status:      string(stripe.PaymentIntentStatusSucceeded),
		Currency:    strings.ToLower(req.Currency),
		AmountMinor: req.AmountMinor,
	}, nil
}

// Calls returns a copy of every capture attempt.
func (g *FakeGateway) Calls() []CaptureRequest {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]CaptureRequest, len(g.calls))
	copy(out, g.calls)
	return out
}
