// Package payment creates Stripe PaymentIntents for orders and verifies the
// webhooks Stripe sends back.
package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v78"
	"github.com/stripe/stripe-go/v78/client"
	"github.com/stripe/stripe-go/v78/webhook"
)

const (
	MethodCard = "card"

	EventPaymentSucceeded = "payment_intent.succeeded"
	EventPaymentFailed    = "payment_intent.payment_failed"
)

// ErrInvalidSignature is returned for webhook payloads that fail verification.
var ErrInvalidSignature = errors.New("invalid webhook signature")

// Intent is the part of a PaymentIntent the client needs to confirm payment.
type Intent struct {
	ID           string `json:"paymentId"`
	ClientSecret string `json:"clientSecret"`
	Amount       int64  `json:"amount"`
	Currency     string `json:"currency"`
}

// Event is a verified webhook notification about a PaymentIntent.
type Event struct {
	Type            string
	PaymentIntentID string
	OrderID         int64
}

// Gateway is what the HTTP layer needs from a payment provider.
type Gateway interface {
	CreateIntent(ctx context.Context, orderID int64, total float64) (Intent, error)
	ParseWebhook(payload []byte, signature string) (Event, error)
}

type intentCreator interface {
	New(params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error)
}

// Stripe is a Gateway backed by the Stripe API.
type Stripe struct {
	intents       intentCreator
	webhookSecret string
	currency      string
}

func NewStripe(secretKey, webhookSecret, currency string) *Stripe {
	sc := &client.API{}
	sc.Init(secretKey, nil)
	return &Stripe{intents: sc.PaymentIntents, webhookSecret: webhookSecret, currency: currency}
}

// MinorUnits converts an amount to the smallest currency unit (cents).
func MinorUnits(amount float64) int64 {
	return decimal.NewFromFloat(amount).Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}

func (s *Stripe) CreateIntent(ctx context.Context, orderID int64, total float64) (Intent, error) {
	amount := MinorUnits(total)
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(amount),
		Currency: stripe.String(s.currency),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	params.Context = ctx
	params.AddMetadata("order_id", strconv.FormatInt(orderID, 10))
	params.SetIdempotencyKey(fmt.Sprintf("order-%d-%d", orderID, amount))

	pi, err := s.intents.New(params)
	if err != nil {
		return Intent{}, fmt.Errorf("create payment intent for order %d: %w", orderID, err)
	}
	return Intent{ID: pi.ID, ClientSecret: pi.ClientSecret, Amount: amount, Currency: s.currency}, nil
}

// ParseWebhook verifies the Stripe-Signature header and decodes the
// PaymentIntent the event is about.
func (s *Stripe) ParseWebhook(payload []byte, signature string) (Event, error) {
	evt, err := webhook.ConstructEventWithOptions(payload, signature, s.webhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		return Event{}, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	out := Event{Type: string(evt.Type)}
	if evt.Data == nil || len(evt.Data.Raw) == 0 {
		return out, nil
	}

	var pi stripe.PaymentIntent
	if err := json.Unmarshal(evt.Data.Raw, &pi); err != nil {
		return Event{}, fmt.Errorf("decode payment intent: %w", err)
	}
	out.PaymentIntentID = pi.ID
	if id, err := strconv.ParseInt(pi.Metadata["order_id"], 10, 64); err == nil {
		out.OrderID = id
	}
	return out, nil
}
