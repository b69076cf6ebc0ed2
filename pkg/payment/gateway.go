package payment

import (
	"context"
	"errors"
)

// Event types delivered by the payment provider's webhook.
const (
	EventPaymentSucceeded = "payment_intent.succeeded"
	EventPaymentFailed    = "payment_intent.payment_failed"
)

// ErrInvalidSignature is returned when a webhook payload fails verification.
var ErrInvalidSignature = errors.New("invalid webhook signature")

// Gateway defines the interface for payment providers.
type Gateway interface {
	// CreatePaymentIntent registers a charge the browser will confirm.
	CreatePaymentIntent(ctx context.Context, req IntentRequest) (*Intent, error)
	// ParseWebhook verifies the signature and decodes the event.
	ParseWebhook(payload []byte, signature string) (*Event, error)
	Name() string
}

// IntentRequest is a charge in minor units of Currency.
type IntentRequest struct {
	AmountCents    int64
	Currency       string
	Description    string
	ReceiptEmail   string
	Metadata       map[string]string
	IdempotencyKey string
}

// Intent is the provider's answer to a create call.
type Intent struct {
	ID           string
	ClientSecret string
	Status       string
	AmountCents  int64
	Currency     string
}

// PaymentIntent is the state of a charge as reported by a webhook event.
type PaymentIntent struct {
	ID             string
	AmountCents    int64
	Currency       string
	Status         string
	ReceiptEmail   string
	Metadata       map[string]string
	FailureCode    string
	FailureMessage string
}

// Event is a verified webhook event. PaymentIntent is nil for event types
// that do not carry one.
type Event struct {
	ID            string
	Type          string
	PaymentIntent *PaymentIntent
}

// Error carries a message from the provider that is safe to show the buyer.
type Error struct {
	Message string
	Err     error
}

func (e *Error) Error() string {
	switch {
	case e.Err == nil:
		return e.Message
	case e.Message == "":
		return e.Err.Error()
	}
	return e.Message + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// ProviderMessage extracts the provider message from err, or "".
func ProviderMessage(err error) string {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Message
	}
	return ""
}
