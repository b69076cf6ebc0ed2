package payment

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
)

// MockGateway is an in-process gateway for tests and local development.
// Webhook payloads use the same JSON shape as Stripe and are signed with a
// hex HMAC-SHA256 of the body, optionally prefixed with "sha256=".
type MockGateway struct {
	mu       sync.Mutex
	secret   string
	seq      int
	requests []IntentRequest
	byKey    map[string]*Intent

	// Err, when set, is returned by the next CreatePaymentIntent call.
	Err error
}

func NewMockGateway(secret string) *MockGateway {
	return &MockGateway{secret: secret, byKey: make(map[string]*Intent)}
}

func (g *MockGateway) Name() string { return "mock" }

func (g *MockGateway) CreatePaymentIntent(_ context.Context, req IntentRequest) (*Intent, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.Err != nil {
		err := g.Err
		g.Err = nil
		return nil, err
	}
	if req.IdempotencyKey != "" {
		if in, ok := g.byKey[req.IdempotencyKey]; ok {
			return in, nil
		}
	}
	g.requests = append(g.requests, req)
	g.seq++
	id := fmt.Sprintf("pi_mock_%d", g.seq)
	in := &Intent{
		ID:           id,
		ClientSecret: id + "_secret_mock",
		Status:       "requires_payment_method",
		AmountCents:  req.AmountCents,
		Currency:     strings.ToLower(req.Currency),
	}
	if req.IdempotencyKey != "" {
		g.byKey[req.IdempotencyKey] = in
	}
	return in, nil
}

// Requests returns the create calls received so far.
func (g *MockGateway) Requests() []IntentRequest {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]IntentRequest, len(g.requests))
	copy(out, g.requests)
	return out
}

// Sign returns the signature header value for payload.
func (g *MockGateway) Sign(payload []byte) string {
	mac := hmac.New(sha256.New, []byte(g.secret))
	mac.Write(payload)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

func (g *MockGateway) ParseWebhook(payload []byte, signature string) (*Event, error) {
	if !g.verify(payload, signature) {
		return nil, ErrInvalidSignature
	}

	var raw mockEvent
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, fmt.Errorf("failed to decode event: %w", err)
	}
	evt := &Event{ID: raw.ID, Type: raw.Type}
	if raw.Type == EventPaymentSucceeded || raw.Type == EventPaymentFailed {
		o := raw.Data.Object
		evt.PaymentIntent = &PaymentIntent{
			ID:           o.ID,
			AmountCents:  o.Amount,
			Currency:     o.Currency,
			Status:       o.Status,
			ReceiptEmail: o.ReceiptEmail,
			Metadata:     o.Metadata,
		}
		if o.LastPaymentError != nil {
			evt.PaymentIntent.FailureCode = o.LastPaymentError.Code
			evt.PaymentIntent.FailureMessage = o.LastPaymentError.Message
		}
	}
	return evt, nil
}

func (g *MockGateway) verify(payload []byte, signature string) bool {
	sig := strings.TrimPrefix(strings.TrimSpace(signature), "sha256=")
	if sig == "" {
		return false
	}
	expected := strings.TrimPrefix(g.Sign(payload), "sha256=")
	return hmac.Equal([]byte(sig), []byte(expected))
}

// MockEvent builds a webhook body for the given payment intent.
func MockEvent(eventID, eventType string, pi PaymentIntent) []byte {
	var o mockEvent
	o.ID = eventID
	o.Type = eventType
	o.Data.Object = mockIntent{
		ID:           pi.ID,
		Amount:       pi.AmountCents,
		Currency:     pi.Currency,
		Status:       pi.Status,
		ReceiptEmail: pi.ReceiptEmail,
		Metadata:     pi.Metadata,
	}
	if pi.FailureCode != "" || pi.FailureMessage != "" {
		o.Data.Object.LastPaymentError = &mockPaymentError{Code: pi.FailureCode, Message: pi.FailureMessage}
	}
	b, _ := json.Marshal(o)
	return b
}

type mockEvent struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		Object mockIntent `json:"object"`
	} `json:"data"`
}

type mockIntent struct {
	ID               string            `json:"id"`
	Amount           int64             `json:"amount"`
	Currency         string            `json:"currency"`
	Status           string            `json:"status,omitempty"`
	ReceiptEmail     string            `json:"receipt_email,omitempty"`
	Metadata         map[string]string `json:"metadata,omitempty"`
	LastPaymentError *mockPaymentError `json:"last_payment_error,omitempty"`
}

type mockPaymentError struct {
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}
