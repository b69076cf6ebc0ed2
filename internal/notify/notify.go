// Package notify sends booking confirmations to customers.
package notify

import (
	"context"

	"github.com/vpoguide/backend/internal/logutil"
)

// Confirmation is everything a confirmation email and receipt show.
type Confirmation struct {
	BookingID       string
	PaymentIntentID string
	CustomerName    string
	Email           string
	Phone           string
	PlanName        string
	Destination     string
	Days            int
	TravelDate      string
	Adults          int
	Children        int
	Passengers      int
	AmountCents     int64
	Currency        string
	DisplayCurrency string
	DisplayAmount   string
	Language        string

	// Receipt is an optional PDF attached to the email.
	Receipt []byte
}

// Mailer delivers confirmation emails.
type Mailer interface {
	SendConfirmation(ctx context.Context, c Confirmation) error
	Name() string
}

// LogMailer stands in when no email provider is configured.
type LogMailer struct{}

func NewLogMailer() *LogMailer { return &LogMailer{} }

func (LogMailer) SendConfirmation(ctx context.Context, c Confirmation) error {
	logutil.EventCtx(ctx, "email", "skipped",
		"payment_intent", c.PaymentIntentID,
		"to", c.Email,
		"reason", "email provider not configured")
	return nil
}

func (LogMailer) Name() string { return "log" }
