package notify

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"github.com/sony/gobreaker/v2"

	"github.com/vpoguide/backend/internal/domain"
	"github.com/vpoguide/backend/internal/i18n"
	"github.com/vpoguide/backend/internal/logutil"
	"github.com/vpoguide/backend/internal/pricing"
)

// SendGridConfig configures the SendGrid mailer.
type SendGridConfig struct {
	APIKey     string
	TemplateID string
	FromEmail  string
	FromName   string
	Timeout    time.Duration
	// Host overrides https://api.sendgrid.com.
	Host string
}

// SendGridMailer sends dynamic-template emails through the SendGrid v3 API.
// Calls go through a circuit breaker so an outage does not stall webhooks.
type SendGridMailer struct {
	cfg     SendGridConfig
	catalog *i18n.Catalog
	cb      *gobreaker.CircuitBreaker[*rest.Response]
}

func NewSendGridMailer(cfg SendGridConfig, catalog *i18n.Catalog) *SendGridMailer {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.Host == "" {
		cfg.Host = "https://api.sendgrid.com"
	}
	cb := gobreaker.NewCircuitBreaker[*rest.Response](gobreaker.Settings{
		Name:        "sendgrid",
		MaxRequests: 1,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logutil.Event("email", "breaker", "name", name, "from", from.String(), "to", to.String())
		},
	})
	return &SendGridMailer{cfg: cfg, catalog: catalog, cb: cb}
}

func (m *SendGridMailer) Name() string { return "sendgrid" }

func (m *SendGridMailer) SendConfirmation(ctx context.Context, c Confirmation) error {
	if c.Email == "" {
		return fmt.Errorf("confirmation for %s has no recipient", c.PaymentIntentID)
	}

	req := sendgrid.GetRequest(m.cfg.APIKey, "/v3/mail/send", m.cfg.Host)
	req.Method = rest.Post
	req.Body = mail.GetRequestBody(m.message(c))

	ctx, cancel := context.WithTimeout(ctx, m.cfg.Timeout)
	defer cancel()

	resp, err := m.cb.Execute(func() (*rest.Response, error) {
		resp, err := sendgrid.MakeRequestWithContext(ctx, req)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode >= 300 {
			return resp, fmt.Errorf("sendgrid returned %d: %s", resp.StatusCode, strings.TrimSpace(resp.Body))
		}
		return resp, nil
	})
	if err != nil {
		return fmt.Errorf("failed to send confirmation: %w", err)
	}
	logutil.EventCtx(ctx, "email", "sent",
		"payment_intent", c.PaymentIntentID,
		"status", resp.StatusCode,
		"message_id", resp.Headers["X-Message-Id"])
	return nil
}

func (m *SendGridMailer) message(c Confirmation) *mail.SGMailV3 {
	lang := c.Language
	msg := mail.NewV3Mail()
	msg.SetFrom(mail.NewEmail(m.cfg.FromName, m.cfg.FromEmail))

	p := mail.NewPersonalization()
	p.AddTos(mail.NewEmail(c.CustomerName, c.Email))
	subject := m.catalog.Text(lang, "email.subject")

	if m.cfg.TemplateID != "" {
		msg.SetTemplateID(m.cfg.TemplateID)
		for k, v := range templateData(c) {
			p.SetDynamicTemplateData(k, v)
		}
		p.SetDynamicTemplateData("subject", subject)
	} else {
		msg.Subject = subject
		msg.AddContent(mail.NewContent("text/plain", m.plainText(c)))
	}
	msg.AddPersonalizations(p)

	if len(c.Receipt) > 0 {
		a := mail.NewAttachment()
		a.SetContent(base64.StdEncoding.EncodeToString(c.Receipt))
		a.SetType("application/pdf")
		a.SetFilename(ReceiptFilename(c))
		a.SetDisposition("attachment")
		msg.AddAttachment(a)
	}
	return msg
}

func templateData(c Confirmation) map[string]any {
	return map[string]any{
		"customer_name":    c.CustomerName,
		"plan":             c.PlanName,
		"destination":      c.Destination,
		"days":             c.Days,
		"date":             c.TravelDate,
		"passengers":       c.Passengers,
		"adults":           c.Adults,
		"children":         c.Children,
		"amount":           fmt.Sprintf("$%.2f", float64(c.AmountCents)/100),
		"display_amount":   c.DisplayAmount,
		"display_currency": c.DisplayCurrency,
		"payment_intent":   c.PaymentIntentID,
		"language":         c.Language,
	}
}

func (m *SendGridMailer) plainText(c Confirmation) string {
	t := func(key string) string { return m.catalog.Text(c.Language, key) }
	amount, err := pricing.FormatForDisplay(c.AmountCents/100, domain.BaseCurrency)
	if err != nil {
		amount = fmt.Sprintf("%d", c.AmountCents/100)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s,\n\n%s\n\n%s\n", t("email.greeting"), c.CustomerName, t("email.intro"), t("email.summary"))
	fmt.Fprintf(&b, "%s: %s\n", t("receipt.plan"), c.PlanName)
	fmt.Fprintf(&b, "%s: %s\n", t("receipt.date"), c.TravelDate)
	fmt.Fprintf(&b, "%s: %d\n", t("receipt.passengers"), c.Passengers)
	fmt.Fprintf(&b, "%s: %s\n", t("receipt.amount"), amount)
	fmt.Fprintf(&b, "%s: %s\n", t("receipt.payment_id"), c.PaymentIntentID)
	return b.String()
}
