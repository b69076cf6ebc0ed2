package service

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/vpoguide/backend/internal/domain"
	"github.com/vpoguide/backend/internal/i18n"
	"github.com/vpoguide/backend/internal/idempotency"
	"github.com/vpoguide/backend/internal/logutil"
	"github.com/vpoguide/backend/internal/notify"
	"github.com/vpoguide/backend/internal/repository"
	"github.com/vpoguide/backend/internal/tracking"
	"github.com/vpoguide/backend/internal/ws"
	"github.com/vpoguide/backend/pkg/payment"
)

const defaultCollaboratorTimeout = 10 * time.Second

// SuccessHandler runs the post-payment work for verified webhook events.
// Each PaymentIntent is post-processed at most once per idempotency store.
type SuccessHandler struct {
	store    idempotency.Store
	bookings repository.BookingRepository
	mailer   notify.Mailer
	tracker  tracking.Tracker
	hub      *ws.Hub
	catalog  *i18n.Catalog
	timeout  time.Duration
	now      func() time.Time
}

func NewSuccessHandler(
	store idempotency.Store,
	bookings repository.BookingRepository,
	mailer notify.Mailer,
	tracker tracking.Tracker,
	hub *ws.Hub,
	catalog *i18n.Catalog,
	timeout time.Duration,
) *SuccessHandler {
	if timeout <= 0 {
		timeout = defaultCollaboratorTimeout
	}
	return &SuccessHandler{
		store:    store,
		bookings: bookings,
		mailer:   mailer,
		tracker:  tracker,
		hub:      hub,
		catalog:  catalog,
		timeout:  timeout,
		now:      time.Now,
	}
}

// HandleEvent dispatches a verified event. Unknown event types are ignored.
func (h *SuccessHandler) HandleEvent(ctx context.Context, evt *payment.Event) {
	if evt.PaymentIntent == nil {
		logutil.EventCtx(ctx, "webhook", "ignored", "event", evt.ID, "type", evt.Type)
		return
	}

	switch evt.Type {
	case payment.EventPaymentSucceeded:
		h.OnPaymentSucceeded(ctx, evt.PaymentIntent)
	case payment.EventPaymentFailed:
		h.OnPaymentFailed(ctx, evt.PaymentIntent)
	default:
		logutil.EventCtx(ctx, "webhook", "ignored", "event", evt.ID, "type", evt.Type)
	}
}

// OnPaymentSucceeded claims the PaymentIntent and, for the first delivery
// only, stores the booking, emails the receipt, records the purchase and
// notifies waiting browsers. Failures after the claim are logged and the ID
// stays claimed.
func (h *SuccessHandler) OnPaymentSucceeded(ctx context.Context, pi *payment.PaymentIntent) {
	// The provider may drop the connection once it has its ack.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), h.timeout)
	defer cancel()

	claimed, err := h.store.Claim(ctx, pi.ID)
	if err != nil {
		logutil.EventCtx(ctx, "payment", "claim_failed",
			"payment_intent", pi.ID, "store", h.store.Name(), "error", err)
		return
	}
	if !claimed {
		logutil.EventCtx(ctx, "payment", "duplicate", "payment_intent", pi.ID)
		return
	}

	logutil.EventCtx(ctx, "payment", "succeeded",
		"payment_intent", pi.ID,
		"amount_cents", pi.AmountCents,
		"currency", pi.Currency,
		"plan", pi.Metadata["plan"])

	booking := bookingFromIntent(pi, h.now().UTC())
	if err := h.bookings.Create(ctx, booking); err != nil {
		logutil.EventCtx(ctx, "payment", "booking_failed", "payment_intent", pi.ID, "error", err)
	}

	h.sendConfirmation(ctx, booking, pi)

	h.tracker.Track(ctx, tracking.Event{
		Name:            tracking.Purchase,
		PaymentIntentID: pi.ID,
		Value:           float64(pi.AmountCents) / 100,
		Currency:        strings.ToUpper(pi.Currency),
		PlanName:        booking.PlanName,
		Days:            booking.Days,
		Passengers:      booking.Passengers,
		Destination:     booking.Destination,
		Language:        booking.Language,
		OccurredAt:      booking.CreatedAt,
	})

	h.hub.Publish(ws.Status{PaymentIntentID: pi.ID, Status: ws.StatusSucceeded})
}

// OnPaymentFailed records a declined payment. Nothing is stored.
func (h *SuccessHandler) OnPaymentFailed(ctx context.Context, pi *payment.PaymentIntent) {
	logutil.EventCtx(ctx, "payment", "failed",
		"payment_intent", pi.ID,
		"code", pi.FailureCode,
		"message", pi.FailureMessage,
		"plan", pi.Metadata["plan"])

	h.tracker.Track(ctx, tracking.Event{
		Name:            tracking.PaymentFailed,
		PaymentIntentID: pi.ID,
		Value:           float64(pi.AmountCents) / 100,
		Currency:        strings.ToUpper(pi.Currency),
		PlanName:        pi.Metadata["plan"],
		Extra:           map[string]string{"code": pi.FailureCode},
		OccurredAt:      h.now().UTC(),
	})

	h.hub.Publish(ws.Status{PaymentIntentID: pi.ID, Status: ws.StatusFailed, Message: pi.FailureMessage})
}

func (h *SuccessHandler) sendConfirmation(ctx context.Context, b *domain.Booking, pi *payment.PaymentIntent) {
	c := notify.Confirmation{
		BookingID:       b.ID,
		PaymentIntentID: b.PaymentIntentID,
		CustomerName:    b.Customer.FullName,
		Email:           b.Customer.Email,
		Phone:           b.Customer.Phone,
		PlanName:        b.PlanName,
		Destination:     domain.DestinationName(b.Destination),
		Days:            b.Days,
		TravelDate:      b.TravelDate,
		Adults:          b.Adults,
		Children:        b.Children,
		Passengers:      b.Passengers,
		AmountCents:     b.AmountCents,
		Currency:        b.Currency,
		DisplayCurrency: b.DisplayCurrency,
		DisplayAmount:   pi.Metadata["display_amount"],
		Language:        b.Language,
	}
	if c.Email == "" {
		logutil.EventCtx(ctx, "email", "skipped", "payment_intent", pi.ID, "reason", "no recipient")
		return
	}

	receipt, err := notify.BuildReceipt(c, h.catalog, b.CreatedAt)
	if err != nil {
		logutil.EventCtx(ctx, "email", "receipt_failed", "payment_intent", pi.ID, "error", err)
	} else {
		c.Receipt = receipt
	}

	if err := h.mailer.SendConfirmation(ctx, c); err != nil {
		logutil.EventCtx(ctx, "email", "send_failed",
			"payment_intent", pi.ID, "mailer", h.mailer.Name(), "error", err)
		return
	}
	logutil.EventCtx(ctx, "email", "sent", "payment_intent", pi.ID, "mailer", h.mailer.Name())
}

// bookingFromIntent reads the booking back out of the metadata written when
// the intent was created.
func bookingFromIntent(pi *payment.PaymentIntent, now time.Time) *domain.Booking {
	m := pi.Metadata
	email := m["customer_email"]
	if email == "" {
		email = pi.ReceiptEmail
	}
	lang := m["language"]
	if lang == "" {
		lang = i18n.DefaultLanguage
	}
	return &domain.Booking{
		ID:              uuid.New().String(),
		PaymentIntentID: pi.ID,
		Destination:     m["destination"],
		PlanName:        m["plan"],
		Days:            atoi(m["days"]),
		Adults:          atoi(m["adults"]),
		Children:        atoi(m["children"]),
		Passengers:      atoi(m["passengers"]),
		TravelDate:      m["date"],
		AmountCents:     pi.AmountCents,
		Currency:        strings.ToLower(pi.Currency),
		DisplayCurrency: m["display_currency"],
		Language:        lang,
		Status:          domain.BookingPaid,
		Customer: domain.Customer{
			FullName: m["customer_name"],
			Email:    email,
			Phone:    m["customer_phone"],
			Address:  m["customer_address"],
			City:     m["customer_city"],
			Country:  m["customer_country"],
		},
		CreatedAt: now,
	}
}

func atoi(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0
	}
	return n
}
