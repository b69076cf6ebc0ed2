package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vpoguide/backend/internal/checkout"
	"github.com/vpoguide/backend/internal/domain"
	"github.com/vpoguide/backend/internal/i18n"
	"github.com/vpoguide/backend/internal/idempotency"
	"github.com/vpoguide/backend/internal/notify"
	"github.com/vpoguide/backend/internal/repository"
	"github.com/vpoguide/backend/internal/selection"
	"github.com/vpoguide/backend/internal/tracking"
	"github.com/vpoguide/backend/internal/ws"
	"github.com/vpoguide/backend/pkg/payment"
)

type countingMailer struct {
	mu   sync.Mutex
	sent []notify.Confirmation
	err  error
}

func (m *countingMailer) SendConfirmation(ctx context.Context, c notify.Confirmation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if ctx.Err() != nil {
		return ctx.Err()
	}
	m.sent = append(m.sent, c)
	return m.err
}

func (m *countingMailer) Name() string { return "counting" }

func (m *countingMailer) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

type failingStore struct{}

func (failingStore) Claim(context.Context, string) (bool, error) {
	return false, errors.New("redis: connection refused")
}

func (failingStore) Ping(context.Context) error { return nil }

func (failingStore) Name() string { return "failing" }

type successFixture struct {
	handler  *SuccessHandler
	mailer   *countingMailer
	bookings *repository.MemoryBookingRepository
	tracker  *recordingTracker
	hub      *ws.Hub
}

func newSuccessFixture(store idempotency.Store) *successFixture {
	f := &successFixture{
		mailer:   &countingMailer{},
		bookings: repository.NewMemoryBookingRepository(),
		tracker:  &recordingTracker{},
		hub:      ws.NewHub(time.Minute),
	}
	f.handler = NewSuccessHandler(store, f.bookings, f.mailer, f.tracker, f.hub, i18n.MustLoad(), time.Second)
	f.handler.now = func() time.Time { return testNow }
	return f
}

// paidIntent builds a succeeded PaymentIntent carrying the metadata the
// checkout builder writes.
func paidIntent(t *testing.T, id string) *payment.PaymentIntent {
	t.Helper()
	state, err := selection.New().SelectDestination("orlando").SelectPlan(3)
	require.NoError(t, err)
	state = state.WithPassengers(10, 2)
	state, err = state.ChangeCurrency("BRL")
	require.NoError(t, err)

	pr, err := checkout.Build(checkout.BuildInput{
		State:      state.ChangeLanguage("pt"),
		TravelDate: "2026-03-11",
		Customer:   validRequest().Customer,
	})
	require.NoError(t, err)

	return &payment.PaymentIntent{
		ID:          id,
		AmountCents: pr.AmountCents,
		Currency:    pr.ChargeCurrency,
		Status:      "succeeded",
		Metadata:    pr.Metadata,
	}
}

func TestOnPaymentSucceeded_SameIDOnce(t *testing.T) {
	f := newSuccessFixture(idempotency.NewMemoryStore(0))
	pi := paidIntent(t, "pi_1")

	f.handler.OnPaymentSucceeded(context.Background(), pi)
	f.handler.OnPaymentSucceeded(context.Background(), pi)

	assert.Equal(t, 1, f.mailer.Count())
	assert.Equal(t, []string{tracking.Purchase}, f.tracker.Names())

	list, err := f.bookings.List(context.Background(), 0)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestOnPaymentSucceeded_DistinctIDs(t *testing.T) {
	f := newSuccessFixture(idempotency.NewMemoryStore(0))

	f.handler.OnPaymentSucceeded(context.Background(), paidIntent(t, "pi_1"))
	f.handler.OnPaymentSucceeded(context.Background(), paidIntent(t, "pi_2"))

	assert.Equal(t, 2, f.mailer.Count())
}

func TestOnPaymentSucceeded_Concurrent(t *testing.T) {
	f := newSuccessFixture(idempotency.NewMemoryStore(0))
	pi := paidIntent(t, "pi_race")

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			f.handler.OnPaymentSucceeded(context.Background(), pi)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, f.mailer.Count())
}

func TestOnPaymentSucceeded_BookingFromMetadata(t *testing.T) {
	f := newSuccessFixture(idempotency.NewMemoryStore(0))
	f.handler.OnPaymentSucceeded(context.Background(), paidIntent(t, "pi_meta"))

	b, err := f.bookings.FindByPaymentIntent(context.Background(), "pi_meta")
	require.NoError(t, err)
	require.NotNil(t, b)
	assert.Equal(t, "Orlando - 3 Days", b.PlanName)
	assert.Equal(t, "orlando", b.Destination)
	assert.Equal(t, 3, b.Days)
	assert.Equal(t, 10, b.Adults)
	assert.Equal(t, 2, b.Children)
	assert.Equal(t, 12, b.Passengers)
	assert.Equal(t, int64(117800), b.AmountCents)
	assert.Equal(t, "usd", b.Currency)
	assert.Equal(t, "BRL", b.DisplayCurrency)
	assert.Equal(t, "pt", b.Language)
	assert.Equal(t, domain.BookingPaid, b.Status)
	assert.Equal(t, "ana@example.com", b.Customer.Email)
	assert.Equal(t, testNow, b.CreatedAt)

	require.Equal(t, 1, f.mailer.Count())
	sent := f.mailer.sent[0]
	assert.Equal(t, "Orlando", sent.Destination)
	assert.Equal(t, "R$6479.00", sent.DisplayAmount)
	assert.NotEmpty(t, sent.Receipt)
}

func TestOnPaymentSucceeded_EmailFailureKeepsClaim(t *testing.T) {
	store := idempotency.NewMemoryStore(0)
	f := newSuccessFixture(store)
	f.mailer.err = errors.New("sendgrid: 503")
	pi := paidIntent(t, "pi_mailfail")

	f.handler.OnPaymentSucceeded(context.Background(), pi)
	f.mailer.err = nil
	f.handler.OnPaymentSucceeded(context.Background(), pi)

	assert.Equal(t, 1, f.mailer.Count(), "a retried webhook must not resend")
	assert.Equal(t, 1, store.Len())
}

func TestOnPaymentSucceeded_StoreErrorSkips(t *testing.T) {
	f := newSuccessFixture(failingStore{})

	f.handler.OnPaymentSucceeded(context.Background(), paidIntent(t, "pi_1"))

	assert.Zero(t, f.mailer.Count())
	assert.Empty(t, f.tracker.Names())
}

func TestOnPaymentSucceeded_OutlivesRequestContext(t *testing.T) {
	f := newSuccessFixture(idempotency.NewMemoryStore(0))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	f.handler.OnPaymentSucceeded(ctx, paidIntent(t, "pi_cancelled"))

	assert.Equal(t, 1, f.mailer.Count())
}

func TestOnPaymentSucceeded_NoRecipient(t *testing.T) {
	f := newSuccessFixture(idempotency.NewMemoryStore(0))
	pi := paidIntent(t, "pi_noemail")
	delete(pi.Metadata, "customer_email")

	f.handler.OnPaymentSucceeded(context.Background(), pi)

	assert.Zero(t, f.mailer.Count())
	b, err := f.bookings.FindByPaymentIntent(context.Background(), "pi_noemail")
	require.NoError(t, err)
	assert.NotNil(t, b)
}

func TestOnPaymentSucceeded_PublishesStatus(t *testing.T) {
	f := newSuccessFixture(idempotency.NewMemoryStore(0))
	ch, cancel := f.hub.Subscribe("pi_ws")
	defer cancel()

	f.handler.OnPaymentSucceeded(context.Background(), paidIntent(t, "pi_ws"))

	select {
	case s := <-ch:
		assert.Equal(t, ws.StatusSucceeded, s.Status)
	case <-time.After(time.Second):
		t.Fatal("no status published")
	}
}

func TestHandleEvent_FromSignedWebhook(t *testing.T) {
	f := newSuccessFixture(idempotency.NewMemoryStore(0))
	gw := payment.NewMockGateway("whsec_test")

	body := payment.MockEvent("evt_1", payment.EventPaymentSucceeded, *paidIntent(t, "pi_hook"))
	evt, err := gw.ParseWebhook(body, gw.Sign(body))
	require.NoError(t, err)

	f.handler.HandleEvent(context.Background(), evt)
	f.handler.HandleEvent(context.Background(), evt)

	assert.Equal(t, 1, f.mailer.Count())
}

func TestHandleEvent_PaymentFailed(t *testing.T) {
	f := newSuccessFixture(idempotency.NewMemoryStore(0))
	ch, cancel := f.hub.Subscribe("pi_declined")
	defer cancel()

	f.handler.HandleEvent(context.Background(), &payment.Event{
		ID:   "evt_2",
		Type: payment.EventPaymentFailed,
		PaymentIntent: &payment.PaymentIntent{
			ID:             "pi_declined",
			AmountCents:    19900,
			Currency:       "usd",
			FailureCode:    "card_declined",
			FailureMessage: "Your card was declined.",
		},
	})

	assert.Zero(t, f.mailer.Count())
	assert.Equal(t, []string{tracking.PaymentFailed}, f.tracker.Names())
	s := <-ch
	assert.Equal(t, ws.StatusFailed, s.Status)
	assert.Equal(t, "Your card was declined.", s.Message)
}

func TestHandleEvent_IgnoresOtherTypes(t *testing.T) {
	f := newSuccessFixture(idempotency.NewMemoryStore(0))

	f.handler.HandleEvent(context.Background(), &payment.Event{ID: "evt_3", Type: "charge.refunded"})
	f.handler.HandleEvent(context.Background(), &payment.Event{
		ID: "evt_4", Type: "payment_intent.created", PaymentIntent: &payment.PaymentIntent{ID: "pi_x"},
	})

	assert.Zero(t, f.mailer.Count())
	assert.Empty(t, f.tracker.Names())
}
