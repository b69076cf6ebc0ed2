package service

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/vpoguide/backend/internal/checkout"
	"github.com/vpoguide/backend/internal/domain"
	"github.com/vpoguide/backend/internal/logutil"
	"github.com/vpoguide/backend/internal/pricing"
	"github.com/vpoguide/backend/internal/selection"
	"github.com/vpoguide/backend/internal/tracking"
	"github.com/vpoguide/backend/pkg/payment"
)

// amountTolerance absorbs float noise in the client's USD amount.
const amountTolerance = 0.005

// PaymentService prices selections and opens payment intents.
type PaymentService struct {
	gateway        payment.Gateway
	validator      *checkout.Validator
	tracker        tracking.Tracker
	publishableKey string
	timeout        time.Duration
	now            func() time.Time
}

// NewPaymentService wires the checkout flow. gateway may be nil when no
// payment provider is configured; intent creation then fails with a 500.
func NewPaymentService(gateway payment.Gateway, validator *checkout.Validator, tracker tracking.Tracker, publishableKey string, timeout time.Duration) *PaymentService {
	if tracker == nil {
		tracker = tracking.NewLogTracker()
	}
	if timeout <= 0 {
		timeout = defaultCollaboratorTimeout
	}
	return &PaymentService{
		gateway:        gateway,
		validator:      validator,
		tracker:        tracker,
		publishableKey: publishableKey,
		timeout:        timeout,
		now:            time.Now,
	}
}

// PublishableKey returns the key the browser needs to load the payment form.
func (s *PaymentService) PublishableKey() (string, error) {
	if s.publishableKey == "" {
		return "", domain.ErrConfiguration("Stripe publishable key")
	}
	return s.publishableKey, nil
}

// Plans lists every plan priced for currency. The plan the picker would
// auto-select for destination is flagged.
func (s *PaymentService) Plans(destination, currency string) ([]domain.PlanCard, error) {
	state := selection.New().SelectDestination(destination)
	state, err := state.ChangeCurrency(defaultCurrency(currency))
	if err != nil {
		return nil, domain.ErrValidation(err)
	}

	plans := domain.AvailablePlans()
	cards := make([]domain.PlanCard, 0, len(plans))
	for _, p := range plans {
		q, err := pricing.NewQuote(p.Days, 1, 0, state.Currency)
		if err != nil {
			return nil, domain.ErrInternal("failed to price plan", err)
		}
		cards = append(cards, domain.PlanCard{
			Days:          p.Days,
			Name:          domain.PlanName(state.Destination, p.Days),
			PriceUSD:      p.PriceUSD,
			Display:       q.Display,
			DisplayPerDay: q.DisplayPerDay,
			Popular:       p.Popular,
			Selected:      p.Days == state.Days,
			ProductID:     p.ProductID,
		})
	}
	return cards, nil
}

// Quote prices a plan for a party. Passenger counts follow the picker's
// floor rules, so an empty party is priced as one adult.
func (s *PaymentService) Quote(req *domain.QuoteRequest) (*pricing.Quote, error) {
	state, err := selection.New().
		WithDestination(req.Destination).
		WithPassengers(req.Adults, req.Children).
		ChangeCurrency(defaultCurrency(req.Currency))
	if err != nil {
		return nil, domain.ErrValidation(err)
	}
	if state, err = state.SelectPlan(req.Days); err != nil {
		return nil, domain.ErrValidation(err)
	}

	q, _, err := state.Quote()
	if err != nil {
		return nil, domain.ErrValidation(err)
	}
	return &q, nil
}

// CreatePaymentIntent validates the checkout form, recomputes the price and
// registers the charge with the payment provider. Nothing is stored locally.
func (s *PaymentService) CreatePaymentIntent(ctx context.Context, req *domain.CreatePaymentIntentRequest, idempotencyKey string) (*domain.CreatePaymentIntentResponse, error) {
	if s.gateway == nil {
		return nil, domain.ErrConfiguration("Stripe")
	}

	state, err := selectionFromRequest(req)
	if err != nil {
		return nil, domain.ErrValidation(err)
	}
	if err := s.validator.Validate(state, req.Date); err != nil {
		return nil, domain.ErrValidation(err)
	}
	if fields := s.validator.ValidateCustomer(req.Customer); fields != nil {
		return nil, domain.ErrFieldValidation(fields)
	}

	if idempotencyKey = strings.TrimSpace(idempotencyKey); idempotencyKey == "" {
		idempotencyKey = uuid.New().String()
	}
	pr, err := checkout.Build(checkout.BuildInput{
		State:          state,
		TravelDate:     req.Date,
		Customer:       req.Customer,
		ProductID:      req.Plan.ProductID,
		IdempotencyKey: idempotencyKey,
	})
	if err != nil {
		return nil, domain.ErrValidation(err)
	}
	if err := checkAmount(req.Amount, pr); err != nil {
		return nil, domain.ErrValidation(err)
	}

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	intent, err := s.gateway.CreatePaymentIntent(callCtx, payment.IntentRequest{
		AmountCents:    pr.AmountCents,
		Currency:       pr.ChargeCurrency,
		Description:    pr.PlanName,
		ReceiptEmail:   pr.Customer.Email,
		Metadata:       pr.Metadata,
		IdempotencyKey: pr.IdempotencyKey,
	})
	if err != nil {
		logutil.EventCtx(ctx, "checkout", "create_intent_failed",
			"gateway", s.gateway.Name(),
			"plan", pr.PlanName,
			"amount_cents", pr.AmountCents,
			"error", err)
		return nil, domain.ErrCollaborator(payment.ProviderMessage(err), err)
	}

	logutil.EventCtx(ctx, "checkout", "intent_created",
		"payment_intent", intent.ID,
		"plan", pr.PlanName,
		"amount_cents", pr.AmountCents,
		"display", pr.Display)

	s.tracker.Track(ctx, tracking.Event{
		Name:            tracking.BeginCheckout,
		PaymentIntentID: intent.ID,
		Value:           float64(pr.AmountUSD),
		Currency:        domain.BaseCurrency,
		PlanName:        pr.PlanName,
		Days:            pr.Days,
		Passengers:      pr.Passengers,
		Destination:     pr.Destination,
		Language:        pr.Language,
		OccurredAt:      s.now().UTC(),
	})

	return &domain.CreatePaymentIntentResponse{
		ClientSecret:    intent.ClientSecret,
		PaymentIntentID: intent.ID,
	}, nil
}

// selectionFromRequest rebuilds the picker state from a submitted form
// without the picker's auto-selection, so a missing plan or an empty party is
// reported instead of silently repaired.
func selectionFromRequest(req *domain.CreatePaymentIntentRequest) (selection.State, error) {
	state := selection.New().WithDestination(req.Destination)
	if req.Language != "" {
		state = state.ChangeLanguage(req.Language)
	}

	c, err := pricing.LookupCurrency(defaultCurrency(req.Currency))
	if err != nil {
		return state, err
	}
	state.Currency = c.Code

	adults, children := req.Passengers, 0
	if req.Adults != nil || req.Children != nil {
		adults, children = derefInt(req.Adults), derefInt(req.Children)
	}
	state.Adults = max(adults, 0)
	state.Children = max(children, 0)

	if req.Plan.Days != 0 {
		if state, err = state.SelectPlan(req.Plan.Days); err != nil {
			return state, err
		}
	}
	return state, nil
}

// checkAmount compares the client's amount with the server quote. The amount
// is always in USD whatever currency is displayed. A zero amount skips the
// check and the server quote is charged.
func checkAmount(amount float64, pr checkout.PaymentRequest) error {
	if amount == 0 {
		return nil
	}
	if math.Abs(float64(pr.AmountUSD)-round2(amount)) > amountTolerance {
		return fmt.Errorf("%w: got $%.2f, expected $%d", domain.ErrAmountMismatch, amount, pr.AmountUSD)
	}
	return nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func derefInt(p *int) int {
	if p == nil {
		return 0
	}
	return *p
}

func defaultCurrency(code string) string {
	if strings.TrimSpace(code) == "" {
		return domain.BaseCurrency
	}
	return code
}

