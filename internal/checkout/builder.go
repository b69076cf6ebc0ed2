package checkout

import (
	"strconv"
	"strings"

	"github.com/vpoguide/backend/internal/domain"
	"github.com/vpoguide/backend/internal/pricing"
	"github.com/vpoguide/backend/internal/selection"
)

// ServiceTag identifies this product in the payment provider dashboard.
const ServiceTag = "vpo-guidance"

// PaymentRequest is everything the gateway needs to create a charge.
type PaymentRequest struct {
	AmountUSD       int64
	AmountCents     int64
	ChargeCurrency  string
	DisplayCurrency string
	Display         string
	PlanName        string
	Days            int
	ProductID       string
	Adults          int
	Children        int
	Passengers      int
	TravelDate      string
	Destination     string
	Language        string
	Customer        domain.Customer
	IdempotencyKey  string
	Metadata        map[string]string
}

// BuildInput groups the builder's arguments.
type BuildInput struct {
	State          selection.State
	TravelDate     string
	Customer       domain.Customer
	ProductID      string
	IdempotencyKey string
}

// Build turns a validated selection into a PaymentRequest. The charged amount
// always comes from the pricing engine in the base currency.
func Build(in BuildInput) (PaymentRequest, error) {
	q, ok, err := in.State.Quote()
	if err != nil {
		return PaymentRequest{}, err
	}
	if !ok {
		return PaymentRequest{}, domain.ErrMissingPlan
	}

	productID := in.ProductID
	if productID == "" {
		if p, err := domain.GetPlan(q.Days); err == nil {
			productID = p.ProductID
		}
	}

	s := in.State
	req := PaymentRequest{
		AmountUSD:       q.AmountUSD,
		AmountCents:     pricing.Cents(q.AmountUSD),
		ChargeCurrency:  strings.ToLower(domain.BaseCurrency),
		DisplayCurrency: q.DisplayCurrency,
		Display:         q.Display,
		PlanName:        s.PlanName(),
		Days:            q.Days,
		ProductID:       productID,
		Adults:          s.Adults,
		Children:        s.Children,
		Passengers:      s.Passengers(),
		TravelDate:      strings.TrimSpace(in.TravelDate),
		Destination:     s.Destination,
		Language:        s.Language,
		Customer:        trimCustomer(in.Customer),
		IdempotencyKey:  in.IdempotencyKey,
	}
	req.Metadata = metadata(req)
	return req, nil
}

func metadata(r PaymentRequest) map[string]string {
	m := map[string]string{
		"plan":             r.PlanName,
		"days":             strconv.Itoa(r.Days),
		"passengers":       strconv.Itoa(r.Passengers),
		"adults":           strconv.Itoa(r.Adults),
		"children":         strconv.Itoa(r.Children),
		"date":             r.TravelDate,
		"display_currency": r.DisplayCurrency,
		"display_amount":   r.Display,
		"language":         r.Language,
		"service":          ServiceTag,
		"customer_name":    r.Customer.FullName,
		"customer_email":   r.Customer.Email,
		"customer_phone":   r.Customer.Phone,
		"customer_address": r.Customer.Address,
		"customer_city":    r.Customer.City,
		"customer_country": r.Customer.Country,
	}
	if r.Destination != "" {
		m["destination"] = r.Destination
	}
	if r.ProductID != "" {
		m["product_id"] = r.ProductID
	}
	return m
}
