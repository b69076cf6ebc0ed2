package domain

import "time"

// Customer holds the contact details collected in the checkout form. Every
// field is copied into payment metadata, where values are capped at 500
// characters.
type Customer struct {
	FullName string `json:"fullName" validate:"required,max=200"`
	Email    string `json:"email" validate:"required,max=254,simpleemail"`
	Phone    string `json:"phone" validate:"required,max=40"`
	Address  string `json:"address" validate:"required,max=500"`
	City     string `json:"city" validate:"required,max=120"`
	Country  string `json:"country" validate:"required,max=120"`
}

// PlanSelection is the plan descriptor sent by the checkout form.
type PlanSelection struct {
	Name      string `json:"name"`
	Days      int    `json:"days"`
	ProductID string `json:"productId,omitempty"`
}

// CreatePaymentIntentRequest is the body of POST /api/create-payment-intent.
type CreatePaymentIntentRequest struct {
	Amount      float64       `json:"amount"`
	Currency    string        `json:"currency"`
	Plan        PlanSelection `json:"plan"`
	Passengers  int           `json:"passengers"`
	Adults      *int          `json:"adults,omitempty"`
	Children    *int          `json:"children,omitempty"`
	Destination string        `json:"destination,omitempty"`
	Language    string        `json:"language,omitempty"`
	Date        string        `json:"date"`
	Customer    Customer      `json:"customer"`
}

// CreatePaymentIntentResponse carries what the browser needs to confirm the payment.
type CreatePaymentIntentResponse struct {
	ClientSecret    string `json:"clientSecret"`
	PaymentIntentID string `json:"paymentIntentId"`
}

// QuoteRequest is the body of POST /api/quote.
type QuoteRequest struct {
	Destination string `json:"destination"`
	Days        int    `json:"days"`
	Adults      int    `json:"adults"`
	Children    int    `json:"children"`
	Currency    string `json:"currency"`
}

// Booking status values.
const (
	BookingPaid = "paid"
)

// Booking is stored once a payment has been confirmed by the payment provider.
type Booking struct {
	ID              string    `json:"id"`
	PaymentIntentID string    `json:"paymentIntentId"`
	Destination     string    `json:"destination,omitempty"`
	PlanName        string    `json:"planName"`
	Days            int       `json:"days"`
	Adults          int       `json:"adults"`
	Children        int       `json:"children"`
	Passengers      int       `json:"passengers"`
	TravelDate      string    `json:"travelDate"`
	AmountCents     int64     `json:"amountCents"`
	Currency        string    `json:"currency"`
	DisplayCurrency string    `json:"displayCurrency"`
	Language        string    `json:"language"`
	Status          string    `json:"status"`
	Customer        Customer  `json:"customer"`
	CreatedAt       time.Time `json:"createdAt"`
}
