package handler

import (
	"net/http"

	"github.com/vpoguide/backend/internal/domain"
	"github.com/vpoguide/backend/internal/service"
)

const maxCheckoutBody = 64 << 10

type PaymentHandler struct {
	svc *service.PaymentService
}

func NewPaymentHandler(svc *service.PaymentService) *PaymentHandler {
	return &PaymentHandler{svc: svc}
}

// StripeKey handles GET /api/stripe-key.
func (h *PaymentHandler) StripeKey(w http.ResponseWriter, r *http.Request) {
	key, err := h.svc.PublishableKey()
	if err != nil {
		Error(w, err)
		return
	}
	JSON(w, http.StatusOK, map[string]string{"publishableKey": key})
}

// CreatePaymentIntent handles POST /api/create-payment-intent.
func (h *PaymentHandler) CreatePaymentIntent(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxCheckoutBody)

	var req domain.CreatePaymentIntentRequest
	if err := DecodeJSON(r, &req); err != nil {
		Error(w, err)
		return
	}

	resp, err := h.svc.CreatePaymentIntent(r.Context(), &req, r.Header.Get("Idempotency-Key"))
	if err != nil {
		Error(w, err)
		return
	}

	JSON(w, http.StatusOK, resp)
}

// Quote handles POST /api/quote.
func (h *PaymentHandler) Quote(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxCheckoutBody)

	var req domain.QuoteRequest
	if err := DecodeJSON(r, &req); err != nil {
		Error(w, err)
		return
	}

	q, err := h.svc.Quote(&req)
	if err != nil {
		Error(w, err)
		return
	}

	JSON(w, http.StatusOK, q)
}
