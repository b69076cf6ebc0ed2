package handler

import (
	"io"
	"net/http"

	"github.com/vpoguide/backend/internal/domain"
	"github.com/vpoguide/backend/internal/logutil"
	"github.com/vpoguide/backend/internal/service"
	"github.com/vpoguide/backend/pkg/payment"
)

const maxWebhookBody = 1 << 20

type WebhookHandler struct {
	gateway payment.Gateway
	success *service.SuccessHandler
}

func NewWebhookHandler(gateway payment.Gateway, success *service.SuccessHandler) *WebhookHandler {
	return &WebhookHandler{
		gateway: gateway,
		success: success,
	}
}

// HandlePayment handles POST /api/webhook. The body must be read raw: the
// signature covers the exact bytes sent by the provider.
func (h *WebhookHandler) HandlePayment(w http.ResponseWriter, r *http.Request) {
	if h.gateway == nil {
		Error(w, domain.ErrConfiguration("Stripe webhook"))
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBody))
	if err != nil {
		Error(w, domain.ErrBadRequest("failed to read body"))
		return
	}

	evt, err := h.gateway.ParseWebhook(body, signatureHeader(r))
	if err != nil {
		logutil.EventCtx(r.Context(), "webhook", "rejected", "gateway", h.gateway.Name(), "error", err)
		Error(w, domain.ErrSignature(err))
		return
	}

	logutil.EventCtx(r.Context(), "webhook", "received", "event", evt.ID, "type", evt.Type)
	h.success.HandleEvent(r.Context(), evt)

	JSON(w, http.StatusOK, map[string]bool{"received": true})
}

// signatureHeader prefers the provider's header and falls back to the HMAC
// header used by the mock gateway.
func signatureHeader(r *http.Request) string {
	if sig := r.Header.Get("Stripe-Signature"); sig != "" {
		return sig
	}
	if sig := r.Header.Get("X-Signature-256"); sig != "" {
		return sig
	}
	return r.Header.Get("X-Hub-Signature-256")
}
