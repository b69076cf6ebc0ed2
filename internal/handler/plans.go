package handler

import (
	"net/http"

	"github.com/vpoguide/backend/internal/domain"
	"github.com/vpoguide/backend/internal/pricing"
	"github.com/vpoguide/backend/internal/service"
)

// PlansHandler handles plan-related endpoints.
type PlansHandler struct {
	svc *service.PaymentService
}

// NewPlansHandler creates a new PlansHandler.
func NewPlansHandler(svc *service.PaymentService) *PlansHandler {
	return &PlansHandler{svc: svc}
}

// List handles GET /api/plans?destination=&currency=.
func (h *PlansHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	cards, err := h.svc.Plans(q.Get("destination"), q.Get("currency"))
	if err != nil {
		Error(w, err)
		return
	}
	JSON(w, http.StatusOK, cards)
}

// Catalogue handles GET /api/catalogue: destinations and display currencies.
func (h *PlansHandler) Catalogue(w http.ResponseWriter, r *http.Request) {
	JSON(w, http.StatusOK, map[string]interface{}{
		"destinations": domain.AvailableDestinations(),
		"currencies":   pricing.Currencies(),
		"groupSize":    pricing.GroupSize,
	})
}
