package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/vpoguide/backend/internal/domain"
	"github.com/vpoguide/backend/internal/repository"
)

type AdminHandler struct {
	bookings repository.BookingRepository
}

func NewAdminHandler(bookings repository.BookingRepository) *AdminHandler {
	return &AdminHandler{bookings: bookings}
}

// ListBookings handles GET /api/admin/bookings?limit=.
func (h *AdminHandler) ListBookings(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			Error(w, domain.ErrBadRequest("limit must be a positive integer"))
			return
		}
		limit = n
	}

	list, err := h.bookings.List(r.Context(), limit)
	if err != nil {
		Error(w, domain.ErrInternal("failed to list bookings", err))
		return
	}
	if list == nil {
		list = []domain.Booking{}
	}
	JSON(w, http.StatusOK, list)
}

// GetBooking handles GET /api/admin/bookings/{id}, id being the PaymentIntent.
func (h *AdminHandler) GetBooking(w http.ResponseWriter, r *http.Request) {
	b, err := h.bookings.FindByPaymentIntent(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		Error(w, domain.ErrInternal("failed to load booking", err))
		return
	}
	if b == nil {
		Error(w, domain.ErrNotFound("booking not found"))
		return
	}
	JSON(w, http.StatusOK, b)
}

// GetStats returns booking totals over the most recent bookings.
func (h *AdminHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	list, err := h.bookings.List(r.Context(), repository.MaxListLimit)
	if err != nil {
		Error(w, domain.ErrInternal("failed to list bookings", err))
		return
	}

	var revenueCents int64
	var passengers int
	byDestination := make(map[string]int)
	for _, b := range list {
		revenueCents += b.AmountCents
		passengers += b.Passengers
		byDestination[b.Destination]++
	}

	JSON(w, http.StatusOK, map[string]interface{}{
		"bookings":      len(list),
		"revenueCents":  revenueCents,
		"passengers":    passengers,
		"byDestination": byDestination,
	})
}
