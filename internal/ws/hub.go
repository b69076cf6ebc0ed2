package ws

import (
	"sync"
	"time"
)

// Payment status values pushed to the browser.
const (
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
)

// Status is a payment state change for one PaymentIntent.
type Status struct {
	PaymentIntentID string `json:"paymentIntentId"`
	Status          string `json:"status"`
	Message         string `json:"message,omitempty"`
}

type retained struct {
	status Status
	at     time.Time
}

// Hub fans payment status updates out to the browsers waiting on them. The
// latest status per PaymentIntent is retained for a while so a page that
// subscribes after the webhook still gets the answer.
type Hub struct {
	mu        sync.Mutex
	subs      map[string]map[chan Status]struct{}
	last      map[string]retained
	retention time.Duration
	now       func() time.Time
}

func NewHub(retention time.Duration) *Hub {
	return &Hub{
		subs:      make(map[string]map[chan Status]struct{}),
		last:      make(map[string]retained),
		retention: retention,
		now:       time.Now,
	}
}

// Subscribe returns a channel receiving updates for id, primed with the
// retained status if there is one. cancel must be called when done.
func (h *Hub) Subscribe(id string) (<-chan Status, func()) {
	ch := make(chan Status, 4)

	h.mu.Lock()
	if r, ok := h.last[id]; ok && h.now().Sub(r.at) < h.retention {
		ch <- r.status
	}
	if h.subs[id] == nil {
		h.subs[id] = make(map[chan Status]struct{})
	}
	h.subs[id][ch] = struct{}{}
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if set, ok := h.subs[id]; ok {
			delete(set, ch)
			if len(set) == 0 {
				delete(h.subs, id)
			}
		}
	}
	return ch, cancel
}

// Publish delivers s to current subscribers without blocking.
func (h *Hub) Publish(s Status) {
	h.mu.Lock()
	defer h.mu.Unlock()

	now := h.now()
	h.last[s.PaymentIntentID] = retained{status: s, at: now}
	for id, r := range h.last {
		if now.Sub(r.at) >= h.retention {
			delete(h.last, id)
		}
	}
	for ch := range h.subs[s.PaymentIntentID] {
		select {
		case ch <- s:
		default:
		}
	}
}

// Subscribers returns the number of open subscriptions for id.
func (h *Hub) Subscribers(id string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[id])
}
