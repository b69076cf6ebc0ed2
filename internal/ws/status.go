package ws

import (
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // CORS is handled at the HTTP level
	},
}

const writeWait = 5 * time.Second

// StatusHandler streams the outcome of a payment to the success page.
// URL: /api/payments/{id}/events
type StatusHandler struct {
	hub     *Hub
	maxWait time.Duration
}

func NewStatusHandler(hub *Hub, maxWait time.Duration) *StatusHandler {
	return &StatusHandler{hub: hub, maxWait: maxWait}
}

// Handle upgrades to WebSocket and sends status updates until the payment
// reaches a final state, the client leaves, or maxWait elapses.
func (h *StatusHandler) Handle(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	if !strings.HasPrefix(id, "pi_") {
		http.Error(w, "invalid payment intent id", http.StatusBadRequest)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	updates, cancel := h.hub.Subscribe(id)
	defer cancel()

	// Reader goroutine: detects client close.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	timeout := time.NewTimer(h.maxWait)
	defer timeout.Stop()

	for {
		select {
		case s := <-updates:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(s); err != nil {
				return
			}
			if s.Status == StatusSucceeded || s.Status == StatusFailed {
				closeNormal(conn, "done")
				return
			}
		case <-timeout.C:
			closeNormal(conn, "timeout")
			return
		case <-gone:
			return
		}
	}
}

func closeNormal(conn *websocket.Conn, reason string) {
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, reason)
	_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
}
