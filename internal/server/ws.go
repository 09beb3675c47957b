package server

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/ayusman/markerpad/internal/intent"
	"github.com/ayusman/markerpad/internal/metrics"
)

const writeWait = 5 * time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow local connections
	},
}

// EventSource provides key events as they are sent.
type EventSource interface {
	SubscribeEvents() (<-chan intent.Event, func())
}

// EventsHandler pushes key events to WebSocket clients as JSON text
// messages.
type EventsHandler struct {
	events  EventSource
	metrics *metrics.Metrics
	log     zerolog.Logger
}

// NewEventsHandler creates a new EventsHandler. m may be nil.
func NewEventsHandler(events EventSource, m *metrics.Metrics, log zerolog.Logger) *EventsHandler {
	return &EventsHandler{events: events, metrics: m, log: log}
}

// ServeHTTP handles WebSocket upgrade requests.
func (h *EventsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Debug().Err(err).Msg("websocket upgrade")
		return
	}
	defer conn.Close()

	events, unsubscribe := h.events.SubscribeEvents()
	defer unsubscribe()

	if h.metrics != nil {
		h.metrics.EventClients.Add(1)
		defer h.metrics.EventClients.Add(-1)
	}

	// Clients never send anything; reading detects the close.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-gone:
			return
		case e, ok := <-events:
			if !ok {
				conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "tracking stopped"),
					time.Now().Add(writeWait))
				return
			}
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(e); err != nil {
				h.log.Debug().Err(err).Msg("websocket write")
				return
			}
		}
	}
}
