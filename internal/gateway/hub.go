package gateway

import (
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"sync"

	"chartengine/internal/metrics"
	"chartengine/internal/model"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin:       func(r *http.Request) bool { return true },
	EnableCompression: true,
}

// Hub fans freshly ingested bars out to WebSocket clients. Clients may
// restrict delivery to a set of symbols; with no subscription they receive
// everything.
type Hub struct {
	Metrics *metrics.Metrics

	mu      sync.RWMutex
	clients map[*Client]bool
}

// NewHub creates a Hub.
func NewHub(m *metrics.Metrics) *Hub {
	return &Hub{
		Metrics: m,
		clients: make(map[*Client]bool),
	}
}

// HandleWS registers a freshly upgraded connection. symbolsParam is a
// comma-separated initial subscription list; empty means all symbols.
func (h *Hub) HandleWS(conn *websocket.Conn, symbolsParam string) {
	client := &Client{
		conn: conn,
		send: make(chan []byte, 256),
		hub:  h,
		subs: make(map[string]bool),
	}
	for _, s := range strings.Split(symbolsParam, ",") {
		if s = strings.TrimSpace(s); s != "" {
			client.subs[strings.ToUpper(s)] = true
		}
	}

	conn.EnableWriteCompression(true)

	h.mu.Lock()
	h.clients[client] = true
	count := len(h.clients)
	h.mu.Unlock()

	if h.Metrics != nil {
		h.Metrics.WSClients.Set(float64(count))
	}
	log.Printf("[gateway] ws client connected (%d total)", count)

	go client.writePump()
	go client.readPump()
}

// RemoveClient removes a client from the hub.
func (h *Hub) RemoveClient(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	count := len(h.clients)
	h.mu.Unlock()

	if h.Metrics != nil {
		h.Metrics.WSClients.Set(float64(count))
	}
}

// ClientCount returns the number of connected WS clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// BroadcastBars delivers an ingest batch to every subscribed client.
// Slow clients are skipped, never blocked on.
func (h *Hub) BroadcastBars(symbol string, bars []model.PriceBar) {
	envelope, err := json.Marshal(BarUpdate{Type: "bars", Symbol: symbol, Bars: bars})
	if err != nil {
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.clients {
		if !client.wantsSymbol(symbol) {
			continue
		}
		select {
		case client.send <- envelope:
			if h.Metrics != nil {
				h.Metrics.WSBroadcasts.Inc()
			}
		default:
			if h.Metrics != nil {
				h.Metrics.WSDropped.Inc()
			}
		}
	}
}
