package interpreter

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/NotCoffee418/p1_telemetry/pkg/types"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const writeTimeout = 5 * time.Second

func NewHub(stats StatsSource, logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // Local network feed
			},
		},
		stats:   stats,
		logger:  logger,
		clients: make(map[*client]bool),
	}
}

// Broadcast stores reading as the latest and sends it to every client.
// Clients that fail to receive it are dropped.
func (h *Hub) Broadcast(reading types.MeterReading) {
	h.mu.Lock()
	h.latest = &reading
	clients := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	msg := reading.ToJsonBytes()
	for _, c := range clients {
		if err := c.send(msg); err != nil {
			h.logger.Debug("dropping websocket client", zap.Error(err))
			h.remove(c)
		}
	}
}

func (h *Hub) Latest() (types.MeterReading, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.latest == nil {
		return types.MeterReading{}, false
	}
	return *h.latest, true
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Handler serves /, /latest, /stats and /ws.
func (h *Hub) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", h.serveStatus)
	mux.HandleFunc("/latest", h.serveLatest)
	mux.HandleFunc("/stats", h.serveStats)
	mux.HandleFunc("/ws", h.ServeWS)
	return mux
}

func (h *Hub) serveStatus(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"message": "P1 Telemetry Interpreter API",
		"status":  "running",
	})
}

func (h *Hub) serveLatest(w http.ResponseWriter, r *http.Request) {
	reading, ok := h.Latest()
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{
			"error": "No readings available yet",
		})
		return
	}
	writeJSON(w, http.StatusOK, reading)
}

func (h *Hub) serveStats(w http.ResponseWriter, r *http.Request) {
	if h.stats == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "no statistics available"})
		return
	}
	writeJSON(w, http.StatusOK, h.stats.Snapshot())
}

// ServeWS upgrades the request and keeps the client until it disconnects.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade error", zap.Error(err))
		return
	}
	c := &client{conn: conn}

	// Send current reading immediately if available
	if reading, ok := h.Latest(); ok {
		if err := c.send(reading.ToJsonBytes()); err != nil {
			conn.Close()
			return
		}
	}
	h.add(c)
	h.logger.Debug("websocket client connected", zap.String("remote", r.RemoteAddr))

	// Keep connection alive
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			h.remove(c)
			return
		}
	}
}

func (h *Hub) add(c *client) {
	h.mu.Lock()
	h.clients[c] = true
	h.mu.Unlock()
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
	c.conn.Close()
}

func (c *client) send(msg []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return c.conn.WriteMessage(websocket.TextMessage, msg)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
