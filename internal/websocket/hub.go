package websocket

import (
	"context"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/raaihank/lgpd-sentinel/internal/config"
	"github.com/raaihank/lgpd-sentinel/internal/logger"
	"go.uber.org/zap"
)

// HubConfig contains configuration for the WebSocket hub
type HubConfig struct {
	BroadcastSubmissions     bool
	BroadcastClassifications bool
	BroadcastSystem          bool
	BroadcastConnections     bool
	MaxConnections           int
	ReadBufferSize           int
	WriteBufferSize          int
	PingInterval             time.Duration
	PongTimeout              time.Duration
	WriteTimeout             time.Duration
	MaxMessageSize           int64
	AllowedOrigins           []string

	// Authorize decides whether a connection may be upgraded. nil allows all.
	Authorize func(*http.Request) bool
}

// HubConfigFromConfig maps the websocket section of the server configuration
func HubConfigFromConfig(cfg config.WebSocketConfig) *HubConfig {
	return &HubConfig{
		BroadcastSubmissions:     cfg.Events.BroadcastSubmissions,
		BroadcastClassifications: cfg.Events.BroadcastClassifications,
		BroadcastSystem:          cfg.Events.BroadcastSystem,
		BroadcastConnections:     cfg.Events.BroadcastConnections,
		MaxConnections:           cfg.MaxConnections,
		ReadBufferSize:           cfg.ReadBufferSize,
		WriteBufferSize:          cfg.WriteBufferSize,
		PingInterval:             cfg.PingInterval,
		PongTimeout:              cfg.PongTimeout,
		WriteTimeout:             cfg.WriteTimeout,
		MaxMessageSize:           cfg.MaxMessageSize,
		AllowedOrigins:           cfg.AllowedOrigins,
	}
}

// Hub maintains the set of active clients and broadcasts events to them
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan Event
	register   chan *Client
	unregister chan *Client
	done       chan struct{}

	config   *HubConfig
	upgrader websocket.Upgrader
	logger   *logger.Logger

	mu    sync.RWMutex
	stats HubStats
}

// HubStats tracks WebSocket hub statistics
type HubStats struct {
	TotalConnections   int64     `json:"total_connections"`
	ActiveConnections  int64     `json:"active_connections"`
	TotalMessages      int64     `json:"total_messages"`
	TotalBroadcasts    int64     `json:"total_broadcasts"`
	DroppedEvents      int64     `json:"dropped_events"`
	LastConnectionTime time.Time `json:"last_connection_time"`
	LastBroadcastTime  time.Time `json:"last_broadcast_time"`
}

// NewHub creates a new WebSocket hub
func NewHub(cfg *HubConfig, log *logger.Logger) *Hub {
	if cfg == nil {
		cfg = &HubConfig{}
	}
	if cfg.PongTimeout <= 0 {
		cfg.PongTimeout = 60 * time.Second
	}
	if cfg.PingInterval <= 0 || cfg.PingInterval >= cfg.PongTimeout {
		cfg.PingInterval = (cfg.PongTimeout * 9) / 10
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 10 * time.Second
	}
	if cfg.MaxMessageSize <= 0 {
		cfg.MaxMessageSize = 512
	}
	if log == nil {
		log = logger.NewNop()
	}

	h := &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan Event, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		config:     cfg,
		logger:     log.WithComponent("websocket"),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  cfg.ReadBufferSize,
		WriteBufferSize: cfg.WriteBufferSize,
		CheckOrigin:     h.checkOrigin,
	}
	return h
}

// Run handles registration and broadcasting until ctx is done
func (h *Hub) Run(ctx context.Context) {
	h.logger.Info("Starting WebSocket hub")
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return

		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case event := <-h.broadcast:
			h.broadcastEvent(event, nil)
		}
	}
}

func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	h.clients[client] = true
	h.stats.TotalConnections++
	h.stats.ActiveConnections = int64(len(h.clients))
	h.stats.LastConnectionTime = time.Now()
	active := h.stats.ActiveConnections
	h.mu.Unlock()

	h.logger.Info("Client connected",
		zap.String("client_id", client.ID),
		zap.String("client_ip", client.IP),
		zap.Int64("active_connections", active),
	)

	if h.config.BroadcastConnections {
		h.broadcastEvent(connectionEvent("connected", client), client)
	}
}

func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	_, ok := h.clients[client]
	if ok {
		delete(h.clients, client)
		close(client.Send)
		h.stats.ActiveConnections = int64(len(h.clients))
	}
	h.mu.Unlock()

	if !ok {
		return
	}

	h.logger.Info("Client disconnected", zap.String("client_id", client.ID))
	if h.config.BroadcastConnections {
		h.broadcastEvent(connectionEvent("disconnected", client), nil)
	}
}

// broadcastEvent delivers to every subscribed client except skip. Clients
// whose send buffer is full are dropped.
func (h *Hub) broadcastEvent(event Event, skip *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.stats.TotalBroadcasts++
	h.stats.LastBroadcastTime = time.Now()

	for client := range h.clients {
		if client == skip || !client.wants(event.Type) {
			continue
		}
		select {
		case client.Send <- event:
			h.stats.TotalMessages++
		default:
			h.logger.Warn("Client send channel full, closing connection", zap.String("client_id", client.ID))
			delete(h.clients, client)
			close(client.Send)
		}
	}
	h.stats.ActiveConnections = int64(len(h.clients))
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for client := range h.clients {
		delete(h.clients, client)
		close(client.Send)
	}
	h.stats.ActiveConnections = 0
}

// BroadcastEvent queues an event if its type is enabled. It never blocks.
func (h *Hub) BroadcastEvent(event Event) {
	if !h.shouldBroadcastEvent(event.Type) {
		return
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	select {
	case h.broadcast <- event:
	default:
		h.mu.Lock()
		h.stats.DroppedEvents++
		h.mu.Unlock()
		h.logger.Warn("Broadcast channel full, dropping event", zap.String("event_type", string(event.Type)))
	}
}

// Publish is BroadcastEvent for a bare payload
func (h *Hub) Publish(eventType EventType, data any) {
	h.BroadcastEvent(Event{Type: eventType, Data: data})
}

func (h *Hub) shouldBroadcastEvent(eventType EventType) bool {
	switch eventType {
	case EventTypeSubmission:
		return h.config.BroadcastSubmissions
	case EventTypeClassification:
		return h.config.BroadcastClassifications
	case EventTypeSystemStatus, EventTypeConfigUpdated:
		return h.config.BroadcastSystem
	case EventTypeConnection:
		return h.config.BroadcastConnections
	default:
		return false
	}
}

// HandleWebSocket upgrades the connection and starts the client pumps
func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	if h.config.Authorize != nil && !h.config.Authorize(r) {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	if h.config.MaxConnections > 0 && h.ClientCount() >= h.config.MaxConnections {
		http.Error(w, "Too many connections", http.StatusServiceUnavailable)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("Failed to upgrade WebSocket connection", zap.Error(err))
		return
	}

	client := &Client{
		ID:          uuid.NewString(),
		Conn:        conn,
		Send:        make(chan Event, 256),
		ConnectedAt: time.Now(),
		IP:          ClientIP(r),
	}

	select {
	case h.register <- client:
	case <-h.done:
		conn.Close()
		return
	}

	go h.handleClientWrite(client)
	go h.handleClientRead(client)
}

func (h *Hub) handleClientWrite(client *Client) {
	ticker := time.NewTicker(h.config.PingInterval)
	defer func() {
		ticker.Stop()
		client.Conn.Close()
	}()

	for {
		select {
		case event, ok := <-client.Send:
			client.Conn.SetWriteDeadline(time.Now().Add(h.config.WriteTimeout))
			if !ok {
				client.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := client.Conn.WriteJSON(event); err != nil {
				h.logger.Debug("Failed to write WebSocket message", zap.String("client_id", client.ID), zap.Error(err))
				return
			}

		case <-ticker.C:
			client.Conn.SetWriteDeadline(time.Now().Add(h.config.WriteTimeout))
			if err := client.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (h *Hub) handleClientRead(client *Client) {
	defer func() {
		select {
		case h.unregister <- client:
		case <-h.done:
		}
		client.Conn.Close()
	}()

	conn := client.Conn
	conn.SetReadLimit(h.config.MaxMessageSize)
	conn.SetReadDeadline(time.Now().Add(h.config.PongTimeout))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(h.config.PongTimeout))
		return nil
	})

	for {
		var msg ClientMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.logger.Warn("WebSocket error", zap.String("client_id", client.ID), zap.Error(err))
			}
			return
		}
		h.handleClientMessage(client, msg)
	}
}

func (h *Hub) handleClientMessage(client *Client, msg ClientMessage) {
	switch msg.Type {
	case "subscribe":
		subs := make(map[EventType]bool, len(msg.Events))
		for _, e := range msg.Events {
			subs[e] = true
		}
		h.mu.Lock()
		client.subscribed = subs
		h.mu.Unlock()
		h.logger.Debug("Client subscription updated", zap.String("client_id", client.ID), zap.Int("events", len(subs)))
	case "ping":
		h.mu.RLock()
		defer h.mu.RUnlock()
		if !h.clients[client] {
			return
		}
		select {
		case client.Send <- Event{Type: EventTypePong, Timestamp: time.Now().UTC(), Data: map[string]string{"message": "pong"}}:
		default:
		}
	}
}

// wants is called with the hub lock held
func (c *Client) wants(t EventType) bool {
	if c.subscribed == nil || t == EventTypePong {
		return true
	}
	return c.subscribed[t]
}

// GetStats returns current hub statistics
func (h *Hub) GetStats() HubStats {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.stats
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || len(h.config.AllowedOrigins) == 0 {
		return true
	}
	for _, allowed := range h.config.AllowedOrigins {
		if allowed == "*" || strings.EqualFold(allowed, origin) {
			return true
		}
	}
	return false
}

func connectionEvent(action string, client *Client) Event {
	return Event{
		Type:      EventTypeConnection,
		Timestamp: time.Now().UTC(),
		Data: ConnectionEvent{
			Action:   action,
			ClientID: client.ID,
			ClientIP: client.IP,
		},
	}
}

// ClientIP extracts the client IP from the request, honoring proxy headers
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		return strings.TrimSpace(strings.Split(xff, ",")[0])
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
