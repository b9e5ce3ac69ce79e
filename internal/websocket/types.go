package websocket

import (
	"time"

	"github.com/gorilla/websocket"
)

// EventType represents the type of WebSocket event
type EventType string

const (
	// EventTypeSubmission is sent when a manifestation is logged
	EventTypeSubmission EventType = "submission_logged"
	// EventTypeClassification is sent after a classification or privacy analysis
	EventTypeClassification EventType = "classification"
	// EventTypeConfigUpdated is sent when the system configuration changes
	EventTypeConfigUpdated EventType = "config_updated"
	// EventTypeSystemStatus represents a system status event
	EventTypeSystemStatus EventType = "system_status"
	// EventTypeConnection represents connection events
	EventTypeConnection EventType = "connection"
	// EventTypePong answers a client ping
	EventTypePong EventType = "pong"
)

// Event represents a WebSocket event sent to clients
type Event struct {
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data"`
	RequestID string    `json:"request_id,omitempty"`
}

// SubmissionEvent describes a new log row. The text itself is never broadcast.
type SubmissionEvent struct {
	ID       string `json:"id"`
	Type     string `json:"type"`
	Category string `json:"category"`
	Privacy  string `json:"privacy"`
}

// ClassificationEvent summarizes one analysis
type ClassificationEvent struct {
	Endpoint    string   `json:"endpoint"`
	CategoryID  string   `json:"category_id,omitempty"`
	Privacy     string   `json:"privacy"`
	Macro       string   `json:"macro_category"`
	DetectedPII []string `json:"detected_pii"`
	Source      string   `json:"source"`
	DurationMS  float64  `json:"duration_ms"`
}

// ConfigUpdatedEvent names who changed the configuration
type ConfigUpdatedEvent struct {
	Origin          string   `json:"origin"` // api or file
	LLMProvider     string   `json:"llm_provider"`
	EnabledPIITypes []string `json:"enabled_pii_types"`
}

// SystemStatusEvent represents system status information
type SystemStatusEvent struct {
	Status           string `json:"status"`
	Uptime           string `json:"uptime"`
	TotalSubmissions int    `json:"total_submissions"`
	ConnectedClients int    `json:"connected_clients"`
}

// ConnectionEvent represents WebSocket connection events
type ConnectionEvent struct {
	Action   string `json:"action"` // "connected", "disconnected"
	ClientID string `json:"client_id"`
	ClientIP string `json:"client_ip"`
}

// ClientMessage represents messages sent from clients to server
type ClientMessage struct {
	Type   string      `json:"type"`
	Events []EventType `json:"events,omitempty"`
}

// Client represents a WebSocket client connection
type Client struct {
	ID          string
	Conn        *websocket.Conn
	Send        chan Event
	ConnectedAt time.Time
	IP          string

	// nil means every event
	subscribed map[EventType]bool
}
