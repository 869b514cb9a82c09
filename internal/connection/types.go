package connection

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// Errors
var (
	ErrNotConnected  = errors.New("not connected")
	ErrAlreadyClosed = errors.New("already closed")
	ErrHandshake     = errors.New("engine.io handshake failed")
	ErrNotStarted    = errors.New("manager not started")
)

// Disconnect reasons, named as socket.io clients report them.
const (
	ReasonServerDisconnect = "io server disconnect"
	ReasonClientDisconnect = "io client disconnect"
	ReasonPingTimeout      = "ping timeout"
	ReasonTransportClose   = "transport close"
	ReasonTransportError   = "transport error"
	ReasonParseError       = "parse error"

	// ReasonConnectError marks a namespace connect refused by the server.
	// The socket stays open but carries no events.
	ReasonConnectError = "connect error"
)

// TimestampedMessage wraps a socket.io packet with its receive timestamp.
type TimestampedMessage struct {
	Data       []byte    // socket.io packet, Engine.IO framing removed
	ReceivedAt time.Time // Local timestamp when ReadMessage() returned
}

// RawMessage is a message from the Manager to the Message Router.
type RawMessage struct {
	Data       []byte    // socket.io packet; empty for disconnects
	SessionID  uuid.UUID // Session the packet arrived on
	ReceivedAt time.Time
	Disconnect string // Non-empty when the session was lost
}

// Handshake is the Engine.IO open packet payload.
type Handshake struct {
	SID          string   `json:"sid"`
	Upgrades     []string `json:"upgrades"`
	PingInterval int64    `json:"pingInterval"` // Milliseconds
	PingTimeout  int64    `json:"pingTimeout"`  // Milliseconds
	MaxPayload   int64    `json:"maxPayload"`
}

// ClientConfig configures a stream client.
type ClientConfig struct {
	URL              string        // Full websocket URL including path and Engine.IO query
	Header           http.Header   // Handshake headers (User-agent)
	PingTimeout      time.Duration // Max silence between server pings when the handshake does not say
	WriteTimeout     time.Duration // Write deadline for sends
	HandshakeTimeout time.Duration // Dial and open-packet deadline
	BufferSize       int           // Message channel buffer size
}

// DefaultClientConfig returns sensible defaults.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		PingTimeout:      60 * time.Second,
		WriteTimeout:     5 * time.Second,
		HandshakeTimeout: 10 * time.Second,
		BufferSize:       1000,
	}
}

// ManagerConfig configures the Manager.
type ManagerConfig struct {
	WSURL             string // Websocket origin, e.g. wss://trade.csgoempire.com
	WSPath            string // Engine.IO path, e.g. /s/
	PingTimeout       time.Duration
	WriteTimeout      time.Duration
	BufferSize        int // Per-client message buffer
	MessageBufferSize int // Output channel buffer
}

// DefaultManagerConfig returns sensible defaults.
func DefaultManagerConfig() ManagerConfig {
	return ManagerConfig{
		WSPath:            "/s/",
		PingTimeout:       60 * time.Second,
		WriteTimeout:      5 * time.Second,
		BufferSize:        1000,
		MessageBufferSize: 1000,
	}
}

// ManagerStats provides statistics about the connection manager.
type ManagerStats struct {
	Connected bool
	SessionID uuid.UUID
	Sessions  int // Sessions opened since start
}
