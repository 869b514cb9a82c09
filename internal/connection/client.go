package connection

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Client represents a single socket.io session with the marketplace.
// A Client is not reusable: after it is closed or lost, create a new one.
type Client interface {
	// Connect dials, completes the Engine.IO handshake and requests the
	// socket.io connection to the default namespace.
	Connect(ctx context.Context) error

	// Close gracefully closes the connection. No disconnect is reported.
	Close() error

	// Send writes a raw Engine.IO frame.
	Send(data []byte) error

	// Emit sends a socket.io event.
	Emit(event string, payload any) error

	// Messages returns a channel of socket.io packets.
	Messages() <-chan TimestampedMessage

	// Disconnects delivers the reason the session was lost, at most once.
	Disconnects() <-chan string

	// IsConnected returns current connection state.
	IsConnected() bool
}

// client implements the Client interface.
type client struct {
	cfg    ClientConfig
	logger *slog.Logger

	conn *websocket.Conn

	// Output channels
	messages    chan TimestampedMessage
	disconnects chan string
	done        chan struct{}
	doneOnce    sync.Once

	// Write serialization
	writeMu sync.Mutex

	// State
	mu          sync.RWMutex
	connected   bool
	closed      bool
	lost        bool
	lastPingAt  time.Time
	pingTimeout time.Duration
}

// NewClient creates a new stream client.
func NewClient(cfg ClientConfig, logger *slog.Logger) Client {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.BufferSize < 1 {
		cfg.BufferSize = 1
	}

	return &client{
		cfg:         cfg,
		logger:      logger,
		messages:    make(chan TimestampedMessage, cfg.BufferSize),
		disconnects: make(chan string, 1),
		done:        make(chan struct{}),
	}
}

// Connect establishes the connection.
func (c *client) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.closed || c.lost {
		c.mu.Unlock()
		return ErrAlreadyClosed
	}
	c.mu.Unlock()

	dialer := websocket.Dialer{
		HandshakeTimeout: c.cfg.HandshakeTimeout,
	}

	conn, _, err := dialer.DialContext(ctx, c.cfg.URL, c.cfg.Header)
	if err != nil {
		return err
	}

	// The first frame must be the Engine.IO open packet.
	if c.cfg.HandshakeTimeout > 0 {
		conn.SetReadDeadline(time.Now().Add(c.cfg.HandshakeTimeout))
	}
	_, data, err := conn.ReadMessage()
	if err != nil {
		conn.Close()
		return errors.Join(ErrHandshake, err)
	}
	hs, err := parseHandshake(data)
	if err != nil {
		conn.Close()
		return err
	}
	conn.SetReadDeadline(time.Time{})

	// socket.io connect to the default namespace.
	conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout))
	if err := conn.WriteMessage(websocket.TextMessage, []byte{eioMessage, PacketConnect}); err != nil {
		conn.Close()
		return err
	}

	pingTimeout := c.cfg.PingTimeout
	if hs.PingInterval > 0 || hs.PingTimeout > 0 {
		pingTimeout = time.Duration(hs.PingInterval+hs.PingTimeout) * time.Millisecond
	}

	c.mu.Lock()
	c.conn = conn
	c.connected = true
	c.lastPingAt = time.Now()
	c.pingTimeout = pingTimeout
	c.mu.Unlock()

	go c.readLoop()
	go c.heartbeatLoop()

	c.logger.Debug("stream connected",
		"url", c.cfg.URL,
		"sid", hs.SID,
		"ping_timeout", pingTimeout,
	)

	return nil
}

// Close gracefully closes the connection.
func (c *client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	wasConnected := c.connected
	c.closed = true
	c.connected = false
	conn := c.conn
	c.mu.Unlock()

	// Signal goroutines to stop
	c.stop()

	if conn == nil {
		return nil
	}
	if !wasConnected {
		conn.Close()
		return nil
	}

	// socket.io disconnect, then websocket close
	c.writeMu.Lock()
	conn.SetWriteDeadline(time.Now().Add(time.Second))
	conn.WriteMessage(websocket.TextMessage, []byte{eioMessage, PacketDisconnect})
	c.writeMu.Unlock()

	conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second),
	)
	return conn.Close()
}

// Send writes a raw frame to the connection.
func (c *client) Send(data []byte) error {
	c.mu.RLock()
	if !c.connected {
		c.mu.RUnlock()
		return ErrNotConnected
	}
	conn := c.conn
	c.mu.RUnlock()

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout))
	return conn.WriteMessage(websocket.TextMessage, data)
}

// Emit sends a socket.io event.
func (c *client) Emit(event string, payload any) error {
	frame, err := EncodeEvent(event, payload)
	if err != nil {
		return err
	}
	return c.Send(frame)
}

// Messages returns the messages channel.
func (c *client) Messages() <-chan TimestampedMessage {
	return c.messages
}

// Disconnects returns the disconnect channel.
func (c *client) Disconnects() <-chan string {
	return c.disconnects
}

// IsConnected returns the current connection state.
func (c *client) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected
}

func (c *client) stop() {
	c.doneOnce.Do(func() { close(c.done) })
}

// lose marks the session lost and reports reason, unless Close got there
// first.
func (c *client) lose(reason string) {
	c.mu.Lock()
	if c.closed || c.lost {
		c.mu.Unlock()
		return
	}
	c.lost = true
	c.connected = false
	conn := c.conn
	c.mu.Unlock()

	c.stop()
	if conn != nil {
		conn.Close()
	}

	c.logger.Debug("stream lost", "reason", reason)
	c.disconnects <- reason
}

// readLoop reads frames, answers pings and forwards socket.io packets.
func (c *client) readLoop() {
	for {
		_, data, err := c.conn.ReadMessage()
		receivedAt := time.Now() // Capture timestamp immediately

		if err != nil {
			select {
			case <-c.done:
				// Closed or already lost.
				return
			default:
			}
			c.lose(readErrorReason(err))
			return
		}

		if len(data) == 0 {
			continue
		}

		switch data[0] {
		case eioPing:
			c.mu.Lock()
			c.lastPingAt = receivedAt
			c.mu.Unlock()
			if err := c.Send([]byte{eioPong}); err != nil {
				c.logger.Debug("failed to send pong", "error", err)
			}

		case eioMessage:
			packet := data[1:]
			if len(packet) == 0 {
				continue
			}
			if packet[0] == PacketDisconnect {
				c.lose(ReasonServerDisconnect)
				return
			}

			msg := TimestampedMessage{
				Data:       packet,
				ReceivedAt: receivedAt,
			}
			select {
			case c.messages <- msg:
			case <-c.done:
				return
			default:
				c.logger.Warn("message buffer full, dropping message")
			}

		case eioClose:
			c.lose(ReasonTransportClose)
			return

		case eioPong, eioNoop, eioOpen, eioUpgrade:
			// Nothing to do.

		default:
			c.lose(ReasonParseError)
			return
		}
	}
}

// heartbeatLoop detects a server that stopped pinging.
func (c *client) heartbeatLoop() {
	c.mu.RLock()
	timeout := c.pingTimeout
	c.mu.RUnlock()

	interval := timeout / 4
	if interval < 10*time.Millisecond {
		interval = 10 * time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			c.mu.RLock()
			lastPing := c.lastPingAt
			c.mu.RUnlock()

			if time.Since(lastPing) > timeout {
				c.logger.Warn("no ping received, connection stale",
					"last_ping", lastPing,
					"timeout", timeout,
				)
				c.lose(ReasonPingTimeout)
				return
			}
		}
	}
}

func readErrorReason(err error) string {
	var closeErr *websocket.CloseError
	if errors.As(err, &closeErr) || errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return ReasonTransportClose
	}
	return ReasonTransportError
}
