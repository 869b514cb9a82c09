package connection

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Manager opens stream sessions and forwards their packets onto a single
// channel that survives reconnects.
type Manager interface {
	// Start prepares the manager. Sessions may be opened afterwards.
	Start(ctx context.Context) error

	// Stop closes the current session and the output channel.
	Stop(ctx context.Context) error

	// Open replaces the current session with a new connection.
	Open(ctx context.Context, header http.Header) (uuid.UUID, error)

	// CloseSession closes the current session without reporting a
	// disconnect. Packets still queued for it are dropped.
	CloseSession()

	// Emit sends an event on the current session.
	Emit(event string, payload any) error

	// Messages returns channel of raw messages for Message Router.
	Messages() <-chan RawMessage

	// Stats returns current connection statistics.
	Stats() ManagerStats
}

// session is one Client and its forwarding goroutine.
type session struct {
	id     uuid.UUID
	client Client
	stop   chan struct{}
}

// manager implements the Manager interface.
type manager struct {
	cfg    ManagerConfig
	logger *slog.Logger

	newClient func(ClientConfig, *slog.Logger) Client

	// Output to Message Router
	router chan RawMessage

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu       sync.Mutex
	current  *session
	sessions int
}

// NewManager creates a new Connection Manager.
func NewManager(cfg ManagerConfig, logger *slog.Logger) Manager {
	if logger == nil {
		logger = slog.Default()
	}

	return &manager{
		cfg:       cfg,
		logger:    logger,
		newClient: NewClient,
		router:    make(chan RawMessage, cfg.MessageBufferSize),
	}
}

// Start prepares the manager.
func (m *manager) Start(ctx context.Context) error {
	m.ctx, m.cancel = context.WithCancel(ctx)
	m.logger.Info("connection manager started", "ws_url", m.cfg.WSURL, "ws_path", m.cfg.WSPath)
	return nil
}

// Stop gracefully shuts down.
func (m *manager) Stop(ctx context.Context) error {
	m.logger.Info("stopping connection manager")

	if m.cancel != nil {
		m.cancel()
	}

	m.CloseSession()

	// Wait for forwarders with timeout
	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		close(m.router)
	case <-ctx.Done():
		// Forwarders may still hold the channel; leave it open.
		m.logger.Warn("shutdown timeout, forcing close")
	}

	m.logger.Info("connection manager stopped")
	return nil
}

// Open dials a new session, closing any previous one first.
func (m *manager) Open(ctx context.Context, header http.Header) (uuid.UUID, error) {
	if m.ctx == nil {
		return uuid.Nil, ErrNotStarted
	}

	url, err := BuildURL(m.cfg.WSURL, m.cfg.WSPath)
	if err != nil {
		return uuid.Nil, err
	}

	m.CloseSession()

	c := m.newClient(ClientConfig{
		URL:              url,
		Header:           header,
		PingTimeout:      m.cfg.PingTimeout,
		WriteTimeout:     m.cfg.WriteTimeout,
		HandshakeTimeout: 10 * time.Second,
		BufferSize:       m.cfg.BufferSize,
	}, m.logger)

	if err := c.Connect(ctx); err != nil {
		return uuid.Nil, fmt.Errorf("connect stream: %w", err)
	}

	s := &session{
		id:     uuid.New(),
		client: c,
		stop:   make(chan struct{}),
	}

	m.mu.Lock()
	m.current = s
	m.sessions++
	m.mu.Unlock()

	m.wg.Add(1)
	go m.forward(s)

	m.logger.Info("stream session opened", "session_id", s.id)
	return s.id, nil
}

// CloseSession closes the current session, if any.
func (m *manager) CloseSession() {
	m.mu.Lock()
	s := m.current
	m.current = nil
	m.mu.Unlock()

	if s == nil {
		return
	}

	close(s.stop)
	if err := s.client.Close(); err != nil {
		m.logger.Debug("error closing stream client", "session_id", s.id, "error", err)
	}
	m.logger.Info("stream session closed", "session_id", s.id)
}

// Emit sends an event on the current session.
func (m *manager) Emit(event string, payload any) error {
	m.mu.Lock()
	s := m.current
	m.mu.Unlock()

	if s == nil {
		return ErrNotConnected
	}
	return s.client.Emit(event, payload)
}

// Messages returns the output channel for Message Router.
func (m *manager) Messages() <-chan RawMessage {
	return m.router
}

// Stats returns current statistics.
func (m *manager) Stats() ManagerStats {
	m.mu.Lock()
	defer m.mu.Unlock()

	stats := ManagerStats{Sessions: m.sessions}
	if m.current != nil {
		stats.SessionID = m.current.id
		stats.Connected = m.current.client.IsConnected()
	}
	return stats
}

// forward copies a session's packets to the router, then its disconnect.
func (m *manager) forward(s *session) {
	defer m.wg.Done()

	for {
		select {
		case <-m.ctx.Done():
			return
		case <-s.stop:
			return
		case msg := <-s.client.Messages():
			m.deliver(s, RawMessage{
				Data:       msg.Data,
				SessionID:  s.id,
				ReceivedAt: msg.ReceivedAt,
			})
		case reason := <-s.client.Disconnects():
			// Packets read before the loss go first.
		drain:
			for {
				select {
				case msg := <-s.client.Messages():
					m.deliver(s, RawMessage{
						Data:       msg.Data,
						SessionID:  s.id,
						ReceivedAt: msg.ReceivedAt,
					})
				default:
					break drain
				}
			}

			m.logger.Warn("stream session lost", "session_id", s.id, "reason", reason)
			m.deliver(s, RawMessage{
				SessionID:  s.id,
				ReceivedAt: time.Now(),
				Disconnect: reason,
			})
			return
		}
	}
}

func (m *manager) deliver(s *session, raw RawMessage) {
	select {
	case m.router <- raw:
	case <-s.stop:
	case <-m.ctx.Done():
	}
}
