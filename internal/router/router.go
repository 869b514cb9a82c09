package router

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/rickgao/empire-bidder/internal/connection"
)

// Router decodes raw stream packets and queues them, in arrival order, for
// the Event Dispatcher.
type Router interface {
	// Start begins routing messages from the input channel to the queue.
	Start(ctx context.Context) error

	// Stop gracefully shuts down the router and closes the queue.
	Stop(ctx context.Context) error

	// Queue returns the output queue.
	Queue() *Queue[Message]

	// Stats returns current router statistics.
	Stats() RouterStats
}

// RouterStats contains runtime statistics.
type RouterStats struct {
	MessagesReceived int64
	MessagesRouted   int64
	ParseErrors      int64
	UnknownMessages  int64
	SkippedEntries   int64
	Queue            QueueStats
}

// router is the internal implementation.
type router struct {
	cfg    RouterConfig
	logger *slog.Logger

	// Input from Connection Manager
	input <-chan connection.RawMessage

	// Output to the Event Dispatcher
	queue *Queue[Message]

	// Lifecycle
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	received        atomic.Int64
	routed          atomic.Int64
	parseErrors     atomic.Int64
	unknownMessages atomic.Int64
	skippedEntries  atomic.Int64
}

// NewRouter creates a new Message Router.
func NewRouter(cfg RouterConfig, input <-chan connection.RawMessage, logger *slog.Logger) Router {
	if logger == nil {
		logger = slog.Default()
	}

	return &router{
		cfg:    cfg,
		logger: logger,
		input:  input,
		queue:  NewQueue[Message](cfg.QueueSize),
	}
}

// Start begins routing messages.
func (r *router) Start(ctx context.Context) error {
	r.ctx, r.cancel = context.WithCancel(ctx)

	r.wg.Add(1)
	go r.routeLoop()

	r.logger.Info("message router started", "queue_size", r.cfg.QueueSize)

	return nil
}

// Stop gracefully shuts down the router.
func (r *router) Stop(ctx context.Context) error {
	r.logger.Info("stopping message router")

	if r.cancel != nil {
		r.cancel()
	}

	// Wait for goroutine to finish
	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		r.logger.Info("message router stopped")
	case <-ctx.Done():
		r.logger.Warn("message router stop timed out")
	}

	r.queue.Close()

	return nil
}

// Queue returns the output queue.
func (r *router) Queue() *Queue[Message] {
	return r.queue
}

// Stats returns current statistics.
func (r *router) Stats() RouterStats {
	return RouterStats{
		MessagesReceived: r.received.Load(),
		MessagesRouted:   r.routed.Load(),
		ParseErrors:      r.parseErrors.Load(),
		UnknownMessages:  r.unknownMessages.Load(),
		SkippedEntries:   r.skippedEntries.Load(),
		Queue:            r.queue.Stats(),
	}
}

// routeLoop is the main routing goroutine.
func (r *router) routeLoop() {
	defer r.wg.Done()

	for {
		select {
		case <-r.ctx.Done():
			return
		case raw, ok := <-r.input:
			if !ok {
				r.logger.Info("input channel closed")
				r.queue.Close()
				return
			}
			r.route(raw)
		}
	}
}

// route decodes and queues a single message.
func (r *router) route(raw connection.RawMessage) {
	r.received.Add(1)

	msg, err := Decode(raw)
	if err != nil {
		var unknown errUnknownEvent
		if errors.As(err, &unknown) {
			r.logger.Debug("skipping event", "event", string(unknown))
			r.unknownMessages.Add(1)
			return
		}

		r.logger.Warn("failed to decode stream message",
			"session_id", raw.SessionID,
			"error", err,
		)
		r.parseErrors.Add(1)
		return
	}

	for _, e := range msg.Skipped {
		r.logger.Warn("skipping malformed batch entry",
			"session_id", raw.SessionID,
			"kind", msg.Kind,
			"index", e.Index,
			"error", e.Err,
		)
	}
	r.skippedEntries.Add(int64(len(msg.Skipped)))

	if r.queue.Send(msg) {
		r.routed.Add(1)
	}
}
