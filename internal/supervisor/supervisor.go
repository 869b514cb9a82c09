// Package supervisor owns stream session lifecycle: initial startup,
// reconnect after a lost session, and retry of failed initialization.
//
// Initialization fetches the account context and the active auctions
// concurrently, then opens a stream session identified by the account's
// user agent. A failed initialization is retried after
// reconnect.startup_retry_delay; a lost session is re-initialized after
// reconnect.reconnect_delay. Both delays are constant.
package supervisor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/rickgao/empire-bidder/internal/auction"
	"github.com/rickgao/empire-bidder/internal/config"
	"github.com/rickgao/empire-bidder/internal/dispatch"
	"github.com/rickgao/empire-bidder/internal/version"
)

// ErrInitExhausted is reported when reconnect.max_init_attempts is reached.
var ErrInitExhausted = errors.New("initialization attempts exhausted")

// notifyBuffer bounds pending disconnect notifications.
const notifyBuffer = 16

// Opener opens and closes stream sessions.
type Opener interface {
	Open(ctx context.Context, header http.Header) (uuid.UUID, error)
	CloseSession()
}

// Deps are the Supervisor's collaborators.
type Deps struct {
	Conn     Opener
	Users    dispatch.UserSource
	Auctions auction.Source
	Store    *auction.Store
	Session  *dispatch.Session
}

// Stats contains runtime statistics.
type Stats struct {
	SessionID    uuid.UUID
	InitAttempts int64
	InitFailures int64
	Reconnects   int64
}

type notice struct {
	session uuid.UUID
	reason  string
}

// Supervisor keeps one stream session open for the life of the process.
type Supervisor struct {
	cfg    config.ReconnectConfig
	deps   Deps
	logger *slog.Logger

	notify chan notice
	done   chan struct{}

	// newBackOff builds the startup retry schedule.
	newBackOff func(d time.Duration) backoff.BackOff

	mu      sync.Mutex
	current uuid.UUID
	err     error
	stats   Stats

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a Supervisor.
func New(cfg config.ReconnectConfig, deps Deps, logger *slog.Logger) *Supervisor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Supervisor{
		cfg:        cfg,
		deps:       deps,
		logger:     logger,
		notify:     make(chan notice, notifyBuffer),
		done:       make(chan struct{}),
		newBackOff: constantBackOff,
	}
}

// Start runs initialization and then supervises the session until ctx is
// cancelled or initialization attempts are exhausted.
func (s *Supervisor) Start(ctx context.Context) error {
	s.ctx, s.cancel = context.WithCancel(ctx)

	s.wg.Add(1)
	go s.run()

	s.logger.Info("reconnect supervisor started",
		"reconnect_delay", s.cfg.ReconnectDelay,
		"startup_retry_delay", s.cfg.StartupRetryDelay,
		"max_init_attempts", s.cfg.MaxInitAttempts,
	)
	return nil
}

// Stop cancels supervision and closes the current session.
func (s *Supervisor) Stop(ctx context.Context) error {
	s.logger.Info("stopping reconnect supervisor")

	if s.cancel != nil {
		s.cancel()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		s.logger.Warn("reconnect supervisor stop timed out")
	}

	s.deps.Conn.CloseSession()
	s.logger.Info("reconnect supervisor stopped")
	return nil
}

// Done is closed when supervision ends.
func (s *Supervisor) Done() <-chan struct{} {
	return s.done
}

// Err returns ErrInitExhausted (wrapped) if supervision gave up, or nil.
func (s *Supervisor) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Stats returns current statistics.
func (s *Supervisor) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.stats
	st.SessionID = s.current
	return st
}

// NotifyDisconnect reports a lost session. It never blocks.
func (s *Supervisor) NotifyDisconnect(sessionID uuid.UUID, reason string) {
	select {
	case s.notify <- notice{session: sessionID, reason: reason}:
	default:
		s.logger.Warn("disconnect notification dropped",
			"session_id", sessionID,
			"reason", reason,
		)
	}
}

// Init runs one initialization: account context and active auctions are
// fetched concurrently, then a new session is opened.
func (s *Supervisor) Init(ctx context.Context) (uuid.UUID, error) {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		_, err := s.deps.Session.Refresh(gctx, s.deps.Users)
		return err
	})
	g.Go(func() error {
		_, err := s.deps.Store.Sync(gctx, s.deps.Auctions)
		return err
	})

	if err := g.Wait(); err != nil {
		return uuid.Nil, err
	}

	uc := s.deps.Session.User()
	header := http.Header{}
	header.Set("User-Agent", version.UserAgent(strconv.FormatInt(uc.User.ID, 10)))

	id, err := s.deps.Conn.Open(ctx, header)
	if err != nil {
		return uuid.Nil, fmt.Errorf("open session: %w", err)
	}

	s.logger.Info("initialized",
		"session_id", id,
		"uid", uc.User.ID,
		"tracked_auctions", s.deps.Store.Len(),
	)
	return id, nil
}

func (s *Supervisor) run() {
	defer s.wg.Done()
	defer close(s.done)

	if err := s.initialize(); err != nil {
		s.fail(err)
		return
	}

	for {
		select {
		case <-s.ctx.Done():
			return

		case n := <-s.notify:
			if n.session != s.currentSession() {
				s.logger.Debug("ignoring disconnect from stale session",
					"session_id", n.session,
					"reason", n.reason,
				)
				continue
			}

			s.logger.Warn("session lost, reconnecting",
				"session_id", n.session,
				"reason", n.reason,
				"delay", s.cfg.ReconnectDelay,
			)
			s.deps.Conn.CloseSession()

			timer := time.NewTimer(s.cfg.ReconnectDelay)
			select {
			case <-s.ctx.Done():
				timer.Stop()
				return
			case <-timer.C:
			}

			s.mu.Lock()
			s.stats.Reconnects++
			s.mu.Unlock()

			if err := s.initialize(); err != nil {
				s.fail(err)
				return
			}
		}
	}
}

// initialize retries Init on the startup schedule until it succeeds, ctx
// ends, or the attempt limit is reached.
func (s *Supervisor) initialize() error {
	attempt := 0
	opts := []backoff.RetryOption{
		backoff.WithBackOff(s.newBackOff(s.cfg.StartupRetryDelay)),
		backoff.WithMaxElapsedTime(0),
		backoff.WithNotify(func(err error, next time.Duration) {
			s.logger.Error("initialization failed",
				"attempt", attempt,
				"retry_in", next,
				"error", err,
			)
		}),
	}
	if s.cfg.MaxInitAttempts > 0 {
		opts = append(opts, backoff.WithMaxTries(uint(s.cfg.MaxInitAttempts)))
	}

	id, err := backoff.Retry(s.ctx, func() (uuid.UUID, error) {
		attempt++
		s.mu.Lock()
		s.stats.InitAttempts++
		s.mu.Unlock()

		id, err := s.Init(s.ctx)
		if err != nil && s.ctx.Err() == nil {
			s.mu.Lock()
			s.stats.InitFailures++
			s.mu.Unlock()
		}
		return id, err
	}, opts...)

	if err == nil {
		s.mu.Lock()
		s.current = id
		s.mu.Unlock()
		return nil
	}
	if s.ctx.Err() != nil {
		return nil
	}
	return fmt.Errorf("%w after %d attempts: %v", ErrInitExhausted, attempt, err)
}

func (s *Supervisor) currentSession() uuid.UUID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

func (s *Supervisor) fail(err error) {
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
	s.logger.Error("supervision stopped", "error", err)
}

func constantBackOff(d time.Duration) backoff.BackOff {
	return backoff.NewConstantBackOff(d)
}
