package poller

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rickgao/empire-bidder/internal/auction"
)

// Config holds reconciler configuration.
type Config struct {
	Interval time.Duration // Reconcile interval; negative disables (default: 5m)
	Timeout  time.Duration // Per-cycle timeout (default: 30s)
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Interval: 5 * time.Minute,
		Timeout:  30 * time.Second,
	}
}

// Stats contains runtime statistics.
type Stats struct {
	Cycles    int64
	Errors    int64
	LastCount int64
}

// Poller periodically reconciles the auction store with the REST API.
type Poller struct {
	cfg    Config
	source auction.Source
	store  *auction.Store
	logger *slog.Logger

	cycles    atomic.Int64
	errors    atomic.Int64
	lastCount atomic.Int64

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a new Poller.
func New(cfg Config, source auction.Source, store *auction.Store, logger *slog.Logger) *Poller {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Interval == 0 {
		cfg.Interval = DefaultConfig().Interval
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultConfig().Timeout
	}
	return &Poller{
		cfg:    cfg,
		source: source,
		store:  store,
		logger: logger,
	}
}

// Enabled reports whether the reconciler runs at all.
func (p *Poller) Enabled() bool {
	return p.cfg.Interval > 0
}

// Start begins the reconcile loop.
func (p *Poller) Start(ctx context.Context) error {
	p.ctx, p.cancel = context.WithCancel(ctx)

	if !p.Enabled() {
		p.logger.Info("auction reconciler disabled")
		return nil
	}

	p.wg.Add(1)
	go p.run()

	p.logger.Info("auction reconciler started", "interval", p.cfg.Interval)
	return nil
}

// Stop gracefully shuts down the poller.
func (p *Poller) Stop(ctx context.Context) error {
	if p.cancel != nil {
		p.cancel()
	}

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.logger.Info("auction reconciler stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stats returns current statistics.
func (p *Poller) Stats() Stats {
	return Stats{
		Cycles:    p.cycles.Load(),
		Errors:    p.errors.Load(),
		LastCount: p.lastCount.Load(),
	}
}

// run is the main loop. The supervisor syncs on every initialization, so
// the first cycle waits a full interval.
func (p *Poller) run() {
	defer p.wg.Done()

	ticker := time.NewTicker(p.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-p.ctx.Done():
			return
		case <-ticker.C:
			p.reconcile()
		}
	}
}

// reconcile runs one fetch-and-replace cycle.
func (p *Poller) reconcile() {
	start := time.Now()
	p.cycles.Add(1)

	ctx, cancel := context.WithTimeout(p.ctx, p.cfg.Timeout)
	defer cancel()

	before := p.store.Len()
	n, err := p.store.Sync(ctx, p.source)
	if err != nil {
		p.errors.Add(1)
		p.logger.Warn("failed to reconcile active auctions",
			"tracked", before,
			"err", err,
		)
		return
	}
	p.lastCount.Store(int64(n))

	p.logger.Debug("reconcile cycle complete",
		"before", before,
		"after", n,
		"duration", time.Since(start),
	)
}
