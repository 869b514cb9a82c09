// Package dispatch consumes decoded stream messages and drives bidding.
//
// One loop takes messages off the router queue in arrival order. Batch
// events (new_item, auction_update, trade_status) fan out one goroutine per
// entry, bounded by dispatch.max_concurrency, and the loop waits for the
// whole batch before taking the next message. A panic in one entry's
// handler is logged and does not affect its siblings.
package dispatch

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/sourcegraph/conc"
	"github.com/sourcegraph/conc/panics"

	"github.com/rickgao/empire-bidder/internal/auction"
	"github.com/rickgao/empire-bidder/internal/auth"
	"github.com/rickgao/empire-bidder/internal/bidding"
	"github.com/rickgao/empire-bidder/internal/config"
	"github.com/rickgao/empire-bidder/internal/connection"
	"github.com/rickgao/empire-bidder/internal/filter"
	"github.com/rickgao/empire-bidder/internal/model"
	"github.com/rickgao/empire-bidder/internal/pricing"
	"github.com/rickgao/empire-bidder/internal/router"
)

// BidSubmitter runs a bid negotiation.
type BidSubmitter interface {
	SubmitBid(ctx context.Context, item model.Item, bidValue, bidMax int64) bidding.Outcome
}

// DisconnectNotifier is told about sessions lost for a reason that calls
// for a reconnect.
type DisconnectNotifier interface {
	NotifyDisconnect(sessionID uuid.UUID, reason string)
}

// Deps are the Dispatcher's collaborators.
type Deps struct {
	Queue      *router.Queue[router.Message]
	Oracle     pricing.Oracle
	Bids       BidSubmitter
	Store      *auction.Store
	Auctions   auction.Source
	Users      UserSource
	Filters    *filter.Manager
	Emitter    filter.Emitter
	Session    *Session
	Supervisor DisconnectNotifier
}

// Stats contains runtime statistics.
type Stats struct {
	MessagesHandled  int64
	ItemsEvaluated   int64
	BidsAccepted     int64
	BidsAbandoned    int64
	AccountRefreshes int64
	HandlerPanics    int64
}

// Dispatcher is the single consumer of stream messages.
type Dispatcher struct {
	cfg    config.DispatchConfig
	deps   Deps
	logger *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	handled          atomic.Int64
	evaluated        atomic.Int64
	accepted         atomic.Int64
	abandoned        atomic.Int64
	accountRefreshes atomic.Int64
	panics           atomic.Int64
}

// New creates a Dispatcher.
func New(cfg config.DispatchConfig, deps Deps, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MaxConcurrency < 1 {
		cfg.MaxConcurrency = 1
	}
	return &Dispatcher{
		cfg:    cfg,
		deps:   deps,
		logger: logger,
	}
}

// Start begins consuming the queue. Handlers run under ctx, so cancelling
// it (process shutdown) is the only thing that interrupts a negotiation.
func (d *Dispatcher) Start(ctx context.Context) error {
	d.ctx, d.cancel = context.WithCancel(ctx)

	d.wg.Add(1)
	go d.loop()

	d.logger.Info("event dispatcher started", "max_concurrency", d.cfg.MaxConcurrency)
	return nil
}

// Stop waits for the loop to exit. The queue must be closed (router Stop)
// for the loop to finish.
func (d *Dispatcher) Stop(ctx context.Context) error {
	d.logger.Info("stopping event dispatcher")

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		d.logger.Info("event dispatcher stopped")
	case <-ctx.Done():
		d.logger.Warn("event dispatcher stop timed out")
	}

	if d.cancel != nil {
		d.cancel()
	}
	return nil
}

// Stats returns current statistics.
func (d *Dispatcher) Stats() Stats {
	return Stats{
		MessagesHandled:  d.handled.Load(),
		ItemsEvaluated:   d.evaluated.Load(),
		BidsAccepted:     d.accepted.Load(),
		BidsAbandoned:    d.abandoned.Load(),
		AccountRefreshes: d.accountRefreshes.Load(),
		HandlerPanics:    d.panics.Load(),
	}
}

func (d *Dispatcher) loop() {
	defer d.wg.Done()

	for {
		msg, ok := d.deps.Queue.Receive()
		if !ok {
			return
		}
		d.Handle(d.ctx, msg)
	}
}

// Handle processes one message and returns when all its work is done.
func (d *Dispatcher) Handle(ctx context.Context, msg router.Message) {
	defer d.handled.Add(1)

	switch msg.Kind {
	case router.KindConnect:
		d.logger.Info("connected to stream", "session_id", msg.SessionID)

	case router.KindConnectError:
		d.logger.Error("stream connect error",
			"session_id", msg.SessionID,
			"payload", string(msg.Raw),
		)
		if d.deps.Supervisor != nil {
			d.deps.Supervisor.NotifyDisconnect(msg.SessionID, connection.ReasonConnectError)
		}

	case router.KindInit:
		d.handleInit(ctx, msg)

	case router.KindTimesync:
		d.logger.Info("timesync", "payload", string(msg.Raw))

	case router.KindNewItems:
		forEach(d, msg.Kind, msg.Items, func(item model.Item) {
			d.handleNewItem(ctx, item)
		})

	case router.KindAuctionUpdates:
		forEach(d, msg.Kind, msg.Updates, func(u model.AuctionUpdate) {
			d.handleAuctionUpdate(ctx, u)
		})

	case router.KindTradeStatuses:
		forEach(d, msg.Kind, msg.Trades, func(ts model.TradeStatus) {
			d.handleTradeStatus(ctx, ts)
		})

	case router.KindDisconnect:
		d.handleDisconnect(msg)

	default:
		d.logger.Debug("ignoring message", "kind", msg.Kind)
	}
}

// forEach runs fn for every entry concurrently and waits for all of them.
func forEach[T any](d *Dispatcher, kind router.Kind, entries []T, fn func(T)) {
	if len(entries) == 0 {
		return
	}

	sem := make(chan struct{}, d.cfg.MaxConcurrency)
	var wg conc.WaitGroup

	for _, entry := range entries {
		sem <- struct{}{}
		wg.Go(func() {
			defer func() { <-sem }()

			var pc panics.Catcher
			pc.Try(func() { fn(entry) })
			if r := pc.Recovered(); r != nil {
				d.panics.Add(1)
				d.logger.Error("item handler panicked",
					"event", kind.String(),
					"panic", r.Value,
					"stack", string(r.Stack),
				)
			}
		})
	}

	wg.Wait()
}

func (d *Dispatcher) handleInit(ctx context.Context, msg router.Message) {
	uc := d.deps.Session.User()

	if msg.Init.Authenticated {
		d.logger.Info("authenticated", "name", msg.Init.Name)
		if _, err := d.deps.Filters.Update(ctx, d.deps.Emitter, uc.User); err != nil {
			d.logger.Error("failed to update filters", "error", err)
		}
		return
	}

	if err := d.deps.Emitter.Emit(router.EventIdentify, auth.Identify(uc)); err != nil {
		d.logger.Error("failed to identify", "error", err)
		return
	}
	d.logger.Info("identify sent", "uid", uc.User.ID)
}

func (d *Dispatcher) handleNewItem(ctx context.Context, item model.Item) {
	d.evaluated.Add(1)

	ref, found, err := d.deps.Oracle.ReferencePrice(ctx, item.MarketName)
	if err != nil {
		d.logger.Warn("reference price lookup failed",
			"deposit_id", item.ID,
			"market_name", item.MarketName,
			"error", err,
		)
		return
	}
	if !found || ref < item.MarketValue {
		return
	}

	d.logger.Info("new item within reference price",
		"deposit_id", item.ID,
		"market_name", item.MarketName,
		"market_value", model.Coins(item.MarketValue),
		"reference_price", model.Coins(ref),
	)

	switch outcome := d.deps.Bids.SubmitBid(ctx, item, item.MarketValue, ref); outcome {
	case bidding.Accepted:
		d.accepted.Add(1)
		d.refreshAuctions(ctx)
	case bidding.InsufficientBalance:
		d.abandoned.Add(1)
		d.refreshAccount(ctx)
	default:
		d.abandoned.Add(1)
	}
}

func (d *Dispatcher) handleAuctionUpdate(ctx context.Context, u model.AuctionUpdate) {
	tracked, ok := d.deps.Store.Find(u.ID)
	if !ok {
		return
	}
	if u.HighestBidder == d.deps.Session.User().User.ID {
		return
	}

	d.evaluated.Add(1)
	bid := bidding.OutbidValue(u.HighestBid)

	ref, found, err := d.deps.Oracle.ReferencePrice(ctx, tracked.MarketName)
	if err != nil {
		d.logger.Warn("reference price lookup failed",
			"deposit_id", u.ID,
			"market_name", tracked.MarketName,
			"error", err,
		)
		return
	}
	if !found || ref < bid {
		return
	}

	d.logger.Info("outbid on tracked auction",
		"deposit_id", u.ID,
		"highest_bid", u.HighestBid,
		"highest_bidder", u.HighestBidder,
		"bid", bid,
	)

	// The ceiling is 0 here: the outbid value is sent once and any
	// counter-offer ends the negotiation.
	item := model.Item{ID: u.ID, MarketName: tracked.MarketName}
	switch d.deps.Bids.SubmitBid(ctx, item, bid, 0) {
	case bidding.Accepted:
		d.accepted.Add(1)
	case bidding.InsufficientBalance:
		d.abandoned.Add(1)
		d.refreshAccount(ctx)
	default:
		d.abandoned.Add(1)
	}
}

func (d *Dispatcher) handleTradeStatus(ctx context.Context, ts model.TradeStatus) {
	d.logger.Info("trade status",
		"type", ts.Type,
		"status", ts.Status,
		"market_name", ts.MarketName,
		"trade_id", ts.TradeID,
	)

	if ts.Type != model.TradeTypeWithdrawal {
		return
	}

	if ts.Status == model.TradeStatusSent {
		d.logger.Info("check if you received the item",
			"market_name", ts.MarketName,
			"total_value", model.Coins(ts.TotalValue),
			"partner", ts.Partner.SteamName,
			"partner_level", ts.Partner.SteamLevel,
			"trade_id", ts.TradeID,
			"steam_id", ts.Partner.SteamID,
		)
	}

	if model.IsBalanceAffecting(ts.Status) {
		d.refreshAccount(ctx)
	}
}

func (d *Dispatcher) handleDisconnect(msg router.Message) {
	d.logger.Info("stream disconnected",
		"session_id", msg.SessionID,
		"reason", msg.Reason,
	)
	if ShouldReconnect(msg.Reason) && d.deps.Supervisor != nil {
		d.deps.Supervisor.NotifyDisconnect(msg.SessionID, msg.Reason)
	}
}

// refreshAccount reloads the user context and re-sizes the filters.
func (d *Dispatcher) refreshAccount(ctx context.Context) {
	d.accountRefreshes.Add(1)

	uc, err := d.deps.Session.Refresh(ctx, d.deps.Users)
	if err != nil {
		d.logger.Error("failed to refresh account", "error", err)
		return
	}
	if _, err := d.deps.Filters.Update(ctx, d.deps.Emitter, uc.User); err != nil {
		d.logger.Error("failed to update filters", "error", err)
	}
}

// refreshAuctions reloads the tracked auctions.
func (d *Dispatcher) refreshAuctions(ctx context.Context) {
	n, err := d.deps.Store.Sync(ctx, d.deps.Auctions)
	if err != nil {
		d.logger.Error("failed to refresh active auctions", "error", err)
		return
	}
	d.logger.Debug("active auctions refreshed", "count", n)
}

// ShouldReconnect reports whether a disconnect reason calls for a new
// session. The stream client never redials on its own, so every loss
// qualifies except a server-initiated disconnect.
func ShouldReconnect(reason string) bool {
	switch reason {
	case "", connection.ReasonServerDisconnect:
		return false
	}
	return true
}
