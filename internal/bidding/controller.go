package bidding

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/rickgao/empire-bidder/internal/api"
	"github.com/rickgao/empire-bidder/internal/config"
	"github.com/rickgao/empire-bidder/internal/model"
)

// Outcome is the result of a bid negotiation.
type Outcome int

const (
	// Abandoned means no bid is standing: terminal rejection, ceiling
	// exceeded, retries exhausted, unknown reason or transport failure.
	Abandoned Outcome = iota
	// Accepted means the last bid sent was accepted.
	Accepted
	// InsufficientBalance means the account cannot cover the bid. The caller
	// should refresh the user context and filters.
	InsufficientBalance
)

func (o Outcome) String() string {
	switch o {
	case Accepted:
		return "accepted"
	case InsufficientBalance:
		return "insufficient_balance"
	default:
		return "abandoned"
	}
}

// Bidder sends a single bid request.
type Bidder interface {
	PlaceBid(ctx context.Context, itemID, value int64) (*api.BidResponse, error)
}

// Recorder receives every bid request for auditing. Record must not block.
type Recorder interface {
	Record(a model.BidAttempt)
}

// Controller runs bid negotiations.
type Controller struct {
	bidder   Bidder
	recorder Recorder
	cfg      config.BiddingConfig
	logger   *slog.Logger

	sleep func(ctx context.Context, d time.Duration) error
	now   func() time.Time
}

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) {
		c.logger = logger
	}
}

// WithRecorder sets the audit recorder.
func WithRecorder(r Recorder) Option {
	return func(c *Controller) {
		c.recorder = r
	}
}

// NewController creates a Controller.
func NewController(bidder Bidder, cfg config.BiddingConfig, opts ...Option) *Controller {
	c := &Controller{
		bidder: bidder,
		cfg:    cfg,
		logger: slog.Default(),
		sleep:  sleepCtx,
		now:    time.Now,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// SubmitBid bids bidValue on item and negotiates upwards to at most bidMax.
//
// Escalation never sends more than bidMax. A bidValue already above bidMax
// is still sent once; any counter-offer then exceeds the ceiling and the
// negotiation ends.
//
// ctx should be the process context: cancelling it aborts a cooldown wait.
func (c *Controller) SubmitBid(ctx context.Context, item model.Item, bidValue, bidMax int64) Outcome {
	negotiationID := uuid.New()
	logger := c.logger.With(
		"item_id", item.ID,
		"market_name", item.MarketName,
		"negotiation_id", negotiationID,
		"bid_max", bidMax,
	)

	value := bidValue
	contentions := 0
	escalations := 0

	for {
		sentAt := c.now()
		resp, err := c.bidder.PlaceBid(ctx, item.ID, value)
		if err != nil {
			c.record(negotiationID, item, value, bidMax, "transport_error", nil, sentAt)
			logger.Error("bid request failed", "bid_value", value, "error", err)
			return Abandoned
		}

		r := classify(resp)
		c.record(negotiationID, item, value, bidMax, r.String(), resp, sentAt)

		switch r {
		case reasonAccepted:
			logger.Info("bid placed",
				"bid_value", value,
				"coins", model.Coins(value),
			)
			return Accepted

		case reasonOutbid:
			next := resp.NextBid()
			if next <= 0 || next > bidMax {
				logger.Info("outbid beyond maximum, giving up",
					"bid_value", value,
					"next_bid", next,
				)
				return Abandoned
			}
			escalations++
			if escalations > c.cfg.MaxEscalations {
				logger.Warn("escalation limit reached",
					"bid_value", value,
					"escalations", escalations-1,
				)
				return Abandoned
			}
			logger.Info("outbid, raising bid",
				"bid_value", value,
				"next_bid", next,
			)
			value = next

		case reasonContention:
			contentions++
			if contentions > c.cfg.MaxContentionRetries {
				logger.Warn("contention retries exhausted",
					"bid_value", value,
					"retries", contentions-1,
				)
				return Abandoned
			}
			logger.Debug("trade in progress, retrying after cooldown",
				"bid_value", value,
				"cooldown", c.cfg.ContentionCooldown,
			)
			if err := c.sleep(ctx, c.cfg.ContentionCooldown); err != nil {
				logger.Info("bid cancelled during cooldown", "error", err)
				return Abandoned
			}

		case reasonFinished:
			logger.Info("auction already finished", "bid_value", value)
			return Abandoned

		case reasonRestricted:
			logger.Warn("account restricted from bidding", "bid_value", value)
			return Abandoned

		case reasonNoBalance:
			logger.Warn("insufficient balance for bid", "bid_value", value)
			return InsufficientBalance

		default:
			logger.Warn("bid rejected",
				"bid_value", value,
				"error_key", resp.ErrorKey(),
				"message", resp.Message,
			)
			return Abandoned
		}
	}
}

func (c *Controller) record(negotiationID uuid.UUID, item model.Item, value, bidMax int64, result string, resp *api.BidResponse, sentAt time.Time) {
	if c.recorder == nil {
		return
	}

	a := model.BidAttempt{
		ID:            uuid.New(),
		NegotiationID: negotiationID,
		ItemID:        item.ID,
		MarketName:    item.MarketName,
		Value:         value,
		Max:           bidMax,
		Result:        result,
		SentAt:        sentAt,
	}
	if resp != nil {
		a.ErrorKey = resp.ErrorKey()
		a.Message = resp.Message
	}

	c.recorder.Record(a)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
