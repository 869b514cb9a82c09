// Package filter keeps the stream subscription filter in line with the
// account balance, so the marketplace only pushes items the account can
// afford.
package filter

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/rickgao/empire-bidder/internal/config"
	"github.com/rickgao/empire-bidder/internal/model"
)

// EventFilters is the stream event used to replace the subscription filter.
const EventFilters = "filters"

// Emitter sends an event on the stream.
type Emitter interface {
	Emit(event string, payload any) error
}

// Filters is the filter payload.
type Filters struct {
	PriceMax      int64  `json:"price_max"`
	PerPage       int    `json:"per_page"`
	Auction       string `json:"auction"`
	PriceMaxAbove int64  `json:"price_max_above"`
}

// Manager pushes filters sized to the account balance.
type Manager struct {
	cfg    config.FiltersConfig
	logger *slog.Logger
}

// NewManager creates a Manager.
func NewManager(cfg config.FiltersConfig, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{cfg: cfg, logger: logger}
}

// Build returns the filters for a balance.
func (m *Manager) Build(balance int64) Filters {
	return Filters{
		PriceMax:      balance,
		PerPage:       m.cfg.PerPage,
		Auction:       m.cfg.Auction,
		PriceMaxAbove: m.cfg.PriceMaxAbove,
	}
}

// Update emits filters for user's balance on em. Below the minimum balance
// nothing is emitted and sent is false.
func (m *Manager) Update(ctx context.Context, em Emitter, user model.User) (sent bool, err error) {
	if user.Balance < m.cfg.MinBalance {
		m.logger.Info("balance below minimum, filters not updated",
			"balance", model.Coins(user.Balance),
			"min_balance", model.Coins(m.cfg.MinBalance),
		)
		return false, nil
	}

	if err := ctx.Err(); err != nil {
		return false, err
	}

	f := m.Build(user.Balance)
	if err := em.Emit(EventFilters, f); err != nil {
		return false, fmt.Errorf("emit filters: %w", err)
	}

	m.logger.Info("filters updated",
		"price_max", model.Coins(f.PriceMax),
		"per_page", f.PerPage,
	)
	return true, nil
}
