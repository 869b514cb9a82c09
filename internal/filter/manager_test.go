package filter

import (
	"context"
	"errors"
	"testing"

	"github.com/peterldowns/testy/assert"
	"github.com/peterldowns/testy/check"
	"github.com/rickgao/empire-bidder/internal/config"
	"github.com/rickgao/empire-bidder/internal/model"
)

type recordingEmitter struct {
	events   []string
	payloads []any
	err      error
}

func (e *recordingEmitter) Emit(event string, payload any) error {
	if e.err != nil {
		return e.err
	}
	e.events = append(e.events, event)
	e.payloads = append(e.payloads, payload)
	return nil
}

func defaultFilters() config.FiltersConfig {
	return config.FiltersConfig{
		MinBalance:    config.DefaultMinBalance,
		PerPage:       config.DefaultPerPage,
		Auction:       config.DefaultAuctionFilter,
		PriceMaxAbove: config.DefaultPriceMaxAbove,
	}
}

func TestUpdate_EmitsFilters(t *testing.T) {
	m := NewManager(defaultFilters(), nil)
	em := &recordingEmitter{}

	sent, err := m.Update(context.Background(), em, model.User{ID: 1, Balance: 125050})

	assert.NoError(t, err)
	check.True(t, sent)
	assert.Equal(t, 1, len(em.events))
	check.Equal(t, EventFilters, em.events[0])
	check.Equal(t, any(Filters{
		PriceMax:      125050,
		PerPage:       2500,
		Auction:       "yes",
		PriceMaxAbove: 20,
	}), em.payloads[0])
}

func TestUpdate_BelowMinimumSkips(t *testing.T) {
	m := NewManager(defaultFilters(), nil)
	em := &recordingEmitter{}

	sent, err := m.Update(context.Background(), em, model.User{ID: 1, Balance: 2999})

	assert.NoError(t, err)
	check.False(t, sent)
	check.Equal(t, 0, len(em.events))
}

func TestUpdate_AtMinimumEmits(t *testing.T) {
	m := NewManager(defaultFilters(), nil)
	em := &recordingEmitter{}

	sent, err := m.Update(context.Background(), em, model.User{ID: 1, Balance: 3000})

	assert.NoError(t, err)
	check.True(t, sent)
}

func TestUpdate_EmitError(t *testing.T) {
	m := NewManager(defaultFilters(), nil)
	em := &recordingEmitter{err: errors.New("not connected")}

	sent, err := m.Update(context.Background(), em, model.User{Balance: 5000})

	check.Error(t, err)
	check.False(t, sent)
}
