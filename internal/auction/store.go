// Package auction tracks the auctions the account is currently bidding on.
//
// The Store is the only mutable state shared between concurrent item
// handlers. It is replaced wholesale from the marketplace after each accepted
// bid, on session start and by the periodic reconciler, so it may briefly
// lag behind the marketplace.
package auction

import (
	"context"
	"fmt"
	"sync"

	"github.com/rickgao/empire-bidder/internal/model"
)

// Source fetches the authoritative list of active auctions.
type Source interface {
	GetActiveAuctions(ctx context.Context) ([]model.Auction, error)
}

// Store is a mutex-guarded, ordered set of auctions keyed by ID.
type Store struct {
	mu       sync.Mutex
	auctions []model.Auction
	byID     map[int64]int // id -> index into auctions
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{
		byID: make(map[int64]int),
	}
}

// Refresh replaces the whole set. Order is preserved and only the first
// entry for a given ID is kept.
func (s *Store) Refresh(auctions []model.Auction) {
	next := make([]model.Auction, 0, len(auctions))
	byID := make(map[int64]int, len(auctions))
	for _, a := range auctions {
		if _, dup := byID[a.ID]; dup {
			continue
		}
		byID[a.ID] = len(next)
		next = append(next, a)
	}

	s.mu.Lock()
	s.auctions = next
	s.byID = byID
	s.mu.Unlock()
}

// Find returns the tracked auction with the given ID.
func (s *Store) Find(id int64) (model.Auction, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx, ok := s.byID[id]
	if !ok {
		return model.Auction{}, false
	}
	return s.auctions[idx], true
}

// Len returns the number of tracked auctions.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.auctions)
}

// Snapshot returns a copy of the tracked auctions in order.
func (s *Store) Snapshot() []model.Auction {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]model.Auction, len(s.auctions))
	copy(out, s.auctions)
	return out
}

// Sync fetches the active auctions from src and refreshes the store. The
// lock is not held during the fetch. On error the store is left unchanged.
func (s *Store) Sync(ctx context.Context, src Source) (int, error) {
	auctions, err := src.GetActiveAuctions(ctx)
	if err != nil {
		return 0, fmt.Errorf("sync auctions: %w", err)
	}

	s.Refresh(auctions)
	return s.Len(), nil
}
