package auction

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/rickgao/empire-bidder/internal/model"
)

func TestStore_RefreshAndFind(t *testing.T) {
	s := NewStore()

	s.Refresh([]model.Auction{
		{ID: 1, MarketName: "AWP | Asiimov"},
		{ID: 2, MarketName: "AK-47 | Redline"},
	})

	got, ok := s.Find(2)
	if !ok {
		t.Fatal("auction 2 not found")
	}
	if got.MarketName != "AK-47 | Redline" {
		t.Errorf("MarketName = %q, want %q", got.MarketName, "AK-47 | Redline")
	}

	if _, ok := s.Find(3); ok {
		t.Error("auction 3 should not be found")
	}
	if s.Len() != 2 {
		t.Errorf("Len() = %d, want 2", s.Len())
	}
}

func TestStore_RefreshDiscardsPrevious(t *testing.T) {
	s := NewStore()
	s.Refresh([]model.Auction{{ID: 1, MarketName: "old"}})
	s.Refresh([]model.Auction{{ID: 2, MarketName: "new"}})

	if _, ok := s.Find(1); ok {
		t.Error("auction 1 should be discarded after refresh")
	}
	if _, ok := s.Find(2); !ok {
		t.Error("auction 2 should be present")
	}

	s.Refresh(nil)
	if s.Len() != 0 {
		t.Errorf("Len() = %d after empty refresh, want 0", s.Len())
	}
}

func TestStore_RefreshDropsLaterDuplicates(t *testing.T) {
	s := NewStore()
	s.Refresh([]model.Auction{
		{ID: 5, MarketName: "first"},
		{ID: 6, MarketName: "other"},
		{ID: 5, MarketName: "second"},
	})

	if s.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", s.Len())
	}
	got, _ := s.Find(5)
	if got.MarketName != "first" {
		t.Errorf("MarketName = %q, want %q", got.MarketName, "first")
	}

	snap := s.Snapshot()
	if snap[0].ID != 5 || snap[1].ID != 6 {
		t.Errorf("order not preserved: %+v", snap)
	}
}

func TestStore_SnapshotIsolated(t *testing.T) {
	s := NewStore()
	s.Refresh([]model.Auction{{ID: 1, MarketName: "a"}})

	snap := s.Snapshot()
	snap[0].MarketName = "mutated"

	got, _ := s.Find(1)
	if got.MarketName != "a" {
		t.Errorf("store mutated through snapshot: %q", got.MarketName)
	}
}

// Every refresh installs a set whose entries all share one generation tag.
// A torn read would observe a name from a different generation than the
// one its ID belongs to.
func TestStore_ConcurrentRefreshFind(t *testing.T) {
	s := NewStore()

	gen := func(g int) []model.Auction {
		out := make([]model.Auction, 0, 50)
		for i := 0; i < 50; i++ {
			out = append(out, model.Auction{ID: int64(g*1000 + i), MarketName: "gen"})
		}
		return out
	}
	s.Refresh(gen(0))

	var wg sync.WaitGroup
	stop := make(chan struct{})

	wg.Add(1)
	go func() {
		defer wg.Done()
		for g := 1; g <= 200; g++ {
			s.Refresh(gen(g % 2))
		}
		close(stop)
	}()

	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				snap := s.Snapshot()
				if len(snap) != 50 {
					t.Errorf("snapshot len = %d, want 50", len(snap))
					return
				}
				base := snap[0].ID / 1000
				for _, a := range snap {
					if a.ID/1000 != base {
						t.Errorf("mixed generations in snapshot: %d and %d", base, a.ID/1000)
						return
					}
				}
				if a, ok := s.Find(snap[0].ID); ok && a.ID != snap[0].ID {
					t.Errorf("Find(%d) returned %d", snap[0].ID, a.ID)
					return
				}
			}
		}()
	}

	wg.Wait()
}

type fakeSource struct {
	auctions []model.Auction
	err      error
}

func (f *fakeSource) GetActiveAuctions(ctx context.Context) ([]model.Auction, error) {
	return f.auctions, f.err
}

func TestStore_Sync(t *testing.T) {
	s := NewStore()

	n, err := s.Sync(context.Background(), &fakeSource{auctions: []model.Auction{{ID: 1}, {ID: 2}}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 2 {
		t.Errorf("n = %d, want 2", n)
	}

	_, err = s.Sync(context.Background(), &fakeSource{err: errors.New("boom")})
	if err == nil {
		t.Fatal("expected error")
	}
	if s.Len() != 2 {
		t.Errorf("store changed on failed sync: Len() = %d", s.Len())
	}
}
