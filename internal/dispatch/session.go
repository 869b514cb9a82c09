package dispatch

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/rickgao/empire-bidder/internal/model"
)

// UserSource fetches the current account snapshot.
type UserSource interface {
	GetUserContext(ctx context.Context) (model.UserContext, error)
}

// Session holds the current UserContext. Readers always see a complete
// snapshot; updates replace it wholesale.
type Session struct {
	user atomic.Pointer[model.UserContext]
}

// NewSession creates an empty Session.
func NewSession() *Session {
	return &Session{}
}

// User returns the current snapshot, or the zero value before the first Set.
func (s *Session) User() model.UserContext {
	if uc := s.user.Load(); uc != nil {
		return *uc
	}
	return model.UserContext{}
}

// Loaded reports whether a snapshot has been set.
func (s *Session) Loaded() bool {
	return s.user.Load() != nil
}

// Set replaces the snapshot.
func (s *Session) Set(uc model.UserContext) {
	s.user.Store(&uc)
}

// Refresh fetches a new snapshot from src and installs it. On error the
// previous snapshot is kept.
func (s *Session) Refresh(ctx context.Context, src UserSource) (model.UserContext, error) {
	uc, err := src.GetUserContext(ctx)
	if err != nil {
		return model.UserContext{}, fmt.Errorf("refresh user context: %w", err)
	}
	s.Set(uc)
	return uc, nil
}
