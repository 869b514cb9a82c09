package main

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/peterldowns/testy/assert"
	"github.com/peterldowns/testy/check"
	"github.com/rickgao/empire-bidder/internal/auction"
	"github.com/rickgao/empire-bidder/internal/connection"
	"github.com/rickgao/empire-bidder/internal/dispatch"
	"github.com/rickgao/empire-bidder/internal/model"
	"github.com/rickgao/empire-bidder/internal/supervisor"
)

type fakeDB struct{ err error }

func (d fakeDB) Ping(ctx context.Context) error { return d.err }

type fakeConn struct{ stats connection.ManagerStats }

func (c fakeConn) Stats() connection.ManagerStats { return c.stats }

type fakeDispatcher struct{}

func (fakeDispatcher) Stats() dispatch.Stats { return dispatch.Stats{MessagesHandled: 3} }

type fakeSupervisor struct{}

func (fakeSupervisor) Stats() supervisor.Stats { return supervisor.Stats{InitAttempts: 1} }

func newDeps(dbErr error, connected bool) healthDeps {
	store := auction.NewStore()
	store.Refresh([]model.Auction{{ID: 1, MarketName: "a"}, {ID: 2, MarketName: "b"}})
	return healthDeps{
		db:         fakeDB{err: dbErr},
		store:      store,
		conn:       fakeConn{stats: connection.ManagerStats{Connected: connected, SessionID: uuid.New(), Sessions: 1}},
		dispatcher: fakeDispatcher{},
		supervisor: fakeSupervisor{},
	}
}

func getHealth(t *testing.T, deps healthDeps) (int, map[string]any) {
	t.Helper()
	rec := httptest.NewRecorder()
	createHealthHandler(deps).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	var body map[string]any
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return rec.Code, body
}

func TestHealth(t *testing.T) {
	cases := []struct {
		name      string
		dbErr     error
		connected bool
		code      int
		status    string
	}{
		{"healthy", nil, true, http.StatusOK, "healthy"},
		{"stream down", nil, false, http.StatusOK, "degraded"},
		{"database down", errors.New("refused"), true, http.StatusServiceUnavailable, "unhealthy"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			code, body := getHealth(t, newDeps(tc.dbErr, tc.connected))
			check.Equal(t, tc.code, code)
			check.Equal(t, any(tc.status), body["status"])

			components, ok := body["components"].(map[string]any)
			assert.True(t, ok)
			auctions, ok := components["auctions"].(map[string]any)
			assert.True(t, ok)
			check.Equal(t, any(float64(2)), auctions["tracked"])
		})
	}
}

func TestDebugAuctions(t *testing.T) {
	rec := httptest.NewRecorder()
	createHealthHandler(newDeps(nil, true)).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/debug/auctions", nil))

	check.Equal(t, http.StatusOK, rec.Code)
	var body map[string]any
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	check.Equal(t, any(float64(2)), body["count"])
}
