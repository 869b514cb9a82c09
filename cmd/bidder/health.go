package main

import (
	"context"
	"net/http"
	"time"

	"github.com/goccy/go-json"

	"github.com/rickgao/empire-bidder/internal/connection"
	"github.com/rickgao/empire-bidder/internal/dispatch"
	"github.com/rickgao/empire-bidder/internal/supervisor"
)

type pinger interface {
	Ping(ctx context.Context) error
}

type healthDeps struct {
	db    pinger
	store interface{ Len() int }
	conn  interface {
		Stats() connection.ManagerStats
	}
	dispatcher interface{ Stats() dispatch.Stats }
	supervisor interface{ Stats() supervisor.Stats }
}

// createHealthHandler creates the HTTP handler for health checks.
func createHealthHandler(deps healthDeps) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		health := struct {
			Status     string         `json:"status"`
			Components map[string]any `json:"components"`
		}{
			Status:     "healthy",
			Components: make(map[string]any),
		}

		// Check database
		if err := deps.db.Ping(ctx); err != nil {
			health.Status = "unhealthy"
			health.Components["postgres"] = map[string]string{
				"status": "disconnected",
				"error":  err.Error(),
			}
		} else {
			health.Components["postgres"] = "ok"
		}

		// Check stream
		cs := deps.conn.Stats()
		health.Components["stream"] = map[string]any{
			"connected":  cs.Connected,
			"session_id": cs.SessionID.String(),
			"sessions":   cs.Sessions,
		}
		if !cs.Connected && health.Status == "healthy" {
			health.Status = "degraded"
		}

		health.Components["auctions"] = map[string]any{
			"tracked": deps.store.Len(),
		}
		health.Components["dispatcher"] = deps.dispatcher.Stats()
		health.Components["supervisor"] = deps.supervisor.Stats()

		w.Header().Set("Content-Type", "application/json")
		if health.Status == "unhealthy" {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		json.NewEncoder(w).Encode(health)
	})

	mux.HandleFunc("/debug/auctions", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"count": deps.store.Len(),
		})
	})

	return mux
}
