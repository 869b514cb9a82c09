// streamtest connects to the marketplace stream and prints decoded events
// to the console. It authenticates like the bidder but never bids.
// Usage: go run ./cmd/streamtest --config configs/bidder.local.yaml [--filters] [--verbose]
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/goccy/go-json"

	"github.com/rickgao/empire-bidder/internal/api"
	"github.com/rickgao/empire-bidder/internal/auction"
	"github.com/rickgao/empire-bidder/internal/auth"
	"github.com/rickgao/empire-bidder/internal/config"
	"github.com/rickgao/empire-bidder/internal/connection"
	"github.com/rickgao/empire-bidder/internal/dispatch"
	"github.com/rickgao/empire-bidder/internal/filter"
	"github.com/rickgao/empire-bidder/internal/model"
	"github.com/rickgao/empire-bidder/internal/router"
	"github.com/rickgao/empire-bidder/internal/supervisor"
)

func main() {
	configPath := flag.String("config", "configs/bidder.example.yaml", "path to config file")
	pushFilters := flag.Bool("filters", false, "push balance filters after authenticating")
	verbose := flag.Bool("verbose", false, "print full message JSON")
	flag.Parse()

	// Setup logger
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))

	// Load config
	cfg, err := config.LoadWithDefaults(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	creds, err := auth.LoadCredentials(cfg.API.APIKey, cfg.API.APIKeyFile)
	if err != nil {
		logger.Error("failed to load credentials", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("received shutdown signal")
		cancel()
	}()

	apiClient := api.NewClient(cfg.API.RestURL, creds, api.WithLogger(logger))

	// Create Connection Manager
	connCfg := connection.DefaultManagerConfig()
	connCfg.WSURL = cfg.API.WSURL
	if cfg.API.WSPath != "" {
		connCfg.WSPath = cfg.API.WSPath
	}
	connMgr := connection.NewManager(connCfg, logger)

	// Create Router using Connection Manager's message channel
	rtr := router.NewRouter(router.RouterConfig{QueueSize: 1000}, connMgr.Messages(), logger)

	logger.Info("starting connection manager")
	if err := connMgr.Start(ctx); err != nil {
		logger.Error("failed to start connection manager", "error", err)
		os.Exit(1)
	}

	logger.Info("starting router")
	if err := rtr.Start(ctx); err != nil {
		logger.Error("failed to start router", "error", err)
		os.Exit(1)
	}

	// One initialization, no reconnects
	session := dispatch.NewSession()
	store := auction.NewStore()
	sup := supervisor.New(cfg.Reconnect, supervisor.Deps{
		Conn:     connMgr,
		Users:    apiClient,
		Auctions: apiClient,
		Store:    store,
		Session:  session,
	}, logger)

	sessionID, err := sup.Init(ctx)
	if err != nil {
		logger.Error("failed to initialize", "error", err)
		os.Exit(1)
	}
	uc := session.User()
	logger.Info("session opened",
		"session_id", sessionID,
		"uid", uc.User.ID,
		"balance", model.Coins(uc.User.Balance),
		"active_auctions", store.Len(),
	)

	var filters *filter.Manager
	if *pushFilters {
		filters = filter.NewManager(cfg.Filters, logger)
	}

	go printEvents(ctx, rtr.Queue(), connMgr, session, filters, *verbose, logger)

	// Stats printer
	go func() {
		ticker := time.NewTicker(10 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				routerStats := rtr.Stats()
				connStats := connMgr.Stats()
				logger.Info("stats",
					"connected", connStats.Connected,
					"router_received", routerStats.MessagesReceived,
					"router_routed", routerStats.MessagesRouted,
					"parse_errors", routerStats.ParseErrors,
					"unknown", routerStats.UnknownMessages,
					"queue", routerStats.Queue.Count,
				)
			}
		}
	}()

	logger.Info("streaming started - press Ctrl+C to stop")

	// Wait for shutdown
	<-ctx.Done()

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	logger.Info("shutting down...")
	connMgr.CloseSession()
	connMgr.Stop(shutdownCtx)
	rtr.Stop(shutdownCtx)

	logger.Info("shutdown complete")
}

func printEvents(
	ctx context.Context,
	queue *router.Queue[router.Message],
	em filter.Emitter,
	session *dispatch.Session,
	filters *filter.Manager,
	verbose bool,
	logger *slog.Logger,
) {
	for {
		msg, ok := queue.Receive()
		if !ok {
			return
		}

		if verbose {
			data, _ := json.MarshalIndent(msg, "", "  ")
			fmt.Printf("[%s] %s\n", msg.Kind, data)
		}

		switch msg.Kind {
		case router.KindInit:
			fmt.Printf("[INIT] authenticated=%v name=%s\n", msg.Init.Authenticated, msg.Init.Name)
			if !msg.Init.Authenticated {
				if err := em.Emit(router.EventIdentify, auth.Identify(session.User())); err != nil {
					logger.Error("identify failed", "error", err)
				}
				continue
			}
			if filters != nil {
				if _, err := filters.Update(ctx, em, session.User().User); err != nil {
					logger.Error("filter update failed", "error", err)
				}
			}

		case router.KindNewItems:
			for _, it := range msg.Items {
				fmt.Printf("[NEW ITEM] id=%d name=%q value=%s\n",
					it.ID, it.MarketName, model.Coins(it.MarketValue))
			}

		case router.KindAuctionUpdates:
			for _, u := range msg.Updates {
				fmt.Printf("[AUCTION] id=%d highest_bid=%s bidder=%d\n",
					u.ID, model.Coins(u.HighestBid), u.HighestBidder)
			}

		case router.KindTradeStatuses:
			for _, ts := range msg.Trades {
				fmt.Printf("[TRADE] type=%s status=%d id=%d name=%q value=%s\n",
					ts.Type, ts.Status, ts.TradeID, ts.MarketName, model.Coins(ts.TotalValue))
			}

		case router.KindDisconnect:
			fmt.Printf("[DISCONNECT] session=%s reason=%s\n", msg.SessionID, msg.Reason)

		default:
			if !verbose {
				fmt.Printf("[%s] %s\n", msg.Kind, msg.Raw)
			}
		}
	}
}
