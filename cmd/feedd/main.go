package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tradearena/tournament-feed/internal/api"
	"github.com/tradearena/tournament-feed/internal/config"
	"github.com/tradearena/tournament-feed/internal/connection"
	"github.com/tradearena/tournament-feed/internal/feed"
	"github.com/tradearena/tournament-feed/internal/market"
	"github.com/tradearena/tournament-feed/internal/version"
)

func main() {
	configPath := flag.String("config", "configs/feedd.local.yaml", "path to config file")
	flag.Parse()

	// Set up structured logging
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
	slog.SetDefault(logger)

	logger.Info("starting feedd",
		"version", version.Version,
		"commit", version.Commit,
		"config", *configPath,
	)

	// Load configuration
	cfg, err := config.LoadAndValidate(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger.Info("configuration loaded",
		"instance_id", cfg.Instance.ID,
		"rest_url", cfg.Gateway.RestURL,
		"socket_url", cfg.Gateway.SocketURL,
		"tournament", cfg.Tournament.ID,
		"symbols", cfg.Market.Symbols,
	)

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	// Create REST client (one-shot fallback, no retries)
	restClient := api.NewClient(
		cfg.Gateway.RestURL,
		cfg.Gateway.Token,
		api.WithLogger(logger),
		api.WithTimeout(cfg.Gateway.Timeout),
	)

	// Create connection manager
	manager := connection.NewManager(connection.ManagerConfig{
		SocketURL:          cfg.Gateway.SocketURL,
		PingInterval:       cfg.Connection.PingInterval,
		PingTimeout:        cfg.Connection.PingTimeout,
		WriteTimeout:       cfg.Connection.WriteTimeout,
		AckTimeout:         cfg.Connection.AckTimeout,
		ReconnectBaseDelay: cfg.Connection.ReconnectBaseDelay,
		ReconnectMaxDelay:  cfg.Connection.ReconnectMaxDelay,
		BufferSize:         cfg.Connection.BufferSize,
	}, logger)

	// Create market store with the fixed tracked set
	store := market.NewStore(cfg.Market.Symbols)

	// Create and start the feed
	f := feed.New(feed.Config{
		Token:        cfg.Gateway.Token,
		TournamentID: cfg.Tournament.ID,
		Username:     cfg.Tournament.Username,
	}, manager, restClient, store, logger)

	if err := f.Start(ctx); err != nil {
		logger.Error("failed to start feed", "error", err)
		os.Exit(1)
	}
	defer f.Stop()

	// Start health server
	healthServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Health.Port),
		Handler: createHealthHandler(cfg.Health.Path, f, logger),
	}

	go func() {
		logger.Info("starting health server", "port", cfg.Health.Port)
		if err := healthServer.ListenAndServe(); err != http.ErrServerClosed {
			logger.Error("health server error", "error", err)
		}
	}()

	logger.Info("feedd running",
		"instance_id", cfg.Instance.ID,
		"health_url", fmt.Sprintf("http://localhost:%d%s", cfg.Health.Port, cfg.Health.Path),
	)

	// Wait for shutdown
	<-ctx.Done()

	logger.Info("shutting down...")

	// Graceful shutdown of health server
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	healthServer.Shutdown(shutdownCtx)

	logger.Info("feedd stopped")
}

// createHealthHandler creates the HTTP handler for health checks.
func createHealthHandler(path string, f *feed.Feed, logger *slog.Logger) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc(path, func(w http.ResponseWriter, r *http.Request) {
		health := struct {
			Status     string                 `json:"status"`
			Components map[string]interface{} `json:"components"`
		}{
			Status:     "healthy",
			Components: make(map[string]interface{}),
		}

		// Check live channel
		if f.Connected() {
			health.Components["live_channel"] = "connected"
		} else {
			health.Status = "degraded"
			health.Components["live_channel"] = map[string]string{
				"status": "disconnected",
				"mode":   "rest_fallback",
			}
		}

		// Check market data freshness
		snapshots := f.Store().SnapshotAll()
		priced := 0
		for _, snap := range snapshots {
			if snap.Price > 0 {
				priced++
			}
		}
		health.Components["market_store"] = map[string]interface{}{
			"tracked": len(snapshots),
			"priced":  priced,
		}

		// Check ranking derivation
		result := f.Rank()
		health.Components["ranking"] = map[string]interface{}{
			"tournament":   f.TournamentID(),
			"participants": len(result.Ordered),
			"self_rank":    result.SelfRank,
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(health)
	})

	mux.HandleFunc("/debug/market", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"instruments": f.Store().SnapshotAll(),
			"trades":      len(f.Store().Trades()),
		})
	})

	return mux
}
