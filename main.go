package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/xiaot623/gogo/marketplace/internal/adapter/events"
	"github.com/xiaot623/gogo/marketplace/internal/adapter/predictor"
	"github.com/xiaot623/gogo/marketplace/internal/config"
	"github.com/xiaot623/gogo/marketplace/internal/hub"
	"github.com/xiaot623/gogo/marketplace/internal/policy"
	"github.com/xiaot623/gogo/marketplace/internal/predictionlog"
	"github.com/xiaot623/gogo/marketplace/internal/repository"
	"github.com/xiaot623/gogo/marketplace/internal/service"
	transporthttp "github.com/xiaot623/gogo/marketplace/internal/transport/http"
	"github.com/xiaot623/gogo/marketplace/internal/transport/rpc"
)

func main() {
	// A missing .env is fine; the environment may already be populated.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	setupLogging(cfg.LogLevel)
	logger := slog.Default()

	slog.Info("starting marketplace", "port", cfg.HTTPPort, "predictor", cfg.PredictorURL)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize store
	db, err := store.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("failed to initialize store", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	// Initialize event publisher
	publisher, err := events.NewPublisher(cfg.NATSURL, cfg.NATSToken, logger)
	if err != nil {
		slog.Error("failed to connect to nats", "error", err)
		os.Exit(1)
	}
	defer publisher.Close()
	if !publisher.Enabled() {
		slog.Info("nats url not set, message events stay in process")
	}

	// Initialize policy engine
	policyEngine, err := policy.NewEngine(ctx, policy.DefaultPolicy)
	if err != nil {
		slog.Error("failed to initialize policy engine", "error", err)
		os.Exit(1)
	}

	// Live connections
	connHub := hub.NewHub(logger)
	go connHub.Run(ctx)

	predictorClient := predictor.NewClient(cfg.PredictorURL, cfg.PredictorTimeout)
	rolesLog := predictionlog.New(cfg.RolesLogPath)

	svc := service.New(db, policyEngine, publisher, connHub, predictorClient, rolesLog, logger)

	e := transporthttp.NewServer(svc, connHub, cfg)

	go func() {
		addr := fmt.Sprintf(":%d", cfg.HTTPPort)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	// Internal JSON-RPC listener is optional
	var rpcServer *rpc.Server
	if cfg.RPCPort > 0 {
		rpcServer, err = rpc.NewServer(svc)
		if err != nil {
			slog.Error("failed to initialize rpc server", "error", err)
			os.Exit(1)
		}
		go func() {
			addr := fmt.Sprintf(":%d", cfg.RPCPort)
			if err := rpcServer.Start(addr); err != nil {
				slog.Error("rpc server failed", "error", err)
				os.Exit(1)
			}
		}()
		slog.Info("rpc server started", "port", cfg.RPCPort)
	}

	slog.Info("marketplace ready", "port", cfg.HTTPPort)

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	slog.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		slog.Warn("failed to shutdown server gracefully", "error", err)
	}
	if rpcServer != nil {
		if err := rpcServer.Shutdown(shutdownCtx); err != nil {
			slog.Warn("failed to shutdown rpc server gracefully", "error", err)
		}
	}
	cancel()

	slog.Info("marketplace stopped")
}

func setupLogging(level string) {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	slog.SetDefault(slog.New(handler))
}
