// Package main provides the entry point for the cast trade gate.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-playground/validator/v10"
	redis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"farcaster-trader/internal/agent"
	"farcaster-trader/internal/auth"
	"farcaster-trader/internal/config"
	"farcaster-trader/internal/dispatcher"
	"farcaster-trader/internal/eventstore"
	"farcaster-trader/internal/executor"
	"farcaster-trader/internal/gate"
	"farcaster-trader/internal/handler"
	"farcaster-trader/internal/limit"
	"farcaster-trader/internal/listener"
	"farcaster-trader/internal/logger"
	"farcaster-trader/internal/queue"
	"farcaster-trader/internal/supervisor"
	"farcaster-trader/internal/tokens"
)

// Run is the testable entrypoint for the application. It blocks until ctx is
// cancelled or a background task fails.
func Run(ctx context.Context) error {
	cfg := config.Load()
	log := logger.New(cfg.Env, "cast-gate")
	defer func() { _ = log.Sync() }()
	log.Info("Starting Farcaster event trader")

	registry, err := tokens.New(cfg.Tokens)
	if err != nil {
		return fmt.Errorf("token registry: %w", err)
	}

	store, err := newStore(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	exec := newExecutor(cfg, log)
	defer func() { _ = exec.Close() }()

	if cfg.Agent.APIKey == "" {
		log.Warn("ANTHROPIC_API_KEY is not set, dispatches will fail")
	}

	enforcer := limit.New(cfg.TradeLimit)
	disp := dispatcher.New(log,
		agent.New(cfg.Agent),
		dispatcher.NewParser(validator.New()),
		enforcer,
		registry,
		limit.NewGuard(enforcer, exec, log))

	sup := supervisor.New(log, cfg.HeartbeatInterval)

	var enq gate.Enqueuer
	if cfg.DispatchMode == config.DispatchAsync {
		q := queue.New(log, disp, cfg.DispatchWorkers, cfg.DispatchQueueSize, cfg.DispatchTimeout)
		if err := sup.Go("dispatch-queue", q.Start); err != nil {
			return err
		}
		enq = q
	}

	allow := auth.NewAllowList(cfg.AuthorizedUsers)
	h := handler.New(log, gate.New(log, store, allow, disp, enq), cfg.ServerName)
	lis := listener.New(cfg.HTTPAddr, h.Routes(), log)
	// Stopped and drained before the dispatch queue.
	if err := sup.Start(&supervisor.Task{ID: "listener", Handler: lis.Serve, Stage: 1}); err != nil {
		return err
	}

	log.Info("waiting for Farcaster casts",
		zap.String("addr", cfg.HTTPAddr),
		zap.Strings("authorized_users", allow.Users()),
		zap.String("trade_limit_usdc", cfg.TradeLimit.String()),
		zap.String("dispatch_mode", cfg.DispatchMode),
		zap.String("event_store", cfg.EventStore),
		zap.String("executor", cfg.Executor))

	if err := sup.Run(ctx); err != nil {
		log.Error("shutdown with error", zap.Error(err))
		return err
	}
	log.Info("service stopped")
	return nil
}

func newStore(cfg *config.Config) (eventstore.Store, error) {
	if cfg.EventStore == config.StoreRedis {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		return eventstore.NewRedis(client, cfg.Redis.KeyPrefix, cfg.Redis.TTL), nil
	}
	store, err := eventstore.NewMemory(cfg.EventStoreCapacity)
	if err != nil {
		return nil, fmt.Errorf("event store: %w", err)
	}
	return store, nil
}

func newExecutor(cfg *config.Config, log *zap.Logger) executor.Executor {
	if cfg.Executor == config.ExecutorKafka {
		return executor.NewKafka(cfg.KafkaBrokers, cfg.KafkaTopic)
	}
	return executor.NewLog(log)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		os.Exit(1)
	}
}
