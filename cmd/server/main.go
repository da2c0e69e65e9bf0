package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/lumenstudio/fotofacil/internal/api"
	"github.com/lumenstudio/fotofacil/internal/api/middleware"
	"github.com/lumenstudio/fotofacil/internal/backend"
	"github.com/lumenstudio/fotofacil/internal/cart"
	"github.com/lumenstudio/fotofacil/internal/checkout"
	"github.com/lumenstudio/fotofacil/internal/config"
	"github.com/lumenstudio/fotofacil/internal/coupon"
	"github.com/lumenstudio/fotofacil/internal/delivery"
	"github.com/lumenstudio/fotofacil/internal/messaging"
	"github.com/lumenstudio/fotofacil/internal/messaging/kafka"
	"github.com/lumenstudio/fotofacil/internal/payment"
	"github.com/lumenstudio/fotofacil/internal/repository/postgres"
	"github.com/lumenstudio/fotofacil/internal/service"
)

const (
	sweepEvery   = 10 * time.Minute
	sessionIdle  = 2 * time.Hour
	shutdownWait = 15 * time.Second
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger, err := newLogger(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	// Connect to database
	db, err := postgres.NewConnection(cfg.Database)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	repos := postgres.NewRepositories(db, logger)

	// Cart persistence
	var kv cart.KV = cart.NewMemoryKV()
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()

		pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err := rdb.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			logger.Fatal("Failed to connect to redis", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
		}
		kv = cart.NewRedisKV(rdb, cfg.Redis.CartTTL)
		logger.Info("Carts persisted in redis", zap.String("addr", cfg.Redis.Addr))
	} else {
		logger.Warn("REDIS_ADDR not set, carts are kept in memory")
	}

	// Order events
	var publisher messaging.Publisher = messaging.NewLogPublisher(logger)
	if len(cfg.Kafka.Brokers) > 0 {
		kp := kafka.NewPublisher(cfg.Kafka.Brokers, logger)
		defer kp.Close()
		publisher = kp
	}

	backendClient := backend.NewClient(cfg.Backend, logger)

	flows := checkout.NewManager(cart.NewRegistry(kv, logger), checkout.Deps{
		Orders:    backendClient,
		Coupons:   coupon.NewCalculator(repos.Coupon, logger),
		Payments:  payment.NewPoller(backendClient, cfg.Checkout.PollInterval, cfg.Checkout.PollMaxWait, logger),
		Publisher: publisher,
		Topic:     cfg.Kafka.Topic,
		Logger:    logger,
	})

	// The API only opens links; downloads run in cmd/fetch-order
	gate := delivery.NewGate(backendClient, nil, nil, delivery.NewLogNotifier(logger), cfg.Checkout.DownloadDelay, logger)

	router := api.NewRouter(cfg, api.Dependencies{
		Sessions: middleware.NewSessionStore(cfg.Session),
		Flows:    flows,
		Catalog:  service.NewCatalogService(repos, logger),
		Coupons:  service.NewCouponService(repos, logger),
		Delivery: gate,
	}, logger)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go sweepSessions(ctx, flows)

	go func() {
		logger.Info("Starting server", zap.String("port", cfg.Port), zap.String("environment", cfg.Environment))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownWait)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown failed", zap.Error(err))
	}
	flows.Shutdown()
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	zcfg := zap.NewDevelopmentConfig()
	if cfg.IsProduction() {
		zcfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("invalid LOG_LEVEL: %w", err)
	}
	zcfg.Level = zap.NewAtomicLevelAt(level)

	return zcfg.Build()
}

func sweepSessions(ctx context.Context, flows *checkout.Manager) {
	ticker := time.NewTicker(sweepEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			flows.Sweep(sessionIdle)
		}
	}
}
