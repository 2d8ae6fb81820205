// Package app wires the admission-layer components together and owns their
// lifecycle.
package app

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/robfig/cron/v3"

	"payment-gateway/internal/auth"
	"payment-gateway/internal/common/logging"
	"payment-gateway/internal/config"
	"payment-gateway/internal/directory"
	"payment-gateway/internal/guard"
	"payment-gateway/internal/handlers"
	"payment-gateway/internal/ratelimit"
	"payment-gateway/internal/stats"
)

// App holds the wired admission-layer components.
type App struct {
	Config *config.Config
	Logger logging.Logger

	Guard     *guard.Guard
	Directory directory.Directory

	Global   *ratelimit.FixedWindowLimiter
	Auth     *ratelimit.FixedWindowLimiter
	Payment  *ratelimit.FixedWindowLimiter
	Webhook  *ratelimit.FixedWindowLimiter
	Dynamic  *ratelimit.DynamicLimiter
	Cost     *ratelimit.CostLimiter
	Bearer   *auth.BearerAuthenticator
	APIKeys  *auth.APIKeyAuthenticator
	Handlers *handlers.Handlers
	Reporter *stats.Reporter

	redisClient *redis.Client
	memStore    *ratelimit.MemoryStore
	cron        *cron.Cron
	closers     []func() error
}

// New wires the application from configuration. Components initialize in
// dependency order; a Redis failure degrades to in-process counters rather
// than aborting startup.
func New(cfg *config.Config) (*App, error) {
	app := &App{
		Config: cfg,
		Logger: logging.GetGlobalLogger().WithFields(logging.String("component", "app")),
	}

	if err := app.initializeDirectory(); err != nil {
		return nil, err
	}

	store := app.initializeCounterStore()

	app.Guard = guard.New(guard.Config{
		MaxRequestsPerMinute: cfg.MaxRequestsPerMinute,
		MaxRequestsPerSecond: cfg.MaxRequestsPerSecond,
		BurstThreshold:       cfg.BurstThreshold,
		SuspiciousThreshold:  cfg.SuspiciousThreshold,
		BlockDuration:        cfg.BlockDuration,
		CleanupInterval:      cfg.CleanupInterval,
		CleanupAge:           cfg.CleanupAge,
	}, app.Logger)

	app.Global = ratelimit.NewFixedWindow(ratelimit.GlobalPolicy(), store, app.Logger)
	app.Auth = ratelimit.NewFixedWindow(ratelimit.AuthPolicy(), store, app.Logger)
	app.Payment = ratelimit.NewFixedWindow(ratelimit.PaymentPolicy(), store, app.Logger)
	app.Webhook = ratelimit.NewFixedWindow(ratelimit.WebhookPolicy(), store, app.Logger)
	app.Dynamic = ratelimit.NewDynamic(store, app.Logger)

	costConfig := ratelimit.DefaultCostConfig()
	costConfig.MaxPoints = cfg.CostMaxPoints
	costConfig.RefillRate = cfg.CostRefillRate
	app.Cost = ratelimit.NewCostLimiter(costConfig, app.Logger)

	app.Bearer = auth.NewBearerAuthenticator(cfg.JWTSecret, app.Logger)
	app.APIKeys = auth.NewAPIKeyAuthenticator(app.Directory, auth.SignedRequestConfig{
		KeyPrefix: cfg.APIKeyPrefix,
		Tolerance: cfg.SignatureTolerance,
	}, app.Logger)

	app.Reporter = stats.NewReporter(app.Guard,
		[]*ratelimit.FixedWindowLimiter{app.Global, app.Auth, app.Payment, app.Webhook},
		app.Dynamic, app.Cost)
	app.Handlers = handlers.New(app.Guard, app.Reporter, app.Logger)

	return app, nil
}

func (app *App) initializeDirectory() error {
	cfg := app.Config

	switch cfg.DirectoryBackend {
	case "memory":
		app.Directory = directory.NewMemoryDirectory()
		app.Logger.Info("Merchant directory: in-memory")
	case "sqlite":
		d, err := directory.NewSQLiteDirectory(cfg.SQLitePath)
		if err != nil {
			return fmt.Errorf("failed to open merchant directory: %w", err)
		}
		app.Directory = d
		app.closers = append(app.closers, d.Close)
		app.Logger.Info("Merchant directory: SQLite", logging.String("path", cfg.SQLitePath))
	case "postgres", "postgresql":
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		d, err := directory.NewPostgresDirectory(ctx, cfg.PostgresDSN())
		if err != nil {
			return fmt.Errorf("failed to connect to merchant directory: %w", err)
		}
		app.Directory = d
		app.closers = append(app.closers, func() error { d.Close(); return nil })
		app.Logger.Info("Merchant directory: PostgreSQL",
			logging.String("host", cfg.PostgresHost),
			logging.String("database", cfg.PostgresDB))
	default:
		return fmt.Errorf("unknown directory backend %q", cfg.DirectoryBackend)
	}

	return nil
}

// initializeCounterStore prefers Redis so fixed-window counters are shared
// between instances, falling back to in-process counters when Redis is
// unconfigured or unreachable.
func (app *App) initializeCounterStore() ratelimit.CounterStore {
	cfg := app.Config

	if cfg.RedisAddress != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddress,
			Password: cfg.RedisPassword,
			DB:       redisDB(cfg.RedisDB),
		})

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := client.Ping(ctx).Err(); err == nil {
			app.redisClient = client
			app.closers = append(app.closers, client.Close)
			app.Logger.Info("Rate-limit counters: Redis", logging.String("address", cfg.RedisAddress))
			return ratelimit.NewRedisStore(client, "ratelimit")
		}

		client.Close()
		app.Logger.Warn("Redis unreachable, using in-process counters",
			logging.String("address", cfg.RedisAddress))
	}

	app.memStore = ratelimit.NewMemoryStore()
	app.Logger.Info("Rate-limit counters: in-process")
	return app.memStore
}

// StartSweeps schedules the periodic eviction jobs: guard record sweeps on
// the configured interval, limiter bucket sweeps every five minutes.
func (app *App) StartSweeps() {
	c := cron.New()

	c.AddFunc(fmt.Sprintf("@every %s", app.Config.CleanupInterval), app.Guard.Sweep)
	c.AddFunc("@every 5m", func() {
		app.Cost.Sweep(app.Config.CleanupAge)
		if app.memStore != nil {
			app.memStore.Sweep(app.Config.CleanupAge)
		}
	})

	c.Start()
	app.cron = c
}

// Shutdown stops the sweep scheduler and closes held resources.
func (app *App) Shutdown(ctx context.Context) error {
	if app.cron != nil {
		stopped := app.cron.Stop()
		select {
		case <-stopped.Done():
		case <-ctx.Done():
		}
	}

	var firstErr error
	for _, close := range app.closers {
		if err := close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func redisDB(s string) int {
	db, _ := strconv.Atoi(s)
	return db
}
