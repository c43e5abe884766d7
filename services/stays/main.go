package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/diagnosis/stays/pkg/config"
	"github.com/diagnosis/stays/pkg/database"
	"github.com/diagnosis/stays/pkg/events"
	"github.com/diagnosis/stays/pkg/logger"
	mw "github.com/diagnosis/stays/pkg/middleware"
	"github.com/diagnosis/stays/services/stays/internal/domain"
	"github.com/diagnosis/stays/services/stays/internal/handlers"
	"github.com/diagnosis/stays/services/stays/internal/repository"
	"github.com/diagnosis/stays/services/stays/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
)

func main() {
	if err := godotenv.Load(); err != nil {
		logger.Debug("No .env file loaded", "error", err)
	}
	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Connect to database
	pool, err := database.Connect(ctx, cfg.Database)
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if cfg.Database.ApplySchema {
		if err := database.ApplySchema(ctx, pool); err != nil {
			logger.Error("Failed to apply schema", "error", err)
			os.Exit(1)
		}
		logger.Info("Database schema applied")
	}

	// Events are best effort; the API runs without a broker.
	var eventBus events.Publisher
	if bus, err := events.NewNATSEventBus(cfg.NATS.URL, "stays"); err != nil {
		logger.Warn("NATS unavailable, booking events disabled", "error", err)
		eventBus = events.NopBus{}
	} else {
		eventBus = bus
	}
	defer eventBus.Close()

	store := repository.NewStore(pool)
	pricing := domain.Pricing{ServiceFeeRate: cfg.Pricing.ServiceFeeRate, CleaningFee: cfg.Pricing.CleaningFee}

	h := handlers.New(handlers.Services{
		Auth:         service.NewAuthService(store, cfg.Auth),
		Properties:   service.NewPropertyService(store),
		Availability: service.NewAvailabilityService(store),
		Bookings:     service.NewBookingService(store, eventBus, pricing, nil),
		Messaging:    service.NewMessagingService(store),
		Reviews:      service.NewReviewService(store, nil),
		Lists:        service.NewListService(store),
	}, cfg.Auth)

	var limit func(http.Handler) http.Handler
	if cfg.RateLimit.Enabled {
		rdb, err := newRedisClient(cfg.Redis)
		if err != nil {
			logger.Error("Invalid Redis configuration", "error", err)
			os.Exit(1)
		}
		defer rdb.Close()
		limiter := mw.NewRateLimiter(mw.NewRedisCounter(rdb), mw.RateLimitConfig{
			Requests: cfg.RateLimit.Requests,
			Window:   cfg.RateLimit.Window,
		})
		limit = limiter.Middleware()
	}

	r := chi.NewRouter()
	r.Use(mw.RequestID)
	r.Use(mw.ServiceName("stays"))
	r.Use(mw.Logging)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORS.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Idempotency-Key", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(mw.Health(pool))
	r.Mount("/v1", h.Routes(limit))

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting stays service", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down stays service...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	g.Go(func() error {
		sweepIdempotencyKeys(gctx, store)
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Stays service error", "error", err)
		os.Exit(1)
	}
}

func newRedisClient(cfg config.RedisConfig) (*redis.Client, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, err
	}
	if cfg.Password != "" {
		opts.Password = cfg.Password
	}
	opts.DB = cfg.DB
	return redis.NewClient(opts), nil
}

// sweepIdempotencyKeys drops expired keys hourly until ctx ends.
func sweepIdempotencyKeys(ctx context.Context, store repository.Store) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := store.Idempotency().CleanupExpired(ctx)
			if err != nil {
				logger.Warn("Idempotency cleanup failed", "error", err)
				continue
			}
			if n > 0 {
				logger.Info("Expired idempotency keys removed", "count", n)
			}
		}
	}
}
