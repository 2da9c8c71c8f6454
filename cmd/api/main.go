package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/01moynul/storefront-golang/internal/ai"
	"github.com/01moynul/storefront-golang/internal/auth"
	"github.com/01moynul/storefront-golang/internal/checkout"
	"github.com/01moynul/storefront-golang/internal/config"
	"github.com/01moynul/storefront-golang/internal/database"
	"github.com/01moynul/storefront-golang/internal/email"
	"github.com/01moynul/storefront-golang/internal/events"
	"github.com/01moynul/storefront-golang/internal/handlers"
	"github.com/01moynul/storefront-golang/internal/idempotency"
	"github.com/01moynul/storefront-golang/internal/logger"
	"github.com/01moynul/storefront-golang/internal/middleware"
	"github.com/01moynul/storefront-golang/internal/outbox"
	"github.com/01moynul/storefront-golang/internal/payment"
	"github.com/01moynul/storefront-golang/internal/routes"
	"github.com/01moynul/storefront-golang/internal/store"
	"github.com/01moynul/storefront-golang/internal/sweeper"
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, envLoaded := config.Load()
	log := logger.New(logger.Options{
		Service: "storefront-api",
		Env:     cfg.AppEnv,
		Level:   cfg.LogLevel,
		Pretty:  !cfg.IsProduction(),
	})
	if !envLoaded {
		log.Warn().Msg("no .env file found, relying on process environment")
	}
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := run(cfg, log); err != nil {
		log.Fatal().Err(err).Msg("api stopped")
	}
}

func run(cfg config.Config, log zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- Primary Database (Read/Write) ---
	db, err := database.OpenDB(ctx, cfg.PrimaryDSN)
	if err != nil {
		return fmt.Errorf("primary database: %w", err)
	}
	defer db.Close()

	if err := database.Migrate(ctx, db); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	st := store.New(db)

	// --- Idempotency (Redis, optional) ---
	var guard idempotency.Guard = idempotency.Noop{}
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Warn().Err(err).Str("addr", cfg.RedisAddr).Msg("redis unreachable, order idempotency keys disabled")
		} else {
			guard = idempotency.NewRedisGuard(rdb, idempotency.DefaultTTL)
		}
	}

	// --- Outbox delivery ---
	publisher := events.New(cfg.KafkaBrokers, cfg.KafkaOrderTopic, log)
	defer publisher.Close()

	var mailer email.Sender = email.LogSender{Log: log}
	if cfg.SMTPHost != "" {
		mailer = email.NewSMTPSender(email.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUser,
			Password: cfg.SMTPPass,
			From:     cfg.SMTPFrom,
		})
	}

	h := &handlers.Handlers{
		Store:         st,
		Checkout:      checkout.NewService(st, st, guard, log),
		Tokens:        auth.NewManager(cfg.JWTSecret, cfg.JWTTTL),
		Log:           log,
		SecureCookies: cfg.IsProduction(),
	}

	if cfg.StripeSecretKey != "" {
		h.Payments = payment.NewStripe(cfg.StripeSecretKey, cfg.StripeWebhookSecret, cfg.StripeCurrency)
	} else {
		log.Warn().Msg("STRIPE_SECRET_KEY not set, card payments disabled")
	}

	// --- AI Assistant (optional, read-only catalog access) ---
	if cfg.GeminiAPIKey != "" {
		catalog := st
		if cfg.ReadOnlyDSN != "" {
			roDB, err := openReadOnly(ctx, cfg.ReadOnlyDSN)
			if err != nil {
				return fmt.Errorf("read-only database: %w", err)
			}
			defer roDB.Close()
			catalog = store.New(roDB)
		}

		assistant, err := ai.NewAssistant(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, catalog, log)
		if err != nil {
			return fmt.Errorf("assistant: %w", err)
		}
		defer assistant.Close()
		h.Assistant = assistant
	} else {
		log.Warn().Msg("GEMINI_API_KEY not set, shopping assistant disabled")
	}

	router := routes.SetupRouter(h, routes.Options{
		CORSOrigin:  cfg.CORSOrigin,
		RateLimiter: middleware.NewRateLimiterStore(cfg.RateLimitRPS, cfg.RateLimitBurst, 3*time.Minute),
	})

	addr := fmt.Sprintf(":%d", cfg.Port)
	server := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	// --- Background Workers ---
	g.Go(func() error {
		outbox.NewDispatcher(st, mailer, publisher, log).Run(gctx, cfg.OutboxInterval)
		return nil
	})
	if cfg.PendingOrderTTL > 0 {
		g.Go(func() error {
			sweeper.New(st, cfg.PendingOrderTTL, log).Run(gctx, cfg.SweepInterval)
			return nil
		})
	}

	g.Go(func() error {
		log.Info().Str("addr", addr).Msg("http server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("shutdown requested")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	log.Info().Msg("bye")
	return nil
}

// openReadOnly connects the assistant's catalog pool. It fails fast instead
// of retrying because the primary is already up.
func openReadOnly(ctx context.Context, dsn string) (*sql.DB, error) {
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	db, err := database.OpenDB(pingCtx, dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(5)
	return db, nil
}
