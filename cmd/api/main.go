package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"fair-casino-backend/internal/config"
	"fair-casino-backend/internal/games"
	"fair-casino-backend/internal/handlers"
	"fair-casino-backend/internal/logger"
	"fair-casino-backend/internal/services"
)

func main() {
	envErr := godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load config", "err", err)
		os.Exit(1)
	}

	logger.Init(&logger.Options{
		Level:   logger.ParseLevel(cfg.LogLevel),
		NoColor: cfg.IsProduction(),
	})
	log := logger.L()
	if envErr != nil {
		log.Info("No .env file found, using environment variables")
	}

	if err := run(cfg, log); err != nil {
		log.Error("Server stopped", "err", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var limits map[string]config.GameLimits
	if cfg.GamesFile != "" {
		var err error
		if limits, err = config.LoadGameLimits(cfg.GamesFile); err != nil {
			return err
		}
	}
	registry, err := games.DefaultRegistry(limits)
	if err != nil {
		return err
	}

	hub := handlers.NewWebSocketHub()
	go hub.Run(ctx)

	deps := services.Collaborators{Logger: log}
	publishers := services.MultiPublisher{hub}
	var rateLimiter services.RateLimiter
	var health func(context.Context) error

	switch cfg.StoreBackend {
	case config.BackendRedis:
		redisService, err := services.NewRedisService(ctx, cfg)
		if err != nil {
			return err
		}
		defer redisService.Close()

		deps.Ledger = redisService
		deps.Seeds = redisService
		deps.Rounds = redisService
		deps.Locker = redisService
		rateLimiter = redisService
		health = redisService.Ping
	default:
		deps.Ledger = services.NewMemoryLedger(cfg.StartingBalance)
		deps.Seeds = services.NewMemorySeedStore()
		deps.Rounds = services.NewMemoryRoundStore()
		deps.Locker = services.NewKeyedMutex()
		rateLimiter = services.NewMemoryRateLimiter()
	}

	if cfg.SQLitePath != "" {
		store, err := services.NewSQLiteRoundStore(cfg.SQLitePath)
		if err != nil {
			return err
		}
		defer store.Close()
		deps.Rounds = store
	}

	if cfg.NATSURL != "" {
		natsPublisher, err := services.NewNATSPublisher(cfg.NATSURL, cfg.NATSSubject)
		if err != nil {
			// the live feed still works without NATS
			log.Warn("NATS unavailable, round events disabled", "err", err)
		} else {
			defer natsPublisher.Close()
			publishers = append(publishers, natsPublisher)
		}
	}
	deps.Publisher = publishers

	gameEngine := services.NewGameEngine(registry, cfg.Currencies, deps)
	jwtService := services.NewJWTService(cfg.JWTSecret, cfg.JWTExpiry)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := handlers.NewRouter(handlers.RouterConfig{
		GameEngine:      gameEngine,
		JWTService:      jwtService,
		Hub:             hub,
		RateLimiter:     rateLimiter,
		Logger:          log,
		Currencies:      cfg.CurrencyCodes(),
		RateLimitBets:   cfg.RateLimitBets,
		RateLimitWindow: cfg.RateLimitWindow,
		IssueTokens:     !cfg.IsProduction(),
		Health:          health,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("Server starting",
			"port", cfg.Port,
			"backend", cfg.StoreBackend,
			"games", registry.IDs(),
			"currencies", cfg.CurrencyCodes(),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
