package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"fair-casino-backend/internal/middleware"
	"fair-casino-backend/internal/services"
)

const actionPlay = "play"

type RouterConfig struct {
	GameEngine  *services.GameEngine
	JWTService  *services.JWTService
	Hub         *WebSocketHub
	RateLimiter services.RateLimiter
	Logger      *slog.Logger
	Currencies  []string

	RateLimitBets   int
	RateLimitWindow time.Duration

	// IssueTokens routes POST /auth/token. Never enable in production.
	IssueTokens bool
	// Health reports backend reachability; nil means always healthy.
	Health      func(ctx context.Context) error
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	gameHandler := NewGameHandler(cfg.GameEngine)
	fairnessHandler := NewFairnessHandler(cfg.GameEngine)
	userHandler := NewUserHandler(cfg.GameEngine, cfg.Currencies)
	wsHandler := NewWebSocketHandler(cfg.GameEngine, cfg.Hub, cfg.Currencies)

	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestLogger(cfg.Logger))

	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})

	router.GET("/health", func(c *gin.Context) {
		if cfg.Health != nil {
			if err := cfg.Health(c.Request.Context()); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	if cfg.IssueTokens {
		router.POST("/auth/token", NewAuthHandler(cfg.JWTService).IssueToken)
	}

	api := router.Group("/api")
	api.GET("/games", gameHandler.Catalog)
	api.POST("/fairness/verify", fairnessHandler.Verify)

	protected := api.Group("")
	protected.Use(middleware.AuthMiddleware(cfg.JWTService))
	{
		protected.GET("/me", userHandler.GetCurrentUser)
		protected.GET("/ws", wsHandler.HandleWebSocket)

		games := protected.Group("/games")
		{
			play := []gin.HandlerFunc{gameHandler.Play}
			if cfg.RateLimiter != nil && cfg.RateLimitBets > 0 {
				play = append([]gin.HandlerFunc{
					middleware.RateLimitMiddleware(cfg.RateLimiter, actionPlay, cfg.RateLimitBets, cfg.RateLimitWindow),
				}, play...)
			}
			games.POST("/play", play...)
			games.GET("/balance", gameHandler.GetBalance)
		}

		rounds := protected.Group("/rounds")
		{
			rounds.GET("", gameHandler.GetRounds)
			rounds.GET("/:id", gameHandler.GetRound)
		}

		fairness := protected.Group("/fairness")
		{
			fairness.GET("/seeds", fairnessHandler.GetSeeds)
			fairness.POST("/rotate", fairnessHandler.RotateSeed)
		}
	}

	return router
}
