package handlers

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"fair-casino-backend/internal/apperrors"
	"fair-casino-backend/internal/models"
	"fair-casino-backend/internal/services"
)

type GameHandler struct {
	gameEngine *services.GameEngine
}

func NewGameHandler(gameEngine *services.GameEngine) *GameHandler {
	return &GameHandler{gameEngine: gameEngine}
}

// respondError writes err as {"success": false, "error": {kind, message}}.
func respondError(c *gin.Context, err error) {
	kind := apperrors.KindOf(err)
	status := apperrors.HTTPStatus(kind)
	switch {
	case apperrors.IsValidation(err):
		slog.Debug("Request rejected", "path", c.FullPath(), "kind", kind, "err", err)
	case status >= http.StatusInternalServerError:
		slog.Error("Request failed", "path", c.FullPath(), "user_id", c.GetInt64("user_id"), "err", err)
	}
	c.JSON(status, gin.H{
		"success": false,
		"error":   apperrors.Response(err),
	})
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{
		"success": false,
		"error": gin.H{
			"kind":    apperrors.KindInvalidOptions,
			"message": "Invalid request",
			"details": err.Error(),
		},
	})
}

func (h *GameHandler) Play(c *gin.Context) {
	userID := c.GetInt64("user_id")

	var req models.BetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	result, err := h.gameEngine.Play(c.Request.Context(), userID, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"round":   result,
	})
}

func (h *GameHandler) Catalog(c *gin.Context) {
	catalog := h.gameEngine.Catalog()
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"games":   catalog,
		"count":   len(catalog),
	})
}

func (h *GameHandler) GetBalance(c *gin.Context) {
	userID := c.GetInt64("user_id")
	currency := strings.ToUpper(strings.TrimSpace(c.DefaultQuery("currency", "USD")))

	balance, err := h.gameEngine.Balance(c.Request.Context(), userID, currency)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"balance": balance,
	})
}

func (h *GameHandler) GetRounds(c *gin.Context) {
	userID := c.GetInt64("user_id")

	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(services.DefaultRoundsLimit)))
	switch {
	case err != nil || limit <= 0:
		limit = services.DefaultRoundsLimit
	case limit > services.MaxRoundsLimit:
		limit = services.MaxRoundsLimit
	}

	rounds, err := h.gameEngine.Rounds(c.Request.Context(), userID, limit)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"rounds":  rounds,
		"count":   len(rounds),
	})
}

func (h *GameHandler) GetRound(c *gin.Context) {
	userID := c.GetInt64("user_id")

	round, err := h.gameEngine.Round(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"round":   round,
	})
}
