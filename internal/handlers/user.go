package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"fair-casino-backend/internal/services"
)

type UserHandler struct {
	gameEngine *services.GameEngine
	currencies []string
}

func NewUserHandler(gameEngine *services.GameEngine, currencies []string) *UserHandler {
	return &UserHandler{
		gameEngine: gameEngine,
		currencies: currencies,
	}
}

func (h *UserHandler) GetCurrentUser(c *gin.Context) {
	userID, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	summary, err := h.gameEngine.Summary(c.Request.Context(), userID.(int64), h.currencies)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"user":       summary,
		"session_id": c.GetString("session_id"),
	})
}
