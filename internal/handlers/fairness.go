package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"fair-casino-backend/internal/models"
	"fair-casino-backend/internal/services"
)

type FairnessHandler struct {
	gameEngine *services.GameEngine
}

func NewFairnessHandler(gameEngine *services.GameEngine) *FairnessHandler {
	return &FairnessHandler{gameEngine: gameEngine}
}

// GetSeeds returns the active commitment. The server seed itself is only
// disclosed by RotateSeed.
func (h *FairnessHandler) GetSeeds(c *gin.Context) {
	userID := c.GetInt64("user_id")

	seeds, err := h.gameEngine.Seeds(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"seeds":   seeds,
	})
}

func (h *FairnessHandler) RotateSeed(c *gin.Context) {
	userID := c.GetInt64("user_id")

	var req models.RotateSeedRequest
	// the body is optional
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		badRequest(c, err)
		return
	}

	rotated, err := h.gameEngine.RotateSeed(c.Request.Context(), userID, req.ClientSeed)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"revealed": rotated.Revealed,
		"active":   rotated.Active,
	})
}

func (h *FairnessHandler) Verify(c *gin.Context) {
	var req models.VerifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	result, err := h.gameEngine.Verify(&req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":      true,
		"verification": result,
	})
}
