package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"fair-casino-backend/internal/services"
)

type AuthHandler struct {
	jwtService *services.JWTService
}

func NewAuthHandler(jwtService *services.JWTService) *AuthHandler {
	return &AuthHandler{jwtService: jwtService}
}

type tokenRequest struct {
	UserID int64 `json:"user_id" binding:"required,gt=0"`
}

// IssueToken signs a token for any player id. It is only routed outside
// production, where an identity provider issues tokens instead.
func (h *AuthHandler) IssueToken(c *gin.Context) {
	var req tokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	token, claims, err := h.jwtService.GenerateToken(req.UserID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"token":      token,
		"session_id": claims.SessionID,
		"expires_at": claims.ExpiresAt.Time,
	})
}
