package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"bart-backend/internal/models"
	"bart-backend/internal/services"
)

type SessionHandler struct {
	sessionService *services.SessionService
	jwtService     *services.JWTService
}

func NewSessionHandler(sessionService *services.SessionService, jwtService *services.JWTService) *SessionHandler {
	return &SessionHandler{
		sessionService: sessionService,
		jwtService:     jwtService,
	}
}

// Register creates a participant session and returns the token the frontend
// uses for every subsequent task call.
func (h *SessionHandler) Register(c *gin.Context) {
	var req models.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request",
			"details": err.Error(),
		})
		return
	}

	session, err := h.sessionService.Register(&req)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Failed to register",
			"details": err.Error(),
		})
		return
	}

	token, err := h.jwtService.GenerateToken(session.ParticipantID, session.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to issue token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"token":   token,
		"session": gin.H{
			"id":          session.ID,
			"phase":       session.Phase,
			"seed_hash":   session.SeedHash,
			"trial_count": session.MainTrialCount(),
			"created_at":  session.CreatedAt,
		},
	})
}
