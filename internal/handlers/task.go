package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"bart-backend/internal/engine"
	"bart-backend/internal/models"
	"bart-backend/internal/services"
)

type TaskHandler struct {
	sessionService *services.SessionService
}

func NewTaskHandler(sessionService *services.SessionService) *TaskHandler {
	return &TaskHandler{sessionService: sessionService}
}

// taskError maps service errors onto status codes. A double-submitted action
// on a resolved trial is a conflict, not a bad request; it must surface, not
// be absorbed.
func taskError(c *gin.Context, err error) {
	if errors.Is(err, engine.ErrTrialResolved) {
		c.JSON(http.StatusConflict, gin.H{
			"error":   "Trial already resolved",
			"details": err.Error(),
		})
		return
	}
	c.JSON(http.StatusBadRequest, gin.H{
		"error":   "Task operation failed",
		"details": err.Error(),
	})
}

func (h *TaskHandler) StartPractice(c *gin.Context) {
	sessionID := c.GetString("session_id")

	hud, err := h.sessionService.StartPractice(sessionID)
	if err != nil {
		taskError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "hud": hud})
}

func (h *TaskHandler) BeginMain(c *gin.Context) {
	sessionID := c.GetString("session_id")

	hud, err := h.sessionService.BeginMain(sessionID)
	if err != nil {
		taskError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "hud": hud})
}

func (h *TaskHandler) Pump(c *gin.Context) {
	sessionID := c.GetString("session_id")

	allowed, err := h.sessionService.RateLimit(sessionID, "pump", services.DefaultRateLimitPumps, time.Minute)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Rate limit check failed"})
		return
	}
	if !allowed {
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "Too many pumps. Please wait."})
		return
	}

	resp, err := h.sessionService.Pump(sessionID)
	if err != nil {
		taskError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "result": resp})
}

func (h *TaskHandler) CashOut(c *gin.Context) {
	sessionID := c.GetString("session_id")

	allowed, err := h.sessionService.RateLimit(sessionID, "cashout", services.DefaultRateLimitCashouts, time.Minute)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Rate limit check failed"})
		return
	}
	if !allowed {
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "Too many cash-outs. Please wait."})
		return
	}

	resp, err := h.sessionService.CashOut(sessionID)
	if err != nil {
		taskError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "result": resp})
}

func (h *TaskHandler) State(c *gin.Context) {
	sessionID := c.GetString("session_id")

	hud, err := h.sessionService.State(sessionID)
	if err != nil {
		taskError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "hud": hud})
}

func (h *TaskHandler) Summary(c *gin.Context) {
	sessionID := c.GetString("session_id")

	blocks, overall, err := h.sessionService.Summary(sessionID)
	if err != nil {
		taskError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"blocks":  blocks,
		"overall": overall,
	})
}

func (h *TaskHandler) GetVerificationData(c *gin.Context) {
	sessionID := c.GetString("session_id")

	data, err := h.sessionService.Verification(sessionID)
	if err != nil {
		taskError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "verification": data})
}

// VerifyTrial recomputes one explosion threshold from disclosed seed
// material, so anyone can confirm the outcome was fixed before the first
// pump.
func (h *TaskHandler) VerifyTrial(c *gin.Context) {
	var req models.VerifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request",
			"details": err.Error(),
		})
		return
	}

	threshold, digest, err := engine.VerifyThreshold(req.TaskSeed, req.ParticipantID, req.TrialIndex, req.MaxPumps)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Verification failed",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"result": models.VerifyResponse{
			Threshold: threshold,
			Digest:    digest,
		},
	})
}
