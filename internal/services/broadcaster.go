package services

import "bart-backend/internal/models"

// Broadcaster pushes live task updates to connected clients.
type Broadcaster interface {
	BroadcastHUD(sessionID string, hud models.HUDState)
	BroadcastPop(sessionID string, trialIndex, pumps int)
	BroadcastBank(sessionID string, earned, banked float64)
	BroadcastPhase(sessionID string, phase models.SessionPhase)
}
