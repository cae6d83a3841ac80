package models

import "fmt"

// RegisterRequest is the participant intake form shown before the intro page.
type RegisterRequest struct {
	ParticipantID string `json:"participant_id" binding:"required"`
	Age           int    `json:"age" binding:"required,min=18,max=99"`
	Gender        string `json:"gender" binding:"required"`
}

// Validate enforces the intake constraints not expressible as binding tags.
func (r *RegisterRequest) Validate() error {
	switch r.Gender {
	case "female", "male", "other":
	default:
		return fmt.Errorf("invalid gender: %s", r.Gender)
	}
	if len(r.ParticipantID) > 64 {
		return fmt.Errorf("participant id too long")
	}
	return nil
}

// HUDState is the per-frame snapshot the frontend renders: balloon geometry
// on the left, the three cards on the right. It never carries the explosion
// threshold of an unresolved trial.
type HUDState struct {
	Phase        SessionPhase `json:"phase"`
	TrialIndex   int          `json:"trial_index"`
	TrialCount   int          `json:"trial_count"`
	CountLabel   string       `json:"count_label"` // e.g. "12 / 60" or "Practice 2/3"
	BalloonColor string       `json:"balloon_color"`
	Radius       int          `json:"radius"`
	Pumps        int          `json:"pumps"`
	TempBank     float64      `json:"temp_bank"`
	Banked       float64      `json:"banked"`
}

// PumpResponse reports the effect of a single pump.
type PumpResponse struct {
	Popped   bool     `json:"popped"`
	Pumps    int      `json:"pumps"`
	TempBank float64  `json:"temp_bank"`
	Radius   int      `json:"radius"`
	HUD      HUDState `json:"hud"`
}

// CashOutResponse reports a bank action.
type CashOutResponse struct {
	EarnedThis float64  `json:"earned_this"`
	Banked     float64  `json:"banked"`
	HUD        HUDState `json:"hud"`
}

// VerificationData is the seed material a participant needs to check the
// thresholds of a finished session.
type VerificationData struct {
	SeedHash   string `json:"seed_hash"`
	TaskSeed   string `json:"task_seed,omitempty"` // disclosed only after completion
	TrialCount int    `json:"trial_count"`
}

// VerifyRequest asks the server to recompute one trial's threshold from
// disclosed seed material.
type VerifyRequest struct {
	TaskSeed      string `json:"task_seed" binding:"required"`
	ParticipantID string `json:"participant_id" binding:"required"`
	TrialIndex    int    `json:"trial_index" binding:"required,min=1"`
	MaxPumps      int    `json:"max_pumps" binding:"required,min=1"`
}

// VerifyResponse carries the recomputed threshold and the digest it came from.
type VerifyResponse struct {
	Threshold int    `json:"threshold"`
	Digest    string `json:"digest"`
}
