// Package engine implements the BART trial state machine: deterministic
// explosion-threshold draws, pump and cash-out transitions, and pure block
// aggregation. It has no I/O; callers own persistence and presentation.
package engine

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"bart-backend/internal/models"
)

// ErrTrialResolved is returned when pump or cash-out is attempted on a trial
// that already reached a terminal state. It signals a collaborator bug (e.g.
// a double-submitted input) and is never recovered silently.
var ErrTrialResolved = errors.New("trial already resolved")

// Engine draws trial parameters from a fixed task seed, so any threshold can
// be recomputed after the fact from (seed, participant, trial index).
type Engine struct {
	taskSeed string
}

func New(taskSeed string) *Engine {
	return &Engine{taskSeed: taskSeed}
}

// SeedHash is the commitment published to participants before the session:
// the SHA-256 of the task seed, disclosed pre-run so the seed itself can be
// revealed and checked afterwards.
func (e *Engine) SeedHash() string {
	sum := sha256.Sum256([]byte(e.taskSeed))
	return hex.EncodeToString(sum[:])
}

// TaskSeed returns the raw seed for post-session disclosure.
func (e *Engine) TaskSeed() string {
	return e.taskSeed
}

// drawThreshold maps HMAC-SHA256(taskSeed, "participant:index") onto the
// discrete uniform range [1, maxPumps]. The distribution family is uniform by
// choice, matching randint(1, max) in the original task.
func drawThreshold(taskSeed, participantID string, trialIndex, maxPumps int) (int, string) {
	message := fmt.Sprintf("%s:%d", participantID, trialIndex)
	h := hmac.New(sha256.New, []byte(taskSeed))
	h.Write([]byte(message))
	digest := h.Sum(nil)

	v := binary.BigEndian.Uint64(digest[:8])
	threshold := 1 + int(v%uint64(maxPumps))
	return threshold, hex.EncodeToString(digest)
}

// StartTrial creates a new active trial for the given balloon type. The
// explosion threshold is drawn exactly once, here, before any pump can be
// registered; it stays hidden from the participant until resolution.
func (e *Engine) StartTrial(bt models.BalloonType, participantID string, trialIndex int) *models.Trial {
	threshold, _ := drawThreshold(e.taskSeed, participantID, trialIndex, bt.MaxPumps)

	return &models.Trial{
		Index:     trialIndex,
		Balloon:   bt,
		Threshold: threshold,
		Pumps:     0,
		Status:    models.TrialActive,
		Earned:    0,
		Potential: float64(threshold-1) * bt.RewardPerPump,
		Radius:    models.StartRadius,
		StartedAt: time.Now().Unix(),
	}
}

// StartPracticeTrial creates a practice trial. Practice balloons pop from an
// increasing hazard instead of a pre-drawn threshold, so Threshold is left at
// the hard ceiling and Potential at zero.
func (e *Engine) StartPracticeTrial(bt models.BalloonType, trialIndex int) *models.Trial {
	return &models.Trial{
		Index:     trialIndex,
		Practice:  true,
		Balloon:   bt,
		Threshold: bt.MaxPumps,
		Status:    models.TrialActive,
		Radius:    models.StartRadius,
		StartedAt: time.Now().Unix(),
	}
}

// Pump advances an active trial by one pump: the balloon inflates, the temp
// bank grows by one reward step, and the trial pops if the pump count reaches
// the threshold.
func (e *Engine) Pump(t *models.Trial) error {
	if t.Status.Resolved() {
		return ErrTrialResolved
	}

	t.Pumps++
	t.Radius = models.NextRadius(t.Radius)

	if t.Pumps >= t.Threshold {
		t.Earned = 0
		t.Status = models.TrialPopped
		t.ResolvedAt = time.Now().Unix()
		return nil
	}

	t.Earned += t.Balloon.RewardPerPump
	return nil
}

// PumpHazard advances a practice trial. roll must be uniform in [0,1); the
// balloon pops with probability 1/(maxPumps - pumps), or with certainty at
// the ceiling.
func (e *Engine) PumpHazard(t *models.Trial, roll float64) error {
	if t.Status.Resolved() {
		return ErrTrialResolved
	}

	t.Pumps++
	t.Radius = models.NextRadius(t.Radius)

	if t.Pumps >= t.Balloon.MaxPumps || roll < 1.0/float64(t.Balloon.MaxPumps-t.Pumps) {
		t.Earned = 0
		t.Status = models.TrialPopped
		t.ResolvedAt = time.Now().Unix()
		return nil
	}

	t.Earned += t.Balloon.RewardPerPump
	return nil
}

// CashOut resolves an active trial as cashed-out, locking in the temp bank.
func (e *Engine) CashOut(t *models.Trial) error {
	if t.Status.Resolved() {
		return ErrTrialResolved
	}

	t.Status = models.TrialCashedOut
	t.ResolvedAt = time.Now().Unix()
	return nil
}

// Deflate resolves an active trial after an idle timeout. Temp earnings and
// counterfactual potential are both discarded; the trial is recorded but
// excluded from block aggregates.
func (e *Engine) Deflate(t *models.Trial) error {
	if t.Status.Resolved() {
		return ErrTrialResolved
	}

	t.Earned = 0
	t.Potential = 0
	t.Status = models.TrialDeflated
	t.ResolvedAt = time.Now().Unix()
	return nil
}

// VerifyThreshold recomputes a trial's threshold from disclosed seed
// material, so a participant can check that outcomes were fixed before play.
func VerifyThreshold(taskSeed, participantID string, trialIndex, maxPumps int) (int, string, error) {
	if maxPumps < 1 {
		return 0, "", fmt.Errorf("max pumps must be positive, got %d", maxPumps)
	}
	threshold, digest := drawThreshold(taskSeed, participantID, trialIndex, maxPumps)
	return threshold, digest, nil
}
