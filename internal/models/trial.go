package models

// TrialStatus is the lifecycle state of a single balloon trial.
// A trial is a strictly sequential state machine:
// active -> {popped, cashed_out, deflated}, all terminal.
type TrialStatus string

const (
	TrialActive    TrialStatus = "active"
	TrialPopped    TrialStatus = "popped"
	TrialCashedOut TrialStatus = "cashed_out"
	TrialDeflated  TrialStatus = "deflated" // idle timeout, earnings lost
)

// Resolved reports whether the trial reached a terminal state.
func (s TrialStatus) Resolved() bool {
	return s == TrialPopped || s == TrialCashedOut || s == TrialDeflated
}

// Trial holds the per-trial state owned by the trial engine.
//
// Threshold is drawn exactly once at trial creation and must never appear in
// any payload sent to a participant before the trial resolves; handlers build
// HUD responses field by field instead of serializing the whole struct.
type Trial struct {
	Index    int         `json:"index" redis:"index"`
	Practice bool        `json:"practice" redis:"practice"`
	Balloon  BalloonType `json:"balloon" redis:"balloon"`

	Threshold int         `json:"threshold" redis:"threshold"`
	Pumps     int         `json:"pumps" redis:"pumps"`
	Status    TrialStatus `json:"status" redis:"status"`

	// Earned accumulates reward per pump while active; it is zeroed on a pop
	// or deflation and locked in on cash-out.
	Earned float64 `json:"earned" redis:"earned"`
	// Potential is the counterfactual maximum for this trial: the value of
	// stopping one pump before the explosion, (Threshold-1) * reward.
	Potential float64 `json:"potential" redis:"potential"`

	Radius int `json:"radius" redis:"radius"`

	StartedAt  int64 `json:"started_at" redis:"started_at"`
	ResolvedAt int64 `json:"resolved_at" redis:"resolved_at"`
}

// Missed is the potential value left on the table, never negative.
func (t *Trial) Missed() float64 {
	m := t.Potential - t.Earned
	if m < 0 {
		return 0
	}
	return m
}

// Block is an ordered group of resolved trials aggregated for interim
// reporting. The main run is split into blocks of twenty.
type Block struct {
	ParticipantID string   `json:"participant_id"`
	Scope         string   `json:"scope"` // e.g. "block_1_20", "final_60"
	Trials        []*Trial `json:"trials"`
}

// BlockSummary is the pure aggregation over a set of trials. Deflated trials
// are excluded from every figure, matching the original task's bookkeeping.
type BlockSummary struct {
	TotalBalloons        int     `json:"total_balloons"`
	Unexploded           int     `json:"unexploded"`
	Exploded             int     `json:"exploded"`
	TotalPumpsUnexploded int     `json:"total_pumps_unexploded"`
	Earned               float64 `json:"earned"`
	Potential            float64 `json:"potential"`
	Missed               float64 `json:"missed"`
	MeanPumps            float64 `json:"mean_pumps"` // over unexploded balloons
	PopRate              float64 `json:"pop_rate"`
}

// SubjectRecord aggregates everything recorded for one participant session.
// It is written out once, when the session completes.
type SubjectRecord struct {
	ParticipantID string  `json:"participant_id"`
	Age           int     `json:"age"`
	Gender        string  `json:"gender"`
	Date          string  `json:"date"`
	TotalBanked   float64 `json:"total_banked"`
}
