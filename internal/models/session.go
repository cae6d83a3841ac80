package models

// SessionPhase tracks where a participant is in the task flow.
type SessionPhase string

const (
	PhaseIntro    SessionPhase = "intro"
	PhasePractice SessionPhase = "practice"
	PhaseMain     SessionPhase = "main"
	PhaseComplete SessionPhase = "complete"
)

// TaskSession is the live per-participant session state. The active trial is
// embedded; resolved trials are appended to the session's trial list in Redis
// and re-read for block summaries.
type TaskSession struct {
	ID            string `json:"id" redis:"id"`
	ParticipantID string `json:"participant_id" redis:"participant_id"`
	Age           int    `json:"age" redis:"age"`
	Gender        string `json:"gender" redis:"gender"`
	Date          string `json:"date" redis:"date"`

	Phase SessionPhase `json:"phase" redis:"phase"`

	// Schedule is the shuffled balloon-type name per main trial, fixed at
	// session creation so the whole run is replayable.
	Schedule []string `json:"schedule" redis:"-"`

	TrialIndex    int `json:"trial_index" redis:"trial_index"`       // 1-based, main run
	PracticeIndex int `json:"practice_index" redis:"practice_index"` // 1-based

	Active *Trial `json:"active,omitempty" redis:"-"`

	// Banked is the permanent bank: cash-outs accumulate here, pops do not
	// touch it. Practice earnings are tracked separately and discarded.
	Banked         float64 `json:"banked" redis:"banked"`
	PracticeBanked float64 `json:"practice_banked" redis:"practice_banked"`

	// Seed material disclosed after the session for outcome verification.
	SeedHash string `json:"seed_hash" redis:"seed_hash"`

	CreatedAt int64 `json:"created_at" redis:"created_at"`
	UpdatedAt int64 `json:"updated_at" redis:"updated_at"`
	EndedAt   int64 `json:"ended_at" redis:"ended_at"`
}

// MainTrialCount is the total number of main-run trials in the schedule.
func (s *TaskSession) MainTrialCount() int {
	return len(s.Schedule)
}
