package models

// TaskEventType labels a single auditable action within a session.
type TaskEventType string

const (
	EventPump    TaskEventType = "pump"
	EventCashOut TaskEventType = "cash_out"
	EventPop     TaskEventType = "pop"
	EventDeflate TaskEventType = "deflate"
)

// TaskEvent is an append-only audit record of a participant action and its
// immediate effect on the banks. Kept in Redis alongside the session so a
// run can be reconstructed action by action.
type TaskEvent struct {
	ID            string        `json:"id" redis:"id"`
	ParticipantID string        `json:"participant_id" redis:"participant_id"`
	TrialIndex    int           `json:"trial_index" redis:"trial_index"`
	Type          TaskEventType `json:"type" redis:"type"`
	Pumps         int           `json:"pumps" redis:"pumps"`
	TempBank      float64       `json:"temp_bank" redis:"temp_bank"`
	BankedAfter   float64       `json:"banked_after" redis:"banked_after"`
	CreatedAt     int64         `json:"created_at" redis:"created_at"`
}
