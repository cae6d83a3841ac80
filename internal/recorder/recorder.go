package recorder

// SubjectRow is one line of subjects.csv: participant intake data plus the
// final banked total, written once when the session completes.
type SubjectRow struct {
	ParticipantID string
	Age           int
	Gender        string
	Date          string
	TotalBanked   float64
}

// TrialRow is one line of trials.csv: a single resolved main-run trial.
type TrialRow struct {
	ParticipantID    string
	TrialNumber      int
	Color            string
	MaxPumps         int
	PumpsMade        int
	Exploded         bool
	EarnedThis       float64
	BankedTotalAfter float64
	PotentialThis    float64
	MissedThis       float64
	Timestamp        string
}

// BlockRow is one line of blocks.csv: an aggregate over a block of trials.
type BlockRow struct {
	ParticipantID        string
	Scope                string // "block_1_20", "block_21_40", "final_60"
	TotalBalloons        int
	Unexploded           int
	Exploded             int
	TotalPumpsUnexploded int
	Earned               float64
	Potential            float64
	Missed               float64
}

// Recorder persists finalized task data for offline analysis. Implementations
// must be safe for use from the request goroutines.
type Recorder interface {
	RecordSubject(row *SubjectRow) error
	RecordTrial(row *TrialRow) error
	RecordBlock(row *BlockRow) error
	Close() error
}
