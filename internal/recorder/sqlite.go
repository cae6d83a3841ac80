package recorder

import (
	"database/sql"
	"fmt"
	"log"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteRecorder persists task data to a SQLite database, mirroring the CSV
// columns so analyses can run against either backend.
type SQLiteRecorder struct {
	db *sql.DB
	mu sync.Mutex
}

// NewSQLiteRecorder opens (or creates) the database and runs migrations.
func NewSQLiteRecorder(dbPath string) (*SQLiteRecorder, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL mode so analysis tools can read while sessions write.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	log.Printf("[INFO] sqlite recorder opened: %s", dbPath)
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS subjects (
			id             INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp      INTEGER NOT NULL,
			participant_id TEXT NOT NULL,
			age            INTEGER,
			gender         TEXT,
			date           TEXT,
			total_banked   REAL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_subjects_pid ON subjects(participant_id)`,

		`CREATE TABLE IF NOT EXISTS trials (
			id                 INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp          INTEGER NOT NULL,
			participant_id     TEXT NOT NULL,
			trial_number       INTEGER,
			color              TEXT,
			max_pumps          INTEGER,
			pumps_made         INTEGER,
			exploded           INTEGER,
			earned_this        REAL,
			banked_total_after REAL,
			potential_this     REAL,
			missed_this        REAL,
			recorded_at        TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_trials_pid ON trials(participant_id)`,

		`CREATE TABLE IF NOT EXISTS blocks (
			id                     INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp              INTEGER NOT NULL,
			participant_id         TEXT NOT NULL,
			scope                  TEXT,
			total_balloons         INTEGER,
			unexploded             INTEGER,
			exploded               INTEGER,
			total_pumps_unexploded INTEGER,
			earned                 REAL,
			potential              REAL,
			missed                 REAL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_blocks_pid ON blocks(participant_id)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

func (r *SQLiteRecorder) RecordSubject(row *SubjectRow) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.Exec(`INSERT INTO subjects
		(timestamp, participant_id, age, gender, date, total_banked)
		VALUES (?,?,?,?,?,?)`,
		time.Now().Unix(), row.ParticipantID, row.Age, row.Gender, row.Date, row.TotalBanked,
	)
	return err
}

func (r *SQLiteRecorder) RecordTrial(row *TrialRow) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	exploded := 0
	if row.Exploded {
		exploded = 1
	}
	_, err := r.db.Exec(`INSERT INTO trials
		(timestamp, participant_id, trial_number, color, max_pumps, pumps_made,
		 exploded, earned_this, banked_total_after, potential_this, missed_this, recorded_at)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?)`,
		time.Now().Unix(), row.ParticipantID, row.TrialNumber, row.Color,
		row.MaxPumps, row.PumpsMade, exploded, row.EarnedThis,
		row.BankedTotalAfter, row.PotentialThis, row.MissedThis, row.Timestamp,
	)
	return err
}

func (r *SQLiteRecorder) RecordBlock(row *BlockRow) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.Exec(`INSERT INTO blocks
		(timestamp, participant_id, scope, total_balloons, unexploded, exploded,
		 total_pumps_unexploded, earned, potential, missed)
		VALUES (?,?,?,?,?,?,?,?,?,?)`,
		time.Now().Unix(), row.ParticipantID, row.Scope, row.TotalBalloons,
		row.Unexploded, row.Exploded, row.TotalPumpsUnexploded,
		row.Earned, row.Potential, row.Missed,
	)
	return err
}

func (r *SQLiteRecorder) Close() error {
	log.Println("[INFO] closing sqlite recorder")
	return r.db.Close()
}
