package recorder

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
)

// CSVRecorder appends rows to the three flat files the analysis scripts
// expect: subjects.csv, trials.csv and blocks.csv. A header is written only
// when a file is first created, so repeated sessions accumulate in place.
type CSVRecorder struct {
	dir string
	mu  sync.Mutex
}

var (
	subjectHeader = []string{"participant_id", "age", "gender", "date", "total_banked"}
	trialHeader   = []string{
		"participant_id", "trial_number", "color", "max_pumps", "pumps_made",
		"exploded", "earned_this", "banked_total_after", "potential_this",
		"missed_this", "timestamp",
	}
	blockHeader = []string{
		"participant_id", "scope", "total_balloons", "unexploded", "exploded",
		"total_pumps_unexploded", "earned", "potential", "missed",
	}
)

// NewCSVRecorder ensures the output directory exists.
func NewCSVRecorder(dir string) (*CSVRecorder, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	return &CSVRecorder{dir: dir}, nil
}

func (r *CSVRecorder) appendRow(name string, header, row []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	path := filepath.Join(r.dir, name)
	_, statErr := os.Stat(path)
	writeHeader := os.IsNotExist(statErr)

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open %s: %w", name, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if writeHeader {
		if err := w.Write(header); err != nil {
			return fmt.Errorf("write header to %s: %w", name, err)
		}
	}
	if err := w.Write(row); err != nil {
		return fmt.Errorf("write row to %s: %w", name, err)
	}
	w.Flush()
	return w.Error()
}

func (r *CSVRecorder) RecordSubject(row *SubjectRow) error {
	return r.appendRow("subjects.csv", subjectHeader, []string{
		row.ParticipantID,
		strconv.Itoa(row.Age),
		row.Gender,
		row.Date,
		fmt.Sprintf("%.2f", row.TotalBanked),
	})
}

func (r *CSVRecorder) RecordTrial(row *TrialRow) error {
	exploded := "0"
	if row.Exploded {
		exploded = "1"
	}
	return r.appendRow("trials.csv", trialHeader, []string{
		row.ParticipantID,
		strconv.Itoa(row.TrialNumber),
		row.Color,
		strconv.Itoa(row.MaxPumps),
		strconv.Itoa(row.PumpsMade),
		exploded,
		fmt.Sprintf("%.2f", row.EarnedThis),
		fmt.Sprintf("%.2f", row.BankedTotalAfter),
		fmt.Sprintf("%.2f", row.PotentialThis),
		fmt.Sprintf("%.2f", row.MissedThis),
		row.Timestamp,
	})
}

func (r *CSVRecorder) RecordBlock(row *BlockRow) error {
	return r.appendRow("blocks.csv", blockHeader, []string{
		row.ParticipantID,
		row.Scope,
		strconv.Itoa(row.TotalBalloons),
		strconv.Itoa(row.Unexploded),
		strconv.Itoa(row.Exploded),
		strconv.Itoa(row.TotalPumpsUnexploded),
		fmt.Sprintf("%.2f", row.Earned),
		fmt.Sprintf("%.2f", row.Potential),
		fmt.Sprintf("%.2f", row.Missed),
	})
}

func (r *CSVRecorder) Close() error { return nil }
