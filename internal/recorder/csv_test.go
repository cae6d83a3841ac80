package recorder_test

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"bart-backend/internal/recorder"
)

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open %s: %v", path, err)
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return rows
}

func TestCSVRecorderWritesHeaderOnce(t *testing.T) {
	dir := t.TempDir()
	r, err := recorder.NewCSVRecorder(dir)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()

	sub := &recorder.SubjectRow{ParticipantID: "s1", Age: 24, Gender: "female", Date: "2026-08-31_10:00", TotalBanked: 21.5}
	if err := r.RecordSubject(sub); err != nil {
		t.Fatal(err)
	}
	sub.ParticipantID = "s2"
	if err := r.RecordSubject(sub); err != nil {
		t.Fatal(err)
	}

	rows := readCSV(t, filepath.Join(dir, "subjects.csv"))
	if len(rows) != 3 {
		t.Fatalf("expected header + 2 rows, got %d rows", len(rows))
	}
	if rows[0][0] != "participant_id" {
		t.Errorf("expected header first, got %v", rows[0])
	}
	if rows[1][0] != "s1" || rows[2][0] != "s2" {
		t.Errorf("rows out of order: %v %v", rows[1], rows[2])
	}
	if rows[1][4] != "21.50" {
		t.Errorf("expected total_banked 21.50, got %q", rows[1][4])
	}
}

func TestCSVRecorderTrialRow(t *testing.T) {
	dir := t.TempDir()
	r, err := recorder.NewCSVRecorder(dir)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()

	err = r.RecordTrial(&recorder.TrialRow{
		ParticipantID:    "s1",
		TrialNumber:      12,
		Color:            "green",
		MaxPumps:         32,
		PumpsMade:        9,
		Exploded:         false,
		EarnedThis:       4.5,
		BankedTotalAfter: 17.0,
		PotentialThis:    10.5,
		MissedThis:       6.0,
		Timestamp:        "2026-08-31_10:05:00",
	})
	if err != nil {
		t.Fatal(err)
	}

	rows := readCSV(t, filepath.Join(dir, "trials.csv"))
	if len(rows) != 2 {
		t.Fatalf("expected header + 1 row, got %d", len(rows))
	}
	got := rows[1]
	want := []string{"s1", "12", "green", "32", "9", "0", "4.50", "17.00", "10.50", "6.00", "2026-08-31_10:05:00"}
	if len(got) != len(want) {
		t.Fatalf("expected %d columns, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("column %d: expected %q, got %q", i, want[i], got[i])
		}
	}
}

func TestCSVRecorderBlockRow(t *testing.T) {
	dir := t.TempDir()
	r, err := recorder.NewCSVRecorder(dir)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()

	err = r.RecordBlock(&recorder.BlockRow{
		ParticipantID:        "s1",
		Scope:                "block_1_20",
		TotalBalloons:        20,
		Unexploded:           14,
		Exploded:             6,
		TotalPumpsUnexploded: 91,
		Earned:               45.5,
		Potential:            80.0,
		Missed:               34.5,
	})
	if err != nil {
		t.Fatal(err)
	}

	rows := readCSV(t, filepath.Join(dir, "blocks.csv"))
	if len(rows) != 2 {
		t.Fatalf("expected header + 1 row, got %d", len(rows))
	}
	if rows[1][1] != "block_1_20" || rows[1][2] != "20" || rows[1][6] != "45.50" {
		t.Errorf("unexpected block row: %v", rows[1])
	}
}
