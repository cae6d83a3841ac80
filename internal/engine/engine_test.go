package engine_test

import (
	"errors"
	"math"
	"testing"

	"bart-backend/internal/engine"
	"bart-backend/internal/models"
)

func testBalloon() models.BalloonType {
	return models.BalloonType{Name: "red", Color: "#d62828", MaxPumps: 8, RewardPerPump: 0.5}
}

func TestStartTrialDeterministic(t *testing.T) {
	e1 := engine.New("seed-910273")
	e2 := engine.New("seed-910273")

	for idx := 1; idx <= 60; idx++ {
		a := e1.StartTrial(testBalloon(), "subj-1", idx)
		b := e2.StartTrial(testBalloon(), "subj-1", idx)

		if a.Threshold != b.Threshold {
			t.Fatalf("trial %d: thresholds differ: %d vs %d", idx, a.Threshold, b.Threshold)
		}
		if a.Threshold < 1 || a.Threshold > testBalloon().MaxPumps {
			t.Errorf("trial %d: threshold %d outside [1, %d]", idx, a.Threshold, testBalloon().MaxPumps)
		}
		if a.Pumps != 0 || a.Status != models.TrialActive {
			t.Errorf("trial %d: expected fresh active trial, got pumps=%d status=%s", idx, a.Pumps, a.Status)
		}
	}
}

func TestStartTrialVariesAcrossSeeds(t *testing.T) {
	bt := models.BalloonType{Name: "green", MaxPumps: 32, RewardPerPump: 0.5}

	same := true
	for idx := 1; idx <= 20; idx++ {
		a := engine.New("seed-a").StartTrial(bt, "subj-1", idx)
		b := engine.New("seed-b").StartTrial(bt, "subj-1", idx)
		if a.Threshold != b.Threshold {
			same = false
		}
	}
	if same {
		t.Error("different task seeds produced identical threshold sequences")
	}
}

func TestPumpThenCashOut(t *testing.T) {
	e := engine.New("seed")
	trial := &models.Trial{
		Index:     1,
		Balloon:   models.BalloonType{Name: "red", MaxPumps: 8, RewardPerPump: 1.0},
		Threshold: 5,
		Status:    models.TrialActive,
		Potential: 4.0,
		Radius:    models.StartRadius,
	}

	for i := 0; i < 4; i++ {
		if err := e.Pump(trial); err != nil {
			t.Fatalf("pump %d failed: %v", i+1, err)
		}
	}
	if trial.Earned != 4.0 {
		t.Errorf("expected earned 4.0 after 4 pumps, got %.2f", trial.Earned)
	}

	if err := e.CashOut(trial); err != nil {
		t.Fatalf("cash out failed: %v", err)
	}
	if trial.Status != models.TrialCashedOut {
		t.Errorf("expected cashed_out, got %s", trial.Status)
	}
	if trial.Earned != 4.0 {
		t.Errorf("cash out should lock in 4.0, got %.2f", trial.Earned)
	}
	if trial.Pumps != 4 {
		t.Errorf("pump count should equal pumps made, got %d", trial.Pumps)
	}
}

func TestPumpToThresholdPops(t *testing.T) {
	e := engine.New("seed")
	trial := &models.Trial{
		Balloon:   models.BalloonType{Name: "red", MaxPumps: 8, RewardPerPump: 1.0},
		Threshold: 5,
		Status:    models.TrialActive,
		Potential: 4.0,
		Radius:    models.StartRadius,
	}

	for i := 0; i < 5; i++ {
		if err := e.Pump(trial); err != nil {
			t.Fatalf("pump %d failed: %v", i+1, err)
		}
	}

	if trial.Status != models.TrialPopped {
		t.Fatalf("expected popped at threshold, got %s", trial.Status)
	}
	if trial.Earned != 0 {
		t.Errorf("pop should zero earnings, got %.2f", trial.Earned)
	}
	if trial.Pumps != trial.Threshold {
		t.Errorf("pump count at pop should equal threshold: %d vs %d", trial.Pumps, trial.Threshold)
	}
}

func TestResolvedTrialRejectsOperations(t *testing.T) {
	e := engine.New("seed")

	for _, status := range []models.TrialStatus{models.TrialPopped, models.TrialCashedOut, models.TrialDeflated} {
		trial := &models.Trial{Balloon: testBalloon(), Threshold: 5, Status: status}

		if err := e.Pump(trial); !errors.Is(err, engine.ErrTrialResolved) {
			t.Errorf("pump on %s trial: expected ErrTrialResolved, got %v", status, err)
		}
		if err := e.CashOut(trial); !errors.Is(err, engine.ErrTrialResolved) {
			t.Errorf("cash out on %s trial: expected ErrTrialResolved, got %v", status, err)
		}
		if err := e.Deflate(trial); !errors.Is(err, engine.ErrTrialResolved) {
			t.Errorf("deflate on %s trial: expected ErrTrialResolved, got %v", status, err)
		}
	}
}

func TestNeverExceedsThresholdWithoutPopping(t *testing.T) {
	e := engine.New("property-seed")
	bt := models.BalloonType{Name: "blue", MaxPumps: 12, RewardPerPump: 0.5}

	for idx := 1; idx <= 100; idx++ {
		trial := e.StartTrial(bt, "subj-9", idx)
		for trial.Status == models.TrialActive {
			if err := e.Pump(trial); err != nil {
				t.Fatalf("trial %d: %v", idx, err)
			}
		}
		if trial.Status != models.TrialPopped {
			t.Fatalf("trial %d: pumping forever must pop, got %s", idx, trial.Status)
		}
		if trial.Pumps != trial.Threshold {
			t.Errorf("trial %d: resolved with pumps=%d threshold=%d", idx, trial.Pumps, trial.Threshold)
		}
	}
}

func TestDeflateDiscardsEverything(t *testing.T) {
	e := engine.New("seed")
	trial := &models.Trial{
		Balloon:   models.BalloonType{Name: "green", MaxPumps: 32, RewardPerPump: 0.5},
		Threshold: 20,
		Status:    models.TrialActive,
		Potential: 9.5,
		Radius:    models.StartRadius,
	}

	for i := 0; i < 6; i++ {
		if err := e.Pump(trial); err != nil {
			t.Fatal(err)
		}
	}
	if err := e.Deflate(trial); err != nil {
		t.Fatal(err)
	}

	if trial.Status != models.TrialDeflated {
		t.Errorf("expected deflated, got %s", trial.Status)
	}
	if trial.Earned != 0 || trial.Potential != 0 {
		t.Errorf("deflation should discard earnings and potential, got %.2f / %.2f",
			trial.Earned, trial.Potential)
	}
}

func TestPracticeHazard(t *testing.T) {
	e := engine.New("seed")
	bt := models.BalloonType{Name: "red", MaxPumps: 8, RewardPerPump: 0.5}

	// A roll of 0.99 survives every hazard below 0.99; the hazard reaches
	// certainty one pump before the ceiling, so that is where the pop lands.
	trial := e.StartPracticeTrial(bt, 1)
	for trial.Status == models.TrialActive {
		if err := e.PumpHazard(trial, 0.99); err != nil {
			t.Fatal(err)
		}
	}
	if trial.Status != models.TrialPopped {
		t.Fatalf("practice balloon must eventually pop, got %s", trial.Status)
	}
	if trial.Pumps != bt.MaxPumps-1 {
		t.Errorf("expected pop at pump %d, got %d", bt.MaxPumps-1, trial.Pumps)
	}

	// A roll of 0 pops on the first pump.
	trial = e.StartPracticeTrial(bt, 2)
	if err := e.PumpHazard(trial, 0.0); err != nil {
		t.Fatal(err)
	}
	if trial.Status != models.TrialPopped || trial.Pumps != 1 {
		t.Errorf("zero roll should pop immediately, got status=%s pumps=%d", trial.Status, trial.Pumps)
	}
}

func TestVerifyThresholdMatchesStartTrial(t *testing.T) {
	e := engine.New("verify-seed")
	bt := models.BalloonType{Name: "blue", MaxPumps: 12, RewardPerPump: 0.5}

	trial := e.StartTrial(bt, "subj-2", 7)

	threshold, digest, err := engine.VerifyThreshold("verify-seed", "subj-2", 7, bt.MaxPumps)
	if err != nil {
		t.Fatalf("verification failed: %v", err)
	}
	if threshold != trial.Threshold {
		t.Errorf("verification mismatch: expected %d, got %d", trial.Threshold, threshold)
	}
	if digest == "" {
		t.Error("verification should return the digest")
	}

	if _, _, err := engine.VerifyThreshold("verify-seed", "subj-2", 7, 0); err == nil {
		t.Error("zero max pumps should be rejected")
	}
}

func TestSummarize(t *testing.T) {
	reward := 1.0
	mk := func(earned float64, pumps int, status models.TrialStatus, potential float64) *models.Trial {
		return &models.Trial{
			Balloon:   models.BalloonType{Name: "red", MaxPumps: 8, RewardPerPump: reward},
			Pumps:     pumps,
			Status:    status,
			Earned:    earned,
			Potential: potential,
		}
	}

	// Earnings [4, 0, 7, 0]: two cash-outs, two pops.
	trials := []*models.Trial{
		mk(4, 4, models.TrialCashedOut, 5),
		mk(0, 6, models.TrialPopped, 5),
		mk(7, 7, models.TrialCashedOut, 9),
		mk(0, 3, models.TrialPopped, 2),
	}

	s := engine.Summarize(trials)

	if s.Earned != 11 {
		t.Errorf("expected total earned 11, got %.2f", s.Earned)
	}
	if s.PopRate != 0.5 {
		t.Errorf("expected pop rate 0.5, got %.2f", s.PopRate)
	}
	if s.TotalBalloons != 4 || s.Exploded != 2 || s.Unexploded != 2 {
		t.Errorf("unexpected counts: total=%d exploded=%d unexploded=%d",
			s.TotalBalloons, s.Exploded, s.Unexploded)
	}
	if s.TotalPumpsUnexploded != 11 {
		t.Errorf("expected 11 pumps over unexploded balloons, got %d", s.TotalPumpsUnexploded)
	}
	if math.Abs(s.MeanPumps-5.5) > 1e-9 {
		t.Errorf("expected mean pumps 5.5, got %.4f", s.MeanPumps)
	}
	if s.Potential != 21 || s.Missed != 10 {
		t.Errorf("expected potential 21 missed 10, got %.2f / %.2f", s.Potential, s.Missed)
	}
}

func TestSummarizeSkipsDeflatedAndActive(t *testing.T) {
	trials := []*models.Trial{
		{Status: models.TrialCashedOut, Earned: 2, Pumps: 4, Potential: 3},
		{Status: models.TrialDeflated},
		{Status: models.TrialActive, Earned: 1, Pumps: 2},
	}

	s := engine.Summarize(trials)
	if s.TotalBalloons != 1 {
		t.Errorf("deflated and active trials must not count, got total=%d", s.TotalBalloons)
	}
	if s.Earned != 2 {
		t.Errorf("expected earned 2, got %.2f", s.Earned)
	}
}

func TestSummarizeEmpty(t *testing.T) {
	s := engine.Summarize(nil)
	if s.TotalBalloons != 0 || s.PopRate != 0 || s.MeanPumps != 0 {
		t.Errorf("empty input should yield zero summary, got %+v", s)
	}
}

func TestBuildSchedule(t *testing.T) {
	types := models.DefaultBalloonTypes()

	a := engine.BuildSchedule(types, 20, 52472)
	b := engine.BuildSchedule(types, 20, 52472)

	if len(a) != 60 {
		t.Fatalf("expected 60 scheduled trials, got %d", len(a))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("schedule not reproducible at position %d: %s vs %s", i, a[i], b[i])
		}
	}

	counts := map[string]int{}
	for _, name := range a {
		counts[name]++
	}
	for _, bt := range types {
		if counts[bt.Name] != 20 {
			t.Errorf("balloon %s scheduled %d times, want 20", bt.Name, counts[bt.Name])
		}
	}
}

func TestSeedHashCommitment(t *testing.T) {
	e := engine.New("seed-910273")
	if e.SeedHash() == "" || e.SeedHash() == e.TaskSeed() {
		t.Error("seed hash should be a digest of the seed, not the seed itself")
	}
	if e.SeedHash() != engine.New("seed-910273").SeedHash() {
		t.Error("seed hash must be stable for a fixed seed")
	}
}
