package engine

import (
	"math/rand"

	"bart-backend/internal/models"
)

// Summarize aggregates resolved trials into a block summary. It is pure and
// deterministic: same trials in, same figures out. Deflated trials are
// skipped entirely, and still-active trials are ignored.
func Summarize(trials []*models.Trial) models.BlockSummary {
	var s models.BlockSummary

	for _, t := range trials {
		switch t.Status {
		case models.TrialPopped:
			s.TotalBalloons++
			s.Exploded++
			s.Potential += t.Potential
		case models.TrialCashedOut:
			s.TotalBalloons++
			s.Unexploded++
			s.TotalPumpsUnexploded += t.Pumps
			s.Earned += t.Earned
			s.Potential += t.Potential
		}
	}

	s.Missed = s.Potential - s.Earned
	if s.Missed < 0 {
		s.Missed = 0
	}
	if s.Unexploded > 0 {
		s.MeanPumps = float64(s.TotalPumpsUnexploded) / float64(s.Unexploded)
	}
	if s.TotalBalloons > 0 {
		s.PopRate = float64(s.Exploded) / float64(s.TotalBalloons)
	}

	return s
}

// BuildSchedule expands the balloon types into reps trials each and shuffles
// them with the given seed. A fixed seed yields the same presentation order
// on every run, which keeps whole sessions replayable.
func BuildSchedule(types []models.BalloonType, reps int, seed int64) []string {
	names := make([]string, 0, len(types)*reps)
	for _, bt := range types {
		for i := 0; i < reps; i++ {
			names = append(names, bt.Name)
		}
	}

	rng := rand.New(rand.NewSource(seed))
	rng.Shuffle(len(names), func(i, j int) {
		names[i], names[j] = names[j], names[i]
	})
	return names
}
