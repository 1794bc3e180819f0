package risk

import (
	"changeimpact/internal/engine/diff"
	"changeimpact/internal/engine/graph"
	"math"
)

const (
	MinScore = 0
	MaxScore = 10
)

type Level string

const (
	LevelHigh   Level = "high"
	LevelMedium Level = "medium"
	LevelLow    Level = "low"
)

// LevelFor buckets a score: >= 7 high, >= 4 medium, otherwise low.
func LevelFor(score int) Level {
	switch {
	case score >= 7:
		return LevelHigh
	case score >= 4:
		return LevelMedium
	default:
		return LevelLow
	}
}

// Weights used by the heuristic scorer.
var (
	weightBySeverity = map[diff.Severity]float64{
		diff.SeverityHigh:   3,
		diff.SeverityMedium: 2,
		diff.SeverityLow:    1,
	}
	weightDirect    = 1.0
	weightIndirect  = 0.5
	weightComponent = 1.0
	weightAPI       = 2.0
	weightTable     = 2.0
)

type Scorer interface {
	Score(changes []diff.BreakingChange, affected graph.AffectedSet) int
}

// Heuristic is the always-available scorer.
type Heuristic struct{}

var _ Scorer = Heuristic{}

// Score sums weighted breaking changes and affected entities, rounds, and
// clamps to [0, 10]. When anything was found the result is at least 1.
func (Heuristic) Score(changes []diff.BreakingChange, affected graph.AffectedSet) int {
	raw := Raw(changes, affected)
	hasIssue := len(changes) > 0 || !affected.IsEmpty()
	return Clamp(raw, hasIssue)
}

// Raw returns the unrounded weighted sum.
func Raw(changes []diff.BreakingChange, affected graph.AffectedSet) float64 {
	total := 0.0
	for _, c := range changes {
		total += weightBySeverity[c.Severity]
	}
	return total + AffectedWeight(affected)
}

// AffectedWeight is the affected-set share of the heuristic score.
func AffectedWeight(affected graph.AffectedSet) float64 {
	return float64(len(affected.Direct))*weightDirect +
		float64(len(affected.Indirect))*weightIndirect +
		float64(len(affected.Components))*weightComponent +
		float64(len(affected.APIs))*weightAPI +
		float64(len(affected.Tables))*weightTable
}

// Clamp rounds raw into [MinScore, MaxScore], raising it to 1 when floor is set.
func Clamp(raw float64, floor bool) int {
	score := int(math.Round(raw))
	if score > MaxScore {
		score = MaxScore
	}
	if score < MinScore {
		score = MinScore
	}
	if floor && score < 1 {
		score = 1
	}
	return score
}
