package graph

import (
	"sort"
	"strings"
)

// FileImportance ranks a file by how much of the tree leans on it.
type FileImportance struct {
	File   string  `json:"file"`
	FanIn  int     `json:"fanIn"`
	FanOut int     `json:"fanOut"`
	Score  float64 `json:"score"`
}

// ImportanceScore weighs a file's reach:
//
//	Score = (FanIn * 2) + FanOut + (Entities * 0.5) + (IsAPI ? 10 : 0)
//
// where Entities counts the components, hooks, outbound calls and tables the
// file carries.
func ImportanceScore(fanIn, fanOut, entities int, file string) float64 {
	score := float64(fanIn*2) + float64(fanOut) + float64(entities)*0.5
	if isAPIFile(file) {
		score += 10
	}
	return score
}

// isAPIFile reports whether the path looks like an API surface.
func isAPIFile(file string) bool {
	lower := strings.ToLower(file)
	for _, kw := range []string{"api", "gateway", "handler", "server", "service", "route"} {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// TopImportance returns the n highest-scoring files, ties broken by path. A
// negative n returns all files.
func (g *Graph) TopImportance(n int) []FileImportance {
	out := make([]FileImportance, 0, len(g.files))
	for id, rec := range g.files {
		entities := len(rec.Components) + len(rec.Hooks) + len(rec.APICalls) + len(rec.Tables)
		out = append(out, FileImportance{
			File:   id,
			FanIn:  len(rec.Dependents),
			FanOut: len(rec.Dependencies),
			Score:  ImportanceScore(len(rec.Dependents), len(rec.Dependencies), entities, id),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].File < out[j].File
	})
	if n >= 0 && len(out) > n {
		out = out[:n]
	}
	return out
}
