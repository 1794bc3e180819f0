package query

import (
	"changeimpact/internal/engine/graph"
	"changeimpact/internal/engine/parser"
	"strings"
)

// Execute runs q against a graph snapshot and returns the matching files
// ranked by importance. A limit <= 0 returns every match.
func Execute(g *graph.Graph, q CQLQuery, limit int) []graph.FileImportance {
	ranked := g.TopImportance(-1)
	out := make([]graph.FileImportance, 0, len(ranked))
	for _, row := range ranked {
		rec, ok := g.File(row.File)
		if !ok || !matchesAll(rec, q.Conditions) {
			continue
		}
		out = append(out, row)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}

func matchesAll(rec *parser.FileRecord, conds []CQLCondition) bool {
	for _, c := range conds {
		if !matches(rec, c) {
			return false
		}
	}
	return true
}

func matches(rec *parser.FileRecord, c CQLCondition) bool {
	if c.IsInt {
		return compareInt(numericValue(rec, c.Field), c.Op, c.IntVal)
	}
	values := stringValues(rec, c.Field)
	switch c.Op {
	case "contains":
		for _, v := range values {
			if strings.Contains(v, c.StrVal) {
				return true
			}
		}
		return false
	case "!=":
		for _, v := range values {
			if v == c.StrVal {
				return false
			}
		}
		return true
	default:
		for _, v := range values {
			if v == c.StrVal {
				return true
			}
		}
		return false
	}
}

func numericValue(rec *parser.FileRecord, field string) int {
	switch field {
	case "fan_in":
		return len(rec.Dependents)
	case "fan_out":
		return len(rec.Dependencies)
	case "exports":
		return len(rec.Exports)
	case "functions":
		return len(rec.Functions)
	case "components":
		return len(rec.Components)
	case "hooks":
		return len(rec.Hooks)
	case "api_calls":
		return len(rec.APICalls)
	case "tables":
		return len(rec.Tables)
	}
	return 0
}

// stringValues returns the values a string field tests against. Multi-valued
// fields match when any value does.
func stringValues(rec *parser.FileRecord, field string) []string {
	switch field {
	case "path":
		return []string{rec.Path}
	case "export":
		names := make([]string, len(rec.Exports))
		for i, e := range rec.Exports {
			names[i] = e.Name
		}
		return names
	case "table":
		return rec.Tables
	}
	return nil
}

func compareInt(got int, op string, want int) bool {
	switch op {
	case ">":
		return got > want
	case ">=":
		return got >= want
	case "<":
		return got < want
	case "<=":
		return got <= want
	case "!=":
		return got != want
	default:
		return got == want
	}
}
