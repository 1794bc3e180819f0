// Package diff compares two versions of a file. Both operations are pure and
// deterministic.
package diff

import (
	"changeimpact/internal/engine/parser"
	"sort"
	"strings"
)

type ChangeKind string

const (
	RemovedExport    ChangeKind = "removed_export"
	RemovedFunction  ChangeKind = "removed_function"
	ChangedSignature ChangeKind = "changed_signature"
)

type Severity string

const (
	SeverityHigh   Severity = "high"
	SeverityMedium Severity = "medium"
	SeverityLow    Severity = "low"
)

type BreakingChange struct {
	Kind     ChangeKind `json:"kind"`
	Name     string     `json:"name"`
	Severity Severity   `json:"severity"`
	Before   string     `json:"before,omitempty"`
	After    string     `json:"after,omitempty"`
}

func (c BreakingChange) String() string {
	return string(c.Kind) + ":" + c.Name + ":" + string(c.Severity)
}

type Stats struct {
	Added   int `json:"added"`
	Removed int `json:"removed"`
}

// LineDiff counts lines present in one version and absent from the other.
// It is a set difference, not a longest-common-subsequence diff: reordering
// lines without changing them is invisible.
func LineDiff(oldText, newText string) Stats {
	oldLines := splitLines(oldText)
	newLines := splitLines(newText)

	oldSet := make(map[string]struct{}, len(oldLines))
	for _, l := range oldLines {
		oldSet[l] = struct{}{}
	}
	newSet := make(map[string]struct{}, len(newLines))
	for _, l := range newLines {
		newSet[l] = struct{}{}
	}

	var stats Stats
	for _, l := range newLines {
		if _, ok := oldSet[l]; !ok {
			stats.Added++
		}
	}
	for _, l := range oldLines {
		if _, ok := newSet[l]; !ok {
			stats.Removed++
		}
	}
	return stats
}

// LineCount returns the number of lines LineDiff sees in text.
func LineCount(text string) int {
	return len(splitLines(text))
}

func splitLines(text string) []string {
	if text == "" {
		return nil
	}
	return strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
}

// BreakingChanges reports exports that disappeared, functions that
// disappeared, and functions whose parameter text changed. The result is
// ordered by kind then name and is empty when oldText == newText.
func BreakingChanges(oldText, newText string) []BreakingChange {
	out := make([]BreakingChange, 0)
	if oldText == newText {
		return out
	}

	newExports := make(map[string]bool)
	for _, name := range parser.ExportNames(newText) {
		newExports[name] = true
	}
	for _, name := range parser.ExportNames(oldText) {
		if !newExports[name] {
			out = append(out, BreakingChange{Kind: RemovedExport, Name: name, Severity: SeverityHigh})
		}
	}

	oldSigs := parser.FunctionSignatures(oldText)
	newSigs := parser.FunctionSignatures(newText)
	names := make([]string, 0, len(oldSigs))
	for name := range oldSigs {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		before := oldSigs[name]
		after, ok := newSigs[name]
		switch {
		case !ok:
			out = append(out, BreakingChange{Kind: RemovedFunction, Name: name, Severity: SeverityHigh, Before: before})
		case after != before:
			out = append(out, BreakingChange{Kind: ChangedSignature, Name: name, Severity: SeverityMedium, Before: before, After: after})
		}
	}
	return out
}
