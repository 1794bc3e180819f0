package judge

import (
	"changeimpact/internal/core/ports"
	"changeimpact/internal/engine/diff"
	"changeimpact/internal/engine/risk"
	"changeimpact/internal/engine/secrets"
	"context"
	"fmt"
	"regexp"
	"strings"
)

const SourceHeuristic = "heuristic"

var (
	unsafeAnyRE = regexp.MustCompile(`:\s*any\b|\bas\s+any\b|<any>`)
	todoRE      = regexp.MustCompile(`\b(?:TODO|FIXME|HACK|XXX)\b`)
)

// Signal weights layered on top of the structural score.
const (
	weightEmptied       = 4.0
	weightSecret        = 3.0
	weightSecretMedium  = 1.5
	weightUnsafeAny     = 1.0
	weightUnsafeAnyMany = 2.0
	weightOversized     = 1.0
	weightTodo          = 0.5
)

type HeuristicOptions struct {
	OversizedLines int
	Detector       *secrets.Detector
}

// Heuristic is the local deterministic judge. It inspects the raw text for
// risk signals and adds the structural breaking-change and affected-set
// weighting.
type Heuristic struct {
	oversizedLines int
	detector       *secrets.Detector
}

var _ ports.Judge = (*Heuristic)(nil)

func NewHeuristic(opts HeuristicOptions) *Heuristic {
	if opts.OversizedLines <= 0 {
		opts.OversizedLines = 500
	}
	return &Heuristic{oversizedLines: opts.OversizedLines, detector: opts.Detector}
}

func (h *Heuristic) Analyze(_ context.Context, req ports.JudgeRequest) ports.JudgeOutput {
	out := emptyOutput(SourceHeuristic)
	total := risk.Raw(req.BreakingChanges, req.Affected)

	emptied := strings.TrimSpace(req.Content) == "" && strings.TrimSpace(req.OldContent) != ""
	if emptied {
		total += weightEmptied
		out.Issues = append(out.Issues, ports.Issue{Severity: "high", Message: "file content was removed"})
		out.Recommendations = append(out.Recommendations, "Confirm the deletion is intended and remove remaining importers.")
	}

	if n := len(unsafeAnyRE.FindAllStringIndex(req.Content, -1)); n > 0 {
		if n >= 5 {
			total += weightUnsafeAnyMany
		} else {
			total += weightUnsafeAny
		}
		out.Issues = append(out.Issues, ports.Issue{Severity: "medium", Message: fmt.Sprintf("%d unsafe `any` type annotations", n)})
		out.Recommendations = append(out.Recommendations, "Replace `any` with concrete types.")
	}

	if h.detector != nil {
		findings := h.detector.Detect(req.Content)
		for _, f := range findings {
			out.Issues = append(out.Issues, ports.Issue{
				Severity: f.Severity,
				Message:  fmt.Sprintf("possible hard-coded secret (%s) %s", f.Kind, f.Masked),
				Line:     f.Line,
			})
		}
		if len(findings) > 0 {
			if secrets.Severe(findings) {
				total += weightSecret
			} else {
				total += weightSecretMedium
			}
			out.Recommendations = append(out.Recommendations, "Move credentials to environment configuration and rotate exposed values.")
		}
	}

	if lines := diff.LineCount(req.Content); lines > h.oversizedLines {
		total += weightOversized
		out.Issues = append(out.Issues, ports.Issue{Severity: "low", Message: fmt.Sprintf("file has %d lines", lines)})
		out.Recommendations = append(out.Recommendations, "Consider splitting the file into smaller modules.")
	}

	if n := len(todoRE.FindAllStringIndex(req.Content, -1)); n > 0 {
		total += weightTodo
		out.Issues = append(out.Issues, ports.Issue{Severity: "low", Message: fmt.Sprintf("%d TODO markers", n)})
	}

	for _, c := range req.BreakingChanges {
		out.BreakingChanges = append(out.BreakingChanges, c.String())
	}
	if len(req.BreakingChanges) > 0 {
		out.Recommendations = append(out.Recommendations, "Update or verify importers of the changed exports.")
	}
	out.AffectedAreas = affectedAreas(req)
	if len(out.AffectedAreas) > 0 && len(req.BreakingChanges) > 0 {
		out.Recommendations = append(out.Recommendations, "Run the tests covering the affected files.")
	}

	out.RiskScore = risk.Clamp(total, true)
	out.RiskLevel = string(risk.LevelFor(out.RiskScore))
	out.Intent = intent(req, emptied)
	out.Summary = fmt.Sprintf("%s: %d breaking change(s), %d direct and %d indirect dependent file(s)",
		req.File, len(req.BreakingChanges), len(req.Affected.Direct), len(req.Affected.Indirect))
	return out
}

func intent(req ports.JudgeRequest, emptied bool) string {
	switch {
	case emptied:
		return "removal"
	case strings.TrimSpace(req.OldContent) == "" || req.OldContent == req.Content:
		return "addition"
	case len(req.BreakingChanges) > 0:
		return "interface change"
	default:
		return "modification"
	}
}

func affectedAreas(req ports.JudgeRequest) []string {
	out := make([]string, 0)
	out = append(out, req.Affected.Files()...)
	for _, c := range req.Affected.Components {
		out = append(out, "component:"+c.Name)
	}
	for _, a := range req.Affected.APIs {
		out = append(out, "api:"+a.Method+" "+a.URL)
	}
	for _, t := range req.Affected.Tables {
		out = append(out, "table:"+t.Name)
	}
	return out
}

func emptyOutput(source string) ports.JudgeOutput {
	return ports.JudgeOutput{
		Issues:          []ports.Issue{},
		BreakingChanges: []string{},
		AffectedAreas:   []string{},
		Recommendations: []string{},
		Source:          source,
	}
}
