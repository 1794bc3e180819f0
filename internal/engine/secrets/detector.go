package secrets

import (
	"fmt"
	"math"
	"regexp"
	"sort"
	"strings"
	"unicode"
)

// Severity levels a finding can carry, lowest first.
const (
	SeverityLow      = "low"
	SeverityMedium   = "medium"
	SeverityHigh     = "high"
	SeverityCritical = "critical"
)

const (
	defaultEntropyThreshold = 4.0
	defaultMinTokenLength   = 20

	kindAssignment = "sensitive-assignment"
)

var builtInPatterns = []PatternConfig{
	{Name: "aws-access-key-id", Severity: SeverityHigh, Regex: `\bAKIA[0-9A-Z]{16}\b`},
	{Name: "github-pat", Severity: SeverityHigh, Regex: `\bgh[pousr]_[A-Za-z0-9]{36}\b`},
	{Name: "openai-key", Severity: SeverityHigh, Regex: `\bsk-(?:proj-)?[A-Za-z0-9_-]{20,}\b`},
	{Name: "stripe-live-secret", Severity: SeverityHigh, Regex: `\b[sr]k_live_[A-Za-z0-9]{16,}\b`},
	{Name: "slack-token", Severity: SeverityHigh, Regex: `\bxox[baprs]-[A-Za-z0-9-]{10,}\b`},
	{Name: "google-api-key", Severity: SeverityHigh, Regex: `\bAIza[0-9A-Za-z_-]{35}\b`},
	{Name: "jwt", Severity: SeverityMedium, Regex: `\beyJ[A-Za-z0-9_-]{10,}\.eyJ[A-Za-z0-9_-]{10,}\.[A-Za-z0-9_-]{10,}\b`},
	{Name: "private-key-block", Severity: SeverityCritical, Regex: `-----BEGIN (?:RSA |EC |DSA |OPENSSH |PGP )?PRIVATE KEY-----`},
	{Name: "connection-string", Severity: SeverityHigh, Regex: `\b(?:postgres(?:ql)?|mysql|mongodb(?:\+srv)?|redis|amqp)://[^\s:/'"]+:[^\s@'"]+@`},
}

var (
	// A name bound to a string literal: `apiKey = "..."`, `password: '...'`,
	// `"client_secret": "..."`.
	assignmentRE = regexp.MustCompile("([A-Za-z_$][\\w$-]*)[\"']?\\s*(?::|=|\\?\\?=|\\|\\|=)\\s*(?:\"([^\"\\n]*)\"|'([^'\\n]*)'|`([^`\\n]*)`)")
	sensitiveRE  = regexp.MustCompile(`(?i)(password|passwd|pwd|secret|api[_-]?key|token|access[_-]?key|private[_-]?key|credential|auth)`)
	placeholders = []string{"example", "sample", "dummy", "placeholder", "changeme", "your_", "your-", "xxxx", "<", "${"}
)

type PatternConfig struct {
	Name     string
	Regex    string
	Severity string
}

type Config struct {
	EntropyThreshold float64
	MinTokenLength   int
	Patterns         []PatternConfig
}

// Finding is one apparent hard-coded secret. The raw value is never kept;
// Masked shows only its edges.
type Finding struct {
	Kind       string  `json:"kind"`
	Severity   string  `json:"severity"`
	Line       int     `json:"line"`
	Column     int     `json:"column"`
	Masked     string  `json:"masked"`
	Entropy    float64 `json:"entropy"`
	Confidence float64 `json:"confidence"`
}

type pattern struct {
	name     string
	severity string
	re       *regexp.Regexp
}

// Detector finds credentials in JavaScript and TypeScript source. It is
// immutable after construction and safe for concurrent use.
type Detector struct {
	entropyThreshold float64
	minTokenLength   int
	patterns         []pattern
}

func NewDetector(cfg Config) (*Detector, error) {
	if cfg.EntropyThreshold <= 0 {
		cfg.EntropyThreshold = defaultEntropyThreshold
	}
	if cfg.MinTokenLength <= 0 {
		cfg.MinTokenLength = defaultMinTokenLength
	}

	all := make([]PatternConfig, 0, len(builtInPatterns)+len(cfg.Patterns))
	all = append(all, builtInPatterns...)
	all = append(all, cfg.Patterns...)

	patterns := make([]pattern, 0, len(all))
	for _, p := range all {
		compiled, err := compile(p)
		if err != nil {
			return nil, err
		}
		patterns = append(patterns, compiled)
	}

	return &Detector{
		entropyThreshold: cfg.EntropyThreshold,
		minTokenLength:   cfg.MinTokenLength,
		patterns:         patterns,
	}, nil
}

func compile(p PatternConfig) (pattern, error) {
	name := strings.TrimSpace(p.Name)
	if name == "" {
		return pattern{}, fmt.Errorf("secret pattern name must not be empty")
	}
	expr := strings.TrimSpace(p.Regex)
	if expr == "" {
		return pattern{}, fmt.Errorf("secret pattern %q regex must not be empty", name)
	}
	re, err := regexp.Compile(expr)
	if err != nil {
		return pattern{}, fmt.Errorf("compile secret pattern %q: %w", name, err)
	}
	severity := strings.ToLower(strings.TrimSpace(p.Severity))
	if severity == "" {
		severity = SeverityMedium
	}
	return pattern{name: name, severity: severity, re: re}, nil
}

// Detect scans text line by line for known token formats and for string
// literals with high entropy bound to sensitive-looking names. Findings are
// ordered by position; at most one is reported per position.
func (d *Detector) Detect(text string) []Finding {
	if text == "" {
		return nil
	}

	var out []Finding
	for i, line := range strings.Split(text, "\n") {
		byCol := make(map[int]Finding)
		keep := func(f Finding) {
			if prev, ok := byCol[f.Column]; ok && prev.Confidence >= f.Confidence {
				return
			}
			byCol[f.Column] = f
		}

		for _, p := range d.patterns {
			for _, loc := range p.re.FindAllStringIndex(line, -1) {
				value := line[loc[0]:loc[1]]
				if isPlaceholder(value) {
					continue
				}
				keep(Finding{
					Kind:       p.name,
					Severity:   p.severity,
					Line:       i + 1,
					Column:     loc[0] + 1,
					Masked:     MaskValue(value),
					Entropy:    shannonEntropy(value),
					Confidence: 0.99,
				})
			}
		}
		for _, f := range d.assignments(line, i+1) {
			keep(f)
		}

		for _, f := range byCol {
			out = append(out, f)
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Line != out[j].Line {
			return out[i].Line < out[j].Line
		}
		if out[i].Column != out[j].Column {
			return out[i].Column < out[j].Column
		}
		return out[i].Kind < out[j].Kind
	})
	return out
}

func (d *Detector) assignments(line string, lineNo int) []Finding {
	var out []Finding
	for _, m := range assignmentRE.FindAllStringSubmatchIndex(line, -1) {
		if !sensitiveRE.MatchString(line[m[2]:m[3]]) {
			continue
		}
		start, end := -1, -1
		for g := 4; g+1 < len(m); g += 2 {
			if m[g] >= 0 {
				start, end = m[g], m[g+1]
				break
			}
		}
		if start < 0 {
			continue
		}
		value := line[start:end]
		if len(value) < d.minTokenLength || isPlaceholder(value) || !hasLetterAndDigit(value) {
			continue
		}
		entropy := shannonEntropy(value)
		if entropy < d.entropyThreshold*0.8 {
			continue
		}
		confidence := 0.70
		if entropy >= d.entropyThreshold {
			confidence = 0.85
		}
		out = append(out, Finding{
			Kind:       kindAssignment,
			Severity:   SeverityMedium,
			Line:       lineNo,
			Column:     start + 1,
			Masked:     MaskValue(value),
			Entropy:    entropy,
			Confidence: confidence,
		})
	}
	return out
}

// Severe reports whether any finding is high or critical.
func Severe(findings []Finding) bool {
	for _, f := range findings {
		if f.Severity == SeverityHigh || f.Severity == SeverityCritical {
			return true
		}
	}
	return false
}

func isPlaceholder(value string) bool {
	lower := strings.ToLower(value)
	for _, p := range placeholders {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}

func hasLetterAndDigit(value string) bool {
	var letter, digit bool
	for _, r := range value {
		letter = letter || unicode.IsLetter(r)
		digit = digit || unicode.IsDigit(r)
	}
	return letter && digit
}

func shannonEntropy(value string) float64 {
	runes := []rune(value)
	if len(runes) == 0 {
		return 0
	}
	freq := make(map[rune]int)
	for _, r := range runes {
		freq[r]++
	}
	n := float64(len(runes))
	entropy := 0.0
	for _, count := range freq {
		p := float64(count) / n
		entropy -= p * math.Log2(p)
	}
	return entropy
}

func MaskValue(value string) string {
	if len(value) <= 8 {
		return strings.Repeat("*", len(value))
	}
	return value[:4] + "..." + value[len(value)-4:]
}
