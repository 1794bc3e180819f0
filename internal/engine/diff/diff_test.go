package diff

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLineDiff(t *testing.T) {
	cases := []struct {
		name     string
		old, new string
		want     Stats
	}{
		{"identical", "a\nb", "a\nb", Stats{}},
		{"first observation", "", "a\n\nb", Stats{Added: 3}},
		{"emptied", "a\nb", "", Stats{Removed: 2}},
		{"one changed line", "a\nb\nc", "a\nB\nc", Stats{Added: 1, Removed: 1}},
		{"reorder is invisible", "a\nb\nc", "c\nb\na", Stats{}},
		{"crlf normalized", "a\r\nb", "a\nb", Stats{}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, LineDiff(tc.old, tc.new))
		})
	}
}

func TestBreakingChanges_SelfIsEmpty(t *testing.T) {
	inputs := []string{
		"",
		"export function foo(a){}",
		"const x = (a, b) => a\nexport { x }\nexport default x",
		"garbage ((( export {",
	}
	for _, in := range inputs {
		assert.Empty(t, BreakingChanges(in, in), "input %q", in)
	}
}

func TestBreakingChanges_Removal(t *testing.T) {
	got := BreakingChanges("export function foo(a){}", "")
	keys := make([]string, 0, len(got))
	for _, c := range got {
		keys = append(keys, c.String())
	}
	assert.Contains(t, keys, "removed_export:foo:high")
	assert.Contains(t, keys, "removed_function:foo:high")
	assert.Len(t, keys, 2)
}

func TestBreakingChanges_Signature(t *testing.T) {
	oldText := `
export function load(id) {}
export const save = (id, body) => {}
function keep(a) {}
`
	newText := `
export function load(id, opts) {}
export const save = (id,   body) => {}
function keep(a) {}
export function added() {}
`
	got := BreakingChanges(oldText, newText)
	assert.Equal(t, []BreakingChange{
		{Kind: ChangedSignature, Name: "load", Severity: SeverityMedium, Before: "id", After: "id, opts"},
	}, got)
}

func TestBreakingChanges_RemovedExportKeepsFunction(t *testing.T) {
	got := BreakingChanges("export function foo(a){}", "function foo(a){}")
	assert.Equal(t, []BreakingChange{
		{Kind: RemovedExport, Name: "foo", Severity: SeverityHigh},
	}, got)
}

func TestBreakingChanges_AnonymousDefaultClassKeepsDefault(t *testing.T) {
	oldText := "export default class extends Base {}\n"
	newText := "export default function () {}\n"
	assert.Empty(t, BreakingChanges(oldText, newText))

	got := BreakingChanges(oldText, "export const other = 1\n")
	assert.Equal(t, []BreakingChange{
		{Kind: RemovedExport, Name: "default", Severity: SeverityHigh},
	}, got)
}

func TestLineCount(t *testing.T) {
	assert.Equal(t, 0, LineCount(""))
	assert.Equal(t, 2, LineCount("a\nb"))
	assert.Equal(t, 3, LineCount("a\nb\n"))
}
