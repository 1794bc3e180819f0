package parser

import (
	"log/slog"
	"regexp"
	"sort"
	"strings"
)

// Extraction is pattern based and deliberately approximate. Known blind spots:
// minified sources, re-exports (`export * from`) which do not become edges,
// parameters containing nested parentheses, and call/table detection that
// cannot tell production code from tests or mocks.
var (
	importFromRE    = regexp.MustCompile(`(?m)^\s*import\s+(?:type\s+)?([\w$*{}\s,]+?)\s+from\s+['"]([^'"\n]+)['"]`)
	importSideRE    = regexp.MustCompile(`(?m)^\s*import\s+['"]([^'"\n]+)['"]`)
	importDynamicRE = regexp.MustCompile(`\bimport\(\s*['"]([^'"\n]+)['"]\s*\)`)
	requireRE       = regexp.MustCompile(`\brequire\(\s*['"]([^'"\n]+)['"]\s*\)`)

	exportDeclRE    = regexp.MustCompile(`(?m)^\s*export\s+(?:declare\s+)?(?:async\s+)?(function\s*\*?|abstract\s+class|class|const|let|var|interface|type|enum)\s+([A-Za-z_$][\w$]*)`)
	exportDefaultRE = regexp.MustCompile(`(?m)^\s*export\s+default\s+(?:async\s+)?(?:(?:function\s*\*?|class)\s+([A-Za-z_$][\w$]*)|([A-Za-z_$][\w$]*))?`)
	exportListRE    = regexp.MustCompile(`\bexport\s*(?:type\s*)?\{([^}]*)\}`)

	funcDeclRE  = regexp.MustCompile(`(?:^|[^\w$.])function\s*\*?\s*([A-Za-z_$][\w$]*)\s*(?:<[^>()]*>)?\s*\(([^)]*)\)`)
	arrowFuncRE = regexp.MustCompile(`(?:^|[^\w$.])(?:const|let|var)\s+([A-Za-z_$][\w$]*)\s*(?::[^=\n]+?)?=\s*(?:async\s+)?(?:\(([^)]*)\)|([A-Za-z_$][\w$]*))\s*(?::[^=\n{]+?)?=>`)

	componentFuncRE  = regexp.MustCompile(`(?m)^(?:export\s+(?:default\s+)?)?(?:async\s+)?function\s*([A-Z][\w$]*)`)
	componentArrowRE = regexp.MustCompile(`(?m)^(?:export\s+)?(?:const|let|var)\s+([A-Z][\w$]*)\s*(?::[^=\n]+?)?=\s*(?:async\s+)?(?:\([^)]*\)|[A-Za-z_$][\w$]*)\s*(?::[^=\n{]+?)?=>`)
	componentClassRE = regexp.MustCompile(`(?m)^(?:export\s+(?:default\s+)?)?class\s+([A-Z][\w$]*)\s+extends\s+(?:React\.)?(?:Pure)?Component\b`)

	hookRE = regexp.MustCompile(`\buse[A-Z][\w$]*\b`)

	fetchRE       = regexp.MustCompile("\\bfetch\\(\\s*['\"`]([^'\"`\\n]+)['\"`]")
	fetchMethodRE = regexp.MustCompile("method\\s*:\\s*['\"`]([A-Za-z]+)['\"`]")
	clientCallRE  = regexp.MustCompile("\\b(?:axios|http|api)\\.(get|post|put|patch|delete)\\(\\s*['\"`]([^'\"`\\n]+)['\"`]")

	tableCallRE = regexp.MustCompile("\\.(?:from|table|into)\\(\\s*['\"`]([A-Za-z_][\\w.]*)['\"`]\\s*\\)")
	stringLitRE = regexp.MustCompile("`[^`]*`|'[^'\\n]*'|\"[^\"\\n]*\"")
	sqlVerbRE   = regexp.MustCompile(`(?i)\b(?:select|insert|update|delete)\b`)
	sqlTableRE  = regexp.MustCompile("(?i)\\b(?:from|into|update|join)\\s+[\"`]?([A-Za-z_][\\w.]*)")

	wsRE = regexp.MustCompile(`\s+`)
)

var defaultNameKeywords = map[string]bool{
	"function":   true,
	"class":      true,
	"async":      true,
	"new":        true,
	"extends":    true,
	"implements": true,
}

var sqlKeywords = map[string]bool{
	"select": true, "where": true, "set": true, "values": true, "table": true, "the": true,
}

type Options struct {
	// Aliases maps import prefixes such as "@/" to tree-relative directories.
	Aliases  map[string]string
	Suffixes []string
}

// Parser extracts FileRecords from source text. It holds no mutable state and
// is safe for concurrent use.
type Parser struct {
	aliases  []alias
	suffixes []string
}

func New(opts Options) *Parser {
	suffixes := opts.Suffixes
	if len(suffixes) == 0 {
		suffixes = DefaultSuffixes
	}
	return &Parser{
		aliases:  compileAliases(opts.Aliases),
		suffixes: append([]string(nil), suffixes...),
	}
}

// Parse extracts the structural facts of one file. It never fails: text that
// matches none of the patterns yields empty lists. exists reports whether a
// file id is part of the tree and decides which imports become dependencies.
func (p *Parser) Parse(fileID string, text []byte, exists func(string) bool) (rec *FileRecord) {
	rec = newRecord(fileID)
	defer func() {
		if r := recover(); r != nil {
			slog.Debug("parse degraded", "path", fileID, "panic", r)
		}
	}()

	src := StripComments(string(text))

	rec.Imports = extractImports(src)
	deps := make(map[string]bool)
	for i := range rec.Imports {
		if resolved, ok := p.Resolve(fileID, rec.Imports[i].Source, exists); ok {
			rec.Imports[i].Resolved = resolved
			deps[resolved] = true
		}
	}
	rec.Dependencies = sortedKeys(deps)

	rec.Exports = extractExports(src)
	rec.Functions = FunctionNames(src)
	rec.Components = extractComponents(src)
	rec.Hooks = extractHooks(src)
	rec.APICalls = extractAPICalls(src)
	rec.Tables = extractTables(src)
	return rec
}

func extractImports(src string) []Import {
	out := make([]Import, 0)
	for _, m := range importFromRE.FindAllStringSubmatch(src, -1) {
		out = append(out, importClause(m[1], m[2])...)
	}
	for _, m := range importSideRE.FindAllStringSubmatch(src, -1) {
		out = append(out, Import{Kind: ImportSideEffect, Name: "", Source: m[1]})
	}
	for _, m := range importDynamicRE.FindAllStringSubmatch(src, -1) {
		out = append(out, Import{Kind: ImportDynamic, Name: "", Source: m[1]})
	}
	for _, m := range requireRE.FindAllStringSubmatch(src, -1) {
		out = append(out, Import{Kind: ImportRequire, Name: "", Source: m[1]})
	}
	return out
}

// importClause splits `React, { useState as useS }` or `* as ns` into imports.
func importClause(clause, source string) []Import {
	clause = strings.TrimSpace(clause)
	out := make([]Import, 0, 2)

	head := clause
	if open := strings.Index(clause, "{"); open >= 0 {
		head = clause[:open]
		body := clause[open+1:]
		if end := strings.Index(body, "}"); end >= 0 {
			body = body[:end]
		}
		for _, item := range strings.Split(body, ",") {
			name := localName(item)
			if name == "" {
				continue
			}
			out = append(out, Import{Kind: ImportNamed, Name: name, Source: source})
		}
	}

	head = strings.Trim(strings.TrimSpace(head), ",")
	for _, part := range strings.Split(head, ",") {
		part = strings.TrimSpace(part)
		switch {
		case part == "":
		case strings.HasPrefix(part, "*"):
			out = append(out, Import{Kind: ImportNamespace, Name: localName(strings.TrimPrefix(part, "*")), Source: source})
		default:
			out = append(out, Import{Kind: ImportDefault, Name: part, Source: source})
		}
	}
	return out
}

// localName returns the binding introduced by `a`, `a as b` or `type a`.
func localName(item string) string {
	fields := strings.Fields(item)
	if len(fields) == 0 {
		return ""
	}
	if fields[0] == "type" && len(fields) > 1 {
		fields = fields[1:]
	}
	if len(fields) >= 3 && fields[len(fields)-2] == "as" {
		return fields[len(fields)-1]
	}
	if len(fields) == 2 && fields[0] == "as" {
		return fields[1]
	}
	return fields[0]
}

func extractExports(src string) []Export {
	out := make([]Export, 0)
	seen := make(map[string]bool)
	add := func(kind ExportKind, name string) {
		if name == "" || seen[name] {
			return
		}
		seen[name] = true
		out = append(out, Export{Kind: kind, Name: name})
	}

	for _, m := range exportDeclRE.FindAllStringSubmatch(src, -1) {
		add(exportKind(m[1]), m[2])
	}
	for _, m := range exportDefaultRE.FindAllStringSubmatch(src, -1) {
		name := m[1]
		if name == "" {
			name = m[2]
		}
		if name == "" || defaultNameKeywords[name] {
			name = "default"
		}
		add(ExportDefault, name)
	}
	for _, m := range exportListRE.FindAllStringSubmatch(src, -1) {
		for _, item := range strings.Split(m[1], ",") {
			add(ExportNamed, localName(item))
		}
	}
	return out
}

func exportKind(decl string) ExportKind {
	decl = strings.TrimSpace(decl)
	switch {
	case strings.HasPrefix(decl, "function"):
		return ExportFunction
	case strings.HasSuffix(decl, "class"):
		return ExportClass
	case decl == "interface" || decl == "type" || decl == "enum":
		return ExportType
	default:
		return ExportVariable
	}
}

// ExportNames returns the sorted set of exported names declared in text.
func ExportNames(text string) []string {
	exports := extractExports(StripComments(text))
	set := make(map[string]bool, len(exports))
	for _, e := range exports {
		set[e.Name] = true
	}
	return sortedKeys(set)
}

// FunctionSignatures maps every declared or arrow-assigned function name to
// its whitespace-normalized parameter text. The first declaration wins.
func FunctionSignatures(text string) map[string]string {
	return functionSignatures(StripComments(text))
}

func functionSignatures(src string) map[string]string {
	out := make(map[string]string)
	for _, m := range funcDeclRE.FindAllStringSubmatch(src, -1) {
		if _, ok := out[m[1]]; !ok {
			out[m[1]] = normalizeParams(m[2])
		}
	}
	for _, m := range arrowFuncRE.FindAllStringSubmatch(src, -1) {
		params := m[2]
		if params == "" {
			params = m[3]
		}
		if _, ok := out[m[1]]; !ok {
			out[m[1]] = normalizeParams(params)
		}
	}
	return out
}

// FunctionNames returns the sorted function names declared in already
// comment-stripped source.
func FunctionNames(src string) []string {
	sigs := functionSignatures(src)
	names := make([]string, 0, len(sigs))
	for name := range sigs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func normalizeParams(params string) string {
	return strings.TrimSpace(wsRE.ReplaceAllString(params, " "))
}

func extractComponents(src string) []string {
	set := make(map[string]bool)
	for _, re := range []*regexp.Regexp{componentFuncRE, componentArrowRE, componentClassRE} {
		for _, m := range re.FindAllStringSubmatch(src, -1) {
			set[m[1]] = true
		}
	}
	return sortedKeys(set)
}

func extractHooks(src string) []string {
	set := make(map[string]bool)
	for _, m := range hookRE.FindAllString(src, -1) {
		set[m] = true
	}
	return sortedKeys(set)
}

func extractAPICalls(src string) []APICall {
	out := make([]APICall, 0)
	seen := make(map[string]bool)
	add := func(url, method string) {
		url = strings.TrimSpace(url)
		if url == "" || seen[url] {
			return
		}
		seen[url] = true
		out = append(out, APICall{URL: url, Method: method})
	}

	for _, loc := range fetchRE.FindAllStringSubmatchIndex(src, -1) {
		url := src[loc[2]:loc[3]]
		method := "GET"
		window := src[loc[1]:min(len(src), loc[1]+200)]
		if end := strings.Index(window, ")"); end >= 0 {
			window = window[:end]
		}
		if mm := fetchMethodRE.FindStringSubmatch(window); mm != nil {
			method = strings.ToUpper(mm[1])
		}
		add(url, method)
	}
	for _, m := range clientCallRE.FindAllStringSubmatch(src, -1) {
		add(m[2], strings.ToUpper(m[1]))
	}
	return out
}

func extractTables(src string) []string {
	set := make(map[string]bool)
	for _, m := range tableCallRE.FindAllStringSubmatch(src, -1) {
		set[m[1]] = true
	}
	for _, lit := range stringLitRE.FindAllString(src, -1) {
		if !sqlVerbRE.MatchString(lit) {
			continue
		}
		for _, m := range sqlTableRE.FindAllStringSubmatch(lit, -1) {
			if sqlKeywords[strings.ToLower(m[1])] {
				continue
			}
			set[m[1]] = true
		}
	}
	return sortedKeys(set)
}

func sortedKeys(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
