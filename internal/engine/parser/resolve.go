package parser

import (
	"path"
	"sort"
	"strings"
)

// DefaultSuffixes are tried in order when resolving an import specifier to a file.
var DefaultSuffixes = []string{
	"",
	".ts", ".tsx", ".js", ".jsx", ".mjs", ".cjs",
	"/index.ts", "/index.tsx", "/index.js", "/index.jsx",
}

type alias struct {
	prefix string
	target string
}

func compileAliases(aliases map[string]string) []alias {
	out := make([]alias, 0, len(aliases))
	for prefix, target := range aliases {
		prefix = strings.TrimSpace(prefix)
		if prefix == "" {
			continue
		}
		out = append(out, alias{prefix: prefix, target: strings.Trim(strings.TrimSpace(target), "/")})
	}
	// Longest prefix wins.
	sort.Slice(out, func(i, j int) bool {
		if len(out[i].prefix) != len(out[j].prefix) {
			return len(out[i].prefix) > len(out[j].prefix)
		}
		return out[i].prefix < out[j].prefix
	})
	return out
}

// Resolve maps an import specifier found in fromID to a tracked file id.
// External package specifiers and specifiers that match no existing file
// report false.
func (p *Parser) Resolve(fromID, specifier string, exists func(string) bool) (string, bool) {
	if exists == nil {
		return "", false
	}
	base, ok := p.specifierBase(fromID, specifier)
	if !ok {
		return "", false
	}
	for _, suffix := range p.suffixes {
		candidate := base + suffix
		if candidate == fromID {
			continue
		}
		if exists(candidate) {
			return candidate, true
		}
	}
	return "", false
}

func (p *Parser) specifierBase(fromID, specifier string) (string, bool) {
	specifier = strings.TrimSpace(specifier)
	if specifier == "" {
		return "", false
	}

	var joined string
	switch {
	case strings.HasPrefix(specifier, "./") || strings.HasPrefix(specifier, "../") || specifier == "." || specifier == "..":
		joined = path.Join(path.Dir(fromID), specifier)
	case strings.HasPrefix(specifier, "/"):
		joined = path.Clean(strings.TrimPrefix(specifier, "/"))
	default:
		matched := false
		for _, a := range p.aliases {
			if strings.HasPrefix(specifier, a.prefix) {
				joined = path.Join(a.target, strings.TrimPrefix(specifier, a.prefix))
				matched = true
				break
			}
		}
		if !matched {
			return "", false
		}
	}

	if joined == "." || joined == ".." || strings.HasPrefix(joined, "../") {
		return "", false
	}
	return joined, true
}
