package watcher

import (
	"path/filepath"
	"strings"

	"github.com/gobwas/glob"
)

// Filter decides which directories are walked and which files are sources.
// Directory globs match a directory's base name; file globs match either the
// base name or the slash-separated path.
type Filter struct {
	excludeDirs  []glob.Glob
	excludeFiles []glob.Glob
	extensions   map[string]bool
}

func NewFilter(excludeDirs, excludeFiles, extensions []string) (*Filter, error) {
	dirs, err := compileAll(excludeDirs)
	if err != nil {
		return nil, err
	}
	files, err := compileAll(excludeFiles)
	if err != nil {
		return nil, err
	}
	exts := make(map[string]bool, len(extensions))
	for _, ext := range extensions {
		normalized := strings.ToLower(strings.TrimSpace(ext))
		if normalized == "" {
			continue
		}
		exts[normalized] = true
	}
	return &Filter{excludeDirs: dirs, excludeFiles: files, extensions: exts}, nil
}

func compileAll(patterns []string) ([]glob.Glob, error) {
	out := make([]glob.Glob, 0, len(patterns))
	for _, pattern := range patterns {
		g, err := glob.Compile(pattern, '/')
		if err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, nil
}

func (f *Filter) ExcludeDir(path string) bool {
	base := filepath.Base(path)
	for _, g := range f.excludeDirs {
		if g.Match(base) {
			return true
		}
	}
	return false
}

// IncludeFile reports whether path is a tracked source file. Ancestor
// directories are not checked; walkers skip excluded directories instead.
func (f *Filter) IncludeFile(path string) bool {
	base := filepath.Base(path)
	if len(f.extensions) > 0 && !f.extensions[strings.ToLower(filepath.Ext(base))] {
		return false
	}
	slashed := filepath.ToSlash(path)
	for _, g := range f.excludeFiles {
		if g.Match(base) || g.Match(slashed) {
			return false
		}
	}
	return true
}
