package util

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// NormalizePatternPath cleans and normalizes paths for matcher/pattern usage.
func NormalizePatternPath(s string) string {
	trimmed := strings.TrimSpace(strings.ReplaceAll(s, "\\", "/"))
	clean := path.Clean(trimmed)
	if clean == "." {
		return ""
	}
	return strings.TrimPrefix(clean, "./")
}

// FileID converts an absolute or root-relative path into the slash-separated
// id used by the graph. Paths outside root are rejected.
func FileID(root, p string) (string, error) {
	if !filepath.IsAbs(p) {
		p = filepath.Join(root, filepath.FromSlash(p))
	}
	rel, err := filepath.Rel(root, p)
	if err != nil {
		return "", err
	}
	id := NormalizePatternPath(filepath.ToSlash(rel))
	if id == "" || id == ".." || strings.HasPrefix(id, "../") {
		return "", fmt.Errorf("path %q is outside the project root", p)
	}
	return id, nil
}

// EnsureParentDir creates the directory holding path (0755).
func EnsureParentDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "" || dir == "." {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
