package config

import (
	"os"
	"path/filepath"
	"strings"
)

// ResolveRelative resolves value against base unless it is already absolute.
func ResolveRelative(base, value string) string {
	raw := strings.TrimSpace(value)
	if raw == "" {
		return filepath.Clean(base)
	}
	if filepath.IsAbs(raw) {
		return filepath.Clean(raw)
	}
	return filepath.Clean(filepath.Join(base, raw))
}

// ProjectRoot returns the absolute project root. Load has already resolved a
// relative root against the config file's directory.
func (c *Config) ProjectRoot() (string, error) {
	return filepath.Abs(c.Project.Root)
}

// PersistencePath resolves the history database under root.
func (c *Config) PersistencePath(root string) string {
	return ResolveRelative(root, c.Persistence.Path)
}

// FindConfig walks up from dir looking for DefaultFile. It returns "" when
// none is found.
func FindConfig(dir string) string {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return ""
	}
	for {
		candidate := filepath.Join(abs, DefaultFile)
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
		parent := filepath.Dir(abs)
		if parent == abs {
			return ""
		}
		abs = parent
	}
}
