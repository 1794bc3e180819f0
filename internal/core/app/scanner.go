package app

import (
	"changeimpact/internal/core/watcher"
	"changeimpact/internal/engine/graph"
	"changeimpact/internal/shared/util"
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
)

// ScanSources walks root and reads every tracked source file. Unreadable
// files are skipped with a warning.
func ScanSources(ctx context.Context, root string, filter *watcher.Filter) ([]graph.SourceFile, error) {
	var files []graph.SourceFile
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if d.IsDir() {
			if path != root && filter.ExcludeDir(path) {
				return filepath.SkipDir
			}
			return nil
		}
		if !filter.IncludeFile(path) {
			return nil
		}

		id, err := util.FileID(root, path)
		if err != nil {
			return nil
		}
		text, err := os.ReadFile(path)
		if err != nil {
			slog.Warn("failed to read source file", "path", path, "error", err)
			return nil
		}
		files = append(files, graph.SourceFile{ID: id, Text: text})
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(files, func(i, j int) bool { return files[i].ID < files[j].ID })
	return files, nil
}
