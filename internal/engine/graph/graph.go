package graph

import (
	"changeimpact/internal/engine/parser"
	"context"
	"runtime"
	"sort"

	"golang.org/x/sync/errgroup"
)

// Graph is an immutable snapshot of the dependency graph. Every mutation
// builds a new Graph; a published Graph is never modified, so readers may
// hold it without locking.
//
// Invariant: for any A, B in the graph, B.Dependents contains A if and only
// if A.Dependencies contains B.
type Graph struct {
	files     map[string]*parser.FileRecord
	edgeCount int
}

type SourceFile struct {
	ID   string
	Text []byte
}

func Empty() *Graph {
	return &Graph{files: make(map[string]*parser.FileRecord)}
}

// BuildFull parses every file, then derives all reverse edges in a second pass.
func BuildFull(ctx context.Context, p *parser.Parser, files []SourceFile, workers int) (*Graph, error) {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	known := make(map[string]bool, len(files))
	for _, f := range files {
		known[f.ID] = true
	}
	exists := func(id string) bool { return known[id] }

	records := make([]*parser.FileRecord, len(files))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, f := range files {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			records[i] = p.Parse(f.ID, f.Text, exists)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	byID := make(map[string]*parser.FileRecord, len(records))
	for _, rec := range records {
		byID[rec.Path] = rec
	}
	return derive(byID), nil
}

// UpdateOne re-parses one file and returns a new graph whose reverse edges are
// re-derived globally from the current dependency lists. The receiver is not
// modified.
func (g *Graph) UpdateOne(p *parser.Parser, id string, text []byte) *Graph {
	exists := func(candidate string) bool {
		if candidate == id {
			return true
		}
		_, ok := g.files[candidate]
		return ok
	}
	rec := p.Parse(id, text, exists)

	next := make(map[string]*parser.FileRecord, len(g.files)+1)
	for k, v := range g.files {
		next[k] = v
	}
	if _, known := g.files[id]; !known {
		bindNewFile(p, id, next, exists)
	}
	next[id] = rec
	return derive(next)
}

// bindNewFile gives records whose unresolved imports now point at the newly
// added id the dependency they could not resolve before it existed.
func bindNewFile(p *parser.Parser, id string, records map[string]*parser.FileRecord, exists func(string) bool) {
	for otherID, rec := range records {
		var updated *parser.FileRecord
		for i, imp := range rec.Imports {
			if imp.Resolved != "" {
				continue
			}
			target, ok := p.Resolve(otherID, imp.Source, exists)
			if !ok || target != id {
				continue
			}
			if updated == nil {
				updated = rec.Clone()
				updated.Dependencies = append(updated.Dependencies, id)
				sort.Strings(updated.Dependencies)
			}
			updated.Imports[i].Resolved = id
		}
		if updated != nil {
			records[otherID] = updated
		}
	}
}

// derive recomputes every Dependents list from the Dependencies lists in an
// O(V+E) pass. Dependencies pointing outside the graph are dropped so the
// invariant holds in both directions.
func derive(records map[string]*parser.FileRecord) *Graph {
	dependents := make(map[string][]string, len(records))
	edges := 0
	for id, rec := range records {
		for _, dep := range rec.Dependencies {
			if _, ok := records[dep]; !ok || dep == id {
				continue
			}
			dependents[dep] = append(dependents[dep], id)
			edges++
		}
	}

	out := make(map[string]*parser.FileRecord, len(records))
	for id, rec := range records {
		rev := dependents[id]
		sort.Strings(rev)
		next := rec.WithDependents(rev)
		next.Dependencies = presentOnly(rec.Dependencies, id, records)
		out[id] = next
	}
	return &Graph{files: out, edgeCount: edges}
}

func presentOnly(deps []string, self string, records map[string]*parser.FileRecord) []string {
	for _, dep := range deps {
		if _, ok := records[dep]; !ok || dep == self {
			filtered := make([]string, 0, len(deps))
			for _, d := range deps {
				if _, ok := records[d]; ok && d != self {
					filtered = append(filtered, d)
				}
			}
			return filtered
		}
	}
	return deps
}

func (g *Graph) Len() int {
	return len(g.files)
}

func (g *Graph) EdgeCount() int {
	return g.edgeCount
}

func (g *Graph) Has(id string) bool {
	_, ok := g.files[id]
	return ok
}

// File returns a copy of the record for id.
func (g *Graph) File(id string) (*parser.FileRecord, bool) {
	rec, ok := g.files[id]
	if !ok {
		return nil, false
	}
	return rec.Clone(), true
}

// Files returns copies of every record keyed by file id.
func (g *Graph) Files() map[string]*parser.FileRecord {
	out := make(map[string]*parser.FileRecord, len(g.files))
	for id, rec := range g.files {
		out[id] = rec.Clone()
	}
	return out
}

func (g *Graph) IDs() []string {
	ids := make([]string, 0, len(g.files))
	for id := range g.files {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
