package graph

import (
	"sort"
)

// MaxIndirectHops bounds propagation beyond the direct dependents. In a well
// connected tree unbounded propagation marks nearly every file as affected.
const MaxIndirectHops = 2

type ComponentRef struct {
	Name string `json:"name"`
	File string `json:"file"`
}

type HookRef struct {
	Name string `json:"name"`
	File string `json:"file"`
}

type APIRef struct {
	URL    string `json:"url"`
	Method string `json:"method"`
	File   string `json:"file"`
}

type TableRef struct {
	Name string `json:"name"`
	File string `json:"file"`
}

// AffectedSet is computed per request and never cached.
type AffectedSet struct {
	Direct     []string       `json:"direct"`
	Indirect   []string       `json:"indirect"`
	Components []ComponentRef `json:"components"`
	Hooks      []HookRef      `json:"hooks"`
	APIs       []APIRef       `json:"apis"`
	Tables     []TableRef     `json:"tables"`
}

func EmptyAffectedSet() AffectedSet {
	return AffectedSet{
		Direct:     []string{},
		Indirect:   []string{},
		Components: []ComponentRef{},
		Hooks:      []HookRef{},
		APIs:       []APIRef{},
		Tables:     []TableRef{},
	}
}

// Files returns direct followed by indirect file ids.
func (a AffectedSet) Files() []string {
	out := make([]string, 0, len(a.Direct)+len(a.Indirect))
	out = append(out, a.Direct...)
	return append(out, a.Indirect...)
}

func (a AffectedSet) IsEmpty() bool {
	return len(a.Direct) == 0 && len(a.Indirect) == 0
}

// ResolveAffected returns the files that depend on id directly, the files
// reachable from those within MaxIndirectHops further reverse edges, and the
// entities annotated on all of them. An id absent from the graph yields an
// empty set.
func (g *Graph) ResolveAffected(id string) AffectedSet {
	out := EmptyAffectedSet()
	target, ok := g.files[id]
	if !ok {
		return out
	}

	out.Direct = append(out.Direct, target.Dependents...)
	sort.Strings(out.Direct)

	visited := make(map[string]bool, len(out.Direct)+1)
	visited[id] = true
	for _, d := range out.Direct {
		visited[d] = true
	}

	frontier := out.Direct
	for hop := 0; hop < MaxIndirectHops && len(frontier) > 0; hop++ {
		next := make([]string, 0)
		for _, node := range frontier {
			rec, ok := g.files[node]
			if !ok {
				continue
			}
			for _, dep := range rec.Dependents {
				if visited[dep] {
					continue
				}
				visited[dep] = true
				next = append(next, dep)
			}
		}
		sort.Strings(next)
		out.Indirect = append(out.Indirect, next...)
		frontier = next
	}
	sort.Strings(out.Indirect)

	g.collectEntities(&out)
	return out
}

func (g *Graph) collectEntities(out *AffectedSet) {
	components := make(map[string]bool)
	hooks := make(map[string]bool)
	apis := make(map[string]bool)
	tables := make(map[string]bool)

	for _, fileID := range out.Files() {
		rec, ok := g.files[fileID]
		if !ok {
			continue
		}
		for _, name := range rec.Components {
			if !components[name] {
				components[name] = true
				out.Components = append(out.Components, ComponentRef{Name: name, File: fileID})
			}
		}
		for _, name := range rec.Hooks {
			if !hooks[name] {
				hooks[name] = true
				out.Hooks = append(out.Hooks, HookRef{Name: name, File: fileID})
			}
		}
		for _, call := range rec.APICalls {
			if !apis[call.URL] {
				apis[call.URL] = true
				out.APIs = append(out.APIs, APIRef{URL: call.URL, Method: call.Method, File: fileID})
			}
		}
		for _, name := range rec.Tables {
			if !tables[name] {
				tables[name] = true
				out.Tables = append(out.Tables, TableRef{Name: name, File: fileID})
			}
		}
	}
}
