package parser

type ImportKind string

const (
	ImportDefault    ImportKind = "default"
	ImportNamed      ImportKind = "named"
	ImportNamespace  ImportKind = "namespace"
	ImportDynamic    ImportKind = "dynamic"
	ImportSideEffect ImportKind = "side_effect"
	ImportRequire    ImportKind = "require"
)

type ExportKind string

const (
	ExportFunction ExportKind = "function"
	ExportClass    ExportKind = "class"
	ExportVariable ExportKind = "variable"
	ExportType     ExportKind = "type"
	ExportDefault  ExportKind = "default"
	ExportNamed    ExportKind = "named"
)

type Import struct {
	Kind   ImportKind `json:"kind"`
	Name   string     `json:"name"`
	Source string     `json:"source"`
	// Resolved is the file id the specifier points at; empty for external packages.
	Resolved string `json:"resolved,omitempty"`
}

type Export struct {
	Kind ExportKind `json:"kind"`
	Name string     `json:"name"`
}

type APICall struct {
	URL    string `json:"url"`
	Method string `json:"method"`
}

// FileRecord holds the structural facts extracted from one file. A record is
// never mutated after it is built; updates replace it wholesale.
type FileRecord struct {
	Path         string    `json:"path"`
	Imports      []Import  `json:"imports"`
	Exports      []Export  `json:"exports"`
	Functions    []string  `json:"functions"`
	Components   []string  `json:"components"`
	Hooks        []string  `json:"hooks"`
	APICalls     []APICall `json:"apiCalls"`
	Tables       []string  `json:"tables"`
	Dependencies []string  `json:"dependencies"`
	Dependents   []string  `json:"dependents"`
}

func newRecord(path string) *FileRecord {
	return &FileRecord{
		Path:         path,
		Imports:      []Import{},
		Exports:      []Export{},
		Functions:    []string{},
		Components:   []string{},
		Hooks:        []string{},
		APICalls:     []APICall{},
		Tables:       []string{},
		Dependencies: []string{},
		Dependents:   []string{},
	}
}

// WithDependents returns a shallow copy of r carrying the given reverse edges.
func (r *FileRecord) WithDependents(dependents []string) *FileRecord {
	c := *r
	if dependents == nil {
		dependents = []string{}
	}
	c.Dependents = dependents
	return &c
}

// Clone returns a deep copy that callers may modify freely.
func (r *FileRecord) Clone() *FileRecord {
	if r == nil {
		return nil
	}
	c := *r
	c.Imports = append([]Import{}, r.Imports...)
	c.Exports = append([]Export{}, r.Exports...)
	c.Functions = append([]string{}, r.Functions...)
	c.Components = append([]string{}, r.Components...)
	c.Hooks = append([]string{}, r.Hooks...)
	c.APICalls = append([]APICall{}, r.APICalls...)
	c.Tables = append([]string{}, r.Tables...)
	c.Dependencies = append([]string{}, r.Dependencies...)
	c.Dependents = append([]string{}, r.Dependents...)
	return &c
}
