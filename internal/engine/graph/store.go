package graph

import (
	"changeimpact/internal/engine/parser"
	"changeimpact/internal/shared/observability"
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// Store publishes graph snapshots. Writers are serialized; readers load the
// current snapshot through an atomic pointer and never see a partial rebuild.
type Store struct {
	parser  *parser.Parser
	workers int

	writeMu sync.Mutex
	current atomic.Pointer[Graph]
}

func NewStore(p *parser.Parser, workers int) *Store {
	s := &Store{parser: p, workers: workers}
	s.current.Store(Empty())
	return s
}

func (s *Store) Parser() *parser.Parser {
	return s.parser
}

// Snapshot returns the currently published graph.
func (s *Store) Snapshot() *Graph {
	return s.current.Load()
}

// Rebuild parses all files and publishes the resulting graph.
func (s *Store) Rebuild(ctx context.Context, files []SourceFile) (*Graph, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	start := time.Now()
	g, err := BuildFull(ctx, s.parser, files, s.workers)
	if err != nil {
		return nil, err
	}
	observability.ParsingDuration.WithLabelValues("full").Observe(time.Since(start).Seconds())
	s.publish(g)
	return g, nil
}

// Update replaces one file's record and publishes the re-derived graph.
func (s *Store) Update(id string, text []byte) *Graph {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	start := time.Now()
	g := s.current.Load().UpdateOne(s.parser, id, text)
	observability.ParsingDuration.WithLabelValues("single").Observe(time.Since(start).Seconds())
	s.publish(g)
	return g
}

func (s *Store) publish(g *Graph) {
	s.current.Store(g)
	observability.GraphNodes.Set(float64(g.Len()))
	observability.GraphEdges.Set(float64(g.EdgeCount()))
}
