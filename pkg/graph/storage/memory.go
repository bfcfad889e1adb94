package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/athapong/ndex-mcp/pkg/graph"
	"github.com/athapong/ndex-mcp/pkg/graph/algorithms"
	"github.com/athapong/ndex-mcp/pkg/graph/query"
)

type adjacency map[string]map[graph.Label][]string

func (a adjacency) add(from string, label graph.Label, to string) {
	if a[from] == nil {
		a[from] = make(map[graph.Label][]string)
	}
	a[from][label] = append(a[from][label], to)
}

func (a adjacency) clone() adjacency {
	out := make(adjacency, len(a))
	for id, labels := range a {
		m := make(map[graph.Label][]string, len(labels))
		for l, ids := range labels {
			m[l] = append([]string(nil), ids...)
		}
		out[id] = m
	}
	return out
}

// memoryState is one committed version of the graph. Committed states are
// never mutated; a write session works on a private copy.
type memoryState struct {
	vertices map[string]*graph.Vertex
	created  map[string]int64
	out      adjacency
	in       adjacency
	seq      int64
}

func newMemoryState() *memoryState {
	return &memoryState{
		vertices: make(map[string]*graph.Vertex),
		created:  make(map[string]int64),
		out:      make(adjacency),
		in:       make(adjacency),
	}
}

func (s *memoryState) clone() *memoryState {
	c := &memoryState{
		vertices: make(map[string]*graph.Vertex, len(s.vertices)),
		created:  make(map[string]int64, len(s.created)),
		out:      s.out.clone(),
		in:       s.in.clone(),
		seq:      s.seq,
	}
	for id, v := range s.vertices {
		c.vertices[id] = v.Clone()
	}
	for id, n := range s.created {
		c.created[id] = n
	}
	return c
}

// MemoryStore keeps the graph in process. Writers are serialized; readers
// see the last committed state.
type MemoryStore struct {
	state  *memoryState
	mutex  sync.RWMutex
	writer sync.Mutex
	logger *logrus.Logger
}

// NewMemoryStore creates a new in-memory graph store
func NewMemoryStore() *MemoryStore {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	return &MemoryStore{
		state:  newMemoryState(),
		logger: logger,
	}
}

// SetLogger replaces the store logger
func (m *MemoryStore) SetLogger(logger *logrus.Logger) {
	if logger != nil {
		m.logger = logger
	}
}

func (m *MemoryStore) snapshot() *memoryState {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return m.state
}

func (m *MemoryStore) Begin(ctx context.Context, mode graph.AccessMode) (graph.Session, error) {
	if mode == graph.AccessRead {
		return &memorySession{store: m, state: m.snapshot()}, nil
	}
	m.writer.Lock()
	return &memorySession{store: m, state: m.snapshot().clone(), write: true}, nil
}

func (m *MemoryStore) Close() error {
	return nil
}

// Stats reports the number of committed vertices and links
func (m *MemoryStore) Stats() (vertices int, links int) {
	st := m.snapshot()
	for _, labels := range st.out {
		for _, ids := range labels {
			links += len(ids)
		}
	}
	return len(st.vertices), links
}

type memorySession struct {
	store *MemoryStore
	state *memoryState
	write bool
	done  bool
}

func (s *memorySession) check(write bool) error {
	if s.done {
		return fmt.Errorf("session already finished")
	}
	if write && !s.write {
		return fmt.Errorf("write in read-only session")
	}
	return nil
}

func (s *memorySession) CreateVertex(ctx context.Context, class graph.Class, props graph.Props) (string, error) {
	if err := s.check(true); err != nil {
		return "", err
	}
	id := uuid.New().String()
	s.state.seq++
	s.state.vertices[id] = &graph.Vertex{ID: id, Class: class, Props: props.Clone()}
	s.state.created[id] = s.state.seq
	return id, nil
}

func (s *memorySession) GetVertex(ctx context.Context, id string) (*graph.Vertex, error) {
	if err := s.check(false); err != nil {
		return nil, err
	}
	v, exists := s.state.vertices[id]
	if !exists {
		return nil, graph.NotFoundf("vertex %s", id)
	}
	return v.Clone(), nil
}

func (s *memorySession) UpdateVertex(ctx context.Context, id string, props graph.Props) error {
	if err := s.check(true); err != nil {
		return err
	}
	v, exists := s.state.vertices[id]
	if !exists {
		return graph.NotFoundf("vertex %s", id)
	}
	v.Props.Merge(props)
	return nil
}

// DeleteVertex removes the vertex and every link touching it
func (s *memorySession) DeleteVertex(ctx context.Context, id string) error {
	if err := s.check(true); err != nil {
		return err
	}
	if _, exists := s.state.vertices[id]; !exists {
		return graph.NotFoundf("vertex %s", id)
	}
	for label, targets := range s.state.out[id] {
		for _, to := range targets {
			s.state.in[to][label] = without(s.state.in[to][label], id)
		}
	}
	for label, sources := range s.state.in[id] {
		for _, from := range sources {
			s.state.out[from][label] = without(s.state.out[from][label], id)
		}
	}
	delete(s.state.out, id)
	delete(s.state.in, id)
	delete(s.state.vertices, id)
	delete(s.state.created, id)
	return nil
}

func without(ids []string, id string) []string {
	out := ids[:0]
	for _, x := range ids {
		if x != id {
			out = append(out, x)
		}
	}
	return out
}

func (s *memorySession) Link(ctx context.Context, from string, label graph.Label, to string) error {
	if err := s.check(true); err != nil {
		return err
	}
	if !label.Valid() {
		return fmt.Errorf("unknown relation label: %s", label)
	}
	if _, ok := s.state.vertices[from]; !ok {
		return graph.NotFoundf("link source %s", from)
	}
	if _, ok := s.state.vertices[to]; !ok {
		return graph.NotFoundf("link target %s", to)
	}
	s.state.out.add(from, label, to)
	s.state.in.add(to, label, from)
	return nil
}

func (s *memorySession) Neighbors(ctx context.Context, id string, label graph.Label, dir query.Direction) ([]string, error) {
	if err := s.check(false); err != nil {
		return nil, err
	}
	adj := s.state.out
	if dir == query.In {
		adj = s.state.in
	}
	return append([]string(nil), adj[id][label]...), nil
}

func (s *memorySession) VerticesByClass(ctx context.Context, class graph.Class) ([]*graph.Vertex, error) {
	if err := s.check(false); err != nil {
		return nil, err
	}
	out := make([]*graph.Vertex, 0)
	for _, v := range s.state.vertices {
		if v.Class == class {
			out = append(out, v.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return s.state.created[out[i].ID] < s.state.created[out[j].ID]
	})
	return out, nil
}

func (s *memorySession) Traverse(ctx context.Context, q *query.Traversal) ([]string, error) {
	if err := s.check(false); err != nil {
		return nil, err
	}
	return algorithms.Traverse(ctx, s, q)
}

func (s *memorySession) Commit(ctx context.Context) error {
	if err := s.check(false); err != nil {
		return err
	}
	s.done = true
	if !s.write {
		return nil
	}
	s.store.mutex.Lock()
	s.store.state = s.state
	s.store.mutex.Unlock()
	s.store.writer.Unlock()

	s.store.logger.WithFields(logrus.Fields{
		"vertices": len(s.state.vertices),
	}).Debug("Committed memory session")
	return nil
}

// Rollback discards the session's changes. Calling it after Commit is a no-op.
func (s *memorySession) Rollback(ctx context.Context) error {
	if s.done {
		return nil
	}
	s.done = true
	if s.write {
		s.store.writer.Unlock()
	}
	return nil
}
