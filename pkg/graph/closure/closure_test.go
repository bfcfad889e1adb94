package closure

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/athapong/ndex-mcp/pkg/graph"
	"github.com/athapong/ndex-mcp/pkg/graph/builder"
	"github.com/athapong/ndex-mcp/pkg/graph/graphtest"
	"github.com/athapong/ndex-mcp/pkg/graph/storage"
)

func setup(t *testing.T, doc *graph.ImportDocument) (*storage.MemoryStore, *graph.Network) {
	t.Helper()
	store := storage.NewMemoryStore()
	n := graphtest.Build(t, store, builder.New(nil, false), "alice", doc)
	return store, n
}

func edgeIDs(n *graph.Network, importIDs ...string) []string {
	out := make([]string, 0, len(importIDs))
	for _, id := range importIDs {
		out = append(out, n.Edges[id].ID)
	}
	return out
}

func TestResolveFunctionTerm(t *testing.T) {
	ctx := context.Background()
	doc := &graph.ImportDocument{
		Name: "terms",
		Terms: []graph.Term{
			{ImportID: "B1", Type: graph.TermBase, Name: "geneA"},
			{ImportID: "B2", Type: graph.TermBase, Name: "activates"},
			{ImportID: "F1", Type: graph.TermFunction, Function: "B2", Parameters: []string{"B1"}},
		},
	}
	store, n := setup(t, doc)

	graphtest.Read(t, store, func(s graph.Session) {
		resolver := NewTermResolver(graph.NewReader(s))

		got, err := resolver.Resolve(ctx, n.Terms["F1"].ID)
		require.NoError(t, err)
		assert.ElementsMatch(t,
			[]string{n.Terms["F1"].ID, n.Terms["B2"].ID, n.Terms["B1"].ID},
			got.ToSlice())

		got, err = resolver.Resolve(ctx, n.Terms["B1"].ID)
		require.NoError(t, err)
		assert.Equal(t, []string{n.Terms["B1"].ID}, got.ToSlice())
	})
}

func TestResolveNestedFunctionTerm(t *testing.T) {
	ctx := context.Background()
	store, n := setup(t, graphtest.RichDocument("rich"))

	graphtest.Read(t, store, func(s graph.Session) {
		got, err := NewTermResolver(graph.NewReader(s)).Resolve(ctx, n.Terms["F2"].ID)
		require.NoError(t, err)

		want := []string{}
		for _, id := range []string{"F2", "B5", "F1", "B1", "B3"} {
			want = append(want, n.Terms[id].ID)
		}
		assert.ElementsMatch(t, want, got.ToSlice())
	})
}

func TestResolveRejectsNonTerm(t *testing.T) {
	store, n := setup(t, graphtest.GeneDocument("gene"))

	graphtest.Read(t, store, func(s graph.Session) {
		_, err := NewTermResolver(graph.NewReader(s)).Resolve(context.Background(), n.Nodes["n1"].ID)
		assert.True(t, errors.Is(err, graph.ErrIntegrityViolation))
	})
}

func TestCloseFromEdgesGeneScenario(t *testing.T) {
	store, n := setup(t, graphtest.GeneDocument("gene"))
	assert.Len(t, n.Nodes, 2)
	assert.Len(t, n.Terms, 2)
	assert.Len(t, n.Edges, 1)
	assert.Empty(t, n.Namespaces)
	assert.Empty(t, n.Supports)
	assert.Empty(t, n.Citations)

	graphtest.Read(t, store, func(s graph.Session) {
		out, err := NewEngine(s, nil).CloseFromEdges(context.Background(), n.ID, edgeIDs(n, "e1"))
		require.NoError(t, err)

		assert.Len(t, out.Nodes, 2)
		assert.Len(t, out.Terms, 2)
		assert.Len(t, out.Edges, 1)
		assert.Empty(t, out.Namespaces)
		assert.Empty(t, out.Supports)
		assert.Empty(t, out.Citations)
		assert.Equal(t, 2, out.NodeCount)
		assert.Equal(t, 1, out.EdgeCount)
		assert.Equal(t, "gene", out.Name)
	})
}

func TestCloseFromEdgesRich(t *testing.T) {
	store, n := setup(t, graphtest.RichDocument("rich"))

	graphtest.Read(t, store, func(s graph.Session) {
		out, err := NewEngine(s, nil).CloseFromEdges(context.Background(), n.ID, edgeIDs(n, "e1"))
		require.NoError(t, err)

		assert.Equal(t, []string{"n1", "n2"}, graphtest.Keys(out.Nodes))
		assert.Equal(t, []string{"B1", "B2", "B3", "B5", "F1"}, graphtest.Keys(out.Terms))
		assert.Equal(t, []string{"NS1"}, graphtest.Keys(out.Namespaces))
		assert.Equal(t, []string{"S1", "S2"}, graphtest.Keys(out.Supports))
		assert.Equal(t, []string{"C1"}, graphtest.Keys(out.Citations))
		assert.Equal(t, map[string]string{"source": "BEL", "version": "1.0"}, out.Metadata)
		assert.Equal(t, "9606", out.Metaterms["organism"].Name)
		assert.Empty(t, out.Dangling())
	})
}

func TestCloseFromEdgesCompleteAndMinimal(t *testing.T) {
	store, n := setup(t, graphtest.RichDocument("rich"))
	subsets := [][]string{
		{"e1"}, {"e2"}, {"e3"},
		{"e1", "e2"}, {"e1", "e3"}, {"e2", "e3"},
		{"e1", "e2", "e3"},
	}

	graphtest.Read(t, store, func(s graph.Session) {
		engine := NewEngine(s, nil)
		for _, subset := range subsets {
			out, err := engine.CloseFromEdges(context.Background(), n.ID, edgeIDs(n, subset...))
			require.NoError(t, err, subset)
			assert.Empty(t, out.Dangling(), subset)

			endpoints := map[string]bool{}
			for _, e := range out.Edges {
				endpoints[e.Subject] = true
				endpoints[e.Object] = true
			}
			for id := range out.Nodes {
				assert.True(t, endpoints[id], "node %s is not an endpoint of %v", id, subset)
			}
			assert.NotContains(t, out.Nodes, "n4")
			assert.NotContains(t, out.Citations, "C3")
			assert.NotContains(t, out.Namespaces, "NS2")
			assert.Equal(t, len(subset), out.EdgeCount)
		}
	})
}

func TestCloseFromEdgesIdempotent(t *testing.T) {
	ctx := context.Background()
	store, n := setup(t, graphtest.RichDocument("rich"))

	var first *graph.Network
	graphtest.Read(t, store, func(s graph.Session) {
		var err error
		first, err = NewEngine(s, nil).CloseFromEdges(ctx, n.ID, edgeIDs(n, "e2"))
		require.NoError(t, err)
	})

	doc, err := graph.DocumentFromNetwork(first)
	require.NoError(t, err)
	doc.Name = "rich closure"
	copied := graphtest.Build(t, store, builder.New(nil, false), "alice", doc)

	graphtest.Read(t, store, func(s graph.Session) {
		second, err := NewEngine(s, nil).CloseFromEdges(ctx, copied.ID, edgeIDs(copied, "e2"))
		require.NoError(t, err)

		assert.Equal(t, graphtest.Keys(first.Nodes), graphtest.Keys(second.Nodes))
		assert.Equal(t, graphtest.Keys(first.Terms), graphtest.Keys(second.Terms))
		assert.Equal(t, graphtest.Keys(first.Namespaces), graphtest.Keys(second.Namespaces))
		assert.Equal(t, graphtest.Keys(first.Supports), graphtest.Keys(second.Supports))
		assert.Equal(t, graphtest.Keys(first.Citations), graphtest.Keys(second.Citations))
		assert.Equal(t, graphtest.Keys(first.Edges), graphtest.Keys(second.Edges))
	})
}

func TestCloseFromEdgesUnknownSeed(t *testing.T) {
	store, n := setup(t, graphtest.GeneDocument("gene"))

	graphtest.Read(t, store, func(s graph.Session) {
		engine := NewEngine(s, nil)

		_, err := engine.CloseFromEdges(context.Background(), n.ID, []string{"missing"})
		assert.True(t, errors.Is(err, graph.ErrNotFound))

		_, err = engine.CloseFromEdges(context.Background(), n.ID, []string{n.Nodes["n1"].ID})
		assert.True(t, errors.Is(err, graph.ErrNotFound))

		_, err = engine.CloseFromEdges(context.Background(), "missing", edgeIDs(n, "e1"))
		assert.True(t, errors.Is(err, graph.ErrNotFound))
	})
}

func TestCloseFromEdgesDanglingSubject(t *testing.T) {
	ctx := context.Background()
	store, n := setup(t, graphtest.GeneDocument("gene"))

	s, err := store.Begin(ctx, graph.AccessWrite)
	require.NoError(t, err)
	require.NoError(t, s.DeleteVertex(ctx, n.Nodes["n1"].ID))
	require.NoError(t, s.Commit(ctx))

	graphtest.Read(t, store, func(s graph.Session) {
		_, err := NewEngine(s, nil).CloseFromEdges(ctx, n.ID, edgeIDs(n, "e1"))
		assert.True(t, errors.Is(err, graph.ErrIntegrityViolation), "got %v", err)
	})
}

func TestEdgesAndNodesFromCitations(t *testing.T) {
	store, n := setup(t, graphtest.RichDocument("rich"))

	graphtest.Read(t, store, func(s graph.Session) {
		edges, nodes, err := NewEngine(s, nil).EdgesAndNodesFromCitations(context.Background(), n.ID,
			[]string{n.Citations["C1"].ID})
		require.NoError(t, err)
		assert.ElementsMatch(t, edgeIDs(n, "e1", "e2"), edges)
		assert.ElementsMatch(t,
			[]string{n.Nodes["n1"].ID, n.Nodes["n2"].ID, n.Nodes["n3"].ID}, nodes)

		edges, nodes, err = NewEngine(s, nil).EdgesAndNodesFromCitations(context.Background(), n.ID,
			[]string{n.Citations["C2"].ID})
		require.NoError(t, err)
		assert.Empty(t, edges)
		assert.Equal(t, []string{n.Nodes["n3"].ID}, nodes)
	})
}

func TestCitationRoundTrip(t *testing.T) {
	store, n := setup(t, graphtest.RichDocument("rich"))

	graphtest.Read(t, store, func(s graph.Session) {
		for _, c := range [][]string{{"C1"}, {"C2"}, {"C3"}, {"C1", "C2"}} {
			ids := make([]string, 0, len(c))
			for _, imp := range c {
				ids = append(ids, n.Citations[imp].ID)
			}
			out, err := NewEngine(s, nil).CloseFromCitations(context.Background(), n.ID, ids)
			require.NoError(t, err)
			for _, imp := range c {
				assert.Contains(t, out.Citations, imp)
			}
			assert.Empty(t, out.Dangling())
		}
	})
}

func TestCitationsMustBelongToNetwork(t *testing.T) {
	store := storage.NewMemoryStore()
	b := builder.New(nil, false)
	first := graphtest.Build(t, store, b, "alice", graphtest.RichDocument("first"))
	second := graphtest.Build(t, store, b, "alice", graphtest.RichDocument("second"))

	graphtest.Read(t, store, func(s graph.Session) {
		_, _, err := NewEngine(s, nil).EdgesAndNodesFromCitations(context.Background(), first.ID,
			[]string{first.Citations["C1"].ID, second.Citations["C1"].ID})
		assert.True(t, errors.Is(err, graph.ErrNotFound))

		_, err = NewEngine(s, nil).CloseFromCitations(context.Background(), first.ID, []string{"bogus"})
		assert.True(t, errors.Is(err, graph.ErrNotFound))
	})
}

func TestResolveTerminatesOnCycle(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()

	var first, second string
	s, err := store.Begin(ctx, graph.AccessWrite)
	require.NoError(t, err)
	first, err = s.CreateVertex(ctx, graph.ClassFunctionTerm, graph.Props{"import_id": "F1"})
	require.NoError(t, err)
	second, err = s.CreateVertex(ctx, graph.ClassFunctionTerm, graph.Props{"import_id": "F2"})
	require.NoError(t, err)
	require.NoError(t, s.Link(ctx, first, graph.LabelFunctionTermParameters, second))
	require.NoError(t, s.Link(ctx, second, graph.LabelFunctionTermParameters, first))
	require.NoError(t, s.Commit(ctx))

	graphtest.Read(t, store, func(s graph.Session) {
		resolver := NewTermResolver(graph.NewReader(s))
		for _, start := range []string{first, second, first} {
			got, err := resolver.Resolve(ctx, start)
			require.NoError(t, err)
			assert.ElementsMatch(t, []string{first, second}, got.ToSlice())
		}
	})
}

func TestCloseFromEdgesMustBelongToNetwork(t *testing.T) {
	store := storage.NewMemoryStore()
	b := builder.New(nil, false)
	first := graphtest.Build(t, store, b, "alice", graphtest.GeneDocument("first"))
	second := graphtest.Build(t, store, b, "bob", graphtest.GeneDocument("second"))

	graphtest.Read(t, store, func(s graph.Session) {
		engine := NewEngine(s, nil)

		_, err := engine.CloseFromEdges(context.Background(), first.ID, edgeIDs(second, "e1"))
		assert.True(t, errors.Is(err, graph.ErrNotFound), "got %v", err)

		_, err = engine.CloseFromEdges(context.Background(), first.ID,
			append(edgeIDs(first, "e1"), edgeIDs(second, "e1")...))
		assert.True(t, errors.Is(err, graph.ErrNotFound), "got %v", err)

		out, err := engine.CloseFromEdges(context.Background(), first.ID,
			append(edgeIDs(first, "e1"), edgeIDs(first, "e1")...))
		require.NoError(t, err)
		assert.Equal(t, []string{"e1"}, graphtest.Keys(out.Edges))
	})
}
