// Package graphtest provides import documents and store helpers for tests.
package graphtest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/athapong/ndex-mcp/pkg/graph"
)

// GeneDocument is the smallest useful network: geneA activates an unnamed node
func GeneDocument(name string) *graph.ImportDocument {
	return &graph.ImportDocument{
		Name: name,
		Terms: []graph.Term{
			{ImportID: "B1", Type: graph.TermBase, Name: "geneA"},
			{ImportID: "B2", Type: graph.TermBase, Name: "activates"},
		},
		Nodes: []graph.Node{
			{ImportID: "n1", Represents: "B1"},
			{ImportID: "n2"},
		},
		Edges: []graph.Edge{
			{ImportID: "e1", Subject: "n1", Predicate: "B2", Object: "n2"},
		},
	}
}

// RichDocument exercises every relation: namespaced and nested function
// terms, node aliases, supports with originating citations and citations that
// cite supports.
func RichDocument(name string) *graph.ImportDocument {
	return &graph.ImportDocument{
		Name:        name,
		Description: "signalling fragment",
		Metadata:    map[string]string{"source": "BEL", "version": "1.0"},
		Metaterms:   map[string]string{"organism": "B4"},
		Namespaces: []graph.Namespace{
			{ImportID: "NS1", Prefix: "HGNC", URI: "http://resource/HGNC"},
			{ImportID: "NS2", Prefix: "TAX", URI: "http://resource/TAX"},
		},
		Terms: []graph.Term{
			{ImportID: "B1", Type: graph.TermBase, Name: "AKT1", Namespace: "NS1"},
			{ImportID: "B2", Type: graph.TermBase, Name: "increases"},
			{ImportID: "B3", Type: graph.TermBase, Name: "MTOR", Namespace: "NS1"},
			{ImportID: "B4", Type: graph.TermBase, Name: "9606", Namespace: "NS2"},
			{ImportID: "B5", Type: graph.TermBase, Name: "kinaseActivity"},
			{ImportID: "F1", Type: graph.TermFunction, Function: "B5", Parameters: []string{"B1"}},
			{ImportID: "F2", Type: graph.TermFunction, Function: "B5", Parameters: []string{"F1", "B3"}},
		},
		Supports: []graph.Support{
			{ImportID: "S1", Text: "AKT1 phosphorylates MTOR", Citation: "C1"},
			{ImportID: "S2", Text: "complex formation observed"},
			{ImportID: "S3", Text: "unrelated evidence"},
		},
		Citations: []graph.Citation{
			{ImportID: "C1", Title: "AKT signalling", Identifier: "PMID:1", Type: "pubmed", Contributors: []string{"Doe J"}, Supports: []string{"S2"}},
			{ImportID: "C2", Title: "MTOR complexes", Identifier: "PMID:2", Type: "pubmed"},
			{ImportID: "C3", Title: "Unused", Identifier: "PMID:3", Type: "pubmed", Supports: []string{"S3"}},
		},
		Nodes: []graph.Node{
			{ImportID: "n1", Name: "AKT1", Represents: "B1", Aliases: []string{"F1"}},
			{ImportID: "n2", Name: "MTOR", Represents: "B3"},
			{ImportID: "n3", Name: "complex", Represents: "F2", RelatedTerms: []string{"B1"}, Citations: []string{"C2"}},
			{ImportID: "n4", Name: "orphan"},
		},
		Edges: []graph.Edge{
			{ImportID: "e1", Subject: "n1", Predicate: "B2", Object: "n2", Citations: []string{"C1"}, Supports: []string{"S1"}},
			{ImportID: "e2", Subject: "n2", Predicate: "B2", Object: "n3", Supports: []string{"S2"}},
			{ImportID: "e3", Subject: "n1", Predicate: "B2", Object: "n3"},
		},
	}
}

// Builder is the part of the import builder the helpers need
type Builder interface {
	Build(ctx context.Context, s graph.Session, owner string, doc *graph.ImportDocument) (*graph.Network, error)
}

// Build imports doc in its own committed unit of work
func Build(t *testing.T, store graph.Store, b Builder, owner string, doc *graph.ImportDocument) *graph.Network {
	t.Helper()
	ctx := context.Background()
	s, err := store.Begin(ctx, graph.AccessWrite)
	require.NoError(t, err)
	defer s.Rollback(ctx)

	n, err := b.Build(ctx, s, owner, doc)
	require.NoError(t, err)
	require.NoError(t, s.Commit(ctx))
	return n
}

// Read runs fn in a read session
func Read(t *testing.T, store graph.Store, fn func(s graph.Session)) {
	t.Helper()
	ctx := context.Background()
	s, err := store.Begin(ctx, graph.AccessRead)
	require.NoError(t, err)
	defer s.Rollback(ctx)
	fn(s)
}

// StoreIDs maps import-ids of one collection to store ids
func StoreIDs[T any](m map[string]T, id func(T) string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = id(v)
	}
	return out
}

// Keys returns the sorted import-ids of a collection
func Keys[T any](m map[string]T) []string {
	return graph.SortedKeys(m)
}
