package closure

import (
	"context"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/sirupsen/logrus"

	"github.com/athapong/ndex-mcp/pkg/graph"
	"github.com/athapong/ndex-mcp/pkg/graph/query"
)

// EdgesAndNodesFromCitations finds the edges and nodes that cite the given
// citations directly or through a support. Every citation must belong to the
// network; a foreign or unknown citation is reported as not found.
func (e *Engine) EdgesAndNodesFromCitations(ctx context.Context, networkID string, citationIDs []string) ([]string, []string, error) {
	if _, err := e.r.Header(ctx, networkID); err != nil {
		return nil, nil, err
	}
	seeds, err := e.ownedCitations(ctx, networkID, citationIDs)
	if err != nil {
		return nil, nil, err
	}
	if len(seeds) == 0 {
		return []string{}, []string{}, nil
	}

	edgeQuery := query.NewTraversal(seeds...).
		In(string(graph.LabelEdgeCitations), string(graph.LabelSupportCitation), string(graph.LabelEdgeSupports)).
		Out(string(graph.LabelCitationSupports)).
		WhereClass(string(graph.ClassEdge)).
		SetMaxDepth(e.TraversalDepth)
	edges, err := e.s.Traverse(ctx, edgeQuery)
	if err != nil {
		return nil, nil, err
	}

	nodeQuery := query.NewTraversal(seeds...).
		In(
			string(graph.LabelNodeCitations),
			string(graph.LabelNodeSupports),
			string(graph.LabelSupportCitation),
			string(graph.LabelEdgeCitations),
			string(graph.LabelEdgeSupports),
		).
		Out(
			string(graph.LabelCitationSupports),
			string(graph.LabelEdgeSubject),
			string(graph.LabelEdgeObject),
		).
		WhereClass(string(graph.ClassNode)).
		SetMaxDepth(e.TraversalDepth)
	nodes, err := e.s.Traverse(ctx, nodeQuery)
	if err != nil {
		return nil, nil, err
	}

	e.logger.WithFields(logrus.Fields{
		"network_id": networkID,
		"citations":  len(seeds),
		"edges":      len(edges),
		"nodes":      len(nodes),
	}).Debug("Traversed citations")
	return edges, nodes, nil
}

func (e *Engine) ownedCitations(ctx context.Context, networkID string, citationIDs []string) ([]string, error) {
	return e.owned(ctx, networkID, graph.LabelNetworkCitations, graph.ClassCitation, citationIDs)
}

// owned returns ids without repeats, failing with not found on the first id
// the network does not own through label.
func (e *Engine) owned(ctx context.Context, networkID string, label graph.Label, class graph.Class, ids []string) ([]string, error) {
	owned, err := e.s.Neighbors(ctx, networkID, label, query.Out)
	if err != nil {
		return nil, err
	}
	ownedSet := mapset.NewThreadUnsafeSet[string](owned...)
	requested := mapset.NewThreadUnsafeSet[string]()
	seeds := make([]string, 0, len(ids))
	for _, id := range ids {
		if !requested.Add(id) {
			continue
		}
		if !ownedSet.Contains(id) {
			return nil, graph.NotFoundf("%s %s in network %s", class, id, networkID)
		}
		seeds = append(seeds, id)
	}
	return seeds, nil
}

// CloseFromCitations returns the closure of everything that cites the given
// citations, always including the citations themselves.
func (e *Engine) CloseFromCitations(ctx context.Context, networkID string, citationIDs []string) (*graph.Network, error) {
	edges, nodes, err := e.EdgesAndNodesFromCitations(ctx, networkID, citationIDs)
	if err != nil {
		return nil, err
	}
	header, err := e.r.Header(ctx, networkID)
	if err != nil {
		return nil, err
	}
	sel := newSelection()
	sel.edges.Append(edges...)
	sel.nodes.Append(nodes...)
	sel.citations.Append(citationIDs...)
	return e.close(ctx, header, sel)
}
