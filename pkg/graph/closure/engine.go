package closure

import (
	"context"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/sirupsen/logrus"

	"github.com/athapong/ndex-mcp/pkg/graph"
	"github.com/athapong/ndex-mcp/pkg/graph/metrics"
)

// DefaultTraversalDepth bounds the citation traversals
const DefaultTraversalDepth = 3

// Engine computes closures inside one store session. It only reads.
type Engine struct {
	s      graph.Session
	r      *graph.Reader
	terms  *TermResolver
	logger *logrus.Logger

	// TraversalDepth bounds how far citation traversals walk
	TraversalDepth int
}

func NewEngine(s graph.Session, logger *logrus.Logger) *Engine {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
	r := graph.NewReader(s)
	return &Engine{
		s:              s,
		r:              r,
		terms:          NewTermResolver(r),
		logger:         logger,
		TraversalDepth: DefaultTraversalDepth,
	}
}

// Resolve exposes the term closure of a single term
func (e *Engine) Resolve(ctx context.Context, termID string) (mapset.Set[string], error) {
	return e.terms.Resolve(ctx, termID)
}

type selection struct {
	edges      mapset.Set[string]
	nodes      mapset.Set[string]
	terms      mapset.Set[string]
	supports   mapset.Set[string]
	citations  mapset.Set[string]
	namespaces mapset.Set[string]
}

func newSelection() *selection {
	return &selection{
		edges:      mapset.NewThreadUnsafeSet[string](),
		nodes:      mapset.NewThreadUnsafeSet[string](),
		terms:      mapset.NewThreadUnsafeSet[string](),
		supports:   mapset.NewThreadUnsafeSet[string](),
		citations:  mapset.NewThreadUnsafeSet[string](),
		namespaces: mapset.NewThreadUnsafeSet[string](),
	}
}

// CloseFromEdges returns the smallest network containing the given edges in
// which every reference resolves. Edges are store ids.
func (e *Engine) CloseFromEdges(ctx context.Context, networkID string, edgeIDs []string) (*graph.Network, error) {
	header, err := e.r.Header(ctx, networkID)
	if err != nil {
		return nil, err
	}
	seeds, err := e.owned(ctx, networkID, graph.LabelNetworkEdges, graph.ClassEdge, edgeIDs)
	if err != nil {
		return nil, err
	}
	sel := newSelection()
	sel.edges.Append(seeds...)
	return e.close(ctx, header, sel)
}

func (e *Engine) close(ctx context.Context, header *graph.Network, sel *selection) (*graph.Network, error) {
	if err := e.expand(ctx, sel); err != nil {
		return nil, err
	}
	out, err := e.assemble(ctx, header, sel)
	if err != nil {
		return nil, err
	}

	metrics.ClosureSize.WithLabelValues("edges").Observe(float64(len(out.Edges)))
	metrics.ClosureSize.WithLabelValues("nodes").Observe(float64(len(out.Nodes)))
	metrics.ClosureSize.WithLabelValues("terms").Observe(float64(len(out.Terms)))
	e.logger.WithFields(logrus.Fields{
		"network_id": header.ID,
		"edges":      len(out.Edges),
		"nodes":      len(out.Nodes),
		"terms":      len(out.Terms),
		"namespaces": len(out.Namespaces),
		"supports":   len(out.Supports),
		"citations":  len(out.Citations),
	}).Debug("Computed closure")
	return out, nil
}

// expand grows the selection until every reference of a selected element is
// itself selected.
func (e *Engine) expand(ctx context.Context, sel *selection) error {
	for _, id := range sel.edges.ToSlice() {
		if err := e.expandEdge(ctx, id, sel); err != nil {
			return err
		}
	}
	for _, id := range sel.nodes.ToSlice() {
		if err := e.expandNode(ctx, id, sel); err != nil {
			return err
		}
	}
	if err := e.expandEvidence(ctx, sel); err != nil {
		return err
	}
	for _, id := range sel.terms.ToSlice() {
		class, err := e.r.Class(ctx, id)
		if err != nil {
			return err
		}
		if class != graph.ClassBaseTerm {
			continue
		}
		ns, err := e.r.OutOne(ctx, id, graph.LabelBaseTermNamespace)
		if err != nil {
			return err
		}
		if ns != "" {
			sel.namespaces.Add(ns)
		}
	}
	return nil
}

func (e *Engine) expandEdge(ctx context.Context, id string, sel *selection) error {
	for _, label := range []graph.Label{graph.LabelEdgeSubject, graph.LabelEdgeObject} {
		n, err := e.r.OutOne(ctx, id, label)
		if err != nil {
			return err
		}
		if n == "" {
			return graph.Integrityf("edge %s has no %s", id, label)
		}
		sel.nodes.Add(n)
	}
	predicate, err := e.r.OutOne(ctx, id, graph.LabelEdgePredicate)
	if err != nil {
		return err
	}
	if predicate == "" {
		return graph.Integrityf("edge %s has no predicate", id)
	}
	if err := e.terms.ResolveInto(ctx, predicate, sel.terms); err != nil {
		return err
	}
	if err := e.collect(ctx, id, graph.LabelEdgeSupports, sel.supports); err != nil {
		return err
	}
	return e.collect(ctx, id, graph.LabelEdgeCitations, sel.citations)
}

func (e *Engine) expandNode(ctx context.Context, id string, sel *selection) error {
	for _, label := range []graph.Label{graph.LabelNodeRepresents, graph.LabelNodeAliases, graph.LabelNodeRelatedTerms} {
		terms, err := e.r.Out(ctx, id, label)
		if err != nil {
			return err
		}
		for _, t := range terms {
			if err := e.terms.ResolveInto(ctx, t, sel.terms); err != nil {
				return err
			}
		}
	}
	if err := e.collect(ctx, id, graph.LabelNodeSupports, sel.supports); err != nil {
		return err
	}
	return e.collect(ctx, id, graph.LabelNodeCitations, sel.citations)
}

// expandEvidence follows support and citation links to a fixpoint: a support
// brings its originating citation, a citation brings the supports it cites.
func (e *Engine) expandEvidence(ctx context.Context, sel *selection) error {
	pendingSupports := sel.supports.ToSlice()
	pendingCitations := sel.citations.ToSlice()

	for len(pendingSupports) > 0 || len(pendingCitations) > 0 {
		var nextSupports, nextCitations []string
		for _, id := range pendingSupports {
			c, err := e.r.OutOne(ctx, id, graph.LabelSupportCitation)
			if err != nil {
				return err
			}
			if c != "" && sel.citations.Add(c) {
				nextCitations = append(nextCitations, c)
			}
		}
		for _, id := range pendingCitations {
			supports, err := e.r.Out(ctx, id, graph.LabelCitationSupports)
			if err != nil {
				return err
			}
			for _, s := range supports {
				if sel.supports.Add(s) {
					nextSupports = append(nextSupports, s)
				}
			}
		}
		pendingSupports, pendingCitations = nextSupports, nextCitations
	}
	return nil
}

func (e *Engine) collect(ctx context.Context, id string, label graph.Label, into mapset.Set[string]) error {
	ids, err := e.r.Out(ctx, id, label)
	if err != nil {
		return err
	}
	for _, x := range ids {
		into.Add(x)
	}
	return nil
}

// assemble materializes the selection and re-verifies that nothing dangles,
// in case the store changed under a non-snapshot session.
func (e *Engine) assemble(ctx context.Context, header *graph.Network, sel *selection) (*graph.Network, error) {
	out := graph.NewNetwork()
	out.Name = header.Name
	out.Description = header.Description
	out.Owner = header.Owner
	out.IsPublic = header.IsPublic
	for k, v := range header.Metadata {
		out.Metadata[k] = v
	}
	for k, v := range header.Metaterms {
		out.Metaterms[k] = v
	}

	for _, id := range sel.namespaces.ToSlice() {
		ns, err := e.r.Namespace(ctx, id)
		if err != nil {
			return nil, err
		}
		out.Namespaces[ns.ImportID] = ns
	}
	for _, id := range sel.terms.ToSlice() {
		t, err := e.r.Term(ctx, id)
		if err != nil {
			return nil, err
		}
		out.Terms[t.ImportID] = t
	}
	for _, id := range sel.supports.ToSlice() {
		s, err := e.r.Support(ctx, id)
		if err != nil {
			return nil, err
		}
		out.Supports[s.ImportID] = s
	}
	for _, id := range sel.citations.ToSlice() {
		c, err := e.r.Citation(ctx, id)
		if err != nil {
			return nil, err
		}
		out.Citations[c.ImportID] = c
	}
	for _, id := range sel.nodes.ToSlice() {
		n, err := e.r.Node(ctx, id)
		if err != nil {
			return nil, err
		}
		out.Nodes[n.ImportID] = n
	}
	for _, id := range sel.edges.ToSlice() {
		edge, err := e.r.Edge(ctx, id)
		if err != nil {
			return nil, err
		}
		out.Edges[edge.ImportID] = edge
	}

	out.NodeCount = len(out.Nodes)
	out.EdgeCount = len(out.Edges)

	if dangling := out.Dangling(); len(dangling) > 0 {
		return nil, graph.Integrityf("closure of network %s has dangling references: %v", header.ID, dangling)
	}
	if out.NodeCount != sel.nodes.Cardinality() || out.EdgeCount != sel.edges.Cardinality() {
		return nil, graph.Integrityf("closure of network %s has colliding import-ids", header.ID)
	}
	return out, nil
}
