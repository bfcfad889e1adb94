package network

import (
	"context"
	"sort"
	"strings"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/athapong/ndex-mcp/pkg/graph"
	"github.com/athapong/ndex-mcp/pkg/graph/query"
)

// page returns items[skip*top : skip*top+top]. A start past the end is an
// empty page.
func page[T any](items []T, skip, top int) ([]T, error) {
	if top < 1 {
		return nil, graph.Invalidf("page size must be positive, got %d", top)
	}
	if skip < 0 {
		return nil, graph.Invalidf("page index must not be negative, got %d", skip)
	}
	start := skip * top
	if start >= len(items) {
		return []T{}, nil
	}
	end := start + top
	if end > len(items) {
		end = len(items)
	}
	return items[start:end], nil
}

// CloseEdges returns the self-sufficient network around the given edges
func (s *Service) CloseEdges(ctx context.Context, actor, networkID string, edgeIDs []string) (*graph.Network, error) {
	var out *graph.Network
	err := s.run(ctx, "close_edges", graph.AccessRead, func(sess graph.Session) error {
		if _, err := s.authorize(ctx, sess, actor, networkID, PermRead); err != nil {
			return err
		}
		var err error
		out, err = s.engine(sess).CloseFromEdges(ctx, networkID, edgeIDs)
		return err
	})
	return out, err
}

// GetEdges returns the closure of one page of edges in creation order
func (s *Service) GetEdges(ctx context.Context, actor, networkID string, skip, top int) (*graph.Network, error) {
	var out *graph.Network
	err := s.run(ctx, "get_edges", graph.AccessRead, func(sess graph.Session) error {
		if _, err := s.authorize(ctx, sess, actor, networkID, PermRead); err != nil {
			return err
		}
		all, err := sess.Neighbors(ctx, networkID, graph.LabelNetworkEdges, query.Out)
		if err != nil {
			return err
		}
		edges, err := page(all, skip, top)
		if err != nil {
			return err
		}
		out, err = s.engine(sess).CloseFromEdges(ctx, networkID, edges)
		return err
	})
	return out, err
}

// GetEdgesByCitations returns everything the given citations back, closed
func (s *Service) GetEdgesByCitations(ctx context.Context, actor, networkID string, citationIDs []string) (*graph.Network, error) {
	var out *graph.Network
	err := s.run(ctx, "get_edges_by_citations", graph.AccessRead, func(sess graph.Session) error {
		if _, err := s.authorize(ctx, sess, actor, networkID, PermRead); err != nil {
			return err
		}
		var err error
		out, err = s.engine(sess).CloseFromCitations(ctx, networkID, citationIDs)
		return err
	})
	return out, err
}

// QueryNeighborhood returns the closure of the edges within depth hops of the
// nodes representing the named base terms. One hop crosses one edge. search
// picks the visit order; empty means breadth first.
func (s *Service) QueryNeighborhood(ctx context.Context, actor, networkID string, termNames []string, depth int, search query.Search) (*graph.Network, error) {
	if len(termNames) == 0 {
		return nil, graph.Invalidf("at least one term name is required")
	}
	if depth < 1 {
		return nil, graph.Invalidf("neighborhood depth must be positive, got %d", depth)
	}
	switch search {
	case "", query.BreadthFirst, query.DepthFirst:
	default:
		return nil, graph.Invalidf("unsupported search type %q", search)
	}
	var out *graph.Network
	err := s.run(ctx, "query_neighborhood", graph.AccessRead, func(sess graph.Session) error {
		if _, err := s.authorize(ctx, sess, actor, networkID, PermRead); err != nil {
			return err
		}
		seeds, err := representingNodes(ctx, sess, networkID, termNames)
		if err != nil {
			return err
		}
		var edges []string
		if len(seeds) > 0 {
			q := query.NewTraversal(seeds...).
				In(string(graph.LabelEdgeSubject), string(graph.LabelEdgeObject)).
				Out(string(graph.LabelEdgeSubject), string(graph.LabelEdgeObject)).
				WhereClass(string(graph.ClassEdge)).
				SetMaxDepth(2*depth - 1).
				SetSearch(search)
			found, err := sess.Traverse(ctx, q)
			if err != nil {
				return err
			}
			if edges, err = ownedBy(ctx, sess, networkID, graph.LabelNetworkEdges, found); err != nil {
				return err
			}
		}
		out, err = s.engine(sess).CloseFromEdges(ctx, networkID, edges)
		return err
	})
	return out, err
}

// representingNodes returns the network's nodes that represent a base term
// named in names.
func representingNodes(ctx context.Context, sess graph.Session, networkID string, names []string) ([]string, error) {
	all, err := loadTerms(ctx, sess, networkID)
	if err != nil {
		return nil, err
	}
	wanted := mapset.NewThreadUnsafeSet[string](names...)
	terms := make([]graph.Term, 0)
	for _, t := range all.Terms {
		if t.Variant() == graph.TermBase && wanted.Contains(t.Name) {
			terms = append(terms, t)
		}
	}
	sortTerms(terms)

	var nodes []string
	for _, t := range terms {
		ids, err := sess.Neighbors(ctx, t.ID, graph.LabelNodeRepresents, query.In)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, ids...)
	}
	return ownedBy(ctx, sess, networkID, graph.LabelNetworkNodes, nodes)
}

// ownedBy keeps the ids the network owns through label, in order, once each
func ownedBy(ctx context.Context, sess graph.Session, networkID string, label graph.Label, ids []string) ([]string, error) {
	owned, err := sess.Neighbors(ctx, networkID, label, query.Out)
	if err != nil {
		return nil, err
	}
	ownedSet := mapset.NewThreadUnsafeSet[string](owned...)
	seen := mapset.NewThreadUnsafeSet[string]()
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if ownedSet.Contains(id) && seen.Add(id) {
			out = append(out, id)
		}
	}
	return out, nil
}

const (
	minSuggestPrefix = 3
	maxSuggestions   = 20
)

// AutoSuggestTerms returns up to twenty distinct base-term names that start
// with prefix, ignoring case, in name order.
func (s *Service) AutoSuggestTerms(ctx context.Context, actor, networkID, prefix string) ([]string, error) {
	if len([]rune(prefix)) < minSuggestPrefix {
		return nil, graph.Invalidf("suggestion prefix needs at least %d characters, got %q", minSuggestPrefix, prefix)
	}
	var out []string
	err := s.run(ctx, "auto_suggest_terms", graph.AccessRead, func(sess graph.Session) error {
		if _, err := s.authorize(ctx, sess, actor, networkID, PermRead); err != nil {
			return err
		}
		all, err := loadTerms(ctx, sess, networkID)
		if err != nil {
			return err
		}
		lower := strings.ToLower(prefix)
		names := mapset.NewThreadUnsafeSet[string]()
		for _, t := range all.Terms {
			if t.Variant() == graph.TermBase && strings.HasPrefix(strings.ToLower(t.Name), lower) {
				names.Add(t.Name)
			}
		}
		out = names.ToSlice()
		sort.Strings(out)
		if len(out) > maxSuggestions {
			out = out[:maxSuggestions]
		}
		return nil
	})
	return out, err
}

// loadTerms loads every term of the network together with its namespaces
func loadTerms(ctx context.Context, sess graph.Session, networkID string) (*graph.Network, error) {
	r := graph.NewReader(sess)
	n, err := r.Header(ctx, networkID)
	if err != nil {
		return nil, err
	}
	for _, label := range []graph.Label{graph.LabelNetworkNamespaces, graph.LabelNetworkTerms} {
		ids, err := r.Out(ctx, networkID, label)
		if err != nil {
			return nil, err
		}
		for _, id := range ids {
			if label == graph.LabelNetworkNamespaces {
				ns, err := r.Namespace(ctx, id)
				if err != nil {
					return nil, err
				}
				n.Namespaces[ns.ImportID] = ns
				continue
			}
			t, err := r.Term(ctx, id)
			if err != nil {
				return nil, err
			}
			n.Terms[t.ImportID] = t
		}
	}
	return n, nil
}

// GetTermsInNamespaces returns the base terms whose namespace has one of the
// prefixes, with those namespaces.
func (s *Service) GetTermsInNamespaces(ctx context.Context, actor, networkID string, prefixes []string) (*graph.Network, error) {
	var out *graph.Network
	err := s.run(ctx, "get_terms_in_namespaces", graph.AccessRead, func(sess graph.Session) error {
		header, err := s.authorize(ctx, sess, actor, networkID, PermRead)
		if err != nil {
			return err
		}
		all, err := loadTerms(ctx, sess, networkID)
		if err != nil {
			return err
		}
		wanted := mapset.NewThreadUnsafeSet[string](prefixes...)
		out = header
		for _, t := range all.Terms {
			if t.Variant() != graph.TermBase || t.Namespace == "" {
				continue
			}
			ns := all.Namespaces[t.Namespace]
			if wanted.Contains(ns.Prefix) {
				out.Terms[t.ImportID] = t
				out.Namespaces[ns.ImportID] = ns
			}
		}
		return nil
	})
	return out, err
}

// GetIntersectingTerms returns the base terms whose name is one of names,
// ordered by name then import-id.
func (s *Service) GetIntersectingTerms(ctx context.Context, actor, networkID string, names []string) ([]graph.Term, error) {
	var out []graph.Term
	err := s.run(ctx, "get_intersecting_terms", graph.AccessRead, func(sess graph.Session) error {
		if _, err := s.authorize(ctx, sess, actor, networkID, PermRead); err != nil {
			return err
		}
		all, err := loadTerms(ctx, sess, networkID)
		if err != nil {
			return err
		}
		wanted := mapset.NewThreadUnsafeSet[string](names...)
		out = make([]graph.Term, 0)
		for _, t := range all.Terms {
			if t.Variant() == graph.TermBase && wanted.Contains(t.Name) {
				out = append(out, t)
			}
		}
		sortTerms(out)
		return nil
	})
	return out, err
}

func sortTerms(terms []graph.Term) {
	sort.Slice(terms, func(i, j int) bool {
		if terms[i].Name != terms[j].Name {
			return terms[i].Name < terms[j].Name
		}
		return terms[i].ImportID < terms[j].ImportID
	})
}

// GetNamespaces returns one page of namespaces ordered by prefix
func (s *Service) GetNamespaces(ctx context.Context, actor, networkID string, skip, top int) ([]graph.Namespace, error) {
	var out []graph.Namespace
	err := s.run(ctx, "get_namespaces", graph.AccessRead, func(sess graph.Session) error {
		if _, err := s.authorize(ctx, sess, actor, networkID, PermRead); err != nil {
			return err
		}
		all, err := loadTerms(ctx, sess, networkID)
		if err != nil {
			return err
		}
		namespaces := make([]graph.Namespace, 0, len(all.Namespaces))
		for _, ns := range all.Namespaces {
			namespaces = append(namespaces, ns)
		}
		sort.Slice(namespaces, func(i, j int) bool {
			if namespaces[i].Prefix != namespaces[j].Prefix {
				return namespaces[i].Prefix < namespaces[j].Prefix
			}
			return namespaces[i].ImportID < namespaces[j].ImportID
		})
		out, err = page(namespaces, skip, top)
		return err
	})
	return out, err
}

// GetTerms returns one page of base terms ordered by name
func (s *Service) GetTerms(ctx context.Context, actor, networkID string, skip, top int) ([]graph.Term, error) {
	var out []graph.Term
	err := s.run(ctx, "get_terms", graph.AccessRead, func(sess graph.Session) error {
		if _, err := s.authorize(ctx, sess, actor, networkID, PermRead); err != nil {
			return err
		}
		all, err := loadTerms(ctx, sess, networkID)
		if err != nil {
			return err
		}
		terms := make([]graph.Term, 0, len(all.Terms))
		for _, t := range all.Terms {
			if t.Variant() == graph.TermBase {
				terms = append(terms, t)
			}
		}
		sortTerms(terms)
		out, err = page(terms, skip, top)
		return err
	})
	return out, err
}

// GetCitations returns one page of citations in creation order
func (s *Service) GetCitations(ctx context.Context, actor, networkID string, skip, top int) ([]graph.Citation, error) {
	var out []graph.Citation
	err := s.run(ctx, "get_citations", graph.AccessRead, func(sess graph.Session) error {
		if _, err := s.authorize(ctx, sess, actor, networkID, PermRead); err != nil {
			return err
		}
		all, err := sess.Neighbors(ctx, networkID, graph.LabelNetworkCitations, query.Out)
		if err != nil {
			return err
		}
		ids, err := page(all, skip, top)
		if err != nil {
			return err
		}
		r := graph.NewReader(sess)
		out = make([]graph.Citation, 0, len(ids))
		for _, id := range ids {
			c, err := r.Citation(ctx, id)
			if err != nil {
				return err
			}
			out = append(out, c)
		}
		return nil
	})
	return out, err
}
