// Package closure computes self-sufficient subnetworks: the nodes, terms,
// namespaces, supports and citations that must accompany a selection of
// edges or citations so that no reference in the result dangles.
package closure

import (
	"context"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/athapong/ndex-mcp/pkg/graph"
)

// TermResolver expands a term into itself plus every term it functionally
// depends on.
type TermResolver struct {
	r *graph.Reader
}

func NewTermResolver(r *graph.Reader) *TermResolver {
	return &TermResolver{r: r}
}

// Resolve returns the store ids of termID and its dependencies
func (t *TermResolver) Resolve(ctx context.Context, termID string) (mapset.Set[string], error) {
	out := mapset.NewThreadUnsafeSet[string]()
	if err := t.ResolveInto(ctx, termID, out); err != nil {
		return nil, err
	}
	return out, nil
}

// ResolveInto adds the closure of termID to acc. Terms already in acc are not
// expanded again, which also stops malformed cyclic input.
func (t *TermResolver) ResolveInto(ctx context.Context, termID string, acc mapset.Set[string]) error {
	if acc.Contains(termID) {
		return nil
	}
	class, err := t.r.Class(ctx, termID)
	if err != nil {
		return err
	}

	switch class {
	case graph.ClassBaseTerm:
		acc.Add(termID)
		return nil
	case graph.ClassFunctionTerm:
		acc.Add(termID)
		fn, err := t.r.OutOne(ctx, termID, graph.LabelFunctionTermFunction)
		if err != nil {
			return err
		}
		if fn != "" {
			if err := t.ResolveInto(ctx, fn, acc); err != nil {
				return err
			}
		}
		params, err := t.r.Out(ctx, termID, graph.LabelFunctionTermParameters)
		if err != nil {
			return err
		}
		for _, p := range params {
			if err := t.ResolveInto(ctx, p, acc); err != nil {
				return err
			}
		}
		return nil
	default:
		return graph.Integrityf("%s is a %s, not a term", termID, class)
	}
}
