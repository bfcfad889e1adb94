package graph

import (
	"context"
	"errors"

	"github.com/athapong/ndex-mcp/pkg/graph/query"
)

// Reader materializes stored vertices into entity values. Relations are
// reported as the import-ids of their targets. A reference to a vertex that
// cannot be loaded is an integrity violation.
type Reader struct {
	s     Session
	cache map[string]*Vertex
}

func NewReader(s Session) *Reader {
	return &Reader{s: s, cache: make(map[string]*Vertex)}
}

// Vertex loads a vertex through the cache
func (r *Reader) Vertex(ctx context.Context, id string) (*Vertex, error) {
	if v, ok := r.cache[id]; ok {
		return v, nil
	}
	v, err := r.s.GetVertex(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, Integrityf("dangling reference to %s", id)
		}
		return nil, err
	}
	r.cache[id] = v
	return v, nil
}

// Class returns the class of a referenced vertex
func (r *Reader) Class(ctx context.Context, id string) (Class, error) {
	v, err := r.Vertex(ctx, id)
	if err != nil {
		return "", err
	}
	return v.Class, nil
}

// Out returns the outgoing neighbors of id over label
func (r *Reader) Out(ctx context.Context, id string, label Label) ([]string, error) {
	return r.s.Neighbors(ctx, id, label, query.Out)
}

// OutOne returns the single outgoing neighbor over label, or "" when absent
func (r *Reader) OutOne(ctx context.Context, id string, label Label) (string, error) {
	ids, err := r.Out(ctx, id, label)
	if err != nil {
		return "", err
	}
	switch len(ids) {
	case 0:
		return "", nil
	case 1:
		return ids[0], nil
	}
	return "", Integrityf("%s has %d %s relations", id, len(ids), label)
}

func (r *Reader) importID(ctx context.Context, id string) (string, error) {
	if id == "" {
		return "", nil
	}
	v, err := r.Vertex(ctx, id)
	if err != nil {
		return "", err
	}
	return v.Props.String(PropImportID), nil
}

func (r *Reader) importIDs(ctx context.Context, ids []string) ([]string, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		imp, err := r.importID(ctx, id)
		if err != nil {
			return nil, err
		}
		out = append(out, imp)
	}
	return out, nil
}

func (r *Reader) outImportID(ctx context.Context, id string, label Label) (string, error) {
	target, err := r.OutOne(ctx, id, label)
	if err != nil {
		return "", err
	}
	return r.importID(ctx, target)
}

func (r *Reader) outImportIDs(ctx context.Context, id string, label Label) ([]string, error) {
	targets, err := r.Out(ctx, id, label)
	if err != nil {
		return nil, err
	}
	return r.importIDs(ctx, targets)
}

func (r *Reader) expect(ctx context.Context, id string, classes ...Class) (*Vertex, error) {
	v, err := r.Vertex(ctx, id)
	if err != nil {
		return nil, err
	}
	for _, c := range classes {
		if v.Class == c {
			return v, nil
		}
	}
	return nil, Integrityf("%s is a %s, expected %v", id, v.Class, classes)
}

func (r *Reader) Namespace(ctx context.Context, id string) (Namespace, error) {
	v, err := r.expect(ctx, id, ClassNamespace)
	if err != nil {
		return Namespace{}, err
	}
	return Namespace{
		ID:       v.ID,
		ImportID: v.Props.String(PropImportID),
		Prefix:   v.Props.String(PropPrefix),
		URI:      v.Props.String(PropURI),
	}, nil
}

func (r *Reader) Term(ctx context.Context, id string) (Term, error) {
	v, err := r.expect(ctx, id, ClassBaseTerm, ClassFunctionTerm)
	if err != nil {
		return Term{}, err
	}
	t := Term{ID: v.ID, ImportID: v.Props.String(PropImportID)}
	switch v.Class {
	case ClassBaseTerm:
		t.Type = TermBase
		t.Name = v.Props.String(PropName)
		if t.Namespace, err = r.outImportID(ctx, id, LabelBaseTermNamespace); err != nil {
			return Term{}, err
		}
	case ClassFunctionTerm:
		t.Type = TermFunction
		if t.Function, err = r.outImportID(ctx, id, LabelFunctionTermFunction); err != nil {
			return Term{}, err
		}
		if t.Parameters, err = r.outImportIDs(ctx, id, LabelFunctionTermParameters); err != nil {
			return Term{}, err
		}
	}
	return t, nil
}

func (r *Reader) Node(ctx context.Context, id string) (Node, error) {
	v, err := r.expect(ctx, id, ClassNode)
	if err != nil {
		return Node{}, err
	}
	n := Node{ID: v.ID, ImportID: v.Props.String(PropImportID), Name: v.Props.String(PropName)}
	if n.Represents, err = r.outImportID(ctx, id, LabelNodeRepresents); err != nil {
		return Node{}, err
	}
	if n.Aliases, err = r.outImportIDs(ctx, id, LabelNodeAliases); err != nil {
		return Node{}, err
	}
	if n.RelatedTerms, err = r.outImportIDs(ctx, id, LabelNodeRelatedTerms); err != nil {
		return Node{}, err
	}
	if n.Citations, err = r.outImportIDs(ctx, id, LabelNodeCitations); err != nil {
		return Node{}, err
	}
	if n.Supports, err = r.outImportIDs(ctx, id, LabelNodeSupports); err != nil {
		return Node{}, err
	}
	return n, nil
}

func (r *Reader) Edge(ctx context.Context, id string) (Edge, error) {
	v, err := r.expect(ctx, id, ClassEdge)
	if err != nil {
		return Edge{}, err
	}
	e := Edge{ID: v.ID, ImportID: v.Props.String(PropImportID)}
	if e.Subject, err = r.outImportID(ctx, id, LabelEdgeSubject); err != nil {
		return Edge{}, err
	}
	if e.Predicate, err = r.outImportID(ctx, id, LabelEdgePredicate); err != nil {
		return Edge{}, err
	}
	if e.Object, err = r.outImportID(ctx, id, LabelEdgeObject); err != nil {
		return Edge{}, err
	}
	if e.Subject == "" || e.Predicate == "" || e.Object == "" {
		return Edge{}, Integrityf("edge %s is missing subject, predicate or object", id)
	}
	if e.Citations, err = r.outImportIDs(ctx, id, LabelEdgeCitations); err != nil {
		return Edge{}, err
	}
	if e.Supports, err = r.outImportIDs(ctx, id, LabelEdgeSupports); err != nil {
		return Edge{}, err
	}
	return e, nil
}

func (r *Reader) Support(ctx context.Context, id string) (Support, error) {
	v, err := r.expect(ctx, id, ClassSupport)
	if err != nil {
		return Support{}, err
	}
	s := Support{ID: v.ID, ImportID: v.Props.String(PropImportID), Text: v.Props.String(PropText)}
	if s.Citation, err = r.outImportID(ctx, id, LabelSupportCitation); err != nil {
		return Support{}, err
	}
	return s, nil
}

func (r *Reader) Citation(ctx context.Context, id string) (Citation, error) {
	v, err := r.expect(ctx, id, ClassCitation)
	if err != nil {
		return Citation{}, err
	}
	c := Citation{
		ID:           v.ID,
		ImportID:     v.Props.String(PropImportID),
		Title:        v.Props.String(PropTitle),
		Identifier:   v.Props.String(PropIdentifier),
		Type:         v.Props.String(PropType),
		Contributors: v.Props.Strings(PropContributors),
	}
	if c.Supports, err = r.outImportIDs(ctx, id, LabelCitationSupports); err != nil {
		return Citation{}, err
	}
	return c, nil
}

// Header loads the scalar attributes and metaterms of a network with empty
// collections. An unknown id is reported as not found.
func (r *Reader) Header(ctx context.Context, networkID string) (*Network, error) {
	v, err := r.s.GetVertex(ctx, networkID)
	if err != nil {
		return nil, err
	}
	if v.Class != ClassNetwork {
		return nil, NotFoundf("network %s", networkID)
	}
	r.cache[v.ID] = v

	n := NewNetwork()
	n.ID = v.ID
	n.Name = v.Props.String(PropName)
	n.Description = v.Props.String(PropDescription)
	n.Owner = v.Props.String(PropOwner)
	n.Metadata = v.Props.StringMap(PropMetadata)
	n.IsPublic = v.Props.Bool(PropIsPublic)
	n.IsLocked = v.Props.Bool(PropIsLocked)
	n.IsComplete = v.Props.Bool(PropIsComplete)
	n.NodeCount = v.Props.Int(PropNodeCount)
	n.EdgeCount = v.Props.Int(PropEdgeCount)

	metaterms := v.Props.StringMap(PropMetaterms)
	for _, key := range SortedKeys(metaterms) {
		t, err := r.Term(ctx, metaterms[key])
		if err != nil {
			return nil, err
		}
		n.Metaterms[key] = t
	}
	return n, nil
}

// Network loads a network with every owned collection
func (r *Reader) Network(ctx context.Context, networkID string) (*Network, error) {
	n, err := r.Header(ctx, networkID)
	if err != nil {
		return nil, err
	}
	for _, label := range OwnershipLabels {
		ids, err := r.Out(ctx, networkID, label)
		if err != nil {
			return nil, err
		}
		for _, id := range ids {
			if err := r.add(ctx, n, label, id); err != nil {
				return nil, err
			}
		}
	}
	return n, nil
}

func (r *Reader) add(ctx context.Context, n *Network, label Label, id string) error {
	switch label {
	case LabelNetworkNamespaces:
		ns, err := r.Namespace(ctx, id)
		if err != nil {
			return err
		}
		n.Namespaces[ns.ImportID] = ns
	case LabelNetworkTerms:
		t, err := r.Term(ctx, id)
		if err != nil {
			return err
		}
		n.Terms[t.ImportID] = t
	case LabelNetworkNodes:
		node, err := r.Node(ctx, id)
		if err != nil {
			return err
		}
		n.Nodes[node.ImportID] = node
	case LabelNetworkEdges:
		e, err := r.Edge(ctx, id)
		if err != nil {
			return err
		}
		n.Edges[e.ImportID] = e
	case LabelNetworkSupports:
		s, err := r.Support(ctx, id)
		if err != nil {
			return err
		}
		n.Supports[s.ImportID] = s
	case LabelNetworkCitations:
		c, err := r.Citation(ctx, id)
		if err != nil {
			return err
		}
		n.Citations[c.ImportID] = c
	}
	return nil
}
