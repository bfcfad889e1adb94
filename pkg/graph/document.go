package graph

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// ImportDocument is the caller-supplied content of a network. Collections are
// ordered: a record may only reference import-ids that appear earlier in its
// own collection or in a collection created before it.
type ImportDocument struct {
	Name        string            `json:"name" validate:"required"`
	Description string            `json:"description,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	IsPublic    bool              `json:"is_public"`

	// Metaterms maps a metadata key to the import-id of a BaseTerm
	Metaterms map[string]string `json:"metaterms,omitempty"`

	Namespaces []Namespace `json:"namespaces,omitempty" validate:"dive"`
	Terms      []Term      `json:"terms,omitempty" validate:"dive"`
	Supports   []Support   `json:"supports,omitempty" validate:"dive"`
	Citations  []Citation  `json:"citations,omitempty" validate:"dive"`
	Nodes      []Node      `json:"nodes,omitempty" validate:"dive"`
	Edges      []Edge      `json:"edges,omitempty" validate:"dive"`
}

var validate = validator.New()

// Validate checks the shape of every record. Reference resolution is left to
// the builder, which knows the creation order.
func (d *ImportDocument) Validate() error {
	if err := validate.Struct(d); err != nil {
		return Invalidf("import document: %v", err)
	}
	for _, t := range d.Terms {
		if t.Variant() == TermBase && t.Name == "" {
			return Invalidf("base term %q has no name", t.ImportID)
		}
	}
	seen := make(map[string]string)
	check := func(kind, id string) error {
		if prev, ok := seen[id]; ok {
			return Invalidf("import-id %q used by both %s and %s", id, prev, kind)
		}
		seen[id] = kind
		return nil
	}
	for _, n := range d.Namespaces {
		if err := check("namespace", n.ImportID); err != nil {
			return err
		}
	}
	for _, t := range d.Terms {
		if err := check("term", t.ImportID); err != nil {
			return err
		}
	}
	for _, s := range d.Supports {
		if err := check("support", s.ImportID); err != nil {
			return err
		}
	}
	for _, c := range d.Citations {
		if err := check("citation", c.ImportID); err != nil {
			return err
		}
	}
	for _, n := range d.Nodes {
		if err := check("node", n.ImportID); err != nil {
			return err
		}
	}
	for _, e := range d.Edges {
		if err := check("edge", e.ImportID); err != nil {
			return err
		}
	}
	return nil
}

// Size returns the number of records in the document
func (d *ImportDocument) Size() int {
	return len(d.Namespaces) + len(d.Terms) + len(d.Supports) +
		len(d.Citations) + len(d.Nodes) + len(d.Edges)
}

// DocumentFromNetwork converts a materialized network back into an import
// document, ordering records so that every reference points backwards.
func DocumentFromNetwork(n *Network) (*ImportDocument, error) {
	doc := &ImportDocument{
		Name:        n.Name,
		Description: n.Description,
		Metadata:    n.Metadata,
		IsPublic:    n.IsPublic,
		Metaterms:   make(map[string]string),
	}
	for _, k := range SortedKeys(n.Metaterms) {
		doc.Metaterms[k] = n.Metaterms[k].ImportID
	}
	for _, k := range SortedKeys(n.Namespaces) {
		doc.Namespaces = append(doc.Namespaces, n.Namespaces[k])
	}
	terms, err := orderTerms(n.Terms)
	if err != nil {
		return nil, err
	}
	doc.Terms = terms
	for _, k := range SortedKeys(n.Supports) {
		doc.Supports = append(doc.Supports, n.Supports[k])
	}
	for _, k := range SortedKeys(n.Citations) {
		doc.Citations = append(doc.Citations, n.Citations[k])
	}
	for _, k := range SortedKeys(n.Nodes) {
		doc.Nodes = append(doc.Nodes, n.Nodes[k])
	}
	for _, k := range SortedKeys(n.Edges) {
		doc.Edges = append(doc.Edges, n.Edges[k])
	}
	return doc, nil
}

// orderTerms emits terms so that a function term follows its function and
// every parameter. Terms absent from the map are ignored as dependencies.
func orderTerms(terms map[string]Term) ([]Term, error) {
	const (
		pending = iota
		visiting
		done
	)
	state := make(map[string]int, len(terms))
	out := make([]Term, 0, len(terms))

	var visit func(id string) error
	visit = func(id string) error {
		t, ok := terms[id]
		if !ok {
			return nil
		}
		switch state[id] {
		case done:
			return nil
		case visiting:
			return Conflictf("term %q depends on itself", id)
		}
		state[id] = visiting
		if t.Variant() == TermFunction {
			if err := visit(t.Function); err != nil {
				return err
			}
			for _, p := range t.Parameters {
				if err := visit(p); err != nil {
					return err
				}
			}
		}
		state[id] = done
		out = append(out, t)
		return nil
	}

	for _, id := range SortedKeys(terms) {
		if err := visit(id); err != nil {
			return nil, fmt.Errorf("order terms: %w", err)
		}
	}
	return out, nil
}
