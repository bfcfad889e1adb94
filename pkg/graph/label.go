package graph

import "strings"

// TermLabel renders a term of the network in BEL-like notation:
// "prefix:name" for namespaced base terms and "fn(p1, p2)" for function terms.
// Unknown references render as their import-id.
func (n *Network) TermLabel(importID string) string {
	return n.termLabel(importID, make(map[string]bool))
}

func (n *Network) termLabel(importID string, seen map[string]bool) string {
	t, ok := n.Terms[importID]
	if !ok || seen[importID] {
		return importID
	}
	seen[importID] = true
	defer delete(seen, importID)

	if t.Variant() == TermBase {
		if ns, ok := n.Namespaces[t.Namespace]; ok && ns.Prefix != "" {
			return ns.Prefix + ":" + t.Name
		}
		return t.Name
	}

	params := make([]string, 0, len(t.Parameters))
	for _, p := range t.Parameters {
		params = append(params, n.termLabel(p, seen))
	}
	return n.termLabel(t.Function, seen) + "(" + strings.Join(params, ", ") + ")"
}

// NodeLabel prefers the node name and falls back to the represented term
func (n *Network) NodeLabel(importID string) string {
	nd, ok := n.Nodes[importID]
	if !ok {
		return importID
	}
	if nd.Name != "" {
		return nd.Name
	}
	if nd.Represents != "" {
		return n.TermLabel(nd.Represents)
	}
	return importID
}
