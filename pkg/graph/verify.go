package graph

import "fmt"

// Dangling lists every reference inside the network that points at an
// import-id missing from the network's own collections. An empty result
// means the network is self-sufficient.
func (n *Network) Dangling() []string {
	var out []string
	term := func(owner, ref string) {
		if ref == "" {
			return
		}
		if _, ok := n.Terms[ref]; !ok {
			out = append(out, fmt.Sprintf("%s -> term %s", owner, ref))
		}
	}
	node := func(owner, ref string) {
		if _, ok := n.Nodes[ref]; !ok {
			out = append(out, fmt.Sprintf("%s -> node %s", owner, ref))
		}
	}
	support := func(owner, ref string) {
		if _, ok := n.Supports[ref]; !ok {
			out = append(out, fmt.Sprintf("%s -> support %s", owner, ref))
		}
	}
	citation := func(owner, ref string) {
		if ref == "" {
			return
		}
		if _, ok := n.Citations[ref]; !ok {
			out = append(out, fmt.Sprintf("%s -> citation %s", owner, ref))
		}
	}

	for _, k := range SortedKeys(n.Terms) {
		t := n.Terms[k]
		owner := "term " + k
		if t.Variant() == TermBase {
			if t.Namespace != "" {
				if _, ok := n.Namespaces[t.Namespace]; !ok {
					out = append(out, fmt.Sprintf("%s -> namespace %s", owner, t.Namespace))
				}
			}
			continue
		}
		term(owner, t.Function)
		for _, p := range t.Parameters {
			term(owner, p)
		}
	}
	for _, k := range SortedKeys(n.Nodes) {
		nd := n.Nodes[k]
		owner := "node " + k
		term(owner, nd.Represents)
		for _, t := range nd.Aliases {
			term(owner, t)
		}
		for _, t := range nd.RelatedTerms {
			term(owner, t)
		}
		for _, c := range nd.Citations {
			citation(owner, c)
		}
		for _, s := range nd.Supports {
			support(owner, s)
		}
	}
	for _, k := range SortedKeys(n.Edges) {
		e := n.Edges[k]
		owner := "edge " + k
		node(owner, e.Subject)
		term(owner, e.Predicate)
		node(owner, e.Object)
		for _, c := range e.Citations {
			citation(owner, c)
		}
		for _, s := range e.Supports {
			support(owner, s)
		}
	}
	for _, k := range SortedKeys(n.Supports) {
		citation("support "+k, n.Supports[k].Citation)
	}
	for _, k := range SortedKeys(n.Citations) {
		for _, s := range n.Citations[k].Supports {
			support("citation "+k, s)
		}
	}
	return out
}
