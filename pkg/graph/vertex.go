package graph

import (
	"encoding/json"
	"math"
	"sort"
)

// Label names a directed relation between two vertices
type Label string

const (
	LabelNetworkNamespaces Label = "networkNamespaces"
	LabelNetworkTerms      Label = "networkTerms"
	LabelNetworkNodes      Label = "networkNodes"
	LabelNetworkEdges      Label = "networkEdges"
	LabelNetworkSupports   Label = "networkSupports"
	LabelNetworkCitations  Label = "networkCitations"

	LabelBaseTermNamespace      Label = "baseTermNamespace"
	LabelFunctionTermFunction   Label = "functionTermFunction"
	LabelFunctionTermParameters Label = "functionTermParameters"

	LabelNodeRepresents   Label = "nodeRepresents"
	LabelNodeAliases      Label = "nodeAliases"
	LabelNodeRelatedTerms Label = "nodeRelatedTerms"
	LabelNodeCitations    Label = "nodeCitations"
	LabelNodeSupports     Label = "nodeSupports"

	LabelEdgeSubject   Label = "edgeSubject"
	LabelEdgePredicate Label = "edgePredicate"
	LabelEdgeObject    Label = "edgeObject"
	LabelEdgeCitations Label = "edgeCitations"
	LabelEdgeSupports  Label = "edgeSupports"

	LabelSupportCitation  Label = "supportCitation"
	LabelCitationSupports Label = "citationSupports"
)

var knownLabels = map[Label]bool{
	LabelNetworkNamespaces: true, LabelNetworkTerms: true, LabelNetworkNodes: true,
	LabelNetworkEdges: true, LabelNetworkSupports: true, LabelNetworkCitations: true,
	LabelBaseTermNamespace: true, LabelFunctionTermFunction: true, LabelFunctionTermParameters: true,
	LabelNodeRepresents: true, LabelNodeAliases: true, LabelNodeRelatedTerms: true,
	LabelNodeCitations: true, LabelNodeSupports: true,
	LabelEdgeSubject: true, LabelEdgePredicate: true, LabelEdgeObject: true,
	LabelEdgeCitations: true, LabelEdgeSupports: true,
	LabelSupportCitation: true, LabelCitationSupports: true,
}

// Valid reports whether the label belongs to the network vocabulary
func (l Label) Valid() bool {
	return knownLabels[l]
}

// OwnershipLabel returns the network collection label for a class
func OwnershipLabel(class Class) (Label, bool) {
	switch class {
	case ClassNamespace:
		return LabelNetworkNamespaces, true
	case ClassBaseTerm, ClassFunctionTerm:
		return LabelNetworkTerms, true
	case ClassNode:
		return LabelNetworkNodes, true
	case ClassEdge:
		return LabelNetworkEdges, true
	case ClassSupport:
		return LabelNetworkSupports, true
	case ClassCitation:
		return LabelNetworkCitations, true
	}
	return "", false
}

// OwnershipLabels lists every network collection label in creation order
var OwnershipLabels = []Label{
	LabelNetworkNamespaces,
	LabelNetworkTerms,
	LabelNetworkSupports,
	LabelNetworkCitations,
	LabelNetworkNodes,
	LabelNetworkEdges,
}

// Property keys shared by every backend
const (
	PropImportID     = "import_id"
	PropName         = "name"
	PropPrefix       = "prefix"
	PropURI          = "uri"
	PropText         = "text"
	PropTitle        = "title"
	PropIdentifier   = "identifier"
	PropType         = "type"
	PropContributors = "contributors"
	PropDescription  = "description"
	PropOwner        = "owner"
	PropMetadata     = "metadata"
	PropMetaterms    = "metaterms"
	PropIsPublic     = "is_public"
	PropIsLocked     = "is_locked"
	PropIsComplete   = "is_complete"
	PropNodeCount    = "node_count"
	PropEdgeCount    = "edge_count"
)

// Vertex is a stored graph element
type Vertex struct {
	ID    string `json:"id"`
	Class Class  `json:"class"`
	Props Props  `json:"props"`
}

// Clone returns a copy whose property map can be modified independently
func (v *Vertex) Clone() *Vertex {
	return &Vertex{ID: v.ID, Class: v.Class, Props: v.Props.Clone()}
}

// Props holds scalar vertex attributes. Values survive a JSON round trip, so
// the typed accessors accept both native and decoded representations.
type Props map[string]interface{}

func (p Props) Clone() Props {
	out := make(Props, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// Merge copies every entry of other into p
func (p Props) Merge(other Props) {
	for k, v := range other {
		p[k] = v
	}
}

func (p Props) String(key string) string {
	s, _ := p[key].(string)
	return s
}

func (p Props) Bool(key string) bool {
	b, _ := p[key].(bool)
	return b
}

func (p Props) Int(key string) int {
	switch v := p[key].(type) {
	case int:
		return v
	case int32:
		return int(v)
	case int64:
		return int(v)
	case float64:
		return int(math.Round(v))
	case json.Number:
		n, _ := v.Int64()
		return int(n)
	}
	return 0
}

func (p Props) Strings(key string) []string {
	switch v := p[key].(type) {
	case []string:
		return append([]string(nil), v...)
	case []interface{}:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

func (p Props) StringMap(key string) map[string]string {
	out := make(map[string]string)
	switch v := p[key].(type) {
	case map[string]string:
		for k, s := range v {
			out[k] = s
		}
	case map[string]interface{}:
		for k, item := range v {
			if s, ok := item.(string); ok {
				out[k] = s
			}
		}
	}
	return out
}

// SortedKeys returns the map keys in lexical order
func SortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
