package graph

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"not found", NotFoundf("network %s", "x"), ErrNotFound},
		{"integrity", Integrityf("edge %s", "e"), ErrIntegrityViolation},
		{"conflict", Conflictf("prefix"), ErrConflict},
		{"invalid", Invalidf("doc"), ErrInvalidInput},
		{"forbidden", Forbiddenf("merge"), ErrForbidden},
		{"wrapped twice", Invalidf("outer: %v", NotFoundf("inner")), ErrInvalidInput},
		{"plain", errors.New("disk on fire"), nil},
		{"nil", nil, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, KindOf(tt.err))
		})
	}
}

func TestImportIndex(t *testing.T) {
	idx := NewImportIndex()
	require.NoError(t, idx.Put("B1", Ref{ID: "1", Class: ClassBaseTerm}))
	require.NoError(t, idx.Put("B1", Ref{ID: "1", Class: ClassBaseTerm}))

	err := idx.Put("B1", Ref{ID: "2", Class: ClassBaseTerm})
	assert.True(t, errors.Is(err, ErrConflict))

	_, ok := idx.LookupClass("B1", ClassNode)
	assert.False(t, ok)
	ref, ok := idx.LookupClass("B1", ClassBaseTerm, ClassFunctionTerm)
	assert.True(t, ok)
	assert.Equal(t, "1", ref.ID)
	assert.Equal(t, 1, idx.Len())

	_, ok = idx.Lookup("missing")
	assert.False(t, ok)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		doc     ImportDocument
		wantErr bool
	}{
		{
			name: "valid",
			doc: ImportDocument{
				Name:  "net",
				Terms: []Term{{ImportID: "B1", Name: "geneA"}, {ImportID: "F1", Type: TermFunction, Function: "B1"}},
				Edges: []Edge{{ImportID: "e1", Subject: "n1", Predicate: "B1", Object: "n2"}},
			},
		},
		{name: "missing name", doc: ImportDocument{}, wantErr: true},
		{
			name:    "function without function",
			doc:     ImportDocument{Name: "net", Terms: []Term{{ImportID: "F1", Type: TermFunction}}},
			wantErr: true,
		},
		{
			name:    "unknown term type",
			doc:     ImportDocument{Name: "net", Terms: []Term{{ImportID: "X", Type: "Mystery", Name: "x"}}},
			wantErr: true,
		},
		{
			name:    "edge without object",
			doc:     ImportDocument{Name: "net", Edges: []Edge{{ImportID: "e1", Subject: "a", Predicate: "b"}}},
			wantErr: true,
		},
		{
			name: "import-id shared across collections",
			doc: ImportDocument{
				Name:      "net",
				Supports:  []Support{{ImportID: "x"}},
				Citations: []Citation{{ImportID: "x"}},
			},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.doc.Validate()
			if tt.wantErr {
				assert.True(t, errors.Is(err, ErrInvalidInput), "got %v", err)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestDocumentFromNetworkOrdersTerms(t *testing.T) {
	n := NewNetwork()
	n.Name = "ordered"
	n.Terms["A"] = Term{ImportID: "A", Type: TermFunction, Function: "Z", Parameters: []string{"M"}}
	n.Terms["M"] = Term{ImportID: "M", Type: TermFunction, Function: "Z", Parameters: []string{"Y"}}
	n.Terms["Y"] = Term{ImportID: "Y", Name: "y"}
	n.Terms["Z"] = Term{ImportID: "Z", Name: "z"}
	n.Metaterms["organism"] = Term{ImportID: "Y", Name: "y"}

	doc, err := DocumentFromNetwork(n)
	require.NoError(t, err)

	pos := make(map[string]int)
	for i, term := range doc.Terms {
		pos[term.ImportID] = i
	}
	assert.Less(t, pos["Z"], pos["M"])
	assert.Less(t, pos["Y"], pos["M"])
	assert.Less(t, pos["M"], pos["A"])
	assert.Equal(t, map[string]string{"organism": "Y"}, doc.Metaterms)
	assert.Equal(t, 4, doc.Size())
}

func TestDocumentFromNetworkRejectsCycle(t *testing.T) {
	n := NewNetwork()
	n.Name = "cyclic"
	n.Terms["F1"] = Term{ImportID: "F1", Type: TermFunction, Function: "B1", Parameters: []string{"F2"}}
	n.Terms["F2"] = Term{ImportID: "F2", Type: TermFunction, Function: "B1", Parameters: []string{"F1"}}
	n.Terms["B1"] = Term{ImportID: "B1", Name: "b"}

	_, err := DocumentFromNetwork(n)
	assert.True(t, errors.Is(err, ErrConflict))
}

func TestDangling(t *testing.T) {
	n := NewNetwork()
	n.Terms["B1"] = Term{ImportID: "B1", Name: "b", Namespace: "NS9"}
	n.Nodes["n1"] = Node{ImportID: "n1", Represents: "B1", Citations: []string{"C1"}}
	n.Edges["e1"] = Edge{ImportID: "e1", Subject: "n1", Predicate: "B1", Object: "n2", Supports: []string{"S1"}}
	n.Supports["S2"] = Support{ImportID: "S2", Citation: "C2"}

	assert.Equal(t, []string{
		"term B1 -> namespace NS9",
		"node n1 -> citation C1",
		"edge e1 -> node n2",
		"edge e1 -> support S1",
		"support S2 -> citation C2",
	}, n.Dangling())

	clean := NewNetwork()
	clean.Terms["B1"] = Term{ImportID: "B1", Name: "b"}
	clean.Nodes["n1"] = Node{ImportID: "n1", Represents: "B1"}
	assert.Empty(t, clean.Dangling())
}

func TestTermLabel(t *testing.T) {
	n := NewNetwork()
	n.Namespaces["NS1"] = Namespace{ImportID: "NS1", Prefix: "HGNC", URI: "u"}
	n.Terms["B1"] = Term{ImportID: "B1", Name: "AKT1", Namespace: "NS1"}
	n.Terms["B2"] = Term{ImportID: "B2", Name: "kin"}
	n.Terms["F1"] = Term{ImportID: "F1", Type: TermFunction, Function: "B2", Parameters: []string{"B1", "gone"}}
	n.Nodes["n1"] = Node{ImportID: "n1", Represents: "F1"}
	n.Nodes["n2"] = Node{ImportID: "n2", Name: "named", Represents: "B1"}

	assert.Equal(t, "HGNC:AKT1", n.TermLabel("B1"))
	assert.Equal(t, "kin(HGNC:AKT1, gone)", n.TermLabel("F1"))
	assert.Equal(t, "kin(HGNC:AKT1, gone)", n.NodeLabel("n1"))
	assert.Equal(t, "named", n.NodeLabel("n2"))
	assert.Equal(t, "n9", n.NodeLabel("n9"))
}

func TestPropsAccessors(t *testing.T) {
	var decoded Props
	require.NoError(t, json.Unmarshal([]byte(`{
		"name": "net",
		"node_count": 4,
		"is_public": true,
		"contributors": ["a", "b"],
		"metadata": {"k": "v"}
	}`), &decoded))

	assert.Equal(t, "net", decoded.String(PropName))
	assert.Equal(t, 4, decoded.Int(PropNodeCount))
	assert.True(t, decoded.Bool(PropIsPublic))
	assert.Equal(t, []string{"a", "b"}, decoded.Strings(PropContributors))
	assert.Equal(t, map[string]string{"k": "v"}, decoded.StringMap(PropMetadata))

	assert.Empty(t, decoded.String("missing"))
	assert.Zero(t, decoded.Int("missing"))
	assert.Nil(t, decoded.Strings("missing"))
	assert.Empty(t, decoded.StringMap("missing"))

	clone := decoded.Clone()
	clone.Merge(Props{PropName: "other"})
	assert.Equal(t, "net", decoded.String(PropName))
	assert.Equal(t, "other", clone.String(PropName))
}

func TestLabels(t *testing.T) {
	for _, l := range OwnershipLabels {
		assert.True(t, l.Valid(), l)
	}
	assert.False(t, Label("bogus").Valid())

	label, ok := OwnershipLabel(ClassFunctionTerm)
	assert.True(t, ok)
	assert.Equal(t, LabelNetworkTerms, label)
	_, ok = OwnershipLabel(ClassNetwork)
	assert.False(t, ok)
}

func TestKindName(t *testing.T) {
	assert.Equal(t, "", KindName(nil))
	assert.Equal(t, "not_found", KindName(NotFoundf("x")))
	assert.Equal(t, "duplicate_name", KindName(ErrDuplicateName))
	assert.Equal(t, "store", KindName(errors.New("io")))
}
