package graph

import (
	"context"

	"github.com/athapong/ndex-mcp/pkg/graph/query"
)

// Ref points at a stored entity
type Ref struct {
	ID    string
	Class Class
}

// ImportIndex maps import-ids to the entities created or reused for them
// during one build or merge. It is owned by that single operation.
type ImportIndex struct {
	entries map[string]Ref
}

func NewImportIndex() *ImportIndex {
	return &ImportIndex{entries: make(map[string]Ref)}
}

// Put records an import-id. Re-recording the same entity is a no-op; binding
// the id to a different entity is a conflict.
func (x *ImportIndex) Put(importID string, ref Ref) error {
	if prev, ok := x.entries[importID]; ok {
		if prev.ID != ref.ID {
			return Conflictf("import-id %q already bound to %s %s", importID, prev.Class, prev.ID)
		}
		return nil
	}
	x.entries[importID] = ref
	return nil
}

func (x *ImportIndex) Lookup(importID string) (Ref, bool) {
	ref, ok := x.entries[importID]
	return ref, ok
}

// LookupClass resolves an import-id only when the entity has one of the classes
func (x *ImportIndex) LookupClass(importID string, classes ...Class) (Ref, bool) {
	ref, ok := x.entries[importID]
	if !ok {
		return Ref{}, false
	}
	for _, c := range classes {
		if ref.Class == c {
			return ref, true
		}
	}
	return Ref{}, false
}

func (x *ImportIndex) Len() int {
	return len(x.entries)
}

// IndexNetwork builds the import index of an existing network from its owned
// collections.
func IndexNetwork(ctx context.Context, s Session, networkID string) (*ImportIndex, error) {
	idx := NewImportIndex()
	for _, label := range OwnershipLabels {
		ids, err := s.Neighbors(ctx, networkID, label, query.Out)
		if err != nil {
			return nil, err
		}
		for _, id := range ids {
			v, err := s.GetVertex(ctx, id)
			if err != nil {
				return nil, Integrityf("network %s lists %s %s: %v", networkID, label, id, err)
			}
			importID := v.Props.String(PropImportID)
			if importID == "" {
				continue
			}
			if err := idx.Put(importID, Ref{ID: v.ID, Class: v.Class}); err != nil {
				return nil, err
			}
		}
	}
	return idx, nil
}
