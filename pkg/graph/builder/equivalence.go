package builder

import (
	"context"
	"strings"

	"github.com/pkg/errors"

	"github.com/athapong/ndex-mcp/pkg/graph"
)

// Candidate describes an import record the builder is about to create
type Candidate struct {
	ImportID string
	Class    graph.Class
	Record   interface{}
}

// EquivalencePolicy decides whether an import record already has a
// counterpart in the target network.
type EquivalencePolicy interface {
	Name() string
	FindEquivalent(ctx context.Context, c Candidate, target *graph.ImportIndex) (graph.Ref, bool, error)
}

// Policy identifiers accepted by PolicyFor
const (
	PolicyJDexID   = "JDEX_ID"
	PolicyImportID = "IMPORT_ID"
)

// IDEquivalence treats a record as equivalent to the target entity that was
// materialized under the same import-id.
type IDEquivalence struct{}

func (IDEquivalence) Name() string {
	return PolicyJDexID
}

func (IDEquivalence) FindEquivalent(ctx context.Context, c Candidate, target *graph.ImportIndex) (graph.Ref, bool, error) {
	ref, ok := target.Lookup(c.ImportID)
	if !ok {
		return graph.Ref{}, false, nil
	}
	if ref.Class != c.Class {
		return graph.Ref{}, false, graph.Conflictf("import-id %q is a %s in the target network, not a %s", c.ImportID, ref.Class, c.Class)
	}
	return ref, true, nil
}

var policies = map[string]EquivalencePolicy{
	PolicyJDexID:   IDEquivalence{},
	PolicyImportID: IDEquivalence{},
}

// PolicyFor returns the policy registered under name
func PolicyFor(name string) (EquivalencePolicy, error) {
	if p, ok := policies[strings.ToUpper(strings.TrimSpace(name))]; ok {
		return p, nil
	}
	return nil, errors.Wrapf(graph.ErrUnsupportedEquivalence, "%q", name)
}

// Policies lists the registered policy identifiers
func Policies() []string {
	return graph.SortedKeys(policies)
}
