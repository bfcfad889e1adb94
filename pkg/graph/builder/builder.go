// Package builder materializes import documents as networks, either as a new
// network or merged into an existing one.
package builder

import (
	"context"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/athapong/ndex-mcp/pkg/graph"
	"github.com/athapong/ndex-mcp/pkg/graph/metrics"
	"github.com/athapong/ndex-mcp/pkg/graph/query"
)

type Builder struct {
	logger *logrus.Logger

	// Strict turns unresolved optional references into conflicts instead of
	// dropping them.
	Strict bool
}

func New(logger *logrus.Logger, strict bool) *Builder {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
	return &Builder{logger: logger, Strict: strict}
}

// Build creates a new network owned by owner from doc. The caller owns the
// session and must roll it back when Build fails.
func (b *Builder) Build(ctx context.Context, s graph.Session, owner string, doc *graph.ImportDocument) (*graph.Network, error) {
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	if err := checkDuplicateName(ctx, s, owner, doc.Name); err != nil {
		return nil, err
	}

	metadata := make(map[string]string, len(doc.Metadata))
	for k, v := range doc.Metadata {
		metadata[k] = v
	}
	networkID, err := s.CreateVertex(ctx, graph.ClassNetwork, graph.Props{
		graph.PropName:        doc.Name,
		graph.PropDescription: doc.Description,
		graph.PropOwner:       owner,
		graph.PropMetadata:    metadata,
		graph.PropIsPublic:    doc.IsPublic,
		graph.PropIsLocked:    false,
		graph.PropIsComplete:  false,
		graph.PropNodeCount:   0,
		graph.PropEdgeCount:   0,
	})
	if err != nil {
		return nil, errors.Wrap(err, "create network")
	}

	op := b.newOperation(s, networkID)
	if err := op.importAll(ctx, doc); err != nil {
		return nil, err
	}
	metaterms, err := op.metaterms(doc.Metaterms)
	if err != nil {
		return nil, err
	}
	if err := s.UpdateVertex(ctx, networkID, graph.Props{
		graph.PropMetaterms:  metaterms,
		graph.PropIsComplete: true,
	}); err != nil {
		return nil, errors.Wrap(err, "store metaterms")
	}
	if err := recount(ctx, s, networkID); err != nil {
		return nil, err
	}

	b.logger.WithFields(logrus.Fields{
		"network_id": networkID,
		"owner":      owner,
		"created":    op.created,
		"skipped":    op.skipped,
	}).Info("Built network")
	return graph.NewReader(s).Network(ctx, networkID)
}

// Merge adds doc to the target network, reusing every record the policy finds
// an equivalent for. The target's metadata and metaterms are left untouched.
func (b *Builder) Merge(ctx context.Context, s graph.Session, targetID string, policy EquivalencePolicy, doc *graph.ImportDocument) (*graph.Network, error) {
	if policy == nil {
		return nil, errors.Wrap(graph.ErrUnsupportedEquivalence, "no policy")
	}
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	header, err := graph.NewReader(s).Header(ctx, targetID)
	if err != nil {
		return nil, err
	}
	if header.IsLocked {
		return nil, graph.Conflictf("network %s is locked", targetID)
	}

	target, err := graph.IndexNetwork(ctx, s, targetID)
	if err != nil {
		return nil, err
	}
	op := b.newOperation(s, targetID)
	op.policy = policy
	op.target = target
	if err := op.loadPrefixes(ctx); err != nil {
		return nil, err
	}
	if err := op.importAll(ctx, doc); err != nil {
		return nil, err
	}
	if err := recount(ctx, s, targetID); err != nil {
		return nil, err
	}

	b.logger.WithFields(logrus.Fields{
		"network_id": targetID,
		"policy":     policy.Name(),
		"created":    op.created,
		"reused":     op.reused,
		"skipped":    op.skipped,
	}).Info("Merged into network")
	return graph.NewReader(s).Network(ctx, targetID)
}

func checkDuplicateName(ctx context.Context, s graph.Session, owner, name string) error {
	networks, err := s.VerticesByClass(ctx, graph.ClassNetwork)
	if err != nil {
		return errors.Wrap(err, "list networks")
	}
	for _, n := range networks {
		if n.Props.String(graph.PropOwner) == owner && n.Props.String(graph.PropName) == name {
			return errors.Wrapf(graph.ErrDuplicateName, "network %q already exists for %s", name, owner)
		}
	}
	return nil
}

// recount sets the node and edge counts from the owned collections
func recount(ctx context.Context, s graph.Session, networkID string) error {
	nodes, err := s.Neighbors(ctx, networkID, graph.LabelNetworkNodes, query.Out)
	if err != nil {
		return err
	}
	edges, err := s.Neighbors(ctx, networkID, graph.LabelNetworkEdges, query.Out)
	if err != nil {
		return err
	}
	return s.UpdateVertex(ctx, networkID, graph.Props{
		graph.PropNodeCount: len(nodes),
		graph.PropEdgeCount: len(edges),
	})
}

type pendingLink struct {
	from  string
	owner string
	ref   string
}

// operation carries the state of one build or merge
type operation struct {
	b         *Builder
	s         graph.Session
	networkID string
	idx       *graph.ImportIndex
	policy    EquivalencePolicy
	target    *graph.ImportIndex
	prefixes  map[string]string

	// supports whose originating citation is linked once citations exist
	pendingCitations []pendingLink

	created int
	reused  int
	skipped int
}

func (b *Builder) newOperation(s graph.Session, networkID string) *operation {
	return &operation{
		b:         b,
		s:         s,
		networkID: networkID,
		idx:       graph.NewImportIndex(),
		prefixes:  make(map[string]string),
	}
}

func (op *operation) loadPrefixes(ctx context.Context) error {
	ids, err := op.s.Neighbors(ctx, op.networkID, graph.LabelNetworkNamespaces, query.Out)
	if err != nil {
		return err
	}
	r := graph.NewReader(op.s)
	for _, id := range ids {
		ns, err := r.Namespace(ctx, id)
		if err != nil {
			return err
		}
		if ns.Prefix != "" {
			op.prefixes[ns.Prefix] = ns.ImportID
		}
	}
	return nil
}

// importAll creates records in dependency order: namespaces, terms, supports,
// citations, nodes, edges.
func (op *operation) importAll(ctx context.Context, doc *graph.ImportDocument) error {
	for _, ns := range doc.Namespaces {
		if err := op.namespace(ctx, ns); err != nil {
			return err
		}
	}
	for _, t := range doc.Terms {
		if err := op.term(ctx, t); err != nil {
			return err
		}
	}
	for _, s := range doc.Supports {
		if err := op.support(ctx, s); err != nil {
			return err
		}
	}
	for _, c := range doc.Citations {
		if err := op.citation(ctx, c); err != nil {
			return err
		}
	}
	if err := op.linkSupportCitations(ctx); err != nil {
		return err
	}
	for _, n := range doc.Nodes {
		if err := op.node(ctx, n); err != nil {
			return err
		}
	}
	for _, e := range doc.Edges {
		if err := op.edge(ctx, e); err != nil {
			return err
		}
	}
	return nil
}

// materialize reuses an equivalent entity when the policy finds one and
// creates and attaches a new one otherwise. created reports which happened.
func (op *operation) materialize(ctx context.Context, importID string, class graph.Class, record interface{}, props graph.Props) (string, bool, error) {
	id, ok, err := op.equivalent(ctx, importID, class, record)
	if err != nil || ok {
		return id, false, err
	}
	id, err = op.create(ctx, importID, class, props)
	return id, err == nil, err
}

func (op *operation) equivalent(ctx context.Context, importID string, class graph.Class, record interface{}) (string, bool, error) {
	if op.policy == nil {
		return "", false, nil
	}
	ref, ok, err := op.policy.FindEquivalent(ctx, Candidate{ImportID: importID, Class: class, Record: record}, op.target)
	if err != nil || !ok {
		return "", false, err
	}
	if err := op.idx.Put(importID, ref); err != nil {
		return "", false, err
	}
	op.reused++
	metrics.EntitiesReused.WithLabelValues(string(class), op.policy.Name()).Inc()
	return ref.ID, true, nil
}

func (op *operation) create(ctx context.Context, importID string, class graph.Class, props graph.Props) (string, error) {
	if props == nil {
		props = graph.Props{}
	}
	props[graph.PropImportID] = importID
	id, err := op.s.CreateVertex(ctx, class, props)
	if err != nil {
		return "", errors.Wrapf(err, "create %s %q", class, importID)
	}
	label, _ := graph.OwnershipLabel(class)
	if err := op.s.Link(ctx, op.networkID, label, id); err != nil {
		return "", errors.Wrapf(err, "attach %s %q", class, importID)
	}
	if err := op.idx.Put(importID, graph.Ref{ID: id, Class: class}); err != nil {
		return "", err
	}
	op.created++
	metrics.EntitiesCreated.WithLabelValues(string(class)).Inc()
	return id, nil
}

// unresolved handles a dangling optional reference
func (op *operation) unresolved(owner, relation, ref string) error {
	if op.b.Strict {
		return graph.Conflictf("%s: %s %q is not defined earlier in the document", owner, relation, ref)
	}
	op.skipped++
	metrics.SkippedReferences.Inc()
	op.b.logger.WithFields(logrus.Fields{
		"network_id": op.networkID,
		"owner":      owner,
		"relation":   relation,
		"reference":  ref,
	}).Warn("Skipping unresolved reference")
	return nil
}

// linkRefs links id to every resolvable reference in refs
func (op *operation) linkRefs(ctx context.Context, owner, id string, label graph.Label, refs []string, classes ...graph.Class) error {
	for _, ref := range refs {
		target, ok := op.idx.LookupClass(ref, classes...)
		if !ok {
			if err := op.unresolved(owner, string(label), ref); err != nil {
				return err
			}
			continue
		}
		if err := op.s.Link(ctx, id, label, target.ID); err != nil {
			return errors.Wrapf(err, "%s: link %s", owner, label)
		}
	}
	return nil
}

func (op *operation) namespace(ctx context.Context, ns graph.Namespace) error {
	if _, ok, err := op.equivalent(ctx, ns.ImportID, graph.ClassNamespace, ns); err != nil || ok {
		return err
	}
	if ns.Prefix != "" {
		if other, taken := op.prefixes[ns.Prefix]; taken {
			return graph.Conflictf("namespace prefix %q is used by %q and %q", ns.Prefix, other, ns.ImportID)
		}
	}
	if _, err := op.create(ctx, ns.ImportID, graph.ClassNamespace, graph.Props{
		graph.PropPrefix: ns.Prefix,
		graph.PropURI:    ns.URI,
	}); err != nil {
		return err
	}
	if ns.Prefix != "" {
		op.prefixes[ns.Prefix] = ns.ImportID
	}
	return nil
}

func (op *operation) term(ctx context.Context, t graph.Term) error {
	owner := "term " + t.ImportID
	switch t.Variant() {
	case graph.TermBase:
		id, created, err := op.materialize(ctx, t.ImportID, graph.ClassBaseTerm, t, graph.Props{
			graph.PropName: t.Name,
		})
		if err != nil || !created || t.Namespace == "" {
			return err
		}
		return op.linkRefs(ctx, owner, id, graph.LabelBaseTermNamespace, []string{t.Namespace}, graph.ClassNamespace)

	case graph.TermFunction:
		function, ok := op.idx.Lookup(t.Function)
		if !ok {
			if err := op.unresolved(owner, string(graph.LabelFunctionTermFunction), t.Function); err != nil {
				return err
			}
		} else if function.Class != graph.ClassBaseTerm {
			return graph.Conflictf("%s: function %q is a %s, not a base term", owner, t.Function, function.Class)
		}
		id, created, err := op.materialize(ctx, t.ImportID, graph.ClassFunctionTerm, t, graph.Props{})
		if err != nil || !created {
			return err
		}
		if ok {
			if err := op.s.Link(ctx, id, graph.LabelFunctionTermFunction, function.ID); err != nil {
				return errors.Wrapf(err, "%s: link function", owner)
			}
		}
		return op.linkRefs(ctx, owner, id, graph.LabelFunctionTermParameters, t.Parameters,
			graph.ClassBaseTerm, graph.ClassFunctionTerm)

	default:
		return graph.Invalidf("%s: unknown term type %q", owner, t.Type)
	}
}

func (op *operation) support(ctx context.Context, s graph.Support) error {
	id, created, err := op.materialize(ctx, s.ImportID, graph.ClassSupport, s, graph.Props{
		graph.PropText: s.Text,
	})
	if err != nil {
		return err
	}
	if created && s.Citation != "" {
		op.pendingCitations = append(op.pendingCitations, pendingLink{from: id, owner: "support " + s.ImportID, ref: s.Citation})
	}
	return nil
}

func (op *operation) citation(ctx context.Context, c graph.Citation) error {
	contributors := append([]string{}, c.Contributors...)
	id, created, err := op.materialize(ctx, c.ImportID, graph.ClassCitation, c, graph.Props{
		graph.PropTitle:        c.Title,
		graph.PropIdentifier:   c.Identifier,
		graph.PropType:         c.Type,
		graph.PropContributors: contributors,
	})
	if err != nil || !created {
		return err
	}
	return op.linkRefs(ctx, "citation "+c.ImportID, id, graph.LabelCitationSupports, c.Supports, graph.ClassSupport)
}

// linkSupportCitations attaches originating citations to the supports created
// before any citation existed.
func (op *operation) linkSupportCitations(ctx context.Context) error {
	for _, p := range op.pendingCitations {
		if err := op.linkRefs(ctx, p.owner, p.from, graph.LabelSupportCitation,
			[]string{p.ref}, graph.ClassCitation); err != nil {
			return err
		}
	}
	return nil
}

func (op *operation) node(ctx context.Context, n graph.Node) error {
	id, created, err := op.materialize(ctx, n.ImportID, graph.ClassNode, n, graph.Props{
		graph.PropName: n.Name,
	})
	if err != nil || !created {
		return err
	}
	owner := "node " + n.ImportID
	if n.Represents != "" {
		if err := op.linkRefs(ctx, owner, id, graph.LabelNodeRepresents, []string{n.Represents},
			graph.ClassBaseTerm, graph.ClassFunctionTerm); err != nil {
			return err
		}
	}
	if err := op.linkRefs(ctx, owner, id, graph.LabelNodeAliases, n.Aliases,
		graph.ClassBaseTerm, graph.ClassFunctionTerm); err != nil {
		return err
	}
	if err := op.linkRefs(ctx, owner, id, graph.LabelNodeRelatedTerms, n.RelatedTerms,
		graph.ClassBaseTerm, graph.ClassFunctionTerm); err != nil {
		return err
	}
	if err := op.linkRefs(ctx, owner, id, graph.LabelNodeCitations, n.Citations, graph.ClassCitation); err != nil {
		return err
	}
	return op.linkRefs(ctx, owner, id, graph.LabelNodeSupports, n.Supports, graph.ClassSupport)
}

func (op *operation) edge(ctx context.Context, e graph.Edge) error {
	owner := "edge " + e.ImportID
	subject, ok := op.idx.LookupClass(e.Subject, graph.ClassNode)
	if !ok {
		return graph.Conflictf("%s: subject %q is not a node defined earlier in the document", owner, e.Subject)
	}
	predicate, ok := op.idx.LookupClass(e.Predicate, graph.ClassBaseTerm)
	if !ok {
		return graph.Conflictf("%s: predicate %q is not a base term defined earlier in the document", owner, e.Predicate)
	}
	object, ok := op.idx.LookupClass(e.Object, graph.ClassNode)
	if !ok {
		return graph.Conflictf("%s: object %q is not a node defined earlier in the document", owner, e.Object)
	}

	id, created, err := op.materialize(ctx, e.ImportID, graph.ClassEdge, e, graph.Props{})
	if err != nil || !created {
		return err
	}
	for _, l := range []struct {
		label graph.Label
		to    string
	}{
		{graph.LabelEdgeSubject, subject.ID},
		{graph.LabelEdgePredicate, predicate.ID},
		{graph.LabelEdgeObject, object.ID},
	} {
		if err := op.s.Link(ctx, id, l.label, l.to); err != nil {
			return errors.Wrapf(err, "%s: link %s", owner, l.label)
		}
	}
	if err := op.linkRefs(ctx, owner, id, graph.LabelEdgeCitations, e.Citations, graph.ClassCitation); err != nil {
		return err
	}
	return op.linkRefs(ctx, owner, id, graph.LabelEdgeSupports, e.Supports, graph.ClassSupport)
}

// metaterms resolves metaterm keys to base term store ids
func (op *operation) metaterms(refs map[string]string) (map[string]string, error) {
	out := make(map[string]string, len(refs))
	for _, key := range graph.SortedKeys(refs) {
		ref, ok := op.idx.LookupClass(refs[key], graph.ClassBaseTerm)
		if !ok {
			if err := op.unresolved("metaterm "+key, "baseTerm", refs[key]); err != nil {
				return nil, err
			}
			continue
		}
		out[key] = ref.ID
	}
	return out, nil
}
