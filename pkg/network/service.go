// Package network exposes network operations to callers. Each call runs in
// its own unit of work: committed when the call succeeds, rolled back on any
// failure.
package network

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/athapong/ndex-mcp/pkg/graph"
	"github.com/athapong/ndex-mcp/pkg/graph/builder"
	"github.com/athapong/ndex-mcp/pkg/graph/closure"
	"github.com/athapong/ndex-mcp/pkg/graph/metrics"
	"github.com/athapong/ndex-mcp/pkg/graph/query"
)

type Options struct {
	Logger     *logrus.Logger
	Authorizer Authorizer

	// Strict rejects imports with unresolved optional references
	Strict bool

	// TraversalDepth bounds citation traversals; zero keeps the engine default
	TraversalDepth int

	// DefaultPolicy is used by merges that do not name an equivalence method
	DefaultPolicy string
}

type Service struct {
	store   graph.Store
	builder *builder.Builder
	auth    Authorizer
	logger  *logrus.Logger

	traversalDepth int
	defaultPolicy  string
}

func NewService(store graph.Store, opts Options) *Service {
	logger := opts.Logger
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
	auth := opts.Authorizer
	if auth == nil {
		auth = OwnerAuthorizer{}
	}
	policy := opts.DefaultPolicy
	if policy == "" {
		policy = builder.PolicyJDexID
	}
	return &Service{
		store:          store,
		builder:        builder.New(logger, opts.Strict),
		auth:           auth,
		logger:         logger,
		traversalDepth: opts.TraversalDepth,
		defaultPolicy:  policy,
	}
}

// Store returns the backing store
func (s *Service) Store() graph.Store {
	return s.store
}

// run executes fn in a unit of work. Write units commit only when fn
// succeeds; every failure rolls back.
func (s *Service) run(ctx context.Context, operation string, mode graph.AccessMode, fn func(sess graph.Session) error) (err error) {
	start := time.Now()
	defer func() {
		metrics.ObserveOperation(operation, start, graph.KindName(err))
	}()

	sess, err := s.store.Begin(ctx, mode)
	if err != nil {
		return errors.Wrapf(err, "begin %s", operation)
	}
	defer func() {
		if r := recover(); r != nil {
			if rbErr := sess.Rollback(ctx); rbErr != nil {
				s.logger.WithError(rbErr).WithField("operation", operation).Error("Rollback failed")
			}
			if mode == graph.AccessWrite {
				metrics.Rollbacks.WithLabelValues(operation).Inc()
			}
			panic(r)
		}
	}()
	if err = fn(sess); err != nil {
		if rbErr := sess.Rollback(ctx); rbErr != nil {
			s.logger.WithError(rbErr).WithField("operation", operation).Error("Rollback failed")
		}
		if mode == graph.AccessWrite {
			metrics.Rollbacks.WithLabelValues(operation).Inc()
			s.logger.WithError(err).WithFields(logrus.Fields{
				"operation": operation,
				"kind":      graph.KindName(err),
			}).Warn("Rolled back")
		}
		return err
	}
	if err = sess.Commit(ctx); err != nil {
		sess.Rollback(ctx)
		return errors.Wrapf(err, "commit %s", operation)
	}
	return nil
}

func (s *Service) engine(sess graph.Session) *closure.Engine {
	e := closure.NewEngine(sess, s.logger)
	if s.traversalDepth > 0 {
		e.TraversalDepth = s.traversalDepth
	}
	return e
}

// authorize loads the network header and checks the capability
func (s *Service) authorize(ctx context.Context, sess graph.Session, actor, networkID string, p Permission) (*graph.Network, error) {
	header, err := graph.NewReader(sess).Header(ctx, networkID)
	if err != nil {
		return nil, err
	}
	if !s.auth.Allowed(actor, header, p) {
		return nil, graph.Forbiddenf("%s lacks %s on network %s", actor, p, networkID)
	}
	return header, nil
}

// CreateNetwork imports doc as a new network owned by actor
func (s *Service) CreateNetwork(ctx context.Context, actor string, doc *graph.ImportDocument) (*graph.Network, error) {
	if actor == "" {
		return nil, graph.Invalidf("actor is required")
	}
	var out *graph.Network
	err := s.run(ctx, "create_network", graph.AccessWrite, func(sess graph.Session) error {
		var err error
		out, err = s.builder.Build(ctx, sess, actor, doc)
		return err
	})
	return out, err
}

// MergeNetwork adds doc to an existing network. method names the equivalence
// policy; empty selects the service default.
func (s *Service) MergeNetwork(ctx context.Context, actor, networkID, method string, doc *graph.ImportDocument) (*graph.Network, error) {
	if method == "" {
		method = s.defaultPolicy
	}
	policy, err := builder.PolicyFor(method)
	if err != nil {
		return nil, err
	}
	var out *graph.Network
	err = s.run(ctx, "merge_network", graph.AccessWrite, func(sess graph.Session) error {
		if _, err := s.authorize(ctx, sess, actor, networkID, PermAdmin); err != nil {
			return err
		}
		var err error
		out, err = s.builder.Merge(ctx, sess, networkID, policy, doc)
		return err
	})
	return out, err
}

// GetNetwork returns the network scalars and metaterms without collections
func (s *Service) GetNetwork(ctx context.Context, actor, networkID string) (*graph.Network, error) {
	var out *graph.Network
	err := s.run(ctx, "get_network", graph.AccessRead, func(sess graph.Session) error {
		var err error
		out, err = s.authorize(ctx, sess, actor, networkID, PermRead)
		return err
	})
	return out, err
}

// ExportNetwork returns the network with every owned collection
func (s *Service) ExportNetwork(ctx context.Context, actor, networkID string) (*graph.Network, error) {
	var out *graph.Network
	err := s.run(ctx, "export_network", graph.AccessRead, func(sess graph.Session) error {
		if _, err := s.authorize(ctx, sess, actor, networkID, PermRead); err != nil {
			return err
		}
		var err error
		out, err = graph.NewReader(sess).Network(ctx, networkID)
		return err
	})
	return out, err
}

// ListNetworks returns the headers of every network actor may read
func (s *Service) ListNetworks(ctx context.Context, actor string) ([]*graph.Network, error) {
	var out []*graph.Network
	err := s.run(ctx, "list_networks", graph.AccessRead, func(sess graph.Session) error {
		vertices, err := sess.VerticesByClass(ctx, graph.ClassNetwork)
		if err != nil {
			return err
		}
		r := graph.NewReader(sess)
		for _, v := range vertices {
			header, err := r.Header(ctx, v.ID)
			if err != nil {
				return err
			}
			if s.auth.Allowed(actor, header, PermRead) {
				out = append(out, header)
			}
		}
		return nil
	})
	return out, err
}

// NetworkUpdate carries the scalar attributes to change. Nil fields are kept.
type NetworkUpdate struct {
	Name        *string           `json:"name,omitempty"`
	Description *string           `json:"description,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	IsPublic    *bool             `json:"is_public,omitempty"`
	IsLocked    *bool             `json:"is_locked,omitempty"`
}

// UpdateNetwork changes scalar metadata. Renaming keeps names unique per owner.
func (s *Service) UpdateNetwork(ctx context.Context, actor, networkID string, u NetworkUpdate) (*graph.Network, error) {
	var out *graph.Network
	err := s.run(ctx, "update_network", graph.AccessWrite, func(sess graph.Session) error {
		header, err := s.authorize(ctx, sess, actor, networkID, PermWrite)
		if err != nil {
			return err
		}
		props := graph.Props{}
		if u.Name != nil {
			if *u.Name == "" {
				return graph.Invalidf("network name cannot be empty")
			}
			if *u.Name != header.Name {
				if err := s.checkName(ctx, sess, header.Owner, *u.Name); err != nil {
					return err
				}
			}
			props[graph.PropName] = *u.Name
		}
		if u.Description != nil {
			props[graph.PropDescription] = *u.Description
		}
		if u.Metadata != nil {
			props[graph.PropMetadata] = u.Metadata
		}
		if u.IsPublic != nil {
			props[graph.PropIsPublic] = *u.IsPublic
		}
		if u.IsLocked != nil {
			props[graph.PropIsLocked] = *u.IsLocked
		}
		if len(props) > 0 {
			if err := sess.UpdateVertex(ctx, networkID, props); err != nil {
				return errors.Wrap(err, "update network")
			}
		}
		out, err = graph.NewReader(sess).Header(ctx, networkID)
		return err
	})
	return out, err
}

func (s *Service) checkName(ctx context.Context, sess graph.Session, owner, name string) error {
	networks, err := sess.VerticesByClass(ctx, graph.ClassNetwork)
	if err != nil {
		return err
	}
	for _, n := range networks {
		if n.Props.String(graph.PropOwner) == owner && n.Props.String(graph.PropName) == name {
			return errors.Wrapf(graph.ErrDuplicateName, "network %q already exists for %s", name, owner)
		}
	}
	return nil
}

// DeleteNetwork removes the network and every entity it owns that no other
// network also owns.
func (s *Service) DeleteNetwork(ctx context.Context, actor, networkID string) error {
	return s.run(ctx, "delete_network", graph.AccessWrite, func(sess graph.Session) error {
		if _, err := s.authorize(ctx, sess, actor, networkID, PermAdmin); err != nil {
			return err
		}
		removed := 0
		for _, label := range graph.OwnershipLabels {
			ids, err := sess.Neighbors(ctx, networkID, label, query.Out)
			if err != nil {
				return err
			}
			for _, id := range ids {
				owners, err := sess.Neighbors(ctx, id, label, query.In)
				if err != nil {
					return err
				}
				if sharedOwnership(owners, networkID) {
					continue
				}
				if err := sess.DeleteVertex(ctx, id); err != nil {
					return errors.Wrapf(err, "delete %s", id)
				}
				removed++
			}
		}
		if err := sess.DeleteVertex(ctx, networkID); err != nil {
			return errors.Wrap(err, "delete network")
		}
		s.logger.WithFields(logrus.Fields{
			"network_id": networkID,
			"removed":    removed,
		}).Info("Deleted network")
		return nil
	})
}

func sharedOwnership(owners []string, networkID string) bool {
	for _, o := range owners {
		if o != networkID {
			return true
		}
	}
	return false
}
