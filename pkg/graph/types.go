package graph

import (
	"context"

	"github.com/athapong/ndex-mcp/pkg/graph/query"
)

// Class is the vertex class of a stored graph entity
type Class string

const (
	ClassNetwork      Class = "network"
	ClassNamespace    Class = "namespace"
	ClassBaseTerm     Class = "baseTerm"
	ClassFunctionTerm Class = "functionTerm"
	ClassNode         Class = "node"
	ClassEdge         Class = "edge"
	ClassSupport      Class = "support"
	ClassCitation     Class = "citation"
)

// IsTerm reports whether the class is one of the term variants
func (c Class) IsTerm() bool {
	return c == ClassBaseTerm || c == ClassFunctionTerm
}

// TermType tags the Term variant
type TermType string

const (
	TermBase     TermType = "Base"
	TermFunction TermType = "Function"
)

// Namespace represents a vocabulary that base terms belong to
type Namespace struct {
	ID       string `json:"id,omitempty"`
	ImportID string `json:"import_id" validate:"required"`
	Prefix   string `json:"prefix,omitempty"`
	URI      string `json:"uri" validate:"required"`
}

// Term is a tagged variant: a BaseTerm carries Name and an optional Namespace,
// a FunctionTerm carries Function and ordered Parameters. References are import-ids.
type Term struct {
	ID         string   `json:"id,omitempty"`
	ImportID   string   `json:"import_id" validate:"required"`
	Type       TermType `json:"term_type,omitempty" validate:"omitempty,oneof=Base Function"`
	Name       string   `json:"name,omitempty" validate:"required_if=Type Base"`
	Namespace  string   `json:"namespace,omitempty"`
	Function   string   `json:"term_function,omitempty" validate:"required_if=Type Function"`
	Parameters []string `json:"parameters,omitempty"`
}

// Variant returns the term type, treating an empty tag as Base
func (t Term) Variant() TermType {
	if t.Type == "" {
		return TermBase
	}
	return t.Type
}

// Class returns the vertex class for the term variant
func (t Term) Class() Class {
	if t.Variant() == TermFunction {
		return ClassFunctionTerm
	}
	return ClassBaseTerm
}

// Node represents a biological entity in the network
type Node struct {
	ID           string   `json:"id,omitempty"`
	ImportID     string   `json:"import_id" validate:"required"`
	Name         string   `json:"name,omitempty"`
	Represents   string   `json:"represents,omitempty"`
	Aliases      []string `json:"aliases,omitempty"`
	RelatedTerms []string `json:"related_terms,omitempty"`
	Citations    []string `json:"citations,omitempty"`
	Supports     []string `json:"supports,omitempty"`
}

// Edge represents a subject-predicate-object statement between nodes
type Edge struct {
	ID        string   `json:"id,omitempty"`
	ImportID  string   `json:"import_id" validate:"required"`
	Subject   string   `json:"subject" validate:"required"`
	Predicate string   `json:"predicate" validate:"required"`
	Object    string   `json:"object" validate:"required"`
	Citations []string `json:"citations,omitempty"`
	Supports  []string `json:"supports,omitempty"`
}

// Support represents a piece of evidence text
type Support struct {
	ID       string `json:"id,omitempty"`
	ImportID string `json:"import_id" validate:"required"`
	Text     string `json:"text"`
	Citation string `json:"citation,omitempty"`
}

// Citation represents a publication backing edges and supports
type Citation struct {
	ID           string   `json:"id,omitempty"`
	ImportID     string   `json:"import_id" validate:"required"`
	Title        string   `json:"title,omitempty"`
	Identifier   string   `json:"identifier,omitempty"`
	Type         string   `json:"type,omitempty"`
	Contributors []string `json:"contributors,omitempty"`
	Supports     []string `json:"supports,omitempty"`
}

// Network is the value object returned to callers. Collections are keyed by import-id.
type Network struct {
	ID          string            `json:"id,omitempty"`
	Name        string            `json:"name"`
	Description string            `json:"description,omitempty"`
	Owner       string            `json:"owner,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	Metaterms   map[string]Term   `json:"metaterms,omitempty"`
	IsPublic    bool              `json:"is_public"`
	IsLocked    bool              `json:"is_locked"`
	IsComplete  bool              `json:"is_complete"`
	NodeCount   int               `json:"node_count"`
	EdgeCount   int               `json:"edge_count"`

	Namespaces map[string]Namespace `json:"namespaces"`
	Terms      map[string]Term      `json:"terms"`
	Nodes      map[string]Node      `json:"nodes"`
	Edges      map[string]Edge      `json:"edges"`
	Supports   map[string]Support   `json:"supports"`
	Citations  map[string]Citation  `json:"citations"`
}

// NewNetwork returns a Network with empty collections
func NewNetwork() *Network {
	return &Network{
		Metadata:   make(map[string]string),
		Metaterms:  make(map[string]Term),
		Namespaces: make(map[string]Namespace),
		Terms:      make(map[string]Term),
		Nodes:      make(map[string]Node),
		Edges:      make(map[string]Edge),
		Supports:   make(map[string]Support),
		Citations:  make(map[string]Citation),
	}
}

// AccessMode selects a read-only or read-write unit of work
type AccessMode int

const (
	AccessRead AccessMode = iota
	AccessWrite
)

// Session is one unit of work against the underlying graph store. A write
// session's changes become visible to other sessions only after Commit.
type Session interface {
	CreateVertex(ctx context.Context, class Class, props Props) (string, error)
	GetVertex(ctx context.Context, id string) (*Vertex, error)
	UpdateVertex(ctx context.Context, id string, props Props) error
	DeleteVertex(ctx context.Context, id string) error
	Link(ctx context.Context, from string, label Label, to string) error
	Neighbors(ctx context.Context, id string, label Label, dir query.Direction) ([]string, error)
	VerticesByClass(ctx context.Context, class Class) ([]*Vertex, error)
	Traverse(ctx context.Context, q *query.Traversal) ([]string, error)
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// Store hands out sessions
type Store interface {
	Begin(ctx context.Context, mode AccessMode) (Session, error)
	Close() error
}
