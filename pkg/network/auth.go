package network

import "github.com/athapong/ndex-mcp/pkg/graph"

// Permission is the capability an operation needs on a network
type Permission int

const (
	PermRead Permission = iota
	PermWrite
	PermAdmin
)

func (p Permission) String() string {
	switch p {
	case PermRead:
		return "read"
	case PermWrite:
		return "write"
	case PermAdmin:
		return "admin"
	}
	return "unknown"
}

// Authorizer answers whether actor holds a permission on a network
type Authorizer interface {
	Allowed(actor string, n *graph.Network, p Permission) bool
}

// OwnerAuthorizer grants every permission to the owner and read access to
// anyone on public networks.
type OwnerAuthorizer struct{}

func (OwnerAuthorizer) Allowed(actor string, n *graph.Network, p Permission) bool {
	if actor != "" && actor == n.Owner {
		return true
	}
	return p == PermRead && n.IsPublic
}

// AllowAll grants everything. Meant for single-user tooling.
type AllowAll struct{}

func (AllowAll) Allowed(string, *graph.Network, Permission) bool {
	return true
}
