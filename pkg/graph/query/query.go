package query

import (
	"encoding/json"
	"fmt"
)

type Direction string

const (
	Out Direction = "OUT"
	In  Direction = "IN"
)

// Search orders the visit of a traversal
type Search string

const (
	BreadthFirst Search = "BFS"
	DepthFirst   Search = "DFS"
)

// Step follows one labeled relation in one direction
type Step struct {
	Label     string    `json:"label"`
	Direction Direction `json:"direction"`
}

// Traversal walks the given steps from a seed set and returns the visited
// vertices whose class matches Class. Search picks the visit order; empty means
// breadth first. A MaxDepth of zero means only the seeds themselves are
// considered.
type Traversal struct {
	Seeds    []string `json:"seeds"`
	Steps    []Step   `json:"steps"`
	MaxDepth int      `json:"max_depth"`
	Class    string   `json:"class,omitempty"`
	Limit    int      `json:"limit,omitempty"`
	Search   Search   `json:"search,omitempty"`
}

func NewTraversal(seeds ...string) *Traversal {
	return &Traversal{
		Seeds:    seeds,
		Steps:    make([]Step, 0),
		MaxDepth: DefaultMaxDepth,
	}
}

// DefaultMaxDepth bounds traversals that do not set their own depth
const DefaultMaxDepth = 10

func (q *Traversal) Out(labels ...string) *Traversal {
	for _, l := range labels {
		q.Steps = append(q.Steps, Step{Label: l, Direction: Out})
	}
	return q
}

func (q *Traversal) In(labels ...string) *Traversal {
	for _, l := range labels {
		q.Steps = append(q.Steps, Step{Label: l, Direction: In})
	}
	return q
}

func (q *Traversal) WhereClass(class string) *Traversal {
	q.Class = class
	return q
}

func (q *Traversal) SetMaxDepth(depth int) *Traversal {
	q.MaxDepth = depth
	return q
}

func (q *Traversal) SetLimit(limit int) *Traversal {
	q.Limit = limit
	return q
}

func (q *Traversal) SetSearch(search Search) *Traversal {
	q.Search = search
	return q
}

// Validate rejects queries that cannot be evaluated
func (q *Traversal) Validate() error {
	if q.MaxDepth < 0 {
		return fmt.Errorf("negative traversal depth: %d", q.MaxDepth)
	}
	switch q.Search {
	case "", BreadthFirst, DepthFirst:
	default:
		return fmt.Errorf("unsupported search type: %s", q.Search)
	}
	for _, s := range q.Steps {
		if s.Label == "" {
			return fmt.Errorf("traversal step without label")
		}
		if s.Direction != Out && s.Direction != In {
			return fmt.Errorf("unsupported traversal direction: %s", s.Direction)
		}
	}
	return nil
}

func (q *Traversal) String() string {
	bytes, _ := json.Marshal(q)
	return string(bytes)
}
