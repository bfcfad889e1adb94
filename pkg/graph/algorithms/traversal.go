package algorithms

import (
	"context"
	"fmt"

	"github.com/athapong/ndex-mcp/pkg/graph"
	"github.com/athapong/ndex-mcp/pkg/graph/query"
)

type TraversalType = query.Search

const (
	BFS = query.BreadthFirst
	DFS = query.DepthFirst
)

// Adjacency is the slice of a store session a traversal needs
type Adjacency interface {
	GetVertex(ctx context.Context, id string) (*graph.Vertex, error)
	Neighbors(ctx context.Context, id string, label graph.Label, dir query.Direction) ([]string, error)
}

type GraphTraversal struct {
	graph Adjacency
}

func NewGraphTraversal(g Adjacency) *GraphTraversal {
	return &GraphTraversal{graph: g}
}

// Traverse evaluates q in the order its Search names, breadth first when
// unset. Every step of q is followed at every level; vertices are reported
// once, in visit order.
func Traverse(ctx context.Context, g Adjacency, q *query.Traversal) ([]string, error) {
	search := q.Search
	if search == "" {
		search = BFS
	}
	return NewGraphTraversal(g).Traverse(ctx, q, search)
}

func (t *GraphTraversal) Traverse(ctx context.Context, q *query.Traversal, traversalType TraversalType) ([]string, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	for _, s := range q.Steps {
		if !graph.Label(s.Label).Valid() {
			return nil, fmt.Errorf("unknown relation label: %s", s.Label)
		}
	}

	visited := make(map[string]bool)
	result := make([]string, 0)

	switch traversalType {
	case BFS:
		return t.bfs(ctx, q, visited)
	case DFS:
		for _, seed := range q.Seeds {
			if err := t.dfs(ctx, q, seed, q.MaxDepth, visited, &result); err != nil {
				return nil, err
			}
		}
		return result, nil
	default:
		return nil, fmt.Errorf("unsupported traversal type: %s", traversalType)
	}
}

func (t *GraphTraversal) bfs(ctx context.Context, q *query.Traversal, visited map[string]bool) ([]string, error) {
	queue := append([]string(nil), q.Seeds...)
	result := make([]string, 0)
	depth := 0

	for len(queue) > 0 && depth <= q.MaxDepth {
		levelSize := len(queue)
		for i := 0; i < levelSize; i++ {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			current := queue[0]
			queue = queue[1:]

			if visited[current] {
				continue
			}
			visited[current] = true

			match, err := t.matches(ctx, q, current)
			if err != nil {
				return nil, err
			}
			if match {
				result = append(result, current)
				if q.Limit > 0 && len(result) >= q.Limit {
					return result, nil
				}
			}

			if depth == q.MaxDepth {
				continue
			}
			related, err := t.expand(ctx, q, current)
			if err != nil {
				return nil, err
			}
			for _, r := range related {
				if !visited[r] {
					queue = append(queue, r)
				}
			}
		}
		depth++
	}

	return result, nil
}

func (t *GraphTraversal) dfs(ctx context.Context, q *query.Traversal, currentID string, remaining int, visited map[string]bool, result *[]string) error {
	if remaining < 0 || visited[currentID] {
		return nil
	}
	if q.Limit > 0 && len(*result) >= q.Limit {
		return nil
	}
	visited[currentID] = true

	match, err := t.matches(ctx, q, currentID)
	if err != nil {
		return err
	}
	if match {
		*result = append(*result, currentID)
	}

	related, err := t.expand(ctx, q, currentID)
	if err != nil {
		return err
	}
	for _, r := range related {
		if err := t.dfs(ctx, q, r, remaining-1, visited, result); err != nil {
			return err
		}
	}
	return nil
}

func (t *GraphTraversal) matches(ctx context.Context, q *query.Traversal, id string) (bool, error) {
	if q.Class == "" {
		return true, nil
	}
	v, err := t.graph.GetVertex(ctx, id)
	if err != nil {
		return false, err
	}
	return string(v.Class) == q.Class, nil
}

func (t *GraphTraversal) expand(ctx context.Context, q *query.Traversal, id string) ([]string, error) {
	var out []string
	for _, s := range q.Steps {
		ids, err := t.graph.Neighbors(ctx, id, graph.Label(s.Label), s.Direction)
		if err != nil {
			return nil, err
		}
		out = append(out, ids...)
	}
	return out, nil
}
