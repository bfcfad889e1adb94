package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/neo4j/neo4j-go-driver/v4/neo4j"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/athapong/ndex-mcp/pkg/graph"
	"github.com/athapong/ndex-mcp/pkg/graph/algorithms"
	"github.com/athapong/ndex-mcp/pkg/graph/query"
)

// Neo4jStorage keeps every vertex as a (:Vertex) node with its properties
// serialized to JSON, and every relation as a typed relationship carrying its
// position among the source's relations of that type.
type Neo4jStorage struct {
	driver   neo4j.Driver
	uri      string
	database string
	logger   *logrus.Logger
}

// NewNeo4jStorage creates a new Neo4j storage instance
func NewNeo4jStorage(uri, username, password string) (*Neo4jStorage, error) {
	auth := neo4j.BasicAuth(username, password, "")
	driver, err := neo4j.NewDriver(uri, auth)
	if err != nil {
		return nil, fmt.Errorf("failed to create Neo4j driver: %v", err)
	}

	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	return &Neo4jStorage{
		driver: driver,
		uri:    uri,
		logger: logger,
	}, nil
}

// SetLogger replaces the store logger
func (s *Neo4jStorage) SetLogger(logger *logrus.Logger) {
	if logger != nil {
		s.logger = logger
	}
}

// SetDatabase selects a non-default database
func (s *Neo4jStorage) SetDatabase(name string) {
	s.database = name
}

// Connect verifies connectivity and creates the vertex index
func (s *Neo4jStorage) Connect(ctx context.Context) error {
	if err := s.driver.VerifyConnectivity(); err != nil {
		return fmt.Errorf("failed to reach Neo4j at %s: %w", s.uri, err)
	}
	session := s.driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite, DatabaseName: s.database})
	defer session.Close()

	for _, stmt := range []string{
		`CREATE INDEX vertex_id IF NOT EXISTS FOR (v:Vertex) ON (v.id)`,
		`CREATE INDEX vertex_class IF NOT EXISTS FOR (v:Vertex) ON (v.class)`,
	} {
		if _, err := session.Run(stmt, nil); err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	}
	s.logger.WithField("uri", s.uri).Info("Connected to Neo4j")
	return nil
}

func (s *Neo4jStorage) Close() error {
	if s.driver != nil {
		return s.driver.Close()
	}
	return nil
}

func (s *Neo4jStorage) Begin(ctx context.Context, mode graph.AccessMode) (graph.Session, error) {
	access := neo4j.AccessModeRead
	if mode == graph.AccessWrite {
		access = neo4j.AccessModeWrite
	}
	session := s.driver.NewSession(neo4j.SessionConfig{AccessMode: access, DatabaseName: s.database})
	tx, err := session.BeginTransaction()
	if err != nil {
		session.Close()
		return nil, errors.Wrap(err, "begin neo4j transaction")
	}
	return &neo4jSession{session: session, tx: tx, write: mode == graph.AccessWrite}, nil
}

type neo4jSession struct {
	session neo4j.Session
	tx      neo4j.Transaction
	write   bool
	done    bool
	ord     int64
}

func (s *neo4jSession) check(write bool) error {
	if s.done {
		return fmt.Errorf("session already finished")
	}
	if write && !s.write {
		return fmt.Errorf("write in read-only session")
	}
	return nil
}

func encodeProps(props graph.Props) (string, error) {
	if props == nil {
		props = graph.Props{}
	}
	data, err := json.Marshal(props)
	if err != nil {
		return "", errors.Wrap(err, "encode properties")
	}
	return string(data), nil
}

func decodeVertex(node neo4j.Node) (*graph.Vertex, error) {
	id, _ := node.Props["id"].(string)
	class, _ := node.Props["class"].(string)
	raw, _ := node.Props["props"].(string)
	props := graph.Props{}
	if raw != "" {
		if err := json.Unmarshal([]byte(raw), &props); err != nil {
			return nil, errors.Wrapf(err, "decode properties of %s", id)
		}
	}
	return &graph.Vertex{ID: id, Class: graph.Class(class), Props: props}, nil
}

func (s *neo4jSession) CreateVertex(ctx context.Context, class graph.Class, props graph.Props) (string, error) {
	if err := s.check(true); err != nil {
		return "", err
	}
	encoded, err := encodeProps(props)
	if err != nil {
		return "", err
	}
	s.ord++
	id := uuid.New().String()
	cypher := `
		CREATE (v:Vertex {
			id: $id,
			class: $class,
			props: $props,
			created_at: timestamp(),
			ord: $ord
		})
	`
	params := map[string]interface{}{
		"id":    id,
		"class": string(class),
		"props": encoded,
		"ord":   s.ord,
	}
	if _, err := s.tx.Run(cypher, params); err != nil {
		return "", errors.Wrapf(err, "create %s vertex", class)
	}
	return id, nil
}

func (s *neo4jSession) GetVertex(ctx context.Context, id string) (*graph.Vertex, error) {
	if err := s.check(false); err != nil {
		return nil, err
	}
	result, err := s.tx.Run(`MATCH (v:Vertex {id: $id}) RETURN v`, map[string]interface{}{"id": id})
	if err != nil {
		return nil, errors.Wrapf(err, "get vertex %s", id)
	}
	if result.Next() {
		node, ok := result.Record().Values[0].(neo4j.Node)
		if !ok {
			return nil, fmt.Errorf("unexpected value for vertex %s", id)
		}
		return decodeVertex(node)
	}
	if err := result.Err(); err != nil {
		return nil, errors.Wrapf(err, "get vertex %s", id)
	}
	return nil, graph.NotFoundf("vertex %s", id)
}

func (s *neo4jSession) UpdateVertex(ctx context.Context, id string, props graph.Props) error {
	if err := s.check(true); err != nil {
		return err
	}
	v, err := s.GetVertex(ctx, id)
	if err != nil {
		return err
	}
	v.Props.Merge(props)
	encoded, err := encodeProps(v.Props)
	if err != nil {
		return err
	}
	_, err = s.tx.Run(`MATCH (v:Vertex {id: $id}) SET v.props = $props`,
		map[string]interface{}{"id": id, "props": encoded})
	return errors.Wrapf(err, "update vertex %s", id)
}

func (s *neo4jSession) DeleteVertex(ctx context.Context, id string) error {
	if err := s.check(true); err != nil {
		return err
	}
	result, err := s.tx.Run(`
		MATCH (v:Vertex {id: $id})
		DETACH DELETE v
		RETURN count(v) AS deleted
	`, map[string]interface{}{"id": id})
	if err != nil {
		return errors.Wrapf(err, "delete vertex %s", id)
	}
	record, err := result.Single()
	if err != nil {
		return errors.Wrapf(err, "delete vertex %s", id)
	}
	if n, _ := record.Values[0].(int64); n == 0 {
		return graph.NotFoundf("vertex %s", id)
	}
	return nil
}

func (s *neo4jSession) Link(ctx context.Context, from string, label graph.Label, to string) error {
	if err := s.check(true); err != nil {
		return err
	}
	// relationship types cannot be parameterized; label is checked against the vocabulary
	if !label.Valid() {
		return fmt.Errorf("unknown relation label: %s", label)
	}
	cypher := fmt.Sprintf(`
		MATCH (a:Vertex {id: $from})
		MATCH (b:Vertex {id: $to})
		OPTIONAL MATCH (a)-[x:%[1]s]->()
		WITH a, b, count(x) AS pos
		CREATE (a)-[r:%[1]s {pos: pos}]->(b)
		RETURN pos
	`, "`"+string(label)+"`")
	result, err := s.tx.Run(cypher, map[string]interface{}{"from": from, "to": to})
	if err != nil {
		return errors.Wrapf(err, "link %s -%s-> %s", from, label, to)
	}
	if !result.Next() {
		if err := result.Err(); err != nil {
			return errors.Wrapf(err, "link %s -%s-> %s", from, label, to)
		}
		return graph.NotFoundf("link endpoints %s, %s", from, to)
	}
	return nil
}

func (s *neo4jSession) Neighbors(ctx context.Context, id string, label graph.Label, dir query.Direction) ([]string, error) {
	if err := s.check(false); err != nil {
		return nil, err
	}
	if !label.Valid() {
		return nil, fmt.Errorf("unknown relation label: %s", label)
	}
	rel := "`" + string(label) + "`"
	var cypher string
	if dir == query.In {
		cypher = fmt.Sprintf(`
			MATCH (v:Vertex {id: $id})<-[r:%s]-(n:Vertex)
			RETURN n.id ORDER BY n.created_at, n.ord, r.pos
		`, rel)
	} else {
		cypher = fmt.Sprintf(`
			MATCH (v:Vertex {id: $id})-[r:%s]->(n:Vertex)
			RETURN n.id ORDER BY r.pos
		`, rel)
	}
	result, err := s.tx.Run(cypher, map[string]interface{}{"id": id})
	if err != nil {
		return nil, errors.Wrapf(err, "neighbors of %s", id)
	}
	ids := make([]string, 0)
	for result.Next() {
		if nid, ok := result.Record().Values[0].(string); ok {
			ids = append(ids, nid)
		}
	}
	return ids, result.Err()
}

func (s *neo4jSession) VerticesByClass(ctx context.Context, class graph.Class) ([]*graph.Vertex, error) {
	if err := s.check(false); err != nil {
		return nil, err
	}
	result, err := s.tx.Run(`
		MATCH (v:Vertex {class: $class})
		RETURN v ORDER BY v.created_at, v.ord
	`, map[string]interface{}{"class": string(class)})
	if err != nil {
		return nil, errors.Wrapf(err, "list %s vertices", class)
	}
	out := make([]*graph.Vertex, 0)
	for result.Next() {
		node, ok := result.Record().Values[0].(neo4j.Node)
		if !ok {
			continue
		}
		v, err := decodeVertex(node)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, result.Err()
}

func (s *neo4jSession) Traverse(ctx context.Context, q *query.Traversal) ([]string, error) {
	if err := s.check(false); err != nil {
		return nil, err
	}
	return algorithms.Traverse(ctx, s, q)
}

func (s *neo4jSession) finish() {
	s.done = true
	if err := s.tx.Close(); err != nil {
		logrus.WithError(err).Debug("Closing neo4j transaction")
	}
	s.session.Close()
}

func (s *neo4jSession) Commit(ctx context.Context) error {
	if err := s.check(false); err != nil {
		return err
	}
	defer s.finish()
	if err := s.tx.Commit(); err != nil {
		return errors.Wrap(err, "commit neo4j transaction")
	}
	return nil
}

// Rollback aborts the transaction. Calling it after Commit is a no-op.
func (s *neo4jSession) Rollback(ctx context.Context) error {
	if s.done {
		return nil
	}
	defer s.finish()
	if err := s.tx.Rollback(); err != nil {
		return errors.Wrap(err, "rollback neo4j transaction")
	}
	return nil
}
