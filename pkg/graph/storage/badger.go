package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/athapong/ndex-mcp/pkg/graph"
	"github.com/athapong/ndex-mcp/pkg/graph/algorithms"
	"github.com/athapong/ndex-mcp/pkg/graph/query"
)

// BadgerConfig holds configuration for an embedded badger store
type BadgerConfig struct {
	// Path is the database directory, ignored when InMemory is set
	Path       string
	InMemory   bool
	SyncWrites bool

	// GCInterval is how often value log garbage collection runs. Zero disables it.
	GCInterval     time.Duration
	GCDiscardRatio float64

	Logger *logrus.Logger
}

func DefaultBadgerConfig() BadgerConfig {
	return BadgerConfig{
		SyncWrites:     true,
		GCInterval:     5 * time.Minute,
		GCDiscardRatio: 0.5,
	}
}

func InMemoryBadgerConfig() BadgerConfig {
	return BadgerConfig{InMemory: true}
}

// Key layout:
//
//	v/<id>                        vertex record
//	c/<class>/<seq>/<id>          class index in creation order
//	o/<from>/<label>/<seq>        outgoing link, value is the target id
//	i/<to>/<label>/<seq>          incoming link, value is the source id
const (
	prefixVertex = "v/"
	prefixClass  = "c/"
	prefixOut    = "o/"
	prefixIn     = "i/"

	sequenceKey       = "meta/seq"
	sequenceBandwidth = 1000
)

type vertexRecord struct {
	ID    string      `json:"id"`
	Class graph.Class `json:"class"`
	Props graph.Props `json:"props"`
	Seq   uint64      `json:"seq"`
}

// BadgerStore persists the graph in an embedded badger database. Each session
// is one badger transaction, so readers get a consistent snapshot and a failed
// write session leaves nothing behind.
type BadgerStore struct {
	db     *badger.DB
	seq    *badger.Sequence
	logger *logrus.Logger
	stopGC chan struct{}
	doneGC chan struct{}
}

// OpenBadgerStore opens or creates a badger database
func OpenBadgerStore(cfg BadgerConfig) (*BadgerStore, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, errors.New("path is required for persistent database")
	}

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Path, 0750); err != nil {
			return nil, fmt.Errorf("create database directory %s: %w", cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.WithSyncWrites(cfg.SyncWrites).WithNumVersionsToKeep(1)

	logger := cfg.Logger
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
		opts = opts.WithLogger(nil)
	} else {
		opts = opts.WithLogger(logger.WithField("component", "badger"))
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger database: %w", err)
	}
	seq, err := db.GetSequence([]byte(sequenceKey), sequenceBandwidth)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("open badger sequence: %w", err)
	}

	store := &BadgerStore{db: db, seq: seq, logger: logger}
	if cfg.GCInterval > 0 && !cfg.InMemory {
		store.stopGC = make(chan struct{})
		store.doneGC = make(chan struct{})
		go store.runGC(cfg.GCInterval, cfg.GCDiscardRatio)
	}

	logger.WithFields(logrus.Fields{
		"path":      cfg.Path,
		"in_memory": cfg.InMemory,
	}).Info("Opened badger graph store")
	return store, nil
}

func (b *BadgerStore) runGC(interval time.Duration, ratio float64) {
	defer close(b.doneGC)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-b.stopGC:
			return
		case <-ticker.C:
			err := b.db.RunValueLogGC(ratio)
			if err != nil && !errors.Is(err, badger.ErrNoRewrite) {
				b.logger.WithError(err).Warn("Badger value log GC failed")
			}
		}
	}
}

func (b *BadgerStore) Begin(ctx context.Context, mode graph.AccessMode) (graph.Session, error) {
	update := mode == graph.AccessWrite
	return &badgerSession{store: b, txn: b.db.NewTransaction(update), write: update}, nil
}

// Close stops garbage collection, releases the sequence and closes the database
func (b *BadgerStore) Close() error {
	if b.stopGC != nil {
		close(b.stopGC)
		<-b.doneGC
	}
	if err := b.seq.Release(); err != nil {
		b.logger.WithError(err).Warn("Failed to release badger sequence")
	}
	return b.db.Close()
}

func seqKey(n uint64) string {
	return fmt.Sprintf("%020d", n)
}

func vertexKey(id string) []byte {
	return []byte(prefixVertex + id)
}

func classKey(class graph.Class, seq uint64, id string) []byte {
	return []byte(prefixClass + string(class) + "/" + seqKey(seq) + "/" + id)
}

func linkKey(prefix, id string, label graph.Label, seq string) []byte {
	return []byte(prefix + id + "/" + string(label) + "/" + seq)
}

type badgerSession struct {
	store *BadgerStore
	txn   *badger.Txn
	write bool
	done  bool
}

func (s *badgerSession) check(write bool) error {
	if s.done {
		return fmt.Errorf("session already finished")
	}
	if write && !s.write {
		return fmt.Errorf("write in read-only session")
	}
	return nil
}

func (s *badgerSession) record(id string) (*vertexRecord, error) {
	item, err := s.txn.Get(vertexKey(id))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, graph.NotFoundf("vertex %s", id)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "get vertex %s", id)
	}
	var rec vertexRecord
	err = item.Value(func(val []byte) error {
		dec := json.NewDecoder(bytes.NewReader(val))
		return dec.Decode(&rec)
	})
	if err != nil {
		return nil, errors.Wrapf(err, "decode vertex %s", id)
	}
	return &rec, nil
}

func (s *badgerSession) putRecord(rec *vertexRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return errors.Wrapf(err, "encode vertex %s", rec.ID)
	}
	return s.txn.Set(vertexKey(rec.ID), data)
}

func (s *badgerSession) CreateVertex(ctx context.Context, class graph.Class, props graph.Props) (string, error) {
	if err := s.check(true); err != nil {
		return "", err
	}
	n, err := s.store.seq.Next()
	if err != nil {
		return "", errors.Wrap(err, "next sequence")
	}
	rec := &vertexRecord{ID: uuid.New().String(), Class: class, Props: props.Clone(), Seq: n}
	if err := s.putRecord(rec); err != nil {
		return "", err
	}
	if err := s.txn.Set(classKey(class, n, rec.ID), nil); err != nil {
		return "", errors.Wrap(err, "index vertex class")
	}
	return rec.ID, nil
}

func (s *badgerSession) GetVertex(ctx context.Context, id string) (*graph.Vertex, error) {
	if err := s.check(false); err != nil {
		return nil, err
	}
	rec, err := s.record(id)
	if err != nil {
		return nil, err
	}
	if rec.Props == nil {
		rec.Props = graph.Props{}
	}
	return &graph.Vertex{ID: rec.ID, Class: rec.Class, Props: rec.Props}, nil
}

func (s *badgerSession) UpdateVertex(ctx context.Context, id string, props graph.Props) error {
	if err := s.check(true); err != nil {
		return err
	}
	rec, err := s.record(id)
	if err != nil {
		return err
	}
	if rec.Props == nil {
		rec.Props = graph.Props{}
	}
	rec.Props.Merge(props)
	return s.putRecord(rec)
}

type linkEntry struct {
	key   []byte
	label graph.Label
	seq   string
	other string
}

func (s *badgerSession) scanLinks(prefix, id string, label graph.Label) ([]linkEntry, error) {
	p := prefix + id + "/"
	if label != "" {
		p += string(label) + "/"
	}
	opts := badger.DefaultIteratorOptions
	opts.Prefix = []byte(p)
	it := s.txn.NewIterator(opts)
	defer it.Close()

	var out []linkEntry
	for it.Seek(opts.Prefix); it.ValidForPrefix(opts.Prefix); it.Next() {
		item := it.Item()
		key := item.KeyCopy(nil)
		parts := strings.Split(strings.TrimPrefix(string(key), prefix+id+"/"), "/")
		if len(parts) != 2 {
			return nil, fmt.Errorf("malformed link key %q", key)
		}
		val, err := item.ValueCopy(nil)
		if err != nil {
			return nil, errors.Wrap(err, "read link")
		}
		out = append(out, linkEntry{key: key, label: graph.Label(parts[0]), seq: parts[1], other: string(val)})
	}
	return out, nil
}

// DeleteVertex removes the vertex, its class index entry and every link touching it
func (s *badgerSession) DeleteVertex(ctx context.Context, id string) error {
	if err := s.check(true); err != nil {
		return err
	}
	rec, err := s.record(id)
	if err != nil {
		return err
	}
	outgoing, err := s.scanLinks(prefixOut, id, "")
	if err != nil {
		return err
	}
	incoming, err := s.scanLinks(prefixIn, id, "")
	if err != nil {
		return err
	}

	keys := [][]byte{vertexKey(id), classKey(rec.Class, rec.Seq, id)}
	for _, l := range outgoing {
		keys = append(keys, l.key, linkKey(prefixIn, l.other, l.label, l.seq))
	}
	for _, l := range incoming {
		keys = append(keys, l.key, linkKey(prefixOut, l.other, l.label, l.seq))
	}
	for _, k := range keys {
		if err := s.txn.Delete(k); err != nil {
			return errors.Wrapf(err, "delete key %s", k)
		}
	}
	return nil
}

func (s *badgerSession) Link(ctx context.Context, from string, label graph.Label, to string) error {
	if err := s.check(true); err != nil {
		return err
	}
	if !label.Valid() {
		return fmt.Errorf("unknown relation label: %s", label)
	}
	if _, err := s.record(from); err != nil {
		return err
	}
	if _, err := s.record(to); err != nil {
		return err
	}
	n, err := s.store.seq.Next()
	if err != nil {
		return errors.Wrap(err, "next sequence")
	}
	seq := seqKey(n)
	if err := s.txn.Set(linkKey(prefixOut, from, label, seq), []byte(to)); err != nil {
		return errors.Wrap(err, "store outgoing link")
	}
	if err := s.txn.Set(linkKey(prefixIn, to, label, seq), []byte(from)); err != nil {
		return errors.Wrap(err, "store incoming link")
	}
	return nil
}

func (s *badgerSession) Neighbors(ctx context.Context, id string, label graph.Label, dir query.Direction) ([]string, error) {
	if err := s.check(false); err != nil {
		return nil, err
	}
	prefix := prefixOut
	if dir == query.In {
		prefix = prefixIn
	}
	links, err := s.scanLinks(prefix, id, label)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(links))
	for _, l := range links {
		out = append(out, l.other)
	}
	return out, nil
}

func (s *badgerSession) VerticesByClass(ctx context.Context, class graph.Class) ([]*graph.Vertex, error) {
	if err := s.check(false); err != nil {
		return nil, err
	}
	opts := badger.DefaultIteratorOptions
	opts.PrefetchValues = false
	opts.Prefix = []byte(prefixClass + string(class) + "/")
	it := s.txn.NewIterator(opts)

	var ids []string
	for it.Seek(opts.Prefix); it.ValidForPrefix(opts.Prefix); it.Next() {
		key := string(it.Item().Key())
		ids = append(ids, key[strings.LastIndex(key, "/")+1:])
	}
	it.Close()

	out := make([]*graph.Vertex, 0, len(ids))
	for _, id := range ids {
		v, err := s.GetVertex(ctx, id)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func (s *badgerSession) Traverse(ctx context.Context, q *query.Traversal) ([]string, error) {
	if err := s.check(false); err != nil {
		return nil, err
	}
	return algorithms.Traverse(ctx, s, q)
}

func (s *badgerSession) Commit(ctx context.Context) error {
	if err := s.check(false); err != nil {
		return err
	}
	s.done = true
	if !s.write {
		s.txn.Discard()
		return nil
	}
	if err := s.txn.Commit(); err != nil {
		if errors.Is(err, badger.ErrConflict) {
			return graph.Conflictf("concurrent write: %v", err)
		}
		return errors.Wrap(err, "commit badger transaction")
	}
	return nil
}

// Rollback discards the transaction. Calling it after Commit is a no-op.
func (s *badgerSession) Rollback(ctx context.Context) error {
	if s.done {
		return nil
	}
	s.done = true
	s.txn.Discard()
	return nil
}

// Count returns the number of stored vertices of a class
func (b *BadgerStore) Count(class graph.Class) (int, error) {
	count := 0
	err := b.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(prefixClass + string(class) + "/")
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Seek(opts.Prefix); it.ValidForPrefix(opts.Prefix); it.Next() {
			count++
		}
		return nil
	})
	return count, err
}
