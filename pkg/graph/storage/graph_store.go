package storage

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/athapong/ndex-mcp/pkg/graph"
)

// DocumentStore reads import documents and writes exported networks
type DocumentStore interface {
	// StoreNetwork persists a network snapshot
	StoreNetwork(ctx context.Context, network *graph.Network) error

	// LoadDocument loads an import document
	LoadDocument(ctx context.Context) (*graph.ImportDocument, error)
}

// JSONFileStore implements DocumentStore using a JSON file
type JSONFileStore struct {
	filePath string
}

// NewJSONFileStore creates a new JSON file store
func NewJSONFileStore(filePath string) *JSONFileStore {
	return &JSONFileStore{
		filePath: filePath,
	}
}

// StoreNetwork writes the network as indented JSON
func (s *JSONFileStore) StoreNetwork(ctx context.Context, network *graph.Network) error {
	return s.writeJSON(network, "network")
}

// StoreDocument writes doc as indented JSON that LoadDocument reads back
func (s *JSONFileStore) StoreDocument(ctx context.Context, doc *graph.ImportDocument) error {
	return s.writeJSON(doc, "document")
}

func (s *JSONFileStore) writeJSON(v interface{}, what string) error {
	dir := filepath.Dir(s.filePath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errors.Wrapf(err, "encode %s", what)
	}

	return os.WriteFile(s.filePath, data, 0644)
}

// LoadDocument reads and validates an import document
func (s *JSONFileStore) LoadDocument(ctx context.Context) (*graph.ImportDocument, error) {
	data, err := os.ReadFile(s.filePath)
	if err != nil {
		return nil, err
	}

	var doc graph.ImportDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, graph.Invalidf("decode %s: %v", s.filePath, err)
	}
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	return &doc, nil
}

// LoadNetwork reads a network snapshot previously written by StoreNetwork
func (s *JSONFileStore) LoadNetwork(ctx context.Context) (*graph.Network, error) {
	data, err := os.ReadFile(s.filePath)
	if err != nil {
		return nil, err
	}
	network := graph.NewNetwork()
	if err := json.Unmarshal(data, network); err != nil {
		return nil, graph.Invalidf("decode %s: %v", s.filePath, err)
	}
	return network, nil
}
