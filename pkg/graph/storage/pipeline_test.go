package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/athapong/ndex-mcp/pkg/graph"
)

func writeDocs(t *testing.T, n int) []string {
	t.Helper()
	dir := t.TempDir()
	paths := make([]string, 0, n)
	for i := 0; i < n; i++ {
		path := filepath.Join(dir, fmt.Sprintf("doc%02d.json", i))
		body := fmt.Sprintf(`{"name": "net %d", "terms": [{"import_id": "B1", "name": "geneA"}]}`, i)
		require.NoError(t, os.WriteFile(path, []byte(body), 0644))
		paths = append(paths, path)
	}
	return paths
}

func TestBatchLoadKeepsOrder(t *testing.T) {
	paths := writeDocs(t, 7)
	p := NewDocumentPipeline(nil)
	p.SetBatchSize(3)
	p.AddStep(func(ctx context.Context, doc *graph.ImportDocument) error {
		doc.IsPublic = true
		return nil
	})

	docs, err := p.BatchLoad(context.Background(), paths)
	require.NoError(t, err)
	require.Len(t, docs, 7)
	for i, d := range docs {
		assert.Equal(t, paths[i], d.Path)
		assert.Equal(t, fmt.Sprintf("net %d", i), d.Document.Name)
		assert.True(t, d.Document.IsPublic)
	}
}

func TestBatchLoadFailsOnInvalidDocument(t *testing.T) {
	paths := writeDocs(t, 2)
	bad := filepath.Join(filepath.Dir(paths[0]), "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{"terms": []}`), 0644))

	_, err := NewDocumentPipeline(nil).BatchLoad(context.Background(), append(paths, bad))
	assert.True(t, errors.Is(err, graph.ErrInvalidInput), "got %v", err)
}

func TestLoadRevalidatesAfterSteps(t *testing.T) {
	paths := writeDocs(t, 1)
	p := NewDocumentPipeline(nil)
	p.AddStep(func(ctx context.Context, doc *graph.ImportDocument) error {
		doc.Name = ""
		return nil
	})

	_, err := p.Load(context.Background(), paths[0])
	assert.True(t, errors.Is(err, graph.ErrInvalidInput))
}
