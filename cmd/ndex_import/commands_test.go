package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/athapong/ndex-mcp/pkg/graph"
	"github.com/athapong/ndex-mcp/pkg/graph/graphtest"
	"github.com/athapong/ndex-mcp/pkg/graph/storage"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--env", "", "--log-level", "error"}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func writeDoc(t *testing.T, dir, name string, doc *graph.ImportDocument) string {
	t.Helper()
	data, err := json.Marshal(doc)
	require.NoError(t, err)
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, data, 0644))
	return path
}

func TestImportCloseExport(t *testing.T) {
	t.Setenv("NDEX_STORE", "badger")
	t.Setenv("NDEX_BADGER_PATH", t.TempDir())
	t.Setenv("NDEX_ACTOR", "curator")

	docs := t.TempDir()
	writeDoc(t, docs, "rich.json", graphtest.RichDocument("rich"))
	writeDoc(t, docs, "gene.json", graphtest.GeneDocument("gene"))
	require.NoError(t, os.WriteFile(filepath.Join(docs, "notes.txt"), []byte("skip me"), 0644))

	out, err := run(t, "import", "--public", docs)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)

	ids := map[string]string{}
	for _, line := range lines {
		fields := strings.Split(line, "\t")
		require.Len(t, fields, 2)
		ids[fields[1]] = fields[0]
	}
	require.Contains(t, ids, "rich")

	out, err = run(t, "list", "--actor", "someone-else")
	require.NoError(t, err)
	assert.Contains(t, out, "rich")

	exportDir := t.TempDir()
	exported := filepath.Join(exportDir, "rich.json")
	page := filepath.Join(exportDir, "rich.html")
	_, err = run(t, "export", ids["rich"], "--output", exported, "--visualize", page)
	require.NoError(t, err)

	data, err := os.ReadFile(exported)
	require.NoError(t, err)
	var n graph.Network
	require.NoError(t, json.Unmarshal(data, &n))
	assert.Len(t, n.Edges, 3)
	assert.FileExists(t, page)

	copied := filepath.Join(exportDir, "copy.json")
	_, err = run(t, "export", ids["rich"], "--output", copied, "--as-document")
	require.NoError(t, err)
	doc, err := storage.NewJSONFileStore(copied).LoadDocument(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "rich", doc.Name)
	assert.Len(t, doc.Edges, 3)
	assert.Len(t, doc.Terms, 7)
	doc.Name = "rich copy"
	writeDoc(t, exportDir, "copy.json", doc)
	out, err = run(t, "import", copied)
	require.NoError(t, err)
	assert.Contains(t, out, "rich copy")

	out, err = run(t, "citations", ids["rich"], n.Citations["C1"].ID)
	require.NoError(t, err)
	var cited graph.Network
	require.NoError(t, json.Unmarshal([]byte(out), &cited))
	assert.Equal(t, []string{"e1", "e2"}, graphtest.Keys(cited.Edges))

	out, err = run(t, "close", ids["rich"], n.Edges["e3"].ID)
	require.NoError(t, err)
	var closed graph.Network
	require.NoError(t, json.Unmarshal([]byte(out), &closed))
	assert.Equal(t, []string{"e3"}, graphtest.Keys(closed.Edges))

	_, err = run(t, "merge", ids["gene"], filepath.Join(docs, "rich.json"), "--method", "FUZZY")
	assert.ErrorIs(t, err, graph.ErrUnsupportedEquivalence)
}

func TestImportNeedsFiles(t *testing.T) {
	t.Setenv("NDEX_STORE", "memory")
	_, err := run(t, "import", t.TempDir())
	assert.ErrorIs(t, err, graph.ErrInvalidInput)

	_, err = run(t, "close", "only-network")
	assert.Error(t, err)
}
