package tools

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/athapong/ndex-mcp/pkg/graph/graphtest"
	"github.com/athapong/ndex-mcp/pkg/graph/storage"
	"github.com/athapong/ndex-mcp/pkg/network"
)

func newTools(t *testing.T) *NetworkTools {
	t.Helper()
	svc := network.NewService(storage.NewMemoryStore(), network.Options{})
	return NewNetworkTools(svc, "alice")
}

func call(t *testing.T, handler server.ToolHandlerFunc, args map[string]interface{}) *mcp.CallToolResult {
	t.Helper()
	var req mcp.CallToolRequest
	req.Params.Arguments = args
	res, err := handler(context.Background(), req)
	require.NoError(t, err)
	require.NotNil(t, res)
	return res
}

func text(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, res.Content)
	content, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok)
	return content.Text
}

func createRich(t *testing.T, nt *NetworkTools) string {
	t.Helper()
	doc, err := json.Marshal(graphtest.RichDocument("rich"))
	require.NoError(t, err)
	res := call(t, nt.createHandler, map[string]interface{}{"document": string(doc)})
	require.False(t, res.IsError, text(t, res))
	id := gjson.Get(text(t, res), "id").String()
	require.NotEmpty(t, id)
	return id
}

func TestCreateAndList(t *testing.T) {
	nt := newTools(t)
	id := createRich(t, nt)

	res := call(t, nt.listHandler, nil)
	require.False(t, res.IsError)
	listed := gjson.Parse(text(t, res)).Array()
	require.Len(t, listed, 1)
	assert.Equal(t, id, listed[0].Get("id").String())
	assert.Equal(t, int64(3), listed[0].Get("edge_count").Int())

	res = call(t, nt.getHandler, map[string]interface{}{"network_id": id, "full": true})
	require.False(t, res.IsError)
	assert.Equal(t, "AKT1", gjson.Get(text(t, res), "terms.B1.name").String())
}

func TestCreateRejectsBadDocument(t *testing.T) {
	nt := newTools(t)
	res := call(t, nt.createHandler, map[string]interface{}{"document": "{not json"})
	assert.True(t, res.IsError)
	assert.Contains(t, text(t, res), "invalid_input")

	res = call(t, nt.createHandler, map[string]interface{}{"document": `{"nodes": []}`})
	assert.True(t, res.IsError)
}

func TestErrorsCarryKind(t *testing.T) {
	nt := newTools(t)
	id := createRich(t, nt)

	doc, err := json.Marshal(graphtest.GeneDocument("rich"))
	require.NoError(t, err)
	res := call(t, nt.createHandler, map[string]interface{}{"document": string(doc)})
	assert.True(t, res.IsError)
	assert.Contains(t, text(t, res), "duplicate_name")

	res = call(t, nt.mergeHandler, map[string]interface{}{"network_id": id, "document": string(doc), "method": "FUZZY"})
	assert.True(t, res.IsError)
	assert.Contains(t, text(t, res), "unsupported_equivalence_strategy")

	res = call(t, nt.getHandler, map[string]interface{}{"network_id": "missing"})
	assert.True(t, res.IsError)
	assert.Contains(t, text(t, res), "not_found")
}

func TestQueryHandlers(t *testing.T) {
	nt := newTools(t)
	id := createRich(t, nt)

	res := call(t, nt.edgesHandler, map[string]interface{}{"network_id": id, "skip": float64(0), "top": float64(1)})
	require.False(t, res.IsError, text(t, res))
	page := gjson.Parse(text(t, res))
	assert.True(t, page.Get("edges.e1").Exists())
	assert.False(t, page.Get("edges.e2").Exists())
	edgeID := page.Get("edges.e1.id").String()

	res = call(t, nt.closeHandler, map[string]interface{}{"network_id": id, "edge_ids": `["` + edgeID + `"]`})
	require.False(t, res.IsError, text(t, res))
	assert.True(t, gjson.Get(text(t, res), "nodes.n1").Exists())

	res = call(t, nt.closeHandler, map[string]interface{}{"network_id": id, "edge_ids": `[1, 2]`})
	assert.True(t, res.IsError)

	res = call(t, nt.termsInNamespacesHandler, map[string]interface{}{"network_id": id, "prefixes": `["HGNC"]`})
	require.False(t, res.IsError)
	assert.True(t, gjson.Get(text(t, res), "namespaces.NS1").Exists())

	res = call(t, nt.intersectingTermsHandler, map[string]interface{}{"network_id": id, "names": "MTOR"})
	require.False(t, res.IsError)
	hits := gjson.Parse(text(t, res)).Array()
	require.Len(t, hits, 1)
	assert.Equal(t, "B3", hits[0].Get("import_id").String())

	res = call(t, nt.collectionHandler, map[string]interface{}{"network_id": id, "collection": "citations", "skip": float64(1), "top": float64(2)})
	require.False(t, res.IsError)
	assert.Equal(t, "C3", gjson.Get(text(t, res), "0.import_id").String())

	res = call(t, nt.collectionHandler, map[string]interface{}{"network_id": id, "collection": "supports", "top": float64(2)})
	assert.True(t, res.IsError)

	res = call(t, nt.neighborhoodHandler, map[string]interface{}{"network_id": id, "names": `["AKT1"]`, "search_type": "dfs"})
	require.False(t, res.IsError, text(t, res))
	near := gjson.Parse(text(t, res))
	assert.True(t, near.Get("edges.e1").Exists())
	assert.True(t, near.Get("edges.e3").Exists())
	assert.False(t, near.Get("edges.e2").Exists())

	res = call(t, nt.neighborhoodHandler, map[string]interface{}{"network_id": id, "names": `["AKT1"]`, "depth": float64(2)})
	require.False(t, res.IsError, text(t, res))
	assert.True(t, gjson.Get(text(t, res), "edges.e2").Exists())

	res = call(t, nt.neighborhoodHandler, map[string]interface{}{"network_id": id, "names": `["AKT1"]`, "search_type": "sideways"})
	assert.True(t, res.IsError)

	res = call(t, nt.suggestHandler, map[string]interface{}{"network_id": id, "prefix": "mto"})
	require.False(t, res.IsError, text(t, res))
	suggested := gjson.Parse(text(t, res)).Array()
	require.Len(t, suggested, 1)
	assert.Equal(t, "MTOR", suggested[0].String())

	res = call(t, nt.suggestHandler, map[string]interface{}{"network_id": id, "prefix": "m"})
	assert.True(t, res.IsError)
}

func TestUpdateAndDelete(t *testing.T) {
	nt := newTools(t)
	id := createRich(t, nt)

	res := call(t, nt.updateHandler, map[string]interface{}{
		"network_id": id,
		"name":       "renamed",
		"is_public":  true,
		"metadata":   `{"curator": "alice"}`,
	})
	require.False(t, res.IsError, text(t, res))
	updated := gjson.Parse(text(t, res))
	assert.Equal(t, "renamed", updated.Get("name").String())
	assert.True(t, updated.Get("is_public").Bool())
	assert.Equal(t, "alice", updated.Get("metadata.curator").String())

	res = call(t, nt.updateHandler, map[string]interface{}{"network_id": id, "metadata": `["x"]`})
	assert.True(t, res.IsError)

	res = call(t, nt.deleteHandler, map[string]interface{}{"network_id": id})
	require.False(t, res.IsError)
	res = call(t, nt.listHandler, nil)
	assert.Equal(t, "[]", text(t, res))
}

func TestRegisterTools(t *testing.T) {
	s := server.NewMCPServer("test", "0.0.0")
	nt := newTools(t)
	assert.NotPanics(t, func() {
		RegisterNetworkTools(s, nt)
		RegisterQueryTools(s, nt)
		RegisterToolManagerTool(s)
	})
}
