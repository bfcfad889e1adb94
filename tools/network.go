package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/tidwall/gjson"

	"github.com/athapong/ndex-mcp/pkg/graph"
	"github.com/athapong/ndex-mcp/pkg/graph/query"
	"github.com/athapong/ndex-mcp/pkg/network"
	"github.com/athapong/ndex-mcp/util"
)

// NetworkTools serves network operations on behalf of one actor
type NetworkTools struct {
	svc   *network.Service
	actor string
}

func NewNetworkTools(svc *network.Service, actor string) *NetworkTools {
	return &NetworkTools{svc: svc, actor: actor}
}

// RegisterNetworkTools adds the network management tools
func RegisterNetworkTools(s *server.MCPServer, t *NetworkTools) {
	createTool := mcp.NewTool("ndex_create_network",
		mcp.WithDescription("Import a network document as a new network owned by the current account"),
		mcp.WithString("document", mcp.Required(), mcp.Description("Import document as JSON: name, namespaces, terms, supports, citations, nodes, edges")),
	)
	s.AddTool(createTool, util.ErrorGuard(t.createHandler))

	mergeTool := mcp.NewTool("ndex_merge_network",
		mcp.WithDescription("Merge an import document into an existing network, reusing equivalent entities"),
		mcp.WithString("network_id", mcp.Required(), mcp.Description("Target network id")),
		mcp.WithString("document", mcp.Required(), mcp.Description("Import document as JSON")),
		mcp.WithString("method", mcp.Description("Equivalence method, JDEX_ID by default")),
	)
	s.AddTool(mergeTool, util.ErrorGuard(t.mergeHandler))

	getTool := mcp.NewTool("ndex_get_network",
		mcp.WithDescription("Get network attributes, counts and metaterms"),
		mcp.WithString("network_id", mcp.Required(), mcp.Description("Network id")),
		mcp.WithBoolean("full", mcp.Description("Include every node, edge, term, namespace, support and citation")),
	)
	s.AddTool(getTool, util.ErrorGuard(t.getHandler))

	listTool := mcp.NewTool("ndex_list_networks",
		mcp.WithDescription("List the networks readable by the current account"),
	)
	s.AddTool(listTool, util.ErrorGuard(t.listHandler))

	updateTool := mcp.NewTool("ndex_update_network",
		mcp.WithDescription("Update network name, description, metadata, visibility or lock"),
		mcp.WithString("network_id", mcp.Required(), mcp.Description("Network id")),
		mcp.WithString("name", mcp.Description("New name")),
		mcp.WithString("description", mcp.Description("New description")),
		mcp.WithString("metadata", mcp.Description("Metadata as a JSON object of strings, replaces the current metadata")),
		mcp.WithBoolean("is_public", mcp.Description("Readable by everyone")),
		mcp.WithBoolean("is_locked", mcp.Description("Reject merges")),
	)
	s.AddTool(updateTool, util.ErrorGuard(t.updateHandler))

	deleteTool := mcp.NewTool("ndex_delete_network",
		mcp.WithDescription("Delete a network and everything it owns"),
		mcp.WithString("network_id", mcp.Required(), mcp.Description("Network id")),
	)
	s.AddTool(deleteTool, util.ErrorGuard(t.deleteHandler))
}

// RegisterQueryTools adds the closure and lookup tools
func RegisterQueryTools(s *server.MCPServer, t *NetworkTools) {
	edgesTool := mcp.NewTool("ndex_get_edges",
		mcp.WithDescription("Get one page of edges as a self-contained network"),
		mcp.WithString("network_id", mcp.Required(), mcp.Description("Network id")),
		mcp.WithNumber("skip", mcp.Description("Page index, 0 by default")),
		mcp.WithNumber("top", mcp.Required(), mcp.Description("Page size")),
	)
	s.AddTool(edgesTool, util.ErrorGuard(t.edgesHandler))

	closeTool := mcp.NewTool("ndex_close_edges",
		mcp.WithDescription("Build the self-contained network around the given edges"),
		mcp.WithString("network_id", mcp.Required(), mcp.Description("Network id")),
		mcp.WithString("edge_ids", mcp.Required(), mcp.Description("JSON array of edge ids")),
	)
	s.AddTool(closeTool, util.ErrorGuard(t.closeHandler))

	citationsTool := mcp.NewTool("ndex_get_edges_by_citations",
		mcp.WithDescription("Build the self-contained network of everything backed by the given citations"),
		mcp.WithString("network_id", mcp.Required(), mcp.Description("Network id")),
		mcp.WithString("citation_ids", mcp.Required(), mcp.Description("JSON array of citation ids")),
	)
	s.AddTool(citationsTool, util.ErrorGuard(t.citationsHandler))

	namespaceTool := mcp.NewTool("ndex_terms_in_namespaces",
		mcp.WithDescription("Get the base terms of the namespaces with the given prefixes"),
		mcp.WithString("network_id", mcp.Required(), mcp.Description("Network id")),
		mcp.WithString("prefixes", mcp.Required(), mcp.Description("JSON array of namespace prefixes")),
	)
	s.AddTool(namespaceTool, util.ErrorGuard(t.termsInNamespacesHandler))

	intersectTool := mcp.NewTool("ndex_intersecting_terms",
		mcp.WithDescription("Get the base terms whose name is in the given list"),
		mcp.WithString("network_id", mcp.Required(), mcp.Description("Network id")),
		mcp.WithString("names", mcp.Required(), mcp.Description("JSON array of term names")),
	)
	s.AddTool(intersectTool, util.ErrorGuard(t.intersectingTermsHandler))

	collectionTool := mcp.NewTool("ndex_list_collection",
		mcp.WithDescription("Page through the namespaces, base terms or citations of a network"),
		mcp.WithString("network_id", mcp.Required(), mcp.Description("Network id")),
		mcp.WithString("collection", mcp.Required(), mcp.Description("One of: namespaces, terms, citations")),
		mcp.WithNumber("skip", mcp.Description("Page index, 0 by default")),
		mcp.WithNumber("top", mcp.Required(), mcp.Description("Page size")),
	)
	s.AddTool(collectionTool, util.ErrorGuard(t.collectionHandler))

	neighborhoodTool := mcp.NewTool("ndex_query_neighborhood",
		mcp.WithDescription("Build the self-contained network of the edges around the nodes representing the named base terms"),
		mcp.WithString("network_id", mcp.Required(), mcp.Description("Network id")),
		mcp.WithString("names", mcp.Required(), mcp.Description("JSON array of base term names")),
		mcp.WithNumber("depth", mcp.Description("Number of edges to cross, 1 by default")),
		mcp.WithString("search_type", mcp.Description("BFS (default) or DFS")),
	)
	s.AddTool(neighborhoodTool, util.ErrorGuard(t.neighborhoodHandler))

	suggestTool := mcp.NewTool("ndex_suggest_terms",
		mcp.WithDescription("Suggest up to 20 base term names starting with a prefix, ignoring case"),
		mcp.WithString("network_id", mcp.Required(), mcp.Description("Network id")),
		mcp.WithString("prefix", mcp.Required(), mcp.Description("At least 3 characters")),
	)
	s.AddTool(suggestTool, util.ErrorGuard(t.suggestHandler))
}

func stringArg(arguments map[string]interface{}, key string) string {
	v, _ := arguments[key].(string)
	return v
}

func intArg(arguments map[string]interface{}, key string, def int) int {
	if v, ok := arguments[key].(float64); ok {
		return int(v)
	}
	return def
}

// idList parses a JSON array argument. A bare string is treated as one item.
func idList(arguments map[string]interface{}, key string) ([]string, error) {
	raw := strings.TrimSpace(stringArg(arguments, key))
	if raw == "" {
		return nil, graph.Invalidf("%s is required", key)
	}
	if !strings.HasPrefix(raw, "[") {
		return []string{raw}, nil
	}
	if !gjson.Valid(raw) {
		return nil, graph.Invalidf("%s is not valid JSON", key)
	}
	var out []string
	for _, item := range gjson.Parse(raw).Array() {
		if item.Type != gjson.String {
			return nil, graph.Invalidf("%s must contain only strings", key)
		}
		out = append(out, item.String())
	}
	return out, nil
}

func parseDocument(arguments map[string]interface{}) (*graph.ImportDocument, error) {
	raw := stringArg(arguments, "document")
	if !gjson.Valid(raw) {
		return nil, graph.Invalidf("document is not valid JSON")
	}
	if !gjson.Get(raw, "name").Exists() {
		return nil, graph.Invalidf("document has no name")
	}
	var doc graph.ImportDocument
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return nil, graph.Invalidf("decode document: %v", err)
	}
	return &doc, nil
}

// result renders v as indented JSON, or err as a tool error tagged with its kind
func result(v interface{}, err error) (*mcp.CallToolResult, error) {
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("%s: %v", graph.KindName(err), err)), nil
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(string(data)), nil
}

func (t *NetworkTools) createHandler(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	doc, err := parseDocument(request.Params.Arguments)
	if err != nil {
		return result(nil, err)
	}
	n, err := t.svc.CreateNetwork(ctx, t.actor, doc)
	if err != nil {
		return result(nil, err)
	}
	return result(summarize(n), nil)
}

func (t *NetworkTools) mergeHandler(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.Params.Arguments
	doc, err := parseDocument(args)
	if err != nil {
		return result(nil, err)
	}
	n, err := t.svc.MergeNetwork(ctx, t.actor, stringArg(args, "network_id"), stringArg(args, "method"), doc)
	if err != nil {
		return result(nil, err)
	}
	return result(summarize(n), nil)
}

func (t *NetworkTools) getHandler(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.Params.Arguments
	id := stringArg(args, "network_id")
	if full, _ := args["full"].(bool); full {
		return result(t.svc.ExportNetwork(ctx, t.actor, id))
	}
	return result(t.svc.GetNetwork(ctx, t.actor, id))
}

func (t *NetworkTools) listHandler(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	networks, err := t.svc.ListNetworks(ctx, t.actor)
	if err != nil {
		return result(nil, err)
	}
	out := make([]networkSummary, 0, len(networks))
	for _, n := range networks {
		out = append(out, summarize(n))
	}
	return result(out, nil)
}

func (t *NetworkTools) updateHandler(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.Params.Arguments
	var u network.NetworkUpdate
	if v, ok := args["name"].(string); ok {
		u.Name = &v
	}
	if v, ok := args["description"].(string); ok {
		u.Description = &v
	}
	if v, ok := args["is_public"].(bool); ok {
		u.IsPublic = &v
	}
	if v, ok := args["is_locked"].(bool); ok {
		u.IsLocked = &v
	}
	if raw := stringArg(args, "metadata"); raw != "" {
		parsed := gjson.Parse(raw)
		if !gjson.Valid(raw) || !parsed.IsObject() {
			return result(nil, graph.Invalidf("metadata must be a JSON object"))
		}
		u.Metadata = make(map[string]string)
		parsed.ForEach(func(key, value gjson.Result) bool {
			u.Metadata[key.String()] = value.String()
			return true
		})
	}
	return result(t.svc.UpdateNetwork(ctx, t.actor, stringArg(args, "network_id"), u))
}

func (t *NetworkTools) deleteHandler(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := stringArg(request.Params.Arguments, "network_id")
	if err := t.svc.DeleteNetwork(ctx, t.actor, id); err != nil {
		return result(nil, err)
	}
	return mcp.NewToolResultText(fmt.Sprintf("Deleted network %s", id)), nil
}

func (t *NetworkTools) edgesHandler(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.Params.Arguments
	return result(t.svc.GetEdges(ctx, t.actor, stringArg(args, "network_id"), intArg(args, "skip", 0), intArg(args, "top", 0)))
}

func (t *NetworkTools) closeHandler(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.Params.Arguments
	ids, err := idList(args, "edge_ids")
	if err != nil {
		return result(nil, err)
	}
	return result(t.svc.CloseEdges(ctx, t.actor, stringArg(args, "network_id"), ids))
}

func (t *NetworkTools) citationsHandler(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.Params.Arguments
	ids, err := idList(args, "citation_ids")
	if err != nil {
		return result(nil, err)
	}
	return result(t.svc.GetEdgesByCitations(ctx, t.actor, stringArg(args, "network_id"), ids))
}

func (t *NetworkTools) termsInNamespacesHandler(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.Params.Arguments
	prefixes, err := idList(args, "prefixes")
	if err != nil {
		return result(nil, err)
	}
	return result(t.svc.GetTermsInNamespaces(ctx, t.actor, stringArg(args, "network_id"), prefixes))
}

func (t *NetworkTools) intersectingTermsHandler(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.Params.Arguments
	names, err := idList(args, "names")
	if err != nil {
		return result(nil, err)
	}
	return result(t.svc.GetIntersectingTerms(ctx, t.actor, stringArg(args, "network_id"), names))
}

func (t *NetworkTools) neighborhoodHandler(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.Params.Arguments
	names, err := idList(args, "names")
	if err != nil {
		return result(nil, err)
	}
	search := query.Search(strings.ToUpper(stringArg(args, "search_type")))
	return result(t.svc.QueryNeighborhood(ctx, t.actor, stringArg(args, "network_id"), names, intArg(args, "depth", 1), search))
}

func (t *NetworkTools) suggestHandler(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.Params.Arguments
	return result(t.svc.AutoSuggestTerms(ctx, t.actor, stringArg(args, "network_id"), stringArg(args, "prefix")))
}

func (t *NetworkTools) collectionHandler(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.Params.Arguments
	id := stringArg(args, "network_id")
	skip, top := intArg(args, "skip", 0), intArg(args, "top", 0)

	switch collection := stringArg(args, "collection"); collection {
	case "namespaces":
		return result(t.svc.GetNamespaces(ctx, t.actor, id, skip, top))
	case "terms":
		return result(t.svc.GetTerms(ctx, t.actor, id, skip, top))
	case "citations":
		return result(t.svc.GetCitations(ctx, t.actor, id, skip, top))
	default:
		return result(nil, graph.Invalidf("unknown collection %q", collection))
	}
}

type networkSummary struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Owner       string `json:"owner"`
	IsPublic    bool   `json:"is_public"`
	IsLocked    bool   `json:"is_locked"`
	NodeCount   int    `json:"node_count"`
	EdgeCount   int    `json:"edge_count"`
}

func summarize(n *graph.Network) networkSummary {
	return networkSummary{
		ID:          n.ID,
		Name:        n.Name,
		Description: n.Description,
		Owner:       n.Owner,
		IsPublic:    n.IsPublic,
		IsLocked:    n.IsLocked,
		NodeCount:   n.NodeCount,
		EdgeCount:   n.EdgeCount,
	}
}
