package prompts

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

func RegisterNetworkPrompts(s *server.MCPServer) {
	review := mcp.NewPrompt("review_evidence",
		mcp.WithPromptDescription("Review the evidence behind a network's edges"),
		mcp.WithArgument("network_id", mcp.RequiredArgument(), mcp.ArgumentDescription("Network to review")),
		mcp.WithArgument("citation", mcp.ArgumentDescription("Citation id to focus on")),
	)
	s.AddPrompt(review, reviewEvidenceHandler)
}

func reviewEvidenceHandler(ctx context.Context, request mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	networkID := request.Params.Arguments["network_id"]
	if networkID == "" {
		return nil, fmt.Errorf("network_id is required")
	}

	text := fmt.Sprintf("Use ndex_list_collection to list the citations of network %s, then "+
		"ndex_get_edges_by_citations for each one. Report edges whose supports have no originating citation.", networkID)
	if citation := request.Params.Arguments["citation"]; citation != "" {
		text = fmt.Sprintf("Use ndex_get_edges_by_citations on network %s with citation %s and summarize "+
			"which statements the citation backs and through which supports.", networkID, citation)
	}

	return &mcp.GetPromptResult{
		Description: fmt.Sprintf("Evidence review of network %s", networkID),
		Messages: []mcp.PromptMessage{
			{
				Role: mcp.RoleUser,
				Content: mcp.TextContent{
					Type: "text",
					Text: text,
				},
			},
		},
	}, nil
}
