package util

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// LegacyHandler receives only the call arguments
type LegacyHandler func(arguments map[string]interface{}) (*mcp.CallToolResult, error)

// ErrorGuard turns handler errors and panics into tool error results so a
// failing tool never tears down the server.
func ErrorGuard(handler server.ToolHandlerFunc) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (result *mcp.CallToolResult, err error) {
		defer func() {
			if r := recover(); r != nil {
				result = mcp.NewToolResultError(fmt.Sprintf("%s panicked: %v", request.Params.Name, r))
				err = nil
			}
		}()
		result, err = handler(ctx, request)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return result, nil
	}
}

// AdaptLegacyHandler wraps an arguments-only handler as a tool handler
func AdaptLegacyHandler(legacy LegacyHandler) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return legacy(request.Params.Arguments)
	}
}
