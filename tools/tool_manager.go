package tools

import (
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/athapong/ndex-mcp/pkg/graph/builder"
	"github.com/athapong/ndex-mcp/util"
)

// ToolGroup is a set of tools switched on and off together through ENABLE_TOOLS
type ToolGroup struct {
	Name        string
	Description string
}

var toolGroups = []ToolGroup{
	{"tool_manager", "Tool management"},
	{"network", "Network import, merge, update and delete"},
	{"query", "Edge closure, citation traversal and term lookup"},
}

// ToolGroups lists the known tool groups
func ToolGroups() []ToolGroup {
	return slices.Clone(toolGroups)
}

func enabledTools() []string {
	raw := os.Getenv("ENABLE_TOOLS")
	if raw == "" {
		return nil
	}
	var out []string
	for _, name := range strings.Split(raw, ",") {
		if name = strings.TrimSpace(name); name != "" {
			out = append(out, name)
		}
	}
	return out
}

// IsEnabled reports whether a tool group is switched on. An empty
// ENABLE_TOOLS enables everything.
func IsEnabled(name string) bool {
	enabled := enabledTools()
	return len(enabled) == 0 || slices.Contains(enabled, name)
}

func RegisterToolManagerTool(s *server.MCPServer) {
	tool := mcp.NewTool("tool_manager",
		mcp.WithDescription("Manage MCP tools - enable or disable tool groups"),
		mcp.WithString("action", mcp.Required(), mcp.Description("Action to perform: list, enable, disable")),
		mcp.WithString("tool_name", mcp.Description("Tool group to enable/disable")),
	)
	s.AddTool(tool, util.ErrorGuard(util.AdaptLegacyHandler(toolManagerHandler)))

	methodsTool := mcp.NewTool("ndex_equivalence_methods",
		mcp.WithDescription("List the equivalence methods accepted by ndex_merge_network"),
	)
	s.AddTool(methodsTool, util.ErrorGuard(util.AdaptLegacyHandler(equivalenceMethodsHandler)))
}

func toolManagerHandler(arguments map[string]interface{}) (*mcp.CallToolResult, error) {
	action, ok := arguments["action"].(string)
	if !ok {
		return mcp.NewToolResultError("action must be a string"), nil
	}

	enabled := enabledTools()
	allEnabled := len(enabled) == 0

	switch action {
	case "list":
		var b strings.Builder
		b.WriteString("Available tools:\n")
		for _, g := range toolGroups {
			status := "disabled"
			if allEnabled || slices.Contains(enabled, g.Name) {
				status = "enabled"
			}
			fmt.Fprintf(&b, "- %s (%s) [%s]\n", g.Name, g.Description, status)
		}
		b.WriteString("\nCurrently enabled tools:\n")
		if allEnabled {
			b.WriteString("All tools are enabled (ENABLE_TOOLS is empty)\n")
		} else {
			for _, name := range enabled {
				fmt.Fprintf(&b, "- %s\n", name)
			}
		}
		return mcp.NewToolResultText(b.String()), nil

	case "enable", "disable":
		toolName, ok := arguments["tool_name"].(string)
		if !ok || toolName == "" {
			return mcp.NewToolResultError("tool_name is required for enable/disable actions"), nil
		}
		if !slices.ContainsFunc(toolGroups, func(g ToolGroup) bool { return g.Name == toolName }) {
			return mcp.NewToolResultError(fmt.Sprintf("unknown tool group %q", toolName)), nil
		}

		if action == "enable" {
			if !slices.Contains(enabled, toolName) {
				enabled = append(enabled, toolName)
			}
		} else {
			if allEnabled {
				for _, g := range toolGroups {
					enabled = append(enabled, g.Name)
				}
			}
			enabled = slices.DeleteFunc(enabled, func(name string) bool { return name == toolName })
		}
		os.Setenv("ENABLE_TOOLS", strings.Join(enabled, ","))

		return mcp.NewToolResultText(fmt.Sprintf("Successfully %sd tool: %s (takes effect on restart)", action, toolName)), nil

	default:
		return mcp.NewToolResultError("Invalid action. Use 'list', 'enable', or 'disable'"), nil
	}
}

func equivalenceMethodsHandler(arguments map[string]interface{}) (*mcp.CallToolResult, error) {
	var b strings.Builder
	b.WriteString("Equivalence methods:\n")
	for _, name := range builder.Policies() {
		fmt.Fprintf(&b, "- %s\n", name)
	}
	return mcp.NewToolResultText(b.String()), nil
}
