package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/loomhq/loom/pkg/session"
	"github.com/loomhq/loom/pkg/skills"
	"github.com/loomhq/loom/pkg/wrapper"
)

// RegisterCoordinatorTools wires the read-only coordinator tools onto the
// server. All three project live state at call time; nothing is cached.
func RegisterCoordinatorTools(s *Server, skillCatalog *skills.Catalog, wrapperCatalog *wrapper.Catalog, registry *session.Registry) {
	s.RegisterTool("skills_list", "List the skills currently in the catalog.",
		func(_ context.Context, _ map[string]interface{}) (*mcp.CallToolResult, error) {
			return jsonResult(skillCatalog.List())
		})

	s.RegisterTool("wrappers_list", "List the wrappers currently in the catalog.",
		func(_ context.Context, _ map[string]interface{}) (*mcp.CallToolResult, error) {
			return jsonResult(wrapperCatalog.List())
		})

	s.RegisterTool("execution_snapshots", "Snapshot active executions, optionally filtered by workspace_id.",
		func(_ context.Context, args map[string]interface{}) (*mcp.CallToolResult, error) {
			workspaceID, _ := args["workspace_id"].(string)
			snaps := session.BuildExecutionSnapshots(registry.List(), workspaceID)
			return jsonResult(snaps)
		})
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode result: %w", err)
	}
	return mcp.NewToolResultText(string(data)), nil
}
