// Package mcpserver exposes package analysis as Model Context Protocol tools.
package mcpserver

import (
	"context"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	shakerr "github.com/matzehuels/shakify/pkg/errors"
	"github.com/matzehuels/shakify/pkg/result"
)

// ToolAnalyzePackage is the name of the analysis tool.
const ToolAnalyzePackage = "analyze_package"

// Analyzer runs one analysis.
type Analyzer interface {
	Analyze(ctx context.Context, pkg string, refresh bool) (*result.Result, error)
}

// New creates an MCP server with all tools registered.
func New(name, version string, a Analyzer) *server.MCPServer {
	s := server.NewMCPServer(name, version, server.WithToolCapabilities(false))
	RegisterTools(s, a)
	return s
}

// RegisterTools defines all tools on s.
func RegisterTools(s *server.MCPServer, a Analyzer) {
	tool := mcp.NewTool(ToolAnalyzePackage,
		mcp.WithDescription("Bundle every public export of the latest version of an npm package with tree shaking and report its raw, gzip and brotli sizes, together with the package's ESM, CommonJS and sideEffects metadata. Results are cached per version; set refresh to recompute."),
		mcp.WithString("package", mcp.Required(), mcp.Description("npm package name, optionally scoped (e.g. 'lodash-es' or '@preact/signals')")),
		mcp.WithBoolean("refresh", mcp.Description("Ignore cached results and analyze again")),
	)
	s.AddTool(tool, analyzeHandler(a))
}

func analyzeHandler(a Analyzer) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		pkg, err := request.RequireString("package")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		refresh := request.GetBool("refresh", false)

		res, err := a.Analyze(ctx, pkg, refresh)
		if err != nil {
			return mcp.NewToolResultError("Failed to analyze " + pkg + ": " + shakerr.UserMessage(err)), nil
		}
		data, err := json.MarshalIndent(res, "", "  ")
		if err != nil {
			return nil, err
		}
		return mcp.NewToolResultText(string(data)), nil
	}
}
