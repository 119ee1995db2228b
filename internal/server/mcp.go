package server

import (
	"context"
	"errors"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"derrclan.com/bible-passage/internal/passage"
)

// ToolName is the MCP tool that looks up passages.
const ToolName = "get_passage"

const toolDescription = `Retrieve the text of one or more Bible passages.

Separate several references with semicolons, e.g. "John 3:16; Romans 8:28".
A reference is a book name (English or German, abbreviations allowed), a
chapter and optionally a verse or verse range: "Psalm 23", "Jn 3:16-18",
"1. Mose 1:1". The version is a translation code such as ESV, NIV or LUTH1545.`

// PassageInput is the argument of the get_passage tool.
type PassageInput struct {
	Passage string `json:"passage" jsonschema:"one or more references separated by semicolons"`
	Version string `json:"version,omitempty" jsonschema:"translation code; the server default is used when empty"`
}

// NewMCPServer returns an MCP server exposing the get_passage tool.
func NewMCPServer(svc *passage.Service, version string, logger *zap.Logger) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{Name: ServiceName, Version: version}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        ToolName,
		Description: toolDescription,
	}, func(ctx context.Context, req *mcp.CallToolRequest, in PassageInput) (*mcp.CallToolResult, passage.Response, error) {
		if strings.TrimSpace(in.Passage) == "" {
			return nil, passage.Response{}, errors.New("passage is required")
		}
		resp, err := svc.Lookup(ctx, in.Passage, in.Version)
		if err != nil {
			logger.Debug("tool call rejected", zap.String("tool", ToolName), zap.Error(err))
			return nil, passage.Response{}, err
		}
		return nil, resp, nil
	})

	return server
}
