// ABOUTME: Registers every registry tool with the MCP server.
// ABOUTME: Calls forward raw arguments and return the result envelope.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/harperreed/ultratrainer/internal/tools"
)

func (s *Server) registerTools() {
	for _, d := range s.registry.Catalog() {
		s.mcpServer.AddTool(&mcp.Tool{
			Name:        d.Name,
			Description: d.Description,
			InputSchema: d.ArgumentSchema,
			Meta:        mcp.Meta{"returnSchema": d.ReturnSchema},
		}, s.toolHandler(d.Name))
	}
}

// toolHandler forwards one tool. Calls within an MCP session run one at a time
// so conversation turns land in arrival order.
func (s *Server) toolHandler(name string) mcp.ToolHandler {
	return func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		sess := s.session(req.Session)
		sess.mu.Lock()
		defer sess.mu.Unlock()

		var raw json.RawMessage
		if req.Params != nil {
			raw = req.Params.Arguments
		}

		env := s.registry.Invoke(tools.WithSessionID(ctx, sess.id), name, raw)
		return envelopeResult(name, env)
	}
}

func envelopeResult(name string, env tools.Envelope) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("encode %s result: %w", name, err)
	}
	return &mcp.CallToolResult{
		Content:           []mcp.Content{&mcp.TextContent{Text: string(data)}},
		StructuredContent: json.RawMessage(data),
		IsError:           !env.OK(),
	}, nil
}
