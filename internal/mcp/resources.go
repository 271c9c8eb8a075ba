// ABOUTME: MCP resources for the coaching records.
// ABOUTME: Provides coach://profile, coach://goals, and coach://context.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// resourceTools maps each resource to the read-only tool that renders it.
var resourceTools = []struct {
	uri         string
	name        string
	description string
	tool        string
}{
	{"coach://profile", "Athlete Profile", "The stored athlete profile, or set=false when none exists", "get_profile"},
	{"coach://goals", "Goals", "All goals ordered by target date", "list_goals"},
	{"coach://context", "Coaching Context", "Profile, active goals, recent health episodes, and recent conversation", "get_context_summary"},
}

func (s *Server) registerResources() {
	for _, rt := range resourceTools {
		s.mcpServer.AddResource(&mcp.Resource{
			URI:         rt.uri,
			Name:        rt.name,
			Description: rt.description,
			MIMEType:    "application/json",
		}, s.resourceHandler(rt.uri, rt.tool))
	}
}

func (s *Server) resourceHandler(uri, tool string) mcp.ResourceHandler {
	return func(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
		env := s.registry.Invoke(ctx, tool, nil)
		if !env.OK() {
			return nil, fmt.Errorf("read %s: %s: %s", uri, env.Kind, env.Message)
		}

		data, err := json.MarshalIndent(env.Result, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("failed to marshal %s: %w", uri, err)
		}

		return &mcp.ReadResourceResult{
			Contents: []*mcp.ResourceContents{{
				URI:      uri,
				MIMEType: "application/json",
				Text:     string(data),
			}},
		}, nil
	}
}
