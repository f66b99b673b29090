package server

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/papercomputeco/lmnode/node"
	"github.com/papercomputeco/lmnode/pkg/llm"
)

// ToolName is the MCP tool running the node.
const ToolName = "lmstudio_generate"

// NewMCPServer returns an MCP server exposing the node as a single tool.
// Socket defaults are read on every call.
func NewMCPServer(n *node.Node, defaults func() node.Defaults, version string) (*mcp.Server, error) {
	schema, err := inputSchema(node.Describe(defaults()))
	if err != nil {
		return nil, fmt.Errorf("build %s input schema: %w", ToolName, err)
	}

	server := mcp.NewServer(&mcp.Implementation{
		Name:    "lmnode",
		Version: version,
	}, nil)

	server.AddTool(&mcp.Tool{
		Name:        ToolName,
		Description: "Generate a chat response with a model served by LM Studio. Unset arguments take the node defaults. The result is the response text followed by the generation stats.",
		InputSchema: schema,
	}, func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := req.Params.Arguments
		if len(args) == 0 {
			args = json.RawMessage("{}")
		}

		var in node.Inputs
		if err := json.Unmarshal(args, &in); err != nil {
			return &mcp.CallToolResult{
				Content: []mcp.Content{&mcp.TextContent{Text: fmt.Sprintf("invalid arguments: %v", err)}},
				IsError: true,
			}, nil
		}

		resp := n.Generate(ctx, in.Request(defaults()))
		return &mcp.CallToolResult{
			Content: []mcp.Content{
				&mcp.TextContent{Text: resp.Text},
				&mcp.TextContent{Text: resp.Stats},
			},
			IsError: resp.Outcome != llm.OutcomeOK,
		}, nil
	})

	return server, nil
}

// inputSchema derives the tool's JSON schema from the node's input sockets.
func inputSchema(def node.Definition) (json.RawMessage, error) {
	props := make(map[string]any, len(def.Inputs))
	for _, s := range def.Inputs {
		p := map[string]any{}
		switch s.Type {
		case node.TypeImage:
			p["type"] = "string"
			p["contentEncoding"] = "base64"
			p["description"] = "Encoded image (PNG, JPEG, WebP, ...), base64"
		case node.TypeFloat:
			p["type"] = "number"
		case node.TypeInt:
			p["type"] = "integer"
		case node.TypeBoolean:
			p["type"] = "boolean"
		default:
			p["type"] = "string"
		}
		if s.Default != nil {
			p["default"] = s.Default
		}
		if s.Min != nil {
			p["minimum"] = *s.Min
		}
		if s.Max != nil {
			p["maximum"] = *s.Max
		}
		if s.Label != "" {
			p["description"] = s.Label
		}
		props[s.Name] = p
	}

	return json.Marshal(map[string]any{
		"type":       "object",
		"properties": props,
	})
}
