package mcp

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	mcpclient "github.com/mark3labs/mcp-go/client"
	mcpgo "github.com/mark3labs/mcp-go/mcp"

	"github.com/chebykinn/browser-code/internal/tools"
)

// BridgeTool adapts one tool discovered on a connected MCP server to the
// tools.Tool interface, so it sits in the same per-tab Registry as the
// built-in VFS tools and is exposed to the model identically (execute
// mode only — MCP tools are never part of planToolNames).
type BridgeTool struct {
	serverName   string
	originalName string
	prefixedName string
	description  string
	schema       map[string]interface{}
	client       *mcpclient.Client
	timeoutSec   int
	connected    *atomic.Bool
}

func NewBridgeTool(serverName string, mcpTool mcpgo.Tool, client *mcpclient.Client, toolPrefix string, timeoutSec int, connected *atomic.Bool) *BridgeTool {
	name := mcpTool.Name
	if toolPrefix != "" {
		name = toolPrefix + "_" + name
	}
	schema := map[string]interface{}{
		"type":       "object",
		"properties": mcpTool.InputSchema.Properties,
		"required":   mcpTool.InputSchema.Required,
	}
	return &BridgeTool{
		serverName:   serverName,
		originalName: mcpTool.Name,
		prefixedName: name,
		description:  mcpTool.Description,
		schema:       schema,
		client:       client,
		timeoutSec:   timeoutSec,
		connected:    connected,
	}
}

func (t *BridgeTool) Name() string                       { return t.prefixedName }
func (t *BridgeTool) Description() string                { return t.description }
func (t *BridgeTool) Parameters() map[string]interface{} { return t.schema }

// OriginalName returns the tool's name as declared by the MCP server,
// before prefixing — used for allow/deny filtering.
func (t *BridgeTool) OriginalName() string { return t.originalName }

func (t *BridgeTool) Execute(ctx context.Context, args map[string]interface{}) *tools.Result {
	if t.connected != nil && !t.connected.Load() {
		return tools.ErrorResult(fmt.Sprintf("mcp server %q is not connected", t.serverName))
	}

	timeout := time.Duration(t.timeoutSec) * time.Second
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req := mcpgo.CallToolRequest{}
	req.Params.Name = t.originalName
	req.Params.Arguments = args

	res, err := t.client.CallTool(callCtx, req)
	if err != nil {
		return tools.ErrorResult(fmt.Sprintf("mcp tool %q: %v", t.prefixedName, err))
	}

	text := bridgeResultText(res)
	if res.IsError {
		return tools.ErrorResult(text)
	}
	return tools.NewResult(text)
}

// bridgeResultText flattens an MCP CallToolResult's content blocks to the
// text-only tool_result shape every VFS tool already returns; image
// blocks from MCP servers are summarized rather than dropped silently.
func bridgeResultText(res *mcpgo.CallToolResult) string {
	if res == nil {
		return ""
	}
	var parts []string
	for _, c := range res.Content {
		switch block := c.(type) {
		case mcpgo.TextContent:
			parts = append(parts, block.Text)
		case mcpgo.ImageContent:
			parts = append(parts, fmt.Sprintf("[image content, %s]", block.MIMEType))
		default:
			parts = append(parts, fmt.Sprintf("%v", c))
		}
	}
	return strings.Join(parts, "\n")
}
