package agent

import (
	"github.com/chebykinn/browser-code/internal/config"
	"github.com/chebykinn/browser-code/internal/providers"
	"github.com/chebykinn/browser-code/internal/tools"
	"github.com/chebykinn/browser-code/internal/vfs"
)

// NewTabRuntime builds the tool registry and provider binding for one
// tab's VFS, wiring every built-in tool (spec §4.C.2) plus the bash
// executor the content script forwards principal-world execution
// requests through (spec §4.D.3). MCP-discovered tools, if any, are
// registered into the returned Registry separately by the caller via
// mcp.Manager, after Start — execute-mode-only by construction since
// they're never added to the plan-mode tool set.
func NewTabRuntime(cfg config.AgentConfig, provider providers.Provider, vfsInst *vfs.VFS, executor tools.MainWorldExecutor) *TabRuntime {
	reg := tools.NewRegistry()
	reg.Register(&tools.ReadTool{VFS: vfsInst})
	reg.Register(&tools.WriteTool{VFS: vfsInst})
	reg.Register(&tools.EditTool{VFS: vfsInst})
	reg.Register(&tools.GlobTool{VFS: vfsInst})
	reg.Register(&tools.GrepTool{VFS: vfsInst})
	reg.Register(&tools.GrepCountTool{VFS: vfsInst})
	reg.Register(&tools.LsTool{VFS: vfsInst})
	reg.Register(&tools.ScreenshotTool{VFS: vfsInst})
	reg.Register(&tools.BashTool{Executor: executor})

	todos := tools.NewTodoStore()
	reg.Register(&tools.TodoReadTool{Store: todos})
	reg.Register(&tools.TodoWriteTool{Store: todos})

	model := cfg.Model
	maxTokens := cfg.MaxTokens
	if maxTokens == 0 {
		maxTokens = 4096
	}

	return &TabRuntime{
		VFS:           vfsInst,
		Registry:      reg,
		Todos:         todos,
		Provider:      provider,
		Model:         model,
		MaxTokens:     maxTokens,
		Temperature:   cfg.Temperature,
		ThinkingLevel: "off",
	}
}
