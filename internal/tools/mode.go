package tools

import "github.com/chebykinn/browser-code/internal/providers"

// Mode is the two-phase agent lifecycle gate (spec §4.C.4).
type Mode string

const (
	ModePlan    Mode = "plan"
	ModeExecute Mode = "execute"
)

// planToolNames is exactly the set plan mode exposes; Edit is absent so
// the model cannot mutate page.html before a plan is approved. This is
// the same shape as the teacher's toolProfiles map
// ("minimal"/"coding"/"messaging"/"full"), repurposed down to two modes.
var planToolNames = map[string]bool{
	"Read":       true,
	"Glob":       true,
	"Grep":       true,
	"GrepCount":  true,
	"Screenshot": true,
	"Ls":         true,
	"Bash":       true,
	"Write":      true,
	"TodoRead":   true,
	"TodoWrite":  true,
}

// ToolDefsForMode returns the LLM-facing tool definitions a given mode
// exposes. execute mode sees every registered tool; plan mode sees only
// planToolNames.
func ToolDefsForMode(mode Mode, reg *Registry) []providers.ToolDefinition {
	if mode == ModeExecute {
		return reg.ProviderDefs()
	}
	var defs []providers.ToolDefinition
	for _, t := range reg.List() {
		if !planToolNames[t.Name()] {
			continue
		}
		defs = append(defs, providers.ToolDefinition{
			Type: "function",
			Function: providers.ToolFunctionSchema{
				Name:        t.Name(),
				Description: t.Description(),
				Parameters:  t.Parameters(),
			},
		})
	}
	return defs
}

// IsAllowed reports whether a tool name is callable in the given mode.
// The loop consults this before dispatch so a model that hallucinates a
// tool_use outside its exposed catalog gets a clean tool_result error
// instead of silently running a disallowed tool.
func IsAllowed(mode Mode, toolName string) bool {
	if mode == ModeExecute {
		return true
	}
	return planToolNames[toolName]
}

// WritePathAllowed enforces Open Question #2: in plan mode, Write is
// restricted to "./plan.md" server-side, not just by prompt. path is the
// tool_use's "path" argument as given by the model.
func WritePathAllowed(mode Mode, path string) bool {
	if mode == ModeExecute {
		return true
	}
	return path == "./plan.md" || path == "plan.md"
}
