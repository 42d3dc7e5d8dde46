package tools

import (
	"context"
	"encoding/json"
)

// MainWorldExecutor runs JS in a page's principal world (spec §4.D.3).
// Satisfied by internal/browser's Controller; a fake stands in for tests.
type MainWorldExecutor interface {
	ExecuteInMainWorld(code string) (interface{}, error)
}

// BashTool implements spec §4.A.2 Bash: run inline JS against the active
// page's principal world. Named Bash for parity with the rest of the
// dispatch table, not because it runs a shell.
type BashTool struct {
	Executor MainWorldExecutor
}

func (t *BashTool) Name() string { return "Bash" }

func (t *BashTool) Description() string {
	return "Execute inline JavaScript in the active page's principal world. Prefer registering a script for anything that must survive reloads; CSP may block this for some pages."
}

func (t *BashTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type":       "object",
		"properties": map[string]interface{}{"code": map[string]interface{}{"type": "string"}},
		"required":   []string{"code"},
	}
}

func (t *BashTool) Execute(ctx context.Context, args map[string]interface{}) *Result {
	code, ok := argString(args, "code")
	if !ok {
		return ErrorResult("code is required")
	}
	result, err := t.Executor.ExecuteInMainWorld(code)
	if err != nil {
		b, _ := json.Marshal(map[string]interface{}{"success": false, "error": err.Error()})
		return ErrorResult(string(b))
	}
	b, _ := json.Marshal(map[string]interface{}{"success": true, "result": result})
	return NewResult(string(b))
}
