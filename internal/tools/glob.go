package tools

import (
	"context"
	"encoding/json"

	"github.com/chebykinn/browser-code/internal/vfs"
)

// GlobTool implements spec §4.A.2 Glob.
type GlobTool struct {
	VFS *vfs.VFS
}

func (t *GlobTool) Name() string { return "Glob" }

func (t *GlobTool) Description() string {
	return "List files in the active page's directory matching a doublestar glob pattern (*, ?, **)."
}

func (t *GlobTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type":       "object",
		"properties": map[string]interface{}{"pattern": map[string]interface{}{"type": "string"}},
		"required":   []string{"pattern"},
	}
}

func (t *GlobTool) Execute(ctx context.Context, args map[string]interface{}) *Result {
	pattern, ok := argString(args, "pattern")
	if !ok {
		return ErrorResult("pattern is required")
	}
	matches, err := t.VFS.Glob(ctx, pattern)
	if err != nil {
		return vfsErrorResult(err)
	}
	b, _ := json.Marshal(map[string]interface{}{"matches": matches})
	return NewResult(string(b))
}
