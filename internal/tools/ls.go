package tools

import (
	"context"
	"encoding/json"

	"github.com/chebykinn/browser-code/internal/vfs"
)

// LsTool implements spec §4.A.2 Ls.
type LsTool struct {
	VFS *vfs.VFS
}

func (t *LsTool) Name() string { return "Ls" }

func (t *LsTool) Description() string {
	return "List the virtual directory entries at a path: page.html, console.log, screenshot.png/plan.md if present, and scripts/ and styles/ directories."
}

func (t *LsTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type":       "object",
		"properties": map[string]interface{}{"path": map[string]interface{}{"type": "string"}},
		"required":   []string{"path"},
	}
}

func (t *LsTool) Execute(ctx context.Context, args map[string]interface{}) *Result {
	path, ok := argString(args, "path")
	if !ok {
		return ErrorResult("path is required")
	}
	entries, err := t.VFS.Ls(ctx, path)
	if err != nil {
		return vfsErrorResult(err)
	}
	out := make([]map[string]interface{}, 0, len(entries))
	for _, e := range entries {
		out = append(out, map[string]interface{}{"name": e.Name, "kind": e.Kind.String(), "path": e.Path})
	}
	b, _ := json.Marshal(map[string]interface{}{"entries": out})
	return NewResult(string(b))
}
