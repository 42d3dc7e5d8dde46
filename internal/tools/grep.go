package tools

import (
	"context"
	"encoding/json"

	"github.com/chebykinn/browser-code/internal/vfs"
)

// GrepTool implements spec §4.A.2 Grep.
type GrepTool struct {
	VFS *vfs.VFS
}

func (t *GrepTool) Name() string { return "Grep" }

func (t *GrepTool) Description() string {
	return "Search a virtual file (default: the active page's page.html) for lines matching a case-insensitive regex, with surrounding context."
}

func (t *GrepTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"pattern":      map[string]interface{}{"type": "string"},
			"path":         map[string]interface{}{"type": "string", "description": "Defaults to the active page's page.html"},
			"contextLines": map[string]interface{}{"type": "integer"},
		},
		"required": []string{"pattern"},
	}
}

func (t *GrepTool) Execute(ctx context.Context, args map[string]interface{}) *Result {
	pattern, ok := argString(args, "pattern")
	if !ok {
		return ErrorResult("pattern is required")
	}
	path := argStringOr(args, "path", "")
	contextLines, _ := argInt(args, "contextLines")

	res, err := t.VFS.Grep(ctx, pattern, path, contextLines)
	if err != nil {
		return vfsErrorResult(err)
	}
	b, _ := json.Marshal(res)
	return NewResult(string(b))
}

// GrepCountTool implements spec §4.A.2 GrepCount.
type GrepCountTool struct {
	VFS *vfs.VFS
}

func (t *GrepCountTool) Name() string { return "GrepCount" }

func (t *GrepCountTool) Description() string {
	return "Count lines matching a case-insensitive regex in a virtual file, without returning their content."
}

func (t *GrepCountTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"pattern": map[string]interface{}{"type": "string"},
			"path":    map[string]interface{}{"type": "string"},
		},
		"required": []string{"pattern"},
	}
}

func (t *GrepCountTool) Execute(ctx context.Context, args map[string]interface{}) *Result {
	pattern, ok := argString(args, "pattern")
	if !ok {
		return ErrorResult("pattern is required")
	}
	path := argStringOr(args, "path", "")

	count, resolvedPath, err := t.VFS.GrepCount(ctx, pattern, path)
	if err != nil {
		return vfsErrorResult(err)
	}
	b, _ := json.Marshal(map[string]interface{}{"count": count, "path": resolvedPath})
	return NewResult(string(b))
}
