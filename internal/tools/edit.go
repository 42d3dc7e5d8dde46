package tools

import (
	"context"
	"encoding/json"

	"github.com/chebykinn/browser-code/internal/vfs"
)

// EditTool implements spec §4.A.2 Edit. Absent from the plan-mode tool
// catalog (§4.C.4).
type EditTool struct {
	VFS *vfs.VFS
}

func (t *EditTool) Name() string { return "Edit" }

func (t *EditTool) Description() string {
	return "Replace old content with new content in a virtual file at a given expected version. Fails with NOT_FOUND if old is not present."
}

func (t *EditTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"path":            map[string]interface{}{"type": "string"},
			"old":             map[string]interface{}{"type": "string"},
			"new":             map[string]interface{}{"type": "string"},
			"expectedVersion": map[string]interface{}{"type": "integer"},
			"replaceAll":      map[string]interface{}{"type": "boolean", "description": "Replace every occurrence instead of requiring exactly one"},
		},
		"required": []string{"path", "old", "new", "expectedVersion"},
	}
}

func (t *EditTool) Execute(ctx context.Context, args map[string]interface{}) *Result {
	path, ok := argString(args, "path")
	if !ok {
		return ErrorResult("path is required")
	}
	oldContent, ok := argString(args, "old")
	if !ok {
		return ErrorResult("old is required")
	}
	newContent, ok := argString(args, "new")
	if !ok {
		return ErrorResult("new is required")
	}
	expectedVersion, _ := argInt(args, "expectedVersion")
	replaceAll := argBool(args, "replaceAll")

	res, err := t.VFS.Edit(ctx, path, oldContent, newContent, expectedVersion, replaceAll)
	if err != nil {
		return vfsErrorResult(err)
	}
	b, _ := json.Marshal(map[string]interface{}{"version": res.Version, "replacements": res.Replacements})
	return NewResult(string(b))
}
