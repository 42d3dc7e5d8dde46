package tools

import (
	"context"
	"encoding/json"

	"github.com/chebykinn/browser-code/internal/vfs"
)

// WriteTool implements spec §4.A.2 Write / §4.C.2 dispatch table. In plan
// mode, the loop consults tools.WritePathAllowed before dispatch (Open
// Question #2) — this tool itself has no notion of mode.
type WriteTool struct {
	VFS *vfs.VFS
}

func (t *WriteTool) Name() string { return "Write" }

func (t *WriteTool) Description() string {
	return "Write a virtual file's full content at a given expected version. expectedVersion=0 only succeeds if the file does not yet exist."
}

func (t *WriteTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"path":            map[string]interface{}{"type": "string"},
			"content":         map[string]interface{}{"type": "string"},
			"expectedVersion": map[string]interface{}{"type": "integer"},
		},
		"required": []string{"path", "content", "expectedVersion"},
	}
}

func (t *WriteTool) Execute(ctx context.Context, args map[string]interface{}) *Result {
	path, ok := argString(args, "path")
	if !ok {
		return ErrorResult("path is required")
	}
	content, ok := argString(args, "content")
	if !ok {
		return ErrorResult("content is required")
	}
	expectedVersion, _ := argInt(args, "expectedVersion")

	res, err := t.VFS.Write(ctx, path, content, expectedVersion)
	if err != nil {
		return vfsErrorResult(err)
	}
	b, _ := json.Marshal(map[string]interface{}{"version": res.Version})
	return NewResult(string(b))
}
