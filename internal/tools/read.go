package tools

import (
	"context"
	"encoding/json"

	"github.com/chebykinn/browser-code/internal/vfs"
)

// ReadTool implements spec §4.A.2 Read / §4.C.2 dispatch table.
type ReadTool struct {
	VFS *vfs.VFS
}

func (t *ReadTool) Name() string { return "Read" }

func (t *ReadTool) Description() string {
	return "Read a virtual file: page.html, console.log, screenshot.png, plan.md, or a script/style under scripts/ or styles/. Optionally limit to a line range."
}

func (t *ReadTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"path":   map[string]interface{}{"type": "string", "description": "Virtual path, e.g. /example.com/page.html or ./scripts/a.js"},
			"offset": map[string]interface{}{"type": "integer", "description": "First line to include (0-based)"},
			"limit":  map[string]interface{}{"type": "integer", "description": "Maximum number of lines to include"},
		},
		"required": []string{"path"},
	}
}

func (t *ReadTool) Execute(ctx context.Context, args map[string]interface{}) *Result {
	path, ok := argString(args, "path")
	if !ok {
		return ErrorResult("path is required")
	}
	offset := argIntPtr(args, "offset")
	limit := argIntPtr(args, "limit")

	res, err := t.VFS.Read(ctx, path, offset, limit)
	if err != nil {
		return vfsErrorResult(err)
	}

	if res.Image != nil {
		b, _ := json.Marshal(map[string]interface{}{"path": res.Path, "version": res.Version})
		return ImageResult(string(b), &ImageBlock{Base64: res.Image.Base64, MediaType: res.Image.MediaType})
	}

	b, _ := json.Marshal(map[string]interface{}{
		"content": res.Content,
		"version": res.Version,
		"lines":   res.Lines,
		"path":    res.Path,
	})
	return NewResult(string(b))
}

// vfsErrorResult converts a *vfs.Error (or any error) into a tool_result
// error payload; VFS errors are never thrown out of the loop (spec §7).
func vfsErrorResult(err error) *Result {
	if verr, ok := vfs.AsVFSError(err); ok {
		b, _ := json.Marshal(map[string]interface{}{
			"error":           string(verr.Kind),
			"message":         verr.Message,
			"expectedVersion": verr.ExpectedVersion,
			"actualVersion":   verr.ActualVersion,
		})
		return ErrorResult(string(b))
	}
	return ErrorResult(err.Error())
}
