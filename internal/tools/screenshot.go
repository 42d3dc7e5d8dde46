package tools

import (
	"context"
	"encoding/json"

	"github.com/chebykinn/browser-code/internal/vfs"
)

// ScreenshotTool implements spec §4.A.2 Screenshot: capture a fresh
// screenshot.png for the active page, then return it the same way Read
// does (a [text, image] tool_result pair, spec §4.C.3).
type ScreenshotTool struct {
	VFS *vfs.VFS
}

func (t *ScreenshotTool) Name() string { return "Screenshot" }

func (t *ScreenshotTool) Description() string {
	return "Capture a fresh screenshot of the active page and return it as an image."
}

func (t *ScreenshotTool) Parameters() map[string]interface{} {
	return map[string]interface{}{"type": "object", "properties": map[string]interface{}{}}
}

func (t *ScreenshotTool) Execute(ctx context.Context, args map[string]interface{}) *Result {
	if _, err := t.VFS.CaptureScreenshot(ctx); err != nil {
		return vfsErrorResult(err)
	}
	res, err := t.VFS.Read(ctx, "./screenshot.png", nil, nil)
	if err != nil {
		return vfsErrorResult(err)
	}
	b, _ := json.Marshal(map[string]interface{}{"path": res.Path, "version": res.Version})
	return ImageResult(string(b), &ImageBlock{Base64: res.Image.Base64, MediaType: res.Image.MediaType})
}
