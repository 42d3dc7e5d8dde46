package gateway

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/chebykinn/browser-code/internal/tools"
	"github.com/chebykinn/browser-code/internal/vfs"
	"github.com/chebykinn/browser-code/pkg/protocol"
)

// MethodHandler answers one RequestFrame, returning the RPC result or an
// error that gets wrapped into a ResponseFrame.Error.
type MethodHandler func(ctx context.Context, c *Client, req protocol.RequestFrame) (interface{}, error)

// MethodRouter dispatches RequestFrame.Method to a registered handler
// (spec §6.3's selected UI↔background requests).
type MethodRouter struct {
	server   *Server
	handlers map[string]MethodHandler
}

// NewMethodRouter builds the router and registers every built-in method.
func NewMethodRouter(s *Server) *MethodRouter {
	r := &MethodRouter{server: s, handlers: make(map[string]MethodHandler)}
	r.handlers[protocol.MethodConnect] = r.handleConnect
	r.handlers[protocol.MethodHealth] = r.handleHealth

	r.handlers[protocol.MethodChatMessage] = r.handleChatMessage
	r.handlers[protocol.MethodStopAgent] = r.handleStopAgent
	r.handlers[protocol.MethodClearHistory] = r.handleClearHistory
	r.handlers[protocol.MethodGetHistory] = r.handleGetHistory

	r.handlers[protocol.MethodSetMode] = r.handleSetMode
	r.handlers[protocol.MethodGetMode] = r.handleGetMode
	r.handlers[protocol.MethodApprovePlan] = r.handleApprovePlan
	r.handlers[protocol.MethodRejectPlan] = r.handleRejectPlan

	r.handlers[protocol.MethodGetVFSFiles] = r.handleGetVFSFiles
	r.handlers[protocol.MethodDeleteVFSFile] = r.handleDeleteVFSFile
	r.handlers[protocol.MethodToggleVFSFileEnabled] = r.handleToggleVFSFileEnabled
	r.handlers[protocol.MethodSetAllVFSFilesEnabled] = r.handleSetAllVFSFilesEnabled

	r.handlers[protocol.MethodCaptureScreenshot] = r.handleCaptureScreenshot
	r.handlers[protocol.MethodExecuteInMainWorld] = r.handleExecuteInMainWorld
	return r
}

// Handle dispatches one request to its registered handler.
func (r *MethodRouter) Handle(ctx context.Context, c *Client, req protocol.RequestFrame) protocol.ResponseFrame {
	h, ok := r.handlers[req.Method]
	if !ok {
		return protocol.ResponseFrame{ID: req.ID, Error: &protocol.ErrorFrame{Kind: "unknown_method", Message: req.Method}}
	}
	result, err := h(ctx, c, req)
	if err != nil {
		kind := protocol.ErrKindTimeout
		if verr, ok := vfs.AsVFSError(err); ok {
			kind = string(verr.Kind)
		}
		return protocol.ResponseFrame{ID: req.ID, Error: &protocol.ErrorFrame{Kind: kind, Message: err.Error()}}
	}
	return protocol.ResponseFrame{ID: req.ID, Result: result}
}

func (r *MethodRouter) handleConnect(ctx context.Context, c *Client, req protocol.RequestFrame) (interface{}, error) {
	return map[string]interface{}{"clientId": c.id, "protocolVersion": protocol.ProtocolVersion}, nil
}

func (r *MethodRouter) handleHealth(ctx context.Context, c *Client, req protocol.RequestFrame) (interface{}, error) {
	return map[string]interface{}{"status": "ok"}, nil
}

type chatMessageParams struct {
	Content string `json:"content"`
}

func (r *MethodRouter) handleChatMessage(ctx context.Context, c *Client, req protocol.RequestFrame) (interface{}, error) {
	var p chatMessageParams
	if err := json.Unmarshal(req.Params, &p); err != nil {
		return nil, err
	}
	if err := r.server.loop.StartChat(req.TabID, p.Content); err != nil {
		return nil, err
	}
	return map[string]interface{}{"started": true}, nil
}

func (r *MethodRouter) handleStopAgent(ctx context.Context, c *Client, req protocol.RequestFrame) (interface{}, error) {
	r.server.loop.Stop(req.TabID)
	return map[string]interface{}{"stopped": true}, nil
}

func (r *MethodRouter) handleClearHistory(ctx context.Context, c *Client, req protocol.RequestFrame) (interface{}, error) {
	r.server.loop.ClearHistory(req.TabID)
	return map[string]interface{}{"cleared": true}, nil
}

func (r *MethodRouter) handleGetHistory(ctx context.Context, c *Client, req protocol.RequestFrame) (interface{}, error) {
	return map[string]interface{}{"messages": r.server.loop.History(req.TabID)}, nil
}

type setModeParams struct {
	Mode string `json:"mode"`
}

func (r *MethodRouter) handleSetMode(ctx context.Context, c *Client, req protocol.RequestFrame) (interface{}, error) {
	var p setModeParams
	if err := json.Unmarshal(req.Params, &p); err != nil {
		return nil, err
	}
	r.server.loop.SetMode(req.TabID, tools.Mode(p.Mode))
	return map[string]interface{}{"mode": p.Mode}, nil
}

func (r *MethodRouter) handleGetMode(ctx context.Context, c *Client, req protocol.RequestFrame) (interface{}, error) {
	mode, todos, awaiting := r.server.loop.GetMode(req.TabID)
	return map[string]interface{}{"mode": mode, "todos": todos, "awaitingApproval": awaiting}, nil
}

func (r *MethodRouter) handleApprovePlan(ctx context.Context, c *Client, req protocol.RequestFrame) (interface{}, error) {
	if err := r.server.loop.ApprovePlan(ctx, req.TabID); err != nil {
		return nil, err
	}
	return map[string]interface{}{"approved": true}, nil
}

type rejectPlanParams struct {
	Feedback string `json:"feedback"`
}

func (r *MethodRouter) handleRejectPlan(ctx context.Context, c *Client, req protocol.RequestFrame) (interface{}, error) {
	var p rejectPlanParams
	_ = json.Unmarshal(req.Params, &p)
	if err := r.server.loop.RejectPlan(req.TabID, p.Feedback); err != nil {
		return nil, err
	}
	return map[string]interface{}{"rejected": true}, nil
}

func (r *MethodRouter) runtimeFor(req protocol.RequestFrame) (*vfs.VFS, error) {
	rt, ok := r.server.loop.Runtime(req.TabID)
	if !ok {
		return nil, fmt.Errorf("tab %s has no bound runtime", req.TabID)
	}
	return rt.VFS, nil
}

func (r *MethodRouter) handleGetVFSFiles(ctx context.Context, c *Client, req protocol.RequestFrame) (interface{}, error) {
	v, err := r.runtimeFor(req)
	if err != nil {
		return nil, err
	}
	files, err := v.ListFiles(ctx)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{"files": files}, nil
}

type vfsFileParams struct {
	Kind    string `json:"kind"`
	Domain  string `json:"domain"`
	URLPath string `json:"urlPath"`
	Name    string `json:"name"`
}

func parseFileKind(s string) (vfs.FileKind, error) {
	switch s {
	case "script":
		return vfs.KindScript, nil
	case "style":
		return vfs.KindStyle, nil
	default:
		return vfs.KindUnknown, fmt.Errorf("unknown file kind %q", s)
	}
}

func (r *MethodRouter) handleDeleteVFSFile(ctx context.Context, c *Client, req protocol.RequestFrame) (interface{}, error) {
	var p vfsFileParams
	if err := json.Unmarshal(req.Params, &p); err != nil {
		return nil, err
	}
	kind, err := parseFileKind(p.Kind)
	if err != nil {
		return nil, err
	}
	v, err := r.runtimeFor(req)
	if err != nil {
		return nil, err
	}
	deleted, err := v.DeleteFile(ctx, kind, p.Domain, p.URLPath, p.Name)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{"deleted": deleted}, nil
}

func (r *MethodRouter) handleToggleVFSFileEnabled(ctx context.Context, c *Client, req protocol.RequestFrame) (interface{}, error) {
	var p vfsFileParams
	if err := json.Unmarshal(req.Params, &p); err != nil {
		return nil, err
	}
	kind, err := parseFileKind(p.Kind)
	if err != nil {
		return nil, err
	}
	v, err := r.runtimeFor(req)
	if err != nil {
		return nil, err
	}
	enabled, err := v.ToggleEnabled(ctx, kind, p.Domain, p.URLPath, p.Name)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{"enabled": enabled}, nil
}

type setAllEnabledParams struct {
	Enabled bool `json:"enabled"`
}

func (r *MethodRouter) handleSetAllVFSFilesEnabled(ctx context.Context, c *Client, req protocol.RequestFrame) (interface{}, error) {
	var p setAllEnabledParams
	if err := json.Unmarshal(req.Params, &p); err != nil {
		return nil, err
	}
	v, err := r.runtimeFor(req)
	if err != nil {
		return nil, err
	}
	if err := v.SetAllEnabled(ctx, p.Enabled); err != nil {
		return nil, err
	}
	return map[string]interface{}{"enabled": p.Enabled}, nil
}

func (r *MethodRouter) handleCaptureScreenshot(ctx context.Context, c *Client, req protocol.RequestFrame) (interface{}, error) {
	v, err := r.runtimeFor(req)
	if err != nil {
		return nil, err
	}
	if _, err := v.CaptureScreenshot(ctx); err != nil {
		return nil, err
	}
	res, err := v.Read(ctx, "./screenshot.png", nil, nil)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{"path": res.Path, "version": res.Version, "dataUrl": res.Content}, nil
}

type executeInMainWorldParams struct {
	Code string `json:"code"`
}

func (r *MethodRouter) handleExecuteInMainWorld(ctx context.Context, c *Client, req protocol.RequestFrame) (interface{}, error) {
	var p executeInMainWorldParams
	if err := json.Unmarshal(req.Params, &p); err != nil {
		return nil, err
	}
	rt, ok := r.server.loop.Runtime(req.TabID)
	if !ok {
		return nil, fmt.Errorf("tab %s has no bound runtime", req.TabID)
	}
	result := rt.Registry.Execute(ctx, "Bash", map[string]interface{}{"code": p.Code})
	return map[string]interface{}{"success": !result.IsError, "result": result.ForLLM}, nil
}
