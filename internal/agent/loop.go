// Package agent drives the tool-use dialogue with the LLM and manages the
// two-phase plan/execute lifecycle (spec §4.C).
package agent

import (
	"context"
	"fmt"
	"sync"

	"github.com/chebykinn/browser-code/internal/bus"
	"github.com/chebykinn/browser-code/internal/providers"
	"github.com/chebykinn/browser-code/internal/telemetry"
	"github.com/chebykinn/browser-code/internal/tools"
	"github.com/chebykinn/browser-code/pkg/protocol"
)

const defaultMaxTurns = 500

// Loop is the single daemon-wide Agent Loop, multiplexed across tabs by
// tabId. At most one run is active per tab at a time (spec §3 invariant
// 7); starting a new one cancels whatever was running.
type Loop struct {
	mu       sync.Mutex
	sessions map[string]*Session
	runtimes map[string]*TabRuntime
	cancels  map[string]context.CancelFunc

	bus      bus.EventPublisher
	maxTurns int
}

// NewLoop creates a Loop that broadcasts AgentEvents over pub.
func NewLoop(pub bus.EventPublisher, maxTurns int) *Loop {
	if maxTurns <= 0 {
		maxTurns = defaultMaxTurns
	}
	return &Loop{
		sessions: make(map[string]*Session),
		runtimes: make(map[string]*TabRuntime),
		cancels:  make(map[string]context.CancelFunc),
		bus:      pub,
		maxTurns: maxTurns,
	}
}

// BindTab registers (or replaces) the tool/provider bindings for a tab,
// and wires its TodoStore to emit TODOS_UPDATED. Called once a content
// script attaches and the VFS for that page exists.
func (l *Loop) BindTab(tabID string, rt *TabRuntime) {
	l.mu.Lock()
	defer l.mu.Unlock()
	rt.Todos.OnChange(func(todos []tools.Todo) {
		l.emit(tabID, protocol.EventTodosUpdated, TodosPayload{TabID: tabID, Todos: todos})
	})
	l.runtimes[tabID] = rt
	if _, ok := l.sessions[tabID]; !ok {
		l.sessions[tabID] = newSession()
	}
}

func (l *Loop) sessionFor(tabID string) *Session {
	l.mu.Lock()
	defer l.mu.Unlock()
	sess, ok := l.sessions[tabID]
	if !ok {
		sess = newSession()
		l.sessions[tabID] = sess
	}
	return sess
}

// Runtime returns the TabRuntime bound for tabID, if any — used by the
// gateway to reach the VFS directly for file-management and
// screenshot/main-world-exec RPCs that sit outside the Agent Loop proper.
func (l *Loop) Runtime(tabID string) (*TabRuntime, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	rt, ok := l.runtimes[tabID]
	return rt, ok
}

// History returns a tab's current conversation (spec §6.3 GET_HISTORY).
func (l *Loop) History(tabID string) []providers.Message {
	sess := l.sessionFor(tabID)
	_, hist, _ := sess.snapshot()
	return hist
}

// GetMode reports the current mode/todos/awaiting-approval triple for a
// tab (spec §6.3 GET_MODE).
func (l *Loop) GetMode(tabID string) (tools.Mode, []tools.Todo, bool) {
	sess := l.sessionFor(tabID)
	mode, _, awaiting := sess.snapshot()

	l.mu.Lock()
	rt := l.runtimes[tabID]
	l.mu.Unlock()
	var todos []tools.Todo
	if rt != nil {
		todos = rt.Todos.Get()
	}
	return mode, todos, awaiting
}

// SetMode sets a tab's mode directly (spec §6.3 SET_MODE), clearing any
// pending approval latch.
func (l *Loop) SetMode(tabID string, mode tools.Mode) {
	sess := l.sessionFor(tabID)
	sess.mu.Lock()
	sess.Mode = mode
	sess.AwaitingApproval = false
	sess.mu.Unlock()
	l.emit(tabID, protocol.EventModeChanged, ModeChangedPayload{TabID: tabID, Mode: mode})
}

// ClearHistory resets a tab's conversation, mode, and todos (spec §3
// lifecycles: "Conversation / Todos / Mode... cleared on CLEAR_HISTORY,
// which also resets mode to plan").
func (l *Loop) ClearHistory(tabID string) {
	l.Stop(tabID)
	sess := l.sessionFor(tabID)
	sess.mu.Lock()
	sess.History = nil
	sess.Mode = tools.ModePlan
	sess.AwaitingApproval = false
	sess.mu.Unlock()

	l.mu.Lock()
	rt := l.runtimes[tabID]
	l.mu.Unlock()
	if rt != nil {
		rt.Todos.Set(nil)
	}
	l.emit(tabID, protocol.EventModeChanged, ModeChangedPayload{TabID: tabID, Mode: tools.ModePlan})
}

// Stop cancels a tab's in-flight run, if any.
func (l *Loop) Stop(tabID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if cancel, ok := l.cancels[tabID]; ok {
		cancel()
		delete(l.cancels, tabID)
	}
}

// StartChat appends userMessage to the tab's history and starts a new
// run, first aborting whatever run was already active for this tab
// (spec §4.C.5, §3 invariant 7).
func (l *Loop) StartChat(tabID, userMessage string) error {
	l.mu.Lock()
	rt, ok := l.runtimes[tabID]
	if !ok {
		l.mu.Unlock()
		return fmt.Errorf("agent: tab %s has no bound runtime", tabID)
	}
	sess, ok := l.sessions[tabID]
	if !ok {
		sess = newSession()
		l.sessions[tabID] = sess
	}
	if cancel, ok := l.cancels[tabID]; ok {
		cancel()
	}
	runCtx, cancel := context.WithCancel(context.Background())
	l.cancels[tabID] = cancel
	l.mu.Unlock()

	sess.mu.Lock()
	if sess.AwaitingApproval {
		sess.mu.Unlock()
		cancel()
		return fmt.Errorf("agent: tab %s has a plan awaiting approval", tabID)
	}
	sess.mu.Unlock()

	go l.run(runCtx, tabID, rt, sess, userMessage)
	return nil
}

// ApprovePlan approves a tab's pending plan: switches it to execute mode,
// seeds a fresh history from the plan text and open todos, and starts a
// new run (spec §4.C.4).
func (l *Loop) ApprovePlan(ctx context.Context, tabID string) error {
	sess := l.sessionFor(tabID)
	sess.mu.Lock()
	if !sess.AwaitingApproval {
		sess.mu.Unlock()
		return fmt.Errorf("agent: tab %s has no plan awaiting approval", tabID)
	}
	sess.mu.Unlock()

	l.mu.Lock()
	rt := l.runtimes[tabID]
	l.mu.Unlock()
	if rt == nil {
		return fmt.Errorf("agent: tab %s has no bound runtime", tabID)
	}

	planText := ""
	if res, err := rt.VFS.Read(ctx, "./plan.md", nil, nil); err == nil {
		planText = res.Content
	}
	todos := rt.Todos.Get()

	sess.mu.Lock()
	sess.Mode = tools.ModeExecute
	sess.AwaitingApproval = false
	sess.History = seedHistory(planText, todos)
	sess.mu.Unlock()

	l.emit(tabID, protocol.EventModeChanged, ModeChangedPayload{TabID: tabID, Mode: tools.ModeExecute})
	return l.StartChat(tabID, "The plan above is approved. Proceed with execution.")
}

// RejectPlan rejects a tab's pending plan and starts a new plan-mode run
// asking the model to revise (spec §4.C.4).
func (l *Loop) RejectPlan(tabID, feedback string) error {
	sess := l.sessionFor(tabID)
	sess.mu.Lock()
	if !sess.AwaitingApproval {
		sess.mu.Unlock()
		return fmt.Errorf("agent: tab %s has no plan awaiting approval", tabID)
	}
	sess.AwaitingApproval = false
	sess.mu.Unlock()

	msg := "Please revise the plan based on this feedback."
	if feedback != "" {
		msg = fmt.Sprintf("Please revise the plan based on this feedback: %s", feedback)
	}
	return l.StartChat(tabID, msg)
}

func seedHistory(planText string, todos []tools.Todo) []providers.Message {
	content := "Approved plan:\n\n" + planText
	if len(todos) > 0 {
		content += "\n\nOpen todos:\n"
		for _, t := range todos {
			content += fmt.Sprintf("- [%s] %s\n", t.Status, t.Content)
		}
	}
	return []providers.Message{{Role: "user", Content: content}}
}

func (l *Loop) emit(tabID, name string, payload interface{}) {
	if l.bus == nil {
		return
	}
	l.bus.Broadcast(bus.Event{Name: name, Payload: payload})
}

func (l *Loop) emitError(tabID, kind, message string) {
	l.emit(tabID, protocol.EventAgentError, ErrorPayload{TabID: tabID, Kind: kind, Message: message})
}

// run executes the turn protocol of spec §4.C.1 for one chat message.
func (l *Loop) run(ctx context.Context, tabID string, rt *TabRuntime, sess *Session, userMessage string) {
	defer func() {
		l.mu.Lock()
		delete(l.cancels, tabID)
		l.mu.Unlock()
	}()

	sess.append(providers.Message{Role: "user", Content: userMessage})

	mode, _, _ := sess.snapshot()
	runCtx, runSpan := telemetry.StartRunSpan(ctx, tabID, string(mode))
	var runErr error
	defer func() { telemetry.EndSpan(runSpan, runErr) }()

	for turn := 1; turn <= l.maxTurns; turn++ {
		if ctx.Err() != nil {
			l.emitError(tabID, protocol.ErrKindStopped, "Stopped by user")
			return
		}

		mode, history, _ := sess.snapshot()
		msgs := append([]providers.Message{{Role: "system", Content: systemPromptForMode(mode)}}, history...)
		toolDefs := tools.ToolDefsForMode(mode, rt.Registry)

		req := providers.ChatRequest{
			Messages: msgs,
			Tools:    toolDefs,
			Model:    rt.Model,
			Options: map[string]interface{}{
				providers.OptMaxTokens:   rt.MaxTokens,
				providers.OptTemperature: rt.Temperature,
			},
		}
		if rt.ThinkingLevel != "" && rt.ThinkingLevel != "off" {
			if tc, ok := rt.Provider.(providers.ThinkingCapable); ok && tc.SupportsThinking() {
				req.Options[providers.OptThinkingLevel] = rt.ThinkingLevel
			}
		}

		llmCtx, llmSpan := telemetry.StartLLMSpan(runCtx, rt.Provider.Name(), rt.Model, turn)
		resp, err := rt.Provider.Chat(llmCtx, req)
		telemetry.EndSpan(llmSpan, err)
		if err != nil {
			runErr = err
			if ctx.Err() != nil {
				l.emitError(tabID, protocol.ErrKindStopped, "Stopped by user")
			} else {
				l.emitError(tabID, protocol.ErrKindAPIError, err.Error())
			}
			return
		}

		sess.append(providers.Message{
			Role:                "assistant",
			Content:             resp.Content,
			ToolCalls:           resp.ToolCalls,
			RawAssistantContent: resp.RawAssistantContent,
		})

		if text := SanitizeAssistantContent(resp.Content); text != "" && !IsSilentReply(text) {
			l.emit(tabID, protocol.EventAgentResponse, AssistantMessagePayload{TabID: tabID, Content: text})
		}

		if len(resp.ToolCalls) == 0 {
			if mode == tools.ModePlan {
				sess.mu.Lock()
				sess.AwaitingApproval = true
				sess.mu.Unlock()
			}
			l.emit(tabID, protocol.EventAgentDone, DonePayload{TabID: tabID})
			return
		}

		for _, tc := range resp.ToolCalls {
			if ctx.Err() != nil {
				l.emitError(tabID, protocol.ErrKindStopped, "Stopped by user")
				return
			}
			l.emit(tabID, protocol.EventToolCall, ToolCallPayload{TabID: tabID, ID: tc.ID, Name: tc.Name, Args: tc.Arguments})

			toolCtx, toolSpan := telemetry.StartToolSpan(runCtx, tc.Name, tabID)
			result := l.dispatchTool(toolCtx, mode, rt, tc)
			telemetry.EndSpan(toolSpan, result.Err)

			forLLM := tools.Truncate(result.ForLLM)
			l.emit(tabID, protocol.EventToolResult, ToolResultPayload{TabID: tabID, ID: tc.ID, Result: forLLM, IsError: result.IsError})

			toolMsg := providers.Message{Role: "tool", Content: forLLM, ToolCallID: tc.ID}
			if result.Image != nil {
				toolMsg.Images = []providers.ImageContent{{MimeType: result.Image.MediaType, Data: result.Image.Base64}}
			}
			sess.append(toolMsg)
		}

		if resp.FinishReason != "tool_calls" {
			if mode == tools.ModePlan {
				sess.mu.Lock()
				sess.AwaitingApproval = true
				sess.mu.Unlock()
			}
			l.emit(tabID, protocol.EventAgentDone, DonePayload{TabID: tabID})
			return
		}
	}

	runErr = fmt.Errorf("max turns exhausted")
	l.emitError(tabID, protocol.ErrKindMaxTurns, "The agent reached its turn limit without finishing.")
}

// dispatchTool enforces the mode gate (spec §4.C.4) before handing off to
// the tab's Registry; a disallowed call becomes a tool_result error
// rather than a run-terminating failure (spec §4.C.5).
func (l *Loop) dispatchTool(ctx context.Context, mode tools.Mode, rt *TabRuntime, tc providers.ToolCall) *tools.Result {
	if !tools.IsAllowed(mode, tc.Name) {
		return tools.ErrorResult(fmt.Sprintf("tool %q is not available in %s mode", tc.Name, mode))
	}
	if tc.Name == "Write" {
		path, _ := tc.Arguments["path"].(string)
		if !tools.WritePathAllowed(mode, path) {
			return tools.ErrorResult("in plan mode, Write is restricted to ./plan.md")
		}
	}
	return rt.Registry.Execute(ctx, tc.Name, tc.Arguments)
}
