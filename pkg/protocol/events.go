// Package protocol defines the wire-level method and event name constants
// shared by the gateway's WebSocket fabric and its clients (the side-panel
// UI and the CLI).
package protocol

// Event names streamed from background to UI over the gateway's WebSocket
// connection; each event payload names the tab it belongs to (spec §6.3,
// §4.D.1).
const (
	EventAgentResponse = "AGENT_RESPONSE"
	EventToolCall      = "TOOL_CALL"
	EventToolResult    = "TOOL_RESULT"
	EventTodosUpdated  = "TODOS_UPDATED"
	EventModeChanged   = "MODE_CHANGED"
	EventAgentDone     = "AGENT_DONE"
	EventAgentError    = "AGENT_ERROR"

	// EventStorageChanged is the compatibility relay (§4.D.4): the
	// background posts this to every connected UI port whenever its store
	// watcher observes a write to the vfs store, whether the daemon itself
	// or a second process made it.
	EventStorageChanged = "VFS_STORAGE_CHANGED"

	// EventHealth carries gateway health-check payloads; not part of the
	// UI protocol proper but multiplexed over the same broadcast path.
	EventHealth = "health"
)

// Agent event subtypes (AgentEvent.Type), mirrored into the
// EventAgentResponse/EventToolCall/EventToolResult/EventAgentDone/
// EventAgentError payloads.
const (
	AgentEventAssistantMessage = "assistant_message"
	AgentEventToolCall         = "tool_call"
	AgentEventToolResult       = "tool_result"
	AgentEventTodosUpdated     = "todos_updated"
	AgentEventDone             = "done"
	AgentEventError            = "error"
)

// Error kinds surfaced on EventAgentError (spec §7).
const (
	ErrKindStopped        = "stopped"
	ErrKindAPIError       = "api_error"
	ErrKindMaxTurns       = "max_turns"
	ErrKindNoReceiver     = "no_receiver"
	ErrKindPrivilegedPage = "privileged_page"
	ErrKindTimeout        = "timeout"
)
