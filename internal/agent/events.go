package agent

import "github.com/chebykinn/browser-code/internal/tools"

// Event payloads broadcast over bus.EventPublisher under the
// protocol.Event* names. Every payload carries TabID so a UI connected to
// more than one tab's channel (or the gateway's storage-change relay) can
// attribute the event without a side-channel lookup.

type AssistantMessagePayload struct {
	TabID   string `json:"tabId"`
	Content string `json:"content"`
}

type ToolCallPayload struct {
	TabID string                 `json:"tabId"`
	ID    string                 `json:"id"`
	Name  string                 `json:"name"`
	Args  map[string]interface{} `json:"args"`
}

type ToolResultPayload struct {
	TabID   string `json:"tabId"`
	ID      string `json:"id"`
	Result  string `json:"result"`
	IsError bool   `json:"isError"`
}

type TodosPayload struct {
	TabID string       `json:"tabId"`
	Todos []tools.Todo `json:"todos"`
}

type ModeChangedPayload struct {
	TabID string    `json:"tabId"`
	Mode  tools.Mode `json:"mode"`
}

type DonePayload struct {
	TabID string `json:"tabId"`
}

type ErrorPayload struct {
	TabID   string `json:"tabId"`
	Kind    string `json:"kind"`
	Message string `json:"message"`
}
