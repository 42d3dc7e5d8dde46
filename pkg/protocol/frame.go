package protocol

import "encoding/json"

// ProtocolVersion is bumped whenever the wire shapes in this package
// change incompatibly.
const ProtocolVersion = 1

// RequestFrame is a one-shot UI→background request (spec §6.3). TabID
// scopes the request to one tab's Loop/VFS; some methods (health,
// connect) leave it empty.
type RequestFrame struct {
	ID     string          `json:"id"`
	Method string          `json:"method"`
	TabID  string          `json:"tabId,omitempty"`
	Params json.RawMessage `json:"params,omitempty"`
}

// ResponseFrame answers a RequestFrame by ID.
type ResponseFrame struct {
	ID     string      `json:"id"`
	Result interface{} `json:"result,omitempty"`
	Error  *ErrorFrame `json:"error,omitempty"`
}

// ErrorFrame carries one of the Error kind constants (events.go) plus a
// human-readable message.
type ErrorFrame struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// EventFrame is a background→UI push (spec §4.D.1 streaming, §6.3).
type EventFrame struct {
	Name    string      `json:"name"`
	Payload interface{} `json:"payload,omitempty"`
}

// NewEvent builds an EventFrame, the shape forwarded to clients for every
// bus.Event the gateway relays.
func NewEvent(name string, payload interface{}) *EventFrame {
	return &EventFrame{Name: name, Payload: payload}
}
