// Package bus is the background context's internal publish/subscribe hub:
// every AgentEvent the Loop emits and every storage-change notification the
// store watcher reports funnels through here on its way to the gateway's
// WebSocket fabric (spec §4.D).
package bus

// Event is a server-side event broadcast to WebSocket clients.
type Event struct {
	Name    string      `json:"name"`    // protocol.Event* constant
	Payload interface{} `json:"payload,omitempty"`
}

// EventHandler handles a broadcast event.
type EventHandler func(Event)

// EventPublisher abstracts event broadcast + subscription so the agent
// loop doesn't depend on the concrete gateway client registry.
type EventPublisher interface {
	Subscribe(id string, handler EventHandler)
	Unsubscribe(id string)
	Broadcast(event Event)
}
