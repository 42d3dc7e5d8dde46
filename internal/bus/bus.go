package bus

import "sync"

// Bus is the concrete in-memory EventPublisher: a fan-out registry keyed
// by subscriber id (one entry per connected gateway client).
type Bus struct {
	mu       sync.RWMutex
	handlers map[string]EventHandler
}

// New creates an empty Bus.
func New() *Bus {
	return &Bus{handlers: make(map[string]EventHandler)}
}

func (b *Bus) Subscribe(id string, handler EventHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[id] = handler
}

func (b *Bus) Unsubscribe(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.handlers, id)
}

// Broadcast fans an event out to every subscriber. Handlers run
// synchronously on the calling goroutine's behalf but must not block;
// the gateway's per-client handler hands off to that client's send
// channel rather than writing directly.
func (b *Bus) Broadcast(event Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, h := range b.handlers {
		h(event)
	}
}

var _ EventPublisher = (*Bus)(nil)
