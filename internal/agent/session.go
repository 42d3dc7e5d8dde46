package agent

import (
	"sync"

	"github.com/chebykinn/browser-code/internal/providers"
	"github.com/chebykinn/browser-code/internal/tools"
	"github.com/chebykinn/browser-code/internal/vfs"
)

// Session is the per-tab conversation state (spec §3: Conversation, Mode,
// Todo, the "awaiting approval" latch). Created on first chat message,
// cleared by ClearHistory. Session-scoped like the VFS's in-memory
// screenshot/plan slots — it does not survive a daemon restart.
type Session struct {
	mu               sync.Mutex
	Mode             tools.Mode
	History          []providers.Message
	AwaitingApproval bool
}

func newSession() *Session {
	return &Session{Mode: tools.ModePlan}
}

func (s *Session) snapshot() (tools.Mode, []providers.Message, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	hist := make([]providers.Message, len(s.History))
	copy(hist, s.History)
	return s.Mode, hist, s.AwaitingApproval
}

func (s *Session) append(msg providers.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.History = append(s.History, msg)
}

// TabRuntime holds the per-tab dependencies bound once when a tab attaches
// (spec §4.C.2: "page is chosen by tabId bound at run start"). One
// Registry per tab, never shared, since every tool in it closes over this
// tab's VFS.
type TabRuntime struct {
	VFS      *vfs.VFS
	Registry *tools.Registry
	Todos    *tools.TodoStore

	Provider      providers.Provider
	Model         string
	MaxTokens     int
	Temperature   float64
	ThinkingLevel string // "off", "low", "medium", "high"
}
