package tools

import (
	"context"
	"encoding/json"
	"sync"
)

// TodoStatus is a Todo's lifecycle state.
type TodoStatus string

const (
	TodoPending    TodoStatus = "pending"
	TodoInProgress TodoStatus = "in_progress"
	TodoCompleted  TodoStatus = "completed"
)

// Todo is one per-tab checklist item (spec §3 Todo entity).
type Todo struct {
	ID      string     `json:"id"`
	Content string     `json:"content"`
	Status  TodoStatus `json:"status"`
}

// TodoStore holds one tab's todo list. TodoWrite replaces the list
// wholesale (spec §4.C.2); onChange fires so the Loop can emit
// onTodosUpdated/TODOS_UPDATED without TodoStore depending on agent or
// bus types.
type TodoStore struct {
	mu       sync.Mutex
	todos    []Todo
	onChange func([]Todo)
}

func NewTodoStore() *TodoStore {
	return &TodoStore{}
}

func (s *TodoStore) Get() []Todo {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Todo, len(s.todos))
	copy(out, s.todos)
	return out
}

func (s *TodoStore) Set(todos []Todo) {
	s.mu.Lock()
	s.todos = todos
	cb := s.onChange
	s.mu.Unlock()
	if cb != nil {
		cb(todos)
	}
}

func (s *TodoStore) OnChange(fn func([]Todo)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onChange = fn
}

// TodoReadTool implements spec §4.C.2 TodoRead: returns the current
// per-tab todo list.
type TodoReadTool struct {
	Store *TodoStore
}

func (t *TodoReadTool) Name() string        { return "TodoRead" }
func (t *TodoReadTool) Description() string { return "Return the current todo list for this tab." }
func (t *TodoReadTool) Parameters() map[string]interface{} {
	return map[string]interface{}{"type": "object", "properties": map[string]interface{}{}}
}

func (t *TodoReadTool) Execute(ctx context.Context, args map[string]interface{}) *Result {
	b, _ := json.Marshal(map[string]interface{}{"todos": t.Store.Get()})
	return NewResult(string(b))
}

// TodoWriteTool implements spec §4.C.2 TodoWrite: replaces the entire
// list and emits onTodosUpdated via TodoStore's onChange hook.
type TodoWriteTool struct {
	Store *TodoStore
}

func (t *TodoWriteTool) Name() string { return "TodoWrite" }
func (t *TodoWriteTool) Description() string {
	return "Replace the entire todo list for this tab."
}
func (t *TodoWriteTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"todos": map[string]interface{}{
				"type": "array",
				"items": map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"id":      map[string]interface{}{"type": "string"},
						"content": map[string]interface{}{"type": "string"},
						"status":  map[string]interface{}{"type": "string", "enum": []string{"pending", "in_progress", "completed"}},
					},
					"required": []string{"id", "content", "status"},
				},
			},
		},
		"required": []string{"todos"},
	}
}

func (t *TodoWriteTool) Execute(ctx context.Context, args map[string]interface{}) *Result {
	raw, ok := args["todos"]
	if !ok {
		return ErrorResult("todos is required")
	}
	encoded, err := json.Marshal(raw)
	if err != nil {
		return ErrorResult("invalid todos: " + err.Error())
	}
	var todos []Todo
	if err := json.Unmarshal(encoded, &todos); err != nil {
		return ErrorResult("invalid todos: " + err.Error())
	}
	t.Store.Set(todos)
	b, _ := json.Marshal(map[string]interface{}{"todos": todos})
	return NewResult(string(b))
}
