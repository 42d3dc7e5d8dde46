package vfs

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

// ConsoleEntry is one captured console line.
type ConsoleEntry struct {
	Level     string
	Timestamp time.Time
	Message   string
}

// ConsoleBuffer is a per-page ring of up to maxConsoleEntries entries;
// its version equals the total entry count ever appended (not the
// current buffer length), so a version read right after a drop still
// reflects how many lines have been observed.
type ConsoleBuffer struct {
	mu      sync.Mutex
	entries []ConsoleEntry
	total   int
}

func NewConsoleBuffer() *ConsoleBuffer {
	return &ConsoleBuffer{}
}

func (c *ConsoleBuffer) Append(level, message string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = append(c.entries, ConsoleEntry{Level: level, Timestamp: time.Now(), Message: message})
	c.total++
	if len(c.entries) > maxConsoleEntries {
		c.entries = c.entries[len(c.entries)-maxConsoleEntries:]
	}
}

// Read returns the formatted console log and its version (= entry count).
func (c *ConsoleBuffer) Read() (string, int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var b strings.Builder
	for _, e := range c.entries {
		fmt.Fprintf(&b, "[%s] %s %s\n", e.Timestamp.Format(time.RFC3339), strings.ToUpper(e.Level), e.Message)
	}
	return strings.TrimRight(b.String(), "\n"), c.total
}
