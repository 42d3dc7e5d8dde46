package cmd

import (
	"io"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chebykinn/browser-code/pkg/protocol"
)

func TestResolveConfigPathPrecedence(t *testing.T) {
	origFile, origEnv := cfgFile, os.Getenv("BROWSERCODE_CONFIG")
	t.Cleanup(func() {
		cfgFile = origFile
		os.Setenv("BROWSERCODE_CONFIG", origEnv)
	})

	cfgFile = ""
	os.Unsetenv("BROWSERCODE_CONFIG")
	assert.Equal(t, "config.json5", resolveConfigPath())

	os.Setenv("BROWSERCODE_CONFIG", "/etc/browsercode/config.json5")
	assert.Equal(t, "/etc/browsercode/config.json5", resolveConfigPath())

	cfgFile = "/custom/path.json5"
	assert.Equal(t, "/custom/path.json5", resolveConfigPath(), "--config flag wins over the env var")
}

func TestDriverLabelDefaultsToSqlite(t *testing.T) {
	assert.Equal(t, "sqlite (default)", driverLabel(""))
	assert.Equal(t, "postgres", driverLabel("postgres"))
}

func TestCheckProviderMasksLongKeys(t *testing.T) {
	// checkProvider writes straight to stdout, so capture it and check
	// that a long key keeps only its first and last four characters.
	capture := func(key string) string {
		r, w, err := os.Pipe()
		require.NoError(t, err)
		orig := os.Stdout
		os.Stdout = w
		checkProvider("Anthropic", key)
		os.Stdout = orig
		require.NoError(t, w.Close())
		out, err := io.ReadAll(r)
		require.NoError(t, err)
		return string(out)
	}

	assert.Contains(t, capture(""), "(not configured)")
	long := capture("sk-ant-1234567890abcdef")
	assert.Contains(t, long, "sk-a"+strings.Repeat("*", 15)+"cdef")
	assert.NotContains(t, long, "1234567890")
	assert.Contains(t, capture("short"), "short")
}

func TestPrintAgentEventAgentDoneReportsDone(t *testing.T) {
	done, err := printAgentEvent(protocol.EventFrame{Name: protocol.EventAgentDone})
	require.NoError(t, err)
	assert.True(t, done)
}

func TestPrintAgentEventAgentErrorReportsDoneWithError(t *testing.T) {
	evt := protocol.EventFrame{
		Name:    protocol.EventAgentError,
		Payload: map[string]interface{}{"kind": "tool_error", "message": "boom"},
	}
	done, err := printAgentEvent(evt)
	assert.True(t, done)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "tool_error")
	assert.Contains(t, err.Error(), "boom")
}

func TestPrintAgentEventIntermediateEventsAreNotDone(t *testing.T) {
	for _, evt := range []protocol.EventFrame{
		{Name: protocol.EventAgentResponse, Payload: map[string]interface{}{"content": "hi"}},
		{Name: protocol.EventToolCall, Payload: map[string]interface{}{"name": "Read"}},
		{Name: protocol.EventToolResult, Payload: map[string]interface{}{"id": "1", "isError": false}},
		{Name: protocol.EventTodosUpdated},
		{Name: protocol.EventModeChanged, Payload: map[string]interface{}{"mode": "execute"}},
	} {
		done, err := printAgentEvent(evt)
		require.NoError(t, err)
		assert.False(t, done, "event %s must not end the chat loop", evt.Name)
	}
}
