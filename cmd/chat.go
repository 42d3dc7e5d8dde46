package cmd

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"

	"github.com/chebykinn/browser-code/internal/config"
	"github.com/chebykinn/browser-code/pkg/protocol"
)

func chatCmd() *cobra.Command {
	var (
		message string
		tabID   string
	)

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Chat with the running daemon's agent over its WebSocket gateway",
		Long: `Chat with browsercoded's agent loop via the gateway.

Examples:
  browsercoded chat                           # interactive REPL
  browsercoded chat -m "what's on this page?" # one-shot message`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChat(tabID, message)
		},
	}

	cmd.Flags().StringVarP(&message, "message", "m", "", "one-shot message (omit for interactive mode)")
	cmd.Flags().StringVarP(&tabID, "tab", "t", defaultTabID, "tab id to address")
	return cmd
}

func runChat(tabID, message string) error {
	cfg, err := config.Load(resolveConfigPath())
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	host := cfg.Gateway.Host
	if host == "" || host == "0.0.0.0" {
		host = "127.0.0.1"
	}
	wsURL := fmt.Sprintf("ws://%s:%d/ws", host, cfg.Gateway.Port)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		return fmt.Errorf("connect to gateway at %s (is `browsercoded serve` running?): %w", wsURL, err)
	}
	defer conn.Close()

	if err := wsRoundTrip(conn, protocol.MethodConnect, "", nil); err != nil {
		return fmt.Errorf("connect handshake: %w", err)
	}

	if message != "" {
		return sendAndWait(conn, tabID, message)
	}

	fmt.Fprintf(os.Stderr, "browser-code chat (tab: %s)\n", tabID)
	fmt.Fprintln(os.Stderr, "Type \"exit\" to quit.")
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Fprint(os.Stderr, "> ")
		if !scanner.Scan() {
			return nil
		}
		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}
		if input == "exit" || input == "quit" {
			return nil
		}
		if err := sendAndWait(conn, tabID, input); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		}
	}
}

// sendAndWait issues a CHAT_MESSAGE request and streams EventFrames until
// the agent loop reports done or error for this tab.
func sendAndWait(conn *websocket.Conn, tabID, content string) error {
	params, _ := json.Marshal(map[string]string{"content": content})
	if err := wsRoundTrip(conn, protocol.MethodChatMessage, tabID, params); err != nil {
		return err
	}

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("read: %w", err)
		}
		var probe struct {
			Name string `json:"name"`
		}
		if err := json.Unmarshal(raw, &probe); err != nil || probe.Name == "" {
			continue // not an event frame (e.g. a stray response)
		}
		var evt protocol.EventFrame
		if err := json.Unmarshal(raw, &evt); err != nil {
			continue
		}
		done, evtErr := printAgentEvent(evt)
		if done {
			return evtErr
		}
	}
}

// printAgentEvent renders one background→UI event to the terminal,
// reporting whether the agent turn for this tab has finished.
func printAgentEvent(evt protocol.EventFrame) (done bool, err error) {
	payload, _ := evt.Payload.(map[string]interface{})

	switch evt.Name {
	case protocol.EventAgentResponse:
		if content, ok := payload["content"].(string); ok {
			fmt.Print(content)
		}
	case protocol.EventToolCall:
		name, _ := payload["name"].(string)
		fmt.Fprintf(os.Stderr, "\n  [tool] %s\n", name)
	case protocol.EventToolResult:
		name, _ := payload["id"].(string)
		if isErr, _ := payload["isError"].(bool); isErr {
			fmt.Fprintf(os.Stderr, "  [tool] %s -> error\n", name)
		}
	case protocol.EventTodosUpdated:
		fmt.Fprintln(os.Stderr, "  [todos updated]")
	case protocol.EventModeChanged:
		mode, _ := payload["mode"].(string)
		fmt.Fprintf(os.Stderr, "  [mode: %s]\n", mode)
	case protocol.EventAgentDone:
		fmt.Println()
		return true, nil
	case protocol.EventAgentError:
		kind, _ := payload["kind"].(string)
		msg, _ := payload["message"].(string)
		fmt.Println()
		return true, fmt.Errorf("%s: %s", kind, msg)
	}
	return false, nil
}

// wsRoundTrip sends a RequestFrame and waits for its matching
// ResponseFrame, discarding any EventFrames interleaved ahead of it.
func wsRoundTrip(conn *websocket.Conn, method, tabID string, params json.RawMessage) error {
	reqID := uuid.NewString()[:8]
	req := protocol.RequestFrame{ID: reqID, Method: method, TabID: tabID, Params: params}
	if err := conn.WriteJSON(req); err != nil {
		return fmt.Errorf("send %s: %w", method, err)
	}

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("read %s response: %w", method, err)
		}
		var probe struct {
			ID   string `json:"id"`
			Name string `json:"name"`
		}
		if err := json.Unmarshal(raw, &probe); err != nil {
			continue
		}
		if probe.Name != "" || probe.ID != reqID {
			continue // event frame, or a response for a different in-flight request
		}
		var resp protocol.ResponseFrame
		if err := json.Unmarshal(raw, &resp); err != nil {
			return fmt.Errorf("decode %s response: %w", method, err)
		}
		if resp.Error != nil {
			return fmt.Errorf("%s rejected: %s (%s)", method, resp.Error.Message, resp.Error.Kind)
		}
		return nil
	}
}
