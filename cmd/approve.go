package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/charmbracelet/huh"
	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"

	"github.com/chebykinn/browser-code/internal/config"
	"github.com/chebykinn/browser-code/pkg/protocol"
)

func approveCmd() *cobra.Command {
	var tabID string
	cmd := &cobra.Command{
		Use:   "approve",
		Short: "Review a pending Plan and approve or reject it",
		Long:  "Fetches the tab's current plan/todo list from the running daemon and prompts to approve or reject it, mirroring the side panel's Approve/Reject buttons (spec §3 Plan/Execute lifecycle).",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runApprove(tabID)
		},
	}
	cmd.Flags().StringVarP(&tabID, "tab", "t", defaultTabID, "tab id to address")
	return cmd
}

type getModeResult struct {
	Mode             string `json:"mode"`
	AwaitingApproval bool   `json:"awaitingApproval"`
	Todos            []struct {
		ID      string `json:"id"`
		Content string `json:"content"`
		Status  string `json:"status"`
	} `json:"todos"`
}

func runApprove(tabID string) error {
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

	mode, err := fetchMode(conn, tabID)
	if err != nil {
		return fmt.Errorf("get mode: %w", err)
	}
	if !mode.AwaitingApproval {
		fmt.Printf("Tab %q is not awaiting plan approval (mode: %s).\n", tabID, mode.Mode)
		return nil
	}

	fmt.Println("Pending plan:")
	for _, t := range mode.Todos {
		fmt.Printf("  [%s] %s\n", t.Status, t.Content)
	}
	fmt.Println()

	var decision string
	var feedback string
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Approve this plan?").
				Options(
					huh.NewOption("Approve and execute", "approve"),
					huh.NewOption("Reject with feedback", "reject"),
				).
				Value(&decision),
		),
		huh.NewGroup(
			huh.NewText().
				Title("Feedback for the agent").
				Value(&feedback),
		).WithHideFunc(func() bool { return decision != "reject" }),
	)
	if err := form.Run(); err != nil {
		return fmt.Errorf("prompt cancelled: %w", err)
	}

	if decision == "approve" {
		if err := wsRoundTrip(conn, protocol.MethodApprovePlan, tabID, nil); err != nil {
			return err
		}
		fmt.Println("Plan approved; execution starting.")
		return nil
	}

	params, _ := json.Marshal(map[string]string{"feedback": feedback})
	if err := wsRoundTrip(conn, protocol.MethodRejectPlan, tabID, params); err != nil {
		return err
	}
	fmt.Println("Plan rejected; feedback sent back to the agent.")
	return nil
}

func fetchMode(conn *websocket.Conn, tabID string) (*getModeResult, error) {
	reqID := "get-mode"
	req := protocol.RequestFrame{ID: reqID, Method: protocol.MethodGetMode, TabID: tabID}
	if err := conn.WriteJSON(req); err != nil {
		return nil, err
	}
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return nil, err
		}
		var probe struct {
			ID   string `json:"id"`
			Name string `json:"name"`
		}
		if err := json.Unmarshal(raw, &probe); err != nil || probe.Name != "" || probe.ID != reqID {
			continue
		}
		var resp protocol.ResponseFrame
		if err := json.Unmarshal(raw, &resp); err != nil {
			return nil, err
		}
		if resp.Error != nil {
			return nil, fmt.Errorf("%s (%s)", resp.Error.Message, resp.Error.Kind)
		}
		resultBytes, err := json.Marshal(resp.Result)
		if err != nil {
			return nil, err
		}
		var out getModeResult
		if err := json.Unmarshal(resultBytes, &out); err != nil {
			return nil, err
		}
		return &out, nil
	}
}
