package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/chebykinn/browser-code/internal/agent"
	"github.com/chebykinn/browser-code/internal/browser"
	"github.com/chebykinn/browser-code/internal/bus"
	"github.com/chebykinn/browser-code/internal/config"
	"github.com/chebykinn/browser-code/internal/gateway"
	"github.com/chebykinn/browser-code/internal/mcp"
	"github.com/chebykinn/browser-code/internal/providers"
	"github.com/chebykinn/browser-code/internal/scripts"
	"github.com/chebykinn/browser-code/internal/store"
	"github.com/chebykinn/browser-code/internal/telemetry"
	"github.com/chebykinn/browser-code/internal/vfs"
	"github.com/chebykinn/browser-code/pkg/protocol"
)

const defaultTabID = "default"

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the browser-code daemon (attach to a browser tab, start the gateway)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe()
		},
	}
}

func runServe() error {
	logLevel := slog.LevelInfo
	if verbose {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})))

	cfg, err := config.Load(resolveConfigPath())
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTelemetry, err := telemetry.Setup(ctx, cfg.Telemetry)
	if err != nil {
		return fmt.Errorf("telemetry setup: %w", err)
	}
	defer shutdownTelemetry(context.Background())

	db, driverName, err := store.Open(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer db.Close()

	domainStore, err := store.NewDomainStore(db, driverName)
	if err != nil {
		return fmt.Errorf("build domain store: %w", err)
	}

	eventBus := bus.New()
	if err := store.WatchChanges(ctx, cfg.Database, driverName, func() {
		eventBus.Broadcast(bus.Event{Name: protocol.EventStorageChanged, Payload: nil})
	}); err != nil {
		slog.Warn("serve.storage_watch_failed", "error", err)
	}

	if cfg.Browser.RemoteDebuggingURL == "" {
		return fmt.Errorf("browser.remote_debugging_url is not configured — point it at a running browser's CDP endpoint")
	}
	attachTimeout := time.Duration(cfg.Browser.AttachTimeoutMs) * time.Millisecond
	if attachTimeout <= 0 {
		attachTimeout = 5 * time.Second
	}
	controller, err := browser.Attach(ctx, cfg.Browser.RemoteDebuggingURL, "", attachTimeout, cfg.Browser.ScreenshotMaxWidth)
	if err != nil {
		return fmt.Errorf("attach to browser: %w", err)
	}
	defer controller.Close()

	pageDoc := vfs.NewPageDocument(controller)
	consoleBuf := vfs.NewConsoleBuffer()
	if err := controller.WatchConsole(ctx, func(level, message string) {
		consoleBuf.Append(level, message)
	}); err != nil {
		slog.Warn("serve.console_watch_failed", "error", err)
	}

	active := vfs.ActivePage{URLPath: "/"}
	if rawURL, err := controller.CurrentURL(); err != nil {
		slog.Warn("serve.current_url_failed", "error", err)
	} else if parsed, err := url.Parse(rawURL); err == nil {
		active.Domain = parsed.Hostname()
		active.URLPath = vfs.NormalizeURLPath(parsed.Path)
	}
	vfsInst := vfs.New(domainStore, pageDoc, active)
	vfsInst.Console = consoleBuf

	reconciler := scripts.New(domainStore, controller)
	if err := controller.SetMutationHook(func() {
		pageDoc.ObserveMutation()
	}); err != nil {
		slog.Warn("serve.mutation_hook_failed", "error", err)
	}
	if err := reconciler.Reconcile(ctx, active); err != nil {
		slog.Warn("serve.initial_reconcile_failed", "error", err)
	}
	if err := store.WatchChanges(ctx, cfg.Database, driverName, func() {
		if err := reconciler.Reconcile(ctx, vfsInst.Active()); err != nil {
			slog.Warn("serve.storage_reconcile_failed", "error", err)
		}
	}); err != nil {
		slog.Warn("serve.storage_reconcile_watch_failed", "error", err)
	}
	if cfg.Scripts.SafetyNetCron != "" {
		net := scripts.NewSafetyNet(reconciler, cfg.Scripts.SafetyNetCron, func() vfs.ActivePage { return vfsInst.Active() })
		go net.Run(ctx)
	}

	provider, err := buildProvider(cfg.Agent)
	if err != nil {
		return err
	}

	rt := agent.NewTabRuntime(cfg.Agent, provider, vfsInst, controller)

	if len(cfg.MCPServers) > 0 {
		mgr := mcp.NewManager(rt.Registry, mcp.WithConfigs(cfg.MCPServers))
		if err := mgr.Start(ctx); err != nil {
			slog.Warn("serve.mcp_start_failed", "error", err)
		}
		defer mgr.Stop()
	}

	loop := agent.NewLoop(eventBus, cfg.Agent.MaxToolIterations)
	loop.BindTab(defaultTabID, rt)

	server := gateway.NewServer(cfg, eventBus, loop)

	stopTailscale, err := server.StartTailscaleListener(cfg.Tailscale)
	if err != nil {
		slog.Warn("serve.tailscale_listener_failed", "error", err)
	} else {
		defer stopTailscale()
	}

	slog.Info("browsercoded starting", "gateway", fmt.Sprintf("%s:%d", cfg.Gateway.Host, cfg.Gateway.Port), "protocol", protocol.ProtocolVersion)
	return server.Start(ctx)
}

func buildProvider(cfg config.AgentConfig) (providers.Provider, error) {
	switch cfg.Provider {
	case "", "anthropic":
		apiKey := config.AnthropicAPIKey()
		if apiKey == "" {
			return nil, fmt.Errorf("BROWSERCODE_ANTHROPIC_API_KEY is not set")
		}
		return providers.NewAnthropicProvider(apiKey), nil
	case "openai":
		apiKey := os.Getenv("BROWSERCODE_OPENAI_API_KEY")
		if apiKey == "" {
			return nil, fmt.Errorf("BROWSERCODE_OPENAI_API_KEY is not set")
		}
		return providers.NewOpenAIProvider("openai", apiKey, "", cfg.Model), nil
	default:
		return nil, fmt.Errorf("unknown agent.provider %q", cfg.Provider)
	}
}
