// Package config loads the browser-code daemon's configuration.
package config

import (
	"encoding/json"
	"fmt"
	"sync"
)

// FlexibleStringSlice accepts both ["str"] and [123] in JSON5 config files.
// No field of Config uses it at present.
type FlexibleStringSlice []string

func (f *FlexibleStringSlice) UnmarshalJSON(data []byte) error {
	var ss []string
	if err := json.Unmarshal(data, &ss); err == nil {
		*f = ss
		return nil
	}
	var raw []interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	result := make([]string, 0, len(raw))
	for _, v := range raw {
		switch val := v.(type) {
		case string:
			result = append(result, val)
		case float64:
			result = append(result, fmt.Sprintf("%.0f", val))
		default:
			result = append(result, fmt.Sprintf("%v", val))
		}
	}
	*f = result
	return nil
}

// Config is the root configuration for the browser-code daemon.
type Config struct {
	Agent     AgentConfig     `json:"agent"`
	Gateway   GatewayConfig   `json:"gateway"`
	Browser   BrowserConfig   `json:"browser"`
	Scripts   ScriptsConfig   `json:"scripts,omitempty"`
	Database  DatabaseConfig  `json:"database,omitempty"`
	Telemetry TelemetryConfig `json:"telemetry,omitempty"`
	Tailscale TailscaleConfig `json:"tailscale,omitempty"`
	MCPServers map[string]*MCPServerConfig `json:"mcp_servers,omitempty"`

	mu sync.RWMutex
}

// AgentConfig holds the LLM-facing defaults for the single agent loop.
type AgentConfig struct {
	Provider          string  `json:"provider"`
	Model             string  `json:"model"`
	MaxTokens         int     `json:"max_tokens"`
	Temperature       float64 `json:"temperature"`
	MaxToolIterations int     `json:"max_tool_iterations"` // turn cap, default 500
	ContextWindow     int     `json:"context_window"`
}

// GatewayConfig configures the WebSocket/HTTP messaging fabric listener.
type GatewayConfig struct {
	Host            string `json:"host"`
	Port            int    `json:"port"`
	MaxMessageChars int    `json:"max_message_chars"`
	RateLimitRPM    int    `json:"rate_limit_rpm"`
	HeartbeatEvery  string `json:"heartbeat_every,omitempty"` // Go duration, default "24s"

	// AllowedOrigins whitelists WebSocket CORS origins; empty allows all
	// (the side panel's extension origin is not a fixed value across
	// browsers, so deployments that care pin it here explicitly).
	AllowedOrigins []string `json:"allowed_origins,omitempty"`
}

// BrowserConfig configures CDP attach behaviour.
type BrowserConfig struct {
	RemoteDebuggingURL string `json:"remote_debugging_url,omitempty"` // ws:// or http:// CDP endpoint
	AttachTimeoutMs    int    `json:"attach_timeout_ms,omitempty"`    // default 5000
	ScreenshotMaxWidth int    `json:"screenshot_max_width,omitempty"` // default 1280
}

// ScriptsConfig configures the Script Lifecycle Manager's reconcile cadence.
type ScriptsConfig struct {
	SafetyNetCron string `json:"safety_net_cron,omitempty"` // gronx expression, empty disables
}

// DatabaseConfig selects the persistent store backend.
// PostgresDSN is NEVER read from the config file (secret) — env only.
type DatabaseConfig struct {
	Driver      string `json:"driver,omitempty"` // "sqlite" (default) or "postgres"
	SqlitePath  string `json:"sqlite_path,omitempty"`
	PostgresDSN string `json:"-"` // from env BROWSERCODE_POSTGRES_DSN only
}

// TelemetryConfig configures OpenTelemetry export of agent/tool/LLM spans.
type TelemetryConfig struct {
	Enabled     bool              `json:"enabled,omitempty"`
	Endpoint    string            `json:"endpoint,omitempty"`
	Protocol    string            `json:"protocol,omitempty"` // "grpc" (default) or "http"
	Insecure    bool              `json:"insecure,omitempty"`
	ServiceName string            `json:"service_name,omitempty"`
	Headers     map[string]string `json:"headers,omitempty"`
}

// TailscaleConfig configures the optional tsnet gateway listener.
// AuthKey comes from env only and is never persisted to config.json5.
type TailscaleConfig struct {
	Enabled   bool   `json:"enabled,omitempty"`
	Hostname  string `json:"hostname,omitempty"`
	StateDir  string `json:"state_dir,omitempty"`
	AuthKey   string `json:"-"`
	Ephemeral bool   `json:"ephemeral,omitempty"`
}

// MCPServerConfig describes one Model Context Protocol server this daemon
// connects to at startup, contributing its discovered tools to the
// execute-mode catalog alongside the built-in VFS tools.
type MCPServerConfig struct {
	Transport  string              `json:"transport"` // "stdio", "sse", or "streamable-http"
	Command    string              `json:"command,omitempty"`
	Args       []string            `json:"args,omitempty"`
	Env        map[string]string   `json:"env,omitempty"`
	URL        string              `json:"url,omitempty"`
	Headers    map[string]string   `json:"headers,omitempty"`
	ToolPrefix string              `json:"tool_prefix,omitempty"`
	TimeoutSec int                 `json:"timeout_sec,omitempty"`
	Disabled   bool                `json:"disabled,omitempty"`
	ToolAllow  []string            `json:"tool_allow,omitempty"`
	ToolDeny   []string            `json:"tool_deny,omitempty"`
}

// IsEnabled reports whether this server should be connected at startup.
func (c *MCPServerConfig) IsEnabled() bool { return !c.Disabled }

// IsPostgres reports whether the configured backend is Postgres.
func (c *Config) IsPostgres() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.Database.Driver == "postgres" && c.Database.PostgresDSN != ""
}

// ReplaceFrom atomically swaps in a reloaded configuration, preserving c's mutex.
func (c *Config) ReplaceFrom(src *Config) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Agent = src.Agent
	c.Gateway = src.Gateway
	c.Browser = src.Browser
	c.Scripts = src.Scripts
	c.Database = src.Database
	c.Telemetry = src.Telemetry
	c.Tailscale = src.Tailscale
	c.MCPServers = src.MCPServers
}
