package config

import (
	"fmt"
	"os"

	"github.com/titanous/json5"
)

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Agent: AgentConfig{
			Provider:          "anthropic",
			Model:             "claude-sonnet-4-5-20250929",
			MaxTokens:         8192,
			Temperature:       0.7,
			MaxToolIterations: 500,
			ContextWindow:     200000,
		},
		Gateway: GatewayConfig{
			Host:            "127.0.0.1",
			Port:            18791,
			MaxMessageChars: 32000,
			RateLimitRPM:    60,
			HeartbeatEvery:  "24s",
		},
		Browser: BrowserConfig{
			AttachTimeoutMs:    5000,
			ScreenshotMaxWidth: 1280,
		},
		Database: DatabaseConfig{
			Driver:     "sqlite",
			SqlitePath: "~/.browser-code/state.db",
		},
	}
}

// Load reads config from a JSON5 file, then overlays env vars. A missing
// file is not an error — the defaults plus env overrides are returned.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := json5.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// ExpandHome replaces a leading "~" with the user's home directory, the
// shell expansion config file paths don't get for free.
func ExpandHome(path string) string {
	if path == "" || path[0] != '~' {
		return path
	}
	home, _ := os.UserHomeDir()
	if len(path) > 1 && path[1] == '/' {
		return home + path[1:]
	}
	return home
}

// applyEnvOverrides overlays env vars onto the config. Env vars win over
// file values, and secrets (DSNs, auth keys) are accepted ONLY via env,
// never persisted to the config file.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("BROWSERCODE_POSTGRES_DSN"); v != "" {
		c.Database.PostgresDSN = v
		if c.Database.Driver == "" {
			c.Database.Driver = "postgres"
		}
	}
	if v := os.Getenv("BROWSERCODE_TSNET_AUTH_KEY"); v != "" {
		c.Tailscale.AuthKey = v
	}
}

// AnthropicAPIKey reads the provider API key from the environment. It is
// never stored on Config so it cannot leak through config dumps/logs.
func AnthropicAPIKey() string {
	return os.Getenv("BROWSERCODE_ANTHROPIC_API_KEY")
}
